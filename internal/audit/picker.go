package audit

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/bankradar/internal/model"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

const (
	pickPending = -1
	pickQuit    = -2
)

type pickerModel struct {
	sources []model.Source
	cursor  int
	chosen  int
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c":
		m.chosen = pickQuit
		return m, tea.Quit
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, max(len(m.sources)-1, 0))
	case "enter":
		if len(m.sources) > 0 {
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(pickerTitleStyle.Render("Source Audit · pick a bank"))
	b.WriteByte('\n')

	for i, s := range m.sources {
		label := fmt.Sprintf("%s (%s)", s.Name(), s.Key())
		if i == m.cursor {
			b.WriteString(pickerSelectedStyle.Render("> " + label))
		} else {
			b.WriteString(pickerItemStyle.Render(label))
		}
		b.WriteByte('\n')
	}

	b.WriteString(pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit"))
	return b.String()
}

// RunSourcePicker shows an interactive bank selector and returns the chosen
// index, or -1 if the user quit.
func RunSourcePicker(sources []model.Source) (int, error) {
	p := tea.NewProgram(pickerModel{sources: sources, chosen: pickPending})
	result, err := p.Run()
	if err != nil {
		return -1, err
	}
	final := result.(pickerModel)
	if final.chosen < 0 {
		return -1, nil
	}
	return final.chosen, nil
}
