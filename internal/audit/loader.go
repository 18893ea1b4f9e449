package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/bankradar/internal/model"
)

// ErrCancelled is returned when the user aborts a fetch.
var ErrCancelled = errors.New("cancelled")

type fetchDoneMsg struct {
	postings []model.Posting
	err      error
	elapsed  time.Duration
}

type loaderModel struct {
	source  model.Source
	timeout time.Duration
	spinner spinner.Model
	result  fetchDoneMsg
	done    bool
}

func newLoader(src model.Source, timeout time.Duration) loaderModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	return loaderModel{source: src, timeout: timeout, spinner: s}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.spinner.Tick)
}

func (m loaderModel) fetch() tea.Cmd {
	src, timeout := m.source, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		start := time.Now()
		postings, err := src.Fetch(ctx)
		return fetchDoneMsg{postings: postings, err: err, elapsed: time.Since(start)}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fetchDoneMsg:
		m.result = msg
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.result = fetchDoneMsg{err: ErrCancelled}
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Fetching postings from %s...\n", m.spinner.View(), m.source.Name())
}

// RunLoader fetches src inline behind a spinner.
func RunLoader(src model.Source, timeout time.Duration) ([]model.Posting, time.Duration, error) {
	p := tea.NewProgram(newLoader(src, timeout))
	result, err := p.Run()
	if err != nil {
		return nil, 0, err
	}
	final := result.(loaderModel).result
	return final.postings, final.elapsed, final.err
}
