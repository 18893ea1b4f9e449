// Package audit is an interactive terminal view for checking what a single
// bank source returns and what survives normalization.
package audit

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/bankradar/internal/aggregator"
	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
)

// Lines per posting in a pane (title + subtitle + blank separator).
const itemHeight = 3

const (
	paneFetched = 0
	paneKept    = 1
)

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle   = headerStyle.Foreground(lipgloss.Color("39"))
	inactiveHeaderStyle = headerStyle.Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle    = lipgloss.NewStyle().Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(16)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	newBadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

// Report is one audited fetch.
type Report struct {
	Source  string
	Fetched []model.Posting // raw adapter output
	Kept    []model.Posting // after normalization and the analyst/intern view filter
	Seen    map[string]model.FirstSeenRecord
	Elapsed time.Duration
}

// BuildReport normalizes raw the way a run does and splits what the recent
// view would show.
func BuildReport(src model.Source, raw []model.Posting, seen []model.FirstSeenRecord, elapsed time.Duration) Report {
	merged := aggregator.Merge([]aggregator.Result{{Key: src.Key(), Name: src.Name(), Postings: raw}})
	var kept []model.Posting
	for _, p := range merged {
		if filter.IsAnalystOrIntern(p.Title) {
			kept = append(kept, p)
		}
	}
	byLink := make(map[string]model.FirstSeenRecord, len(seen))
	for _, r := range seen {
		byLink[r.Link] = r
	}
	fetched := append([]model.Posting(nil), raw...)
	sortByPosted(fetched)
	sortByPosted(kept)
	return Report{Source: src.Name(), Fetched: fetched, Kept: kept, Seen: byLink, Elapsed: elapsed}
}

type auditModel struct {
	report     Report
	panes      [2]viewport.Model
	cursors    [2]int
	activePane int
	width      int
	height     int
	ready      bool

	view   viewState
	detail model.Posting
	detVP  viewport.Model

	wantQuit bool
}

func (m auditModel) Init() tea.Cmd {
	return nil
}

func (m auditModel) postings(pane int) []model.Posting {
	if pane == paneFetched {
		return m.report.Fetched
	}
	return m.report.Kept
}

func (m auditModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detVP.Width = m.width - 4
			m.detVP.Height = m.height - 4
			m.detVP.SetContent(m.renderDetail())
		}
		return m, nil
	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m auditModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "enter":
		return m.openDetail(), nil
	}

	// pgup/pgdn/home/end go to the active pane.
	var cmd tea.Cmd
	m.panes[m.activePane], cmd = m.panes[m.activePane].Update(msg)
	return m, cmd
}

func (m auditModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detail.Link)
		return m, nil
	}
	var cmd tea.Cmd
	m.detVP, cmd = m.detVP.Update(msg)
	return m, cmd
}

func (m *auditModel) moveCursor(delta int) {
	n := len(m.postings(m.activePane))
	c := &m.cursors[m.activePane]
	*c = clamp(*c+delta, 0, max(n-1, 0))
	m.recalcContent()

	vp := &m.panes[m.activePane]
	top := *c * itemHeight
	bottom := top + itemHeight - 1
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m auditModel) openDetail() auditModel {
	list := m.postings(m.activePane)
	if len(list) == 0 {
		return m
	}
	m.view = viewDetail
	m.detail = list[m.cursors[m.activePane]]
	m.detVP = viewport.New(m.width-4, m.height-4)
	m.detVP.SetContent(m.renderDetail())
	return m
}

func (m *auditModel) recalcLayout() {
	// 2 border chars per pane + 1 gap.
	w := max((m.width-5)/2, 20)
	// Header, top and bottom border, status bar.
	h := max(m.height-4, 5)
	for i := range m.panes {
		if !m.ready {
			m.panes[i] = viewport.New(w, h)
			continue
		}
		m.panes[i].Width = w
		m.panes[i].Height = h
	}
	m.ready = true
	m.recalcContent()
}

func (m *auditModel) recalcContent() {
	for i := range m.panes {
		m.panes[i].SetContent(m.renderList(m.postings(i), m.cursors[i], m.activePane == i))
	}
}

func (m auditModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m auditModel) viewList() string {
	w := m.panes[0].Width
	labels := [2]string{
		fmt.Sprintf(" Fetched (%d)", len(m.report.Fetched)),
		fmt.Sprintf(" Kept (%d)", len(m.report.Kept)),
	}

	var headers, panes [2]string
	for i := range m.panes {
		hs, bs := inactiveHeaderStyle, inactiveBorderStyle
		if i == m.activePane {
			hs, bs = activeHeaderStyle, activeBorderStyle
		}
		headers[i] = lipgloss.NewStyle().Width(w + 2).Render(hs.Render(labels[i]))
		panes[i] = bs.Width(w).Render(m.panes[i].View())
	}

	status := fmt.Sprintf(" %s | %d fetched | %d kept | %s    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		m.report.Source, len(m.report.Fetched), len(m.report.Kept), m.report.Elapsed.Round(time.Millisecond))

	return lipgloss.JoinHorizontal(lipgloss.Top, headers[0], " ", headers[1]) + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, panes[0], " ", panes[1]) + "\n" +
		statusBarStyle.Width(m.width).Render(status)
}

func (m auditModel) viewDetail() string {
	content := activeBorderStyle.Width(m.width - 2).Render(m.detVP.View())
	status := statusBarStyle.Width(m.width).Render(" o open link  esc/backspace back  ↑/↓ scroll  q quit")
	return detailTitleStyle.Render("Posting") + "\n" + content + "\n" + status
}

func (m auditModel) renderDetail() string {
	p := m.detail
	var b strings.Builder
	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	field("Title", p.Title)
	field("Bank", p.Bank)
	field("Location", p.Location)
	field("Category", p.Category)
	field("Role Type", string(p.RoleType))
	field("Posted", formatDate(p.PostedDate))
	b.WriteByte('\n')

	if rec, ok := m.report.Seen[p.Link]; ok {
		field("First Seen", rec.DetectedAt.UTC().Format("2006-01-02 15:04 MST"))
		field("Effective", rec.EffectiveAge().UTC().Format("2006-01-02 15:04 MST"))
	} else {
		field("First Seen", newBadgeStyle.Render("not yet recorded"))
	}
	if !filter.IsUSLocation(p.Location) {
		field("Note", "non-US location")
	}

	b.WriteByte('\n')
	field("Link", p.Link)
	return b.String()
}

func (m auditModel) renderList(list []model.Posting, cursor int, active bool) string {
	if len(list) == 0 {
		return "  (no postings)"
	}

	var b strings.Builder
	for i, p := range list {
		ts, ss, prefix := titleStyle, subtitleStyle, "  "
		if active && i == cursor {
			ts, ss, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}
		title := p.Title
		if _, ok := m.report.Seen[p.Link]; !ok {
			title += " " + newBadgeStyle.Render("NEW")
		}
		b.WriteString(prefix + ts.Render(title) + "\n")
		b.WriteString(prefix + ss.Render(fmt.Sprintf("%s · %s", p.Location, formatDate(p.PostedDate))) + "\n")
		if i < len(list)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "n/a"
	}
	return t.UTC().Format("2006-01-02")
}

// sortByPosted orders newest first; undated postings sink to the bottom.
func sortByPosted(list []model.Posting) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].PostedDate, list[j].PostedDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunAuditTUI shows the split-pane view for one report. It returns
// wantQuit=true on q/ctrl+c and false on esc, which goes back to the picker.
func RunAuditTUI(report Report) (bool, error) {
	p := tea.NewProgram(auditModel{report: report}, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	return result.(auditModel).wantQuit, nil
}
