package audit

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/amishk599/bankradar/internal/model"
)

type stubSource struct{}

func (stubSource) Key() string                                    { return "gs" }
func (stubSource) Name() string                                   { return "Goldman Sachs" }
func (stubSource) Fetch(context.Context) ([]model.Posting, error) { return nil, nil }

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testReport() Report {
	raw := []model.Posting{
		{Link: "a", Title: "Operations Associate", Location: "New York, NY"},
		{Link: "b", Title: "Summer Analyst", Location: "New York, NY", PostedDate: datePtr(2026, 3, 1)},
		{Link: "c", Title: "Credit Analyst", Location: "London", PostedDate: datePtr(2026, 3, 5)},
		{Link: "d", Title: "Graduate Analyst Programme"},
	}
	seen := []model.FirstSeenRecord{{Link: "b", DetectedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}}
	return BuildReport(stubSource{}, raw, seen, time.Second)
}

func links(list []model.Posting) []string {
	out := make([]string, len(list))
	for i, p := range list {
		out[i] = p.Link
	}
	return out
}

func TestBuildReport(t *testing.T) {
	r := testReport()
	if diff := cmp.Diff([]string{"c", "b", "a", "d"}, links(r.Fetched)); diff != "" {
		t.Errorf("fetched order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"c", "b"}, links(r.Kept)); diff != "" {
		t.Errorf("kept mismatch (-want +got):\n%s", diff)
	}
	if r.Kept[0].BankKey != "gs" || r.Kept[0].Category == "" {
		t.Errorf("kept posting not stamped: %+v", r.Kept[0])
	}
	if _, ok := r.Seen["b"]; !ok {
		t.Error("expected b in seen index")
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(m tea.Model, msgs ...tea.Msg) tea.Model {
	for _, msg := range msgs {
		m, _ = m.Update(msg)
	}
	return m
}

func TestAuditModel_Navigation(t *testing.T) {
	m := send(auditModel{report: testReport()},
		tea.WindowSizeMsg{Width: 120, Height: 40},
		key("j"), key("j"), key("j"), key("j"), // clamps at the last item
		key("tab"), key("j"),
		key("enter"),
	).(auditModel)

	if m.cursors[paneFetched] != 3 {
		t.Errorf("fetched cursor = %d, want 3", m.cursors[paneFetched])
	}
	if m.view != viewDetail || m.detail.Link != "b" {
		t.Fatalf("detail = %q (view %d), want b", m.detail.Link, m.view)
	}

	m = send(m, key("esc")).(auditModel)
	if m.view != viewList {
		t.Error("esc should return to the list")
	}
	m = send(m, key("q")).(auditModel)
	if !m.wantQuit {
		t.Error("q should request quit")
	}
}

func TestPickerModel(t *testing.T) {
	sources := []model.Source{stubSource{}, stubSource{}}
	m := send(pickerModel{sources: sources, chosen: pickPending}, key("j"), key("j"), key("enter")).(pickerModel)
	if m.chosen != 1 {
		t.Errorf("chosen = %d, want 1", m.chosen)
	}
	m = send(pickerModel{sources: sources, chosen: pickPending}, key("q")).(pickerModel)
	if m.chosen != pickQuit {
		t.Errorf("chosen = %d, want quit", m.chosen)
	}
}

func TestLoaderModel_Done(t *testing.T) {
	m := send(newLoader(stubSource{}, time.Second), fetchDoneMsg{postings: []model.Posting{{Link: "x"}}}).(loaderModel)
	if !m.done || len(m.result.postings) != 1 {
		t.Errorf("loader result = %+v, want one posting", m.result)
	}
	if m.View() != "" {
		t.Error("finished loader should render nothing")
	}
}
