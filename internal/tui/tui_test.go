package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/kkookk/kkookk/internal/workflow"
)

type fakeRenderer struct {
	inputs []string
	err    error
}

func (f *fakeRenderer) Render(s string) (string, error) {
	f.inputs = append(f.inputs, s)
	if f.err != nil {
		return "", f.err
	}
	return "R:" + s, nil
}

var testFlow = workflow.Flow{Kind: workflow.KindIssuance, Window: 90 * time.Second, DefaultRejectReason: "거부됨"}

func TestOutcomeMarkdown_EachView(t *testing.T) {
	count := 3
	cases := []struct {
		req   workflow.Request
		view  workflow.View
		fatal error
		want  string
	}{
		{workflow.Request{Kind: workflow.KindIssuance, Title: "Coffee", StoreName: "Cafe"}, workflow.ViewSuccess, nil, "# Stamp added"},
		{workflow.Request{Kind: workflow.KindMigration, Resolution: workflow.Resolution{ApprovedCount: &count}}, workflow.ViewSuccess, nil, "3 stamps were added"},
		{workflow.Request{Resolution: workflow.Resolution{Reason: "거부됨"}}, workflow.ViewFailure, nil, "> 거부됨"},
		{workflow.Request{}, workflow.ViewFailure, nil, "No reason given."},
		{workflow.Request{}, workflow.ViewExpired, nil, "# Request expired"},
		{workflow.Request{Status: "WEIRD"}, workflow.ViewError, nil, "Unexpected status `WEIRD`"},
		{workflow.Request{}, workflow.ViewSuccess, errors.New("gone"), "gone"},
	}
	for _, tc := range cases {
		got := OutcomeMarkdown(tc.req, tc.view, tc.fatal)
		if !strings.Contains(got, tc.want) {
			t.Errorf("expected %q in outcome for view %s, got:\n%s", tc.want, tc.view, got)
		}
	}
}

func TestRenderMarkdown_FallsBackOnError(t *testing.T) {
	r := &fakeRenderer{err: errors.New("no terminal")}
	if got := renderMarkdown("# hi", r); got != "# hi" {
		t.Fatalf("expected plain fallback, got %q", got)
	}
	if got := renderMarkdown("# hi", nil); got != "# hi" {
		t.Fatalf("expected plain output without renderer, got %q", got)
	}
}

func TestWaitModel_CountdownThenOutcome(t *testing.T) {
	start := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	req := workflow.Request{ID: "1", Kind: workflow.KindIssuance, Status: workflow.StatusPending, ExpiresAt: start.Add(90 * time.Second), Title: "Coffee"}
	fetcher := workflow.FetcherFunc(func(context.Context, string) (workflow.Request, error) { return req, nil })
	p := workflow.NewPoller(testFlow, fetcher, "1", workflow.WithClock(clock), workflow.WithInitial(req))

	r := &fakeRenderer{}
	m := NewWaitModel(p, r)
	view := m.View()
	if !strings.Contains(view, "90s left") {
		t.Fatalf("expected countdown in view, got:\n%s", view)
	}
	if !strings.Contains(view, "Coffee") {
		t.Fatalf("expected subject in view, got:\n%s", view)
	}

	approved := req
	approved.Status = workflow.StatusApproved
	next, cmd := m.Update(snapshotMsg(workflow.Snapshot{Request: approved, Loaded: true}))
	if cmd != nil {
		t.Fatal("expected no further subscription after terminal snapshot")
	}
	view = next.View()
	if !strings.HasPrefix(view, "R:# Stamp added") {
		t.Fatalf("expected rendered outcome, got:\n%s", view)
	}
}

func TestWaitModel_RecoverableErrorKeepsWaiting(t *testing.T) {
	fetcher := workflow.FetcherFunc(func(context.Context, string) (workflow.Request, error) { return workflow.Request{}, nil })
	p := workflow.NewPoller(testFlow, fetcher, "1", workflow.WithClock(clockwork.NewFakeClock()))
	m := NewWaitModel(p, &fakeRenderer{})

	next, cmd := m.Update(snapshotMsg(workflow.Snapshot{Err: errors.New("offline")}))
	if cmd == nil {
		t.Fatal("expected to keep listening while waiting")
	}
	if !strings.Contains(next.View(), "retrying") {
		t.Fatalf("expected retry hint, got:\n%s", next.View())
	}
}

type fakeCompleter struct {
	result workflow.Request
	err    error
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, pending workflow.Request) (workflow.Request, error) {
	f.calls++
	if f.err != nil {
		return pending, f.err
	}
	return f.result, nil
}

func TestRedeemModel_EnterCompletes(t *testing.T) {
	start := time.Date(2026, 2, 15, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(start)
	session := workflow.Request{ID: "tok", Kind: workflow.KindRedemption, Status: workflow.StatusPending, ExpiresAt: start.Add(45 * time.Second), Title: "Free latte"}
	done := session
	done.Status = workflow.StatusApproved
	c := &fakeCompleter{result: done}

	flow := workflow.Flow{Kind: workflow.KindRedemption, Window: 45 * time.Second}
	m := NewRedeemModel(context.Background(), c, flow, session, clock, &fakeRenderer{})
	if !strings.Contains(m.View(), "45s left") {
		t.Fatalf("expected 45s countdown, got:\n%s", m.View())
	}

	clock.Advance(10 * time.Second)
	next, _ := m.Update(redeemTickMsg(clock.Now()))
	if !strings.Contains(next.View(), "35s left") {
		t.Fatalf("expected 35s after tick, got:\n%s", next.View())
	}

	next, cmd := next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected complete command")
	}
	// a second Enter while busy does nothing
	next, again := next.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if again != nil {
		t.Fatal("expected no second complete while busy")
	}
	next, _ = next.Update(cmd())
	if c.calls != 1 {
		t.Fatalf("expected 1 complete call, got %d", c.calls)
	}
	if !strings.Contains(next.View(), "Reward redeemed") {
		t.Fatalf("expected success page, got:\n%s", next.View())
	}
}

func TestRedeemModel_FailureStaysOpen(t *testing.T) {
	clock := clockwork.NewFakeClock()
	session := workflow.Request{ID: "tok", Kind: workflow.KindRedemption, Status: workflow.StatusPending, ExpiresAt: clock.Now().Add(45 * time.Second)}
	c := &fakeCompleter{err: errors.New("network down")}
	m := NewRedeemModel(context.Background(), c, workflow.Flow{Kind: workflow.KindRedemption, Window: 45 * time.Second}, session, clock, nil)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next, _ = next.Update(cmd())
	view := next.View()
	if !strings.Contains(view, "Could not confirm: network down") {
		t.Fatalf("expected error line, got:\n%s", view)
	}
	if !strings.Contains(view, "Staff confirm") {
		t.Fatalf("expected the action to stay available, got:\n%s", view)
	}
}

type stubSource struct {
	mu       sync.Mutex
	rows     []workflow.Request
	approved map[string]int
	rejected map[string]string
}

func (s *stubSource) ListPending(context.Context, string) ([]workflow.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]workflow.Request(nil), s.rows...), nil
}

func (s *stubSource) Approve(_ context.Context, id string, a workflow.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Count != nil {
		s.approved[id] = *a.Count
	}
	return nil
}

func (s *stubSource) Reject(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[id] = reason
	return nil
}

func typeText(m tea.Model, text string) tea.Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next
}

func key(m tea.Model, k string) (tea.Model, tea.Cmd) {
	if k == "enter" {
		return m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}
	return m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func TestQueueModel_MigrationApproveAsksForCount(t *testing.T) {
	src := &stubSource{
		rows:     []workflow.Request{{ID: "5", Kind: workflow.KindMigration, Status: workflow.StatusSubmitted, Title: "Card", Detail: "/api/files/p.jpg"}},
		approved: map[string]int{},
		rejected: map[string]string{},
	}
	flow := workflow.Flow{Kind: workflow.KindMigration, CountedApproval: true, DefaultRejectReason: "반려됨"}
	q := workflow.NewQueue(flow, src, "1")
	if err := q.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	var m tea.Model = NewQueueModel(context.Background(), q, clockwork.NewFakeClock())
	if !strings.Contains(m.View(), "/api/files/p.jpg") {
		t.Fatalf("expected row in table, got:\n%s", m.View())
	}

	m, cmd := key(m, "a")
	if !strings.Contains(m.View(), "Approve 5") {
		t.Fatalf("expected count prompt, got:\n%s", m.View())
	}
	_ = cmd

	m = typeText(m, "abc")
	m, cmd = key(m, "enter")
	if cmd != nil {
		t.Fatal("expected non-numeric count to be blocked locally")
	}
	if !strings.Contains(m.View(), workflow.ErrInvalidCount.Error()) {
		t.Fatalf("expected invalid count toast, got:\n%s", m.View())
	}

	m, _ = key(m, "a")
	m = typeText(m, "3")
	m, cmd = key(m, "enter")
	if cmd == nil {
		t.Fatal("expected approve command")
	}
	cmd()
	if got := src.approved["5"]; got != 3 {
		t.Fatalf("expected count 3, got %d", got)
	}
}

func TestQueueModel_RejectWithBlankReason(t *testing.T) {
	src := &stubSource{
		rows:     []workflow.Request{{ID: "7", Kind: workflow.KindIssuance, Status: workflow.StatusPending, Title: "Card"}},
		approved: map[string]int{},
		rejected: map[string]string{},
	}
	q := workflow.NewQueue(testFlow, src, "1")
	if err := q.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	var m tea.Model = NewQueueModel(context.Background(), q, clockwork.NewFakeClock())
	m, _ = key(m, "r")
	m, cmd := key(m, "enter")
	if cmd == nil {
		t.Fatal("expected reject command")
	}
	cmd()
	if got := src.rejected["7"]; got != "거부됨" {
		t.Fatalf("expected default reason, got %q", got)
	}
	if strings.Contains(m.View(), "Reject 7") {
		t.Fatal("expected input to close after submit")
	}
}

func TestQueueModel_EmptyQueue(t *testing.T) {
	src := &stubSource{approved: map[string]int{}, rejected: map[string]string{}}
	q := workflow.NewQueue(testFlow, src, "1")
	m := NewQueueModel(context.Background(), q, clockwork.NewFakeClock())

	view := m.View()
	for _, exp := range []string{"Nothing is waiting.", "Approve", "Reject", "Refresh", "Quit"} {
		if !strings.Contains(view, exp) {
			t.Errorf("expected view to contain %q, but it didn't. Output:\n%s", exp, view)
		}
	}
	if _, cmd := key(m, "a"); cmd != nil {
		t.Fatal("expected approve to do nothing without a selected row")
	}
}
