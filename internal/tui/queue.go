package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jonboulle/clockwork"

	"github.com/kkookk/kkookk/internal/workflow"
)

type inputMode int

const (
	modeBrowse inputMode = iota
	modeReason
	modeCount
)

type queueSnapshotMsg workflow.QueueSnapshot

type toastMsg workflow.Toast

type actionDoneMsg struct{ err error }

type clockTickMsg time.Time

// QueueModel is the approver terminal: a live table of pending requests.
type QueueModel struct {
	ctx      context.Context
	queue    *workflow.Queue
	flow     workflow.Flow
	clock    clockwork.Clock
	snap     workflow.QueueSnapshot
	table    table.Model
	input    textinput.Model
	mode     inputMode
	targetID string
	toast    *workflow.Toast
	quitting bool
}

// NewQueueModel creates the approver view over q. The queue's Run loop is
// started by the caller.
func NewQueueModel(ctx context.Context, q *workflow.Queue, clock clockwork.Clock) QueueModel {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	flow := q.Flow()

	t := table.New(
		table.WithColumns(queueColumns(flow)),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	ti := textinput.New()
	ti.CharLimit = 100

	m := QueueModel{
		ctx:   ctx,
		queue: q,
		flow:  flow,
		clock: clock,
		table: t,
		input: ti,
	}
	m.applySnapshot(q.Snapshot())
	return m
}

func queueColumns(flow workflow.Flow) []table.Column {
	if flow.Kind == workflow.KindMigration {
		return []table.Column{
			{Title: "ID", Width: 6},
			{Title: "Card", Width: 20},
			{Title: "Photo", Width: 28},
			{Title: "Submitted", Width: 10},
		}
	}
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Card", Width: 20},
		{Title: "Wallet", Width: 8},
		{Title: "Expires", Width: 8},
	}
}

func queueRows(flow workflow.Flow, rows []workflow.Row, now time.Time) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		id := r.ID
		if r.InFlight {
			id += "…"
		}
		if flow.Kind == workflow.KindMigration {
			out = append(out, table.Row{id, r.Title, r.Detail, age(r.CreatedAt, now)})
			continue
		}
		out = append(out, table.Row{id, r.Title, r.RequesterID, fmt.Sprintf("%ds", workflow.Remaining(r.ExpiresAt, now))})
	}
	return out
}

func age(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t).Round(time.Minute)
	if d < time.Minute {
		return "just now"
	}
	return d.String() + " ago"
}

func (m *QueueModel) applySnapshot(s workflow.QueueSnapshot) {
	m.snap = s
	m.table.SetRows(queueRows(m.flow, s.Rows, m.clock.Now()))
}

func (m QueueModel) waitForSnapshot() tea.Cmd {
	ch := m.queue.Updates()
	return func() tea.Msg { return queueSnapshotMsg(<-ch) }
}

func (m QueueModel) waitForToast() tea.Cmd {
	ch := m.queue.Toasts()
	return func() tea.Msg { return toastMsg(<-ch) }
}

func (m QueueModel) tick() tea.Cmd {
	return tea.Tick(workflow.CountdownTick, func(t time.Time) tea.Msg { return clockTickMsg(t) })
}

func (m QueueModel) Init() tea.Cmd {
	return tea.Batch(m.waitForSnapshot(), m.waitForToast(), m.tick())
}

func (m QueueModel) selectedID() string {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return strings.TrimSuffix(row[0], "…")
}

func (m QueueModel) run(action func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return actionDoneMsg{err: action(ctx)} }
}

func (m QueueModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case queueSnapshotMsg:
		m.applySnapshot(workflow.QueueSnapshot(msg))
		return m, m.waitForSnapshot()
	case toastMsg:
		t := workflow.Toast(msg)
		m.toast = &t
		return m, m.waitForToast()
	case clockTickMsg:
		m.table.SetRows(queueRows(m.flow, m.snap.Rows, m.clock.Now()))
		return m, m.tick()
	case actionDoneMsg:
		return m, nil
	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m QueueModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "f":
		q := m.queue
		return m, m.run(func(ctx context.Context) error { return q.Refresh(ctx) })
	case "a":
		id := m.selectedID()
		if id == "" {
			return m, nil
		}
		if m.flow.CountedApproval {
			return m.openInput(modeCount, id, "stamps to credit")
		}
		q := m.queue
		return m, m.run(func(ctx context.Context) error { return q.Approve(ctx, id) })
	case "r":
		id := m.selectedID()
		if id == "" {
			return m, nil
		}
		return m.openInput(modeReason, id, "reason (blank for "+m.flow.DefaultRejectReason+")")
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m QueueModel) openInput(mode inputMode, id, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.targetID = id
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.table.Blur()
	return m, m.input.Focus()
}

func (m QueueModel) closeInput() QueueModel {
	m.mode = modeBrowse
	m.targetID = ""
	m.input.Blur()
	m.input.Reset()
	m.table.Focus()
	return m
}

func (m QueueModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "esc":
		return m.closeInput(), nil
	case "enter":
		id, value, mode := m.targetID, strings.TrimSpace(m.input.Value()), m.mode
		m = m.closeInput()
		q := m.queue
		if mode == modeReason {
			return m, m.run(func(ctx context.Context) error { return q.Reject(ctx, id, value) })
		}
		count, err := strconv.Atoi(value)
		if err != nil {
			t := workflow.ToastFor("approve", id, fmt.Errorf("%w: %q", workflow.ErrInvalidCount, value))
			m.toast = &t
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error { return q.ApproveCount(ctx, id, count) })
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m QueueModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	title := fmt.Sprintf("Pending %s requests · store %s", m.flow.Kind, m.snap.StoreID)
	b.WriteString(titleStyle.Render(title) + "\n")

	if len(m.snap.Rows) == 0 {
		b.WriteString(mutedStyle.Render("Nothing is waiting.") + "\n")
	} else {
		b.WriteString(m.table.View() + "\n")
	}
	if m.snap.Err != nil {
		b.WriteString(warnStyle.Render("Refresh failed: "+errorText(m.snap.Err)) + "\n")
	}

	if m.mode != modeBrowse {
		label := "Reject " + m.targetID
		if m.mode == modeCount {
			label = "Approve " + m.targetID
		}
		b.WriteString("\n" + label + ": " + m.input.View() + "\n")
	}

	if m.toast != nil {
		b.WriteString("\n" + toastStyle(m.toast.Level).Render(m.toast.Message) + "\n")
	}

	if m.mode != modeBrowse {
		b.WriteString(footer(keyHint{"Enter", "Submit"}, keyHint{"Esc", "Cancel"}))
	} else {
		b.WriteString(footer(keyHint{"a", "Approve"}, keyHint{"r", "Reject"}, keyHint{"f", "Refresh"}, keyHint{"q", "Quit"}))
	}
	return b.String()
}

func toastStyle(level workflow.ToastLevel) lipgloss.Style {
	switch level {
	case workflow.ToastSuccess:
		return successStyle
	case workflow.ToastWarning:
		return warnStyle
	case workflow.ToastError:
		return errorStyle
	}
	return mutedStyle
}
