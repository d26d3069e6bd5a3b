package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/kkookk/kkookk/internal/workflow"
)

// Completer confirms a redeem session.
type Completer interface {
	Complete(ctx context.Context, pending workflow.Request) (workflow.Request, error)
}

type redeemTickMsg time.Time

type completedMsg struct {
	req workflow.Request
	err error
}

// RedeemModel shows an open redeem session with its countdown. Enter is the
// staff confirmation.
type RedeemModel struct {
	ctx       context.Context
	completer Completer
	flow      workflow.Flow
	clock     clockwork.Clock
	req       workflow.Request
	remaining int
	busy      bool
	err       error
	progress  progress.Model
	renderer  Renderer
	quitting  bool
}

// NewRedeemModel creates the redemption page for an open session.
func NewRedeemModel(ctx context.Context, c Completer, flow workflow.Flow, session workflow.Request, clock clockwork.Clock, r Renderer) RedeemModel {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return RedeemModel{
		ctx:       ctx,
		completer: c,
		flow:      flow,
		clock:     clock,
		req:       session,
		remaining: workflow.Remaining(session.ExpiresAt, clock.Now()),
		progress:  progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		renderer:  r,
	}
}

// Request returns the session as last observed.
func (m RedeemModel) Request() workflow.Request { return m.req }

func (m RedeemModel) tick() tea.Cmd {
	return tea.Tick(workflow.CountdownTick, func(t time.Time) tea.Msg { return redeemTickMsg(t) })
}

func (m RedeemModel) complete() tea.Cmd {
	ctx, c, req := m.ctx, m.completer, m.req
	return func() tea.Msg {
		out, err := c.Complete(ctx, req)
		return completedMsg{req: out, err: err}
	}
}

func (m RedeemModel) done() bool { return m.req.Status.IsTerminal() }

func (m RedeemModel) Init() tea.Cmd { return m.tick() }

func (m RedeemModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if m.done() {
				m.quitting = true
				return m, tea.Quit
			}
			if m.busy {
				return m, nil
			}
			m.busy = true
			m.err = nil
			return m, m.complete()
		}
	case tea.WindowSizeMsg:
		m.progress.Width = max(10, min(msg.Width-4, 60))
	case redeemTickMsg:
		if m.done() {
			return m, nil
		}
		m.remaining = workflow.Remaining(m.req.ExpiresAt, m.clock.Now())
		return m, m.tick()
	case completedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.req = msg.req
	}
	return m, nil
}

func (m RedeemModel) View() string {
	if m.quitting {
		return ""
	}
	if m.done() {
		page := OutcomeMarkdown(m.req, workflow.ViewFor(m.req.Status), nil)
		return renderMarkdown(page, m.renderer) + "\n" + footer(keyHint{"Enter", "Close"})
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(waitingTitle(workflow.KindRedemption)) + "\n")
	if subject := subjectLine(m.req); subject != "" {
		b.WriteString(boxStyle.Render(subject) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.progress.ViewAs(workflow.Percent(m.remaining, m.flow.Window)/100) + "\n")
	if m.remaining > 0 {
		b.WriteString(fmt.Sprintf("%ds left\n", m.remaining))
	} else {
		b.WriteString(warnStyle.Render("The session may have expired. Staff can still try to confirm.") + "\n")
	}

	switch {
	case m.busy:
		b.WriteString(mutedStyle.Render("Confirming...") + "\n")
	case m.err != nil:
		b.WriteString(errorStyle.Render("Could not confirm: "+errorText(m.err)) + "\n")
	}
	b.WriteString(footer(keyHint{"Enter", "Staff confirm"}, keyHint{"q", "Cancel"}))
	return b.String()
}
