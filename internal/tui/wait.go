package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kkookk/kkookk/internal/workflow"
)

type snapshotMsg workflow.Snapshot

func waitForSnapshot(ch <-chan workflow.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(<-ch)
	}
}

// WaitModel is the requester's waiting page. It only renders what the poller
// publishes; the poller itself runs outside the program.
type WaitModel struct {
	updates  <-chan workflow.Snapshot
	flow     workflow.Flow
	snap     workflow.Snapshot
	spinner  spinner.Model
	progress progress.Model
	renderer Renderer
	quitting bool
}

// NewWaitModel creates a waiting page bound to p.
func NewWaitModel(p *workflow.Poller, r Renderer) WaitModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle

	return WaitModel{
		updates:  p.Updates(),
		flow:     p.Flow(),
		snap:     p.Snapshot(),
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		renderer: r,
	}
}

// Snapshot returns the last rendered snapshot.
func (m WaitModel) Snapshot() workflow.Snapshot { return m.snap }

func (m WaitModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForSnapshot(m.updates))
}

func (m WaitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if m.snap.Done() {
				m.quitting = true
				return m, tea.Quit
			}
		}
	case tea.WindowSizeMsg:
		m.progress.Width = max(10, min(msg.Width-4, 60))
	case snapshotMsg:
		m.snap = workflow.Snapshot(msg)
		if m.snap.Done() {
			return m, nil
		}
		return m, waitForSnapshot(m.updates)
	case spinner.TickMsg:
		if m.snap.Done() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m WaitModel) View() string {
	if m.quitting {
		return ""
	}
	if m.snap.View() != workflow.ViewWaiting {
		page := OutcomeMarkdown(m.snap.Request, m.snap.View(), m.snap.Fatal)
		return renderMarkdown(page, m.renderer) + "\n" + footer(keyHint{"Enter", "Close"})
	}

	var b strings.Builder
	b.WriteString(m.spinner.View() + " " + titleStyle.Render(waitingTitle(m.flow.Kind)) + "\n")
	if subject := subjectLine(m.snap.Request); subject != "" {
		b.WriteString(mutedStyle.Render(subject) + "\n")
	}
	b.WriteString("\n")

	if m.snap.Request.HasExpiry() {
		b.WriteString(m.progress.ViewAs(m.snap.Percent/100) + "\n")
		if m.snap.Remaining > 0 {
			b.WriteString(fmt.Sprintf("%ds left\n", m.snap.Remaining))
		} else {
			b.WriteString(warnStyle.Render("Time is up, checking with the store...") + "\n")
		}
	} else {
		b.WriteString(mutedStyle.Render("The store will review your request. You can close this and check later.") + "\n")
	}

	if m.snap.Err != nil {
		b.WriteString(warnStyle.Render("Connection problem, retrying...") + "\n")
	}
	b.WriteString(footer(keyHint{"q", "Stop watching"}))
	return b.String()
}

func waitingTitle(kind workflow.Kind) string {
	switch kind {
	case workflow.KindIssuance:
		return "Waiting for the store to approve your stamp"
	case workflow.KindMigration:
		return "Migration submitted"
	case workflow.KindRedemption:
		return "Show this screen to the staff"
	}
	return "Waiting"
}

func subjectLine(req workflow.Request) string {
	parts := make([]string, 0, 2)
	if req.StoreName != "" {
		parts = append(parts, req.StoreName)
	}
	if req.Title != "" {
		parts = append(parts, req.Title)
	}
	return strings.Join(parts, " · ")
}
