package commands

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kkookk/kkookk/internal/config"
	"github.com/kkookk/kkookk/internal/tui"
	"github.com/kkookk/kkookk/internal/workflow"
)

// plainProgressStep is how often, in seconds, plain output reports the countdown.
const plainProgressStep = 10

// watchRequest polls initial until it resolves. plain prints progress lines
// instead of the full-screen view.
func watchRequest(ctx context.Context, cfg *config.Config, flow workflow.Flow, fetcher workflow.Fetcher, initial workflow.Request, plain bool) error {
	poller := workflow.NewPoller(flow, fetcher, initial.ID,
		workflow.WithInitial(initial),
		workflow.WithInterval(cfg.PollInterval()),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- poller.Run(ctx) }()

	if plain {
		return watchPlain(ctx, poller, runErr)
	}

	final, err := tea.NewProgram(tui.NewWaitModel(poller, tui.NewRenderer(80)), tea.WithContext(ctx)).Run()
	cancel()
	<-runErr
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run wait view: %w", err)
	}

	snap := poller.Snapshot()
	if wm, ok := final.(tui.WaitModel); ok {
		snap = wm.Snapshot()
	}
	if !snap.Done() {
		fmt.Printf("Stopped watching #%s. The request stays open on the server.\n", initial.ID)
		return nil
	}
	return snap.Fatal
}

func watchPlain(ctx context.Context, poller *workflow.Poller, runErr <-chan error) error {
	id := poller.ID()
	fmt.Printf("Waiting for %s #%s...\n", poller.Flow().Kind, id)

	lastReported := -1
	var lastErr string
	for {
		select {
		case snap := <-poller.Updates():
			if snap.Err != nil && snap.Err.Error() != lastErr {
				lastErr = snap.Err.Error()
				fmt.Printf("Connection problem, retrying: %s\n", lastErr)
			} else if snap.Err == nil {
				lastErr = ""
			}
			if snap.Request.HasExpiry() && !snap.Done() && snap.Remaining%plainProgressStep == 0 && snap.Remaining != lastReported {
				lastReported = snap.Remaining
				fmt.Printf("%ds left\n", snap.Remaining)
			}
		case err := <-runErr:
			snap := poller.Snapshot()
			if !snap.Done() {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					fmt.Printf("Stopped watching #%s. The request stays open on the server.\n", id)
					return nil
				}
				return err
			}
			fmt.Print(tui.OutcomeMarkdown(snap.Request, snap.View(), snap.Fatal))
			return snap.Fatal
		}
	}
}
