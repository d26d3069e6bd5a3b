package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kkookk/kkookk/internal/api"
	"github.com/kkookk/kkookk/internal/audit"
	"github.com/kkookk/kkookk/internal/config"
	"github.com/kkookk/kkookk/internal/flows"
	"github.com/kkookk/kkookk/internal/notify"
	"github.com/kkookk/kkookk/internal/tui"
	"github.com/kkookk/kkookk/internal/workflow"
)

var queueKinds = []string{string(workflow.KindIssuance), string(workflow.KindMigration)}

func NewTerminalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terminal",
		Short: "Store approval terminal for stamp and migration requests",
	}
	cmd.AddCommand(
		newTerminalQueueCmd(),
		newTerminalListCmd(),
		newTerminalApproveCmd(),
		newTerminalRejectCmd(),
		newTerminalHistoryCmd(),
	)
	return cmd
}

// terminalSource binds a queue kind to its approver-side service.
func terminalSource(kind string, client *api.Client) (workflow.Flow, workflow.Source, error) {
	switch workflow.Kind(strings.ToLower(strings.TrimSpace(kind))) {
	case workflow.KindIssuance:
		return flows.Issuance, flows.NewIssuance(client), nil
	case workflow.KindMigration:
		return flows.Migration, flows.NewMigration(client), nil
	}
	return workflow.Flow{}, nil, fmt.Errorf("unknown queue %q (want %s)", kind, strings.Join(queueKinds, " or "))
}

func newQueue(cfg *config.Config, client *api.Client, kind, storeFlag string, opts ...workflow.QueueOption) (*workflow.Queue, error) {
	flow, src, err := terminalSource(kind, client)
	if err != nil {
		return nil, err
	}
	opts = append([]workflow.QueueOption{
		workflow.WithQueueInterval(cfg.PollInterval()),
		workflow.WithRecorder(audit.NewWriter(config.ConfigDir())),
	}, opts...)
	return workflow.NewQueue(flow, src, resolveStoreID(cfg, storeFlag), opts...), nil
}

func newTerminalQueueCmd() *cobra.Command {
	var storeID string

	cmd := &cobra.Command{
		Use:         "queue <issuance|migration>",
		Short:       "Watch pending requests and approve or reject them",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationTUI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := loadClient()
			if err != nil {
				return err
			}
			notifier, err := notify.FromConfig(cfg.Notify)
			if err != nil {
				return fmt.Errorf("configure notifications: %w", err)
			}
			q, err := newQueue(cfg, client, args[0], storeID, workflow.WithNotifier(notifier))
			if err != nil {
				return err
			}
			if q.Snapshot().StoreID == "" {
				return fmt.Errorf("%w: set workflow.store_id or pass --store", workflow.ErrNoStore)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			runErr := make(chan error, 1)
			go func() { runErr <- q.Run(ctx) }()

			_, err = tea.NewProgram(tui.NewQueueModel(ctx, q, nil), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			cancel()
			<-runErr
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("run queue view: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&storeID, "store", "s", "", "Store id (defaults to workflow.store_id)")
	return cmd
}

func newTerminalListCmd() *cobra.Command {
	var storeID string

	cmd := &cobra.Command{
		Use:   "list <issuance|migration>",
		Short: "Print the pending requests once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := loadClient()
			if err != nil {
				return err
			}
			q, err := newQueue(cfg, client, args[0], storeID)
			if err != nil {
				return err
			}
			if err := q.Refresh(cmd.Context()); err != nil {
				return fmt.Errorf("list pending: %w", err)
			}

			snap := q.Snapshot()
			if len(snap.Rows) == 0 {
				fmt.Println("Nothing is waiting.")
				return nil
			}
			rows := make([][]string, 0, len(snap.Rows))
			for _, r := range snap.Rows {
				last := formatTime(r.ExpiresAt)
				if q.Flow().Kind == workflow.KindMigration {
					last = r.Detail
				}
				rows = append(rows, []string{r.ID, r.Title, r.RequesterID, formatTime(r.CreatedAt), last})
			}
			last := "Expires"
			if q.Flow().Kind == workflow.KindMigration {
				last = "Photo"
			}
			printTable([]string{"ID", "Card", "Wallet", "Requested", last}, rows)
			return nil
		},
	}

	cmd.Flags().StringVarP(&storeID, "store", "s", "", "Store id (defaults to workflow.store_id)")
	return cmd
}

func newTerminalApproveCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "approve <issuance|migration> <request-id>",
		Short: "Approve one request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := loadClient()
			if err != nil {
				return err
			}
			q, err := newQueue(cfg, client, args[0], "")
			if err != nil {
				return err
			}
			id := strings.TrimSpace(args[1])
			if q.Flow().CountedApproval {
				if !cmd.Flags().Changed("count") {
					err = fmt.Errorf("%w: pass --count", workflow.ErrCountRequired)
					printToast(workflow.ToastFor("approve", id, err))
					return err
				}
				err = q.ApproveCount(cmd.Context(), id, count)
			} else {
				err = q.Approve(cmd.Context(), id)
			}
			drainToasts(q)
			return err
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "Stamps to credit (migration only)")
	return cmd
}

func newTerminalRejectCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <issuance|migration> <request-id>",
		Short: "Reject one request",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, client, err := loadClient()
			if err != nil {
				return err
			}
			q, err := newQueue(cfg, client, args[0], "")
			if err != nil {
				return err
			}
			err = q.Reject(cmd.Context(), strings.TrimSpace(args[1]), reason)
			drainToasts(q)
			return err
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to the customer (a default is used when empty)")
	return cmd
}

func newTerminalHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent approve and reject decisions made on this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := audit.NewWriter(config.ConfigDir()).Recent(limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println("No decisions recorded yet.")
				return nil
			}
			rows := make([][]string, 0, len(events))
			for _, ev := range events {
				detail := ev.Reason
				if ev.Count != nil {
					detail = fmt.Sprintf("+%d", *ev.Count)
				}
				rows = append(rows, []string{formatTime(ev.Time), ev.Kind, ev.ID, ev.Action, detail, ev.Result})
			}
			printTable([]string{"TIME", "KIND", "ID", "ACTION", "DETAIL", "RESULT"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of decisions to show (0 for all)")
	return cmd
}

func drainToasts(q *workflow.Queue) {
	for {
		select {
		case t := <-q.Toasts():
			printToast(t)
		default:
			return
		}
	}
}

func printToast(t workflow.Toast) {
	fmt.Printf("[%s] %s\n", t.Level, t.Message)
}
