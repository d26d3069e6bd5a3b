package commands

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kkookk/kkookk/internal/flows"
	"github.com/kkookk/kkookk/internal/tui"
	"github.com/kkookk/kkookk/internal/workflow"
)

func NewRedeemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redeem",
		Short: "Spend a reward while the staff confirm it",
	}
	cmd.AddCommand(newRedeemStartCmd(), newRedeemCompleteCmd())
	return cmd
}

func newRedeemStartCmd() *cobra.Command {
	var otp string
	var plain bool

	cmd := &cobra.Command{
		Use:         "start <reward-id>",
		Short:       "Open a 45 second redemption window for a reward",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationTUI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			rewardID, err := parsePositiveID("reward id", args[0])
			if err != nil {
				return err
			}

			svc := flows.NewRedemption(client)
			if strings.TrimSpace(otp) != "" {
				if err := svc.StepUp(cmd.Context(), otp); err != nil {
					return err
				}
			}

			session, err := svc.Start(cmd.Context(), rewardID)
			if errors.Is(err, flows.ErrStepUpRequired) {
				return fmt.Errorf("%w: run 'kkookk wallet step-up <code>' or pass --otp", err)
			}
			if err != nil {
				return fmt.Errorf("start redemption: %w", err)
			}

			if plain {
				remaining := workflow.Remaining(session.ExpiresAt, session.CreatedAt)
				fmt.Printf("Redeem session for %s at %s is open for %ds.\n", session.Title, session.StoreName, remaining)
				fmt.Printf("Staff confirm with: kkookk redeem complete %s\n", session.ID)
				return nil
			}

			model := tui.NewRedeemModel(cmd.Context(), svc, svc.Flow(), session, nil, tui.NewRenderer(80))
			final, err := tea.NewProgram(model, tea.WithContext(cmd.Context())).Run()
			if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("run redeem view: %w", err)
			}
			if rm, ok := final.(tui.RedeemModel); ok {
				req := rm.Request()
				if req.Status.IsTerminal() {
					fmt.Printf("Redemption %s.\n", strings.ToLower(string(req.Status)))
				} else {
					fmt.Println("Redemption not confirmed. The session closes on its own.")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&otp, "otp", "", "Verify this OTP code before opening the session")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print the session token instead of the full-screen view")
	return cmd
}

func newRedeemCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <session-token>",
		Short: "Confirm a redemption at the counter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			svc := flows.NewRedemption(client)
			pending := workflow.Request{
				ID:     strings.TrimSpace(args[0]),
				Kind:   workflow.KindRedemption,
				Status: workflow.StatusPending,
			}
			req, err := svc.Complete(cmd.Context(), pending)
			if err != nil {
				return fmt.Errorf("complete redemption: %w", err)
			}
			fmt.Print(tui.OutcomeMarkdown(req, workflow.ViewFor(req.Status), nil))
			return nil
		},
	}
}
