package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kkookk/kkookk/internal/flows"
)

func NewWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Customer wallet: step-up verification and rewards",
	}
	cmd.AddCommand(newWalletStepUpCmd(), newWalletRewardsCmd())
	return cmd
}

func newWalletStepUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "step-up <otp-code>",
		Short: "Verify an OTP code before redeeming rewards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			if err := flows.NewRedemption(client).StepUp(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("Step-up verified. You can redeem rewards for the next 10 minutes.")
			return nil
		},
	}
}

func newWalletRewardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rewards",
		Short: "List earned rewards",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, client, err := loadClient()
			if err != nil {
				return err
			}
			rewards, err := flows.NewRedemption(client).Rewards(cmd.Context())
			if err != nil {
				return err
			}
			if len(rewards) == 0 {
				fmt.Println("No rewards yet.")
				return nil
			}
			rows := make([][]string, 0, len(rewards))
			for _, r := range rewards {
				rows = append(rows, []string{
					fmt.Sprintf("%d", r.ID),
					r.StoreName,
					r.RewardName,
					r.Status,
					formatTime(r.ExpiresAt.Time),
				})
			}
			printTable([]string{"ID", "Store", "Reward", "Status", "Expires"}, rows)
			return nil
		},
	}
}
