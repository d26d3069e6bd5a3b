package commands

import (
	"github.com/spf13/cobra"

	"github.com/kkookk/kkookk/internal/config"
)

var logLevelOverride string

// annotationTUI marks commands that take over the terminal.
const annotationTUI = "tui"

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "kkookk",
		Short:        "KKOOKK - stamp card terminal client",
		Long:         `kkookk requests stamps, redeems rewards and runs the store approval terminal against a KKOOKK backend.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "init" {
				return configureLogger(config.DefaultConfig(), logLevelOverride, false)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return configureLogger(cfg, logLevelOverride, isTUI(cmd))
		},
	}

	cmd.PersistentFlags().StringVar(&logLevelOverride, "log-level", "", "Override log level (debug|info|warn|error)")

	cmd.AddCommand(
		NewInitCmd(),
		NewStatusCmd(),
		NewVersionCmd(),
		NewAuthCmd(),
		NewWalletCmd(),
		NewIssuanceCmd(),
		NewRedeemCmd(),
		NewMigrationCmd(),
		NewTerminalCmd(),
		NewDevserverCmd(),
	)

	return cmd
}

func isTUI(cmd *cobra.Command) bool {
	if cmd.Annotations[annotationTUI] != "true" {
		return false
	}
	plain, err := cmd.Flags().GetBool("plain")
	return err != nil || !plain
}
