package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kkookk/kkookk/internal/audit"
	"github.com/kkookk/kkookk/internal/auth"
	"github.com/kkookk/kkookk/internal/config"
)

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show kkookk configuration status",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("=== kkookk Status ===")
	fmt.Println()

	fmt.Printf("Config: %s\n", config.ConfigPath())
	if _, err := os.Stat(config.ConfigPath()); err == nil {
		fmt.Println("  Status: OK")
	} else {
		fmt.Println("  Status: Not found (run 'kkookk init')")
	}

	fmt.Println("\nBackend:")
	fmt.Printf("  URL:     %s\n", cfg.API.BaseURL)
	fmt.Printf("  Timeout: %s\n", cfg.Timeout())

	fmt.Println("\nWorkflow:")
	fmt.Printf("  Poll interval: %s\n", cfg.PollInterval())
	if cfg.Workflow.StoreID != "" {
		fmt.Printf("  Store: %s\n", cfg.Workflow.StoreID)
	} else {
		fmt.Println("  Store: not set (approver terminal suspended)")
	}
	fmt.Printf("  Decision log: %s\n", audit.NewWriter(config.ConfigDir()).Path())

	fmt.Println("\nSessions:")
	store, err := auth.LoadStore()
	if err != nil {
		fmt.Printf("  unavailable: %v\n", err)
	} else {
		for _, role := range []auth.Role{auth.RoleWallet, auth.RoleOwner} {
			cred := store.Credentials[role]
			switch {
			case cred == nil:
				fmt.Printf("  %s: not logged in\n", role)
			case cred.IsExpired():
				fmt.Printf("  %s: expired\n", role)
			default:
				fmt.Printf("  %s: %s\n", role, auth.Mask(cred.Token))
			}
		}
	}

	fmt.Println("\nNotify:")
	if cfg.Notify.Telegram.Enabled {
		fmt.Printf("  Telegram: enabled (chat %s)\n", cfg.Notify.Telegram.ChatID)
	} else {
		fmt.Println("  Telegram: disabled")
	}

	fmt.Println("\nDevserver:")
	fmt.Printf("  Address: %s\n", cfg.DevserverAddr())
	fmt.Printf("  TTLs:    issuance %ds, redeem %ds\n", cfg.Devserver.IssuanceTTLSeconds, cfg.Devserver.RedeemTTLSeconds)

	return nil
}
