package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kkookk/kkookk/internal/config"
)

func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize kkookk configuration",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := config.ConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config already exists: %s\n", configPath)
		return nil
	}

	if err := os.MkdirAll(config.ConfigDir(), 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", config.ConfigDir(), err)
	}

	cfg := config.DefaultConfig()
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("kkookk initialized!\n")
	fmt.Printf("Config: %s\n", configPath)
	fmt.Printf("Backend: %s\n", cfg.API.BaseURL)
	fmt.Printf("\nNext steps:\n")
	fmt.Printf("1. Run 'kkookk devserver' for a local backend, or set api.base_url in %s\n", configPath)
	fmt.Printf("2. Save a session with 'kkookk auth login --role wallet --token <token>'\n")
	fmt.Printf("3. Run 'kkookk issuance request --store <id>' to ask for a stamp\n")

	return nil
}
