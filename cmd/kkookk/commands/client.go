package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kkookk/kkookk/internal/api"
	"github.com/kkookk/kkookk/internal/auth"
	"github.com/kkookk/kkookk/internal/config"
)

// loadClient reads the config and stored session and builds an API client.
func loadClient() (*config.Config, *api.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	session, err := auth.Session()
	if err != nil {
		return nil, nil, fmt.Errorf("load auth store: %w", err)
	}
	return cfg, api.New(cfg.API.BaseURL, session, api.WithTimeout(cfg.Timeout())), nil
}

// resolveStoreID prefers the flag over the configured store.
func resolveStoreID(cfg *config.Config, flag string) string {
	if s := strings.TrimSpace(flag); s != "" {
		return s
	}
	return cfg.Workflow.StoreID
}

func parsePositiveID(name, value string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, value)
	}
	return n, nil
}
