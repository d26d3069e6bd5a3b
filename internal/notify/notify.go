// Package notify tells approvers that a new request is waiting.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kkookk/kkookk/internal/config"
	"github.com/kkookk/kkookk/internal/workflow"
)

// Log reports new requests through slog. It is the default notifier.
type Log struct{}

func (Log) Notify(_ context.Context, req workflow.Request) error {
	slog.Info("new pending request",
		"kind", req.Kind,
		"id", req.ID,
		"store", req.StoreName,
		"title", req.Title,
	)
	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []workflow.Notifier

func (m Multi) Notify(ctx context.Context, req workflow.Request) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Message formats the markdown text announcing req.
func Message(req workflow.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**New %s request** #%s", req.Kind, req.ID)
	if subject := strings.TrimSpace(strings.Join(nonEmpty(req.StoreName, req.Title), " · ")); subject != "" {
		b.WriteString("\n" + subject)
	}
	if req.Detail != "" {
		b.WriteString("\n`" + req.Detail + "`")
	}
	if req.HasExpiry() {
		b.WriteString("\nexpires at " + req.ExpiresAt.Local().Format(time.TimeOnly))
	}
	return b.String()
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// FromConfig builds the notifier configured for approver alerts.
func FromConfig(cfg config.NotifyConfig) (workflow.Notifier, error) {
	if !cfg.Telegram.Enabled {
		return Log{}, nil
	}
	tg, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		return nil, err
	}
	return Multi{Log{}, tg}, nil
}
