package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kkookk/kkookk/internal/config"
	"github.com/kkookk/kkookk/internal/workflow"
)

type fakeSender struct {
	sent    []tgbotapi.MessageConfig
	failFor string
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)
	if f.failFor != "" && msg.ParseMode == f.failFor {
		return tgbotapi.Message{}, errors.New("can't parse entities")
	}
	return tgbotapi.Message{}, nil
}

func TestMessage(t *testing.T) {
	msg := Message(workflow.Request{ID: "12", Kind: workflow.KindMigration, StoreName: "Cafe", Title: "Coffee", Detail: "/api/files/p.jpg"})
	for _, want := range []string{"**New migration request** #12", "Cafe · Coffee", "`/api/files/p.jpg`"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
	if strings.Contains(msg, "expires") {
		t.Errorf("migration has no expiry, got %q", msg)
	}
}

func TestTelegram_SendsHTML(t *testing.T) {
	s := &fakeSender{}
	tg := &Telegram{bot: s, chatID: 42}

	if err := tg.Notify(context.Background(), workflow.Request{ID: "1", Kind: workflow.KindIssuance, Title: "A<B"}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.sent) != 1 {
		t.Fatalf("expected 1 send, got %d", len(s.sent))
	}
	got := s.sent[0]
	if got.ChatID != 42 || got.ParseMode != tgbotapi.ModeHTML {
		t.Fatalf("unexpected message config: %+v", got)
	}
	if !strings.Contains(got.Text, "<b>New issuance request</b>") || !strings.Contains(got.Text, "A&lt;B") {
		t.Fatalf("unexpected html: %q", got.Text)
	}
}

func TestTelegram_FallsBackToPlainText(t *testing.T) {
	s := &fakeSender{failFor: tgbotapi.ModeHTML}
	tg := &Telegram{bot: s, chatID: 42}

	if err := tg.Notify(context.Background(), workflow.Request{ID: "1", Kind: workflow.KindIssuance}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(s.sent) != 2 {
		t.Fatalf("expected retry without parse mode, got %d sends", len(s.sent))
	}
	if s.sent[1].ParseMode != "" || !strings.HasPrefix(s.sent[1].Text, "**New issuance request**") {
		t.Fatalf("unexpected fallback message: %+v", s.sent[1])
	}
}

type failingNotifier struct{}

func (failingNotifier) Notify(context.Context, workflow.Request) error { return errors.New("down") }

func TestMulti_JoinsErrors(t *testing.T) {
	err := Multi{Log{}, failingNotifier{}}.Notify(context.Background(), workflow.Request{ID: "1"})
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("expected joined error, got %v", err)
	}
}

func TestFromConfig_DefaultsToLog(t *testing.T) {
	n, err := FromConfig(config.NotifyConfig{})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if _, ok := n.(Log); !ok {
		t.Fatalf("expected Log notifier, got %T", n)
	}
}

func TestFromConfig_BadChatID(t *testing.T) {
	_, err := FromConfig(config.NotifyConfig{Telegram: config.TelegramConfig{Enabled: true, Token: "t", ChatID: "abc"}})
	if err == nil {
		t.Fatal("expected error for non-numeric chat id")
	}
}
