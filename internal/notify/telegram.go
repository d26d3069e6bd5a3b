package notify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kkookk/kkookk/internal/workflow"
)

var (
	boldStarRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	codeInlineRe = regexp.MustCompile("`([^`]+)`")
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts new requests to a chat through a bot.
type Telegram struct {
	bot    sender
	chatID int64
}

// NewTelegram connects the bot identified by token.
func NewTelegram(token, chatID string) (*Telegram, error) {
	id, err := parseInt64(chatID)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init failed: %w", err)
	}
	slog.Info("telegram bot connected", "username", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: id}, nil
}

func (t *Telegram) Notify(_ context.Context, req workflow.Request) error {
	text := Message(req)
	msg := tgbotapi.NewMessage(t.chatID, markdownToHTML(text))
	msg.ParseMode = tgbotapi.ModeHTML

	_, err := t.bot.Send(msg)
	if err != nil {
		msg.ParseMode = ""
		msg.Text = text
		_, err = t.bot.Send(msg)
	}
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func markdownToHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	text = boldStarRe.ReplaceAllString(text, "<b>$1</b>")
	text = codeInlineRe.ReplaceAllString(text, "<code>$1</code>")
	return text
}
