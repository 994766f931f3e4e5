package notify

import (
	"context"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	checkinerrors "github.com/bgricker/checkin/internal/errors"
)

// TelegramOptions configure the Telegram sink.
type TelegramOptions struct {
	Token  string
	ChatID string
	// APIURL overrides the Bot API server.
	APIURL string
}

// Telegram sends messages through the Bot API.
type Telegram struct {
	chatID string
	bot    *bot.Bot
}

// NewTelegram creates the sink. No request is made until Send.
func NewTelegram(opts TelegramOptions) (*Telegram, error) {
	token := strings.TrimSpace(opts.Token)
	chatID := strings.TrimSpace(opts.ChatID)
	if token == "" || chatID == "" {
		return nil, checkinerrors.Config("telegram needs both a bot token and a chat id")
	}

	options := []bot.Option{bot.WithSkipGetMe()}
	if opts.APIURL != "" {
		options = append(options, bot.WithServerURL(strings.TrimRight(opts.APIURL, "/")))
	}
	b, err := bot.New(token, options...)
	if err != nil {
		return nil, checkinerrors.Wrap(err, "create telegram bot")
	}
	return &Telegram{chatID: chatID, bot: b}, nil
}

// Send posts the title in bold followed by the body.
func (t *Telegram) Send(ctx context.Context, title, body string) error {
	text := "<b>" + html.EscapeString(title) + "</b>\n" + html.EscapeString(body)
	_, err := t.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return checkinerrors.Transport("notify", err)
	}
	return nil
}
