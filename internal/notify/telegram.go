package notify

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSender is the part of tgbotapi.BotAPI the notifier needs.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts messages to one chat through a bot. The bot is created on
// first use since tgbotapi verifies the token with a getMe call.
type Telegram struct {
	Token    string
	ChatID   int64
	Endpoint string // tgbotapi.APIEndpoint when empty
	Client   *http.Client

	mu     sync.Mutex
	sender TelegramSender
}

// NewTelegram returns a notifier for chatID using the bot token.
func NewTelegram(token string, chatID int64) *Telegram {
	return &Telegram{Token: token, ChatID: chatID}
}

// NewTelegramWithSender uses an existing sender (tests, shared bots).
func NewTelegramWithSender(chatID int64, s TelegramSender) *Telegram {
	return &Telegram{ChatID: chatID, sender: s}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) bot() (TelegramSender, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sender != nil {
		return t.sender, nil
	}
	if t.Token == "" {
		return nil, fmt.Errorf("telegram bot token not set")
	}
	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	b, err := tgbotapi.NewBotAPIWithClient(t.Token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	t.sender = b
	return b, nil
}

func (t *Telegram) Notify(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := t.bot()
	if err != nil {
		return err
	}
	_, err = b.Send(tgbotapi.NewMessage(t.ChatID, msg.Text))
	return err
}
