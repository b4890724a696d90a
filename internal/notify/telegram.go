package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Telegram sends HTML messages through the Bot API. Sends are rate limited
// so a large replan cascade cannot trip Telegram's flood control.
type Telegram struct {
	api     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

func NewTelegram(api *tgbotapi.BotAPI) *Telegram {
	return &Telegram{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(1), 5),
	}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, text string) error {
	if chatID == 0 {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}
