// internal/infra/telegram/client.go
package telegram

import (
	"context"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the domain Client on top of a telebot.Bot.
type TelebotAdapter struct {
	bot  *telebot.Bot
	opts *telebot.SendOptions
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{
		bot:  b,
		opts: &telebot.SendOptions{DisableWebPagePreview: true},
	}
}

// SendText delivers text to the user's private chat. telebot takes no context, so
// cancellation is only observed before the API call.
func (a *TelebotAdapter) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := a.bot.Send(telebot.ChatID(chatID), text, a.opts)
	return err
}
