package telegram

import "context"

// Client sends plain-text messages to a Telegram chat. Users are identified by their
// Telegram ID, which is also their private chat ID.
type Client interface {
	SendText(ctx context.Context, chatID int64, text string) error
}
