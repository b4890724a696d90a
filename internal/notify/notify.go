// Package notify delivers fire-and-forget messages to users. The scheduler
// never depends on delivery succeeding; failures are logged by callers and
// dropped.
package notify

import "context"

// Notifier sends one message to a Telegram chat.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Noop discards every message. Used when no Telegram token is configured
// and in tests.
type Noop struct{}

func (Noop) Send(context.Context, int64, string) error { return nil }
