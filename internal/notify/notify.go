// Package notify delivers outbound alerts and serves inbound bot
// commands over Telegram.
package notify

import "context"

// Notifier delivers one outbound message.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// InboundMessage is one command message received from the chat.
type InboundMessage struct {
	ChatID int64
	Text   string
}

// Poller retrieves inbound messages. Each call returns the messages
// that arrived since the previous call.
type Poller interface {
	Poll(ctx context.Context) ([]InboundMessage, error)
}
