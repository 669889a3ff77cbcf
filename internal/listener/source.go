package listener

import (
	"context"
	"fmt"
)

// MessageHandler consumes one inbound message.
type MessageHandler func(ctx context.Context, msg Message)

// Source streams chat messages into the listener.
type Source interface {
	// Consume runs the message loop until context cancellation or fatal error.
	Consume(ctx context.Context, handler MessageHandler) error
}

// ChannelSource reads messages from a channel.
type ChannelSource struct {
	// Messages is the owned input stream consumed by the source loop.
	Messages <-chan Message
}

// Consume forwards channel messages until closure or cancellation.
func (s ChannelSource) Consume(ctx context.Context, handler MessageHandler) error {
	if handler == nil {
		return fmt.Errorf("channel source: nil handler")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-s.Messages:
			if !ok {
				return nil
			}
			handler(ctx, msg)
		}
	}
}
