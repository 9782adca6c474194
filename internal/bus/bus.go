// Package bus carries messages between chat channels and the dispatcher.
package bus

import (
	"context"
	"sync"
)

// MessageBus is a pair of bounded queues: inbound from channels, outbound to
// channels.
type MessageBus struct {
	inbound  chan *InboundMessage
	outbound chan *OutboundMessage

	closeOnce sync.Once
	done      chan struct{}
}

// NewMessageBus creates a bus whose queues hold up to size messages each.
func NewMessageBus(size int) *MessageBus {
	if size <= 0 {
		size = 1
	}
	return &MessageBus{
		inbound:  make(chan *InboundMessage, size),
		outbound: make(chan *OutboundMessage, size),
		done:     make(chan struct{}),
	}
}

// PublishInbound enqueues msg, blocking while the inbound queue is full.
// Messages published after Close are dropped.
func (b *MessageBus) PublishInbound(msg *InboundMessage) {
	select {
	case <-b.done:
	case b.inbound <- msg:
	}
}

// PublishOutbound enqueues msg, blocking while the outbound queue is full.
// Messages published after Close are dropped.
func (b *MessageBus) PublishOutbound(msg *OutboundMessage) {
	select {
	case <-b.done:
	case b.outbound <- msg:
	}
}

// ConsumeInbound waits for the next inbound message.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (*InboundMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, context.Canceled
	case msg := <-b.inbound:
		return msg, nil
	}
}

func (b *MessageBus) Inbound() <-chan *InboundMessage   { return b.inbound }
func (b *MessageBus) Outbound() <-chan *OutboundMessage { return b.outbound }

// Close stops accepting new messages. Queued messages stay readable.
func (b *MessageBus) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}
