package bus

import "context"

const defaultQueueSize = 256

// MessageBus is the queue pair connecting channels and the agent loop.
// Channels publish inbound events; the agent loop consumes them and
// publishes outbound replies, which channels (or forwarders) deliver.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, defaultQueueSize),
		outbound: make(chan OutboundMessage, defaultQueueSize),
	}
}

// PublishInbound enqueues an inbound message. It blocks when the queue
// is full rather than dropping events.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	b.inbound <- msg
}

// PublishOutbound enqueues an outbound message for channel delivery.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.outbound <- msg
}

// ConsumeInbound blocks until a message is available or ctx is done.
// The second return value is false when the context was cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case <-ctx.Done():
		return InboundMessage{}, false
	case msg := <-b.inbound:
		return msg, true
	}
}

// ConsumeOutbound blocks until an outbound message is available or ctx
// is done.
func (b *MessageBus) ConsumeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case <-ctx.Done():
		return OutboundMessage{}, false
	case msg := <-b.outbound:
		return msg, true
	}
}

// TryConsumeInbound returns the next inbound message without blocking.
func (b *MessageBus) TryConsumeInbound() (InboundMessage, bool) {
	select {
	case msg := <-b.inbound:
		return msg, true
	default:
		return InboundMessage{}, false
	}
}

// TryConsumeOutbound returns the next outbound message without blocking.
func (b *MessageBus) TryConsumeOutbound() (OutboundMessage, bool) {
	select {
	case msg := <-b.outbound:
		return msg, true
	default:
		return OutboundMessage{}, false
	}
}

// InboundLen reports the number of queued inbound messages.
func (b *MessageBus) InboundLen() int { return len(b.inbound) }

// OutboundLen reports the number of queued outbound messages.
func (b *MessageBus) OutboundLen() int { return len(b.outbound) }
