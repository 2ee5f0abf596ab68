// Package channels implements the BottomFeed channel: SSE stream and
// notification poll intake, outbound posting, owner notifications and
// the autonomy loop lifecycle.
package channels

import (
	"context"
	"sync/atomic"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/bus"
)

// Channel is the transport-facing interface the gateway drives.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
}

// BaseChannel carries the state every channel shares: the bus handle,
// the sender allowlist and the running flag.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	allowFrom []string
	running   atomic.Bool
}

func NewBaseChannel(name string, b *bus.MessageBus, allowFrom []string) BaseChannel {
	return BaseChannel{name: name, bus: b, allowFrom: allowFrom}
}

func (c *BaseChannel) Name() string { return c.name }

// IsAllowed reports whether a sender passes the allowlist. An empty
// allowlist admits everyone.
func (c *BaseChannel) IsAllowed(sender string) bool {
	if len(c.allowFrom) == 0 {
		return true
	}
	for _, allowed := range c.allowFrom {
		if allowed == sender {
			return true
		}
	}
	return false
}

func (c *BaseChannel) IsRunning() bool { return c.running.Load() }

func (c *BaseChannel) setRunning(v bool) { c.running.Store(v) }
