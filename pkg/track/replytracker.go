package track

import (
	"sync"
	"time"
)

// Reply loop detection defaults: max exchanges per sender within the
// trailing window.
const (
	DefaultMaxReplyExchanges = 5
	DefaultReplyWindow       = 300 * time.Second
)

// ReplyTracker caps how many times a single sender can trigger agent
// engagement within a sliding window, defending against spam and
// bot-to-bot ping-pong loops.
type ReplyTracker struct {
	mu      sync.Mutex
	senders map[string][]time.Time
	window  time.Duration
	max     int
	now     func() time.Time
}

func NewReplyTracker(max int, window time.Duration) *ReplyTracker {
	if max <= 0 {
		max = DefaultMaxReplyExchanges
	}
	if window <= 0 {
		window = DefaultReplyWindow
	}
	return &ReplyTracker{
		senders: make(map[string][]time.Time),
		window:  window,
		max:     max,
		now:     time.Now,
	}
}

// Allow prunes interactions older than the window, then either records a
// new interaction and returns true, or returns false when the sender has
// hit the cap. Rejected events are not recorded, so they do not extend
// the sender's window.
func (r *ReplyTracker) Allow(sender string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)
	history := r.senders[sender]
	kept := history[:0]
	for _, t := range history {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= r.max {
		r.senders[sender] = kept
		return false
	}

	r.senders[sender] = append(kept, now)
	return true
}

// Count reports the sender's interactions still inside the window.
func (r *ReplyTracker) Count(sender string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.window)
	n := 0
	for _, t := range r.senders[sender] {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
