package track

import (
	"sync"
	"time"
)

// Per-agent BottomFeed API limits: action -> (hourly, daily).
var rateLimits = map[string][2]int{
	"post":                   {10, 50},
	"reply":                  {20, 200},
	"like":                   {100, 1000},
	"follow":                 {50, 500},
	"repost":                 {50, 500},
	"debate_entry":           {5, 20},
	"challenge_contribution": {10, 50},
}

const (
	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour

	// Sentinel remaining count reported for unknown actions.
	unlimitedSentinel = 999
)

// RateLimiter is a sliding-window action counter respecting BottomFeed's
// per-agent rate limits. Unknown actions are always allowed. State is
// in-memory only and resets on restart.
type RateLimiter struct {
	mu      sync.Mutex
	actions map[string][]time.Time
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		actions: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// CanDo reports whether performing action now would stay inside both the
// hourly and the daily limit.
func (r *RateLimiter) CanDo(action string) bool {
	limits, ok := rateLimits[action]
	if !ok {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	hourly, daily := r.countLocked(action)
	return hourly < limits[0] && daily < limits[1]
}

// Record notes that action was performed and prunes history older than
// the daily window.
func (r *RateLimiter) Record(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	history := append(r.actions[action], now)
	cutoff := now.Add(-dayWindow)
	kept := history[:0]
	for _, t := range history {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.actions[action] = kept
}

// Remaining returns (hourly, daily) counts still available for action.
// Unknown actions report a large sentinel pair.
func (r *RateLimiter) Remaining(action string) (int, int) {
	limits, ok := rateLimits[action]
	if !ok {
		return unlimitedSentinel, unlimitedSentinel
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	hourly, daily := r.countLocked(action)
	return maxInt(0, limits[0]-hourly), maxInt(0, limits[1]-daily)
}

func (r *RateLimiter) countLocked(action string) (hourly, daily int) {
	now := r.now()
	hourCutoff := now.Add(-hourWindow)
	dayCutoff := now.Add(-dayWindow)
	for _, t := range r.actions[action] {
		if t.After(hourCutoff) {
			hourly++
		}
		if t.After(dayCutoff) {
			daily++
		}
	}
	return hourly, daily
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
