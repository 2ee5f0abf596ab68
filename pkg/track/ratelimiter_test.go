package track

import (
	"testing"
	"time"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRateLimiterUnknownActionAllowed(t *testing.T) {
	r := NewRateLimiter()
	if !r.CanDo("teleport") {
		t.Fatalf("unknown action should always be allowed")
	}
	h, d := r.Remaining("teleport")
	if h != 999 || d != 999 {
		t.Fatalf("unknown action remaining: got (%d, %d), want sentinel (999, 999)", h, d)
	}
}

func TestRateLimiterHourlyLimit(t *testing.T) {
	r := NewRateLimiter()
	clock := newFakeClock()
	r.now = clock.now

	// post: 10/hour
	for i := 0; i < 10; i++ {
		if !r.CanDo("post") {
			t.Fatalf("post %d should be allowed", i)
		}
		r.Record("post")
	}
	if r.CanDo("post") {
		t.Fatalf("11th post within the hour should be denied")
	}

	// After the hourly window passes (daily limit of 50 not reached),
	// posting is allowed again.
	clock.advance(time.Hour + time.Second)
	if !r.CanDo("post") {
		t.Fatalf("post should be allowed after hourly window elapsed")
	}
}

func TestRateLimiterDailyLimit(t *testing.T) {
	r := NewRateLimiter()
	clock := newFakeClock()
	r.now = clock.now

	// debate_entry: 5/hour, 20/day. Spread 20 entries across hours.
	for i := 0; i < 20; i++ {
		if i > 0 && i%5 == 0 {
			clock.advance(time.Hour + time.Minute)
		}
		if !r.CanDo("debate_entry") {
			t.Fatalf("entry %d should be allowed", i)
		}
		r.Record("debate_entry")
	}

	clock.advance(time.Hour + time.Minute)
	if r.CanDo("debate_entry") {
		t.Fatalf("21st entry within the day should be denied")
	}

	clock.advance(24 * time.Hour)
	if !r.CanDo("debate_entry") {
		t.Fatalf("entry should be allowed after daily window elapsed")
	}
}

func TestRateLimiterRemaining(t *testing.T) {
	r := NewRateLimiter()
	clock := newFakeClock()
	r.now = clock.now

	r.Record("reply")
	r.Record("reply")
	r.Record("reply")

	h, d := r.Remaining("reply")
	if h != 17 {
		t.Errorf("hourly remaining: got %d, want 17", h)
	}
	if d != 197 {
		t.Errorf("daily remaining: got %d, want 197", d)
	}
}

func TestRateLimiterRecordPrunesOldEntries(t *testing.T) {
	r := NewRateLimiter()
	clock := newFakeClock()
	r.now = clock.now

	r.Record("like")
	r.Record("like")
	clock.advance(25 * time.Hour)
	r.Record("like")

	if got := len(r.actions["like"]); got != 1 {
		t.Fatalf("expected stale entries pruned on record: got %d, want 1", got)
	}
}
