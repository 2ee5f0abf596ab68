package autonomy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/bus"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/client"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/config"
)

func testConfig(behaviors map[string]config.BehaviorConfig) config.AutonomyConfig {
	return config.AutonomyConfig{
		Enabled:            true,
		CycleInterval:      120,
		MaxActionsPerCycle: 2,
		Behaviors:          behaviors,
	}
}

func newTestLoop(t *testing.T, handler http.Handler, behaviors map[string]config.BehaviorConfig) (*Loop, *bus.MessageBus) {
	t.Helper()
	b := bus.NewMessageBus()
	var c *client.Client
	if handler != nil {
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		c = client.New(srv.URL, "bf_test")
	} else {
		c = client.New("https://bottomfeed.app", "bf_test")
	}
	return NewLoop(testConfig(behaviors), c, b, "mybot"), b
}

func TestSelectBehaviorWeighted(t *testing.T) {
	l, _ := newTestLoop(t, nil, map[string]config.BehaviorConfig{
		"browse_feed":     {Enabled: true, Weight: 10, Cooldown: 0},
		"engage_trending": {Enabled: true, Weight: 0.001, Cooldown: 0},
	})

	light := 0
	for i := 0; i < 100; i++ {
		b, ok := l.selectBehavior()
		if !ok {
			t.Fatalf("expected a selection")
		}
		if b == EngageTrending {
			light++
		}
	}
	if light > 5 {
		t.Fatalf("near-zero weight behavior selected %d/100 times", light)
	}
}

func TestSelectBehaviorRespectsCooldown(t *testing.T) {
	l, _ := newTestLoop(t, nil, map[string]config.BehaviorConfig{
		"browse_feed":     {Enabled: true, Weight: 1, Cooldown: 120},
		"engage_trending": {Enabled: true, Weight: 1, Cooldown: 300},
	})
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return base }

	// browse_feed ran 60s ago, inside its 120s cooldown.
	l.lastRun[BrowseFeed] = base.Add(-60 * time.Second)
	// engage_trending ran 301s ago, past its cooldown.
	l.lastRun[EngageTrending] = base.Add(-301 * time.Second)

	for i := 0; i < 20; i++ {
		b, ok := l.selectBehavior()
		if !ok {
			t.Fatalf("expected a candidate")
		}
		if b != EngageTrending {
			t.Fatalf("cooling-down behavior selected: %s", b)
		}
	}
}

func TestSelectBehaviorNoCandidates(t *testing.T) {
	l, _ := newTestLoop(t, nil, map[string]config.BehaviorConfig{
		"browse_feed": {Enabled: false, Weight: 1, Cooldown: 0},
	})
	if _, ok := l.selectBehavior(); ok {
		t.Fatalf("disabled behaviors must not be selected")
	}
}

func TestSelectBehaviorZeroTotalWeight(t *testing.T) {
	l, _ := newTestLoop(t, nil, map[string]config.BehaviorConfig{
		"browse_feed":     {Enabled: true, Weight: 0, Cooldown: 0},
		"engage_trending": {Enabled: true, Weight: 0, Cooldown: 0},
	})
	if _, ok := l.selectBehavior(); ok {
		t.Fatalf("zero total weight must yield no selection")
	}
}

func TestRunCycleStampsLastRunBeforeHandler(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/trending", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(400)
		w.Write([]byte(`{"success": false, "error": {"code": "BAD_REQUEST", "message": "nope"}}`))
	})
	l, _ := newTestLoop(t, mux, map[string]config.BehaviorConfig{
		"engage_trending": {Enabled: true, Weight: 1, Cooldown: 300},
	})

	l.runCycle(context.Background())
	if l.lastRun[EngageTrending].IsZero() {
		t.Fatalf("failing behavior must still consume its cooldown")
	}
	// The cooldown now excludes it.
	if _, ok := l.selectBehavior(); ok {
		t.Fatalf("behavior should be cooling down after a failed run")
	}
}

func TestBrowseFeedSurfacesTopEngagement(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": {"posts": [
			{"id": "low", "content": "meh", "author": {"username": "a"}, "like_count": 1},
			{"id": "high", "content": "hot take", "author": {"username": "b"}, "like_count": 10, "reply_count": 8},
			{"id": "mid", "content": "ok", "author": {"username": "c"}, "like_count": 3}
		]}}`))
	})
	l, b := newTestLoop(t, mux, map[string]config.BehaviorConfig{
		"browse_feed": {Enabled: true, Weight: 1, Cooldown: 0},
	})
	l.cfg.MaxActionsPerCycle = 1

	if err := l.browseFeed(context.Background()); err != nil {
		t.Fatalf("browseFeed: %v", err)
	}

	msg, ok := b.TryConsumeInbound()
	if !ok {
		t.Fatalf("expected an injected message")
	}
	if msg.Metadata["autonomy"] != "true" {
		t.Errorf("autonomy metadata missing: %v", msg.Metadata)
	}
	if msg.Metadata["post_ids"] != "high" {
		t.Errorf("expected top-engagement post, got %q", msg.Metadata["post_ids"])
	}
	if !strings.Contains(msg.Content, "@b") {
		t.Errorf("summary should name the author: %s", msg.Content)
	}
	if !l.tracker.HasSeen("high") {
		t.Errorf("surfaced post should be marked seen")
	}
	if l.tracker.HasSeen("low") {
		t.Errorf("unsurfaced post must not be marked seen")
	}

	// Second pass: "high" is now seen, next best is "mid".
	if err := l.browseFeed(context.Background()); err != nil {
		t.Fatalf("browseFeed second pass: %v", err)
	}
	msg, ok = b.TryConsumeInbound()
	if !ok {
		t.Fatalf("expected a second injection")
	}
	if msg.Metadata["post_ids"] != "mid" {
		t.Errorf("expected next-best post, got %q", msg.Metadata["post_ids"])
	}
}

func TestBrowseFeedSkipsWhenRateLimited(t *testing.T) {
	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/api/feed", func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"success": true, "data": {"posts": []}}`))
	})
	l, b := newTestLoop(t, mux, map[string]config.BehaviorConfig{
		"browse_feed": {Enabled: true, Weight: 1, Cooldown: 0},
	})

	// Exhaust the hourly like budget.
	for i := 0; i < 100; i++ {
		l.limiter.Record("like")
	}

	if err := l.browseFeed(context.Background()); err != nil {
		t.Fatalf("browseFeed: %v", err)
	}
	if hits != 0 {
		t.Errorf("rate-limited behavior must not hit the API")
	}
	if _, ok := b.TryConsumeInbound(); ok {
		t.Errorf("rate-limited behavior must not inject")
	}
}

func TestParticipateDebatesSkipsAlreadyDebated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/debates", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": {"active": {"id": "d1", "topic": "tabs vs spaces", "entry_count": 4}}}`))
	})
	l, b := newTestLoop(t, mux, map[string]config.BehaviorConfig{
		"participate_debates": {Enabled: true, Weight: 1, Cooldown: 0},
	})

	if err := l.participateDebates(context.Background()); err != nil {
		t.Fatalf("participateDebates: %v", err)
	}
	msg, ok := b.TryConsumeInbound()
	if !ok || msg.Metadata["debate_id"] != "d1" {
		t.Fatalf("expected debate injection, got %+v ok=%v", msg, ok)
	}

	l.tracker.MarkDebated("d1")
	if err := l.participateDebates(context.Background()); err != nil {
		t.Fatalf("participateDebates: %v", err)
	}
	if _, ok := b.TryConsumeInbound(); ok {
		t.Fatalf("already-entered debate must not be surfaced again")
	}
}

func TestDiscoverAgentsExcludesSelfAndFollowed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/agents", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": {"agents": [
			{"username": "mybot", "follower_count": 99},
			{"username": "friend", "follower_count": 50},
			{"username": "stranger", "bio": "new here", "follower_count": 10}
		]}}`))
	})
	l, b := newTestLoop(t, mux, map[string]config.BehaviorConfig{
		"discover_agents": {Enabled: true, Weight: 1, Cooldown: 0},
	})
	l.tracker.MarkFollowed("friend")

	if err := l.discoverAgents(context.Background()); err != nil {
		t.Fatalf("discoverAgents: %v", err)
	}
	msg, ok := b.TryConsumeInbound()
	if !ok {
		t.Fatalf("expected an injection")
	}
	if msg.Metadata["usernames"] != "stranger" {
		t.Errorf("usernames: got %q, want only the unfollowed stranger", msg.Metadata["usernames"])
	}
}

func TestBehaviorNameRoundTrip(t *testing.T) {
	for b := Behavior(0); b < behaviorCount; b++ {
		got, ok := BehaviorFromName(b.String())
		if !ok || got != b {
			t.Errorf("round trip failed for %s", b)
		}
	}
	if _, ok := BehaviorFromName("launch_rockets"); ok {
		t.Errorf("unknown name must not resolve")
	}
}
