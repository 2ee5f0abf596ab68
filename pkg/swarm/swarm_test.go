package swarm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/config"
)

func testSwarmConfig(apiURL string, usernames ...string) config.SwarmConfig {
	agents := make([]config.ChannelConfig, 0, len(usernames))
	for _, u := range usernames {
		agents = append(agents, config.ChannelConfig{
			APIURL:        apiURL,
			APIKey:        "bf_" + u,
			AgentUsername: u,
			PollInterval:  30,
		})
	}
	return config.SwarmConfig{
		Enabled:                  true,
		Agents:                   agents,
		CoordinationInterval:     60,
		MaxSharedHistory:         1000,
		AutoAssignChallengeRoles: true,
		AutoAssignDebates:        true,
	}
}

func challengeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/challenges", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") == "formation" {
			w.Write([]byte(`{"success": true, "data": {"challenges": [{"id": "c1", "title": "Prove it", "status": "formation"}]}}`))
			return
		}
		w.Write([]byte(`{"success": true, "data": {"challenges": []}}`))
	})
	mux.HandleFunc("/api/debates", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "data": {"active": {"id": "d1", "topic": "rewrite it in rust"}}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestChallengeRoleAssignmentIdempotent(t *testing.T) {
	srv := challengeServer(t)
	coord := NewCoordinator(testSwarmConfig(srv.URL, "alpha", "beta", "gamma"))

	if err := coord.coordinateChallenges(context.Background()); err != nil {
		t.Fatalf("coordinateChallenges: %v", err)
	}
	// A second pass must not reassign or renotify anyone.
	if err := coord.coordinateChallenges(context.Background()); err != nil {
		t.Fatalf("coordinateChallenges second pass: %v", err)
	}

	roles := coord.State.ChallengeRoles("c1")
	if len(roles) != 3 {
		t.Fatalf("roles: got %d, want 3 (%v)", len(roles), roles)
	}
	for _, username := range coord.Usernames() {
		handle := coord.Agent(username)
		msg, ok := handle.Bus.TryConsumeInbound()
		if !ok {
			t.Fatalf("agent %s received no assignment message", username)
		}
		if msg.Metadata["swarm"] != "true" || !strings.Contains(msg.Content, string(roles[username])) {
			t.Errorf("agent %s message: %q", username, msg.Content)
		}
		if _, extra := handle.Bus.TryConsumeInbound(); extra {
			t.Errorf("agent %s notified more than once", username)
		}
	}
}

func TestRoundRobinCoversAllRoles(t *testing.T) {
	srv := challengeServer(t)
	coord := NewCoordinator(testSwarmConfig(srv.URL, "a1", "a2", "a3", "a4", "a5", "a6"))

	if err := coord.coordinateChallenges(context.Background()); err != nil {
		t.Fatalf("coordinateChallenges: %v", err)
	}

	roles := coord.State.ChallengeRoles("c1")
	used := make(map[ChallengeRole]int)
	for _, role := range roles {
		used[role]++
	}
	if len(used) != len(roleCycle) {
		t.Fatalf("six agents should cover all %d roles, got %v", len(roleCycle), used)
	}
	for role, n := range used {
		if n != 1 {
			t.Errorf("role %s assigned %d times", role, n)
		}
	}
}

func TestDebateNotifiedOncePerAgent(t *testing.T) {
	srv := challengeServer(t)
	coord := NewCoordinator(testSwarmConfig(srv.URL, "alpha", "beta"))

	for i := 0; i < 3; i++ {
		if err := coord.coordinateDebates(context.Background()); err != nil {
			t.Fatalf("coordinateDebates: %v", err)
		}
	}

	for _, username := range coord.Usernames() {
		handle := coord.Agent(username)
		msg, ok := handle.Bus.TryConsumeInbound()
		if !ok {
			t.Fatalf("agent %s received no debate notice", username)
		}
		if !strings.Contains(msg.Content, "rewrite it in rust") {
			t.Errorf("debate topic missing: %q", msg.Content)
		}
		if _, extra := handle.Bus.TryConsumeInbound(); extra {
			t.Errorf("agent %s notified about the same debate twice", username)
		}
	}
}

func TestBroadcastReachesEveryAgent(t *testing.T) {
	coord := NewCoordinator(testSwarmConfig("https://bottomfeed.app", "alpha", "beta"))
	coord.Broadcast("regroup")
	for _, username := range coord.Usernames() {
		msg, ok := coord.Agent(username).Bus.TryConsumeInbound()
		if !ok || msg.Content != "regroup" {
			t.Fatalf("agent %s: got %+v ok=%v", username, msg, ok)
		}
		if msg.Metadata["coordination"] != "true" {
			t.Errorf("coordination metadata missing")
		}
	}
}

func TestSharedStateSeenAndActions(t *testing.T) {
	s := NewSharedState(2)

	if s.HasAnyAgentSeen("p1") {
		t.Fatalf("fresh state should have no seen posts")
	}
	s.MarkSeen("p1", "alpha")
	if !s.HasAnyAgentSeen("p1") {
		t.Fatalf("expected p1 seen")
	}

	s.RecordAction("alpha", "like", "p1")
	s.RecordAction("alpha", "like", "p2")
	s.RecordAction("alpha", "like", "p3") // evicts the p1 record
	if s.HasAnyAgentDone("like", "p1") {
		t.Errorf("oldest action should be evicted at the history bound")
	}
	if !s.HasAnyAgentDone("like", "p3") {
		t.Errorf("recent action should be retained")
	}
	if s.HasAnyAgentDone("repost", "p3") {
		t.Errorf("action type must match")
	}
}

func TestSharedStatePruneSeen(t *testing.T) {
	s := NewSharedState(100)
	s.MarkSeen("p1", "a")
	s.MarkSeen("p2", "a")
	s.MarkSeen("p3", "a")
	s.PruneSeen(1)

	remaining := 0
	for _, id := range []string{"p1", "p2", "p3"} {
		if s.HasAnyAgentSeen(id) {
			remaining++
		}
	}
	if remaining != 1 {
		t.Fatalf("after prune: %d entries remain, want 1", remaining)
	}
}
