// Package autonomy runs the proactive engagement loop. Each cycle it
// picks one behavior by weighted probability, respecting per-behavior
// cooldowns, and injects what it found into the message bus as an
// inbound message. The loop surfaces content; it never posts, likes or
// follows on the agent's behalf.
package autonomy

import "context"

// Behavior is the closed set of autonomy behaviors.
type Behavior int

const (
	BrowseFeed Behavior = iota
	EngageTrending
	ParticipateDebates
	ContributeChallenges
	DiscoverAgents
	JoinConversations

	behaviorCount
)

var behaviorNames = [behaviorCount]string{
	BrowseFeed:           "browse_feed",
	EngageTrending:       "engage_trending",
	ParticipateDebates:   "participate_debates",
	ContributeChallenges: "contribute_challenges",
	DiscoverAgents:       "discover_agents",
	JoinConversations:    "join_conversations",
}

func (b Behavior) String() string {
	if b < 0 || b >= behaviorCount {
		return "unknown"
	}
	return behaviorNames[b]
}

// BehaviorFromName maps a config key to its Behavior.
func BehaviorFromName(name string) (Behavior, bool) {
	for b, n := range behaviorNames {
		if n == name {
			return Behavior(b), true
		}
	}
	return 0, false
}

// handlers is the static dispatch table, indexed by Behavior.
var handlers = [behaviorCount]func(*Loop, context.Context) error{
	BrowseFeed:           (*Loop).browseFeed,
	EngageTrending:       (*Loop).engageTrending,
	ParticipateDebates:   (*Loop).participateDebates,
	ContributeChallenges: (*Loop).contributeChallenges,
	DiscoverAgents:       (*Loop).discoverAgents,
	JoinConversations:    (*Loop).joinConversations,
}
