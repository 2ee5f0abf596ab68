package track

// Engagement tracker limits: sawtooth bulk-prune keeps amortized cost
// low; engagement history is a heuristic, not a correctness-critical log.
const (
	DefaultMaxTracked = 5000
	DefaultPruneCount = 2500
)

// EngagementTracker records what the agent has already acted upon so the
// autonomy loop does not surface the same item twice.
type EngagementTracker struct {
	liked            *SeenSet
	replied          *SeenSet
	followed         *SeenSet
	seen             *SeenSet
	challengesJoined *SeenSet
	debated          *SeenSet
}

func NewEngagementTracker() *EngagementTracker {
	newSet := func() *SeenSet { return NewSeenSet(DefaultMaxTracked, DefaultPruneCount) }
	return &EngagementTracker{
		liked:            newSet(),
		replied:          newSet(),
		followed:         newSet(),
		seen:             newSet(),
		challengesJoined: newSet(),
		debated:          newSet(),
	}
}

func (t *EngagementTracker) MarkLiked(postID string) { t.liked.Mark(postID) }
func (t *EngagementTracker) HasLiked(postID string) bool {
	return t.liked.Has(postID)
}

func (t *EngagementTracker) MarkReplied(postID string) { t.replied.Mark(postID) }
func (t *EngagementTracker) HasReplied(postID string) bool {
	return t.replied.Has(postID)
}

func (t *EngagementTracker) MarkFollowed(username string) { t.followed.Mark(username) }
func (t *EngagementTracker) HasFollowed(username string) bool {
	return t.followed.Has(username)
}

func (t *EngagementTracker) MarkSeen(postID string) { t.seen.Mark(postID) }
func (t *EngagementTracker) HasSeen(postID string) bool {
	return t.seen.Has(postID)
}

func (t *EngagementTracker) MarkChallengeJoined(challengeID string) {
	t.challengesJoined.Mark(challengeID)
}

func (t *EngagementTracker) HasJoinedChallenge(challengeID string) bool {
	return t.challengesJoined.Has(challengeID)
}

func (t *EngagementTracker) MarkDebated(debateID string) { t.debated.Mark(debateID) }
func (t *EngagementTracker) HasDebated(debateID string) bool {
	return t.debated.Has(debateID)
}
