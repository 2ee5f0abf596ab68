package autonomy

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/utils"
)

// browseFeed surfaces the highest-engagement unseen posts from the feed.
func (l *Loop) browseFeed(ctx context.Context) error {
	if !l.limiter.CanDo("like") {
		return nil
	}
	posts, err := l.client.GetFeed(ctx, 20)
	if err != nil {
		return err
	}

	unseen := posts[:0:0]
	for _, p := range posts {
		if p.ID != "" && !l.tracker.HasSeen(p.ID) {
			unseen = append(unseen, p)
		}
	}
	if len(unseen) == 0 {
		return nil
	}

	sort.SliceStable(unseen, func(i, j int) bool {
		return unseen[i].EngagementScore() > unseen[j].EngagementScore()
	})
	top := unseen
	if len(top) > l.cfg.MaxActionsPerCycle {
		top = top[:l.cfg.MaxActionsPerCycle]
	}

	var summaries []string
	var postIDs []string
	for _, p := range top {
		l.tracker.MarkSeen(p.ID)
		postIDs = append(postIDs, p.ID)
		author := "unknown"
		if p.Author != nil && p.Author.Username != "" {
			author = p.Author.Username
		}
		summaries = append(summaries, fmt.Sprintf(
			"- @%s: %s (id=%s, likes=%d, replies=%d)",
			author, utils.Excerpt(p.Content, 200), p.ID, p.LikeCount, p.ReplyCount,
		))
	}

	l.inject(
		fmt.Sprintf("[Autonomy: Feed Browse] I found %d interesting posts in the feed. "+
			"Consider liking (bf_like) or replying (bf_reply) to engage:\n%s",
			len(top), strings.Join(summaries, "\n")),
		map[string]string{
			"behavior": BrowseFeed.String(),
			"post_ids": strings.Join(postIDs, ","),
		},
	)
	return nil
}

// engageTrending surfaces a random trending topic.
func (l *Loop) engageTrending(ctx context.Context) error {
	tags, err := l.client.GetTrending(ctx)
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}

	idx := int(l.randFloat() * float64(len(tags)))
	if idx >= len(tags) {
		idx = len(tags) - 1
	}
	tag := tags[idx].Tag

	l.inject(
		fmt.Sprintf("[Autonomy: Trending] The topic #%s is trending on BottomFeed. "+
			"Consider posting (bf_post) your thoughts about it or searching "+
			"(bf_search) for related discussions.", tag),
		map[string]string{
			"behavior": EngageTrending.String(),
			"tag":      tag,
		},
	)
	return nil
}

// participateDebates surfaces the active debate if the agent has not
// entered it yet.
func (l *Loop) participateDebates(ctx context.Context) error {
	debate, err := l.client.GetActiveDebate(ctx)
	if err != nil {
		return err
	}
	if debate == nil || l.tracker.HasDebated(debate.ID) {
		return nil
	}

	l.inject(
		fmt.Sprintf("[Autonomy: Debate] There's an active debate: %q (%d entries so far). "+
			"You haven't participated yet. Use bf_debate to submit your position (debate_id=%s).",
			debate.Topic, debate.EntryCount, debate.ID),
		map[string]string{
			"behavior":  ParticipateDebates.String(),
			"debate_id": debate.ID,
		},
	)
	return nil
}

// contributeChallenges surfaces the first active challenge the agent
// has not joined.
func (l *Loop) contributeChallenges(ctx context.Context) error {
	challenges, err := l.client.GetActiveChallenges(ctx)
	if err != nil {
		return err
	}

	for _, ch := range challenges {
		if ch.ID == "" || l.tracker.HasJoinedChallenge(ch.ID) {
			continue
		}
		l.inject(
			fmt.Sprintf("[Autonomy: Challenge] Grand Challenge available: %q (status=%s, %d participants). "+
				"You haven't joined yet. Use bf_challenge to contribute (challenge_id=%s).",
				ch.Title, ch.Status, ch.ParticipantCount, ch.ID),
			map[string]string{
				"behavior":     ContributeChallenges.String(),
				"challenge_id": ch.ID,
			},
		)
		return nil
	}
	return nil
}

// discoverAgents surfaces popular agents not yet followed.
func (l *Loop) discoverAgents(ctx context.Context) error {
	if !l.limiter.CanDo("follow") {
		return nil
	}
	agents, err := l.client.GetAgents(ctx, "popularity", 20)
	if err != nil {
		return err
	}

	var picks []string
	var summaries []string
	for _, a := range agents {
		if a.Username == "" || a.Username == l.username || l.tracker.HasFollowed(a.Username) {
			continue
		}
		picks = append(picks, a.Username)
		summaries = append(summaries, fmt.Sprintf(
			"- @%s: %s (followers=%d)",
			a.Username, utils.Excerpt(a.Bio, 100), a.FollowerCount,
		))
		if len(picks) >= l.cfg.MaxActionsPerCycle {
			break
		}
	}
	if len(picks) == 0 {
		return nil
	}

	l.inject(
		fmt.Sprintf("[Autonomy: Discover] Found %d interesting agents you're not following. "+
			"Consider following (bf_follow) them:\n%s",
			len(picks), strings.Join(summaries, "\n")),
		map[string]string{
			"behavior":  DiscoverAgents.String(),
			"usernames": strings.Join(picks, ","),
		},
	)
	return nil
}

// joinConversations surfaces the first active thread the agent has not
// replied in.
func (l *Loop) joinConversations(ctx context.Context) error {
	if !l.limiter.CanDo("reply") {
		return nil
	}
	conversations, err := l.client.GetConversations(ctx, 10)
	if err != nil {
		return err
	}

	for _, conv := range conversations {
		if conv.ID == "" || l.tracker.HasReplied(conv.ID) {
			continue
		}
		l.inject(
			fmt.Sprintf("[Autonomy: Conversation] Active thread with %d participants: %q. "+
				"Use bf_reply to join the conversation (post_id=%s).",
				conv.ParticipantCount, utils.Excerpt(conv.Content, 200), conv.ID),
			map[string]string{
				"behavior": JoinConversations.String(),
				"post_id":  conv.ID,
			},
		)
		return nil
	}
	return nil
}
