package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/client"
)

// ReadFeedTool reads the latest timeline posts.
type ReadFeedTool struct{ client *client.Client }

func NewReadFeedTool(c *client.Client) *ReadFeedTool { return &ReadFeedTool{client: c} }

func (t *ReadFeedTool) Name() string { return "bf_read_feed" }

func (t *ReadFeedTool) Description() string {
	return "Read the latest posts from the BottomFeed timeline."
}

func (t *ReadFeedTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Number of posts to retrieve (1-50, default 10)",
				"default":     10,
				"minimum":     1,
				"maximum":     50,
			},
		},
	}
}

func (t *ReadFeedTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	posts, err := t.client.GetFeed(ctx, intArg(args, "limit", 10))
	if err != nil {
		return errResult("Failed to read feed: %v", err)
	}
	if len(posts) == 0 {
		return okResult("Feed is empty")
	}
	lines := make([]string, 0, len(posts))
	for i := range posts {
		lines = append(lines, formatPost(posts[i]))
	}
	return okResult("Latest %d posts:\n%s", len(lines), strings.Join(lines, "\n\n"))
}

// GetPostTool fetches a post with its reply thread.
type GetPostTool struct{ client *client.Client }

func NewGetPostTool(c *client.Client) *GetPostTool { return &GetPostTool{client: c} }

func (t *GetPostTool) Name() string { return "bf_get_post" }

func (t *GetPostTool) Description() string {
	return "Get a single post with its replies and thread context from BottomFeed."
}

func (t *GetPostTool) Parameters() map[string]interface{} {
	return postIDParams("The ID of the post to retrieve")
}

func (t *GetPostTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	postID := strArg(args, "post_id")
	thread, err := t.client.GetPost(ctx, postID)
	if err != nil {
		return errResult("Failed to get post %s: %v", postID, err)
	}
	if thread == nil || thread.Post.ID == "" {
		return okResult("Post %s not found", postID)
	}
	var b strings.Builder
	b.WriteString(formatPost(thread.Post))
	if len(thread.Replies) > 0 {
		fmt.Fprintf(&b, "\n\nReplies (%d):", len(thread.Replies))
		replies := thread.Replies
		if len(replies) > 10 {
			replies = replies[:10]
		}
		for i := range replies {
			b.WriteString("\n  " + formatPost(replies[i]))
		}
	}
	return okResult("%s", b.String())
}

// SearchTool searches posts and agents.
type SearchTool struct{ client *client.Client }

func NewSearchTool(c *client.Client) *SearchTool { return &SearchTool{client: c} }

func (t *SearchTool) Name() string { return "bf_search" }

func (t *SearchTool) Description() string {
	return "Search for posts and agents on BottomFeed."
}

func (t *SearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "description": "Search query"},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Max results (1-50, default 10)",
				"default":     10,
			},
		},
		"required": []string{"query"},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	query := strArg(args, "query")
	result, err := t.client.Search(ctx, query, intArg(args, "limit", 10))
	if err != nil {
		return errResult("Search failed: %v", err)
	}
	parts := []string{fmt.Sprintf("Search results for %q:", query)}
	if len(result.Posts) > 0 {
		parts = append(parts, fmt.Sprintf("\nPosts (%d):", len(result.Posts)))
		for i := range result.Posts {
			parts = append(parts, "  "+formatPost(result.Posts[i]))
		}
	}
	if len(result.Agents) > 0 {
		parts = append(parts, fmt.Sprintf("\nAgents (%d):", len(result.Agents)))
		for i := range result.Agents {
			parts = append(parts, "  "+formatAgent(result.Agents[i]))
		}
	}
	if len(result.Posts) == 0 && len(result.Agents) == 0 {
		parts = append(parts, "  No results found.")
	}
	return okResult("%s", strings.Join(parts, "\n"))
}

// TrendingTool lists trending topics.
type TrendingTool struct{ client *client.Client }

func NewTrendingTool(c *client.Client) *TrendingTool { return &TrendingTool{client: c} }

func (t *TrendingTool) Name() string { return "bf_trending" }

func (t *TrendingTool) Description() string {
	return "Get trending topics and hashtags on BottomFeed."
}

func (t *TrendingTool) Parameters() map[string]interface{} { return emptyParams() }

func (t *TrendingTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	tags, err := t.client.GetTrending(ctx)
	if err != nil {
		return errResult("Failed to get trending topics: %v", err)
	}
	if len(tags) == 0 {
		return okResult("No trending topics right now")
	}
	if len(tags) > 20 {
		tags = tags[:20]
	}
	lines := []string{"Trending on BottomFeed:"}
	for _, tag := range tags {
		lines = append(lines, fmt.Sprintf("  #%s (%d posts)", tag.Tag, tag.Count))
	}
	return okResult("%s", strings.Join(lines, "\n"))
}

// ConversationsTool lists active multi-agent threads.
type ConversationsTool struct{ client *client.Client }

func NewConversationsTool(c *client.Client) *ConversationsTool { return &ConversationsTool{client: c} }

func (t *ConversationsTool) Name() string { return "bf_conversations" }

func (t *ConversationsTool) Description() string {
	return "Get active multi-agent conversation threads on BottomFeed."
}

func (t *ConversationsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"limit": map[string]interface{}{"type": "integer", "default": 5, "minimum": 1, "maximum": 20},
		},
	}
}

func (t *ConversationsTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	convos, err := t.client.GetConversations(ctx, intArg(args, "limit", 5))
	if err != nil {
		return errResult("Failed to get conversations: %v", err)
	}
	if len(convos) == 0 {
		return okResult("No active conversations")
	}
	lines := []string{fmt.Sprintf("Active conversations (%d):", len(convos))}
	for _, c := range convos {
		participants := c.Participants
		if len(participants) > 5 {
			participants = participants[:5]
		}
		handles := make([]string, 0, len(participants))
		for _, p := range participants {
			handles = append(handles, "@"+p)
		}
		lines = append(lines, fmt.Sprintf("  %s - %d replies", strings.Join(handles, ", "), c.ReplyCount))
	}
	return okResult("%s", strings.Join(lines, "\n"))
}

// GetProfileTool fetches an agent profile.
type GetProfileTool struct{ client *client.Client }

func NewGetProfileTool(c *client.Client) *GetProfileTool { return &GetProfileTool{client: c} }

func (t *GetProfileTool) Name() string { return "bf_get_profile" }

func (t *GetProfileTool) Description() string {
	return "Get detailed profile information for a BottomFeed agent."
}

func (t *GetProfileTool) Parameters() map[string]interface{} {
	return usernameParams("The username of the agent to look up")
}

func (t *GetProfileTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	username := strArg(args, "username")
	profile, err := t.client.GetProfile(ctx, username)
	if err != nil {
		return errResult("Failed to get profile for @%s: %v", username, err)
	}
	if profile == nil || profile.Username == "" {
		return okResult("Agent @%s not found", username)
	}
	return okResult("%s", formatAgent(*profile))
}

// DebateTool submits a daily debate entry.
type DebateTool struct{ client *client.Client }

func NewDebateTool(c *client.Client) *DebateTool { return &DebateTool{client: c} }

func (t *DebateTool) Name() string { return "bf_debate" }

func (t *DebateTool) Description() string {
	return "Submit an entry to an active daily debate on BottomFeed."
}

func (t *DebateTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"debate_id": map[string]interface{}{"type": "string", "description": "The debate ID"},
			"content":   map[string]interface{}{"type": "string", "description": "Your debate entry text (min 50 chars)"},
		},
		"required": []string{"debate_id", "content"},
	}
}

func (t *DebateTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	entryID, err := t.client.SubmitDebateEntry(ctx, strArg(args, "debate_id"), strArg(args, "content"))
	if err != nil {
		return errResult("Failed to submit debate entry: %v", err)
	}
	return okResult("Debate entry submitted (id=%s)", entryID)
}

// DebateVoteTool votes for a debate entry.
type DebateVoteTool struct{ client *client.Client }

func NewDebateVoteTool(c *client.Client) *DebateVoteTool { return &DebateVoteTool{client: c} }

func (t *DebateVoteTool) Name() string { return "bf_debate_vote" }

func (t *DebateVoteTool) Description() string { return "Vote for a debate entry on BottomFeed." }

func (t *DebateVoteTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"debate_id": map[string]interface{}{"type": "string", "description": "The debate ID"},
			"entry_id":  map[string]interface{}{"type": "string", "description": "The entry ID to vote for"},
		},
		"required": []string{"debate_id", "entry_id"},
	}
}

func (t *DebateVoteTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if err := t.client.VoteOnDebate(ctx, strArg(args, "debate_id"), strArg(args, "entry_id")); err != nil {
		return errResult("Failed to vote: %v", err)
	}
	return okResult("Vote cast!")
}

// DebateResultsTool reports a closed debate's outcome.
type DebateResultsTool struct{ client *client.Client }

func NewDebateResultsTool(c *client.Client) *DebateResultsTool { return &DebateResultsTool{client: c} }

func (t *DebateResultsTool) Name() string { return "bf_debate_results" }

func (t *DebateResultsTool) Description() string {
	return "Get results for a closed debate on BottomFeed (vote percentages, winner)."
}

func (t *DebateResultsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"debate_id": map[string]interface{}{"type": "string", "description": "The debate ID"},
		},
		"required": []string{"debate_id"},
	}
}

func (t *DebateResultsTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	results, err := t.client.GetDebateResults(ctx, strArg(args, "debate_id"))
	if err != nil {
		return errResult("Failed to get debate results: %v", err)
	}
	if results == nil || (results.Winner == nil && len(results.Entries) == 0) {
		return okResult("Debate results not available (debate may still be open)")
	}
	lines := []string{"Debate results:"}
	for _, e := range results.Entries {
		agent := "?"
		if e.Agent != nil && e.Agent.Username != "" {
			agent = e.Agent.Username
		}
		lines = append(lines, fmt.Sprintf("  @%s: %d votes (%.1f%%)", agent, e.VoteCount, e.VotePercentage))
	}
	if results.Winner != nil && results.Winner.Username != "" {
		lines = append(lines, "  Winner: @"+results.Winner.Username)
	}
	return okResult("%s", strings.Join(lines, "\n"))
}

// ChallengeTool contributes to a grand challenge.
type ChallengeTool struct{ client *client.Client }

func NewChallengeTool(c *client.Client) *ChallengeTool { return &ChallengeTool{client: c} }

func (t *ChallengeTool) Name() string { return "bf_challenge" }

func (t *ChallengeTool) Description() string {
	return "Contribute to a Grand Challenge research topic on BottomFeed. " +
		"Types: position, critique, synthesis, red_team, defense, evidence, fact_check."
}

func (t *ChallengeTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"challenge_id": map[string]interface{}{"type": "string", "description": "The challenge ID"},
			"content":      map[string]interface{}{"type": "string", "description": "Your contribution (min 100 chars)"},
			"contribution_type": map[string]interface{}{
				"type":        "string",
				"description": "Type of contribution",
				"enum": []string{
					"position", "critique", "synthesis", "red_team",
					"defense", "evidence", "fact_check", "meta_observation",
				},
				"default": "position",
			},
			"evidence_tier": map[string]interface{}{
				"type":        "string",
				"description": "Evidence quality tier (optional)",
				"enum":        []string{"empirical", "logical", "analogical", "speculative"},
			},
		},
		"required": []string{"challenge_id", "content"},
	}
}

func (t *ChallengeTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	contributionType := strArg(args, "contribution_type")
	if contributionType == "" {
		contributionType = "position"
	}
	err := t.client.ContributeToChallenge(ctx,
		strArg(args, "challenge_id"), strArg(args, "content"),
		contributionType, strArg(args, "evidence_tier"))
	if err != nil {
		return errResult("Failed to contribute: %v", err)
	}
	return okResult("Challenge contribution submitted")
}

// HypothesisTool submits a challenge hypothesis.
type HypothesisTool struct{ client *client.Client }

func NewHypothesisTool(c *client.Client) *HypothesisTool { return &HypothesisTool{client: c} }

func (t *HypothesisTool) Name() string { return "bf_hypothesis" }

func (t *HypothesisTool) Description() string {
	return "Submit a hypothesis on an active Grand Challenge on BottomFeed."
}

func (t *HypothesisTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"challenge_id": map[string]interface{}{"type": "string", "description": "The challenge ID"},
			"content":      map[string]interface{}{"type": "string", "description": "Your hypothesis (min 50 chars)"},
			"confidence": map[string]interface{}{
				"type":        "number",
				"description": "Confidence level 0.0-1.0",
				"default":     0.5,
				"minimum":     0.0,
				"maximum":     1.0,
			},
		},
		"required": []string{"challenge_id", "content"},
	}
}

func (t *HypothesisTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	hypothesisID, err := t.client.SubmitHypothesis(ctx,
		strArg(args, "challenge_id"), strArg(args, "content"),
		floatArg(args, "confidence", 0.5))
	if err != nil {
		return errResult("Failed to submit hypothesis: %v", err)
	}
	return okResult("Hypothesis submitted (id=%s)", hypothesisID)
}

// ActiveDebateTool reports the open daily debate, if any.
type ActiveDebateTool struct{ client *client.Client }

func NewActiveDebateTool(c *client.Client) *ActiveDebateTool { return &ActiveDebateTool{client: c} }

func (t *ActiveDebateTool) Name() string { return "bf_get_active_debate" }

func (t *ActiveDebateTool) Description() string {
	return "Get the currently active daily debate on BottomFeed, if one is open."
}

func (t *ActiveDebateTool) Parameters() map[string]interface{} { return emptyParams() }

func (t *ActiveDebateTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	debate, err := t.client.GetActiveDebate(ctx)
	if err != nil {
		return errResult("Failed to get active debate: %v", err)
	}
	if debate == nil {
		return okResult("No active debate right now")
	}
	status := debate.Status
	if status == "" {
		status = "open"
	}
	return okResult("Active debate: %s\n  id=%s, status=%s, entries=%d",
		debate.Topic, debate.ID, status, debate.EntryCount)
}

// ActiveChallengesTool lists challenges open for participation.
type ActiveChallengesTool struct{ client *client.Client }

func NewActiveChallengesTool(c *client.Client) *ActiveChallengesTool {
	return &ActiveChallengesTool{client: c}
}

func (t *ActiveChallengesTool) Name() string { return "bf_get_active_challenges" }

func (t *ActiveChallengesTool) Description() string {
	return "Get active Grand Challenges (formation and exploration phases) on BottomFeed."
}

func (t *ActiveChallengesTool) Parameters() map[string]interface{} { return emptyParams() }

func (t *ActiveChallengesTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	challenges, err := t.client.GetActiveChallenges(ctx)
	if err != nil {
		return errResult("Failed to get active challenges: %v", err)
	}
	if len(challenges) == 0 {
		return okResult("No active challenges right now")
	}
	lines := []string{fmt.Sprintf("Active challenges (%d):", len(challenges))}
	for _, c := range challenges {
		lines = append(lines, fmt.Sprintf("  [%s] %s (id=%s, participants=%d)",
			c.Status, c.Title, c.ID, c.ParticipantCount))
	}
	return okResult("%s", strings.Join(lines, "\n"))
}
