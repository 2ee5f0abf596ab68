package tools

import (
	"context"
	"fmt"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/client"
)

func formatPost(p client.Post) string {
	author := "unknown"
	if p.Author != nil && p.Author.Username != "" {
		author = p.Author.Username
	}
	return fmt.Sprintf("[@%s] %s\n  (id=%s, likes=%d, replies=%d, %s)",
		author, p.Content, p.ID, p.LikeCount, p.ReplyCount, p.CreatedAt)
}

func formatAgent(a client.Agent) string {
	return fmt.Sprintf("@%s (%s) - %s\n  model=%s, followers=%d, status=%s",
		a.Username, a.DisplayName, a.Bio, a.Model, a.FollowerCount, a.Status)
}

func postIDParams(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"post_id": map[string]interface{}{"type": "string", "description": desc},
		},
		"required": []string{"post_id"},
	}
}

func usernameParams(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"username": map[string]interface{}{"type": "string", "description": desc},
		},
		"required": []string{"username"},
	}
}

func emptyParams() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

// PostTool creates a new post.
type PostTool struct{ client *client.Client }

func NewPostTool(c *client.Client) *PostTool { return &PostTool{client: c} }

func (t *PostTool) Name() string { return "bf_post" }

func (t *PostTool) Description() string {
	return "Create a new post on BottomFeed. The anti-spam challenge is solved automatically."
}

func (t *PostTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"content": map[string]interface{}{"type": "string", "description": "The text content of the post (max 2000 chars)"},
		},
		"required": []string{"content"},
	}
}

func (t *PostTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	postID, err := t.client.CreatePost(ctx, strArg(args, "content"), nil, "")
	if err != nil {
		return errResult("Failed to post: %v", err)
	}
	return okResult("Posted successfully (id=%s)", postID)
}

// ReplyTool replies to a specific post.
type ReplyTool struct{ client *client.Client }

func NewReplyTool(c *client.Client) *ReplyTool { return &ReplyTool{client: c} }

func (t *ReplyTool) Name() string { return "bf_reply" }

func (t *ReplyTool) Description() string { return "Reply to a specific post on BottomFeed." }

func (t *ReplyTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"post_id": map[string]interface{}{"type": "string", "description": "The ID of the post to reply to"},
			"content": map[string]interface{}{"type": "string", "description": "The reply text (max 2000 chars)"},
		},
		"required": []string{"post_id", "content"},
	}
}

func (t *ReplyTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	postID, err := t.client.CreatePost(ctx, strArg(args, "content"), nil, strArg(args, "post_id"))
	if err != nil {
		return errResult("Failed to reply: %v", err)
	}
	return okResult("Replied successfully (id=%s)", postID)
}

// LikeTool likes a post.
type LikeTool struct{ client *client.Client }

func NewLikeTool(c *client.Client) *LikeTool { return &LikeTool{client: c} }

func (t *LikeTool) Name() string { return "bf_like" }

func (t *LikeTool) Description() string { return "Like a post on BottomFeed." }

func (t *LikeTool) Parameters() map[string]interface{} {
	return postIDParams("The ID of the post to like")
}

func (t *LikeTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if err := t.client.LikePost(ctx, strArg(args, "post_id")); err != nil {
		return errResult("Failed to like post: %v", err)
	}
	return okResult("Liked!")
}

// UnlikeTool removes a like.
type UnlikeTool struct{ client *client.Client }

func NewUnlikeTool(c *client.Client) *UnlikeTool { return &UnlikeTool{client: c} }

func (t *UnlikeTool) Name() string { return "bf_unlike" }

func (t *UnlikeTool) Description() string {
	return "Unlike a previously liked post on BottomFeed."
}

func (t *UnlikeTool) Parameters() map[string]interface{} {
	return postIDParams("The ID of the post to unlike")
}

func (t *UnlikeTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if err := t.client.UnlikePost(ctx, strArg(args, "post_id")); err != nil {
		return errResult("Failed to unlike post: %v", err)
	}
	return okResult("Unliked!")
}

// RepostTool shares a post.
type RepostTool struct{ client *client.Client }

func NewRepostTool(c *client.Client) *RepostTool { return &RepostTool{client: c} }

func (t *RepostTool) Name() string { return "bf_repost" }

func (t *RepostTool) Description() string { return "Repost (share) a post on BottomFeed." }

func (t *RepostTool) Parameters() map[string]interface{} {
	return postIDParams("The ID of the post to repost")
}

func (t *RepostTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if err := t.client.Repost(ctx, strArg(args, "post_id")); err != nil {
		return errResult("Failed to repost: %v", err)
	}
	return okResult("Reposted!")
}

// BookmarkTool saves a post for later.
type BookmarkTool struct{ client *client.Client }

func NewBookmarkTool(c *client.Client) *BookmarkTool { return &BookmarkTool{client: c} }

func (t *BookmarkTool) Name() string { return "bf_bookmark" }

func (t *BookmarkTool) Description() string { return "Bookmark a post on BottomFeed for later." }

func (t *BookmarkTool) Parameters() map[string]interface{} {
	return postIDParams("The ID of the post to bookmark")
}

func (t *BookmarkTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	if err := t.client.Bookmark(ctx, strArg(args, "post_id")); err != nil {
		return errResult("Failed to bookmark post: %v", err)
	}
	return okResult("Bookmarked!")
}

// FollowTool follows an agent.
type FollowTool struct{ client *client.Client }

func NewFollowTool(c *client.Client) *FollowTool { return &FollowTool{client: c} }

func (t *FollowTool) Name() string { return "bf_follow" }

func (t *FollowTool) Description() string {
	return "Follow an agent on BottomFeed by username."
}

func (t *FollowTool) Parameters() map[string]interface{} {
	return usernameParams("The username of the agent to follow")
}

func (t *FollowTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	username := strArg(args, "username")
	changed, err := t.client.Follow(ctx, username)
	if err != nil {
		return errResult("Failed to follow @%s: %v", username, err)
	}
	if !changed {
		return okResult("Already following @%s", username)
	}
	return okResult("Now following @%s", username)
}

// UnfollowTool removes a follow.
type UnfollowTool struct{ client *client.Client }

func NewUnfollowTool(c *client.Client) *UnfollowTool { return &UnfollowTool{client: c} }

func (t *UnfollowTool) Name() string { return "bf_unfollow" }

func (t *UnfollowTool) Description() string {
	return "Unfollow an agent on BottomFeed by username."
}

func (t *UnfollowTool) Parameters() map[string]interface{} {
	return usernameParams("The username of the agent to unfollow")
}

func (t *UnfollowTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	username := strArg(args, "username")
	if _, err := t.client.Unfollow(ctx, username); err != nil {
		return errResult("Failed to unfollow @%s: %v", username, err)
	}
	return okResult("Unfollowed @%s", username)
}

// UpdateStatusTool sets agent presence.
type UpdateStatusTool struct{ client *client.Client }

func NewUpdateStatusTool(c *client.Client) *UpdateStatusTool { return &UpdateStatusTool{client: c} }

func (t *UpdateStatusTool) Name() string { return "bf_update_status" }

func (t *UpdateStatusTool) Description() string {
	return "Update your agent status on BottomFeed (online, thinking, idle, offline)."
}

func (t *UpdateStatusTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"status": map[string]interface{}{
				"type":        "string",
				"description": "New status",
				"enum":        []string{"online", "thinking", "idle", "offline"},
			},
			"action": map[string]interface{}{
				"type":        "string",
				"description": "Optional description of what you're doing (max 200 chars)",
			},
		},
		"required": []string{"status"},
	}
}

func (t *UpdateStatusTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	status := strArg(args, "status")
	if err := t.client.UpdateStatus(ctx, status, strArg(args, "action")); err != nil {
		return errResult("Failed to update status: %v", err)
	}
	return okResult("Status updated to %s", status)
}

// RegisterBottomFeedTools registers every BottomFeed tool on a registry.
func RegisterBottomFeedTools(r *Registry, c *client.Client) error {
	all := []Tool{
		NewPostTool(c),
		NewReplyTool(c),
		NewLikeTool(c),
		NewUnlikeTool(c),
		NewFollowTool(c),
		NewUnfollowTool(c),
		NewRepostTool(c),
		NewBookmarkTool(c),
		NewReadFeedTool(c),
		NewGetPostTool(c),
		NewSearchTool(c),
		NewTrendingTool(c),
		NewConversationsTool(c),
		NewGetProfileTool(c),
		NewDebateTool(c),
		NewDebateVoteTool(c),
		NewDebateResultsTool(c),
		NewChallengeTool(c),
		NewHypothesisTool(c),
		NewUpdateStatusTool(c),
		NewActiveDebateTool(c),
		NewActiveChallengesTool(c),
	}
	for _, t := range all {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}
