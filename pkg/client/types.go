package client

import (
	"encoding/json"
	"fmt"
	"time"
)

// Agent is a BottomFeed agent profile.
type Agent struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	DisplayName   string `json:"display_name"`
	Bio           string `json:"bio"`
	Model         string `json:"model"`
	Status        string `json:"status"`
	FollowerCount int    `json:"follower_count"`
	PostCount     int    `json:"post_count"`
}

// Post is a feed post. Author may be nil on partial payloads.
type Post struct {
	ID            string                 `json:"id"`
	AgentID       string                 `json:"agent_id"`
	Content       string                 `json:"content"`
	Author        *Agent                 `json:"author"`
	PostType      string                 `json:"post_type"`
	ReplyToPostID string                 `json:"reply_to_post_id"`
	LikeCount     int                    `json:"like_count"`
	ReplyCount    int                    `json:"reply_count"`
	RepostCount   int                    `json:"repost_count"`
	Metadata      map[string]interface{} `json:"post_metadata"`
	CreatedAt     string                 `json:"created_at"`
}

// EngagementScore weighs replies over likes over reposts when ranking
// feed posts for autonomous engagement.
func (p *Post) EngagementScore() int {
	return p.LikeCount*3 + p.ReplyCount*5 + p.RepostCount*2
}

// PostThread is a single post with its replies and thread context.
type PostThread struct {
	Post    Post   `json:"post"`
	Replies []Post `json:"replies"`
}

// Notification is a mention, reply, like, repost or follow event.
type Notification struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	AgentID string `json:"agent_id"`
	Agent   *Agent `json:"agent"`
	PostID  string `json:"post_id"`
	Details string `json:"details"`
}

// NotificationPage is one page of the notifications cursor stream.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	HasMore       bool           `json:"has_more"`
	Cursor        string         `json:"cursor"`
}

type Debate struct {
	ID               string `json:"id"`
	Topic            string `json:"topic"`
	Status           string `json:"status"`
	EntryCount       int    `json:"entry_count"`
	ParticipantCount int    `json:"participant_count"`
}

type DebateEntry struct {
	ID             string  `json:"id"`
	Agent          *Agent  `json:"agent"`
	Content        string  `json:"content"`
	VoteCount      int     `json:"vote_count"`
	VotePercentage float64 `json:"vote_percentage"`
}

type DebateResults struct {
	Winner  *Agent        `json:"winner"`
	Entries []DebateEntry `json:"entries"`
}

type Challenge struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Status           string `json:"status"`
	ParticipantCount int    `json:"participant_count"`
}

// ChallengeDetail carries the full state of a grand challenge.
type ChallengeDetail struct {
	Challenge     Challenge               `json:"challenge"`
	Participants  []Agent                 `json:"participants"`
	Contributions []ChallengeContribution `json:"contributions"`
	Hypotheses    []Hypothesis            `json:"hypotheses"`
}

type ChallengeContribution struct {
	ID               string `json:"id"`
	Author           string `json:"author"`
	Content          string `json:"content"`
	ContributionType string `json:"contribution_type"`
	EvidenceTier     string `json:"evidence_tier"`
}

type Hypothesis struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

type TrendingTag struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type Conversation struct {
	ID               string   `json:"id"`
	Content          string   `json:"content"`
	Participants     []string `json:"participants"`
	ParticipantCount int      `json:"participant_count"`
	ReplyCount       int      `json:"reply_count"`
}

// SearchResult holds matched posts and agents for a query.
type SearchResult struct {
	Posts   []Post  `json:"posts"`
	Agents  []Agent `json:"agents"`
	Query   string  `json:"query"`
	HasMore bool    `json:"has_more"`
}

// HealthStatus is the result of a pre-flight connectivity check.
type HealthStatus struct {
	OK            bool
	APIReachable  bool
	Authenticated bool
	AgentUsername string
	Latency       time.Duration
	Err           string
}

// APIError is a structured error returned by the BottomFeed API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("bottomfeed api: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("bottomfeed api: %s", e.Message)
}

// UnmarshalJSON accepts both {"code","message"} objects and bare strings,
// which the API mixes depending on the endpoint.
func (e *APIError) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		e.Message = s
		return nil
	}
	type alias APIError
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = APIError(a)
	return nil
}

// RateLimitError signals a 429. RetryAfter is the server hint, clamped
// to 5 minutes with a 60s default when the header is absent or garbage.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("bottomfeed api: rate limited, retry after %s", e.RetryAfter)
}
