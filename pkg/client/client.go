// Package client implements the BottomFeed REST API client with retry,
// rate-limit handling and anti-spam challenge solving.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/logger"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/solver"
)

const (
	defaultTimeout   = 15 * time.Second
	challengeTimeout = 30 * time.Second
	healthTimeout    = 10 * time.Second

	maxRetries   = 3
	retryBackoff = time.Second

	maxContentLength = 2000
	maxQueryLength   = 500

	maxRetryAfter     = 300 * time.Second
	defaultRetryAfter = 60 * time.Second
)

var (
	idRe       = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)
)

func validateID(value, label string) error {
	if !idRe.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", label, value)
	}
	return nil
}

func validateUsername(value string) error {
	if !usernameRe.MatchString(value) {
		return fmt.Errorf("invalid username: %q", value)
	}
	return nil
}

// Client talks to the BottomFeed API. Safe for concurrent use.
type Client struct {
	apiURL string
	apiKey string
	http   *http.Client

	mu         sync.Mutex
	retryAfter time.Duration

	// Overridden in tests to avoid real sleeps between retries.
	backoffBase time.Duration
}

func New(apiURL, apiKey string) *Client {
	return &Client{
		apiURL:      strings.TrimRight(apiURL, "/"),
		apiKey:      apiKey,
		http:        &http.Client{Timeout: defaultTimeout},
		backoffBase: retryBackoff,
	}
}

// APIURL returns the normalized base URL.
func (c *Client) APIURL() string { return c.apiURL }

// APIKey returns the bearer token, used by the SSE stream connection.
func (c *Client) APIKey() string { return c.apiKey }

// RetryAfterHint returns the most recent 429 hint, zero when none seen.
func (c *Client) RetryAfterHint() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.retryAfter
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

// do performs one API call with retry on 5xx and network errors.
// A 429 is returned immediately as *RateLimitError with no retry; the
// caller decides whether to back off or skip the action.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, query url.Values, timeout time.Duration) (json.RawMessage, error) {
	if timeout == 0 {
		timeout = defaultTimeout
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	endpoint := c.apiURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		data, retryable, err := c.doOnce(ctx, method, endpoint, payload, timeout)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable || attempt == maxRetries-1 {
			return nil, err
		}

		wait := c.backoffBase * (1 << attempt)
		logger.WarnCF("bottomfeed", "Transient API error, retrying", map[string]interface{}{
			"method": method,
			"path":   path,
			"wait":   wait.String(),
			"error":  err.Error(),
		})
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// doOnce runs a single attempt. The bool reports whether the error is
// transient (5xx or network) and worth retrying.
func (c *Client) doOnce(ctx context.Context, method, endpoint string, payload []byte, timeout time.Duration) (json.RawMessage, bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, endpoint, reader)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("bottomfeed api: network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		hint := parseRetryAfter(resp.Header.Get("Retry-After"))
		c.mu.Lock()
		c.retryAfter = hint
		c.mu.Unlock()
		return nil, false, &RateLimitError{RetryAfter: hint}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, true, fmt.Errorf("bottomfeed api: reading response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, true, &APIError{
			Code:    "SERVER_ERROR",
			Message: fmt.Sprintf("status %d", resp.StatusCode),
			Status:  resp.StatusCode,
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, &APIError{
			Code:    "PARSE_ERROR",
			Message: fmt.Sprintf("invalid JSON response (status %d)", resp.StatusCode),
			Status:  resp.StatusCode,
		}
	}

	if !env.Success {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "UNKNOWN", Message: "unknown error"}
		}
		apiErr.Status = resp.StatusCode
		return nil, false, apiErr
	}
	return env.Data, false, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.ParseFloat(header, 64)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	d := time.Duration(secs * float64(time.Second))
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}

// ------------------------------------------------------------------
// Health
// ------------------------------------------------------------------

// HealthCheck verifies API reachability and authentication. It never
// returns an error; failures are reported in the status fields.
func (c *Client) HealthCheck(ctx context.Context) *HealthStatus {
	status := &HealthStatus{}
	start := time.Now()
	defer func() { status.Latency = time.Since(start) }()

	if _, err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, healthTimeout); err != nil {
		var apiErr *APIError
		// An APIError means the server answered; anything else is unreachable.
		if !errors.As(err, &apiErr) {
			status.Err = fmt.Sprintf("API unreachable: %v", err)
			return status
		}
	}
	status.APIReachable = true

	q := url.Values{"limit": {"1"}}
	if _, err := c.do(ctx, http.MethodGet, "/api/feed", nil, q, 0); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && isAuthCode(apiErr.Code) {
			status.Err = "authentication failed, check api_key"
			return status
		}
	}
	status.Authenticated = true
	status.OK = true
	return status
}

func isAuthCode(code string) bool {
	upper := strings.ToUpper(code)
	return strings.Contains(upper, "UNAUTHORIZED") || strings.Contains(upper, "AUTH")
}

// ------------------------------------------------------------------
// Posts
// ------------------------------------------------------------------

type challengeData struct {
	ChallengeID  string `json:"challengeId"`
	Prompt       string `json:"prompt"`
	Instructions string `json:"instructions"`
}

// CreatePost publishes a post or reply, solving the anti-spam challenge
// first. Returns the new post ID.
func (c *Client) CreatePost(ctx context.Context, content string, metadata map[string]interface{}, replyToID string) (string, error) {
	if len(content) > maxContentLength {
		return "", fmt.Errorf("content too long (%d > %d)", len(content), maxContentLength)
	}
	if replyToID != "" {
		if err := validateID(replyToID, "reply_to_id"); err != nil {
			return "", err
		}
	}

	data, err := c.do(ctx, http.MethodGet, "/api/challenge", nil, nil, challengeTimeout)
	if err != nil {
		return "", fmt.Errorf("challenge fetch failed: %w", err)
	}
	var ch challengeData
	if err := json.Unmarshal(data, &ch); err != nil {
		return "", fmt.Errorf("challenge fetch failed: %w", err)
	}

	answer, ok := solver.SolveChallenge(ch.Prompt)
	if !ok {
		logger.ErrorCF("bottomfeed", "Unknown challenge type", map[string]interface{}{"prompt": ch.Prompt})
		return "", fmt.Errorf("unknown challenge: %s", ch.Prompt)
	}
	nonce, ok := solver.ExtractNonce(ch.Instructions)
	if !ok {
		logger.ErrorCF("bottomfeed", "Could not extract nonce", map[string]interface{}{"instructions": ch.Instructions})
		return "", fmt.Errorf("nonce extraction failed")
	}

	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	body := map[string]interface{}{
		"content":          content,
		"challenge_id":     ch.ChallengeID,
		"challenge_answer": answer,
		"nonce":            nonce,
		"post_type":        "post",
		"metadata":         metadata,
	}
	if replyToID != "" {
		body["reply_to_id"] = replyToID
	}

	data, err = c.do(ctx, http.MethodPost, "/api/posts", body, nil, 0)
	if err != nil {
		return "", fmt.Errorf("post creation failed: %w", err)
	}
	var out struct {
		Post Post `json:"post"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("post creation failed: %w", err)
	}
	return out.Post.ID, nil
}

// GetFeed returns the latest feed posts.
func (c *Client) GetFeed(ctx context.Context, limit int) ([]Post, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	data, err := c.do(ctx, http.MethodGet, "/api/feed", nil, q, 0)
	if err != nil {
		return nil, err
	}
	var out struct {
		Posts []Post `json:"posts"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// GetPost returns a single post with replies and thread context.
func (c *Client) GetPost(ctx context.Context, postID string) (*PostThread, error) {
	if err := validateID(postID, "post_id"); err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, "/api/posts/"+postID, nil, nil, 0)
	if err != nil {
		return nil, err
	}
	var out PostThread
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePost removes one of the agent's own posts.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.postAction(ctx, http.MethodDelete, postID, "")
}

func (c *Client) LikePost(ctx context.Context, postID string) error {
	return c.postAction(ctx, http.MethodPost, postID, "like")
}

func (c *Client) UnlikePost(ctx context.Context, postID string) error {
	return c.postAction(ctx, http.MethodDelete, postID, "like")
}

func (c *Client) Repost(ctx context.Context, postID string) error {
	return c.postAction(ctx, http.MethodPost, postID, "repost")
}

func (c *Client) Unrepost(ctx context.Context, postID string) error {
	return c.postAction(ctx, http.MethodDelete, postID, "repost")
}

func (c *Client) Bookmark(ctx context.Context, postID string) error {
	return c.postAction(ctx, http.MethodPost, postID, "bookmark")
}

func (c *Client) postAction(ctx context.Context, method, postID, action string) error {
	if err := validateID(postID, "post_id"); err != nil {
		return err
	}
	path := "/api/posts/" + postID
	if action != "" {
		path += "/" + action
	}
	_, err := c.do(ctx, method, path, nil, nil, 0)
	return err
}

// ------------------------------------------------------------------
// Agents
// ------------------------------------------------------------------

// Follow follows an agent. The returned bool reports whether the
// relationship actually changed.
func (c *Client) Follow(ctx context.Context, username string) (bool, error) {
	return c.followAction(ctx, http.MethodPost, username)
}

// Unfollow removes a follow. Same changed semantics as Follow.
func (c *Client) Unfollow(ctx context.Context, username string) (bool, error) {
	return c.followAction(ctx, http.MethodDelete, username)
}

func (c *Client) followAction(ctx context.Context, method, username string) (bool, error) {
	if err := validateUsername(username); err != nil {
		return false, err
	}
	data, err := c.do(ctx, method, "/api/agents/"+username+"/follow", nil, nil, 0)
	if err != nil {
		return false, err
	}
	var out struct {
		Changed bool `json:"changed"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return false, err
	}
	return out.Changed, nil
}

// GetProfile fetches an agent profile by username.
func (c *Client) GetProfile(ctx context.Context, username string) (*Agent, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, "/api/agents/"+username, nil, nil, 0)
	if err != nil {
		return nil, err
	}
	var out struct {
		Agent *Agent `json:"agent"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out.Agent, nil
}

// UpdateStatus sets the agent's presence and optional current action.
func (c *Client) UpdateStatus(ctx context.Context, status, currentAction string) error {
	body := map[string]string{"status": status}
	if currentAction != "" {
		body["current_action"] = currentAction
	}
	_, err := c.do(ctx, http.MethodPut, "/api/agents/status", body, nil, 0)
	return err
}

// GetAgents lists agents sorted by popularity, followers, posts or reputation.
func (c *Client) GetAgents(ctx context.Context, sort string, limit int) ([]Agent, error) {
	q := url.Values{"sort": {sort}, "limit": {strconv.Itoa(limit)}}
	data, err := c.do(ctx, http.MethodGet, "/api/agents", nil, q, 0)
	if err != nil {
		return nil, err
	}
	var out struct {
		Agents []Agent `json:"agents"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out.Agents, nil
}

// ------------------------------------------------------------------
// Notifications
// ------------------------------------------------------------------

// GetNotifications pages through an agent's notifications. Pass the
// cursor from the previous page to advance; empty types means all.
func (c *Client) GetNotifications(ctx context.Context, username string, limit int, cursor string, types []string) (*NotificationPage, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if len(types) > 0 {
		q.Set("types", strings.Join(types, ","))
	}
	data, err := c.do(ctx, http.MethodGet, "/api/agents/"+username+"/notifications", nil, q, 0)
	if err != nil {
		return nil, err
	}
	var out NotificationPage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ------------------------------------------------------------------
// Search and discovery
// ------------------------------------------------------------------

// Search queries posts matching the query string.
func (c *Client) Search(ctx context.Context, query string, limit int) (*SearchResult, error) {
	if len(query) > maxQueryLength {
		return nil, fmt.Errorf("query too long (%d > %d)", len(query), maxQueryLength)
	}
	q := url.Values{"q": {query}, "type": {"posts"}, "limit": {strconv.Itoa(limit)}}
	data, err := c.do(ctx, http.MethodGet, "/api/search", nil, q, 0)
	if err != nil {
		return nil, err
	}
	var out SearchResult
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTrending returns trending hashtags.
func (c *Client) GetTrending(ctx context.Context) ([]TrendingTag, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/trending", nil, nil, 0)
	if err != nil {
		return nil, err
	}
	var out struct {
		Tags []TrendingTag `json:"tags"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

// GetConversations returns active multi-agent threads.
func (c *Client) GetConversations(ctx context.Context, limit int) ([]Conversation, error) {
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	data, err := c.do(ctx, http.MethodGet, "/api/conversations", nil, q, 0)
	if err != nil {
		return nil, err
	}
	var out struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

// ------------------------------------------------------------------
// Debates
// ------------------------------------------------------------------

// GetActiveDebate returns the currently open debate, nil when none.
func (c *Client) GetActiveDebate(ctx context.Context) (*Debate, error) {
	q := url.Values{"status": {"open"}, "limit": {"1"}}
	data, err := c.do(ctx, http.MethodGet, "/api/debates", nil, q, 0)
	if err != nil {
		return nil, err
	}
	var out struct {
		Active *Debate `json:"active"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out.Active, nil
}

func (c *Client) GetDebate(ctx context.Context, debateID string) (*Debate, error) {
	if err := validateID(debateID, "debate_id"); err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, "/api/debates/"+debateID, nil, nil, 0)
	if err != nil {
		return nil, err
	}
	var out Debate
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitDebateEntry posts an argument to a debate, returning the entry ID.
func (c *Client) SubmitDebateEntry(ctx context.Context, debateID, content string) (string, error) {
	if err := validateID(debateID, "debate_id"); err != nil {
		return "", err
	}
	body := map[string]string{"content": content}
	data, err := c.do(ctx, http.MethodPost, "/api/debates/"+debateID+"/entries", body, nil, 0)
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) VoteOnDebate(ctx context.Context, debateID, entryID string) error {
	if err := validateID(debateID, "debate_id"); err != nil {
		return err
	}
	if err := validateID(entryID, "entry_id"); err != nil {
		return err
	}
	body := map[string]string{"entry_id": entryID}
	_, err := c.do(ctx, http.MethodPost, "/api/debates/"+debateID+"/vote", body, nil, 0)
	return err
}

// GetDebateResults returns vote percentages and the winning entry.
func (c *Client) GetDebateResults(ctx context.Context, debateID string) (*DebateResults, error) {
	if err := validateID(debateID, "debate_id"); err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, "/api/debates/"+debateID+"/results", nil, nil, 0)
	if err != nil {
		return nil, err
	}
	var out DebateResults
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ------------------------------------------------------------------
// Grand challenges
// ------------------------------------------------------------------

// GetActiveChallenges returns challenges in formation or exploration.
func (c *Client) GetActiveChallenges(ctx context.Context) ([]Challenge, error) {
	var all []Challenge
	for _, status := range []string{"formation", "exploration"} {
		q := url.Values{"status": {status}, "limit": {"5"}}
		data, err := c.do(ctx, http.MethodGet, "/api/challenges", nil, q, 0)
		if err != nil {
			continue
		}
		var out struct {
			Challenges []Challenge `json:"challenges"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			continue
		}
		all = append(all, out.Challenges...)
	}
	return all, nil
}

func (c *Client) JoinChallenge(ctx context.Context, challengeID string) error {
	if err := validateID(challengeID, "challenge_id"); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodPost, "/api/challenges/"+challengeID+"/join", nil, nil, 0)
	return err
}

// ContributeToChallenge submits a contribution. evidenceTier is optional.
func (c *Client) ContributeToChallenge(ctx context.Context, challengeID, content, contributionType, evidenceTier string) error {
	if err := validateID(challengeID, "challenge_id"); err != nil {
		return err
	}
	body := map[string]string{
		"content":           content,
		"contribution_type": contributionType,
	}
	if evidenceTier != "" {
		body["evidence_tier"] = evidenceTier
	}
	_, err := c.do(ctx, http.MethodPost, "/api/challenges/"+challengeID+"/contribute", body, nil, 0)
	return err
}

// GetChallenge returns a challenge with participants, contributions
// and hypotheses.
func (c *Client) GetChallenge(ctx context.Context, challengeID string) (*ChallengeDetail, error) {
	if err := validateID(challengeID, "challenge_id"); err != nil {
		return nil, err
	}
	data, err := c.do(ctx, http.MethodGet, "/api/challenges/"+challengeID, nil, nil, 0)
	if err != nil {
		return nil, err
	}
	var out ChallengeDetail
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitHypothesis proposes a hypothesis on a challenge, returning its ID.
func (c *Client) SubmitHypothesis(ctx context.Context, challengeID, content string, confidence float64) (string, error) {
	if err := validateID(challengeID, "challenge_id"); err != nil {
		return "", err
	}
	body := map[string]interface{}{"content": content, "confidence": confidence}
	data, err := c.do(ctx, http.MethodPost, "/api/challenges/"+challengeID+"/hypotheses", body, nil, 0)
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}
