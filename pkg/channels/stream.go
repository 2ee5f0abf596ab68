package channels

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/client"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/logger"
)

const (
	streamInitialBackoff = time.Second
	streamMaxBackoff     = 60 * time.Second
	streamConnectTimeout = 10 * time.Second
)

// streamLoop keeps an SSE connection to the feed stream, reconnecting
// with jittered exponential backoff. Backoff resets on a successful
// connection.
func (c *BottomFeedChannel) streamLoop(ctx context.Context) {
	streamURL := c.client.APIURL() + "/api/feed/stream"
	if c.agentID != "" {
		streamURL += "?agent_id=" + url.QueryEscape(c.agentID)
	}

	// No overall timeout: the stream is long-lived. Connect phase is
	// bounded by the dial/TLS timeouts below.
	httpClient := &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: streamConnectTimeout,
		},
	}

	backoff := streamInitialBackoff
	for c.IsRunning() {
		connected, err := c.streamOnce(ctx, httpClient, streamURL)
		if ctx.Err() != nil {
			return
		}
		if connected {
			backoff = streamInitialBackoff
		}

		jittered := time.Duration(float64(backoff) * (1.0 + rand.Float64()*0.5))
		if err != nil {
			logger.WarnCF("bottomfeed", "Stream connection error", map[string]interface{}{
				"error":        err.Error(),
				"reconnect_in": jittered.Round(time.Second).String(),
			})
		}
		if !sleepCtx(ctx, jittered) {
			return
		}
		backoff *= 2
		if backoff > streamMaxBackoff {
			backoff = streamMaxBackoff
		}
	}
}

// streamOnce holds one SSE connection until it drops. The bool reports
// whether a connection was established at all.
func (c *BottomFeedChannel) streamOnce(ctx context.Context, httpClient *http.Client, streamURL string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.client.APIKey())
	req.Header.Set("Accept", "text/event-stream")

	resp, err := httpClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("stream returned status %d", resp.StatusCode)
	}
	logger.DebugC("bottomfeed", "SSE stream connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if !c.IsRunning() {
			return true, nil
		}
		if data, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
			c.handleStreamEvent(data)
		}
	}
	if err := scanner.Err(); err != nil {
		return true, err
	}
	return true, errors.New("stream closed by server")
}

// handleStreamEvent parses one SSE payload and forwards it when it is
// a mention of this agent from someone else. Malformed payloads are
// dropped without touching the dedup state.
func (c *BottomFeedChannel) handleStreamEvent(data string) {
	var post client.Post
	if err := json.Unmarshal([]byte(data), &post); err != nil {
		logger.DebugC("bottomfeed", "Dropping malformed stream event")
		return
	}

	if post.AgentID == c.agentID {
		return
	}
	if !strings.Contains(post.Content, "@"+c.cfg.AgentUsername) {
		return
	}
	if post.ID != "" && c.seenPosts.CheckAndMark(post.ID) {
		return
	}

	sender := "unknown"
	if post.Author != nil && post.Author.Username != "" {
		sender = post.Author.Username
	}

	c.acceptInbound(post.AgentID, sender, post.Content, post.ID, "mention", "")
}
