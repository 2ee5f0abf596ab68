package channels

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/autonomy"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/bus"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/client"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/config"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/logger"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/track"
)

const ChannelName = "bottomfeed"

// BottomFeedChannel connects an agent to BottomFeed. Mentions arrive in
// real time over the SSE feed stream; notifications arrive via polling.
// Both intake paths share one dedup set so a post seen on either path
// is never forwarded twice.
type BottomFeedChannel struct {
	BaseChannel

	cfg    config.ChannelConfig
	client *client.Client

	agentID string

	seenPosts  *track.SeenSet
	seenNotifs *track.SeenSet
	replies    *track.ReplyTracker

	digest   *digestBuffer
	autonomy *autonomy.Loop

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewBottomFeedChannel(cfg config.ChannelConfig, b *bus.MessageBus) *BottomFeedChannel {
	return &BottomFeedChannel{
		BaseChannel: NewBaseChannel(ChannelName, b, cfg.AllowFrom),
		cfg:         cfg,
		client:      client.New(cfg.APIURL, cfg.APIKey),
		seenPosts:   track.NewSeenSet(track.DefaultMaxTracked, track.DefaultPruneCount),
		seenNotifs:  track.NewSeenSet(track.DefaultMaxTracked, track.DefaultPruneCount),
		replies:     track.NewReplyTracker(track.DefaultMaxReplyExchanges, track.DefaultReplyWindow),
		digest:      &digestBuffer{},
	}
}

// Client exposes the underlying API client for tools and the swarm
// coordinator.
func (c *BottomFeedChannel) Client() *client.Client { return c.client }

// Start verifies connectivity, resolves the agent profile, sets the
// agent online and spawns the intake loops.
func (c *BottomFeedChannel) Start(ctx context.Context) error {
	if !c.cfg.Enabled {
		logger.InfoC("bottomfeed", "Channel disabled, skipping start")
		return nil
	}

	health := c.client.HealthCheck(ctx)
	if !health.OK {
		logger.ErrorCF("bottomfeed", "Health check failed", map[string]interface{}{
			"error":         health.Err,
			"api_reachable": health.APIReachable,
			"authenticated": health.Authenticated,
			"latency_ms":    health.Latency.Milliseconds(),
		})
		return fmt.Errorf("bottomfeed health check failed: %s", health.Err)
	}
	logger.InfoCF("bottomfeed", "Health check passed", map[string]interface{}{
		"latency_ms": health.Latency.Milliseconds(),
	})

	profile, err := c.client.GetProfile(ctx, c.cfg.AgentUsername)
	if err != nil {
		return fmt.Errorf("resolving agent profile for @%s: %w", c.cfg.AgentUsername, err)
	}
	if profile == nil {
		return fmt.Errorf("no agent profile for @%s, check api_key and agent_username", c.cfg.AgentUsername)
	}
	c.agentID = profile.ID

	if err := c.client.UpdateStatus(ctx, "online", "Connected via picoclaw"); err != nil {
		logger.WarnCF("bottomfeed", "Failed to set online status", map[string]interface{}{"error": err.Error()})
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.setRunning(true)

	if c.cfg.SSEEnabled && c.agentID != "" {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.streamLoop(runCtx)
		}()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.pollLoop(runCtx)
	}()

	if c.cfg.NotificationsEnabled() && c.cfg.DigestInterval > 0 {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.digestLoop(runCtx)
		}()
	}

	if c.cfg.StatusCron != "" {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.heartbeatLoop(runCtx)
		}()
	}

	if c.cfg.Autonomy.Enabled {
		c.autonomy = autonomy.NewLoop(c.cfg.Autonomy, c.client, c.bus, c.cfg.AgentUsername)
		c.autonomy.Start(runCtx)
	}

	logger.InfoCF("bottomfeed", "Channel started", map[string]interface{}{
		"agent":    "@" + c.cfg.AgentUsername,
		"agent_id": c.agentID,
	})
	return nil
}

// Stop cancels the intake loops, flushes any buffered digest events
// and sets the agent offline.
func (c *BottomFeedChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	if c.autonomy != nil {
		c.autonomy.Stop()
		c.autonomy = nil
	}

	c.flushDigest()

	if err := c.client.UpdateStatus(ctx, "offline", ""); err != nil {
		logger.DebugCF("bottomfeed", "Failed to set offline status during shutdown", map[string]interface{}{"error": err.Error()})
	}

	logger.InfoC("bottomfeed", "Channel stopped")
	return nil
}

// Send creates a post or reply on BottomFeed.
func (c *BottomFeedChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	replyTo := msg.Metadata["reply_to_post_id"]
	if replyTo == "" {
		replyTo = msg.ReplyTo
	}
	postID, err := c.client.CreatePost(ctx, msg.Content, nil, replyTo)
	if err != nil {
		logger.WarnCF("bottomfeed", "Failed to post", map[string]interface{}{"error": err.Error()})
		return err
	}
	logger.DebugCF("bottomfeed", "Posted to BottomFeed", map[string]interface{}{"post_id": postID})
	return nil
}

// acceptInbound runs the shared admission pipeline for both intake
// paths: allowlist, reply-loop guard, then publish plus owner notify.
func (c *BottomFeedChannel) acceptInbound(senderID, senderUsername, content, postID, activityType, notifID string) bool {
	if !c.IsAllowed(senderUsername) {
		return false
	}
	if !c.replies.Allow(senderUsername) {
		logger.DebugCF("bottomfeed", "Reply loop detected, skipping", map[string]interface{}{
			"sender":       "@" + senderUsername,
			"interactions": c.replies.Count(senderUsername),
		})
		return false
	}

	meta := map[string]string{
		"post_id":         postID,
		"activity_type":   activityType,
		"sender_username": senderUsername,
	}
	if notifID != "" {
		meta["notification_id"] = notifID
	}

	c.bus.PublishInbound(bus.InboundMessage{
		Channel:       ChannelName,
		SenderID:      senderID,
		ChatID:        senderUsername,
		Content:       content,
		Metadata:      meta,
		CorrelationID: uuid.NewString(),
	})

	c.notifyOwner(activityType, senderUsername, content, postID)
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
