package channels

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/bus"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/utils"
)

type digestEvent struct {
	eventType string
	sender    string
	content   string
	postID    string
}

// digestBuffer accumulates owner-notification events between flushes.
type digestBuffer struct {
	mu     sync.Mutex
	events []digestEvent
}

func (b *digestBuffer) add(e digestEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *digestBuffer) drain() []digestEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.events
	b.events = nil
	return events
}

var notificationLabels = map[string]string{
	"mention":   "mentioned you",
	"reply":     "replied to your post",
	"like":      "liked your post",
	"repost":    "reposted your post",
	"follow":    "followed you",
	"debate":    "debate activity",
	"challenge": "challenge activity",
}

var digestLabels = map[string]string{
	"mention":   "mention",
	"reply":     "reply",
	"like":      "like",
	"repost":    "repost",
	"follow":    "new follower",
	"debate":    "debate event",
	"challenge": "challenge event",
}

// notifyOwner forwards an event to the owner's channel, either
// immediately or via the digest buffer when digest mode is on.
func (c *BottomFeedChannel) notifyOwner(eventType, sender, content, postID string) {
	if !c.cfg.NotificationsEnabled() {
		return
	}
	subscribed := false
	for _, e := range c.cfg.NotifyEvents {
		if e == eventType {
			subscribed = true
			break
		}
	}
	if !subscribed {
		return
	}

	if c.cfg.DigestInterval > 0 {
		c.digest.add(digestEvent{eventType: eventType, sender: sender, content: content, postID: postID})
		return
	}
	c.sendOwnerMessage(formatNotification(eventType, sender, content, postID))
}

func formatNotification(eventType, sender, content, postID string) string {
	label, ok := notificationLabels[eventType]
	if !ok {
		label = eventType
	}
	lines := []string{
		fmt.Sprintf("[BottomFeed] @%s %s:", sender, label),
		"> " + utils.Excerpt(content, 150),
	}
	if postID != "" {
		lines = append(lines, fmt.Sprintf("(post: %s)", postID))
	}
	return strings.Join(lines, "\n")
}

// formatDigest groups events by type, counting occurrences and listing
// the first five distinct senders per type.
func formatDigest(events []digestEvent, interval time.Duration) string {
	if len(events) == 0 {
		return ""
	}

	var order []string
	groups := make(map[string][]string)
	for _, e := range events {
		if _, ok := groups[e.eventType]; !ok {
			order = append(order, e.eventType)
		}
		groups[e.eventType] = append(groups[e.eventType], e.sender)
	}

	windowLabel := "recent"
	if mins := int(interval.Minutes()); mins > 0 {
		windowLabel = fmt.Sprintf("last %d min", mins)
	}
	lines := []string{fmt.Sprintf("BottomFeed Activity (%s):", windowLabel)}

	for _, eventType := range order {
		senders := groups[eventType]
		label, ok := digestLabels[eventType]
		if !ok {
			label = eventType
		}
		count := len(senders)
		if count > 1 {
			label = pluralize(label)
		}

		seen := make(map[string]bool, len(senders))
		var unique []string
		for _, s := range senders {
			if !seen[s] {
				seen[s] = true
				unique = append(unique, s)
			}
		}
		shown := unique
		if len(shown) > 5 {
			shown = shown[:5]
		}
		handles := make([]string, len(shown))
		for i, s := range shown {
			handles[i] = "@" + s
		}
		senderList := strings.Join(handles, ", ")
		if len(unique) > 5 {
			senderList += fmt.Sprintf(" +%d more", len(unique)-5)
		}

		lines = append(lines, fmt.Sprintf("  %d %s: %s", count, label, senderList))
	}

	return strings.Join(lines, "\n")
}

// pluralize handles the y -> ies rule ("reply" -> "replies") while
// leaving -ey words and words already ending in s alone.
func pluralize(label string) string {
	switch {
	case strings.HasSuffix(label, "y") && !strings.HasSuffix(label, "ey"):
		return label[:len(label)-1] + "ies"
	case strings.HasSuffix(label, "s"):
		return label
	default:
		return label + "s"
	}
}

func (c *BottomFeedChannel) sendOwnerMessage(text string) {
	c.bus.PublishOutbound(bus.OutboundMessage{
		Channel: c.cfg.OwnerChannel,
		ChatID:  c.cfg.OwnerChatID,
		Content: text,
		Metadata: map[string]string{
			"source":       ChannelName,
			"notification": "true",
		},
	})
}

func (c *BottomFeedChannel) flushDigest() {
	events := c.digest.drain()
	if len(events) == 0 {
		return
	}
	text := formatDigest(events, time.Duration(c.cfg.DigestInterval)*time.Second)
	if text != "" {
		c.sendOwnerMessage(text)
	}
}

func (c *BottomFeedChannel) digestLoop(ctx context.Context) {
	interval := time.Duration(c.cfg.DigestInterval) * time.Second
	for {
		if !sleepCtx(ctx, interval) {
			return
		}
		c.flushDigest()
	}
}
