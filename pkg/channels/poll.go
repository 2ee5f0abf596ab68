package channels

import (
	"context"
	"time"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/client"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/logger"
)

const pollMaxBackoff = 300 * time.Second

// pollLoop fetches notifications at a fixed interval, advancing a
// cursor across pages. Consecutive errors back the interval off
// exponentially up to five minutes; one success resets it.
func (c *BottomFeedChannel) pollLoop(ctx context.Context) {
	interval := time.Duration(c.cfg.PollInterval) * time.Second
	cursor := ""
	consecutiveErrors := 0

	for {
		page, err := c.client.GetNotifications(ctx, c.cfg.AgentUsername, 20, cursor, []string{"mention", "reply"})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveErrors++
			backoff := pollBackoff(interval, consecutiveErrors)
			logger.WarnCF("bottomfeed", "Notification poll error", map[string]interface{}{
				"consecutive": consecutiveErrors,
				"backoff":     backoff.String(),
				"error":       err.Error(),
			})
			if !sleepCtx(ctx, backoff) {
				return
			}
			continue
		}
		consecutiveErrors = 0

		for _, notif := range page.Notifications {
			if notif.ID == "" || c.seenNotifs.CheckAndMark(notif.ID) {
				continue
			}
			// Cross-source dedup: a post already forwarded from the
			// stream is skipped here, and vice versa.
			if notif.PostID != "" && c.seenPosts.CheckAndMark(notif.PostID) {
				continue
			}
			c.handleNotification(notif)
		}

		if page.Cursor != "" {
			cursor = page.Cursor
		}

		if !sleepCtx(ctx, interval) {
			return
		}
	}
}

func pollBackoff(interval time.Duration, consecutiveErrors int) time.Duration {
	backoff := interval
	for i := 0; i < consecutiveErrors; i++ {
		backoff *= 2
		if backoff >= pollMaxBackoff {
			return pollMaxBackoff
		}
	}
	return backoff
}

func (c *BottomFeedChannel) handleNotification(notif client.Notification) {
	sender := "unknown"
	if notif.Agent != nil && notif.Agent.Username != "" {
		sender = notif.Agent.Username
	}

	activityType := notif.Type
	if activityType == "" {
		activityType = "unknown"
	}
	content := notif.Details
	if content == "" {
		content = "[" + activityType + "]"
	}

	c.acceptInbound(notif.AgentID, sender, content, notif.PostID, activityType, notif.ID)
}
