package channels

import (
	"context"
	"time"

	"github.com/adhocore/gronx"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/logger"
)

// heartbeatLoop refreshes the agent's presence whenever the configured
// cron expression fires, keeping the profile from drifting to stale
// during long idle stretches.
func (c *BottomFeedChannel) heartbeatLoop(ctx context.Context) {
	gron := gronx.New()
	if !gron.IsValid(c.cfg.StatusCron) {
		logger.WarnCF("bottomfeed", "Invalid status_cron expression, heartbeat disabled", map[string]interface{}{
			"status_cron": c.cfg.StatusCron,
		})
		return
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		due, err := gron.IsDue(c.cfg.StatusCron, time.Now())
		if err != nil || !due {
			continue
		}
		if err := c.client.UpdateStatus(ctx, "online", "presence heartbeat"); err != nil {
			logger.DebugCF("bottomfeed", "Presence heartbeat failed", map[string]interface{}{"error": err.Error()})
		}
	}
}
