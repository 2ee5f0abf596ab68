package autonomy

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/bus"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/client"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/config"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/logger"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/track"
)

// Loop is the background autonomy loop for one agent.
type Loop struct {
	cfg      config.AutonomyConfig
	client   *client.Client
	bus      *bus.MessageBus
	username string

	limiter *track.RateLimiter
	tracker *track.EngagementTracker

	behaviors map[Behavior]config.BehaviorConfig

	mu      sync.Mutex
	lastRun map[Behavior]time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	now       func() time.Time
	randFloat func() float64
}

func NewLoop(cfg config.AutonomyConfig, c *client.Client, b *bus.MessageBus, username string) *Loop {
	behaviors := make(map[Behavior]config.BehaviorConfig, len(cfg.Behaviors))
	for name, bc := range cfg.Behaviors {
		if behavior, ok := BehaviorFromName(name); ok {
			behaviors[behavior] = bc
		}
	}
	return &Loop{
		cfg:       cfg,
		client:    c,
		bus:       b,
		username:  username,
		limiter:   track.NewRateLimiter(),
		tracker:   track.NewEngagementTracker(),
		behaviors: behaviors,
		lastRun:   make(map[Behavior]time.Time),
		now:       time.Now,
		randFloat: rand.Float64,
	}
}

// Limiter exposes the rate limiter so action tools can consult and
// record against the same budget the loop uses.
func (l *Loop) Limiter() *track.RateLimiter { return l.limiter }

// Tracker exposes the engagement tracker for the same reason.
func (l *Loop) Tracker() *track.EngagementTracker { return l.tracker }

// Start spawns the cycle goroutine. A disabled config is a no-op.
func (l *Loop) Start(ctx context.Context) {
	if !l.cfg.Enabled {
		logger.InfoC("autonomy", "Autonomy loop disabled, skipping start")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	interval := time.Duration(l.cfg.CycleInterval) * time.Second
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			l.runCycle(runCtx)
			select {
			case <-time.After(interval):
			case <-runCtx.Done():
				return
			}
		}
	}()
	logger.InfoCF("autonomy", "Autonomy loop started", map[string]interface{}{
		"interval_s": l.cfg.CycleInterval,
	})
}

func (l *Loop) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
	logger.InfoC("autonomy", "Autonomy loop stopped")
}

// runCycle selects one behavior and executes it. The behavior's
// last-run stamp is written before the handler runs, so a failing
// handler still consumes its cooldown instead of retrying hot.
func (l *Loop) runCycle(ctx context.Context) {
	behavior, ok := l.selectBehavior()
	if !ok {
		return
	}

	l.mu.Lock()
	l.lastRun[behavior] = l.now()
	l.mu.Unlock()

	handler := handlers[behavior]
	if handler == nil {
		return
	}
	if err := handler(l, ctx); err != nil {
		logger.WarnCF("autonomy", "Behavior cycle error", map[string]interface{}{
			"behavior": behavior.String(),
			"error":    err.Error(),
		})
	}
}

// selectBehavior picks a behavior by weighted probability among the
// enabled behaviors whose cooldown has expired. Returns false when no
// candidate exists or the total weight is not positive.
func (l *Loop) selectBehavior() (Behavior, bool) {
	now := l.now()

	l.mu.Lock()
	var candidates []Behavior
	var weights []float64
	total := 0.0
	for b := Behavior(0); b < behaviorCount; b++ {
		bc, ok := l.behaviors[b]
		if !ok || !bc.Enabled {
			continue
		}
		if now.Sub(l.lastRun[b]) < time.Duration(bc.Cooldown)*time.Second {
			continue
		}
		candidates = append(candidates, b)
		weights = append(weights, bc.Weight)
		total += bc.Weight
	}
	l.mu.Unlock()

	if len(candidates) == 0 || total <= 0 {
		return 0, false
	}

	r := l.randFloat() * total
	for i, b := range candidates {
		r -= weights[i]
		if r < 0 {
			return b, true
		}
	}
	return candidates[len(candidates)-1], true
}

// inject publishes an autonomy prompt on the inbound bus. All autonomy
// messages carry metadata autonomy=true so downstream consumers can
// tell them from real platform events.
func (l *Loop) inject(content string, metadata map[string]string) {
	meta := map[string]string{"autonomy": "true"}
	for k, v := range metadata {
		meta[k] = v
	}
	l.bus.PublishInbound(bus.InboundMessage{
		Channel:       "bottomfeed",
		SenderID:      "autonomy",
		ChatID:        l.username,
		Content:       content,
		Metadata:      meta,
		CorrelationID: uuid.NewString(),
	})
}
