package swarm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/bus"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/channels"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/client"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/config"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/logger"
)

// AgentHandle bundles everything the coordinator holds per agent.
type AgentHandle struct {
	Username string
	Channel  *channels.BottomFeedChannel
	Bus      *bus.MessageBus
	Client   *client.Client
}

// Coordinator runs N agents with shared state. Its background loop
// discovers challenges and debates through the first agent's client,
// assigns challenge roles round-robin and fans debate notices out to
// every agent's bus.
type Coordinator struct {
	cfg   config.SwarmConfig
	State *SharedState

	agents map[string]*AgentHandle
	order  []string

	mu        sync.Mutex
	roleIndex int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCoordinator(cfg config.SwarmConfig) *Coordinator {
	coord := &Coordinator{
		cfg:    cfg,
		State:  NewSharedState(cfg.MaxSharedHistory),
		agents: make(map[string]*AgentHandle, len(cfg.Agents)),
	}
	for _, agentCfg := range cfg.Agents {
		agentBus := bus.NewMessageBus()
		channel := channels.NewBottomFeedChannel(agentCfg, agentBus)
		coord.agents[agentCfg.AgentUsername] = &AgentHandle{
			Username: agentCfg.AgentUsername,
			Channel:  channel,
			Bus:      agentBus,
			Client:   channel.Client(),
		}
		coord.order = append(coord.order, agentCfg.AgentUsername)
	}
	return coord
}

// Usernames returns the agent usernames in config order.
func (c *Coordinator) Usernames() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Agent returns the handle for a username, nil when unknown.
func (c *Coordinator) Agent(username string) *AgentHandle {
	return c.agents[username]
}

// Start brings up every agent channel, then the coordination loop.
// A channel failing to start tears the already-started ones down.
func (c *Coordinator) Start(ctx context.Context) error {
	var started []*AgentHandle
	for _, username := range c.order {
		handle := c.agents[username]
		if err := handle.Channel.Start(ctx); err != nil {
			for _, h := range started {
				h.Channel.Stop(ctx)
			}
			return fmt.Errorf("starting swarm agent @%s: %w", username, err)
		}
		started = append(started, handle)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.coordinationLoop(runCtx)
	}()

	logger.InfoCF("swarm", "Swarm started", map[string]interface{}{
		"agents": len(c.agents),
	})
	return nil
}

func (c *Coordinator) Stop(ctx context.Context) {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	for _, username := range c.order {
		if err := c.agents[username].Channel.Stop(ctx); err != nil {
			logger.WarnCF("swarm", "Agent channel stop error", map[string]interface{}{
				"agent": "@" + username,
				"error": err.Error(),
			})
		}
	}
	logger.InfoC("swarm", "Swarm stopped")
}

// InjectMessage delivers a coordination message to one agent.
func (c *Coordinator) InjectMessage(username, content string) {
	handle := c.agents[username]
	if handle == nil {
		logger.WarnCF("swarm", "InjectMessage for unknown agent", map[string]interface{}{"agent": username})
		return
	}
	handle.Bus.PublishInbound(bus.InboundMessage{
		Channel:  channels.ChannelName,
		SenderID: "swarm-coordinator",
		ChatID:   username,
		Content:  content,
		Metadata: map[string]string{
			"swarm":        "true",
			"coordination": "true",
		},
		CorrelationID: uuid.NewString(),
	})
}

// Broadcast delivers a coordination message to every agent.
func (c *Coordinator) Broadcast(content string) {
	for _, username := range c.order {
		c.InjectMessage(username, content)
	}
}

func (c *Coordinator) coordinationLoop(ctx context.Context) {
	interval := time.Duration(c.cfg.CoordinationInterval) * time.Second
	for {
		if c.cfg.AutoAssignChallengeRoles {
			if err := c.coordinateChallenges(ctx); err != nil && ctx.Err() == nil {
				logger.WarnCF("swarm", "Challenge coordination error", map[string]interface{}{"error": err.Error()})
			}
		}
		if c.cfg.AutoAssignDebates {
			if err := c.coordinateDebates(ctx); err != nil && ctx.Err() == nil {
				logger.WarnCF("swarm", "Debate coordination error", map[string]interface{}{"error": err.Error()})
			}
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return
		}
	}
}

// coordinateChallenges assigns a role to every agent that has none yet
// for each active challenge. The round-robin counter is shared across
// challenges so roles spread evenly over the swarm.
func (c *Coordinator) coordinateChallenges(ctx context.Context) error {
	challenges, err := c.discoveryClient().GetActiveChallenges(ctx)
	if err != nil {
		return err
	}

	for _, challenge := range challenges {
		if challenge.ID == "" {
			continue
		}
		unassigned := c.State.UnassignedAgents(challenge.ID, c.order)
		for _, username := range unassigned {
			role := c.nextRole()
			c.State.AssignChallengeRole(challenge.ID, username, role)
			c.InjectMessage(username, fmt.Sprintf(
				"[Swarm: Challenge Assignment] You've been assigned the role of **%s** "+
					"for challenge %q (id=%s). Use bf_challenge to contribute with this perspective.",
				role, challenge.Title, challenge.ID,
			))
		}
	}
	return nil
}

// coordinateDebates tells each agent about the active debate exactly once.
func (c *Coordinator) coordinateDebates(ctx context.Context) error {
	debate, err := c.discoveryClient().GetActiveDebate(ctx)
	if err != nil {
		return err
	}
	if debate == nil || debate.ID == "" {
		return nil
	}

	for _, username := range c.order {
		if c.State.IsDebateNotified(debate.ID, username) {
			continue
		}
		c.State.AssignDebate(debate.ID, username)
		c.InjectMessage(username, fmt.Sprintf(
			"[Swarm: Debate] Active debate: %q (id=%s). Use bf_debate to submit your position.",
			debate.Topic, debate.ID,
		))
	}
	return nil
}

// discoveryClient is the client used for swarm-level platform reads.
func (c *Coordinator) discoveryClient() *client.Client {
	return c.agents[c.order[0]].Client
}

func (c *Coordinator) nextRole() ChallengeRole {
	c.mu.Lock()
	defer c.mu.Unlock()
	role := roleCycle[c.roleIndex%len(roleCycle)]
	c.roleIndex++
	return role
}
