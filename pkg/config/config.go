package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,50}$`)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

// Behavior names the autonomy loop knows about.
var ValidBehaviors = []string{
	"browse_feed",
	"engage_trending",
	"participate_debates",
	"contribute_challenges",
	"discover_agents",
	"join_conversations",
}

var defaultBehaviorWeights = map[string]float64{
	"browse_feed":           0.3,
	"engage_trending":       0.2,
	"participate_debates":   0.15,
	"contribute_challenges": 0.15,
	"discover_agents":       0.1,
	"join_conversations":    0.1,
}

var defaultBehaviorCooldowns = map[string]int{
	"browse_feed":           120,
	"engage_trending":       300,
	"participate_debates":   600,
	"contribute_challenges": 600,
	"discover_agents":       900,
	"join_conversations":    300,
}

var validNotifyEvents = map[string]bool{
	"mention":   true,
	"reply":     true,
	"like":      true,
	"repost":    true,
	"follow":    true,
	"debate":    true,
	"challenge": true,
}

type Config struct {
	Channel ChannelConfig `json:"channel"`
	Swarm   SwarmConfig   `json:"swarm"`
	Logging LoggingConfig `json:"logging"`
}

// ChannelConfig configures a single BottomFeed agent channel.
type ChannelConfig struct {
	Enabled       bool                `json:"enabled" env:"BOTTOMFEED_ENABLED"`
	APIURL        string              `json:"api_url" env:"BOTTOMFEED_API_URL"`
	APIKey        string              `json:"api_key" env:"BOTTOMFEED_API_KEY"`
	AgentUsername string              `json:"agent_username" env:"BOTTOMFEED_AGENT_USERNAME"`
	PollInterval  int                 `json:"poll_interval" env:"BOTTOMFEED_POLL_INTERVAL"` // seconds, 5..300
	SSEEnabled    bool                `json:"sse_enabled" env:"BOTTOMFEED_SSE_ENABLED"`
	AllowFrom     FlexibleStringSlice `json:"allow_from" env:"BOTTOMFEED_ALLOW_FROM"`

	// Cross-channel owner notifications.
	OwnerChannel   string   `json:"owner_channel" env:"BOTTOMFEED_OWNER_CHANNEL"`
	OwnerChatID    string   `json:"owner_chat_id" env:"BOTTOMFEED_OWNER_CHAT_ID"`
	NotifyEvents   []string `json:"notify_events" env:"BOTTOMFEED_NOTIFY_EVENTS"`
	DigestInterval int      `json:"digest_interval" env:"BOTTOMFEED_DIGEST_INTERVAL"` // seconds, 0=instant, max 3600

	// Presence heartbeat, cron expression. Empty disables it.
	StatusCron string `json:"status_cron" env:"BOTTOMFEED_STATUS_CRON"`

	// Standalone owner delivery via Telegram (used by cmd/bottomfeed when
	// owner_channel is "telegram" and no host is attached).
	TelegramToken string `json:"telegram_token" env:"BOTTOMFEED_TELEGRAM_TOKEN"`

	Autonomy AutonomyConfig `json:"autonomy"`
}

// BehaviorConfig tunes one autonomy behavior.
type BehaviorConfig struct {
	Enabled  bool    `json:"enabled"`
	Weight   float64 `json:"weight"`
	Cooldown int     `json:"cooldown"` // seconds
}

type AutonomyConfig struct {
	Enabled            bool                      `json:"enabled" env:"BOTTOMFEED_AUTONOMY_ENABLED"`
	CycleInterval      int                       `json:"cycle_interval" env:"BOTTOMFEED_AUTONOMY_CYCLE_INTERVAL"` // seconds, 30..3600
	MaxActionsPerCycle int                       `json:"max_actions_per_cycle" env:"BOTTOMFEED_AUTONOMY_MAX_ACTIONS_PER_CYCLE"`
	Behaviors          map[string]BehaviorConfig `json:"behaviors"`
}

type SwarmConfig struct {
	Enabled                  bool            `json:"enabled" env:"BOTTOMFEED_SWARM_ENABLED"`
	Agents                   []ChannelConfig `json:"agents"`
	CoordinationInterval     int             `json:"coordination_interval" env:"BOTTOMFEED_SWARM_COORDINATION_INTERVAL"` // seconds, 10..600
	MaxSharedHistory         int             `json:"max_shared_history" env:"BOTTOMFEED_SWARM_MAX_SHARED_HISTORY"`
	AutoAssignChallengeRoles bool            `json:"auto_assign_challenge_roles"`
	AutoAssignDebates        bool            `json:"auto_assign_debates"`
}

type LoggingConfig struct {
	FileEnabled bool   `json:"file_enabled" env:"BOTTOMFEED_LOGGING_FILE_ENABLED"`
	FilePath    string `json:"file_path" env:"BOTTOMFEED_LOGGING_FILE_PATH"`
	Debug       bool   `json:"debug" env:"BOTTOMFEED_LOGGING_DEBUG"`
}

func DefaultConfig() *Config {
	return &Config{
		Channel: ChannelConfig{
			Enabled:        false,
			APIURL:         "https://bottomfeed.app",
			APIKey:         "",
			AgentUsername:  "",
			PollInterval:   30,
			SSEEnabled:     true,
			AllowFrom:      FlexibleStringSlice{},
			NotifyEvents:   []string{"mention", "reply"},
			DigestInterval: 0,
			Autonomy:       defaultAutonomyConfig(),
		},
		Swarm: SwarmConfig{
			Enabled:                  false,
			CoordinationInterval:     60,
			MaxSharedHistory:         1000,
			AutoAssignChallengeRoles: true,
			AutoAssignDebates:        true,
		},
		Logging: LoggingConfig{
			FileEnabled: false,
			FilePath:    "~/.picoclaw/workspace/bottomfeed.log",
		},
	}
}

func defaultAutonomyConfig() AutonomyConfig {
	return AutonomyConfig{
		Enabled:            false,
		CycleInterval:      120,
		MaxActionsPerCycle: 2,
		Behaviors:          map[string]BehaviorConfig{},
	}
}

// LoadConfig reads the JSON config file (missing file means defaults),
// applies environment overrides, fills behavior defaults and validates.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Channel.Autonomy.fillBehaviorDefaults()
	for i := range cfg.Swarm.Agents {
		cfg.Swarm.Agents[i].Autonomy.fillBehaviorDefaults()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fillBehaviorDefaults ensures every known behavior has a config entry,
// so the autonomy loop's behavior set is complete even with a sparse file.
func (a *AutonomyConfig) fillBehaviorDefaults() {
	if a.Behaviors == nil {
		a.Behaviors = make(map[string]BehaviorConfig, len(ValidBehaviors))
	}
	for _, name := range ValidBehaviors {
		if _, ok := a.Behaviors[name]; !ok {
			a.Behaviors[name] = BehaviorConfig{
				Enabled:  true,
				Weight:   defaultBehaviorWeights[name],
				Cooldown: defaultBehaviorCooldowns[name],
			}
		}
	}
}

func (c *Config) Validate() error {
	if err := c.Channel.Validate(); err != nil {
		return err
	}
	if c.Swarm.Enabled {
		if err := c.Swarm.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *ChannelConfig) Validate() error {
	if c.Enabled {
		if c.APIKey == "" {
			return fmt.Errorf("api_key is required when the channel is enabled")
		}
		if c.AgentUsername == "" {
			return fmt.Errorf("agent_username is required when the channel is enabled")
		}
		if !usernameRe.MatchString(c.AgentUsername) {
			return fmt.Errorf("agent_username must be 1-50 alphanumeric/underscore/hyphen chars, got %q", c.AgentUsername)
		}
		if !strings.HasPrefix(c.APIURL, "https://") {
			return fmt.Errorf("api_url must use HTTPS, got %q", c.APIURL)
		}
	}

	if c.PollInterval < 5 || c.PollInterval > 300 {
		return fmt.Errorf("poll_interval must be in [5, 300], got %d", c.PollInterval)
	}
	if c.DigestInterval < 0 || c.DigestInterval > 3600 {
		return fmt.Errorf("digest_interval must be in [0, 3600], got %d", c.DigestInterval)
	}

	for _, event := range c.NotifyEvents {
		if !validNotifyEvents[event] {
			return fmt.Errorf("invalid notify event %q", event)
		}
	}

	if err := c.Autonomy.Validate(); err != nil {
		return err
	}
	return nil
}

func (a *AutonomyConfig) Validate() error {
	if a.Enabled {
		if a.CycleInterval < 30 || a.CycleInterval > 3600 {
			return fmt.Errorf("autonomy cycle_interval must be in [30, 3600], got %d", a.CycleInterval)
		}
		if a.MaxActionsPerCycle < 1 || a.MaxActionsPerCycle > 5 {
			return fmt.Errorf("autonomy max_actions_per_cycle must be in [1, 5], got %d", a.MaxActionsPerCycle)
		}
	}
	for name := range a.Behaviors {
		if !isValidBehavior(name) {
			return fmt.Errorf("unknown autonomy behavior %q", name)
		}
	}
	return nil
}

func isValidBehavior(name string) bool {
	for _, b := range ValidBehaviors {
		if b == name {
			return true
		}
	}
	return false
}

func (s *SwarmConfig) Validate() error {
	if len(s.Agents) < 2 {
		return fmt.Errorf("swarm requires at least 2 agents, got %d", len(s.Agents))
	}
	seen := make(map[string]bool, len(s.Agents))
	for i := range s.Agents {
		name := s.Agents[i].AgentUsername
		if seen[name] {
			return fmt.Errorf("duplicate agent username %q in swarm", name)
		}
		seen[name] = true
		if err := s.Agents[i].Validate(); err != nil {
			return fmt.Errorf("swarm agent %q: %w", name, err)
		}
	}
	if s.CoordinationInterval < 10 || s.CoordinationInterval > 600 {
		return fmt.Errorf("coordination_interval must be in [10, 600], got %d", s.CoordinationInterval)
	}
	if s.MaxSharedHistory < 100 || s.MaxSharedHistory > 10000 {
		return fmt.Errorf("max_shared_history must be in [100, 10000], got %d", s.MaxSharedHistory)
	}
	return nil
}

// NotificationsEnabled reports whether owner forwarding is configured.
func (c *ChannelConfig) NotificationsEnabled() bool {
	return c.OwnerChannel != "" && c.OwnerChatID != ""
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
