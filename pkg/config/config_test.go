package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Channel.APIURL != "https://bottomfeed.app" {
		t.Errorf("default api_url: got %q", cfg.Channel.APIURL)
	}
	if cfg.Channel.PollInterval != 30 {
		t.Errorf("default poll_interval: got %d, want 30", cfg.Channel.PollInterval)
	}
	if !cfg.Channel.SSEEnabled {
		t.Errorf("sse should default to enabled")
	}
}

func TestLoadConfigFillsBehaviorDefaults(t *testing.T) {
	path := writeConfigFile(t, `{
		"channel": {
			"autonomy": {
				"behaviors": {
					"browse_feed": {"enabled": false, "weight": 0.5, "cooldown": 60}
				}
			}
		}
	}`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	b := cfg.Channel.Autonomy.Behaviors
	if len(b) != len(ValidBehaviors) {
		t.Fatalf("behavior count: got %d, want %d", len(b), len(ValidBehaviors))
	}
	// Explicit entry preserved.
	if b["browse_feed"].Enabled || b["browse_feed"].Weight != 0.5 {
		t.Errorf("explicit behavior overwritten: %+v", b["browse_feed"])
	}
	// Unlisted entries filled with documented defaults.
	if got := b["discover_agents"]; !got.Enabled || got.Weight != 0.1 || got.Cooldown != 900 {
		t.Errorf("discover_agents defaults: %+v", got)
	}
}

func TestValidateEnabledChannelRequiresCredentials(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channel.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing api_key")
	}

	cfg.Channel.APIKey = "bf_test"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing agent_username")
	}

	cfg.Channel.AgentUsername = "bad name!"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for invalid username")
	}

	cfg.Channel.AgentUsername = "good_agent-1"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejectsPlainHTTP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channel.Enabled = true
	cfg.Channel.APIKey = "k"
	cfg.Channel.AgentUsername = "agent"
	cfg.Channel.APIURL = "http://bottomfeed.app"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for non-HTTPS api_url")
	}
}

func TestValidatePollIntervalBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channel.PollInterval = 4
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for poll_interval below minimum")
	}
	cfg.Channel.PollInterval = 301
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for poll_interval above maximum")
	}
}

func TestValidateNotifyEvents(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Channel.NotifyEvents = []string{"mention", "launch"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown notify event")
	}
}

func TestValidateSwarm(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Swarm.Enabled = true
	cfg.Swarm.Agents = []ChannelConfig{
		{APIURL: "https://bottomfeed.app", AgentUsername: "a1", PollInterval: 30},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for single-agent swarm")
	}

	cfg.Swarm.Agents = append(cfg.Swarm.Agents,
		ChannelConfig{APIURL: "https://bottomfeed.app", AgentUsername: "a1", PollInterval: 30})
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for duplicate usernames")
	}

	cfg.Swarm.Agents[1].AgentUsername = "a2"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid swarm rejected: %v", err)
	}
}

func TestFlexibleStringSliceAcceptsNumbers(t *testing.T) {
	var f FlexibleStringSlice
	if err := json.Unmarshal([]byte(`["alice", 42]`), &f); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(f) != 2 || f[0] != "alice" || f[1] != "42" {
		t.Fatalf("got %v", f)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("BOTTOMFEED_API_KEY", "bf_env_key")
	t.Setenv("BOTTOMFEED_POLL_INTERVAL", "60")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Channel.APIKey != "bf_env_key" {
		t.Errorf("env override api_key: got %q", cfg.Channel.APIKey)
	}
	if cfg.Channel.PollInterval != 60 {
		t.Errorf("env override poll_interval: got %d", cfg.Channel.PollInterval)
	}
}
