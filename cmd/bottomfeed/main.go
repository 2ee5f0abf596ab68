package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/bus"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/channels"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/config"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/logger"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/notify"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/swarm"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/utils"
)

func main() {
	configPath := flag.String("config", "~/.picoclaw/bottomfeed.json", "path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(expandHome(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if cfg.Logging.Debug {
		logger.SetLevel(logger.DEBUG)
	}
	if cfg.Logging.FileEnabled && cfg.Logging.FilePath != "" {
		if err := logger.EnableFileLogging(cfg.Logging.FilePath); err != nil {
			logger.WarnCF("main", "File logging unavailable", map[string]interface{}{"error": err.Error()})
		}
		defer logger.DisableFileLogging()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var notifier *notify.TelegramNotifier
	if token := telegramToken(cfg); token != "" {
		notifier, err = notify.NewTelegramNotifier(token)
		if err != nil {
			logger.ErrorCF("main", "Telegram notifier setup failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
		if err := notifier.Start(ctx); err != nil {
			logger.ErrorCF("main", "Telegram notifier start failed", map[string]interface{}{"error": err.Error()})
			os.Exit(1)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if cfg.Swarm.Enabled {
		runSwarm(ctx, cfg, notifier, sigCh)
	} else {
		runSingle(ctx, cfg, notifier, sigCh)
	}

	if notifier != nil {
		notifier.Stop(context.Background())
	}
	logger.InfoC("main", "Shutdown complete")
}

func runSingle(ctx context.Context, cfg *config.Config, notifier *notify.TelegramNotifier, sigCh <-chan os.Signal) {
	b := bus.NewMessageBus()
	channel := channels.NewBottomFeedChannel(cfg.Channel, b)

	if err := channel.Start(ctx); err != nil {
		logger.ErrorCF("main", "Channel start failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.InfoCF("main", "BottomFeed gateway running", map[string]interface{}{
		"agent": cfg.Channel.AgentUsername,
	})

	go dispatchOutbound(ctx, b, channel, notifier)
	go logInbound(ctx, b)

	<-sigCh
	logger.InfoC("main", "Shutting down...")
	if err := channel.Stop(context.Background()); err != nil {
		logger.WarnCF("main", "Channel stop error", map[string]interface{}{"error": err.Error()})
	}
}

func runSwarm(ctx context.Context, cfg *config.Config, notifier *notify.TelegramNotifier, sigCh <-chan os.Signal) {
	coord := swarm.NewCoordinator(cfg.Swarm)

	if err := coord.Start(ctx); err != nil {
		logger.ErrorCF("main", "Swarm start failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
	logger.InfoCF("main", "Swarm running", map[string]interface{}{
		"agents": strings.Join(coord.Usernames(), ", "),
	})

	for _, username := range coord.Usernames() {
		handle := coord.Agent(username)
		go dispatchOutbound(ctx, handle.Bus, handle.Channel, notifier)
		go logInbound(ctx, handle.Bus)
	}

	<-sigCh
	logger.InfoC("main", "Shutting down swarm...")
	coord.Stop(context.Background())
}

// dispatchOutbound routes agent-produced messages to their delivery
// surface. Replies go back to BottomFeed, owner notifications to the
// Telegram notifier.
func dispatchOutbound(ctx context.Context, b *bus.MessageBus, channel *channels.BottomFeedChannel, notifier *notify.TelegramNotifier) {
	for {
		msg, ok := b.ConsumeOutbound(ctx)
		if !ok {
			return
		}
		var err error
		switch msg.Channel {
		case channels.ChannelName:
			err = channel.Send(ctx, msg)
		case "telegram":
			if notifier == nil {
				logger.WarnC("main", "Owner notification dropped, no telegram token configured")
				continue
			}
			err = notifier.Send(ctx, msg)
		default:
			logger.WarnCF("main", "No delivery surface for channel", map[string]interface{}{"channel": msg.Channel})
			continue
		}
		if err != nil {
			logger.ErrorCF("main", "Outbound delivery failed", map[string]interface{}{
				"channel": msg.Channel,
				"error":   err.Error(),
			})
		}
	}
}

// logInbound drains inbound events when no agent host is attached, so
// the gateway is observable on its own.
func logInbound(ctx context.Context, b *bus.MessageBus) {
	for {
		msg, ok := b.ConsumeInbound(ctx)
		if !ok {
			return
		}
		logger.InfoCF("main", "Inbound event", map[string]interface{}{
			"sender":  msg.SenderID,
			"type":    msg.Metadata["activity_type"],
			"preview": utils.Truncate(msg.Content, 80),
		})
	}
}

// telegramToken returns the token to run the owner notifier with, or
// empty when no configured agent routes notifications to Telegram.
func telegramToken(cfg *config.Config) string {
	if cfg.Channel.OwnerChannel == "telegram" && cfg.Channel.TelegramToken != "" {
		return cfg.Channel.TelegramToken
	}
	for _, agent := range cfg.Swarm.Agents {
		if agent.OwnerChannel == "telegram" && agent.TelegramToken != "" {
			return agent.TelegramToken
		}
	}
	return ""
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
