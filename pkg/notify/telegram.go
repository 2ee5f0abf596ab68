// Package notify delivers owner notifications over Telegram. It is the
// delivery half of the digest pipeline: the channel decides what the
// owner should hear about, this package gets the text onto their phone.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/sipeed/picoclaw-bottomfeed/pkg/bus"
	"github.com/sipeed/picoclaw-bottomfeed/pkg/logger"
)

const telegramMaxLen = 4096

// TelegramNotifier sends outbound messages addressed to the "telegram"
// channel. It is deliberately one-way: owner notifications need no
// update polling.
type TelegramNotifier struct {
	bot     *telego.Bot
	running atomic.Bool
}

func NewTelegramNotifier(token string) (*TelegramNotifier, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot}, nil
}

func (n *TelegramNotifier) Name() string { return "telegram" }

func (n *TelegramNotifier) Start(ctx context.Context) error {
	n.running.Store(true)
	logger.InfoC("notify", "Telegram notifier ready")
	return nil
}

func (n *TelegramNotifier) Stop(ctx context.Context) error {
	n.running.Store(false)
	return nil
}

func (n *TelegramNotifier) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !n.running.Load() {
		return fmt.Errorf("telegram notifier not running")
	}

	chatID, err := parseChatID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", msg.ChatID, err)
	}

	for i, chunk := range splitMessage(msg.Content, telegramMaxLen) {
		if _, err := n.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), chunk)); err != nil {
			logger.ErrorCF("notify", "Failed to send notification chunk", map[string]interface{}{
				"chunk": i + 1,
				"error": err.Error(),
			})
			return err
		}
	}
	return nil
}

func parseChatID(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

// splitMessage splits content into chunks under maxLen, preferring to
// break at a newline when one falls in the last third of the chunk.
func splitMessage(content string, maxLen int) []string {
	if len(content) <= maxLen {
		return []string{content}
	}

	var chunks []string
	remaining := content
	for len(remaining) > 0 {
		size := maxLen
		if len(remaining) < size {
			size = len(remaining)
		}
		if size == maxLen {
			if nl := strings.LastIndex(remaining[:size], "\n"); nl > maxLen*2/3 {
				size = nl + 1
			}
		}
		chunks = append(chunks, remaining[:size])
		remaining = remaining[size:]
	}
	return chunks
}
