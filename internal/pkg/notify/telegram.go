// Package notify sends run summaries to a Telegram chat.
package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/superodds/oddscollector/internal/pkg/pipeline"
	"github.com/superodds/oddscollector/internal/pkg/storage"
)

// TelegramNotifier posts collection run summaries. A nil notifier is
// valid and does nothing, so callers never branch on whether Telegram
// is configured.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegramNotifier connects to the bot API. Returns nil when the
// token is empty or the connection fails; the collector runs without
// notifications in both cases.
func NewTelegramNotifier(token string, chatID int64) *TelegramNotifier {
	if token == "" || chatID == 0 {
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("Failed to create telegram bot", "error", err)
		return nil
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		slog.Error("Failed to get bot info", "error", err)
		return nil
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

// SendRunSummary posts one message covering all provider runs of a
// cycle plus the outcome of the cycle-level merge stage.
func (n *TelegramNotifier) SendRunSummary(runID string, stats []pipeline.RunStats, merged storage.BulkResult) {
	if n == nil || len(stats) == 0 {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Collection run %s\n", runID)
	for _, s := range stats {
		fmt.Fprintf(&b, "\n%s: %d listed, %d enriched, %d persisted (%s)",
			s.Provider, s.Collected, s.Enriched,
			s.Persisted.Upserted+s.Persisted.Modified,
			s.Duration.Round(time.Second))
		if s.LostBatches > 0 {
			fmt.Fprintf(&b, " ⚠️ %d lost batches", s.LostBatches)
		}
	}
	fmt.Fprintf(&b, "\n\nmerged: %d new, %d updated", merged.Upserted, merged.Modified)

	msg := tgbotapi.NewMessage(n.chatID, b.String())
	if _, err := n.bot.Send(msg); err != nil {
		slog.Error("Failed to send run summary", "error", err)
	}
}
