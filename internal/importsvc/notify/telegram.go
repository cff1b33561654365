// Package notify alerts operators on Telegram when an import fails.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avvvet/manavault/internal/importsvc/importer"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

const maxChatIDs = 3

// Sender is satisfied by *tgbotapi.BotAPI.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends failure alerts, and one recovery message when a
// run succeeds after a failure.
type TelegramNotifier struct {
	bot     Sender
	chatIDs []int64

	mu         sync.Mutex
	lastFailed bool
}

func NewTelegramNotifier(botToken string, chatIDs []int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return New(bot, chatIDs), nil
}

func New(bot Sender, chatIDs []int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatIDs: chatIDs}
}

// ParseChatIDs reads TELEGRAM_CHAT_ID_1..3 through getenv. Bad values are
// logged and skipped.
func ParseChatIDs(getenv func(string) string) []int64 {
	var chatIDs []int64
	for i := 1; i <= maxChatIDs; i++ {
		key := fmt.Sprintf("TELEGRAM_CHAT_ID_%d", i)
		raw := strings.TrimSpace(getenv(key))
		if raw == "" {
			continue
		}
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			log.Errorf("Invalid %s format: %v", key, err)
			continue
		}
		chatIDs = append(chatIDs, chatID)
	}
	return chatIDs
}

// SendNotification sends message to every configured chat and returns the
// number of chats that accepted it.
func (tn *TelegramNotifier) SendNotification(message string) int {
	if tn == nil || tn.bot == nil {
		return 0
	}

	sent := 0
	for _, chatID := range tn.chatIDs {
		msg := tgbotapi.NewMessage(chatID, message)
		if _, err := tn.bot.Send(msg); err != nil {
			log.Errorf("Failed to send telegram message to chat %d: %v", chatID, err)
			continue
		}
		sent++
	}
	return sent
}

// Report implements importer.Reporter.
func (tn *TelegramNotifier) Report(_ context.Context, r importer.Report) {
	tn.mu.Lock()
	wasFailing := tn.lastFailed
	tn.lastFailed = !r.Succeeded()
	tn.mu.Unlock()

	switch {
	case !r.Succeeded():
		tn.SendNotification(FailureMessage(r))
	case wasFailing:
		tn.SendNotification(RecoveryMessage(r))
	}
}

func FailureMessage(r importer.Report) string {
	var b strings.Builder
	b.WriteString("❌ Card import failed\n\n")
	fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	fmt.Fprintf(&b, "Bulk type: %s\n", r.BulkType)
	fmt.Fprintf(&b, "Fetched: %d\n", r.Fetched)
	fmt.Fprintf(&b, "Duration: %s\n", r.Duration().Round(time.Second))
	fmt.Fprintf(&b, "Error: %s\n\n", r.Error)
	b.WriteString("The previous card data is still being served.")
	return b.String()
}

func RecoveryMessage(r importer.Report) string {
	return fmt.Sprintf("✅ Card import recovered\n\nRun: %s\nCards: %d in %d batches\nDuration: %s",
		r.RunID, r.Inserted, r.Batches, r.Duration().Round(time.Second))
}
