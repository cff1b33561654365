package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	configs "github.com/avvvet/manavault/configs"
	"github.com/avvvet/manavault/internal/importsvc/notify"
	"github.com/avvvet/manavault/internal/importsvc/scryfall"
	"github.com/avvvet/manavault/internal/importsvc/writer"
)

type Config struct {
	DBUrl       string
	ScryfallURL string
	BulkType    string
	BatchSize   int
	Cron        string
	Timeout     time.Duration
	MetricsPort string

	HeartbeatInterval time.Duration // 0 disables

	// optional sinks, empty disables
	NatsURL        string
	MongoURI       string
	HistoryTTL     time.Duration
	TelegramToken  string
	TelegramChatID []int64
}

func Load() Config {
	return Config{
		DBUrl:             configs.GetEnv("POSTGRES_URL", ""),
		ScryfallURL:       configs.GetEnv("SCRYFALL_BASE_URL", scryfall.DefaultBaseURL),
		BulkType:          configs.GetEnv("IMPORT_BULK_TYPE", scryfall.DefaultBulkType),
		BatchSize:         configs.GetEnvInt("IMPORT_BATCH_SIZE", writer.DefaultBatchSize),
		Cron:              configs.GetEnv("IMPORT_CRON", "0 3 * * *"),
		Timeout:           configs.GetEnvDuration("IMPORT_TIMEOUT", 30*time.Minute),
		MetricsPort:       configs.GetEnv("METRICS_PORT", "9102"),
		HeartbeatInterval: configs.GetEnvDuration("HEARTBEAT_INTERVAL", 30*time.Second),
		NatsURL:           configs.GetEnv("NATS_URL", ""),
		MongoURI:          configs.GetEnv("MONGODB_URI", ""),
		HistoryTTL:        configs.GetEnvDuration("IMPORT_HISTORY_TTL", 30*24*time.Hour),
		TelegramToken:     configs.GetEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:    notify.ParseChatIDs(os.Getenv),
	}
}

func (c Config) Validate() error {
	if c.DBUrl == "" {
		return errors.New("POSTGRES_URL is required")
	}
	// <= 0 is left to the writer, which uses writer.DefaultBatchSize
	if c.BatchSize > writer.MaxBatchSize {
		return fmt.Errorf("IMPORT_BATCH_SIZE %d: %w (max %d)", c.BatchSize, writer.ErrBatchTooLarge, writer.MaxBatchSize)
	}
	return nil
}
