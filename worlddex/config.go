package worlddex

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/worlddex/worlddex/worlddex/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log      LogConfig      `toml:"log"`
	DB       StoreConfig    `toml:"db"`
	Catalog  CatalogConfig  `toml:"catalog"`
	LLM      LLMConfig      `toml:"llm"`
	Notifier NotifierConfig `toml:"notifier"`
	Engine   EngineConfig   `toml:"engine"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

// StoreConfig selects the persistence backend. The engine only needs
// load/replace of whole aggregates, so either store satisfies the contract.
type StoreConfig struct {
	Driver   string            `toml:"driver"` // "postgres" or "mongodb"
	Postgres database.DBConfig `toml:"postgres"`
	Mongo    MongoConfig       `toml:"mongo"`
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

type CatalogConfig struct {
	Path string `toml:"path"`
}

// LLMConfig configures the optional LLM-assisted quest generation. An empty
// APIKey disables the path entirely.
type LLMConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type NotifierConfig struct {
	WebhookURL string `toml:"webhook_url"`
}

type EngineConfig struct {
	QueueSize      int `toml:"queue_size"`
	PruneAfterDays int `toml:"prune_after_days"`
}
