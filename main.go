package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/worlddex/worlddex/worlddex"
	"github.com/worlddex/worlddex/worlddex/catalog"
	"github.com/worlddex/worlddex/worlddex/database"
	"github.com/worlddex/worlddex/worlddex/database/repositories"
	"github.com/worlddex/worlddex/worlddex/logger"
	"github.com/worlddex/worlddex/worlddex/notifier"
	"github.com/worlddex/worlddex/worlddex/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler(slog.LevelInfo)
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting WorldDex quest engine",
		slog.String("version", version),
		slog.String("commit", commit))

	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := worlddex.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	if cfg.Log.Level != slog.LevelInfo {
		slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var (
		questRepo repositories.QuestRepository
		statsRepo repositories.StatsRepository
	)

	switch cfg.DB.Driver {
	case "mongodb":
		client, err := repositories.ConnectMongo(ctx, cfg.DB.Mongo.URI)
		if err != nil {
			slog.Error("MongoDB connection failed", slog.Any("error", err))
			os.Exit(-1)
		}
		defer client.Disconnect(context.Background())

		questRepo = repositories.NewMongoQuestRepository(client, cfg.DB.Mongo.Database)
		statsRepo = repositories.NewMongoStatsRepository(client, cfg.DB.Mongo.Database)
		slog.Info("MongoDB connected", slog.String("database", cfg.DB.Mongo.Database))

	default:
		dbStartTime := time.Now()
		db, err := database.New(ctx, cfg.DB.Postgres)
		if err != nil {
			slog.Error("Database connection failed",
				slog.Any("error", err),
				slog.Duration("attempted_for", time.Since(dbStartTime)))
			os.Exit(-1)
		}
		defer db.Close()

		if err := db.InitializeSchema(ctx); err != nil {
			slog.Error("Failed to initialize database schema", slog.Any("error", err))
			os.Exit(-1)
		}

		questRepo = repositories.NewQuestRepository(db.BunDB())
		statsRepo = repositories.NewStatsRepository(db.BunDB())
		slog.Info("Database connected",
			slog.String("database", cfg.DB.Postgres.Database),
			slog.Duration("took", time.Since(dbStartTime)))
	}

	provider, err := catalog.LoadFile(cfg.Catalog.Path)
	if err != nil {
		slog.Error("Failed to load catalog", slog.Any("error", err))
		os.Exit(-1)
	}

	var llm services.LLMClient
	if cfg.LLM.APIKey != "" {
		llm = services.NewOpenAIClient(
			cfg.LLM.BaseURL,
			cfg.LLM.APIKey,
			cfg.LLM.Model,
			time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
		slog.Info("LLM-assisted quest generation enabled", slog.String("model", cfg.LLM.Model))
	}

	var notify services.Notifier
	if cfg.Notifier.WebhookURL != "" {
		discordNotifier, err := notifier.NewDiscord(cfg.Notifier.WebhookURL)
		if err != nil {
			slog.Error("Failed to set up Discord notifier", slog.Any("error", err))
			os.Exit(-1)
		}
		defer discordNotifier.Close(context.Background())
		notify = discordNotifier
	}

	generator := services.NewQuestGenerator(provider, llm)
	questStore := services.NewQuestStore(questRepo, generator)
	statsService := services.NewStatsService(statsRepo)
	tracker := services.NewProgressTracker(questStore, statsService, notify)

	engine := worlddex.NewEngine(provider, questStore, statsService, tracker, cfg.Engine)
	if err := engine.Start(ctx); err != nil {
		slog.Error("Failed to start quest engine", slog.Any("error", err))
		os.Exit(-1)
	}

	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s

	slog.Info("Shutting down quest engine...")
	if err := engine.Close(); err != nil {
		slog.Error("Engine shutdown failed", slog.Any("error", err))
	}
}
