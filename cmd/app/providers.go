package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/mealsnap/mealsnap/internal/domain/analysis"
	"github.com/mealsnap/mealsnap/internal/domain/capture"
	"github.com/mealsnap/mealsnap/internal/domain/history"
	"github.com/mealsnap/mealsnap/internal/domain/session"
	"github.com/mealsnap/mealsnap/internal/infra/camera/snapcam"
	"github.com/mealsnap/mealsnap/internal/infra/config"
	"github.com/mealsnap/mealsnap/internal/infra/historystore"
	"github.com/mealsnap/mealsnap/internal/infra/imagestore"
	"github.com/mealsnap/mealsnap/internal/infra/llm/gemini"
)

func provideAnalysisConfig(cfg *config.Config) analysis.Config {
	return analysis.Config{
		VisionModel: cfg.LLM.VisionModel,
		SpeechModel: cfg.LLM.SpeechModel,
		SpeechVoice: cfg.LLM.SpeechVoice,
		Temperature: cfg.LLM.Temperature,
	}
}

func provideGenAIClient(cfg *config.Config, logger *slog.Logger) (analysis.GenAIClient, error) {
	if strings.TrimSpace(cfg.LLM.APIKey) == "" {
		logger.Warn("llm api key missing, analysis is disabled until configured")
		return analysis.UnconfiguredClient{}, nil
	}
	return gemini.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func provideHistoryStore(cfg *config.Config, logger *slog.Logger) history.Store {
	switch cfg.History.Backend {
	case "memory":
		return historystore.NewMemoryStore()
	case "valkey":
		return provideValkeyHistoryStore(cfg, logger)
	case "postgres":
		return providePostgresHistoryStore(cfg, logger)
	default:
		logger.Info("history file store enabled", "path", cfg.History.FilePath)
		return historystore.NewFileStore(cfg.History.FilePath)
	}
}

func provideValkeyHistoryStore(cfg *config.Config, logger *slog.Logger) history.Store {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: strings.Split(cfg.History.Valkey.Addr, ","),
	})
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory store", "error", err)
		return historystore.NewMemoryStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory store", "error", err)
		return historystore.NewMemoryStore()
	}
	logger.Info("history valkey store enabled", "addr", cfg.History.Valkey.Addr)
	return historystore.NewValkeyStore(client, "")
}

func providePostgresHistoryStore(cfg *config.Config, logger *slog.Logger) history.Store {
	poolConfig, err := pgxpool.ParseConfig(cfg.History.Postgres.DSN)
	if err != nil {
		logger.Error("invalid postgres dsn, falling back to memory store", "error", err)
		return historystore.NewMemoryStore()
	}
	if cfg.History.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.History.Postgres.MaxConns
	}
	if cfg.History.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.History.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, falling back to memory store", "error", err)
		return historystore.NewMemoryStore()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	store := historystore.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("postgres schema setup failed, falling back to memory store", "error", err)
		pool.Close()
		return historystore.NewMemoryStore()
	}
	logger.Info("history postgres store enabled")
	return store
}

func provideCaptureArchive(cfg *config.Config, logger *slog.Logger) capture.Archive {
	if !cfg.Archive.Enabled {
		return capture.NoopArchive{}
	}
	archive, err := imagestore.NewMinioArchive(
		cfg.Archive.Endpoint,
		cfg.Archive.AccessKey,
		cfg.Archive.SecretKey,
		cfg.Archive.Bucket,
		cfg.Archive.Region,
		logger,
	)
	if err != nil {
		logger.Error("capture archive unavailable, continuing without it", "error", err)
		return capture.NoopArchive{}
	}
	logger.Info("capture archive enabled", "bucket", cfg.Archive.Bucket)
	return archive
}

func provideCaptureFactory(cfg *config.Config, logger *slog.Logger) session.CaptureFactory {
	captureCfg := capture.Config{
		MaxDimension: cfg.Capture.MaxDimension,
		JPEGQuality:  cfg.Capture.JPEGQuality,
	}
	provider := snapcam.NewProvider(cfg.Capture.FrontURL, cfg.Capture.BackURL)
	return func() *capture.Service {
		if provider.Enabled() {
			return capture.NewService(captureCfg, provider, logger)
		}
		return capture.NewService(captureCfg, nil, logger)
	}
}

func provideSessionMachine(
	cfg *config.Config,
	analyzer analysis.Service,
	hist *history.Service,
	archive capture.Archive,
	factory session.CaptureFactory,
	logger *slog.Logger,
) *session.Machine {
	return session.NewMachine(session.Config{
		IdleTTL: cfg.Session.IdleTTL,
	}, analyzer, hist, archive, factory, logger)
}
