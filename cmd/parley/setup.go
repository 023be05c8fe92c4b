package main

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/parley/internal/config"
	"github.com/sandevgo/parley/internal/core"
	"github.com/sandevgo/parley/internal/providers/emotion"
	"github.com/sandevgo/parley/internal/providers/llm"
	"github.com/sandevgo/parley/internal/providers/tts"
	"github.com/sandevgo/parley/internal/service/memory"
	"github.com/sandevgo/parley/internal/service/relay"
	"github.com/sandevgo/parley/internal/storage/postgres"
	"github.com/sandevgo/parley/internal/storage/sqlite"
	"github.com/sandevgo/parley/internal/transport/httpapi"
	"github.com/sandevgo/parley/pkg/log"
	"github.com/sandevgo/parley/pkg/retry"
	"github.com/sandevgo/parley/pkg/srv"
	"github.com/sandevgo/parley/pkg/telemetry"
)

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)
	services := make([]srv.Service, 0)

	// init env
	err := initEnv(ctx, config.GetRuntimePath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	// 1. Configuration
	appCfg := config.NewAppConfig(ctx)
	llmCfg := config.NewLLMConfig(ctx)
	memCfg := config.NewMemoryConfig(ctx)
	voiceCfg := config.NewVoiceConfig(ctx)

	prompts, err := config.LoadPrompts(ctx, appCfg.GetPromptsPath())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load prompts")
	}

	// 2. Telemetry
	var opts []httpapi.Option
	if appCfg.EnableMetrics {
		provider, err := telemetry.New()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to initialize telemetry")
		}
		services = append(services, srv.NewContextCleanup(provider.Shutdown))
		opts = append(opts, httpapi.WithMetrics(provider.Handler()))
	}

	// 3. Storage
	db, repo, err := initStorage(ctx, appCfg, memCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}
	if db != nil {
		services = append(services, srv.NewCleanup(db.Close))
	}
	store := memory.NewStore(repo, memCfg)

	// 4. Language model
	model, err := initLLM(ctx, llmCfg, prompts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}

	// 5. Voice providers
	classifier := emotion.New(voiceCfg.EmotionURL, voiceCfg.EmotionTimeout, voiceCfg.EmotionMinScore)
	speech, err := tts.New(ctx, voiceCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize speech synthesis")
	}

	// 6. Relay
	directive, err := memory.NewDirective(prompts.GetReplyDirective())
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid reply directive")
	}
	summarizer := memory.NewSummarizer(model, store, prompts, memCfg.GetSummaryTimeout())
	relayHandler := relay.NewHandler(appCfg, relay.NewResponder(model, classifier, store, directive), summarizer)

	// 7. Transport
	server := httpapi.NewServer(appCfg, relayHandler, speech, model, prompts.GetGenerateDirective(), opts...)
	services = append(services, server)

	logger.Info().
		Str("llm", llmCfg.Provider).
		Str("memory", memCfg.Backend).
		Str("tts", voiceCfg.TTSProvider).
		Bool("memory_enabled", store.Enabled()).
		Msg("services configured")

	return services
}

// initStorage opens the configured memory backend. The "none" backend returns
// a nil repository and memory is disabled.
func initStorage(ctx context.Context, appCfg *config.AppConfig, cfg *config.MemoryConfig) (*sql.DB, core.MemoryRepository, error) {
	switch cfg.Backend {
	case config.MemoryBackendNone:
		return nil, nil, nil
	case config.MemoryBackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return db, postgres.NewMemoryRepo(db), nil
	default:
		db, err := sqlite.NewDB(ctx, appCfg.GetDatabasePath())
		if err != nil {
			return nil, nil, err
		}
		return db, sqlite.NewMemoryRepo(db), nil
	}
}

func initLLM(ctx context.Context, cfg *config.LLMConfig, prompts *config.Prompts) (*llm.Client, error) {
	chat, err := llm.NewChatProvider(ctx, cfg)
	if err != nil {
		return nil, err
	}
	embedder, err := llm.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	retryCfg := retry.NewUpstreamConfig()
	retryCfg.MaxRetries = cfg.Retries

	return llm.NewClient(chat, embedder,
		llm.WithRetrier(retry.NewRetrier(retryCfg)),
		llm.WithFallback(prompts.GetFallbackReply()),
		llm.WithEmbedMaxTokens(cfg.EmbeddingMaxTokens),
	), nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
