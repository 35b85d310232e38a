package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memoraiz/onboard/db"
	"github.com/memoraiz/onboard/internal/chat"
	"github.com/memoraiz/onboard/internal/config"
	"github.com/memoraiz/onboard/internal/conversation"
	"github.com/memoraiz/onboard/internal/corpus"
	"github.com/memoraiz/onboard/internal/knowledge"
	"github.com/memoraiz/onboard/internal/observability"
	"github.com/memoraiz/onboard/internal/profile"
	"github.com/memoraiz/onboard/internal/retrieval"
	"github.com/memoraiz/onboard/internal/tools"
)

// Setup creates and initializes the application.
// On error everything already initialized is released.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideOtelShutdown(ctx, cfg)

	if cfg.HasPostgres() {
		pool, err := provideDBPool(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.DBPool = pool
	} else {
		logger.Info("PostgreSQL not configured, running with in-memory state and lexical retrieval only")
	}

	g, llmConfigured := provideGenkit(ctx, logger)
	a.Genkit = g
	a.LLMConfigured = llmConfigured

	a.Embedder = provideEmbedder(g, cfg)

	a.Library = corpus.NewLibrary(cfg.DocsDir, cfg.DocFiles, logger)

	if a.DBPool != nil && a.Embedder != nil {
		a.Knowledge = knowledge.New(a.DBPool, a.Embedder, logger)
	}

	// retrieval.New takes an interface; a typed nil *knowledge.Store must
	// not reach it.
	if a.Knowledge != nil {
		a.Retrieval = retrieval.New(a.Knowledge, a.Library, logger)
	} else {
		a.Retrieval = retrieval.New(nil, a.Library, logger)
	}

	a.Profiles = profile.NewCache()
	if a.DBPool != nil {
		a.ProfileStore = profile.NewStore(a.DBPool, logger)
		a.Messages = conversation.NewStore(a.DBPool, logger)
	}

	kit, err := tools.NewKit(a.Retrieval, a.Profiles, a.ProfileStore, logger)
	if err != nil {
		return nil, fmt.Errorf("creating tool kit: %w", err)
	}
	a.Kit = kit

	agent, err := chat.New(chat.Config{
		Genkit:             g,
		Models:             cfg.Models,
		Tools:              kit.Register(g),
		Profiles:           a.Profiles,
		ProfileStore:       a.ProfileStore,
		Messages:           a.Messages,
		Logger:             logger,
		MaxTurns:           cfg.MaxTurns,
		MaxHistoryMessages: int(cfg.MaxHistoryMessages),
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat agent: %w", err)
	}
	a.Agent = agent
	a.Flow = chat.InitFlow(g, agent)

	return a, nil
}

// provideOtelShutdown sets up OTLP tracing before Genkit is used so the
// TracerProvider is ready when flows start.
func provideOtelShutdown(ctx context.Context, cfg *config.Config) func() {
	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.Otel.Endpoint,
		Environment: cfg.Otel.Environment,
		ServiceName: cfg.Otel.ServiceName,
	})
	if err != nil {
		slog.Warn("tracing setup failed, continuing without", "error", err)
		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideGenkit initializes Genkit with every model provider that has
// an API key. Generation races the configured models, so all providers
// named in cfg.Models should be live.
func provideGenkit(ctx context.Context, logger *slog.Logger) (*genkit.Genkit, bool) {
	googleKey := os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != ""
	openaiKey := os.Getenv("OPENAI_API_KEY") != ""

	var g *genkit.Genkit
	switch {
	case googleKey && openaiKey:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}, &openai.OpenAI{}))
	case googleKey:
		g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	case openaiKey:
		g = genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
	default:
		g = genkit.Init(ctx)
		logger.Warn("no model provider API key found, only canned answers will work")
		return g, false
	}

	logger.Info("genkit initialized", "googleai", googleKey, "openai", openaiKey)
	return g, true
}

// provideEmbedder looks up the configured Gemini embedder. Its output
// dimension must match the pgvector column; a mismatch fails the insert.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) ai.Embedder {
	if os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "" {
		return nil
	}
	return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
}

// provideDBPool runs migrations and creates a PostgreSQL connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
