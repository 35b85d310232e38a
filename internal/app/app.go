// Package app wires the application together.
//
// Setup builds every component from configuration: tracing, the
// database pool (optional), Genkit with the configured model
// providers, the document library, retrieval, profile and
// conversation stores, the tool kit and the chat agent. App is the
// container handed to entry points; Close releases everything in
// reverse order.
package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/memoraiz/onboard/internal/chat"
	"github.com/memoraiz/onboard/internal/config"
	"github.com/memoraiz/onboard/internal/conversation"
	"github.com/memoraiz/onboard/internal/corpus"
	"github.com/memoraiz/onboard/internal/knowledge"
	"github.com/memoraiz/onboard/internal/profile"
	"github.com/memoraiz/onboard/internal/retrieval"
	"github.com/memoraiz/onboard/internal/tools"
)

// App is the application container. Optional fields are nil when the
// corresponding backend is not configured.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder   // nil without a Gemini API key
	DBPool   *pgxpool.Pool // nil without PostgreSQL

	Library   *corpus.Library
	Knowledge *knowledge.Store // nil without PostgreSQL and embedder
	Retrieval *retrieval.Service

	Profiles     *profile.Cache
	ProfileStore *profile.Store      // nil without PostgreSQL
	Messages     *conversation.Store // nil without PostgreSQL

	Kit   *tools.Kit
	Agent *chat.Agent
	Flow  *chat.Flow

	// LLMConfigured reports whether at least one model provider has an
	// API key. Without one the hero answers still work but every other
	// turn fails.
	LLMConfigured bool

	otelCleanup func()
}

// Close shuts down background work and releases resources.
// Safe to call on a partially initialized App.
func (a *App) Close() error {
	var errs []error

	if a.Agent != nil {
		if err := a.Agent.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.Kit != nil {
		if err := a.Kit.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return errors.Join(errs...)
}

// Warm loads and chunks the document corpus so the first request does
// not pay for it.
func (a *App) Warm(ctx context.Context) {
	if _, err := a.Library.Chunks(ctx); err != nil {
		a.Logger.Warn("corpus preload failed, lexical retrieval unavailable", "error", err)
	}
}
