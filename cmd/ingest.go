package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/memoraiz/onboard/internal/app"
	"github.com/memoraiz/onboard/internal/config"
	"github.com/memoraiz/onboard/internal/knowledge"
)

// ingestParallelism bounds concurrent embedding calls.
const ingestParallelism = 4

// runIngest chunks the document corpus, embeds every chunk and writes
// the vectors to PostgreSQL. The table is truncated first so repeated
// runs stay idempotent.
func runIngest(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if !cfg.HasPostgres() {
		return fmt.Errorf("ingest requires PostgreSQL, set DATABASE_URL or postgres_* config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if a.Knowledge == nil {
		return fmt.Errorf("ingest requires an embedder, set GEMINI_API_KEY")
	}

	chunks, err := a.Library.Chunks(ctx)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}

	if err := a.Knowledge.Truncate(ctx); err != nil {
		return fmt.Errorf("truncating documents: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ingestParallelism)
	for _, chunk := range chunks {
		g.Go(func() error {
			return a.Knowledge.Add(gctx, knowledge.Document{
				Content: chunk.Content,
				Title:   chunk.Title,
				Source:  chunk.Source,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("indexing corpus: %w", err)
	}

	logger.Info("corpus indexed", "chunks", len(chunks))
	return nil
}
