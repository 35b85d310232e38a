// Package retrieval unifies the two document search paths behind one call:
// semantic search over pgvector when storage is configured, with the
// in-process lexical index as fallback. Callers never see a vector failure;
// the worst case is lexical-only results.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/memoraiz/onboard/internal/corpus"
	"github.com/memoraiz/onboard/internal/knowledge"
)

// Snippet is one retrieved piece of reference material, whichever path
// produced it. Score is path-specific: cosine similarity for vector hits,
// the lexical score for fallback hits.
type Snippet struct {
	Content string  `json:"content"`
	Title   string  `json:"title"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// VectorSearcher is the semantic search surface. *knowledge.Store satisfies
// it.
type VectorSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]knowledge.Result, error)
}

// Service routes retrieval requests. A nil vector searcher means lexical
// only.
type Service struct {
	vector  VectorSearcher
	lexical *corpus.Library
	logger  *slog.Logger
}

// New creates a Service. vector may be nil; lexical must not be.
func New(vector VectorSearcher, lexical *corpus.Library, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{vector: vector, lexical: lexical, logger: logger}
}

// Retrieve returns up to limit snippets for query. The vector path is tried
// first when configured; on error or an empty result the lexical index
// answers instead.
func (s *Service) Retrieve(ctx context.Context, query string, limit int) ([]Snippet, error) {
	if limit <= 0 {
		limit = corpus.DefaultSearchLimit
	}

	if s.vector != nil {
		results, err := s.vector.Search(ctx, query, limit)
		switch {
		case err != nil:
			s.logger.Warn("vector search failed, falling back to lexical", "error", err)
		case len(results) > 0:
			snippets := make([]Snippet, len(results))
			for i, r := range results {
				snippets[i] = Snippet{Content: r.Content, Title: r.Title, Source: r.Source, Score: r.Score}
			}
			return snippets, nil
		}
	}

	scored, err := s.lexical.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	snippets := make([]Snippet, len(scored))
	for i, sc := range scored {
		snippets[i] = Snippet{Content: sc.Content, Title: sc.Title, Source: sc.Source, Score: float64(sc.Score)}
	}
	return snippets, nil
}
