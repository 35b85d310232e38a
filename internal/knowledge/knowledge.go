// Package knowledge stores document chunks with vector embeddings in
// PostgreSQL and serves nearest-neighbor searches over them via pgvector.
package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// VectorDimension is the embedding width of the onboarding_documents table.
// The configured embedder must produce vectors of this size.
const VectorDimension = 1536

// Document is a chunk of reference material to index.
type Document struct {
	Content string
	Title   string
	Source  string
}

// Result is a search hit. Score is cosine similarity in [0, 1], where 1 means
// the stored embedding equals the query embedding.
type Result struct {
	Content string  `json:"content"`
	Title   string  `json:"title"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// DB is the database surface Store needs. *pgxpool.Pool satisfies it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store runs embedding generation and vector ops against one table.
// Safe for concurrent use.
type Store struct {
	db       DB
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store over db using embedder for both indexing and querying.
func New(db DB, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, embedder: embedder, logger: logger}
}

// Add embeds doc's content and inserts it.
func (s *Store) Add(ctx context.Context, doc Document) error {
	embedding, err := s.embed(ctx, doc.Content)
	if err != nil {
		return fmt.Errorf("embed document from %s: %w", doc.Source, err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO onboarding_documents (content, title, source, embedding)
		 VALUES ($1, $2, $3, $4)`,
		doc.Content, doc.Title, doc.Source, embedding)
	if err != nil {
		return fmt.Errorf("insert document from %s: %w", doc.Source, err)
	}

	s.logger.Debug("indexed document chunk", "source", doc.Source, "title", doc.Title, "length", len(doc.Content))
	return nil
}

// Search embeds query and returns the limit nearest chunks by cosine
// distance, closest first.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	embedding, err := s.embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT content, title, source, 1 - (embedding <=> $1) AS score
		 FROM onboarding_documents
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.Content, &r.Title, &r.Source, &r.Score); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read search rows: %w", err)
	}
	return results, nil
}

// Truncate removes all indexed chunks. Used before a full re-ingest.
func (s *Store) Truncate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `TRUNCATE onboarding_documents`); err != nil {
		return fmt.Errorf("truncate documents: %w", err)
	}
	return nil
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input: []*ai.Document{
			{Content: []*ai.Part{ai.NewTextPart(text)}},
		},
	})
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("embedder returned no embedding")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}
