// Package corpus turns the product's reference documents into a searchable,
// scored chunk collection.
//
// The Library loads documents once per process (markdown and plain text are
// split section-aware, PDFs are extracted whole) and serves lexical searches
// over the resulting chunks. Both the chunk set and per-query score lists are
// cached for the process lifetime; the corpus is static input data, so
// neither cache is ever invalidated.
package corpus

import (
	"context"
	"log/slog"
	"sync"
)

// Chunk is a fixed-size, possibly overlapping slice of a source document,
// prefixed with its enclosing section title. Immutable once created.
type Chunk struct {
	Content string `json:"content"`
	Source  string `json:"source"`
	Title   string `json:"title"`
}

// ScoredChunk is a Chunk with its lexical relevance score for one query.
type ScoredChunk struct {
	Chunk
	Score int `json:"score"`
}

// DefaultSearchLimit is used when a caller requests a non-positive limit.
const DefaultSearchLimit = 5

// Library owns the chunk corpus and its caches.
//
// Library is safe for concurrent use. Chunks are loaded lazily on first
// access and kept for the life of the process; query results are cached by
// normalized query string.
type Library struct {
	dir       string
	preferred []string
	logger    *slog.Logger

	mu     sync.Mutex
	chunks []Chunk
	loaded bool

	queryMu sync.RWMutex
	queries map[string][]ScoredChunk
}

// NewLibrary creates a Library over the documents in dir.
// preferred lists the document file names to load first; when none of them
// exist the directory is scanned for recognized extensions instead.
func NewLibrary(dir string, preferred []string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		dir:       dir,
		preferred: preferred,
		logger:    logger,
		queries:   make(map[string][]ScoredChunk),
	}
}

// Chunks returns the chunk corpus, loading it from disk on the first call.
// Subsequent calls return the cached slice without touching the filesystem.
// Callers must not mutate the returned slice.
func (l *Library) Chunks(ctx context.Context) ([]Chunk, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return l.chunks, nil
	}

	chunks, err := l.load(ctx)
	if err != nil {
		return nil, err
	}

	l.chunks = chunks
	l.loaded = true
	l.logger.Info("corpus loaded", "chunks", len(chunks), "dir", l.dir)
	return l.chunks, nil
}

// Search ranks the corpus against query and returns at most limit chunks with
// score > 0, ordered by descending score (corpus order breaks ties).
//
// Results are cached by normalized query. The cache holds the complete
// filtered score list, so a later call with a larger limit returns a
// superset of an earlier call's results without re-scoring.
func (l *Library) Search(ctx context.Context, query string, limit int) ([]ScoredChunk, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	key := normalizeQuery(query)
	if key == "" {
		return nil, nil
	}

	l.queryMu.RLock()
	cached, ok := l.queries[key]
	l.queryMu.RUnlock()
	if ok {
		return truncate(cached, limit), nil
	}

	chunks, err := l.Chunks(ctx)
	if err != nil {
		return nil, err
	}

	scored := Score(chunks, query)

	l.queryMu.Lock()
	// Another goroutine may have scored the same query meanwhile; keep the
	// first entry so cached slices stay stable.
	if existing, ok := l.queries[key]; ok {
		scored = existing
	} else {
		l.queries[key] = scored
	}
	l.queryMu.Unlock()

	return truncate(scored, limit), nil
}

func truncate(scored []ScoredChunk, limit int) []ScoredChunk {
	if len(scored) > limit {
		return scored[:limit]
	}
	return scored
}
