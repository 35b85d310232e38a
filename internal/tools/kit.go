// Package tools defines the genkit tools the assistant can call during a
// turn: documentation search and company profile updates.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/memoraiz/onboard/internal/profile"
	"github.com/memoraiz/onboard/internal/retrieval"
)

// Tool names registered with genkit.
const (
	SearchDocsName    = "search_docs"
	UpdateProfileName = "update_profile_field"
)

// Search limits mirrored in the tool description the model sees.
const (
	DefaultSearchTopK = 5
	MaxSearchTopK     = 8
)

// closeTimeout bounds how long Close waits for in-flight background
// profile writes.
const closeTimeout = 5 * time.Second

// SearchDocsInput is the search_docs tool input.
type SearchDocsInput struct {
	Query string `json:"query" jsonschema_description:"The search query string"`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Maximum snippets to return (1-8)"`
}

// SearchDocsResult is the search_docs tool output.
type SearchDocsResult struct {
	Results []retrieval.Snippet `json:"results"`
}

// UpdateProfileInput is the update_profile_field tool input.
type UpdateProfileInput struct {
	Field string `json:"field" jsonschema_description:"Profile field to set: name, industry, description, aiMaturityLevel, aiUsage or goals"`
	Value string `json:"value" jsonschema_description:"The value the user provided, must be non-empty"`
}

// UpdateProfileResult is the update_profile_field tool output.
type UpdateProfileResult struct {
	OK      bool            `json:"ok"`
	Profile profile.Profile `json:"profile"`
}

// Kit holds the tool handlers' dependencies and the background machinery
// for durable profile writes.
type Kit struct {
	retrieval *retrieval.Service
	profiles  *profile.Cache
	store     *profile.Store // nil when PostgreSQL is not configured
	logger    *slog.Logger

	bgCtx  context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKit creates a Kit. store may be nil, in which case profile updates
// live only in the process cache.
func NewKit(r *retrieval.Service, profiles *profile.Cache, store *profile.Store, logger *slog.Logger) (*Kit, error) {
	if r == nil {
		return nil, fmt.Errorf("retrieval service is required")
	}
	if profiles == nil {
		return nil, fmt.Errorf("profile cache is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	return &Kit{
		retrieval: r,
		profiles:  profiles,
		store:     store,
		logger:    logger,
		bgCtx:     bgCtx,
		cancel:    cancel,
	}, nil
}

// Register defines both tools with genkit and returns their references for
// generation options.
func (k *Kit) Register(g *genkit.Genkit) []ai.Tool {
	return []ai.Tool{
		genkit.DefineTool(g, SearchDocsName,
			"Search the MemorAIz product documentation and return relevant snippets "+
				"for answering capability, pricing and feature questions. "+
				"Default limit: 5. Maximum limit: 8.",
			k.SearchDocs),
		genkit.DefineTool(g, UpdateProfileName,
			"Update a single field on the company profile canvas. "+
				"Use whenever the user provides new information about their organization. "+
				"Valid fields: name, industry, description, aiMaturityLevel, aiUsage, goals.",
			k.UpdateProfile),
	}
}

// SearchDocs handles the search_docs tool call.
func (k *Kit) SearchDocs(ctx *ai.ToolContext, input SearchDocsInput) (SearchDocsResult, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultSearchTopK
	}
	if limit > MaxSearchTopK {
		limit = MaxSearchTopK
	}

	snippets, err := k.retrieval.Retrieve(ctx, input.Query, limit)
	if err != nil {
		k.logger.Warn("search_docs failed", "query", input.Query, "error", err)
		return SearchDocsResult{}, fmt.Errorf("searching documentation: %w", err)
	}

	k.logger.Info("search_docs", "query", input.Query, "results", len(snippets))
	return SearchDocsResult{Results: snippets}, nil
}

// UpdateProfile handles the update_profile_field tool call. The cache is
// updated synchronously so the canvas reflects the change within the same
// turn; the database write happens in the background and its failure does
// not fail the tool.
func (k *Kit) UpdateProfile(ctx *ai.ToolContext, input UpdateProfileInput) (UpdateProfileResult, error) {
	sessionID := SessionIDFromContext(ctx)
	if sessionID == "" {
		k.logger.Warn("update_profile_field called without session")
		return UpdateProfileResult{OK: false}, nil
	}
	if strings.TrimSpace(input.Value) == "" {
		k.logger.Warn("update_profile_field called with empty value",
			"session", sessionID, "field", input.Field)
		return UpdateProfileResult{OK: false, Profile: k.profiles.Get(sessionID)}, nil
	}

	updated, err := k.profiles.UpdateField(sessionID, input.Field, input.Value)
	if err != nil {
		return UpdateProfileResult{OK: false}, err
	}

	k.persistAsync(sessionID, updated)

	k.logger.Info("update_profile_field", "session", sessionID, "field", input.Field)
	return UpdateProfileResult{OK: true, Profile: updated}, nil
}

// persistAsync schedules a durable write of the full profile. Last write
// wins; a failed write is logged and dropped.
func (k *Kit) persistAsync(sessionID string, p profile.Profile) {
	if k.store == nil {
		return
	}
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		ctx, cancel := context.WithTimeout(k.bgCtx, 10*time.Second)
		defer cancel()
		if err := k.store.Upsert(ctx, sessionID, sessionID, p); err != nil {
			k.logger.Warn("background profile write failed", "session", sessionID, "error", err)
		}
	}()
}

// Close waits for in-flight background writes, then cancels stragglers.
func (k *Kit) Close() error {
	done := make(chan struct{})
	go func() {
		k.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(closeTimeout):
		k.logger.Warn("timed out waiting for background profile writes")
	}
	k.cancel()
	return nil
}
