package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/memoraiz/onboard/internal/corpus"
	"github.com/memoraiz/onboard/internal/profile"
	"github.com/memoraiz/onboard/internal/retrieval"
	"github.com/memoraiz/onboard/internal/testutil"
)

func newTestKit(t *testing.T) *Kit {
	t.Helper()

	dir := t.TempDir()
	content := "# Pricing\n\nPlans start at 99 euro per month.\n\n# Features\n\nQuizzes, podcasts and summaries."
	if err := os.WriteFile(filepath.Join(dir, "catalog.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	lib := corpus.NewLibrary(dir, nil, testutil.DiscardLogger())
	svc := retrieval.New(nil, lib, testutil.DiscardLogger())

	kit, err := NewKit(svc, profile.NewCache(), nil, testutil.DiscardLogger())
	if err != nil {
		t.Fatalf("NewKit() error = %v", err)
	}
	t.Cleanup(func() { _ = kit.Close() })
	return kit
}

func TestSearchDocs(t *testing.T) {
	t.Parallel()

	kit := newTestKit(t)
	toolCtx := &ai.ToolContext{Context: context.Background()}

	result, err := kit.SearchDocs(toolCtx, SearchDocsInput{Query: "pricing"})
	if err != nil {
		t.Fatalf("SearchDocs() error = %v", err)
	}
	if len(result.Results) == 0 {
		t.Fatal("expected search results")
	}
	if result.Results[0].Title != "Pricing" {
		t.Errorf("top result title = %q", result.Results[0].Title)
	}
}

func TestSearchDocsClampsLimit(t *testing.T) {
	t.Parallel()

	kit := newTestKit(t)
	toolCtx := &ai.ToolContext{Context: context.Background()}

	result, err := kit.SearchDocs(toolCtx, SearchDocsInput{Query: "pricing", Limit: 100})
	if err != nil {
		t.Fatalf("SearchDocs() error = %v", err)
	}
	if len(result.Results) > MaxSearchTopK {
		t.Errorf("results = %d, want <= %d", len(result.Results), MaxSearchTopK)
	}
}

func TestUpdateProfile(t *testing.T) {
	t.Parallel()

	kit := newTestKit(t)
	ctx := ContextWithSessionID(context.Background(), "s1")
	toolCtx := &ai.ToolContext{Context: ctx}

	result, err := kit.UpdateProfile(toolCtx, UpdateProfileInput{Field: profile.FieldName, Value: "Acme"})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if !result.OK || result.Profile.Name != "Acme" {
		t.Errorf("UpdateProfile() = %+v", result)
	}
	if got := kit.profiles.Get("s1"); got.Name != "Acme" {
		t.Errorf("cache not updated: %+v", got)
	}
}

func TestUpdateProfileWithoutSession(t *testing.T) {
	t.Parallel()

	kit := newTestKit(t)
	toolCtx := &ai.ToolContext{Context: context.Background()}

	result, err := kit.UpdateProfile(toolCtx, UpdateProfileInput{Field: profile.FieldName, Value: "Acme"})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if result.OK {
		t.Error("UpdateProfile without session reported ok")
	}
}

func TestUpdateProfileEmptyValue(t *testing.T) {
	t.Parallel()

	kit := newTestKit(t)
	ctx := ContextWithSessionID(context.Background(), "s1")
	toolCtx := &ai.ToolContext{Context: ctx}

	if _, err := kit.UpdateProfile(toolCtx, UpdateProfileInput{Field: profile.FieldName, Value: "Acme"}); err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}

	// A blank value must not wipe the field it names.
	result, err := kit.UpdateProfile(toolCtx, UpdateProfileInput{Field: profile.FieldName, Value: "   "})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if result.OK {
		t.Error("UpdateProfile with blank value reported ok")
	}
	if got := kit.profiles.Get("s1"); got.Name != "Acme" {
		t.Errorf("blank value overwrote the field: %+v", got)
	}
}

func TestUpdateProfileUnknownField(t *testing.T) {
	t.Parallel()

	kit := newTestKit(t)
	ctx := ContextWithSessionID(context.Background(), "s1")
	toolCtx := &ai.ToolContext{Context: ctx}

	if _, err := kit.UpdateProfile(toolCtx, UpdateProfileInput{Field: "budget", Value: "1M"}); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestSessionIDContext(t *testing.T) {
	t.Parallel()

	if got := SessionIDFromContext(context.Background()); got != "" {
		t.Errorf("SessionIDFromContext on bare context = %q", got)
	}
	ctx := ContextWithSessionID(context.Background(), "s42")
	if got := SessionIDFromContext(ctx); got != "s42" {
		t.Errorf("SessionIDFromContext = %q, want s42", got)
	}
}
