package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/memoraiz/onboard/internal/corpus"
	"github.com/memoraiz/onboard/internal/knowledge"
	"github.com/memoraiz/onboard/internal/testutil"
)

type stubVector struct {
	results []knowledge.Result
	err     error
	calls   int
}

func (s *stubVector) Search(context.Context, string, int) ([]knowledge.Result, error) {
	s.calls++
	return s.results, s.err
}

func newTestLibrary(t *testing.T) *corpus.Library {
	t.Helper()
	dir := t.TempDir()
	content := "# Pricing\n\nPlans start at 99 euro per month."
	if err := os.WriteFile(filepath.Join(dir, "catalog.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	return corpus.NewLibrary(dir, nil, testutil.DiscardLogger())
}

func TestRetrievePrefersVector(t *testing.T) {
	t.Parallel()

	vector := &stubVector{results: []knowledge.Result{
		{Content: "semantic hit", Title: "Pricing", Source: "catalog.md", Score: 0.9},
	}}
	svc := New(vector, newTestLibrary(t), testutil.DiscardLogger())

	snippets, err := svc.Retrieve(context.Background(), "pricing", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(snippets) != 1 || snippets[0].Content != "semantic hit" {
		t.Fatalf("Retrieve() = %+v, want the vector result", snippets)
	}
	if vector.calls != 1 {
		t.Errorf("vector searched %d times, want 1", vector.calls)
	}
}

func TestRetrieveFallsBackOnVectorError(t *testing.T) {
	t.Parallel()

	vector := &stubVector{err: errors.New("connection refused")}
	svc := New(vector, newTestLibrary(t), testutil.DiscardLogger())

	snippets, err := svc.Retrieve(context.Background(), "pricing", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v, vector failures must not propagate", err)
	}
	if len(snippets) == 0 {
		t.Fatal("expected lexical fallback results")
	}
	if snippets[0].Title != "Pricing" {
		t.Errorf("fallback snippet title = %q", snippets[0].Title)
	}
}

func TestRetrieveFallsBackOnEmptyVectorResult(t *testing.T) {
	t.Parallel()

	svc := New(&stubVector{}, newTestLibrary(t), testutil.DiscardLogger())

	snippets, err := svc.Retrieve(context.Background(), "pricing", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(snippets) == 0 {
		t.Fatal("expected lexical results when vector search is empty")
	}
}

func TestRetrieveLexicalOnly(t *testing.T) {
	t.Parallel()

	svc := New(nil, newTestLibrary(t), testutil.DiscardLogger())

	snippets, err := svc.Retrieve(context.Background(), "pricing", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(snippets) == 0 {
		t.Fatal("expected lexical results without a vector store")
	}
	if snippets[0].Score <= 0 {
		t.Errorf("lexical score = %f, want > 0", snippets[0].Score)
	}
}
