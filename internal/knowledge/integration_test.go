package knowledge

import (
	"context"
	"testing"

	"github.com/memoraiz/onboard/internal/testutil"
)

func unitVector(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

func TestStoreRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	emb := testutil.NewMockEmbedder(VectorDimension)
	emb.SetVector("pricing plans", unitVector(VectorDimension, 0))
	emb.SetVector("pricing chunk", unitVector(VectorDimension, 0))
	emb.SetVector("unrelated chunk", unitVector(VectorDimension, 1))

	store := New(db.Pool, emb, testutil.DiscardLogger())

	docs := []Document{
		{Content: "pricing chunk", Title: "Pricing", Source: "catalog.md"},
		{Content: "unrelated chunk", Title: "Legal", Source: "legal.md"},
	}
	for _, doc := range docs {
		if err := store.Add(ctx, doc); err != nil {
			t.Fatalf("Add(%q) error = %v", doc.Title, err)
		}
	}

	results, err := store.Search(ctx, "pricing plans", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Search() returned %d results, want 2", len(results))
	}
	if results[0].Title != "Pricing" {
		t.Errorf("nearest result title = %q, want Pricing", results[0].Title)
	}
	if results[0].Score < 0.99 {
		t.Errorf("identical embedding similarity = %f, want ~1", results[0].Score)
	}
	if results[1].Score > 0.5 {
		t.Errorf("orthogonal embedding similarity = %f, want ~0", results[1].Score)
	}

	if err := store.Truncate(ctx); err != nil {
		t.Fatalf("Truncate() error = %v", err)
	}
	results, err = store.Search(ctx, "pricing plans", 2)
	if err != nil {
		t.Fatalf("Search() after truncate error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search() after truncate returned %d results", len(results))
	}
}
