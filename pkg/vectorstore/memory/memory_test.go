package memory

import (
	"context"
	"testing"

	"github.com/kidspark-ai/kidspark/pkg/vectorstore"
)

func newTestStore(t *testing.T) vectorstore.Store {
	t.Helper()
	store, err := New(vectorstore.Config{EmbeddingDimensions: 3, DefaultTopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func doc(id string, embedding []float32, metadata map[string]interface{}) vectorstore.Document {
	return vectorstore.Document{
		ID:        id,
		Content:   "content of " + id,
		Embedding: embedding,
		Metadata:  metadata,
	}
}

func TestMemoryStore_UpsertAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Upsert(ctx, "knowledge", []vectorstore.Document{
		doc("a", []float32{1, 0, 0}, nil),
		doc("b", []float32{0, 1, 0}, nil),
		doc("c", []float32{0.9, 0.1, 0}, nil),
	})
	if err != nil {
		t.Fatal(err)
	}

	results, err := store.Search(ctx, "knowledge", vectorstore.SearchQuery{
		Embedding: []float32{1, 0, 0},
		TopK:      2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Document.ID != "a" {
		t.Errorf("top result = %s, want a", results[0].Document.ID)
	}
	if results[1].Document.ID != "c" {
		t.Errorf("second result = %s, want c", results[1].Document.ID)
	}
}

func TestMemoryStore_CollectionsIsolated(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.Upsert(ctx, "activities", []vectorstore.Document{doc("a1", []float32{1, 0, 0}, nil)})
	_ = store.Upsert(ctx, "stories", []vectorstore.Document{doc("s1", []float32{1, 0, 0}, nil)})

	results, err := store.Search(ctx, "activities", vectorstore.SearchQuery{Embedding: []float32{1, 0, 0}, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Document.ID != "a1" {
		t.Errorf("activities search leaked across collections: %+v", results)
	}
}

func TestMemoryStore_MetadataFilter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.Upsert(ctx, "activities", []vectorstore.Document{
		doc("indoor", []float32{1, 0, 0}, map[string]interface{}{"location": "indoor", "min_age": 2, "max_age": 5}),
		doc("outdoor", []float32{1, 0, 0}, map[string]interface{}{"location": "outdoor", "min_age": 2, "max_age": 5}),
		doc("older", []float32{1, 0, 0}, map[string]interface{}{"location": "indoor", "min_age": 8, "max_age": 12}),
	})

	maxAge := 5.0
	results, err := store.Search(ctx, "activities", vectorstore.SearchQuery{
		Embedding: []float32{1, 0, 0},
		TopK:      10,
		Filter: &vectorstore.MetadataFilter{
			Must:         map[string]interface{}{"location": "indoor"},
			NumericRange: map[string]vectorstore.Range{"min_age": {Max: &maxAge}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Document.ID != "indoor" {
		t.Errorf("filter returned %+v, want only 'indoor'", results)
	}
}

func TestMemoryStore_MinScore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.Upsert(ctx, "knowledge", []vectorstore.Document{
		doc("close", []float32{1, 0, 0}, nil),
		doc("far", []float32{0, 0, 1}, nil),
	})

	results, err := store.Search(ctx, "knowledge", vectorstore.SearchQuery{
		Embedding: []float32{1, 0, 0},
		TopK:      10,
		MinScore:  0.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Document.ID != "close" {
		t.Errorf("min score filter returned %+v", results)
	}
}

func TestMemoryStore_OrderStable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Identical embeddings: ordering must fall back to ID and stay fixed.
	_ = store.Upsert(ctx, "stories", []vectorstore.Document{
		doc("zeta", []float32{1, 0, 0}, nil),
		doc("alpha", []float32{1, 0, 0}, nil),
		doc("mid", []float32{1, 0, 0}, nil),
	})

	var firstOrder []string
	for run := 0; run < 5; run++ {
		results, err := store.Search(ctx, "stories", vectorstore.SearchQuery{Embedding: []float32{1, 0, 0}, TopK: 10})
		if err != nil {
			t.Fatal(err)
		}
		var order []string
		for _, r := range results {
			order = append(order, r.Document.ID)
		}
		if run == 0 {
			firstOrder = order
			continue
		}
		for i := range order {
			if order[i] != firstOrder[i] {
				t.Fatalf("order changed between runs: %v vs %v", firstOrder, order)
			}
		}
	}
	if firstOrder[0] != "alpha" {
		t.Errorf("tie-break should order by ID, got %v", firstOrder)
	}
}

func TestMemoryStore_ValidationErrors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "knowledge", []vectorstore.Document{doc("", []float32{1, 0, 0}, nil)}); err == nil {
		t.Error("empty ID should fail validation")
	}
	if err := store.Upsert(ctx, "knowledge", []vectorstore.Document{doc("x", []float32{1, 0}, nil)}); err == nil {
		t.Error("wrong dimensions should fail")
	}
	if _, err := store.Search(ctx, "knowledge", vectorstore.SearchQuery{}); err == nil {
		t.Error("empty query embedding should fail")
	}
}

func TestMemoryStore_GetAndDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_ = store.Upsert(ctx, "stories", []vectorstore.Document{doc("s1", []float32{1, 0, 0}, nil)})

	docs, err := store.Get(ctx, "stories", []string{"s1", "missing"})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].ID != "s1" {
		t.Errorf("Get returned %+v", docs)
	}

	if err := store.Delete(ctx, "stories", []string{"s1"}); err != nil {
		t.Fatal(err)
	}
	docs, _ = store.Get(ctx, "stories", []string{"s1"})
	if len(docs) != 0 {
		t.Error("document should be gone after delete")
	}
}
