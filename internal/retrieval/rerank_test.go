package retrieval

import (
	"context"
	"errors"
	"testing"

	"github.com/kidspark-ai/kidspark/internal/provider"
)

func rerankCandidates() []Candidate {
	return []Candidate{
		{ContentID: "a", Collection: CollectionKnowledge, Score: 0.9, Content: "Light scattering makes the sky blue"},
		{ContentID: "b", Collection: CollectionKnowledge, Score: 0.8, Content: "Dinosaurs lived millions of years ago"},
		{ContentID: "c", Collection: CollectionKnowledge, Score: 0.7, Content: "Rainbows appear after rain"},
	}
}

func TestRerankerReorders(t *testing.T) {
	mock := provider.NewMockProvider("mock").WithResponses(
		`[{"id":1,"score":0.95},{"id":2,"score":0.1},{"id":3,"score":0.6}]`,
	)
	r := NewReranker(mock, "test-model", nil)

	out, err := r.Rerank(context.Background(), "why is the sky blue", rerankCandidates(), 3)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	wantOrder := []string{"a", "c", "b"}
	if len(out) != len(wantOrder) {
		t.Fatalf("got %d candidates, want %d", len(out), len(wantOrder))
	}
	for i, id := range wantOrder {
		if out[i].ContentID != id {
			t.Errorf("position %d = %s, want %s", i, out[i].ContentID, id)
		}
	}
	if out[0].Score != 0.95 {
		t.Errorf("top score = %f, want 0.95", out[0].Score)
	}
}

func TestRerankerTruncatesTopK(t *testing.T) {
	mock := provider.NewMockProvider("mock").WithResponses(
		`[{"id":1,"score":0.9},{"id":2,"score":0.8},{"id":3,"score":0.7}]`,
	)
	r := NewReranker(mock, "test-model", nil)

	out, err := r.Rerank(context.Background(), "q", rerankCandidates(), 2)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d candidates, want 2", len(out))
	}
}

func TestRerankerPreservesIdentity(t *testing.T) {
	// The model hallucinates a passage id outside the list; it is ignored
	// rather than becoming a new candidate.
	mock := provider.NewMockProvider("mock").WithResponses(
		`[{"id":1,"score":0.5},{"id":9,"score":0.99}]`,
	)
	r := NewReranker(mock, "test-model", nil)

	out, err := r.Rerank(context.Background(), "q", rerankCandidates(), 5)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d candidates, want the original 3", len(out))
	}
	seen := map[string]bool{}
	for _, c := range out {
		seen[c.ContentID] = true
	}
	for _, id := range []string{"a", "b", "c"} {
		if !seen[id] {
			t.Errorf("candidate %s lost during rerank", id)
		}
	}
}

func TestRerankerUnscoredDefaultsToZero(t *testing.T) {
	mock := provider.NewMockProvider("mock").WithResponses(
		`[{"id":2,"score":0.8}]`,
	)
	r := NewReranker(mock, "test-model", nil)

	out, err := r.Rerank(context.Background(), "q", rerankCandidates(), 3)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if out[0].ContentID != "b" {
		t.Errorf("top candidate = %s, want b", out[0].ContentID)
	}
	// Unscored candidates sink to zero and tie-break by ID.
	if out[1].ContentID != "a" || out[2].ContentID != "c" {
		t.Errorf("unscored order = %s,%s, want a,c", out[1].ContentID, out[2].ContentID)
	}
	if out[1].Score != 0 || out[2].Score != 0 {
		t.Errorf("unscored candidates should have score 0, got %f and %f", out[1].Score, out[2].Score)
	}
}

func TestRerankerClampsScores(t *testing.T) {
	mock := provider.NewMockProvider("mock").WithResponses(
		`[{"id":1,"score":1.7},{"id":2,"score":-0.3},{"id":3,"score":0.5}]`,
	)
	r := NewReranker(mock, "test-model", nil)

	out, err := r.Rerank(context.Background(), "q", rerankCandidates(), 3)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	for _, c := range out {
		if c.Score < 0 || c.Score > 1 {
			t.Errorf("candidate %s score %f out of [0,1]", c.ContentID, c.Score)
		}
	}
	if out[0].ContentID != "a" || out[0].Score != 1 {
		t.Errorf("over-range score should clamp to 1, got %s %f", out[0].ContentID, out[0].Score)
	}
}

func TestRerankerToleratesProseAroundJSON(t *testing.T) {
	mock := provider.NewMockProvider("mock").WithResponses(
		"Here are the ratings:\n```json\n[{\"id\":1,\"score\":0.9}]\n```\nDone.",
	)
	r := NewReranker(mock, "test-model", nil)

	out, err := r.Rerank(context.Background(), "q", rerankCandidates(), 3)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if out[0].ContentID != "a" {
		t.Errorf("top candidate = %s, want a", out[0].ContentID)
	}
}

func TestRerankerProviderError(t *testing.T) {
	mock := provider.NewMockProvider("mock").WithErrors(errors.New("model down"))
	r := NewReranker(mock, "test-model", nil)

	if _, err := r.Rerank(context.Background(), "q", rerankCandidates(), 3); err == nil {
		t.Fatal("expected error from failing provider")
	}
}

func TestRerankerUnparseableReply(t *testing.T) {
	mock := provider.NewMockProvider("mock").WithResponses("I cannot rate these passages.")
	r := NewReranker(mock, "test-model", nil)

	if _, err := r.Rerank(context.Background(), "q", rerankCandidates(), 3); err == nil {
		t.Fatal("expected error for reply without JSON array")
	}
}

func TestRerankerEmptyInput(t *testing.T) {
	mock := provider.NewMockProvider("mock")
	r := NewReranker(mock, "test-model", nil)

	out, err := r.Rerank(context.Background(), "q", nil, 3)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if out != nil {
		t.Errorf("expected nil for empty input, got %v", out)
	}
	if mock.CallCount() != 0 {
		t.Errorf("no model call expected for empty input, got %d", mock.CallCount())
	}
}
