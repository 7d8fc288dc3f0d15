package mmr

import (
	"context"
	"testing"

	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/rerank"
)

func TestMMRRanksDiverseCandidateLast(t *testing.T) {
	r := New()
	ctx := rerank.ContextWithQueryVector(context.Background(), []float32{1, 0})
	candidates := []rerank.Candidate{
		{Chunk: document.Chunk{ID: "c1"}, Vector: []float32{1, 0}},
		{Chunk: document.Chunk{ID: "c2"}, Vector: []float32{0.9, 0.1}},
		{Chunk: document.Chunk{ID: "c3"}, Vector: []float32{0, 1}},
	}

	results, err := r.Rank(ctx, "q", candidates)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != len(candidates) {
		t.Fatalf("expected %d results, got %d", len(candidates), len(results))
	}
	if results[2].Chunk.ID != "c3" {
		t.Fatalf("expected low-relevance chunk last, got %s", results[2].Chunk.ID)
	}
}

func TestMMRHonorsLimit(t *testing.T) {
	r := &Reranker{Lambda: 0.5, Limit: 2}
	ctx := rerank.ContextWithQueryVector(context.Background(), []float32{1, 0})
	candidates := []rerank.Candidate{
		{Chunk: document.Chunk{ID: "c1"}, Vector: []float32{1, 0}},
		{Chunk: document.Chunk{ID: "c2"}, Vector: []float32{0.8, 0.2}},
		{Chunk: document.Chunk{ID: "c3"}, Vector: []float32{0, 1}},
	}

	results, err := r.Rank(ctx, "q", candidates)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestMMRWithoutVectorsFallsBackToFusionOrder(t *testing.T) {
	r := New()
	candidates := []rerank.Candidate{
		{Chunk: document.Chunk{ID: "c1"}},
		{Chunk: document.Chunk{ID: "c2"}},
	}

	results, err := r.Rank(context.Background(), "q", candidates)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}
