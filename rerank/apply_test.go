package rerank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/store"
)

type failingReranker struct{}

func (failingReranker) Rank(ctx context.Context, query string, candidates []Candidate) ([]Result, error) {
	return nil, errors.New("boom")
}

type reverseReranker struct{}

func (reverseReranker) Rank(ctx context.Context, query string, candidates []Candidate) ([]Result, error) {
	out := make([]Result, len(candidates))
	for i, c := range candidates {
		out[len(candidates)-1-i] = Result{Chunk: c.Chunk, Score: float64(i)}
	}
	return out, nil
}

func TestApplyFallsBackOnFailure(t *testing.T) {
	fused := []store.ScoredChunk{
		{Chunk: document.Chunk{ID: "a"}, Score: 0.9},
		{Chunk: document.Chunk{ID: "b"}, Score: 0.5},
	}
	out := Apply(context.Background(), failingReranker{}, "q", fused, 10, time.Second)
	if len(out) != 2 || out[0].Chunk.ID != "a" {
		t.Fatalf("expected unreranked fusion order preserved, got %+v", out)
	}
}

func TestApplyNilRerankerIsNoOp(t *testing.T) {
	fused := []store.ScoredChunk{{Chunk: document.Chunk{ID: "a"}}}
	out := Apply(context.Background(), nil, "q", fused, 10, time.Second)
	if len(out) != 1 || out[0].Chunk.ID != "a" {
		t.Fatalf("expected passthrough, got %+v", out)
	}
}

func TestApplyReordersAndTruncates(t *testing.T) {
	fused := []store.ScoredChunk{
		{Chunk: document.Chunk{ID: "a"}},
		{Chunk: document.Chunk{ID: "b"}},
		{Chunk: document.Chunk{ID: "c"}},
	}
	out := Apply(context.Background(), reverseReranker{}, "q", fused, 2, time.Second)
	if len(out) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(out))
	}
	if out[0].Chunk.ID != "c" || out[1].Chunk.ID != "b" {
		t.Fatalf("unexpected reranked order: %+v", out)
	}
}
