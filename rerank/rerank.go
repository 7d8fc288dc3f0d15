// Package rerank defines the pluggable reranker capability: a pure
// function over (query, contents) that returns a relevance score per
// candidate, plus the cosine-similarity fallback used when no external
// reranker is configured.
//
// Grounded on the teacher's rag/reranker package (Candidate/Result shape,
// context-stuffed query idiom) generalized from vector-only candidates to
// the spec's text-content reranking contract.
package rerank

import (
	"context"
	"sort"

	"github.com/ggozad/haikurag-core/document"
)

// Candidate is a chunk offered to the reranker alongside the content the
// reranker should score and, optionally, its stored embedding (used only
// by the Cosine fallback).
type Candidate struct {
	Chunk   document.Chunk
	Content string
	Vector  []float32
}

// Result is a reranked candidate.
type Result struct {
	Chunk document.Chunk
	Score float64
}

// Reranker reorders retrieval candidates by relevance to query. A
// reranker must be safe to call with a context that may be cancelled or
// deadlined; any error it returns signals the caller to fall
// back to the unreranked fusion order unchanged (spec §4.2/§7 — the
// failure is absorbed by the caller, not by the reranker).
type Reranker interface {
	Rank(ctx context.Context, query string, candidates []Candidate) ([]Result, error)
}

type queryContextKey struct{}

// ContextWithQuery stashes the raw query string on ctx so adapters whose
// underlying client call is built deeper in the stack (e.g. an HTTP
// request builder) can recover it for logging/tracing without threading
// an extra parameter through every layer.
func ContextWithQuery(ctx context.Context, query string) context.Context {
	return context.WithValue(ctx, queryContextKey{}, query)
}

// QueryFromContext recovers a query stored with ContextWithQuery.
func QueryFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(queryContextKey{})
	if v == nil {
		return "", false
	}
	q, ok := v.(string)
	return q, ok
}

// Cosine reranks purely by cosine similarity between the query embedding
// (passed via ContextWithQueryVector) and each candidate's stored
// embedding; candidates lacking a vector score 0, so they rank below every
// positive match and keep their incoming order among themselves. It never
// fails, making it a safe always-available reranker.
type Cosine struct{}

type queryVectorContextKey struct{}

// ContextWithQueryVector attaches the query embedding for Cosine.
func ContextWithQueryVector(ctx context.Context, v []float32) context.Context {
	return context.WithValue(ctx, queryVectorContextKey{}, v)
}

func queryVectorFromContext(ctx context.Context) []float32 {
	v, _ := ctx.Value(queryVectorContextKey{}).([]float32)
	return v
}

// QueryVectorFromContext recovers a query embedding stored with
// ContextWithQueryVector, for rerankers outside this package (e.g.
// contrib/rerank/mmr) that also need it alongside each candidate's
// vector.
func QueryVectorFromContext(ctx context.Context) ([]float32, bool) {
	v := queryVectorFromContext(ctx)
	return v, v != nil
}

func (Cosine) Rank(ctx context.Context, query string, candidates []Candidate) ([]Result, error) {
	qv := queryVectorFromContext(ctx)
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		score := 0.0
		if len(qv) > 0 && len(c.Vector) == len(qv) {
			score = CosineSimilarity(qv, c.Vector)
		}
		results = append(results, Result{Chunk: c.Chunk, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results, nil
}
