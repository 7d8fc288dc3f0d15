// Package mmr implements Max Marginal Relevance reranking: it trades off
// relevance against redundancy so the top results aren't near-duplicates
// of each other.
//
// Grounded on the teacher's contrib/reranker/mmr/mmr.go: same greedy
// selection loop and lambda/relevance/diversity score, retargeted from
// rag/reranker.Candidate (vector-only) to rerank.Candidate (text content
// plus an optional stored vector) and from a query vector parameter to
// rerank.ContextWithQueryVector, matching the Cosine fallback's idiom of
// recovering the query embedding from ctx rather than a dedicated method
// parameter (rerank.Reranker.Rank takes only a query string).
package mmr

import (
	"context"

	"github.com/ggozad/haikurag-core/rerank"
)

// Reranker selects a diverse top-Limit subset via Max Marginal Relevance.
type Reranker struct {
	Lambda float64
	Limit  int
}

// New returns an MMR reranker with sensible defaults.
func New() *Reranker {
	return &Reranker{Lambda: 0.7, Limit: 8}
}

// Rank implements rerank.Reranker. It never fails: candidates lacking a
// stored vector get relevance 0 (rerank.Candidate carries no fusion
// score) and contribute no diversity penalty.
func (m *Reranker) Rank(ctx context.Context, query string, candidates []rerank.Candidate) ([]rerank.Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	qv, _ := rerank.QueryVectorFromContext(ctx)

	type item struct {
		cand  rerank.Candidate
		score float64
	}
	remaining := make([]item, len(candidates))
	for i, cand := range candidates {
		score := float64(0)
		if len(qv) > 0 && len(cand.Vector) == len(qv) {
			score = rerank.CosineSimilarity(qv, cand.Vector)
		}
		remaining[i] = item{cand: cand, score: score}
	}

	limit := m.Limit
	if limit <= 0 {
		limit = len(candidates)
	}

	selected := make([]rerank.Result, 0, limit)
	picked := make([]rerank.Candidate, 0, limit)
	for len(remaining) > 0 && len(selected) < limit {
		bestIdx := -1
		var bestScore float64
		for idx, r := range remaining {
			penalty := 0.0
			for _, p := range picked {
				if len(r.cand.Vector) == 0 || len(p.Vector) != len(r.cand.Vector) {
					continue
				}
				if sim := rerank.CosineSimilarity(r.cand.Vector, p.Vector); sim > penalty {
					penalty = sim
				}
			}
			score := m.Lambda*r.score - (1-m.Lambda)*penalty
			if bestIdx == -1 || score > bestScore {
				bestScore = score
				bestIdx = idx
			}
		}
		best := remaining[bestIdx]
		selected = append(selected, rerank.Result{Chunk: best.cand.Chunk, Score: best.score})
		picked = append(picked, best.cand)
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return selected, nil
}
