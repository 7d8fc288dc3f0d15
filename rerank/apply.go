package rerank

import (
	"context"
	"sort"
	"time"

	coreerrors "github.com/ggozad/haikurag-core/errors"
	"github.com/ggozad/haikurag-core/pkg/logging"
	"github.com/ggozad/haikurag-core/store"
)

// DefaultMultiplier is the default rerank_multiplier applied to limit when
// retrieving fusion candidates to rerank (spec §4.2).
const DefaultMultiplier = 10

// Apply reranks fused against query using rr within timeout, truncating to
// limit. On any failure (error or timeout) it logs and returns fused
// truncated to limit unchanged — rerank failure is absorbed here, never
// surfaced to the caller, per spec §4.2/§7.
func Apply(ctx context.Context, rr Reranker, query string, fused []store.ScoredChunk, limit int, timeout time.Duration) []store.ScoredChunk {
	if rr == nil {
		return truncate(fused, limit)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	candidates := make([]Candidate, len(fused))
	for i, sc := range fused {
		candidates[i] = Candidate{Chunk: sc.Chunk, Content: sc.Chunk.Content, Vector: sc.Chunk.Embedding}
	}

	results, err := rr.Rank(rctx, query, candidates)
	if err != nil {
		logging.WithComponent("rerank").Warn("reranker failed, falling back to fusion order",
			"error", coreerrors.RerankerFailure("rerank call failed", err))
		return truncate(fused, limit)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})

	out := make([]store.ScoredChunk, 0, len(results))
	for _, r := range results {
		out = append(out, store.ScoredChunk{Chunk: r.Chunk, Score: r.Score})
	}
	return truncate(out, limit)
}

func truncate(scs []store.ScoredChunk, limit int) []store.ScoredChunk {
	if limit > 0 && len(scs) > limit {
		return scs[:limit]
	}
	return scs
}
