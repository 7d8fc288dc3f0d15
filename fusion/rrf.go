// Package fusion combines heterogeneous ranked chunk lists via Reciprocal
// Rank Fusion, the first step of the store façade's search_hybrid and the
// basis every rerank pass starts from.
//
// Grounded on the merge step of the teacher's contrib/retrieval/hybrid
// Engine.Search (same "build a scoreMap, then sort" shape), with the
// weighted linear-sum score the teacher used replaced by the rank-based
// RRF formula this spec requires — see DESIGN.md.
package fusion

import (
	"sort"

	"github.com/ggozad/haikurag-core/store"
)

// DefaultK is the RRF damping constant mandated by the spec.
const DefaultK = 60

// RRF fuses lists (e.g. vector and FTS results) into a single ranked list.
// Each unique chunk (by ID) receives a fused score
//
//	Σ_i 1/(k + rank_i(c))
//
// where rank_i is the 1-based position of c in list i, or the term is
// omitted if c is absent from that list. Results are sorted by descending
// fused score, ties broken by chunk_id ascending, then truncated to
// limit. k<=0 falls back to DefaultK.
func RRF(lists [][]store.ScoredChunk, k int, limit int) []store.ScoredChunk {
	if k <= 0 {
		k = DefaultK
	}

	type entry struct {
		chunk store.ScoredChunk
		score float64
	}
	byID := make(map[string]*entry)
	var order []string

	for _, list := range lists {
		for i, sc := range list {
			rank := i + 1
			e, ok := byID[sc.Chunk.ID]
			if !ok {
				e = &entry{chunk: sc}
				byID[sc.Chunk.ID] = e
				order = append(order, sc.Chunk.ID)
			}
			e.score += 1.0 / float64(k+rank)
		}
	}

	out := make([]store.ScoredChunk, 0, len(order))
	for _, id := range order {
		e := byID[id]
		e.chunk.Score = e.score
		out = append(out, e.chunk)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
