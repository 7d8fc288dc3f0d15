package chatsession

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ggozad/haikurag-core/llm"
	"github.com/ggozad/haikurag-core/pkg/logging"
	"github.com/ggozad/haikurag-core/rerank"
	"github.com/ggozad/haikurag-core/research"
)

// DefaultRecallThreshold matches spec.md §4.9's stated default.
const DefaultRecallThreshold = 0.70

// DefaultEmbeddingCacheSize bounds the question-embedding LRU below.
const DefaultEmbeddingCacheSize = 1024

// Recaller implements spec.md §4.9: short-circuiting the graph using
// session history when a close-enough question has already been
// answered.
//
// Grounded on no single teacher file (the teacher has no prior-answer
// recall concept); the embedding-cache-then-cosine-threshold shape is
// built from the store façade's vector search grounding plus
// hashicorp/golang-lru/v2, already present in the dependency pack, for
// the "cache keyed by the exact question string" requirement of
// spec.md §4.9 rather than hand-rolling an LRU with a map+list.
type Recaller struct {
	Embedder  llm.Embedder
	Threshold float64
	cache     *lru.Cache[string, []float32]
}

// NewRecaller constructs a Recaller with an embedding cache of the given
// size (DefaultEmbeddingCacheSize if size <= 0).
func NewRecaller(embedder llm.Embedder, threshold float64, size int) *Recaller {
	if threshold <= 0 {
		threshold = DefaultRecallThreshold
	}
	if size <= 0 {
		size = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](size)
	return &Recaller{Embedder: embedder, Threshold: threshold, cache: cache}
}

// Recall returns the QAHistoryEntry-derived SearchAnswers whose question
// is within Threshold cosine similarity of question, per spec.md §4.9.
// On embedder failure it returns (nil, nil): recall is skipped and the
// caller runs the graph normally, per the spec's determinism rule.
func (r *Recaller) Recall(ctx context.Context, question string, history []QAHistoryEntry) ([]research.SearchAnswer, error) {
	if r.Embedder == nil || len(history) == 0 {
		return nil, nil
	}
	logger := logging.WithComponent("chatsession.recall")

	qVecs, err := r.Embedder.Embed(ctx, []string{question})
	if err != nil || len(qVecs) != 1 {
		logger.Warn("recall embedder failed, skipping recall", "error", err)
		return nil, nil
	}
	qv := qVecs[0]

	embeddings, err := r.embeddingsFor(ctx, history)
	if err != nil {
		logger.Warn("recall history embedding failed, skipping recall", "error", err)
		return nil, nil
	}

	var out []research.SearchAnswer
	for i, h := range history {
		if embeddings[i] == nil {
			continue
		}
		sim := rerank.CosineSimilarity(qv, embeddings[i])
		if sim < r.Threshold {
			continue
		}
		citedChunks := make([]string, 0, len(h.Citations))
		for _, c := range h.Citations {
			citedChunks = append(citedChunks, c.ChunkID)
		}
		out = append(out, research.SearchAnswer{
			Query:       h.Question,
			Answer:      h.Answer,
			Confidence:  sim,
			CitedChunks: citedChunks,
			Citations:   h.Citations,
		})
	}
	return out, nil
}

// embeddingsFor resolves one embedding per history entry, preferring (in
// order) the entry's own persisted embedding, the process-wide LRU
// cache, then a batched Embed call for whatever remains uncached —
// caching results back into both the cache and the entry itself.
func (r *Recaller) embeddingsFor(ctx context.Context, history []QAHistoryEntry) ([][]float32, error) {
	out := make([][]float32, len(history))
	var missing []int

	for i, h := range history {
		if h.QuestionEmbedding != nil {
			out[i] = h.QuestionEmbedding
			continue
		}
		if v, ok := r.cache.Get(h.Question); ok {
			out[i] = v
			continue
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	texts := make([]string, len(missing))
	for i, idx := range missing {
		texts[i] = history[idx].Question
	}
	vecs, err := r.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d questions", len(vecs), len(missing))
	}
	for i, idx := range missing {
		out[idx] = vecs[i]
		r.cache.Add(history[idx].Question, vecs[i])
		history[idx].QuestionEmbedding = vecs[i]
	}
	return out, nil
}
