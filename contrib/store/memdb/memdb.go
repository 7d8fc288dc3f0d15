// Package memdb is the reference store.Store implementation: an
// in-process columnar table plus a bleve full-text index, with exact kNN
// over stored float32 vectors. It backs the test suite and is a usable
// default for small deployments.
//
// Grounded on contrib/vector/inmemory/inmemory.go's RWMutex-guarded-map
// shape for the columnar half, and on contrib/retrieval/hybrid/hybrid.go's
// Engine for the overall "vector search, then FTS search, then fuse"
// structure — the hand-rolled BM25 index that file used is dropped in
// favor of github.com/blevesearch/bleve/v2 (sourced from the pack's
// Aman-CERP-amanmcp entry) for a real full-text engine; see DESIGN.md.
package memdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/ggozad/haikurag-core/document"
	coreerrors "github.com/ggozad/haikurag-core/errors"
	"github.com/ggozad/haikurag-core/fusion"
	"github.com/ggozad/haikurag-core/pkg/logging"
	"github.com/ggozad/haikurag-core/rerank"
	"github.com/ggozad/haikurag-core/store"
)

type ftsDoc struct {
	Content string `json:"content"`
}

// Store is an in-process implementation of store.Store.
type Store struct {
	mu        sync.RWMutex
	documents map[string]document.Document
	chunks    map[string]document.Chunk
	byDoc     map[string][]string // document id -> chunk ids, kept sorted by Order
	dimension int
	fts       bleve.Index
}

// New creates an empty Store with the given embedding dimension.
func New(dimension int) (*Store, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, coreerrors.StoreUnavailable("create full-text index", err)
	}
	return &Store{
		documents: make(map[string]document.Document),
		chunks:    make(map[string]document.Chunk),
		byDoc:     make(map[string][]string),
		dimension: dimension,
		fts:       idx,
	}, nil
}

// IndexDocument adds or replaces a document and its chunks. Chunks must
// already carry a correctly-dimensioned Embedding; a mismatch is a fatal
// DimensionMismatch per spec §3.
func (s *Store) IndexDocument(ctx context.Context, doc document.Document, chunks []document.Chunk) error {
	logger := logging.WithComponent("memdb")
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if len(c.Embedding) != 0 && len(c.Embedding) != s.dimension {
			return coreerrors.DimensionMismatch(
				"chunk embedding dimension does not match store dimension", nil)
		}
	}

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	s.documents[doc.ID] = doc.Clone()

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		s.chunks[c.ID] = c.Clone()
		ids = append(ids, c.ID)
		if err := s.fts.Index(c.ID, ftsDoc{Content: c.Content}); err != nil {
			logger.Error("fts index failed", "chunk_id", c.ID, "error", err)
			return coreerrors.StoreUnavailable("index chunk into full-text engine", err)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return s.chunks[ids[i]].Order < s.chunks[ids[j]].Order })
	s.byDoc[doc.ID] = ids

	logger.Info("indexed document", "document_id", doc.ID, "chunks", len(chunks))
	return nil
}

func (s *Store) Dimension() int { return s.dimension }

func (s *Store) SearchVector(ctx context.Context, queryEmbedding []float32, limit int, filter *store.Filter) ([]store.ScoredChunk, error) {
	if len(queryEmbedding) != s.dimension {
		return nil, coreerrors.DimensionMismatch("query embedding dimension does not match store dimension", nil)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	type cand struct {
		chunk document.Chunk
		score float64
	}
	var cands []cand
	for _, c := range s.chunks {
		if len(c.Embedding) != s.dimension {
			continue
		}
		doc, ok := s.documents[c.DocumentID]
		if !ok || !store.Match(filter, doc) {
			continue
		}
		sim := rerank.CosineSimilarity(queryEmbedding, c.Embedding)
		cands = append(cands, cand{chunk: c, score: sim})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].chunk.ID < cands[j].chunk.ID
	})
	if limit > 0 && len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]store.ScoredChunk, len(cands))
	for i, c := range cands {
		out[i] = store.ScoredChunk{Chunk: c.chunk, Score: c.score}
	}
	return out, nil
}

func (s *Store) SearchFTS(ctx context.Context, queryText string, limit int, filter *store.Filter) ([]store.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	q := bleve.NewMatchQuery(queryText)
	req := bleve.NewSearchRequest(q)
	// Over-fetch to allow for post-filtering by document metadata; bleve
	// has no notion of the core's document-level filter.
	req.Size = limit * 4
	if req.Size < limit {
		req.Size = limit
	}
	res, err := s.fts.Search(req)
	if err != nil {
		return nil, coreerrors.StoreUnavailable("full-text search failed", err)
	}

	out := make([]store.ScoredChunk, 0, limit)
	for _, hit := range res.Hits {
		c, ok := s.chunks[hit.ID]
		if !ok {
			continue
		}
		doc, ok := s.documents[c.DocumentID]
		if !ok || !store.Match(filter, doc) {
			continue
		}
		out = append(out, store.ScoredChunk{Chunk: c, Score: hit.Score})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) SearchHybrid(ctx context.Context, queryText string, queryEmbedding []float32, limit int, filter *store.Filter) ([]store.ScoredChunk, error) {
	vecLimit := limit
	if vecLimit <= 0 {
		vecLimit = 10
	}
	vec, err := s.SearchVector(ctx, queryEmbedding, vecLimit*2, filter)
	if err != nil {
		return nil, err
	}
	fts, err := s.SearchFTS(ctx, queryText, vecLimit*2, filter)
	if err != nil {
		return nil, err
	}
	return fusion.RRF([][]store.ScoredChunk{vec, fts}, fusion.DefaultK, limit), nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return document.Document{}, coreerrors.NotFound("document not found: "+id, nil)
	}
	return d.Clone(), nil
}

func (s *Store) FindDocument(ctx context.Context, nameOrURI string) (document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exact, prefix, substr, titleSubstr []document.Document
	for _, d := range s.documents {
		switch {
		case d.URI == nameOrURI:
			exact = append(exact, d)
		case hasPrefix(d.URI, nameOrURI) || containsStr(d.URI, nameOrURI):
			if hasPrefix(d.URI, nameOrURI) {
				prefix = append(prefix, d)
			} else {
				substr = append(substr, d)
			}
		case containsStr(d.Title, nameOrURI):
			titleSubstr = append(titleSubstr, d)
		}
	}
	for _, bucket := range [][]document.Document{exact, prefix, substr, titleSubstr} {
		if len(bucket) == 0 {
			continue
		}
		sort.Slice(bucket, func(i, j int) bool {
			li, lj := len(bucket[i].URI), len(bucket[j].URI)
			if li != lj {
				return li < lj
			}
			return bucket[i].ID < bucket[j].ID
		})
		return bucket[0].Clone(), nil
	}
	return document.Document{}, coreerrors.NotFound("no document matches: "+nameOrURI, nil)
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func containsStr(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func (s *Store) AdjacentChunks(ctx context.Context, documentID string, orderFrom, orderTo int) ([]document.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.byDoc[documentID]
	if !ok {
		return nil, coreerrors.NotFound("document not found: "+documentID, nil)
	}
	var out []document.Chunk
	for _, id := range ids {
		c := s.chunks[id]
		if c.Order >= orderFrom && c.Order <= orderTo {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (s *Store) GetChunk(ctx context.Context, chunkID string) (document.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chunks[chunkID]
	if !ok {
		return document.Chunk{}, coreerrors.NotFound("chunk not found: "+chunkID, nil)
	}
	return c.Clone(), nil
}

func (s *Store) GetChunksBulk(ctx context.Context, chunkIDs []string) ([]document.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]document.Chunk, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		if c, ok := s.chunks[id]; ok {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

func (s *Store) ListDocuments(ctx context.Context, offset, limit int, filter *store.Filter) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []document.Document
	for _, d := range s.documents {
		if store.Match(filter, d) {
			all = append(all, d)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset > len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]document.Document, len(all))
	for i, d := range all {
		out[i] = d.Clone()
	}
	return out, nil
}
