// Package store defines the minimal, search-shaped façade the research
// graph and retrieval engine use to read from the underlying columnar
// vector+FTS store. It hides all physical layout behind a single
// interface; contrib/store/memdb and contrib/store/pgvector provide two
// independent implementations.
package store

import (
	"context"

	"github.com/ggozad/haikurag-core/document"
)

// ScoredChunk pairs a Chunk with a nonnegative relevance score assigned by
// a particular query. Scores from different search modes are only
// comparable after fusion.
type ScoredChunk struct {
	Chunk document.Chunk
	Score float64
}

// Store is the narrow façade the core depends on. Implementations are
// read-only from the core's perspective: the core never opens, migrates,
// or writes through this interface.
type Store interface {
	// SearchVector returns up to limit chunks ordered by vector similarity
	// to queryEmbedding.
	SearchVector(ctx context.Context, queryEmbedding []float32, limit int, filter *Filter) ([]ScoredChunk, error)

	// SearchFTS returns up to limit chunks ranked by the full-text index.
	SearchFTS(ctx context.Context, queryText string, limit int, filter *Filter) ([]ScoredChunk, error)

	// SearchHybrid combines SearchVector and SearchFTS via Reciprocal Rank
	// Fusion (see package fusion).
	SearchHybrid(ctx context.Context, queryText string, queryEmbedding []float32, limit int, filter *Filter) ([]ScoredChunk, error)

	// GetDocument returns the document with the given id.
	GetDocument(ctx context.Context, id string) (document.Document, error)

	// FindDocument resolves a human-supplied name or URI: exact URI match,
	// then prefix/substring URI match, then substring title match; ties
	// broken by shortest match then lexicographic id.
	FindDocument(ctx context.Context, nameOrURI string) (document.Document, error)

	// AdjacentChunks returns the inclusive range [orderFrom, orderTo] of
	// chunks belonging to documentID, ordered by Order.
	AdjacentChunks(ctx context.Context, documentID string, orderFrom, orderTo int) ([]document.Chunk, error)

	// GetChunk returns a single chunk by id.
	GetChunk(ctx context.Context, chunkID string) (document.Chunk, error)

	// GetChunksBulk returns chunks for the given ids, in no particular
	// order; missing ids are simply omitted from the result.
	GetChunksBulk(ctx context.Context, chunkIDs []string) ([]document.Chunk, error)

	// ListDocuments returns a page of documents matching filter.
	ListDocuments(ctx context.Context, offset, limit int, filter *Filter) ([]document.Document, error)

	// Dimension returns the store's configured embedding dimension, used
	// to validate query embeddings before they are ever sent on the wire.
	Dimension() int
}
