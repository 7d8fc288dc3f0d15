package research

import (
	"context"
	"errors"
	"testing"

	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/llm"
	"github.com/ggozad/haikurag-core/store"
)

type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
	}
	return out, nil
}
func (f fakeEmbedder) Dimension() int { return f.dim }

type fakeStore struct {
	chunk document.Chunk
	doc   document.Document
}

func (s fakeStore) SearchVector(ctx context.Context, q []float32, limit int, f *store.Filter) ([]store.ScoredChunk, error) {
	return []store.ScoredChunk{{Chunk: s.chunk, Score: 1}}, nil
}
func (s fakeStore) SearchFTS(ctx context.Context, q string, limit int, f *store.Filter) ([]store.ScoredChunk, error) {
	return []store.ScoredChunk{{Chunk: s.chunk, Score: 1}}, nil
}
func (s fakeStore) SearchHybrid(ctx context.Context, q string, v []float32, limit int, f *store.Filter) ([]store.ScoredChunk, error) {
	return []store.ScoredChunk{{Chunk: s.chunk, Score: 1}}, nil
}
func (s fakeStore) GetDocument(ctx context.Context, id string) (document.Document, error) {
	if id != s.doc.ID {
		return document.Document{}, errors.New("not found")
	}
	return s.doc, nil
}
func (s fakeStore) FindDocument(ctx context.Context, nameOrURI string) (document.Document, error) {
	return s.doc, nil
}
func (s fakeStore) AdjacentChunks(ctx context.Context, documentID string, from, to int) ([]document.Chunk, error) {
	return []document.Chunk{s.chunk}, nil
}
func (s fakeStore) GetChunk(ctx context.Context, chunkID string) (document.Chunk, error) {
	return s.chunk, nil
}
func (s fakeStore) GetChunksBulk(ctx context.Context, ids []string) ([]document.Chunk, error) {
	return []document.Chunk{s.chunk}, nil
}
func (s fakeStore) ListDocuments(ctx context.Context, offset, limit int, f *store.Filter) ([]document.Document, error) {
	return []document.Document{s.doc}, nil
}
func (s fakeStore) Dimension() int { return 4 }

func newFakeStore() fakeStore {
	doc := document.Document{ID: "doc1", URI: "file:///a.txt", Title: "A"}
	chunk := document.Chunk{ID: "chunk1", DocumentID: "doc1", Content: "paris is the capital of france", Order: 0, Label: document.LabelText}
	return fakeStore{chunk: chunk, doc: doc}
}

func TestSearcherRunParsesFinalAnswer(t *testing.T) {
	st := newFakeStore()
	qa := `{"answer":"Paris","cited_chunks":["ref:chunk1"],"confidence":0.9}`
	s := &Searcher{
		Store:    st,
		Embedder: fakeEmbedder{dim: 4},
		LLM:      stubChatLLM{text: qa},
		Prompt:   "answer using context",
	}
	rctx := &Context{OriginalQuestion: "what is the capital of france"}

	answer, err := s.Run(context.Background(), rctx, "what is the capital of france")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if answer.Answer != "Paris" || answer.Confidence != 0.9 {
		t.Fatalf("got %+v", answer)
	}
	if len(answer.Citations) != 1 || answer.Citations[0].Index != 1 {
		t.Fatalf("expected one interned citation, got %+v", answer.Citations)
	}
	if len(rctx.QAResponses) != 1 {
		t.Fatalf("expected answer appended to context, got %d", len(rctx.QAResponses))
	}
}

func TestSearcherRunDegradesOnPersistentFailure(t *testing.T) {
	st := newFakeStore()
	s := &Searcher{
		Store:    st,
		Embedder: fakeEmbedder{dim: 4},
		LLM:      stubChatLLM{err: errors.New("provider down")},
		Prompt:   "answer using context",
	}
	rctx := &Context{OriginalQuestion: "q"}

	answer, err := s.Run(context.Background(), rctx, "q")
	if err != nil {
		t.Fatalf("Run should not surface llm failure: %v", err)
	}
	if answer.Answer != "" || answer.Confidence != 0 {
		t.Fatalf("expected degraded empty answer, got %+v", answer)
	}
}

func TestSearcherRunDefaultsConfidence(t *testing.T) {
	st := newFakeStore()
	qa := `{"answer":"Paris","cited_chunks":[]}`
	s := &Searcher{
		Store:    st,
		Embedder: fakeEmbedder{dim: 4},
		LLM:      stubChatLLM{text: qa},
		Prompt:   "answer using context",
	}
	rctx := &Context{OriginalQuestion: "q"}

	answer, err := s.Run(context.Background(), rctx, "q")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if answer.Confidence != 0.5 {
		t.Fatalf("expected default confidence 0.5, got %v", answer.Confidence)
	}
}

var _ llm.ChatLLM = stubChatLLM{}
