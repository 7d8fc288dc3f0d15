package memdb

import (
	"context"
	"testing"

	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/filterdsl"
)

func seedStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(4)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	doc := document.Document{ID: "d1", URI: "file:///notes/go.md", Title: "Go Notes"}
	chunks := []document.Chunk{
		{ID: "c0", DocumentID: "d1", Order: 0, Content: "goroutines are cheap", Embedding: []float32{1, 0, 0, 0}, Label: document.LabelText},
		{ID: "c1", DocumentID: "d1", Order: 1, Content: "channels synchronize goroutines", Embedding: []float32{0.9, 0.1, 0, 0}, Label: document.LabelText},
		{ID: "c2", DocumentID: "d1", Order: 2, Content: "select statements multiplex channels", Embedding: []float32{0, 1, 0, 0}, Label: document.LabelText},
	}
	if err := s.IndexDocument(context.Background(), doc, chunks); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	return s
}

func TestSearchVectorOrdersByCosineSimilarity(t *testing.T) {
	s := seedStore(t)
	out, err := s.SearchVector(context.Background(), []float32{1, 0, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("SearchVector: %v", err)
	}
	if len(out) != 2 || out[0].Chunk.ID != "c0" {
		t.Fatalf("expected c0 first, got %+v", out)
	}
}

func TestSearchVectorDimensionMismatch(t *testing.T) {
	s := seedStore(t)
	if _, err := s.SearchVector(context.Background(), []float32{1, 0}, 2, nil); err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestSearchFTSFindsKeywordMatch(t *testing.T) {
	s := seedStore(t)
	out, err := s.SearchFTS(context.Background(), "channels", 10, nil)
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected at least one FTS match for 'channels'")
	}
}

func TestSearchHybridReturnsFusedResults(t *testing.T) {
	s := seedStore(t)
	out, err := s.SearchHybrid(context.Background(), "channels", []float32{0, 1, 0, 0}, 3, nil)
	if err != nil {
		t.Fatalf("SearchHybrid: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected fused results")
	}
	for i := 1; i < len(out); i++ {
		if out[i].Score > out[i-1].Score {
			t.Fatalf("expected non-increasing scores, got %+v", out)
		}
	}
}

func TestGetDocumentAndFindDocument(t *testing.T) {
	s := seedStore(t)
	d, err := s.GetDocument(context.Background(), "d1")
	if err != nil || d.ID != "d1" {
		t.Fatalf("GetDocument: %v %+v", err, d)
	}
	if _, err := s.GetDocument(context.Background(), "missing"); err == nil {
		t.Fatal("expected not found")
	}

	found, err := s.FindDocument(context.Background(), "go.md")
	if err != nil || found.ID != "d1" {
		t.Fatalf("FindDocument substring: %v %+v", err, found)
	}
}

func TestAdjacentChunksInclusiveRange(t *testing.T) {
	s := seedStore(t)
	out, err := s.AdjacentChunks(context.Background(), "d1", 1, 2)
	if err != nil {
		t.Fatalf("AdjacentChunks: %v", err)
	}
	if len(out) != 2 || out[0].ID != "c1" || out[1].ID != "c2" {
		t.Fatalf("unexpected range: %+v", out)
	}
}

func TestGetChunkAndBulk(t *testing.T) {
	s := seedStore(t)
	c, err := s.GetChunk(context.Background(), "c1")
	if err != nil || c.ID != "c1" {
		t.Fatalf("GetChunk: %v %+v", err, c)
	}
	bulk, err := s.GetChunksBulk(context.Background(), []string{"c0", "missing", "c2"})
	if err != nil {
		t.Fatalf("GetChunksBulk: %v", err)
	}
	if len(bulk) != 2 {
		t.Fatalf("expected 2 found chunks, got %d", len(bulk))
	}
}

func TestListDocumentsWithFilter(t *testing.T) {
	s := seedStore(t)
	f, err := filterdsl.Parse("title = 'Go Notes'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := s.ListDocuments(context.Background(), 0, 10, f)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 document, got %d", len(out))
	}

	f2, _ := filterdsl.Parse("title = 'Nonexistent'")
	out2, err := s.ListDocuments(context.Background(), 0, 10, f2)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(out2) != 0 {
		t.Fatalf("expected 0 documents, got %d", len(out2))
	}
}

func TestDimensionMismatchOnIndex(t *testing.T) {
	s := seedStore(t)
	doc := document.Document{ID: "d2", URI: "file:///bad.md"}
	bad := []document.Chunk{{ID: "bx", DocumentID: "d2", Order: 0, Content: "x", Embedding: []float32{1, 2}}}
	if err := s.IndexDocument(context.Background(), doc, bad); err == nil {
		t.Fatal("expected dimension mismatch on index")
	}
}
