package expand

import (
	"context"
	"testing"

	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/store"
)

// fakeStore is a minimal in-memory store.Store sufficient for expander
// tests: a single document's ordered chunk list.
type fakeStore struct {
	chunks []document.Chunk // sorted by Order
}

func (f *fakeStore) SearchVector(ctx context.Context, q []float32, limit int, filter *store.Filter) ([]store.ScoredChunk, error) {
	return nil, nil
}
func (f *fakeStore) SearchFTS(ctx context.Context, q string, limit int, filter *store.Filter) ([]store.ScoredChunk, error) {
	return nil, nil
}
func (f *fakeStore) SearchHybrid(ctx context.Context, qt string, qe []float32, limit int, filter *store.Filter) ([]store.ScoredChunk, error) {
	return nil, nil
}
func (f *fakeStore) GetDocument(ctx context.Context, id string) (document.Document, error) {
	return document.Document{}, nil
}
func (f *fakeStore) FindDocument(ctx context.Context, nameOrURI string) (document.Document, error) {
	return document.Document{}, nil
}
func (f *fakeStore) AdjacentChunks(ctx context.Context, documentID string, orderFrom, orderTo int) ([]document.Chunk, error) {
	var out []document.Chunk
	for _, c := range f.chunks {
		if c.DocumentID == documentID && c.Order >= orderFrom && c.Order <= orderTo {
			out = append(out, c)
		}
	}
	return out, nil
}
func (f *fakeStore) GetChunk(ctx context.Context, id string) (document.Chunk, error) {
	for _, c := range f.chunks {
		if c.ID == id {
			return c, nil
		}
	}
	return document.Chunk{}, nil
}
func (f *fakeStore) GetChunksBulk(ctx context.Context, ids []string) ([]document.Chunk, error) {
	return nil, nil
}
func (f *fakeStore) ListDocuments(ctx context.Context, offset, limit int, filter *store.Filter) ([]document.Document, error) {
	return nil, nil
}
func (f *fakeStore) Dimension() int { return 4 }

func textChunk(doc string, order int, content string) document.Chunk {
	return document.Chunk{ID: doc + "-c" + itoa(order), DocumentID: doc, Order: order, Content: content, Label: document.LabelText}
}

func itoa(n int) string {
	digits := "0123456789"
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{digits[n%10]}, b...)
		n /= 10
	}
	return string(b)
}

// TestAdjacencyMergeBoundaryScenario3 reproduces boundary scenario 3:
// chunks at orders {2,3} scores {0.8,0.6}, context_radius=1, expect one
// merged entry covering orders [1..4], score 0.8, citation = order-2 chunk.
func TestAdjacencyMergeBoundaryScenario3(t *testing.T) {
	var chunks []document.Chunk
	for i := 0; i <= 9; i++ {
		chunks = append(chunks, textChunk("d1", i, "c"+itoa(i)))
	}
	fs := &fakeStore{chunks: chunks}

	results := []store.ScoredChunk{
		{Chunk: chunks[2], Score: 0.8},
		{Chunk: chunks[3], Score: 0.6},
	}
	out, err := Expand(context.Background(), fs, results, Config{ContextRadius: 1, MaxContextItems: 20, MaxContextChars: 10000})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 merged result, got %d: %+v", len(out), out)
	}
	got := out[0]
	if got.Score != 0.8 {
		t.Errorf("expected merged score 0.8, got %v", got.Score)
	}
	if got.Originating.ID != chunks[2].ID {
		t.Errorf("expected originating chunk to be order-2 (highest score), got %s", got.Originating.ID)
	}
	if len(got.Members) != 4 || got.Members[0].Order != 1 || got.Members[3].Order != 4 {
		t.Errorf("expected members covering orders [1..4], got %+v", got.Members)
	}
}

// TestStructuralExpansionBoundaryScenario4 reproduces boundary scenario 4:
// a table split into t1,t2,t3 (same structural-unit id); search returns t2
// only; expansion yields one merged content t1‖t2‖t3 regardless of radius.
func TestStructuralExpansionBoundaryScenario4(t *testing.T) {
	t1 := document.Chunk{ID: "t1", DocumentID: "d1", Order: 0, Content: "row1", Label: document.LabelTable, StructuralUnitID: "tbl-1"}
	t2 := document.Chunk{ID: "t2", DocumentID: "d1", Order: 1, Content: "row2", Label: document.LabelTable, StructuralUnitID: "tbl-1"}
	t3 := document.Chunk{ID: "t3", DocumentID: "d1", Order: 2, Content: "row3", Label: document.LabelTable, StructuralUnitID: "tbl-1"}
	fs := &fakeStore{chunks: []document.Chunk{t1, t2, t3}}

	results := []store.ScoredChunk{{Chunk: t2, Score: 0.9}}
	out, err := Expand(context.Background(), fs, results, Config{ContextRadius: 100, MaxContextItems: 20, MaxContextChars: 10000})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out))
	}
	want := "row1\nrow2\nrow3"
	if out[0].Content != want {
		t.Errorf("expected %q, got %q", want, out[0].Content)
	}
}

func TestExpandRespectsMaxContextItems(t *testing.T) {
	var chunks []document.Chunk
	for i := 0; i <= 5; i++ {
		chunks = append(chunks, textChunk("d1", i, "x"))
	}
	fs := &fakeStore{chunks: chunks}
	results := []store.ScoredChunk{{Chunk: chunks[3], Score: 1}}
	out, err := Expand(context.Background(), fs, results, Config{ContextRadius: 5, MaxContextItems: 2, MaxContextChars: 10000})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out[0].Members) != 2 {
		t.Errorf("expected MaxContextItems=2 to cap members, got %d", len(out[0].Members))
	}
}

func TestExpandNoOverlapKeepsResultsSeparate(t *testing.T) {
	var chunks []document.Chunk
	for i := 0; i <= 20; i++ {
		chunks = append(chunks, textChunk("d1", i, "x"))
	}
	fs := &fakeStore{chunks: chunks}
	results := []store.ScoredChunk{
		{Chunk: chunks[0], Score: 0.5},
		{Chunk: chunks[15], Score: 0.9},
	}
	out, err := Expand(context.Background(), fs, results, Config{ContextRadius: 1, MaxContextItems: 20, MaxContextChars: 10000})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 disjoint results, got %d", len(out))
	}
}
