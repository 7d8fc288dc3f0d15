package fusion

import (
	"testing"

	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/store"
)

func sc(id string) store.ScoredChunk {
	return store.ScoredChunk{Chunk: document.Chunk{ID: id}}
}

// TestRRFFusionBoundaryScenario2 reproduces the worked example from the
// boundary scenarios: L_v = [a,b,c], L_f = [b,d,a], k=60.
func TestRRFFusionBoundaryScenario2(t *testing.T) {
	vector := []store.ScoredChunk{sc("a"), sc("b"), sc("c")}
	fts := []store.ScoredChunk{sc("b"), sc("d"), sc("a")}

	got := RRF([][]store.ScoredChunk{vector, fts}, 60, 0)

	wantOrder := []string{"b", "a", "d", "c"}
	if len(got) != len(wantOrder) {
		t.Fatalf("expected %d results, got %d: %+v", len(wantOrder), len(got), got)
	}
	for i, id := range wantOrder {
		if got[i].Chunk.ID != id {
			t.Fatalf("position %d: expected %q, got %q (full: %+v)", i, id, got[i].Chunk.ID, got)
		}
	}

	scoreOf := func(id string) float64 {
		for _, r := range got {
			if r.Chunk.ID == id {
				return r.Score
			}
		}
		t.Fatalf("missing %q", id)
		return 0
	}
	almostEqual := func(a, b float64) bool {
		d := a - b
		if d < 0 {
			d = -d
		}
		return d < 1e-9
	}
	if !almostEqual(scoreOf("b"), 1.0/61+1.0/61) {
		t.Errorf("b score = %v", scoreOf("b"))
	}
	if !almostEqual(scoreOf("a"), 1.0/61+1.0/63) {
		t.Errorf("a score = %v", scoreOf("a"))
	}
	if !almostEqual(scoreOf("d"), 1.0/62) {
		t.Errorf("d score = %v", scoreOf("d"))
	}
	if !almostEqual(scoreOf("c"), 1.0/63) {
		t.Errorf("c score = %v", scoreOf("c"))
	}
}

func TestRRFTieBreakByChunkIDAscending(t *testing.T) {
	// Two chunks at the same rank in different lists tie in score; the
	// output must break ties by ascending chunk_id.
	vector := []store.ScoredChunk{sc("z")}
	fts := []store.ScoredChunk{sc("y")}
	got := RRF([][]store.ScoredChunk{vector, fts}, 60, 0)
	if got[0].Chunk.ID != "y" || got[1].Chunk.ID != "z" {
		t.Fatalf("expected tie-break y before z, got %+v", got)
	}
}

func TestRRFLimitTruncates(t *testing.T) {
	vector := []store.ScoredChunk{sc("a"), sc("b"), sc("c")}
	got := RRF([][]store.ScoredChunk{vector}, 60, 2)
	if len(got) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(got))
	}
}

func TestRRFDefaultKWhenNonPositive(t *testing.T) {
	a := RRF([][]store.ScoredChunk{{sc("x")}}, 0, 0)
	b := RRF([][]store.ScoredChunk{{sc("x")}}, DefaultK, 0)
	if a[0].Score != b[0].Score {
		t.Fatalf("expected k<=0 to fall back to DefaultK: %v vs %v", a[0].Score, b[0].Score)
	}
}
