package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/rerank"
)

func TestRankReturnsErrorWithoutAPIKey(t *testing.T) {
	client := New("")
	candidates := []rerank.Candidate{{Chunk: document.Chunk{ID: "c1"}, Content: "hello"}}
	if _, err := client.Rank(context.Background(), "query", candidates); err == nil {
		t.Fatal("expected error when api key is empty")
	}
}

func TestRankEmptyCandidatesIsNoOp(t *testing.T) {
	client := New("key")
	out, err := client.Rank(context.Background(), "query", nil)
	if err != nil || out != nil {
		t.Fatalf("expected nil, nil got %v %v", out, err)
	}
}

func TestRankParsesResponseAndReordersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rerankResponse{
			Results: []struct {
				Index int     `json:"index"`
				Score float64 `json:"score"`
			}{
				{Index: 1, Score: 0.9},
				{Index: 0, Score: 0.2},
			},
		})
	}))
	defer srv.Close()

	client := New("key", WithEndpoint(srv.URL))
	candidates := []rerank.Candidate{
		{Chunk: document.Chunk{ID: "c0"}, Content: "first"},
		{Chunk: document.Chunk{ID: "c1"}, Content: "second"},
	}
	results, err := client.Rank(context.Background(), "query", candidates)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(results) != 2 || results[0].Chunk.ID != "c1" || results[1].Chunk.ID != "c0" {
		t.Fatalf("unexpected result order: %+v", results)
	}
}

func TestRankServerErrorReturnsRerankerFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New("key", WithEndpoint(srv.URL))
	candidates := []rerank.Candidate{{Chunk: document.Chunk{ID: "c0"}, Content: "x"}}
	if _, err := client.Rank(context.Background(), "query", candidates); err == nil {
		t.Fatal("expected error on server failure")
	}
}
