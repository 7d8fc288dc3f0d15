// Package cohere adapts Cohere's Rerank API to rerank.Reranker.
//
// Grounded on the teacher's contrib/reranker/cohere/cohere.go for the
// request/response shape, HTTP client options, and functional-options
// constructor. Unlike the teacher's client, this adapter does not run its
// own fallback reranker on failure: rerank.Apply is the single place that
// absorbs a reranker failure and falls back to unreranked fusion order
// (spec.md §4.2), so Rank here simply returns the error.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	coreerrors "github.com/ggozad/haikurag-core/errors"
	"github.com/ggozad/haikurag-core/rerank"
)

const defaultEndpoint = "https://api.cohere.com/v1/rerank"

// Client implements rerank.Reranker against Cohere's Rerank API.
type Client struct {
	apiKey     string
	model      string
	topN       int
	httpClient *http.Client
	endpoint   string
}

// Option customises the Cohere reranker client.
type Option func(*Client)

// WithModel overrides the default Cohere model (rerank-english-v3.0).
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTopN limits how many documents Cohere re-ranks per call.
func WithTopN(topN int) Option {
	return func(c *Client) {
		if topN > 0 {
			c.topN = topN
		}
	}
}

// WithHTTPClient swaps the HTTP client (useful for timeouts or proxies).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithEndpoint overrides the Cohere API endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// New creates a new Cohere-based reranker.
func New(apiKey string, opts ...Option) *Client {
	client := &Client{
		apiKey:     apiKey,
		model:      "rerank-english-v3.0",
		topN:       50,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		endpoint:   defaultEndpoint,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n,omitempty"`
}

type rerankResponse struct {
	Results []struct {
		Index int     `json:"index"`
		Score float64 `json:"score"`
	} `json:"results"`
}

// Rank implements rerank.Reranker.
func (c *Client) Rank(ctx context.Context, query string, candidates []rerank.Candidate) ([]rerank.Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if c.apiKey == "" {
		return nil, coreerrors.RerankerFailure("cohere reranker has no api key configured", nil)
	}

	limit := len(candidates)
	if limit > c.topN {
		limit = c.topN
	}
	docTexts := make([]string, limit)
	for i := 0; i < limit; i++ {
		docTexts[i] = candidates[i].Content
	}

	payload := rerankRequest{
		Model:     c.model,
		Query:     query,
		Documents: docTexts,
		TopN:      limit,
	}
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, coreerrors.RerankerFailure("marshal cohere rerank request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, coreerrors.RerankerFailure("build cohere rerank request", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, coreerrors.RerankerFailure("cohere rerank request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, coreerrors.RerankerFailure(fmt.Sprintf("cohere rerank failed: status %d", resp.StatusCode), nil)
	}

	var rr rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, coreerrors.RerankerFailure("decode cohere rerank response", err)
	}

	results := make([]rerank.Result, 0, len(rr.Results))
	for _, res := range rr.Results {
		if res.Index < 0 || res.Index >= limit {
			continue
		}
		results = append(results, rerank.Result{
			Chunk: candidates[res.Index].Chunk,
			Score: res.Score,
		})
	}
	if len(results) == 0 {
		return nil, coreerrors.RerankerFailure("cohere returned no results", nil)
	}
	return results, nil
}
