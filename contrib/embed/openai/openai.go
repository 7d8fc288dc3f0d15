// Package openai adapts OpenAI's embeddings API to llm.Embedder.
//
// Grounded on the teacher's contrib/embedder/openai/openai.go: same
// client construction and batch-embed call shape, with Embed taking the
// full text batch directly (spec.md §6 states the embedder capability is
// itself batch-shaped) instead of the teacher's single-text Embed plus a
// separate EmbedBatch.
package openai

import (
	"context"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	coreerrors "github.com/ggozad/haikurag-core/errors"
	"github.com/ggozad/haikurag-core/llm"
)

// Embedder implements llm.Embedder using OpenAI's embeddings API.
type Embedder struct {
	client    openaisdk.Client
	model     openaisdk.EmbeddingModel
	dimension int
}

// New creates an Embedder for the given model and output dimension.
func New(apiKey, baseURL string, model openaisdk.EmbeddingModel, dimension int) *Embedder {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Embedder{client: openaisdk.NewClient(opts...), model: model, dimension: dimension}
}

var _ llm.Embedder = (*Embedder)(nil)

// Dimension implements llm.Embedder.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed implements llm.Embedder.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openaisdk.EmbeddingNewParams{
		Model: e.model,
		Input: openaisdk.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, coreerrors.EmbedderFailure("create embeddings", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, coreerrors.EmbedderFailure(
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)), nil)
	}

	out := make([][]float32, len(resp.Data))
	for i, emb := range resp.Data {
		out[i] = convertVector(emb.Embedding, e.dimension)
	}
	return out, nil
}

func convertVector(input []float64, expected int) []float32 {
	vec := make([]float32, expected)
	for i := 0; i < len(input) && i < expected; i++ {
		vec[i] = float32(input[i])
	}
	return vec
}
