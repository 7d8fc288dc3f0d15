package research

import (
	"context"
	"fmt"
	"time"

	"github.com/ggozad/haikurag-core/citation"
	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/expand"
	"github.com/ggozad/haikurag-core/llm"
	"github.com/ggozad/haikurag-core/pkg/logging"
	"github.com/ggozad/haikurag-core/rerank"
	"github.com/ggozad/haikurag-core/store"
)

// searchDocumentsTool is the tool name the QA model may call to run an
// additional ad-hoc retrieval beyond the initial hybrid search.
const searchDocumentsTool = "search_documents"

// maxToolCalls bounds how many search_documents round-trips a single
// sub-question may spend, per spec.md §4.6.
const maxToolCalls = 3

var retryBackoffs = []time.Duration{100 * time.Millisecond, 400 * time.Millisecond}

// Searcher resolves one sub-question against the store and an answering
// LLM.
//
// Grounded on the teacher's rag/agentic/researcher.go: same embed→search→
// prompt-with-markers→LLM-with-tool shape, generalized from the teacher's
// single vector search to the spec's hybrid-search+rerank+expand
// pipeline, and with the teacher's bare LLM-error propagation replaced by
// bounded retry-then-degrade (spec §4.6).
type Searcher struct {
	Store    store.Store
	Embedder llm.Embedder
	LLM      llm.ChatLLM
	Reranker rerank.Reranker
	Expand   expand.Config

	// Limit is the base hybrid-search result count before any rerank
	// multiplier is applied.
	Limit int
	// RerankMultiplier widens the candidate pool fed to the reranker
	// (spec §4.2's rerank_multiplier, default 10).
	RerankMultiplier int
	// RerankTimeout bounds a single Apply call.
	RerankTimeout time.Duration

	Prompt string
}

type qaResultJSON struct {
	Answer      string   `json:"answer"`
	CitedChunks []string `json:"cited_chunks"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// Run answers question, appends the resulting SearchAnswer to rctx, and
// returns it. It never returns an error for retrieval/LLM failures:
// persistent failure degrades to an empty SearchAnswer so the graph keeps
// running (spec §4.6). It returns an error only for caller misuse (nil
// Store/LLM/Embedder) or context cancellation.
func (s *Searcher) Run(ctx context.Context, rctx *Context, question string) (SearchAnswer, error) {
	logger := logging.WithComponent("research.searchone")
	if s.Store == nil || s.Embedder == nil || s.LLM == nil {
		return SearchAnswer{}, fmt.Errorf("searcher is not fully configured")
	}

	if rctx.CitationRegistry == nil {
		// First SearchOne of a run with no caller-supplied registry
		// (standalone research, not a chat session): allocate one here
		// and store it back on rctx so every later iteration of this
		// same run interns into it too, instead of each iteration
		// minting its own and colliding indices (spec.md §3/§4.4/§8).
		rctx.CitationRegistry = citation.New()
	}
	reg := rctx.CitationRegistry
	answer, err := s.attempt(ctx, rctx, question, reg)
	for attempt := 0; err != nil && attempt < len(retryBackoffs); attempt++ {
		if ctx.Err() != nil {
			break
		}
		logger.Warn("search-one attempt failed, retrying", "attempt", attempt+1, "error", err)
		select {
		case <-time.After(retryBackoffs[attempt]):
		case <-ctx.Done():
		}
		answer, err = s.attempt(ctx, rctx, question, reg)
	}
	if err != nil {
		if ctx.Err() != nil {
			return SearchAnswer{}, ctx.Err()
		}
		logger.Error("search-one exhausted retries, degrading to empty answer", "error", err)
		answer = SearchAnswer{Query: question, Answer: "", Confidence: 0, CitedChunks: nil}
	}

	rctx.QAResponses = append(rctx.QAResponses, answer)
	return answer, nil
}

func (s *Searcher) attempt(ctx context.Context, rctx *Context, question string, reg *citation.Registry) (SearchAnswer, error) {
	vecs, err := s.Embedder.Embed(ctx, []string{question})
	if err != nil || len(vecs) != 1 {
		return SearchAnswer{}, fmt.Errorf("embed sub-question: %w", err)
	}
	embedding := vecs[0]

	limit := s.limit()
	fetchLimit := limit
	if s.Reranker != nil {
		mult := s.RerankMultiplier
		if mult <= 0 {
			mult = rerank.DefaultMultiplier
		}
		fetchLimit = limit * mult
	}

	results, err := s.Store.SearchHybrid(ctx, question, embedding, fetchLimit, rctx.SearchFilter)
	if err != nil {
		return SearchAnswer{}, fmt.Errorf("hybrid search: %w", err)
	}

	ranked := rerank.Apply(ctx, s.Reranker, question, results, limit, s.RerankTimeout)

	expanded, err := expand.Expand(ctx, s.Store, ranked, s.Expand)
	if err != nil {
		return SearchAnswer{}, fmt.Errorf("expand context: %w", err)
	}

	promptBody, markerToChunk := buildMarkerPrompt(expanded)
	messages := []*llm.Message{
		llm.NewMessage(llm.RoleSystem, s.Prompt),
		llm.NewMessage(llm.RoleUser, fmt.Sprintf("<question>\n%s\n</question>\n<context>\n%s\n</context>\n\nReturn strict JSON: {\"answer\":\"...\",\"cited_chunks\":[\"...\"],\"confidence\":0.0}.", question, promptBody)),
	}
	tools := []llm.ToolSpec{{
		Name:        searchDocumentsTool,
		Description: "Search the document store for additional context relevant to the question.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
			"required": []string{"query"},
		},
	}}

	for call := 0; call < maxToolCalls; call++ {
		resp, err := s.LLM.Chat(ctx, llm.Request{Messages: messages, Tools: tools})
		if err != nil {
			return SearchAnswer{}, fmt.Errorf("qa llm call: %w", err)
		}
		if len(resp.ToolCalls) == 0 {
			parsed, err := decodeJSON[qaResultJSON](resp.Text)
			if err != nil {
				return SearchAnswer{}, fmt.Errorf("qa output invalid: %w", err)
			}
			return s.buildAnswer(ctx, question, parsed, markerToChunk, reg), nil
		}

		assistantMsg := llm.NewMessage(llm.RoleAssistant, resp.Text)
		assistantMsg.ToolCalls = resp.ToolCalls
		messages = append(messages, assistantMsg)

		for _, tc := range resp.ToolCalls {
			toolResults, newMarkers, err := s.runToolCall(ctx, rctx, tc)
			if err != nil {
				toolResults = fmt.Sprintf("search failed: %v", err)
			}
			for marker, chunk := range newMarkers {
				markerToChunk[marker] = chunk
			}
			messages = append(messages, llm.NewToolResponseMessage(tc.ID, toolResults))
		}
	}

	return SearchAnswer{}, fmt.Errorf("exceeded %d tool calls without a final answer", maxToolCalls)
}

func (s *Searcher) runToolCall(ctx context.Context, rctx *Context, tc llm.ToolCall) (string, map[string]document.Chunk, error) {
	query, _ := tc.Args["query"].(string)
	if query == "" {
		return "", nil, fmt.Errorf("search_documents called without a query argument")
	}

	vecs, err := s.Embedder.Embed(ctx, []string{query})
	if err != nil || len(vecs) != 1 {
		return "", nil, fmt.Errorf("embed tool query: %w", err)
	}

	limit := s.limit()
	results, err := s.Store.SearchHybrid(ctx, query, vecs[0], limit, rctx.SearchFilter)
	if err != nil {
		return "", nil, fmt.Errorf("tool hybrid search: %w", err)
	}

	expanded, err := expand.Expand(ctx, s.Store, results, s.Expand)
	if err != nil {
		return "", nil, fmt.Errorf("tool expand: %w", err)
	}

	body, markers := buildMarkerPrompt(expanded)
	return body, markers, nil
}

func (s *Searcher) limit() int {
	if s.Limit <= 0 {
		return 8
	}
	return s.Limit
}

func buildMarkerPrompt(expanded []expand.Expanded) (string, map[string]document.Chunk) {
	markers := make(map[string]document.Chunk, len(expanded))
	body := ""
	for _, e := range expanded {
		marker := fmt.Sprintf("ref:%s", e.Originating.ID)
		markers[marker] = e.Originating
		body += fmt.Sprintf("[%s] %s\n\n", marker, e.Content)
	}
	return body, markers
}

// buildAnswer converts the model's parsed JSON into a SearchAnswer,
// interning cited chunk ids into the session citation registry so
// indices stay stable across the whole run.
func (s *Searcher) buildAnswer(ctx context.Context, question string, parsed *qaResultJSON, markerToChunk map[string]document.Chunk, reg *citation.Registry) SearchAnswer {
	confidence := 0.5
	if parsed.Confidence != nil {
		confidence = *parsed.Confidence
	}

	docs := make(map[string]document.Document)
	citedIDs := make([]string, 0, len(parsed.CitedChunks))
	citations := make([]document.Citation, 0, len(parsed.CitedChunks))
	for _, ref := range parsed.CitedChunks {
		chunk, ok := markerToChunk[ref]
		if !ok {
			chunk, ok = markerToChunk["ref:"+ref]
		}
		if !ok {
			continue
		}
		citedIDs = append(citedIDs, chunk.ID)
		idx := reg.Intern(chunk.ID)

		doc, ok := docs[chunk.DocumentID]
		if !ok {
			if d, err := s.Store.GetDocument(ctx, chunk.DocumentID); err == nil {
				doc = d
			}
			docs[chunk.DocumentID] = doc
		}
		var title *string
		if doc.Title != "" {
			title = &doc.Title
		}
		citations = append(citations, document.Citation{
			Index:         idx,
			DocumentID:    chunk.DocumentID,
			ChunkID:       chunk.ID,
			DocumentURI:   doc.URI,
			DocumentTitle: title,
			PageNumbers:   chunk.PageNumbers,
			Headings:      chunk.Headings,
			Content:       chunk.Content,
		})
	}

	return SearchAnswer{
		Query:       question,
		Answer:      parsed.Answer,
		Confidence:  confidence,
		CitedChunks: citedIDs,
		Citations:   citations,
	}
}
