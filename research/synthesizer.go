package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/llm"
)

// Synthesizer composes the accumulated qa_responses into a final Output,
// either a long-form Report or a short Conversational answer.
//
// Grounded on the teacher's rag/agentic/synthesizer.go: same prompt-
// format-evidence-then-Generate shape, split into two output modes per
// spec.md §4.7 instead of the teacher's single free-text Compose.
type Synthesizer struct {
	LLM                  llm.ChatLLM
	ReportPrompt         string
	ConversationalPrompt string
}

type reportJSON struct {
	Title            string   `json:"title"`
	ExecutiveSummary string   `json:"executive_summary"`
	MainFindings     []string `json:"main_findings"`
	Conclusions      []string `json:"conclusions"`
	Recommendations  []string `json:"recommendations"`
	Limitations      []string `json:"limitations"`
	SourcesSummary   string   `json:"sources_summary"`
}

type conversationalJSON struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// ComposeReport synthesizes a long-form Report from rctx.QAResponses.
func (s *Synthesizer) ComposeReport(ctx context.Context, rctx *Context) (Output, error) {
	if s.LLM == nil {
		return Output{}, fmt.Errorf("synthesizer llm is not configured")
	}

	raw, err := s.generate(ctx, s.ReportPrompt, rctx)
	if err != nil {
		return Output{}, err
	}
	parsed, err := decodeJSON[reportJSON](raw)
	if err != nil {
		return Output{}, fmt.Errorf("report output invalid: %w", err)
	}

	report := &Report{
		Title:            parsed.Title,
		ExecutiveSummary: parsed.ExecutiveSummary,
		MainFindings:     parsed.MainFindings,
		Conclusions:      parsed.Conclusions,
		Recommendations:  parsed.Recommendations,
		Limitations:      parsed.Limitations,
		SourcesSummary:   sourcesSummaryOrDefault(parsed.SourcesSummary, rctx.QAResponses),
	}
	return Output{Kind: OutputReport, Report: report}, nil
}

// ComposeConversational synthesizes a short Conversational answer from
// rctx.QAResponses. Its citations are the qa_responses' own citations,
// deduplicated in first-occurrence order; the model's output carries no
// citation list, so no chunk outside qa_responses can be cited (spec.md
// §4.7 forbids citing ungrounded chunks).
func (s *Synthesizer) ComposeConversational(ctx context.Context, rctx *Context) (Output, error) {
	if s.LLM == nil {
		return Output{}, fmt.Errorf("synthesizer llm is not configured")
	}

	raw, err := s.generate(ctx, s.ConversationalPrompt, rctx)
	if err != nil {
		return Output{}, err
	}
	parsed, err := decodeJSON[conversationalJSON](raw)
	if err != nil {
		return Output{}, fmt.Errorf("conversational output invalid: %w", err)
	}

	answer := &ConversationalAnswer{
		Answer:     parsed.Answer,
		Confidence: parsed.Confidence,
		Citations:  dedupeCitations(rctx.QAResponses),
	}
	return Output{Kind: OutputConversational, Conversational: answer}, nil
}

func (s *Synthesizer) generate(ctx context.Context, prompt string, rctx *Context) (string, error) {
	body := formatQAResponses(rctx.QAResponses)
	user := fmt.Sprintf("<original_question>\n%s\n</original_question>\n<answers>\n%s\n</answers>\n\nReturn strict JSON matching the requested shape.", rctx.OriginalQuestion, body)

	resp, err := s.LLM.Chat(ctx, llm.Request{Messages: []*llm.Message{
		llm.NewMessage(llm.RoleSystem, prompt),
		llm.NewMessage(llm.RoleUser, user),
	}})
	if err != nil {
		return "", fmt.Errorf("synthesizer generation failed: %w", err)
	}
	return resp.Text, nil
}

func formatQAResponses(qa []SearchAnswer) string {
	if len(qa) == 0 {
		return "No sub-questions were answered."
	}
	var b strings.Builder
	for _, a := range qa {
		fmt.Fprintf(&b, "Q: %s\nA: %s (confidence %.2f, %d cited chunks)\n\n", a.Query, a.Answer, a.Confidence, len(a.CitedChunks))
	}
	return b.String()
}

func sourcesSummaryOrDefault(summary string, qa []SearchAnswer) string {
	if strings.TrimSpace(summary) != "" {
		return summary
	}
	total := 0
	for _, a := range qa {
		total += len(a.CitedChunks)
	}
	return fmt.Sprintf("Synthesized from %d sub-question(s) and %d cited chunk(s).", len(qa), total)
}

// dedupeCitations unions every qa_response's citations, keeping the first
// occurrence of each chunk id and its originally-assigned index (the
// registry already guarantees indices are stable and increasing).
func dedupeCitations(qa []SearchAnswer) []document.Citation {
	seen := make(map[string]bool)
	out := make([]document.Citation, 0)
	for _, a := range qa {
		for _, c := range a.Citations {
			if seen[c.ChunkID] {
				continue
			}
			seen[c.ChunkID] = true
			out = append(out, c)
		}
	}
	return out
}
