package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/ggozad/haikurag-core/llm"
	"github.com/ggozad/haikurag-core/rerank"
)

// Planner decides the next sub-question or signals completion.
//
// Grounded on the teacher's rag/agentic/planner.go: same system-prompt +
// single user-turn shape and decodeJSON-the-output approach. The
// teacher's planner only ever proposes a fixed plan of steps up front;
// this one re-runs every iteration and is subject to the policy rules in
// spec.md §4.5 (iteration bound, near-duplicate rejection, confident-
// prior-answer short-circuit), none of which the teacher's planner has.
type Planner struct {
	LLM    llm.ChatLLM
	Prompt string

	// CompletionConfidence is the SearchAnswer.Confidence threshold above
	// which an existing answer can short-circuit the run.
	CompletionConfidence float64
	// NearDuplicateMatch is the case-normalized prefix-match ratio at or
	// above which a proposed question is treated as a repeat.
	NearDuplicateMatch float64

	// Embedder is used to judge whether a high-confidence prior answer
	// covers the same intent as the original question. Optional: when
	// nil, intent coverage falls back to a lexical overlap heuristic.
	Embedder llm.Embedder
}

type proposalJSON struct {
	Kind     string `json:"kind"` // "propose_question" | "complete"
	Question string `json:"question,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Decide returns the planner's verdict for the current state of rctx.
func (p *Planner) Decide(ctx context.Context, rctx *Context) (Decision, error) {
	if rctx.Iterations >= rctx.MaxIterations {
		return Decision{Kind: DecisionComplete, Reason: "iteration bound"}, nil
	}

	if short, reason := p.confidentAnswerCoversQuestion(ctx, rctx); short {
		return Decision{Kind: DecisionComplete, Reason: reason}, nil
	}

	if p.LLM == nil {
		return Decision{}, fmt.Errorf("planner llm is not configured")
	}

	raw, err := p.propose(ctx, rctx)
	if err != nil {
		return Decision{}, fmt.Errorf("planner generation failed: %w", err)
	}

	decision, err := decodeJSON[proposalJSON](raw)
	if err != nil {
		return Decision{}, fmt.Errorf("planner output invalid: %w", err)
	}

	if decision.Kind == string(DecisionComplete) {
		reason := decision.Reason
		if reason == "" {
			reason = "planner signalled completion"
		}
		return Decision{Kind: DecisionComplete, Reason: reason}, nil
	}

	question := strings.TrimSpace(decision.Question)
	if question == "" {
		return Decision{Kind: DecisionComplete, Reason: "no new direction"}, nil
	}
	for _, prior := range rctx.QAResponses {
		if nearDuplicate(question, prior.Query, p.nearDuplicateThreshold()) {
			return Decision{Kind: DecisionComplete, Reason: "no new direction"}, nil
		}
	}

	return Decision{Kind: DecisionProposeQuestion, Question: question}, nil
}

func (p *Planner) nearDuplicateThreshold() float64 {
	if p.NearDuplicateMatch <= 0 {
		return 0.90
	}
	return p.NearDuplicateMatch
}

func (p *Planner) completionConfidence() float64 {
	if p.CompletionConfidence <= 0 {
		return 0.9
	}
	return p.CompletionConfidence
}

func (p *Planner) propose(ctx context.Context, rctx *Context) (string, error) {
	background := "none"
	if rctx.SessionContext != nil && rctx.SessionContext.Summary != "" {
		background = rctx.SessionContext.Summary
	}

	var priorAnswers strings.Builder
	if len(rctx.QAResponses) == 0 {
		priorAnswers.WriteString("none")
	}
	for _, qa := range rctx.QAResponses {
		fmt.Fprintf(&priorAnswers, "- query=%q answer=%q confidence=%.2f\n", qa.Query, qa.Answer, qa.Confidence)
	}

	remaining := rctx.MaxIterations - rctx.Iterations
	user := fmt.Sprintf(
		"<background>\n%s\n</background>\n<prior_answers>\n%s\n</prior_answers>\n<original_question>\n%s\n</original_question>\nRemaining iterations: %d\n\nReturn strict JSON: {\"kind\":\"propose_question\",\"question\":\"...\"} or {\"kind\":\"complete\",\"reason\":\"...\"}.",
		background, priorAnswers.String(), rctx.OriginalQuestion, remaining)

	resp, err := p.LLM.Chat(ctx, llm.Request{Messages: []*llm.Message{
		llm.NewMessage(llm.RoleSystem, p.Prompt),
		llm.NewMessage(llm.RoleUser, user),
	}})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// confidentAnswerCoversQuestion implements spec.md §4.5's short-circuit:
// a prior SearchAnswer whose confidence already clears the threshold and
// whose query covers the same intent as the original question lets the
// planner complete early rather than keep asking.
func (p *Planner) confidentAnswerCoversQuestion(ctx context.Context, rctx *Context) (bool, string) {
	threshold := p.completionConfidence()
	for _, qa := range rctx.QAResponses {
		if qa.Confidence < threshold {
			continue
		}
		if p.sameIntent(ctx, qa.Query, rctx.OriginalQuestion) {
			return true, "confident answer already covers the question"
		}
	}
	return false, ""
}

func (p *Planner) sameIntent(ctx context.Context, query, question string) bool {
	if p.Embedder != nil {
		vecs, err := p.Embedder.Embed(ctx, []string{query, question})
		if err == nil && len(vecs) == 2 {
			return rerank.CosineSimilarity(vecs[0], vecs[1]) >= 0.85
		}
	}
	return lexicalOverlap(query, question) >= 0.6
}

func nearDuplicate(a, b string, threshold float64) bool {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	shorter, longer := a, b
	if len(a) > len(b) {
		shorter, longer = b, a
	}
	n := 0
	for n < len(shorter) && n < len(longer) && shorter[n] == longer[n] {
		n++
	}
	return float64(n)/float64(len(shorter)) >= threshold
}

func lexicalOverlap(a, b string) float64 {
	wordsA := strings.Fields(strings.ToLower(a))
	wordsB := strings.Fields(strings.ToLower(b))
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		set[w] = struct{}{}
	}
	hits := 0
	for _, w := range wordsA {
		if _, ok := set[w]; ok {
			hits++
		}
	}
	denom := len(wordsA)
	if len(wordsB) > denom {
		denom = len(wordsB)
	}
	return float64(hits) / float64(denom)
}
