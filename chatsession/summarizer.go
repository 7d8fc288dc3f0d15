package chatsession

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ggozad/haikurag-core/llm"
	"github.com/ggozad/haikurag-core/pkg/logging"
	"github.com/ggozad/haikurag-core/research"
)

// TokenCounter counts the tokens a string would cost an LLM call.
// Satisfied by contrib/tokenizer/tiktoken.Tokenizer; optional — when nil,
// history is never trimmed for token budget.
type TokenCounter interface {
	CountTokens(text string) int
}

// cancelSlot is the task in flight for one session. Its identity (the
// pointer, not its contents) is what Trigger's goroutine compares
// against before clearing the map entry: a context.CancelFunc value
// isn't comparable, and even if it were, two different generations
// could close over equal-looking state.
type cancelSlot struct {
	cancel context.CancelFunc
}

// Summarizer implements spec.md §4.10: after each successful ask, refresh
// a session's SessionContext in the background without blocking the
// caller. At most one summarization task runs per session; a new ask
// cancels any task still in flight before starting its replacement
// (cancel+replace, no fixed timer — see DESIGN.md).
//
// Grounded on no single teacher file (the teacher has no background-
// summarization concept); the per-key cancel-then-replace task slot is
// built from the general sync.Mutex-guarded-map-of-cancelFuncs idiom the
// teacher already uses for request-scoped state (session/manager.go's
// RWMutex-guarded maps), applied to a goroutine slot instead of a map
// entry.
type Summarizer struct {
	LLM    llm.ChatLLM
	Prompt string

	// Tokenizer and MaxHistoryTokens bound how much qa_history the
	// summarization prompt carries: oldest entries are dropped first
	// until the remaining history's token count fits the budget. Either
	// field left zero-valued disables trimming.
	Tokenizer        TokenCounter
	MaxHistoryTokens int

	mu      sync.Mutex
	cancels map[string]*cancelSlot
}

// NewSummarizer constructs a Summarizer.
func NewSummarizer(chatLLM llm.ChatLLM, prompt string) *Summarizer {
	return &Summarizer{LLM: chatLLM, Prompt: prompt, cancels: make(map[string]*cancelSlot)}
}

type summaryJSON struct {
	Summary string `json:"summary"`
}

// Trigger cancels any in-flight summarization for sessionID and starts a
// new one over history and current. apply is called with the resulting
// *research.SessionContext once the new summary is ready; it is never
// called if the task is cancelled or the LLM call fails (the prior
// session_context is left in place, per spec.md §4.10).
func (s *Summarizer) Trigger(parent context.Context, sessionID string, history []QAHistoryEntry, current *research.SessionContext, apply func(*research.SessionContext)) {
	if s.LLM == nil {
		return
	}
	logger := logging.WithComponent("chatsession.summarizer")

	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	slot := &cancelSlot{cancel: cancel}

	s.mu.Lock()
	if prior, ok := s.cancels[sessionID]; ok {
		prior.cancel()
	}
	s.cancels[sessionID] = slot
	s.mu.Unlock()

	go func() {
		defer cancel()
		summary, err := s.summarize(ctx, history, current)

		s.mu.Lock()
		// Only clear the slot if it's still ours; a newer Trigger may
		// already have replaced it while this call was in flight.
		if s.cancels[sessionID] == slot {
			delete(s.cancels, sessionID)
		}
		s.mu.Unlock()

		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("summarization cancelled", "session_id", sessionID)
				return
			}
			logger.Warn("summarization failed, keeping prior session_context", "session_id", sessionID, "error", err)
			return
		}
		apply(summary)
	}()
}

func (s *Summarizer) summarize(ctx context.Context, history []QAHistoryEntry, current *research.SessionContext) (*research.SessionContext, error) {
	history = s.withinTokenBudget(history)

	var b strings.Builder
	prior := "none"
	if current != nil && current.Summary != "" {
		prior = current.Summary
	}
	for _, h := range history {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", h.Question, h.Answer)
	}

	user := fmt.Sprintf("<prior_summary>\n%s\n</prior_summary>\n<qa_history>\n%s\n</qa_history>\n\nReturn strict JSON: {\"summary\":\"...\"}.", prior, b.String())

	resp, err := s.LLM.Chat(ctx, llm.Request{Messages: []*llm.Message{
		llm.NewMessage(llm.RoleSystem, s.Prompt),
		llm.NewMessage(llm.RoleUser, user),
	}})
	if err != nil {
		return nil, fmt.Errorf("summarizer generation failed: %w", err)
	}

	parsed, err := research.DecodeJSON[summaryJSON](resp.Text)
	if err != nil {
		return nil, fmt.Errorf("summarizer output invalid: %w", err)
	}
	return &research.SessionContext{Summary: parsed.Summary}, nil
}

// withinTokenBudget drops the oldest entries of history until the
// remaining entries' combined token count fits s.MaxHistoryTokens. A nil
// Tokenizer or non-positive MaxHistoryTokens disables trimming.
func (s *Summarizer) withinTokenBudget(history []QAHistoryEntry) []QAHistoryEntry {
	if s.Tokenizer == nil || s.MaxHistoryTokens <= 0 || len(history) == 0 {
		return history
	}
	total := 0
	counts := make([]int, len(history))
	for i, h := range history {
		counts[i] = s.Tokenizer.CountTokens(h.Question) + s.Tokenizer.CountTokens(h.Answer)
		total += counts[i]
	}
	start := 0
	for total > s.MaxHistoryTokens && start < len(history)-1 {
		total -= counts[start]
		start++
	}
	return history[start:]
}
