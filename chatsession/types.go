// Package chatsession implements the chat-only layer on top of the
// research graph: per-session QA history, prior-answer recall (spec.md
// §4.9), background summarization (spec.md §4.10), and a stable
// per-session citation registry.
//
// Grounded on the teacher's session package (session/manager.go's
// RWMutex-guarded-map-of-sessions, functional-options Manager
// construction, Store interface for persistence) retargeted from
// agent.Agent-backed sessions to research-graph-backed chat sessions.
package chatsession

import (
	"time"

	"github.com/ggozad/haikurag-core/citation"
	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/research"
)

// QAHistoryEntry is one resolved question/answer pair kept in a
// session's bounded history (spec.md §3, cap 50, oldest evicted first).
type QAHistoryEntry struct {
	Question          string              `json:"question"`
	Answer            string              `json:"answer"`
	Citations         []document.Citation `json:"citations"`
	QuestionEmbedding []float32           `json:"question_embedding,omitempty"`
}

// Snapshot is the serializable view of a session: its ID, qa_history,
// session_context, citation_registry and last update time. It carries no
// citations list and no document filter.
type Snapshot struct {
	ID               string                   `json:"id"`
	QAHistory        []QAHistoryEntry         `json:"qa_history"`
	SessionContext   *research.SessionContext `json:"session_context,omitempty"`
	CitationSnapshot citation.Snapshot        `json:"citation_registry"`
	UpdatedAt        time.Time                `json:"updated_at"`
}
