// Package research implements the planner/search-one/synthesizer graph
// that turns a question into a grounded answer or report.
//
// Grounded on the teacher's rag/agentic package (types.go's Plan/Evidence/
// Response shapes, planner.go/researcher.go/synthesizer.go's prompt +
// decode-JSON structure) and wired onto the kept graph/graph.go engine
// instead of the teacher's own fixed Plan→Research→Synthesis→Critic
// pipeline.
package research

import (
	"github.com/ggozad/haikurag-core/citation"
	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/store"
)

// SearchAnswer is the result of resolving one sub-question against the
// store: the model's answer, its self-reported confidence, and the
// chunks it grounded the answer in.
type SearchAnswer struct {
	Query        string              `json:"query"`
	Answer       string              `json:"answer"`
	Confidence   float64             `json:"confidence"`
	CitedChunks  []string            `json:"cited_chunks"`
	Citations    []document.Citation `json:"citations"`
}

// SessionContext is the read-only background summary a planner may draw
// on to resolve pronouns and avoid re-asking settled questions.
type SessionContext struct {
	Summary     string `json:"summary"`
	LastUpdated int64  `json:"last_updated"` // unix seconds; set by the caller, never by this package
}

// Context is the mutable state threaded through a single graph run.
// Mutated only by the nodes of the run that owns it.
type Context struct {
	OriginalQuestion string
	SessionContext   *SessionContext
	QAResponses      []SearchAnswer
	Iterations       int
	MaxIterations    int
	MaxConcurrency   int
	SearchFilter     *store.Filter

	// CitationRegistry interns cited chunks to stable, strictly-increasing
	// indices (spec.md §3/§4.4/§8). It must outlive a single run for a
	// chat session — the caller owns its lifetime and passes the same
	// registry across turns — so SearchOne never creates its own. If nil,
	// Searcher.Run allocates one scoped to this run only.
	CitationRegistry *citation.Registry
}

// DecisionKind discriminates the PlannerDecision sum type.
type DecisionKind string

const (
	DecisionProposeQuestion DecisionKind = "propose_question"
	DecisionComplete        DecisionKind = "complete"
)

// Decision is the planner's verdict for one iteration.
type Decision struct {
	Kind     DecisionKind
	Question string // set when Kind == DecisionProposeQuestion
	Reason   string // set when Kind == DecisionComplete
}

// OutputKind discriminates the ResearchOutput sum type.
type OutputKind string

const (
	OutputReport        OutputKind = "report"
	OutputConversational OutputKind = "conversational_answer"
)

// Report is the long-form synthesis mode.
type Report struct {
	Title            string   `json:"title"`
	ExecutiveSummary string   `json:"executive_summary"`
	MainFindings     []string `json:"main_findings"`
	Conclusions      []string `json:"conclusions"`
	Recommendations  []string `json:"recommendations"`
	Limitations      []string `json:"limitations"`
	SourcesSummary   string   `json:"sources_summary"`
}

// ConversationalAnswer is the short-form synthesis mode.
type ConversationalAnswer struct {
	Answer     string              `json:"answer"`
	Confidence float64             `json:"confidence"`
	Citations  []document.Citation `json:"citations"`
}

// Output is the sum type a synthesizer run produces.
type Output struct {
	Kind           OutputKind
	Report         *Report
	Conversational *ConversationalAnswer
}
