package chatsession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ggozad/haikurag-core/citation"
	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/pkg/logging"
	"github.com/ggozad/haikurag-core/research"
	"github.com/ggozad/haikurag-core/store"
)

// QAHistoryCap is the bound on a session's qa_history FIFO (spec.md §3).
const QAHistoryCap = 50

// Store persists session snapshots. Distinct from store.Store (the
// document/chunk façade): this Store is about session state only.
type Store interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, id string) (Snapshot, error)
	Delete(ctx context.Context, id string) error
}

// Session is one chat session's live state: its bounded QA history,
// its session-scoped citation registry, and its current summary.
//
// Grounded on the teacher's session/session.go Session type (id +
// mutex-guarded mutable state), retargeted from agent conversation
// history to research-graph QA history plus a CitationRegistry.
type Session struct {
	ID string

	mu             sync.Mutex
	history        []QAHistoryEntry
	sessionContext *research.SessionContext
	registry       *citation.Registry
}

func newSession(id string) *Session {
	return &Session{ID: id, registry: citation.New()}
}

func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:               s.ID,
		QAHistory:        append([]QAHistoryEntry(nil), s.history...),
		SessionContext:   s.sessionContext,
		CitationSnapshot: s.registry.Snapshot(),
		UpdatedAt:        time.Now(),
	}
}

func (s *Session) restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]QAHistoryEntry(nil), snap.QAHistory...)
	s.sessionContext = snap.SessionContext
	s.registry = citation.Restore(snap.CitationSnapshot)
}

func (s *Session) appendHistory(entry QAHistoryEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, entry)
	if len(s.history) > QAHistoryCap {
		s.history = s.history[len(s.history)-QAHistoryCap:]
	}
}

func (s *Session) historySnapshot() []QAHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]QAHistoryEntry(nil), s.history...)
}

func (s *Session) setSessionContext(sc *research.SessionContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionContext = sc
}

func (s *Session) currentContext() *research.SessionContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionContext
}

// citationRegistry returns the session's long-lived citation registry, so
// every Ask threads the same registry into the research graph instead of
// each run interning its own (spec.md §3/§4.4/§8: citation indices are
// stable and strictly increasing for the lifetime of the session).
func (s *Session) citationRegistry() *citation.Registry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry
}

// Manager owns sessions, the per-session FIFO ask lock, and wires each
// ask through prior-answer recall, the research graph, and background
// summarization.
//
// Grounded on the teacher's session/manager.go: same RWMutex-guarded
// session map, functional-options construction, and optional Store for
// persistence — generalized to also own a per-session asking lock (the
// teacher has no concept of concurrent-ask exclusion because its
// sessions are driven by a single synchronous agent.Run call) and the
// recall/summarizer collaborators this chat layer adds.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	askLocks map[string]*sync.Mutex

	store Store

	Recaller      *Recaller
	Summarizer    *Summarizer
	RunConfig     research.RunConfig
	MaxIterations int
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore sets the session-persistence backend.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithRecaller sets the prior-answer recall collaborator.
func WithRecaller(r *Recaller) Option {
	return func(m *Manager) { m.Recaller = r }
}

// WithSummarizer sets the background summarization collaborator.
func WithSummarizer(s *Summarizer) Option {
	return func(m *Manager) { m.Summarizer = s }
}

// NewManager constructs a Manager. runConfig supplies the Planner/
// Searcher/Synthesizer collaborators research.Run drives; every ask
// from this Manager uses research.OutputConversational.
func NewManager(runConfig research.RunConfig, maxIterations int, opts ...Option) *Manager {
	runConfig.Mode = research.OutputConversational
	m := &Manager{
		sessions:      make(map[string]*Session),
		askLocks:      make(map[string]*sync.Mutex),
		RunConfig:     runConfig,
		MaxIterations: maxIterations,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AskResult is the outcome of one Ask call.
type AskResult struct {
	Answer     string
	Confidence float64
	Citations  []document.Citation
	Recalled   bool // true if answered entirely from prior-answer recall
}

// Ask resolves question against sessionID's history: session
// serialization (FIFO per session), prior-answer recall, the research
// graph, history append, and background summarization kickoff are all
// driven from here.
func (m *Manager) Ask(ctx context.Context, sessionID, question string, filter *store.Filter) (AskResult, error) {
	logger := logging.WithComponent("chatsession.manager")

	lock := m.askLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := m.session(ctx, sessionID)
	if err != nil {
		return AskResult{}, err
	}

	history := sess.historySnapshot()
	var recalled []research.SearchAnswer
	if m.Recaller != nil {
		recalled, err = m.Recaller.Recall(ctx, question, history)
		if err != nil {
			logger.Warn("recall failed, continuing without it", "session_id", sessionID, "error", err)
			recalled = nil
		}
	}

	rctx := &research.Context{
		OriginalQuestion: question,
		SessionContext:   sess.currentContext(),
		QAResponses:      recalled,
		MaxIterations:    m.MaxIterations,
		SearchFilter:     filter,
		CitationRegistry: sess.citationRegistry(),
	}

	events := research.Run(ctx, m.RunConfig, rctx)
	output, err := research.Collect(events)
	if err != nil {
		return AskResult{}, fmt.Errorf("ask failed: %w", err)
	}
	if output.Kind != research.OutputConversational || output.Conversational == nil {
		return AskResult{}, fmt.Errorf("ask produced no conversational answer")
	}

	result := AskResult{
		Answer:     output.Conversational.Answer,
		Confidence: output.Conversational.Confidence,
		Citations:  output.Conversational.Citations,
		Recalled:   len(recalled) > 0 && len(rctx.QAResponses) == len(recalled),
	}

	sess.appendHistory(QAHistoryEntry{
		Question:  question,
		Answer:    result.Answer,
		Citations: result.Citations,
	})

	if m.store != nil {
		if err := m.store.Save(ctx, sess.snapshot()); err != nil {
			logger.Warn("session snapshot save failed", "session_id", sessionID, "error", err)
		}
	}

	if m.Summarizer != nil {
		newHistory := sess.historySnapshot()
		current := sess.currentContext()
		m.Summarizer.Trigger(ctx, sessionID, newHistory, current, func(sc *research.SessionContext) {
			sess.setSessionContext(sc)
		})
	}

	return result, nil
}

func (m *Manager) session(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return sess, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[id]; ok {
		return sess, nil
	}

	sess = newSession(id)
	if m.store != nil {
		if snap, err := m.store.Load(ctx, id); err == nil {
			sess.restore(snap)
		}
	}
	m.sessions[id] = sess
	return sess, nil
}

func (m *Manager) askLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.askLocks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.askLocks[sessionID] = l
	}
	return l
}
