package research

import "sync"

// EventKind discriminates the streaming events a Run emits, per
// spec.md §4.8. Events are pure observation: nothing about a Run's
// outcome depends on whether anyone is listening on the channel.
//
// This is new code: no teacher file streams a fixed, ordered event
// sequence over a channel (the teacher's agent.RunStream calls a
// per-token callback instead, a materially different shape this package
// deliberately does not reuse). Grounded on the general goroutine-plus-
// channel-closed-on-completion idiom used throughout the corpus's own
// SSE-streaming adapters (contrib/llm/claude, contrib/llm/openai).
type EventKind string

const (
	EventRunStarted       EventKind = "run_started"
	EventStepStarted      EventKind = "step_started"
	EventStateSnapshot    EventKind = "state_snapshot"
	EventStateDelta       EventKind = "state_delta"
	EventActivitySnapshot EventKind = "activity_snapshot"
	EventStepFinished     EventKind = "step_finished"
	EventRunFinished      EventKind = "run_finished"
	EventRunError         EventKind = "run_error"
)

// StatePatch is one JSON-Patch-shaped operation describing a StateDelta.
type StatePatch struct {
	Op    string `json:"op"` // "add" | "replace" | "remove"
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// Event is one entry in a Run's totally-ordered event stream.
type Event struct {
	Seq     int
	Kind    EventKind
	Node    string
	State   map[string]any // StateSnapshot payload
	Patches []StatePatch   // StateDelta payload
	Payload any            // ActivitySnapshot payload
	Result  *Output        // RunFinished payload
	ErrKind string         // RunError payload, e.g. "cancelled"
	Err     error
}

// emitter fans a Run's events out to a buffered channel, assigning each
// event a monotonic sequence number. Safe for the single producer
// goroutine a Run spawns; Emit must not be called concurrently.
type emitter struct {
	mu     sync.Mutex
	ch     chan Event
	next   int
	lastQA int // len(Context.QAResponses) as of the last snapshot, for delta payloads
}

func newEmitter(buffer int) *emitter {
	if buffer <= 0 {
		buffer = 64
	}
	return &emitter{ch: make(chan Event, buffer)}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	ev.Seq = e.next
	e.next++
	e.mu.Unlock()
	// The channel is sized generously and closed only once the producer
	// goroutine exits; a slow or absent consumer must never stall the
	// run, so drop the event rather than block if the buffer is full.
	select {
	case e.ch <- ev:
	default:
	}
}

func (e *emitter) runStarted(question string) {
	e.emit(Event{Kind: EventRunStarted, State: map[string]any{"original_question": question}})
}

func (e *emitter) stepStarted(node string) {
	e.emit(Event{Kind: EventStepStarted, Node: node})
}

func (e *emitter) stepFinished(node string) {
	e.emit(Event{Kind: EventStepFinished, Node: node})
}

func (e *emitter) activity(node string, payload any) {
	e.emit(Event{Kind: EventActivitySnapshot, Node: node, Payload: payload})
}

// stateDelta emits a StateDelta describing newly-appended qa_responses
// and the updated iteration count since the last snapshot.
func (e *emitter) stateDelta(node string, rctx *Context) {
	patches := []StatePatch{{Op: "replace", Path: "/iterations", Value: rctx.Iterations}}
	for i := e.lastQA; i < len(rctx.QAResponses); i++ {
		patches = append(patches, StatePatch{
			Op:    "add",
			Path:  "/qa_responses/-",
			Value: rctx.QAResponses[i],
		})
	}
	e.lastQA = len(rctx.QAResponses)
	e.emit(Event{Kind: EventStateDelta, Node: node, Patches: patches})
}

func (e *emitter) runFinished(result Output) {
	e.emit(Event{Kind: EventRunFinished, Result: &result})
	close(e.ch)
}

func (e *emitter) runError(kind string, err error) {
	e.emit(Event{Kind: EventRunError, ErrKind: kind, Err: err})
	close(e.ch)
}
