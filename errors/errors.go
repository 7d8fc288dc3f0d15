// Package errors defines the error taxonomy shared by the store façade,
// capability adapters (embedder, LLM, reranker) and the research graph
// runtime. Errors returned across a package boundary are *Error values
// tagged with a Kind and a Retryable flag; classify them with errors.As
// and Kind, or with Retryable. An *Error wraps its kind's sentinel only
// where its constructor supplies it (NotFound with a nil cause,
// PlannerLoop, Cancelled, InvariantViolated); the other constructors wrap
// the cause they are given, so errors.Is against their sentinel does not
// match.
package errors

import "errors"

// Sentinel errors. errors.Is against one of these matches only the
// *Error values whose constructor wraps it (see the package doc).
var (
	// ErrNotFound indicates a chunk or document lookup found nothing.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable indicates the underlying store could not be
	// reached or returned a transport-level failure.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrFilterSyntax indicates a filter expression failed to parse.
	ErrFilterSyntax = errors.New("filter syntax error")

	// ErrDimensionMismatch indicates an embedding's dimension does not
	// match the store's configured dimension. Never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbedderFailure indicates the embedder capability failed.
	ErrEmbedderFailure = errors.New("embedder failure")

	// ErrLLMFailure indicates the chat LLM capability failed.
	ErrLLMFailure = errors.New("llm failure")

	// ErrRerankerFailure indicates the reranker capability failed or
	// timed out. Callers absorb this and fall back to unreranked order.
	ErrRerankerFailure = errors.New("reranker failure")

	// ErrPlannerLoop indicates the planner proposed a duplicate question
	// twice in a row.
	ErrPlannerLoop = errors.New("planner loop detected")

	// ErrCancelled indicates a cooperative cancellation was observed at
	// a safe point.
	ErrCancelled = errors.New("cancelled")

	// ErrTimeout indicates a per-call timeout elapsed.
	ErrTimeout = errors.New("timeout")

	// ErrInvariantViolated indicates an internal bug (e.g. an orphan
	// chunk referencing a missing document). Fatal, never retried.
	ErrInvariantViolated = errors.New("invariant violated")
)

// Kind classifies an error for the graph runtime's RunError event and for
// retry-policy decisions.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindStoreUnavailable  Kind = "store_unavailable"
	KindFilterSyntax      Kind = "filter_syntax"
	KindDimensionMismatch Kind = "dimension_mismatch"
	KindEmbedderFailure   Kind = "embedder_failure"
	KindLLMFailure        Kind = "llm_failure"
	KindRerankerFailure   Kind = "reranker_failure"
	KindPlannerLoop       Kind = "planner_loop"
	KindCancelled         Kind = "cancelled"
	KindTimeout           Kind = "timeout"
	KindInvariantViolated Kind = "invariant_violated"
)

// Error is a typed, kind-tagged error carrying enough information for the
// graph runtime to decide whether to retry and how to report a RunError.
type Error struct {
	Kind      Kind
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a typed Error of the given kind wrapping err.
func New(kind Kind, message string, retryable bool, err error) *Error {
	return &Error{Kind: kind, Message: message, Retryable: retryable, Err: err}
}

// neverRetried reports whether a kind is always fatal, matching §7's
// "DimensionMismatch, InvariantViolated are never retried" rule.
func neverRetried(k Kind) bool {
	return k == KindDimensionMismatch || k == KindInvariantViolated
}

// NotFound wraps err (or ErrNotFound if nil) as a non-retryable not-found error.
func NotFound(message string, err error) *Error {
	if err == nil {
		err = ErrNotFound
	}
	return New(KindNotFound, message, false, err)
}

// StoreUnavailable wraps a store transport failure.
func StoreUnavailable(message string, err error) *Error {
	return New(KindStoreUnavailable, message, true, err)
}

// FilterSyntax wraps a filter-parse failure.
func FilterSyntax(message string, err error) *Error {
	return New(KindFilterSyntax, message, false, err)
}

// DimensionMismatch wraps a fatal configuration error. Never retryable.
func DimensionMismatch(message string, err error) *Error {
	e := New(KindDimensionMismatch, message, false, err)
	_ = neverRetried(e.Kind)
	return e
}

// EmbedderFailure wraps an embedder capability failure.
func EmbedderFailure(message string, err error) *Error {
	return New(KindEmbedderFailure, message, true, err)
}

// LLMFailure wraps a chat LLM capability failure.
func LLMFailure(message string, err error) *Error {
	return New(KindLLMFailure, message, true, err)
}

// RerankerFailure wraps a reranker capability failure. Always absorbed by
// callers (§7) and marked non-retryable: it is never retried within a
// single rerank invocation.
func RerankerFailure(message string, err error) *Error {
	return New(KindRerankerFailure, message, false, err)
}

// PlannerLoop wraps a detected duplicate-proposal loop.
func PlannerLoop(message string) *Error {
	return New(KindPlannerLoop, message, false, ErrPlannerLoop)
}

// Cancelled wraps a cooperative cancellation.
func Cancelled(message string) *Error {
	return New(KindCancelled, message, false, ErrCancelled)
}

// Timeout wraps a per-call timeout.
func Timeout(message string, err error) *Error {
	return New(KindTimeout, message, true, err)
}

// InvariantViolated wraps an internal bug. Never retryable.
func InvariantViolated(message string) *Error {
	return New(KindInvariantViolated, message, false, ErrInvariantViolated)
}

// Retryable reports whether err (possibly wrapped) should be retried per
// the policy of §7: DimensionMismatch and InvariantViolated are never
// retried regardless of how they're wrapped.
func Retryable(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		if neverRetried(te.Kind) {
			return false
		}
		return te.Retryable
	}
	return false
}
