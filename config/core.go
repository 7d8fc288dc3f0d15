package config

import "time"

// CoreConfig is the immutable configuration assembled once at graph/
// session construction, replacing any notion of global mutable
// configuration (spec §9 re-architecture note).
type CoreConfig struct {
	// Search tuning.
	SearchLimit      int // base limit for search_hybrid before any rerank multiplier
	RerankMultiplier int // multiplier applied to SearchLimit when reranking is enabled
	RRFK             int // Reciprocal Rank Fusion damping constant, default 60

	// Context expansion.
	ContextRadius   int
	MaxContextItems int
	MaxContextChars int

	// Research graph.
	MaxIterations        int
	MaxConcurrency       int // reserved; today's planner yields one question at a time
	CompletionConfidence float64
	NearDuplicateMatch   float64 // case-normalized prefix match threshold, e.g. 0.90

	// Chat layer.
	RecallThreshold float64
	QAHistoryCap    int

	// Timeouts.
	CallTimeout time.Duration
}

// DefaultCoreConfig returns these defaults: search limit 8, rerank
// multiplier 10, RRF k=60, context_radius 1, max_context_items 12,
// max_context_chars 8000, max_iterations 5, max_concurrency 1,
// completion_confidence 0.9, near-duplicate match 0.90, recall
// threshold 0.70, qa_history cap 50, call timeout 60s.
func DefaultCoreConfig() CoreConfig {
	return CoreConfig{
		SearchLimit:          8,
		RerankMultiplier:     10,
		RRFK:                 60,
		ContextRadius:        1,
		MaxContextItems:      12,
		MaxContextChars:      8000,
		MaxIterations:        5,
		MaxConcurrency:       1,
		CompletionConfidence: 0.9,
		NearDuplicateMatch:   0.90,
		RecallThreshold:      0.70,
		QAHistoryCap:         50,
		CallTimeout:          60 * time.Second,
	}
}

// Validate checks every tunable against the ranges the spec implies,
// using the shared Validator the rest of this package's provider configs
// already validate with.
func (c CoreConfig) Validate() error {
	v := NewValidator()
	v.RequirePositive("SearchLimit", c.SearchLimit)
	v.RequirePositive("RerankMultiplier", c.RerankMultiplier)
	v.RequirePositive("RRFK", c.RRFK)
	v.RequirePositive("ContextRadius", c.ContextRadius)
	v.RequirePositive("MaxContextItems", c.MaxContextItems)
	v.RequirePositive("MaxContextChars", c.MaxContextChars)
	v.RequirePositive("MaxIterations", c.MaxIterations)
	if err := ValidateRunnerConfig(c.MaxConcurrency); err != nil {
		v.errors = append(v.errors, ValidationError{Field: "MaxConcurrency", Message: err.Error()})
	}
	v.ValidateFloatRange("CompletionConfidence", c.CompletionConfidence, 0, 1)
	v.ValidateFloatRange("NearDuplicateMatch", c.NearDuplicateMatch, 0, 1)
	v.ValidateFloatRange("RecallThreshold", c.RecallThreshold, 0, 1)
	v.RequirePositive("QAHistoryCap", c.QAHistoryCap)
	if c.CallTimeout <= 0 {
		v.RequirePositive("CallTimeout", -1)
	}
	return v.Error()
}
