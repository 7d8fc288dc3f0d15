// Package expand enriches search results with surrounding material so the
// research graph's Search-One node gets enough context to answer, without
// duplicating content across results.
//
// No single teacher file does structural-unit/radius expansion directly;
// this is grounded on the general adjacency/contiguous-run traversal
// style of rag/agentic/retrieval.go (sorted-offset scan, merge loop) and
// on the store façade's AdjacentChunks operation, applied to a new
// expansion domain — see DESIGN.md.
package expand

import (
	"context"
	"sort"

	"github.com/ggozad/haikurag-core/document"
	"github.com/ggozad/haikurag-core/pkg/logging"
	"github.com/ggozad/haikurag-core/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/ggozad/haikurag-core/expand")

// Config bounds expansion per spec §4.3.
type Config struct {
	// ContextRadius is how many sibling chunks a text-labeled result
	// expands by on each side.
	ContextRadius int
	// MaxContextItems bounds the number of chunks an expanded result may
	// concatenate.
	MaxContextItems int
	// MaxContextChars bounds the UTF-8 character length of an expanded
	// result's content.
	MaxContextChars int
	// StructuralWindow bounds how far the expander looks, in orders, to
	// find the full contiguous run of a structural unit (the façade only
	// exposes ranged adjacency lookup, not a direct structural-group
	// query).
	StructuralWindow int
}

// DefaultConfig mirrors the teacher's convention of small, sane defaults
// for every tunable knob.
func DefaultConfig() Config {
	return Config{ContextRadius: 1, MaxContextItems: 12, MaxContextChars: 8000, StructuralWindow: 64}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ContextRadius <= 0 {
		c.ContextRadius = d.ContextRadius
	}
	if c.MaxContextItems <= 0 {
		c.MaxContextItems = d.MaxContextItems
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = d.MaxContextChars
	}
	if c.StructuralWindow <= 0 {
		c.StructuralWindow = d.StructuralWindow
	}
	return c
}

// Expanded is one expansion result: content assembled from one or more
// contiguous chunks of a single document, plus the originating chunk (the
// highest-scoring contributor) used to build the user-facing Citation.
type Expanded struct {
	DocumentID  string
	Content     string
	Score       float64
	Members     []document.Chunk // union of contributing chunks, sorted by Order
	Originating document.Chunk   // the seed chunk of the highest-scoring contributor
}

// Expand performs per-result expansion followed by same-list overlap/
// adjacency merging. It is a pure function of the sorted input and the
// store's data, independent of goroutine scheduling.
func Expand(ctx context.Context, st store.Store, results []store.ScoredChunk, cfg Config) ([]Expanded, error) {
	ctx, span := tracer.Start(ctx, "expand.Expand", oteltrace.WithAttributes(attribute.Int("results.count", len(results))))
	defer span.End()
	logger := logging.WithComponent("expand")
	cfg = cfg.withDefaults()

	expanded := make([]Expanded, 0, len(results))
	for _, r := range results {
		e, err := expandOne(ctx, st, r, cfg)
		if err != nil {
			logger.Error("expand one result failed", "chunk_id", r.Chunk.ID, "error", err)
			return nil, err
		}
		expanded = append(expanded, e)
	}

	merged := mergeOverlapping(expanded, cfg)
	logger.Debug("expansion complete", "input", len(results), "output", len(merged))
	return merged, nil
}

func expandOne(ctx context.Context, st store.Store, r store.ScoredChunk, cfg Config) (Expanded, error) {
	c := r.Chunk
	var members []document.Chunk
	var err error
	if c.Label.Structural() && c.StructuralUnitID != "" {
		members, err = structuralRun(ctx, st, c, cfg)
	} else {
		lo := max0(c.Order - cfg.ContextRadius)
		hi := c.Order + cfg.ContextRadius
		members, err = st.AdjacentChunks(ctx, c.DocumentID, lo, hi)
		if err == nil {
			members = clipAtStructuralBoundary(members, c)
		}
	}
	if err != nil {
		return Expanded{}, err
	}
	return buildExpanded(r, members, cfg), nil
}

// structuralRun returns the maximal contiguous run of chunks sharing c's
// structural-unit id, searched within a bounded window around c.
func structuralRun(ctx context.Context, st store.Store, c document.Chunk, cfg Config) ([]document.Chunk, error) {
	lo := max0(c.Order - cfg.StructuralWindow)
	hi := c.Order + cfg.StructuralWindow
	window, err := st.AdjacentChunks(ctx, c.DocumentID, lo, hi)
	if err != nil {
		return nil, err
	}
	sort.Slice(window, func(i, j int) bool { return window[i].Order < window[j].Order })

	seedIdx := -1
	for i, m := range window {
		if m.ID == c.ID {
			seedIdx = i
			break
		}
	}
	if seedIdx == -1 {
		return []document.Chunk{c}, nil
	}

	out := []document.Chunk{window[seedIdx]}
	for i := seedIdx - 1; i >= 0 && window[i].StructuralUnitID == c.StructuralUnitID; i-- {
		out = append([]document.Chunk{window[i]}, out...)
	}
	for i := seedIdx + 1; i < len(window) && window[i].StructuralUnitID == c.StructuralUnitID; i++ {
		out = append(out, window[i])
	}
	return out, nil
}

// clipAtStructuralBoundary stops radius expansion at the first structural
// chunk encountered walking outward from seed in either direction.
func clipAtStructuralBoundary(members []document.Chunk, seed document.Chunk) []document.Chunk {
	sort.Slice(members, func(i, j int) bool { return members[i].Order < members[j].Order })
	seedIdx := -1
	for i, m := range members {
		if m.ID == seed.ID {
			seedIdx = i
			break
		}
	}
	if seedIdx == -1 {
		return members
	}
	out := []document.Chunk{members[seedIdx]}
	for i := seedIdx - 1; i >= 0; i-- {
		if members[i].Label.Structural() {
			break
		}
		out = append([]document.Chunk{members[i]}, out...)
	}
	for i := seedIdx + 1; i < len(members); i++ {
		if members[i].Label.Structural() {
			break
		}
		out = append(out, members[i])
	}
	return out
}

func buildExpanded(r store.ScoredChunk, members []document.Chunk, cfg Config) Expanded {
	sort.Slice(members, func(i, j int) bool { return members[i].Order < members[j].Order })
	members = capMembers(members, cfg)
	return Expanded{
		DocumentID:  r.Chunk.DocumentID,
		Content:     renderContent(members, cfg),
		Score:       r.Score,
		Members:     members,
		Originating: r.Chunk,
	}
}

// capMembers enforces MaxContextItems directly on the member list so the
// hard limit bounds what is retained, not just what is rendered.
func capMembers(members []document.Chunk, cfg Config) []document.Chunk {
	if len(members) > cfg.MaxContextItems {
		return members[:cfg.MaxContextItems]
	}
	return members
}

func renderContent(members []document.Chunk, cfg Config) string {
	var content string
	chars := 0
	for i, m := range members {
		if i >= cfg.MaxContextItems {
			break
		}
		piece := []rune(m.Content)
		if i > 0 {
			chars++ // separator newline
		}
		if chars+len(piece) > cfg.MaxContextChars {
			remaining := cfg.MaxContextChars - chars
			if remaining > 0 {
				if i > 0 {
					content += "\n"
				}
				content += string(piece[:remaining])
			}
			break
		}
		if i > 0 {
			content += "\n"
		}
		content += m.Content
		chars += len(piece)
	}
	return content
}

func clampRune(s string, n int) int {
	if n >= len(s) {
		return len(s)
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return n
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// mergeOverlapping merges expansions whose Members overlap or are
// order-adjacent within the same document. Merged content is the
// concatenation of the union of member chunks in order; merged score is
// the max of contributors'; merged Originating is the seed chunk of the
// highest-scoring contributor, per spec §4.3.
func mergeOverlapping(expansions []Expanded, cfg Config) []Expanded {
	n := len(expansions)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if expansions[i].DocumentID != expansions[j].DocumentID {
				continue
			}
			if overlapsOrAdjacent(expansions[i], expansions[j]) {
				union(i, j)
			}
		}
	}

	groups := make(map[int][]int)
	var order []int
	for i := 0; i < n; i++ {
		root := find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}
		groups[root] = append(groups[root], i)
	}
	sort.Ints(order)

	out := make([]Expanded, 0, len(order))
	for _, root := range order {
		out = append(out, mergeGroup(expansions, groups[root], cfg))
	}
	return out
}

func overlapsOrAdjacent(a, b Expanded) bool {
	if len(a.Members) == 0 || len(b.Members) == 0 {
		return false
	}
	aLo, aHi := a.Members[0].Order, a.Members[len(a.Members)-1].Order
	bLo, bHi := b.Members[0].Order, b.Members[len(b.Members)-1].Order
	// Overlap or touching (adjacent, gap of zero orders between ranges).
	return aLo <= bHi+1 && bLo <= aHi+1
}

func mergeGroup(expansions []Expanded, idxs []int, cfg Config) Expanded {
	if len(idxs) == 1 {
		return expansions[idxs[0]]
	}
	seen := make(map[string]bool)
	var members []document.Chunk
	best := expansions[idxs[0]]
	for _, idx := range idxs {
		e := expansions[idx]
		if e.Score > best.Score {
			best = e
		}
		for _, m := range e.Members {
			if !seen[m.ID] {
				seen[m.ID] = true
				members = append(members, m)
			}
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Order < members[j].Order })
	members = capMembers(members, cfg)
	return Expanded{
		DocumentID:  best.DocumentID,
		Content:     renderContent(members, cfg),
		Score:       best.Score,
		Members:     members,
		Originating: best.Originating,
	}
}
