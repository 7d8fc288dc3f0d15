package store

// Filter is a boolean predicate over the fixed document column set
// {id, uri, title, created_at, updated_at, metadata}. It is produced by
// package filterdsl and consumed by Store implementations, which push it
// to chunk-level queries via a document-id join.
type Filter struct {
	// Op is one of: "and", "or", "not", "cmp".
	Op       string
	Children []*Filter // for "and"/"or" (len >= 2) and "not" (len == 1)
	Cmp      *Comparison
}

// CmpOp enumerates the comparison operators the grammar supports.
type CmpOp string

const (
	CmpEq         CmpOp = "="
	CmpLike       CmpOp = "like"
	CmpIn         CmpOp = "in"
	CmpIsNull     CmpOp = "is_null"
	CmpIsNotNull  CmpOp = "is_not_null"
)

// Comparison is a single leaf predicate: column OP value(s).
type Comparison struct {
	Column string
	Op     CmpOp
	Value  string   // for Eq, Like
	Values []string // for In
}

// And builds a conjunction filter node.
func And(children ...*Filter) *Filter { return &Filter{Op: "and", Children: children} }

// Or builds a disjunction filter node.
func Or(children ...*Filter) *Filter { return &Filter{Op: "or", Children: children} }

// Not negates a single child filter.
func Not(child *Filter) *Filter { return &Filter{Op: "not", Children: []*Filter{child}} }

// Leaf wraps a single comparison as a filter node.
func Leaf(c Comparison) *Filter { return &Filter{Op: "cmp", Cmp: &c} }

// Columns is the fixed set of document columns the grammar may reference.
var Columns = map[string]bool{
	"id":         true,
	"uri":        true,
	"title":      true,
	"created_at": true,
	"updated_at": true,
	"metadata":   true,
}
