package pgvector

import (
	"strings"
	"testing"

	"github.com/ggozad/haikurag-core/store"
)

func TestFilterSQLNilIsTrue(t *testing.T) {
	clause, args, err := filterSQL(nil, "d")
	if err != nil {
		t.Fatalf("filterSQL: %v", err)
	}
	if clause != "TRUE" || len(args) != 0 {
		t.Fatalf("expected TRUE with no args, got %q %v", clause, args)
	}
}

func TestFilterSQLEqualityWithAlias(t *testing.T) {
	f := store.Leaf(store.Comparison{Column: "title", Op: store.CmpEq, Value: "Go Notes"})
	clause, args, err := filterSQL(f, "d")
	if err != nil {
		t.Fatalf("filterSQL: %v", err)
	}
	if !strings.Contains(clause, "d.title") || !strings.Contains(clause, "$1") {
		t.Fatalf("unexpected clause: %q", clause)
	}
	if len(args) != 1 || args[0] != "Go Notes" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestFilterSQLAndOr(t *testing.T) {
	f := store.And(
		store.Leaf(store.Comparison{Column: "uri", Op: store.CmpLike, Value: "%notes%"}),
		store.Or(
			store.Leaf(store.Comparison{Column: "id", Op: store.CmpEq, Value: "d1"}),
			store.Leaf(store.Comparison{Column: "id", Op: store.CmpEq, Value: "d2"}),
		),
	)
	clause, args, err := filterSQL(f, "")
	if err != nil {
		t.Fatalf("filterSQL: %v", err)
	}
	if !strings.Contains(clause, "AND") || !strings.Contains(clause, "OR") {
		t.Fatalf("expected AND/OR composition, got %q", clause)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(args))
	}
}

func TestFilterSQLUnknownColumnRejected(t *testing.T) {
	f := store.Leaf(store.Comparison{Column: "bogus", Op: store.CmpEq, Value: "x"})
	if _, _, err := filterSQL(f, "d"); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func TestFilterSQLInEmptyIsFalse(t *testing.T) {
	f := store.Leaf(store.Comparison{Column: "id", Op: store.CmpIn, Values: nil})
	clause, _, err := filterSQL(f, "d")
	if err != nil {
		t.Fatalf("filterSQL: %v", err)
	}
	if clause != "FALSE" {
		t.Fatalf("expected FALSE for empty IN list, got %q", clause)
	}
}

func TestFilterSQLIsNull(t *testing.T) {
	f := store.Leaf(store.Comparison{Column: "title", Op: store.CmpIsNull})
	clause, args, err := filterSQL(f, "d")
	if err != nil {
		t.Fatalf("filterSQL: %v", err)
	}
	if !strings.Contains(clause, "IS NULL") || len(args) != 0 {
		t.Fatalf("unexpected clause: %q args: %v", clause, args)
	}
}
