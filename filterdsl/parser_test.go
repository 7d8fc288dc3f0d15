package filterdsl

import (
	"testing"

	"github.com/ggozad/haikurag-core/store"
)

func TestParseSimpleEquality(t *testing.T) {
	f, err := Parse("title = 'Go Concurrency'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Op != "cmp" || f.Cmp.Column != "title" || f.Cmp.Op != store.CmpEq || f.Cmp.Value != "Go Concurrency" {
		t.Fatalf("unexpected AST: %+v", f)
	}
}

func TestParseEscapedQuote(t *testing.T) {
	f, err := Parse("title = 'O''Brien''s Notes'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Cmp.Value != "O'Brien's Notes" {
		t.Fatalf("escape not handled: %q", f.Cmp.Value)
	}
}

func TestParseAndOrPrecedence(t *testing.T) {
	// AND binds tighter than OR: a OR b AND c == a OR (b AND c)
	f, err := Parse("uri LIKE 'a%' OR uri LIKE 'b%' AND title = 'x'")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Op != "or" || len(f.Children) != 2 {
		t.Fatalf("expected top-level OR with 2 children, got %+v", f)
	}
	right := f.Children[1]
	if right.Op != "and" || len(right.Children) != 2 {
		t.Fatalf("expected AND on right of OR, got %+v", right)
	}
}

func TestParseNotAndParens(t *testing.T) {
	f, err := Parse("NOT (id = 'd1' OR id = 'd2')")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Op != "not" || len(f.Children) != 1 || f.Children[0].Op != "or" {
		t.Fatalf("unexpected AST: %+v", f)
	}
}

func TestParseIn(t *testing.T) {
	f, err := Parse("id IN ('a', 'b', 'c')")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Cmp.Op != store.CmpIn || len(f.Cmp.Values) != 3 {
		t.Fatalf("unexpected AST: %+v", f)
	}
}

func TestParseIsNullAndIsNotNull(t *testing.T) {
	f, err := Parse("title is null")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Cmp.Op != store.CmpIsNull {
		t.Fatalf("expected is_null, got %+v", f.Cmp)
	}

	f, err = Parse("title IS NOT NULL")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Cmp.Op != store.CmpIsNotNull {
		t.Fatalf("expected is_not_null, got %+v", f.Cmp)
	}
}

func TestParseUnknownColumnRejected(t *testing.T) {
	if _, err := Parse("bogus = 'x'"); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func TestParseEmptyExpressionReturnsNil(t *testing.T) {
	f, err := Parse("")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f != nil {
		t.Fatalf("expected nil filter for empty expression, got %+v", f)
	}
}

func TestParseMalformedRejected(t *testing.T) {
	cases := []string{
		"title = ",
		"title LIKE",
		"(title = 'a'",
		"title = 'a' extra",
		"title in 'a')",
	}
	for _, c := range cases {
		if _, err := Parse(c); err == nil {
			t.Errorf("expected error for %q", c)
		}
	}
}
