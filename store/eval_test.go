package store

import (
	"testing"
	"time"

	"github.com/ggozad/haikurag-core/document"
)

func docFixture() document.Document {
	return document.Document{
		ID:        "d1",
		URI:       "file:///notes/concurrency.md",
		Title:     "Go Concurrency Patterns",
		Metadata:  map[string]any{"lang": "en"},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMatchNilFilterAlwaysTrue(t *testing.T) {
	if !Match(nil, docFixture()) {
		t.Fatal("nil filter should match everything")
	}
}

func TestMatchEquality(t *testing.T) {
	f := Leaf(Comparison{Column: "title", Op: CmpEq, Value: "Go Concurrency Patterns"})
	if !Match(f, docFixture()) {
		t.Fatal("expected match")
	}
	f2 := Leaf(Comparison{Column: "title", Op: CmpEq, Value: "nope"})
	if Match(f2, docFixture()) {
		t.Fatal("expected no match")
	}
}

func TestMatchLike(t *testing.T) {
	f := Leaf(Comparison{Column: "uri", Op: CmpLike, Value: "file://%concurrency%"})
	if !Match(f, docFixture()) {
		t.Fatal("expected LIKE match")
	}
}

func TestMatchAndOrNot(t *testing.T) {
	eqWrong := Leaf(Comparison{Column: "id", Op: CmpEq, Value: "wrong"})
	eqRight := Leaf(Comparison{Column: "id", Op: CmpEq, Value: "d1"})
	if !Match(Or(eqWrong, eqRight), docFixture()) {
		t.Fatal("OR should match via second branch")
	}
	if Match(And(eqWrong, eqRight), docFixture()) {
		t.Fatal("AND should fail via first branch")
	}
	if !Match(Not(eqWrong), docFixture()) {
		t.Fatal("NOT should invert a false comparison")
	}
}

func TestMatchIsNull(t *testing.T) {
	d := docFixture()
	d.Title = ""
	if !Match(Leaf(Comparison{Column: "title", Op: CmpIsNull}), d) {
		t.Fatal("expected IS NULL to match empty title")
	}
	if !Match(Leaf(Comparison{Column: "title", Op: CmpIsNotNull}), docFixture()) {
		t.Fatal("expected IS NOT NULL to match populated title")
	}
}

func TestMatchIn(t *testing.T) {
	f := Leaf(Comparison{Column: "id", Op: CmpIn, Values: []string{"a", "d1", "b"}})
	if !Match(f, docFixture()) {
		t.Fatal("expected IN match")
	}
}
