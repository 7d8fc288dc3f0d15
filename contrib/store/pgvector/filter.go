package pgvector

import (
	"fmt"
	"strings"

	coreerrors "github.com/ggozad/haikurag-core/errors"
	"github.com/ggozad/haikurag-core/store"
)

// filterSQL translates a store.Filter into a parameterized SQL WHERE
// fragment over the documents table, optionally aliased. A nil filter
// renders as "TRUE". Unknown columns or comparison operators surface as
// a FilterSyntax error rather than a malformed query.
func filterSQL(f *store.Filter, alias string) (string, []any, error) {
	col := func(name string) string {
		if alias == "" {
			return name
		}
		return alias + "." + name
	}
	var args []any
	clause, err := renderFilter(f, col, &args)
	if err != nil {
		return "", nil, err
	}
	if clause == "" {
		clause = "TRUE"
	}
	return clause, args, nil
}

func renderFilter(f *store.Filter, col func(string) string, args *[]any) (string, error) {
	if f == nil {
		return "", nil
	}
	switch f.Op {
	case "and", "or":
		if len(f.Children) == 0 {
			return "", nil
		}
		parts := make([]string, 0, len(f.Children))
		for _, child := range f.Children {
			part, err := renderFilter(child, col, args)
			if err != nil {
				return "", err
			}
			if part != "" {
				parts = append(parts, "("+part+")")
			}
		}
		sep := " AND "
		if f.Op == "or" {
			sep = " OR "
		}
		return strings.Join(parts, sep), nil
	case "not":
		if len(f.Children) != 1 {
			return "", coreerrors.FilterSyntax("not requires exactly one child", nil)
		}
		inner, err := renderFilter(f.Children[0], col, args)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case "cmp":
		return renderCmp(f.Cmp, col, args)
	default:
		return "", coreerrors.FilterSyntax("unknown filter operator: "+f.Op, nil)
	}
}

func renderCmp(c *store.Comparison, col func(string) string, args *[]any) (string, error) {
	if c == nil {
		return "", coreerrors.FilterSyntax("comparison node missing", nil)
	}
	if !store.Columns[c.Column] {
		return "", coreerrors.FilterSyntax("unknown filter column: "+c.Column, nil)
	}

	var column string
	if c.Column == "metadata" {
		column = col("metadata") + "::text"
	} else {
		column = col(c.Column)
	}

	switch c.Op {
	case store.CmpIsNull:
		return column + " IS NULL", nil
	case store.CmpIsNotNull:
		return column + " IS NOT NULL", nil
	case store.CmpEq:
		*args = append(*args, c.Value)
		return fmt.Sprintf("%s = $%d", column, len(*args)), nil
	case store.CmpLike:
		*args = append(*args, c.Value)
		return fmt.Sprintf("%s LIKE $%d", column, len(*args)), nil
	case store.CmpIn:
		if len(c.Values) == 0 {
			return "FALSE", nil
		}
		placeholders := make([]string, len(c.Values))
		for i, v := range c.Values {
			*args = append(*args, v)
			placeholders[i] = fmt.Sprintf("$%d", len(*args))
		}
		return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), nil
	default:
		return "", coreerrors.FilterSyntax("unknown comparison operator: "+c.Op, nil)
	}
}
