package store

import (
	"fmt"
	"strings"

	"github.com/ggozad/haikurag-core/document"
)

// Match evaluates f against doc. A nil Filter always matches, which is how
// callers express "no filter" uniformly.
func Match(f *Filter, doc document.Document) bool {
	if f == nil {
		return true
	}
	switch f.Op {
	case "and":
		for _, c := range f.Children {
			if !Match(c, doc) {
				return false
			}
		}
		return true
	case "or":
		for _, c := range f.Children {
			if Match(c, doc) {
				return true
			}
		}
		return false
	case "not":
		return !Match(f.Children[0], doc)
	case "cmp":
		return matchCmp(f.Cmp, doc)
	}
	return false
}

func matchCmp(c *Comparison, doc document.Document) bool {
	switch c.Column {
	case "id":
		return compareString(c, doc.ID)
	case "uri":
		return compareString(c, doc.URI)
	case "title":
		return compareString(c, doc.Title)
	case "created_at":
		return compareString(c, doc.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	case "updated_at":
		return compareString(c, doc.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	case "metadata":
		return matchMetadata(c, doc.Metadata)
	}
	return false
}

func matchMetadata(c *Comparison, meta map[string]any) bool {
	if c.Op == CmpIsNull {
		return len(meta) == 0
	}
	if c.Op == CmpIsNotNull {
		return len(meta) != 0
	}
	// Whole-metadata comparisons are evaluated against a flattened
	// "key=value, key=value" rendering so LIKE/IN/equality remain
	// meaningful without requiring a separate path-access syntax.
	var parts []string
	for k, v := range meta {
		if s, ok := v.(string); ok {
			parts = append(parts, k+"="+s)
		} else {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
	}
	joined := strings.Join(parts, ", ")
	return compareValue(c, joined)
}

func compareString(c *Comparison, field string) bool {
	if c.Op == CmpIsNull {
		return field == ""
	}
	if c.Op == CmpIsNotNull {
		return field != ""
	}
	return compareValue(c, field)
}

func compareValue(c *Comparison, field string) bool {
	switch c.Op {
	case CmpEq:
		return field == c.Value
	case CmpLike:
		return matchLike(field, c.Value)
	case CmpIn:
		for _, v := range c.Values {
			if field == v {
				return true
			}
		}
		return false
	}
	return false
}

// matchLike implements SQL LIKE semantics for '%' (any run) and '_' (any
// single char), anchored to the full string.
func matchLike(s, pattern string) bool {
	return likeMatch([]rune(s), []rune(pattern))
}

func likeMatch(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}
	switch p[0] {
	case '%':
		// Try consuming zero or more characters of s.
		for i := 0; i <= len(s); i++ {
			if likeMatch(s[i:], p[1:]) {
				return true
			}
		}
		return false
	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatch(s[1:], p[1:])
	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatch(s[1:], p[1:])
	}
}
