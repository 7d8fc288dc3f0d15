// Package document holds the pure value types of the data model: the
// documents and chunks produced by an external ingester and read-only to
// the core, plus the Citation view derived from them for user-facing
// output.
package document

import (
	"time"

	"github.com/google/uuid"
)

// Label classifies the structural role of a Chunk's content.
type Label string

const (
	LabelText    Label = "text"
	LabelTable   Label = "table"
	LabelList    Label = "list"
	LabelCode    Label = "code"
	LabelHeading Label = "heading"
	LabelOther   Label = "other"
)

// Structural reports whether the label denotes a structural unit (table,
// list, code) whose chunks expand by contiguous-run membership rather
// than by radius (spec §4.3).
func (l Label) Structural() bool {
	return l == LabelTable || l == LabelList || l == LabelCode
}

// Document is a knowledge source with an opaque, externally assigned
// identity. The core only ever reads documents; it never creates, updates
// or deletes them.
type Document struct {
	ID        string         `json:"id"`
	URI       string         `json:"uri"`
	Title     string         `json:"title,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := d
	if d.Metadata != nil {
		out.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// Chunk is a contiguous sub-unit of a Document. Order is unique per
// document and contiguous from 0; StructuralUnitID groups sibling chunks
// of the same table/list/code block for expansion purposes.
type Chunk struct {
	ID               string    `json:"id"`
	DocumentID       string    `json:"document_id"`
	Content          string    `json:"content"`
	Order            int       `json:"order"`
	Label            Label     `json:"label"`
	StructuralUnitID string    `json:"structural_unit_id,omitempty"`
	Headings         []string  `json:"headings,omitempty"`
	PageNumbers      []int     `json:"page_numbers,omitempty"`
	Embedding        []float32 `json:"embedding,omitempty"`
}

// Clone returns a deep copy of the chunk.
func (c Chunk) Clone() Chunk {
	out := c
	if c.Headings != nil {
		out.Headings = append([]string(nil), c.Headings...)
	}
	if c.PageNumbers != nil {
		out.PageNumbers = append([]int(nil), c.PageNumbers...)
	}
	if c.Embedding != nil {
		out.Embedding = append([]float32(nil), c.Embedding...)
	}
	return out
}

// Citation is the user-facing derived view of a scored chunk.
type Citation struct {
	Index         int      `json:"index"`
	DocumentID    string   `json:"document_id"`
	ChunkID       string   `json:"chunk_id"`
	DocumentURI   string   `json:"document_uri"`
	DocumentTitle *string  `json:"document_title,omitempty"`
	PageNumbers   []int    `json:"page_numbers"`
	Headings      []string `json:"headings,omitempty"`
	Content       string   `json:"content"`
}

// NewID returns a fresh opaque identifier for synthetic entities created
// by the core itself (e.g. merged expansion citations referencing a
// generated grouping key). Ingested documents and chunks keep whatever ID
// the external ingester assigned; this helper is not used for those.
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}
