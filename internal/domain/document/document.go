// Package document models search hits as schemaless field maps.
package document

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Well-known field names.
const (
	FieldContent       = "content"
	FieldText          = "text"
	FieldSource        = "source"
	FieldURL           = "url"
	FieldScore         = "score"
	FieldRerankerScore = "reranker_score"
)

// Document is a single search hit. There is no fixed schema; read it through Fields.
type Document map[string]any

// Batch is an ordered set of documents produced by one search call.
// Count is the backend's total match count when it was requested, otherwise len(Docs).
type Batch struct {
	Docs  []Document
	Count int
}

// NewBatch creates a batch whose count equals the number of documents.
func NewBatch(docs []Document) Batch {
	return Batch{Docs: docs, Count: len(docs)}
}

// Len returns the number of documents held.
func (b Batch) Len() int { return len(b.Docs) }

// Fields is an ordered list of candidate field names; the first non-empty field wins.
type Fields []string

// Default lookup policies.
var (
	ContentFields = Fields{FieldContent, FieldText}
	SourceFields  = Fields{FieldSource, FieldURL}
)

// Resolve returns the first candidate that renders to a non-empty string.
// Missing, nil and empty values are all skipped.
func (f Fields) Resolve(doc Document) (string, bool) {
	for _, name := range f {
		v, ok := doc[name]
		if !ok || v == nil {
			continue
		}
		if s := stringify(v); s != "" {
			return s, true
		}
	}
	return "", false
}

// String renders the whole document. fmt prints maps with sorted keys, so the result is stable.
func (d Document) String() string {
	return fmt.Sprint(map[string]any(d))
}

// Content resolves the document body, falling back to the full string representation.
func Content(doc Document, fields Fields) string {
	if s, ok := fields.Resolve(doc); ok {
		return s
	}
	return doc.String()
}

// Source resolves the source label, falling back to "Document {position}".
func Source(doc Document, fields Fields, position int) string {
	if s, ok := fields.Resolve(doc); ok {
		return s
	}
	return fmt.Sprintf("Document %d", position)
}

// Score reads a numeric field. Missing or non-numeric values report ok=false.
func Score(doc Document, field string) (float64, bool) {
	v, ok := doc[field]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
