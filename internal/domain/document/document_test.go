package document

import (
	"encoding/json"
	"testing"
)

func TestFieldsResolve_Order(t *testing.T) {
	doc := Document{"text": "from text", "content": "from content"}
	got, ok := ContentFields.Resolve(doc)
	if !ok || got != "from content" {
		t.Errorf("Resolve() = %q, %v; want content field first", got, ok)
	}

	doc = Document{"text": "from text"}
	got, ok = ContentFields.Resolve(doc)
	if !ok || got != "from text" {
		t.Errorf("Resolve() = %q, %v; want text fallback", got, ok)
	}
}

func TestFieldsResolve_SkipsNil(t *testing.T) {
	doc := Document{"content": nil, "text": "body"}
	got, ok := ContentFields.Resolve(doc)
	if !ok || got != "body" {
		t.Errorf("Resolve() = %q, %v; nil content must be skipped", got, ok)
	}
}

func TestFieldsResolve_Custom(t *testing.T) {
	doc := Document{"chunk": "payload", "content": "ignored"}
	got, ok := Fields{"chunk"}.Resolve(doc)
	if !ok || got != "payload" {
		t.Errorf("Resolve() = %q, %v", got, ok)
	}
}

func TestContent_FallsBackToString(t *testing.T) {
	doc := Document{"id": "1", "title": "t"}
	got := Content(doc, ContentFields)
	if got != "map[id:1 title:t]" {
		t.Errorf("Content() = %q", got)
	}
}

func TestSource_Fallback(t *testing.T) {
	if got := Source(Document{"url": "https://x"}, SourceFields, 2); got != "https://x" {
		t.Errorf("Source() = %q", got)
	}
	if got := Source(Document{}, SourceFields, 3); got != "Document 3" {
		t.Errorf("Source() = %q, want Document 3", got)
	}
}

func TestScore_Kinds(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want float64
		ok   bool
	}{
		{"float64", 1.5, 1.5, true},
		{"float32", float32(2), 2, true},
		{"int", 3, 3, true},
		{"int64", int64(4), 4, true},
		{"json number", json.Number("5.25"), 5.25, true},
		{"numeric string", "6.5", 6.5, true},
		{"bad string", "high", 0, false},
		{"bool", true, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Score(Document{"score": tc.val}, FieldScore)
			if got != tc.want || ok != tc.ok {
				t.Errorf("Score() = %v, %v; want %v, %v", got, ok, tc.want, tc.ok)
			}
		})
	}

	if _, ok := Score(Document{}, FieldScore); ok {
		t.Error("missing score must report ok=false")
	}
}

func TestFieldsResolve_SkipsEmpty(t *testing.T) {
	doc := Document{"content": "", "text": "body"}
	got, ok := ContentFields.Resolve(doc)
	if !ok || got != "body" {
		t.Errorf("Resolve() = %q, %v; empty content must be skipped", got, ok)
	}

	if _, ok := SourceFields.Resolve(Document{"source": "", "url": ""}); ok {
		t.Error("Resolve() must report ok=false when every candidate is empty")
	}
	if got := Source(Document{"source": ""}, SourceFields, 4); got != "Document 4" {
		t.Errorf("Source() = %q, want Document 4", got)
	}
}

func TestNewBatch(t *testing.T) {
	b := NewBatch([]Document{{"a": 1}, {"b": 2}})
	if b.Len() != 2 || b.Count != 2 {
		t.Errorf("NewBatch() len=%d count=%d", b.Len(), b.Count)
	}
}
