package pipeline

import (
	"sort"

	"github.com/kailas-cloud/ragpipe/internal/domain/document"
)

// rankAndDedupe sorts by score when the first document is scored, removes duplicate
// content keeping the first occurrence, and truncates to topK.
func rankAndDedupe(batch document.Batch, topK int, contentFields document.Fields) document.Batch {
	docs := make([]document.Document, len(batch.Docs))
	copy(docs, batch.Docs)

	if len(docs) > 0 && hasScore(docs[0]) {
		sort.SliceStable(docs, func(i, j int) bool {
			return scoreOf(docs[i]) > scoreOf(docs[j])
		})
	}

	docs = dedupe(docs, contentFields)

	if topK < 0 {
		topK = 0
	}
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return document.NewBatch(docs)
}

func dedupe(docs []document.Document, contentFields document.Fields) []document.Document {
	seen := make(map[string]struct{}, len(docs))
	out := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		key := document.Content(doc, contentFields)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, doc)
	}
	return out
}

func hasScore(doc document.Document) bool {
	v, ok := doc[document.FieldScore]
	return ok && v != nil
}

// scoreOf treats missing or non-numeric scores as 0.
func scoreOf(doc document.Document) float64 {
	s, _ := document.Score(doc, document.FieldScore)
	return s
}
