// Package prompt builds grounding prompts and fills their query placeholder.
package prompt

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ragpipe/internal/domain"
	"github.com/kailas-cloud/ragpipe/internal/domain/document"
)

// QueryField is the only placeholder a grounding prompt may reference.
const QueryField = "query"

const (
	preamble = "You are an AI assistant that answers questions using only the provided context.\n\nCONTEXT:"
	closing  = "\n\nAnswer the question using only the information in the CONTEXT above. " +
		"If the answer is not contained in the context, say explicitly that the context " +
		"does not contain the answer.\n\nQuestion: {" + QueryField + "}\n\nAnswer:"
)

// Builder turns a ranked, deduplicated batch into a grounding prompt template.
// It never filters or reorders documents.
type Builder struct {
	contentFields document.Fields
	sourceFields  document.Fields
}

// NewBuilder creates a builder. Nil field lists fall back to the default lookup policy.
func NewBuilder(contentFields, sourceFields document.Fields) *Builder {
	if len(contentFields) == 0 {
		contentFields = document.ContentFields
	}
	if len(sourceFields) == 0 {
		sourceFields = document.SourceFields
	}
	return &Builder{contentFields: contentFields, sourceFields: sourceFields}
}

// Build renders the template. The {query} placeholder is left for Fill.
// Braces inside document text are escaped so that Fill sees only the placeholder.
func (b *Builder) Build(batch document.Batch) string {
	var sb strings.Builder
	sb.WriteString(preamble)
	for i, doc := range batch.Docs {
		pos := i + 1
		source := document.Source(doc, b.sourceFields, pos)
		content := document.Content(doc, b.contentFields)
		fmt.Fprintf(&sb, "\n\nDocument %d (Source: %s):\n%s", pos, escape(source), escape(content))
	}
	sb.WriteString(closing)
	return sb.String()
}

func escape(s string) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}
	s = strings.ReplaceAll(s, "{", "{{")
	return strings.ReplaceAll(s, "}", "}}")
}

// Fill substitutes query into the template's {query} placeholder.
// "{{" and "}}" unescape to literal braces. Any other field name or an unmatched brace
// is reported as domain.ErrFormatting.
func Fill(template, query string) (string, error) {
	var sb strings.Builder
	sb.Grow(len(template) + len(query))

	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexAny(template[i+1:], "{}")
			if end < 0 || template[i+1+end] != '}' {
				return "", fmt.Errorf("unmatched '{' at offset %d: %w", i, domain.ErrFormatting)
			}
			name := template[i+1 : i+1+end]
			if name != QueryField {
				return "", fmt.Errorf("undefined template field %q: %w", name, domain.ErrFormatting)
			}
			sb.WriteString(query)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("single '}' at offset %d: %w", i, domain.ErrFormatting)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}
