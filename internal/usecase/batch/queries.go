package batch

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/ragpipe/internal/domain"
)

// Query is one entry of a batch query file.
type Query struct {
	ID     string `yaml:"id"`
	Query  string `yaml:"query"`
	Filter string `yaml:"filter"`
}

type queryFile struct {
	Queries []Query `yaml:"queries"`
}

// LoadQueries parses a YAML query file:
//
//	queries:
//	  - id: capital
//	    query: What is the capital of France?
//	    filter: "lang eq 'en'"
//
// Missing ids default to q1, q2, ... by position.
func LoadQueries(r io.Reader) ([]Query, error) {
	var f queryFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("query file is empty: %w", domain.ErrInvalidQuery)
		}
		return nil, fmt.Errorf("parse query file: %w", err)
	}
	if len(f.Queries) == 0 {
		return nil, fmt.Errorf("query file has no queries: %w", domain.ErrInvalidQuery)
	}

	seen := make(map[string]struct{}, len(f.Queries))
	for i := range f.Queries {
		q := &f.Queries[i]
		q.Query = strings.TrimSpace(q.Query)
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("duplicate query id %q: %w", q.ID, domain.ErrInvalidQuery)
		}
		seen[q.ID] = struct{}{}
	}
	return f.Queries, nil
}
