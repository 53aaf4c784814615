package evalrecord

import (
	"context"
	"strings"
	"time"

	"github.com/kailas-cloud/ragpipe/internal/db"
)

// memStore implements the consumer interface for tests.
type memStore struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	setErr  error
	scanErr error
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	return ok, nil
}

func (m *memStore) Del(_ context.Context, key string) error {
	delete(m.data, key)
	delete(m.ttls, key)
	return nil
}
