// Package evalrecord persists evaluated pipeline runs as JSON values keyed by trace id.
package evalrecord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ragpipe/internal/db"
	"github.com/kailas-cloud/ragpipe/internal/domain"
	domeval "github.com/kailas-cloud/ragpipe/internal/domain/evaluation"
)

// KeyPrefix namespaces record keys.
const KeyPrefix = "ragpipe:eval:"

// store is the consumer interface for the record repository (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) error
}

// Repo stores evaluation records with a fixed TTL.
type Repo struct {
	store  store
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a record repository. ttl <= 0 keeps records forever.
func New(s store, ttl time.Duration, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, ttl: ttl, logger: logger}
}

// Key returns the storage key for a trace id.
func Key(traceID string) string {
	return KeyPrefix + traceID
}

// Save writes the record under its trace id.
func (r *Repo) Save(ctx context.Context, rec domeval.Record) error {
	if rec.TraceID == "" {
		return fmt.Errorf("record has no trace id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := r.store.SetWithTTL(ctx, Key(rec.TraceID), data, r.ttl); err != nil {
		return fmt.Errorf("save record %s: %w", rec.TraceID, err)
	}
	return nil
}

// Get loads a record. Returns domain.ErrRecordNotFound when it is missing or expired.
func (r *Repo) Get(ctx context.Context, traceID string) (domeval.Record, error) {
	data, err := r.store.Get(ctx, Key(traceID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domeval.Record{}, fmt.Errorf("%s: %w", traceID, domain.ErrRecordNotFound)
		}
		return domeval.Record{}, fmt.Errorf("get record %s: %w", traceID, err)
	}

	var rec domeval.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return domeval.Record{}, fmt.Errorf("unmarshal record %s: %w", traceID, err)
	}
	return rec, nil
}

// List returns all stored records, newest first.
// Keys that expire between SCAN and GET are skipped, corrupt values are logged and skipped.
func (r *Repo) List(ctx context.Context) ([]domeval.Record, error) {
	keys, err := r.store.Scan(ctx, KeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan records: %w", err)
	}

	records := make([]domeval.Record, 0, len(keys))
	for _, key := range keys {
		rec, err := r.Get(ctx, strings.TrimPrefix(key, KeyPrefix))
		if err != nil {
			if errors.Is(err, domain.ErrRecordNotFound) {
				continue
			}
			r.logger.Warn("skip unreadable record", zap.String("key", key), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

// Delete removes a record. Returns domain.ErrRecordNotFound when it does not exist.
func (r *Repo) Delete(ctx context.Context, traceID string) error {
	key := Key(traceID)
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check record %s: %w", traceID, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", traceID, domain.ErrRecordNotFound)
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete record %s: %w", traceID, err)
	}
	return nil
}
