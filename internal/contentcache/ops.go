package contentcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"deduper/internal/logging"
)

// Get returns the cached value for (path, size, kind). Any store error, a size
// mismatch, or an empty column is reported as a miss.
func (s *Store) Get(ctx context.Context, path string, size int64, kind Kind) ([]byte, bool) {
	if s == nil {
		return nil, false
	}
	loc, err := locate(kind)
	if err != nil {
		s.storeError("get", path, err)
		return nil, false
	}

	query := fmt.Sprintf("SELECT size, %s FROM %s WHERE full_path = ?", loc.column, loc.table)
	var stored int64
	var value []byte
	err = s.db.QueryRowContext(ctx, query, path).Scan(&stored, &value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.metrics.CacheLookup(string(kind), false)
		return nil, false
	case err != nil:
		s.storeError("get", path, err)
		s.metrics.CacheLookup(string(kind), false)
		return nil, false
	}
	if stored != size || len(value) == 0 {
		s.metrics.CacheLookup(string(kind), false)
		return nil, false
	}
	s.metrics.CacheLookup(string(kind), true)
	return value, true
}

// Put stores value for (path, size, kind). Storing a new size for a path
// clears the other hash columns of that row.
func (s *Store) Put(ctx context.Context, path string, size int64, kind Kind, value []byte) error {
	if s == nil {
		return nil
	}
	loc, err := locate(kind)
	if err != nil {
		return err
	}

	var query string
	if loc.table == "hashes" {
		sets := make([]string, 0, len(hashColumns)+1)
		for _, col := range hashColumns {
			if col == loc.column {
				sets = append(sets, fmt.Sprintf("%s = excluded.%s", col, col))
				continue
			}
			sets = append(sets, fmt.Sprintf("%s = CASE WHEN hashes.size = excluded.size THEN hashes.%s ELSE NULL END", col, col))
		}
		sets = append(sets, "size = excluded.size")
		query = fmt.Sprintf(
			"INSERT INTO hashes (full_path, size, %s) VALUES (?, ?, ?) ON CONFLICT(full_path) DO UPDATE SET %s",
			loc.column, strings.Join(sets, ", "),
		)
	} else {
		query = fmt.Sprintf(
			"INSERT INTO %s (full_path, size, %s) VALUES (?, ?, ?) ON CONFLICT(full_path) DO UPDATE SET size = excluded.size, %s = excluded.%s",
			loc.table, loc.column, loc.column, loc.column,
		)
	}

	mu := s.tableMu[loc.table]
	mu.Lock()
	err = s.exec(ctx, query, path, size, value)
	mu.Unlock()
	if err != nil {
		s.storeError("put", path, err)
		return fmt.Errorf("cache put %s: %w", kind, err)
	}
	return nil
}

// GetMetadata returns cached metadata fields for (path, size).
func (s *Store) GetMetadata(ctx context.Context, path string, size int64) (map[string]string, bool) {
	raw, ok := s.Get(ctx, path, size, KindMetadata)
	if !ok {
		return nil, false
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		s.storeError("decode_metadata", path, err)
		return nil, false
	}
	return fields, true
}

// PutMetadata stores metadata fields for (path, size).
func (s *Store) PutMetadata(ctx context.Context, path string, size int64, fields map[string]string) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return s.Put(ctx, path, size, KindMetadata, raw)
}

func (s *Store) storeError(op, path string, err error) {
	s.metrics.CacheError(op)
	logging.WarnWithContext(s.logger, "cache store error; treating as miss", "cache_"+op+"_failed",
		logging.String(logging.FieldPath, path),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "run 'deduper cache clear' if the index is corrupt"),
		logging.String(logging.FieldImpact, "value will be recomputed"),
	)
}
