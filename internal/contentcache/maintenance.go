package contentcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gofrs/flock"

	"deduper/internal/services"
)

// Stats reports row counts per table.
type Stats struct {
	Metadata   int `json:"metadata" yaml:"metadata"`
	Hashes     int `json:"hashes" yaml:"hashes"`
	Thumbnails int `json:"thumbnails" yaml:"thumbnails"`
}

// Stats returns the number of cached rows per table.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	targets := []struct {
		table string
		dst   *int
	}{
		{"metadata", &st.Metadata},
		{"hashes", &st.Hashes},
		{"thumbnails", &st.Thumbnails},
	}
	for _, t := range targets {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+t.table).Scan(t.dst); err != nil {
			return Stats{}, fmt.Errorf("count %s: %w", t.table, err)
		}
	}
	return st, nil
}

// Prune deletes rows whose path no longer exists according to exists.
func (s *Store) Prune(ctx context.Context, exists func(path string) bool) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT full_path FROM metadata UNION SELECT full_path FROM hashes UNION SELECT full_path FROM thumbnails`)
	if err != nil {
		return 0, fmt.Errorf("list cached paths: %w", err)
	}
	var stale []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			return 0, err
		}
		if !exists(path) {
			stale = append(stale, path)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()
	if len(stale) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for _, path := range stale {
		for _, table := range []string{"metadata", "hashes", "thumbnails"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE full_path = ?", path); err != nil {
				return 0, fmt.Errorf("prune %s: %w", table, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return len(stale), nil
}

// FileExists is the default Prune predicate.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Reset deletes the index at path together with its WAL files. It refuses to
// run while another process holds the cache lock.
func Reset(path string) error {
	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !ok {
		return services.Wrap(services.ErrConflict, "cache", "reset", "another deduper process is using "+path, nil)
	}
	defer func() { _ = lock.Unlock() }()

	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}
