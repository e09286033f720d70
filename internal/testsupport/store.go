package testsupport

import (
	"testing"

	"deduper/internal/config"
	"deduper/internal/contentcache"
)

// MustOpenCache opens the content cache configured in cfg and registers cleanup.
func MustOpenCache(t testing.TB, cfg *config.Config, opts ...contentcache.Option) *contentcache.Store {
	t.Helper()

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	store, err := contentcache.Open(cfg.Paths.CacheDB, opts...)
	if err != nil {
		t.Fatalf("contentcache.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
