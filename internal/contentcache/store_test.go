package contentcache_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"deduper/internal/contentcache"
	"deduper/internal/metrics"
	"deduper/internal/services"
)

func openStore(t *testing.T, path string, opts ...contentcache.Option) *contentcache.Store {
	t.Helper()
	store, err := contentcache.Open(path, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestGetRequiresMatchingSize(t *testing.T) {
	ctx := context.Background()
	m := metrics.New()
	store := openStore(t, filepath.Join(t.TempDir(), "index.db"), contentcache.WithMetrics(m))

	if err := store.Put(ctx, "/a.jpg", 10, contentcache.KindFullHash, []byte{1, 2, 3}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := store.Get(ctx, "/a.jpg", 10, contentcache.KindFullHash)
	if !ok || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("expected hit, got %v %v", got, ok)
	}
	if _, ok := store.Get(ctx, "/a.jpg", 11, contentcache.KindFullHash); ok {
		t.Fatal("expected miss on size mismatch")
	}
	if _, ok := store.Get(ctx, "/a.jpg", 10, contentcache.KindPartial); ok {
		t.Fatal("expected miss for unset column")
	}
	if got := testutil.ToFloat64(m.CacheHits.WithLabelValues("hash")); got != 1 {
		t.Fatalf("hits = %v, want 1", got)
	}
}

func TestPutNewSizeInvalidatesOtherHashes(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "index.db"))

	_ = store.Put(ctx, "/a.jpg", 10, contentcache.KindFullHash, []byte{1})
	_ = store.Put(ctx, "/a.jpg", 10, contentcache.KindPartial, []byte{2})
	if _, ok := store.Get(ctx, "/a.jpg", 10, contentcache.KindFullHash); !ok {
		t.Fatal("expected full hash to survive same-size partial put")
	}

	_ = store.Put(ctx, "/a.jpg", 20, contentcache.KindPartial, []byte{3})
	if _, ok := store.Get(ctx, "/a.jpg", 20, contentcache.KindFullHash); ok {
		t.Fatal("expected full hash to be cleared after size change")
	}
	if got, ok := store.Get(ctx, "/a.jpg", 20, contentcache.KindPartial); !ok || got[0] != 3 {
		t.Fatalf("unexpected partial after size change: %v %v", got, ok)
	}
}

func TestScanCommitAndRollback(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "index.db"))

	if err := store.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := store.Begin(ctx); !errors.Is(err, contentcache.ErrScanActive) {
		t.Fatalf("expected ErrScanActive, got %v", err)
	}
	_ = store.Put(ctx, "/kept.jpg", 1, contentcache.KindFullHash, []byte{9})
	if err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, ok := store.Get(ctx, "/kept.jpg", 1, contentcache.KindFullHash); !ok {
		t.Fatal("expected committed value")
	}

	if err := store.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_ = store.Put(ctx, "/dropped.jpg", 1, contentcache.KindFullHash, []byte{8})
	if err := store.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if _, ok := store.Get(ctx, "/dropped.jpg", 1, contentcache.KindFullHash); ok {
		t.Fatal("expected rolled back value to be absent")
	}
	if store.InScan() {
		t.Fatal("expected no active scan")
	}
}

func TestUncommittedScanIsDiscardedOnReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")

	store, err := contentcache.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Put(ctx, "/before.jpg", 1, contentcache.KindFullHash, []byte{1})
	if err := store.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_ = store.Put(ctx, "/during.jpg", 1, contentcache.KindFullHash, []byte{2})
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := openStore(t, path)
	if _, ok := reopened.Get(ctx, "/before.jpg", 1, contentcache.KindFullHash); !ok {
		t.Fatal("expected earlier state to survive")
	}
	if _, ok := reopened.Get(ctx, "/during.jpg", 1, contentcache.KindFullHash); ok {
		t.Fatal("expected interrupted scan writes to be discarded")
	}
}

func TestConcurrentPutsDuringScan(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "index.db"))
	if err := store.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := filepath.Join("/files", string(rune('a'+i)))
			_ = store.Put(ctx, path, int64(i), contentcache.KindPartial, []byte{byte(i + 1)})
			_ = store.Put(ctx, path, int64(i), contentcache.KindThumbnail, []byte{0xff})
		}(i)
	}
	wg.Wait()
	if err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Hashes != 16 || stats.Thumbnails != 16 || stats.Metadata != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "index.db"))
	fields := map[string]string{"Camera model": "X100", "Width": "4000"}
	if err := store.PutMetadata(ctx, "/a.jpg", 5, fields); err != nil {
		t.Fatalf("PutMetadata: %v", err)
	}
	got, ok := store.GetMetadata(ctx, "/a.jpg", 5)
	if !ok || got["Camera model"] != "X100" || got["Width"] != "4000" {
		t.Fatalf("unexpected metadata: %v %v", got, ok)
	}
}

func TestPruneRemovesMissingPaths(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, filepath.Join(t.TempDir(), "index.db"))
	_ = store.Put(ctx, "/keep.jpg", 1, contentcache.KindFullHash, []byte{1})
	_ = store.Put(ctx, "/gone.jpg", 1, contentcache.KindFullHash, []byte{1})
	_ = store.Put(ctx, "/gone.jpg", 1, contentcache.KindThumbnail, []byte{1})

	removed, err := store.Prune(ctx, func(path string) bool { return path == "/keep.jpg" })
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	stats, _ := store.Stats(ctx)
	if stats.Hashes != 1 || stats.Thumbnails != 0 {
		t.Fatalf("unexpected stats after prune: %+v", stats)
	}
}

func TestOpenHoldsExclusiveLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	_ = openStore(t, path)

	if _, err := contentcache.Open(path); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict opening locked cache, got %v", err)
	}
	if err := contentcache.Reset(path); !errors.Is(err, services.ErrConflict) {
		t.Fatalf("expected conflict resetting locked cache, got %v", err)
	}
}

func TestResetRemovesIndex(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.db")
	store, err := contentcache.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_ = store.Put(ctx, "/a", 1, contentcache.KindFullHash, []byte{1})
	_ = store.Close()

	if err := contentcache.Reset(path); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	fresh := openStore(t, path)
	if _, ok := fresh.Get(ctx, "/a", 1, contentcache.KindFullHash); ok {
		t.Fatal("expected empty index after reset")
	}
}
