package exiftool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	goexiftool "github.com/barasher/go-exiftool"
)

type fakeInstance struct {
	busy   atomic.Int32
	calls  atomic.Int32
	closed atomic.Bool
	fields map[string]any
	err    error
}

func (f *fakeInstance) ExtractMetadata(files ...string) []goexiftool.FileMetadata {
	if f.busy.Add(1) > 1 {
		panic("instance used concurrently")
	}
	defer f.busy.Add(-1)
	f.calls.Add(1)
	out := make([]goexiftool.FileMetadata, 0, len(files))
	for _, file := range files {
		out = append(out, goexiftool.FileMetadata{File: file, Fields: f.fields, Err: f.err})
	}
	return out
}

func (f *fakeInstance) Close() error {
	f.closed.Store(true)
	return nil
}

func TestExtractStringifiesFields(t *testing.T) {
	inst := &fakeInstance{fields: map[string]any{
		"Make":       "Canon",
		"ImageWidth": float64(4000),
		"Keywords":   []any{"a", "b"},
		"Empty":      nil,
	}}
	pool := newPool([]instance{inst})

	got, err := pool.Extract(context.Background(), "/photos/a.jpg")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got["Make"] != "Canon" || got["ImageWidth"] != "4000" || got["Keywords"] != "a, b" {
		t.Fatalf("unexpected fields %v", got)
	}
	if _, ok := got["Empty"]; ok {
		t.Fatal("nil values must be dropped")
	}
}

func TestExtractReportsPerFileError(t *testing.T) {
	boom := errors.New("file not found")
	pool := newPool([]instance{&fakeInstance{err: boom}})
	if _, err := pool.Extract(context.Background(), "/missing.jpg"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestPoolSerializesInstances(t *testing.T) {
	a := &fakeInstance{fields: map[string]any{"Make": "A"}}
	b := &fakeInstance{fields: map[string]any{"Make": "B"}}
	pool := newPool([]instance{a, b})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pool.Extract(context.Background(), "/x.jpg"); err != nil {
				t.Errorf("Extract: %v", err)
			}
		}()
	}
	wg.Wait()
	if total := a.calls.Load() + b.calls.Load(); total != 50 {
		t.Fatalf("expected 50 calls, got %d", total)
	}
}

func TestCloseStopsInstances(t *testing.T) {
	inst := &fakeInstance{}
	pool := newPool([]instance{inst})
	if err := pool.Close(); err != nil {
		t.Fatal(err)
	}
	if !inst.closed.Load() {
		t.Fatal("instance not closed")
	}
	if _, err := pool.Extract(context.Background(), "/a.jpg"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := pool.Close(); err != nil {
		t.Fatal("second Close should be a no-op")
	}
}

func TestExtractHonoursCancellation(t *testing.T) {
	pool := newPool(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Extract(ctx, "/a.jpg"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}
