package hashing

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"deduper/internal/catalog"
	"deduper/internal/contentcache"
	"deduper/internal/logging"
	"deduper/internal/metrics"
	"deduper/internal/phash"
	"deduper/internal/services"
	"deduper/internal/tally"
)

// Kind selects which hash a batch computes.
type Kind = contentcache.Kind

const (
	Full       = contentcache.KindFullHash
	Partial    = contentcache.KindPartial
	Perceptual = contentcache.KindPerceptual
)

// noSignature is cached for files that produced no perceptual signature.
var noSignature = []byte{0}

// ProgressFunc observes batch progress.
type ProgressFunc func(kind Kind, done, total int64)

// Engine hashes catalog entries.
type Engine struct {
	fs       afero.Fs
	cache    *contentcache.Store
	phash    *phash.Hasher
	workers  int
	logger   *slog.Logger
	metrics  *metrics.Metrics
	counters *tally.Counters
	progress ProgressFunc

	buffers sync.Pool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCache consults and fills store.
func WithCache(store *contentcache.Store) Option {
	return func(e *Engine) { e.cache = store }
}

// WithPerceptual sets the hasher used for Perceptual batches.
func WithPerceptual(h *phash.Hasher) Option {
	return func(e *Engine) { e.phash = h }
}

// WithWorkers sets the pool size. Values below 1 keep the default.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics records hash counts and durations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithCounters counts processed and preloaded entries.
func WithCounters(c *tally.Counters) Option {
	return func(e *Engine) { e.counters = c }
}

// WithProgress reports each finished entry.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// New builds an Engine over fsys. The pool defaults to GOMAXPROCS workers.
func New(fsys afero.Fs, opts ...Option) *Engine {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	e := &Engine{
		fs:      fsys,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.phash == nil {
		e.phash = phash.NewHasher(fsys, nil)
	}
	e.logger = logging.NewComponentLogger(e.logger, "hashing")
	e.buffers.New = func() any {
		buf := make([]byte, copyBufferSize)
		return &buf
	}
	return e
}

// Workers returns the pool size.
func (e *Engine) Workers() int {
	return e.workers
}

// Hash fills kind for every entry that lacks it. The first read error is
// returned after in-flight tasks finish; no new tasks start once it occurs.
func (e *Engine) Hash(ctx context.Context, entries []*catalog.Entry, kind Kind) error {
	switch kind {
	case Full, Partial, Perceptual:
	default:
		return services.Wrap(services.ErrValidation, "hashing", "select kind", fmt.Sprintf("unsupported hash kind %q", kind), nil)
	}

	total := int64(len(entries))
	var done atomic.Int64
	finish := func() {
		e.counters.Processed()
		if e.progress != nil {
			e.progress(kind, done.Add(1), total)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, entry := range entries {
		if hasHash(entry, kind) {
			finish()
			continue
		}
		if e.fromCache(ctx, entry, kind) {
			e.counters.Preloaded()
			finish()
			continue
		}
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := e.compute(gctx, entry, kind); err != nil {
				return err
			}
			finish()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// PrepareExact computes partial hashes for all entries and full hashes for
// entries whose (size, partial hash) bucket holds more than one file.
// Entries left without a full hash cannot have an exact duplicate.
func (e *Engine) PrepareExact(ctx context.Context, entries []*catalog.Entry) error {
	bySize := make(map[int64]int, len(entries))
	for _, entry := range entries {
		bySize[entry.Size]++
	}
	sized := make([]*catalog.Entry, 0, len(entries))
	for _, entry := range entries {
		if bySize[entry.Size] > 1 {
			sized = append(sized, entry)
		}
	}
	if err := e.Hash(ctx, sized, Partial); err != nil {
		return err
	}

	type bucketKey struct {
		size    int64
		partial string
	}
	buckets := make(map[bucketKey][]*catalog.Entry)
	for _, entry := range sized {
		key := bucketKey{entry.Size, string(entry.PartialHash)}
		buckets[key] = append(buckets[key], entry)
	}
	candidates := make([]*catalog.Entry, 0, len(sized))
	for _, entry := range sized {
		if len(buckets[bucketKey{entry.Size, string(entry.PartialHash)}]) > 1 {
			candidates = append(candidates, entry)
		}
	}
	logging.WithContext(ctx, e.logger).Debug("partial hash pre-filter complete",
		logging.Int("files", len(entries)),
		logging.Int("size_candidates", len(sized)),
		logging.Int("full_hash_candidates", len(candidates)),
	)
	return e.Hash(ctx, candidates, Full)
}

func hasHash(entry *catalog.Entry, kind Kind) bool {
	switch kind {
	case Full:
		return len(entry.FullHash) > 0
	case Partial:
		return len(entry.PartialHash) > 0
	}
	return false
}

func (e *Engine) fromCache(ctx context.Context, entry *catalog.Entry, kind Kind) bool {
	value, ok := e.cache.Get(ctx, entry.Path, entry.Size, kind)
	if !ok {
		return false
	}
	switch kind {
	case Full:
		entry.FullHash = value
	case Partial:
		entry.PartialHash = value
	case Perceptual:
		if sig, ok := phash.FromBytes(value); ok {
			v := uint64(sig)
			entry.Perceptual = &v
		}
	}
	return true
}

func (e *Engine) compute(ctx context.Context, entry *catalog.Entry, kind Kind) error {
	start := time.Now()
	var value []byte
	switch kind {
	case Full:
		bufp := e.buffers.Get().(*[]byte)
		digest, err := FullDigest(e.fs, entry.Path, *bufp)
		e.buffers.Put(bufp)
		if err != nil {
			return readError(entry.Path, err)
		}
		entry.FullHash = digest
		value = digest
	case Partial:
		digest, err := PartialDigest(e.fs, entry.Path, entry.Size)
		if err != nil {
			return readError(entry.Path, err)
		}
		entry.PartialHash = digest
		value = digest
	case Perceptual:
		sig, err := e.perceptual(ctx, entry)
		if err != nil {
			return readError(entry.Path, err)
		}
		value = sig
	}
	e.metrics.Hashed(string(kind), time.Since(start))

	if err := e.cache.Put(ctx, entry.Path, entry.Size, kind, value); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "hash cache write failed", "cache_put_failed",
			logging.String(logging.FieldPath, entry.Path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "hash will be recomputed next scan"),
		)
	}
	return nil
}

// perceptual returns noSignature for readable files without a picture and
// an error when the file itself cannot be read.
func (e *Engine) perceptual(ctx context.Context, entry *catalog.Entry) ([]byte, error) {
	sig, ok, err := e.phash.Hash(ctx, entry.Path, catalog.IsVideo(entry.Extension))
	if err != nil && !errors.Is(err, phash.ErrNoPicture) {
		return nil, err
	}
	if err != nil || !ok {
		logging.WithContext(ctx, e.logger).Debug("no perceptual signature",
			logging.String(logging.FieldPath, entry.Path),
			logging.Error(err),
		)
		return noSignature, nil
	}
	v := uint64(sig)
	entry.Perceptual = &v
	return sig.Bytes(), nil
}

func readError(path string, err error) error {
	marker := services.ErrTransient
	if errors.Is(err, fs.ErrNotExist) {
		marker = services.ErrNotFound
	}
	return services.Wrap(marker, "hashing", "read file", fmt.Sprintf("Unable to hash %s", path), err)
}
