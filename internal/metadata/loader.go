package metadata

import (
	"context"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"deduper/internal/catalog"
	"deduper/internal/contentcache"
	"deduper/internal/logging"
	"deduper/internal/metrics"
	"deduper/internal/tally"
)

// Extractor reads the raw tags of one file.
type Extractor interface {
	Extract(ctx context.Context, path string) (map[string]string, error)
}

// Loader resolves metadata for catalog entries.
type Loader struct {
	extractor Extractor
	resolver  *Resolver
	cache     *contentcache.Store
	workers   int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	counters  *tally.Counters
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithCache consults and fills store.
func WithCache(store *contentcache.Store) LoaderOption {
	return func(l *Loader) { l.cache = store }
}

// WithWorkers bounds concurrent extractions.
func WithWorkers(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logger }
}

// WithMetrics records extraction failures.
func WithMetrics(m *metrics.Metrics) LoaderOption {
	return func(l *Loader) { l.metrics = m }
}

// WithCounters counts processed and cached entries.
func WithCounters(c *tally.Counters) LoaderOption {
	return func(l *Loader) { l.counters = c }
}

// NewLoader builds a Loader.
func NewLoader(extractor Extractor, resolver *Resolver, opts ...LoaderOption) *Loader {
	l := &Loader{
		extractor: extractor,
		resolver:  resolver,
		workers:   runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.resolver == nil {
		l.resolver = NewResolver(nil, nil, nil)
	}
	l.logger = logging.NewComponentLogger(l.logger, "metadata")
	return l
}

// Load resolves metadata for every entry that has none yet. Extraction
// failures leave the entry with empty values; only cancellation is returned.
func (l *Loader) Load(ctx context.Context, entries []*catalog.Entry) error {
	logger := logging.WithContext(ctx, l.logger)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)

	for _, entry := range entries {
		if entry.MetadataLoaded() {
			continue
		}
		if raw, ok := l.cache.GetMetadata(ctx, entry.Path, entry.Size); ok {
			entry.SetMetadata(l.resolver.Resolve(raw))
			l.counters.Preloaded()
			l.counters.Processed()
			continue
		}
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			l.extract(gctx, logger, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (l *Loader) extract(ctx context.Context, logger *slog.Logger, entry *catalog.Entry) {
	defer l.counters.Processed()
	if l.extractor == nil {
		entry.SetMetadata(l.resolver.Resolve(nil))
		return
	}
	raw, err := l.extractor.Extract(ctx, entry.Path)
	if err != nil {
		if ctx.Err() == nil {
			logging.WarnWithContext(logger, "metadata extraction failed; fields left empty", "metadata_extract_failed",
				logging.String(logging.FieldPath, entry.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "verify exiftool with deduper check"),
				logging.String(logging.FieldImpact, "file is reported with empty metadata"),
			)
			l.metrics.MetadataFailed()
		}
		entry.SetMetadata(l.resolver.Resolve(nil))
		return
	}
	kept := l.resolver.Vocabulary().keepTags(raw)
	if err := l.cache.PutMetadata(ctx, entry.Path, entry.Size, kept); err != nil {
		logging.WarnWithContext(logger, "metadata cache write failed", "cache_put_failed",
			logging.String(logging.FieldPath, entry.Path),
			logging.Error(err),
		)
	}
	entry.SetMetadata(l.resolver.Resolve(kept))
}
