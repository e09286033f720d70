package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"deduper/internal/catalog"
	"deduper/internal/config"
	"deduper/internal/contentcache"
	"deduper/internal/deps"
	"deduper/internal/fileops"
	"deduper/internal/hashing"
	"deduper/internal/logging"
	"deduper/internal/metrics"
	"deduper/internal/phash"
	"deduper/internal/renamer"
	"deduper/internal/services"
	"deduper/internal/services/ffmpeg"
	"deduper/internal/tally"
)

// Service runs scans against one configuration and cache.
type Service struct {
	cfg       *config.Config
	fs        afero.Fs
	cache     *contentcache.Store
	ownsCache bool
	logger    *slog.Logger
	metrics   *metrics.Metrics
	counters  *tally.Counters
	progress  hashing.ProgressFunc

	frames *ffmpeg.Runner
	images *phash.Hasher
	hasher *hashing.Engine
}

// Option configures a Service.
type Option func(*Service)

// WithFs replaces the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(s *Service) { s.fs = fsys }
}

// WithCache uses an already open store. The caller keeps ownership.
func WithCache(store *contentcache.Store) Option {
	return func(s *Service) { s.cache = store }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics records cache, hashing, grouping, and file operation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithProgress observes hashing batches.
func WithProgress(fn hashing.ProgressFunc) Option {
	return func(s *Service) { s.progress = fn }
}

// WithFrames sets the video frame extractor instead of probing for ffmpeg.
func WithFrames(r *ffmpeg.Runner) Option {
	return func(s *Service) { s.frames = r }
}

// New builds a Service, opening the configured cache unless WithCache is given.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "scan", "init", "configuration unavailable", nil)
	}
	s := &Service{cfg: cfg, counters: &tally.Counters{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	s.logger = logging.NewComponentLogger(s.logger, "scan")

	if s.cache == nil {
		store, err := contentcache.Open(cfg.Paths.CacheDB,
			contentcache.WithLogger(s.logger),
			contentcache.WithMetrics(s.metrics),
		)
		if err != nil {
			return nil, err
		}
		s.cache = store
		s.ownsCache = true
	}

	if s.frames == nil {
		if bin := cfg.FFmpegBinary(); deps.Available(bin) {
			s.frames = ffmpeg.New(bin)
		} else {
			s.logger.Debug("ffmpeg unavailable; videos have no perceptual signature",
				logging.String("ffmpeg_binary", bin))
		}
	}
	if s.frames != nil {
		s.images = phash.NewHasher(s.fs, s.frames)
	} else {
		s.images = phash.NewHasher(s.fs, nil)
	}

	s.hasher = hashing.New(s.fs,
		hashing.WithCache(s.cache),
		hashing.WithPerceptual(s.images),
		hashing.WithWorkers(cfg.Scan.Workers),
		hashing.WithLogger(s.logger),
		hashing.WithMetrics(s.metrics),
		hashing.WithCounters(s.counters),
		hashing.WithProgress(s.progress),
	)
	return s, nil
}

// Close releases the cache if the Service opened it.
func (s *Service) Close() error {
	if s == nil || !s.ownsCache || s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// Config returns the configuration.
func (s *Service) Config() *config.Config { return s.cfg }

// Cache returns the content cache.
func (s *Service) Cache() *contentcache.Store { return s.cache }

// Counters returns the live counters of the current operation.
func (s *Service) Counters() *tally.Counters { return s.counters }

// Hasher returns the hashing engine.
func (s *Service) Hasher() *hashing.Engine { return s.hasher }

// Executor returns a file operation executor using policy.
func (s *Service) Executor(policy fileops.ConflictPolicy) *fileops.Executor {
	return fileops.New(s.fs,
		fileops.WithPolicy(policy),
		fileops.WithLogger(s.logger),
		fileops.WithMetrics(s.metrics),
	)
}

// Renamer returns a template renamer over the Service filesystem.
func (s *Service) Renamer() *renamer.Renamer {
	return renamer.New(s.fs, s.logger, s.metrics)
}

// Walk enumerates roots with the configured blacklist and extension filter.
func (s *Service) Walk(ctx context.Context, roots []string) ([]*catalog.Entry, error) {
	roots = catalog.NormalizeRoots(roots)
	if len(roots) == 0 {
		return nil, services.Wrap(services.ErrValidation, "scan", "walk", "no scan roots given", nil)
	}
	opts := catalog.WalkOptions{
		Blacklist: s.cfg.Scan.Blacklist,
		Filter: catalog.NewExtensionFilter(
			catalog.FilterMode(s.cfg.Scan.ExtensionFilter),
			s.cfg.Scan.Extensions,
			s.cfg.Scan.ExtensionBundles,
		),
	}
	entries, err := catalog.Walk(s.fs, roots, opts)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "scan", "walk", "Failed to enumerate scan roots", err)
	}
	logging.WithContext(ctx, s.logger).Debug("walk complete",
		logging.Int("roots", len(roots)),
		logging.Int("files", len(entries)),
	)
	return entries, nil
}

// inTransaction runs fn inside one cache transaction.
func (s *Service) inTransaction(ctx context.Context, fn func() error) (err error) {
	if err := s.cache.Begin(ctx); err != nil {
		return services.Wrap(services.ErrTransient, "scan", "begin cache", "Failed to open cache transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := s.cache.Rollback(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			return
		}
		if cErr := s.cache.Commit(); cErr != nil {
			err = fmt.Errorf("commit cache: %w", cErr)
		}
	}()
	return fn()
}
