package scan

import (
	"context"
	"io"

	"deduper/internal/catalog"
	"deduper/internal/deps"
	"deduper/internal/logging"
	"deduper/internal/metadata"
	"deduper/internal/services"
	"deduper/internal/services/exiftool"
)

// Extractor picks the metadata source: an exiftool pool when configured and
// installed, the in-process reader otherwise. The returned closer must be
// closed when done.
func (s *Service) Extractor(ctx context.Context) (metadata.Extractor, io.Closer, error) {
	logger := logging.WithContext(ctx, s.logger)
	if s.cfg.Metadata.UseExiftool {
		bin := s.cfg.ExiftoolBinary()
		if deps.Available(bin) {
			pool, err := exiftool.New(bin, s.hasher.Workers())
			if err != nil {
				return nil, nil, err
			}
			return pool, pool, nil
		}
		logging.WarnWithContext(logger, "exiftool not found; using built-in metadata reader", "exiftool_unavailable",
			logging.String("exiftool_binary", bin),
			logging.String(logging.FieldErrorHint, "install exiftool or set metadata.use_exiftool = false"),
			logging.String(logging.FieldImpact, "fewer metadata fields are available"),
		)
	}
	var extractor *metadata.NativeExtractor
	if s.frames != nil {
		extractor = metadata.NewNativeExtractor(s.fs, s.frames)
	} else {
		extractor = metadata.NewNativeExtractor(s.fs, nil)
	}
	return extractor, noopCloser{}, nil
}

// Resolver builds a resolver with the configured empty sentinels and remaps.
func (s *Service) Resolver() (*metadata.Resolver, error) {
	vocab := metadata.Default()
	remaps, err := metadata.LoadRemaps(s.fs, s.cfg.Paths.RemapDir, vocab)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "metadata", "load remaps", "Invalid remap table", err)
	}
	return metadata.NewResolver(vocab, s.cfg.Metadata.EmptyValues, remaps), nil
}

// LoadMetadata resolves metadata for entries, consulting the cache first.
func (s *Service) LoadMetadata(ctx context.Context, entries []*catalog.Entry) error {
	ctx = services.WithStage(ctx, "metadata")
	resolver, err := s.Resolver()
	if err != nil {
		return err
	}
	extractor, closer, err := s.Extractor(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	loader := metadata.NewLoader(extractor, resolver,
		metadata.WithCache(s.cache),
		metadata.WithWorkers(s.hasher.Workers()),
		metadata.WithLogger(s.logger),
		metadata.WithMetrics(s.metrics),
		metadata.WithCounters(s.counters),
	)
	return s.inTransaction(ctx, func() error {
		return loader.Load(ctx, entries)
	})
}

// WalkWithMetadata walks roots and loads metadata for every file found.
func (s *Service) WalkWithMetadata(ctx context.Context, roots []string) ([]*catalog.Entry, error) {
	entries, err := s.Walk(ctx, roots)
	if err != nil {
		return nil, err
	}
	if err := s.LoadMetadata(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }
