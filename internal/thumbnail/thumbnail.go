// Package thumbnail renders small JPEG previews of duplicate group members.
package thumbnail

import (
	"bytes"
	"context"
	"log/slog"
	"runtime"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"deduper/internal/catalog"
	"deduper/internal/contentcache"
	"deduper/internal/logging"
	"deduper/internal/phash"
)

// DefaultSize is the longest edge of a thumbnail in pixels.
const DefaultSize = 128

// Generator produces thumbnails, consulting the cache first.
type Generator struct {
	images  *phash.Hasher
	cache   *contentcache.Store
	size    int
	workers int
	logger  *slog.Logger
}

// New builds a Generator. size <= 0 uses DefaultSize; workers <= 0 uses GOMAXPROCS.
func New(images *phash.Hasher, cache *contentcache.Store, size, workers int, logger *slog.Logger) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Generator{
		images:  images,
		cache:   cache,
		size:    size,
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "thumbnail"),
	}
}

// Fill sets Thumbnail on every entry lacking one. Files that cannot be
// decoded are left without a thumbnail.
func (g *Generator) Fill(ctx context.Context, entries []*catalog.Entry) error {
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for _, entry := range entries {
		if len(entry.Thumbnail) > 0 {
			continue
		}
		if data, ok := g.cache.Get(ctx, entry.Path, entry.Size, contentcache.KindThumbnail); ok {
			entry.Thumbnail = data
			continue
		}
		eg.Go(func() error {
			g.render(gctx, entry)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (g *Generator) render(ctx context.Context, entry *catalog.Entry) {
	img, ok, err := g.images.Image(ctx, entry.Path, catalog.IsVideo(entry.Extension))
	if err != nil || !ok {
		logging.WithContext(ctx, g.logger).Debug("thumbnail skipped",
			logging.String(logging.FieldPath, entry.Path),
			logging.Error(err),
		)
		return
	}
	thumb := imaging.Fit(img, g.size, g.size, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		logging.WithContext(ctx, g.logger).Debug("thumbnail encode failed",
			logging.String(logging.FieldPath, entry.Path),
			logging.Error(err),
		)
		return
	}
	entry.Thumbnail = buf.Bytes()
	if err := g.cache.Put(ctx, entry.Path, entry.Size, contentcache.KindThumbnail, entry.Thumbnail); err != nil {
		logging.WarnWithContext(g.logger, "thumbnail cache write failed", "cache_put_failed",
			logging.String(logging.FieldPath, entry.Path),
			logging.Error(err),
		)
	}
}
