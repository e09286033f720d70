package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"deduper/internal/catalog"
	"deduper/internal/correlate"
	"deduper/internal/grouping"
	"deduper/internal/hashing"
	"deduper/internal/logging"
	"deduper/internal/services"
	"deduper/internal/tally"
	"deduper/internal/thumbnail"
)

// Request describes one duplicate scan.
type Request struct {
	Roots []string
	Field grouping.Field
	// Threshold overrides the configured similarity when set. Zero is a
	// valid threshold that matches every signature.
	Threshold  *int
	Thumbnails bool
}

// Result is the outcome of a scan.
type Result struct {
	ID      string
	Field   grouping.Field
	Roots   []string
	Files   int
	Groups  []*grouping.Group
	Sets    []*correlate.Set
	Skipped int
	Tally   tally.Snapshot
	Elapsed time.Duration
}

// Scan walks the roots, computes the keys the field needs, and groups and
// correlates the duplicates.
func (s *Service) Scan(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	id := uuid.NewString()
	ctx = services.WithScanID(ctx, id)
	ctx = services.WithStage(ctx, "scan")
	logger := logging.WithContext(ctx, s.logger)
	s.counters.Reset()

	if req.Field == "" {
		req.Field = grouping.ByHash
	}
	threshold := s.cfg.Scan.Similarity
	if req.Threshold != nil {
		threshold = *req.Threshold
		if threshold < 0 || threshold > 100 {
			return nil, services.Wrap(services.ErrValidation, "scan", "check threshold",
				fmt.Sprintf("threshold %d is outside 0-100", threshold), nil)
		}
	}

	roots := catalog.NormalizeRoots(req.Roots)
	entries, err := s.Walk(ctx, roots)
	if err != nil {
		return nil, err
	}
	logger.Info("scan started",
		logging.String(logging.FieldEventType, "scan_start"),
		logging.String("field", string(req.Field)),
		logging.Int("roots", len(roots)),
		logging.Int("files", len(entries)),
	)

	res := &Result{ID: id, Field: req.Field, Roots: roots, Files: len(entries)}
	err = s.inTransaction(ctx, func() error {
		switch req.Field {
		case grouping.ByHash:
			if err := s.hasher.PrepareExact(ctx, entries); err != nil {
				return err
			}
		case grouping.ByPerceptual:
			if err := s.hasher.Hash(ctx, entries, hashing.Perceptual); err != nil {
				return err
			}
		}

		grouped := grouping.New(req.Field,
			grouping.WithThreshold(threshold),
			grouping.WithCounters(s.counters),
		).Group(entries)
		res.Groups = grouped.Duplicates()
		res.Skipped = grouped.Skipped
		res.Sets = correlate.Correlate(res.Groups)

		if req.Thumbnails || s.cfg.Scan.Thumbnails {
			gen := thumbnail.New(s.images, s.cache, s.cfg.Scan.ThumbnailSize, s.hasher.Workers(), s.logger)
			if err := gen.Fill(ctx, members(res.Groups)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Tally = s.counters.Snapshot()
	res.Elapsed = time.Since(start)
	s.metrics.Groups(len(res.Groups), int(res.Tally.Duplicate))
	logger.Info("scan summary",
		logging.String(logging.FieldEventType, "scan_complete"),
		logging.Int("files", res.Files),
		logging.Int("groups", len(res.Groups)),
		logging.Int("correlated_sets", len(res.Sets)),
		logging.Int64("duplicates", res.Tally.Duplicate),
		logging.Int64("preloaded", res.Tally.Preloaded),
		logging.Int("skipped", res.Skipped),
		logging.Duration("elapsed", res.Elapsed),
	)
	return res, nil
}

func members(groups []*grouping.Group) []*catalog.Entry {
	var out []*catalog.Entry
	for _, g := range groups {
		out = append(out, g.Entries...)
	}
	return out
}
