package fileops

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"deduper/internal/catalog"
	"deduper/internal/fileutil"
	"deduper/internal/logging"
	"deduper/internal/metrics"
	"deduper/internal/services"
)

// Mode is the batch operation.
type Mode string

const (
	// Move relocates each item to its target, creating directories.
	Move Mode = "move"
	// Rename renames each item in place to its target.
	Rename Mode = "rename"
	// Delete removes each item; targets are ignored.
	Delete Mode = "delete"
)

// DeletedMarker is appended to a file name by the safe delete.
const DeletedMarker = "_DELETED_"

// MarkedPath returns the safe-delete target for path.
func MarkedPath(path string) string {
	return path + DeletedMarker
}

// Item is one file and where it goes.
type Item struct {
	Entry  *catalog.Entry
	Target string
}

// Source returns the item's current path.
func (it Item) Source() string {
	if it.Entry == nil {
		return ""
	}
	return it.Entry.Path
}

// Status reports one finished item.
type Status struct {
	Index int
	Total int
	Item  Item
	// Target is the path actually used, after conflict resolution.
	Target  string
	Skipped bool
	Err     error
}

// StatusFunc receives per-item progress. It runs on the batch goroutine.
type StatusFunc func(Status)

// Report summarizes a batch.
type Report struct {
	Completed int
	Skipped   int
	// Targets maps source path to final target for completed items.
	Targets map[string]string
}

// BatchError identifies the item that aborted a batch.
type BatchError struct {
	Index  int
	Item   Item
	Target string
	Err    error
}

func (e *BatchError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("item %d (%s): %v", e.Index+1, e.Item.Source(), e.Err)
	}
	return fmt.Sprintf("item %d (%s -> %s): %v", e.Index+1, e.Item.Source(), e.Target, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Executor runs batches against a filesystem.
type Executor struct {
	fs      afero.Fs
	policy  ConflictPolicy
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Executor.
type Option func(*Executor)

// WithPolicy sets the conflict policy. The default is AppendIndex.
func WithPolicy(p ConflictPolicy) Option {
	return func(x *Executor) { x.policy = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Executor) { x.logger = logger }
}

// WithMetrics counts operations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(x *Executor) { x.metrics = m }
}

// New returns an Executor over fsys.
func New(fsys afero.Fs, opts ...Option) *Executor {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	x := &Executor{fs: fsys, policy: AppendIndex}
	for _, opt := range opts {
		opt(x)
	}
	x.logger = logging.NewComponentLogger(x.logger, "fileops")
	return x
}

// ExecuteBatch runs items in order. It stops at the first failure, or at a
// conflict under the Abort policy, and returns a *BatchError.
func (x *Executor) ExecuteBatch(ctx context.Context, items []Item, mode Mode, status StatusFunc) (Report, error) {
	report := Report{Targets: make(map[string]string, len(items))}
	switch mode {
	case Move, Rename, Delete:
	default:
		return report, services.Wrap(services.ErrValidation, "fileops", "select mode", fmt.Sprintf("unsupported mode %q", mode), nil)
	}
	logger := logging.WithContext(ctx, x.logger)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return report, &BatchError{Index: i, Item: item, Target: item.Target, Err: err}
		}
		target, skipped, err := x.apply(logger, item, mode)
		st := Status{Index: i, Total: len(items), Item: item, Target: target, Skipped: skipped, Err: err}
		if status != nil {
			status(st)
		}
		x.metrics.FileOp(string(mode), err == nil)
		if err != nil {
			logging.ErrorWithContext(logger, "batch aborted", "fileops_batch_aborted",
				logging.String(logging.FieldPath, item.Source()),
				logging.String("target", target),
				logging.Int("completed", report.Completed),
				logging.Int("remaining", len(items)-i-1),
				logging.Error(err),
			)
			return report, &BatchError{Index: i, Item: item, Target: target, Err: err}
		}
		if skipped {
			report.Skipped++
			continue
		}
		report.Completed++
		report.Targets[item.Source()] = target
	}
	return report, nil
}

func (x *Executor) apply(logger *slog.Logger, item Item, mode Mode) (string, bool, error) {
	source := item.Source()
	if source == "" {
		return "", false, errors.New("item has no source")
	}
	if mode == Delete {
		if err := x.fs.Remove(source); err != nil {
			return "", false, err
		}
		logger.Debug("deleted", logging.String(logging.FieldPath, source))
		return "", false, nil
	}

	if item.Target == "" {
		return "", false, errors.New("item has no target")
	}
	target := filepath.Clean(item.Target)
	if target == source {
		return target, true, nil
	}
	if mode == Move {
		if err := x.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return target, false, err
		}
	}
	target, skip, err := x.resolveConflict(target)
	if err != nil || skip {
		return target, skip, err
	}
	if err := x.moveOrCopy(logger, source, target); err != nil {
		return target, false, err
	}
	logger.Debug("moved", logging.String(logging.FieldPath, source), logging.String("target", target))
	return target, false, nil
}

func (x *Executor) resolveConflict(target string) (string, bool, error) {
	exists, err := pathExists(x.fs, target)
	if err != nil || !exists {
		return target, false, err
	}
	switch x.policy {
	case Skip:
		return target, true, nil
	case Abort:
		return target, false, services.Wrap(services.ErrConflict, "fileops", "resolve target", fmt.Sprintf("Target %s already exists", target), nil)
	default:
		next, err := NextFreePath(x.fs, target)
		if err != nil {
			return target, false, services.Wrap(services.ErrConflict, "fileops", "allocate name", "Unable to allocate a free file name", err)
		}
		return next, false, nil
	}
}

// moveOrCopy renames source to target, falling back to verified copy and
// delete when they sit on different filesystems.
func (x *Executor) moveOrCopy(logger *slog.Logger, source, target string) error {
	renameErr := x.fs.Rename(source, target)
	if renameErr == nil {
		return nil
	}
	if !fileutil.IsCrossDevice(renameErr) {
		return renameErr
	}
	if err := fileutil.CopyFileVerified(x.fs, source, target); err != nil {
		return fmt.Errorf("cross-device copy: %w", err)
	}
	if err := x.fs.Remove(source); err != nil {
		logging.WarnWithContext(logger, "failed to remove source file after copy; duplicate files remain", "move_source_cleanup_failed",
			logging.String(logging.FieldPath, source),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "manually delete the source file if needed"),
			logging.String(logging.FieldImpact, "file exists at both source and target"),
		)
	}
	return nil
}
