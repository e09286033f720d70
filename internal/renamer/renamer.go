package renamer

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"

	"deduper/internal/catalog"
	"deduper/internal/fileops"
	"deduper/internal/logging"
	"deduper/internal/metrics"
)

// Plan lists the renames a template produces.
type Plan struct {
	Items   []fileops.Item
	Skipped []*catalog.Entry
}

// BuildPlan applies format to every entry. The AbortRun policy fails the
// whole plan before anything is renamed.
func BuildPlan(entries []*catalog.Entry, format *Format) (Plan, error) {
	var plan Plan
	for _, entry := range entries {
		name, skip, err := format.Apply(entry)
		if err != nil {
			return Plan{}, err
		}
		if skip || name == entry.Name {
			plan.Skipped = append(plan.Skipped, entry)
			continue
		}
		plan.Items = append(plan.Items, fileops.Item{
			Entry:  entry,
			Target: filepath.Join(filepath.Dir(entry.Path), name),
		})
	}
	return plan, nil
}

// Renamer executes rename plans.
type Renamer struct {
	fs      afero.Fs
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New returns a Renamer over fsys.
func New(fsys afero.Fs, logger *slog.Logger, m *metrics.Metrics) *Renamer {
	return &Renamer{fs: fsys, logger: logging.NewComponentLogger(logger, "renamer"), metrics: m}
}

// Run renames entries per format, resolving name collisions with the
// format's OnExists policy.
func (r *Renamer) Run(ctx context.Context, entries []*catalog.Entry, format *Format, status fileops.StatusFunc) (Plan, fileops.Report, error) {
	plan, err := BuildPlan(entries, format)
	if err != nil {
		return plan, fileops.Report{}, err
	}
	executor := fileops.New(r.fs,
		fileops.WithPolicy(format.OnExists),
		fileops.WithLogger(r.logger),
		fileops.WithMetrics(r.metrics),
	)
	report, err := executor.ExecuteBatch(ctx, plan.Items, fileops.Rename, status)
	logging.WithContext(ctx, r.logger).Info("rename finished",
		logging.String(logging.FieldEventType, "rename_complete"),
		logging.String("template", format.Raw),
		logging.Int("renamed", report.Completed),
		logging.Int("skipped", len(plan.Skipped)+report.Skipped),
	)
	return plan, report, err
}
