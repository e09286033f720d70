// Package reconcile finds slave files whose content already exists in a
// master tree and plans their removal.
//
// Every master and slave file is fully hashed. Matching is by digest equality
// alone. Matched slave files are either moved into a quarantine root, keeping
// their path relative to the slave root, or renamed in place with the
// deleted marker.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"deduper/internal/catalog"
	"deduper/internal/fileops"
	"deduper/internal/hashing"
	"deduper/internal/logging"
	"deduper/internal/services"
)

// Mode selects what happens to matched slave files.
type Mode string

const (
	Quarantine Mode = "move"
	MarkRename Mode = "rename"
)

// ParseMode accepts the CLI spelling of a mode.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case Quarantine, "quarantine":
		return Quarantine, nil
	case MarkRename, "mark":
		return MarkRename, nil
	}
	return "", fmt.Errorf("unknown reconcile mode %q (want move or rename)", value)
}

// Match pairs a slave file with the master file it duplicates.
type Match struct {
	Slave  *catalog.Entry
	Master *catalog.Entry
}

// Plan is the outcome of matching, ready for execution.
type Plan struct {
	Mode    Mode
	Matches []Match
	Items   []fileops.Item
	// MastersWithDuplicates counts master files hit at least once.
	MastersWithDuplicates int
	MasterFiles           int
	SlaveFiles            int
}

// Engine plans reconciliations.
type Engine struct {
	hasher *hashing.Engine
	logger *slog.Logger
}

// New returns an Engine using hasher for full digests.
func New(hasher *hashing.Engine, logger *slog.Logger) *Engine {
	return &Engine{hasher: hasher, logger: logging.NewComponentLogger(logger, "reconcile")}
}

// Plan hashes master and slave entries and returns the matched slave files
// with their targets. quarantineDir is required in Quarantine mode.
func (e *Engine) Plan(ctx context.Context, master, slaves []*catalog.Entry, mode Mode, quarantineDir string) (Plan, error) {
	plan := Plan{Mode: mode, MasterFiles: len(master), SlaveFiles: len(slaves)}
	if mode == Quarantine && strings.TrimSpace(quarantineDir) == "" {
		return plan, services.Wrap(services.ErrConfiguration, "reconcile", "resolve quarantine", "Quarantine directory not configured; set paths.quarantine_dir or pass --quarantine", nil)
	}
	if mode != Quarantine && mode != MarkRename {
		return plan, services.Wrap(services.ErrValidation, "reconcile", "select mode", fmt.Sprintf("unsupported mode %q", mode), nil)
	}

	if err := e.hasher.Hash(ctx, master, hashing.Full); err != nil {
		return plan, err
	}
	if err := e.hasher.Hash(ctx, slaves, hashing.Full); err != nil {
		return plan, err
	}

	index := make(map[string]*catalog.Entry, len(master))
	for _, m := range master {
		index[string(m.FullHash)] = m
	}
	hit := make(map[string]struct{})
	for _, s := range slaves {
		m, ok := index[string(s.FullHash)]
		if !ok || m.Path == s.Path {
			continue
		}
		if _, seen := hit[string(s.FullHash)]; !seen {
			hit[string(s.FullHash)] = struct{}{}
			plan.MastersWithDuplicates++
		}
		plan.Matches = append(plan.Matches, Match{Slave: s, Master: m})
		plan.Items = append(plan.Items, fileops.Item{Entry: s, Target: target(s, mode, quarantineDir)})
	}

	logging.WithContext(ctx, e.logger).Info("reconcile plan ready",
		logging.String(logging.FieldEventType, "reconcile_planned"),
		logging.Int("master_files", plan.MasterFiles),
		logging.Int("slave_files", plan.SlaveFiles),
		logging.Int("matches", len(plan.Matches)),
		logging.Int("masters_with_duplicates", plan.MastersWithDuplicates),
	)
	return plan, nil
}

// Execute applies the plan through executor.
func (e *Engine) Execute(ctx context.Context, plan Plan, executor *fileops.Executor, status fileops.StatusFunc) (fileops.Report, error) {
	mode := fileops.Move
	if plan.Mode == MarkRename {
		mode = fileops.Rename
	}
	return executor.ExecuteBatch(ctx, plan.Items, mode, status)
}

func target(s *catalog.Entry, mode Mode, quarantineDir string) string {
	if mode == MarkRename {
		return fileops.MarkedPath(s.Path)
	}
	return filepath.Join(quarantineDir, filepath.Base(s.Root), s.RelPath())
}
