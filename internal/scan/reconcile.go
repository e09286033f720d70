package scan

import (
	"context"
	"path/filepath"
	"strings"

	"deduper/internal/catalog"
	"deduper/internal/reconcile"
	"deduper/internal/services"
)

// ReconcileRequest names a master tree and the slave trees checked against it.
type ReconcileRequest struct {
	Master string
	Slaves []string
	Mode   reconcile.Mode
	// QuarantineDir overrides the configured quarantine root.
	QuarantineDir string
}

// PlanReconcile walks master and slave trees and matches slave files by content.
func (s *Service) PlanReconcile(ctx context.Context, req ReconcileRequest) (reconcile.Plan, error) {
	ctx = services.WithStage(ctx, "reconcile")
	master := catalog.AbsPath(req.Master)
	slaves := catalog.NormalizeRoots(req.Slaves)
	for _, slave := range slaves {
		if slave == master || within(slave, master) || within(master, slave) {
			return reconcile.Plan{}, services.Wrap(services.ErrValidation, "reconcile", "check roots",
				"slave "+slave+" overlaps master "+master, nil)
		}
	}

	masterEntries, err := s.Walk(ctx, []string{master})
	if err != nil {
		return reconcile.Plan{}, err
	}
	slaveEntries, err := s.Walk(ctx, slaves)
	if err != nil {
		return reconcile.Plan{}, err
	}

	quarantine := req.QuarantineDir
	if quarantine == "" {
		quarantine = s.cfg.Paths.QuarantineDir
	}
	if quarantine != "" {
		quarantine = catalog.AbsPath(quarantine)
	}
	var plan reconcile.Plan
	err = s.inTransaction(ctx, func() error {
		var planErr error
		plan, planErr = reconcile.New(s.hasher, s.logger).Plan(ctx, masterEntries, slaveEntries, req.Mode, quarantine)
		return planErr
	})
	return plan, err
}

func within(path, parent string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
