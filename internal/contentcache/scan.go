package contentcache

import (
	"context"
	"errors"
	"fmt"
)

// ErrScanActive is returned by Begin when a scan transaction is already open.
var ErrScanActive = errors.New("cache scan already active")

// Begin opens the scan transaction. Every Put until Commit or Rollback joins it.
func (s *Store) Begin(ctx context.Context) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if s.tx != nil {
		return ErrScanActive
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache scan: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit makes the scan's writes visible. Without an open scan it is a no-op.
func (s *Store) Commit() error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("commit cache scan: %w", err)
	}
	return nil
}

// Rollback discards the scan's writes. Without an open scan it is a no-op.
func (s *Store) Rollback() error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("rollback cache scan: %w", err)
	}
	return nil
}

// InScan reports whether a scan transaction is open.
func (s *Store) InScan() bool {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return s.tx != nil
}

// exec runs a write through the scan transaction when one is open.
func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	s.txMu.Lock()
	tx := s.tx
	s.txMu.Unlock()
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = s.db.ExecContext(ctx, query, args...)
	}
	return err
}
