package migration

import (
	"context"
	"errors"
	"sync"

	"github.com/feeledger-dev/feeledger/internal/model"
)

var (
	// ErrAlreadyMigrated means a migration report exists; the import is closed for good.
	ErrAlreadyMigrated = errors.New("opening balances already migrated")
	// ErrInvalidRows means the plan still has rows with errors.
	ErrInvalidRows = errors.New("sheet has invalid rows")
	// ErrNotConfirmed means the operator did not confirm the commit.
	ErrNotConfirmed = errors.New("migration not confirmed")
	// ErrEmptyPlan means there is nothing to migrate.
	ErrEmptyPlan = errors.New("sheet has no rows to migrate")
)

// ReportKey is the fixed identifier the report is stored under.
const ReportKey = "opening-balance-migration"

// Store persists the single migration report. PutIfAbsent must be a
// compare-and-set: of two concurrent first writes exactly one succeeds, and
// readers never observe a partially written report.
type Store interface {
	// Get returns the report, or nil if none has been written.
	Get(ctx context.Context) (*model.MigrationReport, error)
	// PutIfAbsent writes report, or returns ErrAlreadyMigrated.
	PutIfAbsent(ctx context.Context, report model.MigrationReport) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.Mutex
	report *model.MigrationReport
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context) (*model.MigrationReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.report == nil {
		return nil, nil
	}
	r := *m.report
	return &r, nil
}

// PutIfAbsent implements Store.
func (m *MemoryStore) PutIfAbsent(_ context.Context, report model.MigrationReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.report != nil {
		return ErrAlreadyMigrated
	}
	m.report = &report
	return nil
}
