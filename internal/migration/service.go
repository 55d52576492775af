package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/feeledger-dev/feeledger/internal/id"
	"github.com/feeledger-dev/feeledger/internal/model"
)

// Service runs the confirm step of the opening-balance import.
type Service struct {
	root  string
	store Store
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a migration Service writing openings under root.
func NewService(root string, store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{root: root, store: store, log: log, now: time.Now}
}

// Status returns the committed report, or nil.
func (s *Service) Status(ctx context.Context) (*model.MigrationReport, error) {
	return s.store.Get(ctx)
}

// TryMigrate writes report if no report exists yet. It is the lock: a second
// call, concurrent or not, fails with ErrAlreadyMigrated.
func (s *Service) TryMigrate(ctx context.Context, report model.MigrationReport) error {
	if err := s.store.PutIfAbsent(ctx, report); err != nil {
		if errors.Is(err, ErrAlreadyMigrated) {
			s.log.Warn("migration rejected: report already present", zap.String("report_id", report.ID))
			return ErrAlreadyMigrated
		}
		return fmt.Errorf("storing migration report: %w", err)
	}
	s.log.Info("migration report stored",
		zap.String("report_id", report.ID),
		zap.String("month", report.Month),
		zap.Int("students", report.StudentsCount))
	return nil
}

// CommitParams holds what the operator supplies at the confirm step.
type CommitParams struct {
	Month      string // YYYY-MM the balances are opening for
	SourceFile string
	Confirmed  bool
	Students   StudentFinder
}

// Commit migrates a plan all-or-nothing. Preconditions are checked in order:
// no existing report, no invalid rows, operator confirmation. Opening
// balances are staged, then linked into place exclusively, and only then is
// the report written. If the report write fails the openings are withdrawn,
// so a stored report always has its openings on disk.
func (s *Service) Commit(ctx context.Context, plan *Plan, params CommitParams) (model.MigrationReport, error) {
	existing, err := s.store.Get(ctx)
	if err != nil {
		return model.MigrationReport{}, err
	}
	if existing != nil {
		return model.MigrationReport{}, ErrAlreadyMigrated
	}
	if len(plan.Invalid) > 0 {
		return model.MigrationReport{}, fmt.Errorf("%w: %d of %d rows", ErrInvalidRows, len(plan.Invalid), len(plan.Rows))
	}
	if len(plan.Valid) == 0 {
		return model.MigrationReport{}, ErrEmptyPlan
	}
	if !params.Confirmed {
		return model.MigrationReport{}, ErrNotConfirmed
	}
	if _, _, err := id.ParseMonth(params.Month); err != nil {
		return model.MigrationReport{}, err
	}

	openings, err := Openings(plan, params.Students)
	if err != nil {
		return model.MigrationReport{}, fmt.Errorf("resolving students: %w", err)
	}

	staged, err := s.stageOpenings(openings)
	if err != nil {
		return model.MigrationReport{}, err
	}
	defer os.Remove(staged)

	path := OpeningsPath(s.root)
	if err := os.Link(staged, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			s.log.Warn("migration rejected: openings already published", zap.String("path", path))
			return model.MigrationReport{}, ErrAlreadyMigrated
		}
		return model.MigrationReport{}, fmt.Errorf("publishing opening balances: %w", err)
	}

	report := NewReport(plan, params.Month, params.SourceFile, s.now())
	if err := s.TryMigrate(ctx, report); err != nil {
		if rerr := os.Remove(path); rerr != nil {
			s.log.Error("openings published without a report", zap.String("path", path), zap.Error(rerr))
		}
		return model.MigrationReport{}, err
	}
	return report, nil
}

func (s *Service) stageOpenings(openings []model.OpeningBalance) (string, error) {
	dir := filepath.Dir(OpeningsPath(s.root))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migration dir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".openings-*.csv")
	if err != nil {
		return "", fmt.Errorf("staging openings: %w", err)
	}
	if err := WriteOpenings(f, openings); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("staging openings: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("staging openings: %w", err)
	}
	return f.Name(), nil
}
