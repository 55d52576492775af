package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/feeledger-dev/feeledger/internal/model"
)

// SQLiteStore keeps the report in a single-row table whose primary key is
// ReportKey. INSERT ... ON CONFLICT DO NOTHING is the compare-and-set.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening migration database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" coherent.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating migration database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS migration_report (
		key TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		month TEXT NOT NULL,
		completed_at TEXT NOT NULL,
		source_file TEXT NOT NULL,
		students_count INTEGER NOT NULL,
		total_pending_due TEXT NOT NULL,
		total_advance TEXT NOT NULL,
		rejected_rows INTEGER NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context) (*model.MigrationReport, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, month, completed_at, source_file, students_count,
		       total_pending_due, total_advance, rejected_rows
		FROM migration_report WHERE key = ?`, ReportKey)

	var (
		r                   model.MigrationReport
		completedAt         string
		pendingDue, advance string
	)
	err := row.Scan(&r.ID, &r.Month, &completedAt, &r.SourceFile, &r.StudentsCount,
		&pendingDue, &advance, &r.RejectedRows)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading migration report: %w", err)
	}

	if r.CompletedAt, err = time.Parse(time.RFC3339Nano, completedAt); err != nil {
		return nil, fmt.Errorf("parsing completed_at %q: %w", completedAt, err)
	}
	if r.TotalPendingDue, err = decimal.NewFromString(pendingDue); err != nil {
		return nil, fmt.Errorf("parsing total_pending_due %q: %w", pendingDue, err)
	}
	if r.TotalAdvance, err = decimal.NewFromString(advance); err != nil {
		return nil, fmt.Errorf("parsing total_advance %q: %w", advance, err)
	}
	return &r, nil
}

// PutIfAbsent implements Store.
func (s *SQLiteStore) PutIfAbsent(ctx context.Context, r model.MigrationReport) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO migration_report
			(key, id, month, completed_at, source_file, students_count,
			 total_pending_due, total_advance, rejected_rows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING`,
		ReportKey, r.ID, r.Month, r.CompletedAt.UTC().Format(time.RFC3339Nano), r.SourceFile,
		r.StudentsCount, r.TotalPendingDue.String(), r.TotalAdvance.String(), r.RejectedRows)
	if err != nil {
		return fmt.Errorf("writing migration report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("writing migration report: %w", err)
	}
	if n == 0 {
		return ErrAlreadyMigrated
	}
	return nil
}
