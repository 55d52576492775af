package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ImportRow is one data line of an opening-balance spreadsheet, exactly as
// it was read. Monetary fields are kept raw so the validator can report
// "required" separately from "zero".
type ImportRow struct {
	Row               int // physical sheet row (header is row 1)
	Class             string
	Section           string
	Roll              string
	CurrentMonthTotal string
	PendingDue        string
	Advance           string
}

// ValidatedRow is an ImportRow after canonicalization and checking.
type ValidatedRow struct {
	ImportRow

	Class   string
	Section string
	Roll    string

	CurrentMonthTotal decimal.Decimal
	PendingDue        decimal.Decimal
	Advance           decimal.Decimal

	Errors []string
}

// Key returns the composite class|section|roll key of the normalized row.
func (r ValidatedRow) Key() string {
	return r.Class + "|" + r.Section + "|" + r.Roll
}

// IsValid reports whether the row passed every check.
func (r ValidatedRow) IsValid() bool {
	return len(r.Errors) == 0
}

// MigrationReport is the permanent audit record of the opening-balance
// import. Its presence in the store is the migration lock.
type MigrationReport struct {
	ID              string          `yaml:"id"`
	Month           string          `yaml:"month"` // YYYY-MM
	CompletedAt     time.Time       `yaml:"completed_at"`
	SourceFile      string          `yaml:"source_file"`
	StudentsCount   int             `yaml:"students_count"`
	TotalPendingDue decimal.Decimal `yaml:"total_pending_due"`
	TotalAdvance    decimal.Decimal `yaml:"total_advance"`
	RejectedRows    int             `yaml:"rejected_rows"`
}

// OpeningBalance is the starting due/advance of one student, produced by a
// committed migration.
type OpeningBalance struct {
	StudentID string
	Class     string
	Section   string
	Roll      string
	Due       decimal.Decimal
	Advance   decimal.Decimal
	// CurrentMonth is the target month's total already billed outside the
	// ledger; kept for the audit trail, not carried forward.
	CurrentMonth decimal.Decimal
}
