package migration

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/feeledger-dev/feeledger/internal/model"
	"github.com/feeledger-dev/feeledger/internal/sheet"
)

// Plan is a validated opening-balance sheet, ready for confirmation.
type Plan struct {
	Rows    []model.ValidatedRow
	Valid   []model.ValidatedRow
	Invalid []model.ValidatedRow

	TotalCurrentMonth decimal.Decimal
	TotalPendingDue   decimal.Decimal
	TotalAdvance      decimal.Decimal
}

// NewPlan partitions validated rows and totals the valid ones.
func NewPlan(rows []model.ValidatedRow) *Plan {
	p := &Plan{Rows: rows}
	p.Valid, p.Invalid = Partition(rows)
	p.TotalCurrentMonth = decimal.Zero
	p.TotalPendingDue = decimal.Zero
	p.TotalAdvance = decimal.Zero
	for _, r := range p.Valid {
		p.TotalCurrentMonth = p.TotalCurrentMonth.Add(r.CurrentMonthTotal)
		p.TotalPendingDue = p.TotalPendingDue.Add(r.PendingDue)
		p.TotalAdvance = p.TotalAdvance.Add(r.Advance)
	}
	return p
}

// Prepare runs the whole check stage: normalize a decoded sheet and validate
// it against the roster. A missing column fails before any row is looked at.
func Prepare(t *sheet.Table, roster RosterChecker) (*Plan, error) {
	rows, err := sheet.NormalizeTable(t)
	if err != nil {
		return nil, fmt.Errorf("normalizing sheet: %w", err)
	}
	return NewPlan(Validate(rows, roster)), nil
}

// Ready reports whether every row passed validation and there is at least one.
func (p *Plan) Ready() bool {
	return len(p.Invalid) == 0 && len(p.Valid) > 0
}

// NewReport builds the audit record for committing p.
func NewReport(p *Plan, month, sourceFile string, completedAt time.Time) model.MigrationReport {
	return model.MigrationReport{
		ID:              uuid.New().String(),
		Month:           month,
		CompletedAt:     completedAt.UTC(),
		SourceFile:      sourceFile,
		StudentsCount:   len(p.Valid),
		TotalPendingDue: p.TotalPendingDue,
		TotalAdvance:    p.TotalAdvance,
		RejectedRows:    len(p.Invalid),
	}
}

// StudentFinder resolves a canonical composite key to a roster record.
type StudentFinder interface {
	Student(class, section, roll string) (model.StudentRecord, bool)
}

// Openings maps every valid row to the student it seeds.
func Openings(p *Plan, students StudentFinder) ([]model.OpeningBalance, error) {
	out := make([]model.OpeningBalance, 0, len(p.Valid))
	for _, r := range p.Valid {
		s, ok := students.Student(r.Class, r.Section, r.Roll)
		if !ok {
			return nil, fmt.Errorf("row %d: student %s not in roster", r.Row, r.Key())
		}
		out = append(out, model.OpeningBalance{
			StudentID:    s.ID,
			Class:        r.Class,
			Section:      r.Section,
			Roll:         r.Roll,
			Due:          r.PendingDue,
			Advance:      r.Advance,
			CurrentMonth: r.CurrentMonthTotal,
		})
	}
	return out, nil
}
