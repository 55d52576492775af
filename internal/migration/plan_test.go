package migration

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feeledger-dev/feeledger/internal/model"
	"github.com/feeledger-dev/feeledger/internal/money"
	"github.com/feeledger-dev/feeledger/internal/sheet"
)

func TestNewPlan_TotalsMatchInput(t *testing.T) {
	rows := []model.ImportRow{
		row(2, "3", "A", "12", "1500", "200.10", "0"),
		row(3, "3", "A", "13", "1500", "0", "50.05"),
		row(4, "3", "B", "4", "1,200", "1,000.20", "0.10"),
		row(5, "5", "A", "1", "800", "0.30", "0.20"),
	}
	plan := NewPlan(Validate(rows, testIndex()))
	require.True(t, plan.Ready())

	wantDue, wantAdv := decimal.Zero, decimal.Zero
	for _, r := range rows {
		d, err := money.ParseString(r.PendingDue)
		require.NoError(t, err)
		a, err := money.ParseString(r.Advance)
		require.NoError(t, err)
		wantDue = wantDue.Add(d)
		wantAdv = wantAdv.Add(a)
	}
	assert.True(t, wantDue.Equal(plan.TotalPendingDue), "due %s != %s", wantDue, plan.TotalPendingDue)
	assert.True(t, wantAdv.Equal(plan.TotalAdvance), "advance %s != %s", wantAdv, plan.TotalAdvance)
	assert.Equal(t, "1200.60", plan.TotalPendingDue.StringFixed(2))
	assert.Equal(t, "50.35", plan.TotalAdvance.StringFixed(2))

	report := NewReport(plan, "2025-04", "opening.xlsx", time.Date(2025, 4, 30, 10, 0, 0, 0, time.UTC))
	assert.True(t, wantDue.Equal(report.TotalPendingDue))
	assert.True(t, wantAdv.Equal(report.TotalAdvance))
	assert.Equal(t, 4, report.StudentsCount)
	assert.Equal(t, 0, report.RejectedRows)
	assert.Equal(t, "2025-04", report.Month)
	assert.Equal(t, "opening.xlsx", report.SourceFile)
	_, err := uuid.Parse(report.ID)
	assert.NoError(t, err)
}

func TestNewPlan_InvalidRowsExcludedFromTotals(t *testing.T) {
	plan := NewPlan(Validate([]model.ImportRow{
		row(2, "3", "A", "12", "100", "10", "0"),
		row(3, "9", "A", "12", "100", "99", "99"),
	}, testIndex()))
	assert.False(t, plan.Ready())
	assert.Equal(t, "10.00", plan.TotalPendingDue.StringFixed(2))
	assert.Len(t, plan.Invalid, 1)

	report := NewReport(plan, "2025-04", "x.csv", time.Now())
	assert.Equal(t, 1, report.RejectedRows)
}

func TestPrepare_MissingColumns(t *testing.T) {
	tbl := &sheet.Table{Header: []any{"Class", "Section"}}
	_, err := Prepare(tbl, testIndex())
	assert.ErrorIs(t, err, sheet.ErrMissingColumns)
}

func TestPrepare(t *testing.T) {
	tbl, err := (&sheet.CSVDecoder{}).Decode(strings.NewReader(
		"Roll_No,CLASS,section,advance,Pending Due,Current Month Total\n012,3,a,0,200,1500\n"))
	require.NoError(t, err)

	plan, err := Prepare(tbl, testIndex())
	require.NoError(t, err)
	require.True(t, plan.Ready())
	assert.Equal(t, "3|A|12", plan.Valid[0].Key())
}

func TestOpenings(t *testing.T) {
	plan := NewPlan(Validate([]model.ImportRow{
		row(2, "3", "a", "012", "1500", "200", "0"),
		row(3, "lkg", "A", "7", "900", "0", "25"),
	}, testIndex()))

	openings, err := Openings(plan, testIndex())
	require.NoError(t, err)
	require.Len(t, openings, 2)
	assert.Equal(t, "s1", openings[0].StudentID)
	assert.Equal(t, "200.00", openings[0].Due.StringFixed(2))
	assert.Equal(t, "1500.00", openings[0].CurrentMonth.StringFixed(2))
	assert.Equal(t, "s6", openings[1].StudentID)
	assert.Equal(t, "25.00", openings[1].Advance.StringFixed(2))
}
