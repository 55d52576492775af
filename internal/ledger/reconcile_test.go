package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feeledger-dev/feeledger/internal/model"
)

func student(id, class, section, roll string) model.StudentRecord {
	return model.StudentRecord{ID: id, Name: "Student " + id, Class: class, Section: section, Roll: roll, Status: model.StatusActive}
}

func balance(advance, due string) model.Balance {
	return model.Balance{Advance: dec(advance), Due: dec(due)}
}

func TestComputeBill(t *testing.T) {
	fees := testStructure()
	st := student("s1", "5", "A", "1")

	tests := []struct {
		name      string
		include   []string
		bal       model.Balance
		wantItems []model.FeeCategory
		total     string
		prevDue   string
		used      string
		net       string
	}{
		{
			name:      "tuition only",
			bal:       balance("0", "0"),
			wantItems: []model.FeeCategory{model.FeeTuition},
			total:     "1500", prevDue: "0", used: "0", net: "1500",
		},
		{
			name:      "extras requested, zero-amount skipped",
			include:   []string{"exam", "Computer", "transport"},
			bal:       balance("0", "0"),
			wantItems: []model.FeeCategory{model.FeeTuition, model.FeeExam, model.FeeTransport},
			total:     "2000", prevDue: "0", used: "0", net: "2000",
		},
		{
			name:      "previous due carried",
			bal:       balance("0", "250.50"),
			wantItems: []model.FeeCategory{model.FeeTuition},
			total:     "1500", prevDue: "250.50", used: "0", net: "1750.50",
		},
		{
			name:      "advance partly used",
			bal:       balance("400", "100"),
			wantItems: []model.FeeCategory{model.FeeTuition},
			total:     "1500", prevDue: "100", used: "400", net: "1200",
		},
		{
			name:      "advance covers everything",
			bal:       balance("5000", "0"),
			wantItems: []model.FeeCategory{model.FeeTuition},
			total:     "1500", prevDue: "0", used: "1500", net: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inc, err := ParseInclusion(tt.include, nil)
			require.NoError(t, err)
			bill, err := ComputeBill(st, "2025-04", fees, inc, tt.bal)
			require.NoError(t, err)

			names := make([]model.FeeCategory, len(bill.Items))
			sum := decimal.Zero
			for i, it := range bill.Items {
				names[i] = it.Name
				sum = sum.Add(it.Amount)
			}
			assert.Equal(t, tt.wantItems, names)
			assert.True(t, sum.Equal(bill.Summary.TotalAmount), "items sum to total")
			assert.Equal(t, dec(tt.total).StringFixed(2), bill.Summary.TotalAmount.StringFixed(2))
			assert.Equal(t, dec(tt.prevDue).StringFixed(2), bill.Summary.PreviousDue.StringFixed(2))
			assert.Equal(t, dec(tt.used).StringFixed(2), bill.Summary.AdvanceUsed.StringFixed(2))
			assert.Equal(t, dec(tt.net).StringFixed(2), bill.Summary.NetPayable.StringFixed(2))

			gross := bill.Summary.TotalAmount.Add(bill.Summary.PreviousDue)
			assert.True(t, bill.Summary.NetPayable.Equal(gross.Sub(bill.Summary.AdvanceUsed)))
			assert.False(t, bill.Summary.NetPayable.IsNegative())
		})
	}
}

func TestComputeBill_NoTuitionDefined(t *testing.T) {
	fees := NewStructure([]StructureRow{{Class: "5", Fee: "exam", Amount: dec("200")}})
	bill, err := ComputeBill(student("s1", "5", "A", "1"), "2025-04", fees, nil, balance("0", "0"))
	require.NoError(t, err)
	require.Len(t, bill.Items, 1)
	assert.Equal(t, model.FeeTuition, bill.Items[0].Name)
	assert.True(t, bill.Items[0].Amount.IsZero())
}

func TestComputeBill_Errors(t *testing.T) {
	fees := testStructure()

	left := student("s9", "5", "A", "9")
	left.Status = model.StatusLeft
	_, err := ComputeBill(left, "2025-04", fees, nil, balance("0", "0"))
	assert.ErrorIs(t, err, ErrStudentLeft)

	_, err = ComputeBill(student("s1", "5", "A", "1"), "April", fees, nil, balance("0", "0"))
	assert.Error(t, err)

	corrupt := NewStructure([]StructureRow{{Class: "5", Fee: "tuition", Amount: dec("-1")}})
	_, err = ComputeBill(student("s1", "5", "A", "1"), "2025-04", corrupt, nil, balance("0", "0"))
	assert.ErrorIs(t, err, ErrCorruptFeeStructure)

	fractional := NewStructure([]StructureRow{{Class: "5", Fee: "tuition", Amount: dec("10.005")}})
	_, err = ComputeBill(student("s1", "5", "A", "1"), "2025-04", fractional, nil, balance("0", "0"))
	assert.ErrorIs(t, err, ErrCorruptFeeStructure)
}

func TestApplyPayment(t *testing.T) {
	bill := model.Bill{ID: "2025-04-001", StudentID: "s1", Summary: model.BillSummary{NetPayable: dec("1000")}}

	tests := []struct {
		name       string
		paid       string
		amount     string
		advance    string
		remaining  string
		created    string
		newAdvance string
	}{
		{"partial", "0", "400", "0", "600", "0", "0"},
		{"exact", "0", "1000", "0", "0", "0", "0"},
		{"overpay", "0", "1200", "50", "0", "200", "250"},
		{"after partial", "600", "400", "0", "0", "0", "0"},
		{"already settled", "1000", "100", "0", "0", "100", "100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, adv, err := ApplyPayment(bill, dec(tt.paid), dec(tt.amount), dec(tt.advance))
			require.NoError(t, err)
			assert.Equal(t, "s1", rec.StudentID)
			assert.Equal(t, "2025-04-001", rec.BillID)
			assert.True(t, rec.Remaining.Equal(dec(tt.remaining)), "remaining %s", rec.Remaining)
			assert.True(t, rec.AdvanceCreated.Equal(dec(tt.created)), "advance %s", rec.AdvanceCreated)
			assert.True(t, adv.Equal(dec(tt.newAdvance)))
			assert.False(t, rec.Remaining.IsPositive() && rec.AdvanceCreated.IsPositive(),
				"a payment never both leaves a balance and creates advance")
		})
	}
}

func TestApplyPayment_InvalidAmount(t *testing.T) {
	bill := model.Bill{Summary: model.BillSummary{NetPayable: dec("100")}}
	for _, amt := range []string{"0", "-5", "10.001"} {
		_, adv, err := ApplyPayment(bill, decimal.Zero, dec(amt), dec("30"))
		assert.ErrorIs(t, err, ErrInvalidAmount, amt)
		assert.True(t, adv.Equal(dec("30")))
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Bank ")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentBank, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCash, m)

	_, err = ParseMode("barter")
	assert.Error(t, err)
}

func TestParseInclusion(t *testing.T) {
	inc, err := ParseInclusion([]string{"Exam", " transport ", ""}, []string{"tuition", "exam", "transport"})
	require.NoError(t, err)
	assert.True(t, inc[model.FeeExam])
	assert.True(t, inc[model.FeeTransport])
	assert.Len(t, inc, 2)
}

func TestParseInclusion_UnknownCategory(t *testing.T) {
	_, err := ParseInclusion([]string{"exma", "exam"}, []string{"tuition", "Exam"})
	require.ErrorIs(t, err, ErrUnknownFeeCategory)
	assert.Contains(t, err.Error(), "exma")
	assert.NotContains(t, err.Error(), "exma, exam")

	inc, err := ParseInclusion([]string{"anything"}, nil)
	require.NoError(t, err)
	assert.True(t, inc["anything"])
}
