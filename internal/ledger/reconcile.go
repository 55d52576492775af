package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/feeledger-dev/feeledger/internal/id"
	"github.com/feeledger-dev/feeledger/internal/model"
	"github.com/feeledger-dev/feeledger/internal/money"
)

var (
	ErrMonthClosed         = errors.New("month is closed")
	ErrBillExists          = errors.New("bill already generated for this month")
	ErrBillOutOfOrder      = errors.New("student already billed for a later month")
	ErrSupersededBill      = errors.New("bill has been carried into a later bill")
	ErrStudentLeft         = errors.New("student has left")
	ErrInvalidAmount       = errors.New("invalid payment amount")
	ErrCorruptFeeStructure = errors.New("corrupt fee structure")
	ErrBillNotFound        = errors.New("bill not found")
	ErrUnknownFeeCategory  = errors.New("unknown fee category")
)

// Inclusion says which optional fee categories a bill run asked for.
// Tuition is always billed and needs no flag.
type Inclusion map[model.FeeCategory]bool

// ParseInclusion builds an Inclusion from category names ("exam", "Transport").
// Every name must be one of known; an empty known list accepts any name.
func ParseInclusion(names, known []string) (Inclusion, error) {
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[strings.ToLower(strings.TrimSpace(k))] = true
	}

	inc := make(Inclusion, len(names))
	var unknown []string
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if len(allowed) > 0 && !allowed[n] {
			unknown = append(unknown, n)
			continue
		}
		inc[model.FeeCategory(n)] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s (known: %s)", ErrUnknownFeeCategory, strings.Join(unknown, ", "), strings.Join(known, ", "))
	}
	return inc, nil
}

// ComputeBill assembles the month's bill for a student. Tuition is always
// an item; any other fee is an item only when requested and defined with a
// non-zero amount. The carried due is added and the student's advance is
// applied up to the gross amount.
func ComputeBill(student model.StudentRecord, month string, fees Lookup, include Inclusion, bal model.Balance) (model.Bill, error) {
	if !student.Active() {
		return model.Bill{}, fmt.Errorf("%w: %s", ErrStudentLeft, student.ID)
	}
	if _, _, err := id.ParseMonth(month); err != nil {
		return model.Bill{}, err
	}
	if bal.Advance.IsNegative() || bal.Due.IsNegative() {
		return model.Bill{}, fmt.Errorf("negative running balance for %s: advance %s due %s", student.ID, bal.Advance, bal.Due)
	}

	defined := fees.Fees(student.Class, student.Section)
	for _, f := range defined {
		if f.Amount.IsNegative() || !money.IsCents(f.Amount) {
			return model.Bill{}, fmt.Errorf("%w: class %s section %s fee %s amount %s",
				ErrCorruptFeeStructure, student.Class, student.Section, f.Name, f.Amount)
		}
	}

	tuition := model.FeeItem{Name: model.FeeTuition, Amount: decimal.Zero}
	var extras []model.FeeItem
	for _, f := range defined {
		switch {
		case f.Name == model.FeeTuition:
			tuition = f
		case include[f.Name] && !f.Amount.IsZero():
			extras = append(extras, f)
		}
	}
	items := append([]model.FeeItem{tuition}, extras...)

	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	gross := total.Add(bal.Due)
	used := decimal.Min(bal.Advance, gross)

	return model.Bill{
		StudentID: student.ID,
		Name:      student.Name,
		Class:     student.Class,
		Section:   student.Section,
		Roll:      student.Roll,
		Month:     month,
		Items:     items,
		Summary: model.BillSummary{
			TotalAmount: total,
			PreviousDue: bal.Due,
			AdvanceUsed: used,
			NetPayable:  gross.Sub(used),
		},
	}, nil
}

// ApplyPayment settles amount against what the bill still owes after
// paidSoFar. A surplus becomes advance, a shortfall stays as remaining;
// never both. Returns the payment and the student's new advance balance.
func ApplyPayment(bill model.Bill, paidSoFar, amount, priorAdvance decimal.Decimal) (model.PaymentRecord, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return model.PaymentRecord{}, priorAdvance, fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, amount)
	}
	if !money.IsCents(amount) {
		return model.PaymentRecord{}, priorAdvance, fmt.Errorf("%w: %s has more than 2 decimal places", ErrInvalidAmount, amount)
	}

	owed := bill.Summary.NetPayable.Sub(paidSoFar)
	if owed.IsNegative() {
		owed = decimal.Zero
	}

	rec := model.PaymentRecord{
		BillID:         bill.ID,
		StudentID:      bill.StudentID,
		Amount:         amount,
		AdvanceCreated: decimal.Zero,
		Remaining:      decimal.Zero,
	}
	if amount.GreaterThanOrEqual(owed) {
		rec.AdvanceCreated = amount.Sub(owed)
	} else {
		rec.Remaining = owed.Sub(amount)
	}
	return rec, priorAdvance.Add(rec.AdvanceCreated), nil
}

// ParseMode validates a payment mode name.
func ParseMode(s string) (model.PaymentMode, error) {
	m := model.PaymentMode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case model.PaymentCash, model.PaymentBank, model.PaymentCheque, model.PaymentOnline:
		return m, nil
	case "":
		return model.PaymentCash, nil
	default:
		return "", fmt.Errorf("unknown payment mode %q", s)
	}
}
