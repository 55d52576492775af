package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/feeledger-dev/feeledger/internal/model"
)

// history is everything the ledger has recorded, in replay order.
type history struct {
	openings []model.OpeningBalance
	months   []string // ascending YYYY-MM
	bills    map[string][]model.Bill
	payments map[string][]model.PaymentRecord
}

// newHistory groups bills and payments by month. A payment belongs to the
// month of the bill it settles.
func newHistory(openings []model.OpeningBalance, bills []model.Bill, payments []model.PaymentRecord) *history {
	h := &history{
		openings: openings,
		bills:    make(map[string][]model.Bill),
		payments: make(map[string][]model.PaymentRecord),
	}
	seen := make(map[string]bool)
	for _, b := range bills {
		h.bills[b.Month] = append(h.bills[b.Month], b)
		seen[b.Month] = true
	}
	for _, p := range payments {
		m := paymentMonth(p)
		h.payments[m] = append(h.payments[m], p)
		seen[m] = true
	}
	for m := range seen {
		h.months = append(h.months, m)
	}
	sort.Strings(h.months)
	return h
}

// balances derives every student's running balance: openings first, then
// for each month its bills followed by its payments.
//
// A bill consumes AdvanceUsed and leaves NetPayable owed. A payment leaves
// Remaining owed and adds AdvanceCreated.
func (h *history) balances() map[string]model.Balance {
	out := make(map[string]model.Balance)
	get := func(studentID string) model.Balance {
		b, ok := out[studentID]
		if !ok {
			b = model.Balance{StudentID: studentID, Advance: decimal.Zero, Due: decimal.Zero}
		}
		return b
	}

	for _, o := range h.openings {
		b := get(o.StudentID)
		b.Due = b.Due.Add(o.Due)
		b.Advance = b.Advance.Add(o.Advance)
		out[o.StudentID] = b
	}
	for _, m := range h.months {
		for _, bill := range h.bills[m] {
			b := get(bill.StudentID)
			b.Advance = b.Advance.Sub(bill.Summary.AdvanceUsed)
			b.Due = bill.Summary.NetPayable
			out[bill.StudentID] = b
		}
		for _, p := range h.payments[m] {
			b := get(p.StudentID)
			b.Due = p.Remaining
			b.Advance = b.Advance.Add(p.AdvanceCreated)
			out[p.StudentID] = b
		}
	}
	return out
}

// latestMonth returns the latest month a student was billed, or "".
func (h *history) latestMonth(studentID string) string {
	latest := ""
	for _, m := range h.months {
		for _, b := range h.bills[m] {
			if b.StudentID == studentID && b.Month > latest {
				latest = b.Month
			}
		}
	}
	return latest
}

func (h *history) findBill(billID string) (model.Bill, bool) {
	for _, m := range h.months {
		for _, b := range h.bills[m] {
			if b.ID == billID {
				return b, true
			}
		}
	}
	return model.Bill{}, false
}

func (h *history) paymentsFor(billID string) []model.PaymentRecord {
	var out []model.PaymentRecord
	for _, m := range h.months {
		for _, p := range h.payments[m] {
			if p.BillID == billID {
				out = append(out, p)
			}
		}
	}
	return out
}

func paymentMonth(p model.PaymentRecord) string {
	if len(p.BillID) >= 7 {
		return p.BillID[:7]
	}
	return ""
}
