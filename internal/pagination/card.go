package pagination

import (
	"strings"

	"github.com/feeledger-dev/feeledger/internal/model"
	"github.com/feeledger-dev/feeledger/internal/money"
)

// Institution is the fixed identity printed at the top of every bill.
type Institution struct {
	Name    string
	Address string
	Phone   string
	Email   string
}

// Pair is one key/value line of a card block.
type Pair struct {
	Key   string
	Value string
}

// Card is the printable content of an occupied slot: a header block, a
// two-column identity block, the line items, and the summary beneath them.
type Card struct {
	Header   []string
	Identity [][2]Pair // each line carries a left and a right pair
	Items    []Pair
	Summary  []Pair
}

// Compose builds the card for a bill.
func Compose(bill model.Bill, inst Institution) Card {
	var c Card

	c.Header = append(c.Header, inst.Name)
	if inst.Address != "" {
		c.Header = append(c.Header, inst.Address)
	}
	var contact []string
	for _, s := range []string{inst.Phone, inst.Email} {
		if s != "" {
			contact = append(contact, s)
		}
	}
	if len(contact) > 0 {
		c.Header = append(c.Header, strings.Join(contact, " | "))
	}

	c.Identity = [][2]Pair{
		{{"Bill No", bill.ID}, {"Month", bill.Month}},
		{{"Name", bill.Name}, {"Student ID", bill.StudentID}},
		{{"Class", bill.Class}, {"Section", bill.Section}},
		{{"Roll No", bill.Roll}, {"Date", bill.CreatedAt.Format("2006-01-02")}},
	}

	for _, it := range bill.Items {
		c.Items = append(c.Items, Pair{Key: feeLabel(it.Name), Value: money.Format(it.Amount)})
	}

	s := bill.Summary
	c.Summary = []Pair{
		{"Total", money.Format(s.TotalAmount)},
		{"Previous Due", money.Format(s.PreviousDue)},
		{"Advance", money.Format(s.AdvanceUsed)},
		{"Net Payable", money.Format(s.NetPayable)},
	}
	return c
}

// feeLabel turns "transport" into "Transport Fee".
func feeLabel(name model.FeeCategory) string {
	s := string(name)
	if s == "" {
		return "Fee"
	}
	return strings.ToUpper(s[:1]) + s[1:] + " Fee"
}
