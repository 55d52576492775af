// Package pagination lays bills out on fixed-size print pages.
//
// Layout is a pure function of the bill list and page size: the same input
// always produces the same page and slot assignment, so "reprint page N"
// reproduces exactly what was printed the first time.
package pagination

import (
	"fmt"

	"github.com/feeledger-dev/feeledger/internal/model"
)

// DefaultPerPage is the number of bills on a page when none is configured.
const DefaultPerPage = 4

// Columns is the width of the slot grid. Rows grow with the page size.
const Columns = 2

// Slot is one cell of a page's grid. Bill is nil for an empty slot.
type Slot struct {
	Index int // position on the page, row-major
	Row   int
	Col   int
	Bill  *model.Bill
}

// Empty reports whether the slot holds no bill.
func (s Slot) Empty() bool {
	return s.Bill == nil
}

// Page is one printed page. Slots always has Rows*Columns entries, enough
// for PerPage bills; trailing slots on the last page are empty.
type Page struct {
	Number  int // 1-based
	Rows    int
	PerPage int
	Slots   []Slot
}

// Occupied returns the number of slots holding a bill.
func (p Page) Occupied() int {
	n := 0
	for _, s := range p.Slots {
		if !s.Empty() {
			n++
		}
	}
	return n
}

// Bills returns the page's bills in slot order.
func (p Page) Bills() []model.Bill {
	var out []model.Bill
	for _, s := range p.Slots {
		if !s.Empty() {
			out = append(out, *s.Bill)
		}
	}
	return out
}

// Paginate places bills on pages in input order. Bill i goes to slot
// i mod perPage, and a new page begins whenever that slot is 0 (except for
// the first bill). perPage <= 0 means DefaultPerPage. Slots hold copies, so
// later changes to bills do not reach the pages.
func Paginate(bills []model.Bill, perPage int) []Page {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	rows := (perPage + Columns - 1) / Columns

	var pages []Page
	for i := range bills {
		slot := i % perPage
		if slot == 0 {
			pages = append(pages, newPage(len(pages)+1, rows, perPage))
		}
		b := bills[i]
		b.Items = append([]model.FeeItem(nil), b.Items...)
		pages[len(pages)-1].Slots[slot].Bill = &b
	}
	return pages
}

func newPage(number, rows, perPage int) Page {
	p := Page{Number: number, Rows: rows, PerPage: perPage, Slots: make([]Slot, rows*Columns)}
	for i := range p.Slots {
		p.Slots[i] = Slot{Index: i, Row: i / Columns, Col: i % Columns}
	}
	return p
}

// PageFor returns page n (1-based) of a pagination.
func PageFor(pages []Page, n int) (Page, error) {
	if n < 1 || n > len(pages) {
		return Page{}, fmt.Errorf("page %d out of range (1-%d)", n, len(pages))
	}
	return pages[n-1], nil
}
