package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/feeledger-dev/feeledger/internal/id"
	"github.com/feeledger-dev/feeledger/internal/model"
)

// Lookup returns the fees defined for a class and section, in definition order.
type Lookup interface {
	Fees(class, section string) []model.FeeItem
}

// StructureRow is one line of fees/fee-structure.csv. An empty Section
// applies to every section of the class.
type StructureRow struct {
	Class   string
	Section string
	Fee     model.FeeCategory
	Amount  decimal.Decimal
}

// Structure is an in-memory fee structure.
type Structure struct {
	rows []StructureRow
}

// NewStructure creates a Structure from rows, canonicalizing class and section.
func NewStructure(rows []StructureRow) *Structure {
	s := &Structure{rows: make([]StructureRow, len(rows))}
	for i, r := range rows {
		r.Class = id.CanonicalClass(r.Class)
		r.Section = id.CanonicalSection(r.Section)
		r.Fee = model.FeeCategory(strings.ToLower(strings.TrimSpace(string(r.Fee))))
		s.rows[i] = r
	}
	return s
}

// Rows returns the structure's rows.
func (s *Structure) Rows() []StructureRow {
	return s.rows
}

// Fees implements Lookup. Section-specific rows override class-wide rows
// for the same fee; order follows first definition.
func (s *Structure) Fees(class, section string) []model.FeeItem {
	class = id.CanonicalClass(class)
	section = id.CanonicalSection(section)

	var order []model.FeeCategory
	amounts := make(map[model.FeeCategory]decimal.Decimal)
	specific := make(map[model.FeeCategory]bool)
	for _, r := range s.rows {
		if r.Class != class || (r.Section != "" && r.Section != section) {
			continue
		}
		if _, seen := amounts[r.Fee]; !seen {
			order = append(order, r.Fee)
		}
		if r.Section == "" && specific[r.Fee] {
			continue
		}
		amounts[r.Fee] = r.Amount
		if r.Section != "" {
			specific[r.Fee] = true
		}
	}

	items := make([]model.FeeItem, len(order))
	for i, name := range order {
		items[i] = model.FeeItem{Name: name, Amount: amounts[name]}
	}
	return items
}

const (
	structFields = 4
	colSClass    = 0
	colSSection  = 1
	colSFee      = 2
	colSAmount   = 3
)

// StructurePath returns fees/fee-structure.csv under a ledger root.
func StructurePath(root string) string {
	return filepath.Join(root, "fees", "fee-structure.csv")
}

// ReadStructure reads a fee-structure CSV. Amounts are parsed but not
// range-checked here; bill computation rejects corrupt values.
func ReadStructure(r io.Reader) (*Structure, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = structFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading fee structure CSV: %w", err)
	}
	if len(records) == 0 {
		return NewStructure(nil), nil
	}

	var rows []StructureRow
	for i, rec := range records[1:] {
		amount, err := decimal.NewFromString(strings.TrimSpace(rec[colSAmount]))
		if err != nil {
			return nil, fmt.Errorf("row %d: parsing amount %q: %w", i+2, rec[colSAmount], err)
		}
		if strings.TrimSpace(rec[colSClass]) == "" || strings.TrimSpace(rec[colSFee]) == "" {
			return nil, fmt.Errorf("row %d: class and fee_name are required", i+2)
		}
		rows = append(rows, StructureRow{
			Class:   rec[colSClass],
			Section: rec[colSSection],
			Fee:     model.FeeCategory(rec[colSFee]),
			Amount:  amount,
		})
	}
	return NewStructure(rows), nil
}

// WriteStructure writes a fee-structure CSV.
func WriteStructure(w io.Writer, s *Structure) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"class", "section", "fee_name", "amount"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range s.rows {
		if err := cw.Write([]string{r.Class, r.Section, string(r.Fee), r.Amount.StringFixed(2)}); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// LoadStructure reads fees/fee-structure.csv under root.
func LoadStructure(root string) (*Structure, error) {
	f, err := os.Open(StructurePath(root))
	if err != nil {
		return nil, fmt.Errorf("opening fee structure: %w", err)
	}
	defer f.Close()
	return ReadStructure(f)
}
