package migration

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/feeledger-dev/feeledger/internal/model"
	"github.com/feeledger-dev/feeledger/internal/money"
)

// OpeningsHeader is the CSV header for migration/openings.csv.
const OpeningsHeader = "student_id,class,section,roll,due,advance,current_month"

const (
	openingsFields = 7
	colOStudent    = 0
	colOClass      = 1
	colOSection    = 2
	colORoll       = 3
	colODue        = 4
	colOAdvance    = 5
	colOCurrent    = 6
)

// OpeningsPath returns migration/openings.csv under a ledger root.
func OpeningsPath(root string) string {
	return filepath.Join(root, "migration", "openings.csv")
}

// WriteOpenings writes opening balances (including header).
func WriteOpenings(w io.Writer, openings []model.OpeningBalance) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(OpeningsHeader, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, o := range openings {
		row := make([]string, openingsFields)
		row[colOStudent] = o.StudentID
		row[colOClass] = o.Class
		row[colOSection] = o.Section
		row[colORoll] = o.Roll
		row[colODue] = money.Format(o.Due)
		row[colOAdvance] = money.Format(o.Advance)
		row[colOCurrent] = money.Format(o.CurrentMonth)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// ReadOpenings reads opening balances written by WriteOpenings.
func ReadOpenings(r io.Reader) ([]model.OpeningBalance, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = openingsFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading openings CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var out []model.OpeningBalance
	for i, rec := range records[1:] {
		o := model.OpeningBalance{
			StudentID: rec[colOStudent],
			Class:     rec[colOClass],
			Section:   rec[colOSection],
			Roll:      rec[colORoll],
		}
		for _, f := range []struct {
			dst *decimal.Decimal
			col int
		}{{&o.Due, colODue}, {&o.Advance, colOAdvance}, {&o.CurrentMonth, colOCurrent}} {
			d, err := decimal.NewFromString(rec[f.col])
			if err != nil {
				return nil, fmt.Errorf("row %d: parsing amount %q: %w", i+2, rec[f.col], err)
			}
			*f.dst = d
		}
		out = append(out, o)
	}
	return out, nil
}

// LoadOpenings reads migration/openings.csv under root. A missing file means
// no migration has been committed and returns nil.
func LoadOpenings(root string) ([]model.OpeningBalance, error) {
	f, err := os.Open(OpeningsPath(root))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening openings: %w", err)
	}
	defer f.Close()
	return ReadOpenings(f)
}
