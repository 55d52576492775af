package sheet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/feeledger-dev/feeledger/internal/model"
)

// Logical column names, in the order they are reported when missing.
const (
	ColClass             = "Class"
	ColSection           = "Section"
	ColRollNo            = "Roll No"
	ColCurrentMonthTotal = "Current Month Total"
	ColPendingDue        = "Pending Due"
	ColAdvance           = "Advance"
)

// RequiredColumns are the headers an opening-balance sheet must carry.
var RequiredColumns = []string{
	ColClass,
	ColSection,
	ColRollNo,
	ColCurrentMonthTotal,
	ColPendingDue,
	ColAdvance,
}

// ErrMissingColumns is the precondition failure for a sheet that lacks a
// required header.
var ErrMissingColumns = errors.New("missing required columns")

// MissingColumnsError lists the logical columns that matched no header.
type MissingColumnsError struct {
	Missing []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingColumns, strings.Join(e.Missing, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// HeaderKey folds header text for matching: compatibility-normalized,
// letters and digits only, lower-cased. "Roll_No", "ROLL NO" and "roll no"
// all become "rollno".
func HeaderKey(header string) string {
	var b strings.Builder
	for _, r := range norm.NFKC.String(header) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// MapColumns resolves each required logical column to a physical column
// index. The first matching header wins.
func MapColumns(header []any) (map[string]int, error) {
	byKey := make(map[string]int, len(header))
	for i, h := range header {
		k := HeaderKey(CellString(h))
		if _, seen := byKey[k]; k != "" && !seen {
			byKey[k] = i
		}
	}

	cols := make(map[string]int, len(RequiredColumns))
	var missing []string
	for _, name := range RequiredColumns {
		i, ok := byKey[HeaderKey(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = i
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}
	return cols, nil
}

// Normalize maps data rows to ImportRows using the header to locate columns.
// A missing required column rejects the whole sheet. Blank rows are skipped
// but still count towards row numbering, which follows the physical sheet
// (header is row 1, first data row is row 2).
func Normalize(header []any, rows [][]any) ([]model.ImportRow, error) {
	cols, err := MapColumns(header)
	if err != nil {
		return nil, err
	}

	var out []model.ImportRow
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		out = append(out, model.ImportRow{
			Row:               i + 2,
			Class:             cell(row, cols[ColClass]),
			Section:           cell(row, cols[ColSection]),
			Roll:              cell(row, cols[ColRollNo]),
			CurrentMonthTotal: cell(row, cols[ColCurrentMonthTotal]),
			PendingDue:        cell(row, cols[ColPendingDue]),
			Advance:           cell(row, cols[ColAdvance]),
		})
	}
	return out, nil
}

// NormalizeTable is Normalize over a decoded Table.
func NormalizeTable(t *Table) ([]model.ImportRow, error) {
	return Normalize(t.Header, t.Rows)
}

// CellString renders a spreadsheet cell as text. Numbers are written
// without exponent or trailing zeros.
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func cell(row []any, i int) string {
	if i >= len(row) {
		return ""
	}
	return CellString(row[i])
}

func isBlank(row []any) bool {
	for _, v := range row {
		if CellString(v) != "" {
			return false
		}
	}
	return true
}
