package migration

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/feeledger-dev/feeledger/internal/id"
	"github.com/feeledger-dev/feeledger/internal/model"
	"github.com/feeledger-dev/feeledger/internal/money"
	"github.com/feeledger-dev/feeledger/internal/sheet"
)

// RosterChecker answers membership questions about a roster snapshot.
// Arguments are in canonical form.
type RosterChecker interface {
	HasClass(class string) bool
	HasSection(section string) bool
	ClassHasSection(class, section string) bool
	HasRoll(roll string) bool
	HasStudent(class, section, roll string) bool
	// Ambiguous lists the student ids sharing a key, or nil if it is unique.
	Ambiguous(class, section, roll string) []string
}

// Validate canonicalizes and checks every row against the roster. Each row
// is checked on its own, then a second pass flags every row whose
// class|section|roll occurs more than once.
func Validate(rows []model.ImportRow, roster RosterChecker) []model.ValidatedRow {
	out := make([]model.ValidatedRow, len(rows))
	for i, r := range rows {
		out[i] = validateRow(r, roster)
	}
	flagDuplicates(out)
	return out
}

func validateRow(r model.ImportRow, roster RosterChecker) model.ValidatedRow {
	v := model.ValidatedRow{
		ImportRow: r,
		Class:     id.CanonicalClass(r.Class),
		Section:   id.CanonicalSection(r.Section),
		Roll:      id.CanonicalRoll(r.Roll),
	}

	classOK := false
	switch {
	case v.Class == "":
		v.Errors = append(v.Errors, "Class is required")
	case !roster.HasClass(v.Class):
		v.Errors = append(v.Errors, fmt.Sprintf("Class %q not found", r.Class))
	default:
		classOK = true
	}

	sectionOK := false
	switch {
	case v.Section == "":
		v.Errors = append(v.Errors, "Section is required")
	case classOK && !roster.ClassHasSection(v.Class, v.Section):
		v.Errors = append(v.Errors, fmt.Sprintf("Section %q not found in class %s", r.Section, v.Class))
	case !classOK && !roster.HasSection(v.Section):
		v.Errors = append(v.Errors, fmt.Sprintf("Section %q not found", r.Section))
	default:
		sectionOK = true
	}

	rollOK := false
	switch {
	case v.Roll == "":
		v.Errors = append(v.Errors, "Roll No is required")
	case !roster.HasRoll(v.Roll):
		v.Errors = append(v.Errors, fmt.Sprintf("Roll No %q not found", r.Roll))
	default:
		rollOK = true
	}

	if classOK && sectionOK && rollOK {
		if !roster.HasStudent(v.Class, v.Section, v.Roll) {
			v.Errors = append(v.Errors, fmt.Sprintf("No student with roll %s in class %s section %s", v.Roll, v.Class, v.Section))
		} else if ids := roster.Ambiguous(v.Class, v.Section, v.Roll); len(ids) > 0 {
			v.Errors = append(v.Errors, fmt.Sprintf("Ambiguous roster match: class %s section %s roll %s is shared by students %s",
				v.Class, v.Section, v.Roll, strings.Join(ids, ", ")))
		}
	}

	v.CurrentMonthTotal = amount(&v, sheet.ColCurrentMonthTotal, r.CurrentMonthTotal)
	v.PendingDue = amount(&v, sheet.ColPendingDue, r.PendingDue)
	v.Advance = amount(&v, sheet.ColAdvance, r.Advance)

	return v
}

func amount(v *model.ValidatedRow, column, raw string) decimal.Decimal {
	d, err := money.ParseString(raw)
	if err == nil {
		return d
	}
	var msg string
	switch {
	case errors.Is(err, money.ErrRequired):
		msg = column + " is required"
	case errors.Is(err, money.ErrNegative):
		msg = fmt.Sprintf("%s must not be negative (%s)", column, raw)
	case errors.Is(err, money.ErrPrecision):
		msg = fmt.Sprintf("%s has more than 2 decimal places (%s)", column, raw)
	default:
		msg = fmt.Sprintf("%s is not a valid amount (%s)", column, raw)
	}
	v.Errors = append(v.Errors, msg)
	return decimal.Zero
}

func flagDuplicates(rows []model.ValidatedRow) {
	occurrences := make(map[string][]int)
	for i, r := range rows {
		if r.Class == "" || r.Section == "" || r.Roll == "" {
			continue
		}
		occurrences[r.Key()] = append(occurrences[r.Key()], i)
	}
	for _, idxs := range occurrences {
		if len(idxs) < 2 {
			continue
		}
		sheetRows := make([]string, len(idxs))
		for j, i := range idxs {
			sheetRows[j] = strconv.Itoa(rows[i].Row)
		}
		for _, i := range idxs {
			r := &rows[i]
			r.Errors = append(r.Errors, fmt.Sprintf("Duplicate entry for class %s section %s roll %s (rows %s)",
				r.Class, r.Section, r.Roll, strings.Join(sheetRows, ", ")))
		}
	}
}

// Partition splits rows into valid and invalid sets, preserving order.
func Partition(rows []model.ValidatedRow) (valid, invalid []model.ValidatedRow) {
	for _, r := range rows {
		if r.IsValid() {
			valid = append(valid, r)
		} else {
			invalid = append(invalid, r)
		}
	}
	return valid, invalid
}

// RowErrors renders invalid rows as "row N: msg; msg", ordered by sheet row.
func RowErrors(rows []model.ValidatedRow) []string {
	sorted := make([]model.ValidatedRow, 0, len(rows))
	for _, r := range rows {
		if !r.IsValid() {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Row < sorted[j].Row })

	lines := make([]string, len(sorted))
	for i, r := range sorted {
		lines[i] = fmt.Sprintf("row %d: %s", r.Row, strings.Join(r.Errors, "; "))
	}
	return lines
}
