// Package money turns spreadsheet and form input into exact, non-negative
// two-decimal amounts.
package money

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrRequired   = errors.New("amount is required")
	ErrNotNumeric = errors.New("amount is not a number")
	ErrNegative   = errors.New("amount must not be negative")
	ErrPrecision  = errors.New("amount has more than 2 decimal places")
)

var hundred = decimal.NewFromInt(100)

// separators are the thousands separators accepted between digit groups:
// "1,25,000" (Indian), "1 250 000", "1'250'000" and "1_250_000".
const separators = ", '_\u00a0\u202f"

var grouping = strings.NewReplacer(",", "", " ", "", "\u00a0", "", "\u202f", "", "'", "", "_", "")

// A grouped number is a leading group of 1-3 digits, then groups of 2 or 3,
// ending in a group of 3.
var (
	plainNumber   = regexp.MustCompile(`^[+-]?(\d+(\.\d+)?|\.\d+)$`)
	groupedNumber = regexp.MustCompile(`^[+-]?\d{1,3}(?:[` + separators + `]\d{2,3})*[` + separators + `]\d{3}(\.\d+)?$`)
)

// Parse converts raw input into an amount. Strings may carry grouping
// separators; numbers may arrive as float64 or int from spreadsheet decoders.
// Empty input is ErrRequired, never zero.
func Parse(raw any) (decimal.Decimal, error) {
	var d decimal.Decimal
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, ErrRequired
	case decimal.Decimal:
		d = v
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return ParseString(s)
	case string:
		return ParseString(v)
	default:
		return ParseString(fmt.Sprint(v))
	}
	return check(d)
}

// ParseString is Parse for text input. Only plain decimal notation is
// accepted; separators must sit between digit groups and a number may use
// only one kind of separator.
func ParseString(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return decimal.Zero, ErrRequired
	}
	num := raw
	if !plainNumber.MatchString(num) {
		if !groupedNumber.MatchString(num) || separatorKinds(num) > 1 {
			return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
		}
		num = grouping.Replace(num)
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(num, "+"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}
	return check(d)
}

func separatorKinds(s string) int {
	seen := make(map[rune]bool)
	for _, r := range s {
		if strings.ContainsRune(separators, r) {
			seen[r] = true
		}
	}
	return len(seen)
}

// Optional is ParseString where empty input means zero.
func Optional(s string) (decimal.Decimal, error) {
	d, err := ParseString(s)
	if errors.Is(err, ErrRequired) {
		return decimal.Zero, nil
	}
	return d, err
}

func check(d decimal.Decimal) (decimal.Decimal, error) {
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNegative, d)
	}
	if !IsCents(d) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrPrecision, d)
	}
	return d, nil
}

// IsCents reports whether d has at most two decimal places.
func IsCents(d decimal.Decimal) bool {
	return d.Mul(hundred).Equal(d.Mul(hundred).Floor())
}

// Format renders an amount the way bills and CSV files store it.
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
