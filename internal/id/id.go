package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const monthFormat = "2006-01"

// CanonicalRoll returns the comparison form of a roll number. Numeric rolls
// lose leading zeros and any ".0" spreadsheet artefact ("012" -> "12",
// "12.0" -> "12"); anything else is trimmed and upper-cased.
func CanonicalRoll(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if n, ok := wholeNumber(s); ok {
		return n
	}
	return strings.ToUpper(s)
}

// CanonicalClass returns the comparison form of a class name ("lkg" -> "LKG",
// "05" -> "5").
func CanonicalClass(raw string) string {
	return CanonicalRoll(raw)
}

// CanonicalSection returns the comparison form of a section name.
func CanonicalSection(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// CompositeKey joins already-canonical class, section and roll into the
// key used for exact student matching.
func CompositeKey(class, section, roll string) string {
	return class + "|" + section + "|" + roll
}

func wholeNumber(s string) (string, bool) {
	digits := s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		if strings.Trim(s[i+1:], "0") != "" {
			return "", false
		}
		digits = s[:i]
	}
	if digits == "" {
		return "", false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return "0", true
	}
	return digits, true
}

// FormatMonth returns a month key like "2025-04".
func FormatMonth(t time.Time) string {
	return t.Format(monthFormat)
}

// ParseMonth parses "2025-04" into year and month.
func ParseMonth(s string) (year, month int, err error) {
	t, err := time.Parse(monthFormat, strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q (want YYYY-MM): %w", s, err)
	}
	return t.Year(), int(t.Month()), nil
}

// FormatBillID returns a bill ID like "2025-04-001".
func FormatBillID(year, month, seq int) string {
	return fmt.Sprintf("%04d-%02d-%03d", year, month, seq)
}

// FormatPaymentID returns a payment ID like "2025-04-001a" (payment 0='a', 1='b', etc.).
func FormatPaymentID(billID string, n int) string {
	if n < 26 {
		return billID + string(rune('a'+n))
	}
	return billID + string(rune('a'+n/26-1)) + string(rune('a'+n%26))
}

// ParseBillID parses "2025-04-001" into year, month, seq. A payment suffix is ignored.
func ParseBillID(id string) (year, month, seq int, err error) {
	base := BillGroup(id)

	parts := strings.SplitN(base, "-", 3)
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("invalid bill ID format: %q", id)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid year in bill ID %q: %w", id, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid month in bill ID %q: %w", id, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, 0, fmt.Errorf("invalid month in bill ID %q", id)
	}

	seq, err = strconv.Atoi(parts[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sequence in bill ID %q: %w", id, err)
	}

	return year, month, seq, nil
}

// BillGroup strips the payment suffix from a payment ID.
// "2025-04-001a" -> "2025-04-001"
func BillGroup(paymentID string) string {
	i := len(paymentID)
	for i > 0 && paymentID[i-1] >= 'a' && paymentID[i-1] <= 'z' {
		i--
	}
	return paymentID[:i]
}

// MonthOfBill returns the "YYYY-MM" prefix of a bill or payment ID.
func MonthOfBill(id string) (string, error) {
	year, month, _, err := ParseBillID(id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d-%02d", year, month), nil
}
