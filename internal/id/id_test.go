package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalRoll(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"12", "12"},
		{"012", "12"},
		{" 0012 ", "12"},
		{"12.0", "12"},
		{"12.00", "12"},
		{"0", "0"},
		{"000", "0"},
		{"12.5", "12.5"},
		{"a12", "A12"},
		{"r-7", "R-7"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalRoll(tt.input), "CanonicalRoll(%q)", tt.input)
	}
}

func TestCanonicalClassAndSection(t *testing.T) {
	assert.Equal(t, "LKG", CanonicalClass("lkg"))
	assert.Equal(t, "5", CanonicalClass("05"))
	assert.Equal(t, "NURSERY", CanonicalClass(" Nursery "))
	assert.Equal(t, "A", CanonicalSection("a"))
	assert.Equal(t, "ROSE", CanonicalSection(" Rose"))
}

func TestCompositeKey(t *testing.T) {
	assert.Equal(t, "3|A|12", CompositeKey("3", "A", "12"))
	assert.Equal(t,
		CompositeKey(CanonicalClass("3"), CanonicalSection("a"), CanonicalRoll("012")),
		CompositeKey("3", "A", "12"))
}

func TestParseMonth(t *testing.T) {
	year, month, err := ParseMonth("2025-04")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 4, month)

	for _, bad := range []string{"", "2025-13", "April", "2025/04"} {
		_, _, err := ParseMonth(bad)
		assert.Error(t, err, "expected error for %q", bad)
	}
}

func TestFormatBillID(t *testing.T) {
	tests := []struct {
		year, month, seq int
		want             string
	}{
		{2025, 1, 1, "2025-01-001"},
		{2025, 12, 99, "2025-12-099"},
		{2025, 4, 123, "2025-04-123"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBillID(tt.year, tt.month, tt.seq))
	}
}

func TestFormatPaymentID(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "2025-04-001a"},
		{1, "2025-04-001b"},
		{25, "2025-04-001z"},
		{26, "2025-04-001aa"},
		{27, "2025-04-001ab"},
	}
	for _, tt := range tests {
		got := FormatPaymentID("2025-04-001", tt.n)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, "2025-04-001", BillGroup(got))
	}
}

func TestParseBillID(t *testing.T) {
	tests := []struct {
		input               string
		wantYear, wantMonth int
		wantSeq             int
	}{
		{"2025-01-001", 2025, 1, 1},
		{"2025-12-099", 2025, 12, 99},
		{"2025-04-001a", 2025, 4, 1},
		{"2025-04-001ab", 2025, 4, 1},
	}
	for _, tt := range tests {
		year, month, seq, err := ParseBillID(tt.input)
		require.NoError(t, err, "input: %s", tt.input)
		assert.Equal(t, tt.wantYear, year)
		assert.Equal(t, tt.wantMonth, month)
		assert.Equal(t, tt.wantSeq, seq)
	}
}

func TestParseBillID_Errors(t *testing.T) {
	for _, input := range []string{"", "not-valid", "2025-04", "xxxx-01-001", "2025-13-001"} {
		_, _, _, err := ParseBillID(input)
		assert.Error(t, err, "expected error for input: %s", input)
	}
}

func TestMonthOfBill(t *testing.T) {
	m, err := MonthOfBill("2025-04-007c")
	require.NoError(t, err)
	assert.Equal(t, "2025-04", m)
}
