package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 4, 1, 10, 30, 0, 0, time.UTC)

func testEntry() Entry {
	return Entry{
		Timestamp: testTime,
		Actor:     "office",
		Action:    ActionMigrationCommitted,
		Details:   "students=120 pending_due=45000.00 advance=3000.00",
		Ref:       "5f0c6a9e-8d1b-4c55-9a0e-3b2f8e7d1c44",
	}
}

func TestAppend_NewFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, testEntry()))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "office", entries[0].Actor)
}

func TestAppend_ExistingFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, testEntry()))

	e2 := testEntry()
	e2.Action = ActionBillGenerated
	e2.Ref = "2025-04-001"
	require.NoError(t, Append(dir, e2))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionMigrationCommitted, entries[0].Action)
	assert.Equal(t, ActionBillGenerated, entries[1].Action)

	data, err := os.ReadFile(Path(dir))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), Header), "header written once")
}

func TestRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	original := testEntry()
	require.NoError(t, Append(dir, original))

	entries, err := Read(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.True(t, original.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, original.Actor, got.Actor)
	assert.Equal(t, original.Action, got.Action)
	assert.Equal(t, original.Details, got.Details)
	assert.Equal(t, original.Ref, got.Ref)
}

func TestRead_NotFound(t *testing.T) {
	entries, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestRead_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", "audit-log.csv"), []byte(Header+"\n"), 0o644))

	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Nil(t, entries)
}

func TestUnmarshalEntry_BadFieldCount(t *testing.T) {
	_, err := UnmarshalEntry([]string{"one", "two"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected 5 fields")
}

func TestTimestampFormat(t *testing.T) {
	e := testEntry()
	e.Timestamp = time.Date(2025, 4, 1, 16, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	row := MarshalEntry(e)
	assert.Equal(t, "2025-04-01T10:30:00Z", row[0])
}

func TestFilter(t *testing.T) {
	a := testEntry()
	b := testEntry()
	b.Action = ActionPaymentRecorded
	c := testEntry()
	c.Action = ActionPaymentRecorded
	c.Ref = "2025-04-001b"

	got := Filter([]Entry{a, b, c}, ActionPaymentRecorded)
	require.Len(t, got, 2)
	assert.Equal(t, "2025-04-001b", got[1].Ref)
	assert.Empty(t, Filter([]Entry{a}, ActionMonthClosed))
}

func TestAppend_EmptyFileGetsHeader(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Dir(Path(dir)), 0o755))
	require.NoError(t, os.WriteFile(Path(dir), nil, 0o644))

	require.NoError(t, Append(dir, testEntry()))
	entries, err := Read(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadEntries_BadHeader(t *testing.T) {
	_, err := ReadEntries(strings.NewReader("when,who,what,why,ref\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected audit log header")

	_, err = ReadEntries(strings.NewReader(Header + "\nyesterday,office,bill.generated,,2025-04-001\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}

func TestParseAction(t *testing.T) {
	a, err := ParseAction(" Bill.Generated ")
	require.NoError(t, err)
	assert.Equal(t, ActionBillGenerated, a)

	_, err = ParseAction("bill.deleted")
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	bill := testEntry()
	bill.Action = ActionBillGenerated
	bill.Ref = "2025-04-001"
	pay := testEntry()
	pay.Action = ActionPaymentRecorded
	pay.Ref = "2025-04-001a"
	pay.Timestamp = testTime.Add(time.Hour)
	other := testEntry()
	other.Action = ActionBillGenerated
	other.Ref = "2025-04-0012"
	other.Actor = "clerk"
	other.Timestamp = testTime.Add(2 * time.Hour)
	all := []Entry{testEntry(), bill, pay, other}

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"everything", Query{}, []string{"5f0c6a9e-8d1b-4c55-9a0e-3b2f8e7d1c44", "2025-04-001", "2025-04-001a", "2025-04-0012"}},
		{"bill and its payments", Query{Ref: "2025-04-001"}, []string{"2025-04-001", "2025-04-001a"}},
		{"by action", Query{Actions: []Action{ActionBillGenerated}}, []string{"2025-04-001", "2025-04-0012"}},
		{"by actor", Query{Actor: "CLERK"}, []string{"2025-04-0012"}},
		{"since", Query{Since: testTime.Add(time.Hour)}, []string{"2025-04-001a", "2025-04-0012"}},
		{"last", Query{Last: 1}, []string{"2025-04-0012"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var refs []string
			for _, e := range Select(all, tt.q) {
				refs = append(refs, e.Ref)
			}
			assert.Equal(t, tt.want, refs)
		})
	}
}
