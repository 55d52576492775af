// Package auditlog keeps the ledger's append-only event trail in
// logs/audit-log.csv: who migrated, billed, collected or closed what, and when.
package auditlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/feeledger-dev/feeledger/internal/id"
)

// Action names a ledger event.
type Action string

const (
	ActionMigrationValidated Action = "migration.validated"
	ActionMigrationCommitted Action = "migration.committed"
	ActionBillGenerated      Action = "bill.generated"
	ActionPaymentRecorded    Action = "payment.recorded"
	ActionMonthClosed        Action = "month.closed"
)

// Actions lists every action in pipeline order.
var Actions = []Action{
	ActionMigrationValidated,
	ActionMigrationCommitted,
	ActionBillGenerated,
	ActionPaymentRecorded,
	ActionMonthClosed,
}

// ParseAction accepts an action name such as "bill.generated".
func ParseAction(s string) (Action, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown audit action %q", s)
}

// Entry is one audited event.
type Entry struct {
	Timestamp time.Time
	Actor     string
	Action    Action
	Details   string // space-separated key=value pairs
	Ref       string // report id, bill id, payment id or month
}

// Header is the first line of audit-log.csv.
const Header = "timestamp,actor,action,details,ref"

// Path returns the audit log under a ledger root.
func Path(root string) string {
	return filepath.Join(root, "logs", "audit-log.csv")
}

const (
	numFields    = 5
	colTimestamp = 0
	colActor     = 1
	colAction    = 2
	colDetails   = 3
	colRef       = 4
)

// MarshalEntry converts an Entry to a CSV row. Timestamps are stored in UTC.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colActor] = e.Actor
	row[colAction] = string(e.Action)
	row[colDetails] = e.Details
	row[colRef] = e.Ref
	return row
}

// UnmarshalEntry converts a CSV row to an Entry. Unknown actions are kept
// as-is so a newer binary's log stays readable.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	return Entry{
		Timestamp: ts,
		Actor:     record[colActor],
		Action:    Action(record[colAction]),
		Details:   record[colDetails],
		Ref:       record[colRef],
	}, nil
}

// Append adds entries to the audit log. The header goes in whenever the
// file is empty, including a file left empty by an interrupted first write.
func Append(root string, entries ...Entry) error {
	path := Path(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("checking audit log: %w", err)
	}

	cw := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for _, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing %s entry: %w", e.Action, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns every entry in log order. A missing log has no entries.
func Read(root string) ([]Entry, error) {
	f, err := os.Open(Path(root))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()
	return ReadEntries(f)
}

// ReadEntries streams entries from r, checking the header first.
func ReadEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading audit log header: %w", err)
	}
	if got := strings.Join(header, ","); got != Header {
		return nil, fmt.Errorf("unexpected audit log header %q", got)
	}

	var entries []Entry
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		entries = append(entries, e)
	}
}

// Query selects entries. Zero fields match everything.
type Query struct {
	Actions []Action
	// Ref matches an entry's ref exactly. A bill id also matches the
	// payments recorded against it.
	Ref string
	Actor string
	Since time.Time
	// Last keeps only the most recent matches.
	Last int
}

// Match reports whether e satisfies q.
func (q Query) Match(e Entry) bool {
	if len(q.Actions) > 0 && !hasAction(q.Actions, e.Action) {
		return false
	}
	if q.Ref != "" && e.Ref != q.Ref && !paymentOf(e.Ref, q.Ref) {
		return false
	}
	if q.Actor != "" && !strings.EqualFold(e.Actor, q.Actor) {
		return false
	}
	if !q.Since.IsZero() && e.Timestamp.Before(q.Since) {
		return false
	}
	return true
}

// Select returns the entries matching q, in log order.
func Select(entries []Entry, q Query) []Entry {
	var out []Entry
	for _, e := range entries {
		if q.Match(e) {
			out = append(out, e)
		}
	}
	if q.Last > 0 && len(out) > q.Last {
		out = out[len(out)-q.Last:]
	}
	return out
}

// Filter returns the entries with the given action, in log order.
func Filter(entries []Entry, action Action) []Entry {
	return Select(entries, Query{Actions: []Action{action}})
}

func hasAction(actions []Action, a Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

func paymentOf(ref, billID string) bool {
	return len(ref) > len(billID) && strings.HasPrefix(ref, billID) && id.BillGroup(ref) == billID
}
