package ledger

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/feeledger-dev/feeledger/internal/id"
	"github.com/feeledger-dev/feeledger/internal/migration"
	"github.com/feeledger-dev/feeledger/internal/model"
)

const (
	billsFile    = "bills.csv"
	paymentsFile = "payments.csv"
	closedFile   = "closed"
)

// Book is the monthly fee ledger rooted at a directory. Bills and payments
// live in append-only YYYY/MM/*.csv files; balances are replayed from them.
type Book struct {
	root string
	fees Lookup
	log  *zap.Logger
	now  func() time.Time

	mu sync.Mutex
}

// NewBook creates a Book. A nil logger discards output.
func NewBook(root string, fees Lookup, log *zap.Logger) *Book {
	if log == nil {
		log = zap.NewNop()
	}
	return &Book{root: root, fees: fees, log: log, now: time.Now}
}

// Months returns every month with ledger files, ascending.
func (b *Book) Months() ([]string, error) {
	years, err := os.ReadDir(b.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger root: %w", err)
	}

	var months []string
	for _, y := range years {
		if !y.IsDir() || len(y.Name()) != 4 {
			continue
		}
		entries, err := os.ReadDir(filepath.Join(b.root, y.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", y.Name(), err)
		}
		for _, m := range entries {
			if !m.IsDir() || len(m.Name()) != 2 {
				continue
			}
			key := y.Name() + "-" + m.Name()
			if _, _, err := id.ParseMonth(key); err != nil {
				continue
			}
			months = append(months, key)
		}
	}
	sort.Strings(months)
	return months, nil
}

// ReadBills reads the bills generated for a month.
func (b *Book) ReadBills(month string) ([]model.Bill, error) {
	path, err := b.monthPath(month, billsFile)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening bills %s: %w", path, err)
	}
	defer f.Close()

	bills, err := ReadBills(f)
	if err != nil {
		return nil, fmt.Errorf("reading bills %s: %w", path, err)
	}
	return bills, nil
}

// ReadPayments reads the payments recorded against a month's bills.
func (b *Book) ReadPayments(month string) ([]model.PaymentRecord, error) {
	path, err := b.monthPath(month, paymentsFile)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening payments %s: %w", path, err)
	}
	defer f.Close()

	payments, err := ReadPayments(f)
	if err != nil {
		return nil, fmt.Errorf("reading payments %s: %w", path, err)
	}
	return payments, nil
}

// Balances returns every student's current balance.
func (b *Book) Balances() (map[string]model.Balance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h, err := b.load()
	if err != nil {
		return nil, err
	}
	return h.balances(), nil
}

// Balance returns one student's current balance. A student with no history
// has a zero balance.
func (b *Book) Balance(studentID string) (model.Balance, error) {
	all, err := b.Balances()
	if err != nil {
		return model.Balance{}, err
	}
	if bal, ok := all[studentID]; ok {
		return bal, nil
	}
	return model.Balance{StudentID: studentID, Advance: decimal.Zero, Due: decimal.Zero}, nil
}

// IsClosed reports whether a month has been closed.
func (b *Book) IsClosed(month string) (bool, error) {
	path, err := b.monthPath(month, closedFile)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
	return true, nil
}

// CloseMonth marks a month closed. Closed months accept no new bills.
func (b *Book) CloseMonth(month string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	path, err := b.monthPath(month, closedFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating month dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrMonthClosed, month)
	}
	if err != nil {
		return fmt.Errorf("creating close marker: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, b.now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("writing close marker: %w", err)
	}
	b.log.Info("month closed", zap.String("month", month))
	return nil
}

// GenerateBill bills one student for a month.
func (b *Book) GenerateBill(student model.StudentRecord, month string, include Inclusion) (model.Bill, error) {
	if !student.Active() {
		return model.Bill{}, fmt.Errorf("%w: %s", ErrStudentLeft, student.ID)
	}
	bills, skipped, err := b.GenerateBills([]model.StudentRecord{student}, month, include)
	if err != nil {
		return model.Bill{}, err
	}
	if len(skipped) > 0 {
		return model.Bill{}, skipped[0]
	}
	return bills[0], nil
}

// GenerateBills bills every given student for a month. Students who left
// are ignored. Students who already hold a bill for this month or a later
// one, including a repeat of a student earlier in the same list, are
// reported in skipped and the rest are still billed. Bills are appended to
// the month's bills.csv in input order.
func (b *Book) GenerateBills(students []model.StudentRecord, month string, include Inclusion) (bills []model.Bill, skipped []error, err error) {
	year, mon, err := id.ParseMonth(month)
	if err != nil {
		return nil, nil, err
	}
	month = fmt.Sprintf("%04d-%02d", year, mon)

	b.mu.Lock()
	defer b.mu.Unlock()

	closed, err := b.IsClosed(month)
	if err != nil {
		return nil, nil, err
	}
	if closed {
		return nil, nil, fmt.Errorf("%w: %s", ErrMonthClosed, month)
	}

	h, err := b.load()
	if err != nil {
		return nil, nil, err
	}
	balances := h.balances()

	seq := nextSeq(h.bills[month])
	created := b.now().UTC().Truncate(time.Second)

	billed := make(map[string]bool, len(students))
	for _, st := range students {
		if !st.Active() {
			continue
		}
		if billed[st.ID] {
			skipped = append(skipped, fmt.Errorf("%w: %s %s", ErrBillExists, st.ID, month))
			continue
		}
		switch latest := h.latestMonth(st.ID); {
		case latest == month:
			skipped = append(skipped, fmt.Errorf("%w: %s %s", ErrBillExists, st.ID, month))
			continue
		case latest > month:
			skipped = append(skipped, fmt.Errorf("%w: %s billed for %s", ErrBillOutOfOrder, st.ID, latest))
			continue
		}

		bal, ok := balances[st.ID]
		if !ok {
			bal = model.Balance{StudentID: st.ID, Advance: decimal.Zero, Due: decimal.Zero}
		}
		bill, err := ComputeBill(st, month, b.fees, include, bal)
		if err != nil {
			return nil, skipped, fmt.Errorf("billing %s: %w", st.ID, err)
		}
		bill.ID = id.FormatBillID(year, mon, seq)
		bill.CreatedAt = created
		seq++
		billed[st.ID] = true
		bills = append(bills, bill)
	}

	if len(bills) == 0 {
		return nil, skipped, nil
	}

	rows := make([][]string, len(bills))
	for i, bill := range bills {
		rows[i] = MarshalBill(bill)
	}
	path, _ := b.monthPath(month, billsFile)
	if err := appendFile(path, BillsHeader, rows); err != nil {
		return nil, skipped, fmt.Errorf("appending bills: %w", err)
	}

	b.log.Info("bills generated",
		zap.String("month", month),
		zap.Int("generated", len(bills)),
		zap.Int("skipped", len(skipped)))
	return bills, skipped, nil
}

// FindBill returns the bill with the given ID.
func (b *Book) FindBill(billID string) (model.Bill, error) {
	month, err := id.MonthOfBill(billID)
	if err != nil {
		return model.Bill{}, fmt.Errorf("%w: %s", ErrBillNotFound, billID)
	}
	bills, err := b.ReadBills(month)
	if err != nil {
		return model.Bill{}, err
	}
	for _, bill := range bills {
		if bill.ID == billID {
			return bill, nil
		}
	}
	return model.Bill{}, fmt.Errorf("%w: %s", ErrBillNotFound, billID)
}

// PaymentsFor returns the payments recorded against a bill.
func (b *Book) PaymentsFor(billID string) ([]model.PaymentRecord, error) {
	month, err := id.MonthOfBill(billID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBillNotFound, billID)
	}
	payments, err := b.ReadPayments(month)
	if err != nil {
		return nil, err
	}
	var out []model.PaymentRecord
	for _, p := range payments {
		if p.BillID == billID {
			out = append(out, p)
		}
	}
	return out, nil
}

// PaymentParams holds parameters for recording a payment.
type PaymentParams struct {
	BillID    string
	Amount    decimal.Decimal
	Mode      model.PaymentMode
	Date      time.Time // zero means today
	Reference string    // empty gets a generated reference
}

// RecordPayment records a payment against the student's latest bill.
func (b *Book) RecordPayment(params PaymentParams) (model.PaymentRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h, err := b.load()
	if err != nil {
		return model.PaymentRecord{}, err
	}

	bill, ok := h.findBill(params.BillID)
	if !ok {
		return model.PaymentRecord{}, fmt.Errorf("%w: %s", ErrBillNotFound, params.BillID)
	}
	if latest := h.latestMonth(bill.StudentID); latest > bill.Month {
		return model.PaymentRecord{}, fmt.Errorf("%w: %s was carried into the %s bill", ErrSupersededBill, bill.ID, latest)
	}

	prior := h.paymentsFor(bill.ID)
	paid := decimal.Zero
	for _, p := range prior {
		paid = paid.Add(p.Amount)
	}
	bal := h.balances()[bill.StudentID]

	rec, newAdvance, err := ApplyPayment(bill, paid, params.Amount, bal.Advance)
	if err != nil {
		return model.PaymentRecord{}, err
	}

	mode := params.Mode
	if mode == "" {
		mode = model.PaymentCash
	}
	date := params.Date
	if date.IsZero() {
		date = b.now()
	}
	ref := strings.TrimSpace(params.Reference)
	if ref == "" {
		ref = uuid.NewString()
	}

	rec.ID = id.FormatPaymentID(bill.ID, len(prior))
	rec.Mode = mode
	rec.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rec.Reference = ref

	path, _ := b.monthPath(bill.Month, paymentsFile)
	if err := appendFile(path, PaymentsHeader, [][]string{MarshalPayment(rec)}); err != nil {
		return model.PaymentRecord{}, fmt.Errorf("appending payment: %w", err)
	}

	b.log.Info("payment recorded",
		zap.String("payment", rec.ID),
		zap.String("student", rec.StudentID),
		zap.String("amount", rec.Amount.StringFixed(2)),
		zap.String("remaining", rec.Remaining.StringFixed(2)),
		zap.String("advance", newAdvance.StringFixed(2)))
	return rec, nil
}

// load reads openings and every month's bills and payments. Callers hold mu.
func (b *Book) load() (*history, error) {
	openings, err := migration.LoadOpenings(b.root)
	if err != nil {
		return nil, err
	}
	months, err := b.Months()
	if err != nil {
		return nil, err
	}

	var bills []model.Bill
	var payments []model.PaymentRecord
	for _, m := range months {
		mb, err := b.ReadBills(m)
		if err != nil {
			return nil, err
		}
		mp, err := b.ReadPayments(m)
		if err != nil {
			return nil, err
		}
		bills = append(bills, mb...)
		payments = append(payments, mp...)
	}
	return newHistory(openings, bills, payments), nil
}

func (b *Book) monthPath(month, name string) (string, error) {
	year, mon, err := id.ParseMonth(month)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, fmt.Sprintf("%04d", year), fmt.Sprintf("%02d", mon), name), nil
}

func nextSeq(bills []model.Bill) int {
	maxSeq := 0
	for _, bill := range bills {
		_, _, seq, err := id.ParseBillID(bill.ID)
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq + 1
}

// appendFile appends rows to path, creating the directory and header if new.
func appendFile(path, header string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if isNew {
		if _, err := fmt.Fprintln(f, header); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	return appendRows(f, rows)
}
