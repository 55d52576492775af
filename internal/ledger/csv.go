package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/feeledger-dev/feeledger/internal/model"
)

// BillsHeader is the CSV header for bills.csv.
const BillsHeader = "bill_id,student_id,name,class,section,roll,month,items,total,previous_due,advance_used,net_payable,created_at"

// PaymentsHeader is the CSV header for payments.csv.
const PaymentsHeader = "payment_id,bill_id,student_id,date,mode,amount,advance_created,remaining,reference"

const (
	dateFormat = "2006-01-02"

	billFields     = 13
	colBID         = 0
	colBStudent    = 1
	colBName       = 2
	colBClass      = 3
	colBSection    = 4
	colBRoll       = 5
	colBMonth      = 6
	colBItems      = 7
	colBTotal      = 8
	colBPrevDue    = 9
	colBAdvUsed    = 10
	colBNetPayable = 11
	colBCreated    = 12

	paymentFields = 9
	colPID        = 0
	colPBill      = 1
	colPStudent   = 2
	colPDate      = 3
	colPMode      = 4
	colPAmount    = 5
	colPAdvance   = 6
	colPRemaining = 7
	colPRef       = 8
)

// MarshalBill converts a Bill to a CSV row. Items are "name=amount" pairs
// separated by semicolons.
func MarshalBill(b model.Bill) []string {
	items := make([]string, len(b.Items))
	for i, it := range b.Items {
		items[i] = string(it.Name) + "=" + it.Amount.StringFixed(2)
	}

	row := make([]string, billFields)
	row[colBID] = b.ID
	row[colBStudent] = b.StudentID
	row[colBName] = b.Name
	row[colBClass] = b.Class
	row[colBSection] = b.Section
	row[colBRoll] = b.Roll
	row[colBMonth] = b.Month
	row[colBItems] = strings.Join(items, ";")
	row[colBTotal] = b.Summary.TotalAmount.StringFixed(2)
	row[colBPrevDue] = b.Summary.PreviousDue.StringFixed(2)
	row[colBAdvUsed] = b.Summary.AdvanceUsed.StringFixed(2)
	row[colBNetPayable] = b.Summary.NetPayable.StringFixed(2)
	row[colBCreated] = b.CreatedAt.UTC().Format(time.RFC3339)
	return row
}

// UnmarshalBill converts a CSV row to a Bill.
func UnmarshalBill(record []string) (model.Bill, error) {
	if len(record) != billFields {
		return model.Bill{}, fmt.Errorf("expected %d fields, got %d", billFields, len(record))
	}

	var items []model.FeeItem
	if record[colBItems] != "" {
		for _, pair := range strings.Split(record[colBItems], ";") {
			name, amt, ok := strings.Cut(pair, "=")
			if !ok {
				return model.Bill{}, fmt.Errorf("parsing item %q: missing '='", pair)
			}
			d, err := decimal.NewFromString(amt)
			if err != nil {
				return model.Bill{}, fmt.Errorf("parsing item %q: %w", pair, err)
			}
			items = append(items, model.FeeItem{Name: model.FeeCategory(name), Amount: d})
		}
	}

	amounts := make([]decimal.Decimal, 4)
	for i, col := range []int{colBTotal, colBPrevDue, colBAdvUsed, colBNetPayable} {
		d, err := decimal.NewFromString(record[col])
		if err != nil {
			return model.Bill{}, fmt.Errorf("parsing amount %q: %w", record[col], err)
		}
		amounts[i] = d
	}

	created, err := time.Parse(time.RFC3339, record[colBCreated])
	if err != nil {
		return model.Bill{}, fmt.Errorf("parsing created_at %q: %w", record[colBCreated], err)
	}

	return model.Bill{
		ID:        record[colBID],
		StudentID: record[colBStudent],
		Name:      record[colBName],
		Class:     record[colBClass],
		Section:   record[colBSection],
		Roll:      record[colBRoll],
		Month:     record[colBMonth],
		Items:     items,
		Summary: model.BillSummary{
			TotalAmount: amounts[0],
			PreviousDue: amounts[1],
			AdvanceUsed: amounts[2],
			NetPayable:  amounts[3],
		},
		CreatedAt: created,
	}, nil
}

// MarshalPayment converts a PaymentRecord to a CSV row.
func MarshalPayment(p model.PaymentRecord) []string {
	row := make([]string, paymentFields)
	row[colPID] = p.ID
	row[colPBill] = p.BillID
	row[colPStudent] = p.StudentID
	row[colPDate] = p.Date.Format(dateFormat)
	row[colPMode] = string(p.Mode)
	row[colPAmount] = p.Amount.StringFixed(2)
	row[colPAdvance] = p.AdvanceCreated.StringFixed(2)
	row[colPRemaining] = p.Remaining.StringFixed(2)
	row[colPRef] = p.Reference
	return row
}

// UnmarshalPayment converts a CSV row to a PaymentRecord.
func UnmarshalPayment(record []string) (model.PaymentRecord, error) {
	if len(record) != paymentFields {
		return model.PaymentRecord{}, fmt.Errorf("expected %d fields, got %d", paymentFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colPDate])
	if err != nil {
		return model.PaymentRecord{}, fmt.Errorf("parsing date %q: %w", record[colPDate], err)
	}

	amounts := make([]decimal.Decimal, 3)
	for i, col := range []int{colPAmount, colPAdvance, colPRemaining} {
		d, err := decimal.NewFromString(record[col])
		if err != nil {
			return model.PaymentRecord{}, fmt.Errorf("parsing amount %q: %w", record[col], err)
		}
		amounts[i] = d
	}

	return model.PaymentRecord{
		ID:             record[colPID],
		BillID:         record[colPBill],
		StudentID:      record[colPStudent],
		Date:           date,
		Mode:           model.PaymentMode(record[colPMode]),
		Amount:         amounts[0],
		AdvanceCreated: amounts[1],
		Remaining:      amounts[2],
		Reference:      record[colPRef],
	}, nil
}

// ReadBills reads all bills from a bills.csv reader.
func ReadBills(r io.Reader) ([]model.Bill, error) {
	records, err := readAll(r, billFields)
	if err != nil {
		return nil, fmt.Errorf("reading bills CSV: %w", err)
	}
	var bills []model.Bill
	for i, rec := range records {
		b, err := UnmarshalBill(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		bills = append(bills, b)
	}
	return bills, nil
}

// ReadPayments reads all payments from a payments.csv reader.
func ReadPayments(r io.Reader) ([]model.PaymentRecord, error) {
	records, err := readAll(r, paymentFields)
	if err != nil {
		return nil, fmt.Errorf("reading payments CSV: %w", err)
	}
	var payments []model.PaymentRecord
	for i, rec := range records {
		p, err := UnmarshalPayment(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// readAll returns the data rows, header skipped.
func readAll(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

// appendRows appends rows to w (no header).
func appendRows(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	for i, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return cw.Error()
}
