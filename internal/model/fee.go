package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// FeeCategory names a fee component.
type FeeCategory string

const (
	FeeTuition   FeeCategory = "tuition"
	FeeExam      FeeCategory = "exam"
	FeeAnnual    FeeCategory = "annual"
	FeeComputer  FeeCategory = "computer"
	FeeTransport FeeCategory = "transport"
)

// FeeItem is a single line of a bill.
type FeeItem struct {
	Name   FeeCategory
	Amount decimal.Decimal
}

// BillSummary is the totals block printed under the line items.
type BillSummary struct {
	TotalAmount decimal.Decimal // sum of item amounts
	PreviousDue decimal.Decimal // unpaid balance carried in
	AdvanceUsed decimal.Decimal
	NetPayable  decimal.Decimal
}

// Bill is an immutable monthly bill for one student.
type Bill struct {
	ID        string // "YYYY-MM-NNN"
	StudentID string
	Name      string
	Class     string
	Section   string
	Roll      string
	Month     string // YYYY-MM
	Items     []FeeItem
	Summary   BillSummary
	CreatedAt time.Time
}

// PaymentMode is how a payment was tendered.
type PaymentMode string

const (
	PaymentCash   PaymentMode = "cash"
	PaymentBank   PaymentMode = "bank"
	PaymentCheque PaymentMode = "cheque"
	PaymentOnline PaymentMode = "online"
)

// PaymentRecord is one append-only payment entry against a bill.
type PaymentRecord struct {
	ID             string // bill ID + letter, "2025-04-001a"
	BillID         string
	StudentID      string
	Date           time.Time
	Mode           PaymentMode
	Amount         decimal.Decimal
	AdvanceCreated decimal.Decimal // paid beyond what the bill still owed
	Remaining      decimal.Decimal // still owed on the bill after this payment
	Reference      string
}

// Balance is a student's running carry-forward position.
type Balance struct {
	StudentID string
	Advance   decimal.Decimal
	Due       decimal.Decimal
}
