package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// PaymentStatus represents the settlement state of an invoice
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "UNPAID"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid:
		return true
	}
	return false
}

// String returns the string representation
func (s PaymentStatus) String() string {
	return string(s)
}

// IsSettled returns true when nothing remains outstanding
func (s PaymentStatus) IsSettled() bool {
	return s == PaymentStatusPaid
}

// Invoice is a receivable entry in the sales ledger. The settlement
// engine never creates invoices; it applies and reverts payments against
// them. TotalAmount = PaidAmount + OutstandingAmount holds at all times.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber     string
	CustomerID        uuid.UUID
	TotalAmount       decimal.Decimal
	PaidAmount        decimal.Decimal
	OutstandingAmount decimal.Decimal
	DueDate           *time.Time
	PaymentStatus     PaymentStatus
}

// NewInvoice creates an invoice with the full amount outstanding
func NewInvoice(invoiceNumber string, customerID uuid.UUID, totalAmount decimal.Decimal, dueDate *time.Time) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewValidationError("INVALID_INVOICE_NUMBER", "Invoice number is required")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer ID is required")
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Invoice amount must be positive")
	}

	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     invoiceNumber,
		CustomerID:        customerID,
		TotalAmount:       totalAmount,
		PaidAmount:        decimal.Zero,
		OutstandingAmount: totalAmount,
		PaymentStatus:     PaymentStatusUnpaid,
		DueDate:           dueDate,
	}, nil
}

// ApplyPayment settles part of the outstanding amount and re-derives the
// payment status. The payment must not exceed what is outstanding.
func (i *Invoice) ApplyPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.GreaterThan(i.OutstandingAmount) {
		return shared.NewPreconditionError("EXCEEDS_OUTSTANDING",
			"Payment amount exceeds outstanding amount of invoice "+i.InvoiceNumber)
	}

	i.PaidAmount = i.PaidAmount.Add(amount)
	i.OutstandingAmount = i.OutstandingAmount.Sub(amount)
	i.derivePaymentStatus()
	i.IncrementVersion()
	return nil
}

// RevertPayment undoes a previously applied payment and re-derives the
// payment status.
func (i *Invoice) RevertPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Revert amount must be positive")
	}
	if amount.GreaterThan(i.PaidAmount) {
		return shared.NewConsistencyViolation("EXCEEDS_PAID",
			"Revert amount exceeds paid amount of invoice "+i.InvoiceNumber)
	}

	i.PaidAmount = i.PaidAmount.Sub(amount)
	i.OutstandingAmount = i.OutstandingAmount.Add(amount)
	i.derivePaymentStatus()
	i.IncrementVersion()
	return nil
}

func (i *Invoice) derivePaymentStatus() {
	switch {
	case i.OutstandingAmount.IsZero():
		i.PaymentStatus = PaymentStatusPaid
	case i.PaidAmount.IsPositive():
		i.PaymentStatus = PaymentStatusPartial
	default:
		i.PaymentStatus = PaymentStatusUnpaid
	}
}

// CheckConsistency verifies the stored amounts still satisfy the ledger
// invariant. Repositories call this after load.
func (i *Invoice) CheckConsistency() error {
	if !i.TotalAmount.Equal(i.PaidAmount.Add(i.OutstandingAmount)) {
		return shared.NewConsistencyViolation("INVOICE_AMOUNT_MISMATCH",
			"Invoice "+i.InvoiceNumber+" amounts do not reconcile")
	}
	if i.PaidAmount.IsNegative() || i.OutstandingAmount.IsNegative() {
		return shared.NewConsistencyViolation("INVOICE_NEGATIVE_AMOUNT",
			"Invoice "+i.InvoiceNumber+" has a negative amount")
	}
	return nil
}

// IsOutstanding returns true if any amount remains unpaid
func (i *Invoice) IsOutstanding() bool {
	return i.OutstandingAmount.IsPositive()
}

// IsOverdue returns true if the invoice has an outstanding amount past
// its due date
func (i *Invoice) IsOverdue(asOf time.Time) bool {
	return i.DaysOverdue(asOf) > 0 && i.IsOutstanding()
}

// DaysOverdue returns the calendar days elapsed since the due date,
// zero if there is no due date or it has not passed
func (i *Invoice) DaysOverdue(asOf time.Time) int {
	if i.DueDate == nil {
		return 0
	}
	return daysBetween(*i.DueDate, asOf)
}

// AgeDays returns the calendar days since the invoice was issued
func (i *Invoice) AgeDays(asOf time.Time) int {
	return daysBetween(i.CreatedAt, asOf)
}

// daysBetween counts calendar days between two instants. Both ends are
// normalized to midnight in their own location and the difference is
// rounded so a DST shift cannot move a day boundary.
func daysBetween(from, to time.Time) int {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location())
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, to.Location())
	days := int(to.Sub(from).Round(24*time.Hour) / (24 * time.Hour))
	if days < 0 {
		return 0
	}
	return days
}
