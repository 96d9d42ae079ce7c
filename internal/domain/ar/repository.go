package ar

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// PaymentReceiptRepository defines the persistence interface for payment
// receipts
type PaymentReceiptRepository interface {
	// Basic operations
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentReceipt, error)
	FindByNumber(ctx context.Context, receiptNumber string) (*PaymentReceipt, error)
	FindAll(ctx context.Context, filter ReceiptFilter) ([]*PaymentReceipt, error)
	Count(ctx context.Context, filter ReceiptFilter) (int64, error)
	Save(ctx context.Context, receipt *PaymentReceipt) error
	// SaveWithLock persists with optimistic concurrency control.
	// Returns shared.ErrConcurrencyConflict when the stored version
	// does not match.
	SaveWithLock(ctx context.Context, receipt *PaymentReceipt) error
	Delete(ctx context.Context, id uuid.UUID) error

	// NextReceiptNumber generates the next sequential receipt number
	// for the given day, formatted PR-YYYYMMDD-NNNNN.
	NextReceiptNumber(ctx context.Context, date time.Time) (string, error)

	// PaymentDatesByCustomerSince returns the payment dates of the
	// customer's non-cancelled receipts since the given time, ascending.
	// Used for payment interval consistency scoring.
	PaymentDatesByCustomerSince(ctx context.Context, customerID uuid.UUID, since time.Time) ([]time.Time, error)
}

// AllocationRepository defines the persistence interface for allocations
type AllocationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Allocation, error)
	FindByReceipt(ctx context.Context, receiptID uuid.UUID) ([]*Allocation, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Allocation, error)
	FindAll(ctx context.Context, filter AllocationFilter) ([]*Allocation, error)
	Count(ctx context.Context, filter AllocationFilter) (int64, error)
	Save(ctx context.Context, allocation *Allocation) error

	// FindPendingByReceiptNewestFirst returns the receipt's pending
	// allocations most recently created first. This is the release
	// order during receipt recalculation.
	FindPendingByReceiptNewestFirst(ctx context.Context, receiptID uuid.UUID) ([]*Allocation, error)

	// SumActiveByReceipt sums pending and applied allocation amounts
	// against a receipt.
	SumActiveByReceipt(ctx context.Context, receiptID uuid.UUID) (decimal.Decimal, error)
	CountActiveByReceipt(ctx context.Context, receiptID uuid.UUID) (int64, error)

	// PaidInvoiceStats counts the customer's invoices settled since the
	// given time and how many of them were settled on or before their
	// due date. Used for payment timeliness scoring.
	PaidInvoiceStats(ctx context.Context, customerID uuid.UUID, since time.Time) (total int64, onTime int64, err error)
}

// CreditProfileRepository defines the persistence interface for credit
// profiles
type CreditProfileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CreditProfile, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID) (*CreditProfile, error)
	FindAll(ctx context.Context, filter CreditProfileFilter) ([]*CreditProfile, error)
	Count(ctx context.Context, filter CreditProfileFilter) (int64, error)
	Save(ctx context.Context, profile *CreditProfile) error
	SaveWithLock(ctx context.Context, profile *CreditProfile) error

	// FindDueForReview returns profiles whose next review date has
	// passed, or which have never been reviewed.
	FindDueForReview(ctx context.Context, asOf time.Time) ([]*CreditProfile, error)
}

// AgingSnapshotRepository defines the persistence interface for aging
// snapshots
type AgingSnapshotRepository interface {
	FindByCustomerAndDate(ctx context.Context, customerID uuid.UUID, date time.Time) (*AgingSnapshot, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID, from, to time.Time) ([]*AgingSnapshot, error)
	FindInRange(ctx context.Context, from, to time.Time) ([]*AgingSnapshot, error)
	// Upsert inserts or replaces the snapshot for its (customer, date)
	// pair. Re-running a snapshot day never creates duplicates.
	Upsert(ctx context.Context, snapshot *AgingSnapshot) error
}

// ReceiptFilter represents filter options for receipt queries
type ReceiptFilter struct {
	shared.Filter
	CustomerID     *uuid.UUID
	Status         *ReceiptStatus
	WorkflowStatus *WorkflowStatus
	PaymentMethod  *PaymentMethod
	DateFrom       *time.Time
	DateTo         *time.Time
}

// AllocationFilter represents filter options for allocation queries
type AllocationFilter struct {
	shared.Filter
	PaymentReceiptID *uuid.UUID
	InvoiceID        *uuid.UUID
	CustomerID       *uuid.UUID
	Status           *AllocationStatus
	AllocationType   *AllocationType
}

// CreditProfileFilter represents filter options for credit profile queries
type CreditProfileFilter struct {
	shared.Filter
	CreditStatus   *CreditStatus
	ReviewDueAsOf  *time.Time
	MinDaysPastDue *int
}
