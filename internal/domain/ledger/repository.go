package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// InvoiceRepository defines the persistence interface for invoices
type InvoiceRepository interface {
	// Basic operations
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)
	FindAll(ctx context.Context, filter InvoiceFilter) ([]*Invoice, error)
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)
	Save(ctx context.Context, invoice *Invoice) error
	// SaveWithLock persists with optimistic concurrency control.
	// Returns shared.ErrConcurrencyConflict when the stored version
	// does not match.
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Settlement queries
	// FindOutstandingByCustomer returns invoices with outstanding > 0
	// ordered by due date ascending (nulls last), then created date
	// ascending. This is the waterfall order.
	FindOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) ([]*Invoice, error)
	FindOutstanding(ctx context.Context) ([]*Invoice, error)

	// Aggregates
	SumOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)
	SumOverdueByCustomer(ctx context.Context, customerID uuid.UUID, asOf time.Time) (decimal.Decimal, error)
	MaxDaysOverdueByCustomer(ctx context.Context, customerID uuid.UUID, asOf time.Time) (int, error)
	ListCustomerIDsWithOutstanding(ctx context.Context) ([]uuid.UUID, error)
}

// CustomerRepository defines the persistence interface for customer accounts
type CustomerRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CustomerAccount, error)
	FindByCode(ctx context.Context, code string) (*CustomerAccount, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]*CustomerAccount, error)
	Save(ctx context.Context, customer *CustomerAccount) error
	SaveWithLock(ctx context.Context, customer *CustomerAccount) error
}

// InvoiceFilter represents filter options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	CustomerID      *uuid.UUID
	PaymentStatus   *PaymentStatus
	OutstandingOnly bool
	OverdueAsOf     *time.Time
	DueBefore       *time.Time
	DueAfter        *time.Time
}
