package ar

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/ledger"
	"github.com/arledger/backend/internal/domain/shared"
)

// AgingSnapshot captures one customer's aging position on one calendar
// day. Snapshots are upserted by (customer, date) and otherwise
// immutable history.
type AgingSnapshot struct {
	shared.BaseAggregateRoot
	CustomerID        uuid.UUID
	SnapshotDate      time.Time
	CurrentAmount     decimal.Decimal
	Days30Amount      decimal.Decimal
	Days60Amount      decimal.Decimal
	Days90Amount      decimal.Decimal
	Days120PlusAmount decimal.Decimal
	TotalOutstanding  decimal.Decimal
	RiskScore         decimal.Decimal
	InvoiceCount      int
}

// NewAgingSnapshot builds a snapshot from a customer's outstanding
// invoices as of the snapshot date. The date is truncated to the day.
func NewAgingSnapshot(customerID uuid.UUID, snapshotDate time.Time, invoices []*ledger.Invoice) (*AgingSnapshot, error) {
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer ID is required")
	}
	if snapshotDate.IsZero() {
		return nil, shared.NewValidationError("INVALID_DATE", "Snapshot date is required")
	}

	amounts := NewBucketAmounts()
	count := 0
	for _, invoice := range invoices {
		if !invoice.IsOutstanding() {
			continue
		}
		bucket := BucketForDaysOverdue(invoice.DaysOverdue(snapshotDate))
		amounts.Add(bucket, invoice.OutstandingAmount)
		count++
	}

	return &AgingSnapshot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        customerID,
		SnapshotDate:      TruncateToDay(snapshotDate),
		CurrentAmount:     amounts[BucketCurrent],
		Days30Amount:      amounts[BucketDays30],
		Days60Amount:      amounts[BucketDays60],
		Days90Amount:      amounts[BucketDays90],
		Days120PlusAmount: amounts[BucketDays120Plus],
		TotalOutstanding:  amounts.Total(),
		RiskScore:         WeightedRiskScore(amounts),
		InvoiceCount:      count,
	}, nil
}

// BucketAmounts returns the snapshot's per-bucket amounts
func (s *AgingSnapshot) BucketAmounts() BucketAmounts {
	return BucketAmounts{
		BucketCurrent:     s.CurrentAmount,
		BucketDays30:      s.Days30Amount,
		BucketDays60:      s.Days60Amount,
		BucketDays90:      s.Days90Amount,
		BucketDays120Plus: s.Days120PlusAmount,
	}
}

// OverduePercentage returns the share of the outstanding total past the
// current bucket
func (s *AgingSnapshot) OverduePercentage() decimal.Decimal {
	if !s.TotalOutstanding.IsPositive() {
		return decimal.Zero
	}
	overdue := s.TotalOutstanding.Sub(s.CurrentAmount)
	return overdue.Div(s.TotalOutstanding).Mul(decimal.NewFromInt(100))
}

// IsMonthEnd reports whether the snapshot falls on the last day of its
// month
func (s *AgingSnapshot) IsMonthEnd() bool {
	next := s.SnapshotDate.AddDate(0, 0, 1)
	return next.Month() != s.SnapshotDate.Month()
}

// TruncateToDay drops the time-of-day portion, keeping the location
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
