package ar

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// AllocationStatus represents the state of an allocation
type AllocationStatus string

const (
	AllocationStatusPending   AllocationStatus = "PENDING"
	AllocationStatusApplied   AllocationStatus = "APPLIED"
	AllocationStatusReversed  AllocationStatus = "REVERSED"
	AllocationStatusCancelled AllocationStatus = "CANCELLED"
)

// IsValid checks if the allocation status is valid
func (s AllocationStatus) IsValid() bool {
	switch s {
	case AllocationStatusPending, AllocationStatusApplied, AllocationStatusReversed, AllocationStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s AllocationStatus) String() string {
	return string(s)
}

// IsActive returns true while the allocation still counts against the
// receipt's allocated amount
func (s AllocationStatus) IsActive() bool {
	return s == AllocationStatusPending || s == AllocationStatusApplied
}

// AllocationType distinguishes manual from waterfall allocations
type AllocationType string

const (
	AllocationTypeManual    AllocationType = "MANUAL"
	AllocationTypeAutomatic AllocationType = "AUTOMATIC"
)

// IsValid checks if the allocation type is valid
func (t AllocationType) IsValid() bool {
	return t == AllocationTypeManual || t == AllocationTypeAutomatic
}

// String returns the string representation
func (t AllocationType) String() string {
	return string(t)
}

// Allocation links part of a payment receipt to an invoice. It is
// created pending; invoice and customer balances move only when it is
// applied. The customer ID is stored redundantly for cross-checking.
type Allocation struct {
	shared.AuditedAggregateRoot
	PaymentReceiptID uuid.UUID
	InvoiceID        uuid.UUID
	CustomerID       uuid.UUID
	Amount           decimal.Decimal
	AllocationDate   time.Time
	AllocationType   AllocationType
	Status           AllocationStatus
	AppliedAt        *time.Time
	ReversedAt       *time.Time
	ReversalReason   string
	CancelledAt      *time.Time
	Notes            string
}

// NewAllocation creates a pending allocation
func NewAllocation(
	paymentReceiptID, invoiceID, customerID uuid.UUID,
	amount decimal.Decimal,
	allocationType AllocationType,
	notes string,
	createdBy uuid.UUID,
) (*Allocation, error) {
	if paymentReceiptID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_RECEIPT", "Payment receipt ID is required")
	}
	if invoiceID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_INVOICE", "Invoice ID is required")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer ID is required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if !allocationType.IsValid() {
		return nil, shared.NewValidationError("INVALID_ALLOCATION_TYPE", "Invalid allocation type: "+allocationType.String())
	}

	allocation := &Allocation{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		PaymentReceiptID:     paymentReceiptID,
		InvoiceID:            invoiceID,
		CustomerID:           customerID,
		Amount:               amount,
		AllocationDate:       time.Now(),
		AllocationType:       allocationType,
		Status:               AllocationStatusPending,
		Notes:                notes,
	}

	allocation.AddDomainEvent(NewAllocationCreatedEvent(allocation))
	return allocation, nil
}

// MarkApplied records that balance effects have been posted
func (a *Allocation) MarkApplied() error {
	if a.Status != AllocationStatusPending {
		return shared.NewPreconditionError("INVALID_ALLOCATION_STATE",
			"Allocation cannot be applied from state "+a.Status.String())
	}

	now := time.Now()
	a.Status = AllocationStatusApplied
	a.AppliedAt = &now

	a.AddDomainEvent(NewAllocationAppliedEvent(a))
	a.IncrementVersion()
	return nil
}

// MarkReversed records that balance effects have been undone
func (a *Allocation) MarkReversed(reason string) error {
	if a.Status != AllocationStatusApplied {
		return shared.NewPreconditionError("INVALID_ALLOCATION_STATE",
			"Allocation cannot be reversed from state "+a.Status.String())
	}
	if reason == "" {
		return shared.NewValidationError("INVALID_REASON", "Reversal reason is required")
	}

	now := time.Now()
	a.Status = AllocationStatusReversed
	a.ReversedAt = &now
	a.ReversalReason = reason

	a.AddDomainEvent(NewAllocationReversedEvent(a, reason))
	a.IncrementVersion()
	return nil
}

// MarkCancelled withdraws a pending allocation before any effects are
// posted
func (a *Allocation) MarkCancelled() error {
	if a.Status != AllocationStatusPending {
		return shared.NewPreconditionError("INVALID_ALLOCATION_STATE",
			"Allocation cannot be cancelled from state "+a.Status.String())
	}

	now := time.Now()
	a.Status = AllocationStatusCancelled
	a.CancelledAt = &now

	a.AddDomainEvent(NewAllocationCancelledEvent(a))
	a.IncrementVersion()
	return nil
}

// Reduce lowers the amount of a pending allocation during receipt
// recalculation. The remaining amount must stay positive; a reduction
// to zero is a cancellation instead.
func (a *Allocation) Reduce(by decimal.Decimal) error {
	if a.Status != AllocationStatusPending {
		return shared.NewPreconditionError("INVALID_ALLOCATION_STATE",
			"Allocation cannot be reduced from state "+a.Status.String())
	}
	if !by.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Reduction must be positive")
	}
	if by.GreaterThanOrEqual(a.Amount) {
		return shared.NewValidationError("INVALID_AMOUNT", "Reduction must leave a positive amount")
	}

	a.Amount = a.Amount.Sub(by)
	a.IncrementVersion()
	return nil
}
