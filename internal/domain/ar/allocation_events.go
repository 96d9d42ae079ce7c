package ar

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// Event types for the allocation aggregate
const (
	EventAllocationCreated   = "allocation.created"
	EventAllocationApplied   = "allocation.applied"
	EventAllocationReversed  = "allocation.reversed"
	EventAllocationCancelled = "allocation.cancelled"
)

const allocationAggregateType = "Allocation"

// AllocationCreatedEvent is raised when an allocation is created pending
type AllocationCreatedEvent struct {
	shared.BaseDomainEvent
	PaymentReceiptID uuid.UUID       `json:"payment_receipt_id"`
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	Amount           decimal.Decimal `json:"amount"`
	AllocationType   AllocationType  `json:"allocation_type"`
}

// NewAllocationCreatedEvent creates a new allocation created event
func NewAllocationCreatedEvent(allocation *Allocation) *AllocationCreatedEvent {
	return &AllocationCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventAllocationCreated, allocationAggregateType, allocation.ID),
		PaymentReceiptID: allocation.PaymentReceiptID,
		InvoiceID:        allocation.InvoiceID,
		CustomerID:       allocation.CustomerID,
		Amount:           allocation.Amount,
		AllocationType:   allocation.AllocationType,
	}
}

// AllocationAppliedEvent is raised when balance effects are posted
type AllocationAppliedEvent struct {
	shared.BaseDomainEvent
	PaymentReceiptID uuid.UUID       `json:"payment_receipt_id"`
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	Amount           decimal.Decimal `json:"amount"`
}

// NewAllocationAppliedEvent creates a new allocation applied event
func NewAllocationAppliedEvent(allocation *Allocation) *AllocationAppliedEvent {
	return &AllocationAppliedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventAllocationApplied, allocationAggregateType, allocation.ID),
		PaymentReceiptID: allocation.PaymentReceiptID,
		InvoiceID:        allocation.InvoiceID,
		CustomerID:       allocation.CustomerID,
		Amount:           allocation.Amount,
	}
}

// AllocationReversedEvent is raised when balance effects are undone
type AllocationReversedEvent struct {
	shared.BaseDomainEvent
	PaymentReceiptID uuid.UUID       `json:"payment_receipt_id"`
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
}

// NewAllocationReversedEvent creates a new allocation reversed event
func NewAllocationReversedEvent(allocation *Allocation, reason string) *AllocationReversedEvent {
	return &AllocationReversedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventAllocationReversed, allocationAggregateType, allocation.ID),
		PaymentReceiptID: allocation.PaymentReceiptID,
		InvoiceID:        allocation.InvoiceID,
		Amount:           allocation.Amount,
		Reason:           reason,
	}
}

// AllocationCancelledEvent is raised when a pending allocation is withdrawn
type AllocationCancelledEvent struct {
	shared.BaseDomainEvent
	PaymentReceiptID uuid.UUID       `json:"payment_receipt_id"`
	InvoiceID        uuid.UUID       `json:"invoice_id"`
	Amount           decimal.Decimal `json:"amount"`
}

// NewAllocationCancelledEvent creates a new allocation cancelled event
func NewAllocationCancelledEvent(allocation *Allocation) *AllocationCancelledEvent {
	return &AllocationCancelledEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventAllocationCancelled, allocationAggregateType, allocation.ID),
		PaymentReceiptID: allocation.PaymentReceiptID,
		InvoiceID:        allocation.InvoiceID,
		Amount:           allocation.Amount,
	}
}
