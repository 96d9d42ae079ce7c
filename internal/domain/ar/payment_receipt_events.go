package ar

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// Event types for the payment receipt aggregate
const (
	EventPaymentReceiptCreated  = "payment_receipt.created"
	EventPaymentReceiptVerified = "payment_receipt.verified"
	EventPaymentReceiptApproved = "payment_receipt.approved"
	EventPaymentReceiptRejected = "payment_receipt.rejected"
)

const paymentReceiptAggregateType = "PaymentReceipt"

// PaymentReceiptCreatedEvent is raised when a receipt is taken in
type PaymentReceiptCreatedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber    string          `json:"receipt_number"`
	CustomerID       uuid.UUID       `json:"customer_id"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	RequiresApproval bool            `json:"requires_approval"`
}

// NewPaymentReceiptCreatedEvent creates a new receipt created event
func NewPaymentReceiptCreatedEvent(receipt *PaymentReceipt) *PaymentReceiptCreatedEvent {
	return &PaymentReceiptCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventPaymentReceiptCreated, paymentReceiptAggregateType, receipt.ID),
		ReceiptNumber:    receipt.ReceiptNumber,
		CustomerID:       receipt.CustomerID,
		TotalAmount:      receipt.TotalAmount,
		PaymentMethod:    receipt.PaymentMethod,
		RequiresApproval: receipt.RequiresApproval,
	}
}

// PaymentReceiptVerifiedEvent is raised when a receipt passes verification
type PaymentReceiptVerifiedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string    `json:"receipt_number"`
	CustomerID    uuid.UUID `json:"customer_id"`
	VerifiedBy    uuid.UUID `json:"verified_by"`
	NextApproval  bool      `json:"next_approval"`
}

// NewPaymentReceiptVerifiedEvent creates a new receipt verified event
func NewPaymentReceiptVerifiedEvent(receipt *PaymentReceipt, verifiedBy uuid.UUID) *PaymentReceiptVerifiedEvent {
	return &PaymentReceiptVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentReceiptVerified, paymentReceiptAggregateType, receipt.ID),
		ReceiptNumber:   receipt.ReceiptNumber,
		CustomerID:      receipt.CustomerID,
		VerifiedBy:      verifiedBy,
		NextApproval:    receipt.RequiresApproval,
	}
}

// PaymentReceiptApprovedEvent is raised when a large receipt is approved
type PaymentReceiptApprovedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string          `json:"receipt_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ApprovedBy    uuid.UUID       `json:"approved_by"`
}

// NewPaymentReceiptApprovedEvent creates a new receipt approved event
func NewPaymentReceiptApprovedEvent(receipt *PaymentReceipt, approvedBy uuid.UUID) *PaymentReceiptApprovedEvent {
	return &PaymentReceiptApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentReceiptApproved, paymentReceiptAggregateType, receipt.ID),
		ReceiptNumber:   receipt.ReceiptNumber,
		CustomerID:      receipt.CustomerID,
		TotalAmount:     receipt.TotalAmount,
		ApprovedBy:      approvedBy,
	}
}

// PaymentReceiptRejectedEvent is raised when a receipt is rejected
type PaymentReceiptRejectedEvent struct {
	shared.BaseDomainEvent
	ReceiptNumber string    `json:"receipt_number"`
	CustomerID    uuid.UUID `json:"customer_id"`
	RejectedBy    uuid.UUID `json:"rejected_by"`
	Reason        string    `json:"reason"`
}

// NewPaymentReceiptRejectedEvent creates a new receipt rejected event
func NewPaymentReceiptRejectedEvent(receipt *PaymentReceipt, rejectedBy uuid.UUID, reason string) *PaymentReceiptRejectedEvent {
	return &PaymentReceiptRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentReceiptRejected, paymentReceiptAggregateType, receipt.ID),
		ReceiptNumber:   receipt.ReceiptNumber,
		CustomerID:      receipt.CustomerID,
		RejectedBy:      rejectedBy,
		Reason:          reason,
	}
}
