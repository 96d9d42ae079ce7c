package ar

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// ReceiptStatus represents the lifecycle state of a payment receipt
type ReceiptStatus string

const (
	ReceiptStatusPending   ReceiptStatus = "PENDING"
	ReceiptStatusVerified  ReceiptStatus = "VERIFIED"
	ReceiptStatusAllocated ReceiptStatus = "ALLOCATED"
	ReceiptStatusCompleted ReceiptStatus = "COMPLETED"
	ReceiptStatusCancelled ReceiptStatus = "CANCELLED"
)

// IsValid checks if the receipt status is valid
func (s ReceiptStatus) IsValid() bool {
	switch s {
	case ReceiptStatusPending, ReceiptStatusVerified, ReceiptStatusAllocated,
		ReceiptStatusCompleted, ReceiptStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s ReceiptStatus) String() string {
	return string(s)
}

// IsTerminal returns true when no further transitions are allowed
func (s ReceiptStatus) IsTerminal() bool {
	return s == ReceiptStatusCancelled
}

// WorkflowStatus represents the verify/approve workflow state of a receipt
type WorkflowStatus string

const (
	WorkflowPendingVerification WorkflowStatus = "PENDING_VERIFICATION"
	WorkflowVerified            WorkflowStatus = "VERIFIED"
	WorkflowPendingApproval     WorkflowStatus = "PENDING_APPROVAL"
	WorkflowApproved            WorkflowStatus = "APPROVED"
	WorkflowRejected            WorkflowStatus = "REJECTED"
	WorkflowCompleted           WorkflowStatus = "COMPLETED"
)

// IsValid checks if the workflow status is valid
func (s WorkflowStatus) IsValid() bool {
	switch s {
	case WorkflowPendingVerification, WorkflowVerified, WorkflowPendingApproval,
		WorkflowApproved, WorkflowRejected, WorkflowCompleted:
		return true
	}
	return false
}

// String returns the string representation
func (s WorkflowStatus) String() string {
	return string(s)
}

// CanAllocate returns true when the workflow permits allocations
func (s WorkflowStatus) CanAllocate() bool {
	return s == WorkflowVerified || s == WorkflowApproved || s == WorkflowCompleted
}

// PaymentMethod represents how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
	PaymentMethodGiro         PaymentMethod = "GIRO"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCheque, PaymentMethodGiro:
		return true
	}
	return false
}

// String returns the string representation
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentReceipt is the aggregate root for an incoming customer payment.
// AllocatedAmount + UnallocatedAmount == TotalAmount holds at all times;
// AllocatedAmount mirrors the sum of non-cancelled allocations.
type PaymentReceipt struct {
	shared.AuditedAggregateRoot
	ReceiptNumber     string
	CustomerID        uuid.UUID
	PaymentMethod     PaymentMethod
	TotalAmount       decimal.Decimal
	AllocatedAmount   decimal.Decimal
	UnallocatedAmount decimal.Decimal
	PaymentDate       time.Time
	Status            ReceiptStatus
	WorkflowStatus    WorkflowStatus
	RequiresApproval  bool
	VerifiedBy        *uuid.UUID
	VerifiedAt        *time.Time
	ApprovedBy        *uuid.UUID
	ApprovedAt        *time.Time
	RejectedBy        *uuid.UUID
	RejectedAt        *time.Time
	RejectReason      string
	Notes             string
}

// NewPaymentReceipt creates a payment receipt awaiting verification.
// The approval requirement is derived once at intake from the threshold.
func NewPaymentReceipt(
	receiptNumber string,
	customerID uuid.UUID,
	method PaymentMethod,
	totalAmount decimal.Decimal,
	paymentDate time.Time,
	approvalThreshold decimal.Decimal,
	notes string,
	createdBy uuid.UUID,
) (*PaymentReceipt, error) {
	if receiptNumber == "" {
		return nil, shared.NewValidationError("INVALID_RECEIPT_NUMBER", "Receipt number is required")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer ID is required")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("INVALID_PAYMENT_METHOD", "Invalid payment method: "+method.String())
	}
	if !totalAmount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if paymentDate.IsZero() {
		return nil, shared.NewValidationError("INVALID_PAYMENT_DATE", "Payment date is required")
	}

	receipt := &PaymentReceipt{
		AuditedAggregateRoot: shared.NewAuditedAggregateRoot(createdBy),
		ReceiptNumber:        receiptNumber,
		CustomerID:           customerID,
		PaymentMethod:        method,
		TotalAmount:          totalAmount,
		AllocatedAmount:      decimal.Zero,
		UnallocatedAmount:    totalAmount,
		PaymentDate:          paymentDate,
		Status:               ReceiptStatusPending,
		WorkflowStatus:       WorkflowPendingVerification,
		RequiresApproval:     totalAmount.GreaterThan(approvalThreshold),
		Notes:                notes,
	}

	receipt.AddDomainEvent(NewPaymentReceiptCreatedEvent(receipt))
	return receipt, nil
}

// Verify confirms the receipt against the bank record. Large receipts
// move on to approval; the rest become allocatable immediately.
func (p *PaymentReceipt) Verify(verifiedBy uuid.UUID) error {
	if p.WorkflowStatus != WorkflowPendingVerification {
		return shared.NewPreconditionError("INVALID_WORKFLOW_STATE",
			"Receipt "+p.ReceiptNumber+" cannot be verified from workflow state "+p.WorkflowStatus.String())
	}
	if verifiedBy == uuid.Nil {
		return shared.NewValidationError("INVALID_ACTOR", "Verifier is required")
	}

	now := time.Now()
	p.VerifiedBy = &verifiedBy
	p.VerifiedAt = &now
	if p.RequiresApproval {
		p.WorkflowStatus = WorkflowPendingApproval
	} else {
		p.WorkflowStatus = WorkflowVerified
	}
	p.Status = ReceiptStatusVerified

	p.AddDomainEvent(NewPaymentReceiptVerifiedEvent(p, verifiedBy))
	p.IncrementVersion()
	return nil
}

// Approve releases a large receipt for allocation
func (p *PaymentReceipt) Approve(approvedBy uuid.UUID) error {
	if p.WorkflowStatus != WorkflowPendingApproval {
		return shared.NewPreconditionError("INVALID_WORKFLOW_STATE",
			"Receipt "+p.ReceiptNumber+" cannot be approved from workflow state "+p.WorkflowStatus.String())
	}
	if approvedBy == uuid.Nil {
		return shared.NewValidationError("INVALID_ACTOR", "Approver is required")
	}

	now := time.Now()
	p.ApprovedBy = &approvedBy
	p.ApprovedAt = &now
	p.WorkflowStatus = WorkflowApproved

	p.AddDomainEvent(NewPaymentReceiptApprovedEvent(p, approvedBy))
	p.IncrementVersion()
	return nil
}

// Reject declines the receipt during verification or approval. The
// receipt is cancelled and can never be allocated.
func (p *PaymentReceipt) Reject(rejectedBy uuid.UUID, reason string) error {
	if p.WorkflowStatus != WorkflowPendingVerification && p.WorkflowStatus != WorkflowPendingApproval {
		return shared.NewPreconditionError("INVALID_WORKFLOW_STATE",
			"Receipt "+p.ReceiptNumber+" cannot be rejected from workflow state "+p.WorkflowStatus.String())
	}
	if rejectedBy == uuid.Nil {
		return shared.NewValidationError("INVALID_ACTOR", "Rejector is required")
	}
	if reason == "" {
		return shared.NewValidationError("INVALID_REASON", "Rejection reason is required")
	}

	now := time.Now()
	p.RejectedBy = &rejectedBy
	p.RejectedAt = &now
	p.RejectReason = reason
	p.WorkflowStatus = WorkflowRejected
	p.Status = ReceiptStatusCancelled

	p.AddDomainEvent(NewPaymentReceiptRejectedEvent(p, rejectedBy, reason))
	p.IncrementVersion()
	return nil
}

// CanAllocate returns true when allocations may be created against the
// receipt
func (p *PaymentReceipt) CanAllocate() bool {
	return !p.Status.IsTerminal() && p.WorkflowStatus.CanAllocate()
}

// ReserveAllocation moves part of the unallocated amount into the
// allocated amount when an allocation is created. Balance effects on the
// invoice happen later, at application.
func (p *PaymentReceipt) ReserveAllocation(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Allocation amount must be positive")
	}
	if amount.GreaterThan(p.UnallocatedAmount) {
		return shared.NewValidationError("EXCEEDS_UNALLOCATED",
			"Allocation amount exceeds unallocated amount of receipt "+p.ReceiptNumber)
	}

	p.AllocatedAmount = p.AllocatedAmount.Add(amount)
	p.UnallocatedAmount = p.UnallocatedAmount.Sub(amount)
	p.deriveAllocationStatus()
	p.IncrementVersion()
	return nil
}

// ReleaseAllocation returns a reserved amount to the unallocated pool
// when an allocation is cancelled or reversed
func (p *PaymentReceipt) ReleaseAllocation(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Release amount must be positive")
	}
	if amount.GreaterThan(p.AllocatedAmount) {
		return shared.NewConsistencyViolation("EXCEEDS_ALLOCATED",
			"Release amount exceeds allocated amount of receipt "+p.ReceiptNumber)
	}

	p.AllocatedAmount = p.AllocatedAmount.Sub(amount)
	p.UnallocatedAmount = p.UnallocatedAmount.Add(amount)
	p.deriveAllocationStatus()
	p.IncrementVersion()
	return nil
}

// ReduceTotal lowers the receipt total after intake, for example when a
// bank correction arrives. The caller must release pending allocations
// first so that the allocated amount fits under the new total.
func (p *PaymentReceipt) ReduceTotal(newTotal decimal.Decimal) error {
	if !newTotal.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "New total must be positive")
	}
	if newTotal.GreaterThanOrEqual(p.TotalAmount) {
		return shared.NewValidationError("INVALID_AMOUNT", "New total must be lower than the current total")
	}
	if p.AllocatedAmount.GreaterThan(newTotal) {
		return shared.NewPreconditionError("ALLOCATED_EXCEEDS_TOTAL",
			"Allocated amount of receipt "+p.ReceiptNumber+" still exceeds the new total")
	}

	p.TotalAmount = newTotal
	p.UnallocatedAmount = newTotal.Sub(p.AllocatedAmount)
	p.deriveAllocationStatus()
	p.IncrementVersion()
	return nil
}

// deriveAllocationStatus re-derives the lifecycle and workflow status
// from the unallocated amount. A reversal on a completed receipt walks
// it back to allocated.
func (p *PaymentReceipt) deriveAllocationStatus() {
	if p.Status.IsTerminal() {
		return
	}
	// A receipt that has not cleared verification or approval keeps its
	// lifecycle status. A bank correction before verification must not
	// promote a pending receipt to verified.
	if p.WorkflowStatus == WorkflowPendingVerification || p.WorkflowStatus == WorkflowPendingApproval {
		return
	}

	switch {
	case p.AllocatedAmount.IsZero():
		p.Status = ReceiptStatusVerified
		p.restoreWorkflowAfterReversal()
	case p.UnallocatedAmount.IsZero():
		p.Status = ReceiptStatusCompleted
		p.WorkflowStatus = WorkflowCompleted
	default:
		p.Status = ReceiptStatusAllocated
		p.restoreWorkflowAfterReversal()
	}
}

func (p *PaymentReceipt) restoreWorkflowAfterReversal() {
	if p.WorkflowStatus != WorkflowCompleted {
		return
	}
	if p.RequiresApproval {
		p.WorkflowStatus = WorkflowApproved
	} else {
		p.WorkflowStatus = WorkflowVerified
	}
}

// CanDelete returns true while the receipt is still unallocated and not
// completed
func (p *PaymentReceipt) CanDelete() bool {
	return p.AllocatedAmount.IsZero() && p.Status != ReceiptStatusCompleted
}

// CheckConsistency verifies the stored amounts still reconcile
func (p *PaymentReceipt) CheckConsistency() error {
	if !p.TotalAmount.Equal(p.AllocatedAmount.Add(p.UnallocatedAmount)) {
		return shared.NewConsistencyViolation("RECEIPT_AMOUNT_MISMATCH",
			"Receipt "+p.ReceiptNumber+" amounts do not reconcile")
	}
	if p.AllocatedAmount.IsNegative() || p.UnallocatedAmount.IsNegative() {
		return shared.NewConsistencyViolation("RECEIPT_NEGATIVE_AMOUNT",
			"Receipt "+p.ReceiptNumber+" has a negative amount")
	}
	return nil
}
