package ar

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/ar"
)

// PaymentReceiptResponse is the application-level view of a receipt
type PaymentReceiptResponse struct {
	ID                uuid.UUID         `json:"id"`
	ReceiptNumber     string            `json:"receipt_number"`
	CustomerID        uuid.UUID         `json:"customer_id"`
	PaymentMethod     ar.PaymentMethod  `json:"payment_method"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	AllocatedAmount   decimal.Decimal   `json:"allocated_amount"`
	UnallocatedAmount decimal.Decimal   `json:"unallocated_amount"`
	PaymentDate       time.Time         `json:"payment_date"`
	Status            ar.ReceiptStatus  `json:"status"`
	WorkflowStatus    ar.WorkflowStatus `json:"workflow_status"`
	RequiresApproval  bool              `json:"requires_approval"`
	VerifiedBy        *uuid.UUID        `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time        `json:"verified_at,omitempty"`
	ApprovedBy        *uuid.UUID        `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time        `json:"approved_at,omitempty"`
	RejectedBy        *uuid.UUID        `json:"rejected_by,omitempty"`
	RejectedAt        *time.Time        `json:"rejected_at,omitempty"`
	RejectReason      string            `json:"reject_reason,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	Version           int               `json:"version"`
}

// AllocationResponse is the application-level view of an allocation
type AllocationResponse struct {
	ID               uuid.UUID           `json:"id"`
	PaymentReceiptID uuid.UUID           `json:"payment_receipt_id"`
	InvoiceID        uuid.UUID           `json:"invoice_id"`
	CustomerID       uuid.UUID           `json:"customer_id"`
	Amount           decimal.Decimal     `json:"amount"`
	AllocationDate   time.Time           `json:"allocation_date"`
	AllocationType   ar.AllocationType   `json:"allocation_type"`
	Status           ar.AllocationStatus `json:"status"`
	AppliedAt        *time.Time          `json:"applied_at,omitempty"`
	ReversedAt       *time.Time          `json:"reversed_at,omitempty"`
	ReversalReason   string              `json:"reversal_reason,omitempty"`
	CancelledAt      *time.Time          `json:"cancelled_at,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
}

// AllocationSuggestionResponse ranks one invoice for manual allocation
type AllocationSuggestionResponse struct {
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	DaysOverdue       int             `json:"days_overdue"`
	PriorityScore     decimal.Decimal `json:"priority_score"`
	SuggestedAmount   decimal.Decimal `json:"suggested_amount"`
}

// CreditProfileResponse is the application-level view of a credit profile
type CreditProfileResponse struct {
	ID                uuid.UUID       `json:"id"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	CreditLimit       decimal.Decimal `json:"credit_limit"`
	CurrentBalance    decimal.Decimal `json:"current_balance"`
	AvailableCredit   decimal.Decimal `json:"available_credit"`
	OverdueAmount     decimal.Decimal `json:"overdue_amount"`
	DaysPastDue       int             `json:"days_past_due"`
	PaymentTermsDays  int             `json:"payment_terms_days"`
	CreditStatus      ar.CreditStatus `json:"credit_status"`
	CreditScore       decimal.Decimal `json:"credit_score"`
	ReliabilityScore  decimal.Decimal `json:"reliability_score"`
	UtilizationRatio  decimal.Decimal `json:"utilization_ratio"`
	PaymentDelayCount int             `json:"payment_delay_count"`
	LatePaymentCount  int             `json:"late_payment_count"`
	AutoApprovalLimit decimal.Decimal `json:"auto_approval_limit"`
	LastReviewDate    *time.Time      `json:"last_review_date,omitempty"`
	NextReviewDate    *time.Time      `json:"next_review_date,omitempty"`
}

// CreditSaleCheckResponse is the outcome of the credit gate
type CreditSaleCheckResponse struct {
	CanProceed       bool            `json:"can_proceed"`
	Reason           string          `json:"reason,omitempty"`
	RequiresApproval bool            `json:"requires_approval"`
	AvailableCredit  decimal.Decimal `json:"available_credit"`
	CreditStatus     ar.CreditStatus `json:"credit_status"`
}

// CreditReviewResponse is the outcome of an automated review
type CreditReviewResponse struct {
	CustomerID       uuid.UUID               `json:"customer_id"`
	Recommendation   ar.ReviewRecommendation `json:"recommendation"`
	CurrentLimit     decimal.Decimal         `json:"current_limit"`
	SuggestedLimit   decimal.Decimal         `json:"suggested_limit"`
	ReliabilityScore decimal.Decimal         `json:"reliability_score"`
	CreditScore      decimal.Decimal         `json:"credit_score"`
	DaysPastDue      int                     `json:"days_past_due"`
	NextReviewDate   *time.Time              `json:"next_review_date,omitempty"`
}

// CustomerAgingResponse is one customer's aging position
type CustomerAgingResponse struct {
	CustomerID        uuid.UUID       `json:"customer_id"`
	CustomerCode      string          `json:"customer_code,omitempty"`
	CustomerName      string          `json:"customer_name,omitempty"`
	CurrentAmount     decimal.Decimal `json:"current_amount"`
	Days30Amount      decimal.Decimal `json:"days_30_amount"`
	Days60Amount      decimal.Decimal `json:"days_60_amount"`
	Days90Amount      decimal.Decimal `json:"days_90_amount"`
	Days120PlusAmount decimal.Decimal `json:"days_120_plus_amount"`
	TotalOutstanding  decimal.Decimal `json:"total_outstanding"`
	InvoiceCount      int             `json:"invoice_count"`
	RiskScore         decimal.Decimal `json:"risk_score"`
	RiskBand          ar.RiskBand     `json:"risk_band"`
}

// AgingSummaryResponse aggregates the aging position company-wide
type AgingSummaryResponse struct {
	AsOf              time.Time                  `json:"as_of"`
	TotalOutstanding  decimal.Decimal            `json:"total_outstanding"`
	CustomerCount     int                        `json:"customer_count"`
	BucketTotals      map[string]decimal.Decimal `json:"bucket_totals"`
	BucketPercentages map[string]decimal.Decimal `json:"bucket_percentages"`
	RiskBandCounts    map[string]int             `json:"risk_band_counts"`
	OverduePercentage decimal.Decimal            `json:"overdue_percentage"`
}

// AgingReportResponse is the full per-customer aging report
type AgingReportResponse struct {
	Summary   AgingSummaryResponse    `json:"summary"`
	Customers []CustomerAgingResponse `json:"customers"`
}

// AgingSnapshotResponse is the application-level view of a snapshot
type AgingSnapshotResponse struct {
	ID                uuid.UUID       `json:"id"`
	CustomerID        uuid.UUID       `json:"customer_id"`
	SnapshotDate      time.Time       `json:"snapshot_date"`
	CurrentAmount     decimal.Decimal `json:"current_amount"`
	Days30Amount      decimal.Decimal `json:"days_30_amount"`
	Days60Amount      decimal.Decimal `json:"days_60_amount"`
	Days90Amount      decimal.Decimal `json:"days_90_amount"`
	Days120PlusAmount decimal.Decimal `json:"days_120_plus_amount"`
	TotalOutstanding  decimal.Decimal `json:"total_outstanding"`
	RiskScore         decimal.Decimal `json:"risk_score"`
	InvoiceCount      int             `json:"invoice_count"`
}

// SnapshotError records one customer's failure during a batch run
type SnapshotError struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Message    string    `json:"message"`
}

// DailySnapshotResult summarizes a daily snapshot run. Failures are
// isolated per customer and never abort the run.
type DailySnapshotResult struct {
	SnapshotDate   time.Time       `json:"snapshot_date"`
	TotalCustomers int             `json:"total_customers"`
	Successful     int             `json:"successful"`
	Failed         int             `json:"failed"`
	Errors         []SnapshotError `json:"errors,omitempty"`
}

// AgingTrendPoint is one month of the aging trend series
type AgingTrendPoint struct {
	Month             string          `json:"month"`
	CurrentAmount     decimal.Decimal `json:"current_amount"`
	Days30Amount      decimal.Decimal `json:"days_30_amount"`
	Days60Amount      decimal.Decimal `json:"days_60_amount"`
	Days90Amount      decimal.Decimal `json:"days_90_amount"`
	Days120PlusAmount decimal.Decimal `json:"days_120_plus_amount"`
	TotalOutstanding  decimal.Decimal `json:"total_outstanding"`
	OverduePercentage decimal.Decimal `json:"overdue_percentage"`
	CustomerCount     int             `json:"customer_count"`
}

// CustomerOutstandingResponse lists a customer's open invoices
type CustomerOutstandingResponse struct {
	CustomerID       uuid.UUID            `json:"customer_id"`
	TotalOutstanding decimal.Decimal      `json:"total_outstanding"`
	Invoices         []OutstandingInvoice `json:"invoices"`
}

// OutstandingInvoice is one open invoice in an outstanding listing
type OutstandingInvoice struct {
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	DaysOverdue       int             `json:"days_overdue"`
	AgingBucket       ar.AgingBucket  `json:"aging_bucket"`
}

func toPaymentReceiptResponse(receipt *ar.PaymentReceipt) *PaymentReceiptResponse {
	return &PaymentReceiptResponse{
		ID:                receipt.ID,
		ReceiptNumber:     receipt.ReceiptNumber,
		CustomerID:        receipt.CustomerID,
		PaymentMethod:     receipt.PaymentMethod,
		TotalAmount:       receipt.TotalAmount,
		AllocatedAmount:   receipt.AllocatedAmount,
		UnallocatedAmount: receipt.UnallocatedAmount,
		PaymentDate:       receipt.PaymentDate,
		Status:            receipt.Status,
		WorkflowStatus:    receipt.WorkflowStatus,
		RequiresApproval:  receipt.RequiresApproval,
		VerifiedBy:        receipt.VerifiedBy,
		VerifiedAt:        receipt.VerifiedAt,
		ApprovedBy:        receipt.ApprovedBy,
		ApprovedAt:        receipt.ApprovedAt,
		RejectedBy:        receipt.RejectedBy,
		RejectedAt:        receipt.RejectedAt,
		RejectReason:      receipt.RejectReason,
		Notes:             receipt.Notes,
		CreatedAt:         receipt.CreatedAt,
		Version:           receipt.Version,
	}
}

func toAllocationResponse(allocation *ar.Allocation) *AllocationResponse {
	return &AllocationResponse{
		ID:               allocation.ID,
		PaymentReceiptID: allocation.PaymentReceiptID,
		InvoiceID:        allocation.InvoiceID,
		CustomerID:       allocation.CustomerID,
		Amount:           allocation.Amount,
		AllocationDate:   allocation.AllocationDate,
		AllocationType:   allocation.AllocationType,
		Status:           allocation.Status,
		AppliedAt:        allocation.AppliedAt,
		ReversedAt:       allocation.ReversedAt,
		ReversalReason:   allocation.ReversalReason,
		CancelledAt:      allocation.CancelledAt,
		Notes:            allocation.Notes,
		CreatedAt:        allocation.CreatedAt,
	}
}

func toAllocationResponses(allocations []*ar.Allocation) []AllocationResponse {
	responses := make([]AllocationResponse, 0, len(allocations))
	for _, allocation := range allocations {
		responses = append(responses, *toAllocationResponse(allocation))
	}
	return responses
}

func toCreditProfileResponse(profile *ar.CreditProfile) *CreditProfileResponse {
	return &CreditProfileResponse{
		ID:                profile.ID,
		CustomerID:        profile.CustomerID,
		CreditLimit:       profile.CreditLimit,
		CurrentBalance:    profile.CurrentBalance,
		AvailableCredit:   profile.AvailableCredit,
		OverdueAmount:     profile.OverdueAmount,
		DaysPastDue:       profile.DaysPastDue,
		PaymentTermsDays:  profile.PaymentTermsDays,
		CreditStatus:      profile.CreditStatus,
		CreditScore:       profile.CreditScore,
		ReliabilityScore:  profile.ReliabilityScore,
		UtilizationRatio:  profile.UtilizationRatio(),
		PaymentDelayCount: profile.PaymentDelayCount,
		LatePaymentCount:  profile.LatePaymentCount,
		AutoApprovalLimit: profile.AutoApprovalLimit,
		LastReviewDate:    profile.LastReviewDate,
		NextReviewDate:    profile.NextReviewDate,
	}
}

func toAgingSnapshotResponse(snapshot *ar.AgingSnapshot) *AgingSnapshotResponse {
	return &AgingSnapshotResponse{
		ID:                snapshot.ID,
		CustomerID:        snapshot.CustomerID,
		SnapshotDate:      snapshot.SnapshotDate,
		CurrentAmount:     snapshot.CurrentAmount,
		Days30Amount:      snapshot.Days30Amount,
		Days60Amount:      snapshot.Days60Amount,
		Days90Amount:      snapshot.Days90Amount,
		Days120PlusAmount: snapshot.Days120PlusAmount,
		TotalOutstanding:  snapshot.TotalOutstanding,
		RiskScore:         snapshot.RiskScore,
		InvoiceCount:      snapshot.InvoiceCount,
	}
}
