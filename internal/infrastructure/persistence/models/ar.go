package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/ar"
)

// PaymentReceiptModel is the persistence model for the PaymentReceipt
// aggregate root.
type PaymentReceiptModel struct {
	AuditedAggregateModel
	ReceiptNumber     string            `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	PaymentMethod     ar.PaymentMethod  `gorm:"type:varchar(20);not null"`
	TotalAmount       decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	AllocatedAmount   decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	UnallocatedAmount decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	PaymentDate       time.Time         `gorm:"not null;index"`
	Status            ar.ReceiptStatus  `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	WorkflowStatus    ar.WorkflowStatus `gorm:"type:varchar(30);not null;default:'PENDING_VERIFICATION';index"`
	RequiresApproval  bool              `gorm:"not null;default:false"`
	VerifiedBy        *uuid.UUID        `gorm:"type:uuid"`
	VerifiedAt        *time.Time
	ApprovedBy        *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt        *time.Time
	RejectedBy        *uuid.UUID `gorm:"type:uuid"`
	RejectedAt        *time.Time
	RejectReason      string `gorm:"type:varchar(500)"`
	Notes             string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (PaymentReceiptModel) TableName() string {
	return "payment_receipts"
}

// ToDomain converts the persistence model to a domain PaymentReceipt entity.
func (m *PaymentReceiptModel) ToDomain() *ar.PaymentReceipt {
	return &ar.PaymentReceipt{
		AuditedAggregateRoot: m.ToDomainAuditedAggregateRoot(),
		ReceiptNumber:        m.ReceiptNumber,
		CustomerID:           m.CustomerID,
		PaymentMethod:        m.PaymentMethod,
		TotalAmount:          m.TotalAmount,
		AllocatedAmount:      m.AllocatedAmount,
		UnallocatedAmount:    m.UnallocatedAmount,
		PaymentDate:          m.PaymentDate,
		Status:               m.Status,
		WorkflowStatus:       m.WorkflowStatus,
		RequiresApproval:     m.RequiresApproval,
		VerifiedBy:           m.VerifiedBy,
		VerifiedAt:           m.VerifiedAt,
		ApprovedBy:           m.ApprovedBy,
		ApprovedAt:           m.ApprovedAt,
		RejectedBy:           m.RejectedBy,
		RejectedAt:           m.RejectedAt,
		RejectReason:         m.RejectReason,
		Notes:                m.Notes,
	}
}

// FromDomain populates the persistence model from a domain PaymentReceipt entity.
func (m *PaymentReceiptModel) FromDomain(receipt *ar.PaymentReceipt) {
	m.FromDomainAuditedAggregateRoot(receipt.AuditedAggregateRoot)
	m.ReceiptNumber = receipt.ReceiptNumber
	m.CustomerID = receipt.CustomerID
	m.PaymentMethod = receipt.PaymentMethod
	m.TotalAmount = receipt.TotalAmount
	m.AllocatedAmount = receipt.AllocatedAmount
	m.UnallocatedAmount = receipt.UnallocatedAmount
	m.PaymentDate = receipt.PaymentDate
	m.Status = receipt.Status
	m.WorkflowStatus = receipt.WorkflowStatus
	m.RequiresApproval = receipt.RequiresApproval
	m.VerifiedBy = receipt.VerifiedBy
	m.VerifiedAt = receipt.VerifiedAt
	m.ApprovedBy = receipt.ApprovedBy
	m.ApprovedAt = receipt.ApprovedAt
	m.RejectedBy = receipt.RejectedBy
	m.RejectedAt = receipt.RejectedAt
	m.RejectReason = receipt.RejectReason
	m.Notes = receipt.Notes
}

// PaymentReceiptModelFromDomain creates a new persistence model from a
// domain PaymentReceipt.
func PaymentReceiptModelFromDomain(receipt *ar.PaymentReceipt) *PaymentReceiptModel {
	m := &PaymentReceiptModel{}
	m.FromDomain(receipt)
	return m
}

// AllocationModel is the persistence model for the Allocation aggregate root.
type AllocationModel struct {
	AuditedAggregateModel
	PaymentReceiptID uuid.UUID           `gorm:"type:uuid;not null;index"`
	InvoiceID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	CustomerID       uuid.UUID           `gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	AllocationDate   time.Time           `gorm:"not null"`
	AllocationType   ar.AllocationType   `gorm:"type:varchar(20);not null"`
	Status           ar.AllocationStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	AppliedAt        *time.Time
	ReversedAt       *time.Time
	ReversalReason   string `gorm:"type:varchar(500)"`
	CancelledAt      *time.Time
	Notes            string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the persistence model to a domain Allocation entity.
func (m *AllocationModel) ToDomain() *ar.Allocation {
	return &ar.Allocation{
		AuditedAggregateRoot: m.ToDomainAuditedAggregateRoot(),
		PaymentReceiptID:     m.PaymentReceiptID,
		InvoiceID:            m.InvoiceID,
		CustomerID:           m.CustomerID,
		Amount:               m.Amount,
		AllocationDate:       m.AllocationDate,
		AllocationType:       m.AllocationType,
		Status:               m.Status,
		AppliedAt:            m.AppliedAt,
		ReversedAt:           m.ReversedAt,
		ReversalReason:       m.ReversalReason,
		CancelledAt:          m.CancelledAt,
		Notes:                m.Notes,
	}
}

// FromDomain populates the persistence model from a domain Allocation entity.
func (m *AllocationModel) FromDomain(allocation *ar.Allocation) {
	m.FromDomainAuditedAggregateRoot(allocation.AuditedAggregateRoot)
	m.PaymentReceiptID = allocation.PaymentReceiptID
	m.InvoiceID = allocation.InvoiceID
	m.CustomerID = allocation.CustomerID
	m.Amount = allocation.Amount
	m.AllocationDate = allocation.AllocationDate
	m.AllocationType = allocation.AllocationType
	m.Status = allocation.Status
	m.AppliedAt = allocation.AppliedAt
	m.ReversedAt = allocation.ReversedAt
	m.ReversalReason = allocation.ReversalReason
	m.CancelledAt = allocation.CancelledAt
	m.Notes = allocation.Notes
}

// AllocationModelFromDomain creates a new persistence model from a domain
// Allocation.
func AllocationModelFromDomain(allocation *ar.Allocation) *AllocationModel {
	m := &AllocationModel{}
	m.FromDomain(allocation)
	return m
}

// CreditProfileModel is the persistence model for the CreditProfile
// aggregate root.
type CreditProfileModel struct {
	AggregateModel
	CustomerID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	CreditLimit       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CurrentBalance    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AvailableCredit   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	OverdueAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DaysPastDue       int             `gorm:"not null;default:0"`
	PaymentTermsDays  int             `gorm:"not null;default:30"`
	CreditStatus      ar.CreditStatus `gorm:"type:varchar(20);not null;default:'GOOD';index"`
	CreditScore       decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	ReliabilityScore  decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	PaymentDelayCount int             `gorm:"not null;default:0"`
	LatePaymentCount  int             `gorm:"not null;default:0"`
	AutoApprovalLimit decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	LastReviewDate    *time.Time
	NextReviewDate    *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (CreditProfileModel) TableName() string {
	return "credit_profiles"
}

// ToDomain converts the persistence model to a domain CreditProfile entity.
func (m *CreditProfileModel) ToDomain() *ar.CreditProfile {
	return &ar.CreditProfile{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CustomerID:        m.CustomerID,
		CreditLimit:       m.CreditLimit,
		CurrentBalance:    m.CurrentBalance,
		AvailableCredit:   m.AvailableCredit,
		OverdueAmount:     m.OverdueAmount,
		DaysPastDue:       m.DaysPastDue,
		PaymentTermsDays:  m.PaymentTermsDays,
		CreditStatus:      m.CreditStatus,
		CreditScore:       m.CreditScore,
		ReliabilityScore:  m.ReliabilityScore,
		PaymentDelayCount: m.PaymentDelayCount,
		LatePaymentCount:  m.LatePaymentCount,
		AutoApprovalLimit: m.AutoApprovalLimit,
		LastReviewDate:    m.LastReviewDate,
		NextReviewDate:    m.NextReviewDate,
	}
}

// FromDomain populates the persistence model from a domain CreditProfile entity.
func (m *CreditProfileModel) FromDomain(profile *ar.CreditProfile) {
	m.FromDomainAggregateRoot(profile.BaseAggregateRoot)
	m.CustomerID = profile.CustomerID
	m.CreditLimit = profile.CreditLimit
	m.CurrentBalance = profile.CurrentBalance
	m.AvailableCredit = profile.AvailableCredit
	m.OverdueAmount = profile.OverdueAmount
	m.DaysPastDue = profile.DaysPastDue
	m.PaymentTermsDays = profile.PaymentTermsDays
	m.CreditStatus = profile.CreditStatus
	m.CreditScore = profile.CreditScore
	m.ReliabilityScore = profile.ReliabilityScore
	m.PaymentDelayCount = profile.PaymentDelayCount
	m.LatePaymentCount = profile.LatePaymentCount
	m.AutoApprovalLimit = profile.AutoApprovalLimit
	m.LastReviewDate = profile.LastReviewDate
	m.NextReviewDate = profile.NextReviewDate
}

// CreditProfileModelFromDomain creates a new persistence model from a
// domain CreditProfile.
func CreditProfileModelFromDomain(profile *ar.CreditProfile) *CreditProfileModel {
	m := &CreditProfileModel{}
	m.FromDomain(profile)
	return m
}

// AgingSnapshotModel is the persistence model for the AgingSnapshot
// aggregate root.
type AgingSnapshotModel struct {
	AggregateModel
	CustomerID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_customer_date,priority:1"`
	SnapshotDate      time.Time       `gorm:"not null;uniqueIndex:idx_snapshot_customer_date,priority:2;index"`
	CurrentAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Days30Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Days60Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Days90Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Days120PlusAmount decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalOutstanding  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	RiskScore         decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	InvoiceCount      int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (AgingSnapshotModel) TableName() string {
	return "aging_snapshots"
}

// ToDomain converts the persistence model to a domain AgingSnapshot entity.
func (m *AgingSnapshotModel) ToDomain() *ar.AgingSnapshot {
	return &ar.AgingSnapshot{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CustomerID:        m.CustomerID,
		SnapshotDate:      m.SnapshotDate,
		CurrentAmount:     m.CurrentAmount,
		Days30Amount:      m.Days30Amount,
		Days60Amount:      m.Days60Amount,
		Days90Amount:      m.Days90Amount,
		Days120PlusAmount: m.Days120PlusAmount,
		TotalOutstanding:  m.TotalOutstanding,
		RiskScore:         m.RiskScore,
		InvoiceCount:      m.InvoiceCount,
	}
}

// FromDomain populates the persistence model from a domain AgingSnapshot entity.
func (m *AgingSnapshotModel) FromDomain(snapshot *ar.AgingSnapshot) {
	m.FromDomainAggregateRoot(snapshot.BaseAggregateRoot)
	m.CustomerID = snapshot.CustomerID
	m.SnapshotDate = snapshot.SnapshotDate
	m.CurrentAmount = snapshot.CurrentAmount
	m.Days30Amount = snapshot.Days30Amount
	m.Days60Amount = snapshot.Days60Amount
	m.Days90Amount = snapshot.Days90Amount
	m.Days120PlusAmount = snapshot.Days120PlusAmount
	m.TotalOutstanding = snapshot.TotalOutstanding
	m.RiskScore = snapshot.RiskScore
	m.InvoiceCount = snapshot.InvoiceCount
}

// AgingSnapshotModelFromDomain creates a new persistence model from a
// domain AgingSnapshot.
func AgingSnapshotModelFromDomain(snapshot *ar.AgingSnapshot) *AgingSnapshotModel {
	m := &AgingSnapshotModel{}
	m.FromDomain(snapshot)
	return m
}
