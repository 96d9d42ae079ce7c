package ar

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arledger/backend/internal/domain/shared"
)

// Event types for the credit profile aggregate
const (
	EventCreditProfileCreated = "credit_profile.created"
	EventCreditStatusChanged  = "credit_profile.status_changed"
	EventCreditLimitAdjusted  = "credit_profile.limit_adjusted"
)

const creditProfileAggregateType = "CreditProfile"

// CreditProfileCreatedEvent is raised when a profile is lazily created
type CreditProfileCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID  uuid.UUID       `json:"customer_id"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

// NewCreditProfileCreatedEvent creates a new profile created event
func NewCreditProfileCreatedEvent(profile *CreditProfile) *CreditProfileCreatedEvent {
	return &CreditProfileCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventCreditProfileCreated, creditProfileAggregateType, profile.ID),
		CustomerID:      profile.CustomerID,
		CreditLimit:     profile.CreditLimit,
	}
}

// CreditStatusChangedEvent is raised when the risk gate changes
type CreditStatusChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID     uuid.UUID    `json:"customer_id"`
	PreviousStatus CreditStatus `json:"previous_status"`
	NewStatus      CreditStatus `json:"new_status"`
	DaysPastDue    int          `json:"days_past_due"`
}

// NewCreditStatusChangedEvent creates a new status changed event
func NewCreditStatusChangedEvent(profile *CreditProfile, previous CreditStatus) *CreditStatusChangedEvent {
	return &CreditStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventCreditStatusChanged, creditProfileAggregateType, profile.ID),
		CustomerID:      profile.CustomerID,
		PreviousStatus:  previous,
		NewStatus:       profile.CreditStatus,
		DaysPastDue:     profile.DaysPastDue,
	}
}

// CreditLimitAdjustedEvent is raised on a manual limit change
type CreditLimitAdjustedEvent struct {
	shared.BaseDomainEvent
	CustomerID    uuid.UUID       `json:"customer_id"`
	PreviousLimit decimal.Decimal `json:"previous_limit"`
	NewLimit      decimal.Decimal `json:"new_limit"`
	AdjustedBy    uuid.UUID       `json:"adjusted_by"`
	Reason        string          `json:"reason"`
}

// NewCreditLimitAdjustedEvent creates a new limit adjusted event
func NewCreditLimitAdjustedEvent(profile *CreditProfile, previousLimit decimal.Decimal, adjustedBy uuid.UUID, reason string) *CreditLimitAdjustedEvent {
	return &CreditLimitAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventCreditLimitAdjusted, creditProfileAggregateType, profile.ID),
		CustomerID:      profile.CustomerID,
		PreviousLimit:   previousLimit,
		NewLimit:        profile.CreditLimit,
		AdjustedBy:      adjustedBy,
		Reason:          reason,
	}
}
