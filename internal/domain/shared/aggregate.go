package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is implemented by entities that own a consistency
// boundary. Aggregates carry a version for optimistic locking and
// buffer domain events until the application layer publishes them.
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot is the embeddable default AggregateRoot.
type BaseAggregateRoot struct {
	BaseEntity
	Version      int
	domainEvents []DomainEvent
}

// GetVersion returns the version used for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion bumps the lock version and the update timestamp
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
	a.Touch()
}

// AddDomainEvent buffers an event raised by a state transition
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns the buffered, not yet published events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents drops the buffer after publishing
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates an aggregate base at version one
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}

// AuditedAggregateRoot extends BaseAggregateRoot with creator tracking.
// Every workflow transition in this system records the acting user
// explicitly; the creator is recorded here once at construction.
type AuditedAggregateRoot struct {
	BaseAggregateRoot
	CreatedBy *uuid.UUID
}

// NewAuditedAggregateRoot creates a new aggregate root with creator info
func NewAuditedAggregateRoot(createdBy uuid.UUID) AuditedAggregateRoot {
	return AuditedAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		CreatedBy:         &createdBy,
	}
}

// GetCreatedBy returns the creator user ID
func (a *AuditedAggregateRoot) GetCreatedBy() *uuid.UUID {
	return a.CreatedBy
}
