package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/arledger/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.RehydrateBaseEntity(m.ID, m.CreatedAt, m.UpdatedAt)
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// ToDomainAggregateRoot converts AggregateModel to domain BaseAggregateRoot
func (m *AggregateModel) ToDomainAggregateRoot() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: m.ToDomain(),
		Version:    m.Version,
	}
}

// AuditedAggregateModel provides common persistence fields for aggregate
// roots that record their creator.
type AuditedAggregateModel struct {
	AggregateModel
	CreatedBy *uuid.UUID `gorm:"type:uuid;index"`
}

// FromDomainAuditedAggregateRoot populates AuditedAggregateModel from
// domain AuditedAggregateRoot
func (m *AuditedAggregateModel) FromDomainAuditedAggregateRoot(a shared.AuditedAggregateRoot) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.CreatedBy = a.CreatedBy
}

// ToDomainAuditedAggregateRoot converts AuditedAggregateModel to domain
// AuditedAggregateRoot
func (m *AuditedAggregateModel) ToDomainAuditedAggregateRoot() shared.AuditedAggregateRoot {
	return shared.AuditedAggregateRoot{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CreatedBy:         m.CreatedBy,
	}
}
