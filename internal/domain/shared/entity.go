package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is implemented by every domain entity.
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
	GetUpdatedAt() time.Time
}

// BaseEntity carries the identity and lifecycle timestamps shared by
// all entities. Embed it by value.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity returns a fresh entity base with a generated ID and
// both timestamps set to now.
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return RehydrateBaseEntity(uuid.New(), now, now)
}

// RehydrateBaseEntity rebuilds an entity base from persisted state.
func RehydrateBaseEntity(id uuid.UUID, createdAt, updatedAt time.Time) BaseEntity {
	return BaseEntity{
		ID:        id,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// GetCreatedAt returns the creation timestamp
func (e *BaseEntity) GetCreatedAt() time.Time {
	return e.CreatedAt
}

// GetUpdatedAt returns the last update timestamp
func (e *BaseEntity) GetUpdatedAt() time.Time {
	return e.UpdatedAt
}

// Touch refreshes the update timestamp
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}
