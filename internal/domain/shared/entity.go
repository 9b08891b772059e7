package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is the identity and timestamps of a persisted domain object
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity stamps a fresh id with the current time
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// BaseAggregateRoot is a BaseEntity whose changes are counted. Version starts
// at 1 and persistence stores it alongside the row.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

// NewBaseAggregateRoot starts a new aggregate at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// Changed records a mutation of the aggregate
func (a *BaseAggregateRoot) Changed() {
	a.Version++
	a.UpdatedAt = time.Now()
}
