package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Type   Type
	Status Status
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, p *Participant) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Participant, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]Participant, error)
	// UpdateStatus transitions the row only when it still holds the expected
	// status; it reports the number of rows matched.
	UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, from, to Status) (int64, error)
	AppendStatusChange(ctx context.Context, db *gorm.DB, change *StatusChange) error
	FindStatusChanges(ctx context.Context, db *gorm.DB, orgID, participantID snowflake.ID) ([]StatusChange, error)
}
