package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	SupplierID snowflake.ID
	Category   string
	Active     *bool
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, offer *Offer) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Offer, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]Offer, error)
	Update(ctx context.Context, db *gorm.DB, offer *Offer) error
}
