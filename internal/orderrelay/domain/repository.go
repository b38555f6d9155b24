package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status     Status
	SellerID   snowflake.ID
	SupplierID snowflake.ID
	Unsettled  bool
}

// TransitionUpdate describes the write side of a lifecycle transition. The
// per-transition timestamp column is derived from To.
type TransitionUpdate struct {
	To             Status
	At             time.Time
	Carrier        *string
	TrackingNumber *string
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Order, error)
	FindByOrderRef(ctx context.Context, db *gorm.DB, orgID snowflake.ID, orderRef string) (*Order, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]Order, error)
	// Transition updates the row only while it still holds the expected
	// status; it reports the number of rows matched. A zero count means the
	// caller lost a concurrent transition and must re-read.
	Transition(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, from Status, update TransitionUpdate) (int64, error)
}
