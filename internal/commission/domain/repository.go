package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Active *bool
	Scope  Scope
}

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, policy *Policy) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Policy, error)
	FindActive(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]Policy, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListFilter) ([]Policy, error)
	Update(ctx context.Context, db *gorm.DB, policy *Policy) error
	// CountSettlementRefs reports how many finalized settlement lines
	// reference the policy; a referenced policy is immutable.
	CountSettlementRefs(ctx context.Context, db *gorm.DB, orgID, policyID snowflake.ID) (int64, error)
}
