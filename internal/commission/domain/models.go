package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PolicyType determines how commission is computed.
type PolicyType string

const (
	PolicyTypePercentage PolicyType = "percentage"
	PolicyTypeFixed      PolicyType = "fixed"
)

func ParsePolicyType(raw string) (PolicyType, error) {
	switch PolicyType(raw) {
	case PolicyTypePercentage, PolicyTypeFixed:
		return PolicyType(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicyType, raw)
	}
}

// Scope determines which transactions a policy applies to.
type Scope string

const (
	ScopeGlobal   Scope = "global"
	ScopeCategory Scope = "category"
	ScopeProduct  Scope = "product"
)

func ParseScope(raw string) (Scope, error) {
	switch Scope(raw) {
	case ScopeGlobal, ScopeCategory, ScopeProduct:
		return Scope(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
}

// specificity orders scopes for tie-breaking; higher wins.
func (s Scope) specificity() int {
	switch s {
	case ScopeProduct:
		return 2
	case ScopeCategory:
		return 1
	default:
		return 0
	}
}

type Policy struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID            snowflake.ID `json:"organization_id" gorm:"column:org_id;not null;index"`
	Type             PolicyType   `json:"type" gorm:"type:text;not null"`
	RateBasisPoints  int64        `json:"rate_basis_points" gorm:"not null;default:0"`
	FixedAmountCents int64        `json:"fixed_amount_cents" gorm:"not null;default:0"`
	Scope            Scope        `json:"scope" gorm:"type:text;not null"`
	CategoryCode     string       `json:"category_code" gorm:"type:text;not null;default:''"`
	ProductID        snowflake.ID `json:"product_id" gorm:"not null;default:0"`
	Priority         int          `json:"priority" gorm:"not null;default:100"`
	Active           bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt        time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null"`
}

func (Policy) TableName() string { return "commission_policies" }
