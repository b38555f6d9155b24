package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Offer is a supplier's product made sellable at a price. It becomes inert
// (not orderable) while the owning supplier is not eligible.
type Offer struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrgID      snowflake.ID      `json:"organization_id" gorm:"column:org_id;not null;uniqueIndex:ux_offers_org_sku,priority:1"`
	SupplierID snowflake.ID      `json:"supplier_id" gorm:"not null;index"`
	SellerID   snowflake.ID      `json:"seller_id" gorm:"not null;index"`
	SKU        string            `json:"sku" gorm:"type:text;not null;uniqueIndex:ux_offers_org_sku,priority:2"`
	Name       string            `json:"name" gorm:"type:text;not null"`
	Category   string            `json:"category" gorm:"type:text;not null;default:''"`
	PriceCents int64             `json:"price_cents" gorm:"not null"`
	Active     bool              `json:"active" gorm:"not null;default:true"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time         `json:"updated_at" gorm:"not null"`
}

func (Offer) TableName() string { return "offers" }
