package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Status is the relay lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRelayed   Status = "relayed"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// ParseStatus validates persisted text into a Status. Unknown values are
// rejected rather than defaulted.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusRelayed, StatusConfirmed, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

var transitions = map[Status][]Status{
	StatusPending:   {StatusRelayed, StatusCancelled},
	StatusRelayed:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {StatusRefunded},
}

// CanTransition reports whether from→to is a legal lifecycle move.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Relayed reports whether the order has reached RELAYED on the main
// lifecycle path. Used by the idempotent relay operation: a relay call on an
// order already at or past RELAYED returns the current row unchanged.
func (s Status) Relayed() bool {
	switch s {
	case StatusRelayed, StatusConfirmed, StatusShipped, StatusDelivered:
		return true
	default:
		return false
	}
}

// Order is one buyer order relayed through the network. The (org_id,
// order_ref) unique index collapses concurrent dispatches of the same buyer
// order into a single row; losers of the race observe the winner's row.
type Order struct {
	ID         snowflake.ID  `json:"id" gorm:"primaryKey"`
	OrgID      snowflake.ID  `json:"organization_id" gorm:"column:org_id;not null;uniqueIndex:ux_orders_org_ref,priority:1"`
	OrderRef   string        `json:"order_ref" gorm:"type:text;not null;uniqueIndex:ux_orders_org_ref,priority:2"`
	BuyerRef   string        `json:"buyer_ref" gorm:"type:text;not null"`
	SellerID   snowflake.ID  `json:"seller_id" gorm:"not null;index"`
	SupplierID snowflake.ID  `json:"supplier_id" gorm:"not null;index"`
	PartnerID  *snowflake.ID `json:"partner_id,omitempty"`
	OfferID    snowflake.ID  `json:"offer_id" gorm:"not null"`

	AmountCents int64  `json:"amount_cents" gorm:"not null"`
	Category    string `json:"category" gorm:"type:text;not null;default:''"`
	Status      Status `json:"status" gorm:"type:text;not null;index"`

	Carrier        *string `json:"carrier,omitempty" gorm:"type:text"`
	TrackingNumber *string `json:"tracking_number,omitempty" gorm:"type:text"`

	RelayedAt   *time.Time `json:"relayed_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`

	SettlementID *snowflake.ID     `json:"settlement_id,omitempty" gorm:"index"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt    time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt    time.Time         `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "order_relays" }
