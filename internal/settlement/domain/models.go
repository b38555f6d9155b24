package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SettlementStatus has a single value: settlements only exist finalized.
// Previews are never persisted.
type SettlementStatus string

const StatusFinalized SettlementStatus = "finalized"

// Settlement is an immutable batch of delivered, commission-computed orders
// for one participant over one period.
type Settlement struct {
	ID            snowflake.ID     `json:"id" gorm:"primaryKey"`
	OrgID         snowflake.ID     `json:"organization_id" gorm:"column:org_id;not null;index"`
	ParticipantID snowflake.ID     `json:"participant_id" gorm:"not null;index"`
	PeriodStart   time.Time        `json:"period_start" gorm:"not null"`
	PeriodEnd     time.Time        `json:"period_end" gorm:"not null"`
	TotalAmount   int64            `json:"total_amount_cents" gorm:"column:total_amount_cents;not null"`
	TotalComm     int64            `json:"total_commission_cents" gorm:"column:total_commission_cents;not null"`
	NetPayable    int64            `json:"net_payable_cents" gorm:"column:net_payable_cents;not null"`
	OrderCount    int              `json:"order_count" gorm:"not null"`
	Status        SettlementStatus `json:"status" gorm:"type:text;not null"`
	CreatedAt     time.Time        `json:"created_at" gorm:"not null"`
}

func (Settlement) TableName() string { return "settlements" }

// Line records one order's contribution to a settlement. The unique index on
// order_id is the global guarantee that an order is settled at most once.
type Line struct {
	ID           snowflake.ID  `json:"id" gorm:"primaryKey"`
	OrgID        snowflake.ID  `json:"organization_id" gorm:"column:org_id;not null;index"`
	SettlementID snowflake.ID  `json:"settlement_id" gorm:"not null;index"`
	OrderID      snowflake.ID  `json:"order_id" gorm:"not null;uniqueIndex:ux_settlement_lines_order"`
	AmountCents  int64         `json:"amount_cents" gorm:"not null"`
	Commission   int64         `json:"commission_cents" gorm:"column:commission_cents;not null"`
	PolicyID     *snowflake.ID `json:"policy_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at" gorm:"not null"`
}

func (Line) TableName() string { return "settlement_lines" }
