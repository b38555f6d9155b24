package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Relay(ctx context.Context, id string) (*Response, error)
	Confirm(ctx context.Context, id string) (*Response, error)
	Ship(ctx context.Context, req ShipRequest) (*Response, error)
	Deliver(ctx context.Context, id string) (*Response, error)
	Cancel(ctx context.Context, id string) (*Response, error)
	Refund(ctx context.Context, id string) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
}

type CreateRequest struct {
	OrderRef    string         `json:"order_ref"`
	BuyerRef    string         `json:"buyer_ref"`
	SellerID    string         `json:"seller_id"`
	PartnerID   *string        `json:"partner_id"`
	OfferID     string         `json:"offer_id"`
	AmountCents int64          `json:"amount_cents"`
	Metadata    map[string]any `json:"metadata"`
}

type ShipRequest struct {
	ID             string
	Carrier        *string `json:"carrier"`
	TrackingNumber *string `json:"tracking_number"`
}

type ListRequest struct {
	Status     string
	SellerID   string
	SupplierID string
}

type Response struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	OrderRef       string         `json:"order_ref"`
	BuyerRef       string         `json:"buyer_ref"`
	SellerID       string         `json:"seller_id"`
	SupplierID     string         `json:"supplier_id"`
	PartnerID      *string        `json:"partner_id,omitempty"`
	OfferID        string         `json:"offer_id"`
	AmountCents    int64          `json:"amount_cents"`
	Category       string         `json:"category,omitempty"`
	Status         Status         `json:"status"`
	Carrier        *string        `json:"carrier,omitempty"`
	TrackingNumber *string        `json:"tracking_number,omitempty"`
	RelayedAt      *time.Time     `json:"relayed_at,omitempty"`
	ConfirmedAt    *time.Time     `json:"confirmed_at,omitempty"`
	ShippedAt      *time.Time     `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	CancelledAt    *time.Time     `json:"cancelled_at,omitempty"`
	RefundedAt     *time.Time     `json:"refunded_at,omitempty"`
	SettlementID   *string        `json:"settlement_id,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidOrderRef     = errors.New("invalid_order_ref")
	ErrInvalidSeller       = errors.New("invalid_seller")
	ErrInvalidPartner      = errors.New("invalid_partner")
	ErrInvalidOffer        = errors.New("invalid_offer")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidStatus       = errors.New("invalid_order_status")
	ErrOfferNotFound       = errors.New("offer_not_found")
	ErrOfferInactive       = errors.New("offer_inactive")
	ErrNotFound            = errors.New("order_not_found")
	ErrInvalidTransition   = errors.New("invalid_order_transition")
)
