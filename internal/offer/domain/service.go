package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Deactivate(ctx context.Context, id string) (*Response, error)
}

type CreateRequest struct {
	SupplierID string         `json:"supplier_id"`
	SellerID   string         `json:"seller_id"`
	SKU        string         `json:"sku"`
	Name       string         `json:"name"`
	Category   string         `json:"category"`
	PriceCents int64          `json:"price_cents"`
	Metadata   map[string]any `json:"metadata"`
}

type ListRequest struct {
	SupplierID string
	Category   string
	Active     *bool
}

type Response struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organization_id"`
	SupplierID     string         `json:"supplier_id"`
	SellerID       string         `json:"seller_id"`
	SKU            string         `json:"sku"`
	Name           string         `json:"name"`
	Category       string         `json:"category,omitempty"`
	PriceCents     int64          `json:"price_cents"`
	Active         bool           `json:"active"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidSupplier     = errors.New("invalid_supplier")
	ErrInvalidSeller       = errors.New("invalid_seller")
	ErrInvalidSKU          = errors.New("invalid_sku")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("offer_not_found")
	ErrDuplicateSKU        = errors.New("duplicate_sku")
)
