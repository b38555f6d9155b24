package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Deactivate(ctx context.Context, id string) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Simulate(ctx context.Context, req SimulateRequest) (*SimulateResponse, error)
}

type CreateRequest struct {
	Type             string `json:"type"`
	RateBasisPoints  int64  `json:"rate_basis_points"`
	FixedAmountCents int64  `json:"fixed_amount_cents"`
	Scope            string `json:"scope"`
	CategoryCode     string `json:"category_code"`
	ProductID        string `json:"product_id"`
	Priority         *int   `json:"priority"`
}

type UpdateRequest struct {
	ID               string
	RateBasisPoints  *int64 `json:"rate_basis_points"`
	FixedAmountCents *int64 `json:"fixed_amount_cents"`
	Priority         *int   `json:"priority"`
	Active           *bool  `json:"active"`
}

type ListRequest struct {
	Active *bool
	Scope  string
}

type SimulateRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Category    string `json:"category"`
	ProductID   string `json:"product_id"`
}

type SimulateResponse struct {
	CommissionCents int64   `json:"commission_cents"`
	PolicyID        *string `json:"policy_id,omitempty"`
}

type Response struct {
	ID               string     `json:"id"`
	OrganizationID   string     `json:"organization_id"`
	Type             PolicyType `json:"type"`
	RateBasisPoints  int64      `json:"rate_basis_points"`
	FixedAmountCents int64      `json:"fixed_amount_cents"`
	Scope            Scope      `json:"scope"`
	CategoryCode     string     `json:"category_code,omitempty"`
	ProductID        *string    `json:"product_id,omitempty"`
	Priority         int        `json:"priority"`
	Active           bool       `json:"active"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidPolicyType   = errors.New("invalid_policy_type")
	ErrInvalidScope        = errors.New("invalid_scope")
	ErrInvalidRate         = errors.New("invalid_rate")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("policy_not_found")
	ErrPolicyImmutable     = errors.New("policy_immutable")
)
