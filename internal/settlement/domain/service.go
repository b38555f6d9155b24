package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Preview computes the settlement aggregate without persisting anything.
	Preview(ctx context.Context, req PeriodRequest) (*PreviewResponse, error)
	// Finalize re-runs the same selection atomically and persists an
	// immutable settlement. A concurrent finalize overlapping on any order
	// fails the whole call with ErrConflict and persists nothing.
	Finalize(ctx context.Context, req PeriodRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, participantID string) ([]Response, error)
}

type PeriodRequest struct {
	ParticipantID string    `json:"participant_id"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
}

type LineResponse struct {
	OrderID         string  `json:"order_id"`
	AmountCents     int64   `json:"amount_cents"`
	CommissionCents int64   `json:"commission_cents"`
	PolicyID        *string `json:"policy_id,omitempty"`
}

type PreviewResponse struct {
	ParticipantID        string         `json:"participant_id"`
	PeriodStart          time.Time      `json:"period_start"`
	PeriodEnd            time.Time      `json:"period_end"`
	TotalAmountCents     int64          `json:"total_amount_cents"`
	TotalCommissionCents int64          `json:"total_commission_cents"`
	NetPayableCents      int64          `json:"net_payable_cents"`
	OrderCount           int            `json:"order_count"`
	Lines                []LineResponse `json:"lines"`
}

type Response struct {
	ID                   string           `json:"id"`
	OrganizationID       string           `json:"organization_id"`
	ParticipantID        string           `json:"participant_id"`
	PeriodStart          time.Time        `json:"period_start"`
	PeriodEnd            time.Time        `json:"period_end"`
	TotalAmountCents     int64            `json:"total_amount_cents"`
	TotalCommissionCents int64            `json:"total_commission_cents"`
	NetPayableCents      int64            `json:"net_payable_cents"`
	OrderCount           int              `json:"order_count"`
	Status               SettlementStatus `json:"status"`
	Lines                []LineResponse   `json:"lines,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidParticipant  = errors.New("invalid_participant")
	ErrInvalidPeriod       = errors.New("invalid_period")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("settlement_not_found")
	ErrConflict            = errors.New("settlement_conflict")
)
