package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Apply(ctx context.Context, req ApplyRequest) (*Response, error)
	Act(ctx context.Context, req ActionRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	History(ctx context.Context, id string) ([]ChangeResponse, error)
	// Eligible reports whether a participant may join new relay flows.
	// Returns nil, ErrNotFound, or ErrNotEligible.
	Eligible(ctx context.Context, id snowflake.ID) error
}

type ApplyRequest struct {
	Type  string  `json:"type"`
	Name  string  `json:"name"`
	Email *string `json:"email"`
}

type ActionRequest struct {
	ID      string
	Action  Action
	ActorID string
	Reason  *string
}

type ListRequest struct {
	Type   string
	Status string
}

type Response struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Type           Type      `json:"type"`
	Name           string    `json:"name"`
	Email          *string   `json:"email,omitempty"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ChangeResponse struct {
	ID         string    `json:"id"`
	FromStatus Status    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	ActorID    string    `json:"actor_id"`
	Reason     *string   `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidType         = errors.New("invalid_type")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidActor        = errors.New("invalid_actor")
	ErrInvalidStatus       = errors.New("invalid_status")
	ErrNotFound            = errors.New("participant_not_found")
	ErrInvalidTransition   = errors.New("invalid_transition")
	ErrNotEligible         = errors.New("participant_not_eligible")
	ErrNotEnabled          = errors.New("authorization_not_enabled")
)
