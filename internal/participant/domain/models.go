package domain

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Type is the participant role in the relay network.
type Type string

const (
	TypeSeller   Type = "seller"
	TypeSupplier Type = "supplier"
	TypePartner  Type = "partner"
)

func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case TypeSeller, TypeSupplier, TypePartner:
		return Type(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, raw)
	}
}

// Status is the authorization state of a participant.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusRejected  Status = "rejected"
	StatusInactive  Status = "inactive"
)

// ParseStatus validates persisted text into a Status. Unknown values are
// rejected rather than defaulted.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusActive, StatusSuspended, StatusRejected, StatusInactive:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

// Action is an authorization workflow operation.
type Action string

const (
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionSuspend    Action = "suspend"
	ActionReactivate Action = "reactivate"
)

var transitions = map[Action]struct {
	From Status
	To   Status
}{
	ActionApprove:    {From: StatusPending, To: StatusActive},
	ActionReject:     {From: StatusPending, To: StatusRejected},
	ActionSuspend:    {From: StatusActive, To: StatusSuspended},
	ActionReactivate: {From: StatusSuspended, To: StatusActive},
}

// Transition returns the target status for an action applied to the given
// state, or ErrInvalidTransition for any other action/state pair.
func Transition(action Action, from Status) (Status, error) {
	rule, ok := transitions[action]
	if !ok || rule.From != from {
		return "", fmt.Errorf("%w: %s from %s", ErrInvalidTransition, action, from)
	}
	return rule.To, nil
}

type Participant struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID     snowflake.ID `json:"organization_id" gorm:"column:org_id;not null;index"`
	Type      Type         `json:"type" gorm:"type:text;not null"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Email     *string      `json:"email,omitempty" gorm:"type:text"`
	Status    Status       `json:"status" gorm:"type:text;not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Participant) TableName() string { return "participants" }

// StatusChange is an append-only audit record of a workflow transition.
// Rows are never updated or deleted.
type StatusChange struct {
	ID            snowflake.ID `json:"id" gorm:"primaryKey"`
	OrgID         snowflake.ID `json:"organization_id" gorm:"column:org_id;not null;index"`
	ParticipantID snowflake.ID `json:"participant_id" gorm:"not null;index"`
	FromStatus    Status       `json:"from_status" gorm:"type:text;not null"`
	ToStatus      Status       `json:"to_status" gorm:"type:text;not null"`
	ActorID       snowflake.ID `json:"actor_id" gorm:"not null"`
	Reason        *string      `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt     time.Time    `json:"created_at" gorm:"not null"`
}

func (StatusChange) TableName() string { return "participant_status_changes" }
