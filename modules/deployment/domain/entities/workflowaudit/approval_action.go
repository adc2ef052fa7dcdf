package workflowaudit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

// ApprovalKind distinguishes the two independent approval chains.
type ApprovalKind string

const (
	KindScoping ApprovalKind = "scoping"
	KindCosting ApprovalKind = "costing"
)

type ActionType string

const (
	ActionSubmit   ActionType = "submit"
	ActionApprove  ActionType = "approve"
	ActionReject   ActionType = "reject"
	ActionResubmit ActionType = "resubmit"
)

// ApprovalAction is one row per action taken on a proposal version.
// Append-only, written in the same transaction as the action it documents.
type ApprovalAction struct {
	ID           uuid.UUID
	ApprovalKind ApprovalKind
	ApprovalID   uuid.UUID
	SiteID       uuid.UUID
	Action       ActionType
	PerformedBy  uuid.UUID
	Role         sitestatus.Role
	Comment      string
	Metadata     json.RawMessage
	CreatedAt    time.Time
}

type ActionFindParams struct {
	ApprovalKind ApprovalKind
	ApprovalID   uuid.UUID
	SiteID       uuid.UUID
	Limit        int
	Offset       int
}

type ActionRepository interface {
	Append(ctx context.Context, action *ApprovalAction) error
	// List returns actions ordered by creation time ascending.
	List(ctx context.Context, params *ActionFindParams) ([]*ApprovalAction, error)
}
