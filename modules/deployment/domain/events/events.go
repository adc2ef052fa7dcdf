package events

import (
	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

// Events published on the application event bus after a workflow write
// commits. Delivery and formatting are the notification collaborator's
// responsibility; the engine only emits.

type SiteTransitioned struct {
	SiteID        uuid.UUID
	Dimension     sitestatus.Dimension
	FromStatus    sitestatus.State
	ToStatus      sitestatus.State
	OverallStatus sitestatus.Overall
	ActorID       uuid.UUID
	ActorRole     sitestatus.Role
	Reason        string
	AdminOverride bool
	Recipients    []uuid.UUID
}

type SiteArchived struct {
	SiteID  uuid.UUID
	ActorID uuid.UUID
	Reason  string
}

type ProposalSubmitted struct {
	Kind       string
	ProposalID uuid.UUID
	SiteID     uuid.UUID
	Version    int
	ActorID    uuid.UUID
	Recipients []uuid.UUID
}

type ProposalReviewed struct {
	Kind       string
	ProposalID uuid.UUID
	SiteID     uuid.UUID
	Version    int
	Outcome    sitestatus.State
	ReviewerID uuid.UUID
	Comment    string
	Recipients []uuid.UUID
}
