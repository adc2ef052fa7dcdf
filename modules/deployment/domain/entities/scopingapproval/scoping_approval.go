package scopingapproval

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

// ScopingApproval is one immutable version of a site's scoping submission:
// the proposed hardware/software scope plus its computed cost breakdown.
// Versions are superseded, never edited; the only mutation a row ever sees is
// its review outcome.
type ScopingApproval struct {
	ID                   uuid.UUID
	SiteID               uuid.UUID
	SiteName             string
	DeploymentEngineerID uuid.UUID
	OpsManagerID         *uuid.UUID
	Status               sitestatus.State
	ScopingData          json.RawMessage
	CostBreakdown        json.RawMessage
	Version              int
	PreviousVersionID    *uuid.UUID
	SubmittedAt          time.Time
	ReviewedAt           *time.Time
	ReviewedBy           *uuid.UUID
	ReviewComment        string
	RejectionReason      string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (a *ScopingApproval) IsPending() bool {
	return a.Status == sitestatus.StatePendingReview
}
