package workflowaudit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

// Archiving a site is logged in the same trail as status transitions, under
// its own dimension label since it is not part of any dimension's graph.
const (
	ArchiveDimension = sitestatus.Dimension("archive")
	StateActive      = sitestatus.State("active")
	StateArchived    = sitestatus.State("archived")
)

// Entry is one row per status transition. Entries are created exclusively by
// the workflow service in the same transaction as the status change they
// document, and are never updated or deleted.
type Entry struct {
	ID            uuid.UUID
	SiteID        uuid.UUID
	Dimension     sitestatus.Dimension
	FromStatus    sitestatus.State
	ToStatus      sitestatus.State
	OverallStatus sitestatus.Overall
	UserID        uuid.UUID
	UserRole      sitestatus.Role
	Reason        string
	AdminOverride bool
	CreatedAt     time.Time
}

type FindParams struct {
	SiteID    uuid.UUID
	Dimension sitestatus.Dimension
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	// List returns entries ordered by creation time ascending.
	List(ctx context.Context, params *FindParams) ([]*Entry, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
}
