package site

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

var (
	ErrNotFound = errors.New("site not found")
	// ErrStatusChanged: the expected dimension state no longer matches the
	// stored row; the caller read stale data and must re-read before retrying.
	ErrStatusChanged = errors.New("site status changed since read")
)

type FindParams struct {
	OrganizationID  uuid.UUID
	Overall         sitestatus.Overall
	Sector          string
	IncludeArchived bool
	Limit           int
	Offset          int
}

type Repository interface {
	Create(ctx context.Context, s *Site) (*Site, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Site, error)
	List(ctx context.Context, params *FindParams) ([]*Site, error)
	Count(ctx context.Context, params *FindParams) (int64, error)
	// UpdateDimensionStatus writes one dimension plus the rederived overall
	// status, guarded on the expected current value. Returns ErrStatusChanged
	// when the stored state moved since the caller read it.
	UpdateDimensionStatus(ctx context.Context, id uuid.UUID, d sitestatus.Dimension, expected, next sitestatus.State, overall sitestatus.Overall) error
	// Archive soft-deletes: sites are flagged, never removed.
	Archive(ctx context.Context, id uuid.UUID, reason string) error
}
