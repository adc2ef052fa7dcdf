package scopingapproval

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

var (
	ErrNotFound = errors.New("scoping approval not found")
	// ErrNotPending: the row exists but is no longer pending_review, so the
	// review mutation matched nothing.
	ErrNotPending = errors.New("scoping approval is not pending review")
)

type FindParams struct {
	SiteID uuid.UUID
	Status sitestatus.State
	Limit  int
	Offset int
}

type ReviewUpdate struct {
	Status          sitestatus.State
	ReviewerID      uuid.UUID
	Comment         string
	RejectionReason string
}

type Repository interface {
	// Create inserts a new version row; existing rows are never touched.
	Create(ctx context.Context, a *ScopingApproval) (*ScopingApproval, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ScopingApproval, error)
	// GetLatestBySite returns the highest version for the site, or ErrNotFound.
	GetLatestBySite(ctx context.Context, siteID uuid.UUID) (*ScopingApproval, error)
	// FindPendingBySite returns the single pending_review version, or nil.
	FindPendingBySite(ctx context.Context, siteID uuid.UUID) (*ScopingApproval, error)
	List(ctx context.Context, params *FindParams) ([]*ScopingApproval, error)
	// UpdateReview stamps the review outcome onto one row, the only
	// mutation this store performs on an otherwise immutable record. Only a
	// pending_review row matches; a settled row yields ErrNotPending.
	UpdateReview(ctx context.Context, id uuid.UUID, update ReviewUpdate) (*ScopingApproval, error)
	// MarkResubmitted flips a rejected version to resubmitted when a
	// successor version is created, distinguishing dead-end rejections from
	// rejections that led to a new attempt.
	MarkResubmitted(ctx context.Context, id uuid.UUID) error
}
