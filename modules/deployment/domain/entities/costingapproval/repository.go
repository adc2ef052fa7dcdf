package costingapproval

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

var (
	ErrNotFound = errors.New("costing approval not found")
	// ErrNotPending: the row exists but is no longer pending_review, so the
	// review mutation matched nothing.
	ErrNotPending = errors.New("costing approval is not pending review")
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
	// Create inserts a new version row together with its line items.
	Create(ctx context.Context, a *CostingApproval) (*CostingApproval, error)
	GetByID(ctx context.Context, id uuid.UUID) (*CostingApproval, error)
	GetLatestBySite(ctx context.Context, siteID uuid.UUID) (*CostingApproval, error)
	FindPendingBySite(ctx context.Context, siteID uuid.UUID) (*CostingApproval, error)
	List(ctx context.Context, params *FindParams) ([]*CostingApproval, error)
	ListItems(ctx context.Context, approvalID uuid.UUID) ([]*CostingItem, error)
	UpdateReview(ctx context.Context, id uuid.UUID, update ReviewUpdate) (*CostingApproval, error)
	MarkResubmitted(ctx context.Context, id uuid.UUID) error
	// UpdateProcurementStatus mirrors the site's procurement dimension onto
	// the approved version, in the same transaction as the dimension write.
	UpdateProcurementStatus(ctx context.Context, id uuid.UUID, status sitestatus.State) error
}
