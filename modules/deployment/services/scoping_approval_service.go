package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/aggregates/site"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/scopingapproval"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/workflowaudit"
	"github.com/smartq/launchpad/modules/deployment/domain/events"
	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
	"github.com/smartq/launchpad/pkg/composables"
	"github.com/smartq/launchpad/pkg/eventbus"
)

type SubmitScopingInput struct {
	SiteID        uuid.UUID
	ScopingData   json.RawMessage
	CostBreakdown json.RawMessage
	OpsManagerID  *uuid.UUID
}

type ReviewInput struct {
	ApprovalID uuid.UUID
	Approve    bool
	Comment    string
	// RejectionReason is required on rejection so a resubmitting engineer
	// knows what to fix.
	RejectionReason string
}

// ScopingApprovalService owns the scoping proposal chain. Versions are
// append-only: a submission never edits an earlier row, it supersedes it.
type ScopingApprovalService struct {
	approvals scopingapproval.Repository
	sites     site.Repository
	actions   workflowaudit.ActionRepository
	publisher eventbus.EventBus
}

func NewScopingApprovalService(
	approvals scopingapproval.Repository,
	sites site.Repository,
	actions workflowaudit.ActionRepository,
	publisher eventbus.EventBus,
) *ScopingApprovalService {
	return &ScopingApprovalService{
		approvals: approvals,
		sites:     sites,
		actions:   actions,
		publisher: publisher,
	}
}

// Submit creates the next version for the site. At most one version may sit
// in pending_review; a rejected predecessor is flipped to resubmitted in the
// same transaction so the chain records that the rejection was acted on.
func (s *ScopingApprovalService) Submit(ctx context.Context, input SubmitScopingInput) (*scopingapproval.ScopingApproval, error) {
	actor, err := composables.UseActor(ctx)
	if err != nil {
		return nil, newServiceError(http.StatusForbidden, "APPROVAL_FORBIDDEN", "no authenticated actor", err)
	}
	role, roleErr := sitestatus.ParseRole(actor.Role)
	if roleErr != nil || (role != sitestatus.RoleDeploymentEngineer && role != sitestatus.RoleAdmin) {
		return nil, newServiceError(http.StatusForbidden, "APPROVAL_FORBIDDEN", "submitting requires deployment_engineer", nil)
	}
	if len(input.ScopingData) == 0 {
		return nil, newServiceError(http.StatusBadRequest, "APPROVAL_VALIDATION", "scoping_data is required", nil)
	}

	var event *events.ProposalSubmitted
	created, err := composables.InTxResult(ctx, func(txCtx context.Context) (*scopingapproval.ScopingApproval, error) {
		target, err := s.sites.GetByID(txCtx, input.SiteID)
		if err != nil {
			if errors.Is(err, site.ErrNotFound) {
				return nil, newServiceError(http.StatusNotFound, "SITE_NOT_FOUND", "site not found", err)
			}
			return nil, err
		}
		if target.IsArchived {
			return nil, newServiceError(http.StatusConflict, "APPROVAL_INVALID_STATE", "site is archived", nil)
		}

		if pending, err := s.approvals.FindPendingBySite(txCtx, input.SiteID); err != nil {
			return nil, err
		} else if pending != nil {
			return nil, newServiceError(http.StatusConflict, "APPROVAL_INVALID_STATE",
				fmt.Sprintf("version %d is already pending review", pending.Version), nil)
		}

		next := &scopingapproval.ScopingApproval{
			SiteID:               input.SiteID,
			SiteName:             target.Name,
			DeploymentEngineerID: actor.ID,
			OpsManagerID:         input.OpsManagerID,
			Status:               sitestatus.StatePendingReview,
			ScopingData:          input.ScopingData,
			CostBreakdown:        input.CostBreakdown,
			Version:              1,
		}
		action := workflowaudit.ActionSubmit

		latest, err := s.approvals.GetLatestBySite(txCtx, input.SiteID)
		if err != nil && !errors.Is(err, scopingapproval.ErrNotFound) {
			return nil, err
		}
		if latest != nil {
			next.Version = latest.Version + 1
			next.PreviousVersionID = &latest.ID
			if latest.Status == sitestatus.StateRejected {
				if err := s.approvals.MarkResubmitted(txCtx, latest.ID); err != nil {
					return nil, err
				}
				action = workflowaudit.ActionResubmit
			}
		}

		created, err := s.approvals.Create(txCtx, next)
		if err != nil {
			return nil, err
		}

		metadata, _ := json.Marshal(map[string]any{"version": created.Version})
		if err := s.actions.Append(txCtx, &workflowaudit.ApprovalAction{
			ApprovalKind: workflowaudit.KindScoping,
			ApprovalID:   created.ID,
			SiteID:       created.SiteID,
			Action:       action,
			PerformedBy:  actor.ID,
			Role:         role,
			Metadata:     metadata,
		}); err != nil {
			return nil, err
		}

		event = &events.ProposalSubmitted{
			Kind:       string(workflowaudit.KindScoping),
			ProposalID: created.ID,
			SiteID:     created.SiteID,
			Version:    created.Version,
			ActorID:    actor.ID,
			Recipients: recipients(target),
		}
		return created, nil
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	s.publisher.Publish(event)
	return created, nil
}

// Review settles the pending version. Only pending_review rows can be
// reviewed; anything else is already settled and stays immutable.
func (s *ScopingApprovalService) Review(ctx context.Context, input ReviewInput) (*scopingapproval.ScopingApproval, error) {
	actor, err := composables.UseActor(ctx)
	if err != nil {
		return nil, newServiceError(http.StatusForbidden, "APPROVAL_FORBIDDEN", "no authenticated actor", err)
	}
	role, roleErr := sitestatus.ParseRole(actor.Role)
	if roleErr != nil || (role != sitestatus.RoleOpsManager && role != sitestatus.RoleAdmin) {
		return nil, newServiceError(http.StatusForbidden, "APPROVAL_FORBIDDEN", "reviewing requires ops_manager or admin", nil)
	}
	if !input.Approve && input.RejectionReason == "" {
		return nil, newServiceError(http.StatusBadRequest, "APPROVAL_VALIDATION", "rejection_reason is required when rejecting", nil)
	}

	var event *events.ProposalReviewed
	reviewed, err := composables.InTxResult(ctx, func(txCtx context.Context) (*scopingapproval.ScopingApproval, error) {
		current, err := s.approvals.GetByID(txCtx, input.ApprovalID)
		if err != nil {
			if errors.Is(err, scopingapproval.ErrNotFound) {
				return nil, newServiceError(http.StatusNotFound, "APPROVAL_NOT_FOUND", "scoping approval not found", err)
			}
			return nil, err
		}
		if !current.IsPending() {
			return nil, newServiceError(http.StatusConflict, "APPROVAL_INVALID_STATE",
				fmt.Sprintf("version %d is %s, not pending_review", current.Version, current.Status), nil)
		}

		outcome := sitestatus.StateApproved
		action := workflowaudit.ActionApprove
		if !input.Approve {
			outcome = sitestatus.StateRejected
			action = workflowaudit.ActionReject
		}

		updated, err := s.approvals.UpdateReview(txCtx, current.ID, scopingapproval.ReviewUpdate{
			Status:          outcome,
			ReviewerID:      actor.ID,
			Comment:         input.Comment,
			RejectionReason: input.RejectionReason,
		})
		if errors.Is(err, scopingapproval.ErrNotPending) {
			// A concurrent reviewer settled this version between our read
			// and the guarded update.
			return nil, newServiceError(http.StatusConflict, "APPROVAL_INVALID_STATE",
				fmt.Sprintf("version %d was reviewed concurrently", current.Version), err)
		}
		if err != nil {
			return nil, err
		}

		metadata, _ := json.Marshal(map[string]any{"version": updated.Version, "outcome": outcome})
		if err := s.actions.Append(txCtx, &workflowaudit.ApprovalAction{
			ApprovalKind: workflowaudit.KindScoping,
			ApprovalID:   updated.ID,
			SiteID:       updated.SiteID,
			Action:       action,
			PerformedBy:  actor.ID,
			Role:         role,
			Comment:      input.Comment,
			Metadata:     metadata,
		}); err != nil {
			return nil, err
		}

		event = &events.ProposalReviewed{
			Kind:       string(workflowaudit.KindScoping),
			ProposalID: updated.ID,
			SiteID:     updated.SiteID,
			Version:    updated.Version,
			Outcome:    outcome,
			ReviewerID: actor.ID,
			Comment:    input.Comment,
			Recipients: []uuid.UUID{updated.DeploymentEngineerID},
		}
		return updated, nil
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	s.publisher.Publish(event)
	return reviewed, nil
}

func (s *ScopingApprovalService) GetByID(ctx context.Context, id uuid.UUID) (*scopingapproval.ScopingApproval, error) {
	found, err := composables.InTxResult(ctx, func(txCtx context.Context) (*scopingapproval.ScopingApproval, error) {
		return s.approvals.GetByID(txCtx, id)
	})
	if errors.Is(err, scopingapproval.ErrNotFound) {
		return nil, newServiceError(http.StatusNotFound, "APPROVAL_NOT_FOUND", "scoping approval not found", err)
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return found, nil
}

// GetBySite returns the full version chain for a site, newest first.
func (s *ScopingApprovalService) GetBySite(ctx context.Context, siteID uuid.UUID) ([]*scopingapproval.ScopingApproval, error) {
	chain, err := composables.InTxResult(ctx, func(txCtx context.Context) ([]*scopingapproval.ScopingApproval, error) {
		return s.approvals.List(txCtx, &scopingapproval.FindParams{SiteID: siteID})
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return chain, nil
}

// ListPending returns every proposal awaiting review, for reviewer queues.
func (s *ScopingApprovalService) ListPending(ctx context.Context, limit, offset int) ([]*scopingapproval.ScopingApproval, error) {
	pending, err := composables.InTxResult(ctx, func(txCtx context.Context) ([]*scopingapproval.ScopingApproval, error) {
		return s.approvals.List(txCtx, &scopingapproval.FindParams{
			Status: sitestatus.StatePendingReview,
			Limit:  limit,
			Offset: offset,
		})
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return pending, nil
}

// History returns the action trail for one proposal version.
func (s *ScopingApprovalService) History(ctx context.Context, approvalID uuid.UUID) ([]*workflowaudit.ApprovalAction, error) {
	trail, err := composables.InTxResult(ctx, func(txCtx context.Context) ([]*workflowaudit.ApprovalAction, error) {
		return s.actions.List(txCtx, &workflowaudit.ActionFindParams{
			ApprovalKind: workflowaudit.KindScoping,
			ApprovalID:   approvalID,
		})
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return trail, nil
}
