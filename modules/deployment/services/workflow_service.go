package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/aggregates/site"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/costingapproval"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/workflowaudit"
	"github.com/smartq/launchpad/modules/deployment/domain/events"
	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
	"github.com/smartq/launchpad/pkg/composables"
	"github.com/smartq/launchpad/pkg/eventbus"
)

type TransitionInput struct {
	SiteID    uuid.UUID
	Dimension sitestatus.Dimension
	To        sitestatus.State
	// ExpectedFrom, when set, must match the stored state at write time.
	// Callers pass the state they showed the user so a concurrent transition
	// surfaces as a conflict instead of silently double-applying.
	ExpectedFrom  sitestatus.State
	Reason        string
	AdminOverride bool
}

// WorkflowService is the only writer of site dimension statuses. Every
// transition is one transaction: the guarded dimension update, the derived
// overall status, the procurement mirror and the audit entry land together or
// not at all.
type WorkflowService struct {
	sites     site.Repository
	costings  costingapproval.Repository
	audit     workflowaudit.Repository
	publisher eventbus.EventBus
}

func NewWorkflowService(
	sites site.Repository,
	costings costingapproval.Repository,
	audit workflowaudit.Repository,
	publisher eventbus.EventBus,
) *WorkflowService {
	return &WorkflowService{
		sites:     sites,
		costings:  costings,
		audit:     audit,
		publisher: publisher,
	}
}

func (s *WorkflowService) Transition(ctx context.Context, input TransitionInput) (*site.Site, error) {
	actor, err := composables.UseActor(ctx)
	if err != nil {
		return nil, newServiceError(http.StatusForbidden, "WORKFLOW_FORBIDDEN", "no authenticated actor", err)
	}
	role, err := sitestatus.ParseRole(actor.Role)
	if err != nil {
		role = sitestatus.RoleUser
	}
	if !sitestatus.IsValidState(input.Dimension, input.To) {
		return nil, newServiceError(http.StatusBadRequest, "WORKFLOW_VALIDATION",
			fmt.Sprintf("unknown %s status %q", input.Dimension, input.To), nil)
	}

	var event *events.SiteTransitioned
	updated, err := composables.InTxResult(ctx, func(txCtx context.Context) (*site.Site, error) {
		current, err := s.sites.GetByID(txCtx, input.SiteID)
		if err != nil {
			return nil, err
		}
		if current.IsArchived {
			return nil, newServiceError(http.StatusConflict, "WORKFLOW_CONFLICT", "site is archived", nil)
		}

		from := current.DimensionStatus(input.Dimension)
		if input.ExpectedFrom != "" && input.ExpectedFrom != from {
			return nil, newServiceError(http.StatusConflict, "WORKFLOW_CONFLICT",
				fmt.Sprintf("%s status is %q, not %q", input.Dimension, from, input.ExpectedFrom), nil)
		}

		if err := sitestatus.Validate(input.Dimension, from, input.To, role, input.AdminOverride); err != nil {
			if errors.Is(err, sitestatus.ErrIllegalTransition) {
				return nil, newServiceError(http.StatusUnprocessableEntity, "WORKFLOW_ILLEGAL_TRANSITION", err.Error(), err)
			}
			return nil, newServiceError(http.StatusForbidden, "WORKFLOW_FORBIDDEN", err.Error(), err)
		}

		current.SetDimensionStatus(input.Dimension, input.To)
		if err := s.sites.UpdateDimensionStatus(
			txCtx, current.ID, input.Dimension, from, input.To, current.OverallStatus,
		); err != nil {
			if errors.Is(err, site.ErrStatusChanged) {
				return nil, newServiceError(http.StatusConflict, "WORKFLOW_CONFLICT", "site status changed since read", err)
			}
			return nil, err
		}

		if input.Dimension == sitestatus.DimensionProcurement {
			if err := s.mirrorProcurement(txCtx, current.ID, input.To); err != nil {
				return nil, err
			}
		}

		if err := s.audit.Append(txCtx, &workflowaudit.Entry{
			SiteID:        current.ID,
			Dimension:     input.Dimension,
			FromStatus:    from,
			ToStatus:      input.To,
			OverallStatus: current.OverallStatus,
			UserID:        actor.ID,
			UserRole:      role,
			Reason:        input.Reason,
			AdminOverride: input.AdminOverride,
		}); err != nil {
			return nil, err
		}

		event = &events.SiteTransitioned{
			SiteID:        current.ID,
			Dimension:     input.Dimension,
			FromStatus:    from,
			ToStatus:      input.To,
			OverallStatus: current.OverallStatus,
			ActorID:       actor.ID,
			ActorRole:     role,
			Reason:        input.Reason,
			AdminOverride: input.AdminOverride,
			Recipients:    recipients(current),
		}
		return current, nil
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	s.publisher.Publish(event)
	return updated, nil
}

// mirrorProcurement keeps the approved costing version's procurement column
// in step with the site's procurement dimension. A site without an approved
// costing approval simply has nothing to mirror onto.
func (s *WorkflowService) mirrorProcurement(ctx context.Context, siteID uuid.UUID, status sitestatus.State) error {
	latest, err := s.costings.GetLatestBySite(ctx, siteID)
	if errors.Is(err, costingapproval.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if latest.Status != sitestatus.StateApproved {
		return nil
	}
	return s.costings.UpdateProcurementStatus(ctx, latest.ID, status)
}

func (s *WorkflowService) ArchiveSite(ctx context.Context, siteID uuid.UUID, reason string) error {
	actor, err := composables.UseActor(ctx)
	if err != nil {
		return newServiceError(http.StatusForbidden, "WORKFLOW_FORBIDDEN", "no authenticated actor", err)
	}
	role, err := sitestatus.ParseRole(actor.Role)
	if err != nil || (role != sitestatus.RoleAdmin && role != sitestatus.RoleOpsManager) {
		return newServiceError(http.StatusForbidden, "WORKFLOW_FORBIDDEN", "archiving requires admin or ops_manager", nil)
	}

	err = composables.InTx(ctx, func(txCtx context.Context) error {
		current, err := s.sites.GetByID(txCtx, siteID)
		if err != nil {
			return err
		}
		if err := s.sites.Archive(txCtx, siteID, reason); err != nil {
			if errors.Is(err, site.ErrNotFound) {
				return newServiceError(http.StatusNotFound, "SITE_NOT_FOUND", "site not found or already archived", err)
			}
			return err
		}
		return s.audit.Append(txCtx, &workflowaudit.Entry{
			SiteID:        siteID,
			Dimension:     workflowaudit.ArchiveDimension,
			FromStatus:    workflowaudit.StateActive,
			ToStatus:      workflowaudit.StateArchived,
			OverallStatus: current.OverallStatus,
			UserID:        actor.ID,
			UserRole:      role,
			Reason:        reason,
		})
	})
	if err != nil {
		return mapPgError(err)
	}
	s.publisher.Publish(&events.SiteArchived{SiteID: siteID, ActorID: actor.ID, Reason: reason})
	return nil
}

// LegalNextStates reports where a dimension can go from its current state,
// so callers can render only actionable choices.
func (s *WorkflowService) LegalNextStates(ctx context.Context, siteID uuid.UUID, d sitestatus.Dimension) ([]sitestatus.State, error) {
	current, err := composables.InTxResult(ctx, func(txCtx context.Context) (*site.Site, error) {
		return s.sites.GetByID(txCtx, siteID)
	})
	if errors.Is(err, site.ErrNotFound) {
		return nil, newServiceError(http.StatusNotFound, "SITE_NOT_FOUND", "site not found", err)
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return sitestatus.LegalTransitions(d, current.DimensionStatus(d)), nil
}

func recipients(s *site.Site) []uuid.UUID {
	var ids []uuid.UUID
	if s.AssignedOpsManager != uuid.Nil {
		ids = append(ids, s.AssignedOpsManager)
	}
	if s.AssignedDeploymentEngineer != uuid.Nil {
		ids = append(ids, s.AssignedDeploymentEngineer)
	}
	return ids
}
