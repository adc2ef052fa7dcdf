package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartq/launchpad/modules/deployment/domain/aggregates/site"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/costingapproval"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/workflowaudit"
	"github.com/smartq/launchpad/modules/deployment/domain/events"
	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
	"github.com/smartq/launchpad/pkg/composables"
	"github.com/smartq/launchpad/pkg/eventbus"
)

type CostingItemInput struct {
	ItemType        costingapproval.ItemType
	ItemName        string
	ItemDescription string
	Category        string
	Manufacturer    string
	Model           string
	Quantity        int
	UnitCost        decimal.Decimal
	TotalCost       decimal.Decimal
	MonthlyFee      decimal.Decimal
	AnnualFee       decimal.Decimal
	IsRequired      bool
}

type SubmitCostingInput struct {
	SiteID       uuid.UUID
	OpsManagerID uuid.UUID
	Items        []CostingItemInput
}

// CostingSummary groups a version's line items by type, with per-type counts
// and totals.
type CostingSummary struct {
	ApprovalID uuid.UUID
	Version    int
	Groups     []CostingSummaryGroup
	GrandTotal decimal.Decimal
}

type CostingSummaryGroup struct {
	ItemType  costingapproval.ItemType
	ItemCount int
	Quantity  int
	Total     decimal.Decimal
}

// CostingApprovalService owns the costing proposal chain. It mirrors the
// scoping lifecycle but every version carries itemized costs whose totals are
// validated and recomputed at submission.
type CostingApprovalService struct {
	approvals costingapproval.Repository
	sites     site.Repository
	actions   workflowaudit.ActionRepository
	publisher eventbus.EventBus
}

func NewCostingApprovalService(
	approvals costingapproval.Repository,
	sites site.Repository,
	actions workflowaudit.ActionRepository,
	publisher eventbus.EventBus,
) *CostingApprovalService {
	return &CostingApprovalService{
		approvals: approvals,
		sites:     sites,
		actions:   actions,
		publisher: publisher,
	}
}

func validateItems(inputs []CostingItemInput) ([]*costingapproval.CostingItem, error) {
	if len(inputs) == 0 {
		return nil, newServiceError(http.StatusBadRequest, "APPROVAL_VALIDATION", "at least one line item is required", nil)
	}
	items := make([]*costingapproval.CostingItem, 0, len(inputs))
	for i, in := range inputs {
		switch in.ItemType {
		case costingapproval.ItemTypeHardware, costingapproval.ItemTypeSoftware, costingapproval.ItemTypeLicense:
		default:
			return nil, newServiceError(http.StatusBadRequest, "APPROVAL_VALIDATION",
				fmt.Sprintf("item %d: unknown item type %q", i, in.ItemType), nil)
		}
		if in.ItemName == "" {
			return nil, newServiceError(http.StatusBadRequest, "APPROVAL_VALIDATION",
				fmt.Sprintf("item %d: name is required", i), nil)
		}
		if in.Quantity <= 0 {
			return nil, newServiceError(http.StatusBadRequest, "APPROVAL_VALIDATION",
				fmt.Sprintf("item %d: quantity must be positive", i), nil)
		}
		if in.UnitCost.IsNegative() {
			return nil, newServiceError(http.StatusBadRequest, "APPROVAL_VALIDATION",
				fmt.Sprintf("item %d: unit cost must not be negative", i), nil)
		}
		item := &costingapproval.CostingItem{
			ItemType:        in.ItemType,
			ItemName:        in.ItemName,
			ItemDescription: in.ItemDescription,
			Category:        in.Category,
			Manufacturer:    in.Manufacturer,
			Model:           in.Model,
			Quantity:        in.Quantity,
			UnitCost:        in.UnitCost,
			MonthlyFee:      in.MonthlyFee,
			AnnualFee:       in.AnnualFee,
			IsRequired:      in.IsRequired,
		}
		expected := item.ExpectedTotal()
		if !in.TotalCost.IsZero() && !in.TotalCost.Equal(expected) {
			return nil, newServiceError(http.StatusBadRequest, "APPROVAL_VALIDATION",
				fmt.Sprintf("item %d: total %s does not equal quantity x unit cost %s", i, in.TotalCost, expected), nil)
		}
		item.TotalCost = expected
		items = append(items, item)
	}
	return items, nil
}

func (s *CostingApprovalService) Submit(ctx context.Context, input SubmitCostingInput) (*costingapproval.CostingApproval, error) {
	actor, err := composables.UseActor(ctx)
	if err != nil {
		return nil, newServiceError(http.StatusForbidden, "APPROVAL_FORBIDDEN", "no authenticated actor", err)
	}
	role, roleErr := sitestatus.ParseRole(actor.Role)
	if roleErr != nil || (role != sitestatus.RoleDeploymentEngineer && role != sitestatus.RoleAdmin) {
		return nil, newServiceError(http.StatusForbidden, "APPROVAL_FORBIDDEN", "submitting requires deployment_engineer", nil)
	}
	items, err := validateItems(input.Items)
	if err != nil {
		return nil, err
	}

	var event *events.ProposalSubmitted
	created, err := composables.InTxResult(ctx, func(txCtx context.Context) (*costingapproval.CostingApproval, error) {
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

		totals := costingapproval.ComputeTotals(items)
		next := &costingapproval.CostingApproval{
			SiteID:               input.SiteID,
			DeploymentEngineerID: actor.ID,
			OpsManagerID:         input.OpsManagerID,
			Status:               sitestatus.StatePendingReview,
			TotalHardwareCost:    totals.Hardware,
			TotalSoftwareCost:    totals.Software,
			TotalLicenseCost:     totals.License,
			TotalMonthlyFees:     totals.MonthlyFees,
			GrandTotal:           totals.GrandTotal,
			Version:              1,
			Items:                items,
		}
		action := workflowaudit.ActionSubmit

		latest, err := s.approvals.GetLatestBySite(txCtx, input.SiteID)
		if err != nil && !errors.Is(err, costingapproval.ErrNotFound) {
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

		metadata, _ := json.Marshal(map[string]any{
			"version":     created.Version,
			"grand_total": created.GrandTotal,
			"item_count":  len(created.Items),
		})
		if err := s.actions.Append(txCtx, &workflowaudit.ApprovalAction{
			ApprovalKind: workflowaudit.KindCosting,
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
			Kind:       string(workflowaudit.KindCosting),
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

func (s *CostingApprovalService) Review(ctx context.Context, input ReviewInput) (*costingapproval.CostingApproval, error) {
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
	reviewed, err := composables.InTxResult(ctx, func(txCtx context.Context) (*costingapproval.CostingApproval, error) {
		current, err := s.approvals.GetByID(txCtx, input.ApprovalID)
		if err != nil {
			if errors.Is(err, costingapproval.ErrNotFound) {
				return nil, newServiceError(http.StatusNotFound, "APPROVAL_NOT_FOUND", "costing approval not found", err)
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

		updated, err := s.approvals.UpdateReview(txCtx, current.ID, costingapproval.ReviewUpdate{
			Status:          outcome,
			ReviewerID:      actor.ID,
			Comment:         input.Comment,
			RejectionReason: input.RejectionReason,
		})
		if errors.Is(err, costingapproval.ErrNotPending) {
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
			ApprovalKind: workflowaudit.KindCosting,
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
			Kind:       string(workflowaudit.KindCosting),
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

func (s *CostingApprovalService) GetByID(ctx context.Context, id uuid.UUID) (*costingapproval.CostingApproval, error) {
	found, err := composables.InTxResult(ctx, func(txCtx context.Context) (*costingapproval.CostingApproval, error) {
		return s.approvals.GetByID(txCtx, id)
	})
	if errors.Is(err, costingapproval.ErrNotFound) {
		return nil, newServiceError(http.StatusNotFound, "APPROVAL_NOT_FOUND", "costing approval not found", err)
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return found, nil
}

func (s *CostingApprovalService) GetBySite(ctx context.Context, siteID uuid.UUID) ([]*costingapproval.CostingApproval, error) {
	chain, err := composables.InTxResult(ctx, func(txCtx context.Context) ([]*costingapproval.CostingApproval, error) {
		return s.approvals.List(txCtx, &costingapproval.FindParams{SiteID: siteID})
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return chain, nil
}

func (s *CostingApprovalService) ListPending(ctx context.Context, limit, offset int) ([]*costingapproval.CostingApproval, error) {
	pending, err := composables.InTxResult(ctx, func(txCtx context.Context) ([]*costingapproval.CostingApproval, error) {
		return s.approvals.List(txCtx, &costingapproval.FindParams{
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

// Summary groups one version's items by type for reviewer-facing cost
// overviews.
func (s *CostingApprovalService) Summary(ctx context.Context, approvalID uuid.UUID) (*CostingSummary, error) {
	approval, err := s.GetByID(ctx, approvalID)
	if err != nil {
		return nil, err
	}

	byType := map[costingapproval.ItemType]*CostingSummaryGroup{}
	order := []costingapproval.ItemType{
		costingapproval.ItemTypeHardware,
		costingapproval.ItemTypeSoftware,
		costingapproval.ItemTypeLicense,
	}
	for _, item := range approval.Items {
		group, ok := byType[item.ItemType]
		if !ok {
			group = &CostingSummaryGroup{ItemType: item.ItemType, Total: decimal.Zero}
			byType[item.ItemType] = group
		}
		group.ItemCount++
		group.Quantity += item.Quantity
		group.Total = group.Total.Add(item.TotalCost)
	}

	summary := &CostingSummary{
		ApprovalID: approval.ID,
		Version:    approval.Version,
		GrandTotal: approval.GrandTotal,
	}
	for _, t := range order {
		if group, ok := byType[t]; ok {
			summary.Groups = append(summary.Groups, *group)
		}
	}
	return summary, nil
}

func (s *CostingApprovalService) History(ctx context.Context, approvalID uuid.UUID) ([]*workflowaudit.ApprovalAction, error) {
	trail, err := composables.InTxResult(ctx, func(txCtx context.Context) ([]*workflowaudit.ApprovalAction, error) {
		return s.actions.List(txCtx, &workflowaudit.ActionFindParams{
			ApprovalKind: workflowaudit.KindCosting,
			ApprovalID:   approvalID,
		})
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return trail, nil
}
