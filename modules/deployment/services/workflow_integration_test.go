package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/smartq/launchpad/modules/deployment/domain/aggregates/site"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/costingapproval"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/workflowaudit"
	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
	deploymentsvc "github.com/smartq/launchpad/modules/deployment/services"
)

func mustCreateSite(t *testing.T, svc *deploymentsvc.SiteService, ctx context.Context) *site.Site {
	t.Helper()
	created, err := svc.Create(ctx, deploymentsvc.CreateSiteInput{
		Name:                       "Riverside Canteen",
		OrganizationName:           "Compass North",
		Sector:                     "healthcare",
		UnitCode:                   "RC-104",
		Region:                     "North West",
		Country:                    "United Kingdom",
		AssignedOpsManager:         opsID,
		AssignedDeploymentEngineer: engineerID,
	})
	require.NoError(t, err)
	return created
}

func TestWorkflow_NewSiteStartsDerived(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)

	require.Equal(t, sitestatus.StateNotStarted, created.StudyStatus)
	require.Equal(t, sitestatus.StateNotStarted, created.ScopingStatus)
	require.Equal(t, sitestatus.StatePending, created.ProcurementStatus)
	require.Equal(t, sitestatus.StateNotStarted, created.DeploymentStatus)
	require.Equal(t, sitestatus.OverallCreated, created.OverallStatus)
}

func TestWorkflow_TransitionWritesAuditAtomically(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)

	updated, err := workflowService(env).Transition(env.Ctx, deploymentsvc.TransitionInput{
		SiteID:    created.ID,
		Dimension: sitestatus.DimensionStudy,
		To:        sitestatus.StateInProgress,
		Reason:    "site survey booked",
	})
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateInProgress, updated.StudyStatus)
	require.Equal(t, sitestatus.OverallStudyInProgress, updated.OverallStatus)

	entries, total, err := auditService(env).Transitions(env.Ctx, &workflowaudit.FindParams{SiteID: created.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, entries, 1)
	require.Equal(t, sitestatus.DimensionStudy, entries[0].Dimension)
	require.Equal(t, sitestatus.StateNotStarted, entries[0].FromStatus)
	require.Equal(t, sitestatus.StateInProgress, entries[0].ToStatus)
	require.Equal(t, sitestatus.OverallStudyInProgress, entries[0].OverallStatus)
	require.Equal(t, engineerID, entries[0].UserID)
	require.False(t, entries[0].AdminOverride)
}

func TestWorkflow_IllegalTransitionLeavesNoTrace(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)

	_, err := workflowService(env).Transition(env.Ctx, deploymentsvc.TransitionInput{
		SiteID:    created.ID,
		Dimension: sitestatus.DimensionStudy,
		To:        sitestatus.StateCompleted,
	})
	var svcErr *deploymentsvc.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "WORKFLOW_ILLEGAL_TRANSITION", svcErr.Code)
	require.Equal(t, 422, svcErr.Status)

	_, total, err := auditService(env).Transitions(env.Ctx, &workflowaudit.FindParams{SiteID: created.ID})
	require.NoError(t, err)
	require.Zero(t, total)

	unchanged, err := siteService(env).GetByID(env.Ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateNotStarted, unchanged.StudyStatus)
}

func TestWorkflow_ForbiddenRoleAndAdminOverride(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)

	_, err := workflowService(env).Transition(env.Ctx, deploymentsvc.TransitionInput{
		SiteID:    created.ID,
		Dimension: sitestatus.DimensionStudy,
		To:        sitestatus.StateInProgress,
	})
	require.NoError(t, err)

	// Study completion is reserved for the deployment engineer.
	opsCtx := env.AsActor(opsID, "ops_manager")
	_, err = workflowService(env).Transition(opsCtx, deploymentsvc.TransitionInput{
		SiteID:    created.ID,
		Dimension: sitestatus.DimensionStudy,
		To:        sitestatus.StateCompleted,
	})
	var svcErr *deploymentsvc.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "WORKFLOW_FORBIDDEN", svcErr.Code)

	// The override flag grants the ops manager nothing.
	_, err = workflowService(env).Transition(opsCtx, deploymentsvc.TransitionInput{
		SiteID:        created.ID,
		Dimension:     sitestatus.DimensionStudy,
		To:            sitestatus.StateCompleted,
		AdminOverride: true,
	})
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "WORKFLOW_FORBIDDEN", svcErr.Code)

	// An admin passes every role check without the flag; the flag only
	// marks the audit entry.
	adminCtx := env.AsActor(adminID, "admin")
	updated, err := workflowService(env).Transition(adminCtx, deploymentsvc.TransitionInput{
		SiteID:        created.ID,
		Dimension:     sitestatus.DimensionStudy,
		To:            sitestatus.StateCompleted,
		AdminOverride: true,
		Reason:        "engineer on leave",
	})
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateCompleted, updated.StudyStatus)

	entries, _, err := auditService(env).Transitions(env.Ctx, &workflowaudit.FindParams{SiteID: created.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.True(t, entries[1].AdminOverride)
	require.Equal(t, adminID, entries[1].UserID)
}

func TestWorkflow_AdminCompletesStudyWithoutOverrideFlag(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)

	adminCtx := env.AsActor(adminID, "admin")
	_, err := workflowService(env).Transition(adminCtx, deploymentsvc.TransitionInput{
		SiteID:    created.ID,
		Dimension: sitestatus.DimensionStudy,
		To:        sitestatus.StateInProgress,
	})
	require.NoError(t, err)

	updated, err := workflowService(env).Transition(adminCtx, deploymentsvc.TransitionInput{
		SiteID:    created.ID,
		Dimension: sitestatus.DimensionStudy,
		To:        sitestatus.StateCompleted,
	})
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateCompleted, updated.StudyStatus)

	entries, _, err := auditService(env).Transitions(env.Ctx, &workflowaudit.FindParams{SiteID: created.ID})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.False(t, entries[1].AdminOverride)
}

func TestWorkflow_StaleExpectedFromConflicts(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)

	_, err := workflowService(env).Transition(env.Ctx, deploymentsvc.TransitionInput{
		SiteID:       created.ID,
		Dimension:    sitestatus.DimensionStudy,
		To:           sitestatus.StateInProgress,
		ExpectedFrom: sitestatus.StateNotStarted,
	})
	require.NoError(t, err)

	// A second caller still holding the original read loses.
	_, err = workflowService(env).Transition(env.Ctx, deploymentsvc.TransitionInput{
		SiteID:       created.ID,
		Dimension:    sitestatus.DimensionStudy,
		To:           sitestatus.StateInProgress,
		ExpectedFrom: sitestatus.StateNotStarted,
	})
	var svcErr *deploymentsvc.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "WORKFLOW_CONFLICT", svcErr.Code)
	require.Equal(t, 409, svcErr.Status)

	_, total, err := auditService(env).Transitions(env.Ctx, &workflowaudit.FindParams{SiteID: created.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
}

func TestWorkflow_FullLifecycleToLive(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)
	wf := workflowService(env)

	engineerCtx := env.Ctx
	opsCtx := env.AsActor(opsID, "ops_manager")

	type step struct {
		ctx       context.Context
		dimension sitestatus.Dimension
		to        sitestatus.State
		overall   sitestatus.Overall
	}
	steps := []step{
		{engineerCtx, sitestatus.DimensionStudy, sitestatus.StateInProgress, sitestatus.OverallStudyInProgress},
		{engineerCtx, sitestatus.DimensionStudy, sitestatus.StateCompleted, sitestatus.OverallSiteStudyDone},
		{engineerCtx, sitestatus.DimensionScoping, sitestatus.StatePendingReview, sitestatus.OverallScopingDone},
		{opsCtx, sitestatus.DimensionScoping, sitestatus.StateApproved, sitestatus.OverallApproved},
		{opsCtx, sitestatus.DimensionProcurement, sitestatus.StateApproved, sitestatus.OverallApproved},
		{opsCtx, sitestatus.DimensionProcurement, sitestatus.StateOrdered, sitestatus.OverallApproved},
		{opsCtx, sitestatus.DimensionProcurement, sitestatus.StateInTransit, sitestatus.OverallApproved},
		{opsCtx, sitestatus.DimensionProcurement, sitestatus.StateDelivered, sitestatus.OverallApproved},
		{engineerCtx, sitestatus.DimensionProcurement, sitestatus.StateInstalled, sitestatus.OverallProcurementDone},
		{engineerCtx, sitestatus.DimensionDeployment, sitestatus.StateInProgress, sitestatus.OverallDeployed},
		{engineerCtx, sitestatus.DimensionDeployment, sitestatus.StateCompleted, sitestatus.OverallLive},
	}

	for _, s := range steps {
		updated, err := wf.Transition(s.ctx, deploymentsvc.TransitionInput{
			SiteID:    created.ID,
			Dimension: s.dimension,
			To:        s.to,
		})
		require.NoError(t, err, "transition %s -> %s", s.dimension, s.to)
		require.Equal(t, s.overall, updated.OverallStatus, "overall after %s -> %s", s.dimension, s.to)
	}

	_, total, err := auditService(env).Transitions(env.Ctx, &workflowaudit.FindParams{SiteID: created.ID})
	require.NoError(t, err)
	require.EqualValues(t, len(steps), total)
}

func TestWorkflow_ProcurementMirrorsOntoApprovedCosting(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)

	submitted, err := costingService(env).Submit(env.Ctx, deploymentsvc.SubmitCostingInput{
		SiteID:       created.ID,
		OpsManagerID: opsID,
		Items: []deploymentsvc.CostingItemInput{
			{
				ItemType:   costingapproval.ItemTypeHardware,
				ItemName:   "POS terminal",
				Quantity:   2,
				UnitCost:   decimal.NewFromInt(450),
				IsRequired: true,
			},
		},
	})
	require.NoError(t, err)

	opsCtx := env.AsActor(opsID, "ops_manager")
	_, err = costingService(env).Review(opsCtx, deploymentsvc.ReviewInput{
		ApprovalID: submitted.ID,
		Approve:    true,
		Comment:    "within budget",
	})
	require.NoError(t, err)

	_, err = workflowService(env).Transition(opsCtx, deploymentsvc.TransitionInput{
		SiteID:    created.ID,
		Dimension: sitestatus.DimensionProcurement,
		To:        sitestatus.StateApproved,
	})
	require.NoError(t, err)

	mirrored, err := costingService(env).GetByID(env.Ctx, submitted.ID)
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateApproved, mirrored.ProcurementStatus)
}

func TestWorkflow_ArchiveBlocksFurtherTransitions(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)

	// Engineers cannot archive.
	err := workflowService(env).ArchiveSite(env.Ctx, created.ID, "duplicate record")
	var svcErr *deploymentsvc.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "WORKFLOW_FORBIDDEN", svcErr.Code)

	opsCtx := env.AsActor(opsID, "ops_manager")
	require.NoError(t, workflowService(env).ArchiveSite(opsCtx, created.ID, "duplicate record"))

	archived, err := siteService(env).GetByID(env.Ctx, created.ID)
	require.NoError(t, err)
	require.True(t, archived.IsArchived)
	require.Equal(t, "duplicate record", archived.ArchiveReason)
	require.NotNil(t, archived.ArchivedAt)

	// Archiving lands in the audit trail like any other workflow write.
	entries, total, err := auditService(env).Transitions(env.Ctx, &workflowaudit.FindParams{SiteID: created.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, workflowaudit.ArchiveDimension, entries[0].Dimension)
	require.Equal(t, workflowaudit.StateActive, entries[0].FromStatus)
	require.Equal(t, workflowaudit.StateArchived, entries[0].ToStatus)
	require.Equal(t, opsID, entries[0].UserID)
	require.Equal(t, "duplicate record", entries[0].Reason)

	_, err = workflowService(env).Transition(env.Ctx, deploymentsvc.TransitionInput{
		SiteID:    created.ID,
		Dimension: sitestatus.DimensionStudy,
		To:        sitestatus.StateInProgress,
	})
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "WORKFLOW_CONFLICT", svcErr.Code)
}

func TestWorkflow_UnknownSite(t *testing.T) {
	env := setupEnv(t)

	_, err := workflowService(env).Transition(env.Ctx, deploymentsvc.TransitionInput{
		SiteID:    userID,
		Dimension: sitestatus.DimensionStudy,
		To:        sitestatus.StateInProgress,
	})
	var svcErr *deploymentsvc.ServiceError
	require.True(t, errors.As(err, &svcErr))
	require.Equal(t, 404, svcErr.Status)
}
