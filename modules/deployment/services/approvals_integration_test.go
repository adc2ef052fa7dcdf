package services_test

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/smartq/launchpad/modules/deployment/domain/entities/costingapproval"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/scopingapproval"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/workflowaudit"
	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
	"github.com/smartq/launchpad/modules/deployment/infrastructure/persistence"
	deploymentsvc "github.com/smartq/launchpad/modules/deployment/services"
)

func scopingPayload(t *testing.T) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"tills":        3,
		"kiosk_count":  2,
		"network_drop": "existing",
	})
	require.NoError(t, err)
	return payload
}

func TestScopingApproval_VersionChain(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)
	svc := scopingService(env)
	opsCtx := env.AsActor(opsID, "ops_manager")

	v1, err := svc.Submit(env.Ctx, deploymentsvc.SubmitScopingInput{
		SiteID:      created.ID,
		ScopingData: scopingPayload(t),
	})
	require.NoError(t, err)
	require.Equal(t, 1, v1.Version)
	require.Nil(t, v1.PreviousVersionID)
	require.Equal(t, sitestatus.StatePendingReview, v1.Status)
	require.Equal(t, created.Name, v1.SiteName)

	// Second submission while v1 is pending is refused.
	_, err = svc.Submit(env.Ctx, deploymentsvc.SubmitScopingInput{
		SiteID:      created.ID,
		ScopingData: scopingPayload(t),
	})
	var svcErr *deploymentsvc.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "APPROVAL_INVALID_STATE", svcErr.Code)
	require.Equal(t, 409, svcErr.Status)

	rejected, err := svc.Review(opsCtx, deploymentsvc.ReviewInput{
		ApprovalID:      v1.ID,
		Approve:         false,
		Comment:         "kiosk count too low",
		RejectionReason: "resurvey the entrance area",
	})
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateRejected, rejected.Status)
	require.Equal(t, "resurvey the entrance area", rejected.RejectionReason)
	require.NotNil(t, rejected.ReviewedAt)

	v2, err := svc.Submit(env.Ctx, deploymentsvc.SubmitScopingInput{
		SiteID:      created.ID,
		ScopingData: scopingPayload(t),
	})
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)
	require.NotNil(t, v2.PreviousVersionID)
	require.Equal(t, v1.ID, *v2.PreviousVersionID)

	// The rejected predecessor is flipped to resubmitted in the same commit.
	chain, err := svc.GetBySite(env.Ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	require.Equal(t, 2, chain[0].Version)
	require.Equal(t, sitestatus.StateResubmitted, chain[1].Status)

	approved, err := svc.Review(opsCtx, deploymentsvc.ReviewInput{
		ApprovalID: v2.ID,
		Approve:    true,
		Comment:    "looks right now",
	})
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateApproved, approved.Status)
}

func TestScopingApproval_ReviewOnSettledVersionFails(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)
	svc := scopingService(env)
	opsCtx := env.AsActor(opsID, "ops_manager")

	v1, err := svc.Submit(env.Ctx, deploymentsvc.SubmitScopingInput{
		SiteID:      created.ID,
		ScopingData: scopingPayload(t),
	})
	require.NoError(t, err)

	_, err = svc.Review(opsCtx, deploymentsvc.ReviewInput{ApprovalID: v1.ID, Approve: true})
	require.NoError(t, err)

	_, err = svc.Review(opsCtx, deploymentsvc.ReviewInput{
		ApprovalID:      v1.ID,
		Approve:         false,
		RejectionReason: "changed my mind",
	})
	var svcErr *deploymentsvc.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "APPROVAL_INVALID_STATE", svcErr.Code)

	settled, err := svc.GetByID(env.Ctx, v1.ID)
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateApproved, settled.Status)
}

func TestScopingApproval_RoleGates(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)
	svc := scopingService(env)

	// Plain users submit nothing.
	userCtx := env.AsActor(userID, "user")
	_, err := svc.Submit(userCtx, deploymentsvc.SubmitScopingInput{
		SiteID:      created.ID,
		ScopingData: scopingPayload(t),
	})
	var svcErr *deploymentsvc.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "APPROVAL_FORBIDDEN", svcErr.Code)

	v1, err := svc.Submit(env.Ctx, deploymentsvc.SubmitScopingInput{
		SiteID:      created.ID,
		ScopingData: scopingPayload(t),
	})
	require.NoError(t, err)

	// Engineers cannot review their own chain.
	_, err = svc.Review(env.Ctx, deploymentsvc.ReviewInput{ApprovalID: v1.ID, Approve: true})
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "APPROVAL_FORBIDDEN", svcErr.Code)

	// Rejection without a reason is rejected up front.
	opsCtx := env.AsActor(opsID, "ops_manager")
	_, err = svc.Review(opsCtx, deploymentsvc.ReviewInput{ApprovalID: v1.ID, Approve: false})
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "APPROVAL_VALIDATION", svcErr.Code)
}

func TestScopingApproval_ActionTrail(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)
	svc := scopingService(env)
	opsCtx := env.AsActor(opsID, "ops_manager")

	v1, err := svc.Submit(env.Ctx, deploymentsvc.SubmitScopingInput{
		SiteID:      created.ID,
		ScopingData: scopingPayload(t),
	})
	require.NoError(t, err)
	_, err = svc.Review(opsCtx, deploymentsvc.ReviewInput{
		ApprovalID:      v1.ID,
		Approve:         false,
		RejectionReason: "missing cabling costs",
	})
	require.NoError(t, err)

	trail, err := svc.History(env.Ctx, v1.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	require.Equal(t, workflowaudit.ActionSubmit, trail[0].Action)
	require.Equal(t, engineerID, trail[0].PerformedBy)
	require.Equal(t, workflowaudit.ActionReject, trail[1].Action)
	require.Equal(t, opsID, trail[1].PerformedBy)
}

func TestCostingApproval_TotalsComputedAndValidated(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)
	svc := costingService(env)

	// A client-sent total that disagrees with qty x unit is refused.
	_, err := svc.Submit(env.Ctx, deploymentsvc.SubmitCostingInput{
		SiteID:       created.ID,
		OpsManagerID: opsID,
		Items: []deploymentsvc.CostingItemInput{
			{
				ItemType:  costingapproval.ItemTypeHardware,
				ItemName:  "POS terminal",
				Quantity:  2,
				UnitCost:  decimal.NewFromInt(450),
				TotalCost: decimal.NewFromInt(1000),
			},
		},
	})
	var svcErr *deploymentsvc.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "APPROVAL_VALIDATION", svcErr.Code)

	submitted, err := svc.Submit(env.Ctx, deploymentsvc.SubmitCostingInput{
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
			{
				ItemType:   costingapproval.ItemTypeSoftware,
				ItemName:   "Menu board license",
				Quantity:   1,
				UnitCost:   decimal.NewFromFloat(129.99),
				MonthlyFee: decimal.NewFromInt(15),
			},
			{
				ItemType: costingapproval.ItemTypeLicense,
				ItemName: "Payment gateway",
				Quantity: 3,
				UnitCost: decimal.NewFromInt(20),
			},
		},
	})
	require.NoError(t, err)
	require.True(t, submitted.TotalHardwareCost.Equal(decimal.NewFromInt(900)))
	require.True(t, submitted.TotalSoftwareCost.Equal(decimal.NewFromFloat(129.99)))
	require.True(t, submitted.TotalLicenseCost.Equal(decimal.NewFromInt(60)))
	require.True(t, submitted.TotalMonthlyFees.Equal(decimal.NewFromInt(15)))
	require.True(t, submitted.GrandTotal.Equal(decimal.NewFromFloat(1089.99)))
	require.Len(t, submitted.Items, 3)

	summary, err := svc.Summary(env.Ctx, submitted.ID)
	require.NoError(t, err)
	require.Len(t, summary.Groups, 3)
	require.Equal(t, costingapproval.ItemTypeHardware, summary.Groups[0].ItemType)
	require.Equal(t, 2, summary.Groups[0].Quantity)
	require.True(t, summary.Groups[0].Total.Equal(decimal.NewFromInt(900)))
	require.True(t, summary.GrandTotal.Equal(submitted.GrandTotal))
}

func TestCostingApproval_VersionChainIndependentOfScoping(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)
	opsCtx := env.AsActor(opsID, "ops_manager")

	// A pending scoping proposal does not block costing submissions.
	_, err := scopingService(env).Submit(env.Ctx, deploymentsvc.SubmitScopingInput{
		SiteID:      created.ID,
		ScopingData: scopingPayload(t),
	})
	require.NoError(t, err)

	item := deploymentsvc.CostingItemInput{
		ItemType: costingapproval.ItemTypeHardware,
		ItemName: "Router",
		Quantity: 1,
		UnitCost: decimal.NewFromInt(300),
	}

	v1, err := costingService(env).Submit(env.Ctx, deploymentsvc.SubmitCostingInput{
		SiteID:       created.ID,
		OpsManagerID: opsID,
		Items:        []deploymentsvc.CostingItemInput{item},
	})
	require.NoError(t, err)
	require.Equal(t, 1, v1.Version)

	_, err = costingService(env).Review(opsCtx, deploymentsvc.ReviewInput{
		ApprovalID:      v1.ID,
		Approve:         false,
		RejectionReason: "quote a cheaper model",
	})
	require.NoError(t, err)

	v2, err := costingService(env).Submit(env.Ctx, deploymentsvc.SubmitCostingInput{
		SiteID:       created.ID,
		OpsManagerID: opsID,
		Items:        []deploymentsvc.CostingItemInput{item},
	})
	require.NoError(t, err)
	require.Equal(t, 2, v2.Version)
	require.Equal(t, v1.ID, *v2.PreviousVersionID)

	prev, err := costingService(env).GetByID(env.Ctx, v1.ID)
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateResubmitted, prev.Status)
}

func TestApprovals_ArchivedSiteRefusesSubmissions(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)

	opsCtx := env.AsActor(opsID, "ops_manager")
	require.NoError(t, workflowService(env).ArchiveSite(opsCtx, created.ID, "site closed"))

	_, err := scopingService(env).Submit(env.Ctx, deploymentsvc.SubmitScopingInput{
		SiteID:      created.ID,
		ScopingData: scopingPayload(t),
	})
	var svcErr *deploymentsvc.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, "APPROVAL_INVALID_STATE", svcErr.Code)
}

func TestScopingApproval_SettledVersionIsNeverOverwritten(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)

	v1, err := scopingService(env).Submit(env.Ctx, deploymentsvc.SubmitScopingInput{
		SiteID:      created.ID,
		ScopingData: scopingPayload(t),
	})
	require.NoError(t, err)

	// Two reviewers race past the service's pending check. The first write
	// settles the row; the second reviewer's update has to land against the
	// already-settled row at the store, so it must match nothing instead of
	// overwriting the outcome.
	repo := persistence.NewScopingApprovalRepository()
	approvedRow, err := repo.UpdateReview(env.Ctx, v1.ID, scopingapproval.ReviewUpdate{
		Status:     sitestatus.StateApproved,
		ReviewerID: opsID,
		Comment:    "scope confirmed",
	})
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateApproved, approvedRow.Status)

	_, err = repo.UpdateReview(env.Ctx, v1.ID, scopingapproval.ReviewUpdate{
		Status:          sitestatus.StateRejected,
		ReviewerID:      adminID,
		RejectionReason: "survey out of date",
	})
	require.ErrorIs(t, err, scopingapproval.ErrNotPending)

	unchanged, err := scopingService(env).GetByID(env.Ctx, v1.ID)
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateApproved, unchanged.Status)
	require.NotNil(t, unchanged.ReviewedBy)
	require.Equal(t, opsID, *unchanged.ReviewedBy)
	require.Empty(t, unchanged.RejectionReason)

	_, err = repo.UpdateReview(env.Ctx, uuid.New(), scopingapproval.ReviewUpdate{
		Status:     sitestatus.StateApproved,
		ReviewerID: opsID,
	})
	require.ErrorIs(t, err, scopingapproval.ErrNotFound)
}

func TestCostingApproval_SettledVersionIsNeverOverwritten(t *testing.T) {
	env := setupEnv(t)
	created := mustCreateSite(t, siteService(env), env.Ctx)

	v1, err := costingService(env).Submit(env.Ctx, deploymentsvc.SubmitCostingInput{
		SiteID:       created.ID,
		OpsManagerID: opsID,
		Items: []deploymentsvc.CostingItemInput{{
			ItemType: costingapproval.ItemTypeHardware,
			ItemName: "POS terminal",
			Quantity: 2,
			UnitCost: decimal.NewFromInt(450),
		}},
	})
	require.NoError(t, err)

	repo := persistence.NewCostingApprovalRepository()
	_, err = repo.UpdateReview(env.Ctx, v1.ID, costingapproval.ReviewUpdate{
		Status:          sitestatus.StateRejected,
		ReviewerID:      opsID,
		RejectionReason: "quote expired",
	})
	require.NoError(t, err)

	_, err = repo.UpdateReview(env.Ctx, v1.ID, costingapproval.ReviewUpdate{
		Status:     sitestatus.StateApproved,
		ReviewerID: adminID,
	})
	require.ErrorIs(t, err, costingapproval.ErrNotPending)

	unchanged, err := costingService(env).GetByID(env.Ctx, v1.ID)
	require.NoError(t, err)
	require.Equal(t, sitestatus.StateRejected, unchanged.Status)
}
