package sitestatus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

func TestValidate_LegalityCheckedBeforeRole(t *testing.T) {
	err := sitestatus.Validate(
		sitestatus.DimensionStudy,
		sitestatus.StateNotStarted, sitestatus.StateCompleted,
		sitestatus.RoleAdmin, true,
	)
	require.ErrorIs(t, err, sitestatus.ErrIllegalTransition)
}

func TestValidate_UnknownStatesAreIllegal(t *testing.T) {
	err := sitestatus.Validate(
		sitestatus.DimensionStudy,
		sitestatus.StateOrdered, sitestatus.StateCompleted,
		sitestatus.RoleAdmin, true,
	)
	require.ErrorIs(t, err, sitestatus.ErrIllegalTransition)
}

func TestValidate_RoleTable(t *testing.T) {
	// Only the deployment engineer completes a study.
	err := sitestatus.Validate(
		sitestatus.DimensionStudy,
		sitestatus.StateInProgress, sitestatus.StateCompleted,
		sitestatus.RoleDeploymentEngineer, false,
	)
	require.NoError(t, err)

	err = sitestatus.Validate(
		sitestatus.DimensionStudy,
		sitestatus.StateInProgress, sitestatus.StateCompleted,
		sitestatus.RoleOpsManager, false,
	)
	require.ErrorIs(t, err, sitestatus.ErrForbidden)
}

func TestValidate_ReviewReservedForOpsManagerAndAdmin(t *testing.T) {
	for _, to := range []sitestatus.State{sitestatus.StateApproved, sitestatus.StateRejected} {
		err := sitestatus.Validate(
			sitestatus.DimensionScoping,
			sitestatus.StatePendingReview, to,
			sitestatus.RoleDeploymentEngineer, false,
		)
		require.ErrorIs(t, err, sitestatus.ErrForbidden)

		require.NoError(t, sitestatus.Validate(
			sitestatus.DimensionScoping, sitestatus.StatePendingReview, to, sitestatus.RoleOpsManager, false))
		require.NoError(t, sitestatus.Validate(
			sitestatus.DimensionScoping, sitestatus.StatePendingReview, to, sitestatus.RoleAdmin, false))
	}
}

func TestValidate_AdminPassesEveryRoleCheck(t *testing.T) {
	// Admins pass the role table everywhere, override flag or not, including
	// transitions the table reserves for other roles.
	for _, tc := range []struct {
		dimension sitestatus.Dimension
		from, to  sitestatus.State
	}{
		{sitestatus.DimensionStudy, sitestatus.StateInProgress, sitestatus.StateCompleted},
		{sitestatus.DimensionProcurement, sitestatus.StateApproved, sitestatus.StateOrdered},
		{sitestatus.DimensionDeployment, sitestatus.StateNotStarted, sitestatus.StateInProgress},
	} {
		require.NoError(t, sitestatus.Validate(tc.dimension, tc.from, tc.to, sitestatus.RoleAdmin, false))
		require.NoError(t, sitestatus.Validate(tc.dimension, tc.from, tc.to, sitestatus.RoleAdmin, true))
	}
}

func TestValidate_OverrideFlagGrantsNothingToOtherRoles(t *testing.T) {
	err := sitestatus.Validate(
		sitestatus.DimensionStudy,
		sitestatus.StateInProgress, sitestatus.StateCompleted,
		sitestatus.RoleOpsManager, true,
	)
	require.ErrorIs(t, err, sitestatus.ErrForbidden)
}

func TestValidate_DefaultUserHasNoTransitions(t *testing.T) {
	for _, d := range sitestatus.Dimensions() {
		from := sitestatus.InitialState(d)
		for _, to := range sitestatus.LegalTransitions(d, from) {
			err := sitestatus.Validate(d, from, to, sitestatus.RoleUser, false)
			require.ErrorIs(t, err, sitestatus.ErrForbidden)
		}
	}
}
