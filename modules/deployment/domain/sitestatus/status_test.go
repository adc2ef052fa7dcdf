package sitestatus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

func TestParseDimension(t *testing.T) {
	d, err := sitestatus.ParseDimension("procurement")
	require.NoError(t, err)
	require.Equal(t, sitestatus.DimensionProcurement, d)

	_, err = sitestatus.ParseDimension("shipping")
	require.Error(t, err)
}

func TestInitialState(t *testing.T) {
	require.Equal(t, sitestatus.StateNotStarted, sitestatus.InitialState(sitestatus.DimensionStudy))
	require.Equal(t, sitestatus.StateNotStarted, sitestatus.InitialState(sitestatus.DimensionScoping))
	require.Equal(t, sitestatus.StatePending, sitestatus.InitialState(sitestatus.DimensionProcurement))
	require.Equal(t, sitestatus.StateNotStarted, sitestatus.InitialState(sitestatus.DimensionDeployment))
}

func TestIsValidState_RejectsForeignStates(t *testing.T) {
	require.True(t, sitestatus.IsValidState(sitestatus.DimensionStudy, sitestatus.StateInProgress))
	require.False(t, sitestatus.IsValidState(sitestatus.DimensionStudy, sitestatus.StateOrdered))
	require.False(t, sitestatus.IsValidState(sitestatus.DimensionProcurement, sitestatus.StateNotStarted))
}

func TestLegalTransitions_ProcurementIsLinear(t *testing.T) {
	chain := []sitestatus.State{
		sitestatus.StatePending,
		sitestatus.StateApproved,
		sitestatus.StateOrdered,
		sitestatus.StateInTransit,
		sitestatus.StateDelivered,
		sitestatus.StateInstalled,
	}
	for i := 0; i < len(chain)-1; i++ {
		next := sitestatus.LegalTransitions(sitestatus.DimensionProcurement, chain[i])
		require.Equal(t, []sitestatus.State{chain[i+1]}, next)
	}
	require.Empty(t, sitestatus.LegalTransitions(sitestatus.DimensionProcurement, sitestatus.StateInstalled))
}

func TestLegalTransitions_ScopingRejectionCycle(t *testing.T) {
	require.ElementsMatch(t,
		[]sitestatus.State{sitestatus.StateApproved, sitestatus.StateRejected},
		sitestatus.LegalTransitions(sitestatus.DimensionScoping, sitestatus.StatePendingReview),
	)
	require.Equal(t,
		[]sitestatus.State{sitestatus.StateResubmitted},
		sitestatus.LegalTransitions(sitestatus.DimensionScoping, sitestatus.StateRejected),
	)
	require.Equal(t,
		[]sitestatus.State{sitestatus.StatePendingReview},
		sitestatus.LegalTransitions(sitestatus.DimensionScoping, sitestatus.StateResubmitted),
	)
}

func TestCanTransition_NoSkipping(t *testing.T) {
	require.False(t, sitestatus.CanTransition(sitestatus.DimensionStudy, sitestatus.StateNotStarted, sitestatus.StateCompleted))
	require.False(t, sitestatus.CanTransition(sitestatus.DimensionProcurement, sitestatus.StatePending, sitestatus.StateInstalled))
	require.False(t, sitestatus.CanTransition(sitestatus.DimensionScoping, sitestatus.StateApproved, sitestatus.StatePendingReview))
}
