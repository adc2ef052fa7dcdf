package sitestatus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

func TestDeriveOverall_Progression(t *testing.T) {
	cases := []struct {
		name                                    string
		study, scoping, procurement, deployment sitestatus.State
		want                                    sitestatus.Overall
	}{
		{"fresh site", sitestatus.StateNotStarted, sitestatus.StateNotStarted, sitestatus.StatePending, sitestatus.StateNotStarted, sitestatus.OverallCreated},
		{"study running", sitestatus.StateInProgress, sitestatus.StateNotStarted, sitestatus.StatePending, sitestatus.StateNotStarted, sitestatus.OverallStudyInProgress},
		{"study finished", sitestatus.StateCompleted, sitestatus.StateNotStarted, sitestatus.StatePending, sitestatus.StateNotStarted, sitestatus.OverallSiteStudyDone},
		{"scoping submitted", sitestatus.StateCompleted, sitestatus.StatePendingReview, sitestatus.StatePending, sitestatus.StateNotStarted, sitestatus.OverallScopingDone},
		{"scoping rejected", sitestatus.StateCompleted, sitestatus.StateRejected, sitestatus.StatePending, sitestatus.StateNotStarted, sitestatus.OverallSiteStudyDone},
		{"scoping superseded", sitestatus.StateCompleted, sitestatus.StateResubmitted, sitestatus.StatePending, sitestatus.StateNotStarted, sitestatus.OverallSiteStudyDone},
		{"scoping approved", sitestatus.StateCompleted, sitestatus.StateApproved, sitestatus.StatePending, sitestatus.StateNotStarted, sitestatus.OverallApproved},
		{"hardware in transit", sitestatus.StateCompleted, sitestatus.StateApproved, sitestatus.StateInTransit, sitestatus.StateNotStarted, sitestatus.OverallApproved},
		{"hardware installed", sitestatus.StateCompleted, sitestatus.StateApproved, sitestatus.StateInstalled, sitestatus.StateNotStarted, sitestatus.OverallProcurementDone},
		{"rollout running", sitestatus.StateCompleted, sitestatus.StateApproved, sitestatus.StateInstalled, sitestatus.StateInProgress, sitestatus.OverallDeployed},
		{"rollout complete", sitestatus.StateCompleted, sitestatus.StateApproved, sitestatus.StateInstalled, sitestatus.StateCompleted, sitestatus.OverallLive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sitestatus.DeriveOverall(tc.study, tc.scoping, tc.procurement, tc.deployment)
			require.Equal(t, tc.want, got)
		})
	}
}

// The precedence rule must hold over every combination: an unfinished study
// always wins, regardless of what later dimensions claim.
func TestDeriveOverall_EarlierDimensionAlwaysWins(t *testing.T) {
	scopingStates := []sitestatus.State{
		sitestatus.StateNotStarted, sitestatus.StatePendingReview,
		sitestatus.StateApproved, sitestatus.StateRejected, sitestatus.StateResubmitted,
	}
	procurementStates := []sitestatus.State{
		sitestatus.StatePending, sitestatus.StateApproved, sitestatus.StateOrdered,
		sitestatus.StateInTransit, sitestatus.StateDelivered, sitestatus.StateInstalled,
	}
	deploymentStates := []sitestatus.State{
		sitestatus.StateNotStarted, sitestatus.StateInProgress, sitestatus.StateCompleted,
	}

	for _, sc := range scopingStates {
		for _, pr := range procurementStates {
			for _, dep := range deploymentStates {
				require.Equal(t, sitestatus.OverallCreated,
					sitestatus.DeriveOverall(sitestatus.StateNotStarted, sc, pr, dep))
				require.Equal(t, sitestatus.OverallStudyInProgress,
					sitestatus.DeriveOverall(sitestatus.StateInProgress, sc, pr, dep))

				got := sitestatus.DeriveOverall(sitestatus.StateCompleted, sc, pr, dep)
				switch sc {
				case sitestatus.StateNotStarted, sitestatus.StateRejected, sitestatus.StateResubmitted:
					require.Equal(t, sitestatus.OverallSiteStudyDone, got)
				case sitestatus.StatePendingReview:
					require.Equal(t, sitestatus.OverallScopingDone, got)
				case sitestatus.StateApproved:
					if pr != sitestatus.StateInstalled {
						require.Equal(t, sitestatus.OverallApproved, got)
					}
				}
			}
		}
	}
}
