package sitestatus

// Overall is the single derived lifecycle label shown to users. It is never
// stored independently of the four dimension states it is computed from.
type Overall string

const (
	OverallCreated         Overall = "created"
	OverallStudyInProgress Overall = "study_in_progress"
	OverallSiteStudyDone   Overall = "site_study_done"
	OverallScopingDone     Overall = "scoping_done"
	OverallApproved        Overall = "approved"
	OverallProcurementDone Overall = "procurement_done"
	OverallDeployed        Overall = "deployed"
	OverallLive            Overall = "live"
)

// DeriveOverall collapses the four dimension states into the overall status.
// The earliest incomplete dimension wins: study gates scoping, scoping gates
// procurement, procurement gates deployment.
func DeriveOverall(study, scoping, procurement, deployment State) Overall {
	switch study {
	case StateNotStarted:
		return OverallCreated
	case StateInProgress:
		return OverallStudyInProgress
	}

	switch scoping {
	case StateNotStarted, StateRejected, StateResubmitted:
		return OverallSiteStudyDone
	case StatePendingReview:
		return OverallScopingDone
	}

	if procurement != StateInstalled {
		return OverallApproved
	}

	switch deployment {
	case StateInProgress:
		return OverallDeployed
	case StateCompleted:
		return OverallLive
	default:
		return OverallProcurementDone
	}
}
