package sitestatus

import "fmt"

// Dimension is one of the four independently tracked progress axes of a site.
type Dimension string

const (
	DimensionStudy       Dimension = "study"
	DimensionScoping     Dimension = "scoping"
	DimensionProcurement Dimension = "procurement"
	DimensionDeployment  Dimension = "deployment"
)

func Dimensions() []Dimension {
	return []Dimension{DimensionStudy, DimensionScoping, DimensionProcurement, DimensionDeployment}
}

func ParseDimension(s string) (Dimension, error) {
	switch Dimension(s) {
	case DimensionStudy, DimensionScoping, DimensionProcurement, DimensionDeployment:
		return Dimension(s), nil
	}
	return "", fmt.Errorf("unknown status dimension: %q", s)
}

// State is a lifecycle state within one dimension.
type State string

const (
	// Study and deployment dimensions.
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"

	// Scoping dimension, shared with proposal review statuses.
	StatePendingReview State = "pending_review"
	StateApproved      State = "approved"
	StateRejected      State = "rejected"
	StateResubmitted   State = "resubmitted"

	// Procurement dimension, shared with costing procurement statuses.
	// StateApproved is reused between scoping and procurement.
	StatePending   State = "pending"
	StateOrdered   State = "ordered"
	StateInTransit State = "in_transit"
	StateDelivered State = "delivered"
	StateInstalled State = "installed"
)

// transitions is the closed legality graph per dimension. Transitions absent
// from this table are undefined and cannot be forced by anyone, admin
// override included.
var transitions = map[Dimension]map[State][]State{
	DimensionStudy: {
		StateNotStarted: {StateInProgress},
		StateInProgress: {StateCompleted},
		StateCompleted:  {},
	},
	DimensionScoping: {
		StateNotStarted:    {StatePendingReview},
		StatePendingReview: {StateApproved, StateRejected},
		StateRejected:      {StateResubmitted},
		StateResubmitted:   {StatePendingReview},
		StateApproved:      {},
	},
	DimensionProcurement: {
		StatePending:   {StateApproved},
		StateApproved:  {StateOrdered},
		StateOrdered:   {StateInTransit},
		StateInTransit: {StateDelivered},
		StateDelivered: {StateInstalled},
		StateInstalled: {},
	},
	DimensionDeployment: {
		StateNotStarted: {StateInProgress},
		StateInProgress: {StateCompleted},
		StateCompleted:  {},
	},
}

// InitialState is the state a dimension starts in when a site is created.
func InitialState(d Dimension) State {
	if d == DimensionProcurement {
		return StatePending
	}
	return StateNotStarted
}

func IsValidState(d Dimension, s State) bool {
	_, ok := transitions[d][s]
	return ok
}

// LegalTransitions returns the states reachable from s within dimension d.
func LegalTransitions(d Dimension, s State) []State {
	next := transitions[d][s]
	out := make([]State, len(next))
	copy(out, next)
	return out
}

func CanTransition(d Dimension, from, to State) bool {
	for _, next := range transitions[d][from] {
		if next == to {
			return true
		}
	}
	return false
}
