package sitestatus

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTransition: the target state is not reachable from the
	// current state in the legality graph.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrForbidden: the actor's role is not permitted to perform this
	// transition and no admin override applies.
	ErrForbidden = errors.New("role not permitted for transition")
)

type transitionKey struct {
	dimension Dimension
	from, to  State
}

// rolePermissions is the single place the legal-transition/role matrix lives.
// Reviewing a scoping proposal and approving procurement spend sit with the
// ops manager (or an admin); field work belongs to the deployment engineer.
var rolePermissions = map[transitionKey][]Role{
	{DimensionStudy, StateNotStarted, StateInProgress}: {RoleOpsManager, RoleDeploymentEngineer},
	{DimensionStudy, StateInProgress, StateCompleted}:  {RoleDeploymentEngineer},

	{DimensionScoping, StateNotStarted, StatePendingReview}:  {RoleDeploymentEngineer},
	{DimensionScoping, StatePendingReview, StateApproved}:    {RoleOpsManager, RoleAdmin},
	{DimensionScoping, StatePendingReview, StateRejected}:    {RoleOpsManager, RoleAdmin},
	{DimensionScoping, StateRejected, StateResubmitted}:      {RoleDeploymentEngineer},
	{DimensionScoping, StateResubmitted, StatePendingReview}: {RoleDeploymentEngineer},

	{DimensionProcurement, StatePending, StateApproved}:    {RoleOpsManager, RoleAdmin},
	{DimensionProcurement, StateApproved, StateOrdered}:    {RoleOpsManager},
	{DimensionProcurement, StateOrdered, StateInTransit}:   {RoleOpsManager},
	{DimensionProcurement, StateInTransit, StateDelivered}: {RoleOpsManager},
	{DimensionProcurement, StateDelivered, StateInstalled}: {RoleDeploymentEngineer},

	{DimensionDeployment, StateNotStarted, StateInProgress}: {RoleDeploymentEngineer},
	{DimensionDeployment, StateInProgress, StateCompleted}:  {RoleDeploymentEngineer},
}

// Validate decides whether the requested transition is legal for the actor.
// The legality graph is checked first and cannot be overridden by anyone.
// Admins pass every role check; the override flag grants nothing extra and
// only survives as an audit marker on admin-issued transitions.
func Validate(d Dimension, from, to State, role Role, adminOverride bool) error {
	if !IsValidState(d, from) {
		return fmt.Errorf("%w: %s is not a %s state", ErrIllegalTransition, from, d)
	}
	if !IsValidState(d, to) {
		return fmt.Errorf("%w: %s is not a %s state", ErrIllegalTransition, to, d)
	}
	if !CanTransition(d, from, to) {
		return fmt.Errorf("%w: %s -> %s is not defined for %s", ErrIllegalTransition, from, to, d)
	}

	if role == RoleAdmin {
		return nil
	}
	for _, allowed := range rolePermissions[transitionKey{d, from, to}] {
		if allowed == role {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not move %s from %s to %s", ErrForbidden, role, d, from, to)
}
