package site

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

type CriticalityLevel string

const (
	CriticalityLow    CriticalityLevel = "low"
	CriticalityMedium CriticalityLevel = "medium"
	CriticalityHigh   CriticalityLevel = "high"
)

// Site is a deployment target. Its four dimension statuses are only ever
// mutated through the workflow service; the overall status is derived from
// them in the same write and never set directly.
type Site struct {
	ID               uuid.UUID
	Name             string
	OrganizationID   uuid.UUID
	OrganizationName string
	Sector           string
	UnitCode         string
	Location         string
	Postcode         string
	Region           string
	Country          string
	Criticality      CriticalityLevel
	TargetLiveDate   *time.Time

	AssignedOpsManager         uuid.UUID
	AssignedDeploymentEngineer uuid.UUID

	StudyStatus       sitestatus.State
	ScopingStatus     sitestatus.State
	ProcurementStatus sitestatus.State
	DeploymentStatus  sitestatus.State
	OverallStatus     sitestatus.Overall

	IsArchived    bool
	ArchivedAt    *time.Time
	ArchiveReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DimensionStatus returns the stored state of one dimension.
func (s *Site) DimensionStatus(d sitestatus.Dimension) sitestatus.State {
	switch d {
	case sitestatus.DimensionStudy:
		return s.StudyStatus
	case sitestatus.DimensionScoping:
		return s.ScopingStatus
	case sitestatus.DimensionProcurement:
		return s.ProcurementStatus
	case sitestatus.DimensionDeployment:
		return s.DeploymentStatus
	}
	return ""
}

// SetDimensionStatus updates one dimension in memory and rederives the
// overall status so the two can never diverge.
func (s *Site) SetDimensionStatus(d sitestatus.Dimension, state sitestatus.State) {
	switch d {
	case sitestatus.DimensionStudy:
		s.StudyStatus = state
	case sitestatus.DimensionScoping:
		s.ScopingStatus = state
	case sitestatus.DimensionProcurement:
		s.ProcurementStatus = state
	case sitestatus.DimensionDeployment:
		s.DeploymentStatus = state
	}
	s.OverallStatus = sitestatus.DeriveOverall(s.StudyStatus, s.ScopingStatus, s.ProcurementStatus, s.DeploymentStatus)
}
