package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/aggregates/site"
)

func siteResponse(s *site.Site) map[string]any {
	resp := map[string]any{
		"id":                           s.ID,
		"name":                         s.Name,
		"organization_name":            s.OrganizationName,
		"sector":                       s.Sector,
		"unit_code":                    s.UnitCode,
		"location":                     s.Location,
		"postcode":                     s.Postcode,
		"region":                       s.Region,
		"country":                      s.Country,
		"criticality":                  s.Criticality,
		"site_study_status":            s.StudyStatus,
		"scoping_status":               s.ScopingStatus,
		"procurement_status":           s.ProcurementStatus,
		"deployment_status":            s.DeploymentStatus,
		"overall_status":               s.OverallStatus,
		"is_archived":                  s.IsArchived,
		"created_at":                   s.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":                   s.UpdatedAt.UTC().Format(time.RFC3339),
		"assigned_ops_manager":         nil,
		"assigned_deployment_engineer": nil,
	}
	if s.OrganizationID != uuid.Nil {
		resp["organization_id"] = s.OrganizationID
	}
	if s.AssignedOpsManager != uuid.Nil {
		resp["assigned_ops_manager"] = s.AssignedOpsManager
	}
	if s.AssignedDeploymentEngineer != uuid.Nil {
		resp["assigned_deployment_engineer"] = s.AssignedDeploymentEngineer
	}
	if s.TargetLiveDate != nil {
		resp["target_live_date"] = s.TargetLiveDate.Format("2006-01-02")
	}
	if s.IsArchived {
		resp["archived_at"] = s.ArchivedAt
		resp["archive_reason"] = s.ArchiveReason
	}
	return resp
}
