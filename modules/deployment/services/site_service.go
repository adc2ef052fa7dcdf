package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartq/launchpad/modules/deployment/domain/aggregates/site"
	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
	"github.com/smartq/launchpad/pkg/composables"
	"github.com/smartq/launchpad/pkg/eventbus"
)

type CreateSiteInput struct {
	Name                       string
	OrganizationID             uuid.UUID
	OrganizationName           string
	Sector                     string
	UnitCode                   string
	Location                   string
	Postcode                   string
	Region                     string
	Country                    string
	Criticality                site.CriticalityLevel
	TargetLiveDate             *time.Time
	AssignedOpsManager         uuid.UUID
	AssignedDeploymentEngineer uuid.UUID
}

type SiteService struct {
	repo      site.Repository
	publisher eventbus.EventBus
}

func NewSiteService(repo site.Repository, publisher eventbus.EventBus) *SiteService {
	return &SiteService{repo: repo, publisher: publisher}
}

// Create registers a new site with every dimension at its initial state. The
// overall status is derived, never accepted from the caller.
func (s *SiteService) Create(ctx context.Context, input CreateSiteInput) (*site.Site, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, newServiceError(http.StatusBadRequest, "SITE_VALIDATION", "name is required", nil)
	}
	if input.Criticality == "" {
		input.Criticality = site.CriticalityMedium
	}
	switch input.Criticality {
	case site.CriticalityLow, site.CriticalityMedium, site.CriticalityHigh:
	default:
		return nil, newServiceError(http.StatusBadRequest, "SITE_VALIDATION", "unknown criticality level", nil)
	}

	newSite := &site.Site{
		Name:                       input.Name,
		OrganizationID:             input.OrganizationID,
		OrganizationName:           input.OrganizationName,
		Sector:                     input.Sector,
		UnitCode:                   input.UnitCode,
		Location:                   input.Location,
		Postcode:                   input.Postcode,
		Region:                     input.Region,
		Country:                    input.Country,
		Criticality:                input.Criticality,
		TargetLiveDate:             input.TargetLiveDate,
		AssignedOpsManager:         input.AssignedOpsManager,
		AssignedDeploymentEngineer: input.AssignedDeploymentEngineer,
		StudyStatus:                sitestatus.InitialState(sitestatus.DimensionStudy),
		ScopingStatus:              sitestatus.InitialState(sitestatus.DimensionScoping),
		ProcurementStatus:          sitestatus.InitialState(sitestatus.DimensionProcurement),
		DeploymentStatus:           sitestatus.InitialState(sitestatus.DimensionDeployment),
	}
	newSite.OverallStatus = sitestatus.DeriveOverall(
		newSite.StudyStatus, newSite.ScopingStatus, newSite.ProcurementStatus, newSite.DeploymentStatus,
	)

	created, err := composables.InTxResult(ctx, func(txCtx context.Context) (*site.Site, error) {
		return s.repo.Create(txCtx, newSite)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return created, nil
}

func (s *SiteService) GetByID(ctx context.Context, id uuid.UUID) (*site.Site, error) {
	found, err := composables.InTxResult(ctx, func(txCtx context.Context) (*site.Site, error) {
		return s.repo.GetByID(txCtx, id)
	})
	if errors.Is(err, site.ErrNotFound) {
		return nil, newServiceError(http.StatusNotFound, "SITE_NOT_FOUND", "site not found", err)
	}
	if err != nil {
		return nil, mapPgError(err)
	}
	return found, nil
}

func (s *SiteService) List(ctx context.Context, params *site.FindParams) ([]*site.Site, int64, error) {
	type listing struct {
		sites []*site.Site
		total int64
	}
	result, err := composables.InTxResult(ctx, func(txCtx context.Context) (listing, error) {
		sites, err := s.repo.List(txCtx, params)
		if err != nil {
			return listing{}, err
		}
		total, err := s.repo.Count(txCtx, params)
		if err != nil {
			return listing{}, err
		}
		return listing{sites: sites, total: total}, nil
	})
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	return result.sites, result.total, nil
}
