package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/smartq/launchpad/modules/deployment/domain/aggregates/site"
	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
	"github.com/smartq/launchpad/pkg/composables"
	"github.com/smartq/launchpad/pkg/repo"
)

const siteColumns = `
	id,
	name,
	organization_id,
	organization_name,
	sector,
	unit_code,
	location,
	postcode,
	region,
	country,
	criticality,
	target_live_date,
	assigned_ops_manager,
	assigned_deployment_engineer,
	site_study_status,
	scoping_status,
	procurement_status,
	deployment_status,
	overall_status,
	is_archived,
	archived_at,
	archive_reason,
	created_at,
	updated_at`

type SiteRepository struct{}

func NewSiteRepository() site.Repository {
	return &SiteRepository{}
}

func (r *SiteRepository) Create(ctx context.Context, s *site.Site) (*site.Site, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO sites (
			name,
			organization_id,
			organization_name,
			sector,
			unit_code,
			location,
			postcode,
			region,
			country,
			criticality,
			target_live_date,
			assigned_ops_manager,
			assigned_deployment_engineer,
			site_study_status,
			scoping_status,
			procurement_status,
			deployment_status,
			overall_status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING `+siteColumns,
		s.Name,
		pgUUID(s.OrganizationID),
		s.OrganizationName,
		s.Sector,
		s.UnitCode,
		s.Location,
		s.Postcode,
		s.Region,
		s.Country,
		string(s.Criticality),
		pgDatePtr(s.TargetLiveDate),
		pgUUID(s.AssignedOpsManager),
		pgUUID(s.AssignedDeploymentEngineer),
		string(s.StudyStatus),
		string(s.ScopingStatus),
		string(s.ProcurementStatus),
		string(s.DeploymentStatus),
		string(s.OverallStatus),
	)
	return scanSite(row)
}

func (r *SiteRepository) GetByID(ctx context.Context, id uuid.UUID) (*site.Site, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, pgUUID(id))
	s, err := scanSite(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, site.ErrNotFound
	}
	return s, err
}

func (r *SiteRepository) List(ctx context.Context, params *site.FindParams) ([]*site.Site, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildSiteFilters(params)
	q := fmt.Sprintf(
		`SELECT %s FROM sites WHERE %s ORDER BY created_at DESC %s`,
		siteColumns, where, repo.FormatLimitOffset(params.Limit, params.Offset),
	)
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sites := make([]*site.Site, 0)
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

func (r *SiteRepository) Count(ctx context.Context, params *site.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	where, args := buildSiteFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM sites WHERE `+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SiteRepository) UpdateDimensionStatus(
	ctx context.Context,
	id uuid.UUID,
	d sitestatus.Dimension,
	expected, next sitestatus.State,
	overall sitestatus.Overall,
) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	col, err := dimensionColumn(d)
	if err != nil {
		return err
	}

	// The guard on the expected value is what makes concurrent transitions
	// lose cleanly instead of double-applying.
	tag, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE sites
		SET %s = $1, overall_status = $2, updated_at = now()
		WHERE id = $3 AND %s = $4 AND NOT is_archived
	`, col, col),
		string(next), string(overall), pgUUID(id), string(expected),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sites WHERE id = $1 AND NOT is_archived)`, pgUUID(id)).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return site.ErrNotFound
		}
		return site.ErrStatusChanged
	}
	return nil
}

func (r *SiteRepository) Archive(ctx context.Context, id uuid.UUID, reason string) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE sites
		SET is_archived = true, archived_at = now(), archive_reason = $1, updated_at = now()
		WHERE id = $2 AND NOT is_archived
	`, pgText(reason), pgUUID(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return site.ErrNotFound
	}
	return nil
}

func dimensionColumn(d sitestatus.Dimension) (string, error) {
	switch d {
	case sitestatus.DimensionStudy:
		return "site_study_status", nil
	case sitestatus.DimensionScoping:
		return "scoping_status", nil
	case sitestatus.DimensionProcurement:
		return "procurement_status", nil
	case sitestatus.DimensionDeployment:
		return "deployment_status", nil
	}
	return "", fmt.Errorf("unknown dimension %q", d)
}

func buildSiteFilters(params *site.FindParams) (string, []any) {
	where := []string{"1 = 1"}
	args := []any{}
	if !params.IncludeArchived {
		where = append(where, "NOT is_archived")
	}
	if params.OrganizationID != uuid.Nil {
		args = append(args, pgUUID(params.OrganizationID))
		where = append(where, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if params.Overall != "" {
		args = append(args, string(params.Overall))
		where = append(where, fmt.Sprintf("overall_status = $%d", len(args)))
	}
	if params.Sector != "" {
		args = append(args, params.Sector)
		where = append(where, fmt.Sprintf("sector = $%d", len(args)))
	}
	return strings.Join(where, " AND "), args
}

func scanSite(row pgx.Row) (*site.Site, error) {
	var (
		s              site.Site
		orgID          pgtype.UUID
		targetLiveDate pgtype.Date
		opsManager     pgtype.UUID
		engineer       pgtype.UUID
		criticality    string
		study          string
		scoping        string
		procurement    string
		deployment     string
		overall        string
		archivedAt     pgtype.Timestamptz
		archiveReason  pgtype.Text
	)
	if err := row.Scan(
		&s.ID,
		&s.Name,
		&orgID,
		&s.OrganizationName,
		&s.Sector,
		&s.UnitCode,
		&s.Location,
		&s.Postcode,
		&s.Region,
		&s.Country,
		&criticality,
		&targetLiveDate,
		&opsManager,
		&engineer,
		&study,
		&scoping,
		&procurement,
		&deployment,
		&overall,
		&s.IsArchived,
		&archivedAt,
		&archiveReason,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	s.OrganizationID = asUUID(orgID)
	s.TargetLiveDate = asDatePtr(targetLiveDate)
	s.AssignedOpsManager = asUUID(opsManager)
	s.AssignedDeploymentEngineer = asUUID(engineer)
	s.Criticality = site.CriticalityLevel(criticality)
	s.StudyStatus = sitestatus.State(study)
	s.ScopingStatus = sitestatus.State(scoping)
	s.ProcurementStatus = sitestatus.State(procurement)
	s.DeploymentStatus = sitestatus.State(deployment)
	s.OverallStatus = sitestatus.Overall(overall)
	s.ArchivedAt = asTimePtr(archivedAt)
	s.ArchiveReason = asText(archiveReason)
	return &s, nil
}
