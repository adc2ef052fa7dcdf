package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/smartq/launchpad/modules/deployment/domain/entities/scopingapproval"
	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
	"github.com/smartq/launchpad/pkg/composables"
	"github.com/smartq/launchpad/pkg/repo"
)

const scopingApprovalColumns = `
	id,
	site_id,
	site_name,
	deployment_engineer_id,
	ops_manager_id,
	status,
	scoping_data,
	cost_breakdown,
	version,
	previous_version_id,
	submitted_at,
	reviewed_by,
	reviewed_at,
	review_comment,
	rejection_reason,
	created_at,
	updated_at`

type ScopingApprovalRepository struct{}

func NewScopingApprovalRepository() scopingapproval.Repository {
	return &ScopingApprovalRepository{}
}

func (r *ScopingApprovalRepository) Create(ctx context.Context, a *scopingapproval.ScopingApproval) (*scopingapproval.ScopingApproval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO scoping_approvals (
			site_id,
			site_name,
			deployment_engineer_id,
			ops_manager_id,
			status,
			scoping_data,
			cost_breakdown,
			version,
			previous_version_id,
			submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		RETURNING `+scopingApprovalColumns,
		pgUUID(a.SiteID),
		a.SiteName,
		pgUUID(a.DeploymentEngineerID),
		pgUUIDPtr(a.OpsManagerID),
		string(a.Status),
		a.ScopingData,
		a.CostBreakdown,
		a.Version,
		pgUUIDPtr(a.PreviousVersionID),
	)
	created, err := scanScopingApproval(row)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *ScopingApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*scopingapproval.ScopingApproval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `SELECT `+scopingApprovalColumns+` FROM scoping_approvals WHERE id = $1`, pgUUID(id))
	a, err := scanScopingApproval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scopingapproval.ErrNotFound
	}
	return a, err
}

func (r *ScopingApprovalRepository) GetLatestBySite(ctx context.Context, siteID uuid.UUID) (*scopingapproval.ScopingApproval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+scopingApprovalColumns+`
		FROM scoping_approvals
		WHERE site_id = $1
		ORDER BY version DESC
		LIMIT 1
	`, pgUUID(siteID))
	a, err := scanScopingApproval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, scopingapproval.ErrNotFound
	}
	return a, err
}

func (r *ScopingApprovalRepository) FindPendingBySite(ctx context.Context, siteID uuid.UUID) (*scopingapproval.ScopingApproval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+scopingApprovalColumns+`
		FROM scoping_approvals
		WHERE site_id = $1 AND status = $2
	`, pgUUID(siteID), string(sitestatus.StatePendingReview))
	a, err := scanScopingApproval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *ScopingApprovalRepository) List(ctx context.Context, params *scopingapproval.FindParams) ([]*scopingapproval.ScopingApproval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"1 = 1"}
	args := []any{}
	if params.SiteID != uuid.Nil {
		args = append(args, pgUUID(params.SiteID))
		where = append(where, fmt.Sprintf("site_id = $%d", len(args)))
	}
	if params.Status != "" {
		args = append(args, string(params.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	q := fmt.Sprintf(
		`SELECT %s FROM scoping_approvals WHERE %s ORDER BY site_id, version DESC %s`,
		scopingApprovalColumns, strings.Join(where, " AND "), repo.FormatLimitOffset(params.Limit, params.Offset),
	)
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	approvals := make([]*scopingapproval.ScopingApproval, 0)
	for rows.Next() {
		a, err := scanScopingApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

func (r *ScopingApprovalRepository) UpdateReview(ctx context.Context, id uuid.UUID, update scopingapproval.ReviewUpdate) (*scopingapproval.ScopingApproval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	// Guarded on status so a concurrent reviewer who already settled the
	// row makes this update match zero rows instead of clobbering it.
	row := tx.QueryRow(ctx, `
		UPDATE scoping_approvals
		SET status = $1,
			reviewed_by = $2,
			reviewed_at = now(),
			review_comment = $3,
			rejection_reason = $4,
			updated_at = now()
		WHERE id = $5 AND status = $6
		RETURNING `+scopingApprovalColumns,
		string(update.Status),
		pgUUID(update.ReviewerID),
		pgText(update.Comment),
		pgText(update.RejectionReason),
		pgUUID(id),
		string(sitestatus.StatePendingReview),
	)
	a, err := scanScopingApproval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if qErr := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM scoping_approvals WHERE id = $1)`, pgUUID(id),
		).Scan(&exists); qErr != nil {
			return nil, qErr
		}
		if exists {
			return nil, scopingapproval.ErrNotPending
		}
		return nil, scopingapproval.ErrNotFound
	}
	return a, err
}

func (r *ScopingApprovalRepository) MarkResubmitted(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE scoping_approvals
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, string(sitestatus.StateResubmitted), pgUUID(id), string(sitestatus.StateRejected))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scopingapproval.ErrNotFound
	}
	return nil
}

func scanScopingApproval(row pgx.Row) (*scopingapproval.ScopingApproval, error) {
	var (
		a               scopingapproval.ScopingApproval
		opsManager      pgtype.UUID
		status          string
		costBreakdown   []byte
		previousVersion pgtype.UUID
		reviewedBy      pgtype.UUID
		reviewedAt      pgtype.Timestamptz
		reviewComment   pgtype.Text
		rejectionReason pgtype.Text
	)
	if err := row.Scan(
		&a.ID,
		&a.SiteID,
		&a.SiteName,
		&a.DeploymentEngineerID,
		&opsManager,
		&status,
		&a.ScopingData,
		&costBreakdown,
		&a.Version,
		&previousVersion,
		&a.SubmittedAt,
		&reviewedBy,
		&reviewedAt,
		&reviewComment,
		&rejectionReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.OpsManagerID = asUUIDPtr(opsManager)
	a.Status = sitestatus.State(status)
	a.CostBreakdown = costBreakdown
	a.PreviousVersionID = asUUIDPtr(previousVersion)
	a.ReviewedBy = asUUIDPtr(reviewedBy)
	a.ReviewedAt = asTimePtr(reviewedAt)
	a.ReviewComment = asText(reviewComment)
	a.RejectionReason = asText(rejectionReason)
	return &a, nil
}
