package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/smartq/launchpad/modules/deployment/domain/entities/costingapproval"
	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
	"github.com/smartq/launchpad/pkg/composables"
	"github.com/smartq/launchpad/pkg/repo"
)

const costingApprovalColumns = `
	id,
	site_id,
	deployment_engineer_id,
	ops_manager_id,
	status,
	procurement_status,
	total_hardware_cost,
	total_software_cost,
	total_license_cost,
	total_monthly_fees,
	grand_total,
	version,
	previous_version_id,
	submitted_at,
	reviewed_by,
	reviewed_at,
	review_comment,
	rejection_reason,
	created_at,
	updated_at`

const costingItemColumns = `
	id,
	costing_approval_id,
	item_type,
	item_name,
	item_description,
	category,
	manufacturer,
	model,
	quantity,
	unit_cost,
	total_cost,
	monthly_fee,
	annual_fee,
	is_required,
	created_at,
	updated_at`

type CostingApprovalRepository struct{}

func NewCostingApprovalRepository() costingapproval.Repository {
	return &CostingApprovalRepository{}
}

func (r *CostingApprovalRepository) Create(ctx context.Context, a *costingapproval.CostingApproval) (*costingapproval.CostingApproval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO costing_approvals (
			site_id,
			deployment_engineer_id,
			ops_manager_id,
			status,
			procurement_status,
			total_hardware_cost,
			total_software_cost,
			total_license_cost,
			total_monthly_fees,
			grand_total,
			version,
			previous_version_id,
			submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now())
		RETURNING `+costingApprovalColumns,
		pgUUID(a.SiteID),
		pgUUID(a.DeploymentEngineerID),
		pgUUID(a.OpsManagerID),
		string(a.Status),
		string(a.ProcurementStatus),
		a.TotalHardwareCost,
		a.TotalSoftwareCost,
		a.TotalLicenseCost,
		a.TotalMonthlyFees,
		a.GrandTotal,
		a.Version,
		pgUUIDPtr(a.PreviousVersionID),
	)
	created, err := scanCostingApproval(row)
	if err != nil {
		return nil, err
	}

	// Line items live and die with their version row.
	for _, item := range a.Items {
		itemRow := tx.QueryRow(ctx, `
			INSERT INTO costing_items (
				costing_approval_id,
				item_type,
				item_name,
				item_description,
				category,
				manufacturer,
				model,
				quantity,
				unit_cost,
				total_cost,
				monthly_fee,
				annual_fee,
				is_required
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING `+costingItemColumns,
			pgUUID(created.ID),
			string(item.ItemType),
			item.ItemName,
			item.ItemDescription,
			item.Category,
			item.Manufacturer,
			item.Model,
			item.Quantity,
			item.UnitCost,
			item.TotalCost,
			item.MonthlyFee,
			item.AnnualFee,
			item.IsRequired,
		)
		createdItem, err := scanCostingItem(itemRow)
		if err != nil {
			return nil, err
		}
		created.Items = append(created.Items, createdItem)
	}
	return created, nil
}

func (r *CostingApprovalRepository) GetByID(ctx context.Context, id uuid.UUID) (*costingapproval.CostingApproval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `SELECT `+costingApprovalColumns+` FROM costing_approvals WHERE id = $1`, pgUUID(id))
	a, err := scanCostingApproval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, costingapproval.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Items, err = r.ListItems(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *CostingApprovalRepository) GetLatestBySite(ctx context.Context, siteID uuid.UUID) (*costingapproval.CostingApproval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+costingApprovalColumns+`
		FROM costing_approvals
		WHERE site_id = $1
		ORDER BY version DESC
		LIMIT 1
	`, pgUUID(siteID))
	a, err := scanCostingApproval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, costingapproval.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.Items, err = r.ListItems(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *CostingApprovalRepository) FindPendingBySite(ctx context.Context, siteID uuid.UUID) (*costingapproval.CostingApproval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT `+costingApprovalColumns+`
		FROM costing_approvals
		WHERE site_id = $1 AND status = $2
	`, pgUUID(siteID), string(sitestatus.StatePendingReview))
	a, err := scanCostingApproval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *CostingApprovalRepository) List(ctx context.Context, params *costingapproval.FindParams) ([]*costingapproval.CostingApproval, error) {
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
		`SELECT %s FROM costing_approvals WHERE %s ORDER BY site_id, version DESC %s`,
		costingApprovalColumns, strings.Join(where, " AND "), repo.FormatLimitOffset(params.Limit, params.Offset),
	)
	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	approvals := make([]*costingapproval.CostingApproval, 0)
	for rows.Next() {
		a, err := scanCostingApproval(rows)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

func (r *CostingApprovalRepository) ListItems(ctx context.Context, approvalID uuid.UUID) ([]*costingapproval.CostingItem, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT `+costingItemColumns+`
		FROM costing_items
		WHERE costing_approval_id = $1
		ORDER BY created_at, id
	`, pgUUID(approvalID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*costingapproval.CostingItem, 0)
	for rows.Next() {
		item, err := scanCostingItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *CostingApprovalRepository) UpdateReview(ctx context.Context, id uuid.UUID, update costingapproval.ReviewUpdate) (*costingapproval.CostingApproval, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	// Guarded on status so a concurrent reviewer who already settled the
	// row makes this update match zero rows instead of clobbering it.
	row := tx.QueryRow(ctx, `
		UPDATE costing_approvals
		SET status = $1,
			reviewed_by = $2,
			reviewed_at = now(),
			review_comment = $3,
			rejection_reason = $4,
			updated_at = now()
		WHERE id = $5 AND status = $6
		RETURNING `+costingApprovalColumns,
		string(update.Status),
		pgUUID(update.ReviewerID),
		pgText(update.Comment),
		pgText(update.RejectionReason),
		pgUUID(id),
		string(sitestatus.StatePendingReview),
	)
	a, err := scanCostingApproval(row)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if qErr := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM costing_approvals WHERE id = $1)`, pgUUID(id),
		).Scan(&exists); qErr != nil {
			return nil, qErr
		}
		if exists {
			return nil, costingapproval.ErrNotPending
		}
		return nil, costingapproval.ErrNotFound
	}
	return a, err
}

func (r *CostingApprovalRepository) MarkResubmitted(ctx context.Context, id uuid.UUID) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE costing_approvals
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`, string(sitestatus.StateResubmitted), pgUUID(id), string(sitestatus.StateRejected))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return costingapproval.ErrNotFound
	}
	return nil
}

func (r *CostingApprovalRepository) UpdateProcurementStatus(ctx context.Context, id uuid.UUID, status sitestatus.State) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE costing_approvals
		SET procurement_status = $1, updated_at = now()
		WHERE id = $2
	`, string(status), pgUUID(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return costingapproval.ErrNotFound
	}
	return nil
}

func scanCostingApproval(row pgx.Row) (*costingapproval.CostingApproval, error) {
	var (
		a               costingapproval.CostingApproval
		status          string
		procurement     string
		previousVersion pgtype.UUID
		reviewedBy      pgtype.UUID
		reviewedAt      pgtype.Timestamptz
		reviewComment   pgtype.Text
		rejectionReason pgtype.Text
	)
	if err := row.Scan(
		&a.ID,
		&a.SiteID,
		&a.DeploymentEngineerID,
		&a.OpsManagerID,
		&status,
		&procurement,
		&a.TotalHardwareCost,
		&a.TotalSoftwareCost,
		&a.TotalLicenseCost,
		&a.TotalMonthlyFees,
		&a.GrandTotal,
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
	a.Status = sitestatus.State(status)
	a.ProcurementStatus = sitestatus.State(procurement)
	a.PreviousVersionID = asUUIDPtr(previousVersion)
	a.ReviewedBy = asUUIDPtr(reviewedBy)
	a.ReviewedAt = asTimePtr(reviewedAt)
	a.ReviewComment = asText(reviewComment)
	a.RejectionReason = asText(rejectionReason)
	return &a, nil
}

func scanCostingItem(row pgx.Row) (*costingapproval.CostingItem, error) {
	var (
		item     costingapproval.CostingItem
		itemType string
	)
	if err := row.Scan(
		&item.ID,
		&item.CostingApprovalID,
		&itemType,
		&item.ItemName,
		&item.ItemDescription,
		&item.Category,
		&item.Manufacturer,
		&item.Model,
		&item.Quantity,
		&item.UnitCost,
		&item.TotalCost,
		&item.MonthlyFee,
		&item.AnnualFee,
		&item.IsRequired,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.ItemType = costingapproval.ItemType(itemType)
	return &item, nil
}
