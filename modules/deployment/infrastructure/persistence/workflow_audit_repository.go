package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/smartq/launchpad/modules/deployment/domain/entities/workflowaudit"
	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
	"github.com/smartq/launchpad/pkg/composables"
	"github.com/smartq/launchpad/pkg/repo"
)

type WorkflowAuditRepository struct{}

func NewWorkflowAuditRepository() workflowaudit.Repository {
	return &WorkflowAuditRepository{}
}

func (r *WorkflowAuditRepository) Append(ctx context.Context, entry *workflowaudit.Entry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	return tx.QueryRow(ctx, `
		INSERT INTO workflow_audit_logs (
			site_id,
			dimension,
			from_status,
			to_status,
			overall_status,
			user_id,
			user_role,
			reason,
			admin_override
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		pgUUID(entry.SiteID),
		string(entry.Dimension),
		string(entry.FromStatus),
		string(entry.ToStatus),
		string(entry.OverallStatus),
		pgUUID(entry.UserID),
		string(entry.UserRole),
		pgText(entry.Reason),
		entry.AdminOverride,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *WorkflowAuditRepository) List(ctx context.Context, params *workflowaudit.FindParams) ([]*workflowaudit.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where, args := buildAuditFilters(params)
	q := fmt.Sprintf(`
		SELECT
			id,
			site_id,
			dimension,
			from_status,
			to_status,
			overall_status,
			user_id,
			user_role,
			reason,
			admin_override,
			created_at
		FROM workflow_audit_logs
		WHERE %s
		ORDER BY created_at, id %s
	`, where, repo.FormatLimitOffset(params.Limit, params.Offset))

	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*workflowaudit.Entry, 0)
	for rows.Next() {
		var (
			e         workflowaudit.Entry
			dimension string
			from      string
			to        string
			overall   string
			role      string
			reason    pgtype.Text
		)
		if err := rows.Scan(
			&e.ID,
			&e.SiteID,
			&dimension,
			&from,
			&to,
			&overall,
			&e.UserID,
			&role,
			&reason,
			&e.AdminOverride,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.Dimension = sitestatus.Dimension(dimension)
		e.FromStatus = sitestatus.State(from)
		e.ToStatus = sitestatus.State(to)
		e.OverallStatus = sitestatus.Overall(overall)
		e.UserRole = sitestatus.Role(role)
		e.Reason = asText(reason)
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *WorkflowAuditRepository) Count(ctx context.Context, params *workflowaudit.FindParams) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, err
	}

	where, args := buildAuditFilters(params)
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM workflow_audit_logs WHERE `+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func buildAuditFilters(params *workflowaudit.FindParams) (string, []any) {
	where := []string{"1 = 1"}
	args := []any{}
	if params.SiteID != uuid.Nil {
		args = append(args, pgUUID(params.SiteID))
		where = append(where, fmt.Sprintf("site_id = $%d", len(args)))
	}
	if params.Dimension != "" {
		args = append(args, string(params.Dimension))
		where = append(where, fmt.Sprintf("dimension = $%d", len(args)))
	}
	if params.From != nil {
		args = append(args, pgTimePtr(params.From))
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if params.To != nil {
		args = append(args, pgTimePtr(params.To))
		where = append(where, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	return strings.Join(where, " AND "), args
}
