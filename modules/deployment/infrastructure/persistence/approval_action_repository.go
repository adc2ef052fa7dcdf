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

type ApprovalActionRepository struct{}

func NewApprovalActionRepository() workflowaudit.ActionRepository {
	return &ApprovalActionRepository{}
}

func (r *ApprovalActionRepository) Append(ctx context.Context, action *workflowaudit.ApprovalAction) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}

	return tx.QueryRow(ctx, `
		INSERT INTO approval_actions (
			approval_id,
			approval_kind,
			site_id,
			action,
			actor_id,
			actor_role,
			comment,
			metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`,
		pgUUID(action.ApprovalID),
		string(action.ApprovalKind),
		pgUUID(action.SiteID),
		string(action.Action),
		pgUUID(action.PerformedBy),
		string(action.Role),
		pgText(action.Comment),
		action.Metadata,
	).Scan(&action.ID, &action.CreatedAt)
}

func (r *ApprovalActionRepository) List(ctx context.Context, params *workflowaudit.ActionFindParams) ([]*workflowaudit.ApprovalAction, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	where := []string{"1 = 1"}
	args := []any{}
	if params.ApprovalID != uuid.Nil {
		args = append(args, pgUUID(params.ApprovalID))
		where = append(where, fmt.Sprintf("approval_id = $%d", len(args)))
	}
	if params.ApprovalKind != "" {
		args = append(args, string(params.ApprovalKind))
		where = append(where, fmt.Sprintf("approval_kind = $%d", len(args)))
	}
	if params.SiteID != uuid.Nil {
		args = append(args, pgUUID(params.SiteID))
		where = append(where, fmt.Sprintf("site_id = $%d", len(args)))
	}

	q := fmt.Sprintf(`
		SELECT
			id,
			approval_id,
			approval_kind,
			site_id,
			action,
			actor_id,
			actor_role,
			comment,
			metadata,
			created_at
		FROM approval_actions
		WHERE %s
		ORDER BY created_at, id %s
	`, strings.Join(where, " AND "), repo.FormatLimitOffset(params.Limit, params.Offset))

	rows, err := tx.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := make([]*workflowaudit.ApprovalAction, 0)
	for rows.Next() {
		var (
			a       workflowaudit.ApprovalAction
			kind    string
			action  string
			role    string
			comment pgtype.Text
		)
		if err := rows.Scan(
			&a.ID,
			&a.ApprovalID,
			&kind,
			&a.SiteID,
			&action,
			&a.PerformedBy,
			&role,
			&comment,
			&a.Metadata,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.ApprovalKind = workflowaudit.ApprovalKind(kind)
		a.Action = workflowaudit.ActionType(action)
		a.Role = sitestatus.Role(role)
		a.Comment = asText(comment)
		actions = append(actions, &a)
	}
	return actions, rows.Err()
}
