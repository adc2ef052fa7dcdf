package services

import (
	"context"

	"github.com/smartq/launchpad/modules/deployment/domain/entities/workflowaudit"
	"github.com/smartq/launchpad/pkg/composables"
)

// AuditQueryService is the read side of the audit trail. Writes happen only
// inside the workflow and approval services' transactions.
type AuditQueryService struct {
	entries workflowaudit.Repository
	actions workflowaudit.ActionRepository
}

func NewAuditQueryService(entries workflowaudit.Repository, actions workflowaudit.ActionRepository) *AuditQueryService {
	return &AuditQueryService{entries: entries, actions: actions}
}

func (s *AuditQueryService) Transitions(ctx context.Context, params *workflowaudit.FindParams) ([]*workflowaudit.Entry, int64, error) {
	type listing struct {
		entries []*workflowaudit.Entry
		total   int64
	}
	result, err := composables.InTxResult(ctx, func(txCtx context.Context) (listing, error) {
		entries, err := s.entries.List(txCtx, params)
		if err != nil {
			return listing{}, err
		}
		total, err := s.entries.Count(txCtx, params)
		if err != nil {
			return listing{}, err
		}
		return listing{entries: entries, total: total}, nil
	})
	if err != nil {
		return nil, 0, mapPgError(err)
	}
	return result.entries, result.total, nil
}

func (s *AuditQueryService) Actions(ctx context.Context, params *workflowaudit.ActionFindParams) ([]*workflowaudit.ApprovalAction, error) {
	actions, err := composables.InTxResult(ctx, func(txCtx context.Context) ([]*workflowaudit.ApprovalAction, error) {
		return s.actions.List(txCtx, params)
	})
	if err != nil {
		return nil, mapPgError(err)
	}
	return actions, nil
}
