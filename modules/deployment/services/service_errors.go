package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/smartq/launchpad/modules/deployment/domain/aggregates/site"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/costingapproval"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/scopingapproval"
)

type ServiceError struct {
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(status int, code, message string, cause error) *ServiceError {
	return &ServiceError{Status: status, Code: code, Message: message, Cause: cause}
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}

	if errors.Is(err, site.ErrNotFound) {
		return newServiceError(http.StatusNotFound, "SITE_NOT_FOUND", "site not found", err)
	}
	if errors.Is(err, scopingapproval.ErrNotFound) || errors.Is(err, costingapproval.ErrNotFound) {
		return newServiceError(http.StatusNotFound, "APPROVAL_NOT_FOUND", "approval not found", err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return newServiceError(http.StatusNotFound, "WORKFLOW_NOT_FOUND", "not found", err)
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		switch pgErr.ConstraintName {
		case "idx_scoping_approvals_single_pending", "idx_costing_approvals_single_pending":
			// Two submitters raced past the read-time check; the partial
			// unique index is the backstop.
			return newServiceError(http.StatusConflict, "APPROVAL_INVALID_STATE", "a pending proposal already exists for this site", err)
		default:
			return newServiceError(http.StatusConflict, "WORKFLOW_CONFLICT", "unique constraint violated", err)
		}
	case "23503": // foreign_key_violation
		return newServiceError(http.StatusUnprocessableEntity, "WORKFLOW_PARENT_NOT_FOUND", "referenced record not found", err)
	default:
		return newServiceError(http.StatusInternalServerError, "WORKFLOW_INTERNAL", fmt.Sprintf("database error (%s)", pgErr.Code), err)
	}
}
