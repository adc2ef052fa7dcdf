package controllers

import (
	"errors"
	"net/http"

	"github.com/smartq/launchpad/modules/deployment/services"
	"github.com/smartq/launchpad/pkg/httpapi"
	"github.com/smartq/launchpad/pkg/middleware"
	"github.com/smartq/launchpad/pkg/serrors"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	_ = httpapi.WriteJSON(w, status, payload)
}

func writeAPIError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	meta := map[string]string{}
	if requestID := middleware.RequestID(r.Context()); requestID != "" {
		meta["request_id"] = requestID
	}
	_ = httpapi.WriteError(w, status, code, message, meta)
}

func writeFieldErrors(w http.ResponseWriter, r *http.Request, fields []*serrors.FieldError) {
	meta := map[string]string{}
	if requestID := middleware.RequestID(r.Context()); requestID != "" {
		meta["request_id"] = requestID
	}
	_ = httpapi.WriteFieldErrors(w, http.StatusBadRequest, "WORKFLOW_VALIDATION", fields, meta)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		writeAPIError(w, r, svcErr.Status, svcErr.Code, svcErr.Message)
		return
	}
	writeAPIError(w, r, http.StatusInternalServerError, "WORKFLOW_INTERNAL", err.Error())
}
