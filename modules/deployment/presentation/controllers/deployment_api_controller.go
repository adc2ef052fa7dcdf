package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/smartq/launchpad/modules/deployment/domain/aggregates/site"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/costingapproval"
	"github.com/smartq/launchpad/modules/deployment/domain/entities/workflowaudit"
	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
	"github.com/smartq/launchpad/modules/deployment/presentation/controllers/dtos"
	"github.com/smartq/launchpad/modules/deployment/services"
	"github.com/smartq/launchpad/pkg/application"
	"github.com/smartq/launchpad/pkg/configuration"
	"github.com/smartq/launchpad/pkg/middleware"
)

type DeploymentAPIController struct {
	app       application.Application
	sites     *services.SiteService
	workflow  *services.WorkflowService
	scoping   *services.ScopingApprovalService
	costing   *services.CostingApprovalService
	audit     *services.AuditQueryService
	apiPrefix string
}

func NewDeploymentAPIController(app application.Application) application.Controller {
	return &DeploymentAPIController{
		app:       app,
		sites:     app.Service(services.SiteService{}).(*services.SiteService),
		workflow:  app.Service(services.WorkflowService{}).(*services.WorkflowService),
		scoping:   app.Service(services.ScopingApprovalService{}).(*services.ScopingApprovalService),
		costing:   app.Service(services.CostingApprovalService{}).(*services.CostingApprovalService),
		audit:     app.Service(services.AuditQueryService{}).(*services.AuditQueryService),
		apiPrefix: "/api/v1",
	}
}

func (c *DeploymentAPIController) Key() string {
	return c.apiPrefix
}

func (c *DeploymentAPIController) Register(r *mux.Router) {
	conf := configuration.Use()
	api := r.PathPrefix(c.apiPrefix).Subrouter()
	api.Use(middleware.ProvideActor(middleware.HeaderActorResolver{
		IDHeader:   conf.ActorIDHeader,
		RoleHeader: conf.ActorRoleHeader,
	}))

	api.HandleFunc("/sites", c.CreateSite).Methods(http.MethodPost)
	api.HandleFunc("/sites", c.ListSites).Methods(http.MethodGet)
	api.HandleFunc("/sites/{id}", c.GetSite).Methods(http.MethodGet)
	api.HandleFunc("/sites/{id}", c.ArchiveSite).Methods(http.MethodDelete)
	api.HandleFunc("/sites/{id}/transitions", c.Transition).Methods(http.MethodPost)
	api.HandleFunc("/sites/{id}/transitions", c.ListTransitions).Methods(http.MethodGet)
	api.HandleFunc("/sites/{id}/dimensions/{dimension}/next", c.LegalNextStates).Methods(http.MethodGet)

	api.HandleFunc("/scoping-approvals", c.SubmitScoping).Methods(http.MethodPost)
	api.HandleFunc("/scoping-approvals/pending", c.ListPendingScoping).Methods(http.MethodGet)
	api.HandleFunc("/scoping-approvals/{id}", c.GetScoping).Methods(http.MethodGet)
	api.HandleFunc("/scoping-approvals/{id}/review", c.ReviewScoping).Methods(http.MethodPost)
	api.HandleFunc("/scoping-approvals/{id}/history", c.ScopingHistory).Methods(http.MethodGet)
	api.HandleFunc("/sites/{id}/scoping-approvals", c.ScopingChain).Methods(http.MethodGet)

	api.HandleFunc("/costing-approvals", c.SubmitCosting).Methods(http.MethodPost)
	api.HandleFunc("/costing-approvals/pending", c.ListPendingCosting).Methods(http.MethodGet)
	api.HandleFunc("/costing-approvals/{id}", c.GetCosting).Methods(http.MethodGet)
	api.HandleFunc("/costing-approvals/{id}/review", c.ReviewCosting).Methods(http.MethodPost)
	api.HandleFunc("/costing-approvals/{id}/summary", c.CostingSummary).Methods(http.MethodGet)
	api.HandleFunc("/costing-approvals/{id}/history", c.CostingHistory).Methods(http.MethodGet)
	api.HandleFunc("/sites/{id}/costing-approvals", c.CostingChain).Methods(http.MethodGet)

	api.HandleFunc("/sites/{id}/audit", c.SiteAudit).Methods(http.MethodGet)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dto any) bool {
	if err := json.NewDecoder(r.Body).Decode(dto); err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "WORKFLOW_VALIDATION", "invalid request body")
		return false
	}
	if err := dtos.Validate(dto); err != nil {
		if fields := dtos.FieldErrors(err); len(fields) > 0 {
			writeFieldErrors(w, r, fields)
			return false
		}
		writeAPIError(w, r, http.StatusBadRequest, "WORKFLOW_VALIDATION", err.Error())
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "WORKFLOW_VALIDATION", "invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func pagination(r *http.Request) (limit, offset int) {
	conf := configuration.Use()
	limit = conf.PageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > conf.MaxPageSize {
		limit = conf.MaxPageSize
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

func (c *DeploymentAPIController) CreateSite(w http.ResponseWriter, r *http.Request) {
	var dto dtos.CreateSiteRequest
	if !decodeBody(w, r, &dto) {
		return
	}

	input := services.CreateSiteInput{
		Name:             dto.Name,
		OrganizationID:   dto.OrganizationID,
		OrganizationName: dto.OrganizationName,
		Sector:           dto.Sector,
		UnitCode:         dto.UnitCode,
		Location:         dto.Location,
		Postcode:         dto.Postcode,
		Region:           dto.Region,
		Country:          dto.Country,
		Criticality:      site.CriticalityLevel(dto.Criticality),
	}
	if dto.TargetLiveDate != nil {
		parsed, err := time.Parse("2006-01-02", *dto.TargetLiveDate)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "WORKFLOW_VALIDATION", "invalid target_live_date")
			return
		}
		input.TargetLiveDate = &parsed
	}
	if dto.AssignedOpsManager != nil {
		input.AssignedOpsManager = *dto.AssignedOpsManager
	}
	if dto.AssignedDeploymentEngineer != nil {
		input.AssignedDeploymentEngineer = *dto.AssignedDeploymentEngineer
	}

	created, err := c.sites.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, siteResponse(created))
}

func (c *DeploymentAPIController) ListSites(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	params := &site.FindParams{
		Sector:          r.URL.Query().Get("sector"),
		Overall:         sitestatus.Overall(r.URL.Query().Get("overall_status")),
		IncludeArchived: r.URL.Query().Get("include_archived") == "true",
		Limit:           limit,
		Offset:          offset,
	}
	if raw := r.URL.Query().Get("organization_id"); raw != "" {
		orgID, err := uuid.Parse(raw)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "WORKFLOW_VALIDATION", "invalid organization_id")
			return
		}
		params.OrganizationID = orgID
	}

	sites, total, err := c.sites.List(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]map[string]any, 0, len(sites))
	for _, s := range sites {
		items = append(items, siteResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (c *DeploymentAPIController) GetSite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	found, err := c.sites.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, siteResponse(found))
}

func (c *DeploymentAPIController) ArchiveSite(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var dto dtos.ArchiveSiteRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	if err := c.workflow.ArchiveSite(r.Context(), id, dto.Reason); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (c *DeploymentAPIController) Transition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var dto dtos.TransitionRequest
	if !decodeBody(w, r, &dto) {
		return
	}

	dimension, err := sitestatus.ParseDimension(dto.Dimension)
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "WORKFLOW_VALIDATION", err.Error())
		return
	}

	updated, err := c.workflow.Transition(r.Context(), services.TransitionInput{
		SiteID:        id,
		Dimension:     dimension,
		To:            sitestatus.State(dto.ToStatus),
		ExpectedFrom:  sitestatus.State(dto.ExpectedFrom),
		Reason:        dto.Reason,
		AdminOverride: dto.AdminOverride,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, siteResponse(updated))
}

func (c *DeploymentAPIController) LegalNextStates(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	dimension, err := sitestatus.ParseDimension(mux.Vars(r)["dimension"])
	if err != nil {
		writeAPIError(w, r, http.StatusBadRequest, "WORKFLOW_VALIDATION", err.Error())
		return
	}
	next, err := c.workflow.LegalNextStates(r.Context(), id, dimension)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"site_id":     id,
		"dimension":   dimension,
		"next_states": next,
	})
}

func (c *DeploymentAPIController) ListTransitions(w http.ResponseWriter, r *http.Request) {
	c.siteAuditResponse(w, r, "")
}

func (c *DeploymentAPIController) SiteAudit(w http.ResponseWriter, r *http.Request) {
	c.siteAuditResponse(w, r, r.URL.Query().Get("dimension"))
}

func (c *DeploymentAPIController) siteAuditResponse(w http.ResponseWriter, r *http.Request, dimensionFilter string) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	limit, offset := pagination(r)
	params := &workflowaudit.FindParams{
		SiteID: id,
		Limit:  limit,
		Offset: offset,
	}
	if dimensionFilter != "" {
		dimension, err := sitestatus.ParseDimension(dimensionFilter)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "WORKFLOW_VALIDATION", err.Error())
			return
		}
		params.Dimension = dimension
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "WORKFLOW_VALIDATION", "invalid from timestamp")
			return
		}
		params.From = &from
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeAPIError(w, r, http.StatusBadRequest, "WORKFLOW_VALIDATION", "invalid to timestamp")
			return
		}
		params.To = &to
	}

	entries, total, err := c.audit.Transitions(r.Context(), params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  entries,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (c *DeploymentAPIController) SubmitScoping(w http.ResponseWriter, r *http.Request) {
	var dto dtos.SubmitScopingRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	created, err := c.scoping.Submit(r.Context(), services.SubmitScopingInput{
		SiteID:        dto.SiteID,
		ScopingData:   dto.ScopingData,
		CostBreakdown: dto.CostBreakdown,
		OpsManagerID:  dto.OpsManagerID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (c *DeploymentAPIController) GetScoping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	found, err := c.scoping.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (c *DeploymentAPIController) ReviewScoping(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var dto dtos.ReviewRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	reviewed, err := c.scoping.Review(r.Context(), services.ReviewInput{
		ApprovalID:      id,
		Approve:         dto.Approve,
		Comment:         dto.Comment,
		RejectionReason: dto.RejectionReason,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewed)
}

func (c *DeploymentAPIController) ScopingChain(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	chain, err := c.scoping.GetBySite(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": chain})
}

func (c *DeploymentAPIController) ListPendingScoping(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	pending, err := c.scoping.ListPending(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": pending, "limit": limit, "offset": offset})
}

func (c *DeploymentAPIController) ScopingHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	trail, err := c.scoping.History(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": trail})
}

func (c *DeploymentAPIController) SubmitCosting(w http.ResponseWriter, r *http.Request) {
	var dto dtos.SubmitCostingRequest
	if !decodeBody(w, r, &dto) {
		return
	}

	items := make([]services.CostingItemInput, 0, len(dto.Items))
	for _, item := range dto.Items {
		input := services.CostingItemInput{
			ItemType:        costingapproval.ItemType(item.ItemType),
			ItemName:        item.ItemName,
			ItemDescription: item.ItemDescription,
			Category:        item.Category,
			Manufacturer:    item.Manufacturer,
			Model:           item.Model,
			Quantity:        item.Quantity,
			UnitCost:        item.UnitCost,
			TotalCost:       item.TotalCost,
			MonthlyFee:      item.MonthlyFee,
			AnnualFee:       item.AnnualFee,
			IsRequired:      true,
		}
		if item.IsRequired != nil {
			input.IsRequired = *item.IsRequired
		}
		items = append(items, input)
	}

	created, err := c.costing.Submit(r.Context(), services.SubmitCostingInput{
		SiteID:       dto.SiteID,
		OpsManagerID: dto.OpsManagerID,
		Items:        items,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (c *DeploymentAPIController) GetCosting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	found, err := c.costing.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (c *DeploymentAPIController) ReviewCosting(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var dto dtos.ReviewRequest
	if !decodeBody(w, r, &dto) {
		return
	}
	reviewed, err := c.costing.Review(r.Context(), services.ReviewInput{
		ApprovalID:      id,
		Approve:         dto.Approve,
		Comment:         dto.Comment,
		RejectionReason: dto.RejectionReason,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviewed)
}

func (c *DeploymentAPIController) CostingChain(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	chain, err := c.costing.GetBySite(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": chain})
}

func (c *DeploymentAPIController) ListPendingCosting(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	pending, err := c.costing.ListPending(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": pending, "limit": limit, "offset": offset})
}

func (c *DeploymentAPIController) CostingSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	summary, err := c.costing.Summary(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (c *DeploymentAPIController) CostingHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	trail, err := c.costing.History(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": trail})
}
