package dtos

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartq/launchpad/pkg/serrors"
)

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}()

func Validate(dto any) error {
	return validate.Struct(dto)
}

// FieldErrors converts validator failures into per-field errors. Returns nil
// when the error did not come from struct validation.
func FieldErrors(err error) []*serrors.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]*serrors.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if fe.Tag() == "required" {
			out = append(out, serrors.NewFieldRequiredError(field))
			continue
		}
		msg := fmt.Sprintf("%s failed validation on %s", field, fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s failed validation on %s=%s", field, fe.Tag(), fe.Param())
		}
		out = append(out, serrors.NewInvalidFieldError(field, msg))
	}
	return out
}

type CreateSiteRequest struct {
	Name                       string     `json:"name" validate:"required,max=255"`
	OrganizationID             uuid.UUID  `json:"organization_id" validate:"omitempty"`
	OrganizationName           string     `json:"organization_name" validate:"omitempty,max=255"`
	Sector                     string     `json:"sector" validate:"omitempty,max=64"`
	UnitCode                   string     `json:"unit_code" validate:"omitempty,max=64"`
	Location                   string     `json:"location" validate:"omitempty,max=255"`
	Postcode                   string     `json:"postcode" validate:"omitempty,max=32"`
	Region                     string     `json:"region" validate:"omitempty,max=128"`
	Country                    string     `json:"country" validate:"omitempty,max=128"`
	Criticality                string     `json:"criticality" validate:"omitempty,oneof=low medium high"`
	TargetLiveDate             *string    `json:"target_live_date" validate:"omitempty,datetime=2006-01-02"`
	AssignedOpsManager         *uuid.UUID `json:"assigned_ops_manager"`
	AssignedDeploymentEngineer *uuid.UUID `json:"assigned_deployment_engineer"`
}

type TransitionRequest struct {
	Dimension     string `json:"dimension" validate:"required,oneof=study scoping procurement deployment"`
	ToStatus      string `json:"to_status" validate:"required"`
	ExpectedFrom  string `json:"expected_from" validate:"omitempty"`
	Reason        string `json:"reason" validate:"omitempty,max=2000"`
	AdminOverride bool   `json:"admin_override"`
}

type ArchiveSiteRequest struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

type SubmitScopingRequest struct {
	SiteID        uuid.UUID       `json:"site_id" validate:"required"`
	ScopingData   json.RawMessage `json:"scoping_data" validate:"required"`
	CostBreakdown json.RawMessage `json:"cost_breakdown"`
	OpsManagerID  *uuid.UUID      `json:"ops_manager_id"`
}

type CostingItemRequest struct {
	ItemType        string          `json:"item_type" validate:"required,oneof=hardware software license"`
	ItemName        string          `json:"item_name" validate:"required,max=255"`
	ItemDescription string          `json:"item_description" validate:"omitempty"`
	Category        string          `json:"category" validate:"omitempty,max=64"`
	Manufacturer    string          `json:"manufacturer" validate:"omitempty,max=128"`
	Model           string          `json:"model" validate:"omitempty,max=128"`
	Quantity        int             `json:"quantity" validate:"required,gt=0"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	MonthlyFee      decimal.Decimal `json:"monthly_fee"`
	AnnualFee       decimal.Decimal `json:"annual_fee"`
	IsRequired      *bool           `json:"is_required"`
}

type SubmitCostingRequest struct {
	SiteID       uuid.UUID            `json:"site_id" validate:"required"`
	OpsManagerID uuid.UUID            `json:"ops_manager_id" validate:"required"`
	Items        []CostingItemRequest `json:"items" validate:"required,min=1,dive"`
}

type ReviewRequest struct {
	Approve         bool   `json:"approve"`
	Comment         string `json:"comment" validate:"omitempty,max=2000"`
	RejectionReason string `json:"rejection_reason" validate:"omitempty,max=2000"`
}
