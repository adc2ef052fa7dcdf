package costingapproval

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartq/launchpad/modules/deployment/domain/sitestatus"
)

type ItemType string

const (
	ItemTypeHardware ItemType = "hardware"
	ItemTypeSoftware ItemType = "software"
	ItemTypeLicense  ItemType = "license"
)

// CostingApproval is one immutable version of a site's itemized cost
// submission. It runs the same review lifecycle as a scoping approval but
// additionally tracks procurement progress once approved.
type CostingApproval struct {
	ID                   uuid.UUID
	SiteID               uuid.UUID
	DeploymentEngineerID uuid.UUID
	OpsManagerID         uuid.UUID
	Status               sitestatus.State
	ProcurementStatus    sitestatus.State

	TotalHardwareCost decimal.Decimal
	TotalSoftwareCost decimal.Decimal
	TotalLicenseCost  decimal.Decimal
	TotalMonthlyFees  decimal.Decimal
	GrandTotal        decimal.Decimal

	Version           int
	PreviousVersionID *uuid.UUID

	SubmittedAt     time.Time
	ReviewedAt      *time.Time
	ReviewedBy      *uuid.UUID
	ReviewComment   string
	RejectionReason string

	Items []*CostingItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *CostingApproval) IsPending() bool {
	return a.Status == sitestatus.StatePendingReview
}

// CostingItem is one line of a costing approval. It is owned exclusively by
// its parent version and shares its immutability.
type CostingItem struct {
	ID                uuid.UUID
	CostingApprovalID uuid.UUID
	ItemType          ItemType
	ItemName          string
	ItemDescription   string
	Category          string
	Manufacturer      string
	Model             string
	Quantity          int
	UnitCost          decimal.Decimal
	TotalCost         decimal.Decimal
	MonthlyFee        decimal.Decimal
	AnnualFee         decimal.Decimal
	IsRequired        bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ExpectedTotal is the only total a line item may carry: quantity times unit
// cost, computed with decimals so write-time enforcement is exact.
func (i *CostingItem) ExpectedTotal() decimal.Decimal {
	return i.UnitCost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Totals aggregates line items into the per-type and grand totals stored on
// the approval row.
type Totals struct {
	Hardware    decimal.Decimal
	Software    decimal.Decimal
	License     decimal.Decimal
	MonthlyFees decimal.Decimal
	GrandTotal  decimal.Decimal
}

func ComputeTotals(items []*CostingItem) Totals {
	t := Totals{
		Hardware:    decimal.Zero,
		Software:    decimal.Zero,
		License:     decimal.Zero,
		MonthlyFees: decimal.Zero,
		GrandTotal:  decimal.Zero,
	}
	for _, item := range items {
		total := item.ExpectedTotal()
		switch item.ItemType {
		case ItemTypeHardware:
			t.Hardware = t.Hardware.Add(total)
		case ItemTypeSoftware:
			t.Software = t.Software.Add(total)
		case ItemTypeLicense:
			t.License = t.License.Add(total)
		}
		t.MonthlyFees = t.MonthlyFees.Add(item.MonthlyFee)
		t.GrandTotal = t.GrandTotal.Add(total)
	}
	return t
}
