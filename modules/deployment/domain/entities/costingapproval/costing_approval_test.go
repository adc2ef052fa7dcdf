package costingapproval_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/smartq/launchpad/modules/deployment/domain/entities/costingapproval"
)

func TestExpectedTotal(t *testing.T) {
	item := &costingapproval.CostingItem{
		Quantity: 3,
		UnitCost: decimal.NewFromFloat(19.99),
	}
	require.True(t, item.ExpectedTotal().Equal(decimal.NewFromFloat(59.97)))
}

func TestComputeTotals(t *testing.T) {
	items := []*costingapproval.CostingItem{
		{
			ItemType:   costingapproval.ItemTypeHardware,
			Quantity:   2,
			UnitCost:   decimal.NewFromInt(450),
			MonthlyFee: decimal.NewFromInt(5),
		},
		{
			ItemType: costingapproval.ItemTypeHardware,
			Quantity: 1,
			UnitCost: decimal.NewFromFloat(99.50),
		},
		{
			ItemType:   costingapproval.ItemTypeSoftware,
			Quantity:   1,
			UnitCost:   decimal.NewFromFloat(129.99),
			MonthlyFee: decimal.NewFromInt(15),
		},
		{
			ItemType: costingapproval.ItemTypeLicense,
			Quantity: 3,
			UnitCost: decimal.NewFromInt(20),
		},
	}

	totals := costingapproval.ComputeTotals(items)
	require.True(t, totals.Hardware.Equal(decimal.NewFromFloat(999.50)))
	require.True(t, totals.Software.Equal(decimal.NewFromFloat(129.99)))
	require.True(t, totals.License.Equal(decimal.NewFromInt(60)))
	require.True(t, totals.MonthlyFees.Equal(decimal.NewFromInt(20)))
	require.True(t, totals.GrandTotal.Equal(decimal.NewFromFloat(1189.49)))
}

func TestComputeTotalsEmpty(t *testing.T) {
	totals := costingapproval.ComputeTotals(nil)
	require.True(t, totals.GrandTotal.IsZero())
	require.True(t, totals.Hardware.IsZero())
}
