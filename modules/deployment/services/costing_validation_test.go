package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/smartq/launchpad/modules/deployment/domain/entities/costingapproval"
)

func TestValidateItems(t *testing.T) {
	base := CostingItemInput{
		ItemType: costingapproval.ItemTypeHardware,
		ItemName: "Till",
		Quantity: 4,
		UnitCost: decimal.NewFromFloat(12.50),
	}

	t.Run("empty list", func(t *testing.T) {
		_, err := validateItems(nil)
		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		require.Equal(t, "APPROVAL_VALIDATION", svcErr.Code)
	})

	t.Run("total recomputed when omitted", func(t *testing.T) {
		items, err := validateItems([]CostingItemInput{base})
		require.NoError(t, err)
		require.Len(t, items, 1)
		require.True(t, items[0].TotalCost.Equal(decimal.NewFromInt(50)))
	})

	t.Run("matching total accepted", func(t *testing.T) {
		in := base
		in.TotalCost = decimal.NewFromInt(50)
		items, err := validateItems([]CostingItemInput{in})
		require.NoError(t, err)
		require.True(t, items[0].TotalCost.Equal(decimal.NewFromInt(50)))
	})

	t.Run("mismatched total refused", func(t *testing.T) {
		in := base
		in.TotalCost = decimal.NewFromFloat(49.99)
		_, err := validateItems([]CostingItemInput{in})
		var svcErr *ServiceError
		require.ErrorAs(t, err, &svcErr)
		require.Equal(t, "APPROVAL_VALIDATION", svcErr.Code)
	})

	t.Run("zero quantity refused", func(t *testing.T) {
		in := base
		in.Quantity = 0
		_, err := validateItems([]CostingItemInput{in})
		require.Error(t, err)
	})

	t.Run("negative unit cost refused", func(t *testing.T) {
		in := base
		in.UnitCost = decimal.NewFromInt(-1)
		_, err := validateItems([]CostingItemInput{in})
		require.Error(t, err)
	})

	t.Run("unknown item type refused", func(t *testing.T) {
		in := base
		in.ItemType = "furniture"
		_, err := validateItems([]CostingItemInput{in})
		require.Error(t, err)
	})
}
