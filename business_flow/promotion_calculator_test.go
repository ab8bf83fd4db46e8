package businessflow

import (
	"testing"

	"github.com/showbook-app/showbook/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func displayItem(sku string, unitList float64, displayQty int) models.SelectionItem {
	item := models.SelectionItem{
		SKU:        sku,
		Name:       sku,
		UnitList:   unitList,
		Qty:        displayQty,
		DisplayQty: displayQty,
	}
	item.Normalize()
	return item
}

func backupItem(sku string, unitList float64, backupQty int) models.SelectionItem {
	item := models.SelectionItem{
		SKU:       sku,
		Name:      sku,
		UnitList:  unitList,
		Qty:       backupQty,
		BackupQty: backupQty,
	}
	item.Normalize()
	return item
}

func skuLadder() models.TierRuleSet {
	return models.NewSkuTierRules([]models.PromotionTier{
		{TierLevel: 1, Threshold: 5, DiscountPercent: 0.30},
		{TierLevel: 2, Threshold: 10, DiscountPercent: 0.50},
	})
}

func TestCalculatePromotion_SkuKind(t *testing.T) {
	t.Run("matches highest reached tier and projects the rest", func(t *testing.T) {
		items := models.SelectionItems{}
		for _, sku := range []string{"A", "B", "C", "D", "E", "F", "G"} {
			items = append(items, displayItem(sku, 100, 1))
		}

		calc := CalculatePromotion(skuLadder(), items)

		assert.True(t, calc.HasSelection)
		assert.Equal(t, models.TierKindSKU, calc.Kind)
		assert.Equal(t, 7.0, calc.QualifyingValue)
		assert.Equal(t, 7, calc.CurrentSkuCount)

		require.NotNil(t, calc.CurrentTier)
		assert.Equal(t, 1, calc.CurrentTier.TierLevel)
		// 7 display units at list 100 earning 30%
		assert.InDelta(t, 210.0, calc.TotalSavings, 1e-9)

		require.Len(t, calc.PotentialSavingsByTier, 1)
		projection := calc.PotentialSavingsByTier[0]
		assert.Equal(t, 2, projection.TierLevel)
		assert.Equal(t, 3.0, projection.SkusToReachTier)
		assert.InDelta(t, 350.0, projection.SavingsAtTier, 1e-9)
		assert.InDelta(t, 140.0, projection.AdditionalSavingsFromCurrent, 1e-9)
	})

	t.Run("exact threshold qualifies", func(t *testing.T) {
		items := models.SelectionItems{}
		for _, sku := range []string{"A", "B", "C", "D", "E"} {
			items = append(items, displayItem(sku, 100, 1))
		}

		calc := CalculatePromotion(skuLadder(), items)

		require.NotNil(t, calc.CurrentTier)
		assert.Equal(t, 1, calc.CurrentTier.TierLevel)
	})

	t.Run("empty selection qualifies for nothing", func(t *testing.T) {
		calc := CalculatePromotion(skuLadder(), models.SelectionItems{})

		assert.True(t, calc.HasSelection)
		assert.Equal(t, 0.0, calc.QualifyingValue)
		assert.Nil(t, calc.CurrentTier)
		assert.Nil(t, calc.CurrentTierLevel())
		assert.Equal(t, 0.0, calc.TotalSavings)

		require.Len(t, calc.PotentialSavingsByTier, 2)
		assert.Equal(t, 5.0, calc.PotentialSavingsByTier[0].SkusToReachTier)
		assert.Equal(t, 10.0, calc.PotentialSavingsByTier[1].SkusToReachTier)
	})

	t.Run("backup only lines never qualify", func(t *testing.T) {
		items := models.SelectionItems{
			backupItem("A", 100, 3),
			backupItem("B", 100, 2),
		}

		calc := CalculatePromotion(skuLadder(), items)

		assert.Equal(t, 0.0, calc.QualifyingValue)
		assert.Equal(t, 0, calc.CurrentSkuCount)
		assert.Nil(t, calc.CurrentTier)
	})

	t.Run("duplicate SKUs count once", func(t *testing.T) {
		items := models.SelectionItems{
			displayItem("A", 100, 1),
			displayItem("A", 100, 2),
		}

		calc := CalculatePromotion(skuLadder(), items)
		assert.Equal(t, 1.0, calc.QualifyingValue)
	})
}

func TestCalculatePromotion_BackupDiscount(t *testing.T) {
	backupDisc := 0.10
	rules := models.NewSkuTierRules([]models.PromotionTier{
		{TierLevel: 1, Threshold: 1, DiscountPercent: 0.30, BackupDiscountPercent: &backupDisc},
	})

	items := models.SelectionItems{
		displayItem("A", 100, 1),
		backupItem("B", 200, 2),
	}

	calc := CalculatePromotion(rules, items)

	// Backup units earn the backup rate on savings without moving the tier
	assert.Equal(t, 1.0, calc.QualifyingValue)
	require.NotNil(t, calc.CurrentTier)
	assert.InDelta(t, 100*0.30+400*0.10, calc.TotalSavings, 1e-9)
}

func TestCalculatePromotion_DollarKind(t *testing.T) {
	rules := models.NewDollarTierRules([]models.PromotionTier{
		{TierLevel: 1, Threshold: 500, DiscountPercent: 0.20},
		{TierLevel: 2, Threshold: 1000, DiscountPercent: 0.35},
	})

	t.Run("qualifies by display dollars at list price", func(t *testing.T) {
		disc := 0.5
		discounted := models.SelectionItem{SKU: "A", UnitList: 400, Qty: 1, DisplayQty: 1, ProgramDisc: &disc}
		discounted.Normalize()

		items := models.SelectionItems{
			discounted,
			displayItem("B", 300, 1),
		}

		calc := CalculatePromotion(rules, items)

		// Program discounts never reduce the qualifying volume
		assert.Equal(t, models.TierKindDollar, calc.Kind)
		assert.InDelta(t, 700.0, calc.QualifyingValue, 1e-9)
		assert.Equal(t, 2, calc.CurrentSkuCount)

		require.NotNil(t, calc.CurrentTier)
		assert.Equal(t, 1, calc.CurrentTier.TierLevel)

		require.Len(t, calc.PotentialSavingsByTier, 1)
		assert.InDelta(t, 300.0, calc.PotentialSavingsByTier[0].SkusToReachTier, 1e-9)
	})

	t.Run("backup dollars do not qualify", func(t *testing.T) {
		items := models.SelectionItems{
			backupItem("A", 800, 1),
		}

		calc := CalculatePromotion(rules, items)
		assert.Equal(t, 0.0, calc.QualifyingValue)
		assert.Nil(t, calc.CurrentTier)
	})
}

func TestNoSelectionCalculation(t *testing.T) {
	calc := NoSelectionCalculation(skuLadder())

	assert.False(t, calc.HasSelection)
	assert.Equal(t, models.TierKindSKU, calc.Kind)
	assert.Nil(t, calc.CurrentTier)
	assert.Empty(t, calc.PotentialSavingsByTier)
}
