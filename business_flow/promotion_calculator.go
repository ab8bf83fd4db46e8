package businessflow

import (
	"github.com/showbook-app/showbook/models"
)

// TierProjection is the what-if outcome for one tier above the current match.
// SkusToReachTier is measured in the rule set's own dimension: unique SKUs for
// SKU tiers, dollars for dollar tiers.
type TierProjection struct {
	TierLevel                    int
	Threshold                    float64
	DiscountPercent              float64
	SkusToReachTier              float64
	SavingsAtTier                float64
	AdditionalSavingsFromCurrent float64
}

// PromotionCalculation is the evaluated promotion standing of one selection.
// HasSelection false distinguishes "no working selection" from a selection
// that genuinely qualifies for nothing; only the former suppresses figures.
type PromotionCalculation struct {
	HasSelection           bool
	Kind                   models.TierKind
	QualifyingValue        float64
	CurrentSkuCount        int
	CurrentTier            *models.PromotionTier
	TotalSavings           float64
	PotentialSavingsByTier []TierProjection
}

// CurrentTierLevel returns the matched tier level, nil when below every tier
func (c PromotionCalculation) CurrentTierLevel() *int {
	if c.CurrentTier == nil {
		return nil
	}
	level := c.CurrentTier.TierLevel
	return &level
}

// NoSelectionCalculation is the result reported when a customer has no
// working selection at all.
func NoSelectionCalculation(rules models.TierRuleSet) PromotionCalculation {
	return PromotionCalculation{
		HasSelection: false,
		Kind:         rules.Kind,
	}
}

// CalculatePromotion evaluates a selection's standing against a tier rule set.
// The calculation is pure: it never touches storage and only reads list
// prices, so stale program discounts on items cannot skew qualification.
//
// Qualification counts display quantities only. Backup-only lines earn the
// backup discount on savings but never move the customer up a tier.
func CalculatePromotion(rules models.TierRuleSet, items models.SelectionItems) PromotionCalculation {
	qualifying, skuCount := qualifyingValue(rules.Kind, items)

	calc := PromotionCalculation{
		HasSelection:    true,
		Kind:            rules.Kind,
		QualifyingValue: qualifying,
		CurrentSkuCount: skuCount,
	}

	// Highest tier whose threshold the qualifying value meets. Tiers are
	// sorted ascending by threshold on construction.
	matchedIdx := -1
	for idx, tier := range rules.Tiers {
		if qualifying >= tier.Threshold {
			matchedIdx = idx
		}
	}
	if matchedIdx >= 0 {
		tier := rules.Tiers[matchedIdx]
		calc.CurrentTier = &tier
		calc.TotalSavings = savingsAtTier(tier, items)
	}

	for idx := matchedIdx + 1; idx < len(rules.Tiers); idx++ {
		tier := rules.Tiers[idx]
		toReach := tier.Threshold - qualifying
		if toReach < 0 {
			toReach = 0
		}
		savings := savingsAtTier(tier, items)
		calc.PotentialSavingsByTier = append(calc.PotentialSavingsByTier, TierProjection{
			TierLevel:                    tier.TierLevel,
			Threshold:                    tier.Threshold,
			DiscountPercent:              tier.DiscountPercent,
			SkusToReachTier:              toReach,
			SavingsAtTier:                savings,
			AdditionalSavingsFromCurrent: savings - calc.TotalSavings,
		})
	}

	return calc
}

// qualifyingValue measures a selection in the rule set's dimension and also
// returns the unique display-qualifying SKU count, which is reported either way.
func qualifyingValue(kind models.TierKind, items models.SelectionItems) (float64, int) {
	seen := make(map[string]struct{})
	volume := 0.0
	for _, item := range items {
		if !item.QualifiesForDisplay() {
			continue
		}
		seen[item.SKU] = struct{}{}
		volume += item.UnitList * float64(item.DisplayQty)
	}

	if kind == models.TierKindDollar {
		return volume, len(seen)
	}
	return float64(len(seen)), len(seen)
}

// savingsAtTier computes the dollar savings a selection would earn at a tier.
// Display units earn the tier discount, backup units the backup discount.
func savingsAtTier(tier models.PromotionTier, items models.SelectionItems) float64 {
	total := 0.0
	for _, item := range items {
		total += item.UnitList * float64(item.DisplayQty) * tier.DiscountPercent
		total += item.UnitList * float64(item.BackupQty) * tier.BackupPercent()
	}
	return total
}
