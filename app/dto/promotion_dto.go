package dto

// PromotionTierDTO is one rung of a promotion tier ladder
type PromotionTierDTO struct {
	TierLevel             int      `json:"tier_level" validate:"required,min=1"`
	Threshold             float64  `json:"threshold" validate:"min=0"`
	DiscountPercent       float64  `json:"discount_percent" validate:"min=0,max=1"`
	BackupDiscountPercent *float64 `json:"backup_discount_percent,omitempty" validate:"omitempty,min=0,max=1"`
}

// PromotionDTO is the API representation of a promotion
type PromotionDTO struct {
	ID       uint               `json:"id"`
	UUID     string             `json:"uuid"`
	VendorID string             `json:"vendor_id"`
	Active   bool               `json:"active"`
	Kind     string             `json:"kind"`
	Tiers    []PromotionTierDTO `json:"tiers"`
	Title    string             `json:"title,omitempty"`
	Bullets  []string           `json:"bullets,omitempty"`
	Terms    string             `json:"terms,omitempty"`
}

// UpsertPromotionRequest creates or replaces the active promotion of a vendor.
// Exactly one tier dimension is configured per promotion.
type UpsertPromotionRequest struct {
	VendorID string             `json:"vendor_id,omitempty" validate:"omitempty,max=64"`
	Kind     string             `json:"kind" validate:"required,oneof=sku dollar"`
	Tiers    []PromotionTierDTO `json:"tiers" validate:"required,min=1,dive"`
	Title    string             `json:"title,omitempty" validate:"max=255"`
	Bullets  []string           `json:"bullets,omitempty" validate:"max=20,dive,max=500"`
	Terms    string             `json:"terms,omitempty" validate:"max=5000"`
	Active   bool               `json:"active"`
}

// UpsertPromotionResponse returns the stored promotion
type UpsertPromotionResponse struct {
	Message   string       `json:"message"`
	Promotion PromotionDTO `json:"promotion"`
}

// GetPromotionResponse returns the active promotion of a vendor
type GetPromotionResponse struct {
	Message   string       `json:"message"`
	Promotion PromotionDTO `json:"promotion"`
}

// TierProjectionDTO is the what-if outcome for one tier above the current match
type TierProjectionDTO struct {
	TierLevel                    int     `json:"tier_level"`
	Threshold                    float64 `json:"threshold"`
	DiscountPercent              float64 `json:"discount_percent"`
	SkusToReachTier              float64 `json:"skus_to_reach_tier"`
	SavingsAtTier                float64 `json:"savings_at_tier"`
	AdditionalSavingsFromCurrent float64 `json:"additional_savings_from_current"`
}

// PromotionCalculationDTO carries the evaluated promotion standing of a customer.
// HasSelection false means no working selection exists; every figure is then
// absent rather than zero.
type PromotionCalculationDTO struct {
	HasSelection           bool                `json:"has_selection"`
	Kind                   string              `json:"kind"`
	QualifyingValue        *float64            `json:"qualifying_value,omitempty"`
	CurrentSkuCount        *int                `json:"current_sku_count,omitempty"`
	CurrentTierLevel       *int                `json:"current_tier_level,omitempty"`
	CurrentDiscountPercent *float64            `json:"current_discount_percent,omitempty"`
	TotalSavings           *float64            `json:"total_savings,omitempty"`
	PotentialSavingsByTier []TierProjectionDTO `json:"potential_savings_by_tier,omitempty"`
}

// PromotionStatusResponse returns the current promotion standing of a customer
type PromotionStatusResponse struct {
	Message     string                  `json:"message"`
	Calculation PromotionCalculationDTO `json:"calculation"`
}

// PromotionProjectionResponse returns the what-if tier ladder for a customer
type PromotionProjectionResponse struct {
	Message     string                  `json:"message"`
	Calculation PromotionCalculationDTO `json:"calculation"`
}
