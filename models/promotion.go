package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/showbook-app/showbook/utils"
	"gorm.io/gorm"
)

// Promotion configuration errors surfaced by TierRules
var (
	// ErrAmbiguousTierDimension means a promotion row carries both SKU and
	// dollar tiers; the calculator refuses to guess which one applies.
	ErrAmbiguousTierDimension = errors.New("promotion defines both sku and dollar tiers")

	// ErrNoTiersConfigured means a promotion row carries no tiers at all.
	ErrNoTiersConfigured = errors.New("promotion defines no tiers")
)

// TierKind discriminates how a promotion's qualifying value is measured.
type TierKind string

const (
	// TierKindSKU qualifies by the count of unique display-qualifying SKUs
	TierKindSKU TierKind = "sku"
	// TierKindDollar qualifies by display dollar volume at list price
	TierKindDollar TierKind = "dollar"
)

// Valid checks if the tier kind is valid
func (k TierKind) Valid() bool {
	return k == TierKindSKU || k == TierKindDollar
}

// PromotionTier is one threshold/discount step of a volume promotion.
// Display-quantity units earn DiscountPercent; backup-quantity units earn
// BackupDiscountPercent (0 when absent). Percents are fractions in [0,1].
type PromotionTier struct {
	TierLevel             int      `json:"tier_level"`
	Threshold             float64  `json:"threshold"`
	DiscountPercent       float64  `json:"discount_percent"`
	BackupDiscountPercent *float64 `json:"backup_discount_percent,omitempty"`
}

// BackupPercent returns the backup discount rate, falling back to 0.
func (t PromotionTier) BackupPercent() float64 {
	if t.BackupDiscountPercent == nil {
		return 0
	}
	return *t.BackupDiscountPercent
}

// PromotionTiers is a JSONB-persisted ordered tier list.
type PromotionTiers []PromotionTier

// Value implements the driver.Valuer interface for PromotionTiers
func (t PromotionTiers) Value() (driver.Value, error) {
	if t == nil {
		return nil, nil
	}
	return json.Marshal(t)
}

// Scan implements the sql.Scanner interface for PromotionTiers
func (t *PromotionTiers) Scan(value any) error {
	if value == nil {
		*t = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into PromotionTiers", value)
	}

	return json.Unmarshal(bytes, t)
}

// TierRuleSet is the tagged union the calculator consumes: exactly one tier
// dimension, tiers sorted ascending by threshold.
type TierRuleSet struct {
	Kind  TierKind
	Tiers PromotionTiers
}

// NewSkuTierRules builds a SKU-count rule set with tiers sorted by threshold.
func NewSkuTierRules(tiers []PromotionTier) TierRuleSet {
	return newTierRules(TierKindSKU, tiers)
}

// NewDollarTierRules builds a dollar-volume rule set with tiers sorted by threshold.
func NewDollarTierRules(tiers []PromotionTier) TierRuleSet {
	return newTierRules(TierKindDollar, tiers)
}

func newTierRules(kind TierKind, tiers []PromotionTier) TierRuleSet {
	sorted := make(PromotionTiers, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Threshold < sorted[j].Threshold })
	return TierRuleSet{Kind: kind, Tiers: sorted}
}

// Promotion is a vendor-scoped volume discount rule set plus the opaque
// customer-facing copy shown alongside it. The two tier columns mirror the
// external data shape; code consumes them only through TierRules.
type Promotion struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:uk_promotions_uuid" json:"uuid"`
	VendorID    string         `gorm:"type:varchar(64);not null;index:idx_promotions_vendor" json:"vendor_id"`
	Active      bool           `gorm:"not null;default:false;index:idx_promotions_active" json:"active"`
	SkuTiers    PromotionTiers `gorm:"type:jsonb" json:"sku_tiers,omitempty"`
	DollarTiers PromotionTiers `gorm:"type:jsonb" json:"dollar_tiers,omitempty"`
	Title       *string        `gorm:"size:255" json:"title,omitempty"`
	Bullets     pq.StringArray `gorm:"type:text[]" json:"bullets,omitempty"`
	Terms       *string        `gorm:"type:text" json:"terms,omitempty"`
	CreatedAt   time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   *time.Time     `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Promotion) TableName() string {
	return "promotions"
}

// BeforeCreate is called before creating a new record
func (p *Promotion) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	if p.VendorID == "" {
		p.VendorID = utils.DefaultVendorID
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (p *Promotion) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	p.UpdatedAt = &now
	return nil
}

// TierRules extracts the tagged tier dimension of the promotion. A row
// populated with both dimensions is a configuration error, never silently
// resolved in favor of one.
func (p *Promotion) TierRules() (TierRuleSet, error) {
	hasSku := len(p.SkuTiers) > 0
	hasDollar := len(p.DollarTiers) > 0

	switch {
	case hasSku && hasDollar:
		return TierRuleSet{}, ErrAmbiguousTierDimension
	case hasSku:
		return NewSkuTierRules(p.SkuTiers), nil
	case hasDollar:
		return NewDollarTierRules(p.DollarTiers), nil
	default:
		return TierRuleSet{}, ErrNoTiersConfigured
	}
}

// SetTierRules replaces the promotion's tier configuration from a rule set,
// clearing the other dimension so the row can never become ambiguous.
func (p *Promotion) SetTierRules(rules TierRuleSet) {
	switch rules.Kind {
	case TierKindSKU:
		p.SkuTiers = rules.Tiers
		p.DollarTiers = nil
	case TierKindDollar:
		p.DollarTiers = rules.Tiers
		p.SkuTiers = nil
	}
}

// PromotionFilter represents filter criteria for promotions
type PromotionFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	VendorID      *string    `json:"vendor_id,omitempty"`
	Active        *bool      `json:"active,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
