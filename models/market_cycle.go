// Package models contains domain entities and business models for the selection curation system
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CycleMonth represents the month a trade-market cycle opens in.
// Markets run twice a year, in January and June.
type CycleMonth string

const (
	CycleMonthJanuary CycleMonth = "January"
	CycleMonthJune    CycleMonth = "June"
)

// String returns the string representation of the cycle month
func (m CycleMonth) String() string {
	return string(m)
}

// Valid checks if the cycle month is valid
func (m CycleMonth) Valid() bool {
	switch m {
	case CycleMonthJanuary, CycleMonthJune:
		return true
	default:
		return false
	}
}

// MarketCycle identifies one recurring trade-market period.
// The zero value means "no cycle tagged".
type MarketCycle struct {
	Year  int        `json:"year"`
	Month CycleMonth `json:"month"`
}

// IsZero reports whether no cycle is tagged.
func (c MarketCycle) IsZero() bool {
	return c.Year == 0 && c.Month == ""
}

// Valid checks if the cycle carries a plausible year and month
func (c MarketCycle) Valid() bool {
	return c.Year >= 2000 && c.Year <= 2200 && c.Month.Valid()
}

// Equal reports whether two cycles identify the same market period
func (c MarketCycle) Equal(other MarketCycle) bool {
	return c.Year == other.Year && c.Month == other.Month
}

// Key returns a stable string form used in cache keys and stats grouping, e.g. "2026-January"
func (c MarketCycle) Key() string {
	return fmt.Sprintf("%d-%s", c.Year, c.Month)
}

// Next returns the cycle that follows this one.
func (c MarketCycle) Next() MarketCycle {
	if c.Month == CycleMonthJanuary {
		return MarketCycle{Year: c.Year, Month: CycleMonthJune}
	}
	return MarketCycle{Year: c.Year + 1, Month: CycleMonthJanuary}
}

// Value implements the driver.Valuer interface for MarketCycle.
// An untagged cycle is stored as NULL.
func (c MarketCycle) Value() (driver.Value, error) {
	if c.IsZero() {
		return nil, nil
	}
	if !c.Valid() {
		return nil, fmt.Errorf("invalid MarketCycle: %d-%s", c.Year, c.Month)
	}
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface for MarketCycle
func (c *MarketCycle) Scan(value any) error {
	if value == nil {
		*c = MarketCycle{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into MarketCycle", value)
	}

	return json.Unmarshal(bytes, c)
}

// MarketCycleSetting stores the current trade-market cycle for one vendor.
// There is exactly one row per vendor; the cycle is advanced explicitly by a
// rep action, never inferred from the clock.
type MarketCycleSetting struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	VendorID  string      `gorm:"type:varchar(64);not null;uniqueIndex:uk_market_cycle_settings_vendor" json:"vendor_id"`
	Cycle     MarketCycle `gorm:"type:jsonb;not null" json:"cycle"`
	UpdatedBy *string     `gorm:"size:255" json:"updated_by,omitempty"`
	CreatedAt time.Time   `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt time.Time   `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (MarketCycleSetting) TableName() string { return "market_cycle_settings" }

// MarketCycleSettingFilter represents filter criteria for market cycle settings
type MarketCycleSettingFilter struct {
	ID       *uint   `json:"id,omitempty"`
	VendorID *string `json:"vendor_id,omitempty"`
}
