package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/showbook-app/showbook/utils"
	"gorm.io/gorm"
)

// SelectionStatus represents the lifecycle state of a selection
type SelectionStatus string

const (
	// SelectionStatusWorking is the single mutable in-progress selection per customer/vendor
	SelectionStatusWorking SelectionStatus = "working"
	// SelectionStatusSnapshot is an immutable versioned capture of a selection
	SelectionStatusSnapshot SelectionStatus = "snapshot"
	// SelectionStatusArchived is a working selection retired by a cycle rollover or replace
	SelectionStatusArchived SelectionStatus = "archived"
)

// String returns the string representation of the status
func (s SelectionStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s SelectionStatus) Valid() bool {
	switch s {
	case SelectionStatusWorking, SelectionStatusSnapshot, SelectionStatusArchived:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for SelectionStatus
func (s *SelectionStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = SelectionStatus(v)
	case []byte:
		*s = SelectionStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into SelectionStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for SelectionStatus
func (s SelectionStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid SelectionStatus: %s", s)
	}
	return string(s), nil
}

// ItemConfiguration records the variant choices of a configurable product
// (finish, fabric, dimensions and the like). Keys are opaque to the core.
type ItemConfiguration map[string]string

// SelectionItem is one catalog line inside a selection.
type SelectionItem struct {
	SKU           string            `json:"sku"`
	Name          string            `json:"name"`
	Collection    string            `json:"collection,omitempty"`
	Year          int               `json:"year,omitempty"`
	UnitList      float64           `json:"unit_list"`
	Qty           int               `json:"qty"`
	DisplayQty    int               `json:"display_qty"`
	BackupQty     int               `json:"backup_qty"`
	ProgramDisc   *float64          `json:"program_disc,omitempty"`
	NetUnit       float64           `json:"net_unit"`
	ExtendedNet   float64           `json:"extended_net"`
	Notes         string            `json:"notes,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	Configuration ItemConfiguration `json:"configuration,omitempty"`
}

// Normalize clamps negative quantities and recomputes the derived price
// fields so that extended_net == net_unit * qty holds on every read path.
func (i *SelectionItem) Normalize() {
	if i.Qty < 0 {
		i.Qty = 0
	}
	if i.DisplayQty < 0 {
		i.DisplayQty = 0
	}
	if i.BackupQty < 0 {
		i.BackupQty = 0
	}
	if i.ProgramDisc != nil {
		disc := *i.ProgramDisc
		if disc < 0 {
			disc = 0
		}
		if disc > 1 {
			disc = 1
		}
		i.NetUnit = i.UnitList * (1 - disc)
	} else if i.NetUnit == 0 {
		i.NetUnit = i.UnitList
	}
	i.ExtendedNet = i.NetUnit * float64(i.Qty)
}

// QualifiesForDisplay reports whether the line counts toward display-based
// promotion qualification (backup-only lines do not).
func (i *SelectionItem) QualifiesForDisplay() bool {
	return i.DisplayQty > 0
}

// SelectionItems is the JSONB-persisted item list of a selection.
type SelectionItems []SelectionItem

// Value implements the driver.Valuer interface for SelectionItems
func (items SelectionItems) Value() (driver.Value, error) {
	if items == nil {
		return json.Marshal([]SelectionItem{})
	}
	return json.Marshal(items)
}

// Scan implements the sql.Scanner interface for SelectionItems
func (items *SelectionItems) Scan(value any) error {
	if value == nil {
		*items = SelectionItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SelectionItems", value)
	}

	return json.Unmarshal(bytes, items)
}

// TotalExtendedNet sums extended net value across all lines.
func (items SelectionItems) TotalExtendedNet() float64 {
	total := 0.0
	for _, item := range items {
		total += item.ExtendedNet
	}
	return total
}

// FindBySKU returns the index of the item with the given SKU, or -1.
func (items SelectionItems) FindBySKU(sku string) int {
	for idx, item := range items {
		if item.SKU == sku {
			return idx
		}
	}
	return -1
}

// SelectionMetadata is a free-form provenance bag on a selection. Known keys
// (restored_from_name, import_mode, was_modified) have typed accessors below;
// unknown keys round-trip unchanged.
type SelectionMetadata map[string]any

// Metadata keys written by the flows
const (
	MetadataKeyRestoredFromName = "restored_from_name"
	MetadataKeyImportMode       = "import_mode"
	MetadataKeyWasModified      = "was_modified"
)

// Value implements the driver.Valuer interface for SelectionMetadata
func (m SelectionMetadata) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]any{})
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for SelectionMetadata
func (m *SelectionMetadata) Scan(value any) error {
	if value == nil {
		*m = SelectionMetadata{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into SelectionMetadata", value)
	}

	return json.Unmarshal(bytes, m)
}

// GetString returns the string value for a metadata key, if present.
func (m SelectionMetadata) GetString(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Selection is the aggregate root: a customer's curated product selection for
// one vendor, either the mutable working copy, an immutable versioned
// snapshot, or an archived former working copy.
type Selection struct {
	ID                  uint              `gorm:"primaryKey" json:"id"`
	UUID                uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:uk_selections_uuid" json:"uuid"`
	CustomerID          uint              `gorm:"not null;index:idx_selections_scope,priority:1" json:"customer_id"`
	VendorID            string            `gorm:"type:varchar(64);not null;default:'default';index:idx_selections_scope,priority:2" json:"vendor_id"`
	Status              SelectionStatus   `gorm:"type:varchar(16);not null;index:idx_selections_scope,priority:3" json:"status"`
	Version             int               `gorm:"not null;default:1" json:"version"`
	Name                *string           `gorm:"size:255" json:"name,omitempty"`
	Items               SelectionItems    `gorm:"type:jsonb;not null;default:'[]'" json:"items"`
	MarketCycle         MarketCycle       `gorm:"type:jsonb" json:"market_cycle"`
	SourceEventID       *string           `gorm:"size:128" json:"source_event_id,omitempty"`
	SourceYear          *int              `json:"source_year,omitempty"`
	IsVisibleToCustomer bool              `gorm:"not null;default:false;index:idx_selections_visible" json:"is_visible_to_customer"`
	Metadata            SelectionMetadata `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt           time.Time         `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_selections_created_at" json:"created_at"`
	UpdatedAt           *time.Time        `json:"updated_at,omitempty"`
}

// TableName returns the table name for the model
func (Selection) TableName() string {
	return "selections"
}

// BeforeCreate is called before creating a new record
func (s *Selection) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.Status == "" {
		s.Status = SelectionStatusWorking
	}
	if s.VendorID == "" {
		s.VendorID = utils.DefaultVendorID
	}
	if s.Version == 0 {
		s.Version = 1
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (s *Selection) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	s.UpdatedAt = &now
	return nil
}

// IsWorking reports whether this is the mutable working selection
func (s *Selection) IsWorking() bool {
	return s.Status == SelectionStatusWorking
}

// IsSnapshot reports whether this is an immutable snapshot
func (s *Selection) IsSnapshot() bool {
	return s.Status == SelectionStatusSnapshot
}

// CanModifyItems reports whether item contents may still change.
// Snapshot item contents are frozen at creation; only the visibility flag
// and metadata remain mutable afterwards.
func (s *Selection) CanModifyItems() bool {
	return s.Status == SelectionStatusWorking
}

// DisplayName returns the selection name or a fallback derived from provenance
func (s *Selection) DisplayName() string {
	if s.Name != nil && *s.Name != "" {
		return *s.Name
	}
	if s.SourceYear != nil {
		return fmt.Sprintf("Market %d v%d", *s.SourceYear, s.Version)
	}
	return fmt.Sprintf("Selection v%d", s.Version)
}

// SelectionFilter represents filter criteria for selections
type SelectionFilter struct {
	ID                  *uint            `json:"id,omitempty"`
	UUID                *uuid.UUID       `json:"uuid,omitempty"`
	CustomerID          *uint            `json:"customer_id,omitempty"`
	VendorID            *string          `json:"vendor_id,omitempty"`
	Status              *SelectionStatus `json:"status,omitempty"`
	Version             *int             `json:"version,omitempty"`
	IsVisibleToCustomer *bool            `json:"is_visible_to_customer,omitempty"`
	CycleYear           *int             `json:"cycle_year,omitempty"`
	CycleMonth          *CycleMonth      `json:"cycle_month,omitempty"`
	SourceEventID       *string          `json:"source_event_id,omitempty"`
	CreatedAfter        *time.Time       `json:"created_after,omitempty"`
	CreatedBefore       *time.Time       `json:"created_before,omitempty"`
}
