package dto

// MarketCycleDTO identifies one trade-market period in API payloads
type MarketCycleDTO struct {
	Year  int    `json:"year" validate:"required,min=2000,max=2200"`
	Month string `json:"month" validate:"required,oneof=January June"`
}

// SelectionItemDTO is one catalog line of a selection in API payloads
type SelectionItemDTO struct {
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
	Configuration map[string]string `json:"configuration,omitempty"`
}

// SelectionDTO is the API representation of a selection record
type SelectionDTO struct {
	ID                  uint               `json:"id"`
	UUID                string             `json:"uuid"`
	CustomerID          uint               `json:"customer_id"`
	VendorID            string             `json:"vendor_id"`
	Status              string             `json:"status"`
	Version             int                `json:"version"`
	Name                *string            `json:"name,omitempty"`
	Items               []SelectionItemDTO `json:"items"`
	MarketCycle         *MarketCycleDTO    `json:"market_cycle,omitempty"`
	SourceEventID       *string            `json:"source_event_id,omitempty"`
	SourceYear          *int               `json:"source_year,omitempty"`
	IsVisibleToCustomer bool               `json:"is_visible_to_customer"`
	Metadata            map[string]any     `json:"metadata,omitempty"`
	CreatedAt           string             `json:"created_at"`
	UpdatedAt           *string            `json:"updated_at,omitempty"`
}

// WorkingItemInput is a caller-supplied selection line. Pricing and catalog
// attribution are never trusted from the caller; they are resolved against the
// catalog collaborator.
type WorkingItemInput struct {
	SKU           string            `json:"sku" validate:"required,max=128"`
	Qty           int               `json:"qty" validate:"min=0"`
	DisplayQty    int               `json:"display_qty" validate:"min=0"`
	BackupQty     int               `json:"backup_qty" validate:"min=0"`
	ProgramDisc   *float64          `json:"program_disc,omitempty" validate:"omitempty,min=0,max=1"`
	Notes         string            `json:"notes,omitempty" validate:"max=2000"`
	Tags          []string          `json:"tags,omitempty" validate:"max=32,dive,max=64"`
	Configuration map[string]string `json:"configuration,omitempty"`
}

// GetWorkingSelectionResponse returns the working selection, when one exists
type GetWorkingSelectionResponse struct {
	Message   string        `json:"message"`
	Selection *SelectionDTO `json:"selection,omitempty"`
}

// ReplaceWorkingItemsRequest replaces the working selection's items wholesale.
// An empty items array is permitted and clears the selection.
type ReplaceWorkingItemsRequest struct {
	VendorID string             `json:"vendor_id,omitempty" validate:"omitempty,max=64"`
	Name     *string            `json:"name,omitempty" validate:"omitempty,max=255"`
	Items    []WorkingItemInput `json:"items" validate:"dive"`
}

// ReplaceWorkingItemsResponse returns the updated working selection
type ReplaceWorkingItemsResponse struct {
	Message   string       `json:"message"`
	Selection SelectionDTO `json:"selection"`
}

// AddItemRequest merges a single item into the working selection
type AddItemRequest struct {
	VendorID string           `json:"vendor_id,omitempty" validate:"omitempty,max=64"`
	Item     WorkingItemInput `json:"item" validate:"required"`
}

// AddItemResponse returns the updated working selection
type AddItemResponse struct {
	Message   string       `json:"message"`
	Selection SelectionDTO `json:"selection"`
}

// CreateWorkingFromSnapshotRequest clones a snapshot into a new working selection
type CreateWorkingFromSnapshotRequest struct {
	SnapshotID uint           `json:"snapshot_id" validate:"required"`
	Name       *string        `json:"name,omitempty" validate:"omitempty,max=255"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Mode       string         `json:"mode,omitempty" validate:"omitempty,oneof=auto create_new replace"`
}

// CreateWorkingFromSnapshotResponse returns the created working selection
type CreateWorkingFromSnapshotResponse struct {
	Message   string       `json:"message"`
	Selection SelectionDTO `json:"selection"`
}

// WorkingSelectionConflictDetail is attached to WORKING_SELECTION_EXISTS
// errors so the caller can offer a keep/replace decision.
type WorkingSelectionConflictDetail struct {
	SelectionID uint    `json:"selection_id"`
	UUID        string  `json:"uuid"`
	Version     int     `json:"version"`
	Name        *string `json:"name,omitempty"`
}

// RestoreWorkingRequest replaces the working selection's items with a snapshot's
type RestoreWorkingRequest struct {
	SnapshotID uint   `json:"snapshot_id" validate:"required"`
	VendorID   string `json:"vendor_id,omitempty" validate:"omitempty,max=64"`
}

// RestoreWorkingResponse returns the restored working selection
type RestoreWorkingResponse struct {
	Message   string       `json:"message"`
	Selection SelectionDTO `json:"selection"`
}
