package dto

// CreateSnapshotRequest freezes an imported event order as a new immutable
// snapshot version for a customer. Submitted by sales reps.
type CreateSnapshotRequest struct {
	CustomerID    uint               `json:"customer_id" validate:"required"`
	VendorID      string             `json:"vendor_id,omitempty" validate:"omitempty,max=64"`
	Name          *string            `json:"name,omitempty" validate:"omitempty,max=255"`
	Items         []WorkingItemInput `json:"items" validate:"required,min=1,dive"`
	SourceEventID *string            `json:"source_event_id,omitempty" validate:"omitempty,max=128"`
	SourceYear    *int               `json:"source_year,omitempty" validate:"omitempty,min=2000,max=2200"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
}

// CreateSnapshotResponse returns the newly created snapshot
type CreateSnapshotResponse struct {
	Message   string       `json:"message"`
	Selection SelectionDTO `json:"selection"`
}

// ListSnapshotsResponse lists a customer's snapshots, newest version first
type ListSnapshotsResponse struct {
	Message   string         `json:"message"`
	Snapshots []SelectionDTO `json:"snapshots"`
}

// GetActiveSnapshotResponse returns the highest-version snapshot, when any exists
type GetActiveSnapshotResponse struct {
	Message   string        `json:"message"`
	Selection *SelectionDTO `json:"selection,omitempty"`
}

// ToggleVisibilityResponse returns the snapshot after flipping customer visibility
type ToggleVisibilityResponse struct {
	Message   string       `json:"message"`
	Selection SelectionDTO `json:"selection"`
}

// DeleteSnapshotResponse confirms deletion of a snapshot
type DeleteSnapshotResponse struct {
	Message string `json:"message"`
	Deleted bool   `json:"deleted"`
}
