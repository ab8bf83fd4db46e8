package dto

// MarketCycleCheckResponse reports the outcome of a stale working selection check
type MarketCycleCheckResponse struct {
	Message      string          `json:"message"`
	NeedsArchive bool            `json:"needs_archive"`
	ArchivedID   *uint           `json:"archived_id,omitempty"`
	ArchivedName *string         `json:"archived_name,omitempty"`
	TargetCycle  *MarketCycleDTO `json:"target_cycle,omitempty"`
}

// GetCurrentCycleResponse returns the configured current cycle for a vendor
type GetCurrentCycleResponse struct {
	Message string          `json:"message"`
	Cycle   *MarketCycleDTO `json:"cycle,omitempty"`
}

// AdvanceCycleRequest sets the current market cycle for a vendor
type AdvanceCycleRequest struct {
	VendorID string `json:"vendor_id,omitempty" validate:"omitempty,max=64"`
	Year     int    `json:"year" validate:"required,min=2000,max=2200"`
	Month    string `json:"month" validate:"required,oneof=January June"`
}

// AdvanceCycleResponse confirms the newly configured cycle
type AdvanceCycleResponse struct {
	Message string         `json:"message"`
	Cycle   MarketCycleDTO `json:"cycle"`
}

// ListByCycleRequest lists snapshots stamped with a given cycle across customers
type ListByCycleRequest struct {
	VendorID    string `json:"vendor_id,omitempty" validate:"omitempty,max=64"`
	Year        int    `json:"year" validate:"required,min=2000,max=2200"`
	Month       string `json:"month" validate:"required,oneof=January June"`
	OnlyVisible *bool  `json:"only_visible,omitempty"`
	Page        int    `json:"page,omitempty" validate:"omitempty,min=1"`
	PageSize    int    `json:"page_size,omitempty" validate:"omitempty,min=1,max=100"`
}

// ListByCycleResponse returns the matching snapshots. CustomerNames maps the
// customer ids on this page to directory display names, when resolvable.
type ListByCycleResponse struct {
	Message       string          `json:"message"`
	Selections    []SelectionDTO  `json:"selections"`
	CustomerNames map[uint]string `json:"customer_names,omitempty"`
	Total         int64           `json:"total"`
}

// BulkVisibilityRequest flips customer visibility on all snapshots of a cycle
type BulkVisibilityRequest struct {
	VendorID string `json:"vendor_id,omitempty" validate:"omitempty,max=64"`
	Year     int    `json:"year" validate:"required,min=2000,max=2200"`
	Month    string `json:"month" validate:"required,oneof=January June"`
	Visible  bool   `json:"visible"`
}

// BulkVisibilityResponse reports per-cycle visibility change counts. Failed
// counts selections whose update errored; the rest of the batch proceeds.
type BulkVisibilityResponse struct {
	Message string `json:"message"`
	Changed int    `json:"changed"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
	Total   int    `json:"total"`
}

// CycleStatsEntry aggregates snapshot counts for one cycle
type CycleStatsEntry struct {
	Cycle   MarketCycleDTO `json:"cycle"`
	Total   int64          `json:"total"`
	Visible int64          `json:"visible"`
}

// CycleStatsResponse returns per-cycle snapshot statistics for a vendor
type CycleStatsResponse struct {
	Message string            `json:"message"`
	Stats   []CycleStatsEntry `json:"stats"`
}
