// Package businessflow contains the core business logic and use cases for cycle administration workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/showbook-app/showbook/app/dto"
	"github.com/showbook-app/showbook/app/services"
	"github.com/showbook-app/showbook/config"
	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/repository"
	"github.com/showbook-app/showbook/utils"
)

// CycleAdminFlow handles rep-facing market cycle administration
type CycleAdminFlow interface {
	GetCurrentCycle(ctx context.Context, vendorID string) (*dto.GetCurrentCycleResponse, error)
	AdvanceCycle(ctx context.Context, req *dto.AdvanceCycleRequest, updatedBy *string, metadata *ClientMetadata) (*dto.AdvanceCycleResponse, error)
	ListSelectionsByCycle(ctx context.Context, req *dto.ListByCycleRequest) (*dto.ListByCycleResponse, error)
	BulkSetVisibility(ctx context.Context, req *dto.BulkVisibilityRequest, metadata *ClientMetadata) (*dto.BulkVisibilityResponse, error)
	CycleStats(ctx context.Context, vendorID string) (*dto.CycleStatsResponse, error)
}

// CycleAdminFlowImpl implements the cycle administration business flow
type CycleAdminFlowImpl struct {
	selectionRepo repository.SelectionRepository
	cycleRepo     repository.MarketCycleSettingRepository
	auditRepo     repository.AuditLogRepository
	directory     services.CustomerDirectory
	cacheConfig   *config.CacheConfig
	rc            *redis.Client
}

// NewCycleAdminFlow creates a new cycle administration flow instance
func NewCycleAdminFlow(
	selectionRepo repository.SelectionRepository,
	cycleRepo repository.MarketCycleSettingRepository,
	auditRepo repository.AuditLogRepository,
	directory services.CustomerDirectory,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) CycleAdminFlow {
	return &CycleAdminFlowImpl{
		selectionRepo: selectionRepo,
		cycleRepo:     cycleRepo,
		auditRepo:     auditRepo,
		directory:     directory,
		cacheConfig:   cacheConfig,
		rc:            rc,
	}
}

// GetCurrentCycle returns the configured current cycle for a vendor
func (s *CycleAdminFlowImpl) GetCurrentCycle(ctx context.Context, vendorID string) (*dto.GetCurrentCycleResponse, error) {
	vendorID = resolveVendorID(vendorID)

	cycle, err := s.cycleRepo.CurrentCycle(ctx, vendorID)
	if err != nil {
		return nil, NewBusinessError("CYCLE_LOOKUP_FAILED", "Failed to lookup current market cycle", err)
	}
	if cycle == nil {
		return &dto.GetCurrentCycleResponse{
			Message: "No market cycle configured",
		}, nil
	}

	return &dto.GetCurrentCycleResponse{
		Message: "Current market cycle retrieved successfully",
		Cycle:   ToMarketCycleDTO(*cycle),
	}, nil
}

// AdvanceCycle sets the vendor's current market cycle. The cycle only moves
// when a rep says so; nothing is inferred from the calendar. Existing working
// selections are untouched here and archived lazily on each customer's next
// activity.
func (s *CycleAdminFlowImpl) AdvanceCycle(ctx context.Context, req *dto.AdvanceCycleRequest, updatedBy *string, metadata *ClientMetadata) (*dto.AdvanceCycleResponse, error) {
	vendorID := resolveVendorID(req.VendorID)

	cycle := models.MarketCycle{
		Year:  req.Year,
		Month: models.CycleMonth(req.Month),
	}
	if !cycle.Valid() {
		return nil, NewBusinessError("INVALID_CYCLE", "Invalid market cycle", ErrInvalidCycleMonth)
	}

	if err := s.cycleRepo.SetCurrentCycle(ctx, vendorID, cycle, updatedBy); err != nil {
		errMsg := fmt.Sprintf("Advancing cycle to %s failed: %s", cycle.Key(), err.Error())
		_ = createAuditLog(ctx, s.auditRepo, nil, &vendorID, models.AuditActionCycleAdvanced, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("CYCLE_UPDATE_FAILED", "Failed to advance market cycle", err)
	}

	s.invalidateCycleCache(ctx, vendorID)

	msg := fmt.Sprintf("Market cycle advanced to %s", cycle.Key())
	_ = createAuditLog(ctx, s.auditRepo, nil, &vendorID, models.AuditActionCycleAdvanced, msg, true, nil, metadata)

	return &dto.AdvanceCycleResponse{
		Message: "Market cycle advanced successfully",
		Cycle:   dto.MarketCycleDTO{Year: cycle.Year, Month: cycle.Month.String()},
	}, nil
}

// ListSelectionsByCycle lists snapshots stamped with a cycle across all
// customers of a vendor, for rep-side market review.
func (s *CycleAdminFlowImpl) ListSelectionsByCycle(ctx context.Context, req *dto.ListByCycleRequest) (*dto.ListByCycleResponse, error) {
	vendorID := resolveVendorID(req.VendorID)

	cycle := models.MarketCycle{
		Year:  req.Year,
		Month: models.CycleMonth(req.Month),
	}
	if !cycle.Valid() {
		return nil, NewBusinessError("INVALID_CYCLE", "Invalid market cycle", ErrInvalidCycleMonth)
	}

	status := models.SelectionStatusSnapshot
	month := cycle.Month
	filter := models.SelectionFilter{
		VendorID:            &vendorID,
		Status:              &status,
		CycleYear:           &cycle.Year,
		CycleMonth:          &month,
		IsVisibleToCustomer: req.OnlyVisible,
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 50
	}

	total, err := s.selectionRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to count selections", err)
	}

	rows, err := s.selectionRepo.ByFilter(ctx, filter, "customer_id ASC, version DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to list selections", err)
	}

	out := make([]dto.SelectionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToSelectionDTO(*row))
	}

	return &dto.ListByCycleResponse{
		Message:       "Selections retrieved successfully",
		Selections:    out,
		CustomerNames: s.customerNames(ctx, rows),
		Total:         total,
	}, nil
}

// customerNames resolves display names for the customers on a listing page.
// Directory failures degrade to an unenriched listing rather than an error.
func (s *CycleAdminFlowImpl) customerNames(ctx context.Context, rows []*models.Selection) map[uint]string {
	if s.directory == nil || len(rows) == 0 {
		return nil
	}

	names := make(map[uint]string)
	for _, row := range rows {
		if _, seen := names[row.CustomerID]; seen {
			continue
		}
		profile, err := s.directory.Profile(ctx, row.CustomerID)
		if err != nil || profile == nil {
			continue
		}
		names[row.CustomerID] = profile.Name
	}
	if len(names) == 0 {
		return nil
	}
	return names
}

// BulkSetVisibility flips customer visibility on every snapshot of a cycle.
// Each snapshot is updated independently so one failure never blocks the
// rest of the batch, and each customer's outcome is isolated from the others.
func (s *CycleAdminFlowImpl) BulkSetVisibility(ctx context.Context, req *dto.BulkVisibilityRequest, metadata *ClientMetadata) (*dto.BulkVisibilityResponse, error) {
	vendorID := resolveVendorID(req.VendorID)

	cycle := models.MarketCycle{
		Year:  req.Year,
		Month: models.CycleMonth(req.Month),
	}
	if !cycle.Valid() {
		return nil, NewBusinessError("INVALID_CYCLE", "Invalid market cycle", ErrInvalidCycleMonth)
	}

	rows, err := s.selectionRepo.ListByCycle(ctx, cycle, vendorID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to list cycle selections", err)
	}

	changed, skipped, failed := 0, 0, 0
	for _, row := range rows {
		if row.IsVisibleToCustomer == req.Visible {
			skipped++
			continue
		}
		if err := s.selectionRepo.SetVisibility(ctx, row.ID, req.Visible); err != nil {
			failed++
			continue
		}
		changed++
		bulkVisibilityChangesTotal.Inc()
	}

	msg := fmt.Sprintf("Bulk visibility %t for cycle %s: %d changed, %d skipped, %d failed",
		req.Visible, cycle.Key(), changed, skipped, failed)
	_ = createAuditLog(ctx, s.auditRepo, nil, &vendorID, models.AuditActionBulkVisibility, msg, failed == 0, nil, metadata)

	return &dto.BulkVisibilityResponse{
		Message: "Bulk visibility update completed",
		Changed: changed,
		Skipped: skipped,
		Failed:  failed,
		Total:   len(rows),
	}, nil
}

// CycleStats returns per-cycle snapshot counts for a vendor
func (s *CycleAdminFlowImpl) CycleStats(ctx context.Context, vendorID string) (*dto.CycleStatsResponse, error) {
	vendorID = resolveVendorID(vendorID)

	rows, err := s.selectionRepo.CycleStats(ctx, vendorID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to aggregate cycle stats", err)
	}

	stats := make([]dto.CycleStatsEntry, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, dto.CycleStatsEntry{
			Cycle:   dto.MarketCycleDTO{Year: row.CycleYear, Month: row.CycleMonth.String()},
			Total:   row.Total,
			Visible: row.Visible,
		})
	}

	return &dto.CycleStatsResponse{
		Message: "Cycle stats retrieved successfully",
		Stats:   stats,
	}, nil
}

// invalidateCycleCache drops the cached current cycle for a vendor
func (s *CycleAdminFlowImpl) invalidateCycleCache(ctx context.Context, vendorID string) {
	if s.rc == nil || s.cacheConfig == nil || !s.cacheConfig.Enabled {
		return
	}
	key := redisKey(*s.cacheConfig, fmt.Sprintf("%s:%s", utils.MarketCycleCacheKey, vendorID))
	_ = s.rc.Del(ctx, key).Err()
}
