// Package businessflow contains the core business logic and use cases for cycle archival workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/showbook-app/showbook/app/dto"
	"github.com/showbook-app/showbook/config"
	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/repository"
	"gorm.io/gorm"
)

// ArchivalFlow retires stale working selections at cycle boundaries
type ArchivalFlow interface {
	CheckMarketCycle(ctx context.Context, customerID uint, vendorID string, metadata *ClientMetadata) (*dto.MarketCycleCheckResponse, error)
}

// ArchivalFlowImpl implements the archival business flow
type ArchivalFlowImpl struct {
	selectionRepo repository.SelectionRepository
	cycleRepo     repository.MarketCycleSettingRepository
	auditRepo     repository.AuditLogRepository
	cache         *promotionStatusCache
	db            *gorm.DB
}

// NewArchivalFlow creates a new archival flow instance
func NewArchivalFlow(
	selectionRepo repository.SelectionRepository,
	cycleRepo repository.MarketCycleSettingRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) ArchivalFlow {
	return &ArchivalFlowImpl{
		selectionRepo: selectionRepo,
		cycleRepo:     cycleRepo,
		auditRepo:     auditRepo,
		cache:         newPromotionStatusCache(rc, cacheConfig),
		db:            db,
	}
}

// CheckMarketCycle archives the customer's working selection when it belongs
// to an older cycle than the vendor's current one. Invoked lazily on customer
// activity rather than by a scheduler, so the check is idempotent: once the
// stale working selection is archived, subsequent calls are no-ops. A new
// working selection is never created here; that happens on the next edit.
func (s *ArchivalFlowImpl) CheckMarketCycle(ctx context.Context, customerID uint, vendorID string, metadata *ClientMetadata) (*dto.MarketCycleCheckResponse, error) {
	vendorID = resolveVendorID(vendorID)

	current, err := s.cycleRepo.CurrentCycle(ctx, vendorID)
	if err != nil {
		return nil, NewBusinessError("CYCLE_LOOKUP_FAILED", "Failed to lookup current market cycle", err)
	}
	if current == nil {
		// No cycle configured means nothing can be stale
		return &dto.MarketCycleCheckResponse{
			Message:      "No market cycle configured",
			NeedsArchive: false,
		}, nil
	}

	unlock := lockSelectionScope(customerID, vendorID)
	defer unlock()

	working, err := s.selectionRepo.GetWorking(ctx, customerID, vendorID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to lookup working selection", err)
	}
	if working == nil {
		return &dto.MarketCycleCheckResponse{
			Message:      "No working selection exists",
			NeedsArchive: false,
			TargetCycle:  ToMarketCycleDTO(*current),
		}, nil
	}

	// An untagged working selection predates cycle tracking and is left alone
	if working.MarketCycle.IsZero() || working.MarketCycle.Equal(*current) {
		return &dto.MarketCycleCheckResponse{
			Message:      "Working selection is current",
			NeedsArchive: false,
			TargetCycle:  ToMarketCycleDTO(*current),
		}, nil
	}

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		return s.selectionRepo.ArchiveWorking(txCtx, working.ID)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Archiving working selection for cycle %s failed: %s", current.Key(), err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionSelectionArchived, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SELECTION_ARCHIVE_FAILED", "Failed to archive working selection", err)
	}

	selectionsArchivedTotal.Inc()
	s.cache.Invalidate(ctx, vendorID, customerID)

	archivedName := working.DisplayName()
	msg := fmt.Sprintf("Working selection %q from cycle %s archived for cycle %s", archivedName, working.MarketCycle.Key(), current.Key())
	_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionSelectionArchived, msg, true, nil, metadata)

	return &dto.MarketCycleCheckResponse{
		Message:      "Stale working selection archived",
		NeedsArchive: true,
		ArchivedID:   &working.ID,
		ArchivedName: &archivedName,
		TargetCycle:  ToMarketCycleDTO(*current),
	}, nil
}
