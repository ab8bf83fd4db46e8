// Package businessflow contains the core business logic and use cases for working selection workflows
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
	"gorm.io/gorm"
)

// Import modes for creating a working selection from a snapshot
const (
	// ImportModeAuto fails with a conflict when a working selection already exists
	ImportModeAuto = "auto"
	// ImportModeCreateNew archives any existing working selection and creates a fresh one
	ImportModeCreateNew = "create_new"
	// ImportModeReplace overwrites the existing working selection in place
	ImportModeReplace = "replace"
)

// SelectionFlow handles the working selection business logic
type SelectionFlow interface {
	GetWorkingSelection(ctx context.Context, customerID uint, vendorID string) (*dto.GetWorkingSelectionResponse, error)
	ReplaceWorkingItems(ctx context.Context, customerID uint, req *dto.ReplaceWorkingItemsRequest, metadata *ClientMetadata) (*dto.ReplaceWorkingItemsResponse, error)
	AddItem(ctx context.Context, customerID uint, req *dto.AddItemRequest, metadata *ClientMetadata) (*dto.AddItemResponse, error)
	CreateWorkingFromSnapshot(ctx context.Context, customerID uint, req *dto.CreateWorkingFromSnapshotRequest, metadata *ClientMetadata) (*dto.CreateWorkingFromSnapshotResponse, error)
	RestoreWorking(ctx context.Context, customerID uint, req *dto.RestoreWorkingRequest, metadata *ClientMetadata) (*dto.RestoreWorkingResponse, error)
}

// SelectionFlowImpl implements the working selection business flow
type SelectionFlowImpl struct {
	selectionRepo repository.SelectionRepository
	cycleRepo     repository.MarketCycleSettingRepository
	auditRepo     repository.AuditLogRepository
	catalog       services.CatalogService
	cache         *promotionStatusCache
	db            *gorm.DB
}

// NewSelectionFlow creates a new selection flow instance
func NewSelectionFlow(
	selectionRepo repository.SelectionRepository,
	cycleRepo repository.MarketCycleSettingRepository,
	auditRepo repository.AuditLogRepository,
	catalog services.CatalogService,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) SelectionFlow {
	return &SelectionFlowImpl{
		selectionRepo: selectionRepo,
		cycleRepo:     cycleRepo,
		auditRepo:     auditRepo,
		catalog:       catalog,
		cache:         newPromotionStatusCache(rc, cacheConfig),
		db:            db,
	}
}

// GetWorkingSelection returns the customer's working selection, if one exists
func (s *SelectionFlowImpl) GetWorkingSelection(ctx context.Context, customerID uint, vendorID string) (*dto.GetWorkingSelectionResponse, error) {
	vendorID = resolveVendorID(vendorID)

	working, err := s.selectionRepo.GetWorking(ctx, customerID, vendorID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to lookup working selection", err)
	}

	if working == nil {
		return &dto.GetWorkingSelectionResponse{
			Message: "No working selection exists",
		}, nil
	}

	selection := ToSelectionDTO(*working)
	return &dto.GetWorkingSelectionResponse{
		Message:   "Working selection retrieved successfully",
		Selection: &selection,
	}, nil
}

// ReplaceWorkingItems replaces the working selection's items wholesale,
// creating the working selection when none exists. An empty item list is
// permitted and clears the selection.
func (s *SelectionFlowImpl) ReplaceWorkingItems(ctx context.Context, customerID uint, req *dto.ReplaceWorkingItemsRequest, metadata *ClientMetadata) (*dto.ReplaceWorkingItemsResponse, error) {
	vendorID := resolveVendorID(req.VendorID)

	items, err := s.buildItems(ctx, req.Items)
	if err != nil {
		return nil, s.itemError(ctx, customerID, vendorID, models.AuditActionWorkingUpdated, err, metadata)
	}

	unlock := lockSelectionScope(customerID, vendorID)
	defer unlock()

	var working *models.Selection
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		working, err = s.getOrCreateWorking(txCtx, customerID, vendorID)
		if err != nil {
			return err
		}

		working.Items = items
		if req.Name != nil {
			working.Name = req.Name
		}
		if working.Metadata == nil {
			working.Metadata = models.SelectionMetadata{}
		}
		working.Metadata[models.MetadataKeyWasModified] = true

		return s.selectionRepo.Update(txCtx, *working)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Working selection update failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionWorkingUpdated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SELECTION_UPDATE_FAILED", "Failed to update working selection", err)
	}

	s.cache.Invalidate(ctx, vendorID, customerID)

	msg := fmt.Sprintf("Working selection updated with %d items", len(items))
	_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionWorkingUpdated, msg, true, nil, metadata)

	return &dto.ReplaceWorkingItemsResponse{
		Message:   "Working selection updated successfully",
		Selection: ToSelectionDTO(*working),
	}, nil
}

// AddItem merges a single catalog item into the working selection, creating
// the working selection when none exists. Adding a SKU that is already
// present is a conflict, never a silent quantity merge.
func (s *SelectionFlowImpl) AddItem(ctx context.Context, customerID uint, req *dto.AddItemRequest, metadata *ClientMetadata) (*dto.AddItemResponse, error) {
	vendorID := resolveVendorID(req.VendorID)

	item, err := s.buildItem(ctx, req.Item)
	if err != nil {
		return nil, s.itemError(ctx, customerID, vendorID, models.AuditActionWorkingItemAdded, err, metadata)
	}

	unlock := lockSelectionScope(customerID, vendorID)
	defer unlock()

	var working *models.Selection
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		working, err = s.getOrCreateWorking(txCtx, customerID, vendorID)
		if err != nil {
			return err
		}

		if working.Items.FindBySKU(item.SKU) >= 0 {
			return &DuplicateItemError{SKU: item.SKU}
		}

		working.Items = append(working.Items, item)
		if working.Metadata == nil {
			working.Metadata = models.SelectionMetadata{}
		}
		working.Metadata[models.MetadataKeyWasModified] = true

		return s.selectionRepo.Update(txCtx, *working)
	})
	if err != nil {
		if IsDuplicateItem(err) {
			return nil, NewBusinessError("DUPLICATE_ITEM", "Item already exists in selection", err)
		}

		errMsg := fmt.Sprintf("Adding item %s failed: %s", item.SKU, err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionWorkingItemAdded, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SELECTION_UPDATE_FAILED", "Failed to add item to working selection", err)
	}

	s.cache.Invalidate(ctx, vendorID, customerID)

	msg := fmt.Sprintf("Item %s added to working selection", item.SKU)
	_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionWorkingItemAdded, msg, true, nil, metadata)

	return &dto.AddItemResponse{
		Message:   "Item added successfully",
		Selection: ToSelectionDTO(*working),
	}, nil
}

// CreateWorkingFromSnapshot clones a snapshot into the customer's working
// selection slot. Mode auto refuses when a working selection already exists;
// replace overwrites it in place; create_new archives it first.
func (s *SelectionFlowImpl) CreateWorkingFromSnapshot(ctx context.Context, customerID uint, req *dto.CreateWorkingFromSnapshotRequest, metadata *ClientMetadata) (*dto.CreateWorkingFromSnapshotResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = ImportModeAuto
	}
	if mode != ImportModeAuto && mode != ImportModeCreateNew && mode != ImportModeReplace {
		return nil, NewBusinessError("INVALID_IMPORT_MODE", "Invalid import mode", ErrInvalidImportMode)
	}

	snapshot, err := s.getOwnedSnapshot(ctx, req.SnapshotID, customerID)
	if err != nil {
		return nil, err
	}
	vendorID := snapshot.VendorID

	unlock := lockSelectionScope(customerID, vendorID)
	defer unlock()

	var working *models.Selection
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		existing, err := s.selectionRepo.GetWorking(txCtx, customerID, vendorID)
		if err != nil {
			return err
		}

		if existing != nil {
			switch mode {
			case ImportModeAuto:
				return &WorkingSelectionExistsError{
					SelectionID: existing.ID,
					UUID:        existing.UUID.String(),
					Version:     existing.Version,
					Name:        existing.Name,
				}
			case ImportModeReplace:
				working = existing
			case ImportModeCreateNew:
				if err := s.selectionRepo.ArchiveWorking(txCtx, existing.ID); err != nil {
					return err
				}
			}
		}

		items := s.cloneItems(txCtx, snapshot.Items)
		name := req.Name
		if name == nil {
			name = snapshot.Name
		}
		meta := models.SelectionMetadata{
			models.MetadataKeyImportMode:       mode,
			models.MetadataKeyRestoredFromName: snapshot.DisplayName(),
			models.MetadataKeyWasModified:      false,
		}
		for k, v := range req.Metadata {
			meta[k] = v
		}

		if working != nil {
			working.Items = items
			working.Name = name
			working.Metadata = meta
			return s.selectionRepo.Update(txCtx, *working)
		}

		working, err = s.newWorking(txCtx, customerID, vendorID)
		if err != nil {
			return err
		}
		working.Items = items
		working.Name = name
		working.Metadata = meta
		return s.selectionRepo.Update(txCtx, *working)
	})
	if err != nil {
		if IsWorkingSelectionExists(err) {
			return nil, NewBusinessError("WORKING_SELECTION_EXISTS", "A working selection already exists", err)
		}

		errMsg := fmt.Sprintf("Creating working selection from snapshot v%d failed: %s", snapshot.Version, err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionWorkingCreatedFromSnap, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SELECTION_CREATE_FAILED", "Failed to create working selection from snapshot", err)
	}

	s.cache.Invalidate(ctx, vendorID, customerID)

	msg := fmt.Sprintf("Working selection created from snapshot v%d (mode %s)", snapshot.Version, mode)
	_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionWorkingCreatedFromSnap, msg, true, nil, metadata)

	return &dto.CreateWorkingFromSnapshotResponse{
		Message:   "Working selection created from snapshot",
		Selection: ToSelectionDTO(*working),
	}, nil
}

// RestoreWorking replaces the working selection's items with a snapshot's
// contents, refreshing prices from the catalog. The snapshot itself is never
// touched; restoring twice is idempotent.
func (s *SelectionFlowImpl) RestoreWorking(ctx context.Context, customerID uint, req *dto.RestoreWorkingRequest, metadata *ClientMetadata) (*dto.RestoreWorkingResponse, error) {
	snapshot, err := s.getOwnedSnapshot(ctx, req.SnapshotID, customerID)
	if err != nil {
		return nil, err
	}
	vendorID := snapshot.VendorID

	unlock := lockSelectionScope(customerID, vendorID)
	defer unlock()

	var working *models.Selection
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		var err error
		working, err = s.getOrCreateWorking(txCtx, customerID, vendorID)
		if err != nil {
			return err
		}

		working.Items = s.cloneItems(txCtx, snapshot.Items)
		if working.Metadata == nil {
			working.Metadata = models.SelectionMetadata{}
		}
		working.Metadata[models.MetadataKeyRestoredFromName] = snapshot.DisplayName()
		working.Metadata[models.MetadataKeyWasModified] = false

		return s.selectionRepo.Update(txCtx, *working)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Restoring snapshot v%d failed: %s", snapshot.Version, err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionWorkingRestored, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SELECTION_RESTORE_FAILED", "Failed to restore working selection", err)
	}

	s.cache.Invalidate(ctx, vendorID, customerID)

	msg := fmt.Sprintf("Working selection restored from snapshot v%d", snapshot.Version)
	_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionWorkingRestored, msg, true, nil, metadata)

	return &dto.RestoreWorkingResponse{
		Message:   "Working selection restored successfully",
		Selection: ToSelectionDTO(*working),
	}, nil
}

// getOwnedSnapshot fetches a snapshot and verifies ownership. Ownership
// mismatches surface as NotFound so existence is never leaked across customers.
func (s *SelectionFlowImpl) getOwnedSnapshot(ctx context.Context, snapshotID, customerID uint) (*models.Selection, error) {
	snapshot, err := s.selectionRepo.ByID(ctx, snapshotID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to lookup snapshot", err)
	}
	if snapshot == nil || snapshot.CustomerID != customerID || !snapshot.IsSnapshot() {
		return nil, NewBusinessError("SNAPSHOT_NOT_FOUND", "Snapshot not found", ErrSnapshotNotFound)
	}
	return snapshot, nil
}

// getOrCreateWorking returns the scope's working selection, creating an empty
// one stamped with the vendor's current cycle when none exists.
func (s *SelectionFlowImpl) getOrCreateWorking(ctx context.Context, customerID uint, vendorID string) (*models.Selection, error) {
	working, err := s.selectionRepo.GetWorking(ctx, customerID, vendorID)
	if err != nil {
		return nil, err
	}
	if working != nil {
		return working, nil
	}
	return s.newWorking(ctx, customerID, vendorID)
}

// newWorking creates an empty working selection stamped with the vendor's
// current cycle, when one is configured.
func (s *SelectionFlowImpl) newWorking(ctx context.Context, customerID uint, vendorID string) (*models.Selection, error) {
	working := &models.Selection{
		CustomerID: customerID,
		VendorID:   vendorID,
		Status:     models.SelectionStatusWorking,
		Items:      models.SelectionItems{},
		Metadata:   models.SelectionMetadata{},
	}

	cycle, err := s.cycleRepo.CurrentCycle(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if cycle != nil {
		working.MarketCycle = *cycle
	}

	if err := s.selectionRepo.Save(ctx, working); err != nil {
		return nil, err
	}
	return working, nil
}

// buildItem resolves one input line against the catalog. Pricing and catalog
// attribution always come from the catalog, never from the caller.
func (s *SelectionFlowImpl) buildItem(ctx context.Context, input dto.WorkingItemInput) (models.SelectionItem, error) {
	catalogItem, err := s.catalog.FindItem(ctx, input.SKU)
	if err != nil {
		return models.SelectionItem{}, fmt.Errorf("catalog lookup failed for %s: %w", input.SKU, err)
	}
	if catalogItem == nil {
		return models.SelectionItem{}, &UnknownSkuError{SKU: input.SKU}
	}

	item := models.SelectionItem{
		SKU:           catalogItem.SKU,
		Name:          catalogItem.Name,
		Collection:    catalogItem.Collection,
		Year:          catalogItem.Year,
		UnitList:      catalogItem.UnitList,
		Qty:           input.Qty,
		DisplayQty:    input.DisplayQty,
		BackupQty:     input.BackupQty,
		ProgramDisc:   input.ProgramDisc,
		Notes:         input.Notes,
		Tags:          input.Tags,
		Configuration: input.Configuration,
	}
	// Legacy total defaults to the sum of the split quantities
	if item.Qty == 0 {
		item.Qty = item.DisplayQty + item.BackupQty
	}
	item.Normalize()

	return item, nil
}

// buildItems resolves a full input list, rejecting in-request SKU duplicates
func (s *SelectionFlowImpl) buildItems(ctx context.Context, inputs []dto.WorkingItemInput) (models.SelectionItems, error) {
	items := make(models.SelectionItems, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		if _, dup := seen[input.SKU]; dup {
			return nil, &DuplicateItemError{SKU: input.SKU}
		}
		seen[input.SKU] = struct{}{}

		item, err := s.buildItem(ctx, input)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// cloneItems copies snapshot items into a new working selection, refreshing
// prices and attribution from the catalog. Lines whose SKU has left the
// catalog keep their stored values.
func (s *SelectionFlowImpl) cloneItems(ctx context.Context, items models.SelectionItems) models.SelectionItems {
	out := make(models.SelectionItems, 0, len(items))
	for _, item := range items {
		clone := item
		if catalogItem, err := s.catalog.FindItem(ctx, item.SKU); err == nil && catalogItem != nil {
			clone.Name = catalogItem.Name
			clone.Collection = catalogItem.Collection
			clone.Year = catalogItem.Year
			clone.UnitList = catalogItem.UnitList
		}
		clone.Normalize()
		out = append(out, clone)
	}
	return out
}

// itemError maps item resolution failures to business errors with an audit trail
func (s *SelectionFlowImpl) itemError(ctx context.Context, customerID uint, vendorID, action string, err error, metadata *ClientMetadata) error {
	errMsg := err.Error()
	_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, action, errMsg, false, &errMsg, metadata)

	switch {
	case IsUnknownSku(err):
		return NewBusinessError("UNKNOWN_SKU", "SKU not found in catalog", err)
	case IsDuplicateItem(err):
		return NewBusinessError("DUPLICATE_ITEM", "Duplicate SKU in request", err)
	default:
		return NewBusinessError("CATALOG_LOOKUP_FAILED", "Failed to resolve items against catalog", err)
	}
}
