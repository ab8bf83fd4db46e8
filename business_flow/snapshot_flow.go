// Package businessflow contains the core business logic and use cases for snapshot workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/showbook-app/showbook/app/dto"
	"github.com/showbook-app/showbook/app/services"
	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/repository"
	"gorm.io/gorm"
)

// SnapshotFlow handles the snapshot business logic
type SnapshotFlow interface {
	CreateSnapshot(ctx context.Context, req *dto.CreateSnapshotRequest, metadata *ClientMetadata) (*dto.CreateSnapshotResponse, error)
	ListSnapshots(ctx context.Context, customerID uint, vendorID string) (*dto.ListSnapshotsResponse, error)
	GetActiveSnapshot(ctx context.Context, customerID uint, vendorID string) (*dto.GetActiveSnapshotResponse, error)
	ToggleVisibility(ctx context.Context, snapshotID, customerID uint, metadata *ClientMetadata) (*dto.ToggleVisibilityResponse, error)
	DeleteSnapshot(ctx context.Context, snapshotID, customerID uint, metadata *ClientMetadata) (*dto.DeleteSnapshotResponse, error)
}

// SnapshotFlowImpl implements the snapshot business flow
type SnapshotFlowImpl struct {
	selectionRepo repository.SelectionRepository
	cycleRepo     repository.MarketCycleSettingRepository
	auditRepo     repository.AuditLogRepository
	catalog       services.CatalogService
	db            *gorm.DB
}

// NewSnapshotFlow creates a new snapshot flow instance
func NewSnapshotFlow(
	selectionRepo repository.SelectionRepository,
	cycleRepo repository.MarketCycleSettingRepository,
	auditRepo repository.AuditLogRepository,
	catalog services.CatalogService,
	db *gorm.DB,
) SnapshotFlow {
	return &SnapshotFlowImpl{
		selectionRepo: selectionRepo,
		cycleRepo:     cycleRepo,
		auditRepo:     auditRepo,
		catalog:       catalog,
		db:            db,
	}
}

// CreateSnapshot freezes an imported event order as a new immutable snapshot
// version. Every SKU must resolve against the catalog before anything is
// persisted; one unknown SKU fails the whole import.
func (s *SnapshotFlowImpl) CreateSnapshot(ctx context.Context, req *dto.CreateSnapshotRequest, metadata *ClientMetadata) (*dto.CreateSnapshotResponse, error) {
	vendorID := resolveVendorID(req.VendorID)
	customerID := req.CustomerID

	// Resolve all items up front so a late unknown SKU can never leave a
	// partially imported snapshot behind.
	items := make(models.SelectionItems, 0, len(req.Items))
	seen := make(map[string]struct{}, len(req.Items))
	for _, input := range req.Items {
		if _, dup := seen[input.SKU]; dup {
			return nil, NewBusinessError("DUPLICATE_ITEM", "Duplicate SKU in import", &DuplicateItemError{SKU: input.SKU})
		}
		seen[input.SKU] = struct{}{}

		item, err := s.buildItem(ctx, input)
		if err != nil {
			errMsg := err.Error()
			_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionSnapshotCreated, errMsg, false, &errMsg, metadata)

			if IsUnknownSku(err) {
				return nil, NewBusinessError("UNKNOWN_SKU", "SKU not found in catalog", err)
			}
			return nil, NewBusinessError("CATALOG_LOOKUP_FAILED", "Failed to resolve items against catalog", err)
		}
		items = append(items, item)
	}

	unlock := lockSelectionScope(customerID, vendorID)
	defer unlock()

	var snapshot *models.Selection
	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		version, err := s.selectionRepo.NextSnapshotVersion(txCtx, customerID, vendorID)
		if err != nil {
			return err
		}

		snapshot = &models.Selection{
			CustomerID: customerID,
			VendorID:   vendorID,
			Status:     models.SelectionStatusSnapshot,
			Version:    version,
			Name:       req.Name,
			Items:      items,
			// New snapshots start hidden; a rep reveals them explicitly
			IsVisibleToCustomer: false,
			SourceEventID:       req.SourceEventID,
			SourceYear:          req.SourceYear,
			Metadata:            models.SelectionMetadata{},
		}
		for k, v := range req.Metadata {
			snapshot.Metadata[k] = v
		}

		cycle, err := s.cycleRepo.CurrentCycle(txCtx, vendorID)
		if err != nil {
			return err
		}
		if cycle != nil {
			snapshot.MarketCycle = *cycle
		}

		return s.selectionRepo.Save(txCtx, snapshot)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Snapshot creation failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionSnapshotCreated, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("SNAPSHOT_CREATION_FAILED", "Failed to create snapshot", err)
	}

	snapshotsCreatedTotal.Inc()

	msg := fmt.Sprintf("Snapshot v%d created with %d items", snapshot.Version, len(items))
	_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionSnapshotCreated, msg, true, nil, metadata)

	return &dto.CreateSnapshotResponse{
		Message:   "Snapshot created successfully",
		Selection: ToSelectionDTO(*snapshot),
	}, nil
}

// ListSnapshots returns all of a customer's snapshots, newest version first
func (s *SnapshotFlowImpl) ListSnapshots(ctx context.Context, customerID uint, vendorID string) (*dto.ListSnapshotsResponse, error) {
	vendorID = resolveVendorID(vendorID)

	snapshots, err := s.selectionRepo.ListSnapshots(ctx, customerID, vendorID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to list snapshots", err)
	}

	out := make([]dto.SelectionDTO, 0, len(snapshots))
	for _, snapshot := range snapshots {
		out = append(out, ToSelectionDTO(*snapshot))
	}

	return &dto.ListSnapshotsResponse{
		Message:   "Snapshots retrieved successfully",
		Snapshots: out,
	}, nil
}

// GetActiveSnapshot returns the highest-version snapshot, when any exists
func (s *SnapshotFlowImpl) GetActiveSnapshot(ctx context.Context, customerID uint, vendorID string) (*dto.GetActiveSnapshotResponse, error) {
	vendorID = resolveVendorID(vendorID)

	snapshot, err := s.selectionRepo.ActiveSnapshot(ctx, customerID, vendorID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to lookup active snapshot", err)
	}

	if snapshot == nil {
		return &dto.GetActiveSnapshotResponse{
			Message: "No snapshots exist",
		}, nil
	}

	selection := ToSelectionDTO(*snapshot)
	return &dto.GetActiveSnapshotResponse{
		Message:   "Active snapshot retrieved successfully",
		Selection: &selection,
	}, nil
}

// ToggleVisibility flips whether the customer can see a snapshot. Ownership
// mismatches surface as NotFound so existence is never leaked.
func (s *SnapshotFlowImpl) ToggleVisibility(ctx context.Context, snapshotID, customerID uint, metadata *ClientMetadata) (*dto.ToggleVisibilityResponse, error) {
	snapshot, err := s.selectionRepo.ByID(ctx, snapshotID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to lookup snapshot", err)
	}
	if snapshot == nil || snapshot.CustomerID != customerID || !snapshot.IsSnapshot() {
		return nil, NewBusinessError("SNAPSHOT_NOT_FOUND", "Snapshot not found", ErrSnapshotNotFound)
	}
	vendorID := snapshot.VendorID

	visible := !snapshot.IsVisibleToCustomer
	if err := s.selectionRepo.SetVisibility(ctx, snapshot.ID, visible); err != nil {
		errMsg := fmt.Sprintf("Visibility toggle failed for snapshot v%d: %s", snapshot.Version, err.Error())
		_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionVisibilityToggled, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("VISIBILITY_UPDATE_FAILED", "Failed to toggle snapshot visibility", err)
	}
	snapshot.IsVisibleToCustomer = visible

	msg := fmt.Sprintf("Snapshot v%d visibility set to %t", snapshot.Version, visible)
	_ = createAuditLog(ctx, s.auditRepo, &customerID, &vendorID, models.AuditActionVisibilityToggled, msg, true, nil, metadata)

	return &dto.ToggleVisibilityResponse{
		Message:   "Snapshot visibility updated successfully",
		Selection: ToSelectionDTO(*snapshot),
	}, nil
}

// DeleteSnapshot removes one of the customer's own snapshots. Version numbers
// of remaining snapshots never shift; deleted versions are not reused for
// ordering purposes since the counter only ever grows.
func (s *SnapshotFlowImpl) DeleteSnapshot(ctx context.Context, snapshotID, customerID uint, metadata *ClientMetadata) (*dto.DeleteSnapshotResponse, error) {
	deleted, err := s.selectionRepo.DeleteOwnedSnapshot(ctx, snapshotID, customerID)
	if err != nil {
		return nil, NewBusinessError("SNAPSHOT_DELETE_FAILED", "Failed to delete snapshot", err)
	}
	if !deleted {
		return nil, NewBusinessError("SNAPSHOT_NOT_FOUND", "Snapshot not found", ErrSnapshotNotFound)
	}

	msg := fmt.Sprintf("Snapshot %d deleted", snapshotID)
	_ = createAuditLog(ctx, s.auditRepo, &customerID, nil, models.AuditActionSnapshotDeleted, msg, true, nil, metadata)

	return &dto.DeleteSnapshotResponse{
		Message: "Snapshot deleted successfully",
		Deleted: true,
	}, nil
}

// buildItem resolves one import line against the catalog
func (s *SnapshotFlowImpl) buildItem(ctx context.Context, input dto.WorkingItemInput) (models.SelectionItem, error) {
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
	if item.Qty == 0 {
		item.Qty = item.DisplayQty + item.BackupQty
	}
	item.Normalize()

	return item, nil
}
