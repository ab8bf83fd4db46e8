package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SelectionRepositoryImpl implements the SelectionRepository interface
type SelectionRepositoryImpl struct {
	*BaseRepository[models.Selection, models.SelectionFilter]
}

// NewSelectionRepository creates a new selection repository
func NewSelectionRepository(db *gorm.DB) SelectionRepository {
	return &SelectionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Selection, models.SelectionFilter](db),
	}
}

// ByUUID retrieves a selection by UUID
func (r *SelectionRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Selection, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return nil, err
	}

	rows, err := r.ByFilter(ctx, models.SelectionFilter{UUID: &parsed}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// GetWorking retrieves the single working selection for a customer/vendor
// scope, if any. Inside a transaction the row is read FOR UPDATE so
// concurrent snapshot and archival writers serialize on it.
func (r *SelectionRepositoryImpl) GetWorking(ctx context.Context, customerID uint, vendorID string) (*models.Selection, error) {
	db := r.getDB(ctx)
	if inTransaction(ctx) {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var selection models.Selection
	err := db.Where("customer_id = ? AND vendor_id = ? AND status = ?",
		customerID, vendorID, models.SelectionStatusWorking).
		Last(&selection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &selection, nil
}

// NextSnapshotVersion computes the next snapshot version for a customer/vendor
// scope. Callers must hold the scope lock and run inside a transaction so the
// returned version cannot be assigned twice.
func (r *SelectionRepositoryImpl) NextSnapshotVersion(ctx context.Context, customerID uint, vendorID string) (int, error) {
	db := r.getDB(ctx)

	var maxVersion int
	err := db.Model(&models.Selection{}).
		Where("customer_id = ? AND vendor_id = ? AND status = ?",
			customerID, vendorID, models.SelectionStatusSnapshot).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return 0, fmt.Errorf("failed to compute next snapshot version: %w", err)
	}

	return maxVersion + 1, nil
}

// ListSnapshots retrieves all snapshots for a customer/vendor scope, newest version first
func (r *SelectionRepositoryImpl) ListSnapshots(ctx context.Context, customerID uint, vendorID string) ([]*models.Selection, error) {
	status := models.SelectionStatusSnapshot
	filter := models.SelectionFilter{
		CustomerID: &customerID,
		VendorID:   &vendorID,
		Status:     &status,
	}
	return r.ByFilter(ctx, filter, "version DESC", 0, 0)
}

// ActiveSnapshot retrieves the highest-version snapshot for a customer/vendor
// scope. Version is the sole ordering key; visibility is orthogonal.
func (r *SelectionRepositoryImpl) ActiveSnapshot(ctx context.Context, customerID uint, vendorID string) (*models.Selection, error) {
	rows, err := r.ListSnapshots(ctx, customerID, vendorID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListByCycle retrieves all snapshots tagged with the given market cycle for a vendor
func (r *SelectionRepositoryImpl) ListByCycle(ctx context.Context, cycle models.MarketCycle, vendorID string) ([]*models.Selection, error) {
	status := models.SelectionStatusSnapshot
	month := cycle.Month
	filter := models.SelectionFilter{
		VendorID:   &vendorID,
		Status:     &status,
		CycleYear:  &cycle.Year,
		CycleMonth: &month,
	}
	return r.ByFilter(ctx, filter, "customer_id ASC, version DESC", 0, 0)
}

// Update persists the full selection row
func (r *SelectionRepositoryImpl) Update(ctx context.Context, selection models.Selection) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	now := utils.UTCNow()
	selection.UpdatedAt = &now

	err = db.Save(&selection).Error
	if err != nil {
		return err
	}

	return nil
}

// SetVisibility updates only the customer-visibility flag of a snapshot
func (r *SelectionRepositoryImpl) SetVisibility(ctx context.Context, id uint, visible bool) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Selection{}).
		Where("id = ? AND status = ?", id, models.SelectionStatusSnapshot).
		Updates(map[string]any{
			"is_visible_to_customer": visible,
			"updated_at":             utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// DeleteOwnedSnapshot deletes a snapshot only when it belongs to the given
// customer. Returns false without error when no matching row exists, so the
// caller can map ownership mismatches to NotFound without leaking existence.
func (r *SelectionRepositoryImpl) DeleteOwnedSnapshot(ctx context.Context, id, customerID uint) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	res := db.Where("id = ? AND customer_id = ? AND status = ?",
		id, customerID, models.SelectionStatusSnapshot).
		Delete(&models.Selection{})
	if res.Error != nil {
		err = res.Error
		return false, err
	}

	return res.RowsAffected > 0, nil
}

// ArchiveWorking re-tags a working selection as archived, preserving its contents
func (r *SelectionRepositoryImpl) ArchiveWorking(ctx context.Context, id uint) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	res := db.Model(&models.Selection{}).
		Where("id = ? AND status = ?", id, models.SelectionStatusWorking).
		Updates(map[string]any{
			"status":     models.SelectionStatusArchived,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		err = res.Error
		return err
	}
	if res.RowsAffected == 0 {
		err = gorm.ErrRecordNotFound
		return err
	}

	return nil
}

// CycleStats aggregates snapshot counts per market cycle for a vendor
func (r *SelectionRepositoryImpl) CycleStats(ctx context.Context, vendorID string) ([]CycleStatsRow, error) {
	db := r.getDB(ctx)

	type row struct {
		CycleYear  int
		CycleMonth string
		Total      int64
		Visible    int64
	}
	var rows []row
	err := db.Model(&models.Selection{}).
		Select("CAST(market_cycle->>'year' AS INTEGER) AS cycle_year, "+
			"market_cycle->>'month' AS cycle_month, "+
			"COUNT(*) AS total, "+
			"COUNT(*) FILTER (WHERE is_visible_to_customer) AS visible").
		Where("vendor_id = ? AND status = ? AND market_cycle IS NOT NULL",
			vendorID, models.SelectionStatusSnapshot).
		Group("market_cycle->>'year', market_cycle->>'month'").
		Order("cycle_year DESC, cycle_month ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]CycleStatsRow, 0, len(rows))
	for _, v := range rows {
		out = append(out, CycleStatsRow{
			CycleYear:  v.CycleYear,
			CycleMonth: models.CycleMonth(v.CycleMonth),
			Total:      v.Total,
			Visible:    v.Visible,
		})
	}
	return out, nil
}

// ByFilter retrieves selections based on filter criteria
func (r *SelectionRepositoryImpl) ByFilter(ctx context.Context, filter models.SelectionFilter, orderBy string, limit, offset int) ([]*models.Selection, error) {
	db := r.getDB(ctx)

	var selections []*models.Selection
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&selections).Error
	if err != nil {
		return nil, err
	}

	return selections, nil
}

// Count returns the number of selections matching the filter
func (r *SelectionRepositoryImpl) Count(ctx context.Context, filter models.SelectionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Selection{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any selection matching the filter exists
func (r *SelectionRepositoryImpl) Exists(ctx context.Context, filter models.SelectionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *SelectionRepositoryImpl) applyFilter(db *gorm.DB, filter models.SelectionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.VendorID != nil {
		db = db.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.Version != nil {
		db = db.Where("version = ?", *filter.Version)
	}
	if filter.IsVisibleToCustomer != nil {
		db = db.Where("is_visible_to_customer = ?", *filter.IsVisibleToCustomer)
	}
	if filter.CycleYear != nil {
		db = db.Where("CAST(market_cycle->>'year' AS INTEGER) = ?", *filter.CycleYear)
	}
	if filter.CycleMonth != nil {
		db = db.Where("market_cycle->>'month' = ?", string(*filter.CycleMonth))
	}
	if filter.SourceEventID != nil {
		db = db.Where("source_event_id = ?", *filter.SourceEventID)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
