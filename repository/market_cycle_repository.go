package repository

import (
	"context"
	"errors"

	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/utils"
	"gorm.io/gorm"
)

// MarketCycleSettingRepositoryImpl implements the MarketCycleSettingRepository interface
type MarketCycleSettingRepositoryImpl struct {
	*BaseRepository[models.MarketCycleSetting, models.MarketCycleSettingFilter]
}

// NewMarketCycleSettingRepository creates a new market cycle setting repository
func NewMarketCycleSettingRepository(db *gorm.DB) MarketCycleSettingRepository {
	return &MarketCycleSettingRepositoryImpl{
		BaseRepository: NewBaseRepository[models.MarketCycleSetting, models.MarketCycleSettingFilter](db),
	}
}

// CurrentCycle returns the configured current cycle for a vendor, or nil when
// no cycle has been configured yet.
func (r *MarketCycleSettingRepositoryImpl) CurrentCycle(ctx context.Context, vendorID string) (*models.MarketCycle, error) {
	db := r.getDB(ctx)

	var setting models.MarketCycleSetting
	err := db.Where("vendor_id = ?", vendorID).Last(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	cycle := setting.Cycle
	return &cycle, nil
}

// SetCurrentCycle upserts the current cycle row for a vendor
func (r *MarketCycleSettingRepositoryImpl) SetCurrentCycle(ctx context.Context, vendorID string, cycle models.MarketCycle, updatedBy *string) error {
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

	var existing models.MarketCycleSetting
	err = db.Where("vendor_id = ?", vendorID).Last(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Create(&models.MarketCycleSetting{
			VendorID:  vendorID,
			Cycle:     cycle,
			UpdatedBy: updatedBy,
			CreatedAt: utils.UTCNow(),
			UpdatedAt: utils.UTCNow(),
		}).Error
		return err
	}

	err = db.Model(&models.MarketCycleSetting{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"cycle":      cycle,
			"updated_by": updatedBy,
			"updated_at": utils.UTCNow(),
		}).Error
	return err
}

// ByFilter retrieves market cycle settings based on filter criteria
func (r *MarketCycleSettingRepositoryImpl) ByFilter(ctx context.Context, filter models.MarketCycleSettingFilter, orderBy string, limit, offset int) ([]*models.MarketCycleSetting, error) {
	db := r.getDB(ctx)

	var rows []*models.MarketCycleSetting
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

	err := query.Find(&rows).Error
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// Count returns the number of settings matching the filter
func (r *MarketCycleSettingRepositoryImpl) Count(ctx context.Context, filter models.MarketCycleSettingFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.MarketCycleSetting{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any setting matching the filter exists
func (r *MarketCycleSettingRepositoryImpl) Exists(ctx context.Context, filter models.MarketCycleSettingFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *MarketCycleSettingRepositoryImpl) applyFilter(db *gorm.DB, filter models.MarketCycleSettingFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.VendorID != nil {
		db = db.Where("vendor_id = ?", *filter.VendorID)
	}

	return db
}
