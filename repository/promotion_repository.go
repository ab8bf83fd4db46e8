package repository

import (
	"context"

	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/utils"
	"gorm.io/gorm"
)

// PromotionRepositoryImpl implements the PromotionRepository interface
type PromotionRepositoryImpl struct {
	*BaseRepository[models.Promotion, models.PromotionFilter]
}

// NewPromotionRepository creates a new promotion repository
func NewPromotionRepository(db *gorm.DB) PromotionRepository {
	return &PromotionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Promotion, models.PromotionFilter](db),
	}
}

// ByUUID retrieves a promotion by UUID
func (r *PromotionRepositoryImpl) ByUUID(ctx context.Context, uuidStr string) (*models.Promotion, error) {
	parsed, err := utils.ParseUUID(uuidStr)
	if err != nil {
		return nil, err
	}

	rows, err := r.ByFilter(ctx, models.PromotionFilter{UUID: &parsed}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ActiveByVendor retrieves the currently active promotion for a vendor, if any
func (r *PromotionRepositoryImpl) ActiveByVendor(ctx context.Context, vendorID string) (*models.Promotion, error) {
	active := true
	rows, err := r.ByFilter(ctx, models.PromotionFilter{VendorID: &vendorID, Active: &active}, "id DESC", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Update persists the full promotion row
func (r *PromotionRepositoryImpl) Update(ctx context.Context, promotion models.Promotion) error {
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
	promotion.UpdatedAt = &now

	err = db.Save(&promotion).Error
	if err != nil {
		return err
	}

	return nil
}

// DeactivateByVendor clears the active flag on all promotions of a vendor
func (r *PromotionRepositoryImpl) DeactivateByVendor(ctx context.Context, vendorID string) error {
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

	err = db.Model(&models.Promotion{}).
		Where("vendor_id = ? AND active", vendorID).
		Updates(map[string]any{
			"active":     false,
			"updated_at": utils.UTCNow(),
		}).Error
	if err != nil {
		return err
	}

	return nil
}

// ByFilter retrieves promotions based on filter criteria
func (r *PromotionRepositoryImpl) ByFilter(ctx context.Context, filter models.PromotionFilter, orderBy string, limit, offset int) ([]*models.Promotion, error) {
	db := r.getDB(ctx)

	var promotions []*models.Promotion
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

	err := query.Find(&promotions).Error
	if err != nil {
		return nil, err
	}

	return promotions, nil
}

// Count returns the number of promotions matching the filter
func (r *PromotionRepositoryImpl) Count(ctx context.Context, filter models.PromotionFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	query := r.applyFilter(db.Model(&models.Promotion{}), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any promotion matching the filter exists
func (r *PromotionRepositoryImpl) Exists(ctx context.Context, filter models.PromotionFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *PromotionRepositoryImpl) applyFilter(db *gorm.DB, filter models.PromotionFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.VendorID != nil {
		db = db.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Active != nil {
		db = db.Where("active = ?", *filter.Active)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
