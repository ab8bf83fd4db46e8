// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/showbook-app/showbook/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// CycleStatsRow is one per-cycle aggregation row returned by CycleStats.
type CycleStatsRow struct {
	CycleYear  int
	CycleMonth models.CycleMonth
	Total      int64
	Visible    int64
}

// SelectionRepository defines operations for selections (working, snapshot, archived)
type SelectionRepository interface {
	Repository[models.Selection, models.SelectionFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Selection, error)
	GetWorking(ctx context.Context, customerID uint, vendorID string) (*models.Selection, error)
	NextSnapshotVersion(ctx context.Context, customerID uint, vendorID string) (int, error)
	ListSnapshots(ctx context.Context, customerID uint, vendorID string) ([]*models.Selection, error)
	ActiveSnapshot(ctx context.Context, customerID uint, vendorID string) (*models.Selection, error)
	ListByCycle(ctx context.Context, cycle models.MarketCycle, vendorID string) ([]*models.Selection, error)
	Update(ctx context.Context, selection models.Selection) error
	SetVisibility(ctx context.Context, id uint, visible bool) error
	DeleteOwnedSnapshot(ctx context.Context, id, customerID uint) (bool, error)
	ArchiveWorking(ctx context.Context, id uint) error
	CycleStats(ctx context.Context, vendorID string) ([]CycleStatsRow, error)
}

// PromotionRepository defines operations for vendor promotions
type PromotionRepository interface {
	Repository[models.Promotion, models.PromotionFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Promotion, error)
	ActiveByVendor(ctx context.Context, vendorID string) (*models.Promotion, error)
	Update(ctx context.Context, promotion models.Promotion) error
	DeactivateByVendor(ctx context.Context, vendorID string) error
}

// MarketCycleSettingRepository defines operations for the per-vendor current cycle registry
type MarketCycleSettingRepository interface {
	Repository[models.MarketCycleSetting, models.MarketCycleSettingFilter]
	CurrentCycle(ctx context.Context, vendorID string) (*models.MarketCycle, error)
	SetCurrentCycle(ctx context.Context, vendorID string, cycle models.MarketCycle, updatedBy *string) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByCustomer(ctx context.Context, customerID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
	ListFailedActions(ctx context.Context, limit, offset int) ([]*models.AuditLog, error)
}
