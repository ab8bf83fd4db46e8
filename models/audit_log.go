package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CustomerID   *uint           `gorm:"index:idx_audit_customer_id" json:"customer_id,omitempty"`
	VendorID     *string         `gorm:"type:varchar(64);index:idx_audit_vendor_id" json:"vendor_id,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"type:inet;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionWorkingUpdated         = "working_updated"
	AuditActionWorkingItemAdded       = "working_item_added"
	AuditActionWorkingCreatedFromSnap = "working_created_from_snapshot"
	AuditActionWorkingRestored        = "working_restored"
	AuditActionSnapshotCreated        = "snapshot_created"
	AuditActionSnapshotDeleted        = "snapshot_deleted"
	AuditActionVisibilityToggled      = "visibility_toggled"
	AuditActionSelectionArchived      = "selection_archived"
	AuditActionCycleAdvanced          = "cycle_advanced"
	AuditActionBulkVisibility         = "bulk_visibility"
	AuditActionPromotionUpserted      = "promotion_upserted"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	CustomerID    *uint
	VendorID      *string
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
