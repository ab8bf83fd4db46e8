// Package testing provides test utilities and database setup for testing the selection system
package testing

import (
	"fmt"

	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// TestItems returns a small but realistic mixed item set: display lines,
// a backup-only line, and a zero-quantity line.
func TestItems() models.SelectionItems {
	disc := 0.1
	items := models.SelectionItems{
		{SKU: "SOFA-100", Name: "Track Arm Sofa", Collection: "Harbor", Year: 2026, UnitList: 1200, Qty: 3, DisplayQty: 1, BackupQty: 2},
		{SKU: "CHAIR-200", Name: "Wing Chair", Collection: "Harbor", Year: 2026, UnitList: 450, Qty: 2, DisplayQty: 2, ProgramDisc: &disc},
		{SKU: "LAMP-300", Name: "Brass Floor Lamp", UnitList: 180, Qty: 4, BackupQty: 4},
	}
	for i := range items {
		items[i].Normalize()
	}
	return items
}

// CreateTestWorkingSelection creates a working selection for a customer
func (tf *TestFixtures) CreateTestWorkingSelection(customerID uint, items models.SelectionItems) (*models.Selection, error) {
	selection := &models.Selection{
		CustomerID: customerID,
		VendorID:   utils.DefaultVendorID,
		Status:     models.SelectionStatusWorking,
		Items:      items,
	}

	if err := tf.DB.DB.Create(selection).Error; err != nil {
		return nil, fmt.Errorf("failed to create test working selection: %w", err)
	}

	return selection, nil
}

// CreateTestSnapshot creates a snapshot with an explicit version for a customer
func (tf *TestFixtures) CreateTestSnapshot(customerID uint, version int, items models.SelectionItems) (*models.Selection, error) {
	name := fmt.Sprintf("Market Import v%d", version)
	selection := &models.Selection{
		CustomerID: customerID,
		VendorID:   utils.DefaultVendorID,
		Status:     models.SelectionStatusSnapshot,
		Version:    version,
		Name:       &name,
		Items:      items,
	}

	if err := tf.DB.DB.Create(selection).Error; err != nil {
		return nil, fmt.Errorf("failed to create test snapshot: %w", err)
	}

	return selection, nil
}

// CreateTestPromotion creates an active SKU-count promotion with the given tiers
func (tf *TestFixtures) CreateTestPromotion(tiers []models.PromotionTier) (*models.Promotion, error) {
	promotion := &models.Promotion{
		VendorID: utils.DefaultVendorID,
		Active:   true,
	}
	promotion.SetTierRules(models.NewSkuTierRules(tiers))

	if err := tf.DB.DB.Create(promotion).Error; err != nil {
		return nil, fmt.Errorf("failed to create test promotion: %w", err)
	}

	return promotion, nil
}

// CreateTestCycleSetting sets the current market cycle for the default vendor
func (tf *TestFixtures) CreateTestCycleSetting(year int, month models.CycleMonth) (*models.MarketCycleSetting, error) {
	setting := &models.MarketCycleSetting{
		VendorID: utils.DefaultVendorID,
		Cycle:    models.MarketCycle{Year: year, Month: month},
	}

	if err := tf.DB.DB.Create(setting).Error; err != nil {
		return nil, fmt.Errorf("failed to create test cycle setting: %w", err)
	}

	return setting, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(customerID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		CustomerID:  customerID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
