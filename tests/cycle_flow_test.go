// Package tests contains integration tests for market cycle administration and archival flows
package tests

import (
	"testing"

	"github.com/showbook-app/showbook/app/dto"
	"github.com/showbook-app/showbook/app/services"
	businessflow "github.com/showbook-app/showbook/business_flow"
	"github.com/showbook-app/showbook/config"
	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/repository"
	testingutil "github.com/showbook-app/showbook/testing"
	"github.com/showbook-app/showbook/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCycleAdminFlow(testDB *testingutil.TestDB, directory services.CustomerDirectory) businessflow.CycleAdminFlow {
	return businessflow.NewCycleAdminFlow(
		repository.NewSelectionRepository(testDB.DB),
		repository.NewMarketCycleSettingRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		directory,
		nil,
		&config.CacheConfig{},
	)
}

func newArchivalFlow(testDB *testingutil.TestDB) businessflow.ArchivalFlow {
	return businessflow.NewArchivalFlow(
		repository.NewSelectionRepository(testDB.DB),
		repository.NewMarketCycleSettingRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
		nil,
		&config.CacheConfig{},
	)
}

// createCycleSnapshot inserts a snapshot stamped with an explicit cycle
func createCycleSnapshot(testDB *testingutil.TestDB, customerID uint, version int, cycle models.MarketCycle, visible bool) (*models.Selection, error) {
	selection := &models.Selection{
		CustomerID:          customerID,
		VendorID:            utils.DefaultVendorID,
		Status:              models.SelectionStatusSnapshot,
		Version:             version,
		Items:               testingutil.TestItems(),
		MarketCycle:         cycle,
		IsVisibleToCustomer: visible,
	}
	if err := testDB.DB.Create(selection).Error; err != nil {
		return nil, err
	}
	return selection, nil
}

func TestAdvanceCycle(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newCycleAdminFlow(testDB, services.NewMockCustomerDirectory())
		ctx := testingutil.CreateTestContext()

		t.Run("NoCycleConfiguredInitially", func(t *testing.T) {
			resp, err := flow.GetCurrentCycle(ctx, "")
			require.NoError(t, err)
			assert.Nil(t, resp.Cycle)
		})

		t.Run("AdvanceSetsCurrentCycle", func(t *testing.T) {
			updatedBy := "rep:7"
			resp, err := flow.AdvanceCycle(ctx, &dto.AdvanceCycleRequest{Year: 2026, Month: "January"}, &updatedBy, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, 2026, resp.Cycle.Year)
			assert.Equal(t, "January", resp.Cycle.Month)

			current, err := flow.GetCurrentCycle(ctx, "")
			require.NoError(t, err)
			require.NotNil(t, current.Cycle)
			assert.Equal(t, "January", current.Cycle.Month)
		})

		t.Run("AdvanceOverwritesPriorCycle", func(t *testing.T) {
			updatedBy := "rep:7"
			_, err := flow.AdvanceCycle(ctx, &dto.AdvanceCycleRequest{Year: 2026, Month: "June"}, &updatedBy, testMetadata())
			require.NoError(t, err)

			// Still exactly one setting row per vendor
			var count int64
			err = testDB.DB.Model(&models.MarketCycleSetting{}).Count(&count).Error
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			var setting models.MarketCycleSetting
			err = testDB.DB.First(&setting).Error
			require.NoError(t, err)
			assert.Equal(t, models.CycleMonthJune, setting.Cycle.Month)
			require.NotNil(t, setting.UpdatedBy)
			assert.Equal(t, "rep:7", *setting.UpdatedBy)
		})

		t.Run("InvalidMonthRejected", func(t *testing.T) {
			_, err := flow.AdvanceCycle(ctx, &dto.AdvanceCycleRequest{Year: 2026, Month: "March"}, nil, testMetadata())
			requireBusinessCode(t, err, "INVALID_CYCLE")
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCheckMarketCycle(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newArchivalFlow(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("NoCycleConfigured", func(t *testing.T) {
			resp, err := flow.CheckMarketCycle(ctx, 1, "", testMetadata())
			require.NoError(t, err)
			assert.False(t, resp.NeedsArchive)
		})

		_, err := fixtures.CreateTestCycleSetting(2026, models.CycleMonthJune)
		require.NoError(t, err)

		t.Run("NoWorkingSelection", func(t *testing.T) {
			resp, err := flow.CheckMarketCycle(ctx, 1, "", testMetadata())
			require.NoError(t, err)
			assert.False(t, resp.NeedsArchive)
			require.NotNil(t, resp.TargetCycle)
			assert.Equal(t, "June", resp.TargetCycle.Month)
		})

		t.Run("UntaggedWorkingSelectionLeftAlone", func(t *testing.T) {
			_, err := fixtures.CreateTestWorkingSelection(2, testingutil.TestItems())
			require.NoError(t, err)

			resp, err := flow.CheckMarketCycle(ctx, 2, "", testMetadata())
			require.NoError(t, err)
			assert.False(t, resp.NeedsArchive)
		})

		t.Run("StaleWorkingSelectionArchived", func(t *testing.T) {
			stale := &models.Selection{
				CustomerID:  3,
				VendorID:    utils.DefaultVendorID,
				Status:      models.SelectionStatusWorking,
				Items:       testingutil.TestItems(),
				MarketCycle: models.MarketCycle{Year: 2026, Month: models.CycleMonthJanuary},
			}
			require.NoError(t, testDB.DB.Create(stale).Error)

			resp, err := flow.CheckMarketCycle(ctx, 3, "", testMetadata())
			require.NoError(t, err)
			assert.True(t, resp.NeedsArchive)
			require.NotNil(t, resp.ArchivedID)
			assert.Equal(t, stale.ID, *resp.ArchivedID)
			require.NotNil(t, resp.ArchivedName)

			var archived models.Selection
			require.NoError(t, testDB.DB.First(&archived, stale.ID).Error)
			assert.Equal(t, models.SelectionStatusArchived, archived.Status)
		})

		t.Run("SecondCheckIsNoOp", func(t *testing.T) {
			resp, err := flow.CheckMarketCycle(ctx, 3, "", testMetadata())
			require.NoError(t, err)
			assert.False(t, resp.NeedsArchive)
			assert.Nil(t, resp.ArchivedID)
		})

		t.Run("CurrentCycleWorkingSelectionKept", func(t *testing.T) {
			current := &models.Selection{
				CustomerID:  4,
				VendorID:    utils.DefaultVendorID,
				Status:      models.SelectionStatusWorking,
				Items:       models.SelectionItems{},
				MarketCycle: models.MarketCycle{Year: 2026, Month: models.CycleMonthJune},
			}
			require.NoError(t, testDB.DB.Create(current).Error)

			resp, err := flow.CheckMarketCycle(ctx, 4, "", testMetadata())
			require.NoError(t, err)
			assert.False(t, resp.NeedsArchive)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCycleReviewOperations(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		directory := services.NewMockCustomerDirectory()
		directory.AddProfile(services.CustomerProfile{CustomerID: 1, Name: "Harbor Home Furnishings", Store: "Asheville"})
		directory.AddProfile(services.CustomerProfile{CustomerID: 2, Name: "Piedmont Interiors", Store: "Greensboro"})
		flow := newCycleAdminFlow(testDB, directory)
		ctx := testingutil.CreateTestContext()

		january := models.MarketCycle{Year: 2026, Month: models.CycleMonthJanuary}
		june := models.MarketCycle{Year: 2026, Month: models.CycleMonthJune}

		_, err := createCycleSnapshot(testDB, 1, 1, january, false)
		require.NoError(t, err)
		_, err = createCycleSnapshot(testDB, 2, 1, january, true)
		require.NoError(t, err)
		_, err = createCycleSnapshot(testDB, 3, 1, june, false)
		require.NoError(t, err)

		t.Run("ListSelectionsByCycle", func(t *testing.T) {
			resp, err := flow.ListSelectionsByCycle(ctx, &dto.ListByCycleRequest{Year: 2026, Month: "January"})
			require.NoError(t, err)

			assert.Equal(t, int64(2), resp.Total)
			require.Len(t, resp.Selections, 2)
			assert.Equal(t, uint(1), resp.Selections[0].CustomerID)
			assert.Equal(t, uint(2), resp.Selections[1].CustomerID)

			// Listings are enriched with directory display names
			assert.Equal(t, "Harbor Home Furnishings", resp.CustomerNames[1])
			assert.Equal(t, "Piedmont Interiors", resp.CustomerNames[2])
		})

		t.Run("ListOnlyVisible", func(t *testing.T) {
			visible := true
			resp, err := flow.ListSelectionsByCycle(ctx, &dto.ListByCycleRequest{Year: 2026, Month: "January", OnlyVisible: &visible})
			require.NoError(t, err)

			assert.Equal(t, int64(1), resp.Total)
			require.Len(t, resp.Selections, 1)
			assert.Equal(t, uint(2), resp.Selections[0].CustomerID)
		})

		t.Run("ListInvalidCycle", func(t *testing.T) {
			_, err := flow.ListSelectionsByCycle(ctx, &dto.ListByCycleRequest{Year: 2026, Month: "March"})
			requireBusinessCode(t, err, "INVALID_CYCLE")
		})

		t.Run("BulkSetVisibility", func(t *testing.T) {
			resp, err := flow.BulkSetVisibility(ctx, &dto.BulkVisibilityRequest{Year: 2026, Month: "January", Visible: true}, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, 1, resp.Changed)
			assert.Equal(t, 1, resp.Skipped)
			assert.Equal(t, 0, resp.Failed)
			assert.Equal(t, 2, resp.Total)

			// The June snapshot is untouched
			var juneRow models.Selection
			require.NoError(t, testDB.DB.Where("customer_id = ?", 3).First(&juneRow).Error)
			assert.False(t, juneRow.IsVisibleToCustomer)
		})

		t.Run("BulkVisibilityIsIdempotent", func(t *testing.T) {
			resp, err := flow.BulkSetVisibility(ctx, &dto.BulkVisibilityRequest{Year: 2026, Month: "January", Visible: true}, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, 0, resp.Changed)
			assert.Equal(t, 2, resp.Skipped)
		})

		t.Run("CycleStats", func(t *testing.T) {
			resp, err := flow.CycleStats(ctx, "")
			require.NoError(t, err)

			require.Len(t, resp.Stats, 2)
			byKey := map[string]dto.CycleStatsEntry{}
			for _, entry := range resp.Stats {
				byKey[entry.Cycle.Month] = entry
			}

			assert.Equal(t, int64(2), byKey["January"].Total)
			assert.Equal(t, int64(2), byKey["January"].Visible)
			assert.Equal(t, int64(1), byKey["June"].Total)
			assert.Equal(t, int64(0), byKey["June"].Visible)
		})

		return nil
	})
	require.NoError(t, err)
}
