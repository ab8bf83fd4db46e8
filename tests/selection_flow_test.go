// Package tests contains integration tests for working selection flows
package tests

import (
	"context"
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

// seededCatalog returns a mock catalog holding the fixture SKUs
func seededCatalog() *services.MockCatalogService {
	catalog := services.NewMockCatalogService()
	catalog.AddItem(services.CatalogItem{SKU: "SOFA-100", Name: "Track Arm Sofa", Collection: "Harbor", Year: 2026, UnitList: 1200})
	catalog.AddItem(services.CatalogItem{SKU: "CHAIR-200", Name: "Wing Chair", Collection: "Harbor", Year: 2026, UnitList: 450})
	catalog.AddItem(services.CatalogItem{SKU: "LAMP-300", Name: "Brass Floor Lamp", UnitList: 180})
	return catalog
}

func newSelectionFlow(testDB *testingutil.TestDB, catalog services.CatalogService) businessflow.SelectionFlow {
	return businessflow.NewSelectionFlow(
		repository.NewSelectionRepository(testDB.DB),
		repository.NewMarketCycleSettingRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		catalog,
		testDB.DB,
		nil,
		&config.CacheConfig{},
	)
}

func testMetadata() *businessflow.ClientMetadata {
	return businessflow.NewClientMetadata("127.0.0.1", "Test User Agent")
}

// requireBusinessCode asserts that err carries the given business error code
func requireBusinessCode(t *testing.T, err error, code string) *businessflow.BusinessError {
	t.Helper()
	require.Error(t, err)
	var bizErr *businessflow.BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, code, bizErr.Code)
	return bizErr
}

func TestWorkingSelectionFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newSelectionFlow(testDB, seededCatalog())
		ctx := testingutil.CreateTestContext()

		t.Run("NoWorkingSelectionYet", func(t *testing.T) {
			resp, err := flow.GetWorkingSelection(ctx, 1, "")
			require.NoError(t, err)
			assert.Nil(t, resp.Selection)
			assert.Equal(t, "No working selection exists", resp.Message)
		})

		t.Run("ReplaceCreatesWorkingSelection", func(t *testing.T) {
			req := &dto.ReplaceWorkingItemsRequest{
				Items: []dto.WorkingItemInput{
					{SKU: "SOFA-100", DisplayQty: 1, BackupQty: 2},
					{SKU: "LAMP-300", BackupQty: 4},
				},
			}

			resp, err := flow.ReplaceWorkingItems(ctx, 1, req, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, "working", resp.Selection.Status)
			require.Len(t, resp.Selection.Items, 2)
			// Pricing comes from the catalog, not the caller
			assert.Equal(t, 1200.0, resp.Selection.Items[0].UnitList)
			assert.Equal(t, 3, resp.Selection.Items[0].Qty)
			assert.Equal(t, true, resp.Selection.Metadata[models.MetadataKeyWasModified])
		})

		t.Run("ReplaceWithEmptyListClears", func(t *testing.T) {
			resp, err := flow.ReplaceWorkingItems(ctx, 1, &dto.ReplaceWorkingItemsRequest{Items: []dto.WorkingItemInput{}}, testMetadata())
			require.NoError(t, err)
			assert.Empty(t, resp.Selection.Items)
		})

		t.Run("UnknownSkuRejectsWholeRequest", func(t *testing.T) {
			req := &dto.ReplaceWorkingItemsRequest{
				Items: []dto.WorkingItemInput{
					{SKU: "SOFA-100", DisplayQty: 1},
					{SKU: "GHOST-999", DisplayQty: 1},
				},
			}

			_, err := flow.ReplaceWorkingItems(ctx, 1, req, testMetadata())
			requireBusinessCode(t, err, "UNKNOWN_SKU")
			assert.True(t, businessflow.IsUnknownSku(err))

			// The previous contents are untouched
			resp, err := flow.GetWorkingSelection(ctx, 1, "")
			require.NoError(t, err)
			assert.Empty(t, resp.Selection.Items)
		})

		t.Run("DuplicateSkuWithinRequest", func(t *testing.T) {
			req := &dto.ReplaceWorkingItemsRequest{
				Items: []dto.WorkingItemInput{
					{SKU: "SOFA-100", DisplayQty: 1},
					{SKU: "SOFA-100", DisplayQty: 2},
				},
			}

			_, err := flow.ReplaceWorkingItems(ctx, 1, req, testMetadata())
			requireBusinessCode(t, err, "DUPLICATE_ITEM")
		})

		t.Run("AddItem", func(t *testing.T) {
			resp, err := flow.AddItem(ctx, 1, &dto.AddItemRequest{
				Item: dto.WorkingItemInput{SKU: "CHAIR-200", DisplayQty: 2},
			}, testMetadata())
			require.NoError(t, err)
			require.Len(t, resp.Selection.Items, 1)
			assert.Equal(t, "CHAIR-200", resp.Selection.Items[0].SKU)
		})

		t.Run("AddingExistingSkuIsConflict", func(t *testing.T) {
			_, err := flow.AddItem(ctx, 1, &dto.AddItemRequest{
				Item: dto.WorkingItemInput{SKU: "CHAIR-200", DisplayQty: 1},
			}, testMetadata())
			requireBusinessCode(t, err, "DUPLICATE_ITEM")
			assert.True(t, businessflow.IsDuplicateItem(err))
		})

		t.Run("NewWorkingStampedWithCurrentCycle", func(t *testing.T) {
			_, err := fixtures.CreateTestCycleSetting(2026, models.CycleMonthJune)
			require.NoError(t, err)

			resp, err := flow.AddItem(ctx, 2, &dto.AddItemRequest{
				Item: dto.WorkingItemInput{SKU: "LAMP-300", BackupQty: 1},
			}, testMetadata())
			require.NoError(t, err)

			require.NotNil(t, resp.Selection.MarketCycle)
			assert.Equal(t, 2026, resp.Selection.MarketCycle.Year)
			assert.Equal(t, "June", resp.Selection.MarketCycle.Month)
		})

		t.Run("MutationsAreAudited", func(t *testing.T) {
			var count int64
			err := testDB.DB.Model(&models.AuditLog{}).
				Where("action = ?", models.AuditActionWorkingItemAdded).
				Count(&count).Error
			require.NoError(t, err)
			assert.Greater(t, count, int64(0))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCreateWorkingFromSnapshot(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newSelectionFlow(testDB, seededCatalog())
		ctx := testingutil.CreateTestContext()

		snapshot, err := fixtures.CreateTestSnapshot(1, 1, testingutil.TestItems())
		require.NoError(t, err)

		t.Run("AutoModeCreatesWhenSlotIsEmpty", func(t *testing.T) {
			resp, err := flow.CreateWorkingFromSnapshot(ctx, 1, &dto.CreateWorkingFromSnapshotRequest{
				SnapshotID: snapshot.ID,
			}, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, "working", resp.Selection.Status)
			assert.Len(t, resp.Selection.Items, len(snapshot.Items))
			assert.Equal(t, businessflow.ImportModeAuto, resp.Selection.Metadata[models.MetadataKeyImportMode])
			assert.Equal(t, snapshot.DisplayName(), resp.Selection.Metadata[models.MetadataKeyRestoredFromName])
			assert.Equal(t, false, resp.Selection.Metadata[models.MetadataKeyWasModified])
		})

		t.Run("AutoModeConflictsWhenSlotIsTaken", func(t *testing.T) {
			_, err := flow.CreateWorkingFromSnapshot(ctx, 1, &dto.CreateWorkingFromSnapshotRequest{
				SnapshotID: snapshot.ID,
			}, testMetadata())
			requireBusinessCode(t, err, "WORKING_SELECTION_EXISTS")

			var exists *businessflow.WorkingSelectionExistsError
			require.ErrorAs(t, err, &exists)
			assert.NotZero(t, exists.SelectionID)
		})

		t.Run("ReplaceModeOverwritesInPlace", func(t *testing.T) {
			before, err := flow.GetWorkingSelection(ctx, 1, "")
			require.NoError(t, err)

			name := "Replaced Copy"
			resp, err := flow.CreateWorkingFromSnapshot(ctx, 1, &dto.CreateWorkingFromSnapshotRequest{
				SnapshotID: snapshot.ID,
				Mode:       businessflow.ImportModeReplace,
				Name:       &name,
			}, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, before.Selection.ID, resp.Selection.ID)
			require.NotNil(t, resp.Selection.Name)
			assert.Equal(t, "Replaced Copy", *resp.Selection.Name)
		})

		t.Run("CreateNewModeArchivesExisting", func(t *testing.T) {
			before, err := flow.GetWorkingSelection(ctx, 1, "")
			require.NoError(t, err)

			resp, err := flow.CreateWorkingFromSnapshot(ctx, 1, &dto.CreateWorkingFromSnapshotRequest{
				SnapshotID: snapshot.ID,
				Mode:       businessflow.ImportModeCreateNew,
			}, testMetadata())
			require.NoError(t, err)
			assert.NotEqual(t, before.Selection.ID, resp.Selection.ID)

			var archived models.Selection
			err = testDB.DB.First(&archived, before.Selection.ID).Error
			require.NoError(t, err)
			assert.Equal(t, models.SelectionStatusArchived, archived.Status)
		})

		t.Run("InvalidMode", func(t *testing.T) {
			_, err := flow.CreateWorkingFromSnapshot(ctx, 1, &dto.CreateWorkingFromSnapshotRequest{
				SnapshotID: snapshot.ID,
				Mode:       "merge",
			}, testMetadata())
			requireBusinessCode(t, err, "INVALID_IMPORT_MODE")
		})

		t.Run("ForeignSnapshotLooksLikeMissing", func(t *testing.T) {
			_, err := flow.CreateWorkingFromSnapshot(ctx, 99, &dto.CreateWorkingFromSnapshotRequest{
				SnapshotID: snapshot.ID,
			}, testMetadata())
			requireBusinessCode(t, err, "SNAPSHOT_NOT_FOUND")
		})

		return nil
	})
	require.NoError(t, err)
}

func TestRestoreWorking(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		catalog := seededCatalog()
		flow := newSelectionFlow(testDB, catalog)
		ctx := testingutil.CreateTestContext()

		snapshot, err := fixtures.CreateTestSnapshot(1, 1, testingutil.TestItems())
		require.NoError(t, err)

		t.Run("RestoreRefreshesPricesFromCatalog", func(t *testing.T) {
			// The sofa got a new list price since the snapshot was taken
			catalog.AddItem(services.CatalogItem{SKU: "SOFA-100", Name: "Track Arm Sofa", Collection: "Harbor", Year: 2026, UnitList: 1350})

			resp, err := flow.RestoreWorking(ctx, 1, &dto.RestoreWorkingRequest{SnapshotID: snapshot.ID}, testMetadata())
			require.NoError(t, err)

			require.Len(t, resp.Selection.Items, 3)
			assert.Equal(t, 1350.0, resp.Selection.Items[0].UnitList)
			assert.Equal(t, false, resp.Selection.Metadata[models.MetadataKeyWasModified])
			assert.Equal(t, snapshot.DisplayName(), resp.Selection.Metadata[models.MetadataKeyRestoredFromName])
		})

		t.Run("SnapshotItselfStaysFrozen", func(t *testing.T) {
			var reloaded models.Selection
			err := testDB.DB.First(&reloaded, snapshot.ID).Error
			require.NoError(t, err)

			assert.Equal(t, models.SelectionStatusSnapshot, reloaded.Status)
			assert.Equal(t, 1200.0, reloaded.Items[0].UnitList)
		})

		t.Run("RestoreIsIdempotent", func(t *testing.T) {
			first, err := flow.RestoreWorking(ctx, 1, &dto.RestoreWorkingRequest{SnapshotID: snapshot.ID}, testMetadata())
			require.NoError(t, err)
			second, err := flow.RestoreWorking(ctx, 1, &dto.RestoreWorkingRequest{SnapshotID: snapshot.ID}, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, first.Selection.ID, second.Selection.ID)
			assert.Equal(t, first.Selection.Items, second.Selection.Items)
		})

		t.Run("DroppedSkuKeepsStoredValues", func(t *testing.T) {
			catalog.RemoveItem("LAMP-300")

			resp, err := flow.RestoreWorking(ctx, 1, &dto.RestoreWorkingRequest{SnapshotID: snapshot.ID}, testMetadata())
			require.NoError(t, err)

			idx := -1
			for i, item := range resp.Selection.Items {
				if item.SKU == "LAMP-300" {
					idx = i
				}
			}
			require.GreaterOrEqual(t, idx, 0)
			assert.Equal(t, 180.0, resp.Selection.Items[idx].UnitList)
		})

		t.Run("VendorScopeComesFromSnapshot", func(t *testing.T) {
			resp, err := flow.RestoreWorking(ctx, 1, &dto.RestoreWorkingRequest{SnapshotID: snapshot.ID}, testMetadata())
			require.NoError(t, err)
			assert.Equal(t, utils.DefaultVendorID, resp.Selection.VendorID)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestGetWorkingUnderTransaction(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := repository.NewSelectionRepository(testDB.DB)
		ctx := testingutil.CreateTestContext()

		created, err := fixtures.CreateTestWorkingSelection(1, testingutil.TestItems())
		require.NoError(t, err)

		t.Run("RowLockedInsideTransaction", func(t *testing.T) {
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				row, err := repo.GetWorking(txCtx, 1, utils.DefaultVendorID)
				require.NoError(t, err)
				require.NotNil(t, row)
				assert.Equal(t, created.ID, row.ID)
				return nil
			})
			require.NoError(t, err)
		})

		t.Run("PlainReadOutsideTransaction", func(t *testing.T) {
			row, err := repo.GetWorking(ctx, 1, utils.DefaultVendorID)
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, created.ID, row.ID)
		})

		t.Run("MissingScopeReturnsNil", func(t *testing.T) {
			err := repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				row, err := repo.GetWorking(txCtx, 99, utils.DefaultVendorID)
				require.NoError(t, err)
				assert.Nil(t, row)
				return nil
			})
			require.NoError(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}
