// Package tests contains integration tests for snapshot flows
package tests

import (
	"testing"

	"github.com/showbook-app/showbook/app/dto"
	"github.com/showbook-app/showbook/app/services"
	businessflow "github.com/showbook-app/showbook/business_flow"
	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/repository"
	testingutil "github.com/showbook-app/showbook/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSnapshotFlow(testDB *testingutil.TestDB, catalog services.CatalogService) businessflow.SnapshotFlow {
	return businessflow.NewSnapshotFlow(
		repository.NewSelectionRepository(testDB.DB),
		repository.NewMarketCycleSettingRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		catalog,
		testDB.DB,
	)
}

func importRequest(customerID uint, skus ...string) *dto.CreateSnapshotRequest {
	items := make([]dto.WorkingItemInput, 0, len(skus))
	for _, sku := range skus {
		items = append(items, dto.WorkingItemInput{SKU: sku, DisplayQty: 1})
	}
	return &dto.CreateSnapshotRequest{
		CustomerID: customerID,
		Items:      items,
	}
}

func TestCreateSnapshot(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newSnapshotFlow(testDB, seededCatalog())
		ctx := testingutil.CreateTestContext()

		t.Run("VersionsGrowMonotonically", func(t *testing.T) {
			first, err := flow.CreateSnapshot(ctx, importRequest(1, "SOFA-100"), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, 1, first.Selection.Version)

			second, err := flow.CreateSnapshot(ctx, importRequest(1, "SOFA-100", "CHAIR-200"), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, 2, second.Selection.Version)

			// Another customer's versions start from one independently
			other, err := flow.CreateSnapshot(ctx, importRequest(2, "LAMP-300"), testMetadata())
			require.NoError(t, err)
			assert.Equal(t, 1, other.Selection.Version)
		})

		t.Run("NewSnapshotsStartHidden", func(t *testing.T) {
			resp, err := flow.CreateSnapshot(ctx, importRequest(3, "SOFA-100"), testMetadata())
			require.NoError(t, err)
			assert.False(t, resp.Selection.IsVisibleToCustomer)
		})

		t.Run("UnknownSkuFailsWholeImport", func(t *testing.T) {
			req := importRequest(4, "SOFA-100", "GHOST-999", "CHAIR-200")

			_, err := flow.CreateSnapshot(ctx, req, testMetadata())
			requireBusinessCode(t, err, "UNKNOWN_SKU")

			// Nothing was persisted for that customer
			var count int64
			err = testDB.DB.Model(&models.Selection{}).
				Where("customer_id = ?", 4).
				Count(&count).Error
			require.NoError(t, err)
			assert.Zero(t, count)
		})

		t.Run("DuplicateSkuInImport", func(t *testing.T) {
			_, err := flow.CreateSnapshot(ctx, importRequest(4, "SOFA-100", "SOFA-100"), testMetadata())
			requireBusinessCode(t, err, "DUPLICATE_ITEM")
		})

		t.Run("SnapshotStampedWithCurrentCycle", func(t *testing.T) {
			_, err := fixtures.CreateTestCycleSetting(2026, models.CycleMonthJanuary)
			require.NoError(t, err)

			resp, err := flow.CreateSnapshot(ctx, importRequest(5, "LAMP-300"), testMetadata())
			require.NoError(t, err)

			require.NotNil(t, resp.Selection.MarketCycle)
			assert.Equal(t, 2026, resp.Selection.MarketCycle.Year)
			assert.Equal(t, "January", resp.Selection.MarketCycle.Month)
		})

		t.Run("ProvenanceFieldsPersisted", func(t *testing.T) {
			eventID := "highpoint-2026-01"
			year := 2026
			req := importRequest(6, "SOFA-100")
			req.SourceEventID = &eventID
			req.SourceYear = &year
			req.Metadata = map[string]any{"booth": "C-412"}

			resp, err := flow.CreateSnapshot(ctx, req, testMetadata())
			require.NoError(t, err)

			require.NotNil(t, resp.Selection.SourceEventID)
			assert.Equal(t, eventID, *resp.Selection.SourceEventID)
			assert.Equal(t, "C-412", resp.Selection.Metadata["booth"])
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSnapshotListingAndVisibility(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newSnapshotFlow(testDB, seededCatalog())
		ctx := testingutil.CreateTestContext()

		v1, err := fixtures.CreateTestSnapshot(1, 1, testingutil.TestItems())
		require.NoError(t, err)
		v2, err := fixtures.CreateTestSnapshot(1, 2, testingutil.TestItems())
		require.NoError(t, err)

		t.Run("ListNewestFirst", func(t *testing.T) {
			resp, err := flow.ListSnapshots(ctx, 1, "")
			require.NoError(t, err)

			require.Len(t, resp.Snapshots, 2)
			assert.Equal(t, 2, resp.Snapshots[0].Version)
			assert.Equal(t, 1, resp.Snapshots[1].Version)
		})

		t.Run("ActiveSnapshotIsHighestVersion", func(t *testing.T) {
			resp, err := flow.GetActiveSnapshot(ctx, 1, "")
			require.NoError(t, err)

			require.NotNil(t, resp.Selection)
			assert.Equal(t, v2.ID, resp.Selection.ID)
		})

		t.Run("NoSnapshotsForOtherCustomer", func(t *testing.T) {
			resp, err := flow.GetActiveSnapshot(ctx, 42, "")
			require.NoError(t, err)
			assert.Nil(t, resp.Selection)
		})

		t.Run("ToggleVisibility", func(t *testing.T) {
			resp, err := flow.ToggleVisibility(ctx, v1.ID, 1, testMetadata())
			require.NoError(t, err)
			assert.True(t, resp.Selection.IsVisibleToCustomer)

			resp, err = flow.ToggleVisibility(ctx, v1.ID, 1, testMetadata())
			require.NoError(t, err)
			assert.False(t, resp.Selection.IsVisibleToCustomer)
		})

		t.Run("ToggleOnForeignSnapshot", func(t *testing.T) {
			_, err := flow.ToggleVisibility(ctx, v1.ID, 42, testMetadata())
			requireBusinessCode(t, err, "SNAPSHOT_NOT_FOUND")
		})

		t.Run("DeleteSnapshot", func(t *testing.T) {
			resp, err := flow.DeleteSnapshot(ctx, v1.ID, 1, testMetadata())
			require.NoError(t, err)
			assert.True(t, resp.Deleted)

			// Remaining versions keep their numbers
			list, err := flow.ListSnapshots(ctx, 1, "")
			require.NoError(t, err)
			require.Len(t, list.Snapshots, 1)
			assert.Equal(t, 2, list.Snapshots[0].Version)
		})

		t.Run("DeleteOnForeignSnapshot", func(t *testing.T) {
			_, err := flow.DeleteSnapshot(ctx, v2.ID, 42, testMetadata())
			requireBusinessCode(t, err, "SNAPSHOT_NOT_FOUND")
		})

		t.Run("DeleteTwice", func(t *testing.T) {
			_, err := flow.DeleteSnapshot(ctx, v1.ID, 1, testMetadata())
			requireBusinessCode(t, err, "SNAPSHOT_NOT_FOUND")
		})

		return nil
	})
	require.NoError(t, err)
}
