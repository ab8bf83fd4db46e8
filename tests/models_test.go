// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"

	"github.com/google/uuid"
	"github.com/showbook-app/showbook/models"
	testingutil "github.com/showbook-app/showbook/testing"
	"github.com/showbook-app/showbook/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectionStatus(t *testing.T) {
	t.Run("ValidStatuses", func(t *testing.T) {
		assert.True(t, models.SelectionStatusWorking.Valid())
		assert.True(t, models.SelectionStatusSnapshot.Valid())
		assert.True(t, models.SelectionStatusArchived.Valid())
		assert.False(t, models.SelectionStatus("draft").Valid())
		assert.False(t, models.SelectionStatus("").Valid())
	})

	t.Run("TableName", func(t *testing.T) {
		selection := &models.Selection{}
		assert.Equal(t, "selections", selection.TableName())
	})

	t.Run("StateChecks", func(t *testing.T) {
		working := &models.Selection{Status: models.SelectionStatusWorking}
		assert.True(t, working.IsWorking())
		assert.True(t, working.CanModifyItems())

		snapshot := &models.Selection{Status: models.SelectionStatusSnapshot}
		assert.True(t, snapshot.IsSnapshot())
		assert.False(t, snapshot.CanModifyItems())

		archived := &models.Selection{Status: models.SelectionStatusArchived}
		assert.False(t, archived.IsWorking())
		assert.False(t, archived.CanModifyItems())
	})
}

func TestSelectionItemNormalize(t *testing.T) {
	t.Run("ClampsNegativeQuantities", func(t *testing.T) {
		item := models.SelectionItem{SKU: "A", UnitList: 100, Qty: -2, DisplayQty: -1, BackupQty: -3}
		item.Normalize()

		assert.Equal(t, 0, item.Qty)
		assert.Equal(t, 0, item.DisplayQty)
		assert.Equal(t, 0, item.BackupQty)
		assert.Equal(t, 0.0, item.ExtendedNet)
	})

	t.Run("NetUnitDefaultsToList", func(t *testing.T) {
		item := models.SelectionItem{SKU: "A", UnitList: 250, Qty: 2}
		item.Normalize()

		assert.Equal(t, 250.0, item.NetUnit)
		assert.Equal(t, 500.0, item.ExtendedNet)
	})

	t.Run("ProgramDiscountDrivesNetUnit", func(t *testing.T) {
		disc := 0.25
		item := models.SelectionItem{SKU: "A", UnitList: 400, Qty: 3, ProgramDisc: &disc}
		item.Normalize()

		assert.Equal(t, 300.0, item.NetUnit)
		assert.Equal(t, 900.0, item.ExtendedNet)
	})

	t.Run("DiscountClampedToUnitInterval", func(t *testing.T) {
		over := 1.5
		item := models.SelectionItem{SKU: "A", UnitList: 100, Qty: 1, ProgramDisc: &over}
		item.Normalize()
		assert.Equal(t, 0.0, item.NetUnit)

		under := -0.5
		item = models.SelectionItem{SKU: "A", UnitList: 100, Qty: 1, ProgramDisc: &under}
		item.Normalize()
		assert.Equal(t, 100.0, item.NetUnit)
	})

	t.Run("QualifiesForDisplay", func(t *testing.T) {
		display := models.SelectionItem{SKU: "A", DisplayQty: 1}
		assert.True(t, display.QualifiesForDisplay())

		backupOnly := models.SelectionItem{SKU: "B", BackupQty: 5}
		assert.False(t, backupOnly.QualifiesForDisplay())
	})
}

func TestSelectionItems(t *testing.T) {
	items := testingutil.TestItems()

	t.Run("TotalExtendedNet", func(t *testing.T) {
		// SOFA-100: 1200 * 3, CHAIR-200: 450 * 0.9 * 2, LAMP-300: 180 * 4
		assert.InDelta(t, 3600.0+810.0+720.0, items.TotalExtendedNet(), 1e-9)
	})

	t.Run("FindBySKU", func(t *testing.T) {
		assert.Equal(t, 0, items.FindBySKU("SOFA-100"))
		assert.Equal(t, 2, items.FindBySKU("LAMP-300"))
		assert.Equal(t, -1, items.FindBySKU("MISSING-999"))
	})
}

func TestSelectionMetadata(t *testing.T) {
	t.Run("GetString", func(t *testing.T) {
		meta := models.SelectionMetadata{
			models.MetadataKeyRestoredFromName: "Market Import v2",
			models.MetadataKeyWasModified:      false,
		}

		name, ok := meta.GetString(models.MetadataKeyRestoredFromName)
		assert.True(t, ok)
		assert.Equal(t, "Market Import v2", name)

		_, ok = meta.GetString(models.MetadataKeyWasModified)
		assert.False(t, ok)

		_, ok = meta.GetString("missing")
		assert.False(t, ok)
	})

	t.Run("NilMapIsSafe", func(t *testing.T) {
		var meta models.SelectionMetadata
		_, ok := meta.GetString("anything")
		assert.False(t, ok)
	})
}

func TestSelectionDisplayName(t *testing.T) {
	name := "June Market Order"
	named := &models.Selection{Name: &name, Version: 3}
	assert.Equal(t, "June Market Order", named.DisplayName())

	year := 2026
	sourced := &models.Selection{SourceYear: &year, Version: 2}
	assert.Equal(t, "Market 2026 v2", sourced.DisplayName())

	bare := &models.Selection{Version: 1}
	assert.Equal(t, "Selection v1", bare.DisplayName())
}

func TestMarketCycle(t *testing.T) {
	t.Run("CycleMonthValidity", func(t *testing.T) {
		assert.True(t, models.CycleMonthJanuary.Valid())
		assert.True(t, models.CycleMonthJune.Valid())
		assert.False(t, models.CycleMonth("March").Valid())
	})

	t.Run("ZeroValueMeansUntagged", func(t *testing.T) {
		var cycle models.MarketCycle
		assert.True(t, cycle.IsZero())

		value, err := cycle.Value()
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("Validity", func(t *testing.T) {
		assert.True(t, models.MarketCycle{Year: 2026, Month: models.CycleMonthJanuary}.Valid())
		assert.False(t, models.MarketCycle{Year: 1999, Month: models.CycleMonthJanuary}.Valid())
		assert.False(t, models.MarketCycle{Year: 2026, Month: "March"}.Valid())
	})

	t.Run("EqualAndKey", func(t *testing.T) {
		a := models.MarketCycle{Year: 2026, Month: models.CycleMonthJune}
		b := models.MarketCycle{Year: 2026, Month: models.CycleMonthJune}
		c := models.MarketCycle{Year: 2027, Month: models.CycleMonthJanuary}

		assert.True(t, a.Equal(b))
		assert.False(t, a.Equal(c))
		assert.Equal(t, "2026-June", a.Key())
	})

	t.Run("Next", func(t *testing.T) {
		january := models.MarketCycle{Year: 2026, Month: models.CycleMonthJanuary}
		assert.Equal(t, models.MarketCycle{Year: 2026, Month: models.CycleMonthJune}, january.Next())

		june := models.MarketCycle{Year: 2026, Month: models.CycleMonthJune}
		assert.Equal(t, models.MarketCycle{Year: 2027, Month: models.CycleMonthJanuary}, june.Next())
	})

	t.Run("TableName", func(t *testing.T) {
		setting := &models.MarketCycleSetting{}
		assert.Equal(t, "market_cycle_settings", setting.TableName())
	})
}

func TestPromotionTierRules(t *testing.T) {
	tiers := []models.PromotionTier{
		{TierLevel: 2, Threshold: 10, DiscountPercent: 0.50},
		{TierLevel: 1, Threshold: 5, DiscountPercent: 0.30},
	}

	t.Run("TiersSortedByThreshold", func(t *testing.T) {
		rules := models.NewSkuTierRules(tiers)
		require.Len(t, rules.Tiers, 2)
		assert.Equal(t, 5.0, rules.Tiers[0].Threshold)
		assert.Equal(t, 10.0, rules.Tiers[1].Threshold)
	})

	t.Run("SingleDimensionExtraction", func(t *testing.T) {
		promotion := &models.Promotion{}
		promotion.SetTierRules(models.NewSkuTierRules(tiers))

		rules, err := promotion.TierRules()
		require.NoError(t, err)
		assert.Equal(t, models.TierKindSKU, rules.Kind)
		assert.Nil(t, promotion.DollarTiers)
	})

	t.Run("SettingOtherDimensionClearsFirst", func(t *testing.T) {
		promotion := &models.Promotion{}
		promotion.SetTierRules(models.NewSkuTierRules(tiers))
		promotion.SetTierRules(models.NewDollarTierRules(tiers))

		rules, err := promotion.TierRules()
		require.NoError(t, err)
		assert.Equal(t, models.TierKindDollar, rules.Kind)
		assert.Nil(t, promotion.SkuTiers)
	})

	t.Run("BothDimensionsIsAmbiguous", func(t *testing.T) {
		promotion := &models.Promotion{
			SkuTiers:    models.PromotionTiers(tiers),
			DollarTiers: models.PromotionTiers(tiers),
		}

		_, err := promotion.TierRules()
		assert.ErrorIs(t, err, models.ErrAmbiguousTierDimension)
	})

	t.Run("NoTiersConfigured", func(t *testing.T) {
		promotion := &models.Promotion{}
		_, err := promotion.TierRules()
		assert.ErrorIs(t, err, models.ErrNoTiersConfigured)
	})

	t.Run("BackupPercentFallsBackToZero", func(t *testing.T) {
		tier := models.PromotionTier{TierLevel: 1, Threshold: 5, DiscountPercent: 0.3}
		assert.Equal(t, 0.0, tier.BackupPercent())

		backup := 0.1
		tier.BackupDiscountPercent = &backup
		assert.Equal(t, 0.1, tier.BackupPercent())
	})

	t.Run("TableName", func(t *testing.T) {
		promotion := &models.Promotion{}
		assert.Equal(t, "promotions", promotion.TableName())
	})
}

func TestSelectionPersistence(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("CreateWorkingSelection", func(t *testing.T) {
			selection, err := fixtures.CreateTestWorkingSelection(1, testingutil.TestItems())
			require.NoError(t, err)

			assert.NotZero(t, selection.ID)
			assert.NotEqual(t, uuid.Nil, selection.UUID)
			assert.Equal(t, models.SelectionStatusWorking, selection.Status)
			assert.Equal(t, utils.DefaultVendorID, selection.VendorID)
			assert.Equal(t, 1, selection.Version)
			assert.False(t, selection.IsVisibleToCustomer)
		})

		t.Run("ItemsRoundTripThroughJSONB", func(t *testing.T) {
			created, err := fixtures.CreateTestWorkingSelection(2, testingutil.TestItems())
			require.NoError(t, err)

			var reloaded models.Selection
			err = testDB.DB.First(&reloaded, created.ID).Error
			require.NoError(t, err)

			require.Len(t, reloaded.Items, 3)
			assert.Equal(t, "SOFA-100", reloaded.Items[0].SKU)
			assert.Equal(t, 1200.0, reloaded.Items[0].UnitList)
			assert.InDelta(t, 3600.0, reloaded.Items[0].ExtendedNet, 1e-9)
			require.NotNil(t, reloaded.Items[1].ProgramDisc)
			assert.Equal(t, 0.1, *reloaded.Items[1].ProgramDisc)
		})

		t.Run("SingleWorkingSelectionPerScope", func(t *testing.T) {
			_, err := fixtures.CreateTestWorkingSelection(3, models.SelectionItems{})
			require.NoError(t, err)

			duplicate := &models.Selection{
				CustomerID: 3,
				VendorID:   utils.DefaultVendorID,
				Status:     models.SelectionStatusWorking,
				Items:      models.SelectionItems{},
			}
			err = testDB.DB.Create(duplicate).Error
			assert.Error(t, err)
		})

		t.Run("MultipleSnapshotsPerScopeAllowed", func(t *testing.T) {
			_, err := fixtures.CreateTestSnapshot(4, 1, testingutil.TestItems())
			require.NoError(t, err)
			_, err = fixtures.CreateTestSnapshot(4, 2, testingutil.TestItems())
			require.NoError(t, err)
		})

		t.Run("MarketCycleStoredAsNullWhenUntagged", func(t *testing.T) {
			created, err := fixtures.CreateTestWorkingSelection(5, models.SelectionItems{})
			require.NoError(t, err)

			var reloaded models.Selection
			err = testDB.DB.First(&reloaded, created.ID).Error
			require.NoError(t, err)
			assert.True(t, reloaded.MarketCycle.IsZero())
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPromotionPersistence(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		tiers := []models.PromotionTier{
			{TierLevel: 1, Threshold: 5, DiscountPercent: 0.30},
		}

		t.Run("CreateActivePromotion", func(t *testing.T) {
			promotion, err := fixtures.CreateTestPromotion(tiers)
			require.NoError(t, err)

			assert.NotZero(t, promotion.ID)
			assert.NotEqual(t, uuid.Nil, promotion.UUID)
			assert.True(t, promotion.Active)
			require.Len(t, promotion.SkuTiers, 1)
		})

		t.Run("SingleActivePromotionPerVendor", func(t *testing.T) {
			second := &models.Promotion{
				VendorID: utils.DefaultVendorID,
				Active:   true,
			}
			second.SetTierRules(models.NewSkuTierRules(tiers))

			err := testDB.DB.Create(second).Error
			assert.Error(t, err)
		})

		t.Run("InactivePromotionsUnlimited", func(t *testing.T) {
			inactive := &models.Promotion{
				VendorID: utils.DefaultVendorID,
				Active:   false,
			}
			inactive.SetTierRules(models.NewSkuTierRules(tiers))

			err := testDB.DB.Create(inactive).Error
			assert.NoError(t, err)
		})

		t.Run("BothTierDimensionsRejectedByCheck", func(t *testing.T) {
			ambiguous := &models.Promotion{
				VendorID:    "other-vendor",
				Active:      false,
				SkuTiers:    models.PromotionTiers(tiers),
				DollarTiers: models.PromotionTiers(tiers),
			}

			err := testDB.DB.Create(ambiguous).Error
			assert.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestMarketCycleSettingPersistence(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("CreateCycleSetting", func(t *testing.T) {
			setting, err := fixtures.CreateTestCycleSetting(2026, models.CycleMonthJanuary)
			require.NoError(t, err)

			assert.NotZero(t, setting.ID)
			assert.Equal(t, 2026, setting.Cycle.Year)
			assert.Equal(t, models.CycleMonthJanuary, setting.Cycle.Month)
		})

		t.Run("OneSettingPerVendor", func(t *testing.T) {
			duplicate := &models.MarketCycleSetting{
				VendorID: utils.DefaultVendorID,
				Cycle:    models.MarketCycle{Year: 2026, Month: models.CycleMonthJune},
			}
			err := testDB.DB.Create(duplicate).Error
			assert.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAuditLogPersistence(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("CreateAuditEntry", func(t *testing.T) {
			customerID := uint(1)
			audit, err := fixtures.CreateTestAuditLog(&customerID, models.AuditActionSnapshotCreated, true)
			require.NoError(t, err)

			assert.NotZero(t, audit.ID)
			assert.Equal(t, models.AuditActionSnapshotCreated, audit.Action)
			require.NotNil(t, audit.Success)
			assert.True(t, *audit.Success)
			assert.Nil(t, audit.ErrorMessage)
		})

		t.Run("FailedEntryCarriesErrorMessage", func(t *testing.T) {
			audit, err := fixtures.CreateTestAuditLog(nil, models.AuditActionCycleAdvanced, false)
			require.NoError(t, err)

			assert.Nil(t, audit.CustomerID)
			require.NotNil(t, audit.ErrorMessage)
		})

		t.Run("TableName", func(t *testing.T) {
			audit := &models.AuditLog{}
			assert.Equal(t, "audit_log", audit.TableName())
		})

		return nil
	})
	require.NoError(t, err)
}
