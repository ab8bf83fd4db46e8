// Package tests contains integration tests for promotion flows
package tests

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/showbook-app/showbook/app/dto"
	businessflow "github.com/showbook-app/showbook/business_flow"
	"github.com/showbook-app/showbook/config"
	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/repository"
	testingutil "github.com/showbook-app/showbook/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPromotionFlow(testDB *testingutil.TestDB) businessflow.PromotionFlow {
	return businessflow.NewPromotionFlow(
		repository.NewPromotionRepository(testDB.DB),
		repository.NewSelectionRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
		nil,
		&config.CacheConfig{},
	)
}

// newCachedPromotionFlow wires the promotion flow against a live redis
// instance so the cached-standing path is exercised. Skips when redis is
// unreachable.
func newCachedPromotionFlow(t *testing.T, testDB *testingutil.TestDB) businessflow.PromotionFlow {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rc := redis.NewClient(&redis.Options{Addr: addr, DB: 9})
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(pingCtx).Err(); err != nil {
		_ = rc.Close()
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = rc.Close() })
	require.NoError(t, rc.FlushDB(context.Background()).Err())

	return businessflow.NewPromotionFlow(
		repository.NewPromotionRepository(testDB.DB),
		repository.NewSelectionRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
		rc,
		&config.CacheConfig{
			Enabled:            true,
			Provider:           "redis",
			RedisPrefix:        "showbook_test:",
			PromotionStatusTTL: time.Minute,
		},
	)
}

func skuTierDTOs() []dto.PromotionTierDTO {
	return []dto.PromotionTierDTO{
		{TierLevel: 1, Threshold: 5, DiscountPercent: 0.30},
		{TierLevel: 2, Threshold: 10, DiscountPercent: 0.50},
	}
}

func TestUpsertPromotion(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newPromotionFlow(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("CreateActivePromotion", func(t *testing.T) {
			resp, err := flow.UpsertPromotion(ctx, &dto.UpsertPromotionRequest{
				Kind:   "sku",
				Tiers:  skuTierDTOs(),
				Title:  "Winter Market Volume Program",
				Active: true,
			}, testMetadata())
			require.NoError(t, err)

			assert.Equal(t, "sku", resp.Promotion.Kind)
			assert.True(t, resp.Promotion.Active)
			require.Len(t, resp.Promotion.Tiers, 2)
			assert.Equal(t, "Winter Market Volume Program", resp.Promotion.Title)
		})

		t.Run("UpsertDeactivatesPredecessor", func(t *testing.T) {
			resp, err := flow.UpsertPromotion(ctx, &dto.UpsertPromotionRequest{
				Kind:   "dollar",
				Tiers:  []dto.PromotionTierDTO{{TierLevel: 1, Threshold: 500, DiscountPercent: 0.20}},
				Active: true,
			}, testMetadata())
			require.NoError(t, err)

			active, err := flow.GetActivePromotion(ctx, "")
			require.NoError(t, err)
			assert.Equal(t, resp.Promotion.UUID, active.Promotion.UUID)
			assert.Equal(t, "dollar", active.Promotion.Kind)

			// History is retained, not deleted
			var total, activeCount int64
			require.NoError(t, testDB.DB.Model(&models.Promotion{}).Count(&total).Error)
			require.NoError(t, testDB.DB.Model(&models.Promotion{}).Where("active").Count(&activeCount).Error)
			assert.Equal(t, int64(2), total)
			assert.Equal(t, int64(1), activeCount)
		})

		t.Run("InvalidKind", func(t *testing.T) {
			_, err := flow.UpsertPromotion(ctx, &dto.UpsertPromotionRequest{
				Kind:  "units",
				Tiers: skuTierDTOs(),
			}, testMetadata())
			requireBusinessCode(t, err, "INVALID_TIER_KIND")
		})

		t.Run("NoTiers", func(t *testing.T) {
			_, err := flow.UpsertPromotion(ctx, &dto.UpsertPromotionRequest{
				Kind: "sku",
			}, testMetadata())
			requireBusinessCode(t, err, "NO_TIERS")
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPromotionStatus(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newPromotionFlow(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("NoActivePromotion", func(t *testing.T) {
			_, err := flow.GetPromotionStatus(ctx, 1, "")
			requireBusinessCode(t, err, "PROMOTION_NOT_FOUND")
		})

		_, err := fixtures.CreateTestPromotion([]models.PromotionTier{
			{TierLevel: 1, Threshold: 2, DiscountPercent: 0.30},
			{TierLevel: 2, Threshold: 5, DiscountPercent: 0.50},
		})
		require.NoError(t, err)

		t.Run("NoWorkingSelectionSuppressesFigures", func(t *testing.T) {
			resp, err := flow.GetPromotionStatus(ctx, 1, "")
			require.NoError(t, err)

			assert.False(t, resp.Calculation.HasSelection)
			assert.Equal(t, "sku", resp.Calculation.Kind)
			assert.Nil(t, resp.Calculation.QualifyingValue)
			assert.Nil(t, resp.Calculation.TotalSavings)
			assert.Empty(t, resp.Calculation.PotentialSavingsByTier)
		})

		t.Run("StandingAgainstWorkingSelection", func(t *testing.T) {
			// Fixture items hold two display-qualifying SKUs
			_, err := fixtures.CreateTestWorkingSelection(1, testingutil.TestItems())
			require.NoError(t, err)

			resp, err := flow.GetPromotionStatus(ctx, 1, "")
			require.NoError(t, err)

			assert.True(t, resp.Calculation.HasSelection)
			require.NotNil(t, resp.Calculation.CurrentSkuCount)
			assert.Equal(t, 2, *resp.Calculation.CurrentSkuCount)
			require.NotNil(t, resp.Calculation.CurrentTierLevel)
			assert.Equal(t, 1, *resp.Calculation.CurrentTierLevel)
			require.NotNil(t, resp.Calculation.CurrentDiscountPercent)
			assert.Equal(t, 0.30, *resp.Calculation.CurrentDiscountPercent)

			require.Len(t, resp.Calculation.PotentialSavingsByTier, 1)
			assert.Equal(t, 2, resp.Calculation.PotentialSavingsByTier[0].TierLevel)
			assert.Equal(t, 3.0, resp.Calculation.PotentialSavingsByTier[0].SkusToReachTier)
		})

		t.Run("ProjectionMatchesStatus", func(t *testing.T) {
			status, err := flow.GetPromotionStatus(ctx, 1, "")
			require.NoError(t, err)
			projection, err := flow.GetPromotionProjection(ctx, 1, "")
			require.NoError(t, err)

			assert.Equal(t, status.Calculation, projection.Calculation)
		})

		t.Run("EmptiedTiersSurfaceAsMisconfigured", func(t *testing.T) {
			err := testDB.DB.Model(&models.Promotion{}).
				Where("active").
				Update("sku_tiers", nil).Error
			require.NoError(t, err)

			_, err = flow.GetPromotionStatus(ctx, 1, "")
			requireBusinessCode(t, err, "PROMOTION_MISCONFIGURED")
		})

		t.Run("BothDimensionsSurfaceAsMisconfigured", func(t *testing.T) {
			// Rows predating the single-dimension constraint can carry both ladders
			require.NoError(t, testDB.DB.Exec(
				"ALTER TABLE promotions DROP CONSTRAINT ck_promotions_single_dimension").Error)

			tiers := `[{"tier_level": 1, "threshold": 2, "discount_percent": 0.30}]`
			require.NoError(t, testDB.DB.Model(&models.Promotion{}).
				Where("active").
				Updates(map[string]any{"sku_tiers": tiers, "dollar_tiers": tiers}).Error)

			_, err := flow.GetPromotionStatus(ctx, 1, "")
			requireBusinessCode(t, err, "PROMOTION_MISCONFIGURED")
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPromotionStatusReflectsTierChanges(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newCachedPromotionFlow(t, testDB)
		ctx := testingutil.CreateTestContext()

		_, err := fixtures.CreateTestPromotion([]models.PromotionTier{
			{TierLevel: 1, Threshold: 2, DiscountPercent: 0.30},
		})
		require.NoError(t, err)
		_, err = fixtures.CreateTestWorkingSelection(1, testingutil.TestItems())
		require.NoError(t, err)

		t.Run("RepeatedReadsServeTheCachedStanding", func(t *testing.T) {
			first, err := flow.GetPromotionStatus(ctx, 1, "")
			require.NoError(t, err)
			require.NotNil(t, first.Calculation.CurrentDiscountPercent)
			assert.Equal(t, 0.30, *first.Calculation.CurrentDiscountPercent)

			second, err := flow.GetPromotionStatus(ctx, 1, "")
			require.NoError(t, err)
			assert.Equal(t, first.Calculation, second.Calculation)
		})

		t.Run("TierChangeSupersedesCachedStanding", func(t *testing.T) {
			_, err := flow.UpsertPromotion(ctx, &dto.UpsertPromotionRequest{
				Kind:   "sku",
				Tiers:  []dto.PromotionTierDTO{{TierLevel: 1, Threshold: 1, DiscountPercent: 0.40}},
				Active: true,
			}, testMetadata())
			require.NoError(t, err)

			status, err := flow.GetPromotionStatus(ctx, 1, "")
			require.NoError(t, err)
			require.NotNil(t, status.Calculation.CurrentDiscountPercent)
			assert.Equal(t, 0.40, *status.Calculation.CurrentDiscountPercent)

			// Current standing and the what-if projection agree after the change
			projection, err := flow.GetPromotionProjection(ctx, 1, "")
			require.NoError(t, err)
			assert.Equal(t, status.Calculation, projection.Calculation)
		})

		return nil
	})
	require.NoError(t, err)
}
