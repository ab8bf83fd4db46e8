// Package businessflow contains the core business logic and use cases for promotion workflows
package businessflow

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/showbook-app/showbook/app/dto"
	"github.com/showbook-app/showbook/config"
	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/repository"
	"gorm.io/gorm"
)

// PromotionFlow handles promotion configuration and tier calculation
type PromotionFlow interface {
	UpsertPromotion(ctx context.Context, req *dto.UpsertPromotionRequest, metadata *ClientMetadata) (*dto.UpsertPromotionResponse, error)
	GetActivePromotion(ctx context.Context, vendorID string) (*dto.GetPromotionResponse, error)
	GetPromotionStatus(ctx context.Context, customerID uint, vendorID string) (*dto.PromotionStatusResponse, error)
	GetPromotionProjection(ctx context.Context, customerID uint, vendorID string) (*dto.PromotionProjectionResponse, error)
}

// PromotionFlowImpl implements the promotion business flow
type PromotionFlowImpl struct {
	promotionRepo repository.PromotionRepository
	selectionRepo repository.SelectionRepository
	auditRepo     repository.AuditLogRepository
	cache         *promotionStatusCache
	db            *gorm.DB
}

// NewPromotionFlow creates a new promotion flow instance
func NewPromotionFlow(
	promotionRepo repository.PromotionRepository,
	selectionRepo repository.SelectionRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
	rc *redis.Client,
	cacheConfig *config.CacheConfig,
) PromotionFlow {
	return &PromotionFlowImpl{
		promotionRepo: promotionRepo,
		selectionRepo: selectionRepo,
		auditRepo:     auditRepo,
		cache:         newPromotionStatusCache(rc, cacheConfig),
		db:            db,
	}
}

// UpsertPromotion replaces the vendor's active promotion with a new tier
// configuration. The previous active promotion is deactivated, never deleted,
// so the promotion history of past markets stays queryable.
func (s *PromotionFlowImpl) UpsertPromotion(ctx context.Context, req *dto.UpsertPromotionRequest, metadata *ClientMetadata) (*dto.UpsertPromotionResponse, error) {
	vendorID := resolveVendorID(req.VendorID)

	kind := models.TierKind(req.Kind)
	if !kind.Valid() {
		return nil, NewBusinessError("INVALID_TIER_KIND", "Tier kind must be sku or dollar", ErrInvalidTierKind)
	}
	if len(req.Tiers) == 0 {
		return nil, NewBusinessError("NO_TIERS", "At least one tier is required", ErrPromotionNoTiers)
	}

	var rules models.TierRuleSet
	if kind == models.TierKindSKU {
		rules = models.NewSkuTierRules(tiersFromDTOs(req.Tiers))
	} else {
		rules = models.NewDollarTierRules(tiersFromDTOs(req.Tiers))
	}

	promotion := &models.Promotion{
		VendorID: vendorID,
		Active:   req.Active,
		Bullets:  req.Bullets,
	}
	promotion.SetTierRules(rules)
	if req.Title != "" {
		promotion.Title = &req.Title
	}
	if req.Terms != "" {
		promotion.Terms = &req.Terms
	}

	err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if req.Active {
			if err := s.promotionRepo.DeactivateByVendor(txCtx, vendorID); err != nil {
				return err
			}
		}
		return s.promotionRepo.Save(txCtx, promotion)
	})
	if err != nil {
		errMsg := fmt.Sprintf("Promotion upsert failed: %s", err.Error())
		_ = createAuditLog(ctx, s.auditRepo, nil, &vendorID, models.AuditActionPromotionUpserted, errMsg, false, &errMsg, metadata)

		return nil, NewBusinessError("PROMOTION_UPSERT_FAILED", "Failed to store promotion", err)
	}

	// Cached standings are pinned to the promotion UUID they were computed
	// against, so entries for the superseded promotion read as misses from
	// here on without enumerating per-customer keys.
	msg := fmt.Sprintf("Promotion %s upserted with %d %s tiers", promotion.UUID.String(), len(req.Tiers), kind)
	_ = createAuditLog(ctx, s.auditRepo, nil, &vendorID, models.AuditActionPromotionUpserted, msg, true, nil, metadata)

	return &dto.UpsertPromotionResponse{
		Message:   "Promotion stored successfully",
		Promotion: ToPromotionDTO(*promotion),
	}, nil
}

// GetActivePromotion returns the vendor's active promotion
func (s *PromotionFlowImpl) GetActivePromotion(ctx context.Context, vendorID string) (*dto.GetPromotionResponse, error) {
	vendorID = resolveVendorID(vendorID)

	promotion, err := s.promotionRepo.ActiveByVendor(ctx, vendorID)
	if err != nil {
		return nil, NewBusinessError("PROMOTION_LOOKUP_FAILED", "Failed to lookup promotion", err)
	}
	if promotion == nil {
		return nil, NewBusinessError("PROMOTION_NOT_FOUND", "No active promotion", ErrPromotionNotFound)
	}

	return &dto.GetPromotionResponse{
		Message:   "Promotion retrieved successfully",
		Promotion: ToPromotionDTO(*promotion),
	}, nil
}

// GetPromotionStatus evaluates the customer's current standing against the
// vendor's active promotion. Results are cached per scope, pinned to the
// promotion they were computed against; selection mutations invalidate the
// entry and a tier change makes prior entries unreadable.
func (s *PromotionFlowImpl) GetPromotionStatus(ctx context.Context, customerID uint, vendorID string) (*dto.PromotionStatusResponse, error) {
	vendorID = resolveVendorID(vendorID)

	promotion, rules, err := s.activeRules(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	promotionUUID := promotion.UUID.String()
	if calc, ok := s.cache.Get(ctx, promotionUUID, vendorID, customerID); ok {
		return &dto.PromotionStatusResponse{
			Message:     "Promotion status retrieved from cache",
			Calculation: toCalculationDTO(*calc),
		}, nil
	}

	calc, err := s.calculateWith(ctx, customerID, vendorID, rules)
	if err != nil {
		return nil, err
	}

	s.cache.Set(ctx, promotionUUID, vendorID, customerID, *calc)

	return &dto.PromotionStatusResponse{
		Message:     "Promotion status retrieved successfully",
		Calculation: toCalculationDTO(*calc),
	}, nil
}

// GetPromotionProjection evaluates the what-if tier ladder for the customer.
// Projections are never cached so a rep always sees the freshest figures
// while talking a customer through the next tier.
func (s *PromotionFlowImpl) GetPromotionProjection(ctx context.Context, customerID uint, vendorID string) (*dto.PromotionProjectionResponse, error) {
	vendorID = resolveVendorID(vendorID)

	calc, err := s.calculate(ctx, customerID, vendorID)
	if err != nil {
		return nil, err
	}

	return &dto.PromotionProjectionResponse{
		Message:     "Promotion projection retrieved successfully",
		Calculation: toCalculationDTO(*calc),
	}, nil
}

// activeRules loads the vendor's active promotion and extracts its tier rules
func (s *PromotionFlowImpl) activeRules(ctx context.Context, vendorID string) (*models.Promotion, models.TierRuleSet, error) {
	promotion, err := s.promotionRepo.ActiveByVendor(ctx, vendorID)
	if err != nil {
		return nil, models.TierRuleSet{}, NewBusinessError("PROMOTION_LOOKUP_FAILED", "Failed to lookup promotion", err)
	}
	if promotion == nil {
		return nil, models.TierRuleSet{}, NewBusinessError("PROMOTION_NOT_FOUND", "No active promotion", ErrPromotionNotFound)
	}

	rules, err := promotion.TierRules()
	if err != nil {
		return nil, models.TierRuleSet{}, NewBusinessError("PROMOTION_MISCONFIGURED", "Promotion tier configuration is invalid", err)
	}

	return promotion, rules, nil
}

// calculate runs the pure tier calculation against the scope's working selection
func (s *PromotionFlowImpl) calculate(ctx context.Context, customerID uint, vendorID string) (*PromotionCalculation, error) {
	_, rules, err := s.activeRules(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return s.calculateWith(ctx, customerID, vendorID, rules)
}

// calculateWith evaluates an already loaded rule set against the scope's working selection
func (s *PromotionFlowImpl) calculateWith(ctx context.Context, customerID uint, vendorID string, rules models.TierRuleSet) (*PromotionCalculation, error) {
	working, err := s.selectionRepo.GetWorking(ctx, customerID, vendorID)
	if err != nil {
		return nil, NewBusinessError("SELECTION_LOOKUP_FAILED", "Failed to lookup working selection", err)
	}

	var calc PromotionCalculation
	if working == nil {
		calc = NoSelectionCalculation(rules)
	} else {
		calc = CalculatePromotion(rules, working.Items)
	}
	promotionCalculationsTotal.WithLabelValues(string(rules.Kind)).Inc()

	return &calc, nil
}

// toCalculationDTO converts a calculation to its API representation. A
// missing selection suppresses all figures instead of reporting zeros.
func toCalculationDTO(calc PromotionCalculation) dto.PromotionCalculationDTO {
	out := dto.PromotionCalculationDTO{
		HasSelection: calc.HasSelection,
		Kind:         string(calc.Kind),
	}
	if !calc.HasSelection {
		return out
	}

	qualifying := calc.QualifyingValue
	skuCount := calc.CurrentSkuCount
	savings := calc.TotalSavings
	out.QualifyingValue = &qualifying
	out.CurrentSkuCount = &skuCount
	out.TotalSavings = &savings
	out.CurrentTierLevel = calc.CurrentTierLevel()
	if calc.CurrentTier != nil {
		discount := calc.CurrentTier.DiscountPercent
		out.CurrentDiscountPercent = &discount
	}

	for _, projection := range calc.PotentialSavingsByTier {
		out.PotentialSavingsByTier = append(out.PotentialSavingsByTier, dto.TierProjectionDTO{
			TierLevel:                    projection.TierLevel,
			Threshold:                    projection.Threshold,
			DiscountPercent:              projection.DiscountPercent,
			SkusToReachTier:              projection.SkusToReachTier,
			SavingsAtTier:                projection.SavingsAtTier,
			AdditionalSavingsFromCurrent: projection.AdditionalSavingsFromCurrent,
		})
	}

	return out
}
