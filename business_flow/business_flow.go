// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/showbook-app/showbook/app/dto"
	"github.com/showbook-app/showbook/config"
	"github.com/showbook-app/showbook/models"
	"github.com/showbook-app/showbook/repository"
	"github.com/showbook-app/showbook/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// resolveVendorID falls back to the default vendor scope when the caller omits one
func resolveVendorID(vendorID string) string {
	if vendorID == "" {
		return utils.DefaultVendorID
	}
	return vendorID
}

// redisKey prefixes a cache key with the configured namespace
func redisKey(cfg config.CacheConfig, key string) string {
	return cfg.RedisPrefix + key
}

// createAuditLog persists one audit trail entry. Audit failures are reported
// to the caller but never abort the operation they describe.
func createAuditLog(ctx context.Context, auditRepo repository.AuditLogRepository, customerID *uint, vendorID *string, action, description string, success bool, errorMsg *string, metadata *ClientMetadata) error {
	ipAddress := ""
	userAgent := ""
	if metadata != nil {
		ipAddress = metadata.IPAddress
		userAgent = metadata.UserAgent
	}

	audit := &models.AuditLog{
		CustomerID:   customerID,
		VendorID:     vendorID,
		Action:       action,
		Description:  &description,
		Success:      utils.ToPtr(success),
		IPAddress:    &ipAddress,
		UserAgent:    &userAgent,
		ErrorMessage: errorMsg,
	}

	if metadata != nil && len(metadata.Additional) > 0 {
		if bs, err := json.Marshal(metadata.Additional); err == nil {
			audit.Metadata = bs
		}
	}

	// Extract request ID from context if available
	requestID := ctx.Value(RequestIDKey)
	if requestID != nil {
		requestIDStr, ok := requestID.(string)
		if ok {
			audit.RequestID = &requestIDStr
		}
	}

	if err := auditRepo.Save(ctx, audit); err != nil {
		return err
	}

	return nil
}

// ToMarketCycleDTO converts a market cycle to its API representation, nil when untagged
func ToMarketCycleDTO(cycle models.MarketCycle) *dto.MarketCycleDTO {
	if cycle.IsZero() {
		return nil
	}
	return &dto.MarketCycleDTO{
		Year:  cycle.Year,
		Month: cycle.Month.String(),
	}
}

// ToSelectionItemDTO converts one selection line to its API representation
func ToSelectionItemDTO(item models.SelectionItem) dto.SelectionItemDTO {
	return dto.SelectionItemDTO{
		SKU:           item.SKU,
		Name:          item.Name,
		Collection:    item.Collection,
		Year:          item.Year,
		UnitList:      item.UnitList,
		Qty:           item.Qty,
		DisplayQty:    item.DisplayQty,
		BackupQty:     item.BackupQty,
		ProgramDisc:   item.ProgramDisc,
		NetUnit:       item.NetUnit,
		ExtendedNet:   item.ExtendedNet,
		Notes:         item.Notes,
		Tags:          item.Tags,
		Configuration: item.Configuration,
	}
}

// ToSelectionDTO converts a selection model to its API representation
func ToSelectionDTO(selection models.Selection) dto.SelectionDTO {
	items := make([]dto.SelectionItemDTO, 0, len(selection.Items))
	for _, item := range selection.Items {
		items = append(items, ToSelectionItemDTO(item))
	}

	var updatedAt *string
	if selection.UpdatedAt != nil {
		updatedAt = utils.ToPtr(selection.UpdatedAt.Format(time.RFC3339))
	}

	return dto.SelectionDTO{
		ID:                  selection.ID,
		UUID:                selection.UUID.String(),
		CustomerID:          selection.CustomerID,
		VendorID:            selection.VendorID,
		Status:              selection.Status.String(),
		Version:             selection.Version,
		Name:                selection.Name,
		Items:               items,
		MarketCycle:         ToMarketCycleDTO(selection.MarketCycle),
		SourceEventID:       selection.SourceEventID,
		SourceYear:          selection.SourceYear,
		IsVisibleToCustomer: selection.IsVisibleToCustomer,
		Metadata:            selection.Metadata,
		CreatedAt:           selection.CreatedAt.Format(time.RFC3339),
		UpdatedAt:           updatedAt,
	}
}

// ToPromotionDTO converts a promotion model to its API representation. An
// ambiguous or empty tier configuration yields an empty kind and tier list.
func ToPromotionDTO(promotion models.Promotion) dto.PromotionDTO {
	out := dto.PromotionDTO{
		ID:       promotion.ID,
		UUID:     promotion.UUID.String(),
		VendorID: promotion.VendorID,
		Active:   promotion.Active,
		Bullets:  promotion.Bullets,
	}
	if promotion.Title != nil {
		out.Title = *promotion.Title
	}
	if promotion.Terms != nil {
		out.Terms = *promotion.Terms
	}

	rules, err := promotion.TierRules()
	if err != nil {
		return out
	}
	out.Kind = string(rules.Kind)
	out.Tiers = ToPromotionTierDTOs(rules.Tiers)

	return out
}

// ToPromotionTierDTOs converts a tier ladder to its API representation
func ToPromotionTierDTOs(tiers models.PromotionTiers) []dto.PromotionTierDTO {
	out := make([]dto.PromotionTierDTO, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, dto.PromotionTierDTO{
			TierLevel:             tier.TierLevel,
			Threshold:             tier.Threshold,
			DiscountPercent:       tier.DiscountPercent,
			BackupDiscountPercent: tier.BackupDiscountPercent,
		})
	}
	return out
}

// tiersFromDTOs converts API tier payloads to the model form
func tiersFromDTOs(tiers []dto.PromotionTierDTO) []models.PromotionTier {
	out := make([]models.PromotionTier, 0, len(tiers))
	for _, tier := range tiers {
		out = append(out, models.PromotionTier{
			TierLevel:             tier.TierLevel,
			Threshold:             tier.Threshold,
			DiscountPercent:       tier.DiscountPercent,
			BackupDiscountPercent: tier.BackupDiscountPercent,
		})
	}
	return out
}
