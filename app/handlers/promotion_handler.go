// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/showbook-app/showbook/app/dto"
	businessflow "github.com/showbook-app/showbook/business_flow"
)

// PromotionHandlerInterface defines the contract for promotion handlers
type PromotionHandlerInterface interface {
	UpsertPromotion(c fiber.Ctx) error
	GetActivePromotion(c fiber.Ctx) error
	GetPromotionStatus(c fiber.Ctx) error
	GetPromotionProjection(c fiber.Ctx) error
}

// PromotionHandler handles promotion HTTP requests
type PromotionHandler struct {
	promotionFlow businessflow.PromotionFlow
	validator     *validator.Validate
}

// NewPromotionHandler creates a new promotion handler
func NewPromotionHandler(promotionFlow businessflow.PromotionFlow) *PromotionHandler {
	return &PromotionHandler{
		promotionFlow: promotionFlow,
		validator:     validator.New(),
	}
}

func (h *PromotionHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *PromotionHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// UpsertPromotion creates or replaces the vendor's active promotion
// @Summary Upsert Promotion
// @Description Replace the vendor's active promotion with a new tier ladder. Rep only.
// @Tags Promotions
// @Accept json
// @Produce json
// @Param request body dto.UpsertPromotionRequest true "Promotion tier configuration"
// @Success 200 {object} dto.APIResponse{data=dto.UpsertPromotionResponse} "Promotion stored"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/rep/promotions [put]
func (h *PromotionHandler) UpsertPromotion(c fiber.Ctx) error {
	var req dto.UpsertPromotionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	if _, ok := c.Locals("rep_id").(uint); !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Rep ID not found in context", "MISSING_REP_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.promotionFlow.UpsertPromotion(h.createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsInvalidTierKind(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Tier kind must be sku or dollar", "INVALID_TIER_KIND", nil)
		}
		if businessflow.IsPromotionNoTiers(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one tier is required", "NO_TIERS", nil)
		}

		log.Println("Promotion upsert failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to store promotion", "PROMOTION_UPSERT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetActivePromotion returns the vendor's active promotion configuration
// @Summary Get Active Promotion
// @Description Get the vendor's currently active promotion. Rep only.
// @Tags Promotions
// @Produce json
// @Param vendor_id query string false "Vendor scope"
// @Success 200 {object} dto.APIResponse{data=dto.GetPromotionResponse} "Promotion retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "No active promotion"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/rep/promotions [get]
func (h *PromotionHandler) GetActivePromotion(c fiber.Ctx) error {
	if _, ok := c.Locals("rep_id").(uint); !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Rep ID not found in context", "MISSING_REP_ID", nil)
	}

	result, err := h.promotionFlow.GetActivePromotion(h.createRequestContext(c), c.Query("vendor_id"))
	if err != nil {
		if businessflow.IsPromotionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "No active promotion", "PROMOTION_NOT_FOUND", nil)
		}

		log.Println("Promotion lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve promotion", "PROMOTION_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetPromotionStatus evaluates the customer's current promotion standing
// @Summary Get Promotion Status
// @Description Evaluate the authenticated customer's standing against the active promotion
// @Tags Promotions
// @Produce json
// @Param vendor_id query string false "Vendor scope"
// @Success 200 {object} dto.APIResponse{data=dto.PromotionStatusResponse} "Promotion status retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "No active promotion"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/promotions/status [get]
func (h *PromotionHandler) GetPromotionStatus(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.promotionFlow.GetPromotionStatus(h.createRequestContext(c), customerID, c.Query("vendor_id"))
	if err != nil {
		if businessflow.IsPromotionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "No active promotion", "PROMOTION_NOT_FOUND", nil)
		}

		log.Println("Promotion status evaluation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to evaluate promotion status", "PROMOTION_STATUS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetPromotionProjection evaluates the what-if tier ladder for the customer
// @Summary Get Promotion Projection
// @Description Project the savings the customer would unlock at each higher tier
// @Tags Promotions
// @Produce json
// @Param vendor_id query string false "Vendor scope"
// @Success 200 {object} dto.APIResponse{data=dto.PromotionProjectionResponse} "Promotion projection retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "No active promotion"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/promotions/projection [get]
func (h *PromotionHandler) GetPromotionProjection(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.promotionFlow.GetPromotionProjection(h.createRequestContext(c), customerID, c.Query("vendor_id"))
	if err != nil {
		if businessflow.IsPromotionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "No active promotion", "PROMOTION_NOT_FOUND", nil)
		}

		log.Println("Promotion projection failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to project promotion savings", "PROMOTION_PROJECTION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// createRequestContext carries request-scoped values into the business layer
func (h *PromotionHandler) createRequestContext(c fiber.Ctx) context.Context {
	return context.WithValue(context.Background(), businessflow.RequestIDKey, c.Get("X-Request-ID"))
}
