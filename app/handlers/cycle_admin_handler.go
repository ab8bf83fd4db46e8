// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/showbook-app/showbook/app/dto"
	businessflow "github.com/showbook-app/showbook/business_flow"
)

// CycleAdminHandlerInterface defines the contract for market cycle administration handlers
type CycleAdminHandlerInterface interface {
	GetCurrentCycle(c fiber.Ctx) error
	AdvanceCycle(c fiber.Ctx) error
	ListSelectionsByCycle(c fiber.Ctx) error
	BulkSetVisibility(c fiber.Ctx) error
	CycleStats(c fiber.Ctx) error
}

// CycleAdminHandler handles market cycle administration HTTP requests
type CycleAdminHandler struct {
	cycleFlow businessflow.CycleAdminFlow
	validator *validator.Validate
}

// NewCycleAdminHandler creates a new cycle administration handler
func NewCycleAdminHandler(cycleFlow businessflow.CycleAdminFlow) *CycleAdminHandler {
	return &CycleAdminHandler{
		cycleFlow: cycleFlow,
		validator: validator.New(),
	}
}

func (h *CycleAdminHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *CycleAdminHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetCurrentCycle returns the configured current market cycle for a vendor
// @Summary Get Current Cycle
// @Description Get the vendor's configured current market cycle. Rep only.
// @Tags Cycles
// @Produce json
// @Param vendor_id query string false "Vendor scope"
// @Success 200 {object} dto.APIResponse{data=dto.GetCurrentCycleResponse} "Current cycle retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/rep/cycles/current [get]
func (h *CycleAdminHandler) GetCurrentCycle(c fiber.Ctx) error {
	if _, ok := c.Locals("rep_id").(uint); !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Rep ID not found in context", "MISSING_REP_ID", nil)
	}

	result, err := h.cycleFlow.GetCurrentCycle(h.createRequestContext(c), c.Query("vendor_id"))
	if err != nil {
		log.Println("Current cycle lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve current cycle", "CYCLE_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// AdvanceCycle sets the vendor's current market cycle
// @Summary Advance Cycle
// @Description Move the vendor's current market cycle forward. Rep only. Working selections are archived lazily on each customer's next activity.
// @Tags Cycles
// @Accept json
// @Produce json
// @Param request body dto.AdvanceCycleRequest true "Target market cycle"
// @Success 200 {object} dto.APIResponse{data=dto.AdvanceCycleResponse} "Cycle advanced"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid cycle"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/rep/cycles/advance [post]
func (h *CycleAdminHandler) AdvanceCycle(c fiber.Ctx) error {
	var req dto.AdvanceCycleRequest
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

	repID, ok := c.Locals("rep_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Rep ID not found in context", "MISSING_REP_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	updatedBy := fmt.Sprintf("rep:%d", repID)

	result, err := h.cycleFlow.AdvanceCycle(h.createRequestContext(c), &req, &updatedBy, metadata)
	if err != nil {
		if businessflow.IsInvalidCycleMonth(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid market cycle", "INVALID_CYCLE", nil)
		}

		log.Println("Cycle advance failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to advance market cycle", "CYCLE_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ListSelectionsByCycle lists snapshots stamped with a cycle across customers
// @Summary List Selections By Cycle
// @Description List all snapshots of a market cycle across customers. Rep only.
// @Tags Cycles
// @Accept json
// @Produce json
// @Param request body dto.ListByCycleRequest true "Cycle and pagination filters"
// @Success 200 {object} dto.APIResponse{data=dto.ListByCycleResponse} "Selections retrieved"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid cycle"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/rep/cycles/selections [post]
func (h *CycleAdminHandler) ListSelectionsByCycle(c fiber.Ctx) error {
	var req dto.ListByCycleRequest
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

	result, err := h.cycleFlow.ListSelectionsByCycle(h.createRequestContext(c), &req)
	if err != nil {
		if businessflow.IsInvalidCycleMonth(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid market cycle", "INVALID_CYCLE", nil)
		}

		log.Println("Cycle selection listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list selections", "SELECTION_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// BulkSetVisibility flips customer visibility on every snapshot of a cycle
// @Summary Bulk Set Visibility
// @Description Set customer visibility on all snapshots of a market cycle. Rep only.
// @Tags Cycles
// @Accept json
// @Produce json
// @Param request body dto.BulkVisibilityRequest true "Cycle and target visibility"
// @Success 200 {object} dto.APIResponse{data=dto.BulkVisibilityResponse} "Bulk update completed"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid cycle"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/rep/cycles/bulk-visibility [post]
func (h *CycleAdminHandler) BulkSetVisibility(c fiber.Ctx) error {
	var req dto.BulkVisibilityRequest
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

	result, err := h.cycleFlow.BulkSetVisibility(h.createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsInvalidCycleMonth(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid market cycle", "INVALID_CYCLE", nil)
		}

		log.Println("Bulk visibility update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update visibility", "BULK_VISIBILITY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// CycleStats returns per-cycle snapshot counts for a vendor
// @Summary Cycle Stats
// @Description Get per-cycle snapshot statistics for a vendor. Rep only.
// @Tags Cycles
// @Produce json
// @Param vendor_id query string false "Vendor scope"
// @Success 200 {object} dto.APIResponse{data=dto.CycleStatsResponse} "Stats retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/rep/cycles/stats [get]
func (h *CycleAdminHandler) CycleStats(c fiber.Ctx) error {
	if _, ok := c.Locals("rep_id").(uint); !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Rep ID not found in context", "MISSING_REP_ID", nil)
	}

	result, err := h.cycleFlow.CycleStats(h.createRequestContext(c), c.Query("vendor_id"))
	if err != nil {
		log.Println("Cycle stats aggregation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to aggregate cycle stats", "CYCLE_STATS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// createRequestContext carries request-scoped values into the business layer
func (h *CycleAdminHandler) createRequestContext(c fiber.Ctx) context.Context {
	return context.WithValue(context.Background(), businessflow.RequestIDKey, c.Get("X-Request-ID"))
}
