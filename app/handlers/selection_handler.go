// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/showbook-app/showbook/app/dto"
	businessflow "github.com/showbook-app/showbook/business_flow"
)

// SelectionHandlerInterface defines the contract for working selection handlers
type SelectionHandlerInterface interface {
	GetWorkingSelection(c fiber.Ctx) error
	ReplaceWorkingItems(c fiber.Ctx) error
	AddItem(c fiber.Ctx) error
	CreateWorkingFromSnapshot(c fiber.Ctx) error
	RestoreWorking(c fiber.Ctx) error
	CheckMarketCycle(c fiber.Ctx) error
}

// SelectionHandler handles working selection HTTP requests
type SelectionHandler struct {
	selectionFlow businessflow.SelectionFlow
	archivalFlow  businessflow.ArchivalFlow
	validator     *validator.Validate
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(selectionFlow businessflow.SelectionFlow, archivalFlow businessflow.ArchivalFlow) *SelectionHandler {
	return &SelectionHandler{
		selectionFlow: selectionFlow,
		archivalFlow:  archivalFlow,
		validator:     validator.New(),
	}
}

func (h *SelectionHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SelectionHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetWorkingSelection returns the customer's current working selection
// @Summary Get Working Selection
// @Description Get the authenticated customer's mutable working selection
// @Tags Selections
// @Produce json
// @Param vendor_id query string false "Vendor scope"
// @Success 200 {object} dto.APIResponse{data=dto.GetWorkingSelectionResponse} "Working selection retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/selections/working [get]
func (h *SelectionHandler) GetWorkingSelection(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.selectionFlow.GetWorkingSelection(h.createRequestContext(c), customerID, c.Query("vendor_id"))
	if err != nil {
		log.Println("Working selection lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve working selection", "SELECTION_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ReplaceWorkingItems replaces the working selection's items wholesale
// @Summary Replace Working Items
// @Description Replace every item of the working selection. An empty list clears it.
// @Tags Selections
// @Accept json
// @Produce json
// @Param request body dto.ReplaceWorkingItemsRequest true "Replacement items"
// @Success 200 {object} dto.APIResponse{data=dto.ReplaceWorkingItemsResponse} "Working selection updated"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 422 {object} dto.APIResponse "Unknown SKU"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/selections/working/items [put]
func (h *SelectionHandler) ReplaceWorkingItems(c fiber.Ctx) error {
	var req dto.ReplaceWorkingItemsRequest
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

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.selectionFlow.ReplaceWorkingItems(h.createRequestContext(c), customerID, &req, metadata)
	if err != nil {
		if businessflow.IsUnknownSku(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "SKU not found in catalog", "UNKNOWN_SKU", skuDetail(err))
		}
		if businessflow.IsDuplicateItem(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Duplicate SKU in request", "DUPLICATE_ITEM", skuDetail(err))
		}

		log.Println("Working items replace failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update working selection", "SELECTION_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// AddItem merges a single item into the working selection
// @Summary Add Item
// @Description Add one catalog item to the working selection
// @Tags Selections
// @Accept json
// @Produce json
// @Param request body dto.AddItemRequest true "Item to add"
// @Success 200 {object} dto.APIResponse{data=dto.AddItemResponse} "Item added"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 409 {object} dto.APIResponse "SKU already in selection"
// @Failure 422 {object} dto.APIResponse "Unknown SKU"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/selections/working/items [post]
func (h *SelectionHandler) AddItem(c fiber.Ctx) error {
	var req dto.AddItemRequest
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

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.selectionFlow.AddItem(h.createRequestContext(c), customerID, &req, metadata)
	if err != nil {
		if businessflow.IsDuplicateItem(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "SKU already exists in selection", "DUPLICATE_ITEM", skuDetail(err))
		}
		if businessflow.IsUnknownSku(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "SKU not found in catalog", "UNKNOWN_SKU", skuDetail(err))
		}

		log.Println("Item add failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add item", "ITEM_ADD_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// CreateWorkingFromSnapshot clones a snapshot into a new working selection
// @Summary Create Working From Snapshot
// @Description Clone one of the customer's snapshots into a fresh working selection
// @Tags Selections
// @Accept json
// @Produce json
// @Param request body dto.CreateWorkingFromSnapshotRequest true "Snapshot to clone and import mode"
// @Success 201 {object} dto.APIResponse{data=dto.CreateWorkingFromSnapshotResponse} "Working selection created"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Snapshot not found"
// @Failure 409 {object} dto.APIResponse "A working selection already exists"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/selections/working/from-snapshot [post]
func (h *SelectionHandler) CreateWorkingFromSnapshot(c fiber.Ctx) error {
	var req dto.CreateWorkingFromSnapshotRequest
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

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.selectionFlow.CreateWorkingFromSnapshot(h.createRequestContext(c), customerID, &req, metadata)
	if err != nil {
		if businessflow.IsSnapshotNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Snapshot not found", "SNAPSHOT_NOT_FOUND", nil)
		}
		if businessflow.IsWorkingSelectionExists(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "A working selection already exists", "WORKING_SELECTION_EXISTS", conflictDetail(err))
		}
		if businessflow.IsInvalidImportMode(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid import mode", "INVALID_IMPORT_MODE", nil)
		}

		log.Println("Working selection creation from snapshot failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create working selection", "SELECTION_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// RestoreWorking replaces the working selection's items with a snapshot's
// @Summary Restore Working Selection
// @Description Overwrite the working selection's items with those of a snapshot
// @Tags Selections
// @Accept json
// @Produce json
// @Param request body dto.RestoreWorkingRequest true "Snapshot to restore"
// @Success 200 {object} dto.APIResponse{data=dto.RestoreWorkingResponse} "Working selection restored"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Snapshot not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/selections/working/restore [post]
func (h *SelectionHandler) RestoreWorking(c fiber.Ctx) error {
	var req dto.RestoreWorkingRequest
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

	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.selectionFlow.RestoreWorking(h.createRequestContext(c), customerID, &req, metadata)
	if err != nil {
		if businessflow.IsSnapshotNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Snapshot not found", "SNAPSHOT_NOT_FOUND", nil)
		}

		log.Println("Working selection restore failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to restore working selection", "SELECTION_RESTORE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// CheckMarketCycle archives the working selection when its cycle is stale
// @Summary Check Market Cycle
// @Description Archive the working selection if it belongs to an older market cycle. Idempotent.
// @Tags Selections
// @Produce json
// @Param vendor_id query string false "Vendor scope"
// @Success 200 {object} dto.APIResponse{data=dto.MarketCycleCheckResponse} "Cycle check completed"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/selections/cycle-check [post]
func (h *SelectionHandler) CheckMarketCycle(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.archivalFlow.CheckMarketCycle(h.createRequestContext(c), customerID, c.Query("vendor_id"), metadata)
	if err != nil {
		log.Println("Market cycle check failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to check market cycle", "CYCLE_CHECK_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// createRequestContext carries request-scoped values into the business layer
func (h *SelectionHandler) createRequestContext(c fiber.Ctx) context.Context {
	return context.WithValue(context.Background(), businessflow.RequestIDKey, c.Get("X-Request-ID"))
}

// skuDetail extracts the offending SKU from unknown-SKU and duplicate errors
func skuDetail(err error) any {
	var unknown *businessflow.UnknownSkuError
	if errors.As(err, &unknown) {
		return fiber.Map{"sku": unknown.SKU}
	}
	var dup *businessflow.DuplicateItemError
	if errors.As(err, &dup) {
		return fiber.Map{"sku": dup.SKU}
	}
	return nil
}

// conflictDetail surfaces the existing working selection on import conflicts
// so the caller can offer a keep or replace decision.
func conflictDetail(err error) any {
	var exists *businessflow.WorkingSelectionExistsError
	if errors.As(err, &exists) {
		return dto.WorkingSelectionConflictDetail{
			SelectionID: exists.SelectionID,
			UUID:        exists.UUID,
			Version:     exists.Version,
			Name:        exists.Name,
		}
	}
	return nil
}
