// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/showbook-app/showbook/app/dto"
	businessflow "github.com/showbook-app/showbook/business_flow"
)

// SnapshotHandlerInterface defines the contract for snapshot handlers
type SnapshotHandlerInterface interface {
	CreateSnapshot(c fiber.Ctx) error
	ListSnapshots(c fiber.Ctx) error
	GetActiveSnapshot(c fiber.Ctx) error
	ToggleVisibility(c fiber.Ctx) error
	DeleteSnapshot(c fiber.Ctx) error
}

// SnapshotHandler handles snapshot HTTP requests
type SnapshotHandler struct {
	snapshotFlow businessflow.SnapshotFlow
	validator    *validator.Validate
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(snapshotFlow businessflow.SnapshotFlow) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotFlow: snapshotFlow,
		validator:    validator.New(),
	}
}

func (h *SnapshotHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *SnapshotHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreateSnapshot freezes an imported event order as a new snapshot version
// @Summary Create Snapshot
// @Description Import an event order as an immutable snapshot for a customer. Rep only.
// @Tags Snapshots
// @Accept json
// @Produce json
// @Param request body dto.CreateSnapshotRequest true "Snapshot import data"
// @Success 201 {object} dto.APIResponse{data=dto.CreateSnapshotResponse} "Snapshot created"
// @Failure 400 {object} dto.APIResponse "Validation error or invalid request"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 409 {object} dto.APIResponse "Duplicate SKU in import"
// @Failure 422 {object} dto.APIResponse "Unknown SKU"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/rep/snapshots [post]
func (h *SnapshotHandler) CreateSnapshot(c fiber.Ctx) error {
	var req dto.CreateSnapshotRequest
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

	result, err := h.snapshotFlow.CreateSnapshot(h.createRequestContext(c), &req, metadata)
	if err != nil {
		if businessflow.IsUnknownSku(err) {
			return h.ErrorResponse(c, fiber.StatusUnprocessableEntity, "SKU not found in catalog", "UNKNOWN_SKU", skuDetail(err))
		}
		if businessflow.IsDuplicateItem(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Duplicate SKU in import", "DUPLICATE_ITEM", skuDetail(err))
		}

		log.Println("Snapshot creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create snapshot", "SNAPSHOT_CREATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, result.Message, result)
}

// ListSnapshots lists the customer's snapshots, newest version first
// @Summary List Snapshots
// @Description List the authenticated customer's snapshot versions
// @Tags Snapshots
// @Produce json
// @Param vendor_id query string false "Vendor scope"
// @Success 200 {object} dto.APIResponse{data=dto.ListSnapshotsResponse} "Snapshots retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/snapshots [get]
func (h *SnapshotHandler) ListSnapshots(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.snapshotFlow.ListSnapshots(h.createRequestContext(c), customerID, c.Query("vendor_id"))
	if err != nil {
		log.Println("Snapshot listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list snapshots", "SNAPSHOT_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// GetActiveSnapshot returns the customer's highest-version snapshot
// @Summary Get Active Snapshot
// @Description Get the most recent snapshot version for the authenticated customer
// @Tags Snapshots
// @Produce json
// @Param vendor_id query string false "Vendor scope"
// @Success 200 {object} dto.APIResponse{data=dto.GetActiveSnapshotResponse} "Active snapshot retrieved"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/snapshots/active [get]
func (h *SnapshotHandler) GetActiveSnapshot(c fiber.Ctx) error {
	customerID, ok := c.Locals("customer_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Customer ID not found in context", "MISSING_CUSTOMER_ID", nil)
	}

	result, err := h.snapshotFlow.GetActiveSnapshot(h.createRequestContext(c), customerID, c.Query("vendor_id"))
	if err != nil {
		log.Println("Active snapshot lookup failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve active snapshot", "SNAPSHOT_LOOKUP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// ToggleVisibility flips customer visibility on a snapshot
// @Summary Toggle Snapshot Visibility
// @Description Flip whether the customer can see a snapshot. Rep only.
// @Tags Snapshots
// @Produce json
// @Param id path int true "Snapshot ID"
// @Param customer_id query int true "Owning customer ID"
// @Success 200 {object} dto.APIResponse{data=dto.ToggleVisibilityResponse} "Visibility toggled"
// @Failure 400 {object} dto.APIResponse "Invalid parameters"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Snapshot not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/rep/snapshots/{id}/toggle-visibility [post]
func (h *SnapshotHandler) ToggleVisibility(c fiber.Ctx) error {
	if _, ok := c.Locals("rep_id").(uint); !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Rep ID not found in context", "MISSING_REP_ID", nil)
	}

	snapshotID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid snapshot ID", "INVALID_SNAPSHOT_ID", nil)
	}
	customerID, err := strconv.ParseUint(c.Query("customer_id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid customer ID", "INVALID_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.snapshotFlow.ToggleVisibility(h.createRequestContext(c), uint(snapshotID), uint(customerID), metadata)
	if err != nil {
		if businessflow.IsSnapshotNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Snapshot not found", "SNAPSHOT_NOT_FOUND", nil)
		}

		log.Println("Snapshot visibility toggle failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to toggle visibility", "VISIBILITY_TOGGLE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// DeleteSnapshot deletes a snapshot version
// @Summary Delete Snapshot
// @Description Delete one snapshot version of a customer. Rep only.
// @Tags Snapshots
// @Produce json
// @Param id path int true "Snapshot ID"
// @Param customer_id query int true "Owning customer ID"
// @Success 200 {object} dto.APIResponse{data=dto.DeleteSnapshotResponse} "Snapshot deleted"
// @Failure 400 {object} dto.APIResponse "Invalid parameters"
// @Failure 401 {object} dto.APIResponse "Unauthorized"
// @Failure 404 {object} dto.APIResponse "Snapshot not found"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/rep/snapshots/{id} [delete]
func (h *SnapshotHandler) DeleteSnapshot(c fiber.Ctx) error {
	if _, ok := c.Locals("rep_id").(uint); !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Rep ID not found in context", "MISSING_REP_ID", nil)
	}

	snapshotID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid snapshot ID", "INVALID_SNAPSHOT_ID", nil)
	}
	customerID, err := strconv.ParseUint(c.Query("customer_id"), 10, 32)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid customer ID", "INVALID_CUSTOMER_ID", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.snapshotFlow.DeleteSnapshot(h.createRequestContext(c), uint(snapshotID), uint(customerID), metadata)
	if err != nil {
		if businessflow.IsSnapshotNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Snapshot not found", "SNAPSHOT_NOT_FOUND", nil)
		}

		log.Println("Snapshot deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete snapshot", "SNAPSHOT_DELETE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, result.Message, result)
}

// createRequestContext carries request-scoped values into the business layer
func (h *SnapshotHandler) createRequestContext(c fiber.Ctx) context.Context {
	return context.WithValue(context.Background(), businessflow.RequestIDKey, c.Get("X-Request-ID"))
}
