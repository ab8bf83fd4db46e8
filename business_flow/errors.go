// Package businessflow contains the core business logic and use cases for selection and promotion workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Selection-related errors
	ErrSelectionNotFound       = errors.New("selection not found")
	ErrSnapshotNotFound        = errors.New("snapshot not found")
	ErrWorkingSelectionMissing = errors.New("no working selection exists")
	ErrDuplicateItem           = errors.New("item already exists in selection")
	ErrUnknownSku              = errors.New("sku not found in catalog")
	ErrWorkingSelectionExists  = errors.New("a working selection already exists")
	ErrSelectionNotModifiable  = errors.New("selection items cannot be modified")
	ErrInvalidImportMode       = errors.New("invalid import mode")

	// Cycle-related errors
	ErrInvalidCycleMonth  = errors.New("cycle month must be January or June")
	ErrCycleNotConfigured = errors.New("no current market cycle is configured")

	// Promotion-related errors
	ErrPromotionNotFound = errors.New("no active promotion found")
	ErrPromotionNoTiers  = errors.New("promotion has no tiers configured")
	ErrInvalidTierKind   = errors.New("tier kind must be sku or dollar")
)

// DuplicateItemError reports which SKU collided on an add
type DuplicateItemError struct {
	SKU string
}

func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("item %s already exists in selection", e.SKU)
}

func (e *DuplicateItemError) Unwrap() error {
	return ErrDuplicateItem
}

// UnknownSkuError reports which SKU failed catalog resolution
type UnknownSkuError struct {
	SKU string
}

func (e *UnknownSkuError) Error() string {
	return fmt.Sprintf("sku %s not found in catalog", e.SKU)
}

func (e *UnknownSkuError) Unwrap() error {
	return ErrUnknownSku
}

// WorkingSelectionExistsError carries enough of the existing working selection
// for the caller to offer a keep or replace decision.
type WorkingSelectionExistsError struct {
	SelectionID uint
	UUID        string
	Version     int
	Name        *string
}

func (e *WorkingSelectionExistsError) Error() string {
	return fmt.Sprintf("a working selection already exists (id=%d)", e.SelectionID)
}

func (e *WorkingSelectionExistsError) Unwrap() error {
	return ErrWorkingSelectionExists
}

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsSelectionNotFound(err error) bool {
	return errors.Is(err, ErrSelectionNotFound)
}

func IsSnapshotNotFound(err error) bool {
	return errors.Is(err, ErrSnapshotNotFound)
}

func IsWorkingSelectionMissing(err error) bool {
	return errors.Is(err, ErrWorkingSelectionMissing)
}

func IsDuplicateItem(err error) bool {
	return errors.Is(err, ErrDuplicateItem)
}

func IsUnknownSku(err error) bool {
	return errors.Is(err, ErrUnknownSku)
}

func IsWorkingSelectionExists(err error) bool {
	return errors.Is(err, ErrWorkingSelectionExists)
}

func IsSelectionNotModifiable(err error) bool {
	return errors.Is(err, ErrSelectionNotModifiable)
}

func IsInvalidImportMode(err error) bool {
	return errors.Is(err, ErrInvalidImportMode)
}

func IsInvalidCycleMonth(err error) bool {
	return errors.Is(err, ErrInvalidCycleMonth)
}

func IsCycleNotConfigured(err error) bool {
	return errors.Is(err, ErrCycleNotConfigured)
}

func IsPromotionNotFound(err error) bool {
	return errors.Is(err, ErrPromotionNotFound)
}

func IsPromotionNoTiers(err error) bool {
	return errors.Is(err, ErrPromotionNoTiers)
}

func IsInvalidTierKind(err error) bool {
	return errors.Is(err, ErrInvalidTierKind)
}
