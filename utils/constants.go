package utils

// ContextKey is the type used for values stored in request contexts.
type ContextKey string

const (
	// CustomerIDKey carries the authenticated customer ID through the request context
	CustomerIDKey ContextKey = "customer_id"

	// RepIDKey carries the authenticated sales rep ID through the request context
	RepIDKey ContextKey = "rep_id"
)

// Vendor scoping constants
const (
	// DefaultVendorID is the vendor scope used when a caller omits the vendor.
	// Single-vendor deployments never pass an explicit vendor ID.
	DefaultVendorID = "default"
)

// Cache key constants
const (
	// PromotionStatusCacheKey is the key prefix for cached promotion tier status per customer
	PromotionStatusCacheKey = "promotion_status"

	// MarketCycleCacheKey is the key prefix for the cached current market cycle per vendor
	MarketCycleCacheKey = "market_cycle"
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)
