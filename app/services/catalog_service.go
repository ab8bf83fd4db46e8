// Package services provides external service integrations and technical concerns like catalog lookups and tokens
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/showbook-app/showbook/config"
)

// CatalogItem is the catalog's view of a product. Pricing and attribution on
// stored selections always come from here, never from client input.
type CatalogItem struct {
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Collection string  `json:"collection"`
	Year       int     `json:"year"`
	UnitList   float64 `json:"unit_list"`
}

// CatalogService resolves SKUs against the vendor product catalog
type CatalogService interface {
	// FindItem returns the catalog item for a SKU, or nil when the SKU is unknown
	FindItem(ctx context.Context, sku string) (*CatalogItem, error)
}

// CatalogServiceImpl implements CatalogService against the catalog HTTP API
type CatalogServiceImpl struct {
	config *config.CatalogConfig
	client *http.Client
}

// catalogLookupResponse represents the catalog API lookup payload
type catalogLookupResponse struct {
	Found bool        `json:"found"`
	Item  CatalogItem `json:"item"`
}

// NewCatalogService creates a new catalog service instance
func NewCatalogService(cfg *config.CatalogConfig) CatalogService {
	return &CatalogServiceImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// FindItem looks up a single SKU
func (s *CatalogServiceImpl) FindItem(ctx context.Context, sku string) (*CatalogItem, error) {
	lookupURL := fmt.Sprintf("%s/api/v1/items/%s", s.config.BaseURL, url.PathEscape(sku))
	req, err := http.NewRequestWithContext(ctx, "GET", lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog lookup failed for %s: status %d", sku, resp.StatusCode)
	}

	var result catalogLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}
	if !result.Found {
		return nil, nil
	}

	item := result.Item
	return &item, nil
}

// MockCatalogService implements CatalogService for testing
type MockCatalogService struct {
	mu    sync.RWMutex
	items map[string]CatalogItem

	LookedUp []string
}

// NewMockCatalogService creates a mock catalog service
func NewMockCatalogService() *MockCatalogService {
	return &MockCatalogService{
		items: make(map[string]CatalogItem),
	}
}

// AddItem seeds the mock catalog with an item
func (m *MockCatalogService) AddItem(item CatalogItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.SKU] = item
}

// RemoveItem drops an item from the mock catalog
func (m *MockCatalogService) RemoveItem(sku string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, sku)
}

// FindItem returns the seeded item for a SKU, or nil when absent
func (m *MockCatalogService) FindItem(_ context.Context, sku string) (*CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LookedUp = append(m.LookedUp, sku)
	item, ok := m.items[sku]
	if !ok {
		return nil, nil
	}
	return &item, nil
}
