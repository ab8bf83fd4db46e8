package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/showbook-app/showbook/config"
)

// CustomerProfile is the directory's view of a customer account, used to
// enrich rep-facing listings with display names.
type CustomerProfile struct {
	CustomerID uint   `json:"customer_id"`
	Name       string `json:"name"`
	Store      string `json:"store"`
	Region     string `json:"region"`
}

// CustomerDirectory resolves customer ids against the account directory
type CustomerDirectory interface {
	// Profile returns the directory profile for a customer, or nil when unknown
	Profile(ctx context.Context, customerID uint) (*CustomerProfile, error)
}

// CustomerDirectoryImpl implements CustomerDirectory against the directory HTTP API
type CustomerDirectoryImpl struct {
	config *config.DirectoryConfig
	client *http.Client
}

// directoryLookupResponse represents the directory API lookup payload
type directoryLookupResponse struct {
	Found   bool            `json:"found"`
	Profile CustomerProfile `json:"profile"`
}

// NewCustomerDirectory creates a new customer directory instance
func NewCustomerDirectory(cfg *config.DirectoryConfig) CustomerDirectory {
	return &CustomerDirectoryImpl{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Profile looks up a single customer id
func (s *CustomerDirectoryImpl) Profile(ctx context.Context, customerID uint) (*CustomerProfile, error) {
	lookupURL := fmt.Sprintf("%s/api/v1/customers/%d", s.config.BaseURL, customerID)
	req, err := http.NewRequestWithContext(ctx, "GET", lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send directory request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directory lookup failed for %d: status %d", customerID, resp.StatusCode)
	}

	var result directoryLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}
	if !result.Found {
		return nil, nil
	}

	profile := result.Profile
	return &profile, nil
}

// MockCustomerDirectory implements CustomerDirectory for testing
type MockCustomerDirectory struct {
	mu       sync.RWMutex
	profiles map[uint]CustomerProfile
}

// NewMockCustomerDirectory creates a mock customer directory
func NewMockCustomerDirectory() *MockCustomerDirectory {
	return &MockCustomerDirectory{
		profiles: make(map[uint]CustomerProfile),
	}
}

// AddProfile seeds the mock directory with a profile
func (m *MockCustomerDirectory) AddProfile(profile CustomerProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[profile.CustomerID] = profile
}

// Profile returns the seeded profile for a customer id, or nil when absent
func (m *MockCustomerDirectory) Profile(_ context.Context, customerID uint) (*CustomerProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, ok := m.profiles[customerID]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}
