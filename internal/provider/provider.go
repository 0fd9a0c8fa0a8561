package provider

import (
	"context"

	"github.com/batuaribakir/StockSig/pkg/model"
)

// Provider defines the interface for market data providers. Implementations
// must return a cleaned series: strictly increasing timestamps, no rows with
// missing quote fields.
type Provider interface {
	// Name returns the provider name.
	Name() string

	// GetDailyBars fetches daily OHLCV bars covering roughly the given
	// number of calendar days, oldest first.
	GetDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error)

	// GetCompanyInfo fetches fundamental information about the instrument.
	GetCompanyInfo(ctx context.Context, symbol string) (*model.CompanyInfo, error)

	// IsAvailable checks if the provider is usable (has any required key).
	IsAvailable() bool

	// RateLimit returns the allowed requests per minute.
	RateLimit() int
}

// ProviderError represents a provider-specific error.
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// FallbackProvider tries multiple providers in order.
type FallbackProvider struct {
	providers []Provider
}

// NewFallbackProvider creates a fallback provider over the available subset
// of the given providers.
func NewFallbackProvider(providers ...Provider) *FallbackProvider {
	available := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if p.IsAvailable() {
			available = append(available, p)
		}
	}
	return &FallbackProvider{providers: available}
}

// Name returns the combined provider name.
func (f *FallbackProvider) Name() string {
	return "fallback"
}

// GetDailyBars tries each provider in order until one succeeds.
func (f *FallbackProvider) GetDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	var lastErr error
	for _, p := range f.providers {
		bars, err := p.GetDailyBars(ctx, symbol, days)
		if err == nil {
			return bars, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// GetCompanyInfo tries each provider in order until one succeeds.
func (f *FallbackProvider) GetCompanyInfo(ctx context.Context, symbol string) (*model.CompanyInfo, error) {
	var lastErr error
	for _, p := range f.providers {
		info, err := p.GetCompanyInfo(ctx, symbol)
		if err == nil {
			return info, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// IsAvailable returns true if any provider is available.
func (f *FallbackProvider) IsAvailable() bool {
	return len(f.providers) > 0
}

// RateLimit returns the highest rate limit among providers.
func (f *FallbackProvider) RateLimit() int {
	maxRate := 0
	for _, p := range f.providers {
		if p.RateLimit() > maxRate {
			maxRate = p.RateLimit()
		}
	}
	return maxRate
}

// Providers returns the list of underlying providers.
func (f *FallbackProvider) Providers() []Provider {
	return f.providers
}
