package provider

import (
	"context"
	"sync"

	"github.com/batuaribakir/StockSig/pkg/model"
)

// CachingProvider wraps a Provider with an in-memory cache for GetDailyBars,
// so repeated analyses of the same symbol hit the network once.
type CachingProvider struct {
	inner   Provider
	cache   map[string][]model.Bar
	mu      sync.Mutex
	maxDays int
}

// NewCachingProvider creates a caching wrapper. maxDays is the span always
// fetched on a cache miss so later, larger requests can be served locally.
func NewCachingProvider(inner Provider, maxDays int) *CachingProvider {
	return &CachingProvider{
		inner:   inner,
		cache:   make(map[string][]model.Bar),
		maxDays: maxDays,
	}
}

func (p *CachingProvider) Name() string      { return p.inner.Name() }
func (p *CachingProvider) IsAvailable() bool { return p.inner.IsAvailable() }
func (p *CachingProvider) RateLimit() int    { return p.inner.RateLimit() }

func (p *CachingProvider) GetCompanyInfo(ctx context.Context, symbol string) (*model.CompanyInfo, error) {
	return p.inner.GetCompanyInfo(ctx, symbol)
}

func (p *CachingProvider) GetDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	p.mu.Lock()
	if cached, ok := p.cache[symbol]; ok {
		p.mu.Unlock()
		if len(cached) >= days {
			return cached[len(cached)-days:], nil
		}
		return cached, nil
	}
	p.mu.Unlock()

	fetchDays := p.maxDays
	if days > fetchDays {
		fetchDays = days
	}

	bars, err := p.inner.GetDailyBars(ctx, symbol, fetchDays)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cache[symbol] = bars
	p.mu.Unlock()

	if len(bars) >= days {
		return bars[len(bars)-days:], nil
	}
	return bars, nil
}
