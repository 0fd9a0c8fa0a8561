package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/batuaribakir/StockSig/internal/ratelimit"
	"github.com/batuaribakir/StockSig/pkg/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageProvider implements the Provider interface for the Alpha
// Vantage API.
type AlphaVantageProvider struct {
	apiKey    string
	client    *http.Client
	limiter   *ratelimit.Limiter
	rateLimit int
	baseURL   string
}

// NewAlphaVantageProvider creates a new Alpha Vantage provider.
func NewAlphaVantageProvider(apiKey string, rateLimitPerMin int) *AlphaVantageProvider {
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 5
	}
	return &AlphaVantageProvider{
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		limiter:   ratelimit.NewLimiter("alphavantage", rateLimitPerMin),
		rateLimit: rateLimitPerMin,
		baseURL:   alphaVantageBaseURL,
	}
}

// Name returns the provider name.
func (p *AlphaVantageProvider) Name() string {
	return "alphavantage"
}

// IsAvailable checks if the provider has an API key.
func (p *AlphaVantageProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// RateLimit returns the rate limit per minute.
func (p *AlphaVantageProvider) RateLimit() int {
	return p.rateLimit
}

// alphaVantageDailyResponse represents the TIME_SERIES_DAILY response.
type alphaVantageDailyResponse struct {
	TimeSeries map[string]map[string]string `json:"Time Series (Daily)"`
	Note       string                       `json:"Note"` // rate limit message
	Error      string                       `json:"Error Message"`
}

// GetDailyBars fetches daily OHLCV bars via TIME_SERIES_DAILY.
func (p *AlphaVantageProvider) GetDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	outputSize := "compact"
	if days > 100 {
		outputSize = "full"
	}
	url := fmt.Sprintf("%s?function=TIME_SERIES_DAILY&symbol=%s&outputsize=%s&apikey=%s",
		p.baseURL, symbol, outputSize, p.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.limiter.SignalRateLimited()
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}

	p.limiter.ResetBackoff()

	var data alphaVantageDailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if data.Note != "" {
		p.limiter.SignalRateLimited()
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited: %s", data.Note), Retryable: true}
	}
	if data.Error != "" {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.Error), Retryable: false}
	}
	if len(data.TimeSeries) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no data available"), Retryable: false}
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	bars := make([]model.Bar, 0, len(data.TimeSeries))
	for dateStr, values := range data.TimeSeries {
		t, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}
		if t.Before(cutoff) {
			continue
		}

		open, err1 := strconv.ParseFloat(values["1. open"], 64)
		high, err2 := strconv.ParseFloat(values["2. high"], 64)
		low, err3 := strconv.ParseFloat(values["3. low"], 64)
		closePrice, err4 := strconv.ParseFloat(values["4. close"], 64)
		volume, err5 := strconv.ParseInt(values["5. volume"], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}

		bars = append(bars, model.Bar{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	if len(bars) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no bars in range"), Retryable: false}
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})

	return bars, nil
}

// GetCompanyInfo is not supported on the free Alpha Vantage tier.
func (p *AlphaVantageProvider) GetCompanyInfo(ctx context.Context, symbol string) (*model.CompanyInfo, error) {
	return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("company info not supported"), Retryable: false}
}
