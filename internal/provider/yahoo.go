package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/batuaribakir/StockSig/internal/ratelimit"
	"github.com/batuaribakir/StockSig/pkg/model"
)

const (
	yahooChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooSummaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"
)

// YahooProvider implements the Provider interface for Yahoo Finance
// (unofficial API, no key required).
type YahooProvider struct {
	client     *http.Client
	limiter    *ratelimit.Limiter
	rateLimit  int
	chartURL   string
	summaryURL string
}

// NewYahooProvider creates a new Yahoo Finance provider.
func NewYahooProvider(rateLimitPerMin int) *YahooProvider {
	if rateLimitPerMin <= 0 {
		rateLimitPerMin = 30
	}
	return &YahooProvider{
		client:     &http.Client{Timeout: 30 * time.Second},
		limiter:    ratelimit.NewLimiter("yahoo", rateLimitPerMin),
		rateLimit:  rateLimitPerMin,
		chartURL:   yahooChartURL,
		summaryURL: yahooSummaryURL,
	}
}

// Name returns the provider name.
func (p *YahooProvider) Name() string {
	return "yahoo"
}

// IsAvailable always returns true (no API key needed).
func (p *YahooProvider) IsAvailable() bool {
	return true
}

// RateLimit returns the rate limit per minute.
func (p *YahooProvider) RateLimit() int {
	return p.rateLimit
}

// yahooChartResponse represents the Yahoo Finance chart API response.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol string `json:"symbol"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetDailyBars fetches daily OHLCV bars for the past `days` calendar days.
// Rows with any missing quote field are dropped.
func (p *YahooProvider) GetDailyBars(ctx context.Context, symbol string, days int) ([]model.Bar, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days)
	url := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=1d&includePrePost=false",
		p.chartURL, symbol, start.Unix(), end.Unix())

	var data yahooChartResponse
	if err := p.getJSON(ctx, url, &data); err != nil {
		return nil, err
	}

	if data.Chart.Error != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.Chart.Error.Description), Retryable: false}
	}
	if len(data.Chart.Result) == 0 || len(data.Chart.Result[0].Timestamp) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no data available"), Retryable: false}
	}

	result := data.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no quote data"), Retryable: false}
	}
	quote := result.Indicators.Quote[0]

	bars := make([]model.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			break
		}
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil ||
			quote.Close[i] == nil || quote.Volume[i] == nil {
			continue
		}
		bars = append(bars, model.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   *quote.Open[i],
			High:   *quote.High[i],
			Low:    *quote.Low[i],
			Close:  *quote.Close[i],
			Volume: *quote.Volume[i],
		})
	}

	if len(bars) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no complete bars"), Retryable: false}
	}

	return bars, nil
}

// yahooSummaryResponse represents the quoteSummary API response.
type yahooSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price struct {
				LongName           string   `json:"longName"`
				RegularMarketPrice yahooNum `json:"regularMarketPrice"`
				MarketCap          yahooNum `json:"marketCap"`
			} `json:"price"`
			SummaryProfile struct {
				Sector  string `json:"sector"`
				Country string `json:"country"`
			} `json:"summaryProfile"`
			SummaryDetail struct {
				FiftyTwoWeekLow  yahooNum `json:"fiftyTwoWeekLow"`
				FiftyTwoWeekHigh yahooNum `json:"fiftyTwoWeekHigh"`
				TrailingPE       yahooNum `json:"trailingPE"`
				DividendYield    yahooNum `json:"dividendYield"`
			} `json:"summaryDetail"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// yahooNum unwraps Yahoo's {"raw": 1.23, "fmt": "1.23"} number envelopes.
type yahooNum struct {
	Raw float64 `json:"raw"`
}

// GetCompanyInfo fetches fundamental information via the quoteSummary API.
func (p *YahooProvider) GetCompanyInfo(ctx context.Context, symbol string) (*model.CompanyInfo, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?modules=price,summaryProfile,summaryDetail", p.summaryURL, symbol)

	var data yahooSummaryResponse
	if err := p.getJSON(ctx, url, &data); err != nil {
		return nil, err
	}

	if data.QuoteSummary.Error != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("%s", data.QuoteSummary.Error.Description), Retryable: false}
	}
	if len(data.QuoteSummary.Result) == 0 {
		return nil, &ProviderError{Provider: p.Name(), Err: fmt.Errorf("no summary data"), Retryable: false}
	}

	r := data.QuoteSummary.Result[0]
	return &model.CompanyInfo{
		Symbol:        symbol,
		Name:          r.Price.LongName,
		Sector:        r.SummaryProfile.Sector,
		Country:       r.SummaryProfile.Country,
		MarketCap:     r.Price.MarketCap.Raw,
		CurrentPrice:  r.Price.RegularMarketPrice.Raw,
		FiftyTwoLow:   r.SummaryDetail.FiftyTwoWeekLow.Raw,
		FiftyTwoHigh:  r.SummaryDetail.FiftyTwoWeekHigh.Raw,
		PERatio:       r.SummaryDetail.TrailingPE.Raw,
		DividendYield: r.SummaryDetail.DividendYield.Raw,
	}, nil
}

// getJSON performs a rate-limit-aware GET and decodes the JSON body.
func (p *YahooProvider) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := p.client.Do(req)
	if err != nil {
		return &ProviderError{Provider: p.Name(), Err: err, Retryable: true}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		p.limiter.SignalRateLimited()
		return &ProviderError{Provider: p.Name(), Err: fmt.Errorf("rate limited"), Retryable: true}
	}
	if resp.StatusCode != http.StatusOK {
		return &ProviderError{Provider: p.Name(), Err: fmt.Errorf("status %d", resp.StatusCode), Retryable: false}
	}

	p.limiter.ResetBackoff()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
