package model

import (
	"errors"
	"time"
)

// ErrEmptySeries is returned when an operation requires at least one bar.
var ErrEmptySeries = errors.New("empty bar series")

// Bar represents a single OHLCV observation (daily or coarser).
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// CompanyInfo holds fundamental information about an instrument.
type CompanyInfo struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	Country       string  `json:"country"`
	MarketCap     float64 `json:"market_cap"`
	CurrentPrice  float64 `json:"current_price"`
	FiftyTwoLow   float64 `json:"fifty_two_week_low"`
	FiftyTwoHigh  float64 `json:"fifty_two_week_high"`
	PERatio       float64 `json:"pe_ratio"`
	DividendYield float64 `json:"dividend_yield"`
}

// ValidateBars checks the structural preconditions every pipeline stage
// relies on: a non-empty series with strictly increasing timestamps.
func ValidateBars(bars []Bar) error {
	if len(bars) == 0 {
		return ErrEmptySeries
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return errors.New("bar timestamps must be strictly increasing")
		}
	}
	return nil
}

// Closes extracts the close price series.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high price series.
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low price series.
func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}
