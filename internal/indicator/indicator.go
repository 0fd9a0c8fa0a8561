package indicator

import (
	"math"

	"github.com/batuaribakir/StockSig/pkg/model"
)

// rsiEpsilon keeps the RS denominator nonzero when a window has no losses,
// so RSI saturates near 100 instead of failing.
const rsiEpsilon = 1e-10

// Set holds every indicator series, aligned 1:1 with the input bars.
// Missing-column lookups are impossible by construction: downstream stages
// receive this struct, not an open key-value table.
type Set struct {
	SMA20 []float64
	SMA50 []float64
	EMA12 []float64
	EMA26 []float64

	RSI14 []float64

	BBUpper  []float64
	BBMiddle []float64
	BBLower  []float64

	MACD       []float64
	MACDSignal []float64
	MACDHist   []float64
}

// Len returns the number of rows in the set.
func (s *Set) Len() int { return len(s.SMA20) }

// Compute calculates all indicator series for the given bars.
//
// Every rolling window uses minimum-period-1 semantics: leading rows are
// computed from whatever history exists, so the first sma_20 value equals the
// first close and the window widens until it fills. The first window-1 rows
// are therefore statistically thin; that is a documented trade-off, not a bug.
func Compute(bars []model.Bar) (*Set, error) {
	if err := model.ValidateBars(bars); err != nil {
		return nil, err
	}

	close := model.Closes(bars)

	s := &Set{
		SMA20: RollingMean(close, 20),
		SMA50: RollingMean(close, 50),
		EMA12: EMA(close, 12),
		EMA26: EMA(close, 26),
	}

	s.RSI14 = rsi(close, 14)

	s.BBMiddle = RollingMean(close, 20)
	std := RollingStd(close, 20)
	s.BBUpper = make([]float64, len(close))
	s.BBLower = make([]float64, len(close))
	for i := range close {
		s.BBUpper[i] = s.BBMiddle[i] + 2*std[i]
		s.BBLower[i] = s.BBMiddle[i] - 2*std[i]
	}

	// MACD depends on the EMAs computed above.
	s.MACD = make([]float64, len(close))
	for i := range close {
		s.MACD[i] = s.EMA12[i] - s.EMA26[i]
	}
	s.MACDSignal = EMA(s.MACD, 9)
	s.MACDHist = make([]float64, len(close))
	for i := range close {
		s.MACDHist[i] = s.MACD[i] - s.MACDSignal[i]
	}

	return s, nil
}

// RollingMean computes a trailing-window mean with minimum period 1:
// row i averages the last min(i+1, window) values.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		n := window
		if i+1 < window {
			n = i + 1
		} else if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(n)
	}
	return out
}

// RollingStd computes a trailing-window sample standard deviation with
// minimum period 1. A single-observation window yields 0.
func RollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		n := i - lo + 1
		if n < 2 {
			out[i] = 0
			continue
		}
		var sum float64
		for j := lo; j <= i; j++ {
			sum += values[j]
		}
		mean := sum / float64(n)
		var sq float64
		for j := lo; j <= i; j++ {
			d := values[j] - mean
			sq += d * d
		}
		out[i] = math.Sqrt(sq / float64(n-1))
	}
	return out
}

// EMA computes an exponential moving average with the given span,
// seeded at the first value (alpha = 2/(span+1), no warm-up truncation).
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// rsi computes the Relative Strength Index over a trailing window.
// The first bar has no delta and contributes zero gain and zero loss.
func rsi(close []float64, window int) []float64 {
	gains := make([]float64, len(close))
	losses := make([]float64, len(close))
	for i := 1; i < len(close); i++ {
		delta := close[i] - close[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	avgGain := RollingMean(gains, window)
	avgLoss := RollingMean(losses, window)

	out := make([]float64, len(close))
	for i := range close {
		rs := avgGain[i] / (avgLoss[i] + rsiEpsilon)
		out[i] = 100 - (100 / (1 + rs))
	}
	return out
}
