package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/batuaribakir/StockSig/pkg/model"
)

// Default simulation parameters.
const (
	DefaultInitialCapital = 10000.0
	DefaultCommission     = 0.001
)

// successHorizon is the forward distance, in bars, used to classify a trade
// as successful. It is a post-hoc diagnostic only and never feeds back into
// the decision loop.
const successHorizon = 5

// PortfolioRow is the simulated portfolio state at one bar.
type PortfolioRow struct {
	Time     time.Time `json:"time"`
	Cash     float64   `json:"cash"`
	Holdings float64   `json:"holdings"`
	Total    float64   `json:"total"`
	Return   float64   `json:"returns"` // percent change of Total vs prior bar
}

// Report contains the complete backtest results: summary metrics plus the
// full per-bar portfolio and position series for downstream charting.
type Report struct {
	InitialCapital      float64 `json:"initial_capital"`
	FinalValue          float64 `json:"final_value"`
	TotalReturnPct      float64 `json:"total_return_pct"`
	AnnualizedReturnPct float64 `json:"annualized_return_pct"`
	MaxDrawdownPct      float64 `json:"max_drawdown_pct"`
	SharpeRatio         float64 `json:"sharpe_ratio"`

	TotalTrades     int     `json:"total_trades"`
	BuyTrades       int     `json:"buy_trades"`
	SellTrades      int     `json:"sell_trades"`
	BuySuccessRate  float64 `json:"buy_success_rate"`
	SellSuccessRate float64 `json:"sell_success_rate"`

	Portfolio []PortfolioRow `json:"portfolio"`
	Positions []int          `json:"positions"`
}

// Run simulates holding a position driven by the decision series and derives
// return and risk statistics. Decisions must be aligned 1:1 with the bars.
//
// The decision observed at bar t becomes actable at t+1: decisions are
// shifted forward one step before the cumulative position is formed, so no
// simulated trade ever uses information from its own bar. Positions are the
// unbounded cumulative sum of shifted decisions; repeated same-direction
// decisions compound exposure. Callers wanting a position cap can clamp the
// decision series before calling Run.
func Run(bars []model.Bar, decisions []int, initialCapital, commission float64) (*Report, error) {
	if err := model.ValidateBars(bars); err != nil {
		return nil, err
	}
	if len(decisions) != len(bars) {
		return nil, fmt.Errorf("decision series has %d rows, want %d", len(decisions), len(bars))
	}

	n := len(bars)

	// Shift decisions forward one bar; the first bar holds.
	shifted := make([]int, n)
	for i := 1; i < n; i++ {
		shifted[i] = decisions[i-1]
	}

	positions := make([]int, n)
	pos := 0
	for i := 0; i < n; i++ {
		pos += shifted[i]
		positions[i] = pos
	}

	report := &Report{
		InitialCapital: initialCapital,
		Portfolio:      make([]PortfolioRow, n),
		Positions:      positions,
	}

	// Single running ledger: each position change moves cash by the traded
	// notional plus commission. Buys reduce cash, sells increase it.
	var spent float64
	prevPos := 0
	returns := make([]float64, n)
	for i := 0; i < n; i++ {
		delta := positions[i] - prevPos
		prevPos = positions[i]
		spent += float64(delta) * bars[i].Close * (1 + commission)

		row := PortfolioRow{
			Time:     bars[i].Time,
			Cash:     initialCapital - spent,
			Holdings: float64(positions[i]) * bars[i].Close,
		}
		row.Total = row.Cash + row.Holdings

		if i > 0 && report.Portfolio[i-1].Total != 0 {
			row.Return = (row.Total/report.Portfolio[i-1].Total - 1) * 100
		}
		returns[i] = row.Return

		report.Portfolio[i] = row
	}

	final := report.Portfolio[n-1].Total
	report.FinalValue = final
	report.TotalReturnPct = (final/initialCapital - 1) * 100

	periods := float64(n)
	if periods < 1 {
		periods = 1
	}
	if final > 0 && initialCapital > 0 {
		report.AnnualizedReturnPct = (math.Pow(final/initialCapital, 252/periods) - 1) * 100
	}

	report.MaxDrawdownPct = maxDrawdown(report.Portfolio) * 100
	report.SharpeRatio = sharpe(returns)

	classifyTrades(report, bars, positions)

	return report, nil
}

// maxDrawdown returns the largest peak-to-trough decline of the total equity
// series as a fraction of the running peak. Degenerate (non-positive) peaks
// contribute 0.
func maxDrawdown(portfolio []PortfolioRow) float64 {
	var peak, maxDD float64
	for i, row := range portfolio {
		if i == 0 || row.Total > peak {
			peak = row.Total
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - row.Total) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpe annualizes mean/stddev of per-bar returns. Fewer than two
// observations or zero variance yield exactly 0.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(returns)-1))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

// classifyTrades counts position increases as buy trades and decreases as
// sell trades, and scores each against the close five bars ahead. A trade
// too close to the end of the series to be scored counts as a failure.
func classifyTrades(report *Report, bars []model.Bar, positions []int) {
	var buySuccess, sellSuccess int
	prev := 0
	for i, p := range positions {
		delta := p - prev
		prev = p
		if delta == 0 {
			continue
		}
		future := i + successHorizon
		if delta > 0 {
			report.BuyTrades++
			if future < len(bars) && bars[future].Close > bars[i].Close {
				buySuccess++
			}
		} else {
			report.SellTrades++
			if future < len(bars) && bars[future].Close < bars[i].Close {
				sellSuccess++
			}
		}
	}

	report.TotalTrades = report.BuyTrades + report.SellTrades
	if report.BuyTrades > 0 {
		report.BuySuccessRate = float64(buySuccess) / float64(report.BuyTrades) * 100
	}
	if report.SellTrades > 0 {
		report.SellSuccessRate = float64(sellSuccess) / float64(report.SellTrades) * 100
	}
}
