package analysis

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/batuaribakir/StockSig/internal/backtest"
	"github.com/batuaribakir/StockSig/internal/indicator"
	"github.com/batuaribakir/StockSig/internal/pattern"
	"github.com/batuaribakir/StockSig/internal/signal"
	"github.com/batuaribakir/StockSig/pkg/model"
)

// Config holds the full-pipeline parameters.
type Config struct {
	Pattern        pattern.Config
	Weights        signal.Weights
	InitialCapital float64
	Commission     float64

	// PatternProgress, when set, receives pattern-scan progress updates.
	PatternProgress func(done, total int)

	// Logger receives stage-boundary logs; defaults to a no-op logger.
	Logger zerolog.Logger
}

// DefaultConfig returns the standard pipeline parameters.
func DefaultConfig() Config {
	return Config{
		Pattern:        pattern.DefaultConfig(),
		Weights:        signal.DefaultWeights(),
		InitialCapital: backtest.DefaultInitialCapital,
		Commission:     backtest.DefaultCommission,
		Logger:         zerolog.Nop(),
	}
}

// Result bundles the output of every pipeline stage for one run.
type Result struct {
	RunID      uuid.UUID        `json:"run_id"`
	Symbol     string           `json:"symbol"`
	Bars       []model.Bar      `json:"-"`
	Indicators *indicator.Set   `json:"-"`
	Patterns   *pattern.Markers `json:"-"`
	Signals    *signal.Table    `json:"signals"`
	Report     *backtest.Report `json:"performance"`
}

// Run executes the full pipeline over an in-memory bar series. Each stage
// consumes the previous stage's output explicitly; no stage triggers an
// earlier one as a side effect, and a failing stage aborts the whole run.
func Run(symbol string, bars []model.Bar, cfg Config) (*Result, error) {
	if err := model.ValidateBars(bars); err != nil {
		return nil, err
	}

	log := cfg.Logger.With().Str("symbol", symbol).Logger()

	ind, err := indicator.Compute(bars)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("bars", len(bars)).Msg("indicators computed")

	engine := pattern.NewEngine(cfg.Pattern)
	if cfg.PatternProgress != nil {
		engine.SetProgressCallback(cfg.PatternProgress)
	}
	pat, err := engine.Detect(bars)
	if err != nil {
		return nil, err
	}
	log.Debug().Msg("patterns detected")

	table, err := signal.NewGenerator(cfg.Weights).Generate(bars, ind, pat)
	if err != nil {
		return nil, err
	}
	latest := table.Latest()
	log.Debug().
		Float64("composite", latest.Composite).
		Int("decision", latest.Decision).
		Msg("signals generated")

	report, err := backtest.Run(bars, table.Decisions(), cfg.InitialCapital, cfg.Commission)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Float64("final_value", report.FinalValue).
		Float64("max_drawdown_pct", report.MaxDrawdownPct).
		Msg("backtest complete")

	return &Result{
		RunID:      uuid.New(),
		Symbol:     symbol,
		Bars:       bars,
		Indicators: ind,
		Patterns:   pat,
		Signals:    table,
		Report:     report,
	}, nil
}
