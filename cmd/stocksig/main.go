package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/batuaribakir/StockSig/internal/analysis"
	"github.com/batuaribakir/StockSig/internal/backtest"
	"github.com/batuaribakir/StockSig/internal/config"
	"github.com/batuaribakir/StockSig/internal/logging"
	"github.com/batuaribakir/StockSig/internal/pattern"
	"github.com/batuaribakir/StockSig/internal/provider"
	"github.com/batuaribakir/StockSig/internal/recorder"
	"github.com/batuaribakir/StockSig/pkg/model"
)

var (
	cfgFile     string
	days        int
	capital     float64
	commission  float64
	window      int
	explainDate string
	format      string
	recordPath  string
	showInfo    bool
	verbose     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stocksig SYMBOL",
		Short: "Technical analysis, signal fusion and backtesting for a single instrument",
		Long: `StockSig computes technical indicators and chart patterns over daily OHLCV
bars, fuses them into a weighted composite trading signal, and evaluates that
signal with a look-ahead-safe historical simulation.

Examples:
  stocksig AAPL --days 365
  stocksig MSFT --explain 2025-06-02
  stocksig GOOGL --capital 50000 --commission 0.0005 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: run,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "config.yaml", "config file path")
	rootCmd.Flags().IntVar(&days, "days", 365, "calendar days of history to analyze")
	rootCmd.Flags().Float64Var(&capital, "capital", 0, "initial capital (overrides config)")
	rootCmd.Flags().Float64Var(&commission, "commission", -1, "commission rate per trade (overrides config)")
	rootCmd.Flags().IntVar(&window, "window", 0, "pattern detection half-window (overrides config)")
	rootCmd.Flags().StringVar(&explainDate, "explain", "", "explain the signal for a date (YYYY-MM-DD, empty = latest)")
	rootCmd.Flags().StringVar(&format, "format", "table", "output format: table, json")
	rootCmd.Flags().StringVar(&recordPath, "record", "", "record the run to a SQLite database at this path")
	rootCmd.Flags().BoolVar(&showInfo, "info", false, "show company information")
	rootCmd.Flags().BoolVar(&verbose, "verbose", false, "show detailed output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	symbol := strings.ToUpper(args[0])

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if capital > 0 {
		cfg.Backtest.InitialCapital = capital
	}
	if commission >= 0 {
		cfg.Backtest.Commission = commission
	}
	if window > 0 {
		cfg.Analysis.PatternWindow = window
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logging.NewLogger(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn().Msg("interrupted")
		cancel()
	}()

	// Providers with fallback: Alpha Vantage when a key is set, Yahoo always.
	providers := []provider.Provider{
		provider.NewAlphaVantageProvider(cfg.API.AlphaVantage.Key, cfg.API.AlphaVantage.RateLimit),
		provider.NewYahooProvider(cfg.API.Yahoo.RateLimit),
	}
	src := provider.NewCachingProvider(provider.NewFallbackProvider(providers...), days)

	if showInfo {
		info, err := src.GetCompanyInfo(ctx, symbol)
		if err != nil {
			log.Warn().Err(err).Msg("company info unavailable")
		} else {
			printCompanyInfo(info)
		}
	}

	log.Info().Str("symbol", symbol).Int("days", days).Msg("fetching daily bars")
	bars, err := src.GetDailyBars(ctx, symbol, days)
	if err != nil {
		return fmt.Errorf("fetching bars: %w", err)
	}
	log.Info().Int("bars", len(bars)).Msg("data loaded")

	pipelineCfg := analysis.Config{
		Pattern: pattern.Config{
			Window:      cfg.Analysis.PatternWindow,
			SRWindow:    cfg.Analysis.SRWindow,
			SRThreshold: cfg.Analysis.SRThreshold,
		},
		Weights:        cfg.Analysis.Weights,
		InitialCapital: cfg.Backtest.InitialCapital,
		Commission:     cfg.Backtest.Commission,
		Logger:         log,
	}

	var bar *progressbar.ProgressBar
	if format == "table" {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Scanning patterns"),
		)
		pipelineCfg.PatternProgress = func(done, total int) {
			bar.ChangeMax(total)
			bar.Set(done)
		}
	}

	result, err := analysis.Run(symbol, bars, pipelineCfg)
	if err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if bar != nil {
		bar.Finish()
		fmt.Println()
	}

	if recordPath != "" {
		rec, err := recorder.NewSQLiteRecorder(recordPath)
		if err != nil {
			return fmt.Errorf("opening recorder: %w", err)
		}
		defer rec.Close()
		if err := rec.RecordRun(result); err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
		log.Info().Str("run_id", result.RunID.String()).Str("path", recordPath).Msg("run recorded")
	}

	if format == "json" {
		return outputJSON(result)
	}
	return outputTable(result, explainDate, cmd.Flags().Changed("explain"))
}

func outputJSON(result *analysis.Result) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputTable(result *analysis.Result, explainDate string, explainRequested bool) error {
	printIndicatorTail(result)
	printPerformance(result.Report)

	latest := result.Signals.Latest()
	label := "HOLD"
	switch latest.Decision {
	case 1:
		label = "BUY"
	case -1:
		label = "SELL"
	}
	fmt.Printf("\nLatest signal: %s (score: %.2f) at %s\n",
		label, latest.Composite, latest.Time.Format("2006-01-02"))

	if explainRequested || explainDate != "" {
		exp, err := result.Signals.Explain(explainDate)
		if err != nil {
			return err
		}
		fmt.Printf("\n--- Signal Explanation for %s ---\n", exp.Date)
		expTable := tablewriter.NewTable(os.Stdout,
			tablewriter.WithHeader([]string{"Component", "Assessment"}),
		)
		expTable.Append([]string{"Moving Averages", exp.MA.String()})
		expTable.Append([]string{"MACD", exp.MACD.String()})
		expTable.Append([]string{"RSI", exp.RSI.String()})
		expTable.Append([]string{"Bollinger Bands", exp.Bollinger.String()})
		expTable.Append([]string{"Chart Patterns", exp.Patterns.String()})
		expTable.Append([]string{"Support/Resistance", exp.SR.String()})
		expTable.Render()
		fmt.Printf("Composite score: %.2f -> %s\n", exp.Composite, exp.Signal)
	}
	return nil
}

func printIndicatorTail(result *analysis.Result) {
	fmt.Println("\n--- Technical Indicators (last 5 bars) ---")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Date", "Close", "SMA20", "RSI14", "BB Upper", "BB Middle", "BB Lower"}),
	)

	n := len(result.Bars)
	start := n - 5
	if start < 0 {
		start = 0
	}
	for i := start; i < n; i++ {
		table.Append([]string{
			result.Bars[i].Time.Format("2006-01-02"),
			fmt.Sprintf("%.2f", result.Bars[i].Close),
			fmt.Sprintf("%.2f", result.Indicators.SMA20[i]),
			fmt.Sprintf("%.1f", result.Indicators.RSI14[i]),
			fmt.Sprintf("%.2f", result.Indicators.BBUpper[i]),
			fmt.Sprintf("%.2f", result.Indicators.BBMiddle[i]),
			fmt.Sprintf("%.2f", result.Indicators.BBLower[i]),
		})
	}
	table.Render()
}

func printPerformance(report *backtest.Report) {
	fmt.Println("\n--- Backtest Performance ---")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Metric", "Value"}),
	)
	table.Append([]string{"Initial Capital", fmt.Sprintf("$%.2f", report.InitialCapital)})
	table.Append([]string{"Final Value", fmt.Sprintf("$%.2f", report.FinalValue)})
	table.Append([]string{"Total Return", fmt.Sprintf("%.2f%%", report.TotalReturnPct)})
	table.Append([]string{"Annualized Return", fmt.Sprintf("%.2f%%", report.AnnualizedReturnPct)})
	table.Append([]string{"Max Drawdown", fmt.Sprintf("%.2f%%", report.MaxDrawdownPct)})
	table.Append([]string{"Sharpe Ratio", fmt.Sprintf("%.2f", report.SharpeRatio)})
	table.Append([]string{"Total Trades", fmt.Sprintf("%d", report.TotalTrades)})
	table.Append([]string{"Buy / Sell Trades", fmt.Sprintf("%d / %d", report.BuyTrades, report.SellTrades)})
	table.Append([]string{"Buy Success Rate", fmt.Sprintf("%.1f%%", report.BuySuccessRate)})
	table.Append([]string{"Sell Success Rate", fmt.Sprintf("%.1f%%", report.SellSuccessRate)})
	table.Render()
}

func printCompanyInfo(info *model.CompanyInfo) {
	fmt.Println("\n--- Company Information ---")
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Field", "Value"}),
	)
	table.Append([]string{"Name", info.Name})
	table.Append([]string{"Sector", info.Sector})
	table.Append([]string{"Country", info.Country})
	if info.MarketCap > 0 {
		table.Append([]string{"Market Cap", fmt.Sprintf("$%.0f", info.MarketCap)})
	}
	if info.CurrentPrice > 0 {
		table.Append([]string{"Current Price", fmt.Sprintf("$%.2f", info.CurrentPrice)})
	}
	if info.FiftyTwoLow > 0 && info.FiftyTwoHigh > 0 {
		table.Append([]string{"52-Week Range", fmt.Sprintf("$%.2f - $%.2f", info.FiftyTwoLow, info.FiftyTwoHigh)})
	}
	if info.PERatio > 0 {
		table.Append([]string{"P/E Ratio", fmt.Sprintf("%.2f", info.PERatio)})
	}
	if info.DividendYield > 0 {
		table.Append([]string{"Dividend Yield", fmt.Sprintf("%.2f%%", info.DividendYield*100)})
	}
	table.Render()
}
