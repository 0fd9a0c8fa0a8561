package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/batuaribakir/StockSig/internal/signal"
)

// Config represents the application configuration.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Backtest BacktestConfig `yaml:"backtest"`
	LogLevel string         `yaml:"log_level"`
}

// APIConfig holds data provider configurations.
type APIConfig struct {
	AlphaVantage ProviderConfig `yaml:"alphavantage"`
	Yahoo        ProviderConfig `yaml:"yahoo"`
}

// ProviderConfig holds individual provider settings.
type ProviderConfig struct {
	Key       string `yaml:"key"`
	RateLimit int    `yaml:"rate_limit"` // requests per minute
}

// AnalysisConfig holds pattern-detection and signal-fusion settings.
type AnalysisConfig struct {
	PatternWindow int            `yaml:"pattern_window"`
	SRWindow      int            `yaml:"sr_window"`
	SRThreshold   float64        `yaml:"sr_threshold"`
	Weights       signal.Weights `yaml:"weights"`
}

// BacktestConfig holds simulation settings.
type BacktestConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
	Commission     float64 `yaml:"commission"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			AlphaVantage: ProviderConfig{
				Key:       os.Getenv("ALPHAVANTAGE_API_KEY"),
				RateLimit: 5,
			},
			Yahoo: ProviderConfig{
				RateLimit: 30,
			},
		},
		Analysis: AnalysisConfig{
			PatternWindow: 30,
			SRWindow:      20,
			SRThreshold:   0.02,
			Weights:       signal.DefaultWeights(),
		},
		Backtest: BacktestConfig{
			InitialCapital: 10000.0,
			Commission:     0.001,
		},
		LogLevel: "info",
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if key := os.Getenv("ALPHAVANTAGE_API_KEY"); key != "" {
		cfg.API.AlphaVantage.Key = key
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Analysis.PatternWindow < 1 {
		return fmt.Errorf("pattern_window must be at least 1")
	}
	if c.Analysis.SRWindow < 1 {
		return fmt.Errorf("sr_window must be at least 1")
	}
	if c.Analysis.SRThreshold <= 0 {
		return fmt.Errorf("sr_threshold must be positive")
	}
	if c.Backtest.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive")
	}
	if c.Backtest.Commission < 0 {
		return fmt.Errorf("commission must be non-negative")
	}
	return nil
}
