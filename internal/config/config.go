package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the backtester.
type Config struct {
	Storage    Storage          `yaml:"storage"`
	Alpaca     Alpaca           `yaml:"alpaca"`
	Logging    Logging          `yaml:"logging"`
	Gather     GatherConfig     `yaml:"gather"`
	Backtest   BacktestConfig   `yaml:"backtest"`
	Strategies []StrategyConfig `yaml:"strategies"`
	Trading    TradingConfig    `yaml:"trading"`
	Chart      ChartConfig      `yaml:"chart"`
}

// Storage holds paths for the price stores.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
	BaseURL   string `yaml:"base_url"` // trading API, used for the market calendar
	Feed      string `yaml:"feed"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig controls daily bar gathering.
type GatherConfig struct {
	Store           string   `yaml:"store"` // "parquet" or "sqlite"
	Symbols         []string `yaml:"symbols"`
	SymbolsFile     string   `yaml:"symbols_file"` // CSV with a leading symbol column
	StartDate       string   `yaml:"start_date"`
	EndDate         string   `yaml:"end_date"`
	BatchSize       int      `yaml:"batch_size"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	MaxAttempts     int      `yaml:"max_attempts"`
}

// BacktestConfig defines where prices come from and the cost model of a run.
type BacktestConfig struct {
	Source            string   `yaml:"source"` // "csv", "parquet" or "sqlite"
	CSVPath           string   `yaml:"csv_path"`
	Market            string   `yaml:"market"`
	Symbols           []string `yaml:"symbols"`
	StartDate         string   `yaml:"start_date"`
	EndDate           string   `yaml:"end_date"`
	TransactionCost   float64  `yaml:"transaction_cost"`
	Slippage          float64  `yaml:"slippage"`
	RebalanceInterval int      `yaml:"rebalance_interval"`
	RiskFreeRate      float64  `yaml:"risk_free_rate"`
}

// StrategyConfig selects a built-in strategy and its parameters. Zero windows
// fall back to the strategy defaults.
type StrategyConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	ShortWindow int    `yaml:"short_window"`
	LongWindow  int    `yaml:"long_window"`
	Window      int    `yaml:"window"`
}

// TradingConfig bounds what strategies may ask for.
type TradingConfig struct {
	MaxPosition float64 `yaml:"max_position"` // 0 disables the limit
}

// ChartConfig selects the equity-curve renderer.
type ChartConfig struct {
	Backend string `yaml:"backend"`
	Output  string `yaml:"output"`
}

// Supported price sources.
const (
	SourceCSV     = "csv"
	SourceParquet = "parquet"
	SourceSQLite  = "sqlite"
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration used for any field the YAML file leaves
// unset.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/backtester.db",
		},
		Alpaca: Alpaca{
			Feed: "sip",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Gather: GatherConfig{
			Store:           SourceParquet,
			BatchSize:       100,
			RateLimitPerMin: 200,
			MaxAttempts:     3,
		},
		Backtest: BacktestConfig{
			Source:            SourceCSV,
			Market:            "us",
			TransactionCost:   0.001,
			Slippage:          0.0005,
			RebalanceInterval: 1,
		},
	}
}

// Load reads the YAML configuration file at the given path on top of
// Default(), then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Validate checks the settings a backtest run depends on.
func (c *Config) Validate() error {
	b := c.Backtest
	if b.TransactionCost < 0 || math.IsNaN(b.TransactionCost) {
		return fmt.Errorf("backtest.transaction_cost must be non-negative, got %v", b.TransactionCost)
	}
	if b.Slippage < 0 || math.IsNaN(b.Slippage) {
		return fmt.Errorf("backtest.slippage must be non-negative, got %v", b.Slippage)
	}
	if b.RebalanceInterval < 1 {
		return fmt.Errorf("backtest.rebalance_interval must be >= 1, got %d", b.RebalanceInterval)
	}
	switch b.Source {
	case SourceCSV:
		if b.CSVPath == "" {
			return fmt.Errorf("backtest.csv_path is required for source %q", b.Source)
		}
	case SourceParquet, SourceSQLite:
		if len(b.Symbols) == 0 {
			return fmt.Errorf("backtest.symbols is required for source %q", b.Source)
		}
	default:
		return fmt.Errorf("unknown backtest.source %q", b.Source)
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy must be configured")
	}
	for i, s := range c.Strategies {
		if s.Type == "" {
			return fmt.Errorf("strategies[%d]: type is required", i)
		}
	}
	if c.Trading.MaxPosition < 0 {
		return fmt.Errorf("trading.max_position must be non-negative, got %v", c.Trading.MaxPosition)
	}
	return nil
}

// ValidateGather checks the settings the gather command depends on.
func (c *Config) ValidateGather() error {
	g := c.Gather
	if g.Store != SourceParquet && g.Store != SourceSQLite {
		return fmt.Errorf("gather.store must be %q or %q, got %q", SourceParquet, SourceSQLite, g.Store)
	}
	if len(g.Symbols) == 0 && g.SymbolsFile == "" {
		return fmt.Errorf("gather.symbols or gather.symbols_file is required")
	}
	if g.StartDate == "" {
		return fmt.Errorf("gather.start_date is required")
	}
	if g.BatchSize < 1 {
		return fmt.Errorf("gather.batch_size must be >= 1, got %d", g.BatchSize)
	}
	if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
		return fmt.Errorf("alpaca credentials are required")
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars take precedence; these are the names the SDK reads.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
