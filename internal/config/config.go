// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines the structure for all application configuration.
type Config struct {
	Symbol       string   `yaml:"symbol"`
	Interval     string   `yaml:"interval"`
	CandleLimit  int      `yaml:"candle_limit"`
	DepthLimit   int      `yaml:"depth_limit"`
	PollInterval Duration `yaml:"poll_interval"`

	Signal    SignalConf    `yaml:"signal"`
	Risk      RiskConf      `yaml:"risk"`
	Optimizer OptimizerConf `yaml:"optimizer"`
	Exchange  ExchangeConf  `yaml:"exchange"`
	Data      DataConf      `yaml:"data"`

	Database DBConf `yaml:"database"`

	LogLevel string `yaml:"log_level"` // Overridable via LOG_LEVEL
}

// SignalConf holds the entry thresholds and the persistence filter.
type SignalConf struct {
	ThresholdPositive float64 `yaml:"threshold_positive"`
	ThresholdNegative float64 `yaml:"threshold_negative"`
	HoldBars          int     `yaml:"hold_bars"`
}

// RiskConf holds the simulated fill and exit policy.
type RiskConf struct {
	Slippage       float64 `yaml:"slippage"`
	StopLoss       float64 `yaml:"stop_loss"`
	TakeProfit     float64 `yaml:"take_profit"`
	TrailingStop   float64 `yaml:"trailing_stop"`
	InitialCapital float64 `yaml:"initial_capital"`
}

// OptimizerConf holds the parameter grid for sweeps.
type OptimizerConf struct {
	PositiveThresholds []float64 `yaml:"positive_thresholds"`
	NegativeThresholds []float64 `yaml:"negative_thresholds"`
	HoldBars           []int     `yaml:"hold_bars"`
}

// ExchangeConf selects the market data source endpoints. Empty URLs
// select the public endpoints.
type ExchangeConf struct {
	BaseURL   string   `yaml:"base_url"`
	StreamURL string   `yaml:"stream_url"`
	UseStream FlexBool `yaml:"use_stream"`
}

// DataConf selects between live exchange data and recorded files.
type DataConf struct {
	Source     string `yaml:"source"` // "exchange" or "file"
	CandlesCSV string `yaml:"candles_csv"`
	DepthJSON  string `yaml:"depth_json"`
}

// DBConf holds the TimescaleDB connection settings. Connection fields
// are overridable via DB_* environment variables.
type DBConf struct {
	Enabled  FlexBool `yaml:"enabled"`
	Host     string   `yaml:"host"`
	Port     string   `yaml:"port"`
	User     string   `yaml:"user"`
	Password string   `yaml:"-"` // Loaded from env
	Name     string   `yaml:"name"`
	SSLMode  string   `yaml:"sslmode"`

	BatchSize     int      `yaml:"batch_size"`
	FlushInterval Duration `yaml:"flush_interval"`
	MigrationsDir string   `yaml:"migrations_dir"`
	// RetentionHours prunes summaries older than this at startup. Zero
	// keeps everything.
	RetentionHours int `yaml:"retention_hours"`
}

// DSN builds a postgres connection string from the parts.
func (d DBConf) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

// LoadConfig loads configuration from the specified YAML file path and
// environment variables, applies defaults, and validates the result.
func LoadConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", configPath, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Interval:     "1m",
		CandleLimit:  90,
		DepthLimit:   20,
		PollInterval: Duration(60 * time.Second),
		Signal: SignalConf{
			ThresholdPositive: 10,
			ThresholdNegative: -10,
			HoldBars:          3,
		},
		Risk: RiskConf{
			Slippage:       0.005,
			StopLoss:       0.28,
			TakeProfit:     0.30,
			TrailingStop:   0.5,
			InitialCapital: 10000,
		},
		Data: DataConf{
			Source: "exchange",
		},
		Database: DBConf{
			Host:          "localhost",
			Port:          "5432",
			SSLMode:       "disable",
			BatchSize:     100,
			FlushInterval: Duration(1 * time.Second),
			MigrationsDir: "db/migrations",
		},
		LogLevel: "info",
	}
}

func applyEnvOverrides(cfg *Config) {
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if dbHost := os.Getenv("DB_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DB_PORT"); dbPort != "" {
		cfg.Database.Port = dbPort
	}
	if dbUser := os.Getenv("DB_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPassword := os.Getenv("DB_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Name = dbName
	}
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if c.CandleLimit <= 0 {
		return fmt.Errorf("candle_limit must be positive, got %d", c.CandleLimit)
	}
	if c.DepthLimit <= 0 {
		return fmt.Errorf("depth_limit must be positive, got %d", c.DepthLimit)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", time.Duration(c.PollInterval))
	}
	if c.Signal.HoldBars < 0 {
		return fmt.Errorf("signal.hold_bars must not be negative, got %d", c.Signal.HoldBars)
	}
	if c.Signal.ThresholdPositive < c.Signal.ThresholdNegative {
		return fmt.Errorf("signal.threshold_positive %v is below signal.threshold_negative %v",
			c.Signal.ThresholdPositive, c.Signal.ThresholdNegative)
	}
	if c.Risk.Slippage < 0 {
		return fmt.Errorf("risk.slippage must not be negative, got %v", c.Risk.Slippage)
	}
	if c.Risk.StopLoss <= 0 {
		return fmt.Errorf("risk.stop_loss must be positive, got %v", c.Risk.StopLoss)
	}
	if c.Risk.TakeProfit <= 0 {
		return fmt.Errorf("risk.take_profit must be positive, got %v", c.Risk.TakeProfit)
	}
	if c.Risk.TrailingStop < 0 || c.Risk.TrailingStop > 1 {
		return fmt.Errorf("risk.trailing_stop must be within [0, 1], got %v", c.Risk.TrailingStop)
	}
	if c.Risk.InitialCapital <= 0 {
		return fmt.Errorf("risk.initial_capital must be positive, got %v", c.Risk.InitialCapital)
	}
	switch c.Data.Source {
	case "exchange", "file":
	default:
		return fmt.Errorf("data.source must be \"exchange\" or \"file\", got %q", c.Data.Source)
	}
	if c.Data.Source == "file" {
		if c.Data.CandlesCSV == "" {
			return fmt.Errorf("data.candles_csv is required when data.source is \"file\"")
		}
		if c.Data.DepthJSON == "" {
			return fmt.Errorf("data.depth_json is required when data.source is \"file\"")
		}
	}
	if c.Database.RetentionHours < 0 {
		return fmt.Errorf("database.retention_hours must not be negative, got %d", c.Database.RetentionHours)
	}
	return nil
}
