// Package config defines all configuration for the trading platform core.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// fields overridable via TRADER_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Trader    TraderConfig    `mapstructure:"trader"`
	Risk      RiskConfig      `mapstructure:"risk"`
	RatesFeed RatesFeedConfig `mapstructure:"rates_feed"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// TraderConfig identifies the trader instance and its controller behavior.
type TraderConfig struct {
	ID string `mapstructure:"id"` // e.g. "TRADER-001"

	// AllowAddWhileRunning lets a controller register components into a
	// running trader. Off by default: additions normally happen before
	// Start.
	AllowAddWhileRunning bool `mapstructure:"allow_add_while_running"`
}

// RiskConfig sets the pre-trade risk controls.
//
//   - Bypass: skip all risk checks (the duplicate-ID check still runs).
//   - MaxOrderRate / MaxOrderRateInterval: order submissions allowed per
//     interval before the throttler denies.
//   - MaxNotionalPerOrder: per-instrument notional caps keyed by
//     instrument id string, e.g. "EUR/USD.SIM". Instruments without an
//     entry are uncapped.
type RiskConfig struct {
	Bypass               bool               `mapstructure:"bypass"`
	MaxOrderRate         int                `mapstructure:"max_order_rate"`
	MaxOrderRateInterval time.Duration      `mapstructure:"max_order_rate_interval"`
	MaxNotionalPerOrder  map[string]float64 `mapstructure:"max_notional_per_order"`
}

// RatesFeedConfig controls the FX quote polling feed that seeds the
// cross-rate graph.
type RatesFeedConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	Venue        string        `mapstructure:"venue"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the web dashboard server.
type DashboardConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Port             int           `mapstructure:"port"`
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
}

// Load reads config from a YAML file with TRADER_* env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("TRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("trader.id", "TRADER-001")
	v.SetDefault("risk.max_order_rate", 100)
	v.SetDefault("risk.max_order_rate_interval", time.Second)
	v.SetDefault("rates_feed.poll_interval", 30*time.Second)
	v.SetDefault("dashboard.snapshot_interval", time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// viper lowercases map keys; instrument ids are uppercase
	if len(cfg.Risk.MaxNotionalPerOrder) > 0 {
		normalized := make(map[string]float64, len(cfg.Risk.MaxNotionalPerOrder))
		for id, notional := range cfg.Risk.MaxNotionalPerOrder {
			normalized[strings.ToUpper(id)] = notional
		}
		cfg.Risk.MaxNotionalPerOrder = normalized
	}
	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Trader.ID == "" {
		return fmt.Errorf("trader.id is required")
	}
	if c.Risk.MaxOrderRate <= 0 {
		return fmt.Errorf("risk.max_order_rate must be > 0")
	}
	if c.Risk.MaxOrderRateInterval <= 0 {
		return fmt.Errorf("risk.max_order_rate_interval must be > 0")
	}
	for id, notional := range c.Risk.MaxNotionalPerOrder {
		if notional <= 0 {
			return fmt.Errorf("risk.max_notional_per_order[%s] must be > 0", id)
		}
	}
	if c.RatesFeed.Enabled {
		if c.RatesFeed.URL == "" {
			return fmt.Errorf("rates_feed.url is required when rates_feed.enabled")
		}
		if c.RatesFeed.Venue == "" {
			return fmt.Errorf("rates_feed.venue is required when rates_feed.enabled")
		}
		if c.RatesFeed.PollInterval <= 0 {
			return fmt.Errorf("rates_feed.poll_interval must be > 0")
		}
	}
	if c.Dashboard.Enabled && c.Dashboard.Port == 0 {
		return fmt.Errorf("dashboard.port is required when dashboard.enabled")
	}
	return nil
}
