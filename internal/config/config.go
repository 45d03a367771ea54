package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"vnstock/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the vnstock acquisition tool.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Source   Source         `yaml:"source"`
	Logging  Logging        `yaml:"logging"`
	Gather   GatherConfig   `yaml:"gather"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	LedgerPath string `yaml:"ledger_path"`
	LogDir     string `yaml:"log_dir"`
}

// Source configures the upstream market-data API.
type Source struct {
	CandleURL       string            `yaml:"candle_url"`
	TimeFrame       string            `yaml:"time_frame"`
	Timeout         time.Duration     `yaml:"timeout"`
	Headers         map[string]string `yaml:"headers"`
	RateLimitPerMin int               `yaml:"rate_limit_per_min"`
	Breaker         Breaker           `yaml:"breaker"`
}

// Breaker configures the upstream circuit breaker.
type Breaker struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	OpenTimeout time.Duration `yaml:"open_timeout"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig controls acquisition runs.
type GatherConfig struct {
	Throttle     time.Duration      `yaml:"throttle"`
	IntervalDays int                `yaml:"interval_days"`
	Instruments  []InstrumentConfig `yaml:"instruments"`
}

// InstrumentConfig declares one instrument to acquire. ProductCode applies to
// rolling instruments only.
type InstrumentConfig struct {
	Symbol      string `yaml:"symbol"`
	Kind        string `yaml:"kind"`
	ProductCode string `yaml:"product_code"`
}

// ScheduleConfig lists the cron specs of the scheduler daemon, evaluated in
// the fixed UTC+7 timezone.
type ScheduleConfig struct {
	Specs []string `yaml:"specs"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// Default returns the built-in configuration: VN30F rolling futures plus the
// VN30 index, traded-session cron triggers, and browser-like headers.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			LedgerPath: "data/ledger.db",
			LogDir:     "logs",
		},
		Source: Source{
			TimeFrame: "ONE_MINUTE",
			Timeout:   300 * time.Second,
			Headers: map[string]string{
				"Accept":       "application/json, text/plain, */*",
				"Content-Type": "application/json",
				"User-Agent":   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
				"Referer":      "https://trading.vietcap.com.vn/",
				"Origin":       "https://trading.vietcap.com.vn",
			},
			Breaker: Breaker{
				MaxFailures: 5,
				OpenTimeout: time.Minute,
			},
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Gather: GatherConfig{
			Throttle:     time.Second,
			IntervalDays: 1,
			Instruments: []InstrumentConfig{
				{Symbol: "VN30F", Kind: string(domain.KindRolling), ProductCode: "41I1"},
				{Symbol: "VN30", Kind: string(domain.KindPlain)},
			},
		},
		Schedule: ScheduleConfig{
			Specs: []string{
				"45,50,55 8 * * 1-5",
				"*/5 9-13 * * 1-5",
				"0-45/5 14 * * 1-5",
			},
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path over Default(),
// then applies .env and environment variable overrides. An empty path skips
// the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	// A missing .env is normal; variables already set win over the file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VNSTOCK_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("VNSTOCK_LEDGER_PATH"); v != "" {
		cfg.Storage.LedgerPath = v
	}
	if v := os.Getenv("VNSTOCK_CANDLE_URL"); v != "" {
		cfg.Source.CandleURL = v
	}
	if v := os.Getenv("VNSTOCK_RATE_LIMIT_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Source.RateLimitPerMin = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	// Project-scoped name takes priority over the generic one.
	if v := os.Getenv("VNSTOCK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// ---------------------------------------------------------------------------
// Validation and accessors
// ---------------------------------------------------------------------------

// Validate reports configuration that would make every run fail.
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is empty"))
	}
	if c.Gather.IntervalDays < 1 {
		errs = append(errs, fmt.Errorf("gather.interval_days = %d, want >= 1", c.Gather.IntervalDays))
	}
	if c.Gather.Throttle < 0 {
		errs = append(errs, fmt.Errorf("gather.throttle = %s, want >= 0", c.Gather.Throttle))
	}
	seen := make(map[string]bool)
	for i, ic := range c.Gather.Instruments {
		if _, err := ic.Instrument(); err != nil {
			errs = append(errs, fmt.Errorf("gather.instruments[%d]: %w", i, err))
			continue
		}
		if seen[ic.Symbol] {
			errs = append(errs, fmt.Errorf("gather.instruments[%d]: duplicate symbol %q", i, ic.Symbol))
		}
		seen[ic.Symbol] = true
	}
	return errors.Join(errs...)
}

// Instrument converts the declaration into a domain.Instrument.
func (ic InstrumentConfig) Instrument() (domain.Instrument, error) {
	if ic.Symbol == "" {
		return domain.Instrument{}, fmt.Errorf("%w: empty symbol", domain.ErrInvalidInstrument)
	}
	switch domain.SymbolKind(ic.Kind) {
	case domain.KindPlain, "":
		return domain.Plain(ic.Symbol), nil
	case domain.KindRolling:
		if len(ic.ProductCode) != 4 {
			return domain.Instrument{}, fmt.Errorf("%w: %s needs a 4-character product_code", domain.ErrInvalidInstrument, ic.Symbol)
		}
		return domain.Rolling(ic.Symbol, ic.ProductCode), nil
	default:
		return domain.Instrument{}, fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidInstrument, ic.Kind)
	}
}

// Instruments returns every configured instrument in declaration order.
func (c *Config) Instruments() ([]domain.Instrument, error) {
	out := make([]domain.Instrument, 0, len(c.Gather.Instruments))
	for _, ic := range c.Gather.Instruments {
		inst, err := ic.Instrument()
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Instrument finds the configured instrument with the given symbol.
func (c *Config) Instrument(symbol string) (domain.Instrument, error) {
	for _, ic := range c.Gather.Instruments {
		if ic.Symbol == symbol {
			return ic.Instrument()
		}
	}
	return domain.Instrument{}, fmt.Errorf("%w: %q is not configured", domain.ErrInvalidInstrument, symbol)
}
