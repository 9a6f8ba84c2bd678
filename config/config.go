package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	PlatformCoinbase    = "coinbase"
	PlatformBinance     = "binance"
	PlatformBybit       = "bybit"
	PlatformHyperliquid = "hyperliquid"

	BacktestModeEngine = "engine"
	BacktestModeLLM    = "llm"

	defaultInterval       = "1h"
	defaultSchedule       = "30 0 * * * *"
	defaultWALDir         = "./wal/decisions"
	defaultTLSCacheDir    = "cert-cache"
	defaultLLMURL         = "https://api.openai.com/v1/chat/completions"
	defaultLLMModel       = "o1-mini"
	defaultWindow         = 24
	defaultCandles        = 96
	defaultCacheDir       = "data"
	defaultCacheMaxAge    = time.Hour
	defaultPromptFile     = "prompt.txt"
	defaultConcurrency    = 20
	defaultTargetAccuracy = 0.7
	defaultMaxIterations  = 10
)

var defaultMargin = decimal.RequireFromString("0.003")

// Config validated runtime configuration.
type Config struct {
	Platform string
	// Quote currency the three base assets are priced in.
	Quote    string
	Interval string
	// Schedule cron spec with a seconds field.
	Schedule    string
	Margin      decimal.Decimal
	WALDir      string
	WebAddr     string
	TLSDomains  []string
	TLSCacheDir string
	LogLevel    zapcore.Level
	LLM         LLMConfig
	Backtest    BacktestConfig
	Secrets     Secrets
}

// LLMConfig settings of the optional LLM advisor.
type LLMConfig struct {
	Enabled bool
	APIURL  string
	APIKey  string
	Model   string
}

// BacktestConfig settings of the backtest command.
type BacktestConfig struct {
	Mode           string
	Window         int
	Candles        int
	Concurrency    int
	TargetAccuracy float64
	MaxIterations  int
	CacheDir       string
	CacheMaxAge    time.Duration
	PromptFile     string
	// HistoryDB sqlite file; empty keeps run history in memory.
	HistoryDB string
}

// Secrets exchange credentials read from the environment.
type Secrets struct {
	BinanceAPIKey         string
	BinanceAPISecret      string
	BybitAPIKey           string
	BybitAPISecret        string
	HyperliquidPrivateKey string
}

// ConfigTmp yaml representation of Config.
type ConfigTmp struct {
	Platform    string      `yaml:"platform"`
	Quote       string      `yaml:"quote,omitempty"`
	Interval    string      `yaml:"interval,omitempty"`
	Schedule    string      `yaml:"schedule,omitempty"`
	MarginStr   string      `yaml:"margin,omitempty"`
	WALDir      string      `yaml:"wal_dir,omitempty"`
	WebAddr     string      `yaml:"web_addr,omitempty"`
	TLSDomains  []string    `yaml:"tls_domains,omitempty"`
	TLSCacheDir string      `yaml:"tls_cache_dir,omitempty"`
	LogLevel    string      `yaml:"log_level,omitempty"`
	LLM         LLMTmp      `yaml:"llm,omitempty"`
	Backtest    BacktestTmp `yaml:"backtest,omitempty"`
}

// LLMTmp yaml representation of LLMConfig.
type LLMTmp struct {
	Enabled bool   `yaml:"enabled,omitempty"`
	APIURL  string `yaml:"api_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

// BacktestTmp yaml representation of BacktestConfig.
type BacktestTmp struct {
	Mode              string `yaml:"mode,omitempty"`
	WindowStr         string `yaml:"window,omitempty"`
	CandlesStr        string `yaml:"candles,omitempty"`
	ConcurrencyStr    string `yaml:"concurrency,omitempty"`
	TargetAccuracyStr string `yaml:"target_accuracy,omitempty"`
	MaxIterationsStr  string `yaml:"max_iterations,omitempty"`
	CacheDir          string `yaml:"cache_dir,omitempty"`
	CacheMaxAge       string `yaml:"cache_max_age,omitempty"`
	PromptFile        string `yaml:"prompt_file,omitempty"`
	HistoryDB         string `yaml:"history_db,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg, _ := FromTmp(ConfigTmp{})
	return cfg
}

// Load reads a yaml config file. An empty path yields the defaults.
func Load(path string) (Config, error) {
	var tmp ConfigTmp
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &tmp); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}

	cfg, err := FromTmp(tmp)
	if err != nil {
		return Config{}, err
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// FromTmp validates the raw yaml values and fills in defaults.
func FromTmp(c ConfigTmp) (Config, error) {
	cfg := Config{
		Platform:    strings.ToLower(strings.TrimSpace(c.Platform)),
		Quote:       strings.ToUpper(strings.TrimSpace(c.Quote)),
		Interval:    orDefault(c.Interval, defaultInterval),
		Schedule:    orDefault(c.Schedule, defaultSchedule),
		WALDir:      orDefault(c.WALDir, defaultWALDir),
		WebAddr:     c.WebAddr,
		TLSDomains:  c.TLSDomains,
		TLSCacheDir: orDefault(c.TLSCacheDir, defaultTLSCacheDir),
		LLM: LLMConfig{
			Enabled: c.LLM.Enabled,
			APIURL:  orDefault(c.LLM.APIURL, defaultLLMURL),
			APIKey:  c.LLM.APIKey,
			Model:   orDefault(c.LLM.Model, defaultLLMModel),
		},
		Backtest: BacktestConfig{
			Mode:       strings.ToLower(orDefault(c.Backtest.Mode, BacktestModeEngine)),
			CacheDir:   orDefault(c.Backtest.CacheDir, defaultCacheDir),
			PromptFile: orDefault(c.Backtest.PromptFile, defaultPromptFile),
			HistoryDB:  c.Backtest.HistoryDB,
		},
	}

	switch cfg.Platform {
	case "":
		cfg.Platform = PlatformCoinbase
	case PlatformCoinbase, PlatformBinance, PlatformBybit, PlatformHyperliquid:
	default:
		return Config{}, fmt.Errorf("unsupported 'platform' param in yaml config: %s", c.Platform)
	}
	if cfg.Quote == "" {
		cfg.Quote = defaultQuote(cfg.Platform)
	}

	if c.MarginStr == "" {
		cfg.Margin = defaultMargin
	} else {
		margin, err := decimal.NewFromString(c.MarginStr)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'margin' param in yaml config (must be a decimal), error: %w", err)
		}
		if !margin.IsPositive() || margin.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return Config{}, fmt.Errorf("incorrect 'margin' param in yaml config: must be in (0, 1), got %s", c.MarginStr)
		}
		cfg.Margin = margin
	}

	level, err := zapcore.ParseLevel(orDefault(c.LogLevel, "info"))
	if err != nil {
		return Config{}, fmt.Errorf("incorrect 'log_level' param in yaml config, error: %w", err)
	}
	cfg.LogLevel = level

	if cfg.Backtest.Mode != BacktestModeEngine && cfg.Backtest.Mode != BacktestModeLLM {
		return Config{}, fmt.Errorf("incorrect 'backtest.mode' param in yaml config: %s (engine or llm)", c.Backtest.Mode)
	}

	ints := []struct {
		name string
		raw  string
		def  int
		dst  *int
	}{
		{"backtest.window", c.Backtest.WindowStr, defaultWindow, &cfg.Backtest.Window},
		{"backtest.candles", c.Backtest.CandlesStr, defaultCandles, &cfg.Backtest.Candles},
		{"backtest.concurrency", c.Backtest.ConcurrencyStr, defaultConcurrency, &cfg.Backtest.Concurrency},
		{"backtest.max_iterations", c.Backtest.MaxIterationsStr, defaultMaxIterations, &cfg.Backtest.MaxIterations},
	}
	for _, f := range ints {
		v, err := parsePositiveInt(f.raw, f.def)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect '%s' param in yaml config (must be a positive integer), error: %w", f.name, err)
		}
		*f.dst = v
	}
	if cfg.Backtest.Window < 3 {
		return Config{}, fmt.Errorf("incorrect 'backtest.window' param in yaml config: need at least 3 candles, got %d", cfg.Backtest.Window)
	}
	if cfg.Backtest.Candles <= cfg.Backtest.Window {
		return Config{}, fmt.Errorf("incorrect 'backtest.candles' param in yaml config: must exceed window (%d), got %d",
			cfg.Backtest.Window, cfg.Backtest.Candles)
	}

	cfg.Backtest.TargetAccuracy = defaultTargetAccuracy
	if c.Backtest.TargetAccuracyStr != "" {
		v, err := strconv.ParseFloat(c.Backtest.TargetAccuracyStr, 64)
		if err != nil || v <= 0 || v > 1 {
			return Config{}, fmt.Errorf("incorrect 'backtest.target_accuracy' param in yaml config: must be in (0, 1], got %s",
				c.Backtest.TargetAccuracyStr)
		}
		cfg.Backtest.TargetAccuracy = v
	}

	cfg.Backtest.CacheMaxAge = defaultCacheMaxAge
	if c.Backtest.CacheMaxAge != "" {
		d, err := time.ParseDuration(c.Backtest.CacheMaxAge)
		if err != nil {
			return Config{}, fmt.Errorf("incorrect 'backtest.cache_max_age' param in yaml config, error: %w", err)
		}
		cfg.Backtest.CacheMaxAge = d
	}

	return cfg, nil
}

// applyEnv fills secrets from the environment; LLM_API_KEY falls back to OPENAI_API_KEY.
func (c *Config) applyEnv(getenv func(string) string) {
	if key := getenv("LLM_API_KEY"); key != "" {
		c.LLM.APIKey = key
	} else if c.LLM.APIKey == "" {
		c.LLM.APIKey = getenv("OPENAI_API_KEY")
	}

	c.Secrets = Secrets{
		BinanceAPIKey:         getenv("BINANCE_API_KEY"),
		BinanceAPISecret:      getenv("BINANCE_API_SECRET"),
		BybitAPIKey:           getenv("BYBIT_API_KEY"),
		BybitAPISecret:        getenv("BYBIT_API_SECRET"),
		HyperliquidPrivateKey: getenv("HYPERLIQUID_PRIVATE_KEY"),
	}
}

// Validate checks settings that depend on the command being run.
func (c Config) Validate(needLLM bool) error {
	if needLLM && c.LLM.APIKey == "" {
		return errors.New("LLM is enabled but no API key is set (LLM_API_KEY or OPENAI_API_KEY)")
	}
	return nil
}

func defaultQuote(platform string) string {
	switch platform {
	case PlatformCoinbase, PlatformHyperliquid:
		return "USD"
	default:
		return "USDT"
	}
}

func parsePositiveInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("got %d", v)
	}
	return v, nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}
