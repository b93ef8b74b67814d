package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"SharpeSentinel/internal/logger"
	"SharpeSentinel/internal/optimizer"
)

// DateLayout is the layout of start and end dates.
const DateLayout = "2006-01-02"

// DefaultSymbols is the portfolio used when none is configured.
var DefaultSymbols = []string{"AAPL", "GOOG", "IBM", "MSFT"}

// Config holds all application configuration.
type Config struct {
	Symbols    []string         `yaml:"symbols"`
	Start      string           `yaml:"start"`
	End        string           `yaml:"end"`
	Optimizer  optimizer.Config `yaml:"optimizer"`
	DataSource struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
	} `yaml:"data_source"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		OptimizeCron string `yaml:"optimize_cron"`
		LookbackDays int    `yaml:"lookback_days"`
	} `yaml:"schedule"`
	Fund struct {
		Capital   float64 `yaml:"capital"`
		StateFile string  `yaml:"state_file"`
	} `yaml:"fund"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{Optimizer: optimizer.DefaultConfig()}
	cfg.Log.Pretty = true

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env never overrides variables already set in the process.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = ParseSymbols(v)
	}
	if v := os.Getenv("START_DATE"); v != "" {
		c.Start = v
	}
	if v := os.Getenv("END_DATE"); v != "" {
		c.End = v
	}
	if v := os.Getenv("UNITS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse UNITS: %w", err)
		}
		c.Optimizer.Units = n
	}
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse WORKERS: %w", err)
		}
		c.Optimizer.Workers = n
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("VSTRADER_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("VSTRADER_API_KEY"); v != "" {
		c.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_OPTIMIZE"); v != "" {
		c.Schedule.OptimizeCron = v
	}
	if v := os.Getenv("LOOKBACK_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse LOOKBACK_DAYS: %w", err)
		}
		c.Schedule.LookbackDays = n
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CAPITAL"); v != "" {
		capital, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse CAPITAL: %w", err)
		}
		c.Fund.Capital = capital
	}
	return nil
}

func (c *Config) applyDefaults() {
	if len(c.Symbols) == 0 {
		c.Symbols = append([]string(nil), DefaultSymbols...)
	}
	if c.Start == "" {
		c.Start = "2011-01-01"
	}
	if c.End == "" {
		c.End = "2011-12-31"
	}
	if c.Optimizer.TradingDays == 0 {
		c.Optimizer.TradingDays = 252
	}
	if c.Optimizer.Workers == 0 {
		c.Optimizer.Workers = 1
	}
	if c.Schedule.OptimizeCron == "" {
		c.Schedule.OptimizeCron = "0 30 17 * * 1-5"
	}
	if c.Fund.Capital == 0 {
		c.Fund.Capital = 100000
	}
	if c.Fund.StateFile == "" {
		c.Fund.StateFile = "data/allocation_state.json"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/sharpe_sentinel.db"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8088"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// StartDate parses Start.
func (c *Config) StartDate() (time.Time, error) {
	return time.Parse(DateLayout, c.Start)
}

// EndDate parses End.
func (c *Config) EndDate() (time.Time, error) {
	return time.Parse(DateLayout, c.End)
}

// LoggerConfig converts the log section for logger.New.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{Level: c.Log.Level, Pretty: c.Log.Pretty}
}

// Validate checks the fields needed for a one-shot optimisation.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols must not be empty")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s == "" {
			return fmt.Errorf("symbols must not contain blanks")
		}
		if seen[s] {
			return fmt.Errorf("duplicate symbol %s", s)
		}
		seen[s] = true
	}
	start, err := c.StartDate()
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := c.EndDate()
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("end %s is before start %s", c.End, c.Start)
	}
	if c.Optimizer.Units < 0 {
		return fmt.Errorf("optimizer.units must be >= 0")
	}
	if c.Optimizer.TradingDays <= 0 {
		return fmt.Errorf("optimizer.trading_days must be positive")
	}
	if c.Optimizer.Workers < 1 {
		return fmt.Errorf("optimizer.workers must be >= 1")
	}
	return nil
}

// ValidateDaemon additionally checks what the scheduler and bot need.
func (c *Config) ValidateDaemon() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if c.Fund.Capital <= 0 {
		return fmt.Errorf("fund.capital must be positive")
	}
	if c.Schedule.LookbackDays < 0 {
		return fmt.Errorf("schedule.lookback_days must be >= 0")
	}
	return nil
}

// ParseSymbols splits a comma separated list, trimming and upper-casing.
func ParseSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.ToUpper(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
