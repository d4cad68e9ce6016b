package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bucket is an inclusive day-to-expiry range on the maturity ladder.
type Bucket struct {
	MinDays float64 `yaml:"min_days"`
	MaxDays float64 `yaml:"max_days"`
}

// Midpoint returns the center of the bucket, used as the pick target.
func (b Bucket) Midpoint() float64 { return (b.MinDays + b.MaxDays) / 2 }

// VBIParams holds the scoring and pattern calibration. The numeric values
// are market-domain calibration carried as configuration, not derived.
type VBIParams struct {
	SlopeMedium     float64 `yaml:"slope_medium"`
	SlopeStrong     float64 `yaml:"slope_strong"`
	SkewNeutralBand float64 `yaml:"skew_neutral_band"`
	SkewExtremeBand float64 `yaml:"skew_extreme_band"`
	PatternWindow   int     `yaml:"pattern_window"`
	NearIVStability float64 `yaml:"near_iv_stability"`
	PostEventSlope  float64 `yaml:"post_event_slope"`
	NearBucket      Bucket  `yaml:"near_bucket"`
	MidBucket       Bucket  `yaml:"mid_bucket"`
	FarBucket       Bucket  `yaml:"far_bucket"`
}

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Deribit struct {
		BaseURL           string   `yaml:"base_url"`
		Currencies        []string `yaml:"currencies"`
		Retries           int      `yaml:"retries"`
		AttemptTimeoutSec int      `yaml:"attempt_timeout_sec"`
		RateLimitRPS      float64  `yaml:"rate_limit_rps"`
		RateLimitBurst    int      `yaml:"rate_limit_burst"`
	} `yaml:"deribit"`
	Schedule struct {
		CheckIntervalSec       int `yaml:"check_interval_sec"`
		DegradedAlertThreshold int `yaml:"degraded_alert_threshold"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Supabase struct {
		URL   string `yaml:"url"`
		Key   string `yaml:"key"`
		Table string `yaml:"table"`
	} `yaml:"supabase"`
	Server struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"server"`
	VBI   VBIParams `yaml:"vbi"`
	Proxy string    `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("DERIBIT_BASE_URL"); v != "" {
		cfg.Deribit.BaseURL = v
	}
	if v := os.Getenv("CURRENCIES"); v != "" {
		cfg.Deribit.Currencies = splitList(v)
	}
	if v := os.Getenv("SUPABASE_URL"); v != "" {
		cfg.Supabase.URL = v
	}
	if v := os.Getenv("SUPABASE_KEY"); v != "" {
		cfg.Supabase.Key = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.ListenAddr = ":" + v
	}
	if v := os.Getenv("CHECK_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Schedule.CheckIntervalSec = n
		}
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Deribit.BaseURL == "" {
		cfg.Deribit.BaseURL = "https://www.deribit.com/api/v2"
	}
	if len(cfg.Deribit.Currencies) == 0 {
		cfg.Deribit.Currencies = []string{"BTC", "ETH"}
	}
	if cfg.Deribit.Retries == 0 {
		cfg.Deribit.Retries = 3
	}
	if cfg.Deribit.AttemptTimeoutSec == 0 {
		cfg.Deribit.AttemptTimeoutSec = 15
	}
	if cfg.Deribit.RateLimitRPS == 0 {
		cfg.Deribit.RateLimitRPS = 10
	}
	if cfg.Deribit.RateLimitBurst == 0 {
		cfg.Deribit.RateLimitBurst = 5
	}
	if cfg.Schedule.CheckIntervalSec == 0 {
		cfg.Schedule.CheckIntervalSec = 600
	}
	if cfg.Schedule.DegradedAlertThreshold == 0 {
		cfg.Schedule.DegradedAlertThreshold = 3
	}
	if cfg.Supabase.Table == "" {
		cfg.Supabase.Table = "logs"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":10000"
	}
	applyVBIDefaults(&cfg.VBI)

	return cfg, nil
}

func applyVBIDefaults(p *VBIParams) {
	if p.SlopeMedium == 0 {
		p.SlopeMedium = 3.0
	}
	if p.SlopeStrong == 0 {
		p.SlopeStrong = 6.0
	}
	if p.SkewNeutralBand == 0 {
		p.SkewNeutralBand = 0.05
	}
	if p.SkewExtremeBand == 0 {
		p.SkewExtremeBand = 0.15
	}
	if p.PatternWindow == 0 {
		p.PatternWindow = 3
	}
	if p.NearIVStability == 0 {
		p.NearIVStability = 0.02
	}
	if p.PostEventSlope == 0 {
		p.PostEventSlope = -2.0
	}
	if p.NearBucket == (Bucket{}) {
		p.NearBucket = Bucket{MinDays: 3, MaxDays: 14}
	}
	if p.MidBucket == (Bucket{}) {
		p.MidBucket = Bucket{MinDays: 14, MaxDays: 45}
	}
	if p.FarBucket == (Bucket{}) {
		p.FarBucket = Bucket{MinDays: 45, MaxDays: 120}
	}
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if len(c.Deribit.Currencies) == 0 {
		return fmt.Errorf("deribit.currencies must not be empty")
	}
	if c.Schedule.CheckIntervalSec <= 0 {
		return fmt.Errorf("schedule.check_interval_sec must be positive")
	}
	if c.VBI.PatternWindow < 2 {
		return fmt.Errorf("vbi.pattern_window must be at least 2")
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
