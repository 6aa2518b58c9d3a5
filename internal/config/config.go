package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GoPolymarket/range-market/internal/pricing"
)

type Config struct {
	LogLevel string `yaml:"log_level"`
	Mode     string `yaml:"mode"`
	DryRun   bool   `yaml:"dry_run"`

	Pricing      PricingConfig      `yaml:"pricing"`
	Market       MarketConfig       `yaml:"market"`
	Storage      StorageConfig      `yaml:"storage"`
	Registration RegistrationConfig `yaml:"registration"`
	Paper        PaperConfig        `yaml:"paper"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	API          APIConfig          `yaml:"api"`
}

// PricingConfig mirrors pricing.Params in yaml form.
type PricingConfig struct {
	Resolution          int     `yaml:"resolution"`
	MassScaleUSD        float64 `yaml:"mass_scale_usd"`
	SlippageCoefficient float64 `yaml:"slippage_coefficient"`
	FeeRate             float64 `yaml:"fee_rate"`
	SkewNudge           float64 `yaml:"skew_nudge"`
	DepthTolerance      float64 `yaml:"depth_tolerance"`
	ThinRatio           float64 `yaml:"thin_ratio"`
	ThickRatio          float64 `yaml:"thick_ratio"`
	DomainMin           float64 `yaml:"domain_min"`
	DomainMax           float64 `yaml:"domain_max"`
}

type MarketConfig struct {
	ListLimit int `yaml:"list_limit"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type RegistrationConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	PrivateKey string        `yaml:"private_key"`
	Timeout    time.Duration `yaml:"timeout"`
}

type PaperConfig struct {
	TxPrefix         string   `yaml:"tx_prefix"`
	RejectCategories []string `yaml:"reject_categories"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
}

type APIConfig struct {
	Addr            string        `yaml:"addr"`
	RateLimit       float64       `yaml:"rate_limit"`
	Burst           int           `yaml:"burst"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

func Default() Config {
	p := pricing.DefaultParams()
	return Config{
		LogLevel: "info",
		Mode:     "paper",
		DryRun:   true,
		Pricing: PricingConfig{
			Resolution:          p.Resolution,
			MassScaleUSD:        p.MassScaleUSD,
			SlippageCoefficient: p.SlippageCoefficient,
			FeeRate:             p.FeeRate,
			SkewNudge:           p.SkewNudge,
			DepthTolerance:      p.DepthTolerance,
			ThinRatio:           p.ThinRatio,
			ThickRatio:          p.ThickRatio,
			DomainMin:           p.DefaultDomain.Min,
			DomainMax:           p.DefaultDomain.Max,
		},
		Market: MarketConfig{
			ListLimit: 50,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DSN:    "range-market.db",
		},
		Registration: RegistrationConfig{
			Timeout: 15 * time.Second,
		},
		Paper: PaperConfig{
			TxPrefix: "paper-tx",
		},
		API: APIConfig{
			Addr:            ":8080",
			RateLimit:       20,
			Burst:           40,
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
	}
}

// Params converts the yaml pricing section into the pricing model's params.
func (p PricingConfig) Params() pricing.Params {
	return pricing.Params{
		Resolution:          p.Resolution,
		MassScaleUSD:        p.MassScaleUSD,
		SlippageCoefficient: p.SlippageCoefficient,
		FeeRate:             p.FeeRate,
		SkewNudge:           p.SkewNudge,
		DepthTolerance:      p.DepthTolerance,
		ThinRatio:           p.ThinRatio,
		ThickRatio:          p.ThickRatio,
		DefaultDomain:       pricing.Domain{Min: p.DomainMin, Max: p.DomainMax},
	}
}

// Gateway names the registration gateway implied by mode and dry_run:
// "paper", "shadow" (live mode without on-chain writes) or "live".
func (c Config) Gateway() string {
	if !strings.EqualFold(strings.TrimSpace(c.Mode), "live") {
		return "paper"
	}
	if c.DryRun {
		return "shadow"
	}
	return "live"
}

func LoadFile(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("RANGEMARKET_LOG_LEVEL")); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("RANGEMARKET_MODE")); v != "" {
		c.Mode = strings.ToLower(v)
	}
	if v := os.Getenv("RANGEMARKET_DRY_RUN"); v != "" {
		c.DryRun = strings.EqualFold(v, "true") || v == "1"
	}
	if v := strings.TrimSpace(os.Getenv("RANGEMARKET_DB_DRIVER")); v != "" {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("RANGEMARKET_DB_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("RANGEMARKET_REGISTRY_ENDPOINT"); v != "" {
		c.Registration.Endpoint = v
	}
	if v := os.Getenv("RANGEMARKET_PRIVATE_KEY"); v != "" {
		c.Registration.PrivateKey = v
	}
	if v := os.Getenv("RANGEMARKET_TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("RANGEMARKET_TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("RANGEMARKET_API_ADDR"); v != "" {
		c.API.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("RANGEMARKET_API_RATE_LIMIT")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.API.RateLimit = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("RANGEMARKET_ALLOWED_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.API.AllowedOrigins = origins
	}
}
