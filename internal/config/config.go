package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/depth"
	"github.com/Yusufzhafir/go-orderbook/depthchart/pkg/model"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPAddr  string `envconfig:"HTTP_ADDR" default:":8080"`
	JWTSecret string `envconfig:"JWT_SECRET"`

	Logging struct {
		Level  string `envconfig:"LOG_LEVEL" default:"info"`
		Pretty bool   `envconfig:"LOG_PRETTY" default:"false"`
	}

	Feed struct {
		Source string `envconfig:"FEED_SOURCE" default:"memory"` // memory | redis
		Levels int    `envconfig:"FEED_LEVELS" default:"0"`      // per side, 0 = whole book

		// redis only: how often book meta is polled for new snapshots
		PollInterval time.Duration `envconfig:"FEED_POLL_INTERVAL" default:"1s"`
	}

	Redis struct {
		Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
		Password string `envconfig:"REDIS_PASSWORD"`
		DB       int    `envconfig:"REDIS_DB" default:"0"`
		TLS      bool   `envconfig:"REDIS_TLS" default:"false"`
	}

	Markets         []string         `envconfig:"MARKETS" default:"WETH-USDC"`
	TokenDecimals   map[string]int32 `envconfig:"TOKEN_DECIMALS" default:"WETH:18,USDC:6,WBTC:8,DAI:18"`
	DefaultDecimals int32            `envconfig:"DEFAULT_TOKEN_DECIMALS" default:"18"`
	PriceDecimals   int32            `envconfig:"PRICE_DECIMALS" default:"2"`

	// decimal.Decimal decodes through encoding.TextUnmarshaler
	Viewport struct {
		DomainPadding    decimal.Decimal `envconfig:"VIEWPORT_DOMAIN_PADDING" default:"0.05"`
		RangePadding     decimal.Decimal `envconfig:"VIEWPORT_RANGE_PADDING" default:"0.1"`
		MinZoomRatio     decimal.Decimal `envconfig:"VIEWPORT_MIN_ZOOM_RATIO" default:"0.0005"`
		WheelSensitivity decimal.Decimal `envconfig:"VIEWPORT_WHEEL_SENSITIVITY" default:"0.001"`
		MaxZoomStep      decimal.Decimal `envconfig:"VIEWPORT_MAX_ZOOM_STEP" default:"0.5"`
	}
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Feed.Source {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown FEED_SOURCE %q", c.Feed.Source)
	}
	if c.Feed.PollInterval <= 0 {
		return fmt.Errorf("FEED_POLL_INTERVAL must be > 0")
	}
	if _, err := c.ParsedMarkets(); err != nil {
		return err
	}
	return c.ViewportConfig().Validate()
}

func (c *Config) ParsedMarkets() ([]model.Market, error) {
	markets := make([]model.Market, 0, len(c.Markets))
	for _, s := range c.Markets {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		m, err := model.ParseMarket(s, c.TokenDecimals, c.DefaultDecimals, c.PriceDecimals)
		if err != nil {
			return nil, err
		}
		markets = append(markets, m)
	}
	return markets, nil
}

func (c *Config) ViewportConfig() depth.ViewportConfig {
	return depth.ViewportConfig{
		DomainPadding:    c.Viewport.DomainPadding,
		RangePadding:     c.Viewport.RangePadding,
		MinZoomRatio:     c.Viewport.MinZoomRatio,
		WheelSensitivity: c.Viewport.WheelSensitivity,
		MaxZoomStep:      c.Viewport.MaxZoomStep,
	}
}
