package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/config"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/feed"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/log"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/router/middleware"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// seedConfig drives the development seed; prices are per market.
type seedConfig struct {
	Mid       map[string]string `envconfig:"SEED_MID" default:"WETH-USDC:3000,WBTC-USDC:60000"`
	Step      string            `envconfig:"SEED_STEP_RATIO" default:"0.001"` // level spacing as a fraction of mid
	Volume    string            `envconfig:"SEED_BASE_VOLUME" default:"0.5"`
	Levels    int               `envconfig:"SEED_LEVELS" default:"25"`
	Publisher string            `envconfig:"SEED_PUBLISHER" default:"dev-collector"`
	TokenTTL  time.Duration     `envconfig:"SEED_TOKEN_TTL" default:"720h"`
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.New(os.Stderr, "info", false).Fatal().Err(err).Msg("load config")
	}
	logger := log.NewLogger(cfg)

	var seed seedConfig
	if err := envconfig.Process("", &seed); err != nil {
		logger.Fatal().Err(err).Msg("load seed config")
	}
	stepRatio, err := decimal.NewFromString(seed.Step)
	if err != nil {
		logger.Fatal().Err(err).Msg("SEED_STEP_RATIO")
	}
	baseVolume, err := decimal.NewFromString(seed.Volume)
	if err != nil {
		logger.Fatal().Err(err).Msg("SEED_BASE_VOLUME")
	}

	markets, err := cfg.ParsedMarkets()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse markets")
	}
	symbols := make([]string, 0, len(markets))
	for _, m := range markets {
		symbols = append(symbols, m.Symbol)
	}

	maker := middleware.NewJWTMaker(cfg.JWTSecret)
	token, claims, err := maker.CreateToken(seed.Publisher, symbols, seed.TokenTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("issue publisher token")
	}
	logger.Info().
		Str("publisher", claims.Subject).
		Strs("markets", claims.Markets).
		Time("expires", claims.ExpiresAt.Time).
		Str("token", token).
		Msg("publisher token issued")

	if cfg.Feed.Source != "redis" {
		logger.Info().Msg("FEED_SOURCE is memory; push books with POST /api/v1/market/{symbol}/snapshot using the token above")
		return
	}

	rdb, err := feed.NewRedisClient(rootCtx, feed.RedisConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		TLSEnabled: cfg.Redis.TLS,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("connect redis")
	}
	defer rdb.Close()
	writer := feed.NewRedisWriter(rdb)

	ts := time.Now().UnixMilli()
	g, ctx := errgroup.WithContext(rootCtx)
	for _, m := range markets {
		raw, ok := seed.Mid[m.Symbol]
		if !ok {
			logger.Warn().Str("market", m.Symbol).Msg("no SEED_MID entry, skipping")
			continue
		}
		mid, err := decimal.NewFromString(raw)
		if err != nil {
			logger.Fatal().Err(err).Str("market", m.Symbol).Msg("SEED_MID")
		}
		book := feed.SyntheticBook(mid, mid.Mul(stepRatio), baseVolume, seed.Levels, ts)

		symbol := m.Symbol
		g.Go(func() error {
			if err := writer.SetSnapshot(ctx, symbol, book); err != nil {
				return err
			}
			logger.Info().Str("market", symbol).Int("bids", len(book.Bids)).Int("asks", len(book.Asks)).Msg("seeded book")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("seed books")
	}
}
