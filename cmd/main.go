package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/config"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/depth"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/feed"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/log"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/metrics"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/router"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/router/middleware"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/usecase/chart"
	"github.com/Yusufzhafir/go-orderbook/depthchart/internal/websocket"
	"golang.org/x/sync/errgroup"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.New(os.Stderr, "info", false).Fatal().Err(err).Msg("load config")
	}
	logger := log.NewLogger(cfg)
	reg := metrics.Init(logger)

	markets, err := cfg.ParsedMarkets()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse markets")
	}

	g, ctx := errgroup.WithContext(rootCtx)

	var (
		marketFeed feed.Feed
		redisFeed  *feed.RedisFeed
	)
	switch cfg.Feed.Source {
	case "redis":
		rdb, err := feed.NewRedisClient(ctx, feed.RedisConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			TLSEnabled: cfg.Redis.TLS,
		})
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("connect redis")
		}
		defer rdb.Close()
		redisFeed = feed.NewRedisFeed(feed.RedisFeedOpts{
			Client:       rdb,
			Markets:      markets,
			Levels:       cfg.Feed.Levels,
			PollInterval: cfg.Feed.PollInterval,
			Logger:       logger,
		})
		marketFeed = redisFeed
	default:
		marketFeed = feed.NewBookFeed(feed.BookFeedOpts{
			Markets: markets,
			Levels:  cfg.Feed.Levels,
			Logger:  logger,
		})
	}

	chartUseCase := chart.NewChartUseCase(chart.ChartUseCaseOpts{
		Feed:       marketFeed,
		Aggregator: depth.NewAggregator(cfg.ViewportConfig()),
		Logger:     logger,
	})

	hub := websocket.NewHub(websocket.HubOpts{Source: chartUseCase, Logger: logger})
	chartUseCase.RegisterChartHandler(hub.PublishChart)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	// watch only once charts have somewhere to go
	if redisFeed != nil {
		g.Go(func() error { return redisFeed.Watch(ctx) })
	}

	serveMux := http.NewServeMux()

	//start ws on servemux
	serveMux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		websocket.ServeWS(hub, w, r)
	})
	serveMux.Handle("GET /metrics", metrics.Handler(reg))

	if cfg.JWTSecret == "" {
		logger.Warn().Msg("JWT_SECRET is empty, ingest endpoints will reject every request")
	}
	router.BindRouter(router.BindRouterOpts{
		ServerRouter: serveMux,
		ChartUseCase: chartUseCase,
		TokenMaker:   middleware.NewJWTMaker(cfg.JWTSecret),
		Logger:       logger,
	})
	logger.Info().Int("markets", len(markets)).Str("feed", cfg.Feed.Source).Msg("finished binding router")

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.Cors(serveMux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("shutdown signal received")

		// Give in-flight requests up to 10s to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("graceful shutdown failed; forcing close")
			_ = server.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
