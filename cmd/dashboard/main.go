package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/tribe-origin-map/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/tribe-origin-map/internal/adapter/kafka"
	redisadapter "github.com/couchcryptid/tribe-origin-map/internal/adapter/redis"
	"github.com/couchcryptid/tribe-origin-map/internal/adapter/source"
	"github.com/couchcryptid/tribe-origin-map/internal/config"
	"github.com/couchcryptid/tribe-origin-map/internal/dashboard"
	"github.com/couchcryptid/tribe-origin-map/internal/dataset"
	"github.com/couchcryptid/tribe-origin-map/internal/domain"
	"github.com/couchcryptid/tribe-origin-map/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Remote payloads, optionally cached in Redis (REDIS_URL).
	var fetcher domain.Fetcher = source.NewClient(cfg.FetchTimeout, logger)
	if cfg.RedisURL != "" {
		rdb, err := redisadapter.NewClient(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		fetcher = redisadapter.NewCachedFetcher(rdb, fetcher, cfg.PayloadCacheTTL, logger, metrics)
		logger.Info("payload cache enabled", "ttl", cfg.PayloadCacheTTL)
	}

	loader := dataset.NewLoader(fetcher, dataset.Sources{
		TribesURL:   cfg.TribesCSVURL,
		PolygonsURL: cfg.PolygonsURL,
		LinesURL:    cfg.LinesURL,
		PolygonKey:  cfg.PolygonNameAttr,
		LineKey:     cfg.LineNameAttr,
	}, logger, metrics)
	store := dataset.NewStore(metrics)

	snap, err := loader.Load(ctx)
	if err != nil {
		if !cfg.DegradedStart {
			logger.Error("failed to load coordinate table", "error", err)
			os.Exit(1)
		}
		logger.Error("coordinate table unavailable, serving error page", "error", err)
		store.Fail(err)
	} else {
		store.Set(snap)
	}

	// Selection events (feature-flagged via KAFKA_ENABLED).
	var (
		publisher dashboard.SelectionPublisher
		writer    *kafkaadapter.Writer
	)
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("selection events enabled", "topic", cfg.KafkaSelectionTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("selection events disabled")
	}

	svc := dashboard.NewService(store, domain.RenderOptions{
		Tolerance:    cfg.CoincidenceTolerance,
		DefaultView:  domain.MapView{Lat: cfg.MapCenterLat, Lon: cfg.MapCenterLon, Zoom: cfg.MapZoom},
		SelectedZoom: cfg.SelectedZoom,
	}, publisher, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, store, httpadapter.Basemap{
		URL:         cfg.BasemapURL,
		Name:        cfg.BasemapName,
		Attribution: cfg.BasemapAttribution,
		Opacity:     cfg.BasemapOpacity,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
