package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexcar/rwe-km/internal/api"
	"github.com/nexcar/rwe-km/internal/cache"
	"github.com/nexcar/rwe-km/internal/config"
	"github.com/nexcar/rwe-km/internal/engine"
	"github.com/nexcar/rwe-km/internal/gradient"
	"github.com/nexcar/rwe-km/internal/metrics"
	"github.com/nexcar/rwe-km/internal/models"
	"github.com/nexcar/rwe-km/internal/persona"
	"github.com/nexcar/rwe-km/internal/render"
	"github.com/nexcar/rwe-km/internal/repo"
	"github.com/nexcar/rwe-km/internal/services"
	"github.com/nexcar/rwe-km/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting rwe-km",
		slog.String("grpc_address", cfg.Server.GRPCAddress),
		slog.String("http_address", cfg.Server.HTTPAddress),
		slog.String("backend", cfg.Backend.BaseURL))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	var cacheProvider cache.Provider = cache.NoopProvider{}
	if cfg.Cache.Enabled && cfg.Cache.Addr != "" {
		provider, err := cache.NewRedisProvider(cache.RedisConfig{
			Addr:         cfg.Cache.Addr,
			Username:     cfg.Cache.Username,
			Password:     cfg.Cache.Password,
			DB:           cfg.Cache.DB,
			DialTimeout:  cfg.Cache.DialTimeout,
			ReadTimeout:  cfg.Cache.ReadTimeout,
			WriteTimeout: cfg.Cache.WriteTimeout,
			MaxRetries:   cfg.Cache.MaxRetries,
			TLS:          cfg.Cache.TLS,
		})
		if err != nil {
			logger.Warn("redis cache unavailable", slog.Any("error", err))
		} else {
			cacheProvider = provider
		}
	}
	defer cacheProvider.Close()

	defaultQuery, err := initialQuery(cfg.Dashboard)
	if err != nil {
		logger.Error("invalid dashboard defaults", slog.Any("error", err))
		os.Exit(1)
	}

	layout, err := persona.LoadLayout(cfg.Dashboard.LayoutPath, logger)
	if err != nil {
		logger.Error("failed to load persona layout", slog.String("path", cfg.Dashboard.LayoutPath), slog.Any("error", err))
		os.Exit(1)
	}

	mapper, err := gradient.NewMapper(cfg.Dashboard.ColorMemoSize)
	if err != nil {
		logger.Error("failed to create colour mapper", slog.Any("error", err))
		os.Exit(1)
	}

	client := repo.NewSurvivalClient(repo.ClientOptions{
		BaseURL:      cfg.Backend.BaseURL,
		AnalysisPath: cfg.Backend.AnalysisPath,
		HealthPath:   cfg.Backend.HealthPath,
		Timeout:      cfg.Backend.Timeout,
		Cache:        cacheProvider,
		CacheTTL:     cfg.Cache.AnalysisTTL,
		Logger:       logger,
	})

	resolver := persona.NewResolver(logger)
	orchestrator := engine.New(engine.Options{
		Backend:  client,
		Resolver: resolver,
		Logger:   logger,
	})

	dashboard, err := services.NewDashboardService(services.Options{
		Logger:       logger,
		Orchestrator: orchestrator,
		Layout:       layout,
		Resolver:     resolver,
		Painter:      mapper,
		Scheme:       cfg.Dashboard.ColorScheme,
		Viewport:     render.Viewport(cfg.Dashboard.Viewport),
		DefaultQuery: defaultQuery,
	})
	if err != nil {
		logger.Error("failed to create dashboard service", slog.Any("error", err))
		os.Exit(1)
	}

	server, err := api.NewServer(cfg.Server, api.NewDashboardGRPC(logger, dashboard))
	if err != nil {
		logger.Error("failed to create gRPC server", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := api.NewHub(logger, dashboard)
	go hub.Run(ctx)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddress,
		Handler:           api.NewHTTPHandler(logger, dashboard, hub).NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("http server listening", slog.String("address", cfg.Server.HTTPAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", slog.Any("error", err))
			stop()
		}
	}()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	go func() {
		if serveErr := server.Start(); serveErr != nil {
			logger.Error("gRPC server exited", slog.Any("error", serveErr))
			stop()
		}
	}()

	// The dashboard opens on the default query; a dead backend yields the synthetic view.
	go func() {
		if _, err := dashboard.Load(ctx, defaultQuery); err != nil {
			logger.Warn("initial load failed", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	server.Shutdown(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("http server shutdown", slog.Any("error", err))
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	logger.Info("rwe-km stopped")
}

func initialQuery(cfg config.DashboardConfig) (models.Query, error) {
	indication, err := models.ParseIndication(cfg.Indication)
	if err != nil {
		return models.Query{}, err
	}
	analysis, err := models.ParseAnalysisType(cfg.AnalysisType)
	if err != nil {
		return models.Query{}, err
	}
	q := models.Query{
		Indication:     indication,
		AnalysisType:   analysis,
		TimelineMonths: cfg.TimelineMonths,
		Filters:        models.Filters{ActiveLevel: models.LevelGlobal},
	}
	return q, q.Validate()
}
