package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/FACorreiaa/unit-price-tracker/internal/domain/extract/normalizer"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/handler"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/search"
	"github.com/FACorreiaa/unit-price-tracker/internal/domain/prices/service"
	"github.com/FACorreiaa/unit-price-tracker/pkg/config"
	"github.com/FACorreiaa/unit-price-tracker/pkg/cron"
	"github.com/FACorreiaa/unit-price-tracker/pkg/ocr"
	"github.com/FACorreiaa/unit-price-tracker/pkg/router"
	"github.com/FACorreiaa/unit-price-tracker/pkg/storage"
)

const refreshJob = "cache-refresh"

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *slog.Logger

	Registry    *prometheus.Registry
	FileStorage storage.Storage
	SearchIndex *search.Index
	OCREngine   *ocr.Engine // nil when OCR is not compiled in

	// Services
	PriceService *service.PriceService
	Scheduler    *cron.Scheduler

	// Handlers
	PriceHandler *handler.PriceHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	if err := deps.initServices(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initScheduler(); err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to init scheduler: %w", err)
	}

	deps.PriceHandler = handler.NewPriceHandler(deps.PriceService)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

func (d *Dependencies) initStorage() error {
	fileStorage, err := storage.New(&storage.Config{
		Type:      storage.StorageTypeLocal,
		LocalPath: d.Config.Data.Dir,
	})
	if err != nil {
		return err
	}
	d.FileStorage = fileStorage

	d.Logger.Info("data storage ready", slog.String("dir", d.Config.Data.Dir))
	return nil
}

// initServices wires the price service with search, OCR and metrics
func (d *Dependencies) initServices() error {
	policy, err := normalizer.ParsePolicy(d.Config.Data.ConflictPolicy)
	if err != nil {
		return err
	}

	sources := make(map[string]service.Source, len(d.Config.Data.Sources))
	for name, src := range d.Config.Data.Sources {
		sources[name] = service.Source{
			Markdown: src.Markdown,
			Fallback: src.Fallback,
			Seeds:    src.Seeds,
		}
	}

	svc, err := service.NewPriceService(d.FileStorage, sources, d.Logger)
	if err != nil {
		return err
	}
	svc.WithConflictPolicy(policy).WithWorkers(d.Config.Data.Workers)

	d.SearchIndex, err = search.NewIndex(d.Config.Search.IndexPath)
	if err != nil {
		return fmt.Errorf("failed to open search index: %w", err)
	}
	svc.WithSearchIndex(d.SearchIndex)

	engine, err := ocr.NewEngine(ocr.Options{
		Languages:   ocr.ParseLanguages(d.Config.OCR.Languages),
		PageSegMode: ocr.PageSegMode(d.Config.OCR.PageSegMode),
	})
	switch {
	case errors.Is(err, ocr.ErrOCRNotEnabled):
		d.Logger.Warn("OCR disabled; image documents will be rejected")
	case err != nil:
		return fmt.Errorf("failed to start OCR engine: %w", err)
	default:
		d.OCREngine = engine
		svc.WithRecognizer(engine)
	}

	d.Registry = prometheus.NewRegistry()
	if d.Config.Observability.MetricsEnabled {
		d.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		svc.WithMetrics(service.NewMetrics(d.Registry))
	}

	d.PriceService = svc
	d.Logger.Info("services initialized",
		slog.String("conflict_policy", policy.String()),
		slog.Int("workers", d.Config.Data.Workers),
		slog.Bool("ocr", d.OCREngine != nil),
	)
	return nil
}

// initScheduler registers the cache refresh when a schedule is configured
func (d *Dependencies) initScheduler() error {
	d.Scheduler = cron.NewScheduler(10*time.Minute, d.Logger)
	if d.Config.Cache.RefreshCron == "" {
		return nil
	}
	return d.Scheduler.AddJob(d.Config.Cache.RefreshCron, refreshJob, d.PriceService.Refresh)
}

// Router builds the HTTP handler: API routes, health, metrics and CORS
func (d *Dependencies) Router() http.Handler {
	r := router.New(d.Logger)
	r.GET("/healthz", func(context.Context, *http.Request) (any, error) {
		return map[string]string{"status": "ok"}, nil
	})
	if d.Config.Observability.MetricsEnabled {
		r.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{Registry: d.Registry}))
	}

	r.Use(router.RateLimit(d.Config.Server.RateLimitPerSecond, d.Config.Server.RateLimitBurst))
	d.PriceHandler.Register(r)

	return cors.New(cors.Options{
		AllowedOrigins: d.Config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", router.HeaderRequestID, router.HeaderCorrelationID},
		ExposedHeaders: []string{router.HeaderRequestID, "Content-Disposition"},
		MaxAge:         300,
	}).Handler(r)
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.SearchIndex != nil {
		if err := d.SearchIndex.Close(); err != nil {
			d.Logger.Warn("failed to close search index", slog.Any("error", err))
		}
	}
	if d.OCREngine != nil {
		if err := d.OCREngine.Close(); err != nil {
			d.Logger.Warn("failed to close OCR engine", slog.Any("error", err))
		}
	}
	d.Logger.Info("cleanup completed")
}
