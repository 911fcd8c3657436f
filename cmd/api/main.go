package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/geocoder89/taxdesk/internal/auth"
	"github.com/geocoder89/taxdesk/internal/cache"
	"github.com/geocoder89/taxdesk/internal/config"
	"github.com/geocoder89/taxdesk/internal/db"
	"github.com/geocoder89/taxdesk/internal/extraction"
	httpx "github.com/geocoder89/taxdesk/internal/http"
	"github.com/geocoder89/taxdesk/internal/ingest"
	"github.com/geocoder89/taxdesk/internal/observability"
	"github.com/geocoder89/taxdesk/internal/repo/postgres"
	"github.com/geocoder89/taxdesk/internal/storage"
	"github.com/geocoder89/taxdesk/internal/upstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx := context.Background()

	shutdownTracer, err := observability.InitTracer(ctx, cfg.ServiceName, cfg.OTelEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		log.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	prom := observability.NewProm(reg)

	profiles := cache.NewProfileCache(newCacheStore(ctx, cfg, log), log)

	staging, err := storage.New(ctx, storage.Config{
		Type:         storage.Type(cfg.StorageType),
		LocalPath:    cfg.StorageLocalDir,
		S3Bucket:     cfg.S3Bucket,
		S3Region:     cfg.S3Region,
		AWSAccessKey: cfg.AWSAccessKey,
		AWSSecretKey: cfg.AWSSecretKey,
	})
	if err != nil {
		log.Error("staging storage init failed", "err", err)
		os.Exit(1)
	}

	// flips on SIGTERM so load balancers stop routing before Shutdown
	var draining atomic.Bool

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	recordsRepo := postgres.NewExtractedDataRepo(pool, prom)

	extractionPool := extraction.NewPool(
		extraction.NewExecRunner(log),
		extraction.PoolConfig{
			Concurrency:  cfg.ExtractionConcurrency,
			TaskTimeout:  cfg.ExtractionTaskTimeout,
			QueueTimeout: cfg.ExtractionQueueTimeout,
		},
		observability.NewPoolStats(),
		prom,
		log,
	)

	pipelines, err := loadPipelines(cfg)
	if err != nil {
		log.Error("extraction pipelines invalid", "err", err)
		os.Exit(1)
	}

	ingestSvc := ingest.NewService(staging, extractionPool, recordsRepo, log, pipelines...)

	upstreams := upstream.NewClient(upstream.Config{
		ReportURL:   cfg.ReportServiceURL,
		AIReportURL: cfg.AIReportServiceURL,
		ChatURL:     cfg.ChatServiceURL,
		Timeout:     cfg.UpstreamTimeout,
	}, prom, log)

	router := httpx.NewRouter(httpx.Deps{
		Config:     cfg,
		Log:        log,
		Prom:       prom,
		Gatherer:   reg,
		JWT:        auth.NewManager(cfg.JWTSecret, cfg.TokenTTL),
		Users:      usersRepo,
		Profiles:   profiles,
		Ingester:   ingestSvc,
		Records:    recordsRepo,
		Report:     upstreams.Report,
		AIReport:   upstreams.AIReport,
		Chat:       upstreams,
		DB:         pool,
		Extraction: extractionPool,
		Draining:   draining.Load,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		// uploads wait for a worker slot and then for the extractor
		WriteTimeout: cfg.ExtractionQueueTimeout + cfg.ExtractionTaskTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	draining.Store(true)
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		// in-flight extractions get their full task budget
		ctx, cancel := config.WithTimeout(cfg.ExtractionTaskTimeout + 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(cfg.ExtractionTaskTimeout + 10*time.Second):
		log.Error("shutdown timed out")
	}
}

// newCacheStore prefers Redis so profile entries are shared across replicas,
// and falls back to process memory when Redis is not configured or is down.
func newCacheStore(ctx context.Context, cfg config.Config, log *slog.Logger) cache.Store {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(cfg.ProfileCacheTTL)
	}

	rdb := cache.NewRedis(cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.ProfileCacheTTL,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx); err != nil {
		log.Warn("redis unavailable, using in-memory profile cache", "addr", cfg.RedisAddr, "err", err)
		_ = rdb.Close()
		return cache.NewMemory(cfg.ProfileCacheTTL)
	}

	return rdb
}

func loadPipelines(cfg config.Config) ([]extraction.Pipeline, error) {
	pipelines := []extraction.Pipeline{
		extraction.BillsPipeline(cfg.ExtractorCommand, cfg.BillsExtractorScript),
		extraction.SalaryPipeline(cfg.ExtractorCommand, cfg.SalaryExtractorScript),
	}

	if cfg.ExtractorAliasesFile == "" {
		return pipelines, nil
	}

	overrides, err := extraction.LoadAliasOverrides(cfg.ExtractorAliasesFile)
	if err != nil {
		return nil, err
	}
	return overrides.Apply(pipelines...)
}
