package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dreschagin/seqpulse/internal/application/port"
	"github.com/dreschagin/seqpulse/internal/application/usecase"
	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/service"
	redisCache "github.com/dreschagin/seqpulse/internal/infrastructure/cache/redis"
	"github.com/dreschagin/seqpulse/internal/infrastructure/collector"
	natsMessaging "github.com/dreschagin/seqpulse/internal/infrastructure/messaging/nats"
	wsInfra "github.com/dreschagin/seqpulse/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/seqpulse/internal/infrastructure/observability/cloudwatch"
	"github.com/dreschagin/seqpulse/internal/infrastructure/persistence/postgres"
	"github.com/dreschagin/seqpulse/internal/infrastructure/scheduler"
	"github.com/dreschagin/seqpulse/internal/infrastructure/selfmetrics"
	"github.com/dreschagin/seqpulse/internal/interfaces/http/handler"
	"github.com/dreschagin/seqpulse/pkg/config"
	"github.com/dreschagin/seqpulse/pkg/logger"

	_ "github.com/lib/pq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Getenv("LOG_LEVEL"))
	log.Info("Starting SeqPulse")

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Error("Failed to connect to database", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", err)
		os.Exit(1)
	}
	log.Info("Database connected successfully")

	if err := postgres.Migrate(db); err != nil {
		log.Error("Failed to apply migrations", err)
		os.Exit(1)
	}
	log.Info("Database schema up to date")

	// Infrastructure layer

	projectRepository := postgres.NewPostgresProjectRepository(db)
	releaseRepository := postgres.NewPostgresReleaseRepository(db)
	jobRepository := postgres.NewPostgresJobRepository(db)
	sampleRepository := postgres.NewPostgresSampleRepository(db)
	verdictRepository := postgres.NewPostgresVerdictRepository(db)
	hintRepository := postgres.NewPostgresHintRepository(db)

	metricSource := collector.NewHTTPCollector(cfg.Collector.RequestTimeout, log.Component("collector"))

	var cache port.Cache
	if cfg.Redis.Enabled {
		redis, err := redisCache.NewRedisCache(
			cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB,
			cfg.Redis.TTL, cfg.Redis.PoolSize, cfg.Redis.MinIdleConns,
			cfg.Redis.DialTimeout, cfg.Redis.ReadTimeout, cfg.Redis.WriteTimeout,
		)
		if err != nil {
			log.Error("Failed to connect to Redis", err)
			os.Exit(1)
		}
		defer redis.Close()
		cache = redis
		log.Info("Redis cache connected")
	} else {
		log.Warn("Redis disabled, hint listings are uncached")
	}

	var events port.EventPublisher
	if cfg.NATS.Enabled {
		publisher, err := natsMessaging.NewNATSPublisher(cfg.NATS.URL, log.Component("nats"))
		if err != nil {
			log.Error("Failed to connect to NATS", err)
			os.Exit(1)
		}
		defer publisher.Close()
		events = publisher
	} else {
		log.Warn("NATS disabled, verdict events are not published")
	}

	var stats port.StatsPublisher
	if cfg.CloudWatch.Enabled {
		publisher, err := cloudwatch.NewStatsPublisher(context.Background(), cloudwatch.StatsPublisherConfig{
			Namespace:       cfg.CloudWatch.Namespace,
			Region:          cfg.CloudWatch.Region,
			Endpoint:        cfg.CloudWatch.Endpoint,
			AccessKeyID:     cfg.CloudWatch.AccessKeyID,
			SecretAccessKey: cfg.CloudWatch.SecretAccessKey,
			FlushInterval:   cfg.CloudWatch.FlushInterval,
		}, log.Component("cloudwatch"))
		if err != nil {
			log.Error("Failed to initialize CloudWatch publisher", err)
			os.Exit(1)
		}
		defer func() {
			if err := publisher.Close(context.Background()); err != nil {
				log.Error("Failed to close CloudWatch publisher", err)
			}
		}()
		stats = publisher
	}

	hub := wsInfra.NewHub(log.Component("websocket"))

	// Domain layer

	analyzer := service.NewHealthAnalyzer()
	generator := service.NewHintGenerator()
	validator := service.NewSampleValidator()

	// Application layer

	collectSampleUC := usecase.NewCollectSampleUseCase(metricSource, sampleRepository, validator, log)

	analyzeReleaseUC := usecase.NewAnalyzeReleaseUseCase(
		releaseRepository,
		sampleRepository,
		verdictRepository,
		hintRepository,
		jobRepository,
		analyzer,
		generator,
		usecase.AnalyzeReleaseOptions{
			Cache:        cache,
			Events:       events,
			Stats:        stats,
			EventSubject: cfg.NATS.Subject,
		},
		log,
	)

	deliverNotificationUC := usecase.NewDeliverNotificationUseCase(hub, log)

	triggerReleaseUC := usecase.NewTriggerReleaseUseCase(projectRepository, releaseRepository, jobRepository, log)
	finishReleaseUC := usecase.NewFinishReleaseUseCase(projectRepository, releaseRepository, jobRepository, log)
	listHintsUC := usecase.NewListHintsUseCase(hintRepository, cache, log)

	// Scheduler

	poller := scheduler.NewPoller(jobRepository, scheduler.Config{
		PollInterval:   cfg.Scheduler.PollInterval,
		BatchSize:      cfg.Scheduler.BatchSize,
		StuckThreshold: cfg.Scheduler.StuckThreshold,
		MaxRetries:     cfg.Scheduler.MaxRetries,
	}, stats, log.Component("scheduler"))

	collectHandler := func(ctx context.Context, job *entity.Job) error {
		payload, err := job.DecodeCollectPayload()
		if err != nil {
			return err
		}
		if job.ReleaseID == nil {
			return fmt.Errorf("collect job %s has no release", job.ID)
		}
		return collectSampleUC.Execute(ctx, usecase.CollectSampleCommand{
			ReleaseID: *job.ReleaseID,
			Phase:     job.Phase,
			Payload:   payload,
		})
	}
	poller.Register(entity.JobKindPreCollect, collectHandler)
	poller.Register(entity.JobKindPostCollect, collectHandler)

	poller.Register(entity.JobKindAnalysis, func(ctx context.Context, job *entity.Job) error {
		if job.ReleaseID == nil {
			return fmt.Errorf("analysis job %s has no release", job.ID)
		}
		_, err := analyzeReleaseUC.Execute(ctx, *job.ReleaseID)
		return err
	})

	poller.Register(entity.JobKindNotify, func(ctx context.Context, job *entity.Job) error {
		payload, err := job.DecodeNotifyPayload()
		if err != nil {
			return err
		}
		return deliverNotificationUC.Execute(ctx, payload)
	})

	// Background processes

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go hub.Run()
	go poller.Start(ctx)

	// HTTP surface: websocket subscriptions, health, optional signed probe.

	recorder := selfmetrics.NewRequestRecorder(0)

	mux := http.NewServeMux()

	apiHandler := handler.NewPipelineAPIHandler(triggerReleaseUC, finishReleaseUC, listHintsUC, verdictRepository, log.Component("api"))
	apiHandler.Register(mux)

	mux.Handle("/ws", wsInfra.NewHandler(hub, cfg.Server.AllowedOrigins, log.Component("websocket")))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if cfg.Probe.Enabled {
		verifier := selfmetrics.NewSignatureVerifier(cfg.Probe.SigningSecret, cache)
		probe := selfmetrics.NewHandler(
			recorder,
			verifier,
			cfg.Probe.RateLimitPerSecond,
			cfg.Probe.RateLimitBurst,
			log.Component("probe"),
		)
		mux.Handle("/probe/metrics", probe)
		log.Info("Signed metrics probe enabled", "path", "/probe/metrics")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      recorder.Middleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", err)
			os.Exit(1)
		}
	}()

	<-sigChan
	log.Info("Shutdown signal received, starting graceful shutdown...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", err)
	}

	log.Info("Server stopped gracefully")
}
