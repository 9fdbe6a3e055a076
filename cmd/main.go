package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"

	"mymediarelease-backend/pkg/clients/subgraph"
	"mymediarelease-backend/pkg/httpServer"
	"mymediarelease-backend/pkg/notify"
	releasesRepository "mymediarelease-backend/pkg/repositories/releases"
	releasesService "mymediarelease-backend/pkg/services/releases"
	"mymediarelease-backend/pkg/workers"
	releasesworker "mymediarelease-backend/pkg/workers/releases"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() (err error) {
	// Tools
	config := loadConfig()
	if config == nil {
		fmt.Println("failed to load configuration")
		return
	}

	logLevel := slog.LevelInfo
	if level, ok := logLevels[config.System.LogLevel]; ok {
		logLevel = level
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	// Metrics
	dbRequestsCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Metrics.Namespace,
			Subsystem: config.Metrics.DbSubsystem,
			Name:      "db_requests_count",
			Help:      "Db requests count",
		},
		[]string{"method", "error"},
	)

	dbRequestsDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Metrics.Namespace,
			Subsystem: config.Metrics.DbSubsystem,
			Name:      "db_requests_duration",
			Help:      "Db requests duration",
		},
		[]string{"method", "error"},
	)

	serviceRequestsCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Metrics.Namespace,
			Subsystem: config.Metrics.ServiceSubsystem,
			Name:      "service_requests_count",
			Help:      "Release service requests count",
		},
		[]string{"method", "error"},
	)

	serviceRequestsDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Metrics.Namespace,
			Subsystem: config.Metrics.ServiceSubsystem,
			Name:      "service_requests_duration",
			Help:      "Release service requests duration",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
		[]string{"method", "error"},
	)

	workersRunCount := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Metrics.Namespace,
			Subsystem: config.Metrics.WorkersSubsystem,
			Name:      "workers_requests_count",
			Help:      "Workers requests count",
		},
		[]string{"method", "error"},
	)

	workersRunDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Metrics.Namespace,
			Subsystem: config.Metrics.WorkersSubsystem,
			Name:      "workers_requests_duration",
			Help:      "Workers requests duration",
		},
		[]string{"method", "error"},
	)

	prometheus.MustRegister(
		dbRequestsCount,
		dbRequestsDuration,
		serviceRequestsCount,
		serviceRequestsDuration,
		workersRunCount,
		workersRunDuration,
	)

	// Postgres
	connPool, err := connectPostgres(context.Background(), config, logger)
	if err != nil {
		logger.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		return
	}
	defer connPool.Close()

	// Database
	publishesRepo := releasesRepository.NewRepository(connPool)
	publishesRepo = releasesRepository.NewMetrics(dbRequestsCount, dbRequestsDuration, publishesRepo)

	// Clients
	resolver := newResolver(config)

	store, err := newContentStore(config, resolver, logger)
	if err != nil {
		logger.Error("failed to create content store", slog.String("error", err.Error()))
		return
	}

	chain, sess, err := connectChain(context.Background(), config, logger)
	if err != nil {
		logger.Error("failed to connect to chain", slog.String("error", err.Error()))
		return
	}

	index := subgraph.NewClient(config.Index.URL)

	// Notifications
	cancelCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub(config.Notify.ErrorTTL)
	hub.Subscribe(notify.NewLogObserver(logger))

	if config.Notify.RedisAddr != "" {
		redisClient, rErr := connectRedis(context.Background(), config)
		if rErr != nil {
			logger.Error("failed to connect to redis", slog.String("error", rErr.Error()))
			return rErr
		}
		defer redisClient.Close()

		redisObserver := notify.NewRedisObserver(redisClient, config.Notify.RedisChannel, config.Notify.RedisBuffer, logger)
		hub.Subscribe(redisObserver)
		go redisObserver.Run(cancelCtx)
	}

	historyLifetime := time.Duration(config.System.StoreHistoryDays) * 24 * time.Hour

	// Services
	releasesSvc := releasesService.NewService(
		store,
		chain,
		index,
		hub,
		publishesRepo,
		resolver,
		releasesService.Config{
			SharesTotal:       config.Chain.SharesTotal,
			PublishSuccessTTL: config.Notify.PublishSuccessTTL,
			PendingTTL:        config.Notify.PendingTTL,
			SuccessTTL:        config.Notify.SuccessTTL,
			WatchInterval:     config.Index.PollInterval,
		},
		logger,
	)
	releasesSvc = releasesService.NewMetrics(serviceRequestsCount, serviceRequestsDuration, releasesSvc)

	// Workers
	releasesWorker := releasesworker.NewWorker(
		publishesRepo,
		index,
		hub,
		config.Index.ReconcileBatch,
		config.Index.GiveUpAfter,
		historyLifetime,
		logger,
	)
	releasesWorker = releasesworker.NewMetrics(workersRunCount, workersRunDuration, releasesWorker)

	workers := workers.NewWorkers(releasesWorker, logger)
	go func() {
		if wErr := workers.Start(cancelCtx); wErr != nil {
			logger.Error("failed to start workers", slog.String("error", wErr.Error()))
			err = wErr
			return
		}
	}()

	// HTTP Server
	adminAuthTokens := strings.Split(config.System.AdminAuthTokens, ",")
	app := fiber.New(fiber.Config{BodyLimit: config.System.BodyLimitMB * 1024 * 1024})
	server := httpServer.New(
		app,
		releasesSvc,
		hub,
		sess,
		config.System.WatchTimeout,
		adminAuthTokens,
		config.Metrics.Namespace,
		config.Metrics.ServerSubsystem,
		logger,
	)

	server.RegisterRoutes()

	go func() {
		if err := app.Listen(":" + config.System.Port); err != nil {
			logger.Error("error starting server", slog.String("err", err.Error()))
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	<-signalChan
	cancel()

	err = app.ShutdownWithTimeout(time.Second * 5)
	if err != nil {
		logger.Error("server shut down error", slog.String("err", err.Error()))
		return err
	}

	return err
}
