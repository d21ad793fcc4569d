package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lumbrjx/codek7/streaming/internal/api"
	"github.com/lumbrjx/codek7/streaming/internal/config"
	"github.com/lumbrjx/codek7/streaming/internal/hls"
	"github.com/lumbrjx/codek7/streaming/internal/infra"
	"github.com/lumbrjx/codek7/streaming/internal/probe"
	"github.com/lumbrjx/codek7/streaming/internal/repository"
	"github.com/lumbrjx/codek7/streaming/internal/server"
	"github.com/lumbrjx/codek7/streaming/internal/service"
	"github.com/lumbrjx/codek7/streaming/internal/storage"
	"github.com/lumbrjx/codek7/streaming/internal/watcher"
	"github.com/lumbrjx/codek7/streaming/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Logger.Error("Failed to load config", "error", err.Error())
		os.Exit(1)
	}
	logger.SetLevel(logger.LogLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === PostgreSQL ===
	pool, err := repository.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Logger.Error("Failed to init Postgres", "error", err.Error())
		os.Exit(1)
	}
	defer pool.Close()
	repo := repository.NewStreamingRepository(pool)

	// === Storage ===
	local := storage.NewLocalStore(cfg.Storage.StreamingDir, cfg.Storage.PublicBaseURL)
	artifacts := &storage.Artifacts{Local: local}

	var objects api.ObjectReader
	if cfg.Minio.Enabled {
		minioClient, err := storage.New(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.Bucket, cfg.Minio.BaseURL, cfg.Minio.UseSSL)
		if err != nil {
			logger.Logger.Error("Failed to init MinIO", "error", err.Error())
			os.Exit(1)
		}
		artifacts.Object = storage.NewObjectStore(minioClient, cfg.Storage.TmpDir)
		objects = minioClient
	}

	// === HLS ===
	queue := hls.NewMutationQueue(cfg.HLS.MutationTimeout)
	defer queue.Close()

	master := hls.NewMasterBuilder(probe.NewFFProbe(cfg.HLS.FFProbePath), artifacts, artifacts, repo)
	integrity := hls.NewIntegrityBuilder(artifacts, artifacts, repo, cfg.HLS.HashConcurrency)
	importer := hls.NewImporter(infra.NewImportHTTPClient(), cfg.HLS.DownloadConcurrency)

	// === Notifications ===
	var notifier service.Notifier
	if cfg.RabbitMQ.URL != "" {
		sender, err := watcher.NewNotificationSender(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			logger.Logger.Error("Failed to init RabbitMQ notifications", "error", err.Error())
			os.Exit(1)
		}
		defer sender.Close()
		notifier = sender
	} else {
		logger.Logger.Warn("RMQ_HOST not set, notifications disabled")
	}

	svc := service.NewStreamingService(repo, master, integrity, importer, queue, notifier, service.Options{
		ImportRoot:      cfg.Storage.ImportDir,
		DefaultTimeout:  cfg.HLS.ImportTimeout,
		DefaultBudgetKB: cfg.HLS.ImportBudgetKB,
	})

	// === Kafka watcher ===
	reader, err := infra.MakeKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	if err != nil {
		logger.Logger.Error("Failed to init Kafka reader", "error", err.Error())
		os.Exit(1)
	}
	w := watcher.NewWatcher(reader, svc)
	w.Start(ctx)
	defer func() {
		if err := w.Close(); err != nil {
			logger.Logger.Error("Error closing watcher", "error", err.Error())
		}
	}()

	// === Redis ===
	rdb, err := infra.RDBConnect(cfg.Redis.Addr, cfg.Redis.Password)
	if err != nil {
		logger.Logger.Error("Failed to init Redis", "error", err.Error())
		os.Exit(1)
	}
	defer rdb.Close()

	// === gRPC health ===
	health, err := infra.NewHealthServer(cfg.GRPCHealthAddr)
	if err != nil {
		logger.Logger.Error("Failed to listen for gRPC health", "error", err.Error())
		os.Exit(1)
	}
	go func() {
		logger.Logger.Info("gRPC health server listening", "addr", health.Addr())
		if err := health.Serve(); err != nil {
			logger.Logger.Error("gRPC health server stopped", "error", err.Error())
		}
	}()
	health.SetServing(true)
	defer health.Stop()

	// === HTTP ===
	srv := server.NewServer(&api.API{Service: svc, Objects: objects}, server.Options{
		Port:             cfg.HTTP.Port,
		JWTSecret:        cfg.HTTP.JWTSecret,
		StaticDir:        local.Root(),
		RateLimiter:      rdb,
		ImportRateLimit:  cfg.HTTP.ImportRateLimit,
		ImportRateWindow: cfg.HTTP.ImportRateEvery,
	})

	if err := srv.Start(ctx); err != nil {
		logger.Logger.Error("HTTP server error", "error", err.Error())
	}
	health.SetServing(false)
}
