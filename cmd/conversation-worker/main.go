package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/flymebot/cmd/mainconfig"
	"github.com/wolfman30/flymebot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/flymebot/internal/config"
	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/internal/observability/metrics"
	"github.com/wolfman30/flymebot/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.UseMemoryQueue {
		logger.Error("conversation worker needs SQS; USE_MEMORY_QUEUE runs the worker inside the API")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	awsConfig, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	botMetrics := metrics.NewBotMetrics(reg)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient == nil {
		logger.Warn("worker running without redis; dialog state is not shared with other processes")
	}
	pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	sink := bootstrap.BuildTelemetry(cfg, pool, botMetrics, logger)

	rec, recCloser, err := bootstrap.BuildRecognizer(ctx, cfg, botMetrics, logger)
	if err != nil {
		logger.Error("failed to build recognizer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = recCloser.Close() }()

	b, err := bootstrap.BuildBot(cfg, bootstrap.BotParams{
		Store:      bootstrap.BuildStateStore(cfg, redisClient, logger),
		Transcript: conversation.NewTranscriptStore(redisClient),
		Recognizer: rec,
		Telemetry:  sink,
		Metrics:    botMetrics,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to build bot", "error", err)
		os.Exit(1)
	}

	pipeline, err := bootstrap.BuildPipeline(ctx, cfg, awsConfig, bootstrap.PipelineParams{
		Service:   b,
		Resetter:  b,
		RunWorker: true,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	metricsSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down conversation worker...")
	cancel()

	doneCtx, doneCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer doneCancel()
	_ = metricsSrv.Shutdown(doneCtx)

	waitCh := make(chan struct{})
	go func() {
		pipeline.Worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
	case <-doneCtx.Done():
		logger.Error("conversation worker shutdown timed out", "error", doneCtx.Err())
	}

	if err := sink.Close(doneCtx); err != nil {
		logger.Warn("telemetry flush incomplete", "error", err)
	}
	if pool != nil {
		pool.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
