package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/flymebot/cmd/mainconfig"
	"github.com/wolfman30/flymebot/internal/api/router"
	"github.com/wolfman30/flymebot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/flymebot/internal/config"
	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/internal/http/handlers"
	"github.com/wolfman30/flymebot/internal/observability/metrics"
	"github.com/wolfman30/flymebot/internal/webchat"
	"github.com/wolfman30/flymebot/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting flymebot API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"recognizer", cfg.RecognizerProvider,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := setup(ctx, cfg, prometheus.NewRegistry(), logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	app.close(shutdownCtx)

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type application struct {
	handler http.Handler
	closers []func(ctx context.Context)
}

func (a *application) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
}

// setup wires every dependency from config. Optional backends that are not
// reachable degrade to in-process implementations.
func setup(ctx context.Context, cfg *appconfig.Config, reg *prometheus.Registry, logger *logging.Logger) (*application, error) {
	app := &application{}
	botMetrics := metrics.NewBotMetrics(reg)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		app.closers = append(app.closers, func(context.Context) { _ = redisClient.Close() })
	}
	pool := bootstrap.BuildPostgresPool(ctx, cfg.DatabaseURL, logger)
	var db pinger
	if pool != nil {
		db = pool
		app.closers = append(app.closers, func(context.Context) { pool.Close() })
	}

	sink := bootstrap.BuildTelemetry(cfg, pool, botMetrics, logger)
	app.closers = append(app.closers, func(ctx context.Context) {
		if err := sink.Close(ctx); err != nil {
			logger.Warn("telemetry flush incomplete", "error", err)
		}
	})

	rec, recCloser, err := bootstrap.BuildRecognizer(ctx, cfg, botMetrics, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func(context.Context) { _ = recCloser.Close() })

	transcript := conversation.NewTranscriptStore(redisClient)
	b, err := bootstrap.BuildBot(cfg, bootstrap.BotParams{
		Store:      bootstrap.BuildStateStore(cfg, redisClient, logger),
		Transcript: transcript,
		Recognizer: rec,
		Telemetry:  sink,
		Metrics:    botMetrics,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// The chat handler needs the publisher and the worker needs the chat
	// messenger, so the messenger resolves the handler lazily.
	chatMessenger := &lazyMessenger{}
	pipeline, err := bootstrap.BuildPipeline(ctx, cfg, awsCfg, bootstrap.PipelineParams{
		Service:   b,
		Resetter:  b,
		Messenger: chatMessenger,
		RunWorker: cfg.InlineWorker,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	if pipeline.Worker != nil {
		app.closers = append(app.closers, func(ctx context.Context) { waitForWorker(ctx, pipeline.Worker, logger) })
	}

	var history webchat.HistoryReader
	admin := handlers.NewAdminConversationsHandler(b, nil, logger)
	if transcript != nil {
		history = transcript
		admin = handlers.NewAdminConversationsHandler(b, transcript, logger)
		if archiver := bootstrap.BuildArchiver(cfg, awsCfg, transcript, logger); archiver != nil {
			admin = admin.WithArchiver(archiver)
		}
	}
	chat := webchat.NewHandler(pipeline.Publisher, history, logger)
	chatMessenger.next = webchat.NewReplyMessenger(chat, logger)

	app.handler = router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(b, pipeline.Publisher, pipeline.Jobs, logger),
		WebChat:             chat,
		AdminConversations:  admin,
		AdminAuthSecret:     cfg.AdminJWTSecret,
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		HealthChecks:        healthChecks(redisClient, db),
		ChatRateLimit:       cfg.ChatRateLimit,
		ChatRateBurst:       cfg.ChatRateBurst,
	})
	return app, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func healthChecks(redisClient *redis.Client, db pinger) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	if db != nil {
		checks["postgres"] = db.Ping
	}
	return checks
}

// lazyMessenger forwards to a messenger assigned after construction.
type lazyMessenger struct {
	next conversation.ReplyMessenger
}

func (m *lazyMessenger) Deliver(ctx context.Context, resp *conversation.Response) error {
	if m.next == nil {
		return nil
	}
	return m.next.Deliver(ctx, resp)
}

func waitForWorker(ctx context.Context, worker *conversation.Worker, logger *logging.Logger) {
	done := make(chan struct{})
	go func() {
		worker.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("inline conversation worker stopped")
	case <-ctx.Done():
		logger.Error("inline conversation worker shutdown timed out", "error", ctx.Err())
	}
}
