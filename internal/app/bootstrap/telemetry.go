package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"

	appconfig "github.com/wolfman30/flymebot/internal/config"
	"github.com/wolfman30/flymebot/internal/observability/metrics"
	"github.com/wolfman30/flymebot/internal/telemetry"
	"github.com/wolfman30/flymebot/pkg/logging"
)

// BuildTelemetry fans events out to the log, Prometheus and, when a pool is
// given, the telemetry_events table. Delivery is asynchronous; callers Close
// the returned sink on shutdown to flush it.
func BuildTelemetry(cfg *appconfig.Config, pool *pgxpool.Pool, botMetrics *metrics.BotMetrics, logger *logging.Logger) *telemetry.Async {
	if logger == nil {
		logger = logging.Default()
	}
	buffer := 0
	if cfg != nil {
		buffer = cfg.TelemetryBuffer
	}

	sinks := telemetry.Multi{telemetry.NewLogSink(logger)}
	var opts []telemetry.AsyncOption
	if botMetrics != nil {
		sinks = append(sinks, telemetry.NewMetricsSink(botMetrics))
		opts = append(opts, telemetry.WithDropCounter(botMetrics))
	}
	if pool != nil {
		sinks = append(sinks, telemetry.NewPostgresSink(pool, logger))
		logger.Info("telemetry events persisted to postgres")
	}
	return telemetry.NewAsync(sinks, buffer, logger, opts...)
}
