package telemetry

import (
	"context"
	"encoding/json"

	"github.com/wolfman30/flymebot/pkg/logging"
)

// LogSink writes each event as one JSON log line so events can be grepped:
//
//	grep '"event":"booking_rejected"' /var/log/flymebot.log
type LogSink struct {
	logger *logging.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Track(ctx context.Context, evt Event) {
	if s == nil || s.logger == nil {
		return
	}
	evt = stamp(evt)
	b, err := json.Marshal(evt)
	if err != nil {
		s.logger.Warn("telemetry: marshal event", "event", evt.Name, "error", err)
		return
	}
	switch evt.Severity {
	case SeverityError:
		s.logger.ErrorContext(ctx, string(b))
	case SeverityWarning:
		s.logger.WarnContext(ctx, string(b))
	default:
		s.logger.InfoContext(ctx, string(b))
	}
}
