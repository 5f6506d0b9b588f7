package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/flymebot/pkg/logging"
)

// execer is the part of pgxpool.Pool the sink needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertEventSQL = `
	INSERT INTO telemetry_events (id, conversation_id, name, severity, message, properties, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// PostgresSink appends events to the telemetry_events table. Insert
// failures are logged and dropped.
type PostgresSink struct {
	db      execer
	logger  *logging.Logger
	timeout time.Duration
}

// NewPostgresSink wraps a pgx pool (or anything with Exec).
func NewPostgresSink(db execer, logger *logging.Logger) *PostgresSink {
	if db == nil {
		panic("telemetry: database required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PostgresSink{db: db, logger: logger, timeout: 5 * time.Second}
}

func (s *PostgresSink) Track(ctx context.Context, evt Event) {
	evt = stamp(evt)
	props := evt.Properties
	if props == nil {
		props = map[string]any{}
	}
	data, err := json.Marshal(props)
	if err != nil {
		s.logger.Warn("telemetry: marshal properties", "event", evt.Name, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	if _, err := s.db.Exec(ctx, insertEventSQL,
		uuid.New(), evt.ConversationID, evt.Name, string(evt.Severity), evt.Message, data, evt.Time,
	); err != nil {
		s.logger.Warn("telemetry: insert event failed", "event", evt.Name, "error", err)
	}
}
