package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/flymebot/pkg/logging"
)

func TestLogSinkWritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(logging.NewWithWriter("info", &buf))
	sink.Track(context.Background(), Event{
		Name:           EventBookingRejected,
		ConversationID: "c1",
		Severity:       SeverityError,
		Properties:     map[string]any{"origin": "Paris"},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal([]byte(line["msg"].(string)), &evt))
	assert.Equal(t, EventBookingRejected, evt["event"])
	assert.Equal(t, "c1", evt["conversation_id"])
	assert.Equal(t, "Paris", evt["properties"].(map[string]any)["origin"])
}

func TestLogSinkNilSafe(t *testing.T) {
	var sink *LogSink
	sink.Track(context.Background(), Event{Name: "x"})
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Multi{a, nil, b}.Track(context.Background(), Event{Name: EventBookingConfirmed})
	require.Len(t, a.Events(), 1)
	require.Len(t, b.Named(EventBookingConfirmed), 1)
	assert.Empty(t, b.Named(EventBookingRejected))
}

type countingCounter struct {
	mu     sync.Mutex
	counts map[string]int
	drops  atomic.Int64
}

func (c *countingCounter) ObserveEvent(name, severity string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int{}
	}
	c.counts[name+"/"+severity]++
}

func (c *countingCounter) ObserveTelemetryDropped() { c.drops.Add(1) }

func TestMetricsSinkDefaultsSeverity(t *testing.T) {
	c := &countingCounter{}
	NewMetricsSink(c).Track(context.Background(), Event{Name: EventBookingConfirmed})
	assert.Equal(t, 1, c.counts["booking_confirmed/info"])

	var nilSink *MetricsSink
	nilSink.Track(context.Background(), Event{Name: "x"})
}

func TestPostgresSinkInserts(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	at := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec("INSERT INTO telemetry_events").
		WithArgs(pgxmock.AnyArg(), "c1", EventBookingRejected, "error", "Unhappy user", pgxmock.AnyArg(), at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sink := NewPostgresSink(mock, logging.Discard())
	sink.Track(context.Background(), Event{
		Name:           EventBookingRejected,
		Message:        "Unhappy user",
		ConversationID: "c1",
		Severity:       SeverityError,
		Properties:     map[string]any{"budget": "100€"},
		Time:           at,
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSinkSwallowsErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO telemetry_events").WillReturnError(errors.New("db down"))

	sink := NewPostgresSink(mock, logging.Discard())
	assert.NotPanics(t, func() {
		sink.Track(context.Background(), Event{Name: EventBookingConfirmed})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAsyncDeliversAndDrains(t *testing.T) {
	rec := &Recorder{}
	a := NewAsync(rec, 8, logging.Discard())
	for i := 0; i < 5; i++ {
		a.Track(context.Background(), Event{Name: EventBookingConfirmed})
	}
	require.NoError(t, a.Close(context.Background()))
	assert.Len(t, rec.Events(), 5)

	a.Track(context.Background(), Event{Name: "after-close"})
	assert.Len(t, rec.Events(), 5)
	require.NoError(t, a.Close(context.Background()))
}

func TestAsyncDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	blocking := SinkFunc(func(ctx context.Context, evt Event) { <-release })
	c := &countingCounter{}
	a := NewAsync(blocking, 1, logging.Discard(), WithDropCounter(c))

	start := time.Now()
	for i := 0; i < 10; i++ {
		a.Track(context.Background(), Event{Name: "e"})
	}
	assert.Less(t, time.Since(start), time.Second, "Track must not block")
	assert.GreaterOrEqual(t, c.drops.Load(), int64(8))

	close(release)
	require.NoError(t, a.Close(context.Background()))
}

func TestAsyncSurvivesPanickingSink(t *testing.T) {
	var calls atomic.Int64
	sink := SinkFunc(func(ctx context.Context, evt Event) {
		calls.Add(1)
		panic("boom")
	})
	a := NewAsync(sink, 4, logging.Discard())
	a.Track(context.Background(), Event{Name: "a"})
	a.Track(context.Background(), Event{Name: "b"})
	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, int64(2), calls.Load())
}
