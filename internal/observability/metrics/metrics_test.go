package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBotMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBotMetrics(reg)
	m.ObserveTurn("waiting", 0.02)
	m.ObserveTurn("waiting", 0.03)
	m.ObservePrompt("booking")
	m.ObserveEvent("booking_confirmed", "info")
	m.ObserveTelemetryDropped()
	m.ObserveRecognition("pattern", "ok")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.turnsTotal.WithLabelValues("waiting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("booking_confirmed", "info")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.droppedTotal))
}

func TestBotMetricsDefaultRegistry(t *testing.T) {
	m := NewBotMetrics(nil)
	m.ObserveTurn("complete", 0.5)
}

func TestBotMetricsNilSafe(t *testing.T) {
	var m *BotMetrics
	m.ObserveTurn("waiting", 0.1)
	m.ObservePrompt("main")
	m.ObserveEvent("x", "info")
	m.ObserveTelemetryDropped()
	m.ObserveRecognition("pattern", "error")
}
