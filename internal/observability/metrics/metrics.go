package metrics

import "github.com/prometheus/client_golang/prometheus"

// BotMetrics exposes counters/histograms for dialog turns and bookings.
type BotMetrics struct {
	turnsTotal     *prometheus.CounterVec
	turnLatency    *prometheus.HistogramVec
	promptsTotal   *prometheus.CounterVec
	eventsTotal    *prometheus.CounterVec
	droppedTotal   prometheus.Counter
	recognizeTotal *prometheus.CounterVec
}

func NewBotMetrics(reg prometheus.Registerer) *BotMetrics {
	m := &BotMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flymebot",
			Subsystem: "dialog",
			Name:      "turns_total",
			Help:      "Total dialog turns by outcome",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flymebot",
			Subsystem: "dialog",
			Name:      "turn_seconds",
			Help:      "Latency of a full dialog turn including state load and save",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		promptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flymebot",
			Subsystem: "dialog",
			Name:      "prompts_total",
			Help:      "Prompts issued by the active dialog kind",
		}, []string{"dialog"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flymebot",
			Subsystem: "telemetry",
			Name:      "events_total",
			Help:      "Telemetry events by name and severity",
		}, []string{"event", "severity"}),
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flymebot",
			Subsystem: "telemetry",
			Name:      "dropped_total",
			Help:      "Telemetry events dropped because the buffer was full",
		}),
		recognizeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flymebot",
			Subsystem: "recognizer",
			Name:      "requests_total",
			Help:      "Intent recognition calls by provider and status",
		}, []string{"provider", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.turnLatency, m.promptsTotal, m.eventsTotal, m.droppedTotal, m.recognizeTotal)
	return m
}

func (m *BotMetrics) ObserveTurn(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *BotMetrics) ObservePrompt(dialog string) {
	if m == nil {
		return
	}
	m.promptsTotal.WithLabelValues(dialog).Inc()
}

func (m *BotMetrics) ObserveEvent(name, severity string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(name, severity).Inc()
}

func (m *BotMetrics) ObserveTelemetryDropped() {
	if m == nil {
		return
	}
	m.droppedTotal.Inc()
}

func (m *BotMetrics) ObserveRecognition(provider, status string) {
	if m == nil {
		return
	}
	m.recognizeTotal.WithLabelValues(provider, status).Inc()
}
