package telemetry

import "context"

// EventCounter counts events by name and severity.
type EventCounter interface {
	ObserveEvent(name, severity string)
}

// MetricsSink turns events into counter increments.
type MetricsSink struct {
	counter EventCounter
}

func NewMetricsSink(counter EventCounter) *MetricsSink {
	return &MetricsSink{counter: counter}
}

func (s *MetricsSink) Track(_ context.Context, evt Event) {
	if s == nil || s.counter == nil {
		return
	}
	evt = stamp(evt)
	s.counter.ObserveEvent(evt.Name, string(evt.Severity))
}
