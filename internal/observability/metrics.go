package observability

import (
	"fmt"
	"time"
)

// Metrics summarizes command outcomes recorded in the event log.
type Metrics struct {
	CommandsOpened   int            `json:"commands_opened"`
	IssuesCreated    int            `json:"issues_created"`
	CommandsAborted  int            `json:"commands_aborted"`
	CommandsFailed   int            `json:"commands_failed"`
	CommandsEmpty    int            `json:"commands_empty"`
	OmissionsByField map[string]int `json:"omissions_by_field"`
	AbortsByReason   map[string]int `json:"aborts_by_reason"`
	AvgLatencyMs     int64          `json:"avg_latency_ms"`
	MaxLatencyMs     int64          `json:"max_latency_ms"`
	EventCount       int            `json:"event_count"`
	OldestEvent      *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent      *time.Time     `json:"newest_event,omitempty"`
}

// Finalized is the number of commands that reached a terminal outcome.
func (m *Metrics) Finalized() int {
	return m.IssuesCreated + m.CommandsAborted + m.CommandsFailed + m.CommandsEmpty
}

// SuccessRate is the share of finalized non-empty commands that created an
// issue, in [0, 1]. It is zero when nothing has been dispatched.
func (m *Metrics) SuccessRate() float64 {
	attempted := m.IssuesCreated + m.CommandsAborted + m.CommandsFailed
	if attempted == 0 {
		return 0
	}
	return float64(m.IssuesCreated) / float64(attempted)
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator over eventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate aggregates all command events at or after since.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since, TypePrefix: "command."})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		OmissionsByField: make(map[string]int),
		AbortsByReason:   make(map[string]int),
		EventCount:       len(events),
	}

	var latencyTotal int64
	var latencyCount int64
	for i, event := range events {
		t := event.Time
		if i == 0 {
			m.OldestEvent = &t
		}
		m.NewestEvent = &t

		switch event.Type {
		case "command.opened":
			m.CommandsOpened++
		case "command.created":
			m.IssuesCreated++
		case "command.aborted":
			m.CommandsAborted++
			if reason, ok := event.Data["reason"].(string); ok {
				m.AbortsByReason[reason]++
			}
		case "command.failed":
			m.CommandsFailed++
		case "command.empty":
			m.CommandsEmpty++
		case "command.omission":
			if field, ok := event.Data["field"].(string); ok {
				m.OmissionsByField[field]++
			}
			continue
		default:
			continue
		}

		if ms, ok := numberField(event.Data, "latency_ms"); ok {
			latencyTotal += ms
			latencyCount++
			if ms > m.MaxLatencyMs {
				m.MaxLatencyMs = ms
			}
		}
	}
	if latencyCount > 0 {
		m.AvgLatencyMs = latencyTotal / latencyCount
	}

	return m, nil
}

// numberField reads an integer from decoded event data, which arrives as
// float64 after a JSON round trip and as an int when written in-process.
func numberField(data map[string]any, key string) (int64, bool) {
	switch v := data[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}
