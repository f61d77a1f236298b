package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/valter-silva-au/ditto/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts fire. A zero threshold disables
// the corresponding check.
type AlertThresholds struct {
	FailureThreshold int
	FailureWindow    time.Duration
	AbortStreak      int
	// OmissionRate is the share of created issues that must have dropped
	// the same field before that field is flagged, in (0, 1].
	OmissionRate float64
	// MinSample is the number of created issues needed before omission
	// rates are judged.
	MinSample int
}

// DefaultAlertThresholds returns the thresholds used when none are configured.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		FailureThreshold: 3,
		FailureWindow:    15 * time.Minute,
		AbortStreak:      3,
		OmissionRate:     0.5,
		MinSample:        5,
	}
}

// ThresholdsFromConfig overlays configured values on the defaults.
func ThresholdsFromConfig(cfg models.AlertsConfig) AlertThresholds {
	t := DefaultAlertThresholds()
	if cfg.FailureThreshold > 0 {
		t.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.FailureWindow > 0 {
		t.FailureWindow = cfg.FailureWindow
	}
	if cfg.AbortStreak > 0 {
		t.AbortStreak = cfg.AbortStreak
	}
	return t
}

// AlertEngine evaluates alert conditions against the event log.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

type alertEngine struct {
	eventLog   EventLog
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine reading from eventLog.
func NewAlertEngine(eventLog EventLog, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		eventLog:   eventLog,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate checks every condition and returns the alerts that fire.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now()
	events, err := ae.eventLog.Read(EventFilter{TypePrefix: "command."})
	if err != nil {
		return nil, fmt.Errorf("reading events for alerts: %w", err)
	}

	var alerts []Alert
	alerts = append(alerts, ae.checkDispatchFailures(events, now)...)
	alerts = append(alerts, ae.checkAbortStreak(events, now)...)
	alerts = append(alerts, ae.checkOmissionRates(events, now)...)
	return alerts, nil
}

// checkDispatchFailures fires when too many commands failed recently,
// which usually means the tracker is down or the API key was revoked.
func (ae *alertEngine) checkDispatchFailures(events []Event, now time.Time) []Alert {
	if ae.thresholds.FailureThreshold <= 0 {
		return nil
	}
	since := now.Add(-ae.thresholds.FailureWindow)
	failures := 0
	var lastReason string
	for _, e := range events {
		if e.Type != "command.failed" || e.Time.Before(since) {
			continue
		}
		failures++
		lastReason, _ = e.Data["reason"].(string)
	}
	if failures < ae.thresholds.FailureThreshold {
		return nil
	}

	msg := fmt.Sprintf("%d commands failed in the last %s", failures, ae.thresholds.FailureWindow)
	if lastReason != "" {
		msg += fmt.Sprintf("; last error: %s", lastReason)
	}
	return []Alert{{
		ID:          "dispatch-failures",
		Condition:   "dispatch_failures",
		Severity:    SeverityHigh,
		Message:     msg,
		TriggeredAt: now,
	}}
}

// checkAbortStreak fires when the most recent finalized commands were all
// aborted, typically a team keyword nobody says the way it is configured.
func (ae *alertEngine) checkAbortStreak(events []Event, now time.Time) []Alert {
	if ae.thresholds.AbortStreak <= 0 {
		return nil
	}
	streak := 0
	reasons := make(map[string]int)
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		if e.Type == "command.opened" || e.Type == "command.omission" || e.Type == "command.empty" {
			continue
		}
		if e.Type != "command.aborted" {
			break
		}
		streak++
		if r, ok := e.Data["reason"].(string); ok {
			reasons[r]++
		}
	}
	if streak < ae.thresholds.AbortStreak {
		return nil
	}

	return []Alert{{
		ID:          "abort-streak",
		Condition:   "abort_streak",
		Severity:    SeverityMedium,
		Message:     fmt.Sprintf("last %d commands were aborted (most often: %s)", streak, topKey(reasons)),
		TriggeredAt: now,
	}}
}

// checkOmissionRates flags fields that are dropped from a large share of
// created issues.
func (ae *alertEngine) checkOmissionRates(events []Event, now time.Time) []Alert {
	if ae.thresholds.OmissionRate <= 0 {
		return nil
	}
	created := make(map[string]bool)
	omitted := make(map[string]map[string]bool) // field -> command ids
	for _, e := range events {
		switch e.Type {
		case "command.created":
			created[e.CommandID()] = true
		case "command.omission":
			field, _ := e.Data["field"].(string)
			if field == "" {
				continue
			}
			if omitted[field] == nil {
				omitted[field] = make(map[string]bool)
			}
			omitted[field][e.CommandID()] = true
		}
	}
	if len(created) == 0 || len(created) < ae.thresholds.MinSample {
		return nil
	}

	fields := make([]string, 0, len(omitted))
	for f := range omitted {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var alerts []Alert
	for _, field := range fields {
		n := 0
		for id := range omitted[field] {
			if created[id] {
				n++
			}
		}
		rate := float64(n) / float64(len(created))
		if rate < ae.thresholds.OmissionRate {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          "omission-" + field,
			Condition:   "field_often_omitted",
			Severity:    SeverityLow,
			Message:     fmt.Sprintf("%s was dropped from %d of %d created issues", field, n, len(created)),
			TriggeredAt: now,
		})
	}
	return alerts
}

// topKey returns the most frequent key, breaking ties alphabetically.
func topKey(counts map[string]int) string {
	best, bestN := "unknown", 0
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}
