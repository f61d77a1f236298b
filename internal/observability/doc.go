// Package observability provides the operator log, the command event log,
// outcome notifications, and the metrics and alerts derived from the event
// log. Events are stored as JSON Lines and aggregated on demand.
package observability
