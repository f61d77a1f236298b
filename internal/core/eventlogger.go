package core

// EventLogger is the subset of the observability event log that the
// pipeline needs. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// Command lifecycle event types written to the event log.
const (
	EventCommandOpened   = "command.opened"
	EventCommandCreated  = "command.created"
	EventCommandAborted  = "command.aborted"
	EventCommandFailed   = "command.failed"
	EventCommandEmpty    = "command.empty"
	EventCommandOmission = "command.omission"
)
