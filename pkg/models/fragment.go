package models

import (
	"strings"
	"time"
)

// TranscriptFragment is one unit of speech-derived text as delivered by a
// fragment source. Fragments are immutable and consumed once.
type TranscriptFragment struct {
	Text      string    `json:"text" yaml:"text"`
	SpeakerID string    `json:"speaker" yaml:"speaker"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// SessionState represents the lifecycle position of the command session
// state machine.
type SessionState string

const (
	SessionIdle       SessionState = "idle"
	SessionCollecting SessionState = "collecting"
	SessionFinalizing SessionState = "finalizing"
)

// CommandSession holds the text accumulated between trigger detection and
// finalization. The poll loop owns at most one of these at a time.
type CommandSession struct {
	ID               string
	State            SessionState
	TriggerTimestamp time.Time
	Deadline         time.Time
	Fragments        int

	// parts holds gated fragment texts in arrival order.
	parts []string
}

// Append adds a gated fragment's text to the session.
func (s *CommandSession) Append(text string) {
	s.parts = append(s.parts, text)
	s.Fragments++
}

// AccumulatedText returns the space-joined text collected so far.
func (s *CommandSession) AccumulatedText() string {
	return strings.Join(s.parts, " ")
}
