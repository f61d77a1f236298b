package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/valter-silva-au/ditto/pkg/models"
)

// SessionMachine implements the IDLE -> COLLECTING -> FINALIZING -> IDLE
// transitions. It holds no session itself: the caller owns the single
// optional *models.CommandSession and passes it in on every call.
type SessionMachine struct {
	trigger string
	window  time.Duration
	mode    models.WindowMode
	newID   func() string
}

// NewSessionMachine creates a state machine for the given trigger phrase
// and collection window.
func NewSessionMachine(trigger string, window time.Duration, mode models.WindowMode) *SessionMachine {
	if mode == "" {
		mode = models.WindowFixed
	}
	return &SessionMachine{
		trigger: collapseSpaces(trigger),
		window:  window,
		mode:    mode,
		newID:   uuid.NewString,
	}
}

// TriggerIndex returns the byte offset of the first case-insensitive
// occurrence of the trigger phrase in text, or -1.
func (m *SessionMachine) TriggerIndex(text string) int {
	return indexFold(text, m.trigger)
}

// Accept feeds one gated fragment through the machine. With a nil session
// (IDLE) a fragment containing the trigger opens a new session, seeded with
// the text from the trigger onward; any other fragment is ignored. With an
// open session the fragment text is appended, including a repeated trigger.
// It returns the resulting session and whether a new session was opened.
func (m *SessionMachine) Accept(s *models.CommandSession, f models.TranscriptFragment) (*models.CommandSession, bool) {
	text := collapseSpaces(f.Text)

	if s == nil {
		idx := m.TriggerIndex(text)
		if idx < 0 {
			return nil, false
		}
		opened := &models.CommandSession{
			ID:               m.newID(),
			State:            models.SessionCollecting,
			TriggerTimestamp: f.Timestamp,
			Deadline:         f.Timestamp.Add(m.window),
		}
		opened.Append(text[idx:])
		return opened, true
	}

	if text == "" {
		return s, false
	}
	s.Append(text)
	if m.mode == models.WindowRolling {
		if next := f.Timestamp.Add(m.window); next.After(s.Deadline) {
			s.Deadline = next
		}
	}
	return s, false
}

// Expired reports whether now is past the session deadline.
func (m *SessionMachine) Expired(s *models.CommandSession, now time.Time) bool {
	return s != nil && now.After(s.Deadline)
}

// Finalize freezes the session and returns its accumulated text. The
// caller discards the session afterwards.
func (m *SessionMachine) Finalize(s *models.CommandSession) string {
	s.State = models.SessionFinalizing
	return s.AccumulatedText()
}

// indexFold is a case-insensitive strings.Index that keeps byte offsets
// valid for the original string.
func indexFold(s, substr string) int {
	if substr == "" {
		return -1
	}
	n := len(substr)
	for i := 0; i+n <= len(s); i++ {
		if !utf8.RuneStart(s[i]) {
			continue
		}
		if strings.EqualFold(s[i:i+n], substr) {
			return i
		}
	}
	return -1
}
