package core

import (
	"time"

	"github.com/valter-silva-au/ditto/pkg/models"
)

// FragmentGate admits only fragments spoken by the target identity close
// to a reference time. Rejection is routine and never an error.
type FragmentGate struct {
	target    string
	tolerance time.Duration
}

// NewFragmentGate creates a gate for the given speaker identity.
func NewFragmentGate(target string, tolerance time.Duration) *FragmentGate {
	return &FragmentGate{
		target:    foldCase(target),
		tolerance: tolerance,
	}
}

// MatchesSpeaker reports whether speakerID is the target identity. The
// comparison is case-insensitive but otherwise exact: surrounding
// whitespace is not ignored.
func (g *FragmentGate) MatchesSpeaker(speakerID string) bool {
	if speakerID == "" || g.target == "" {
		return false
	}
	return foldCase(speakerID) == g.target
}

// Admit reports whether the fragment's speaker is the target and its
// timestamp lies within the tolerance of ref.
func (g *FragmentGate) Admit(f models.TranscriptFragment, ref time.Time) bool {
	if !g.MatchesSpeaker(f.SpeakerID) {
		return false
	}
	return g.within(f.Timestamp, ref.Add(-g.tolerance), ref.Add(g.tolerance))
}

// AdmitDuring is Admit for fragments arriving while a session is open. The
// fragment must not predate the trigger by more than the tolerance and must
// not arrive later than the session deadline plus the tolerance.
func (g *FragmentGate) AdmitDuring(f models.TranscriptFragment, s *models.CommandSession) bool {
	if !g.MatchesSpeaker(f.SpeakerID) {
		return false
	}
	return g.within(f.Timestamp, s.TriggerTimestamp.Add(-g.tolerance), s.Deadline.Add(g.tolerance))
}

// PastSession reports whether f was spoken after the session could still
// accept it, whoever the speaker.
func (g *FragmentGate) PastSession(f models.TranscriptFragment, s *models.CommandSession) bool {
	return s != nil && f.Timestamp.After(s.Deadline.Add(g.tolerance))
}

func (g *FragmentGate) within(ts, from, to time.Time) bool {
	return !ts.Before(from) && !ts.After(to)
}
