package core

import (
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/ditto/pkg/models"
	"pgregory.net/rapid"
)

// Property: a fragment whose speaker differs from the target other than in
// letter case is never admitted, whatever its text or timestamp.
func TestProperty_GateRejectsOtherSpeakers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		target := rapid.StringMatching(`[A-Za-z][A-Za-z ]{0,15}`).Draw(t, "target")
		speaker := rapid.StringMatching(`[A-Za-z ]{0,16}`).Draw(t, "speaker")
		if strings.EqualFold(target, speaker) {
			t.Skip("speaker equals target")
		}
		offset := time.Duration(rapid.Int64Range(-int64(time.Second), int64(time.Second)).Draw(t, "offset"))
		text := rapid.String().Draw(t, "text")

		g := NewFragmentGate(target, 2*time.Second)
		f := models.TranscriptFragment{Text: text, SpeakerID: speaker, Timestamp: refTime.Add(offset)}
		if g.Admit(f, refTime) {
			t.Fatalf("admitted speaker %q for target %q", speaker, target)
		}
	})
}

// Property: the target speaker is admitted exactly when the timestamp lies
// within the tolerance.
func TestProperty_GateTimeWindow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tolerance := time.Duration(rapid.Int64Range(1, int64(10*time.Second)).Draw(t, "tolerance"))
		offset := time.Duration(rapid.Int64Range(-int64(20*time.Second), int64(20*time.Second)).Draw(t, "offset"))

		g := NewFragmentGate("ada", tolerance)
		got := g.Admit(frag("ADA", "x", refTime.Add(offset)), refTime)
		want := offset >= -tolerance && offset <= tolerance
		if got != want {
			t.Fatalf("Admit(offset=%s, tolerance=%s) = %v, want %v", offset, tolerance, got, want)
		}
	})
}
