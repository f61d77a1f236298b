package core

import (
	"strings"
	"testing"

	"github.com/valter-silva-au/ditto/pkg/models"
	"pgregory.net/rapid"
)

// genValueWord draws a word that can never collide with a default keyword.
func genValueWord(t *rapid.T, label string) string {
	return rapid.StringMatching(`[xyz][a-z0-9]{0,7}`).Draw(t, label)
}

func genValue(t *rapid.T, label string) string {
	n := rapid.IntRange(1, 3).Draw(t, label+"_len")
	words := make([]string, n)
	for i := range words {
		words[i] = genValueWord(t, label)
	}
	return strings.Join(words, " ")
}

// Property: when a single-valued field is stated several times, the last
// stated value is the one extracted.
func TestProperty_LastOccurrenceWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		field := rapid.SampledFrom([]models.Field{
			models.FieldTeam, models.FieldProject, models.FieldCycle,
			models.FieldPriority, models.FieldAssignee, models.FieldDescription,
		}).Draw(t, "field")
		n := rapid.IntRange(1, 5).Draw(t, "occurrences")

		var parts []string
		var last string
		for i := 0; i < n; i++ {
			last = genValue(t, "value")
			parts = append(parts, string(field)+" "+last)
		}

		got := newTestExtractor().Extract("please create issue " + strings.Join(parts, " "))
		if v, _ := got.Get(field); v != last {
			t.Fatalf("%s = %q, want last value %q", field, v, last)
		}
	})
}

// Property: every stated label is kept, in spoken order.
func TestProperty_LabelsAccumulate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "labels")
		var want []string
		var parts []string
		for i := 0; i < n; i++ {
			v := genValue(t, "label")
			want = append(want, v)
			kw := rapid.SampledFrom([]string{"label", "labels", "LABEL"}).Draw(t, "kw")
			parts = append(parts, kw+" "+v)
			if rapid.Bool().Draw(t, "interleave") {
				parts = append(parts, "priority high")
			}
		}

		got := newTestExtractor().Extract("please create issue " + strings.Join(parts, " "))
		if len(got.Labels) != len(want) {
			t.Fatalf("Labels = %v, want %v", got.Labels, want)
		}
		for i := range want {
			if got.Labels[i] != want[i] {
				t.Fatalf("Labels[%d] = %q, want %q", i, got.Labels[i], want[i])
			}
		}
	})
}

// Property: with no title keyword the implicit title is exactly the text
// between the trigger and the first keyword, and absent when that is empty.
func TestProperty_ImplicitTitle(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lead := ""
		if rapid.Bool().Draw(t, "has_lead") {
			lead = genValue(t, "lead")
		}
		text := "please create issue " + lead + " team " + genValue(t, "team")

		got := newTestExtractor().Extract(text)
		title, ok := got.Get(models.FieldTitle)
		if lead == "" {
			if ok {
				t.Fatalf("title = %q, want none", title)
			}
			return
		}
		if title != lead {
			t.Fatalf("title = %q, want %q", title, lead)
		}
	})
}
