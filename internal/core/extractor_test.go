package core

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/valter-silva-au/ditto/pkg/models"
)

func newTestExtractor() *FieldExtractor {
	return NewFieldExtractor("please create issue", DefaultFieldKeywords())
}

func TestFieldExtractor_Extract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.ExtractedFields
	}{
		{
			name: "explicit fields",
			text: "please create issue title fix login bug team ENG priority high",
			want: models.ExtractedFields{Values: map[models.Field]string{
				models.FieldTitle:    "fix login bug",
				models.FieldTeam:     "ENG",
				models.FieldPriority: "high",
			}},
		},
		{
			name: "last occurrence wins",
			text: "please create issue team alpha priority low team beta",
			want: models.ExtractedFields{Values: map[models.Field]string{
				models.FieldTeam:     "beta",
				models.FieldPriority: "low",
			}},
		},
		{
			name: "labels accumulate in order",
			text: "please create issue label urgent team ENG label backend",
			want: models.ExtractedFields{
				Values: map[models.Field]string{models.FieldTeam: "ENG"},
				Labels: []string{"urgent", "backend"},
			},
		},
		{
			name: "implicit title before first keyword",
			text: "please create issue the checkout page is slow team ENG",
			want: models.ExtractedFields{Values: map[models.Field]string{
				models.FieldTitle: "the checkout page is slow",
				models.FieldTeam:  "ENG",
			}},
		},
		{
			name: "whole body is the title without keywords",
			text: "Please create issue, search is broken.",
			want: models.ExtractedFields{Values: map[models.Field]string{
				models.FieldTitle: "search is broken",
			}},
		},
		{
			name: "explicit title beats implicit",
			text: "please create issue something team ENG title real headline",
			want: models.ExtractedFields{Values: map[models.Field]string{
				models.FieldTeam:  "ENG",
				models.FieldTitle: "real headline",
			}},
		},
		{
			name: "multi-word keyword and value",
			text: "please create issue team ENG due date March 15th, project Website Relaunch.",
			want: models.ExtractedFields{Values: map[models.Field]string{
				models.FieldTeam:    "ENG",
				models.FieldDueDate: "March 15th",
				models.FieldProject: "Website Relaunch",
			}},
		},
		{
			name: "keywords match case-insensitively",
			text: "PLEASE CREATE ISSUE TEAM eng PRIORITY Urgent",
			want: models.ExtractedFields{Values: map[models.Field]string{
				models.FieldTeam:     "eng",
				models.FieldPriority: "Urgent",
			}},
		},
		{
			name: "keyword inside a word is not a keyword",
			text: "please create issue team ENG description teammates reported prioritylist issues",
			want: models.ExtractedFields{Values: map[models.Field]string{
				models.FieldTeam:        "ENG",
				models.FieldDescription: "teammates reported prioritylist issues",
			}},
		},
		{
			name: "empty value is ignored",
			text: "please create issue team ENG priority high priority.",
			want: models.ExtractedFields{Values: map[models.Field]string{
				models.FieldTeam:     "ENG",
				models.FieldPriority: "high",
			}},
		},
		{
			name: "labels keyword plural",
			text: "please create issue team ENG labels bug",
			want: models.ExtractedFields{
				Values: map[models.Field]string{models.FieldTeam: "ENG"},
				Labels: []string{"bug"},
			},
		},
		{
			name: "text before trigger is dropped",
			text: "as I said earlier please create issue team ENG",
			want: models.ExtractedFields{Values: map[models.Field]string{
				models.FieldTeam: "ENG",
			}},
		},
		{
			name: "trigger only",
			text: "please create issue",
			want: models.ExtractedFields{Values: map[models.Field]string{}},
		},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Extract() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFieldExtractor_LongestMatchFirst(t *testing.T) {
	keywords := map[models.Field][]string{
		models.FieldTeam:    {"team"},
		models.FieldDueDate: {"due date", "due"},
		models.FieldTitle:   {"title"},
	}
	e := NewFieldExtractor("please create issue", keywords)

	got := e.Extract("please create issue team ENG due date friday")
	if v, _ := got.Get(models.FieldDueDate); v != "friday" {
		t.Errorf("due_date = %q, want %q", v, "friday")
	}

	got = e.Extract("please create issue team ENG due tomorrow")
	if v, _ := got.Get(models.FieldDueDate); v != "tomorrow" {
		t.Errorf("due_date = %q, want %q", v, "tomorrow")
	}
}

func TestFieldExtractor_ContainsTrigger(t *testing.T) {
	e := newTestExtractor()
	if !e.ContainsTrigger("ok   PLEASE create issue now") {
		t.Error("ContainsTrigger() missed a trigger with extra spaces")
	}
	if e.ContainsTrigger("please create an issue") {
		t.Error("ContainsTrigger() matched a different phrase")
	}
}

func TestCleanValue(t *testing.T) {
	tests := map[string]string{
		"  ENG.  ":       "ENG",
		": fix login!?":  "fix login",
		"v1.2 release;":  "v1.2 release",
		"...":            "",
		"- dash leading": "dash leading",
	}
	for in, want := range tests {
		if got := cleanValue(in); got != want {
			t.Errorf("cleanValue(%q) = %q, want %q", in, got, want)
		}
	}
}
