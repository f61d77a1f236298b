package integration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/pkg/models"
	"go.uber.org/goleak"
)

var lineNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestParseFragmentLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want models.TranscriptFragment
		ok   bool
	}{
		{
			name: "bracket speaker",
			line: "[Ada Lovelace] please create issue fix login",
			want: models.TranscriptFragment{Text: "please create issue fix login", SpeakerID: "Ada Lovelace", Timestamp: lineNow},
			ok:   true,
		},
		{
			name: "colon speaker",
			line: "Ada: team engineering\r",
			want: models.TranscriptFragment{Text: "team engineering", SpeakerID: "Ada", Timestamp: lineNow},
			ok:   true,
		},
		{
			name: "json with timestamp",
			line: `{"text":" priority high ","speaker":"ada","timestamp":"2025-03-10T08:59:30Z"}`,
			want: models.TranscriptFragment{Text: "priority high", SpeakerID: "ada", Timestamp: time.Date(2025, 3, 10, 8, 59, 30, 0, time.UTC)},
			ok:   true,
		},
		{
			name: "json without timestamp",
			line: `{"text":"hello","speaker":"bob"}`,
			want: models.TranscriptFragment{Text: "hello", SpeakerID: "bob", Timestamp: lineNow},
			ok:   true,
		},
		{
			name: "no speaker",
			line: "just some words",
			want: models.TranscriptFragment{Text: "just some words", Timestamp: lineNow},
			ok:   true,
		},
		{name: "blank", line: "   "},
		{name: "malformed json", line: `{"text":`},
		{name: "json without text", line: `{"speaker":"ada"}`},
		{name: "speaker only", line: "[Ada]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFragmentLine(tt.line, lineNow)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func texts(frags []models.TranscriptFragment) []string {
	out := make([]string, 0, len(frags))
	for _, f := range frags {
		out = append(out, f.Text)
	}
	return out
}

func TestFileSource_ReplayEndsWithSourceClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.txt")
	require.NoError(t, os.WriteFile(path, []byte("[ada] please create issue\n\n[bob] unrelated\n[ada] team engineering"), 0o644))

	src, err := NewFileSource(path, false, nil)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	frags, err := src.Poll(context.Background())
	assert.True(t, errors.Is(err, core.ErrSourceClosed))
	assert.Equal(t, []string{"please create issue", "unrelated", "team engineering"}, texts(frags))
}

func TestFileSource_ReplayMissingFile(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.txt"), false, nil)
	assert.Error(t, err)
}

func TestFileSource_FollowAppendsAndTruncation(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "captions.txt")
	require.NoError(t, os.WriteFile(path, []byte("[ada] first\n[ada] sec"), 0o644))

	src, err := NewFileSource(path, true, nil)
	require.NoError(t, err)
	ctx := context.Background()

	frags, err := src.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, texts(frags), "partial line must be held back")

	appendTo(t, path, "ond\n[ada] third\n")
	frags, err = src.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, texts(frags))

	frags, err = src.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, frags)

	require.NoError(t, os.WriteFile(path, []byte("[ada] anew\n"), 0o644))
	frags, err = src.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"anew"}, texts(frags))

	require.NoError(t, src.Close())
}

func TestFileSource_FollowWaitsForFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.txt")
	src, err := NewFileSource(path, true, nil)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	frags, err := src.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, frags)
}

func TestFileSource_PollHonoursCancelledContext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.txt")
	require.NoError(t, os.WriteFile(path, []byte("[ada] hi\n"), 0o644))
	src, err := NewFileSource(path, false, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Poll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func appendTo(t *testing.T, path, data string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(data)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestFileSource_ReplayStampsLinesApart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "captions.txt")
	require.NoError(t, os.WriteFile(path, []byte(
		"[ada] please create issue\n"+
			"[bob] unrelated\n"+
			`{"text":"from the archive","speaker":"ada","timestamp":"2024-03-10T09:00:00Z"}`+"\n"+
			"[ada] team engineering\n"), 0o644))

	src, err := NewFileSource(path, false, nil)
	require.NoError(t, err)
	src.clock = lineNow
	src.SetLineInterval(3 * time.Second)
	src.SetLineInterval(0)
	assert.True(t, src.Replaying())

	frags, err := src.Poll(context.Background())
	assert.True(t, errors.Is(err, core.ErrSourceClosed))
	require.Len(t, frags, 4)

	archived := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	want := []time.Time{lineNow, lineNow.Add(3 * time.Second), archived, archived.Add(3 * time.Second)}
	for i, f := range frags {
		assert.Equal(t, want[i], f.Timestamp, "fragment %d (%s)", i, f.Text)
	}
}

func TestFileSource_FollowIsNotReplaying(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	src, err := NewFileSource(filepath.Join(t.TempDir(), "captions.txt"), true, nil)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()
	assert.False(t, src.Replaying())
}

// replayPipeline runs a caption file through the real command pipeline
// against the fixture tracker and returns what was created.
func replayPipeline(t *testing.T, captions string) []models.CreatedIssue {
	t.Helper()
	path := filepath.Join(t.TempDir(), "captions.txt")
	require.NoError(t, os.WriteFile(path, []byte(captions), 0o644))

	src, err := NewFileSource(path, false, nil)
	require.NoError(t, err)
	tracker := loadTestFixture(t)

	pipeline := core.NewCommandPipeline(core.PipelineOptions{
		Source:       src,
		Gate:         core.NewFragmentGate("Ada", 2*time.Second),
		Machine:      core.NewSessionMachine("please create issue", 2*time.Second, models.WindowFixed),
		Extractor:    core.NewFieldExtractor("please create issue", core.DefaultFieldKeywords()),
		Validator:    core.NewFieldValidator(tracker, core.DefaultTitle, nil),
		Dispatcher:   core.NewActionDispatcher(tracker, nil, false, nil),
		PollInterval: time.Millisecond,
	})
	require.NoError(t, pipeline.Run(context.Background()))
	return tracker.Created()
}

func TestFileSource_ReplayedCommandsStaySeparate(t *testing.T) {
	created := replayPipeline(t, "[Ada] please create issue title first bug team ENG\n"+
		"[Bob] unrelated chatter\n"+
		"[Ada] please create issue title second bug team DES\n")

	require.Len(t, created, 2)
	assert.Equal(t, "ENG-1", created[0].Identifier)
	assert.Equal(t, "first bug", created[0].Title)
	assert.Equal(t, "DES-1", created[1].Identifier)
	assert.Equal(t, "second bug", created[1].Title)
}

func TestFileSource_ReplayedHistoricalJSON(t *testing.T) {
	created := replayPipeline(t,
		`{"text":"please create issue title archived bug team ENG","speaker":"Ada","timestamp":"2024-03-10T09:00:00Z"}`+"\n")

	require.Len(t, created, 1)
	assert.Equal(t, "archived bug", created[0].Title)
}
