package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/pkg/models"
	"go.uber.org/zap"
)

var (
	// bracketSpeaker matches "[Ada Lovelace] please create issue".
	bracketSpeaker = regexp.MustCompile(`^\[([^\]]+)\]\s*(.*)$`)
	// colonSpeaker matches "Ada Lovelace: please create issue".
	colonSpeaker = regexp.MustCompile(`^([^:\[\]{}]{1,64}):\s+(.*)$`)
)

// DefaultLineInterval is how far apart replayed lines without a timestamp
// are taken to have been spoken.
const DefaultLineInterval = 2 * time.Second

// FileSource tails a caption file and turns each complete line into a
// fragment. Lines are "[Speaker] text", "Speaker: text", or JSON objects
// with text, speaker and timestamp keys. When following, lines without a
// timestamp are stamped when read. When replaying, they are stamped one
// line interval after the previous line, starting from the time the source
// was opened, and JSON timestamps are kept as they are.
type FileSource struct {
	path     string
	follow   bool
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	now      func() time.Time
	interval time.Duration

	offset  int64
	partial []byte
	// clock is the replay timestamp for the next line without one.
	clock time.Time
}

// NewFileSource opens a source over path. With follow set the file is
// tailed indefinitely and may be truncated, replaced or created later;
// without it, Poll reports core.ErrSourceClosed once the file is consumed.
func NewFileSource(path string, follow bool, logger *zap.Logger) (*FileSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving source path %s: %w", path, err)
	}

	s := &FileSource{
		path:     abs,
		follow:   follow,
		logger:   logger,
		now:      time.Now,
		interval: DefaultLineInterval,
	}
	if !follow {
		s.clock = s.now()
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("opening source file: %w", err)
		}
		return s, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	// Watch the directory so that rotation and late creation are seen.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}
	s.watcher = w
	return s, nil
}

// SetLineInterval changes the spacing of replayed lines. Non-positive
// values are ignored.
func (s *FileSource) SetLineInterval(d time.Duration) {
	if d > 0 {
		s.interval = d
	}
}

// Replaying reports whether the file is replayed rather than followed.
// A replayed file is read in one go, so its fragments, not the wall clock,
// say when each line was spoken.
func (s *FileSource) Replaying() bool {
	return !s.follow
}

// Poll returns the fragments for every complete line appended since the
// previous call.
func (s *FileSource) Poll(ctx context.Context) ([]models.TranscriptFragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.drainEvents()

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && s.follow {
			return nil, nil
		}
		return nil, fmt.Errorf("stat source file: %w", err)
	}
	if info.Size() < s.offset {
		s.logger.Info("source file truncated, reading from start", zap.String("path", s.path))
		s.reset()
	}

	var chunk []byte
	if info.Size() > s.offset {
		chunk, err = s.readFrom(s.offset)
		if err != nil {
			return nil, err
		}
		s.offset += int64(len(chunk))
	}

	frags := s.split(chunk)
	if !s.follow && s.offset >= info.Size() {
		if len(s.partial) > 0 {
			frags = append(frags, s.parseLines([][]byte{s.partial})...)
			s.partial = nil
		}
		return frags, core.ErrSourceClosed
	}
	return frags, nil
}

// Close stops watching the file.
func (s *FileSource) Close() error {
	if s.watcher == nil {
		return nil
	}
	if err := s.watcher.Close(); err != nil {
		return fmt.Errorf("closing file watcher: %w", err)
	}
	return nil
}

// drainEvents consumes pending watcher events without blocking. A removed
// or renamed file means the next file starts from offset zero.
func (s *FileSource) drainEvents() {
	if s.watcher == nil {
		return
	}
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != s.path {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Create) {
				s.logger.Info("source file replaced", zap.String("path", s.path), zap.String("op", ev.Op.String()))
				s.reset()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("file watcher error", zap.Error(err))
		default:
			return
		}
	}
}

func (s *FileSource) reset() {
	s.offset = 0
	s.partial = nil
}

func (s *FileSource) readFrom(offset int64) ([]byte, error) {
	f, err := os.Open(s.path) //nolint:gosec // G304: path from operator config
	if err != nil {
		return nil, fmt.Errorf("opening source file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking source file: %w", err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading source file: %w", err)
	}
	return data, nil
}

// split joins chunk onto any held partial line and parses the complete
// lines, holding back a trailing line with no newline yet.
func (s *FileSource) split(chunk []byte) []models.TranscriptFragment {
	if len(chunk) == 0 {
		return nil
	}
	buf := append(s.partial, chunk...)
	lines := bytes.Split(buf, []byte("\n"))
	s.partial = append([]byte(nil), lines[len(lines)-1]...)
	return s.parseLines(lines[:len(lines)-1])
}

func (s *FileSource) parseLines(lines [][]byte) []models.TranscriptFragment {
	now := s.now()
	var out []models.TranscriptFragment
	for _, line := range lines {
		stamp := now
		if !s.follow {
			stamp = s.clock
		}
		f, ok := ParseFragmentLine(string(line), stamp)
		if !ok {
			continue
		}
		if !s.follow {
			s.clock = f.Timestamp.Add(s.interval)
		}
		out = append(out, f)
	}
	return out
}

// jsonFragment is the JSON line form of a fragment.
type jsonFragment struct {
	Text      string `json:"text"`
	Speaker   string `json:"speaker"`
	Timestamp string `json:"timestamp"`
}

// ParseFragmentLine parses one caption line. Blank and malformed JSON lines
// are skipped. Lines with no recognizable speaker are kept with an empty
// speaker, which the gate never admits.
func ParseFragmentLine(line string, now time.Time) (models.TranscriptFragment, bool) {
	line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	if line == "" {
		return models.TranscriptFragment{}, false
	}

	if strings.HasPrefix(line, "{") {
		var jf jsonFragment
		if err := json.Unmarshal([]byte(line), &jf); err != nil {
			return models.TranscriptFragment{}, false
		}
		if strings.TrimSpace(jf.Text) == "" {
			return models.TranscriptFragment{}, false
		}
		ts := parseTimestamp(jf.Timestamp)
		if ts.IsZero() {
			ts = now
		}
		return models.TranscriptFragment{
			Text:      strings.TrimSpace(jf.Text),
			SpeakerID: strings.TrimSpace(jf.Speaker),
			Timestamp: ts,
		}, true
	}

	frag := models.TranscriptFragment{Text: line, Timestamp: now}
	if m := bracketSpeaker.FindStringSubmatch(line); m != nil {
		frag.SpeakerID, frag.Text = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	} else if m := colonSpeaker.FindStringSubmatch(line); m != nil {
		frag.SpeakerID, frag.Text = strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	if frag.Text == "" {
		return models.TranscriptFragment{}, false
	}
	return frag, true
}

func parseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		t, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}
