package observability

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestLog(t *testing.T) EventLog {
	t.Helper()
	log, err := NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func writeEvents(t *testing.T, log EventLog, events ...Event) {
	t.Helper()
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}
}

func cmdEvent(at time.Time, eventType, commandID string, data map[string]any) Event {
	d := map[string]any{"command_id": commandID}
	for k, v := range data {
		d[k] = v
	}
	return Event{Time: at, Type: eventType, Message: eventType, Data: d}
}

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func TestEventLog_WriteAndRead(t *testing.T) {
	log := newTestLog(t)
	writeEvents(t, log,
		cmdEvent(base, "command.opened", "c1", nil),
		cmdEvent(base.Add(time.Second), "command.failed", "c1", map[string]any{"reason": "boom"}),
	)

	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Level != "INFO" {
		t.Errorf("opened level = %s, want INFO", got[0].Level)
	}
	if got[1].Level != "ERROR" {
		t.Errorf("failed level = %s, want ERROR", got[1].Level)
	}
	if got[1].CommandID() != "c1" {
		t.Errorf("CommandID() = %q, want c1", got[1].CommandID())
	}
	if got[1].Data["reason"] != "boom" {
		t.Errorf("reason = %v, want boom", got[1].Data["reason"])
	}
}

func TestEventLog_Filters(t *testing.T) {
	log := newTestLog(t)
	writeEvents(t, log,
		cmdEvent(base, "command.opened", "c1", nil),
		cmdEvent(base.Add(time.Minute), "command.created", "c1", nil),
		cmdEvent(base.Add(2*time.Minute), "command.opened", "c2", nil),
		cmdEvent(base.Add(3*time.Minute), "command.aborted", "c2", nil),
		Event{Time: base.Add(4 * time.Minute), Type: "listener.started", Message: "started"},
	)

	since := base.Add(90 * time.Second)
	until := base.Add(150 * time.Second)
	tests := []struct {
		name   string
		filter EventFilter
		want   int
	}{
		{"all", EventFilter{}, 5},
		{"type", EventFilter{Type: "command.opened"}, 2},
		{"prefix", EventFilter{TypePrefix: "command."}, 4},
		{"level", EventFilter{Level: "WARN"}, 1},
		{"command", EventFilter{CommandID: "c2"}, 2},
		{"since", EventFilter{Since: &since}, 3},
		{"window", EventFilter{Since: &since, Until: &until}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := log.Read(tt.filter)
			if err != nil {
				t.Fatalf("reading events: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestEventLog_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := "not json\n\n" + `{"time":"2025-03-10T09:00:00Z","level":"INFO","type":"command.opened","msg":"x"}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("opening event log: %v", err)
	}
	defer log.Close()

	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 event, got %d", len(got))
	}
}

func TestEventLog_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "logs", "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	defer log.Close()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected log file to exist: %v", err)
	}
}

func TestEventLog_ConcurrentWrites(t *testing.T) {
	log := newTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = log.Write(cmdEvent(base, "command.opened", "c", nil))
		}()
	}
	wg.Wait()

	got, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(got) != 20 {
		t.Errorf("expected 20 events, got %d", len(got))
	}
}

func TestEventLog_SharedFileAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	first, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = first.Close() }()
	second, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = second.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = first.Write(cmdEvent(base, "command.opened", "a", nil))
		}()
		go func() {
			defer wg.Done()
			_ = second.Write(cmdEvent(base, "command.opened", "b", nil))
		}()
	}
	wg.Wait()

	got, err := first.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(got) != 20 {
		t.Errorf("expected 20 intact events, got %d", len(got))
	}
}
