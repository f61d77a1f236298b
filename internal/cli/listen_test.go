package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/internal/integration"
	"github.com/valter-silva-au/ditto/internal/observability"
)

// useListenState installs a valid config and a pipeline factory over the
// fixture tracker, restoring everything when the test ends.
func useListenState(t *testing.T) *integration.FixtureTracker {
	t.Helper()
	fixture := useFixtureTracker(t)

	origConfig, origPipeline := Config, NewPipeline
	origSource, origPath, origFollow := listenSource, listenPath, listenFollow
	t.Cleanup(func() {
		Config, NewPipeline = origConfig, origPipeline
		listenSource, listenPath, listenFollow = origSource, origPath, origFollow
		for _, name := range []string{"source", "path", "follow"} {
			listenCmd.Flags().Lookup(name).Changed = false
		}
	})

	Config = validConfig()
	NewPipeline = func(src core.FragmentSource, out io.Writer) *core.CommandPipeline {
		return core.NewCommandPipeline(core.PipelineOptions{
			Source:     src,
			Gate:       core.NewFragmentGate(Config.Speaker.Target, Config.Speaker.Tolerance),
			Machine:    core.NewSessionMachine(Config.TriggerPhrase, Config.Collection.Window, Config.Collection.Mode),
			Extractor:  Extractor,
			Validator:  Validator,
			Dispatcher: core.NewActionDispatcher(fixture, observability.NewConsoleNotifier(out), false, nil),
		})
	}
	return fixture
}

func TestListenCmd_NotInitialized(t *testing.T) {
	orig := Config
	defer func() { Config = orig }()
	Config = nil

	err := listenCmd.RunE(listenCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListenCmd_InvalidConfig(t *testing.T) {
	useListenState(t)
	Config.Speaker.Target = ""

	err := listenCmd.RunE(listenCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "speaker.target") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListenCmd_NoTracker(t *testing.T) {
	useListenState(t)
	Directory = nil

	err := listenCmd.RunE(listenCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "tracker not available") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListenCmd_FileSourceWithoutPath(t *testing.T) {
	useListenState(t)

	err := listenCmd.RunE(listenCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "no source file") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListenCmd_UnknownSourceFlag(t *testing.T) {
	useListenState(t)
	if err := listenCmd.Flags().Set("source", "microphone"); err != nil {
		t.Fatal(err)
	}

	err := listenCmd.RunE(listenCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "source.kind") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListenCmd_ReplaysCaptionFile(t *testing.T) {
	fixture := useListenState(t)

	path := filepath.Join(t.TempDir(), "captions.txt")
	captions := strings.Join([]string{
		"[Bob] please create issue team DES title from the wrong speaker",
		"[Alice] please create issue checkout times out",
		"[Alice] team ENG priority urgent label bug",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(captions), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := listenCmd.Flags().Set("path", path); err != nil {
		t.Fatal(err)
	}

	out := captureOutput(t, listenCmd)
	if err := listenCmd.RunE(listenCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	created := fixture.Created()
	if len(created) != 1 {
		t.Fatalf("created %d issues, want 1", len(created))
	}
	if created[0].Identifier != "ENG-1" || created[0].Title != "checkout times out" {
		t.Errorf("created = %+v", created[0])
	}
	if !strings.Contains(out.String(), "Created ENG-1") {
		t.Errorf("output missing outcome:\n%s", out.String())
	}
	if Config.Source.Path != path {
		t.Errorf("--path not applied to config: %q", Config.Source.Path)
	}
}
