package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/pkg/models"
)

type mockWorkspaceInitializer struct {
	initFn     func(config core.InitConfig) (*core.InitResult, error)
	lastConfig core.InitConfig
}

func (m *mockWorkspaceInitializer) Init(config core.InitConfig) (*core.InitResult, error) {
	m.lastConfig = config
	if m.initFn != nil {
		return m.initFn(config)
	}
	return &core.InitResult{}, nil
}

func resetInitFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		_ = initCmd.Flags().Set("speaker", "")
		_ = initCmd.Flags().Set("trigger", "")
		_ = initCmd.Flags().Set("tracker", string(models.TrackerFixture))
	})
}

func TestInitCommand_NilInitializer(t *testing.T) {
	orig := WorkspaceInit
	defer func() { WorkspaceInit = orig }()
	WorkspaceInit = nil

	err := initCmd.RunE(initCmd, []string{})
	if err == nil {
		t.Fatal("expected error when WorkspaceInit is nil")
	}
	if !strings.Contains(err.Error(), "workspace initializer not initialized") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInitCommand_PassesFlags(t *testing.T) {
	orig := WorkspaceInit
	defer func() { WorkspaceInit = orig }()
	resetInitFlags(t)

	mock := &mockWorkspaceInitializer{}
	WorkspaceInit = mock

	_ = initCmd.Flags().Set("speaker", "Ada")
	_ = initCmd.Flags().Set("trigger", "make a ticket")
	_ = initCmd.Flags().Set("tracker", "linear")
	captureOutput(t, initCmd)

	if err := initCmd.RunE(initCmd, []string{"/tmp/ditto-init"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectedPath, _ := filepath.Abs("/tmp/ditto-init")
	if mock.lastConfig.BasePath != expectedPath {
		t.Errorf("basePath = %s, want %s", mock.lastConfig.BasePath, expectedPath)
	}
	if mock.lastConfig.Speaker != "Ada" || mock.lastConfig.TriggerPhrase != "make a ticket" {
		t.Errorf("config = %+v", mock.lastConfig)
	}
	if mock.lastConfig.Tracker != models.TrackerLinear {
		t.Errorf("tracker = %s, want linear", mock.lastConfig.Tracker)
	}
}

func TestInitCommand_PrintsResult(t *testing.T) {
	orig := WorkspaceInit
	defer func() { WorkspaceInit = orig }()
	resetInitFlags(t)

	WorkspaceInit = &mockWorkspaceInitializer{
		initFn: func(config core.InitConfig) (*core.InitResult, error) {
			return &core.InitResult{
				Created: []string{filepath.Join(config.BasePath, "tracker.yaml")},
				Skipped: []string{filepath.Join(config.BasePath, "ditto.yaml")},
			}, nil
		},
	}
	buf := captureOutput(t, initCmd)

	if err := initCmd.RunE(initCmd, []string{t.TempDir()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Created:", "  tracker.yaml", "Skipped (already exist):", "  ditto.yaml", "Workspace initialized at", "Set speaker.target"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInitCommand_InitError(t *testing.T) {
	orig := WorkspaceInit
	defer func() { WorkspaceInit = orig }()

	WorkspaceInit = &mockWorkspaceInitializer{
		initFn: func(core.InitConfig) (*core.InitResult, error) {
			return nil, fmt.Errorf("disk full")
		},
	}

	err := initCmd.RunE(initCmd, []string{})
	if err == nil {
		t.Fatal("expected error from Init")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInitCommand_WritesWorkspace(t *testing.T) {
	resetInitFlags(t)
	dir := t.TempDir()
	_ = initCmd.Flags().Set("speaker", "Ada")
	captureOutput(t, initCmd)

	if err := initCmd.RunE(initCmd, []string{dir}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"ditto.yaml", "tracker.yaml", ".gitignore"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}
