package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/internal/integration"
	"github.com/valter-silva-au/ditto/pkg/models"
)

const trackerFixture = `
teams:
  - id: team-eng
    key: ENG
    name: Engineering
    cycles:
      - id: cyc-24
        number: 24
        active: true
    labels:
      - id: lbl-bug
        name: bug
  - id: team-des
    key: DES
    name: Design
users:
  - id: user-ada
    name: ada
`

// captureOutput redirects cmd's stdout to a buffer for the test.
func captureOutput(t *testing.T, cmd *cobra.Command) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	t.Cleanup(func() { cmd.SetOut(nil) })
	return &buf
}

// useFixtureTracker points the tracker-facing package vars at an in-memory
// fixture and restores them when the test ends.
func useFixtureTracker(t *testing.T) *integration.FixtureTracker {
	t.Helper()
	fixture, err := integration.ParseFixture([]byte(trackerFixture))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}

	origDir, origValidator, origExtractor, origErr := Directory, Validator, Extractor, TrackerErr
	t.Cleanup(func() {
		Directory, Validator, Extractor, TrackerErr = origDir, origValidator, origExtractor, origErr
	})

	Directory = fixture
	Validator = core.NewFieldValidator(fixture, core.DefaultTitle, nil)
	Extractor = core.NewFieldExtractor("please create issue", core.DefaultFieldKeywords())
	TrackerErr = nil
	return fixture
}

// validConfig returns a configuration that passes validation without
// network access.
func validConfig() *models.Config {
	cfg := core.DefaultConfig()
	cfg.Speaker.Target = "Alice"
	cfg.Tracker.Kind = models.TrackerFixture
	cfg.Tracker.FixturePath = "tracker.yaml"
	return cfg
}
