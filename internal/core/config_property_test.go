package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/valter-silva-au/ditto/pkg/models"
	"pgregory.net/rapid"
)

// =============================================================================
// Generators
// =============================================================================

func genKeyword(t *rapid.T, label string) string {
	return rapid.StringMatching(`[a-z]{3,8}( [a-z]{3,8})?`).Draw(t, label)
}

func genField(t *rapid.T, label string) models.Field {
	return rapid.SampledFrom(models.AllFields).Draw(t, label)
}

// =============================================================================
// Properties
// =============================================================================

// Property: a keyword claimed by two different fields is always rejected,
// whatever its casing.
func TestProperty_SharedKeywordRejected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kw := genKeyword(t, "keyword")
		a := genField(t, "a")
		b := genField(t, "b")
		if a == b {
			t.Skip("same field")
		}

		cfg := validConfig()
		cfg.Fields = DefaultFieldKeywords()
		cfg.Fields[a] = append(cfg.Fields[a], kw)
		cfg.Fields[b] = append(cfg.Fields[b], strings.ToUpper(kw))

		err := ValidateConfig(cfg)
		if err == nil {
			t.Fatalf("keyword %q on %s and %s accepted", kw, a, b)
		}
		if !strings.Contains(err.Error(), "is assigned to both") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// Property: durations written to ditto.yaml round-trip through Load.
func TestProperty_DurationsLoadFromYAML(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		window := time.Duration(rapid.IntRange(1, 120).Draw(t, "window_s")) * time.Second
		tolerance := time.Duration(rapid.IntRange(1, 5000).Draw(t, "tolerance_ms")) * time.Millisecond

		dir, err := os.MkdirTemp("", "ditto-config-*")
		if err != nil {
			t.Fatalf("creating temp dir: %v", err)
		}
		defer func() { _ = os.RemoveAll(dir) }()

		content := fmt.Sprintf("speaker:\n  target: ada\n  tolerance: %s\ncollection:\n  window: %s\n", tolerance, window)
		if err := os.WriteFile(filepath.Join(dir, "ditto.yaml"), []byte(content), 0o644); err != nil {
			t.Fatalf("writing config: %v", err)
		}

		cfg, err := NewConfigurationManager(dir, "").Load()
		if err != nil {
			t.Fatalf("Load() = %v", err)
		}
		if cfg.Collection.Window != window || cfg.Speaker.Tolerance != tolerance {
			t.Fatalf("got window=%s tolerance=%s, want %s %s", cfg.Collection.Window, cfg.Speaker.Tolerance, window, tolerance)
		}
	})
}
