package cli

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestConfigShow_RedactsSecrets(t *testing.T) {
	orig := Config
	defer func() { Config = orig }()
	Config = validConfig()
	Config.Tracker.APIKey = "lin_api_secret"
	Config.Notifications.Slack.WebhookURL = "https://hooks.slack.test/T000/secret"

	out := captureOutput(t, configShowCmd)
	if err := configShowCmd.RunE(configShowCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	if strings.Contains(got, "secret") {
		t.Errorf("secrets leaked:\n%s", got)
	}
	var decoded map[string]any
	if err := yaml.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	if decoded["trigger_phrase"] != "please create issue" {
		t.Errorf("trigger_phrase = %v", decoded["trigger_phrase"])
	}
	tracker := decoded["tracker"].(map[string]any)
	if tracker["api_key"] != "********" {
		t.Errorf("api_key = %v, want redacted", tracker["api_key"])
	}
	// The loaded config itself is untouched.
	if Config.Tracker.APIKey != "lin_api_secret" {
		t.Error("redaction modified the shared config")
	}
}

func TestConfigShow_NotLoaded(t *testing.T) {
	orig := Config
	defer func() { Config = orig }()
	Config = nil

	if err := configShowCmd.RunE(configShowCmd, nil); err == nil {
		t.Fatal("expected error without a config")
	}
}

func TestConfigCheck(t *testing.T) {
	orig := Config
	defer func() { Config = orig }()

	Config = validConfig()
	out := captureOutput(t, configCheckCmd)
	if err := configCheckCmd.RunE(configCheckCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Configuration is valid.") {
		t.Errorf("output = %q", out.String())
	}

	Config.Speaker.Target = ""
	err := configCheckCmd.RunE(configCheckCmd, nil)
	if err == nil || !strings.Contains(err.Error(), "speaker.target") {
		t.Errorf("unexpected error: %v", err)
	}
}
