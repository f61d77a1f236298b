package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/valter-silva-au/ditto/pkg/models"
)

// InitConfig holds the parameters for initializing a ditto workspace.
type InitConfig struct {
	BasePath      string
	Speaker       string
	TriggerPhrase string
	Tracker       models.TrackerKind
}

// InitResult holds a summary of what was created vs. skipped.
type InitResult struct {
	Created []string
	Skipped []string
}

// WorkspaceInitializer writes a starter configuration into a directory.
type WorkspaceInitializer interface {
	Init(config InitConfig) (*InitResult, error)
}

type workspaceInitializer struct{}

// NewWorkspaceInitializer creates a new WorkspaceInitializer.
func NewWorkspaceInitializer() WorkspaceInitializer {
	return &workspaceInitializer{}
}

// Init writes ditto.yaml, a sample tracker fixture and a .gitignore. It is
// safe to run on an existing workspace: files that already exist are
// skipped and not overwritten.
func (wi *workspaceInitializer) Init(config InitConfig) (*InitResult, error) {
	result := &InitResult{}

	if config.TriggerPhrase == "" {
		config.TriggerPhrase = DefaultConfig().TriggerPhrase
	}
	if config.Tracker == "" {
		config.Tracker = models.TrackerFixture
	}
	if config.Tracker != models.TrackerLinear && config.Tracker != models.TrackerFixture {
		return nil, fmt.Errorf("initializing workspace: unknown tracker kind %q", config.Tracker)
	}

	created, err := ensureDir(config.BasePath)
	if err != nil {
		return nil, fmt.Errorf("initializing workspace: creating directory %s: %w", config.BasePath, err)
	}
	if created {
		result.Created = append(result.Created, config.BasePath)
	}

	data := workspaceTemplateData{InitConfig: config, Defaults: DefaultConfig()}

	files := []struct {
		name     string
		template string
		skip     bool
	}{
		{ConfigFileName + ".yaml", configTemplate, false},
		{"tracker.yaml", fixtureTemplate, config.Tracker != models.TrackerFixture},
		{".gitignore", gitignoreTemplate, false},
	}
	for _, f := range files {
		if f.skip {
			continue
		}
		target := filepath.Join(config.BasePath, f.name)
		if err := writeFileIfNotExists(target, func() ([]byte, error) {
			return renderTemplate(f.name, f.template, data)
		}, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

type workspaceTemplateData struct {
	InitConfig
	Defaults *models.Config
}

// ensureDir creates a directory if it does not exist. Returns true if created.
func ensureDir(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(path, 0o750); err != nil {
		return false, err
	}
	return true, nil
}

// writeFileIfNotExists writes content from contentFn if the file does not exist.
// It records created/skipped in the result.
func writeFileIfNotExists(path string, contentFn func() ([]byte, error), result *InitResult) error {
	if _, err := os.Stat(path); err == nil {
		result.Skipped = append(result.Skipped, path)
		return nil
	}
	content, err := contentFn()
	if err != nil {
		return fmt.Errorf("initializing workspace: generating content for %s: %w", path, err)
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("initializing workspace: writing %s: %w", path, err)
	}
	result.Created = append(result.Created, path)
	return nil
}

func renderTemplate(name, content string, data any) ([]byte, error) {
	tmpl, err := template.New(name).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parsing template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

const configTemplate = `# ditto configuration. Environment overrides:
#   DITTO_LINEAR_API_KEY, DITTO_SLACK_WEBHOOK_URL,
#   DITTO_TARGET_SPEAKER, DITTO_LOG_LEVEL
trigger_phrase: {{ printf "%q" .TriggerPhrase }}

speaker:
  # Only this speaker's commands are honored.
  target: {{ printf "%q" .Speaker }}
  tolerance: {{ .Defaults.Speaker.Tolerance }}

collection:
  window: {{ .Defaults.Collection.Window }}
  mode: {{ .Defaults.Collection.Mode }}   # fixed or rolling
  poll_interval: {{ .Defaults.Collection.PollInterval }}

# Spoken keywords per field. A field may list several keywords.
fields:
  team: [team]
  project: [project]
  cycle: [cycle]
  due_date: [due date]
  priority: [priority]
  assignee: [assignee]
  label: [label, labels]
  title: [title]
  description: [description]

defaults:
  title: {{ printf "%q" .Defaults.Defaults.Title }}

dispatch:
  append_context: {{ .Defaults.Dispatch.AppendContext }}

tracker:
  kind: {{ .Tracker }}
{{- if eq (printf "%s" .Tracker) "linear" }}
  api_url: {{ .Defaults.Tracker.APIURL }}
  timeout: {{ .Defaults.Tracker.Timeout }}
{{- else }}
  fixture_path: tracker.yaml
{{- end }}
  reference_ttl: {{ .Defaults.Tracker.ReferenceTTL }}

source:
  kind: file
  path: captions.txt
  line_interval: {{ .Defaults.Source.LineInterval }}   # spacing of replayed lines without timestamps

notifications:
  slack:
    enabled: false
    channel: {{ printf "%q" .Defaults.Notifications.Slack.Channel }}
  alerts:
    failure_threshold: {{ .Defaults.Notifications.Alerts.FailureThreshold }}
    failure_window: {{ .Defaults.Notifications.Alerts.FailureWindow }}
    abort_streak: {{ .Defaults.Notifications.Alerts.AbortStreak }}

logging:
  level: info
  format: console

event_log: {{ .Defaults.EventLogPath }}
`

const fixtureTemplate = `# Offline tracker used by "tracker.kind: fixture". Issues created against
# it are numbered per team and kept in memory only.
teams:
  - id: team-eng
    key: ENG
    name: Engineering
    projects:
      - id: proj-web
        key: WEB
        name: Website
    cycles:
      - id: cyc-1
        name: Sprint 1
        number: 1
        active: true
    labels:
      - id: lbl-bug
        name: bug
      - id: lbl-backend
        name: backend
users:
  - id: user-1
    name: {{ if .Speaker }}{{ printf "%q" .Speaker }}{{ else }}"me"{{ end }}
labels:
  - id: lbl-urgent
    name: urgent
`

const gitignoreTemplate = `{{ .Defaults.EventLogPath }}
captions.txt
`
