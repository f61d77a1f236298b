package models

import "time"

// WindowMode selects how the collection deadline behaves once a session is open.
type WindowMode string

const (
	// WindowFixed closes the session a fixed duration after the trigger.
	WindowFixed WindowMode = "fixed"
	// WindowRolling pushes the deadline out on every appended fragment.
	WindowRolling WindowMode = "rolling"
)

// TrackerKind selects the issue tracker backend.
type TrackerKind string

const (
	TrackerLinear  TrackerKind = "linear"
	TrackerFixture TrackerKind = "fixture"
)

// SourceKind selects the fragment source.
type SourceKind string

const (
	SourceFile        SourceKind = "file"
	SourceInteractive SourceKind = "interactive"
)

// Config is the full ditto configuration read from ditto.yaml and the
// environment at startup.
type Config struct {
	TriggerPhrase string              `yaml:"trigger_phrase" mapstructure:"trigger_phrase"`
	Speaker       SpeakerConfig       `yaml:"speaker" mapstructure:"speaker"`
	Collection    CollectionConfig    `yaml:"collection" mapstructure:"collection"`
	Fields        map[Field][]string  `yaml:"fields" mapstructure:"fields"`
	Defaults      DefaultsConfig      `yaml:"defaults" mapstructure:"defaults"`
	Dispatch      DispatchConfig      `yaml:"dispatch" mapstructure:"dispatch"`
	Tracker       TrackerConfig       `yaml:"tracker" mapstructure:"tracker"`
	Source        SourceConfig        `yaml:"source" mapstructure:"source"`
	Notifications NotificationsConfig `yaml:"notifications" mapstructure:"notifications"`
	Logging       LoggingConfig       `yaml:"logging" mapstructure:"logging"`
	EventLogPath  string              `yaml:"event_log" mapstructure:"event_log"`
}

// SpeakerConfig identifies the only speaker whose commands are honored.
type SpeakerConfig struct {
	Target    string        `yaml:"target" mapstructure:"target"`
	Tolerance time.Duration `yaml:"tolerance" mapstructure:"tolerance"`
}

// CollectionConfig controls how long a command session stays open.
type CollectionConfig struct {
	Window       time.Duration `yaml:"window" mapstructure:"window"`
	Mode         WindowMode    `yaml:"mode" mapstructure:"mode"`
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
}

// DefaultsConfig holds fallback values for required fields.
type DefaultsConfig struct {
	Title string `yaml:"title" mapstructure:"title"`
}

// DispatchConfig controls the create request.
type DispatchConfig struct {
	AppendContext bool `yaml:"append_context" mapstructure:"append_context"`
}

// TrackerConfig selects and configures the issue tracker backend.
type TrackerConfig struct {
	Kind         TrackerKind   `yaml:"kind" mapstructure:"kind"`
	APIURL       string        `yaml:"api_url" mapstructure:"api_url"`
	APIKey       string        `yaml:"api_key" mapstructure:"api_key"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	ReferenceTTL time.Duration `yaml:"reference_ttl" mapstructure:"reference_ttl"`
	FixturePath  string        `yaml:"fixture_path" mapstructure:"fixture_path"`
}

// SourceConfig selects where fragments come from.
type SourceConfig struct {
	Kind SourceKind `yaml:"kind" mapstructure:"kind"`
	Path string     `yaml:"path" mapstructure:"path"`
	// LineInterval spaces replayed caption lines that carry no timestamp.
	LineInterval time.Duration `yaml:"line_interval" mapstructure:"line_interval"`
}

// NotificationsConfig holds outbound notification settings.
type NotificationsConfig struct {
	Slack  SlackConfig  `yaml:"slack" mapstructure:"slack"`
	Alerts AlertsConfig `yaml:"alerts" mapstructure:"alerts"`
}

// SlackConfig holds Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
	Channel    string `yaml:"channel" mapstructure:"channel"`
}

// AlertsConfig holds thresholds for command outcome alerts.
type AlertsConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	FailureWindow    time.Duration `yaml:"failure_window" mapstructure:"failure_window"`
	AbortStreak      int           `yaml:"abort_streak" mapstructure:"abort_streak"`
}

// LoggingConfig configures the operator log.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}
