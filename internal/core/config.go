// Package core contains the command pipeline for ditto: the fragment gate,
// the session state machine, the field extractor and validator, the action
// dispatcher, and the poll loop that drives them.
package core

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"github.com/valter-silva-au/ditto/pkg/models"
)

// ConfigFileName is the base name of the configuration file (without extension).
const ConfigFileName = "ditto"

// DefaultTitle is used when a command names no title at all.
const DefaultTitle = "Issue created from meeting"

// ConfigurationManager loads and validates the ditto configuration.
type ConfigurationManager interface {
	Load() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for the
// YAML file and env tags for secrets.
type viperConfigManager struct {
	basePath   string
	configFile string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// ditto.yaml from basePath, or configFile when it is non-empty.
func NewConfigurationManager(basePath, configFile string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath, configFile: configFile}
}

// envOverrides are read from the process environment after the file.
type envOverrides struct {
	LinearAPIKey    string `env:"DITTO_LINEAR_API_KEY"`
	SlackWebhookURL string `env:"DITTO_SLACK_WEBHOOK_URL"`
	TargetSpeaker   string `env:"DITTO_TARGET_SPEAKER"`
	LogLevel        string `env:"DITTO_LOG_LEVEL"`
}

// DefaultFieldKeywords returns the spoken keywords recognized for each field.
func DefaultFieldKeywords() map[models.Field][]string {
	return map[models.Field][]string{
		models.FieldTeam:        {"team"},
		models.FieldProject:     {"project"},
		models.FieldCycle:       {"cycle"},
		models.FieldDueDate:     {"due date"},
		models.FieldPriority:    {"priority"},
		models.FieldAssignee:    {"assignee"},
		models.FieldLabel:       {"label", "labels"},
		models.FieldTitle:       {"title"},
		models.FieldDescription: {"description"},
	}
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() *models.Config {
	return &models.Config{
		TriggerPhrase: "please create issue",
		Speaker: models.SpeakerConfig{
			Tolerance: 2 * time.Second,
		},
		Collection: models.CollectionConfig{
			Window:       2 * time.Second,
			Mode:         models.WindowFixed,
			PollInterval: 500 * time.Millisecond,
		},
		Fields:   DefaultFieldKeywords(),
		Defaults: models.DefaultsConfig{Title: DefaultTitle},
		Dispatch: models.DispatchConfig{AppendContext: true},
		Tracker: models.TrackerConfig{
			Kind:         models.TrackerLinear,
			APIURL:       "https://api.linear.app/graphql",
			Timeout:      15 * time.Second,
			ReferenceTTL: 5 * time.Minute,
		},
		Source: models.SourceConfig{Kind: models.SourceFile, LineInterval: 2 * time.Second},
		Notifications: models.NotificationsConfig{
			Slack: models.SlackConfig{Channel: "#engineering"},
			Alerts: models.AlertsConfig{
				FailureThreshold: 3,
				FailureWindow:    24 * time.Hour,
				AbortStreak:      3,
			},
		},
		Logging:      models.LoggingConfig{Level: "info", Format: "console"},
		EventLogPath: ".ditto_events.jsonl",
	}
}

// Load reads the configuration file and environment. A missing file is not
// an error; defaults are returned with environment overrides applied.
func (cm *viperConfigManager) Load() (*models.Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	if cm.configFile != "" {
		v.SetConfigFile(cm.configFile)
	} else {
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(cm.basePath)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s config: %w", ConfigFileName, err)
		}
	} else {
		// The keyword map is replaced wholesale when present so that a
		// config listing only some fields does not inherit stale keywords.
		if v.IsSet("fields") {
			cfg.Fields = nil
		}
		hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToKeywordsHookFunc(),
		))
		if err := v.Unmarshal(cfg, hooks); err != nil {
			return nil, fmt.Errorf("decoding %s config: %w", ConfigFileName, err)
		}
	}

	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	applyEnvOverrides(cfg, overrides)
	normalizeConfig(cfg)

	return cfg, nil
}

// stringToKeywordsHookFunc lets a field map to a single keyword string
// ("team: team") as well as a list ("label: [label, labels]").
func stringToKeywordsHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string(nil)) {
			return data, nil
		}
		return []string{data.(string)}, nil
	}
}

func applyEnvOverrides(cfg *models.Config, o envOverrides) {
	if o.LinearAPIKey != "" {
		cfg.Tracker.APIKey = o.LinearAPIKey
	}
	if o.SlackWebhookURL != "" {
		cfg.Notifications.Slack.WebhookURL = o.SlackWebhookURL
	}
	if o.TargetSpeaker != "" {
		cfg.Speaker.Target = o.TargetSpeaker
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
}

// normalizeConfig trims values and collapses whitespace inside keywords so
// that "due  date" and "due date" are the same keyword.
func normalizeConfig(cfg *models.Config) {
	cfg.TriggerPhrase = strings.Join(strings.Fields(cfg.TriggerPhrase), " ")
	cfg.Speaker.Target = strings.TrimSpace(cfg.Speaker.Target)
	cfg.Tracker.APIKey = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cfg.Tracker.APIKey), "Bearer "))
	if strings.TrimSpace(cfg.Defaults.Title) == "" {
		cfg.Defaults.Title = DefaultTitle
	}

	for field, keywords := range cfg.Fields {
		var cleaned []string
		for _, kw := range keywords {
			kw = strings.Join(strings.Fields(kw), " ")
			if kw != "" {
				cleaned = append(cleaned, kw)
			}
		}
		cfg.Fields[field] = cleaned
	}
}

var validWindowModes = map[models.WindowMode]bool{
	models.WindowFixed:   true,
	models.WindowRolling: true,
}

var validTrackerKinds = map[models.TrackerKind]bool{
	models.TrackerLinear:  true,
	models.TrackerFixture: true,
}

var validSourceKinds = map[models.SourceKind]bool{
	models.SourceFile:        true,
	models.SourceInteractive: true,
}

// ValidateConfig checks cfg for invalid values and returns a single error
// listing every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	return ValidateConfig(cfg)
}

// ValidateConfig checks cfg for invalid values and returns a single error
// listing every problem found.
func ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.TriggerPhrase == "" {
		errs = append(errs, "trigger_phrase must not be empty")
	}
	if cfg.Speaker.Target == "" {
		errs = append(errs, "speaker.target must not be empty (set it or DITTO_TARGET_SPEAKER)")
	}
	if cfg.Speaker.Tolerance <= 0 {
		errs = append(errs, fmt.Sprintf("speaker.tolerance must be positive, got %s", cfg.Speaker.Tolerance))
	}
	if cfg.Collection.Window <= 0 {
		errs = append(errs, fmt.Sprintf("collection.window must be positive, got %s", cfg.Collection.Window))
	}
	if cfg.Collection.PollInterval <= 0 {
		errs = append(errs, fmt.Sprintf("collection.poll_interval must be positive, got %s", cfg.Collection.PollInterval))
	}
	if !validWindowModes[cfg.Collection.Mode] {
		errs = append(errs, fmt.Sprintf("collection.mode %q is invalid, must be one of: fixed, rolling", cfg.Collection.Mode))
	}

	errs = append(errs, validateFieldKeywords(cfg.Fields)...)

	if !validTrackerKinds[cfg.Tracker.Kind] {
		errs = append(errs, fmt.Sprintf("tracker.kind %q is invalid, must be one of: linear, fixture", cfg.Tracker.Kind))
	}
	if cfg.Tracker.Kind == models.TrackerLinear {
		if cfg.Tracker.APIKey == "" {
			errs = append(errs, "tracker.api_key must be set for the linear tracker (or DITTO_LINEAR_API_KEY)")
		}
		if cfg.Tracker.APIURL == "" {
			errs = append(errs, "tracker.api_url must not be empty")
		}
	}
	if cfg.Tracker.Kind == models.TrackerFixture && cfg.Tracker.FixturePath == "" {
		errs = append(errs, "tracker.fixture_path must be set for the fixture tracker")
	}
	if cfg.Tracker.ReferenceTTL < 0 {
		errs = append(errs, fmt.Sprintf("tracker.reference_ttl must not be negative, got %s", cfg.Tracker.ReferenceTTL))
	}

	if !validSourceKinds[cfg.Source.Kind] {
		errs = append(errs, fmt.Sprintf("source.kind %q is invalid, must be one of: file, interactive", cfg.Source.Kind))
	}
	if cfg.Source.LineInterval <= 0 {
		errs = append(errs, fmt.Sprintf("source.line_interval must be positive, got %s", cfg.Source.LineInterval))
	}

	if cfg.Notifications.Slack.Enabled && cfg.Notifications.Slack.WebhookURL == "" {
		errs = append(errs, "notifications.slack.webhook_url must be set when slack is enabled (or DITTO_SLACK_WEBHOOK_URL)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// validateFieldKeywords rejects unknown fields, fields without keywords, and
// keywords claimed by more than one field.
func validateFieldKeywords(fields map[models.Field][]string) []string {
	var errs []string
	if len(fields) == 0 {
		return []string{"fields must define keywords for at least the team field"}
	}
	if len(fields[models.FieldTeam]) == 0 {
		errs = append(errs, "fields.team must have at least one keyword")
	}

	owner := make(map[string]models.Field)
	for _, field := range models.AllFields {
		keywords, ok := fields[field]
		if !ok {
			continue
		}
		if len(keywords) == 0 && field != models.FieldTeam {
			errs = append(errs, fmt.Sprintf("fields.%s must have at least one keyword", field))
		}
		for _, kw := range keywords {
			key := strings.ToLower(kw)
			if prev, dup := owner[key]; dup && prev != field {
				errs = append(errs, fmt.Sprintf("keyword %q is assigned to both %s and %s", kw, prev, field))
				continue
			}
			owner[key] = field
		}
	}
	for field := range fields {
		if !field.IsValid() {
			errs = append(errs, fmt.Sprintf("fields.%s is not a known field", field))
		}
	}
	return errs
}
