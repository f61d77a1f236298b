// Package internal provides the App struct that wires all components of
// ditto together and initializes the CLI layer.
package internal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/ditto/internal/cli"
	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/internal/integration"
	"github.com/valter-silva-au/ditto/internal/observability"
	"github.com/valter-silva-au/ditto/pkg/models"
	"go.uber.org/zap"
)

// tracker is what a backend must provide: reference lookups for the
// validator and issue creation for the dispatcher.
type tracker interface {
	core.ReferenceDirectory
	core.IssueCreator
}

// App holds all service dependencies for ditto.
type App struct {
	BasePath string
	Config   *models.Config
	Logger   *zap.Logger

	// ConfigMgr loads ditto.yaml and the environment.
	ConfigMgr core.ConfigurationManager

	// Tracker is nil when the backend could not be set up; TrackerErr then
	// holds the reason. Commands that do not talk to the tracker still work.
	Tracker    tracker
	Directory  core.ReferenceDirectory
	TrackerErr error
	// Creator creates issues through Tracker and refreshes Directory's
	// cache when a create is rejected.
	Creator core.IssueCreator

	Extractor *core.FieldExtractor
	Validator *core.FieldValidator

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Slack       *observability.SlackNotifier
}

// NewApp loads the configuration and wires all components of ditto.
// basePath is the directory holding ditto.yaml and the event log; a
// non-empty configFile overrides the config location.
func NewApp(basePath, configFile string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath, configFile)
	cfg, err := app.ConfigMgr.Load()
	if err != nil {
		return nil, err
	}
	app.Config = cfg

	app.Logger, err = observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}

	// --- Observability ---
	if cfg.EventLogPath != "" {
		eventLogPath := cfg.EventLogPath
		if !filepath.IsAbs(eventLogPath) {
			eventLogPath = filepath.Join(basePath, eventLogPath)
		}
		app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
		if err != nil {
			// Non-fatal: run without metrics and alerts.
			app.Logger.Warn("event log disabled", zap.String("path", eventLogPath), zap.Error(err))
			app.EventLog = nil
		}
	}
	if app.EventLog != nil {
		app.AlertEngine = observability.NewAlertEngine(app.EventLog, observability.ThresholdsFromConfig(cfg.Notifications.Alerts))
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}
	if cfg.Notifications.Slack.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Slack = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL, cfg.Notifications.Slack.Channel)
	}

	// --- Tracker ---
	app.Tracker, app.TrackerErr = newTracker(cfg.Tracker, basePath)
	if app.TrackerErr != nil {
		app.Logger.Debug("tracker unavailable", zap.Error(app.TrackerErr))
	} else {
		cache := integration.NewCachedDirectory(app.Tracker, cfg.Tracker.ReferenceTTL)
		app.Directory = cache
		app.Creator = integration.NewInvalidatingCreator(app.Tracker, cache)
	}

	// --- Core services ---
	app.Extractor = core.NewFieldExtractor(cfg.TriggerPhrase, cfg.Fields)
	if app.Directory != nil {
		app.Validator = core.NewFieldValidator(app.Directory, cfg.Defaults.Title, app.Logger)
	}

	// --- Wire CLI package-level variables ---
	cli.Config = cfg
	cli.Logger = app.Logger
	cli.Extractor = app.Extractor
	cli.Validator = app.Validator
	cli.Directory = app.Directory
	cli.TrackerErr = app.TrackerErr
	if app.Tracker != nil {
		cli.NewPipeline = app.NewPipeline
	}

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	if app.Slack != nil {
		cli.Notifier = app.Slack
	}

	return app, nil
}

// newTracker builds the configured backend.
func newTracker(tc models.TrackerConfig, basePath string) (tracker, error) {
	switch tc.Kind {
	case models.TrackerLinear:
		if tc.APIKey == "" {
			return nil, errors.New("tracker.api_key is not set (or export DITTO_LINEAR_API_KEY)")
		}
		return integration.NewLinearClient(tc.APIURL, tc.APIKey, tc.Timeout), nil
	case models.TrackerFixture:
		path := tc.FixturePath
		if path == "" {
			return nil, errors.New("tracker.fixture_path is not set")
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(basePath, path)
		}
		fixture, err := integration.LoadFixtureTracker(path)
		if err != nil {
			return nil, err
		}
		return fixture, nil
	default:
		return nil, fmt.Errorf("unknown tracker kind %q", tc.Kind)
	}
}

// NewPipeline builds a command pipeline over src. Outcomes are printed to
// out and posted to Slack when it is enabled.
func (a *App) NewPipeline(src core.FragmentSource, out io.Writer) *core.CommandPipeline {
	cfg := a.Config

	notifiers := observability.MultiNotifier{observability.NewConsoleNotifier(out)}
	if a.Slack != nil {
		notifiers = append(notifiers, a.Slack)
	}

	var events core.EventLogger
	if a.EventLog != nil {
		events = &eventLogAdapter{log: a.EventLog}
	}

	return core.NewCommandPipeline(core.PipelineOptions{
		Source:       src,
		Gate:         core.NewFragmentGate(cfg.Speaker.Target, cfg.Speaker.Tolerance),
		Machine:      core.NewSessionMachine(cfg.TriggerPhrase, cfg.Collection.Window, cfg.Collection.Mode),
		Extractor:    core.NewFieldExtractor(cfg.TriggerPhrase, cfg.Fields),
		Validator:    a.Validator,
		Dispatcher:   core.NewActionDispatcher(a.Creator, notifiers, cfg.Dispatch.AppendContext, a.Logger),
		Events:       events,
		Logger:       a.Logger,
		PollInterval: cfg.Collection.PollInterval,
	})
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	var errs []error
	if a.EventLog != nil {
		errs = append(errs, a.EventLog.Close())
	}
	if a.Logger != nil {
		// Sync on stderr fails with EINVAL on some terminals.
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}

// ResolveBasePath determines the directory holding ditto.yaml. It checks
// the DITTO_HOME env var, then walks up from the current directory looking
// for ditto.yaml, then falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("DITTO_HOME"); home != "" {
		return home
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, core.ConfigFileName+".yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
