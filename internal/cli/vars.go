package cli

import (
	"io"

	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/internal/observability"
	"github.com/valter-silva-au/ditto/pkg/models"
	"go.uber.org/zap"
)

// Service instances, set during app initialization in app.go.
var (
	Config    *models.Config
	Logger    *zap.Logger
	Extractor *core.FieldExtractor
	Validator *core.FieldValidator

	// Directory is nil when the tracker could not be set up; TrackerErr
	// then says why.
	Directory  core.ReferenceDirectory
	TrackerErr error

	// NewPipeline builds a command pipeline reading from src that prints
	// outcomes to out in addition to any configured notifiers.
	NewPipeline func(src core.FragmentSource, out io.Writer) *core.CommandPipeline
)

// Observability service instances, set during app initialization in app.go.
var (
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
)
