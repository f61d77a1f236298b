package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// Initializer wires services from the configuration. It is set by main and
// runs before every command except version and help. The returned function
// releases resources after the command finishes.
type Initializer func(configFile string) (cleanup func() error, err error)

var (
	initializer Initializer
	cleanup     func() error
	configFile  string
)

// SetInitializer registers the service initializer.
func SetInitializer(fn Initializer) {
	initializer = fn
}

var rootCmd = &cobra.Command{
	Use:   "ditto",
	Short: "Turn spoken meeting commands into tracker issues",
	Long: `ditto listens to a live transcript for one speaker saying the trigger phrase
("please create issue" by default), collects what they say for a short window,
extracts fields such as team, priority and labels, validates them against the
issue tracker, and creates exactly one issue per command.

Optional fields that cannot be resolved are dropped and reported; a missing or
unknown team aborts the command.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsServices(cmd) || initializer == nil {
			return nil
		}
		fn, err := initializer(configFile)
		if err != nil {
			return fmt.Errorf("initializing ditto: %w", err)
		}
		cleanup = fn
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cleanup == nil {
			return nil
		}
		err := cleanup()
		cleanup = nil
		return err
	},
}

// needsServices reports whether cmd uses the wired services.
func needsServices(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion", "__complete", "init":
		return false
	}
	return true
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "ditto %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a ditto.yaml (default: $DITTO_HOME/ditto.yaml)")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
