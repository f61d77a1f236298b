package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/pkg/models"
)

// WorkspaceInit is the WorkspaceInitializer used by the init command.
var WorkspaceInit core.WorkspaceInitializer = core.NewWorkspaceInitializer()

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter ditto.yaml",
	Long: `Write a starter ditto.yaml, a sample tracker fixture and a .gitignore
into the given directory (default: the current directory).

Safe to run on an existing workspace: files that already exist are skipped
and not overwritten.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if WorkspaceInit == nil {
			return fmt.Errorf("workspace initializer not initialized")
		}

		basePath := "."
		if len(args) > 0 {
			basePath = args[0]
		}
		absPath, err := filepath.Abs(basePath)
		if err != nil {
			return fmt.Errorf("resolving path: %w", err)
		}

		speaker, _ := cmd.Flags().GetString("speaker")
		trigger, _ := cmd.Flags().GetString("trigger")
		tracker, _ := cmd.Flags().GetString("tracker")

		result, err := WorkspaceInit.Init(core.InitConfig{
			BasePath:      absPath,
			Speaker:       speaker,
			TriggerPhrase: trigger,
			Tracker:       models.TrackerKind(tracker),
		})
		if err != nil {
			return fmt.Errorf("initializing workspace: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(result.Created) > 0 {
			fmt.Fprintln(out, "Created:")
			for _, p := range result.Created {
				rel, _ := filepath.Rel(absPath, p)
				fmt.Fprintf(out, "  %s\n", rel)
			}
		}
		if len(result.Skipped) > 0 {
			fmt.Fprintln(out, "Skipped (already exist):")
			for _, p := range result.Skipped {
				rel, _ := filepath.Rel(absPath, p)
				fmt.Fprintf(out, "  %s\n", rel)
			}
		}

		fmt.Fprintf(out, "\nWorkspace initialized at %s\n", absPath)
		if speaker == "" {
			fmt.Fprintln(out, "Set speaker.target in ditto.yaml (or DITTO_TARGET_SPEAKER) before running listen.")
		}
		return nil
	},
}

func init() {
	initCmd.Flags().String("speaker", "", "Speaker whose commands are honored")
	initCmd.Flags().String("trigger", "", "Trigger phrase (default \"please create issue\")")
	initCmd.Flags().String("tracker", string(models.TrackerFixture), "Tracker backend: fixture or linear")
	rootCmd.AddCommand(initCmd)
}
