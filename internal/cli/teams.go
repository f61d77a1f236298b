package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var teamsJSON bool

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "List the tracker teams a command can name",
	Long: `List the teams known to the tracker. A spoken team value is matched
case-insensitively against the key or the name.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Directory == nil {
			return fmt.Errorf("tracker not available: %w", TrackerErr)
		}
		teams, err := Directory.Teams(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("listing teams: %w", err)
		}

		out := cmd.OutOrStdout()
		if teamsJSON {
			data, err := json.MarshalIndent(teams, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting teams as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		if len(teams) == 0 {
			fmt.Fprintln(out, "No teams found.")
			return nil
		}
		fmt.Fprintf(out, "%-10s %s\n", "KEY", "NAME")
		for _, t := range teams {
			fmt.Fprintf(out, "%-10s %s\n", t.Key, t.Name)
		}
		return nil
	},
}

func init() {
	teamsCmd.Flags().BoolVar(&teamsJSON, "json", false, "Output teams as JSON")
	rootCmd.AddCommand(teamsCmd)
}
