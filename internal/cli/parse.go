package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/pkg/models"
)

var (
	parseValidate bool
	parseJSON     bool
)

// parseResult is the --json form of parse output.
type parseResult struct {
	Extracted models.ExtractedFields  `json:"extracted"`
	Validated *models.ValidatedFields `json:"validated,omitempty"`
	Aborted   *abortResult            `json:"aborted,omitempty"`
}

type abortResult struct {
	Field          models.Field `json:"field"`
	Reason         string       `json:"reason"`
	AvailableTeams []string     `json:"available_teams,omitempty"`
}

var parseCmd = &cobra.Command{
	Use:   "parse <text>...",
	Short: "Show the fields ditto would extract from a spoken command",
	Long: `Run the field extractor over the given text and print the raw values. The
trigger phrase is optional; text before it is ignored.

With --validate the values are also resolved against the tracker, showing
which fields would be applied, which would be ignored, or why the command
would abort. No issue is created.`,
	Example: `  ditto parse "please create issue login is broken team engineering priority high"
  ditto parse --validate "please create issue title flaky test team web label ci"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Extractor == nil {
			return fmt.Errorf("field extractor not initialized")
		}
		text := strings.Join(args, " ")
		result := parseResult{Extracted: Extractor.Extract(text)}

		if parseValidate {
			if Validator == nil {
				return fmt.Errorf("tracker not available: %w", TrackerErr)
			}
			validated, err := Validator.Validate(commandContext(cmd), result.Extracted)
			var abort *core.AbortError
			switch {
			case errors.As(err, &abort):
				result.Aborted = &abortResult{Field: abort.Field, Reason: abort.Reason, AvailableTeams: abort.AvailableTeams}
			case err != nil:
				return fmt.Errorf("validating command: %w", err)
			default:
				result.Validated = validated
			}
		}

		out := cmd.OutOrStdout()
		if parseJSON {
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting result as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		printParseResult(out, result)
		return nil
	},
}

func printParseResult(out io.Writer, r parseResult) {
	fmt.Fprintln(out, "Extracted:")
	if len(r.Extracted.Values) == 0 && len(r.Extracted.Labels) == 0 {
		fmt.Fprintln(out, "  (nothing)")
	}
	fields := make([]string, 0, len(r.Extracted.Values))
	for f := range r.Extracted.Values {
		fields = append(fields, string(f))
	}
	sort.Slice(fields, func(i, j int) bool { return fieldOrder(fields[i]) < fieldOrder(fields[j]) })
	for _, f := range fields {
		fmt.Fprintf(out, "  %-12s %s\n", f+":", r.Extracted.Values[models.Field(f)])
	}
	for _, l := range r.Extracted.Labels {
		fmt.Fprintf(out, "  %-12s %s\n", "label:", l)
	}

	switch {
	case r.Aborted != nil:
		fmt.Fprintf(out, "\nWould abort: %s\n", r.Aborted.Reason)
		if len(r.Aborted.AvailableTeams) > 0 {
			fmt.Fprintf(out, "  available teams: %s\n", strings.Join(r.Aborted.AvailableTeams, ", "))
		}
	case r.Validated != nil:
		fmt.Fprintln(out, "\nWould apply:")
		for _, a := range r.Validated.Applied() {
			fmt.Fprintf(out, "  %-12s %s\n", string(a.Field)+":", a.Value)
		}
		if len(r.Validated.Omissions) > 0 {
			fmt.Fprintln(out, "\nWould ignore:")
			for _, om := range r.Validated.Omissions {
				fmt.Fprintf(out, "  %-12s %q (%s)\n", string(om.Field)+":", om.Value, om.Reason)
			}
		}
	}
}

func fieldOrder(f string) int {
	for i, known := range models.AllFields {
		if string(known) == f {
			return i
		}
	}
	return len(models.AllFields)
}

func init() {
	parseCmd.Flags().BoolVar(&parseValidate, "validate", false, "Resolve fields against the tracker")
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(parseCmd)
}
