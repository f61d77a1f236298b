package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ditto/internal/observability"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display command outcome metrics",
	Long: `Display metrics derived from the event log: commands opened, issues
created, aborted, failed and empty commands, the fields most often dropped,
and dispatch latency.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (event log may be disabled)")
		}

		sinceTime, err := parseSinceDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		metrics, err := MetricsCalc.Calculate(sinceTime)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(metrics, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}
		printMetrics(out, sinceTime, metrics)
		return nil
	},
}

func printMetrics(out io.Writer, since time.Time, m *observability.Metrics) {
	fmt.Fprintf(out, "Metrics (since %s)\n\n", since.Format("2006-01-02"))
	fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", m.EventCount)
	fmt.Fprintf(out, "  %-24s %d\n", "Commands opened:", m.CommandsOpened)
	fmt.Fprintf(out, "  %-24s %d\n", "Issues created:", m.IssuesCreated)
	fmt.Fprintf(out, "  %-24s %d\n", "Commands aborted:", m.CommandsAborted)
	fmt.Fprintf(out, "  %-24s %d\n", "Commands failed:", m.CommandsFailed)
	fmt.Fprintf(out, "  %-24s %d\n", "Empty commands:", m.CommandsEmpty)
	fmt.Fprintf(out, "  %-24s %.0f%%\n", "Success rate:", m.SuccessRate()*100)
	if m.MaxLatencyMs > 0 {
		fmt.Fprintf(out, "  %-24s %dms avg, %dms max\n", "Latency:", m.AvgLatencyMs, m.MaxLatencyMs)
	}

	printCounts(out, "Ignored fields", m.OmissionsByField)
	printCounts(out, "Abort reasons", m.AbortsByReason)

	if m.OldestEvent != nil {
		fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", m.OldestEvent.Format(time.RFC3339))
	}
	if m.NewestEvent != nil {
		fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", m.NewestEvent.Format(time.RFC3339))
	}
}

// printCounts prints counts highest first, then by key.
func printCounts(out io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	fmt.Fprintf(out, "\n  %s:\n", title)
	for _, k := range keys {
		fmt.Fprintf(out, "    %-20s %d\n", k+":", counts[k])
	}
}

// parseSinceDuration parses a human-friendly duration string like "7d", "30d",
// or "24h" and returns the corresponding time in the past.
func parseSinceDuration(s string) (time.Time, error) {
	now := time.Now().UTC()
	s = strings.TrimSpace(s)
	if s == "" {
		return now.AddDate(0, 0, -7), nil
	}

	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid day duration %q", s)
		}
		return now.AddDate(0, 0, -days), nil
	}

	if strings.HasSuffix(s, "h") {
		hours, err := strconv.Atoi(strings.TrimSuffix(s, "h"))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid hour duration %q", s)
		}
		return now.Add(-time.Duration(hours) * time.Hour), nil
	}

	return time.Time{}, fmt.Errorf("unsupported duration format %q (use e.g. 7d, 30d, 24h)", s)
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	_ = metricsCmd.RegisterFlagCompletionFunc("since", completeSinceWindows)
	rootCmd.AddCommand(metricsCmd)
}
