package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	dittomcp "github.com/valter-silva-au/ditto/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the ditto MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ditto MCP server on stdio",
	Long: `Start the ditto MCP server on stdio transport.

The server lets an assistant dry-run spoken commands without creating issues:
extract_fields, preview_command, list_teams, get_metrics, get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Extractor == nil {
			return fmt.Errorf("field extractor not initialized")
		}

		srv := dittomcp.NewServer(dittomcp.Services{
			Extractor:   Extractor,
			Validator:   Validator,
			Directory:   Directory,
			MetricsCalc: MetricsCalc,
			AlertEngine: AlertEngine,
		}, appVersion)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}
		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
