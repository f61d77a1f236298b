package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/ditto/internal/core"
	"github.com/valter-silva-au/ditto/internal/integration"
	"github.com/valter-silva-au/ditto/pkg/models"
	"go.uber.org/zap"
)

var (
	listenSource string
	listenPath   string
	listenFollow bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Watch a transcript and create issues from spoken commands",
	Long: `Start the command pipeline. Fragments are read from the configured source:

  file         a caption file with one fragment per line, either
               "[Speaker] text", "Speaker: text" or a JSON object with
               text, speaker and timestamp keys
  interactive  type each fragment and say whether the target spoke it

With --follow the file is tailed until interrupted; otherwise ditto replays
the file, finalizes any open command, and exits.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Config == nil || NewPipeline == nil {
			return fmt.Errorf("pipeline not initialized")
		}
		applyListenFlags(cmd, Config)
		if err := core.ValidateConfig(Config); err != nil {
			return err
		}
		if Directory == nil {
			return fmt.Errorf("tracker not available: %w", TrackerErr)
		}

		src, closeSrc, err := openSource(cmd, Config.Source)
		if err != nil {
			return err
		}
		defer closeSrc()

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		logger().Info("listening for commands",
			zap.String("source", string(Config.Source.Kind)),
			zap.String("speaker", Config.Speaker.Target),
			zap.String("trigger", Config.TriggerPhrase),
		)
		err = NewPipeline(src, cmd.OutOrStdout()).Run(ctx)
		if err != nil && ctx.Err() != nil {
			// Interrupted by the operator.
			return nil
		}
		return err
	},
}

// applyListenFlags overlays explicitly set flags on the loaded config.
func applyListenFlags(cmd *cobra.Command, cfg *models.Config) {
	if cmd.Flags().Changed("source") {
		cfg.Source.Kind = models.SourceKind(listenSource)
	}
	if cmd.Flags().Changed("path") {
		cfg.Source.Path = listenPath
		if !cmd.Flags().Changed("source") {
			cfg.Source.Kind = models.SourceFile
		}
	}
}

func openSource(cmd *cobra.Command, sc models.SourceConfig) (core.FragmentSource, func(), error) {
	switch sc.Kind {
	case models.SourceInteractive:
		return integration.NewInteractiveSource(cmd.InOrStdin(), cmd.OutOrStdout(), Config.Speaker.Target), func() {}, nil
	case models.SourceFile:
		if sc.Path == "" {
			return nil, nil, fmt.Errorf("no source file: set source.path or pass --path")
		}
		fs, err := integration.NewFileSource(sc.Path, listenFollow, logger())
		if err != nil {
			return nil, nil, err
		}
		fs.SetLineInterval(sc.LineInterval)
		return fs, func() {
			if err := fs.Close(); err != nil {
				logger().Warn("closing source", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind %q", sc.Kind)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func logger() *zap.Logger {
	if Logger == nil {
		return zap.NewNop()
	}
	return Logger
}

func init() {
	listenCmd.Flags().StringVar(&listenSource, "source", "", "Fragment source: file or interactive (default from config)")
	listenCmd.Flags().StringVar(&listenPath, "path", "", "Caption file to read (implies --source file)")
	listenCmd.Flags().BoolVarP(&listenFollow, "follow", "f", false, "Keep tailing the file for new lines")
	_ = listenCmd.RegisterFlagCompletionFunc("source", completeSourceKinds)
	_ = listenCmd.RegisterFlagCompletionFunc("path", completeCaptionFiles)
	rootCmd.AddCommand(listenCmd)
}
