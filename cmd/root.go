package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mottledev/marionette/internal/config"
	"github.com/mottledev/marionette/internal/observability"
)

var (
	cfgFile string

	// loadedConfig is populated by the root PersistentPreRunE and read by
	// every subcommand.
	loadedConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:     "marionette",
	Short:   "Marionette is a procedural character motion engine.",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			// A fallback logger so the error itself is visible somewhere.
			observability.InitializeLogger(config.LoggerConfig{
				Level: "info", Format: "console", ServiceName: "marionette",
			})
			return fmt.Errorf("loading configuration: %w", err)
		}
		loadedConfig = cfg

		observability.InitializeLogger(cfg.Logger())
		observability.GetLogger().Info("starting marionette", zap.String("version", Version))
		return nil
	},
}

// ExecuteContext runs the root command under a signal-aware context and
// exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	defer observability.Sync()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	rootCmd.AddCommand(newSimulateCmd())
}
