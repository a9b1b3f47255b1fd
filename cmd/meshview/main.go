package main

import (
	"fmt"
	"os"

	"github.com/makistry/meshview/internal/config"
	"github.com/makistry/meshview/internal/logger"
	"github.com/makistry/meshview/version"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	logFile    string

	// cfg is loaded before every command runs
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "meshview",
	Short: "Inspect, frame and render design meshes",
	Long: `meshview loads STL and GLB meshes from disk or a design backend, frames
them in a 3D viewport and composites shell, wireframe and result layers.
It also drives the design pipeline and serves a stub backend for development.`,
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, _, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") || loaded.Logging.Level == "" {
			loaded.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-file") {
			loaded.Logging.LogFile = logFile
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		cfg = loaded
		return logger.Init(cfg.Logging.Level, cfg.Logging.LogFile)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to meshview.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write logs to this file")
}

func main() {
	ctx, stop := signalContext()
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
