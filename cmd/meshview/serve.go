package main

import (
	"fmt"

	"github.com/makistry/meshview/internal/logger"
	"github.com/makistry/meshview/internal/metrics"
	"github.com/makistry/meshview/internal/stub"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	serveAddr      string
	serveStaticDir string
	serveNoMetrics bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the stub design backend",
	Long: `Serve canned responses for every pipeline action and placeholder
artifacts under /static so the viewer and the pipeline can be exercised
without the real backend.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (config default)")
	serveCmd.Flags().StringVar(&serveStaticDir, "static", "", "Directory whose files override the generated artifacts")
	serveCmd.Flags().BoolVar(&serveNoMetrics, "no-metrics", false, "Disable the /metrics endpoint")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	staticDir := cfg.Server.StaticDir
	if serveStaticDir != "" {
		staticDir = serveStaticDir
	}

	opts := stub.Options{
		StaticDir: staticDir,
		Logger:    logger.Log,
	}
	if cfg.Server.Metrics && !serveNoMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts.Metrics = metrics.NewCollector("meshview", reg, logger.Log)
		opts.Gatherer = reg
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Stub backend on %s\n", addr)
	return stub.New(opts).Run(cmd.Context(), addr)
}
