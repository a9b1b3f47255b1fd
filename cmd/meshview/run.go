package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/makistry/meshview/internal/api"
	"github.com/makistry/meshview/internal/logger"
	"github.com/makistry/meshview/internal/workspace"
	"github.com/makistry/meshview/pkg/loader"
	"github.com/spf13/cobra"
)

var (
	runBackend  string
	runUntil    string
	runSnapshot string
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Drive the design pipeline against a backend",
	Long: `Brainstorm a design from the prompt, then generate the design, prepare
the simulation, generate the mesh and run the simulation. --until stops after
an earlier stage; --snapshot renders the resulting layers.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runBackend, "backend", "", "Backend base URL (config default)")
	runCmd.Flags().StringVar(&runUntil, "until", "simulated", "Last stage to reach (brainstormed, designed, prepared, meshed, simulated)")
	runCmd.Flags().StringVar(&runSnapshot, "snapshot", "", "Render the resulting layers to this PNG")
}

func parseStage(name string) (workspace.Stage, error) {
	for s := workspace.StageBrainstormed; s <= workspace.StageSimulated; s++ {
		if s.String() == strings.ToLower(name) {
			return s, nil
		}
	}
	return workspace.StageEmpty, fmt.Errorf("unknown stage %q", name)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	until, err := parseStage(runUntil)
	if err != nil {
		return err
	}
	baseURL := cfg.Backend.BaseURL
	if runBackend != "" {
		baseURL = runBackend
	}

	client, err := api.New(api.Options{BaseURL: baseURL, Timeout: cfg.Backend.Timeout, Logger: logger.Log})
	if err != nil {
		return err
	}
	ws := workspace.New(client, logger.Log)
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	resp, err := ws.Brainstorm(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%-12s %s (%s)\n", "brainstorm", resp.Brainstorm.ProjectName, resp.ProjectID)

	steps := []struct {
		stage workspace.Stage
		run   func() (string, error)
	}{
		{workspace.StageDesigned, func() (string, error) {
			r, err := ws.GenerateDesign(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("version %d, %s", r.CADVersion, client.ResolveURL(r.BlobURL)), nil
		}},
		{workspace.StagePrepared, func() (string, error) {
			r, err := ws.PrepareSimulation(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("simulation version %d", r.SimulationVersion), nil
		}},
		{workspace.StageMeshed, func() (string, error) {
			r, err := ws.GenerateMesh(ctx)
			if err != nil {
				return "", err
			}
			return client.ResolveURL(r.GLBURL), nil
		}},
		{workspace.StageSimulated, func() (string, error) {
			r, err := ws.RunSimulation(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s, results %s", r.Status, client.ResolveURL(r.Results.GLB)), nil
		}},
	}

	for _, step := range steps {
		if step.stage > until {
			break
		}
		detail, err := step.run()
		if err != nil {
			return fmt.Errorf("pipeline stopped at %s: %w", ws.Stage(), err)
		}
		fmt.Fprintf(out, "%-12s %s\n", step.stage, detail)
	}

	printLayers(out, ws.Layers())
	if runSnapshot == "" {
		return nil
	}
	return snapshotWorkspace(cmd, baseURL, ws.Layers())
}

func printLayers(w io.Writer, layers []workspace.LayerDescriptor) {
	if len(layers) == 0 {
		return
	}
	fmt.Fprintln(w, "\nLayers:")
	for _, l := range layers {
		fmt.Fprintf(w, "  %-18s %s\n", l.Role, l.URL)
	}
}

func snapshotWorkspace(cmd *cobra.Command, baseURL string, descriptors []workspace.LayerDescriptor) error {
	if len(descriptors) == 0 {
		return fmt.Errorf("no layers to render")
	}
	layers := make([]layerSource, len(descriptors))
	for i, d := range descriptors {
		layers[i] = layerSource{source: d.URL, format: d.Format, role: d.Role}
	}

	l := loader.New(loader.Options{BaseURL: baseURL, Logger: logger.Log})
	defer l.Close()
	r, err := newRenderer(l, layers, cfg.Viewer.Width, cfg.Viewer.Height, nil)
	if err != nil {
		return err
	}
	defer r.session.Destroy()
	if err := r.render(cmd.Context(), runSnapshot); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", runSnapshot)
	return nil
}
