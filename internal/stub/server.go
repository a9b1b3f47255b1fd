// Package stub is a local stand-in for the design backend. It answers the
// pipeline endpoints with canned JSON and serves generated placeholder
// artifacts.
package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/makistry/meshview/internal/api"
	"github.com/makistry/meshview/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds graceful shutdown in Run
const ShutdownTimeout = 5 * time.Second

// Geometry is the canned optimal geometry; it also sizes the placeholder
// artifacts.
type Geometry struct {
	WidthMM  float64
	DepthMM  float64
	HeightMM float64
}

// DefaultGeometry matches the canned brainstorm response
var DefaultGeometry = Geometry{WidthMM: 60, DepthMM: 90, HeightMM: 80}

// Options configures a Server
type Options struct {
	// StaticDir, when set, overrides generated artifacts with files of the
	// same name.
	StaticDir string
	Geometry  Geometry
	Logger    *zap.Logger
	// Metrics and Gatherer enable request metrics and the /metrics endpoint
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer
	// NewProjectID overrides project id generation
	NewProjectID func() string
}

// Server is the stub backend
type Server struct {
	opts    Options
	logger  *zap.Logger
	assets  *assetSet
	handler http.Handler
}

// New creates a stub server
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Geometry == (Geometry{}) {
		opts.Geometry = DefaultGeometry
	}
	if opts.NewProjectID == nil {
		opts.NewProjectID = func() string { return "proj_" + uuid.NewString() }
	}
	s := &Server{
		opts:   opts,
		logger: opts.Logger.With(zap.String("component", "stub")),
		assets: &assetSet{geometry: opts.Geometry},
	}
	s.handler = s.routes()
	return s
}

// Handler returns the HTTP handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+api.PathBrainstorm, s.handleBrainstorm)
	mux.HandleFunc("POST "+api.PathGenerateDesign, s.handleGenerateDesign)
	mux.HandleFunc("POST "+api.PathGenerateMesh, s.handleGenerateMesh)
	mux.HandleFunc("POST "+api.PathPrepareSimulation, s.handlePrepareSimulation)
	mux.HandleFunc("POST "+api.PathRunSimulation, s.handleRunSimulation)
	mux.HandleFunc("GET /static/{name}", s.handleStatic)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	middlewares := []Middleware{Recovery(s.logger), RequestLogger(s.logger), CORS()}
	if s.opts.Metrics != nil {
		middlewares = append(middlewares, s.opts.Metrics.Middleware)
	}
	return Chain(mux, middlewares...)
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("stub backend listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	s.logger.Info("stub backend stopped")
	return nil
}

func (s *Server) handleBrainstorm(w http.ResponseWriter, r *http.Request) {
	var req api.BrainstormRequest
	if !decodeBody(w, r, &req) {
		return
	}

	name := "Demo Project"
	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		runes := []rune(prompt)
		if len(runes) > 32 {
			runes = runes[:32]
		}
		name = "Project: " + string(runes)
	}

	g := s.opts.Geometry
	writeJSON(w, http.StatusOK, map[string]any{
		"project_id": s.opts.NewProjectID(),
		"brainstorm": map[string]any{
			"project_name":           name,
			"design_one_liner":       "A compact, parametric desktop accessory.",
			"key_features":           []string{"Lightweight", "Parametric", "Printable"},
			"key_functionalities":    []string{"Holds device", "Anti-slip base"},
			"design_components":      []string{"Base", "Support Arm", "Cradle"},
			"optimal_geometry":       map[string]float64{"width_mm": g.WidthMM, "depth_mm": g.DepthMM, "height_mm": g.HeightMM},
			"optimal_material":       map[string]string{"body": "PLA", "finish": "Matte"},
			"parametric_information": map[string]float64{"wall_thickness_mm": 2.4, "fillet_mm": 2},
		},
	})
}

func (s *Server) handleGenerateDesign(w http.ResponseWriter, r *http.Request) {
	var req api.ProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, api.DesignResponse{
		ProjectID:  projectOrDemo(req.ProjectID),
		CADVersion: 1,
		Code:       "# CadQuery code would be generated server-side",
		BlobURL:    "/static/" + AssetPlaceholder,
	})
}

func (s *Server) handleGenerateMesh(w http.ResponseWriter, r *http.Request) {
	var req api.ProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, api.MeshResponse{
		GLBURL: "/static/" + AssetMesh,
		INPURL: "/static/" + AssetMeshInput,
	})
}

func (s *Server) handlePrepareSimulation(w http.ResponseWriter, r *http.Request) {
	var req api.ProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, api.SimulationResponse{
		ProjectID:         projectOrDemo(req.ProjectID),
		SimulationVersion: 1,
		CADStepVersion:    1,
		SimulationJSON:    json.RawMessage(`{"status":"prepared","meshes":1}`),
	})
}

func (s *Server) handleRunSimulation(w http.ResponseWriter, r *http.Request) {
	var req api.ProjectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, api.RunResponse{
		Status: "completed",
		Results: api.SimulationResults{
			GLB: "/static/" + AssetResults,
			FRD: "/static/" + AssetResultsFRD,
			DAT: "/static/" + AssetResultsDAT,
		},
	})
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := path.Base(r.PathValue("name"))
	if name == "." || name == "/" || strings.Contains(name, "..") {
		http.NotFound(w, r)
		return
	}

	if s.opts.StaticDir != "" {
		p := filepath.Join(s.opts.StaticDir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			http.ServeFile(w, r, p)
			return
		}
	}

	a, ok, err := s.assets.get(name)
	if err != nil {
		s.logger.Error("failed to build placeholder assets", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "asset generation failed")
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(a.data)))
	_, _ = w.Write(a.data)
}

func projectOrDemo(id string) string {
	if id == "" {
		return "proj_demo"
	}
	return id
}

// decodeBody reads an optional JSON body. An empty body is accepted.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
