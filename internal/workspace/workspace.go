// Package workspace sequences the design pipeline: brainstorm, design,
// simulation preparation, meshing and simulation run.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/makistry/meshview/internal/api"
	"github.com/makistry/meshview/pkg/loader"
	"github.com/makistry/meshview/pkg/viewer"
	"go.uber.org/zap"
)

var (
	// ErrLocked is returned when an action's prerequisite stage is missing
	ErrLocked = errors.New("action locked")
	// ErrBusy is returned when another action is still running
	ErrBusy = errors.New("another action is in progress")
)

// Stage is how far the pipeline has advanced
type Stage int

const (
	StageEmpty Stage = iota
	StageBrainstormed
	StageDesigned
	StagePrepared
	StageMeshed
	StageSimulated
)

func (s Stage) String() string {
	switch s {
	case StageEmpty:
		return "empty"
	case StageBrainstormed:
		return "brainstormed"
	case StageDesigned:
		return "designed"
	case StagePrepared:
		return "prepared"
	case StageMeshed:
		return "meshed"
	case StageSimulated:
		return "simulated"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Backend is the subset of the API client the workspace drives
type Backend interface {
	Brainstorm(ctx context.Context, prompt string) (*api.BrainstormResponse, error)
	GenerateDesign(ctx context.Context, projectID string) (*api.DesignResponse, error)
	PrepareSimulation(ctx context.Context, projectID string) (*api.SimulationResponse, error)
	GenerateMesh(ctx context.Context, projectID string) (*api.MeshResponse, error)
	RunSimulation(ctx context.Context, projectID string) (*api.RunResponse, error)
	ResolveURL(ref string) string
}

// LayerDescriptor names an asset the viewer shows and the role it plays
type LayerDescriptor struct {
	URL    string
	Format loader.Format
	Role   viewer.Role
}

// State is a snapshot of the pipeline
type State struct {
	ProjectID      string
	Brainstorm     *api.Brainstorm
	CADVersion     int
	Code           string
	DesignURL      string
	SimulationJSON json.RawMessage
	MeshURL        string
	InpURL         string
	Status         string
	Results        api.SimulationResults
}

// Stage derives the pipeline stage from the state
func (s State) Stage() Stage {
	switch {
	case s.Results.GLB != "" && s.MeshURL != "":
		return StageSimulated
	case s.MeshURL != "":
		return StageMeshed
	case s.SimulationJSON != nil:
		return StagePrepared
	case s.DesignURL != "":
		return StageDesigned
	case s.ProjectID != "":
		return StageBrainstormed
	default:
		return StageEmpty
	}
}

// Workspace holds one project's pipeline state. Actions run one at a time;
// a failed action leaves the state unchanged.
type Workspace struct {
	backend Backend
	logger  *zap.Logger

	mu    sync.Mutex
	busy  bool
	state State
}

// New creates an empty workspace
func New(backend Backend, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{
		backend: backend,
		logger:  logger.With(zap.String("component", "workspace")),
	}
}

// State returns a copy of the current state
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Stage returns the current pipeline stage
func (w *Workspace) Stage() Stage {
	return w.State().Stage()
}

// Reset discards the project
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = State{}
}

// begin checks the prerequisite and marks the workspace busy. It returns the
// state the action runs against.
func (w *Workspace) begin(action string, ready func(State) bool) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return State{}, ErrBusy
	}
	if ready != nil && !ready(w.state) {
		return State{}, fmt.Errorf("%s: %w", action, ErrLocked)
	}
	w.busy = true
	return w.state, nil
}

// finish applies a successful result and clears the busy flag
func (w *Workspace) finish(apply func(*State)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if apply != nil {
		apply(&w.state)
	}
	w.busy = false
}

// Brainstorm starts a new project from a prompt. Everything derived from a
// previous project is discarded on success.
func (w *Workspace) Brainstorm(ctx context.Context, prompt string) (*api.BrainstormResponse, error) {
	if _, err := w.begin("brainstorm", nil); err != nil {
		return nil, err
	}
	resp, err := w.backend.Brainstorm(ctx, prompt)
	if err != nil {
		w.finish(nil)
		w.logger.Warn("brainstorm failed", zap.Error(err))
		return nil, err
	}
	w.finish(func(s *State) {
		b := resp.Brainstorm
		*s = State{ProjectID: resp.ProjectID, Brainstorm: &b}
	})
	w.logger.Info("project created", zap.String("project", resp.ProjectID))
	return resp, nil
}

// GenerateDesign requires a brainstormed project. A new design clears the
// simulation, mesh and results.
func (w *Workspace) GenerateDesign(ctx context.Context) (*api.DesignResponse, error) {
	cur, err := w.begin("generate design", func(s State) bool { return s.ProjectID != "" })
	if err != nil {
		return nil, err
	}
	resp, err := w.backend.GenerateDesign(ctx, cur.ProjectID)
	if err != nil {
		w.finish(nil)
		w.logger.Warn("generate design failed", zap.Error(err))
		return nil, err
	}
	w.finish(func(s *State) {
		if resp.ProjectID != "" {
			s.ProjectID = resp.ProjectID
		}
		s.CADVersion = resp.CADVersion
		s.Code = resp.Code
		s.DesignURL = w.backend.ResolveURL(resp.BlobURL)
		s.SimulationJSON = nil
		s.MeshURL = ""
		s.InpURL = ""
		s.Status = ""
		s.Results = api.SimulationResults{}
	})
	return resp, nil
}

// PrepareSimulation requires a design. A new preparation clears the mesh and
// the results computed on it.
func (w *Workspace) PrepareSimulation(ctx context.Context) (*api.SimulationResponse, error) {
	cur, err := w.begin("prepare simulation", func(s State) bool { return s.DesignURL != "" })
	if err != nil {
		return nil, err
	}
	resp, err := w.backend.PrepareSimulation(ctx, cur.ProjectID)
	if err != nil {
		w.finish(nil)
		w.logger.Warn("prepare simulation failed", zap.Error(err))
		return nil, err
	}
	w.finish(func(s *State) {
		sim := resp.SimulationJSON
		if sim == nil {
			sim = json.RawMessage("null")
		}
		s.SimulationJSON = sim
		s.MeshURL = ""
		s.InpURL = ""
		s.Status = ""
		s.Results = api.SimulationResults{}
	})
	return resp, nil
}

// GenerateMesh requires a prepared simulation
func (w *Workspace) GenerateMesh(ctx context.Context) (*api.MeshResponse, error) {
	cur, err := w.begin("generate mesh", func(s State) bool { return s.SimulationJSON != nil })
	if err != nil {
		return nil, err
	}
	resp, err := w.backend.GenerateMesh(ctx, cur.ProjectID)
	if err != nil {
		w.finish(nil)
		w.logger.Warn("generate mesh failed", zap.Error(err))
		return nil, err
	}
	w.finish(func(s *State) {
		s.MeshURL = w.backend.ResolveURL(resp.GLBURL)
		s.InpURL = w.backend.ResolveURL(resp.INPURL)
		s.Status = ""
		s.Results = api.SimulationResults{}
	})
	return resp, nil
}

// RunSimulation requires a mesh. The result URL is kept only when the
// backend returns one.
func (w *Workspace) RunSimulation(ctx context.Context) (*api.RunResponse, error) {
	cur, err := w.begin("run simulation", func(s State) bool { return s.MeshURL != "" })
	if err != nil {
		return nil, err
	}
	resp, err := w.backend.RunSimulation(ctx, cur.ProjectID)
	if err != nil {
		w.finish(nil)
		w.logger.Warn("run simulation failed", zap.Error(err))
		return nil, err
	}
	w.finish(func(s *State) {
		s.Status = resp.Status
		if resp.Results.GLB != "" {
			s.Results.GLB = w.backend.ResolveURL(resp.Results.GLB)
		}
		if resp.Results.FRD != "" {
			s.Results.FRD = w.backend.ResolveURL(resp.Results.FRD)
		}
		if resp.Results.DAT != "" {
			s.Results.DAT = w.backend.ResolveURL(resp.Results.DAT)
		}
	})
	return resp, nil
}

// Layers returns the viewer layers for the current stage: the design shell
// alone, shell and mesh wireframe, or shell, wireframe and colorized result.
func (w *Workspace) Layers() []LayerDescriptor {
	return LayersFor(w.State())
}

// LayersFor returns the viewer layers for a state
func LayersFor(s State) []LayerDescriptor {
	var layers []LayerDescriptor
	if s.DesignURL != "" {
		layers = append(layers, LayerDescriptor{URL: s.DesignURL, Format: loader.FormatAuto, Role: viewer.RoleSolidShell})
	}
	if s.MeshURL != "" {
		layers = append(layers, LayerDescriptor{URL: s.MeshURL, Format: loader.FormatGLB, Role: viewer.RoleWireframe})
		if s.Results.GLB != "" {
			layers = append(layers, LayerDescriptor{URL: s.Results.GLB, Format: loader.FormatGLB, Role: viewer.RoleResult})
		}
	}
	return layers
}
