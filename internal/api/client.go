// Package api is the client for the design backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Endpoint paths
const (
	PathBrainstorm        = "/brainstorm"
	PathGenerateDesign    = "/generate-design"
	PathGenerateMesh      = "/meshing/generate"
	PathPrepareSimulation = "/prepare-simulation"
	PathRunSimulation     = "/run-simulation"
)

// DefaultTimeout is used when Options.Timeout is zero
const DefaultTimeout = 60 * time.Second

// maxErrorBody bounds how much of a failed response is kept in an ActionError
const maxErrorBody = 4096

// ActionError reports a failed backend action. The pipeline stage that
// issued it is not advanced.
type ActionError struct {
	Action  string
	Status  int
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s failed: HTTP %d: %s", e.Action, e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Action, e.Err)
	default:
		return fmt.Sprintf("%s failed: %s", e.Action, e.Message)
	}
}

func (e *ActionError) Unwrap() error { return e.Err }

// IsActionError reports whether err is or wraps an *ActionError
func IsActionError(err error) bool {
	var ae *ActionError
	return errors.As(err, &ae)
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the backend over JSON/HTTP
type Client struct {
	base   *url.URL
	http   *http.Client
	logger *zap.Logger
}

// New creates a client for the backend at opts.BaseURL
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", opts.BaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme must be http or https", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		base:   base,
		http:   hc,
		logger: logger.With(zap.String("component", "api")),
	}, nil
}

// BaseURL returns the backend base URL without trailing slash
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.base.String(), "/")
}

// ResolveURL resolves an artifact URL returned by the backend. Absolute URLs
// are returned unchanged; relative ones are resolved against the base URL.
func (c *Client) ResolveURL(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return ref
	}
	return c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(u.Path, "/"), RawQuery: u.RawQuery}).String()
}

// Brainstorm turns a free-form prompt into a design concept and project id
func (c *Client) Brainstorm(ctx context.Context, prompt string) (*BrainstormResponse, error) {
	var out BrainstormResponse
	if err := c.post(ctx, "brainstorm", PathBrainstorm, BrainstormRequest{Prompt: prompt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateDesign generates the parametric CAD model for a project
func (c *Client) GenerateDesign(ctx context.Context, projectID string) (*DesignResponse, error) {
	var out DesignResponse
	if err := c.post(ctx, "generate design", PathGenerateDesign, ProjectRequest{ProjectID: projectID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateMesh meshes the prepared model
func (c *Client) GenerateMesh(ctx context.Context, projectID string) (*MeshResponse, error) {
	var out MeshResponse
	if err := c.post(ctx, "generate mesh", PathGenerateMesh, ProjectRequest{ProjectID: projectID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PrepareSimulation prepares the simulation inputs for a project
func (c *Client) PrepareSimulation(ctx context.Context, projectID string) (*SimulationResponse, error) {
	var out SimulationResponse
	if err := c.post(ctx, "prepare simulation", PathPrepareSimulation, ProjectRequest{ProjectID: projectID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RunSimulation runs the structural simulation
func (c *Client) RunSimulation(ctx context.Context, projectID string) (*RunResponse, error) {
	var out RunResponse
	if err := c.post(ctx, "run simulation", PathRunSimulation, ProjectRequest{ProjectID: projectID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, action, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &ActionError{Action: action, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")}).String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &ActionError{Action: action, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", zap.String("action", action), zap.Error(err))
		return &ActionError{Action: action, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		zap.String("action", action),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return &ActionError{Action: action, Status: resp.StatusCode, Message: text}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ActionError{Action: action, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
