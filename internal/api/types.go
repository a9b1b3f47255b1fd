package api

import "encoding/json"

// Brainstorm is the design concept produced by /brainstorm. Extra fields
// returned by the backend are preserved in Extra.
type Brainstorm struct {
	ProjectName           string         `json:"project_name"`
	DesignOneLiner        string         `json:"design_one_liner"`
	KeyFeatures           []string       `json:"key_features"`
	KeyFunctionalities    []string       `json:"key_functionalities"`
	DesignComponents      []string       `json:"design_components"`
	OptimalGeometry       map[string]any `json:"optimal_geometry"`
	OptimalMaterial       map[string]any `json:"optimal_material"`
	ParametricInformation map[string]any `json:"parametric_information"`

	Extra map[string]json.RawMessage `json:"-"`
}

var brainstormFields = map[string]bool{
	"project_name":           true,
	"design_one_liner":       true,
	"key_features":           true,
	"key_functionalities":    true,
	"design_components":      true,
	"optimal_geometry":       true,
	"optimal_material":       true,
	"parametric_information": true,
}

// UnmarshalJSON decodes the known fields and keeps the rest in Extra.
func (b *Brainstorm) UnmarshalJSON(data []byte) error {
	type plain Brainstorm
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k, v := range all {
		if brainstormFields[k] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}
	*b = Brainstorm(p)
	return nil
}

type BrainstormRequest struct {
	Prompt string `json:"prompt"`
}

type BrainstormResponse struct {
	ProjectID  string     `json:"project_id"`
	Brainstorm Brainstorm `json:"brainstorm"`
}

// ProjectRequest is the body of every project-scoped action.
type ProjectRequest struct {
	ProjectID string `json:"project_id"`
}

type DesignResponse struct {
	ProjectID  string `json:"project_id"`
	CADVersion int    `json:"cad_version"`
	Code       string `json:"code"`
	BlobURL    string `json:"blob_url"`
}

type MeshResponse struct {
	GLBURL string `json:"glb_url"`
	INPURL string `json:"inp_url"`
}

type SimulationResponse struct {
	ProjectID         string          `json:"project_id"`
	SimulationVersion int             `json:"simulation_version"`
	CADStepVersion    int             `json:"cad_step_version"`
	SimulationJSON    json.RawMessage `json:"simulation_json"`
}

// SimulationResults holds artifact URLs; any of them may be empty.
type SimulationResults struct {
	GLB string `json:"glb,omitempty"`
	FRD string `json:"frd,omitempty"`
	DAT string `json:"dat,omitempty"`
}

type RunResponse struct {
	Status  string            `json:"status"`
	Results SimulationResults `json:"results"`
}
