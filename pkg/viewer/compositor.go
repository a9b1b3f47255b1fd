package viewer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/makistry/meshview/pkg/mesh"
)

// PriorityPolicy decides which overlay is drawn last
type PriorityPolicy int

const (
	// WireframeTopmost draws shell, then result, then wireframe
	WireframeTopmost PriorityPolicy = iota
	// ResultTopmost draws shell, then wireframe, then result
	ResultTopmost
)

// ParsePriorityPolicy converts a policy name from configuration
func ParsePriorityPolicy(name string) (PriorityPolicy, error) {
	switch strings.ToLower(name) {
	case "", "wireframe-topmost", "wireframe":
		return WireframeTopmost, nil
	case "result-topmost", "result":
		return ResultTopmost, nil
	}
	return WireframeTopmost, fmt.Errorf("unknown priority policy %q", name)
}

func (p PriorityPolicy) String() string {
	if p == ResultTopmost {
		return "result-topmost"
	}
	return "wireframe-topmost"
}

// Priority returns the draw priority of a role. Lower priorities are drawn
// first.
func (p PriorityPolicy) Priority(role Role) int {
	switch role {
	case RoleSolidShell:
		return 0
	case RoleWireframe:
		if p == ResultTopmost {
			return 1
		}
		return 2
	case RoleResult:
		if p == ResultTopmost {
			return 2
		}
		return 1
	}
	return 0
}

// Layer is one drawable mesh in a session. It owns its asset copy and the
// device resources created for it.
type Layer struct {
	Role     Role
	Asset    *mesh.Asset
	Material Material
	Priority int
	Source   string

	geometry Handle
	material Handle
	released bool
}

// Compositor builds layers for roles
type Compositor struct {
	Policy PriorityPolicy
}

// Build creates a layer for the asset. The asset itself is never modified:
// the layer works on a deep copy.
func (c Compositor) Build(asset *mesh.Asset, role Role) (*Layer, error) {
	if asset == nil {
		return nil, fmt.Errorf("no asset for %s layer", role)
	}
	if err := asset.Validate(); err != nil {
		return nil, fmt.Errorf("invalid asset for %s layer: %w", role, err)
	}

	material, err := MaterialFor(role, asset.Material)
	if err != nil {
		return nil, err
	}

	owned := asset.Clone()
	if role == RoleWireframe || role == RoleResult {
		owned.EnsureNormals()
	}

	return &Layer{
		Role:     role,
		Asset:    owned,
		Material: material,
		Priority: c.Policy.Priority(role),
	}, nil
}

// SortLayers orders layers for drawing: by priority, then by role name so
// the order never depends on insertion order
func SortLayers(layers []*Layer) {
	sort.SliceStable(layers, func(i, j int) bool {
		if layers[i].Priority != layers[j].Priority {
			return layers[i].Priority < layers[j].Priority
		}
		return layers[i].Role < layers[j].Role
	})
}
