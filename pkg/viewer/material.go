package viewer

import (
	"fmt"
	"strings"

	"github.com/makistry/meshview/pkg/mesh"
)

// Role is the purpose of a layer within a session
type Role string

const (
	// RoleSolidShell is the translucent grey body of the model
	RoleSolidShell Role = "solid-shell"
	// RoleWireframe draws the mesh edges on top of the shell
	RoleWireframe Role = "wireframe-overlay"
	// RoleResult shows per-vertex result colors
	RoleResult Role = "colorized-result"
)

// Roles lists every role in declaration order
func Roles() []Role {
	return []Role{RoleSolidShell, RoleWireframe, RoleResult}
}

// ParseRole converts a role name, accepting the short forms shell, wireframe
// and result
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(name) {
	case "solid-shell", "shell", "solid":
		return RoleSolidShell, nil
	case "wireframe-overlay", "wireframe", "wire":
		return RoleWireframe, nil
	case "colorized-result", "result", "results":
		return RoleResult, nil
	}
	return "", fmt.Errorf("unknown layer role %q", name)
}

// Side selects which faces are drawn
type Side int

const (
	FrontSide Side = iota
	DoubleSide
)

// Color is a linear RGB color with components in 0..1
type Color struct {
	R, G, B float64
}

// Material is the declarative description of how a layer is drawn. Devices
// turn it into their own resources.
type Material struct {
	Name         string
	Color        Color
	Opacity      float64
	Transparent  bool
	Side         Side
	Wireframe    bool
	DepthWrite   bool
	VertexColors bool
	FlatShading  bool
	Roughness    float64
	Metalness    float64

	PolygonOffset       bool
	PolygonOffsetFactor float64
	PolygonOffsetUnits  float64

	// FromSource is set when the material was taken from the loaded asset
	FromSource bool
}

// ShellMaterial is the material of the solid-shell layer
func ShellMaterial() Material {
	return Material{
		Name:        "shell",
		Color:       Color{0.6, 0.6, 0.6},
		Opacity:     0.35,
		Transparent: true,
		Side:        DoubleSide,
		DepthWrite:  true,
		Roughness:   0.8,
	}
}

// WireframeMaterial is the material of the wireframe-overlay layer
func WireframeMaterial() Material {
	return Material{
		Name:                "wireframe",
		Color:               Color{1, 1, 1},
		Opacity:             0.6,
		Transparent:         true,
		Side:                FrontSide,
		Wireframe:           true,
		DepthWrite:          false,
		PolygonOffset:       true,
		PolygonOffsetFactor: 1,
		PolygonOffsetUnits:  1,
		Roughness:           1,
	}
}

// VertexColorMaterial replaces a result material that does not use vertex
// colors
func VertexColorMaterial() Material {
	return Material{
		Name:         "vertex-colors",
		Color:        Color{1, 1, 1},
		Opacity:      1,
		Side:         DoubleSide,
		DepthWrite:   true,
		VertexColors: true,
		FlatShading:  true,
		Roughness:    1,
	}
}

// ResultMaterial keeps the source material when it declares vertex colors
// and substitutes VertexColorMaterial otherwise
func ResultMaterial(src *mesh.SourceMaterial) Material {
	if src == nil || !src.VertexColors {
		return VertexColorMaterial()
	}

	side := FrontSide
	if src.DoubleSided {
		side = DoubleSide
	}
	opacity := src.BaseColor[3]
	return Material{
		Name:         src.Name,
		Color:        Color{src.BaseColor[0], src.BaseColor[1], src.BaseColor[2]},
		Opacity:      opacity,
		Transparent:  opacity < 1,
		Side:         side,
		DepthWrite:   true,
		VertexColors: true,
		Roughness:    1,
		FromSource:   true,
	}
}

// MaterialFor builds the material of a role from scratch
func MaterialFor(role Role, src *mesh.SourceMaterial) (Material, error) {
	switch role {
	case RoleSolidShell:
		return ShellMaterial(), nil
	case RoleWireframe:
		return WireframeMaterial(), nil
	case RoleResult:
		return ResultMaterial(src), nil
	}
	return Material{}, fmt.Errorf("unknown layer role %q", role)
}
