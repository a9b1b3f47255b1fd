package viewer

import (
	"testing"

	"github.com/makistry/meshview/pkg/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShellMaterial(t *testing.T) {
	m := ShellMaterial()
	assert.Equal(t, 0.35, m.Opacity)
	assert.True(t, m.Transparent)
	assert.Equal(t, DoubleSide, m.Side)
	assert.Equal(t, 0.8, m.Roughness)
	assert.False(t, m.Wireframe)
}

func TestWireframeMaterial(t *testing.T) {
	m := WireframeMaterial()
	assert.True(t, m.Wireframe)
	assert.Equal(t, Color{1, 1, 1}, m.Color)
	assert.Equal(t, 0.6, m.Opacity)
	assert.True(t, m.Transparent)
	assert.False(t, m.DepthWrite)
	assert.True(t, m.PolygonOffset)
	assert.Equal(t, 1.0, m.PolygonOffsetFactor)
	assert.Equal(t, 1.0, m.PolygonOffsetUnits)
}

func TestResultMaterialSubstitution(t *testing.T) {
	tests := []struct {
		name       string
		src        *mesh.SourceMaterial
		fromSource bool
	}{
		{"no material", nil, false},
		{"material without vertex colors", &mesh.SourceMaterial{Name: "grey", BaseColor: [4]float64{1, 1, 1, 1}}, false},
		{"vertex-colored material", &mesh.SourceMaterial{Name: "heat", BaseColor: [4]float64{1, 1, 1, 1}, VertexColors: true}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ResultMaterial(tt.src)
			assert.True(t, m.VertexColors)
			assert.Equal(t, tt.fromSource, m.FromSource)
			if !tt.fromSource {
				assert.True(t, m.FlatShading)
				assert.Equal(t, DoubleSide, m.Side)
			} else {
				assert.Equal(t, tt.src.Name, m.Name)
			}
		})
	}
}

func TestPriorityPolicies(t *testing.T) {
	w := WireframeTopmost
	assert.Less(t, w.Priority(RoleSolidShell), w.Priority(RoleResult))
	assert.Less(t, w.Priority(RoleResult), w.Priority(RoleWireframe))

	r := ResultTopmost
	assert.Less(t, r.Priority(RoleSolidShell), r.Priority(RoleWireframe))
	assert.Less(t, r.Priority(RoleWireframe), r.Priority(RoleResult))

	p, err := ParsePriorityPolicy("result-topmost")
	require.NoError(t, err)
	assert.Equal(t, ResultTopmost, p)
	_, err = ParsePriorityPolicy("sideways")
	assert.Error(t, err)
}

func TestBuildDoesNotMutateAsset(t *testing.T) {
	src := mesh.Cube(3, 0, 0)
	src.Normals = nil
	positions := append([]float32(nil), src.Positions...)

	layer, err := Compositor{}.Build(src, RoleWireframe)
	require.NoError(t, err)

	assert.True(t, layer.Asset.HasNormals(), "wireframe layers get normals")
	assert.False(t, src.HasNormals(), "source asset untouched")

	layer.Asset.Recenter()
	assert.Equal(t, positions, src.Positions)
	assert.False(t, src.Centered())
}

func TestBuildErrors(t *testing.T) {
	_, err := Compositor{}.Build(nil, RoleSolidShell)
	assert.Error(t, err)

	_, err = Compositor{}.Build(mesh.Cube(0, 0, 0), Role("sparkles"))
	assert.Error(t, err)

	bad := mesh.New("bad", []float32{0, 0})
	_, err = Compositor{}.Build(bad, RoleSolidShell)
	assert.Error(t, err)
}

func TestSortLayersIgnoresInsertionOrder(t *testing.T) {
	c := Compositor{Policy: WireframeTopmost}
	cube := mesh.Cube(0, 0, 0)

	var layers []*Layer
	for _, role := range []Role{RoleWireframe, RoleSolidShell, RoleResult} {
		l, err := c.Build(cube, role)
		require.NoError(t, err)
		layers = append(layers, l)
	}
	SortLayers(layers)

	got := []Role{layers[0].Role, layers[1].Role, layers[2].Role}
	assert.Equal(t, []Role{RoleSolidShell, RoleResult, RoleWireframe}, got)
}

func TestParseRole(t *testing.T) {
	for _, name := range []string{"shell", "solid-shell"} {
		r, err := ParseRole(name)
		require.NoError(t, err)
		assert.Equal(t, RoleSolidShell, r)
	}
	r, err := ParseRole("wireframe")
	require.NoError(t, err)
	assert.Equal(t, RoleWireframe, r)
	_, err = ParseRole("other")
	assert.Error(t, err)
}
