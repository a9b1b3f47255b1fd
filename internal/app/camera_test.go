package app

import (
	"math"
	"testing"
)

func TestViewPresetAngles(t *testing.T) {
	tests := []struct {
		preset    ViewPreset
		elevation float64
		azimuth   float64
	}{
		{ViewFront, 0, 0},
		{ViewBack, 0, math.Pi},
		{ViewLeft, 0, -math.Pi / 2},
		{ViewRight, 0, math.Pi / 2},
		{ViewTop, math.Pi / 2, 0},
		{ViewBottom, -math.Pi / 2, 0},
	}
	for _, tt := range tests {
		e, a := tt.preset.Angles()
		if e != tt.elevation || a != tt.azimuth {
			t.Errorf("%s: Angles() = (%v, %v), want (%v, %v)", tt.preset, e, a, tt.elevation, tt.azimuth)
		}
	}
}

func TestLocalPath(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		local bool
	}{
		{"model.stl", "model.stl", true},
		{"file:///tmp/model.stl", "/tmp/model.stl", true},
		{"http://localhost:8000/static/mesh.glb", "", false},
	}
	for _, tt := range tests {
		got, ok := localPath(tt.in)
		if got != tt.want || ok != tt.local {
			t.Errorf("localPath(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.local)
		}
	}
}
