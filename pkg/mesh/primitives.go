package mesh

// Box returns an indexed, axis-aligned box centered at (cx, cy, cz) whose
// faces are split into divisions x divisions quads.
func Box(name string, width, height, depth float32, cx, cy, cz float32, divisions int) *Asset {
	if divisions < 1 {
		divisions = 1
	}
	a := &Asset{Name: name}
	hw, hh, hd := width/2, height/2, depth/2

	// Each face: origin corner, u axis, v axis (+Z, -Z, +X, -X, +Y, -Y)
	faces := [6][3][3]float32{
		{{-hw, -hh, hd}, {width, 0, 0}, {0, height, 0}},
		{{hw, -hh, -hd}, {-width, 0, 0}, {0, height, 0}},
		{{hw, -hh, hd}, {0, 0, -depth}, {0, height, 0}},
		{{-hw, -hh, -hd}, {0, 0, depth}, {0, height, 0}},
		{{-hw, hh, hd}, {width, 0, 0}, {0, 0, -depth}},
		{{-hw, -hh, -hd}, {width, 0, 0}, {0, 0, depth}},
	}

	n := divisions + 1
	for _, f := range faces {
		base := uint32(a.VertexCount())
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				u := float32(i) / float32(divisions)
				v := float32(j) / float32(divisions)
				a.Positions = append(a.Positions,
					cx+f[0][0]+u*f[1][0]+v*f[2][0],
					cy+f[0][1]+u*f[1][1]+v*f[2][1],
					cz+f[0][2]+u*f[1][2]+v*f[2][2],
				)
			}
		}
		for j := 0; j < divisions; j++ {
			for i := 0; i < divisions; i++ {
				p0 := base + uint32(j*n+i)
				p1 := p0 + 1
				p2 := p0 + uint32(n)
				p3 := p2 + 1
				a.Indices = append(a.Indices, p0, p1, p3, p0, p3, p2)
			}
		}
	}

	a.ComputeBounds()
	return a
}

// Cube returns the 8-vertex, 12-triangle cube spanning [-1,-1,-1]..[1,1,1]
// translated by (cx, cy, cz).
func Cube(cx, cy, cz float32) *Asset {
	positions := []float32{
		-1, -1, -1,
		1, -1, -1,
		1, 1, -1,
		-1, 1, -1,
		-1, -1, 1,
		1, -1, 1,
		1, 1, 1,
		-1, 1, 1,
	}
	for i := 0; i < len(positions); i += 3 {
		positions[i] += cx
		positions[i+1] += cy
		positions[i+2] += cz
	}
	a := New("cube", positions)
	a.Indices = []uint32{
		0, 2, 1, 0, 3, 2, // -Z
		4, 5, 6, 4, 6, 7, // +Z
		0, 1, 5, 0, 5, 4, // -Y
		3, 7, 6, 3, 6, 2, // +Y
		0, 4, 7, 0, 7, 3, // -X
		1, 2, 6, 1, 6, 5, // +X
	}
	return a
}

// Heatmap maps t in [0,1] to a blue-green-red ramp
func Heatmap(t float64) (r, g, b float32) {
	switch {
	case t < 0:
		t = 0
	case t > 1:
		t = 1
	}
	if t < 0.5 {
		s := float32(t * 2)
		return 0, s, 1 - s
	}
	s := float32((t - 0.5) * 2)
	return s, 1 - s, 0
}

// PaintByHeight assigns heatmap vertex colors along the Y axis of the asset
func (a *Asset) PaintByHeight() {
	a.Colors = make([]float32, 0, a.VertexCount()*ColorStride)
	size := a.Box.Size()
	for i := 0; i < a.VertexCount(); i++ {
		t := 0.0
		if size.Y > 0 {
			t = (a.Vertex(i).Y - a.Box.Min.Y) / size.Y
		}
		r, g, b := Heatmap(t)
		a.Colors = append(a.Colors, r, g, b, 1)
	}
}
