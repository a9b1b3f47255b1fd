package mesh

import "strings"

// Merge combines several assets into one. Colors are kept when any part has
// them (parts without colors are filled with white). Normals are kept only
// when every part has them. The first declared material wins.
func Merge(name string, parts ...*Asset) *Asset {
	if len(parts) == 1 {
		c := parts[0].Clone()
		if name != "" {
			c.Name = name
		}
		return c
	}

	out := &Asset{Name: name}
	anyColors, allNormals, anyIndexed := false, true, false
	var names []string
	for _, p := range parts {
		anyColors = anyColors || p.HasColors()
		allNormals = allNormals && p.HasNormals()
		anyIndexed = anyIndexed || p.Indices != nil
		if p.Name != "" {
			names = append(names, p.Name)
		}
		if out.Material == nil && p.Material != nil {
			m := *p.Material
			out.Material = &m
		}
	}
	if out.Name == "" {
		out.Name = strings.Join(names, "+")
	}

	for _, p := range parts {
		base := uint32(out.VertexCount())
		out.Positions = append(out.Positions, p.Positions...)
		if allNormals {
			out.Normals = append(out.Normals, p.Normals...)
		}
		if anyColors {
			if p.HasColors() {
				out.Colors = append(out.Colors, p.Colors...)
			} else {
				for i := 0; i < p.VertexCount(); i++ {
					out.Colors = append(out.Colors, 1, 1, 1, 1)
				}
			}
		}
		if anyIndexed {
			for i := 0; i < p.TriangleCount(); i++ {
				i1, i2, i3 := p.TriangleIndices(i)
				out.Indices = append(out.Indices, base+i1, base+i2, base+i3)
			}
		}
	}
	out.ComputeBounds()
	return out
}
