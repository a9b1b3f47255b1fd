package geometry

// Triangle is one facet with its unit normal. Normal is zero when the facet
// has no area.
type Triangle struct {
	Normal     Vector3
	V1, V2, V3 Vector3
}

// TriangleOf builds the facet v1, v2, v3 with its counter-clockwise normal
func TriangleOf(v1, v2, v3 Vector3) Triangle {
	t := Triangle{V1: v1, V2: v2, V3: v3}
	t.Normal = t.FaceNormal().Normalize()
	return t
}

// FaceNormal is the unnormalized normal; its length is twice the area
func (t Triangle) FaceNormal() Vector3 {
	return t.V2.Sub(t.V1).Cross(t.V3.Sub(t.V1))
}

func (t Triangle) Area() float64 {
	return t.FaceNormal().Length() / 2
}

func (t Triangle) IsDegenerate() bool {
	return t.FaceNormal().IsZero()
}
