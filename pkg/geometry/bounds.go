package geometry

import "math"

// BoundingBox is an axis-aligned box in model space
type BoundingBox struct {
	Min Vector3
	Max Vector3
}

// BoundingBoxOf returns the box around every vertex of a flat xyz buffer.
// An empty buffer yields an inverted box for which IsEmpty is true.
func BoundingBoxOf(positions []float32) BoundingBox {
	b := BoundingBox{
		Min: Vector3{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64},
		Max: Vector3{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64},
	}
	for i := 0; i < len(positions)/3; i++ {
		p := Vector3At(positions, i)
		b.Min = Vector3{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)}
		b.Max = Vector3{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)}
	}
	return b
}

// IsEmpty reports whether no point has been added to the box
func (b BoundingBox) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// Size is Max minus Min, zero for an empty box
func (b BoundingBox) Size() Vector3 {
	if b.IsEmpty() {
		return Vector3{}
	}
	return b.Max.Sub(b.Min)
}

func (b BoundingBox) Center() Vector3 {
	if b.IsEmpty() {
		return Vector3{}
	}
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b BoundingBox) Diagonal() float64 {
	return b.Size().Length()
}

// Volume returns the volume of the bounding box
func (b BoundingBox) Volume() float64 {
	size := b.Size()
	return size.X * size.Y * size.Z
}

// Sphere is a bounding sphere. Radius is never negative.
type Sphere struct {
	Center Vector3
	Radius float64
}

// BoundingSphereOf computes the bounding sphere of a flat stride-3 position
// buffer. The center is the bounding box center and the radius is the largest
// distance from it to any point, so the center always lies inside the box.
func BoundingSphereOf(positions []float32, box BoundingBox) Sphere {
	if box.IsEmpty() {
		return Sphere{}
	}
	center := box.Center()
	maxSq := 0.0
	for i := 0; i < len(positions)/3; i++ {
		d := Vector3At(positions, i).Sub(center)
		maxSq = math.Max(maxSq, d.Dot(d))
	}
	return Sphere{Center: center, Radius: math.Sqrt(maxSq)}
}

// IsDegenerate reports whether the sphere cannot be framed
func (s Sphere) IsDegenerate() bool {
	return !(s.Radius > 0) || math.IsInf(s.Radius, 0)
}
