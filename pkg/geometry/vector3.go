// Package geometry holds the float64 vector math used for bounds, framing
// and normals. Mesh buffers stay float32; Vector3At and Put convert.
package geometry

import "math"

// Vector3 is a point or direction in model space
type Vector3 struct {
	X, Y, Z float64
}

func NewVector3(x, y, z float64) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Mul scales every component by s
func (v Vector3) Mul(s float64) Vector3 {
	return Vector3{v.X * s, v.Y * s, v.Z * s}
}

func (v Vector3) Dot(o Vector3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross follows the right-hand rule: X cross Y is Z
func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

func (v Vector3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

func (v Vector3) Distance(o Vector3) float64 {
	return v.Sub(o).Length()
}

// Normalize returns the unit vector along v, or the zero vector for zero input
func (v Vector3) Normalize() Vector3 {
	if l := v.Length(); l != 0 {
		return v.Mul(1 / l)
	}
	return Vector3{}
}

func (v Vector3) IsZero() bool {
	return v == Vector3{}
}

// Vector3At reads vertex i of a flat xyz buffer
func Vector3At(buf []float32, i int) Vector3 {
	return Vector3{float64(buf[i*3]), float64(buf[i*3+1]), float64(buf[i*3+2])}
}

// Put writes v as vertex i of a flat xyz buffer
func (v Vector3) Put(buf []float32, i int) {
	buf[i*3], buf[i*3+1], buf[i*3+2] = float32(v.X), float32(v.Y), float32(v.Z)
}
