package common

import (
	"math"

	"golang.org/x/image/math/f32"
)

// Vec3 is a 3 component float vector used for positions, normals, and extents.
type Vec3 f32.Vec3

// XYZ builds a Vec3 from its components.
func XYZ(x, y, z float32) Vec3 {
	return Vec3{x, y, z}
}

// Add returns v + v2.
func (v Vec3) Add(v2 Vec3) Vec3 {
	return Vec3{v[0] + v2[0], v[1] + v2[1], v[2] + v2[2]}
}

// Sub returns v - v2.
func (v Vec3) Sub(v2 Vec3) Vec3 {
	return Vec3{v[0] - v2[0], v[1] - v2[1], v[2] - v2[2]}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Mul returns the component-wise product of v and v2.
func (v Vec3) Mul(v2 Vec3) Vec3 {
	return Vec3{v[0] * v2[0], v[1] * v2[1], v[2] * v2[2]}
}

// Dot returns the dot product of v and v2.
func (v Vec3) Dot(v2 Vec3) float32 {
	return v[0]*v2[0] + v[1]*v2[1] + v[2]*v2[2]
}

// Cross returns the cross product of v and v2.
func (v Vec3) Cross(v2 Vec3) Vec3 {
	return Vec3{
		v[1]*v2[2] - v[2]*v2[1],
		v[2]*v2[0] - v[0]*v2[2],
		v[0]*v2[1] - v[1]*v2[0],
	}
}

// Len returns the euclidean length of v.
func (v Vec3) Len() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// Min returns the component-wise minimum of v and v2.
func (v Vec3) Min(v2 Vec3) Vec3 {
	return Vec3{
		min(v[0], v2[0]),
		min(v[1], v2[1]),
		min(v[2], v2[2]),
	}
}

// Max returns the component-wise maximum of v and v2.
func (v Vec3) Max(v2 Vec3) Vec3 {
	return Vec3{
		max(v[0], v2[0]),
		max(v[1], v2[1]),
		max(v[2], v2[2]),
	}
}

// MaxExtent returns the index (0, 1, or 2) of the component with the
// largest absolute value.
func (v Vec3) MaxExtent() int {
	x, y, z := abs32(v[0]), abs32(v[1]), abs32(v[2])
	if x >= y && x >= z {
		return 0
	}
	if y >= z {
		return 1
	}
	return 2
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
