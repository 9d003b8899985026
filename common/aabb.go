package common

import "math"

// AABB is an axis-aligned bounding box. The zero value is not a valid box;
// use NewAABB or EmptyAABB so Min/Max start from the correct extremes.
type AABB struct {
	Min Vec3
	Max Vec3
}

// EmptyAABB returns a degenerate box that any Include call will replace.
func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// NewAABB returns the bounding box spanning the two corner points.
func NewAABB(minCorner, maxCorner Vec3) AABB {
	return AABB{Min: minCorner, Max: maxCorner}
}

// Include grows the box to contain the point p.
func (b AABB) Include(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Union grows the box to contain the box b2.
func (b AABB) Union(b2 AABB) AABB {
	return AABB{Min: b.Min.Min(b2.Min), Max: b.Max.Max(b2.Max)}
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the edge lengths of the box.
func (b AABB) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// SurfaceArea returns the total surface area of the box. Degenerate boxes
// (Min > Max on any axis) report zero.
func (b AABB) SurfaceArea() float32 {
	d := b.Size()
	if d[0] < 0 || d[1] < 0 || d[2] < 0 {
		return 0
	}
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}

// Valid reports whether the box encloses at least one point.
func (b AABB) Valid() bool {
	return b.Min[0] <= b.Max[0] && b.Min[1] <= b.Max[1] && b.Min[2] <= b.Max[2]
}

// Transform returns the axis-aligned bounds of the box after applying a
// row-major 3x4 affine transform (the instance transform layout). All eight
// corners are transformed and re-enclosed.
func (b AABB) Transform(m [12]float32) AABB {
	out := EmptyAABB()
	for i := 0; i < 8; i++ {
		p := Vec3{b.Min[0], b.Min[1], b.Min[2]}
		if i&1 != 0 {
			p[0] = b.Max[0]
		}
		if i&2 != 0 {
			p[1] = b.Max[1]
		}
		if i&4 != 0 {
			p[2] = b.Max[2]
		}
		out = out.Include(Vec3{
			m[0]*p[0] + m[1]*p[1] + m[2]*p[2] + m[3],
			m[4]*p[0] + m[5]*p[1] + m[6]*p[2] + m[7],
			m[8]*p[0] + m[9]*p[1] + m[10]*p[2] + m[11],
		})
	}
	return out
}
