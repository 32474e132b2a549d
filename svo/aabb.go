package svo

import "github.com/go-gl/mathgl/mgl32"

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max mgl32.Vec3
}

// Intersects reports whether the two boxes overlap or touch.
func (a AABB) Intersects(b AABB) bool {
	return a.Min[0] <= b.Max[0] && a.Max[0] >= b.Min[0] &&
		a.Min[1] <= b.Max[1] && a.Max[1] >= b.Min[1] &&
		a.Min[2] <= b.Max[2] && a.Max[2] >= b.Min[2]
}

// Ray is a half-line with a normalized direction, used by callers to pick
// voxels from a camera position.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// NewRay builds a ray, normalizing the direction.
func NewRay(origin, dir mgl32.Vec3) Ray {
	return Ray{Origin: origin, Dir: dir.Normalize()}
}

// IntersectsAABB reports whether the ray hits the box, using the slab method.
// Rays originating inside the box count as hits.
func (r Ray) IntersectsAABB(a AABB) bool {
	inv := mgl32.Vec3{1 / r.Dir[0], 1 / r.Dir[1], 1 / r.Dir[2]}

	tmin := float32(-1)
	tmax := float32(0)
	for axis := 0; axis < 3; axis++ {
		near, far := a.Min[axis], a.Max[axis]
		if inv[axis] < 0 {
			near, far = far, near
		}
		t1 := (near - r.Origin[axis]) * inv[axis]
		t2 := (far - r.Origin[axis]) * inv[axis]
		if axis == 0 || t1 > tmin {
			tmin = t1
		}
		if axis == 0 || t2 < tmax {
			tmax = t2
		}
	}
	return tmax >= tmin && tmax >= 0
}
