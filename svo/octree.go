// Package svo implements a sparse voxel octree: a fixed-depth recursive
// spatial partition storing material/color/visibility per unit voxel, with
// exposure analysis and face-culled triangle extraction for rendering.
package svo

import (
	"fmt"
	"iter"

	"github.com/go-gl/mathgl/mgl32"
)

// MutationOp identifies a tree mutation reported to the observer hook.
type MutationOp uint8

const (
	OpSet MutationOp = iota
	OpClear
	OpClearAll
)

// Octree owns the node arena covering a cube with its minimum corner at the
// origin. Operations are synchronous and single-threaded; callers that share
// a tree across goroutines must synchronize externally.
type Octree struct {
	nodes    []node
	size     float32
	maxDepth uint8
	leafSize float32
	observer func(op MutationOp, pos mgl32.Vec3)
}

// New builds an empty tree covering [0,size)^3 with the given fixed maximum
// depth. size must be a whole number of units evenly divisible by 2^maxDepth,
// so that leaf cells land on the unit-ish granularity the neighbor tests
// assume.
func New(size float32, maxDepth int) (*Octree, error) {
	if maxDepth < 0 || maxDepth > 20 {
		return nil, fmt.Errorf("maxDepth out of range: %d", maxDepth)
	}
	units := int(size)
	if size <= 0 || float32(units) != size {
		return nil, fmt.Errorf("size must be a positive whole number of units, got %g", size)
	}
	if units%(1<<maxDepth) != 0 {
		return nil, fmt.Errorf("size %d not divisible by 2^%d", units, maxDepth)
	}
	t := &Octree{
		size:     size,
		maxDepth: uint8(maxDepth),
		leafSize: size / float32(int(1)<<maxDepth),
	}
	t.nodes = append(t.nodes, t.newRoot())
	return t, nil
}

func (t *Octree) newRoot() node {
	return node{size: t.size, children: noChildren}
}

// Size returns the edge length of the addressable volume.
func (t *Octree) Size() float32 { return t.size }

// MaxDepth returns the fixed maximum subdivision depth.
func (t *Octree) MaxDepth() int { return int(t.maxDepth) }

// LeafSize returns the edge length of a cell at maximum depth.
func (t *Octree) LeafSize() float32 { return t.leafSize }

// Bounds returns the axis-aligned box of the whole addressable volume.
func (t *Octree) Bounds() AABB {
	return AABB{Max: mgl32.Vec3{t.size, t.size, t.size}}
}

// SetObserver installs a mutation callback, or removes it when fn is nil.
// The hook fires once per in-bounds mutation; it must not mutate the tree.
func (t *Octree) SetObserver(fn func(op MutationOp, pos mgl32.Vec3)) {
	t.observer = fn
}

// SetVoxel stores v at the cell owning p, subdividing lazily on the way down.
// Out-of-bounds positions are silently ignored. Active state is not
// recomputed here; call UpdateActiveStates after bulk edits.
func (t *Octree) SetVoxel(p mgl32.Vec3, v Voxel) {
	if !t.nodes[0].contains(p) {
		return
	}
	t.set(0, p, v, true)
	if t.observer != nil {
		t.observer(OpSet, p)
	}
}

// ClearVoxel removes any voxel stored at the cell owning p. Clearing never
// subdivides; inside an unsplit region it is recorded as an empty marker.
func (t *Octree) ClearVoxel(p mgl32.Vec3) {
	if !t.nodes[0].contains(p) {
		return
	}
	t.set(0, p, Voxel{}, false)
	if t.observer != nil {
		t.observer(OpClear, p)
	}
}

// GetVoxel returns the voxel owning p, or false when the cell is empty or p
// is out of bounds.
func (t *Octree) GetVoxel(p mgl32.Vec3) (Voxel, bool) {
	return t.lookup(0, p)
}

// HasExposedFaces reports whether the unit cell at p has at least one empty
// face-adjacent neighbor, i.e. whether a voxel there would be visible from
// outside the solid.
func (t *Octree) HasExposedFaces(p mgl32.Vec3) bool {
	return t.exposed(p, t.leafSize)
}

// UpdateActiveStates recomputes every stored voxel's Active flag from its six
// face neighbors. SetVoxel does not maintain Active incrementally, so this
// must run after bulk occupancy changes and before extraction.
func (t *Octree) UpdateActiveStates() {
	t.walk(0, func(h handle) bool {
		n := t.nodes[h]
		t.nodes[h].voxel.Active = t.exposed(n.pos, n.size)
		return true
	})
}

// Clear discards the whole node arena and rebuilds an empty root with the
// same size and depth. Handles and voxel state from before do not survive.
func (t *Octree) Clear() {
	t.nodes = t.nodes[:0]
	t.nodes = append(t.nodes, t.newRoot())
	if t.observer != nil {
		t.observer(OpClearAll, mgl32.Vec3{})
	}
}

// VoxelCount returns the number of stored voxels.
func (t *Octree) VoxelCount() int {
	count := 0
	t.walk(0, func(handle) bool {
		count++
		return true
	})
	return count
}

// Voxels yields every stored voxel with its minimum-corner position, in
// depth-first octant order. The sequence is one-shot but restartable.
func (t *Octree) Voxels() iter.Seq2[mgl32.Vec3, Voxel] {
	return func(yield func(mgl32.Vec3, Voxel) bool) {
		t.walk(0, func(h handle) bool {
			return yield(t.nodes[h].pos, t.nodes[h].voxel)
		})
	}
}

// Traverse calls visit for every stored voxel in depth-first octant order,
// stopping early if visit returns false.
func (t *Octree) Traverse(visit func(pos mgl32.Vec3, v Voxel) bool) {
	t.walk(0, func(h handle) bool {
		return visit(t.nodes[h].pos, t.nodes[h].voxel)
	})
}
