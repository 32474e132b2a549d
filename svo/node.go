package svo

import "github.com/go-gl/mathgl/mgl32"

// handle indexes a node inside the tree's arena. Handles are stable for the
// lifetime of the arena; Clear discards them all.
type handle = int32

const noNode handle = -1

var noChildren = [8]handle{noNode, noNode, noNode, noNode, noNode, noNode, noNode, noNode}

// node is one cubic axis-aligned region. Children are all-or-nothing: either
// the node is unsplit, or all 8 octant slots point at live arena entries.
// An unsplit node may hold a voxel directly: always at maxDepth, and
// transiently on a coarser node before subdivision catches up.
type node struct {
	pos      mgl32.Vec3 // minimum corner
	size     float32    // edge length
	depth    uint8
	split    bool
	children [8]handle
	occupied bool
	voxel    Voxel
}

// contains reports whether p lies in [pos, pos+size) on all three axes.
// Points exactly on a max face belong to the neighboring node.
func (n *node) contains(p mgl32.Vec3) bool {
	return p[0] >= n.pos[0] && p[0] < n.pos[0]+n.size &&
		p[1] >= n.pos[1] && p[1] < n.pos[1]+n.size &&
		p[2] >= n.pos[2] && p[2] < n.pos[2]+n.size
}

// childIndex returns the octant of p: bit 0 set when x >= mid, bit 1 for y,
// bit 2 for z. subdivide places children with the same encoding, so lookup
// and placement always agree.
func (n *node) childIndex(p mgl32.Vec3) int {
	half := n.size / 2
	i := 0
	if p[0] >= n.pos[0]+half {
		i |= 1
	}
	if p[1] >= n.pos[1]+half {
		i |= 2
	}
	if p[2] >= n.pos[2]+half {
		i |= 4
	}
	return i
}

// subdivide allocates all 8 children at half size, one per octant. No-op at
// maxDepth or when already split.
func (t *Octree) subdivide(h handle) {
	base := t.nodes[h]
	if base.split || base.depth >= t.maxDepth {
		return
	}
	half := base.size / 2
	for i := 0; i < 8; i++ {
		off := mgl32.Vec3{
			float32(i&1) * half,
			float32(i>>1&1) * half,
			float32(i>>2&1) * half,
		}
		child := node{
			pos:      base.pos.Add(off),
			size:     half,
			depth:    base.depth + 1,
			children: noChildren,
		}
		t.nodes = append(t.nodes, child)
		t.nodes[h].children[i] = handle(len(t.nodes) - 1)
	}
	t.nodes[h].split = true
}

// set stores (store=true) or clears (store=false) the voxel owning p,
// descending from h. Out-of-bounds positions are ignored.
func (t *Octree) set(h handle, p mgl32.Vec3, v Voxel, store bool) {
	if !t.nodes[h].contains(p) {
		return
	}
	if t.nodes[h].depth == t.maxDepth {
		t.nodes[h].voxel = v
		t.nodes[h].occupied = store
		return
	}
	if !t.nodes[h].split && store {
		t.subdivide(h)
	}
	if t.nodes[h].split {
		idx := t.nodes[h].childIndex(p)
		t.set(t.nodes[h].children[idx], p, v, store)
		return
	}
	// Clearing inside an unsplit region: record the empty marker here instead
	// of forcing a subdivision that would only hold an absence.
	t.nodes[h].voxel = Voxel{}
	t.nodes[h].occupied = false
}

// lookup resolves the voxel owning p, descending from h. A direct voxel on an
// unsplit node is authoritative even below maxDepth.
func (t *Octree) lookup(h handle, p mgl32.Vec3) (Voxel, bool) {
	n := &t.nodes[h]
	if !n.contains(p) {
		return Voxel{}, false
	}
	if n.depth == t.maxDepth || (n.occupied && !n.split) {
		return n.voxel, n.occupied
	}
	if n.split {
		return t.lookup(n.children[n.childIndex(p)], p)
	}
	return Voxel{}, false
}

// walk visits every stored voxel in depth-first octant order: true leaves and
// unsplit coarse nodes that hold a voxel directly. Split nodes are descended
// into, never visited, so the callback sees exactly one call per stored
// voxel. Returning false stops the walk.
func (t *Octree) walk(h handle, visit func(h handle) bool) bool {
	if t.nodes[h].split {
		for _, c := range t.nodes[h].children {
			if !t.walk(c, visit) {
				return false
			}
		}
		return true
	}
	if t.nodes[h].occupied {
		return visit(h)
	}
	return true
}
