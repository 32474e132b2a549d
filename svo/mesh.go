package svo

import (
	"encoding/binary"
	"math"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"
)

// VertexStride is the number of floats per emitted vertex:
// position x,y,z then color r,g,b,a.
const VertexStride = 7

// FaceVertexCount is the number of vertices per visible face (two triangles,
// fan-split, no index buffer).
const FaceVertexCount = 6

type dirSpec struct {
	normal [3]float32
	u, v   int // in-plane axes; the perpendicular axis is 3-u-v
	du, dv [3]float32
}

var directions = [6]dirSpec{
	{[3]float32{1, 0, 0}, 1, 2, [3]float32{0, 1, 0}, [3]float32{0, 0, 1}},
	{[3]float32{-1, 0, 0}, 1, 2, [3]float32{0, 1, 0}, [3]float32{0, 0, 1}},
	{[3]float32{0, 1, 0}, 0, 2, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
	{[3]float32{0, -1, 0}, 0, 2, [3]float32{1, 0, 0}, [3]float32{0, 0, 1}},
	{[3]float32{0, 0, 1}, 0, 1, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
	{[3]float32{0, 0, -1}, 0, 1, [3]float32{1, 0, 0}, [3]float32{0, 1, 0}},
}

// neighborPos returns the sample point for the face neighbor of the cell with
// minimum corner pos and edge length s: one leaf step below the min corner on
// negative axes, one own-edge-length above it on positive axes.
func (t *Octree) neighborPos(pos mgl32.Vec3, s float32, dir dirSpec) mgl32.Vec3 {
	perp := 3 - dir.u - dir.v
	q := pos
	if dir.normal[perp] > 0 {
		q[perp] += s
	} else {
		q[perp] -= t.leafSize
	}
	return q
}

// exposed reports whether any of the six face neighbors of the cell at pos
// (edge length s) is empty.
func (t *Octree) exposed(pos mgl32.Vec3, s float32) bool {
	for _, dir := range directions {
		if _, ok := t.GetVoxel(t.neighborPos(pos, s, dir)); !ok {
			return true
		}
	}
	return false
}

// appendFace emits one voxel face as two triangles with consistent outward
// winding, 7 floats per vertex.
func appendFace(out []float32, dir dirSpec, pos mgl32.Vec3, s float32, c mgl32.Vec4) []float32 {
	perp := 3 - dir.u - dir.v
	base := pos
	if dir.normal[perp] > 0 {
		base[perp] += s
	}
	du := mgl32.Vec3{dir.du[0] * s, dir.du[1] * s, dir.du[2] * s}
	dv := mgl32.Vec3{dir.dv[0] * s, dir.dv[1] * s, dir.dv[2] * s}
	corners := [4]mgl32.Vec3{
		base,
		base.Add(du),
		base.Add(du).Add(dv),
		base.Add(dv),
	}
	if (dir.normal[perp] < 0) != (perp == 1) {
		corners[1], corners[3] = corners[3], corners[1]
	}
	for _, i := range [FaceVertexCount]int{0, 1, 2, 0, 2, 3} {
		p := corners[i]
		out = append(out, p[0], p[1], p[2], c[0], c[1], c[2], c[3])
	}
	return out
}

// GetVertices extracts the renderable mesh as a flat triangle list: for every
// stored voxel with Active set, each of the six faces whose neighbor cell is
// empty contributes two triangles. No merging of coplanar faces; output order
// is traversal order. The buffer matches a float32x3 position + float32x4
// color vertex layout with no index buffer.
func (t *Octree) GetVertices() []float32 {
	verts := make([]float32, 0, 36*VertexStride)
	t.walk(0, func(h handle) bool {
		n := t.nodes[h]
		if !n.voxel.Active {
			return true
		}
		for _, dir := range directions {
			if _, ok := t.GetVoxel(t.neighborPos(n.pos, n.size, dir)); ok {
				continue
			}
			verts = appendFace(verts, dir, n.pos, n.size, n.voxel.Color)
		}
		return true
	})
	return verts
}

// VertexDigest hashes a vertex stream so callers can cheaply detect whether a
// re-extraction changed the buffer between frames. Extraction order is stable
// for an unchanged tree, so equal digests mean an identical buffer.
func VertexDigest(verts []float32) uint64 {
	d := xxhash.New()
	var b [4]byte
	for _, f := range verts {
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		_, _ = d.Write(b[:])
	}
	return d.Sum64()
}
