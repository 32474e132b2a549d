// Package api converts extracted voxel meshes into interchange formats and
// drives batch meshing across many chunk octrees.
package api

import (
	"bytes"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"golang.org/x/sync/errgroup"

	"github.com/voxelsplace/svo/go/svo"
)

// MeshToGLB encodes a flat 7-float vertex stream (position xyz + color rgba,
// triangle list) as a binary glTF blob with flat per-face normals.
func MeshToGLB(vertices []float32) ([]byte, error) {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "SVO -> GLB"
	if err := appendMesh(doc, "VoxelMesh", vertices, [3]float64{}); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	enc := gltf.NewEncoder(&out)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// OctreeToGLB extracts the tree's visible faces and encodes them as GLB.
// Callers must have run UpdateActiveStates after populating the tree.
func OctreeToGLB(t *svo.Octree) ([]byte, error) {
	return MeshToGLB(t.GetVertices())
}

// PackToGLB rebuilds every chunk in the pack, meshes them concurrently with
// up to workers goroutines, and emits one glTF node per entry, laid out in a
// grid so chunks don't overlap.
func PackToGLB(p *svo.Pack, workers int) ([]byte, error) {
	if len(p.Entries) == 0 {
		return nil, fmt.Errorf("empty pack")
	}

	trees := make([]*svo.Octree, len(p.Entries))
	for i := range p.Entries {
		t, err := p.Tree(i)
		if err != nil {
			return nil, err
		}
		trees[i] = t
	}
	streams, err := RemeshChunks(trees, workers)
	if err != nil {
		return nil, err
	}

	doc := gltf.NewDocument()
	doc.Asset.Generator = "SVOXPACK -> GLB"

	cols := int(math.Ceil(math.Sqrt(float64(len(p.Entries)))))
	step := float64(p.SizeUnits)
	for i, e := range p.Entries {
		tx := float64(i%cols) * step
		tz := float64(i/cols) * step
		if err := appendMesh(doc, e.Name, streams[i], [3]float64{tx, 0, tz}); err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.Name, err)
		}
	}

	var out bytes.Buffer
	enc := gltf.NewEncoder(&out)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// RemeshChunks runs UpdateActiveStates + GetVertices on every tree, at most
// workers trees in flight at once. Each tree is touched by exactly one
// goroutine; the trees themselves stay single-threaded.
func RemeshChunks(trees []*svo.Octree, workers int) ([][]float32, error) {
	if workers < 1 {
		workers = 1
	}
	streams := make([][]float32, len(trees))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, t := range trees {
		g.Go(func() error {
			t.UpdateActiveStates()
			streams[i] = t.GetVertices()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return streams, nil
}

// appendMesh splits a vertex stream into glTF accessors and appends one
// mesh/node pair to the document. Empty streams contribute nothing.
func appendMesh(doc *gltf.Document, name string, vertices []float32, translation [3]float64) error {
	if len(vertices)%(svo.VertexStride*3) != 0 {
		return fmt.Errorf("vertex stream is not a whole number of triangles: %d floats", len(vertices))
	}
	n := len(vertices) / svo.VertexStride
	if n == 0 {
		return nil
	}

	positions := make([][3]float32, n)
	colors := make([][4]float32, n)
	hasAlpha := false
	for i := 0; i < n; i++ {
		v := vertices[i*svo.VertexStride:]
		positions[i] = [3]float32{v[0], v[1], v[2]}
		colors[i] = [4]float32{v[3], v[4], v[5], v[6]}
		if v[6] < 1.0 {
			hasAlpha = true
		}
	}
	indices := make([]uint32, n)
	for i := range indices {
		indices[i] = uint32(i)
	}

	// flat normals per face
	normals := make([][3]float32, n)
	for i := 0; i < n; i += 3 {
		p0, p1, p2 := positions[i], positions[i+1], positions[i+2]
		vec1 := [3]float32{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		vec2 := [3]float32{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
		cross := [3]float32{
			vec1[1]*vec2[2] - vec1[2]*vec2[1],
			vec1[2]*vec2[0] - vec1[0]*vec2[2],
			vec1[0]*vec2[1] - vec1[1]*vec2[0],
		}
		length := float32(math.Sqrt(float64(cross[0]*cross[0] + cross[1]*cross[1] + cross[2]*cross[2])))
		if length > 0 {
			cross[0] /= length
			cross[1] /= length
			cross[2] /= length
		}
		normals[i] = cross
		normals[i+1] = cross
		normals[i+2] = cross
	}

	posAccessor := modeler.WritePosition(doc, positions)
	normalAccessor := modeler.WriteNormal(doc, normals)
	colorAccessor := modeler.WriteColor(doc, colors)
	indicesAccessor := modeler.WriteIndices(doc, indices)

	prim := &gltf.Primitive{
		Attributes: gltf.PrimitiveAttributes{
			gltf.POSITION: posAccessor,
			gltf.NORMAL:   normalAccessor,
			gltf.COLOR_0:  colorAccessor,
		},
		Indices: gltf.Index(indicesAccessor),
	}

	pbr := &gltf.PBRMetallicRoughness{BaseColorFactor: &[4]float64{1, 1, 1, 1}, MetallicFactor: gltf.Float(0), RoughnessFactor: gltf.Float(1)}
	material := &gltf.Material{PBRMetallicRoughness: pbr}
	if hasAlpha {
		material.AlphaMode = gltf.AlphaBlend
	} else {
		material.AlphaMode = gltf.AlphaOpaque
	}
	doc.Materials = append(doc.Materials, material)
	prim.Material = gltf.Index(len(doc.Materials) - 1)

	mesh := &gltf.Mesh{Name: name, Primitives: []*gltf.Primitive{prim}}
	doc.Meshes = append(doc.Meshes, mesh)
	node := &gltf.Node{Name: name, Mesh: gltf.Index(len(doc.Meshes) - 1)}
	node.Translation = translation
	doc.Nodes = append(doc.Nodes, node)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, len(doc.Nodes)-1)
	return nil
}
