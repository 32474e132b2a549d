package svo

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func mustNew(t *testing.T, size float32, maxDepth int) *Octree {
	t.Helper()
	tree, err := New(size, maxDepth)
	if err != nil {
		t.Fatalf("New(%g, %d) failed: %v", size, maxDepth, err)
	}
	return tree
}

func TestNewValidation(t *testing.T) {
	cases := []struct {
		size     float32
		maxDepth int
		ok       bool
	}{
		{4, 2, true},
		{8, 3, true},
		{8, 2, true},  // leaf size 2, still divisible
		{16, 0, true}, // single-cell tree
		{0, 2, false},
		{-4, 2, false},
		{4.5, 2, false},
		{6, 2, false}, // 6 not divisible by 4
		{4, -1, false},
		{4, 21, false},
	}
	for _, c := range cases {
		_, err := New(c.size, c.maxDepth)
		if c.ok && err != nil {
			t.Fatalf("New(%g, %d): unexpected error %v", c.size, c.maxDepth, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("New(%g, %d): expected error", c.size, c.maxDepth)
		}
	}
}

func TestSetGetRoundtrip(t *testing.T) {
	tree := mustNew(t, 4, 2)
	want := Voxel{Material: 7, Color: mgl32.Vec4{1, 0, 0, 1}, Active: true}
	positions := []mgl32.Vec3{
		{0, 0, 0},
		{1, 0, 0},
		{3, 3, 3},
		{2, 1, 3},
	}
	for _, p := range positions {
		tree.SetVoxel(p, want)
		got, ok := tree.GetVoxel(p)
		if !ok {
			t.Fatalf("GetVoxel(%v): voxel missing after set", p)
		}
		if got != want {
			t.Fatalf("GetVoxel(%v) = %+v, want %+v", p, got, want)
		}
	}
	if got := tree.VoxelCount(); got != len(positions) {
		t.Fatalf("VoxelCount = %d, want %d", got, len(positions))
	}
}

func TestOverwrite(t *testing.T) {
	tree := mustNew(t, 4, 2)
	p := mgl32.Vec3{2, 2, 2}
	tree.SetVoxel(p, Voxel{Material: 1})
	tree.SetVoxel(p, Voxel{Material: 9})
	got, ok := tree.GetVoxel(p)
	if !ok || got.Material != 9 {
		t.Fatalf("expected overwritten material 9, got %+v ok=%v", got, ok)
	}
	if tree.VoxelCount() != 1 {
		t.Fatalf("overwrite changed voxel count: %d", tree.VoxelCount())
	}
}

func TestOutOfBoundsNoop(t *testing.T) {
	tree := mustNew(t, 4, 2)
	tree.SetVoxel(mgl32.Vec3{1, 1, 1}, Voxel{Material: 3})

	outside := []mgl32.Vec3{
		{-1, 0, 0},
		{4, 0, 0}, // max face belongs to the neighbor
		{0, 17, 0},
		{0, 0, -0.5},
	}
	for _, p := range outside {
		tree.SetVoxel(p, Voxel{Material: 8})
		if _, ok := tree.GetVoxel(p); ok {
			t.Fatalf("GetVoxel(%v) should be empty out of bounds", p)
		}
	}
	if tree.VoxelCount() != 1 {
		t.Fatalf("out-of-bounds writes changed the tree: count=%d", tree.VoxelCount())
	}
	if got, _ := tree.GetVoxel(mgl32.Vec3{1, 1, 1}); got.Material != 3 {
		t.Fatalf("in-bounds voxel disturbed: %+v", got)
	}
}

func TestClearVoxel(t *testing.T) {
	tree := mustNew(t, 4, 2)
	p := mgl32.Vec3{1, 2, 3}
	tree.SetVoxel(p, Voxel{Material: 5})
	tree.ClearVoxel(p)
	if _, ok := tree.GetVoxel(p); ok {
		t.Fatalf("voxel still present after ClearVoxel")
	}
	if tree.VoxelCount() != 0 {
		t.Fatalf("VoxelCount = %d after clearing the only voxel", tree.VoxelCount())
	}

	// Clearing inside an untouched region must stay a no-op.
	tree.ClearVoxel(mgl32.Vec3{0, 0, 0})
	if tree.VoxelCount() != 0 {
		t.Fatalf("clear of empty region created voxels")
	}
}

func TestClear(t *testing.T) {
	tree := mustNew(t, 4, 2)
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 1, 1}, {3, 2, 1}}
	for _, p := range positions {
		tree.SetVoxel(p, Voxel{Material: 2, Active: true})
	}
	tree.Clear()
	for _, p := range positions {
		if _, ok := tree.GetVoxel(p); ok {
			t.Fatalf("GetVoxel(%v) non-empty after Clear", p)
		}
	}
	if tree.VoxelCount() != 0 {
		t.Fatalf("VoxelCount = %d after Clear", tree.VoxelCount())
	}
	if verts := tree.GetVertices(); len(verts) != 0 {
		t.Fatalf("GetVertices returned %d floats after Clear", len(verts))
	}
	if tree.Size() != 4 || tree.MaxDepth() != 2 {
		t.Fatalf("Clear changed geometry: size=%g depth=%d", tree.Size(), tree.MaxDepth())
	}

	// The cleared tree must be fully usable again.
	tree.SetVoxel(mgl32.Vec3{2, 2, 2}, Voxel{Material: 1})
	if _, ok := tree.GetVoxel(mgl32.Vec3{2, 2, 2}); !ok {
		t.Fatalf("tree unusable after Clear")
	}
}

func TestHasExposedFaces(t *testing.T) {
	tree := mustNew(t, 8, 3)

	// 3x3x3 solid block centered at (3,3,3)
	for x := 2; x <= 4; x++ {
		for y := 2; y <= 4; y++ {
			for z := 2; z <= 4; z++ {
				tree.SetVoxel(mgl32.Vec3{float32(x), float32(y), float32(z)}, Voxel{Material: 1})
			}
		}
	}
	if tree.HasExposedFaces(mgl32.Vec3{3, 3, 3}) {
		t.Fatalf("fully surrounded voxel reported as exposed")
	}
	if !tree.HasExposedFaces(mgl32.Vec3{2, 3, 3}) {
		t.Fatalf("surface voxel not reported as exposed")
	}
	if !tree.HasExposedFaces(mgl32.Vec3{4, 4, 4}) {
		t.Fatalf("corner voxel not reported as exposed")
	}
}

func TestUpdateActiveStates(t *testing.T) {
	tree := mustNew(t, 8, 3)
	for x := 2; x <= 4; x++ {
		for y := 2; y <= 4; y++ {
			for z := 2; z <= 4; z++ {
				tree.SetVoxel(mgl32.Vec3{float32(x), float32(y), float32(z)}, Voxel{Material: 1})
			}
		}
	}
	tree.UpdateActiveStates()

	center, _ := tree.GetVoxel(mgl32.Vec3{3, 3, 3})
	if center.Active {
		t.Fatalf("interior voxel active after UpdateActiveStates")
	}
	surface, _ := tree.GetVoxel(mgl32.Vec3{2, 2, 2})
	if !surface.Active {
		t.Fatalf("surface voxel inactive after UpdateActiveStates")
	}

	active := 0
	for _, v := range tree.Voxels() {
		if v.Active {
			active++
		}
	}
	// 3^3 block has 26 surface voxels and 1 interior
	if active != 26 {
		t.Fatalf("active count = %d, want 26", active)
	}
}

func TestTraverseMatchesVoxels(t *testing.T) {
	tree := mustNew(t, 4, 2)
	tree.SetVoxel(mgl32.Vec3{0, 0, 0}, Voxel{Material: 1})
	tree.SetVoxel(mgl32.Vec3{3, 0, 2}, Voxel{Material: 2})
	tree.SetVoxel(mgl32.Vec3{1, 3, 1}, Voxel{Material: 3})

	var fromTraverse []mgl32.Vec3
	tree.Traverse(func(pos mgl32.Vec3, v Voxel) bool {
		fromTraverse = append(fromTraverse, pos)
		return true
	})
	var fromIter []mgl32.Vec3
	for pos := range tree.Voxels() {
		fromIter = append(fromIter, pos)
	}
	if len(fromTraverse) != 3 || len(fromIter) != 3 {
		t.Fatalf("traversal counts: Traverse=%d Voxels=%d, want 3", len(fromTraverse), len(fromIter))
	}
	for i := range fromTraverse {
		if fromTraverse[i] != fromIter[i] {
			t.Fatalf("traversal order mismatch at %d: %v vs %v", i, fromTraverse[i], fromIter[i])
		}
	}

	// Order is stable across repeated walks of an unchanged tree.
	var again []mgl32.Vec3
	for pos := range tree.Voxels() {
		again = append(again, pos)
	}
	for i := range again {
		if again[i] != fromIter[i] {
			t.Fatalf("traversal order unstable at %d", i)
		}
	}
}

func TestTraverseEarlyStop(t *testing.T) {
	tree := mustNew(t, 4, 2)
	for i := 0; i < 4; i++ {
		tree.SetVoxel(mgl32.Vec3{float32(i), 0, 0}, Voxel{Material: 1})
	}
	seen := 0
	tree.Traverse(func(pos mgl32.Vec3, v Voxel) bool {
		seen++
		return seen < 2
	})
	if seen != 2 {
		t.Fatalf("early stop visited %d voxels, want 2", seen)
	}
}

func TestCoarseLeafGranularity(t *testing.T) {
	// size 8 with depth 2 gives 2-unit leaf cells.
	tree := mustNew(t, 8, 2)
	if tree.LeafSize() != 2 {
		t.Fatalf("LeafSize = %g, want 2", tree.LeafSize())
	}
	tree.SetVoxel(mgl32.Vec3{0, 0, 0}, Voxel{Material: 1})
	tree.SetVoxel(mgl32.Vec3{2, 0, 0}, Voxel{Material: 2})
	tree.UpdateActiveStates()

	// Interior points of a cell resolve to the same voxel.
	got, ok := tree.GetVoxel(mgl32.Vec3{1, 1, 1})
	if !ok || got.Material != 1 {
		t.Fatalf("cell interior lookup failed: %+v ok=%v", got, ok)
	}

	// Two adjacent cells: 10 visible faces.
	verts := tree.GetVertices()
	if len(verts) != 10*FaceVertexCount*VertexStride {
		t.Fatalf("coarse adjacent cells emitted %d floats, want %d", len(verts), 10*FaceVertexCount*VertexStride)
	}
}

func TestObserver(t *testing.T) {
	tree := mustNew(t, 4, 2)
	type event struct {
		op  MutationOp
		pos mgl32.Vec3
	}
	var events []event
	tree.SetObserver(func(op MutationOp, pos mgl32.Vec3) {
		events = append(events, event{op, pos})
	})

	p := mgl32.Vec3{1, 1, 1}
	tree.SetVoxel(p, Voxel{Material: 1})
	tree.SetVoxel(mgl32.Vec3{-1, 0, 0}, Voxel{Material: 1}) // out of bounds, no event
	tree.ClearVoxel(p)
	tree.Clear()

	want := []event{
		{OpSet, p},
		{OpClear, p},
		{OpClearAll, mgl32.Vec3{}},
	}
	if len(events) != len(want) {
		t.Fatalf("observer saw %d events, want %d", len(events), len(want))
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}

	tree.SetObserver(nil)
	tree.SetVoxel(p, Voxel{Material: 2})
	if len(events) != len(want) {
		t.Fatalf("observer fired after removal")
	}
}

func TestBounds(t *testing.T) {
	tree := mustNew(t, 8, 3)
	b := tree.Bounds()
	if b.Min != (mgl32.Vec3{}) || b.Max != (mgl32.Vec3{8, 8, 8}) {
		t.Fatalf("Bounds = %+v", b)
	}
}
