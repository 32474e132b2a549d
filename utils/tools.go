package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/voxelsplace/svo/go/api"
	"github.com/voxelsplace/svo/go/svo"
)

// LoadOctree reads and parses a .svox snapshot file.
func LoadOctree(path string) (*svo.Octree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return svo.Unmarshal(data)
}

// RunSVOX2GLB converts a .svox snapshot into a .glb, recomputing exposure
// before extraction.
func RunSVOX2GLB(inPath, outPath string) error {
	t, err := LoadOctree(inPath)
	if err != nil {
		return err
	}
	t.UpdateActiveStates()
	glb, err := api.OctreeToGLB(t)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, glb, 0o644)
}

// RunSVOXPACK2GLB converts a .svoxpack into a single .glb, one node per entry.
func RunSVOXPACK2GLB(inPath, outPath string, workers int) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	pack, _, err := svo.UnmarshalPack(data)
	if err != nil {
		return err
	}
	glb, err := api.PackToGLB(pack, workers)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, glb, 0o644)
}

// CreatePack bundles multiple .svox files into one .svoxpack. All snapshots
// must share the same size and depth.
func CreatePack(inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no input files")
	}
	var pack *svo.Pack
	for _, path := range inputs {
		t, err := LoadOctree(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if pack == nil {
			pack, err = svo.NewPack(t.Size(), t.MaxDepth())
			if err != nil {
				return err
			}
		}
		if err := pack.Add(filepath.Base(path), t); err != nil {
			return err
		}
	}
	data, err := pack.Marshal(svo.CompZstd)
	if err != nil {
		return err
	}
	return os.WriteFile(output, data, 0o644)
}

// RunUnpackSVOX extracts every entry of a .svoxpack into outDir as .svox files.
func RunUnpackSVOX(inPath, outDir string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	pack, _, err := svo.UnmarshalPack(data)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for i := range pack.Entries {
		t, err := pack.Tree(i)
		if err != nil {
			return err
		}
		blob, err := t.Marshal(svo.CompZstd)
		if err != nil {
			return err
		}
		name := pack.Entries[i].Name
		if name == "" {
			name = fmt.Sprintf("%d.svox", i)
		}
		if err := os.WriteFile(filepath.Join(outDir, filepath.Base(name)), blob, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// RunSVOXInfo prints a summary of a snapshot or pack file.
func RunSVOXInfo(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if pack, _, err := svo.UnmarshalPack(data); err == nil {
		fmt.Printf("svoxpack: size=%d maxDepth=%d entries=%d\n", pack.SizeUnits, pack.MaxDepth, len(pack.Entries))
		for i, e := range pack.Entries {
			fmt.Printf("  [%d] %s voxels=%d\n", i, e.Name, e.Count)
		}
		return nil
	}
	t, err := svo.Unmarshal(data)
	if err != nil {
		return err
	}
	t.UpdateActiveStates()
	exposed := 0
	for _, v := range t.Voxels() {
		if v.Active {
			exposed++
		}
	}
	fmt.Printf("svox: size=%g maxDepth=%d voxels=%d exposed=%d\n", t.Size(), t.MaxDepth(), t.VoxelCount(), exposed)
	return nil
}
