package utils

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/voxelsplace/svo/go/svo"
)

// noisePalette holds the colors random chunks draw from.
var noisePalette = []string{
	"#6b8e23", "#8b4513", "#a9a9a9", "#d2b48c",
	"#4682b4", "#daa520", "#556b2f", "#bc8f8f",
}

// GenerateNoiseOctree fills a fresh tree so that roughly percentage percent of
// its leaf cells hold a voxel with a random material and palette color. Active
// flags are left for the caller to recompute.
func GenerateNoiseOctree(size float32, maxDepth int, percentage float64, r *rand.Rand) (*svo.Octree, error) {
	t, err := svo.New(size, maxDepth)
	if err != nil {
		return nil, err
	}
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}
	cells := 1 << maxDepth
	total := cells * cells * cells
	want := int(float64(total)*(percentage/100.0) + 0.5)
	if want > total {
		want = total
	}

	// Fisher-Yates over the first 'want' slots only
	idx := make([]int, total)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < want; i++ {
		j := i + r.Intn(total-i)
		idx[i], idx[j] = idx[j], idx[i]
	}

	step := t.LeafSize()
	for k := 0; k < want; k++ {
		i := idx[k]
		x := i % cells
		y := (i / cells) % cells
		z := i / (cells * cells)
		pos := mgl32.Vec3{float32(x) * step, float32(y) * step, float32(z) * step}
		color, err := svo.ParseHexColor(noisePalette[r.Intn(len(noisePalette))])
		if err != nil {
			return nil, err
		}
		t.SetVoxel(pos, svo.Voxel{
			Material: uint16(1 + r.Intn(255)),
			Color:    color,
		})
	}
	return t, nil
}

// RunGenerateNoiseSVOX creates 'amount' .svox files named 0.svox..(amount-1).svox
// in outDir, each containing random noise with the specified percentage fill.
func RunGenerateNoiseSVOX(size float32, maxDepth int, percentage float64, amount int, outDir string) error {
	return RunGenerateNoiseSVOXRange(size, maxDepth, percentage, percentage, amount, outDir)
}

// RunGenerateNoiseSVOXRange generates amount .svox files with a random fill
// percentage uniformly sampled in [percentageMin, percentageMax] per file.
func RunGenerateNoiseSVOXRange(size float32, maxDepth int, percentageMin, percentageMax float64, amount int, outDir string) error {
	if amount < 0 {
		amount = 0
	}
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	if percentageMin < 0 {
		percentageMin = 0
	}
	if percentageMax > 100 {
		percentageMax = 100
	}
	if percentageMax < percentageMin {
		percentageMin, percentageMax = percentageMax, percentageMin
	}

	// Seed base once and derive per-file seeds deterministically
	baseSeed := uint64(time.Now().UnixNano())
	for i := 0; i < amount; i++ {
		const weyl = uint64(0x9e3779b97f4a7c15)
		seed := baseSeed ^ (uint64(i)+1)*weyl
		r := rand.New(rand.NewSource(int64(seed & 0x7fffffffffffffff)))

		perc := percentageMin
		if percentageMax > percentageMin {
			perc = percentageMin + r.Float64()*(percentageMax-percentageMin)
		}

		t, err := GenerateNoiseOctree(size, maxDepth, perc, r)
		if err != nil {
			return err
		}
		data, err := t.Marshal(svo.CompZstd)
		if err != nil {
			return err
		}
		path := filepath.Join(outDir, fmt.Sprintf("%d.svox", i))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to save %s: %w", path, err)
		}
	}
	return nil
}
