package svo

import (
	"fmt"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
)

// Voxel is the payload stored at one cell of the octree. A position with no
// stored voxel is empty; emptiness is represented by absence, not by a
// sentinel value.
type Voxel struct {
	Material uint16
	Color    mgl32.Vec4 // RGBA, each channel in [0,1]
	Active   bool       // exposed to air; the sole gate for mesh emission
}

// ParseHexColor converts "#RRGGBB" or "#RRGGBBAA" into an RGBA color.
func ParseHexColor(hex string) (mgl32.Vec4, error) {
	if len(hex) == 0 || hex[0] != '#' {
		return mgl32.Vec4{}, fmt.Errorf("invalid hex color: %s", hex)
	}
	h := hex[1:]
	if len(h) != 6 && len(h) != 8 {
		return mgl32.Vec4{}, fmt.Errorf("invalid hex color length: %s", hex)
	}
	rgba := [4]uint64{0, 0, 0, 255}
	for i := 0; i*2 < len(h); i++ {
		v, err := strconv.ParseUint(h[i*2:i*2+2], 16, 8)
		if err != nil {
			return mgl32.Vec4{}, fmt.Errorf("invalid hex color %s: %w", hex, err)
		}
		rgba[i] = v
	}
	return mgl32.Vec4{float32(rgba[0]) / 255, float32(rgba[1]) / 255, float32(rgba[2]) / 255, float32(rgba[3]) / 255}, nil
}
