package grid

import (
	"github.com/chewxy/math32"
)

const (
	// LeafGridSize is the octree leaf resolution per axis.
	LeafGridSize = 64
	// OctreeLevels is the number of pyramid levels for a 64^3 leaf grid
	// (64, 32, 16, 8, 4, 2, 1).
	OctreeLevels = 7
)

// PackedLayout maps a cubic 3D grid into a square 2D texture by tiling
// Z slices row-major: slice vz lives at tile (vz%SlicesPerRow, vz/SlicesPerRow).
type PackedLayout struct {
	GridSize     int // voxels per axis
	SlicesPerRow int
	TexSize      int // GridSize * SlicesPerRow, per side
}

func NewPackedLayout(gridSize int) PackedLayout {
	s := int(math32.Ceil(math32.Sqrt(float32(gridSize))))
	if s < 1 {
		s = 1
	}
	return PackedLayout{
		GridSize:     gridSize,
		SlicesPerRow: s,
		TexSize:      gridSize * s,
	}
}

// Texel returns the 2D texel holding voxel (vx, vy, vz).
func (l PackedLayout) Texel(vx, vy, vz int) (tx, ty int) {
	sliceRow := vz / l.SlicesPerRow
	sliceCol := vz % l.SlicesPerRow
	return sliceCol*l.GridSize + vx, sliceRow*l.GridSize + vy
}

// Voxel inverts Texel. Texels belonging to tiles beyond GridSize slices
// decode to vz >= GridSize; callers treat those as padding.
func (l PackedLayout) Voxel(tx, ty int) (vx, vy, vz int) {
	sliceCol := tx / l.GridSize
	sliceRow := ty / l.GridSize
	return tx % l.GridSize, ty % l.GridSize, sliceRow*l.SlicesPerRow + sliceCol
}

// VoxelCount is the number of addressable voxels.
func (l PackedLayout) VoxelCount() int {
	return l.GridSize * l.GridSize * l.GridSize
}

// ParticlePlane returns the dimensions of the 2D texture planes holding n
// particles: w = ceil(sqrt(n)), h = ceil(n/w). Texels past n are padding.
func ParticlePlane(n int) (w, h int) {
	if n <= 0 {
		return 1, 1
	}
	w = int(math32.Ceil(math32.Sqrt(float32(n))))
	h = (n + w - 1) / w
	return w, h
}

// ParticleTexel maps linear particle index i into a w-wide plane.
func ParticleTexel(i, w int) (tx, ty int) {
	return i % w, i / w
}
