package grid

// OctreeLevel describes one pyramid level: its index and packed-Z
// layout. World-space cell sizes are not stored here.
type OctreeLevel struct {
	Level  int
	Layout PackedLayout
}

// OctreePlan is the full level stack, leaf (level 0) first. Level L has
// gridSize LeafGridSize >> L; the last level is a single voxel.
func OctreePlan() []OctreeLevel {
	levels := make([]OctreeLevel, 0, OctreeLevels)
	size := LeafGridSize
	for l := 0; size >= 1; l++ {
		levels = append(levels, OctreeLevel{Level: l, Layout: NewPackedLayout(size)})
		size >>= 1
	}
	return levels
}

// ChildTexels returns the eight level-l texels aggregated by parent voxel
// (px, py, pz) at level l+1. child is the level-l layout.
func ChildTexels(child PackedLayout, px, py, pz int) [8][2]int {
	var out [8][2]int
	i := 0
	for dz := 0; dz < 2; dz++ {
		for dy := 0; dy < 2; dy++ {
			for dx := 0; dx < 2; dx++ {
				tx, ty := child.Texel(px*2+dx, py*2+dy, pz*2+dz)
				out[i] = [2]int{tx, ty}
				i++
			}
		}
	}
	return out
}
