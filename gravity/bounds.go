package gravity

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	boundsMargin = 0.05
	// hysteresis: only shrink once the live extent falls well inside
	// the current box, so slow contraction does not thrash uniforms
	boundsShrinkFactor = 0.6
	minExtent          = 1e-3
)

// expandBounds applies the per-axis margin and floors degenerate axes so
// grid mappings stay finite.
func expandBounds(min, max mgl32.Vec3) Bounds {
	var out Bounds
	for i := 0; i < 3; i++ {
		lo, hi := min[i], max[i]
		if hi < lo {
			lo, hi = hi, lo
		}
		ext := hi - lo
		if ext < minExtent {
			c := (lo + hi) * 0.5
			lo, hi = c-0.5, c+0.5
			ext = 1
		}
		pad := ext * boundsMargin
		out.Min[i] = lo - pad
		out.Max[i] = hi + pad
	}
	return out
}

// inferBounds scans the caller's position array (stride 4, mass in w)
// for the initial box.
func inferBounds(positions []float32, count int) Bounds {
	mn := mgl32.Vec3{math32.MaxFloat32, math32.MaxFloat32, math32.MaxFloat32}
	mx := mgl32.Vec3{-math32.MaxFloat32, -math32.MaxFloat32, -math32.MaxFloat32}
	found := false
	for i := 0; i < count; i++ {
		if positions[i*4+3] <= 0 {
			continue
		}
		found = true
		for a := 0; a < 3; a++ {
			v := positions[i*4+a]
			if v < mn[a] {
				mn[a] = v
			}
			if v > mx[a] {
				mx[a] = v
			}
		}
	}
	if !found {
		mn, mx = mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1}
	}
	return expandBounds(mn, mx)
}

// shouldRefresh decides whether a sampled box replaces the current one:
// growth past the box always does, shrink only past the hysteresis band.
func shouldRefresh(current Bounds, sampledMin, sampledMax mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if sampledMin[i] < current.Min[i] || sampledMax[i] > current.Max[i] {
			return true
		}
	}
	curExt := current.Extent()
	for i := 0; i < 3; i++ {
		ext := sampledMax[i] - sampledMin[i]
		if ext < minExtent {
			ext = minExtent
		}
		if ext < curExt[i]*boundsShrinkFactor {
			return true
		}
	}
	return false
}
