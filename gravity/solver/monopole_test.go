package solver

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oyin-bo/three-g/gravity/grid"
)

// cpuOctree mirrors the aggregation and reduction kernels on the host:
// dense A0 pyramids over the 64^3 leaf grid.
type cpuOctree struct {
	levels [][]mgl32.Vec4
	plan   []grid.OctreeLevel
	min    mgl32.Vec3
	extent mgl32.Vec3
}

func buildCPUOctree(particles []mgl32.Vec4, min, extent mgl32.Vec3) *cpuOctree {
	o := &cpuOctree{plan: grid.OctreePlan(), min: min, extent: extent}
	for _, lvl := range o.plan {
		n := lvl.Layout.GridSize
		o.levels = append(o.levels, make([]mgl32.Vec4, n*n*n))
	}
	n0 := o.plan[0].Layout.GridSize
	for _, p := range particles {
		m := p.W()
		if m <= 0 {
			continue
		}
		var v [3]int
		for a := 0; a < 3; a++ {
			g := (p[a] - min[a]) / extent[a]
			g = math32.Min(math32.Max(g, 0), 0.999999)
			v[a] = int(g * float32(n0))
		}
		idx := (v[2]*n0+v[1])*n0 + v[0]
		o.levels[0][idx] = o.levels[0][idx].Add(mgl32.Vec4{p.X() * m, p.Y() * m, p.Z() * m, m})
	}
	for l := 1; l < len(o.levels); l++ {
		n := o.plan[l].Layout.GridSize
		cn := n * 2
		for vz := 0; vz < n; vz++ {
			for vy := 0; vy < n; vy++ {
				for vx := 0; vx < n; vx++ {
					var sum mgl32.Vec4
					for dz := 0; dz < 2; dz++ {
						for dy := 0; dy < 2; dy++ {
							for dx := 0; dx < 2; dx++ {
								ci := ((vz*2+dz)*cn+(vy*2+dy))*cn + (vx*2 + dx)
								sum = sum.Add(o.levels[l-1][ci])
							}
						}
					}
					o.levels[l][(vz*n+vy)*n+vx] = sum
				}
			}
		}
	}
	return o
}

func (o *cpuOctree) moment(level int, v [3]int) mgl32.Vec4 {
	n := o.plan[level].Layout.GridSize
	return o.levels[level][(v[2]*n+v[1])*n+v[0]]
}

// traverse mirrors the shader's descent: DFS with per-level child
// cursors, ties accepted as monopoles, self-leaf subtraction.
func (o *cpuOctree) traverse(p mgl32.Vec4, theta, g, eps float32) mgl32.Vec3 {
	theta2 := theta * theta
	eps2 := eps * eps
	const delta = 1e-12
	n0 := float32(o.plan[0].Layout.GridSize)
	var selfLeaf [3]int
	for a := 0; a < 3; a++ {
		gg := (p[a] - o.min[a]) / o.extent[a]
		gg = math32.Min(math32.Max(gg, 0), 0.999999)
		selfLeaf[a] = int(gg * n0)
	}
	extMax := math32.Max(o.extent.X(), math32.Max(o.extent.Y(), o.extent.Z()))

	var force mgl32.Vec3
	root := len(o.plan) - 1
	var node [7][3]int
	var cursor [7]int
	depth := 0
	for depth >= 0 {
		if cursor[depth] >= 8 {
			depth--
			continue
		}
		ci := cursor[depth]
		cursor[depth]++
		child := [3]int{
			node[depth][0]*2 + (ci & 1),
			node[depth][1]*2 + ((ci >> 1) & 1),
			node[depth][2]*2 + ((ci >> 2) & 1),
		}
		clevel := root - depth - 1
		a0 := o.moment(clevel, child)
		if clevel == 0 && child == selfLeaf {
			m := p.W()
			a0 = a0.Sub(mgl32.Vec4{p.X() * m, p.Y() * m, p.Z() * m, m})
		}
		if a0.W() <= delta {
			continue
		}
		com := mgl32.Vec3{a0.X() / a0.W(), a0.Y() / a0.W(), a0.Z() / a0.W()}
		r := com.Sub(p.Vec3())
		d2 := r.Dot(r)
		cell := extMax / float32(o.plan[clevel].Layout.GridSize)
		if clevel == 0 || cell*cell <= theta2*d2 {
			den := d2 + eps2
			if den >= delta {
				force = force.Add(r.Mul(g * a0.W() / (den * math32.Sqrt(den))))
			}
			continue
		}
		depth++
		node[depth] = child
		cursor[depth] = 0
	}
	return force
}

func directSum(particles []mgl32.Vec4, i int, g, eps float32) mgl32.Vec3 {
	var force mgl32.Vec3
	p := particles[i]
	for j, q := range particles {
		if j == i || q.W() <= 0 {
			continue
		}
		r := q.Vec3().Sub(p.Vec3())
		den := r.Dot(r) + eps*eps
		force = force.Add(r.Mul(g * q.W() / (den * math32.Sqrt(den))))
	}
	return force
}

func randomCloud(n int, seed int64) []mgl32.Vec4 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]mgl32.Vec4, n)
	for i := range out {
		out[i] = mgl32.Vec4{
			rng.Float32()*4 - 2,
			rng.Float32()*4 - 2,
			rng.Float32()*4 - 2,
			0.5 + rng.Float32(),
		}
	}
	return out
}

func TestOctreeMassConservation(t *testing.T) {
	particles := randomCloud(30, 7)
	o := buildCPUOctree(particles, mgl32.Vec3{-2.2, -2.2, -2.2}, mgl32.Vec3{4.4, 4.4, 4.4})
	var total float32
	for _, p := range particles {
		total += p.W()
	}
	for l := range o.levels {
		var sum float32
		for _, a0 := range o.levels[l] {
			sum += a0.W()
		}
		assert.InDelta(t, float64(total), float64(sum), float64(total)*1e-3, "level %d", l)
	}
	// root monopole holds the total mass
	rootA0 := o.moment(len(o.levels)-1, [3]int{0, 0, 0})
	assert.InDelta(t, float64(total), float64(rootA0.W()), 1e-3)
}

func meanForceError(particles []mgl32.Vec4, o *cpuOctree, theta, g, eps float32) float64 {
	var errSum float64
	for i := range particles {
		approx := o.traverse(particles[i], theta, g, eps)
		exact := directSum(particles, i, g, eps)
		diff := approx.Sub(exact)
		norm := exact.Len()
		if norm < 1e-12 {
			norm = 1e-12
		}
		errSum += float64(diff.Len() / norm)
	}
	return errSum / float64(len(particles))
}

func TestOpeningAngleMonotonicity(t *testing.T) {
	particles := randomCloud(30, 11)
	min := mgl32.Vec3{-2.2, -2.2, -2.2}
	extent := mgl32.Vec3{4.4, 4.4, 4.4}
	o := buildCPUOctree(particles, min, extent)

	g := float32(3e-4)
	eps := float32(0.2)
	thetas := []float32{1.2, 0.8, 0.5, 0.3}
	errs := make([]float64, len(thetas))
	for i, theta := range thetas {
		errs[i] = meanForceError(particles, o, theta, g, eps)
	}
	for i := 1; i < len(errs); i++ {
		// per-step slack absorbs float noise; the trend must hold
		assert.LessOrEqual(t, errs[i], errs[i-1]*1.05+1e-9, "theta=%v", thetas[i])
	}
	assert.Less(t, errs[len(errs)-1], errs[0]+1e-12)
	// tight theta should be close to direct summation
	assert.Less(t, meanForceError(particles, o, 0.1, g, eps), 0.05)
}

func TestTraversalSelfForceFree(t *testing.T) {
	// a single particle must feel nothing from its own leaf
	particles := []mgl32.Vec4{{0.3, -0.1, 0.2, 2}}
	o := buildCPUOctree(particles, mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{2, 2, 2})
	f := o.traverse(particles[0], 0.5, 3e-4, 0.2)
	require.Less(t, float64(f.Len()), 1e-7)
}

func TestTraversalTwoBodyAttraction(t *testing.T) {
	particles := []mgl32.Vec4{{-1, 0, 0, 1}, {1, 0, 0, 1}}
	o := buildCPUOctree(particles, mgl32.Vec3{-1.5, -1.5, -1.5}, mgl32.Vec3{3, 3, 3})
	f0 := o.traverse(particles[0], 0.5, 3e-4, 0.2)
	f1 := o.traverse(particles[1], 0.5, 3e-4, 0.2)
	assert.Greater(t, float64(f0.X()), 0.0)
	assert.Less(t, float64(f1.X()), 0.0)
	assert.InDelta(t, float64(f0.X()), float64(-f1.X()), 1e-6)
}
