package gravity

import (
	"errors"
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestEngine skips when no adapter is reachable (CI has no GPU) and
// fails on any other construction error.
func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = NewNopLogger()
	}
	e, err := New(cfg)
	if err != nil {
		var re *ResourceError
		if errors.As(err, &re) && re.Kind == ErrExtensionMissing {
			t.Skip("need a GPU adapter:", err)
		}
		t.Fatal(err)
	}
	t.Cleanup(e.Dispose)
	return e
}

func steps(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Step()
	}
}

func requireFinite(t *testing.T, vals []float32, what string) {
	t.Helper()
	for i, v := range vals {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			t.Fatalf("%s[%d] is not finite: %v", what, i, v)
		}
	}
}

func TestSingleParticleAtRest(t *testing.T) {
	for _, kind := range []SolverKind{Monopole, Spectral} {
		t.Run(kind.String(), func(t *testing.T) {
			e := newTestEngine(t, Config{
				Solver:        kind,
				ParticleCount: 1,
				Positions:     []float32{0, 0, 0, 1},
				Dt:            0.01,
			})
			steps(e, 10)
			pos, err := e.ReadPositions()
			require.NoError(t, err)
			vel, err := e.ReadVelocities()
			require.NoError(t, err)
			for a := 0; a < 3; a++ {
				assert.InDelta(t, 0, float64(pos[a]), 1e-5)
				assert.InDelta(t, 0, float64(vel[a]), 1e-5)
			}
			assert.Equal(t, float32(1), pos[3], "mass preserved")
		})
	}
}

func TestTwoBodyAttraction(t *testing.T) {
	for _, kind := range []SolverKind{Monopole, Spectral} {
		t.Run(kind.String(), func(t *testing.T) {
			e := newTestEngine(t, Config{
				Solver:        kind,
				ParticleCount: 2,
				Positions: []float32{
					-1, 0, 0, 1,
					1, 0, 0, 1,
				},
				Dt:       0.01,
				GridSize: 32,
			})
			steps(e, 20)
			pos, err := e.ReadPositions()
			require.NoError(t, err)
			vel, err := e.ReadVelocities()
			require.NoError(t, err)
			requireFinite(t, pos[:8], "position")
			requireFinite(t, vel[:8], "velocity")
			assert.Greater(t, float64(pos[0]), -1.0, "left body pulled right")
			assert.Less(t, float64(pos[4]), 1.0, "right body pulled left")
			assert.Greater(t, float64(vel[0]), 0.0)
			assert.Less(t, float64(vel[4]), 0.0)
		})
	}
}

func TestTwoBodyAttractionTreePM(t *testing.T) {
	e := newTestEngine(t, Config{
		Solver:        TreePM,
		ParticleCount: 2,
		Positions: []float32{
			-1, 0, 0, 1,
			1, 0, 0, 1,
		},
		Dt:              0.01,
		GridSize:        32,
		SplitSigma:      0.25,
		NearFieldRadius: 2,
	})
	steps(e, 20)
	pos, err := e.ReadPositions()
	require.NoError(t, err)
	requireFinite(t, pos[:8], "position")
	assert.Greater(t, float64(pos[0]), -1.0)
	assert.Less(t, float64(pos[4]), 1.0)
}

func TestEquilateralTriangleStaysBound(t *testing.T) {
	r := float32(1.0)
	h := r * math32.Sqrt(3) / 2
	positions := []float32{
		r, 0, 0, 1,
		-r / 2, h, 0, 1,
		-r / 2, -h, 0, 1,
	}
	// tangential kicks around the common center
	v := float32(0.05)
	velocities := make([]float32, 12)
	for i := 0; i < 3; i++ {
		x, y := positions[i*4], positions[i*4+1]
		l := math32.Sqrt(x*x + y*y)
		velocities[i*4+0] = -y / l * v
		velocities[i*4+1] = x / l * v
	}
	e := newTestEngine(t, Config{
		Solver:        Monopole,
		ParticleCount: 3,
		Positions:     positions,
		Velocities:    velocities,
		Dt:            0.01,
	})
	steps(e, 100)
	pos, err := e.ReadPositions()
	require.NoError(t, err)
	requireFinite(t, pos[:12], "position")

	dist := func(p []float32, i, j int) float64 {
		var d2 float64
		for a := 0; a < 3; a++ {
			d := float64(p[i*4+a] - p[j*4+a])
			d2 += d * d
		}
		return math.Sqrt(d2)
	}
	initial := dist(positions, 0, 1)
	for _, pair := range [][2]int{{0, 1}, {1, 2}, {0, 2}} {
		d := dist(pos, pair[0], pair[1])
		assert.InDelta(t, initial, d, initial*0.3, "pair %v drifted", pair)
	}
}

func TestZeroGravityStasis(t *testing.T) {
	for _, kind := range []SolverKind{Monopole, Spectral} {
		t.Run(kind.String(), func(t *testing.T) {
			init := UniformBall(16, 1, 1, 5)
			e := newTestEngine(t, Config{
				Solver:          kind,
				ParticleCount:   16,
				Positions:       append([]float32(nil), init...),
				GravityStrength: -1, // gravity off
				Dt:              0.01,
				GridSize:        16,
			})
			steps(e, 50)
			pos, err := e.ReadPositions()
			require.NoError(t, err)
			vel, err := e.ReadVelocities()
			require.NoError(t, err)
			for i := 0; i < 16; i++ {
				for a := 0; a < 3; a++ {
					assert.InDelta(t, float64(init[i*4+a]), float64(pos[i*4+a]), 1e-3, "particle %d axis %d", i, a)
					assert.InDelta(t, 0, float64(vel[i*4+a]), 1e-3)
				}
			}
		})
	}
}

func TestSpeedClampHolds(t *testing.T) {
	e := newTestEngine(t, Config{
		Solver:        Spectral,
		ParticleCount: 4,
		Positions: []float32{
			-1, 0, 0, 1,
			1, 0, 0, 1,
			0, 1, 0, 1,
			0, -1, 0, 1,
		},
		Velocities: []float32{
			2, 1, 0.5, 0,
			-2, -1, -0.5, 0,
			2, -1, 0.5, 0,
			-2, 1, -0.5, 0,
		},
		Dt:       0.01,
		GridSize: 16,
		MaxSpeed: 2,
	})
	steps(e, 100)
	vel, err := e.ReadVelocities()
	require.NoError(t, err)
	requireFinite(t, vel, "velocity")
	for i := 0; i < 4; i++ {
		vx, vy, vz := vel[i*4], vel[i*4+1], vel[i*4+2]
		speed := math32.Sqrt(vx*vx + vy*vy + vz*vz)
		assert.LessOrEqual(t, float64(speed), 2.0*(1+1e-2), "particle %d", i)
		assert.Less(t, float64(speed), 20.0)
	}
	pos, err := e.ReadPositions()
	require.NoError(t, err)
	requireFinite(t, pos, "position")
}

func TestDenseClusterContraction(t *testing.T) {
	n := 10
	init := UniformBall(n, 0.2, 1, 99)
	e := newTestEngine(t, Config{
		Solver:          Monopole,
		ParticleCount:   n,
		Positions:       append([]float32(nil), init...),
		GravityStrength: 1e-3,
		Softening:       0.15,
		Dt:              0.005,
	})
	steps(e, 50)
	pos, err := e.ReadPositions()
	require.NoError(t, err)
	requireFinite(t, pos[:n*4], "position")

	radial := func(p []float32) (mean float64, com [3]float64) {
		for i := 0; i < n; i++ {
			for a := 0; a < 3; a++ {
				com[a] += float64(p[i*4+a]) / float64(n)
			}
		}
		for i := 0; i < n; i++ {
			var d2 float64
			for a := 0; a < 3; a++ {
				d := float64(p[i*4+a]) - com[a]
				d2 += d * d
			}
			mean += math.Sqrt(d2) / float64(n)
		}
		return mean, com
	}
	before, _ := radial(init)
	after, com := radial(pos)
	assert.Less(t, after, before, "cluster should contract")
	for a := 0; a < 3; a++ {
		assert.Less(t, math.Abs(com[a]), 0.1, "center of mass drift axis %d", a)
	}
}

func TestNaNFreedomLongRun(t *testing.T) {
	for _, kind := range []SolverKind{Monopole, Spectral} {
		t.Run(kind.String(), func(t *testing.T) {
			positions, velocities, colors := SpiralDisc(DiscOptions{Count: 64, Radius: 1.5, Seed: 2})
			e := newTestEngine(t, Config{
				Solver:        kind,
				ParticleCount: 64,
				Positions:     positions,
				Velocities:    velocities,
				Colors:        colors,
				GridSize:      32,
			})
			steps(e, 100)
			pos, err := e.ReadPositions()
			require.NoError(t, err)
			vel, err := e.ReadVelocities()
			require.NoError(t, err)
			requireFinite(t, pos, "position")
			requireFinite(t, vel, "velocity")
		})
	}
}

func TestAccessorsStable(t *testing.T) {
	e := newTestEngine(t, Config{
		ParticleCount: 5,
		Positions:     UniformBall(5, 1, 1, 1),
	})
	texBefore := e.PositionTextures()
	colorBefore := e.ColorTexture()
	idx0 := e.CurrentIndex()
	steps(e, 3)
	assert.Equal(t, texBefore, e.PositionTextures(), "handles must not move")
	assert.Equal(t, colorBefore, e.ColorTexture())
	assert.Equal(t, (idx0+3)%2, e.CurrentIndex())

	w, h := e.TextureSize()
	assert.Equal(t, 3, w)
	assert.Equal(t, 2, h)
	assert.EqualValues(t, 3, e.FrameCount())
}

func TestStatsEmptyWithoutProfiling(t *testing.T) {
	e := newTestEngine(t, Config{
		ParticleCount: 3,
		Positions:     UniformBall(3, 1, 1, 8),
	})
	steps(e, 2)
	assert.Empty(t, e.Stats())
}

func TestStatsWithProfiling(t *testing.T) {
	e := newTestEngine(t, Config{
		ParticleCount:   3,
		Positions:       UniformBall(3, 1, 1, 8),
		EnableProfiling: true,
	})
	steps(e, 5)
	stats := e.Stats()
	assert.Contains(t, stats, "solver")
	assert.Contains(t, stats, "integrate")
}

func TestDisposeIdempotent(t *testing.T) {
	e := newTestEngine(t, Config{
		ParticleCount: 2,
		Positions:     []float32{0, 0, 0, 1, 1, 0, 0, 1},
	})
	e.Dispose()
	e.Dispose()
	// a disposed engine ignores further steps
	e.Step()
	assert.EqualValues(t, 0, e.FrameCount())
}

func TestInvalidInputSurfacedAtConstruction(t *testing.T) {
	_, err := New(Config{ParticleCount: 3, Positions: []float32{0, 0, 0, 1}, Logger: NewNopLogger()})
	require.Error(t, err)
	var re *ResourceError
	if errors.As(err, &re) {
		// either the array mismatch, or ExtensionMissing on a GPU-less
		// host that never reached the upload
		assert.Contains(t, []ErrorKind{ErrInvalidInput, ErrExtensionMissing}, re.Kind)
	}
}
