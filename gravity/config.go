package gravity

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/kernel"
	"github.com/oyin-bo/three-g/gravity/solver"
)

// Re-exported enums so callers only import this package.
type (
	SolverKind = solver.Kind
	Assignment = kernel.Assignment
	Logger     = gpu.Logger
)

const (
	Monopole = solver.Monopole
	Spectral = solver.Spectral
	TreePM   = solver.TreePM

	NGP = kernel.NGP
	CIC = kernel.CIC
)

// Bounds is an axis-aligned world box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (b Bounds) Extent() mgl32.Vec3 { return b.Max.Sub(b.Min) }

// Config is the immutable construction surface. ParticleCount and
// Positions are required; everything else has a default. Changing the
// particle count means building a new engine.
type Config struct {
	Solver        SolverKind
	ParticleCount int

	// Positions holds 4 floats per particle (x, y, z, mass); either
	// exactly 4*ParticleCount long or already padded to the full
	// texture plane. Velocities (vx, vy, vz, 0) defaults to rest;
	// Colors (r, g, b, a) defaults to opaque white.
	Positions  []float32
	Velocities []float32
	Colors     []byte

	// WorldBounds overrides the box inferred from Positions.
	WorldBounds *Bounds

	Dt float32
	// GravityStrength is G. Zero selects the default; a negative value
	// turns gravity off entirely (free streaming).
	GravityStrength float32
	Softening       float32
	Damping         float32
	MaxSpeed        float32
	MaxAccel        float32

	Theta float32 // Barnes-Hut opening angle

	GridSize   int // spectral mesh resolution per axis
	Assignment Assignment

	SplitSigma      float32 // TreePM far/near split; zero disables the hybrid
	NearFieldRadius int

	EnableProfiling bool
	// BoundsInterval is the frame period of the GPU bounds refresh;
	// zero keeps the default, negative disables refreshes.
	BoundsInterval int

	// Device adopts the host renderer's device so it can sample the
	// engine's textures; nil creates a headless one.
	Device *wgpu.Device
	Logger Logger
}

const (
	defaultDt              = 1.0 / 60.0
	defaultGravity         = 3e-4
	defaultSoftening       = 0.2
	defaultMaxSpeed        = 2.0
	defaultMaxAccel        = 1.0
	defaultTheta           = 0.5
	defaultGridSize        = 64
	defaultNearFieldRadius = 2
	defaultBoundsInterval  = 240
)

func (c Config) withDefaults() Config {
	if c.Dt == 0 {
		c.Dt = defaultDt
	}
	if c.GravityStrength == 0 {
		c.GravityStrength = defaultGravity
	} else if c.GravityStrength < 0 {
		c.GravityStrength = 0
	}
	if c.Softening == 0 {
		c.Softening = defaultSoftening
	}
	if c.MaxSpeed == 0 {
		c.MaxSpeed = defaultMaxSpeed
	}
	if c.MaxAccel == 0 {
		c.MaxAccel = defaultMaxAccel
	}
	if c.Theta == 0 {
		c.Theta = defaultTheta
	}
	if c.GridSize == 0 {
		c.GridSize = defaultGridSize
	}
	if c.NearFieldRadius == 0 {
		c.NearFieldRadius = defaultNearFieldRadius
	}
	if c.BoundsInterval == 0 {
		c.BoundsInterval = defaultBoundsInterval
	}
	// a hybrid without a split or a scan radius is just the spectral
	// solver
	if c.Solver == TreePM && (c.SplitSigma <= 0 || c.NearFieldRadius <= 0) {
		c.Solver = Spectral
	}
	return c
}

func (c Config) validate() error {
	if c.ParticleCount <= 0 {
		return gpu.InvalidInput("config", "particle count %d", c.ParticleCount)
	}
	if c.Solver != Monopole && c.Solver != Spectral && c.Solver != TreePM {
		return gpu.InvalidInput("config", "unknown solver %d", c.Solver)
	}
	if c.Dt <= 0 {
		return gpu.InvalidInput("config", "dt %g", c.Dt)
	}
	if c.Damping < 0 || c.Damping >= 1 {
		return gpu.InvalidInput("config", "damping %g outside [0,1)", c.Damping)
	}
	if c.MaxSpeed <= 0 || c.MaxAccel <= 0 {
		return gpu.InvalidInput("config", "clamps must be positive: maxSpeed %g maxAccel %g", c.MaxSpeed, c.MaxAccel)
	}
	if c.Theta <= 0 {
		return gpu.InvalidInput("config", "theta %g", c.Theta)
	}
	if c.GridSize < 4 || c.GridSize > 256 || c.GridSize&(c.GridSize-1) != 0 {
		return gpu.InvalidInput("config", "grid size %d must be a power of two in [4,256]", c.GridSize)
	}
	if c.Assignment != NGP && c.Assignment != CIC {
		return gpu.InvalidInput("config", "unknown assignment %d", c.Assignment)
	}
	if c.NearFieldRadius < 0 || c.NearFieldRadius > 8 {
		return gpu.InvalidInput("config", "near-field radius %d outside [0,8]", c.NearFieldRadius)
	}
	if c.WorldBounds != nil {
		ext := c.WorldBounds.Extent()
		if ext.X() <= 0 || ext.Y() <= 0 || ext.Z() <= 0 {
			return gpu.InvalidInput("config", "world bounds are empty on at least one axis")
		}
	}
	return nil
}
