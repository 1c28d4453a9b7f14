// Package gravity is the host-facing facade of the GPU N-body engine.
// Particle state lives in float textures; one Step encodes a solver's
// force passes plus the kick-drift integrator and submits the frame.
package gravity

import (
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/grid"
	"github.com/oyin-bo/three-g/gravity/kernel"
	"github.com/oyin-bo/three-g/gravity/solver"
)

type Engine struct {
	cfg Config
	id  string
	log Logger

	ctx           *gpu.Context
	width, height int

	position *gpu.PingPong
	velocity *gpu.PingPong
	color    *gpu.Texture
	force    *gpu.Texture

	solv       solver.Solver
	integrator *kernel.Integrator
	bounds     *kernel.BoundsReduce
	profiler   *Profiler

	worldBounds   Bounds
	boundsPending bool
	frameCount    uint64

	posRead *gpu.Readback
	velRead *gpu.Readback

	initialized bool
	disposed    bool
}

// New validates the configuration, builds every GPU resource, and
// uploads the initial particle state. It never renders. On error all
// partially built resources are released before returning.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, id: uuid.NewString()[:8]}
	e.log = cfg.Logger
	if e.log == nil {
		e.log = gpu.NewDefaultLogger("gravity/"+e.id, false)
	}

	var err error
	if cfg.Device != nil {
		e.ctx, err = gpu.AdoptDevice(cfg.Device, e.log)
	} else {
		e.ctx, err = gpu.NewContext(e.log)
	}
	if err != nil {
		return nil, err
	}

	if err := e.build(); err != nil {
		e.Dispose()
		return nil, err
	}
	e.initialized = true
	e.log.Debugf("engine %s up: %d particles, %s solver, plane %dx%d",
		e.id, cfg.ParticleCount, cfg.Solver, e.width, e.height)
	return e, nil
}

func (e *Engine) build() error {
	cfg := e.cfg
	e.width, e.height = grid.ParticlePlane(cfg.ParticleCount)
	w, h := uint32(e.width), uint32(e.height)

	var err error
	if e.position, err = e.ctx.NewPingPong("particles/position", w, h, wgpu.TextureFormatRGBA32Float); err != nil {
		return err
	}
	if e.velocity, err = e.ctx.NewPingPong("particles/velocity", w, h, wgpu.TextureFormatRGBA32Float); err != nil {
		return err
	}
	if e.color, err = e.ctx.NewUploadTexture("particles/color", w, h, wgpu.TextureFormatRGBA8Unorm); err != nil {
		return err
	}
	if e.force, err = e.ctx.NewRenderTarget("particles/force", w, h, wgpu.TextureFormatRGBA32Float); err != nil {
		return err
	}

	if err = e.uploadInitialState(); err != nil {
		return err
	}

	if e.cfg.WorldBounds != nil {
		e.worldBounds = *e.cfg.WorldBounds
	} else {
		e.worldBounds = inferBounds(cfg.Positions, cfg.ParticleCount)
	}

	count, width := uint32(cfg.ParticleCount), w
	switch cfg.Solver {
	case Monopole:
		e.solv, err = solver.NewMonopole(e.ctx, solver.MonopoleConfig{
			Theta:     cfg.Theta,
			G:         cfg.GravityStrength,
			Softening: cfg.Softening,
			Count:     count,
			Width:     width,
		})
	case Spectral:
		e.solv, err = solver.NewSpectral(e.ctx, spectralConfig(cfg, count, width))
	case TreePM:
		e.solv, err = solver.NewTreePM(e.ctx, solver.TreePMConfig{
			Spectral:        spectralConfig(cfg, count, width),
			NearFieldRadius: int32(cfg.NearFieldRadius),
			Softening:       cfg.Softening,
		}, w, h)
	}
	if err != nil {
		return err
	}

	e.integrator, err = kernel.NewIntegrator(e.ctx, kernel.IntegratorConfig{
		Dt:       cfg.Dt,
		Damping:  cfg.Damping,
		MaxSpeed: cfg.MaxSpeed,
		MaxAccel: cfg.MaxAccel,
		Count:    count,
		Width:    width,
	})
	if err != nil {
		return err
	}

	if cfg.BoundsInterval > 0 {
		e.bounds, err = kernel.NewBoundsReduce(e.ctx, w, h, count, width)
		if err != nil {
			return err
		}
	}

	e.profiler, err = NewProfiler(e.ctx, cfg.EnableProfiling)
	if err != nil {
		return err
	}

	e.solv.SetWorldBounds(e.worldBounds.Min, e.worldBounds.Extent())
	return nil
}

func floatBytes(f []float32) []byte {
	if len(f) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&f[0])), len(f)*4)
}

func (e *Engine) uploadInitialState() error {
	cfg := e.cfg
	planeFloats := e.width * e.height * 4
	n4 := cfg.ParticleCount * 4

	pad := func(src []float32, name string) ([]float32, error) {
		switch len(src) {
		case planeFloats:
			return src, nil
		case n4:
			padded := make([]float32, planeFloats)
			copy(padded, src)
			return padded, nil
		}
		return nil, gpu.InvalidInput(name, "length %d, want %d or %d", len(src), n4, planeFloats)
	}

	if cfg.Positions == nil {
		return gpu.InvalidInput("positions", "missing initial positions")
	}
	positions, err := pad(cfg.Positions, "positions")
	if err != nil {
		return err
	}
	velocities := cfg.Velocities
	if velocities == nil {
		velocities = make([]float32, planeFloats)
	}
	velocities, err = pad(velocities, "velocities")
	if err != nil {
		return err
	}

	planeBytes := e.width * e.height * 4
	colors := cfg.Colors
	if colors == nil {
		colors = make([]byte, planeBytes)
		for i := range colors {
			colors[i] = 0xFF
		}
	} else if len(colors) == cfg.ParticleCount*4 {
		padded := make([]byte, planeBytes)
		copy(padded, colors)
		colors = padded
	} else if len(colors) != planeBytes {
		return gpu.InvalidInput("colors", "length %d, want %d or %d", len(colors), cfg.ParticleCount*4, planeBytes)
	}

	e.position.Current().Upload(e.ctx.Queue, floatBytes(positions))
	e.velocity.Current().Upload(e.ctx.Queue, floatBytes(velocities))
	e.color.Upload(e.ctx.Queue, colors)
	return nil
}

func spectralConfig(cfg Config, count, width uint32) solver.SpectralConfig {
	sigma := float32(0)
	if cfg.Solver == TreePM {
		sigma = cfg.SplitSigma
	}
	return solver.SpectralConfig{
		GridSize:   cfg.GridSize,
		Assignment: cfg.Assignment,
		G:          cfg.GravityStrength,
		SplitSigma: sigma,
		Count:      count,
		Width:      width,
	}
}

// Step advances the system one frame: solver force pass, velocity kick,
// position drift, ping-pong swap. A no-op on a failed or disposed
// engine. Numeric trouble never surfaces here; the integrator clamps it.
func (e *Engine) Step() {
	if !e.initialized || e.disposed {
		return
	}
	p := e.profiler
	p.BeginScope("encode")

	encoder, err := e.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		e.ctx.Diag.PassErrors.Add(1)
		e.log.Errorf("step: command encoder: %v", err)
		return
	}

	p.BeginScope("solver")
	e.solv.Compute(encoder, e.position.Current(), e.force)
	p.EndScope("solver")

	p.BeginScope("integrate")
	e.integrator.Run(encoder, e.position, e.velocity, e.force)
	p.EndScope("integrate")

	// never re-encode the readback copy while the previous one is
	// still in flight: a mapped buffer cannot be a copy destination
	refreshing := e.bounds != nil && !e.boundsPending &&
		e.frameCount%uint64(e.cfg.BoundsInterval) == 0
	if refreshing {
		p.BeginScope("bounds")
		e.bounds.Run(encoder, e.position.Current())
		p.EndScope("bounds")
	}

	fence := p.EncodeFence(encoder)
	p.EndScope("encode")

	cmd, err := encoder.Finish(nil)
	if err != nil {
		e.ctx.Diag.PassErrors.Add(1)
		e.log.Errorf("step: encoder finish: %v", err)
		return
	}
	e.ctx.Queue.Submit(cmd)
	p.FenceSubmitted(fence)

	e.position.Swap()
	e.velocity.Swap()

	if refreshing {
		e.boundsPending = true
	}
	if e.bounds != nil && e.boundsPending {
		if mn, mx, ok := e.bounds.TryCollect(); ok {
			e.boundsPending = false
			if shouldRefresh(e.worldBounds, mn, mx) {
				e.worldBounds = expandBounds(mn, mx)
				e.solv.SetWorldBounds(e.worldBounds.Min, e.worldBounds.Extent())
				e.log.Debugf("bounds refresh: %v..%v", e.worldBounds.Min, e.worldBounds.Max)
			}
		}
	}
	p.Pump()
	e.frameCount++
}

// PositionTextures returns both ping-pong handles; they are stable for
// the engine's lifetime.
func (e *Engine) PositionTextures() [2]*gpu.Texture { return e.position.Tex }

// PositionTexture returns the authoritative texture for this frame.
func (e *Engine) PositionTexture() *gpu.Texture { return e.position.Current() }

func (e *Engine) CurrentIndex() int { return e.position.Index() }

func (e *Engine) ColorTexture() *gpu.Texture { return e.color }

func (e *Engine) TextureSize() (w, h int) { return e.width, e.height }

func (e *Engine) FrameCount() uint64 { return e.frameCount }

// WorldBounds reports the box currently mapped onto the grids.
func (e *Engine) WorldBounds() Bounds { return e.worldBounds }

// Stats returns average per-scope milliseconds; empty when profiling is
// off or unavailable.
func (e *Engine) Stats() map[string]float64 {
	if e.profiler == nil {
		return map[string]float64{}
	}
	return e.profiler.Stats()
}

// DiagnosticCounters exposes accumulated hot-path GPU errors.
func (e *Engine) DiagnosticCounters() (bindGroup, pass, readback uint64) {
	d := e.ctx.Diag
	return d.BindGroupErrors.Load(), d.PassErrors.Load(), d.ReadbackErrors.Load()
}

// Device exposes the underlying device for hosts that render the
// particle textures.
func (e *Engine) Device() *wgpu.Device { return e.ctx.Device }

func (e *Engine) readPlane(pp *gpu.PingPong, cache **gpu.Readback, label string) ([]float32, error) {
	if e.disposed || e.ctx == nil {
		return nil, gpu.InvalidInput(label, "engine disposed")
	}
	if *cache == nil {
		rb, err := e.ctx.NewReadback(label, uint32(e.width), uint32(e.height), wgpu.TextureFormatRGBA32Float)
		if err != nil {
			return nil, err
		}
		*cache = rb
	}
	encoder, err := e.ctx.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, &gpu.ResourceError{Kind: gpu.ErrAllocationFailed, Stage: label, Err: err}
	}
	(*cache).Encode(encoder, pp.Current())
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, &gpu.ResourceError{Kind: gpu.ErrAllocationFailed, Stage: label, Err: err}
	}
	e.ctx.Queue.Submit(cmd)
	raw := (*cache).ReadBlocking(e.ctx.Device)
	if raw == nil {
		return nil, &gpu.ResourceError{Kind: gpu.ErrAllocationFailed, Stage: label, Log: "readback map failed"}
	}
	out := make([]float32, len(raw)/4)
	copy(out, unsafe.Slice((*float32)(unsafe.Pointer(&raw[0])), len(out)))
	return out, nil
}

// ReadPositions copies the current position plane back to the host.
// Blocking; intended for tests and tooling, not the frame loop.
func (e *Engine) ReadPositions() ([]float32, error) {
	return e.readPlane(e.position, &e.posRead, "debug/positions")
}

// ReadVelocities copies the current velocity plane back to the host.
func (e *Engine) ReadVelocities() ([]float32, error) {
	return e.readPlane(e.velocity, &e.velRead, "debug/velocities")
}

// Dispose releases every GPU resource exactly once. Safe to call
// repeatedly and on a partially constructed engine.
func (e *Engine) Dispose() {
	if e.disposed {
		return
	}
	e.disposed = true
	e.initialized = false

	if e.profiler != nil {
		e.profiler.Release()
		e.profiler = nil
	}
	if e.bounds != nil {
		e.bounds.Release()
		e.bounds = nil
	}
	if e.integrator != nil {
		e.integrator.Release()
		e.integrator = nil
	}
	if e.solv != nil {
		e.solv.Release()
		e.solv = nil
	}
	e.posRead.Release()
	e.velRead.Release()
	e.force.Release()
	e.color.Release()
	e.velocity.Release()
	e.position.Release()
	e.force, e.color = nil, nil
	e.velocity, e.position = nil, nil

	if e.ctx != nil {
		e.ctx.Dispose()
	}
}

// WorldExtent is a convenience for hosts framing a camera around the
// simulation.
func (e *Engine) WorldExtent() mgl32.Vec3 { return e.worldBounds.Extent() }
