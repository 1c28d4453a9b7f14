package solver

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/grid"
	"github.com/oyin-bo/three-g/gravity/kernel"
)

// spectrumSlots names which stage currently holds each of the two large
// complex textures, so the handoff between FFT, Poisson and Gradient is
// a move, never an alias. A nil slot read is a wiring bug and is counted
// instead of crashing the frame loop.
type spectrumSlots struct {
	fftFrom   *gpu.Texture // FFT scratch, ready for the next forward pass
	fftTo     *gpu.Texture
	density   *gpu.Texture // forward-FFT output, borrowed by Poisson
	potential *gpu.Texture // Poisson output, borrowed by Gradient
}

// SpectralSolver is the PM/FFT pipeline: deposit, forward FFT, Poisson,
// gradient, three inverse FFTs, trilinear force gather.
type SpectralSolver struct {
	ctx  *gpu.Context
	mesh grid.PackedLayout

	massGrid  *gpu.Texture
	cplx      [2]*gpu.Texture
	forceSpec [3]*gpu.Texture
	forceGrid [3]*gpu.Texture

	deposit  *kernel.Deposit
	fft      *kernel.FFT
	poisson  *kernel.Poisson
	gradient *kernel.Gradient
	sample   *kernel.Sample

	slots spectrumSlots
}

type SpectralConfig struct {
	GridSize   int
	Assignment kernel.Assignment
	G          float32
	SplitSigma float32 // Gaussian low-pass; zero means plain PM
	Count      uint32
	Width      uint32
}

func NewSpectral(ctx *gpu.Context, cfg SpectralConfig) (*SpectralSolver, error) {
	s := &SpectralSolver{ctx: ctx, mesh: grid.NewPackedLayout(cfg.GridSize)}
	side := uint32(s.mesh.TexSize)

	var err error
	s.massGrid, err = ctx.NewRenderTarget("pm/mass", side, side, wgpu.TextureFormatR32Float)
	if err != nil {
		s.Release()
		return nil, err
	}
	for i := range s.cplx {
		s.cplx[i], err = ctx.NewRenderTarget(fmt.Sprintf("pm/spectrum%d", i), side, side, wgpu.TextureFormatRG32Float)
		if err != nil {
			s.Release()
			return nil, err
		}
	}
	axes := [3]string{"x", "y", "z"}
	for i := range s.forceSpec {
		s.forceSpec[i], err = ctx.NewRenderTarget("pm/forcespec/"+axes[i], side, side, wgpu.TextureFormatRG32Float)
		if err != nil {
			s.Release()
			return nil, err
		}
		s.forceGrid[i], err = ctx.NewRenderTarget("pm/forcegrid/"+axes[i], side, side, wgpu.TextureFormatR32Float)
		if err != nil {
			s.Release()
			return nil, err
		}
	}

	s.deposit, err = kernel.NewDeposit(ctx, cfg.Assignment, cfg.Count, cfg.Width, s.mesh)
	if err != nil {
		s.Release()
		return nil, err
	}
	s.fft, err = kernel.NewFFT(ctx, s.mesh.GridSize, s.mesh.SlicesPerRow)
	if err != nil {
		s.Release()
		return nil, err
	}
	s.poisson, err = kernel.NewPoisson(ctx, s.mesh.GridSize, s.mesh.SlicesPerRow, cfg.G, cfg.SplitSigma)
	if err != nil {
		s.Release()
		return nil, err
	}
	s.gradient, err = kernel.NewGradient(ctx, s.mesh.GridSize, s.mesh.SlicesPerRow)
	if err != nil {
		s.Release()
		return nil, err
	}
	s.sample, err = kernel.NewSample(ctx, cfg.Count, cfg.Width, s.mesh)
	if err != nil {
		s.Release()
		return nil, err
	}

	s.slots = spectrumSlots{fftFrom: s.cplx[0], fftTo: s.cplx[1]}
	return s, nil
}

func (s *SpectralSolver) Kind() Kind { return Spectral }

func (s *SpectralSolver) take(slot **gpu.Texture, name string) *gpu.Texture {
	t := *slot
	if t == nil {
		s.ctx.Diag.PassErrors.Add(1)
		s.ctx.Log.Errorf("spectral: slot %s empty", name)
		return nil
	}
	*slot = nil
	return t
}

func (s *SpectralSolver) Compute(encoder *wgpu.CommandEncoder, positions, force *gpu.Texture) {
	s.computeFar(encoder, positions)
	s.sample.Run(encoder, positions, s.forceGrid, force)
}

// computeFar runs everything up to (and including) the inverse FFTs,
// leaving the real force grids filled.
func (s *SpectralSolver) computeFar(encoder *wgpu.CommandEncoder, positions *gpu.Texture) {
	s.deposit.Run(encoder, positions, s.massGrid)

	from := s.take(&s.slots.fftFrom, "fftFrom")
	to := s.take(&s.slots.fftTo, "fftTo")
	if from == nil || to == nil {
		return
	}
	spectrum, scratch := s.fft.Forward(encoder, s.massGrid, from, to)
	s.slots.density = spectrum
	s.slots.potential = scratch

	density := s.slots.density
	potential := s.take(&s.slots.potential, "potential")
	if density == nil || potential == nil {
		return
	}
	s.poisson.Run(encoder, density, potential)
	s.gradient.Run(encoder, potential, s.forceSpec)
	// gradient is done with the potential texture; it becomes the
	// inverse-FFT scratch
	scratch = potential

	for axis := 0; axis < 3; axis++ {
		s.fft.Inverse(encoder, s.forceSpec[axis], scratch, s.massGrid, s.forceGrid[axis])
	}

	// the pipeline is ready for another forward pass
	s.slots.fftFrom = s.take(&s.slots.density, "density")
	s.slots.fftTo = scratch
}

func (s *SpectralSolver) SetWorldBounds(min, extent mgl32.Vec3) {
	s.deposit.SetWorldBounds(min, extent)
	s.poisson.SetWorldBounds(min, extent)
	s.gradient.SetWorldBounds(min, extent)
	s.sample.SetWorldBounds(min, extent)
	n := float32(s.mesh.GridSize)
	volume := extent.X() * extent.Y() * extent.Z()
	s.fft.SetDensityScale(n * n * n / volume)
}

func (s *SpectralSolver) Release() {
	if s.deposit != nil {
		s.deposit.Release()
		s.deposit = nil
	}
	if s.fft != nil {
		s.fft.Release()
		s.fft = nil
	}
	if s.poisson != nil {
		s.poisson.Release()
		s.poisson = nil
	}
	if s.gradient != nil {
		s.gradient.Release()
		s.gradient = nil
	}
	if s.sample != nil {
		s.sample.Release()
		s.sample = nil
	}
	s.massGrid.Release()
	s.massGrid = nil
	for i := range s.cplx {
		s.cplx[i].Release()
		s.cplx[i] = nil
	}
	for i := range s.forceSpec {
		s.forceSpec[i].Release()
		s.forceSpec[i] = nil
		s.forceGrid[i].Release()
		s.forceGrid[i] = nil
	}
}
