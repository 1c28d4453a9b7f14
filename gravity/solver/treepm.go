package solver

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/kernel"
)

// TreePMSolver layers a short-range voxel-scan correction over the
// Gaussian-smoothed spectral far field. With sigma or radius at zero the
// facade constructs a plain SpectralSolver instead.
type TreePMSolver struct {
	far       *SpectralSolver
	nearfield *kernel.NearField
	farForce  *gpu.Texture
}

type TreePMConfig struct {
	Spectral        SpectralConfig
	NearFieldRadius int32
	Softening       float32
}

func NewTreePM(ctx *gpu.Context, cfg TreePMConfig, planeW, planeH uint32) (*TreePMSolver, error) {
	s := &TreePMSolver{}
	var err error
	s.far, err = NewSpectral(ctx, cfg.Spectral)
	if err != nil {
		return nil, err
	}
	s.farForce, err = ctx.NewRenderTarget("treepm/farforce", planeW, planeH, wgpu.TextureFormatRGBA32Float)
	if err != nil {
		s.Release()
		return nil, err
	}
	s.nearfield, err = kernel.NewNearField(ctx, kernel.NearFieldConfig{
		Radius:    cfg.NearFieldRadius,
		Sigma:     cfg.Spectral.SplitSigma,
		Softening: cfg.Softening,
		G:         cfg.Spectral.G,
		Count:     cfg.Spectral.Count,
		Width:     cfg.Spectral.Width,
	}, s.far.mesh)
	if err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func (s *TreePMSolver) Kind() Kind { return TreePM }

func (s *TreePMSolver) Compute(encoder *wgpu.CommandEncoder, positions, force *gpu.Texture) {
	s.far.computeFar(encoder, positions)
	s.far.sample.Run(encoder, positions, s.far.forceGrid, s.farForce)
	s.nearfield.Run(encoder, positions, s.far.massGrid, s.farForce, force)
}

func (s *TreePMSolver) SetWorldBounds(min, extent mgl32.Vec3) {
	s.far.SetWorldBounds(min, extent)
	s.nearfield.SetWorldBounds(min, extent)
}

func (s *TreePMSolver) Release() {
	if s.far != nil {
		s.far.Release()
		s.far = nil
	}
	if s.nearfield != nil {
		s.nearfield.Release()
		s.nearfield = nil
	}
	s.farForce.Release()
	s.farForce = nil
}
