// Package solver composes the kernel passes into the three gravity
// pipelines. A solver consumes the current position texture and fills
// the engine's force texture; the integrator takes it from there.
package solver

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
)

type Kind int

const (
	Monopole Kind = iota
	Spectral
	TreePM
)

func (k Kind) String() string {
	switch k {
	case Monopole:
		return "monopole"
	case Spectral:
		return "spectral"
	case TreePM:
		return "treepm"
	}
	return "unknown"
}

type Solver interface {
	Kind() Kind
	// Compute encodes the solver's passes, leaving per-particle forces
	// in force.
	Compute(encoder *wgpu.CommandEncoder, positions, force *gpu.Texture)
	// SetWorldBounds propagates a bounds refresh to every kernel that
	// maps world space to grid space.
	SetWorldBounds(min, extent mgl32.Vec3)
	Release()
}
