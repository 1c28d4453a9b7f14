package solver

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/grid"
	"github.com/oyin-bo/three-g/gravity/kernel"
)

// MonopoleSolver is the Barnes-Hut pipeline: voxelize particles into the
// leaf level, reduce the pyramid, traverse per particle.
type MonopoleSolver struct {
	levels []*gpu.Texture

	aggregate *kernel.Aggregate
	reduce    *kernel.Reduce
	traverse  *kernel.Traverse
}

type MonopoleConfig struct {
	Theta     float32
	G         float32
	Softening float32
	Count     uint32
	Width     uint32
}

func NewMonopole(ctx *gpu.Context, cfg MonopoleConfig) (*MonopoleSolver, error) {
	s := &MonopoleSolver{}
	plan := grid.OctreePlan()
	for _, lvl := range plan {
		t, err := ctx.NewRenderTarget(fmt.Sprintf("octree/level%d", lvl.Level),
			uint32(lvl.Layout.TexSize), uint32(lvl.Layout.TexSize), wgpu.TextureFormatRGBA32Float)
		if err != nil {
			s.Release()
			return nil, err
		}
		s.levels = append(s.levels, t)
	}

	var err error
	s.aggregate, err = kernel.NewAggregate(ctx, cfg.Count, cfg.Width, plan[0].Layout)
	if err != nil {
		s.Release()
		return nil, err
	}
	s.reduce, err = kernel.NewReduce(ctx, plan)
	if err != nil {
		s.Release()
		return nil, err
	}
	s.traverse, err = kernel.NewTraverse(ctx, kernel.TraverseConfig{
		Theta:     cfg.Theta,
		G:         cfg.G,
		Softening: cfg.Softening,
		Count:     cfg.Count,
		Width:     cfg.Width,
	})
	if err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func (s *MonopoleSolver) Kind() Kind { return Monopole }

func (s *MonopoleSolver) Compute(encoder *wgpu.CommandEncoder, positions, force *gpu.Texture) {
	s.aggregate.Run(encoder, positions, s.levels[0])
	s.reduce.Run(encoder, s.levels)
	s.traverse.Run(encoder, positions, s.levels, force)
}

func (s *MonopoleSolver) SetWorldBounds(min, extent mgl32.Vec3) {
	s.aggregate.SetWorldBounds(min, extent)
	s.traverse.SetWorldBounds(min, extent)
}

func (s *MonopoleSolver) Release() {
	if s.aggregate != nil {
		s.aggregate.Release()
		s.aggregate = nil
	}
	if s.reduce != nil {
		s.reduce.Release()
		s.reduce = nil
	}
	if s.traverse != nil {
		s.traverse.Release()
		s.traverse = nil
	}
	for _, t := range s.levels {
		t.Release()
	}
	s.levels = nil
}
