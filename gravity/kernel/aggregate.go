package kernel

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/grid"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// Aggregate scatters particle monopole contributions into the octree
// leaf level with additive blending (or degraded last-write scatter when
// float blending is unavailable).
type Aggregate struct {
	ctx      *gpu.Context
	pipeline *wgpu.RenderPipeline
	uniforms *gpu.UniformBuffer
	count    uint32
}

func NewAggregate(ctx *gpu.Context, count, pwidth uint32, leaf grid.PackedLayout) (*Aggregate, error) {
	mod, err := ctx.NewShaderModule("aggregate", shaders.AggregateWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	k := &Aggregate{ctx: ctx, count: count}
	k.pipeline, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:    "aggregate",
		Module:   mod,
		Targets:  []wgpu.ColorTargetState{ctx.ScatterTarget(wgpu.TextureFormatRGBA32Float)},
		Topology: wgpu.PrimitiveTopologyPointList,
	})
	if err != nil {
		return nil, err
	}
	k.uniforms, err = ctx.NewUniformBuffer("aggregate/params", 48)
	if err != nil {
		k.Release()
		return nil, err
	}
	k.uniforms.PutFloat32(12, float32(leaf.GridSize))
	k.uniforms.PutFloat32(28, float32(leaf.SlicesPerRow))
	k.uniforms.PutFloat32(32, float32(leaf.TexSize))
	k.uniforms.PutUint32(36, count)
	k.uniforms.PutUint32(40, pwidth)
	return k, nil
}

func (k *Aggregate) SetWorldBounds(min, extent mgl32.Vec3) {
	k.uniforms.PutVec3(0, min.X(), min.Y(), min.Z())
	k.uniforms.PutVec3(16, 1/extent.X(), 1/extent.Y(), 1/extent.Z())
	k.uniforms.Upload(k.ctx.Queue)
}

// Run clears the leaf level and deposits all particles into it.
func (k *Aggregate) Run(encoder *wgpu.CommandEncoder, positions, leafLevel *gpu.Texture) {
	pointPass(k.ctx, encoder, "aggregate", k.pipeline,
		[]wgpu.BindGroupEntry{
			uniformEntry(0, k.uniforms),
			textureEntry(1, positions),
		}, true, k.count, leafLevel)
}

func (k *Aggregate) Release() {
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}
	k.uniforms.Release()
}
