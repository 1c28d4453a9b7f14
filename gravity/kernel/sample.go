package kernel

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/grid"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// Sample gathers per-particle forces from the three real force grids by
// trilinear interpolation.
type Sample struct {
	ctx      *gpu.Context
	pipeline *wgpu.RenderPipeline
	uniforms *gpu.UniformBuffer
}

func NewSample(ctx *gpu.Context, count, pwidth uint32, mesh grid.PackedLayout) (*Sample, error) {
	mod, err := ctx.NewShaderModule("sample", shaders.SampleWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	k := &Sample{ctx: ctx}
	k.pipeline, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:    "sample",
		Module:   mod,
		Targets:  []wgpu.ColorTargetState{gpu.PlainTarget(wgpu.TextureFormatRGBA32Float)},
		Topology: wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		return nil, err
	}
	k.uniforms, err = ctx.NewUniformBuffer("sample/params", 48)
	if err != nil {
		k.Release()
		return nil, err
	}
	k.uniforms.PutFloat32(12, float32(mesh.GridSize))
	k.uniforms.PutInt32(32, int32(mesh.GridSize))
	k.uniforms.PutInt32(36, int32(mesh.SlicesPerRow))
	k.uniforms.PutUint32(40, count)
	k.uniforms.PutUint32(44, pwidth)
	return k, nil
}

func (k *Sample) SetWorldBounds(min, extent mgl32.Vec3) {
	k.uniforms.PutVec3(0, min.X(), min.Y(), min.Z())
	k.uniforms.PutVec3(16, 1/extent.X(), 1/extent.Y(), 1/extent.Z())
	k.uniforms.Upload(k.ctx.Queue)
}

func (k *Sample) Run(encoder *wgpu.CommandEncoder, positions *gpu.Texture, forceGrid [3]*gpu.Texture, force *gpu.Texture) {
	fullscreenPass(k.ctx, encoder, "sample", k.pipeline,
		[]wgpu.BindGroupEntry{
			uniformEntry(0, k.uniforms),
			textureEntry(1, positions),
			textureEntry(2, forceGrid[0]),
			textureEntry(3, forceGrid[1]),
			textureEntry(4, forceGrid[2]),
		}, true, force)
}

func (k *Sample) Release() {
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}
	k.uniforms.Release()
}
