package kernel

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/grid"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// NearField applies the TreePM short-range correction: a truncated
// direct sum over the voxel neighborhood of each particle, added to the
// far-field force from the spectral pipeline.
type NearField struct {
	ctx      *gpu.Context
	pipeline *wgpu.RenderPipeline
	uniforms *gpu.UniformBuffer
}

type NearFieldConfig struct {
	Radius    int32
	Sigma     float32
	Softening float32
	G         float32
	Count     uint32
	Width     uint32
}

func NewNearField(ctx *gpu.Context, cfg NearFieldConfig, mesh grid.PackedLayout) (*NearField, error) {
	mod, err := ctx.NewShaderModule("nearfield", shaders.NearFieldWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	k := &NearField{ctx: ctx}
	k.pipeline, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:    "nearfield",
		Module:   mod,
		Targets:  []wgpu.ColorTargetState{gpu.PlainTarget(wgpu.TextureFormatRGBA32Float)},
		Topology: wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		return nil, err
	}
	k.uniforms, err = ctx.NewUniformBuffer("nearfield/params", 80)
	if err != nil {
		k.Release()
		return nil, err
	}
	k.uniforms.PutFloat32(12, float32(mesh.GridSize))
	k.uniforms.PutInt32(32, int32(mesh.GridSize))
	k.uniforms.PutInt32(36, int32(mesh.SlicesPerRow))
	k.uniforms.PutUint32(40, cfg.Count)
	k.uniforms.PutUint32(44, cfg.Width)
	k.uniforms.PutInt32(48, cfg.Radius)
	k.uniforms.PutFloat32(52, cfg.Sigma)
	k.uniforms.PutFloat32(56, cfg.Softening*cfg.Softening)
	k.uniforms.PutFloat32(60, TinyDenominator)
	k.uniforms.PutFloat32(64, cfg.G)
	return k, nil
}

func (k *NearField) SetWorldBounds(min, extent mgl32.Vec3) {
	k.uniforms.PutVec3(0, min.X(), min.Y(), min.Z())
	k.uniforms.PutVec3(16, 1/extent.X(), 1/extent.Y(), 1/extent.Z())
	k.uniforms.Upload(k.ctx.Queue)
}

func (k *NearField) Run(encoder *wgpu.CommandEncoder, positions, massGrid, farForce, force *gpu.Texture) {
	fullscreenPass(k.ctx, encoder, "nearfield", k.pipeline,
		[]wgpu.BindGroupEntry{
			uniformEntry(0, k.uniforms),
			textureEntry(1, positions),
			textureEntry(2, massGrid),
			textureEntry(3, farForce),
		}, true, force)
}

func (k *NearField) Release() {
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}
	k.uniforms.Release()
}
