package kernel

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// Poisson converts the density spectrum into the potential spectrum,
// zeroing the DC bin and optionally applying the TreePM Gaussian
// low-pass.
type Poisson struct {
	ctx      *gpu.Context
	pipeline *wgpu.RenderPipeline
	uniforms *gpu.UniformBuffer
}

func NewPoisson(ctx *gpu.Context, n, slicesPerRow int, g, sigma float32) (*Poisson, error) {
	mod, err := ctx.NewShaderModule("poisson", shaders.PoissonWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	k := &Poisson{ctx: ctx}
	k.pipeline, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:    "poisson",
		Module:   mod,
		Targets:  []wgpu.ColorTargetState{gpu.PlainTarget(wgpu.TextureFormatRG32Float)},
		Topology: wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		return nil, err
	}
	k.uniforms, err = ctx.NewUniformBuffer("poisson/params", 32)
	if err != nil {
		k.Release()
		return nil, err
	}
	k.uniforms.PutFloat32(12, g)
	k.uniforms.PutInt32(16, int32(n))
	k.uniforms.PutInt32(20, int32(slicesPerRow))
	k.uniforms.PutFloat32(24, sigma)
	return k, nil
}

func (k *Poisson) SetWorldBounds(_, extent mgl32.Vec3) {
	k.uniforms.PutVec3(0, extent.X(), extent.Y(), extent.Z())
	k.uniforms.Upload(k.ctx.Queue)
}

func (k *Poisson) Run(encoder *wgpu.CommandEncoder, density, potential *gpu.Texture) {
	fullscreenPass(k.ctx, encoder, "poisson", k.pipeline,
		[]wgpu.BindGroupEntry{
			uniformEntry(0, k.uniforms),
			textureEntry(1, density),
		}, true, potential)
}

func (k *Poisson) Release() {
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}
	k.uniforms.Release()
}
