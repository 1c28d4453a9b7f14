package kernel

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// Gradient differentiates the potential spectrum along one axis per
// pass, producing the three complex force spectra.
type Gradient struct {
	ctx      *gpu.Context
	pipeline *wgpu.RenderPipeline
	uniforms [3]*gpu.UniformBuffer
}

func NewGradient(ctx *gpu.Context, n, slicesPerRow int) (*Gradient, error) {
	mod, err := ctx.NewShaderModule("gradient", shaders.GradientWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	k := &Gradient{ctx: ctx}
	k.pipeline, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:    "gradient",
		Module:   mod,
		Targets:  []wgpu.ColorTargetState{gpu.PlainTarget(wgpu.TextureFormatRG32Float)},
		Topology: wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		return nil, err
	}
	for axis := 0; axis < 3; axis++ {
		u, err := ctx.NewUniformBuffer(fmt.Sprintf("gradient/params/%d", axis), 32)
		if err != nil {
			k.Release()
			return nil, err
		}
		u.PutInt32(16, int32(n))
		u.PutInt32(20, int32(slicesPerRow))
		u.PutUint32(24, uint32(axis))
		k.uniforms[axis] = u
	}
	return k, nil
}

func (k *Gradient) SetWorldBounds(_, extent mgl32.Vec3) {
	for _, u := range k.uniforms {
		if u == nil {
			continue
		}
		u.PutVec3(0, extent.X(), extent.Y(), extent.Z())
		u.Upload(k.ctx.Queue)
	}
}

// Run writes the three force spectra from the potential spectrum.
func (k *Gradient) Run(encoder *wgpu.CommandEncoder, potential *gpu.Texture, forceSpec [3]*gpu.Texture) {
	for axis := 0; axis < 3; axis++ {
		fullscreenPass(k.ctx, encoder, "gradient", k.pipeline,
			[]wgpu.BindGroupEntry{
				uniformEntry(0, k.uniforms[axis]),
				textureEntry(1, potential),
			}, true, forceSpec[axis])
	}
}

func (k *Gradient) Release() {
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}
	for i, u := range k.uniforms {
		u.Release()
		k.uniforms[i] = nil
	}
}
