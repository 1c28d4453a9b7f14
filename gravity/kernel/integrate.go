package kernel

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// Integrator runs the kick-drift pair: a velocity pass reading the force
// texture, then a position pass reading the freshly written velocity.
// The caller swaps both ping-pong pairs afterwards.
type Integrator struct {
	ctx *gpu.Context

	velPipeline *wgpu.RenderPipeline
	posPipeline *wgpu.RenderPipeline
	velUniforms *gpu.UniformBuffer
	posUniforms *gpu.UniformBuffer
}

type IntegratorConfig struct {
	Dt       float32
	Damping  float32
	MaxSpeed float32
	MaxAccel float32
	Count    uint32
	Width    uint32
}

func NewIntegrator(ctx *gpu.Context, cfg IntegratorConfig) (*Integrator, error) {
	k := &Integrator{ctx: ctx}

	velMod, err := ctx.NewShaderModule("integrate-velocity", shaders.IntegrateVelocityWGSL)
	if err != nil {
		return nil, err
	}
	defer velMod.Release()
	k.velPipeline, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:    "integrate-velocity",
		Module:   velMod,
		Targets:  []wgpu.ColorTargetState{gpu.PlainTarget(wgpu.TextureFormatRGBA32Float)},
		Topology: wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		k.Release()
		return nil, err
	}

	posMod, err := ctx.NewShaderModule("integrate-position", shaders.IntegratePositionWGSL)
	if err != nil {
		k.Release()
		return nil, err
	}
	defer posMod.Release()
	k.posPipeline, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:    "integrate-position",
		Module:   posMod,
		Targets:  []wgpu.ColorTargetState{gpu.PlainTarget(wgpu.TextureFormatRGBA32Float)},
		Topology: wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		k.Release()
		return nil, err
	}

	k.velUniforms, err = ctx.NewUniformBuffer("integrate-velocity/params", 32)
	if err != nil {
		k.Release()
		return nil, err
	}
	k.posUniforms, err = ctx.NewUniformBuffer("integrate-position/params", 16)
	if err != nil {
		k.Release()
		return nil, err
	}

	k.velUniforms.PutFloat32(0, cfg.Dt)
	k.velUniforms.PutFloat32(4, cfg.Damping)
	k.velUniforms.PutFloat32(8, cfg.MaxSpeed)
	k.velUniforms.PutFloat32(12, cfg.MaxAccel)
	k.velUniforms.PutUint32(16, cfg.Count)
	k.velUniforms.PutUint32(20, cfg.Width)
	k.velUniforms.Upload(ctx.Queue)

	k.posUniforms.PutFloat32(0, cfg.Dt)
	k.posUniforms.PutUint32(4, cfg.Count)
	k.posUniforms.PutUint32(8, cfg.Width)
	k.posUniforms.Upload(ctx.Queue)
	return k, nil
}

// Run encodes both passes. position/velocity are the ping-pong pairs;
// force is the solver output for this frame.
func (k *Integrator) Run(encoder *wgpu.CommandEncoder, position, velocity *gpu.PingPong, force *gpu.Texture) {
	fullscreenPass(k.ctx, encoder, "integrate-velocity", k.velPipeline,
		[]wgpu.BindGroupEntry{
			uniformEntry(0, k.velUniforms),
			textureEntry(1, velocity.Current()),
			textureEntry(2, force),
		}, true, velocity.Target())

	fullscreenPass(k.ctx, encoder, "integrate-position", k.posPipeline,
		[]wgpu.BindGroupEntry{
			uniformEntry(0, k.posUniforms),
			textureEntry(1, position.Current()),
			textureEntry(2, velocity.Target()),
		}, true, position.Target())
}

func (k *Integrator) Release() {
	if k.velPipeline != nil {
		k.velPipeline.Release()
		k.velPipeline = nil
	}
	if k.posPipeline != nil {
		k.posPipeline.Release()
		k.posPipeline = nil
	}
	k.velUniforms.Release()
	k.posUniforms.Release()
}
