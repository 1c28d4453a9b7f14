package kernel

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// Traverse evaluates the Barnes-Hut force per particle by a stackless
// descent over the level pyramid.
type Traverse struct {
	ctx      *gpu.Context
	pipeline *wgpu.RenderPipeline
	uniforms *gpu.UniformBuffer
}

type TraverseConfig struct {
	Theta     float32
	G         float32
	Softening float32
	Count     uint32
	Width     uint32
	MaxNodes  uint32
}

func NewTraverse(ctx *gpu.Context, cfg TraverseConfig) (*Traverse, error) {
	mod, err := ctx.NewShaderModule("traverse", shaders.TraverseWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	k := &Traverse{ctx: ctx}
	k.pipeline, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:    "traverse",
		Module:   mod,
		Targets:  []wgpu.ColorTargetState{gpu.PlainTarget(wgpu.TextureFormatRGBA32Float)},
		Topology: wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		return nil, err
	}
	k.uniforms, err = ctx.NewUniformBuffer("traverse/params", 64)
	if err != nil {
		k.Release()
		return nil, err
	}
	maxNodes := cfg.MaxNodes
	if maxNodes == 0 {
		maxNodes = DefaultMaxNodes
	}
	k.uniforms.PutFloat32(12, cfg.Theta*cfg.Theta)
	k.uniforms.PutFloat32(28, cfg.G)
	k.uniforms.PutFloat32(32, cfg.Softening*cfg.Softening)
	k.uniforms.PutFloat32(36, TinyDenominator)
	k.uniforms.PutUint32(40, cfg.Count)
	k.uniforms.PutUint32(44, cfg.Width)
	k.uniforms.PutUint32(48, maxNodes)
	return k, nil
}

func (k *Traverse) SetWorldBounds(min, extent mgl32.Vec3) {
	k.uniforms.PutVec3(0, min.X(), min.Y(), min.Z())
	k.uniforms.PutVec3(16, extent.X(), extent.Y(), extent.Z())
	k.uniforms.Upload(k.ctx.Queue)
}

// Run writes the per-particle force texture. levels is the pyramid,
// leaf first; exactly grid.OctreeLevels entries.
func (k *Traverse) Run(encoder *wgpu.CommandEncoder, positions *gpu.Texture, levels []*gpu.Texture, force *gpu.Texture) {
	entries := []wgpu.BindGroupEntry{
		uniformEntry(0, k.uniforms),
		textureEntry(1, positions),
	}
	for i, lvl := range levels {
		entries = append(entries, textureEntry(uint32(2+i), lvl))
	}
	fullscreenPass(k.ctx, encoder, "traverse", k.pipeline, entries, true, force)
}

func (k *Traverse) Release() {
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}
	k.uniforms.Release()
}
