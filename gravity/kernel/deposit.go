package kernel

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/grid"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// Assignment selects the particle-mesh deposit scheme.
type Assignment int

const (
	// CIC is the zero value: the default assignment scheme.
	CIC Assignment = iota
	NGP
)

func (a Assignment) String() string {
	if a == NGP {
		return "NGP"
	}
	return "CIC"
}

// Deposit rasterizes particle masses into the spectral mass grid: one
// pass for NGP, eight corner passes for CIC.
type Deposit struct {
	ctx      *gpu.Context
	pipeline *wgpu.RenderPipeline
	uniforms []*gpu.UniformBuffer // one per draw
	count    uint32
}

func NewDeposit(ctx *gpu.Context, scheme Assignment, count, pwidth uint32, mesh grid.PackedLayout) (*Deposit, error) {
	mod, err := ctx.NewShaderModule("deposit", shaders.DepositWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	k := &Deposit{ctx: ctx, count: count}
	k.pipeline, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:    "deposit",
		Module:   mod,
		Targets:  []wgpu.ColorTargetState{ctx.ScatterTarget(wgpu.TextureFormatR32Float)},
		Topology: wgpu.PrimitiveTopologyPointList,
	})
	if err != nil {
		return nil, err
	}

	draws := 1
	if scheme == CIC {
		draws = 8
	}
	for d := 0; d < draws; d++ {
		u, err := ctx.NewUniformBuffer(fmt.Sprintf("deposit/params/%d", d), 64)
		if err != nil {
			k.Release()
			return nil, err
		}
		u.PutFloat32(12, float32(mesh.GridSize))
		u.PutFloat32(28, float32(mesh.SlicesPerRow))
		u.PutFloat32(32, float32(mesh.TexSize))
		u.PutUint32(36, count)
		u.PutUint32(40, pwidth)
		if scheme == CIC {
			u.PutUint32(44, 1)
			u.PutVec3(48, float32(d&1), float32((d>>1)&1), float32((d>>2)&1))
		}
		k.uniforms = append(k.uniforms, u)
	}
	return k, nil
}

func (k *Deposit) SetWorldBounds(min, extent mgl32.Vec3) {
	for _, u := range k.uniforms {
		u.PutVec3(0, min.X(), min.Y(), min.Z())
		u.PutVec3(16, 1/extent.X(), 1/extent.Y(), 1/extent.Z())
		u.Upload(k.ctx.Queue)
	}
}

// Run clears the mass grid and deposits every particle.
func (k *Deposit) Run(encoder *wgpu.CommandEncoder, positions, massGrid *gpu.Texture) {
	for d, u := range k.uniforms {
		pointPass(k.ctx, encoder, "deposit", k.pipeline,
			[]wgpu.BindGroupEntry{
				uniformEntry(0, u),
				textureEntry(1, positions),
			}, d == 0, k.count, massGrid)
	}
}

func (k *Deposit) Release() {
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}
	for _, u := range k.uniforms {
		u.Release()
	}
	k.uniforms = nil
}
