package kernel

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/grid"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// Reduce folds each octree level into its parent, eight children per
// voxel. One uniform buffer per level pair; contents never change.
type Reduce struct {
	ctx      *gpu.Context
	pipeline *wgpu.RenderPipeline
	uniforms []*gpu.UniformBuffer
}

func NewReduce(ctx *gpu.Context, plan []grid.OctreeLevel) (*Reduce, error) {
	mod, err := ctx.NewShaderModule("reduce", shaders.ReduceWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	k := &Reduce{ctx: ctx}
	k.pipeline, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:    "reduce",
		Module:   mod,
		Targets:  []wgpu.ColorTargetState{gpu.PlainTarget(wgpu.TextureFormatRGBA32Float)},
		Topology: wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(plan); i++ {
		u, err := ctx.NewUniformBuffer(fmt.Sprintf("reduce/params/%d", i), 16)
		if err != nil {
			k.Release()
			return nil, err
		}
		u.PutInt32(0, int32(plan[i].Layout.GridSize))
		u.PutInt32(4, int32(plan[i].Layout.SlicesPerRow))
		u.PutInt32(8, int32(plan[i+1].Layout.GridSize))
		u.PutInt32(12, int32(plan[i+1].Layout.SlicesPerRow))
		u.Upload(ctx.Queue)
		k.uniforms = append(k.uniforms, u)
	}
	return k, nil
}

// Run builds the whole pyramid above the leaf level.
func (k *Reduce) Run(encoder *wgpu.CommandEncoder, levels []*gpu.Texture) {
	for i := 0; i+1 < len(levels); i++ {
		fullscreenPass(k.ctx, encoder, "reduce", k.pipeline,
			[]wgpu.BindGroupEntry{
				uniformEntry(0, k.uniforms[i]),
				textureEntry(1, levels[i]),
			}, true, levels[i+1])
	}
}

func (k *Reduce) Release() {
	if k.pipeline != nil {
		k.pipeline.Release()
		k.pipeline = nil
	}
	for _, u := range k.uniforms {
		u.Release()
	}
	k.uniforms = nil
}
