package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oyin-bo/three-g/gravity/shaders"
)

// NewShaderModule compiles WGSL, wrapping driver rejection into a
// ShaderCompileFailed ResourceError carrying the stage name.
func (c *Context) NewShaderModule(label, source string) (*wgpu.ShaderModule, error) {
	mod, err := c.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: source},
	})
	if err != nil {
		return nil, &ResourceError{Kind: ErrShaderCompileFailed, Stage: label, Log: err.Error(), Err: err}
	}
	return mod, nil
}

// PipelineSpec describes a render pipeline with the engine's fixed
// conventions: no vertex buffers, auto bind-group layout, no depth.
// Topology must be set explicitly.
type PipelineSpec struct {
	Label         string
	Module        *wgpu.ShaderModule
	VertexEntry   string
	FragmentEntry string
	Targets       []wgpu.ColorTargetState
	Topology      wgpu.PrimitiveTopology
}

func (c *Context) NewRenderPipeline(spec PipelineSpec) (*wgpu.RenderPipeline, error) {
	vsEntry := spec.VertexEntry
	if vsEntry == "" {
		vsEntry = "vs_main"
	}
	fsEntry := spec.FragmentEntry
	if fsEntry == "" {
		fsEntry = "fs_main"
	}
	pipeline, err := c.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: spec.Label,
		Vertex: wgpu.VertexState{
			Module:     spec.Module,
			EntryPoint: vsEntry,
		},
		Fragment: &wgpu.FragmentState{
			Module:     spec.Module,
			EntryPoint: fsEntry,
			Targets:    spec.Targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology: spec.Topology,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, &ResourceError{Kind: ErrProgramLinkFailed, Stage: spec.Label, Log: err.Error(), Err: err}
	}
	return pipeline, nil
}

// PlainTarget is a color target with blending off.
func PlainTarget(format wgpu.TextureFormat) wgpu.ColorTargetState {
	return wgpu.ColorTargetState{
		Format:    format,
		WriteMask: wgpu.ColorWriteMaskAll,
	}
}

// AdditiveTarget accumulates with One/One add blending.
func AdditiveTarget(format wgpu.TextureFormat) wgpu.ColorTargetState {
	return wgpu.ColorTargetState{
		Format: format,
		Blend: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
		},
		WriteMask: wgpu.ColorWriteMaskAll,
	}
}

// ScatterTarget respects the float-blend probe: additive when supported,
// plain otherwise (the degraded scatter path).
func (c *Context) ScatterTarget(format wgpu.TextureFormat) wgpu.ColorTargetState {
	if c.FloatBlend {
		return AdditiveTarget(format)
	}
	return PlainTarget(format)
}

// probeFloatBlend tries to build a trivial additively-blended RGBA32F
// pipeline. Drivers that cannot blend 32-bit float targets reject the
// pipeline here instead of faulting mid-frame.
func (c *Context) probeFloatBlend() {
	mod, err := c.NewShaderModule("blend-probe", shaders.BlendProbeWGSL)
	if err != nil {
		c.FloatBlend = false
		c.Log.Warnf("float32 blend probe shader failed: %v", err)
		return
	}
	defer mod.Release()
	pipeline, err := c.NewRenderPipeline(PipelineSpec{
		Label:    "blend-probe",
		Module:   mod,
		Targets:  []wgpu.ColorTargetState{AdditiveTarget(wgpu.TextureFormatRGBA32Float)},
		Topology: wgpu.PrimitiveTopologyPointList,
	})
	if err != nil {
		c.FloatBlend = false
		c.Log.Warnf("additive blending into float32 targets unavailable; scatter kernels degrade to last-write wins: %v", err)
		return
	}
	pipeline.Release()
	c.FloatBlend = true
}
