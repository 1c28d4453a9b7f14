// Package kernel holds one type per GPU pass. Every kernel owns its
// pipeline, its uniform buffer, and (where applicable) its output
// targets, and encodes itself into a frame's command encoder. Uniform
// contents are static per configuration; bounds-dependent kernels are
// rewritten by SetWorldBounds outside the hot path.
package kernel

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oyin-bo/three-g/gravity/gpu"
)

// Guard values shared by the shaders' numeric rules.
const (
	// TinyDenominator is the delta below which softened denominators
	// produce no force at all.
	TinyDenominator = 1e-12
	// DefaultMaxNodes caps the per-particle octree descent.
	DefaultMaxNodes = 8192
)

func uniformEntry(binding uint32, u *gpu.UniformBuffer) wgpu.BindGroupEntry {
	return wgpu.BindGroupEntry{Binding: binding, Buffer: u.Buf, Size: wgpu.WholeSize}
}

func textureEntry(binding uint32, t *gpu.Texture) wgpu.BindGroupEntry {
	return wgpu.BindGroupEntry{Binding: binding, TextureView: t.View}
}

// bindGroup builds a group 0 bind group from the pipeline's inferred
// layout. Failures are counted and logged, never raised: the pass is
// skipped for the frame.
func bindGroup(ctx *gpu.Context, pipeline *wgpu.RenderPipeline, label string, entries []wgpu.BindGroupEntry) *wgpu.BindGroup {
	bg, err := ctx.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  pipeline.GetBindGroupLayout(0),
		Entries: entries,
	})
	if err != nil {
		ctx.Diag.BindGroupErrors.Add(1)
		ctx.Log.Errorf("%s: bind group: %v", label, err)
		return nil
	}
	return bg
}

func colorAttachment(t *gpu.Texture, clear bool) wgpu.RenderPassColorAttachment {
	load := wgpu.LoadOpLoad
	if clear {
		load = wgpu.LoadOpClear
	}
	return wgpu.RenderPassColorAttachment{
		View:       t.View,
		LoadOp:     load,
		StoreOp:    wgpu.StoreOpStore,
		ClearValue: wgpu.Color{},
	}
}

// fullscreenPass draws the 3-vertex covering triangle into the targets.
func fullscreenPass(ctx *gpu.Context, encoder *wgpu.CommandEncoder, label string,
	pipeline *wgpu.RenderPipeline, entries []wgpu.BindGroupEntry, clear bool, targets ...*gpu.Texture) {
	drawPass(ctx, encoder, label, pipeline, entries, clear, 3, targets...)
}

// pointPass rasterizes count single-texel points into the targets.
func pointPass(ctx *gpu.Context, encoder *wgpu.CommandEncoder, label string,
	pipeline *wgpu.RenderPipeline, entries []wgpu.BindGroupEntry, clear bool, count uint32, targets ...*gpu.Texture) {
	drawPass(ctx, encoder, label, pipeline, entries, clear, count, targets...)
}

func drawPass(ctx *gpu.Context, encoder *wgpu.CommandEncoder, label string,
	pipeline *wgpu.RenderPipeline, entries []wgpu.BindGroupEntry, clear bool, vertices uint32, targets ...*gpu.Texture) {
	bg := bindGroup(ctx, pipeline, label, entries)
	if bg == nil {
		return
	}
	attachments := make([]wgpu.RenderPassColorAttachment, len(targets))
	for i, t := range targets {
		attachments[i] = colorAttachment(t, clear)
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label:            label,
		ColorAttachments: attachments,
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Draw(vertices, 1, 0, 0)
	if err := pass.End(); err != nil {
		ctx.Diag.PassErrors.Add(1)
		ctx.Log.Errorf("%s: pass end: %v", label, err)
	}
	bg.Release()
}
