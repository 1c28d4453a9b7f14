package kernel

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// BoundsReduce folds particle positions down to a single min/max texel
// pair and stages it for a non-blocking readback.
type BoundsReduce struct {
	ctx *gpu.Context

	seedPipe   *wgpu.RenderPipeline
	reducePipe *wgpu.RenderPipeline

	uniforms []*gpu.UniformBuffer
	minTex   []*gpu.Texture
	maxTex   []*gpu.Texture

	minRead *gpu.Readback
	maxRead *gpu.Readback
}

func NewBoundsReduce(ctx *gpu.Context, w, h, count, pwidth uint32) (*BoundsReduce, error) {
	mod, err := ctx.NewShaderModule("bounds", shaders.BoundsWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	k := &BoundsReduce{ctx: ctx}
	targets := []wgpu.ColorTargetState{
		gpu.PlainTarget(wgpu.TextureFormatRGBA32Float),
		gpu.PlainTarget(wgpu.TextureFormatRGBA32Float),
	}
	k.seedPipe, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:         "bounds/seed",
		Module:        mod,
		FragmentEntry: "fs_seed",
		Targets:       targets,
		Topology:      wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		return nil, err
	}
	k.reducePipe, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:         "bounds/reduce",
		Module:        mod,
		FragmentEntry: "fs_reduce",
		Targets:       targets,
		Topology:      wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		k.Release()
		return nil, err
	}

	half := func(v uint32) uint32 {
		v = (v + 1) / 2
		if v < 1 {
			v = 1
		}
		return v
	}
	srcW, srcH := w, h
	for level := 0; ; level++ {
		dstW, dstH := half(srcW), half(srcH)
		u, err := ctx.NewUniformBuffer(fmt.Sprintf("bounds/params/%d", level), 16)
		if err != nil {
			k.Release()
			return nil, err
		}
		u.PutInt32(0, int32(srcW))
		u.PutInt32(4, int32(srcH))
		u.PutUint32(8, count)
		u.PutUint32(12, pwidth)
		u.Upload(ctx.Queue)
		k.uniforms = append(k.uniforms, u)

		mn, err := ctx.NewRenderTarget(fmt.Sprintf("bounds/min/%d", level), dstW, dstH, wgpu.TextureFormatRGBA32Float)
		if err != nil {
			k.Release()
			return nil, err
		}
		k.minTex = append(k.minTex, mn)
		mx, err := ctx.NewRenderTarget(fmt.Sprintf("bounds/max/%d", level), dstW, dstH, wgpu.TextureFormatRGBA32Float)
		if err != nil {
			k.Release()
			return nil, err
		}
		k.maxTex = append(k.maxTex, mx)

		if dstW == 1 && dstH == 1 {
			break
		}
		srcW, srcH = dstW, dstH
	}

	k.minRead, err = ctx.NewReadback("bounds/min/readback", 1, 1, wgpu.TextureFormatRGBA32Float)
	if err != nil {
		k.Release()
		return nil, err
	}
	k.maxRead, err = ctx.NewReadback("bounds/max/readback", 1, 1, wgpu.TextureFormatRGBA32Float)
	if err != nil {
		k.Release()
		return nil, err
	}
	return k, nil
}

// Run encodes the full reduction chain plus the readback copies.
func (k *BoundsReduce) Run(encoder *wgpu.CommandEncoder, positions *gpu.Texture) {
	fullscreenPass(k.ctx, encoder, "bounds/seed", k.seedPipe,
		[]wgpu.BindGroupEntry{
			uniformEntry(0, k.uniforms[0]),
			textureEntry(1, positions),
			textureEntry(2, positions), // src_b unused by the seed stage
		}, true, k.minTex[0], k.maxTex[0])
	for level := 1; level < len(k.minTex); level++ {
		fullscreenPass(k.ctx, encoder, "bounds/reduce", k.reducePipe,
			[]wgpu.BindGroupEntry{
				uniformEntry(0, k.uniforms[level]),
				textureEntry(1, k.minTex[level-1]),
				textureEntry(2, k.maxTex[level-1]),
			}, true, k.minTex[level], k.maxTex[level])
	}
	last := len(k.minTex) - 1
	k.minRead.Encode(encoder, k.minTex[last])
	k.maxRead.Encode(encoder, k.maxTex[last])
}

// TryCollect polls the readbacks; ok reports whether a fresh pair was
// available this call. Both texels come from the same frame, so they are
// only drained together.
func (k *BoundsReduce) TryCollect() (min, max mgl32.Vec3, ok bool) {
	if !k.minRead.Ready(k.ctx.Device) || !k.maxRead.Ready(k.ctx.Device) {
		return min, max, false
	}
	return vec3FromRGBA32F(k.minRead.Take()), vec3FromRGBA32F(k.maxRead.Take()), true
}

func vec3FromRGBA32F(b []byte) mgl32.Vec3 {
	return mgl32.Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:12])),
	}
}

func (k *BoundsReduce) Release() {
	if k.seedPipe != nil {
		k.seedPipe.Release()
		k.seedPipe = nil
	}
	if k.reducePipe != nil {
		k.reducePipe.Release()
		k.reducePipe = nil
	}
	for _, u := range k.uniforms {
		u.Release()
	}
	k.uniforms = nil
	for _, t := range k.minTex {
		t.Release()
	}
	for _, t := range k.maxTex {
		t.Release()
	}
	k.minTex, k.maxTex = nil, nil
	k.minRead.Release()
	k.maxRead.Release()
}
