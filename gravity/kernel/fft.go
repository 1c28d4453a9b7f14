package kernel

import (
	"fmt"
	"math/bits"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// fftStage is one radix-2 Stockham butterfly pass.
type fftStage struct {
	axis      int
	ns        int32
	dir       float32
	scale     float32
	inputReal bool
	finalReal bool
}

// forwardStages lists the 3*log2(n) passes of a forward 3D FFT. The
// first pass promotes the real mass grid to a complex spectrum with the
// mass-to-density scale folded in.
func forwardStages(n int, densityScale float32) []fftStage {
	log2n := bits.Len(uint(n)) - 1
	var out []fftStage
	for axis := 0; axis < 3; axis++ {
		for p := 1; p <= log2n; p++ {
			s := fftStage{axis: axis, ns: int32(1 << p), dir: -1, scale: 1}
			if axis == 0 && p == 1 {
				s.inputReal = true
				s.scale = densityScale
			}
			out = append(out, s)
		}
	}
	return out
}

// inverseStages lists the passes of one inverse 3D FFT; the 1/n
// normalization rides the last stage of each axis and the very last
// stage writes a real grid.
func inverseStages(n int) []fftStage {
	log2n := bits.Len(uint(n)) - 1
	var out []fftStage
	for axis := 0; axis < 3; axis++ {
		for p := 1; p <= log2n; p++ {
			s := fftStage{axis: axis, ns: int32(1 << p), dir: 1, scale: 1}
			if p == log2n {
				s.scale = 1 / float32(n)
			}
			if axis == 2 && p == log2n {
				s.finalReal = true
			}
			out = append(out, s)
		}
	}
	return out
}

// FFT executes in-place 3D Stockham transforms over the packed-Z
// spectrum textures. It owns one uniform buffer per stage, written once
// (the forward promotion stage is rewritten when the world box, and so
// the density scale, changes).
type FFT struct {
	ctx *gpu.Context

	complexPipe *wgpu.RenderPipeline
	realPipe    *wgpu.RenderPipeline

	n       int
	fwd     []fftStage
	inv     []fftStage
	fwdUnis []*gpu.UniformBuffer
	invUnis []*gpu.UniformBuffer
}

func NewFFT(ctx *gpu.Context, n, slicesPerRow int) (*FFT, error) {
	if n < 2 || n&(n-1) != 0 {
		return nil, gpu.InvalidInput("fft", "grid size %d is not a power of two", n)
	}
	mod, err := ctx.NewShaderModule("fft", shaders.FFTWGSL)
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	k := &FFT{ctx: ctx, n: n}
	k.complexPipe, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:    "fft/complex",
		Module:   mod,
		Targets:  []wgpu.ColorTargetState{gpu.PlainTarget(wgpu.TextureFormatRG32Float)},
		Topology: wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		return nil, err
	}
	k.realPipe, err = ctx.NewRenderPipeline(gpu.PipelineSpec{
		Label:         "fft/real",
		Module:        mod,
		FragmentEntry: "fs_real",
		Targets:       []wgpu.ColorTargetState{gpu.PlainTarget(wgpu.TextureFormatR32Float)},
		Topology:      wgpu.PrimitiveTopologyTriangleList,
	})
	if err != nil {
		k.Release()
		return nil, err
	}

	k.fwd = forwardStages(n, 1)
	k.inv = inverseStages(n)
	mkUniforms := func(name string, stages []fftStage) ([]*gpu.UniformBuffer, error) {
		unis := make([]*gpu.UniformBuffer, 0, len(stages))
		for i, s := range stages {
			u, err := ctx.NewUniformBuffer(fmt.Sprintf("fft/%s/%d", name, i), 32)
			if err != nil {
				return unis, err
			}
			u.PutInt32(0, int32(n))
			u.PutInt32(4, int32(slicesPerRow))
			u.PutUint32(8, uint32(s.axis))
			u.PutInt32(12, s.ns)
			u.PutFloat32(16, s.dir)
			u.PutFloat32(20, s.scale)
			if s.inputReal {
				u.PutUint32(24, 1)
			}
			u.Upload(ctx.Queue)
			unis = append(unis, u)
		}
		return unis, nil
	}
	k.fwdUnis, err = mkUniforms("fwd", k.fwd)
	if err != nil {
		k.Release()
		return nil, err
	}
	k.invUnis, err = mkUniforms("inv", k.inv)
	if err != nil {
		k.Release()
		return nil, err
	}
	return k, nil
}

// SetDensityScale folds the current mass-to-density factor 1/dV into the
// promotion stage.
func (k *FFT) SetDensityScale(scale float32) {
	u := k.fwdUnis[0]
	u.PutFloat32(20, scale)
	u.Upload(k.ctx.Queue)
}

func (k *FFT) stagePass(encoder *wgpu.CommandEncoder, uni *gpu.UniformBuffer, stage fftStage,
	srcComplex, srcReal, target *gpu.Texture) {
	pipe := k.complexPipe
	if stage.finalReal {
		pipe = k.realPipe
	}
	fullscreenPass(k.ctx, encoder, "fft", pipe,
		[]wgpu.BindGroupEntry{
			uniformEntry(0, uni),
			textureEntry(1, srcComplex),
			textureEntry(2, srcReal),
		}, true, target)
}

// Forward transforms the real mass grid into a complex spectrum using
// the scratch pair (a, b). Returns the texture now holding the spectrum
// and the one left over as scratch.
func (k *FFT) Forward(encoder *wgpu.CommandEncoder, massGrid, a, b *gpu.Texture) (spectrum, scratch *gpu.Texture) {
	pair := [2]*gpu.Texture{a, b}
	for i, s := range k.fwd {
		target := pair[i%2]
		src := pair[(i+1)%2] // dummy complex binding on the promotion stage
		k.stagePass(encoder, k.fwdUnis[i], s, src, massGrid, target)
	}
	last := (len(k.fwd) - 1) % 2
	return pair[last], pair[1-last]
}

// Inverse transforms one complex force spectrum into its real grid.
// spec is consumed as scratch in the process; dummyReal is any real
// texture that is not a target here (the mass grid).
func (k *FFT) Inverse(encoder *wgpu.CommandEncoder, spec, scratch, dummyReal, realOut *gpu.Texture) {
	read, write := spec, scratch
	for i, s := range k.inv {
		if s.finalReal {
			k.stagePass(encoder, k.invUnis[i], s, read, dummyReal, realOut)
			break
		}
		k.stagePass(encoder, k.invUnis[i], s, read, dummyReal, write)
		read, write = write, read
	}
}

func (k *FFT) Release() {
	if k.complexPipe != nil {
		k.complexPipe.Release()
		k.complexPipe = nil
	}
	if k.realPipe != nil {
		k.realPipe.Release()
		k.realPipe = nil
	}
	for _, u := range k.fwdUnis {
		u.Release()
	}
	for _, u := range k.invUnis {
		u.Release()
	}
	k.fwdUnis, k.invUnis = nil, nil
}
