package kernel

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oyin-bo/three-g/gravity/gpu"
	"github.com/oyin-bo/three-g/gravity/grid"
)

func newTestContext(t *testing.T) *gpu.Context {
	t.Helper()
	ctx, err := gpu.NewContext(gpu.NewNopLogger())
	if err != nil {
		t.Skip("need a GPU adapter:", err)
	}
	t.Cleanup(ctx.Dispose)
	return ctx
}

func onesGrid(layout grid.PackedLayout) []byte {
	side := layout.TexSize
	data := make([]byte, side*side*4)
	one := math.Float32bits(1)
	for ty := 0; ty < side; ty++ {
		for tx := 0; tx < side; tx++ {
			_, _, vz := layout.Voxel(tx, ty)
			if vz >= layout.GridSize {
				continue
			}
			binary.LittleEndian.PutUint32(data[(ty*side+tx)*4:], one)
		}
	}
	return data
}

func TestFFTDCBinOnGPU(t *testing.T) {
	ctx := newTestContext(t)
	layout := grid.NewPackedLayout(8)
	side := uint32(layout.TexSize)

	mass, err := ctx.NewUploadTexture("test/mass", side, side, wgpu.TextureFormatR32Float)
	require.NoError(t, err)
	defer mass.Release()
	a, err := ctx.NewRenderTarget("test/a", side, side, wgpu.TextureFormatRG32Float)
	require.NoError(t, err)
	defer a.Release()
	b, err := ctx.NewRenderTarget("test/b", side, side, wgpu.TextureFormatRG32Float)
	require.NoError(t, err)
	defer b.Release()

	mass.Upload(ctx.Queue, onesGrid(layout))

	fft, err := NewFFT(ctx, layout.GridSize, layout.SlicesPerRow)
	require.NoError(t, err)
	defer fft.Release()

	encoder, err := ctx.Device.CreateCommandEncoder(nil)
	require.NoError(t, err)
	spectrum, _ := fft.Forward(encoder, mass, a, b)
	rb, err := ctx.NewReadback("test/spectrum", side, side, wgpu.TextureFormatRG32Float)
	require.NoError(t, err)
	defer rb.Release()
	rb.Encode(encoder, spectrum)
	cmd, err := encoder.Finish(nil)
	require.NoError(t, err)
	ctx.Queue.Submit(cmd)

	raw := rb.ReadBlocking(ctx.Device)
	require.NotNil(t, raw)
	dcRe := math.Float32frombits(binary.LittleEndian.Uint32(raw[0:4]))
	dcIm := math.Float32frombits(binary.LittleEndian.Uint32(raw[4:8]))
	// uniform ones on 8^3 sum to 512
	assert.InDelta(t, 512, float64(dcRe), 1)
	assert.InDelta(t, 0, float64(dcIm), 1)
}

func TestFFTRoundTripOnGPU(t *testing.T) {
	ctx := newTestContext(t)
	layout := grid.NewPackedLayout(8)
	side := uint32(layout.TexSize)

	mass, err := ctx.NewUploadTexture("test/mass", side, side, wgpu.TextureFormatR32Float)
	require.NoError(t, err)
	defer mass.Release()
	a, err := ctx.NewRenderTarget("test/a", side, side, wgpu.TextureFormatRG32Float)
	require.NoError(t, err)
	defer a.Release()
	b, err := ctx.NewRenderTarget("test/b", side, side, wgpu.TextureFormatRG32Float)
	require.NoError(t, err)
	defer b.Release()
	out, err := ctx.NewRenderTarget("test/out", side, side, wgpu.TextureFormatR32Float)
	require.NoError(t, err)
	defer out.Release()

	mass.Upload(ctx.Queue, onesGrid(layout))

	fft, err := NewFFT(ctx, layout.GridSize, layout.SlicesPerRow)
	require.NoError(t, err)
	defer fft.Release()

	encoder, err := ctx.Device.CreateCommandEncoder(nil)
	require.NoError(t, err)
	spectrum, scratch := fft.Forward(encoder, mass, a, b)
	fft.Inverse(encoder, spectrum, scratch, mass, out)
	rb, err := ctx.NewReadback("test/roundtrip", side, side, wgpu.TextureFormatR32Float)
	require.NoError(t, err)
	defer rb.Release()
	rb.Encode(encoder, out)
	cmd, err := encoder.Finish(nil)
	require.NoError(t, err)
	ctx.Queue.Submit(cmd)

	raw := rb.ReadBlocking(ctx.Device)
	require.NotNil(t, raw)
	for ty := 0; ty < layout.TexSize; ty++ {
		for tx := 0; tx < layout.TexSize; tx++ {
			_, _, vz := layout.Voxel(tx, ty)
			if vz >= layout.GridSize {
				continue
			}
			v := math.Float32frombits(binary.LittleEndian.Uint32(raw[(ty*layout.TexSize+tx)*4:]))
			assert.InDelta(t, 1.0, float64(v), 1e-4, "texel (%d,%d)", tx, ty)
		}
	}
}
