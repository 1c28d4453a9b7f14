package kernel

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stockham1D mirrors the shader butterfly exactly: same index split,
// same twiddle, one pass per subtransform size.
func stockham1D(in []complex128, dir float64) []complex128 {
	n := len(in)
	cur := append([]complex128(nil), in...)
	next := make([]complex128, n)
	for ns := 2; ns <= n; ns <<= 1 {
		halfNs := ns / 2
		for x := 0; x < n; x++ {
			i0 := (x/ns)*halfNs + x%halfNs
			i1 := i0 + n/2
			ang := dir * 2 * math.Pi * float64(x%ns) / float64(ns)
			tw := cmplx.Exp(complex(0, ang))
			next[x] = cur[i0] + tw*cur[i1]
		}
		cur, next = next, cur
	}
	return cur
}

func naiveDFT(in []complex128) []complex128 {
	n := len(in)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		for j := 0; j < n; j++ {
			ang := -2 * math.Pi * float64(j*k) / float64(n)
			out[k] += in[j] * cmplx.Exp(complex(0, ang))
		}
	}
	return out
}

func TestStockhamMatchesDFT(t *testing.T) {
	for _, n := range []int{2, 4, 8, 16} {
		in := make([]complex128, n)
		for j := range in {
			in[j] = complex(math.Sin(float64(j)*1.3)+0.2, 0)
		}
		got := stockham1D(in, -1)
		want := naiveDFT(in)
		for k := range want {
			assert.InDelta(t, real(want[k]), real(got[k]), 1e-9, "n=%d k=%d re", n, k)
			assert.InDelta(t, imag(want[k]), imag(got[k]), 1e-9, "n=%d k=%d im", n, k)
		}
	}
}

func TestStockhamDCBinIsSum(t *testing.T) {
	// spec scenario: uniform 1.0 grid of side 8 has DC = 512; per axis
	// line of 8 ones the DC is 8, and the 3D transform separates.
	n := 8
	in := make([]complex128, n)
	for j := range in {
		in[j] = 1
	}
	out := stockham1D(in, -1)
	assert.InDelta(t, 8.0, real(out[0]), 1e-9)
	assert.InDelta(t, 0.0, imag(out[0]), 1e-9)
	// separable: three axes multiply
	assert.InDelta(t, 512.0, real(out[0])*real(out[0])*real(out[0]), 1e-6)
}

func TestStockhamRoundTrip(t *testing.T) {
	n := 16
	in := make([]complex128, n)
	for j := range in {
		in[j] = complex(float64(j%5)-2, 0)
	}
	spec := stockham1D(in, -1)
	back := stockham1D(spec, 1)
	for j := range in {
		assert.InDelta(t, real(in[j]), real(back[j])/float64(n), 1e-9, "j=%d", j)
		assert.InDelta(t, imag(in[j]), imag(back[j])/float64(n), 1e-9, "j=%d", j)
	}
}

func TestStockhamParseval(t *testing.T) {
	n := 16
	in := make([]complex128, n)
	for j := range in {
		in[j] = complex(math.Cos(float64(j)), 0)
	}
	spec := stockham1D(in, -1)
	var timeE, freqE float64
	for j := range in {
		timeE += real(in[j])*real(in[j]) + imag(in[j])*imag(in[j])
		freqE += real(spec[j])*real(spec[j]) + imag(spec[j])*imag(spec[j])
	}
	assert.Greater(t, freqE, 0.0)
	assert.InDelta(t, timeE*float64(n), freqE, 1e-6)
	for j := range spec {
		require.False(t, math.IsNaN(real(spec[j])) || math.IsNaN(imag(spec[j])))
	}
}

func TestForwardStages(t *testing.T) {
	stages := forwardStages(64, 2.5)
	require.Len(t, stages, 18)
	assert.True(t, stages[0].inputReal)
	assert.Equal(t, float32(2.5), stages[0].scale)
	for i, s := range stages {
		assert.Equal(t, i/6, s.axis, "stage %d axis", i)
		assert.Equal(t, int32(2<<(i%6)), s.ns, "stage %d ns", i)
		assert.Equal(t, float32(-1), s.dir)
		if i > 0 {
			assert.False(t, s.inputReal)
			assert.Equal(t, float32(1), s.scale)
		}
		assert.False(t, s.finalReal)
	}
}

func TestInverseStages(t *testing.T) {
	stages := inverseStages(64)
	require.Len(t, stages, 18)
	// total normalization across the axes is 1/n^3
	prod := 1.0
	for _, s := range stages {
		assert.Equal(t, float32(1), s.dir)
		prod *= float64(s.scale)
	}
	assert.InDelta(t, 1.0/(64*64*64), prod, 1e-12)
	assert.True(t, stages[17].finalReal)
	for i := 0; i < 17; i++ {
		assert.False(t, stages[i].finalReal, "stage %d", i)
	}
	// the per-axis normalization rides each axis's last stage
	for _, i := range []int{5, 11, 17} {
		assert.Equal(t, float32(1.0/64.0), stages[i].scale)
	}
}
