package kernel

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

// erfcApprox mirrors the shader's Abramowitz-Stegun 7.1.26 polynomial.
func erfcApprox(x float32) float32 {
	t := 1 / (1 + 0.3275911*x)
	poly := t * (0.254829592 + t*(-0.284496736+t*(1.421413741+t*(-1.453152027+t*1.061405429))))
	return poly * math32.Exp(-x*x)
}

func TestErfcApproxAccuracy(t *testing.T) {
	// the A&S bound is 1.5e-7 absolute in float64; float32 evaluation
	// stays comfortably inside 1e-5
	for x := float32(0); x <= 4; x += 0.05 {
		want := math.Erfc(float64(x))
		got := float64(erfcApprox(x))
		assert.InDelta(t, want, got, 1e-5, "x=%v", x)
	}
}

func TestShortRangeKernelLimits(t *testing.T) {
	sigma := float32(0.5)
	short := func(d float32) float32 {
		x := d / (sigma * math32.Sqrt(2))
		return erfcApprox(x) + math32.Sqrt(2/math32.Pi)*(d/sigma)*math32.Exp(-d*d/(2*sigma*sigma))
	}
	// complementary kernel carries the full force at zero separation
	// and dies off well past the split scale
	assert.InDelta(t, 1.0, float64(short(0)), 1e-6)
	assert.Less(t, float64(short(5*sigma)), 1e-4)
	// monotone decreasing over the near range
	prev := short(0)
	for d := float32(0.1); d < 3; d += 0.1 {
		cur := short(d)
		assert.LessOrEqual(t, float64(cur), float64(prev)+1e-6, "d=%v", d)
		prev = cur
	}
}
