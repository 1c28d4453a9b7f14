package gravity

import (
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// DiscOptions shapes the spiral-disc initial condition used by the
// demo host. All fields have usable zero-value fallbacks.
type DiscOptions struct {
	Count       int
	Radius      float32 // disc radius; default 1
	Thickness   float32 // vertical extent as a fraction of radius; default 0.1
	Mass        float32 // per-particle mass; default 1
	CenterMass  float32 // when > 0, particle 0 sits at the origin with this mass; default 0
	SpinGravity float32 // G used to seed tangential speeds; default 3e-4
	Seed        int64
}

// SpiralDisc generates a rotating disc: positions (x, y, z, mass),
// tangential velocities approximating circular orbits around the
// enclosed mass, and a warm-to-cool radial color ramp.
func SpiralDisc(opts DiscOptions) (positions, velocities []float32, colors []byte) {
	n := opts.Count
	if n <= 0 {
		return nil, nil, nil
	}
	radius := opts.Radius
	if radius <= 0 {
		radius = 1
	}
	thickness := opts.Thickness
	if thickness <= 0 {
		thickness = 0.1
	}
	mass := opts.Mass
	if mass <= 0 {
		mass = 1
	}
	g := opts.SpinGravity
	if g <= 0 {
		g = 3e-4
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	positions = make([]float32, n*4)
	velocities = make([]float32, n*4)
	colors = make([]byte, n*4)

	discMass := mass * float32(n)
	for i := 0; i < n; i++ {
		// area-uniform radius, slight center bias for a bulge
		r := radius * math32.Pow(rng.Float32(), 0.7)
		phi := rng.Float32() * 2 * math32.Pi
		x := r * math32.Cos(phi)
		z := r * math32.Sin(phi)
		y := (rng.Float32() - 0.5) * thickness * radius

		m := mass
		if i == 0 && opts.CenterMass > 0 {
			x, y, z = 0, 0, 0
			m = opts.CenterMass
		}
		positions[i*4+0] = x
		positions[i*4+1] = y
		positions[i*4+2] = z
		positions[i*4+3] = m

		// circular-orbit speed from the mass enclosed at r
		enclosed := discMass * (r / radius)
		if opts.CenterMass > 0 {
			enclosed += opts.CenterMass
		}
		speed := math32.Sqrt(g * enclosed / math32.Max(r, 0.05*radius))
		tangent := mgl32.Vec3{-z, 0, x}
		if l := tangent.Len(); l > 1e-6 {
			tangent = tangent.Mul(speed / l)
		}
		velocities[i*4+0] = tangent.X()
		velocities[i*4+1] = tangent.Y()
		velocities[i*4+2] = tangent.Z()

		t := r / radius
		colors[i*4+0] = byte(255 - t*80)
		colors[i*4+1] = byte(220 - t*120)
		colors[i*4+2] = byte(150 + t*105)
		colors[i*4+3] = 0xFF
	}
	return positions, velocities, colors
}

// UniformBall scatters n particles of the given mass uniformly inside a
// ball; handy for contraction tests.
func UniformBall(n int, radius, mass float32, seed int64) []float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float32, n*4)
	for i := 0; i < n; i++ {
		for {
			x := rng.Float32()*2 - 1
			y := rng.Float32()*2 - 1
			z := rng.Float32()*2 - 1
			if x*x+y*y+z*z > 1 {
				continue
			}
			out[i*4+0] = x * radius
			out[i*4+1] = y * radius
			out[i*4+2] = z * radius
			out[i*4+3] = mass
			break
		}
	}
	return out
}
