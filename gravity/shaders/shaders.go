package shaders

import (
	_ "embed"
)

//go:embed aggregate.wgsl
var AggregateWGSL string

//go:embed reduce.wgsl
var ReduceWGSL string

//go:embed traverse.wgsl
var TraverseWGSL string

//go:embed deposit.wgsl
var DepositWGSL string

//go:embed fft.wgsl
var FFTWGSL string

//go:embed poisson.wgsl
var PoissonWGSL string

//go:embed gradient.wgsl
var GradientWGSL string

//go:embed sample.wgsl
var SampleWGSL string

//go:embed nearfield.wgsl
var NearFieldWGSL string

//go:embed integrate_velocity.wgsl
var IntegrateVelocityWGSL string

//go:embed integrate_position.wgsl
var IntegratePositionWGSL string

//go:embed bounds.wgsl
var BoundsWGSL string

//go:embed points_render.wgsl
var PointsRenderWGSL string

//go:embed blend_probe.wgsl
var BlendProbeWGSL string
