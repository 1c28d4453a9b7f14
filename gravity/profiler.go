package gravity

import (
	"time"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/oyin-bo/three-g/gravity/gpu"
)

const fenceRing = 4

// Profiler keeps lifetime averages of named CPU encode scopes plus a GPU
// frame latency measured fire-and-forget: each frame copies four bytes
// into one of a small ring of mappable buffers, and the map completion
// a few frames later closes the timing. A failed map discards every
// in-flight fence, the way a disjoint timer event would.
type Profiler struct {
	enabled bool
	ctx     *gpu.Context

	order  []string
	starts map[string]time.Time
	sums   map[string]time.Duration
	counts map[string]int

	fenceSrc  *wgpu.Buffer
	fences    [fenceRing]*wgpu.Buffer
	submitted [fenceRing]time.Time
	inFlight  [fenceRing]bool
	next      int

	gpuSum   time.Duration
	gpuCount int
}

func NewProfiler(ctx *gpu.Context, enabled bool) (*Profiler, error) {
	p := &Profiler{
		enabled: enabled,
		ctx:     ctx,
		starts:  make(map[string]time.Time),
		sums:    make(map[string]time.Duration),
		counts:  make(map[string]int),
	}
	if !enabled {
		return p, nil
	}
	var err error
	p.fenceSrc, err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "profiler/fence-src",
		Size:  4,
		Usage: wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, &gpu.ResourceError{Kind: gpu.ErrAllocationFailed, Stage: "profiler", Err: err}
	}
	for i := range p.fences {
		p.fences[i], err = ctx.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "profiler/fence",
			Size:  4,
			Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
		})
		if err != nil {
			p.Release()
			return nil, &gpu.ResourceError{Kind: gpu.ErrAllocationFailed, Stage: "profiler", Err: err}
		}
	}
	return p, nil
}

func (p *Profiler) BeginScope(name string) {
	if !p.enabled {
		return
	}
	if _, ok := p.starts[name]; !ok {
		p.order = append(p.order, name)
	}
	p.starts[name] = time.Now()
}

func (p *Profiler) EndScope(name string) {
	if !p.enabled {
		return
	}
	if start, ok := p.starts[name]; ok {
		p.sums[name] += time.Since(start)
		p.counts[name]++
	}
}

// EncodeFence adds the frame's fence copy; call just before Finish.
func (p *Profiler) EncodeFence(encoder *wgpu.CommandEncoder) int {
	if !p.enabled {
		return -1
	}
	slot := p.next
	if p.inFlight[slot] {
		// ring exhausted; skip this frame rather than stall
		return -1
	}
	p.next = (p.next + 1) % fenceRing
	encoder.CopyBufferToBuffer(p.fenceSrc, 0, p.fences[slot], 0, 4)
	return slot
}

// FenceSubmitted starts the clock on a fence returned by EncodeFence.
func (p *Profiler) FenceSubmitted(slot int) {
	if !p.enabled || slot < 0 {
		return
	}
	p.submitted[slot] = time.Now()
	p.inFlight[slot] = true
	buf := p.fences[slot]
	buf.MapAsync(wgpu.MapModeRead, 0, 4, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			p.discardInFlight()
			return
		}
		p.gpuSum += time.Since(p.submitted[slot])
		p.gpuCount++
		p.inFlight[slot] = false
		buf.Unmap()
	})
}

// Pump gives pending map callbacks a chance to run; non-blocking.
func (p *Profiler) Pump() {
	if !p.enabled {
		return
	}
	p.ctx.Device.Poll(false, nil)
}

func (p *Profiler) discardInFlight() {
	for i := range p.inFlight {
		p.inFlight[i] = false
	}
}

// Stats returns average milliseconds per scope; empty when profiling is
// off.
func (p *Profiler) Stats() map[string]float64 {
	out := make(map[string]float64)
	if !p.enabled {
		return out
	}
	for _, name := range p.order {
		if n := p.counts[name]; n > 0 {
			out[name] = float64(p.sums[name].Microseconds()) / 1000.0 / float64(n)
		}
	}
	if p.gpuCount > 0 {
		out["gpu.frame"] = float64(p.gpuSum.Microseconds()) / 1000.0 / float64(p.gpuCount)
	}
	return out
}

func (p *Profiler) Release() {
	if p.fenceSrc != nil {
		p.fenceSrc.Release()
		p.fenceSrc = nil
	}
	for i, f := range p.fences {
		if f != nil {
			f.Release()
			p.fences[i] = nil
		}
	}
}
