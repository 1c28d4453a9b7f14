package gpu

import (
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

// DiagCounters accumulates hot-path GPU errors that are logged instead of
// raised; see the debug accessor on the engine.
type DiagCounters struct {
	BindGroupErrors atomic.Uint64
	PassErrors      atomic.Uint64
	ReadbackErrors  atomic.Uint64
}

// Context owns the WebGPU device used by every kernel. A context either
// creates a headless device or adopts one supplied by the host renderer,
// in which case Dispose leaves the device alone.
type Context struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	// FloatBlend reports whether additive blending into 32-bit float
	// targets passed the probe; scatter kernels degrade without it.
	FloatBlend bool

	Log  Logger
	Diag *DiagCounters

	ownsDevice bool
	disposed   bool
}

// NewContext initializes a headless device.
func NewContext(log Logger) (*Context, error) {
	if log == nil {
		log = NewNopLogger()
	}
	c := &Context{Log: log, Diag: &DiagCounters{}, ownsDevice: true}

	c.Instance = wgpu.CreateInstance(nil)
	if c.Instance == nil {
		return nil, resErr(ErrExtensionMissing, "instance", nil)
	}
	adapter, err := c.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		c.Dispose()
		return nil, resErr(ErrExtensionMissing, "adapter", err)
	}
	c.Adapter = adapter

	c.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		c.Dispose()
		return nil, resErr(ErrExtensionMissing, "device", err)
	}
	c.Queue = c.Device.GetQueue()
	c.probeFloatBlend()
	return c, nil
}

// AdoptDevice wraps a device owned by the host (viewer/renderer) so the
// engine's textures are directly sampleable by it.
func AdoptDevice(device *wgpu.Device, log Logger) (*Context, error) {
	if device == nil {
		return nil, invalidInput("device", "nil device")
	}
	if log == nil {
		log = NewNopLogger()
	}
	c := &Context{
		Device: device,
		Queue:  device.GetQueue(),
		Log:    log,
		Diag:   &DiagCounters{},
	}
	c.probeFloatBlend()
	return c, nil
}

func (c *Context) Dispose() {
	if c.disposed {
		return
	}
	c.disposed = true
	if c.ownsDevice {
		if c.Device != nil {
			c.Device.Release()
			c.Device = nil
		}
		if c.Adapter != nil {
			c.Adapter.Release()
			c.Adapter = nil
		}
		if c.Instance != nil {
			c.Instance.Release()
			c.Instance = nil
		}
	}
}
