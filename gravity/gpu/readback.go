package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

const rowAlign = 256

// Readback is a pre-allocated buffer for copying a texture region back to
// the host. Rows are padded to the 256-byte copy alignment; TryRead is
// non-blocking and returns data only once the map completes.
type Readback struct {
	Buf         *wgpu.Buffer
	W, H        uint32
	BytesPerRow uint32
	texelBytes  uint32

	mapped  bool
	pending bool
	diag    *DiagCounters
	log     Logger
}

func (c *Context) NewReadback(label string, w, h uint32, format wgpu.TextureFormat) (*Readback, error) {
	bpt := bytesPerTexel(format)
	bpr := (w*bpt + rowAlign - 1) &^ uint32(rowAlign-1)
	buf, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(bpr * h),
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, resErr(ErrAllocationFailed, label, err)
	}
	return &Readback{Buf: buf, W: w, H: h, BytesPerRow: bpr, texelBytes: bpt, diag: c.Diag, log: c.Log}, nil
}

// Encode copies the texture into the readback buffer; call between the
// producing pass and Submit.
func (r *Readback) Encode(encoder *wgpu.CommandEncoder, tex *Texture) {
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  tex.Tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
		},
		&wgpu.ImageCopyBuffer{
			Buffer: r.Buf,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  r.BytesPerRow,
				RowsPerImage: r.H,
			},
		},
		&wgpu.Extent3D{Width: r.W, Height: r.H, DepthOrArrayLayers: 1},
	)
}

func (r *Readback) beginMap() {
	if r.pending || r.mapped {
		return
	}
	r.pending = true
	r.Buf.MapAsync(wgpu.MapModeRead, 0, r.Buf.GetSize(), func(status wgpu.BufferMapAsyncStatus) {
		r.pending = false
		if status == wgpu.BufferMapAsyncStatusSuccess {
			r.mapped = true
		} else {
			r.diag.ReadbackErrors.Add(1)
			r.log.Debugf("readback map failed: %d", status)
		}
	})
}

func (r *Readback) drain() []byte {
	size := r.Buf.GetSize()
	data := r.Buf.GetMappedRange(0, uint(size))
	out := make([]byte, 0, r.W*r.H*r.texelBytes)
	for y := uint32(0); y < r.H; y++ {
		row := uint64(y * r.BytesPerRow)
		out = append(out, data[row:row+uint64(r.W*r.texelBytes)]...)
	}
	r.Buf.Unmap()
	r.mapped = false
	return out
}

// TryRead polls without waiting. Returns the tightly-packed texel bytes,
// or nil while the GPU has not delivered them yet.
func (r *Readback) TryRead(device *wgpu.Device) []byte {
	r.beginMap()
	device.Poll(false, nil)
	if !r.mapped {
		return nil
	}
	return r.drain()
}

// Ready polls without draining, for callers coordinating several
// readbacks that must land together.
func (r *Readback) Ready(device *wgpu.Device) bool {
	r.beginMap()
	device.Poll(false, nil)
	return r.mapped
}

// Take drains a readback previously reported Ready.
func (r *Readback) Take() []byte {
	if !r.mapped {
		return nil
	}
	return r.drain()
}

// ReadBlocking spins the device until the copy is mapped; debug and test
// use only.
func (r *Readback) ReadBlocking(device *wgpu.Device) []byte {
	r.beginMap()
	for !r.mapped && r.pending {
		device.Poll(true, nil)
	}
	if !r.mapped {
		return nil
	}
	return r.drain()
}

func (r *Readback) Release() {
	if r == nil || r.Buf == nil {
		return
	}
	r.Buf.Release()
	r.Buf = nil
}
