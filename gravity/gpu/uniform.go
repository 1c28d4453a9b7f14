package gpu

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
)

// UniformBuffer packs little-endian scalars into a fixed-size staging
// slice and uploads it with WriteBuffer before a pass.
type UniformBuffer struct {
	Buf  *wgpu.Buffer
	data []byte
}

func (c *Context) NewUniformBuffer(label string, size int) (*UniformBuffer, error) {
	// uniform binding sizes round up to 16
	if rem := size % 16; rem != 0 {
		size += 16 - rem
	}
	buf, err := c.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, resErr(ErrAllocationFailed, label, err)
	}
	return &UniformBuffer{Buf: buf, data: make([]byte, size)}, nil
}

func (u *UniformBuffer) PutFloat32(offset int, v float32) {
	binary.LittleEndian.PutUint32(u.data[offset:], math.Float32bits(v))
}

func (u *UniformBuffer) PutUint32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(u.data[offset:], v)
}

func (u *UniformBuffer) PutInt32(offset int, v int32) {
	binary.LittleEndian.PutUint32(u.data[offset:], uint32(v))
}

func (u *UniformBuffer) PutVec3(offset int, x, y, z float32) {
	u.PutFloat32(offset, x)
	u.PutFloat32(offset+4, y)
	u.PutFloat32(offset+8, z)
}

func (u *UniformBuffer) Upload(queue *wgpu.Queue) {
	queue.WriteBuffer(u.Buf, 0, u.data)
}

func (u *UniformBuffer) Release() {
	if u == nil || u.Buf == nil {
		return
	}
	u.Buf.Release()
	u.Buf = nil
}
