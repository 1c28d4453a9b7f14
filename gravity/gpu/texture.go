package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Texture is a typed render target: texture + default view + dimensions.
type Texture struct {
	Tex    *wgpu.Texture
	View   *wgpu.TextureView
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
	Label  string
}

func bytesPerTexel(format wgpu.TextureFormat) uint32 {
	switch format {
	case wgpu.TextureFormatRGBA32Float:
		return 16
	case wgpu.TextureFormatRG32Float:
		return 8
	case wgpu.TextureFormatR32Float:
		return 4
	case wgpu.TextureFormatRGBA8Unorm:
		return 4
	}
	return 4
}

// NewRenderTarget allocates a texture usable as a color attachment, a
// sampled input, and a readback source.
func (c *Context) NewRenderTarget(label string, w, h uint32, format wgpu.TextureFormat) (*Texture, error) {
	return c.newTexture(label, w, h, format,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc)
}

// NewUploadTexture additionally allows host writes, for the initial
// particle state upload.
func (c *Context) NewUploadTexture(label string, w, h uint32, format wgpu.TextureFormat) (*Texture, error) {
	return c.newTexture(label, w, h, format,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopySrc|wgpu.TextureUsageCopyDst)
}

func (c *Context) newTexture(label string, w, h uint32, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*Texture, error) {
	if w == 0 || h == 0 {
		return nil, invalidInput(label, "zero texture dimension %dx%d", w, h)
	}
	tex, err := c.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, resErr(ErrAllocationFailed, label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, resErr(ErrFramebufferIncomplete, label, err)
	}
	return &Texture{Tex: tex, View: view, Width: w, Height: h, Format: format, Label: label}, nil
}

// Upload writes raw texel data covering the whole texture.
func (t *Texture) Upload(queue *wgpu.Queue, data []byte) {
	bpr := t.Width * bytesPerTexel(t.Format)
	queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.Tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  bpr,
			RowsPerImage: t.Height,
		},
		&wgpu.Extent3D{Width: t.Width, Height: t.Height, DepthOrArrayLayers: 1},
	)
}

func (t *Texture) Release() {
	if t == nil {
		return
	}
	if t.View != nil {
		t.View.Release()
		t.View = nil
	}
	if t.Tex != nil {
		t.Tex.Release()
		t.Tex = nil
	}
}
