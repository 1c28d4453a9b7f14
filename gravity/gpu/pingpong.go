package gpu

import "github.com/cogentcore/webgpu/wgpu"

// PingPong is an array-of-two render targets with a current index; the
// write side of a pass is always Target, and Swap promotes it.
type PingPong struct {
	Tex   [2]*Texture
	index int
}

func (c *Context) NewPingPong(label string, w, h uint32, format wgpu.TextureFormat) (*PingPong, error) {
	a, err := c.NewUploadTexture(label+"/0", w, h, format)
	if err != nil {
		return nil, err
	}
	b, err := c.NewUploadTexture(label+"/1", w, h, format)
	if err != nil {
		a.Release()
		return nil, err
	}
	return &PingPong{Tex: [2]*Texture{a, b}}, nil
}

// Current is the authoritative read side between passes.
func (p *PingPong) Current() *Texture { return p.Tex[p.index] }

// Target is the write side of the next rewriting pass.
func (p *PingPong) Target() *Texture { return p.Tex[1-p.index] }

func (p *PingPong) Index() int { return p.index }

func (p *PingPong) Swap() { p.index = 1 - p.index }

func (p *PingPong) Release() {
	if p == nil {
		return
	}
	p.Tex[0].Release()
	p.Tex[1].Release()
	p.Tex[0], p.Tex[1] = nil, nil
}
