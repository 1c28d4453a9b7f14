package main

import (
	"encoding/binary"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/oyin-bo/three-g/gravity"
	"github.com/oyin-bo/three-g/gravity/shaders"
)

// pointRenderer draws the engine's particles as single-pixel sprites.
type pointRenderer struct {
	device   *wgpu.Device
	queue    *wgpu.Queue
	pipeline *wgpu.RenderPipeline
	camera   *wgpu.Buffer
	count    uint32
	pwidth   uint32
}

func newPointRenderer(device *wgpu.Device, format wgpu.TextureFormat, engine *gravity.Engine, count int) (*pointRenderer, error) {
	mod, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "points",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.PointsRenderWGSL},
	})
	if err != nil {
		return nil, err
	}
	defer mod.Release()

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "points",
		Vertex: wgpu.VertexState{
			Module:     mod,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyPointList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}

	camera, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "points/camera",
		Size:  80,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		pipeline.Release()
		return nil, err
	}

	w, _ := engine.TextureSize()
	return &pointRenderer{
		device:   device,
		queue:    device.GetQueue(),
		pipeline: pipeline,
		camera:   camera,
		count:    uint32(count),
		pwidth:   uint32(w),
	}, nil
}

func (r *pointRenderer) updateCamera(viewProj mgl32.Mat4) {
	buf := make([]byte, 80)
	for i, v := range viewProj {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:], r.pwidth)
	binary.LittleEndian.PutUint32(buf[68:], r.count)
	r.queue.WriteBuffer(r.camera, 0, buf)
}

func (r *pointRenderer) draw(encoder *wgpu.CommandEncoder, view *wgpu.TextureView, engine *gravity.Engine) {
	bg, err := r.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "points",
		Layout: r.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.camera, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: engine.PositionTexture().View},
			{Binding: 2, TextureView: engine.ColorTexture().View},
		},
	})
	if err != nil {
		return
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: 0.01, G: 0.01, B: 0.02, A: 1},
		}},
	})
	pass.SetPipeline(r.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Draw(r.count, 1, 0, 0)
	pass.End()
	bg.Release()
}

func (r *pointRenderer) release() {
	if r.pipeline != nil {
		r.pipeline.Release()
		r.pipeline = nil
	}
	if r.camera != nil {
		r.camera.Release()
		r.camera = nil
	}
}

// orbitCamera is a drag-to-orbit, scroll-to-zoom camera around the
// world origin.
type orbitCamera struct {
	Yaw, Pitch float32
	Distance   float32
}

func (c *orbitCamera) viewProj(aspect float32) mgl32.Mat4 {
	pitch := mgl32.Clamp(c.Pitch, -1.5, 1.5)
	eye := mgl32.Vec3{
		c.Distance * float32(math.Cos(float64(pitch))*math.Sin(float64(c.Yaw))),
		c.Distance * float32(math.Sin(float64(pitch))),
		c.Distance * float32(math.Cos(float64(pitch))*math.Cos(float64(c.Yaw))),
	}
	view := mgl32.LookAtV(eye, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(mgl32.DegToRad(55), aspect, 0.01, 100)
	return proj.Mul4(view)
}
