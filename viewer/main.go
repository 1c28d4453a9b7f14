// Demo host: opens a window, seeds a spinning disc, and renders the
// engine's particle textures as point sprites while stepping the
// simulation every frame.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"runtime"
	"time"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"golang.org/x/image/colornames"

	"github.com/oyin-bo/three-g/gravity"
)

func init() {
	runtime.LockOSThread()
}

func solverKind(name string) gravity.SolverKind {
	switch name {
	case "spectral":
		return gravity.Spectral
	case "treepm":
		return gravity.TreePM
	default:
		return gravity.Monopole
	}
}

func assignment(name string) gravity.Assignment {
	if name == "ngp" {
		return gravity.NGP
	}
	return gravity.CIC
}

// tintColors recolors the inner bulge with a named palette color so the
// core reads hot against the disc ramp.
func tintColors(colors []byte, positions []float32, radius float32, tint color.RGBA) {
	for i := 0; i*4 < len(colors); i++ {
		x, z := positions[i*4], positions[i*4+2]
		if x*x+z*z < radius*radius*0.04 {
			colors[i*4+0] = tint.R
			colors[i*4+1] = tint.G
			colors[i*4+2] = tint.B
		}
	}
}

func main() {
	configPath := flag.String("config", "viewer.toml", "TOML config file")
	debug := flag.Bool("debug", false, "verbose engine logging")
	flag.Parse()

	cfg, err := loadViewerConfig(*configPath)
	if err != nil {
		panic(err)
	}

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, "three-g", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	instance := wgpu.CreateInstance(nil)
	surface := instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		panic(err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		panic(err)
	}

	width, height := window.GetFramebufferSize()
	caps := surface.GetCapabilities(adapter)
	format := caps.Formats[0]
	surfaceCfg := &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	surface.Configure(adapter, device, surfaceCfg)

	positions, velocities, colors := gravity.SpiralDisc(gravity.DiscOptions{
		Count:      cfg.Particles,
		Radius:     cfg.Radius,
		CenterMass: cfg.CenterMass,
		Seed:       time.Now().UnixNano(),
	})
	tintColors(colors, positions, cfg.Radius, colornames.Orange)

	logger := gravity.NewDefaultLogger("viewer", *debug)
	engine, err := gravity.New(gravity.Config{
		Solver:          solverKind(cfg.Solver),
		ParticleCount:   cfg.Particles,
		Positions:       positions,
		Velocities:      velocities,
		Colors:          colors,
		Theta:           cfg.Theta,
		GridSize:        cfg.GridSize,
		Assignment:      assignment(cfg.Assignment),
		SplitSigma:      cfg.SplitSigma,
		EnableProfiling: cfg.Profiling,
		Device:          device,
		Logger:          logger,
	})
	if err != nil {
		panic(err)
	}
	defer engine.Dispose()

	renderer, err := newPointRenderer(device, format, engine, cfg.Particles)
	if err != nil {
		panic(err)
	}
	defer renderer.release()

	camera := &orbitCamera{Distance: cfg.Radius * 3}
	var dragging bool
	var lastX, lastY float64
	window.SetMouseButtonCallback(func(w *glfw.Window, b glfw.MouseButton, a glfw.Action, _ glfw.ModifierKey) {
		if b == glfw.MouseButtonLeft {
			dragging = a == glfw.Press
			lastX, lastY = w.GetCursorPos()
		}
	})
	window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		if dragging {
			camera.Yaw += float32(x-lastX) * 0.005
			camera.Pitch += float32(y-lastY) * 0.005
			lastX, lastY = x, y
		}
	})
	window.SetScrollCallback(func(w *glfw.Window, _, dy float64) {
		camera.Distance *= 1 - float32(dy)*0.1
	})
	window.SetFramebufferSizeCallback(func(w *glfw.Window, fw, fh int) {
		if fw == 0 || fh == 0 {
			return
		}
		surfaceCfg.Width, surfaceCfg.Height = uint32(fw), uint32(fh)
		surface.Configure(adapter, device, surfaceCfg)
	})

	lastStats := time.Now()
	frames := 0
	for !window.ShouldClose() {
		glfw.PollEvents()
		engine.Step()

		next, err := surface.GetCurrentTexture()
		if err != nil {
			surface.Configure(adapter, device, surfaceCfg)
			continue
		}
		view, err := next.CreateView(nil)
		if err != nil {
			continue
		}
		encoder, err := device.CreateCommandEncoder(nil)
		if err != nil {
			view.Release()
			continue
		}
		aspect := float32(surfaceCfg.Width) / float32(surfaceCfg.Height)
		renderer.updateCamera(camera.viewProj(aspect))
		renderer.draw(encoder, view, engine)
		cmd, err := encoder.Finish(nil)
		if err == nil {
			device.GetQueue().Submit(cmd)
		}
		surface.Present()
		view.Release()

		frames++
		if cfg.Profiling && time.Since(lastStats) > time.Second {
			logger.Infof("fps=%d stats=%v", frames, formatStats(engine.Stats()))
			frames = 0
			lastStats = time.Now()
		}
	}
}

func formatStats(stats map[string]float64) string {
	out := ""
	for _, k := range []string{"encode", "solver", "integrate", "bounds", "gpu.frame"} {
		if v, ok := stats[k]; ok {
			out += fmt.Sprintf("%s=%.2fms ", k, v)
		}
	}
	return out
}
