// Command lumen-viewer opens a window and renders a glTF model (or a small
// built-in demo scene) with the forward PBR pipeline. Drag to orbit, scroll
// to zoom, keys 1/2/3 switch between lit, unlit, and normal visualization
// modes, and P toggles point light shadows.
package main

import (
	"flag"
	"log"
	"math"

	"github.com/lumen3d/lumen/engine"
	"github.com/lumen3d/lumen/engine/camera"
	"github.com/lumen3d/lumen/engine/control"
	"github.com/lumen3d/lumen/engine/light"
	"github.com/lumen3d/lumen/engine/loader"
	"github.com/lumen3d/lumen/engine/renderer"
	"github.com/lumen3d/lumen/engine/renderer/shader"
	"github.com/lumen3d/lumen/engine/scene"
	"github.com/lumen3d/lumen/engine/window"
)

func main() {
	configPath := flag.String("config", "lumen.yml", "path to the viewer config file")
	modelPath := flag.String("model", "", "glTF/GLB model to view (overrides the config)")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("lumen-viewer: %v", err)
	}
	if *modelPath != "" {
		cfg.Scene.Model = *modelPath
	}

	// ── Window ──────────────────────────────────────────────────────────
	win := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
	)

	// ── Renderer ────────────────────────────────────────────────────────
	backend := renderer.NewWGPUBackend(win.SurfaceDescriptor(),
		renderer.WithWGPUPresentMode(cfg.presentMode()),
		renderer.WithWGPUMSAA(renderer.MSAASampleCount(cfg.Renderer.MSAA)),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.Software),
	)
	rend, err := renderer.NewRenderer(backend, uint32(win.Width()), uint32(win.Height()),
		renderer.WithShadowResolution(cfg.Renderer.ShadowResolution),
		renderer.WithPointShadows(cfg.pointShadows()),
	)
	if err != nil {
		log.Fatalf("lumen-viewer: %v", err)
	}

	// ── Scene ───────────────────────────────────────────────────────────
	s := scene.NewScene("viewer",
		scene.WithBackgroundColor(cfg.Scene.Background[0], cfg.Scene.Background[1], cfg.Scene.Background[2], cfg.Scene.Background[3]),
		scene.WithAmbientColor(cfg.Scene.Ambient[0], cfg.Scene.Ambient[1], cfg.Scene.Ambient[2]),
	)

	camNode := scene.NewNode(
		scene.WithName("camera"),
		scene.WithCamera(camera.NewCamera(
			camera.WithFov(float32(45*math.Pi/180)),
			camera.WithClipRange(0.1, 500),
		)),
	)
	if err := s.Add(camNode, nil); err != nil {
		log.Fatalf("lumen-viewer: failed to add camera: %v", err)
	}
	if err := s.SetActiveCamera(camNode); err != nil {
		log.Fatalf("lumen-viewer: failed to activate camera: %v", err)
	}

	sun := scene.NewNode(
		scene.WithName("sun"),
		scene.WithLight(light.NewLight(light.LightTypeDirectional,
			light.WithDirection(-0.4, -1, -0.3),
			light.WithColor(1, 0.96, 0.88),
			light.WithIntensity(2.5),
			light.WithCastsShadows(true),
		)),
	)
	if err := s.Add(sun, nil); err != nil {
		log.Fatalf("lumen-viewer: failed to add sun: %v", err)
	}

	fill := scene.NewNode(
		scene.WithName("fill"),
		scene.WithLight(light.NewLight(light.LightTypePoint,
			light.WithPosition(3, 3, 3),
			light.WithColor(0.9, 0.9, 1),
			light.WithIntensity(8),
			light.WithRange(20),
			light.WithCastsShadows(true),
		)),
	)
	if err := s.Add(fill, nil); err != nil {
		log.Fatalf("lumen-viewer: failed to add fill light: %v", err)
	}

	if cfg.Scene.Model != "" {
		assets := loader.NewLoader(loader.BackendGLTF)
		asset, err := assets.Load(cfg.Scene.Model)
		if err != nil {
			log.Fatalf("lumen-viewer: %v", err)
		}
		if _, err := asset.Instantiate(s, nil); err != nil {
			log.Fatalf("lumen-viewer: %v", err)
		}
		log.Printf("lumen-viewer: loaded %q: %d meshes, %d materials", asset.Name, len(asset.Meshes), len(asset.Materials))
	} else if err := buildDemoScene(s); err != nil {
		log.Fatalf("lumen-viewer: failed to build demo scene: %v", err)
	}

	// ── Controls ────────────────────────────────────────────────────────
	orbit := control.NewOrbitController(camNode,
		control.WithTarget(cfg.Camera.Target[0], cfg.Camera.Target[1], cfg.Camera.Target[2]),
		control.WithDistance(cfg.Camera.Distance),
		control.WithAngles(cfg.Camera.Yaw, cfg.Camera.Pitch),
	)
	win.SetDragCallback(orbit.Drag)
	win.SetScrollCallback(orbit.Zoom)
	win.SetKeyDownCallback(func(keyCode uint32) {
		switch keyCode {
		case '1':
			rend.SetRenderMode(shader.ModeLit)
		case '2':
			rend.SetRenderMode(shader.ModeUnlit)
		case '3':
			rend.SetRenderMode(shader.ModeNormals)
		case 'P':
			rend.SetPointShadows(!rend.PointShadowsEnabled())
		}
	})

	// ── Engine ──────────────────────────────────────────────────────────
	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(rend),
		engine.WithScene(s),
		engine.WithTickRate(cfg.TickRate),
		engine.WithRenderFrameLimit(cfg.FrameLimit),
		engine.WithProfiling(cfg.Profiling),
	)
	eng.Run()
}
