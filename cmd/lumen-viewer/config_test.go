package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lumen3d/lumen/engine/renderer"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lumen.yml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Fatalf("unexpected default window size %dx%d", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Renderer.ShadowResolution != renderer.DefaultShadowResolution {
		t.Fatalf("unexpected default shadow resolution %d", cfg.Renderer.ShadowResolution)
	}
	if !cfg.pointShadows() {
		t.Fatal("point shadows should default to on")
	}
	if cfg.presentMode() != renderer.PresentModeVSync {
		t.Fatal("present mode should default to vsync")
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
window:
  title: Custom
  width: 1920
  height: 1080
renderer:
  shadow_resolution: 1024
  point_shadows: false
  msaa: 8
  present_mode: uncapped
scene:
  model: assets/helmet.glb
  ambient: [0.1, 0.1, 0.1]
camera:
  distance: 12
frame_limit: 120
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Window.Title != "Custom" || cfg.Window.Width != 1920 {
		t.Fatalf("window overrides not applied: %+v", cfg.Window)
	}
	if cfg.Renderer.ShadowResolution != 1024 || cfg.Renderer.MSAA != 8 {
		t.Fatalf("renderer overrides not applied: %+v", cfg.Renderer)
	}
	if cfg.pointShadows() {
		t.Fatal("point_shadows: false should disable point shadows")
	}
	if cfg.presentMode() != renderer.PresentModeUncapped {
		t.Fatal("present_mode: uncapped not applied")
	}
	if cfg.Scene.Model != "assets/helmet.glb" {
		t.Fatalf("unexpected model path %q", cfg.Scene.Model)
	}
	if cfg.Camera.Distance != 12 || cfg.FrameLimit != 120 {
		t.Fatalf("camera/frame limit overrides not applied")
	}
	// Unset sections keep their defaults.
	if cfg.Scene.Background != [4]float32{0.08, 0.09, 0.11, 1} {
		t.Fatalf("background default lost: %v", cfg.Scene.Background)
	}
	if cfg.TickRate != 60 {
		t.Fatalf("tick rate default lost: %v", cfg.TickRate)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad msaa", "renderer:\n  msaa: 2\n"},
		{"bad present mode", "renderer:\n  present_mode: adaptive\n"},
		{"bad window", "window:\n  width: -5\n  height: 720\n"},
		{"malformed yaml", "window: ["},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.body)); err == nil {
				t.Fatalf("expected an error for %s", tc.name)
			}
		})
	}
}
