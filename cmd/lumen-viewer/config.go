package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lumen3d/lumen/engine/renderer"
)

// Config holds the viewer's user-facing settings, loaded from a YAML file.
// Every field has a working default so the viewer runs without any file.
type Config struct {
	Window struct {
		Title  string `yaml:"title"`
		Width  int    `yaml:"width"`
		Height int    `yaml:"height"`
	} `yaml:"window"`

	Renderer struct {
		ShadowResolution uint32 `yaml:"shadow_resolution"`
		PointShadows     *bool  `yaml:"point_shadows"` // pointer to distinguish unset vs false
		MSAA             uint32 `yaml:"msaa"`
		PresentMode      string `yaml:"present_mode"` // "vsync" or "uncapped"
		Software         bool   `yaml:"software"`
	} `yaml:"renderer"`

	Scene struct {
		Model      string     `yaml:"model"`
		Background [4]float32 `yaml:"background"`
		Ambient    [3]float32 `yaml:"ambient"`
	} `yaml:"scene"`

	Camera struct {
		Distance float32    `yaml:"distance"`
		Target   [3]float32 `yaml:"target"`
		Yaw      float32    `yaml:"yaw"`
		Pitch    float32    `yaml:"pitch"`
	} `yaml:"camera"`

	TickRate   float64 `yaml:"tick_rate"`
	FrameLimit float64 `yaml:"frame_limit"`
	Profiling  bool    `yaml:"profiling"`
}

// DefaultConfig returns the viewer defaults: a 1280x720 vsynced window, 2048
// shadow maps with point shadows, 4x MSAA, and a dark blue-grey backdrop.
func DefaultConfig() Config {
	var cfg Config
	cfg.Window.Title = "Lumen Viewer"
	cfg.Window.Width = 1280
	cfg.Window.Height = 720
	cfg.Renderer.ShadowResolution = renderer.DefaultShadowResolution
	cfg.Renderer.MSAA = 4
	cfg.Renderer.PresentMode = "vsync"
	cfg.Scene.Background = [4]float32{0.08, 0.09, 0.11, 1}
	cfg.Scene.Ambient = [3]float32{0.03, 0.03, 0.035}
	cfg.Camera.Distance = 6
	cfg.Camera.Pitch = 0.4
	cfg.TickRate = 60
	return cfg
}

// LoadConfig reads a YAML config file over the defaults. A missing file is
// not an error; a malformed or invalid one is.
//
// Parameters:
//   - path: the config file path
//
// Returns:
//   - Config: the merged configuration
//   - error: error if the file exists but cannot be parsed or validated
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	switch c.Renderer.MSAA {
	case uint32(renderer.MSAAOff), uint32(renderer.MSAA4x), uint32(renderer.MSAA8x):
	default:
		return fmt.Errorf("msaa must be 1, 4, or 8, got %d", c.Renderer.MSAA)
	}
	switch c.Renderer.PresentMode {
	case "vsync", "uncapped":
	default:
		return fmt.Errorf("present_mode must be %q or %q, got %q", "vsync", "uncapped", c.Renderer.PresentMode)
	}
	return nil
}

// pointShadows reports the configured point shadow setting, defaulting to on.
func (c *Config) pointShadows() bool {
	if c.Renderer.PointShadows == nil {
		return true
	}
	return *c.Renderer.PointShadows
}

// presentMode maps the config string onto the renderer's present mode.
func (c *Config) presentMode() renderer.PresentMode {
	if c.Renderer.PresentMode == "uncapped" {
		return renderer.PresentModeUncapped
	}
	return renderer.PresentModeVSync
}
