package engine

import (
	"time"

	"github.com/lumen3d/lumen/engine/renderer"
	"github.com/lumen3d/lumen/engine/scene"
	"github.com/lumen3d/lumen/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
type EngineBuilderOption func(*engine)

// WithProfiling is an option builder that enables or disables profiling at
// construction.
//
// Parameters:
//   - enabled: whether profiling output is active
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate is an option builder that sets the logic tick rate in ticks
// per second.
//
// Parameters:
//   - fps: target ticks per second (values <= 0 keep the 60 default)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps > 0 {
			e.engineTickRate = time.Second / time.Duration(fps)
		}
	}
}

// WithWindow is an option builder that sets the engine's window.
//
// Parameters:
//   - w: the window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer is an option builder that sets the engine's renderer.
//
// Parameters:
//   - r: the renderer instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithScene is an option builder that sets the initial scene.
//
// Parameters:
//   - s: the scene to render
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scene = s
	}
}

// WithRenderFrameLimit is an option builder that caps the render loop at the
// given frames per second. Zero leaves the loop uncapped.
//
// Parameters:
//   - fps: maximum render frames per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps > 0 {
			e.renderFrameLimit = time.Second / time.Duration(fps)
		}
	}
}
