package renderer

import (
	"github.com/lumen3d/lumen/engine/profiler"
	"github.com/lumen3d/lumen/engine/renderer/shader"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithShadowResolution sets the shadow map size in texels. Must be a power of
// two in [256, 8192]; the default is DefaultShadowResolution.
//
// Parameters:
//   - resolution: the shadow map width and height in texels
//
// Returns:
//   - RendererBuilderOption: a function that applies the shadow resolution option to a renderer
func WithShadowResolution(resolution uint32) RendererBuilderOption {
	return func(r *renderer) {
		r.shadowResolution = resolution
	}
}

// WithPointShadows enables or disables the point light cube shadow path.
// Enabled by default. Disabling it renders point lights unshadowed and skips
// the cube map allocation entirely.
//
// Parameters:
//   - enabled: whether point lights may cast shadows
//
// Returns:
//   - RendererBuilderOption: a function that applies the point shadows option to a renderer
func WithPointShadows(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.pointShadows = enabled
	}
}

// WithRenderMode sets the initial render mode. The default is shader.ModeLit.
//
// Parameters:
//   - mode: the initial mode
//
// Returns:
//   - RendererBuilderOption: a function that applies the render mode option to a renderer
func WithRenderMode(mode shader.RenderMode) RendererBuilderOption {
	return func(r *renderer) {
		r.mode = mode
	}
}

// WithProfiler attaches a profiler that samples per-pass CPU timings and
// frame rate. When nil (the default), no timing overhead is incurred.
//
// Parameters:
//   - p: the profiler to attach
//
// Returns:
//   - RendererBuilderOption: a function that applies the profiler option to a renderer
func WithProfiler(p *profiler.Profiler) RendererBuilderOption {
	return func(r *renderer) {
		r.prof = p
	}
}
