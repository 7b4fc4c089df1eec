package renderer

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/lumen3d/lumen/engine/profiler"
	"github.com/lumen3d/lumen/engine/renderer/shader"
	"github.com/lumen3d/lumen/engine/scene"
)

// DefaultShadowResolution is the shadow map size used when no override is
// configured.
const DefaultShadowResolution = 2048

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backend  Backend
	selector shader.Selector
	cache    ResourceCache

	collector *frameCollector
	shadow    *shadowPassEngine
	forward   *forwardPassEngine
	prof      *profiler.Profiler

	mode             shader.RenderMode
	pointShadows     bool
	shadowResolution uint32
	width, height    uint32

	frameOpen bool
}

// Renderer drives a full frame: it resolves the scene, renders the shadow
// maps, then the forward pass, and presents. Frames are strictly sequential;
// RenderFrame must not be called concurrently or reentrantly.
type Renderer interface {
	// RenderFrame renders one frame of the given scene and presents it.
	//
	// Parameters:
	//   - s: the scene to render
	//
	// Returns:
	//   - error: ErrNoActiveCamera if the scene has no active camera,
	//     ErrFrameInProgress on reentry, a *shader.CompileError if a required
	//     shader variant failed to compile, or a backend error
	RenderFrame(s scene.Scene) error

	// Resize reconfigures the output surface and the camera aspect ratio used
	// on the next frame.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height uint32)

	// RenderMode returns the active render mode.
	//
	// Returns:
	//   - shader.RenderMode: the active mode
	RenderMode() shader.RenderMode

	// SetRenderMode switches between lit shading and the unlit and normal
	// visualization debug modes. Takes effect on the next frame.
	//
	// Parameters:
	//   - mode: the mode to switch to
	SetRenderMode(mode shader.RenderMode)

	// PointShadowsEnabled reports whether point lights may cast shadows.
	//
	// Returns:
	//   - bool: true when the point light cube shadow path is enabled
	PointShadowsEnabled() bool

	// SetPointShadows toggles the point light cube shadow path. Takes effect
	// on the next frame.
	//
	// Parameters:
	//   - enabled: whether point lights may cast shadows
	SetPointShadows(enabled bool)

	// Stats returns a snapshot of the resource cache.
	//
	// Returns:
	//   - CacheStats: the snapshot
	Stats() CacheStats

	// Snapshot reads the most recently rendered frame back as an image.
	// Supported only when the renderer was built over an offscreen backend;
	// surface-backed backends return ErrReadbackUnsupported.
	//
	// Returns:
	//   - *image.RGBA: the frame contents
	//   - error: ErrReadbackUnsupported, or an error if the copy failed
	Snapshot() (*image.RGBA, error)

	// Shutdown releases every GPU resource. The renderer must not be used
	// after Shutdown; this is the only teardown path.
	Shutdown()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer over a backend.
//
// Parameters:
//   - backend: the backend that owns the GPU resources
//   - width: the initial surface width in pixels
//   - height: the initial surface height in pixels
//   - options: optional functional options to configure the renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if the configuration is invalid
func NewRenderer(backend Backend, width, height uint32, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:               &sync.Mutex{},
		backend:          backend,
		selector:         shader.NewSelector(),
		collector:        newFrameCollector(),
		mode:             shader.ModeLit,
		pointShadows:     true,
		shadowResolution: DefaultShadowResolution,
		width:            width,
		height:           height,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.shadowResolution < 256 || r.shadowResolution > 8192 || r.shadowResolution&(r.shadowResolution-1) != 0 {
		return nil, fmt.Errorf("shadow resolution %d is not a power of two in [256, 8192]", r.shadowResolution)
	}

	r.cache = NewResourceCache(backend, r.selector)
	r.shadow = newShadowPassEngine(backend, r.cache, r.shadowResolution)
	r.forward = newForwardPassEngine(backend, r.cache)
	return r, nil
}

func (r *renderer) RenderFrame(s scene.Scene) error {
	r.mu.Lock()
	if r.frameOpen {
		r.mu.Unlock()
		return ErrFrameInProgress
	}
	r.frameOpen = true
	mode := r.mode
	pointShadows := r.pointShadows
	aspect := float32(1)
	if r.height > 0 {
		aspect = float32(r.width) / float32(r.height)
	}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.frameOpen = false
		r.mu.Unlock()
	}()

	collectStart := time.Now()
	frame, err := r.collector.Collect(s, aspect, pointShadows && mode == shader.ModeLit)
	if err != nil {
		return err
	}
	if r.prof != nil {
		r.prof.Sample("collect", time.Since(collectStart))
	}

	if err := r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("failed to begin frame: %w", err)
	}

	var shadows shadowOutput
	if mode == shader.ModeLit {
		shadowStart := time.Now()
		shadows, err = r.shadow.Run(frame)
		if err != nil {
			return err
		}
		if r.prof != nil {
			r.prof.Sample("shadow", time.Since(shadowStart))
		}
	}

	forwardStart := time.Now()
	if err := r.forward.Run(frame, shadows, mode); err != nil {
		return err
	}
	if r.prof != nil {
		r.prof.Sample("forward", time.Since(forwardStart))
		r.prof.Tick()
	}

	return r.backend.EndFrame()
}

func (r *renderer) Resize(width, height uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if width == 0 || height == 0 {
		return
	}
	r.width = width
	r.height = height
	r.backend.Resize(width, height)
}

func (r *renderer) RenderMode() shader.RenderMode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

func (r *renderer) SetRenderMode(mode shader.RenderMode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
}

func (r *renderer) PointShadowsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pointShadows
}

func (r *renderer) SetPointShadows(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pointShadows = enabled
}

func (r *renderer) Stats() CacheStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Stats()
}

func (r *renderer) Snapshot() (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frameOpen {
		return nil, ErrFrameInProgress
	}
	return r.backend.ReadPixels()
}

func (r *renderer) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.ReleaseAll()
	r.selector.Clear()
	r.shadow.invalidate()
}
