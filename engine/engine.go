package engine

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/lumen3d/lumen/engine/profiler"
	"github.com/lumen3d/lumen/engine/renderer"
	"github.com/lumen3d/lumen/engine/renderer/shader"
	"github.com/lumen3d/lumen/engine/scene"
	"github.com/lumen3d/lumen/engine/window"
)

// engine implements the Engine interface.
// Coordinates the logic tick goroutine and the render loop, which runs on
// the window's message thread because the GPU backend is bound to it.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer
	scene    scene.Scene

	profiler         *profiler.Profiler
	profilingEnabled bool

	engineTickRate time.Duration
	tickCallback   func(deltaTime float32)

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped

	ingestMu    sync.Mutex
	ingestQueue []func()
}

// Engine is the main entry point. It owns the window, the renderer, and the
// active scene, and drives the tick and render loops until the window closes.
type Engine interface {
	// Window returns the underlying window.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the underlying renderer.
	//
	// Returns:
	//   - renderer.Renderer: the renderer instance
	Renderer() renderer.Renderer

	// Scene returns the active scene.
	//
	// Returns:
	//   - scene.Scene: the active scene, or nil if none is set
	Scene() scene.Scene

	// SetScene replaces the active scene. Takes effect on the next frame.
	//
	// Parameters:
	//   - s: the scene to render
	SetScene(s scene.Scene)

	// Submit queues a function to run on the render thread before the next
	// frame begins. This is the safe way to mutate the scene from another
	// goroutine: the queue is drained at frame start, so queued mutations
	// never interleave with an in-flight frame.
	//
	// Parameters:
	//   - fn: the function to run before the next frame
	Submit(fn func())

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	// The tick callback is called at this rate for logic updates.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetTickCallback registers the function called each engine tick.
	// Use this for input handling, animation, and scene mutation.
	//
	// Parameters:
	//   - callback: function to call at the configured tick rate, receiving the delta time in seconds
	SetTickCallback(callback func(deltaTime float32))

	// SetRenderFrameLimit sets an optional render frame rate cap in frames
	// per second. Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Run starts the engine loops and blocks until the window closes or
	// Quit is called.
	Run()

	// Quit signals the engine to stop. Safe to call multiple times;
	// subsequent calls are no-ops.
	Quit()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// A window and a renderer are required; NewEngine panics without them.
//
// Parameters:
//   - options: functional options for engine configuration (window, renderer, scene, tick rate, profiling)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}

	if e.window == nil {
		panic("engine: NewEngine requires a Window")
	}
	if e.renderer == nil {
		panic("engine: NewEngine requires a Renderer")
	}

	e.renderer.Resize(uint32(e.window.Width()), uint32(e.window.Height()))
	e.window.SetResizeCallback(func(width, height int) {
		if width > 0 && height > 0 {
			e.renderer.Resize(uint32(width), uint32(height))
		}
	})

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Scene() scene.Scene {
	return e.scene
}

func (e *engine) SetScene(s scene.Scene) {
	e.scene = s
}

func (e *engine) Submit(fn func()) {
	if fn == nil {
		return
	}
	e.ingestMu.Lock()
	e.ingestQueue = append(e.ingestQueue, fn)
	e.ingestMu.Unlock()
}

// drainIngest runs every queued mutation on the calling (render) thread.
func (e *engine) drainIngest() {
	e.ingestMu.Lock()
	queued := e.ingestQueue
	e.ingestQueue = nil
	e.ingestMu.Unlock()

	for _, fn := range queued {
		fn()
	}
}

func (e *engine) Run() {
	e.running = true
	e.wg.Add(2)
	go e.handleTick()
	go e.handleQuit()

	lastRender := time.Now()
	e.window.SetUpdateCallback(func() {
		now := time.Now()
		lastRender = now

		e.drainIngest()

		if e.scene != nil {
			if err := e.renderer.RenderFrame(e.scene); err != nil {
				var compile *shader.CompileError
				if errors.As(err, &compile) {
					log.Printf("engine: fatal shader compile error: %v", err)
					e.signalQuit()
					e.window.Close()
					return
				}
				log.Printf("engine: render frame failed: %v", err)
			}
		}

		if e.profilingEnabled && e.profiler != nil {
			e.profiler.Sample("frame", time.Since(now))
			e.profiler.Tick()
		}

		if e.renderFrameLimit > 0 {
			if remaining := e.renderFrameLimit - time.Since(lastRender); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	})

	// Blocks pumping window messages; the update callback above renders on
	// this thread.
	e.window.ProcessMessages()

	e.signalQuit()
	e.wg.Wait()
	e.renderer.Shutdown()
	e.window.Close()
}

// Quit signals the engine to stop.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
	e.window.Close()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handleTick runs the fixed-rate logic tick loop in its own goroutine.
// Fires the tick callback at the configured tick rate and listens for
// dynamic rate changes via tickRateChannel. Exits when the quit channel is
// closed.
func (e *engine) handleTick() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.engineTickRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			if e.tickCallback != nil {
				e.tickCallback(dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.engineTickRate = newRate
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send - if the channel holds a pending value, replace it
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.engineTickRate = newRate
	}
}

// SetTickCallback registers the function called each engine tick.
func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.tickCallback = callback
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Second / time.Duration(fps)
}
