package renderer

import "errors"

var (
	// ErrResourceAllocation indicates a GPU resource (buffer, texture, or
	// render target) could not be created. Allocation failures are returned
	// to the caller and never memoized: a later acquire retries the upload.
	ErrResourceAllocation = errors.New("renderer: gpu resource allocation failed")

	// ErrNoActiveCamera indicates a frame was requested for a scene without
	// an active camera selection.
	ErrNoActiveCamera = errors.New("renderer: scene has no active camera")

	// ErrFrameInProgress indicates RenderFrame re-entry. Frames are strictly
	// sequential on a single goroutine.
	ErrFrameInProgress = errors.New("renderer: frame already in progress")

	// ErrNotInitialized indicates the backend has not been initialized or has
	// been torn down via ReleaseAll.
	ErrNotInitialized = errors.New("renderer: backend not initialized")

	// ErrUnknownHandle indicates a draw referenced a geometry, texture,
	// program, or target handle the backend never issued (or already released).
	ErrUnknownHandle = errors.New("renderer: unknown resource handle")

	// ErrReadbackUnsupported indicates ReadPixels was called on a backend
	// that presents to a surface. Swapchain textures are not host-readable;
	// use an offscreen backend for readback.
	ErrReadbackUnsupported = errors.New("renderer: pixel readback requires an offscreen backend")
)
