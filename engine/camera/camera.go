package camera

import (
	"math"
	"sync"

	"github.com/lumen3d/lumen/common"
)

// ProjectionType identifies the kind of projection a camera uses.
type ProjectionType int

const (
	// ProjectionPerspective is a standard perspective projection driven by a
	// vertical field of view and an aspect ratio.
	ProjectionPerspective ProjectionType = iota

	// ProjectionOrthographic is a parallel projection driven by a vertical
	// half-extent and an aspect ratio. Used for isometric views and editors.
	ProjectionOrthographic
)

type cameraImpl struct {
	mu *sync.Mutex

	projection ProjectionType

	fov       float32 // vertical field of view in radians (perspective)
	orthoSize float32 // vertical half-extent in world units (orthographic)
	aspect    float32
	near      float32
	far       float32

	projectionMatrix        [16]float32
	inverseProjectionMatrix [16]float32
	dirty                   bool
}

// Camera defines the projection half of a view. Cameras attach to scene nodes;
// the node's world transform supplies the view matrix, so the camera itself
// only owns the projection parameters and the matrices derived from them.
type Camera interface {
	// Projection returns the kind of projection the camera uses.
	//
	// Returns:
	//   - ProjectionType: perspective or orthographic
	Projection() ProjectionType

	// Fov returns the vertical field of view in radians. Meaningless for
	// orthographic cameras.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// OrthoSize returns the vertical half-extent in world units. Meaningless
	// for perspective cameras.
	//
	// Returns:
	//   - float32: the vertical half-extent
	OrthoSize() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// ProjectionMatrix returns the current 4x4 projection matrix as 16 floats
	// (column-major). The matrix is recomputed lazily after a parameter change.
	//
	// Returns:
	//   - [16]float32: the projection matrix
	ProjectionMatrix() [16]float32

	// InverseProjectionMatrix returns the inverse of the current projection
	// matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the inverse projection matrix
	InverseProjectionMatrix() [16]float32

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetOrthoSize sets the vertical half-extent for orthographic projection.
	//
	// Parameters:
	//   - size: the vertical half-extent in world units
	SetOrthoSize(size float32)

	// SetAspect sets the aspect ratio (width / height).
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance.
	//
	// Parameters:
	//   - near: near plane distance
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	//
	// Parameters:
	//   - far: far plane distance
	SetFar(far float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings: a 45°
// vertical field of view, unit aspect ratio, and a 0.1–100 clip range.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:         &sync.Mutex{},
		projection: ProjectionPerspective,
		fov:        45.0 * (math.Pi / 180.0), // radians
		orthoSize:  10.0,
		aspect:     1.0,
		near:       0.1,
		far:        100.0,
		dirty:      true,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Projection() ProjectionType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) OrthoSize() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orthoSize
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.projectionMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.dirty = true
}

func (c *cameraImpl) SetOrthoSize(size float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orthoSize = size
	c.dirty = true
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.dirty = true
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.dirty = true
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.dirty = true
}

// updateMatrices recalculates the projection and inverse projection matrices
// if a parameter changed since the last computation. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if !c.dirty {
		return
	}

	switch c.projection {
	case ProjectionOrthographic:
		halfH := c.orthoSize
		halfW := c.orthoSize * c.aspect
		common.Orthographic(c.projectionMatrix[:], -halfW, halfW, -halfH, halfH, c.near, c.far)
	default:
		common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
	}
	common.Invert4(c.inverseProjectionMatrix[:], c.projectionMatrix[:])
	c.dirty = false
}
