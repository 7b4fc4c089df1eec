// package control provides user-input driven controllers that manipulate
// scene nodes. Controllers translate raw window input (drags, scrolls) into
// node poses; they own no input plumbing themselves, so callers wire window
// callbacks to controller methods.
package control

import (
	"math"
	"sync"

	"github.com/lumen3d/lumen/engine/scene"
)

// pitchLimit keeps the camera off the poles so the orbit basis stays stable.
const pitchLimit = float32(math.Pi/2) * 0.99

// orbitController is the implementation of the OrbitController interface.
type orbitController struct {
	mu sync.Mutex

	node scene.Node

	target   [3]float32
	distance float32
	yaw      float32
	pitch    float32

	rotateSensitivity float32
	zoomSensitivity   float32
	minDistance       float32
	maxDistance       float32
}

// OrbitController rotates a camera node around a target point. Drag adjusts
// yaw and pitch, Zoom adjusts the distance, and every change immediately
// writes the resulting pose to the controlled node.
type OrbitController interface {
	// Drag applies a pointer drag in pixels, yawing around the target on the
	// horizontal axis and pitching on the vertical axis.
	//
	// Parameters:
	//   - dx: horizontal drag distance in pixels
	//   - dy: vertical drag distance in pixels
	Drag(dx, dy float32)

	// Zoom moves the camera toward (positive delta) or away from the target,
	// clamped to the configured distance limits.
	//
	// Parameters:
	//   - delta: scroll amount, typically the wheel offset
	Zoom(delta float32)

	// SetTarget repositions the orbit center.
	//
	// Parameters:
	//   - x, y, z: the new target point
	SetTarget(x, y, z float32)

	// Target returns the orbit center.
	//
	// Returns:
	//   - [3]float32: the target point
	Target() [3]float32

	// Distance returns the current camera distance from the target.
	//
	// Returns:
	//   - float32: the distance
	Distance() float32

	// Apply recomputes the node's pose from the current orbit state. Drag,
	// Zoom, and SetTarget call this implicitly.
	Apply()
}

var _ OrbitController = &orbitController{}

// NewOrbitController creates an orbit controller driving the given node and
// applies the initial pose. The node is typically the scene's active camera
// node. Panics if node is nil.
//
// Parameters:
//   - node: the scene node to drive
//   - options: functional options for the initial orbit state
//
// Returns:
//   - OrbitController: the controller
func NewOrbitController(node scene.Node, options ...OrbitControllerOption) OrbitController {
	if node == nil {
		panic("control: NewOrbitController requires a non-nil node")
	}

	c := &orbitController{
		node:              node,
		distance:          5,
		rotateSensitivity: 0.005,
		zoomSensitivity:   0.25,
		minDistance:       0.1,
		maxDistance:       1000,
	}

	for _, option := range options {
		option(c)
	}

	c.Apply()
	return c
}

func (c *orbitController) Drag(dx, dy float32) {
	c.mu.Lock()
	c.yaw -= dx * c.rotateSensitivity
	c.pitch += dy * c.rotateSensitivity
	c.pitch = clamp(c.pitch, -pitchLimit, pitchLimit)
	c.mu.Unlock()

	c.Apply()
}

func (c *orbitController) Zoom(delta float32) {
	c.mu.Lock()
	// Scale the step with distance so zooming feels uniform near and far.
	c.distance -= delta * c.zoomSensitivity * c.distance
	c.distance = clamp(c.distance, c.minDistance, c.maxDistance)
	c.mu.Unlock()

	c.Apply()
}

func (c *orbitController) SetTarget(x, y, z float32) {
	c.mu.Lock()
	c.target = [3]float32{x, y, z}
	c.mu.Unlock()

	c.Apply()
}

func (c *orbitController) Target() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *orbitController) Distance() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.distance
}

func (c *orbitController) Apply() {
	c.mu.Lock()
	target, distance, yaw, pitch := c.target, c.distance, c.yaw, c.pitch
	c.mu.Unlock()

	sy, cy := sincos(yaw)
	sp, cp := sincos(pitch)

	c.node.SetTranslation(
		target[0]+distance*cp*sy,
		target[1]+distance*sp,
		target[2]+distance*cp*cy,
	)

	// Orientation looking back at the target: yaw about Y composed with
	// pitch about X, so the node's -Z axis points from camera to target.
	hy, chy := sincos(yaw / 2)
	hp, chp := sincos(-pitch / 2)
	c.node.SetRotation(
		chy*hp,
		chp*hy,
		-hy*hp,
		chy*chp,
	)
}

func sincos(v float32) (sin, cos float32) {
	s, c := math.Sincos(float64(v))
	return float32(s), float32(c)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
