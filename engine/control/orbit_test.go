package control

import (
	"math"
	"testing"

	"github.com/lumen3d/lumen/engine/scene"
)

const orbitEpsilon = 1e-4

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < orbitEpsilon
}

func nearVec(a, b [3]float32) bool {
	return near(a[0], b[0]) && near(a[1], b[1]) && near(a[2], b[2])
}

func TestInitialPoseFacesTheTarget(t *testing.T) {
	n := scene.NewNode(scene.WithName("camera"))
	NewOrbitController(n, WithDistance(5))

	if got := n.Translation(); !nearVec(got, [3]float32{0, 0, 5}) {
		t.Fatalf("expected camera at (0,0,5), got %v", got)
	}
	if got := n.Rotation(); !near(got[3], 1) {
		t.Fatalf("expected identity rotation at zero angles, got %v", got)
	}
}

func TestDragOrbitsAroundTheTarget(t *testing.T) {
	n := scene.NewNode()
	c := NewOrbitController(n, WithDistance(2), WithSensitivity(0.01, 0.25))

	// Half a pi of yaw: 157.0796 pixels at 0.01 rad/px. Drag dx is negated,
	// so a negative dx yaws positively toward +X.
	c.Drag(float32(-math.Pi/2)/0.01, 0)

	if got := n.Translation(); !nearVec(got, [3]float32{2, 0, 0}) {
		t.Fatalf("expected camera at (2,0,0) after quarter orbit, got %v", got)
	}
}

func TestDragClampsPitchAtThePoles(t *testing.T) {
	n := scene.NewNode()
	c := NewOrbitController(n, WithDistance(1))

	c.Drag(0, 1e6)

	pos := n.Translation()
	if pos[1] > 1 {
		t.Fatalf("pitch exceeded the pole clamp: %v", pos)
	}
	if near(pos[1], 1) && near(pos[0], 0) && near(pos[2], 0) {
		t.Fatalf("camera reached the exact pole: %v", pos)
	}
}

func TestZoomIsClampedToDistanceLimits(t *testing.T) {
	n := scene.NewNode()
	c := NewOrbitController(n, WithDistance(5), WithDistanceLimits(1, 10))

	for i := 0; i < 100; i++ {
		c.Zoom(1)
	}
	if got := c.Distance(); got != 1 {
		t.Fatalf("expected min distance 1, got %v", got)
	}

	for i := 0; i < 100; i++ {
		c.Zoom(-1)
	}
	if got := c.Distance(); got != 10 {
		t.Fatalf("expected max distance 10, got %v", got)
	}
}

func TestSetTargetRecentersTheOrbit(t *testing.T) {
	n := scene.NewNode()
	c := NewOrbitController(n, WithDistance(3))

	c.SetTarget(10, 0, 0)

	if got := c.Target(); got != [3]float32{10, 0, 0} {
		t.Fatalf("unexpected target %v", got)
	}
	if got := n.Translation(); !nearVec(got, [3]float32{10, 0, 3}) {
		t.Fatalf("expected camera at (10,0,3), got %v", got)
	}
}

func TestWithAnglesSetsTheStartingView(t *testing.T) {
	n := scene.NewNode()
	NewOrbitController(n, WithDistance(2), WithAngles(0, float32(math.Pi/4)))

	pos := n.Translation()
	want := float32(2 * math.Sqrt2 / 2)
	if !near(pos[1], want) || !near(pos[2], want) {
		t.Fatalf("expected elevated camera at (0,%v,%v), got %v", want, want, pos)
	}
}
