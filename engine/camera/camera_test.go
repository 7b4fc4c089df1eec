package camera

import (
	"math"
	"testing"
)

// projectView applies the projection to a view-space point and divides by w.
func projectView(m [16]float32, x, y, z float32) (float32, float32, float32) {
	px := m[0]*x + m[4]*y + m[8]*z + m[12]
	py := m[1]*x + m[5]*y + m[9]*z + m[13]
	pz := m[2]*x + m[6]*y + m[10]*z + m[14]
	pw := m[3]*x + m[7]*y + m[11]*z + m[15]
	return px / pw, py / pw, pz / pw
}

func TestPerspectiveDepthRangeIsZeroToOne(t *testing.T) {
	c := NewCamera(WithClipRange(1, 100))
	m := c.ProjectionMatrix()

	_, _, zNear := projectView(m, 0, 0, -1)
	if math.Abs(float64(zNear)) > 1e-5 {
		t.Errorf("near plane depth = %f, want 0", zNear)
	}
	_, _, zFar := projectView(m, 0, 0, -100)
	if math.Abs(float64(zFar-1)) > 1e-5 {
		t.Errorf("far plane depth = %f, want 1", zFar)
	}
}

func TestPerspectiveFovFramesTheView(t *testing.T) {
	fov := float32(90 * math.Pi / 180)
	c := NewCamera(WithFov(fov), WithAspect(1), WithClipRange(0.1, 100))
	m := c.ProjectionMatrix()

	// At 90° vertical fov, a point at y = -z sits exactly on the top edge.
	_, y, _ := projectView(m, 0, 10, -10)
	if math.Abs(float64(y-1)) > 1e-5 {
		t.Errorf("frustum top edge projects to y = %f, want 1", y)
	}
}

func TestSetAspectRebuildsProjection(t *testing.T) {
	c := NewCamera(WithAspect(1))
	before := c.ProjectionMatrix()

	c.SetAspect(2)
	after := c.ProjectionMatrix()
	if before == after {
		t.Fatal("projection unchanged after aspect change")
	}
	// Widening the aspect shrinks x scaling, leaves y alone.
	if after[0] != before[0]/2 {
		t.Errorf("x scale = %f, want %f", after[0], before[0]/2)
	}
	if after[5] != before[5] {
		t.Errorf("y scale changed: %f -> %f", before[5], after[5])
	}

	// Setting the same aspect again is a no-op.
	c.SetAspect(2)
	if c.ProjectionMatrix() != after {
		t.Error("identical aspect rebuilt a different projection")
	}
}

func TestOrthographicProjectionIsParallel(t *testing.T) {
	c := NewCamera(
		WithProjection(ProjectionOrthographic),
		WithOrthoSize(5),
		WithAspect(2),
		WithClipRange(0.1, 50),
	)
	m := c.ProjectionMatrix()

	// Parallel projection: x and y are independent of depth.
	x1, y1, _ := projectView(m, 5, 2.5, -1)
	x2, y2, _ := projectView(m, 5, 2.5, -40)
	if x1 != x2 || y1 != y2 {
		t.Errorf("orthographic projection diverges with depth: (%f,%f) vs (%f,%f)", x1, y1, x2, y2)
	}
	// Half extents map to the NDC edges: vertical ±5, horizontal ±10.
	if math.Abs(float64(y1-0.5)) > 1e-5 {
		t.Errorf("y = %f, want 0.5", y1)
	}
	if math.Abs(float64(x1-0.5)) > 1e-5 {
		t.Errorf("x = %f, want 0.5", x1)
	}
}

func TestInverseProjectionRoundTrips(t *testing.T) {
	c := NewCamera(WithAspect(1.5), WithClipRange(0.5, 200))
	m := c.ProjectionMatrix()
	inv := c.InverseProjectionMatrix()

	// inv * m should be the identity.
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += inv[k*4+row] * m[col*4+k]
			}
			want := float32(0)
			if row == col {
				want = 1
			}
			if math.Abs(float64(sum-want)) > 1e-4 {
				t.Fatalf("inv*proj[%d][%d] = %f, want %f", row, col, sum, want)
			}
		}
	}
}
