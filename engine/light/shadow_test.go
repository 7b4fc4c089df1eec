package light

import (
	"math"
	"testing"
)

// projectNDC applies a view-projection matrix to a world point and performs
// the perspective divide, returning normalized device coordinates.
func projectNDC(vp [16]float32, p [3]float32) ([3]float32, bool) {
	x := vp[0]*p[0] + vp[4]*p[1] + vp[8]*p[2] + vp[12]
	y := vp[1]*p[0] + vp[5]*p[1] + vp[9]*p[2] + vp[13]
	z := vp[2]*p[0] + vp[6]*p[1] + vp[10]*p[2] + vp[14]
	w := vp[3]*p[0] + vp[7]*p[1] + vp[11]*p[2] + vp[15]
	if w <= 0 {
		return [3]float32{}, false
	}
	return [3]float32{x / w, y / w, z / w}, true
}

func insideNDC(ndc [3]float32) bool {
	return ndc[0] >= -1 && ndc[0] <= 1 &&
		ndc[1] >= -1 && ndc[1] <= 1 &&
		ndc[2] >= 0 && ndc[2] <= 1
}

func TestDirectionalShadowVPFramesTheExtent(t *testing.T) {
	center := [3]float32{0, 0, 0}
	vp := DirectionalShadowVP([3]float32{0, -1, 0}, center, 10, 0.1, 40)

	ndc, ok := projectNDC(vp, center)
	if !ok {
		t.Fatal("frustum center behind the light eye")
	}
	if absF32(ndc[0]) > 1e-4 || absF32(ndc[1]) > 1e-4 {
		t.Errorf("center projects to (%f, %f), want the map center", ndc[0], ndc[1])
	}
	if ndc[2] <= 0 || ndc[2] >= 1 {
		t.Errorf("center depth = %f, want inside (0, 1)", ndc[2])
	}

	for _, p := range [][3]float32{{9, 0, 0}, {-9, 0, 9}, {0, 0, -9}} {
		ndc, ok := projectNDC(vp, p)
		if !ok || !insideNDC(ndc) {
			t.Errorf("point %v inside the extent projects outside the map: %v", p, ndc)
		}
	}
	if ndc, ok := projectNDC(vp, [3]float32{15, 0, 0}); ok && insideNDC(ndc) {
		t.Error("point beyond the half extent should fall off the map")
	}
}

func TestSpotShadowVPCoversTheCone(t *testing.T) {
	position := [3]float32{0, 5, 0}
	outerCos := float32(math.Cos(35 * math.Pi / 180))
	vp := SpotShadowVP(position, [3]float32{0, -1, 0}, outerCos, 0.1, 10)

	// A point straight down the axis lands at the map center.
	ndc, ok := projectNDC(vp, [3]float32{0, 0, 0})
	if !ok {
		t.Fatal("axis point behind the light")
	}
	if absF32(ndc[0]) > 1e-4 || absF32(ndc[1]) > 1e-4 {
		t.Errorf("axis point projects to (%f, %f)", ndc[0], ndc[1])
	}

	// A point on the cone edge stays on the map; the projection is widened
	// past the cone so the soft edge is covered.
	edge := float32(math.Tan(35*math.Pi/180)) * 5
	if ndc, ok := projectNDC(vp, [3]float32{edge, 0, 0}); !ok || !insideNDC(ndc) {
		t.Errorf("cone edge point projects outside the map: %v", ndc)
	}

	// Well outside the cone falls off.
	far := float32(math.Tan(60*math.Pi/180)) * 5
	if ndc, ok := projectNDC(vp, [3]float32{far, 0, 0}); ok && insideNDC(ndc) {
		t.Error("point far outside the cone should fall off the map")
	}
}

func TestPointShadowVPsCoverAllAxes(t *testing.T) {
	position := [3]float32{1, 2, 3}
	vps := PointShadowVPs(position, 0.1, 20)

	// WebGPU cube face order: +X, -X, +Y, -Y, +Z, -Z. A point a few units
	// along each face's axis projects to that face's center.
	axes := [CubeFaceCount][3]float32{
		{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1},
	}
	for face, axis := range axes {
		p := [3]float32{
			position[0] + axis[0]*5,
			position[1] + axis[1]*5,
			position[2] + axis[2]*5,
		}
		ndc, ok := projectNDC(vps[face], p)
		if !ok {
			t.Fatalf("face %d does not see its own axis", face)
		}
		if absF32(ndc[0]) > 1e-4 || absF32(ndc[1]) > 1e-4 {
			t.Errorf("face %d axis point projects to (%f, %f), want the center", face, ndc[0], ndc[1])
		}
		if ndc[2] <= 0 || ndc[2] >= 1 {
			t.Errorf("face %d axis depth = %f", face, ndc[2])
		}

		// The opposite axis is behind this face.
		behind := [3]float32{
			position[0] - axis[0]*5,
			position[1] - axis[1]*5,
			position[2] - axis[2]*5,
		}
		if _, ok := projectNDC(vps[face], behind); ok {
			t.Errorf("face %d sees the opposite axis", face)
		}
	}
}
