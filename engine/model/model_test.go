package model

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestAttributesReflectPresentStreams(t *testing.T) {
	p := NewPrimitive(
		model3Positions(),
		WithNormals([][3]float32{{0, 1, 0}, {0, 1, 0}, {0, 1, 0}}),
		WithTexCoords([][2]float32{{0, 0}, {1, 0}, {0, 1}}),
	)
	want := AttrNormal | AttrTexCoord
	if p.Attributes() != want {
		t.Errorf("attributes = 0x%x, want 0x%x", uint32(p.Attributes()), uint32(want))
	}

	bare := NewPrimitive(model3Positions())
	if bare.Attributes() != 0 {
		t.Errorf("position-only primitive attributes = 0x%x", uint32(bare.Attributes()))
	}
}

func model3Positions() PrimitiveBuilderOption {
	return WithPositions([][3]float32{{-1, 0, 0}, {1, 0, 0}, {0, 2, 0}})
}

func TestBoundsAndBoundingSphere(t *testing.T) {
	p := NewPrimitive(model3Positions())
	min, max := p.Bounds()
	if min != [3]float32{-1, 0, 0} || max != [3]float32{1, 2, 0} {
		t.Errorf("bounds = %v .. %v", min, max)
	}

	center, radius := p.BoundingSphere()
	if center != [3]float32{0, 1, 0} {
		t.Errorf("sphere center = %v", center)
	}
	want := float32(math.Sqrt(2))
	if math.Abs(float64(radius-want)) > 1e-5 {
		t.Errorf("sphere radius = %f, want %f", radius, want)
	}
}

func TestPrimitiveIdentitiesAreUnique(t *testing.T) {
	a := NewPrimitive(model3Positions())
	b := NewPrimitive(model3Positions())
	if a.ID() == b.ID() {
		t.Error("two primitives share a content identity")
	}
}

func TestInterleaveVerticesFillsDefaults(t *testing.T) {
	p := NewPrimitive(WithPositions([][3]float32{{1, 2, 3}}))
	buf := InterleaveVertices(p)
	if len(buf) != 64 {
		t.Fatalf("buffer size = %d, want 64", len(buf))
	}
	at := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
	}
	if at(0) != 1 || at(4) != 2 || at(8) != 3 {
		t.Errorf("position = (%f, %f, %f)", at(0), at(4), at(8))
	}
	// Default normal is +Y.
	if at(12) != 0 || at(16) != 1 || at(20) != 0 {
		t.Errorf("default normal = (%f, %f, %f)", at(12), at(16), at(20))
	}
	// Default color is opaque white.
	for off := 32; off < 48; off += 4 {
		if at(off) != 1 {
			t.Errorf("default color component at %d = %f", off, at(off))
		}
	}
	// Default tangent is +X with positive handedness.
	if at(48) != 1 || at(60) != 1 {
		t.Errorf("default tangent = (%f, %f, %f, %f)", at(48), at(52), at(56), at(60))
	}
}

func TestInterleaveVerticesKeepsStreamData(t *testing.T) {
	p := NewPrimitive(
		WithPositions([][3]float32{{0, 0, 0}, {1, 1, 1}}),
		WithTexCoords([][2]float32{{0.25, 0.75}, {0.5, 1}}),
		WithColors([][4]float32{{1, 0, 0, 1}, {0, 1, 0, 1}}),
	)
	buf := InterleaveVertices(p)
	if len(buf) != 128 {
		t.Fatalf("buffer size = %d, want 128", len(buf))
	}
	at := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
	}
	// Vertex 0 UV at offset 24, vertex 1 UV at 64+24.
	if at(24) != 0.25 || at(28) != 0.75 {
		t.Errorf("vertex 0 uv = (%f, %f)", at(24), at(28))
	}
	if at(88) != 0.5 || at(92) != 1 {
		t.Errorf("vertex 1 uv = (%f, %f)", at(88), at(92))
	}
	// Vertex 1 color green channel at 64+36.
	if at(100) != 1 {
		t.Errorf("vertex 1 green = %f", at(100))
	}
}

func TestMeshPreservesPrimitiveOrder(t *testing.T) {
	a := NewPrimitive(model3Positions(), WithName("a"))
	b := NewPrimitive(model3Positions(), WithName("b"))
	m := NewMesh("pair", a, b)

	prims := m.Primitives()
	if len(prims) != 2 || prims[0].Name() != "a" || prims[1].Name() != "b" {
		t.Errorf("primitive order = %v", []string{prims[0].Name(), prims[1].Name()})
	}
}
