package light

import (
	"encoding/binary"
	"math"
	"testing"
)

func f32At(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset : offset+4]))
}

func TestGPULightMarshalLayout(t *testing.T) {
	g := GPULight{
		Position:   [3]float32{1, 2, 3},
		LightType:  uint32(LightTypeSpot),
		Color:      [3]float32{0.5, 0.25, 0.125},
		Intensity:  4,
		Direction:  [3]float32{0, -1, 0},
		LightRange: 25,
		InnerCone:  0.9,
		OuterCone:  0.8,
		ShadowSlot: 2,
	}
	if g.Size() != 64 {
		t.Fatalf("GPULight size = %d, want 64", g.Size())
	}
	buf := g.Marshal()
	if len(buf) != 64 {
		t.Fatalf("marshaled size = %d, want 64", len(buf))
	}
	if got := binary.LittleEndian.Uint32(buf[12:16]); got != uint32(LightTypeSpot) {
		t.Errorf("light type at offset 12 = %d", got)
	}
	if got := f32At(buf, 28); got != 4 {
		t.Errorf("intensity at offset 28 = %f", got)
	}
	if got := f32At(buf, 44); got != 25 {
		t.Errorf("range at offset 44 = %f", got)
	}
	if got := binary.LittleEndian.Uint32(buf[56:60]); got != 2 {
		t.Errorf("shadow slot at offset 56 = %d", got)
	}
}

func TestToGPULightStartsUnshadowed(t *testing.T) {
	l := NewLight(LightTypePoint, WithIntensity(3), WithRange(12), WithCastsShadows(true))
	g := ToGPULight(l, [3]float32{5, 6, 7}, [3]float32{0, -1, 0})

	if g.LightType != uint32(LightTypePoint) {
		t.Errorf("light type = %d", g.LightType)
	}
	if g.Position != [3]float32{5, 6, 7} {
		t.Errorf("position = %v, want the resolved world position", g.Position)
	}
	if g.Intensity != 3 || g.LightRange != 12 {
		t.Errorf("intensity/range = %f/%f", g.Intensity, g.LightRange)
	}
	// Slot assignment happens during the shadow pass, never at conversion.
	if g.ShadowSlot != NoShadowSlot {
		t.Errorf("shadow slot = %d, want NoShadowSlot", g.ShadowSlot)
	}
}

func TestMarshalLightBufferHeaderAndCap(t *testing.T) {
	lights := []GPULight{
		{LightType: uint32(LightTypeDirectional)},
		{LightType: uint32(LightTypePoint)},
	}
	buf := MarshalLightBuffer(lights, [3]float32{0.1, 0.2, 0.3})
	if len(buf) != 16+2*64 {
		t.Fatalf("buffer size = %d, want %d", len(buf), 16+2*64)
	}
	if got := f32At(buf, 4); got != 0.2 {
		t.Errorf("ambient green = %f", got)
	}
	if got := binary.LittleEndian.Uint32(buf[12:16]); got != 2 {
		t.Errorf("light count = %d", got)
	}

	over := make([]GPULight, MaxGPULights+10)
	buf = MarshalLightBuffer(over, [3]float32{})
	if len(buf) != 16+MaxGPULights*64 {
		t.Errorf("overfull buffer size = %d, want capped at %d lights", len(buf), MaxGPULights)
	}
	if got := binary.LittleEndian.Uint32(buf[12:16]); got != MaxGPULights {
		t.Errorf("overfull light count = %d, want %d", got, MaxGPULights)
	}
}

func TestMarshalShadowBufferAlwaysFullSize(t *testing.T) {
	slots := []GPUShadowData{{Bias: 0.002}}
	buf := MarshalShadowBuffer(slots)
	if len(buf) != MaxShadowCasters*80 {
		t.Fatalf("buffer size = %d, want %d", len(buf), MaxShadowCasters*80)
	}
	if got := f32At(buf, 72); got != 0.002 {
		t.Errorf("slot 0 bias = %f", got)
	}
	// Unassigned slots are zeroed.
	for off := 80; off < 160; off += 4 {
		if got := binary.LittleEndian.Uint32(buf[off : off+4]); got != 0 {
			t.Fatalf("unassigned slot byte at %d = %d", off, got)
		}
	}
}

func TestComputeNormalBiasScalesWithTexelSize(t *testing.T) {
	var s GPUShadowData
	s.ComputeNormalBias(10, 2, 2048)
	want := 2.0 * float32(10) / 2048 * 2
	if s.NormalBias != want {
		t.Errorf("normal bias = %f, want %f", s.NormalBias, want)
	}

	// Halving the resolution doubles the per-texel world size and the bias.
	var coarse GPUShadowData
	coarse.ComputeNormalBias(10, 2, 1024)
	if coarse.NormalBias != want*2 {
		t.Errorf("coarse bias = %f, want %f", coarse.NormalBias, want*2)
	}
}
