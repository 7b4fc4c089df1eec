package material

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/lumen3d/lumen/common"
)

func TestFeaturesReflectBoundTextures(t *testing.T) {
	plain := NewMaterial(WithName("plain"))
	if plain.Features() != 0 {
		t.Errorf("textureless material features = 0x%x, want 0", uint32(plain.Features()))
	}

	tex := &common.ImportedTexture{Name: "t"}
	m := NewMaterial(
		WithBaseColorTexture(tex),
		WithNormalTexture(tex),
		WithOcclusionTexture(tex),
	)
	want := FeatureBaseColorTexture | FeatureNormalTexture | FeatureOcclusionTexture
	if m.Features() != want {
		t.Errorf("features = 0x%x, want 0x%x", uint32(m.Features()), uint32(want))
	}
}

func TestAlphaMaskIsAFeature(t *testing.T) {
	cutout := NewMaterial(WithAlphaMode(AlphaMask, 0.5))
	if cutout.Features()&FeatureAlphaMask == 0 {
		t.Error("alpha-masked material missing the cutout feature")
	}
	mode, cutoff := cutout.Alpha()
	if mode != AlphaMask || cutoff != 0.5 {
		t.Errorf("alpha = %v/%f", mode, cutoff)
	}

	// Blending affects draw ordering and pipeline state, not the feature mask.
	blended := NewMaterial(WithAlphaMode(AlphaBlend, 0))
	if blended.Features()&FeatureAlphaMask != 0 {
		t.Error("blended material carries the cutout feature")
	}
}

func TestMaterialsAreDistinctIdentities(t *testing.T) {
	a := NewMaterial(WithName("same"))
	b := NewMaterial(WithName("same"))
	if a.ID() == b.ID() {
		t.Error("two materials share a content identity")
	}
}

func TestGPUMaterialUniformLayout(t *testing.T) {
	m := NewMaterial(
		WithBaseColor(0.1, 0.2, 0.3, 0.4),
		WithMetallicRoughness(0.9, 0.6),
		WithEmissive(1, 2, 3),
		WithNormalScale(1.5),
		WithOcclusionStrength(0.7),
		WithAlphaMode(AlphaMask, 0.25),
	)
	g := ToGPUMaterialUniform(m)
	if g.Size() != 48 {
		t.Fatalf("uniform size = %d, want 48", g.Size())
	}

	buf := g.Marshal()
	if len(buf) != 48 {
		t.Fatalf("marshaled size = %d, want 48", len(buf))
	}
	at := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
	}
	if at(4) != 0.2 {
		t.Errorf("base color green at offset 4 = %f", at(4))
	}
	if at(20) != 2 {
		t.Errorf("emissive green at offset 20 = %f", at(20))
	}
	if at(28) != 1.5 {
		t.Errorf("normal scale at offset 28 = %f", at(28))
	}
	if at(32) != 0.9 || at(36) != 0.6 {
		t.Errorf("metallic/roughness = %f/%f", at(32), at(36))
	}
	if at(40) != 0.7 {
		t.Errorf("occlusion strength at offset 40 = %f", at(40))
	}
	if at(44) != 0.25 {
		t.Errorf("alpha cutoff at offset 44 = %f", at(44))
	}
}
