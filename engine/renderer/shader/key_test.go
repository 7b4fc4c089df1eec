package shader

import (
	"testing"

	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/model"
)

func TestNormalizeShadowPassDropsForwardAxes(t *testing.T) {
	key := VariantKey{
		Pass:          PassShadow,
		Mode:          ModeNormals,
		Attributes:    model.AttrNormal | model.AttrTangent | model.AttrTexCoord | model.AttrColor,
		Features:      material.FeatureNormalTexture | material.FeatureEmissiveTexture,
		ShadowCasters: 3,
		PointShadows:  true,
	}

	got := key.Normalize()
	if got.ShadowCasters != 0 || got.PointShadows {
		t.Errorf("shadow variant kept shadow sampling axes: %+v", got)
	}
	if got.Features != 0 || got.Attributes != 0 {
		t.Errorf("opaque shadow variant should reduce to position-only, got %+v", got)
	}
}

func TestNormalizeShadowPassKeepsCutout(t *testing.T) {
	key := VariantKey{
		Pass:       PassShadow,
		Attributes: model.AttrNormal | model.AttrTexCoord,
		Features:   material.FeatureAlphaMask | material.FeatureBaseColorTexture | material.FeatureNormalTexture,
	}

	got := key.Normalize()
	if got.Features != material.FeatureAlphaMask|material.FeatureBaseColorTexture {
		t.Errorf("cutout shadow features = 0x%x", uint32(got.Features))
	}
	if got.Attributes != model.AttrTexCoord {
		t.Errorf("cutout shadow attributes = 0x%x", uint32(got.Attributes))
	}
}

func TestNormalizeDropsNormalMapWithoutTangents(t *testing.T) {
	key := VariantKey{
		Pass:       PassForward,
		Mode:       ModeLit,
		Attributes: model.AttrNormal | model.AttrTexCoord,
		Features:   material.FeatureNormalTexture | material.FeatureBaseColorTexture,
	}

	got := key.Normalize()
	if got.Features&material.FeatureNormalTexture != 0 {
		t.Error("normal mapping requires tangents, feature should be dropped")
	}
	if got.Features&material.FeatureBaseColorTexture == 0 {
		t.Error("base color texture should survive")
	}
}

func TestNormalizeDropsTexturesWithoutUVs(t *testing.T) {
	key := VariantKey{
		Pass:       PassForward,
		Mode:       ModeLit,
		Attributes: model.AttrNormal,
		Features: material.FeatureBaseColorTexture | material.FeatureMetallicRoughnessTexture |
			material.FeatureEmissiveTexture | material.FeatureOcclusionTexture,
	}

	got := key.Normalize()
	if got.Features != 0 {
		t.Errorf("texture features without UVs should degrade to factors, got 0x%x", uint32(got.Features))
	}
}

func TestNormalizeEquivalentDrawsShareKeys(t *testing.T) {
	a := VariantKey{Pass: PassForward, Mode: ModeUnlit, Attributes: model.AttrNormal | model.AttrTangent, ShadowCasters: 2}
	b := VariantKey{Pass: PassForward, Mode: ModeUnlit, PointShadows: true}

	if a.Normalize() != b.Normalize() {
		t.Errorf("unlit draws differing only on lit axes should collapse: %+v vs %+v", a.Normalize(), b.Normalize())
	}
}

func TestNormalizePointShadowsRequireSlots(t *testing.T) {
	key := VariantKey{Pass: PassForward, Mode: ModeLit, PointShadows: true}
	if got := key.Normalize(); got.PointShadows {
		t.Error("point shadows without any shadow slots should normalize away")
	}
}
