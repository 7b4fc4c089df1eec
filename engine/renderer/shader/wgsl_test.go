package shader

import (
	"strings"
	"testing"

	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/model"
)

func TestGenerateForwardLitConditionalBlocks(t *testing.T) {
	tests := []struct {
		name    string
		key     VariantKey
		want    []string
		exclude []string
	}{
		{
			name: "minimal lit",
			key:  VariantKey{Pass: PassForward, Mode: ModeLit, Attributes: model.AttrNormal},
			want: []string{
				"@vertex", "@fragment", "distribution_ggx", "light_buf.header.count",
			},
			exclude: []string{
				"base_color_tex", "shadow_maps", "point_shadow_map", "textureSample(",
			},
		},
		{
			name: "textured with shadows",
			key: VariantKey{
				Pass:          PassForward,
				Mode:          ModeLit,
				Attributes:    model.AttrNormal | model.AttrTangent | model.AttrTexCoord,
				Features:      material.FeatureBaseColorTexture | material.FeatureNormalTexture,
				ShadowCasters: 2,
			},
			want: []string{
				"base_color_tex", "normal_tex", "shadow_maps", "sampler_comparison",
				"shadow_factor", "mat3x3<f32>(t, bt, n)",
			},
			exclude: []string{"point_shadow_map", "mr_tex"},
		},
		{
			name: "point shadows",
			key: VariantKey{
				Pass:          PassForward,
				Mode:          ModeLit,
				Attributes:    model.AttrNormal,
				ShadowCasters: 1,
				PointShadows:  true,
			},
			want:    []string{"point_shadow_map", "texture_depth_cube", "point_shadow_factor"},
			exclude: []string{},
		},
		{
			name:    "unlit",
			key:     VariantKey{Pass: PassForward, Mode: ModeUnlit},
			want:    []string{"@fragment", "material_u.base_color"},
			exclude: []string{"light_buf", "distribution_ggx", "shadow_maps"},
		},
		{
			name:    "normals debug",
			key:     VariantKey{Pass: PassForward, Mode: ModeNormals, Attributes: model.AttrNormal},
			want:    []string{"n * 0.5"},
			exclude: []string{"light_buf", "material_u.base_color"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := GenerateWGSL(tt.key.Normalize())
			for _, w := range tt.want {
				if !strings.Contains(src, w) {
					t.Errorf("generated source missing %q", w)
				}
			}
			for _, e := range tt.exclude {
				if strings.Contains(src, e) {
					t.Errorf("generated source should not contain %q", e)
				}
			}
		})
	}
}

func TestGenerateShadowVariants(t *testing.T) {
	opaque := VariantKey{Pass: PassShadow}.Normalize()
	src := GenerateWGSL(opaque)
	if !strings.Contains(src, "light_vp") || !strings.Contains(src, "@vertex") {
		t.Error("shadow variant missing vertex transform")
	}
	if strings.Contains(src, "@fragment") {
		t.Error("opaque shadow variant should be depth-only")
	}
	if HasFragmentStage(opaque) {
		t.Error("HasFragmentStage(opaque shadow) = true")
	}

	cutout := VariantKey{
		Pass:       PassShadow,
		Attributes: model.AttrTexCoord,
		Features:   material.FeatureAlphaMask | material.FeatureBaseColorTexture,
	}.Normalize()
	src = GenerateWGSL(cutout)
	if !strings.Contains(src, "discard") || !strings.Contains(src, "alpha_cutoff") {
		t.Error("cutout shadow variant must discard below the cutoff")
	}
	if !HasFragmentStage(cutout) {
		t.Error("HasFragmentStage(cutout shadow) = false")
	}
}

func TestSelectorCachesByNormalizedKey(t *testing.T) {
	s := NewSelector()

	a, err := s.Variant(VariantKey{Pass: PassForward, Mode: ModeUnlit, ShadowCasters: 3})
	if err != nil {
		t.Fatalf("Variant: %v", err)
	}
	b, err := s.Variant(VariantKey{Pass: PassForward, Mode: ModeUnlit, PointShadows: true})
	if err != nil {
		t.Fatalf("Variant: %v", err)
	}

	if a != b {
		t.Error("draws with equivalent normalized keys must share one variant")
	}
	if s.Count() != 1 {
		t.Errorf("Count() = %d, want 1", s.Count())
	}
	if len(a.SPIRV()) == 0 {
		t.Error("validated variant should carry its SPIR-V translation")
	}

	s.Clear()
	if s.Count() != 0 {
		t.Errorf("Count() after Clear = %d, want 0", s.Count())
	}
}
