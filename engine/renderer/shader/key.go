package shader

import (
	"fmt"

	"github.com/lumen3d/lumen/engine/light"
	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/model"
)

// PassKind identifies which render pass a shader variant serves.
type PassKind uint8

const (
	// PassForward is the lit forward pass rendering into the color target.
	PassForward PassKind = iota

	// PassShadow is the depth-only pass rendering into a shadow map.
	PassShadow
)

// RenderMode selects the shading model for the forward pass. Shadow variants
// ignore the mode.
type RenderMode uint8

const (
	// ModeLit evaluates the full PBR lighting model.
	ModeLit RenderMode = iota

	// ModeUnlit outputs the base color with no lighting. Used for debugging
	// and for emissive-only content.
	ModeUnlit

	// ModeNormals visualizes world-space normals as colors. Debug aid.
	ModeNormals
)

// VariantKey identifies one shader variant. Every axis that changes the
// generated WGSL is part of the key; two draws with equal keys share one
// compiled program. Keys must be normalized via Normalize before cache lookup
// so that axes irrelevant to a pass or mode cannot multiply variants.
type VariantKey struct {
	// Pass is the render pass the variant serves.
	Pass PassKind

	// Mode is the forward shading model. Zero for shadow variants.
	Mode RenderMode

	// Attributes is the vertex attribute mask of the primitive.
	Attributes model.AttributeMask

	// Features is the material feature mask of the primitive's material.
	Features material.FeatureMask

	// ShadowCasters is the number of occupied shadow slots, 0 to
	// light.MaxShadowCasters. Zero disables all shadow sampling code.
	ShadowCasters uint8

	// PointShadows enables the cube shadow map sampling path for point lights.
	PointShadows bool
}

// shadowRelevantFeatures are the material features that affect a depth-only
// pass: alpha-masked cutouts still need the base color texture to discard.
const shadowRelevantFeatures = material.FeatureAlphaMask | material.FeatureBaseColorTexture

// Normalize zeroes the key axes that do not affect the generated source for
// the key's pass and mode, so equivalent draws collapse onto one variant.
//
// Returns:
//   - VariantKey: the normalized key
func (k VariantKey) Normalize() VariantKey {
	if k.ShadowCasters > light.MaxShadowCasters {
		k.ShadowCasters = light.MaxShadowCasters
	}

	switch k.Pass {
	case PassShadow:
		k.Mode = ModeLit
		k.ShadowCasters = 0
		k.PointShadows = false
		// Depth-only output: only the cutout path reads any attribute or
		// material state beyond position.
		if k.Features&material.FeatureAlphaMask != 0 {
			k.Features &= shadowRelevantFeatures
			k.Attributes &= model.AttrTexCoord
		} else {
			k.Features = 0
			k.Attributes = 0
		}
	case PassForward:
		switch k.Mode {
		case ModeUnlit:
			k.ShadowCasters = 0
			k.PointShadows = false
			k.Features &= material.FeatureBaseColorTexture | material.FeatureEmissiveTexture | material.FeatureAlphaMask
			k.Attributes &= model.AttrTexCoord | model.AttrColor
		case ModeNormals:
			k.ShadowCasters = 0
			k.PointShadows = false
			k.Features = 0
			k.Attributes &= model.AttrNormal | model.AttrTangent | model.AttrTexCoord
		default:
			if k.ShadowCasters == 0 {
				k.PointShadows = false
			}
			// Normal mapping needs both a map and the tangent frame.
			if k.Attributes&model.AttrTangent == 0 || k.Attributes&model.AttrTexCoord == 0 {
				k.Features &^= material.FeatureNormalTexture
			}
			// Texture features without UVs degrade to factors.
			if k.Attributes&model.AttrTexCoord == 0 {
				k.Features &^= material.FeatureBaseColorTexture |
					material.FeatureMetallicRoughnessTexture |
					material.FeatureEmissiveTexture |
					material.FeatureOcclusionTexture
			}
		}
	}
	return k
}

// String renders the key for logs and compile diagnostics.
//
// Returns:
//   - string: a stable human-readable key description
func (k VariantKey) String() string {
	pass := "forward"
	if k.Pass == PassShadow {
		pass = "shadow"
	}
	mode := "lit"
	switch k.Mode {
	case ModeUnlit:
		mode = "unlit"
	case ModeNormals:
		mode = "normals"
	}
	return fmt.Sprintf("%s/%s attrs=0x%x feats=0x%x shadows=%d point=%t",
		pass, mode, uint32(k.Attributes), uint32(k.Features), k.ShadowCasters, k.PointShadows)
}
