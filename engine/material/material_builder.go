package material

import "github.com/lumen3d/lumen/common"

// MaterialBuilderOption is a function that configures a Material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the material identifier.
//
// Parameters:
//   - name: the material name
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the albedo RGBA factor.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//   - a: the alpha component
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(r, g, b, a float32) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = [4]float32{r, g, b, a}
	}
}

// WithMetallicRoughness is an option builder that sets the metallic and
// roughness factors.
//
// Parameters:
//   - metallic: the metallic factor (0 = dielectric, 1 = metal)
//   - roughness: the roughness factor (0 = smooth, 1 = rough)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic-roughness option to a material
func WithMetallicRoughness(metallic, roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
		m.roughness = roughness
	}
}

// WithEmissive is an option builder that sets the emissive RGB factor.
//
// Parameters:
//   - r: the red color component
//   - g: the green color component
//   - b: the blue color component
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emissive option to a material
func WithEmissive(r, g, b float32) MaterialBuilderOption {
	return func(m *material) {
		m.emissive = [3]float32{r, g, b}
	}
}

// WithNormalScale is an option builder that sets the scalar applied to the
// sampled normal map.
//
// Parameters:
//   - scale: the normal scale
//
// Returns:
//   - MaterialBuilderOption: a function that applies the normal scale option to a material
func WithNormalScale(scale float32) MaterialBuilderOption {
	return func(m *material) {
		m.normalScale = scale
	}
}

// WithOcclusionStrength is an option builder that sets the weight of the
// sampled occlusion texture.
//
// Parameters:
//   - strength: the occlusion strength
//
// Returns:
//   - MaterialBuilderOption: a function that applies the occlusion strength option to a material
func WithOcclusionStrength(strength float32) MaterialBuilderOption {
	return func(m *material) {
		m.occlusionStrength = strength
	}
}

// WithAlphaMode is an option builder that sets the material's alpha mode and
// the cutoff used by AlphaMask.
//
// Parameters:
//   - mode: the alpha mode
//   - cutoff: the alpha cutoff (meaningful for AlphaMask only)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the alpha option to a material
func WithAlphaMode(mode AlphaMode, cutoff float32) MaterialBuilderOption {
	return func(m *material) {
		m.alphaMode = mode
		m.alphaCutoff = cutoff
	}
}

// WithDoubleSided is an option builder that disables back-face culling for the
// material.
//
// Parameters:
//   - doubleSided: true to rasterize back faces
//
// Returns:
//   - MaterialBuilderOption: a function that applies the double-sided option to a material
func WithDoubleSided(doubleSided bool) MaterialBuilderOption {
	return func(m *material) {
		m.doubleSided = doubleSided
	}
}

// WithBaseColorTexture is an option builder that binds an albedo texture.
//
// Parameters:
//   - tex: the texture reference
//
// Returns:
//   - MaterialBuilderOption: a function that applies the albedo texture option to a material
func WithBaseColorTexture(tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		m.baseColorTexture = tex
	}
}

// WithNormalTexture is an option builder that binds a tangent-space normal map.
//
// Parameters:
//   - tex: the texture reference
//
// Returns:
//   - MaterialBuilderOption: a function that applies the normal texture option to a material
func WithNormalTexture(tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		m.normalTexture = tex
	}
}

// WithMetallicRoughnessTexture is an option builder that binds a combined
// metallic-roughness texture.
//
// Parameters:
//   - tex: the texture reference
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic-roughness texture option to a material
func WithMetallicRoughnessTexture(tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		m.metallicRoughnessTexture = tex
	}
}

// WithEmissiveTexture is an option builder that binds an emissive texture.
//
// Parameters:
//   - tex: the texture reference
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emissive texture option to a material
func WithEmissiveTexture(tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		m.emissiveTexture = tex
	}
}

// WithOcclusionTexture is an option builder that binds an ambient occlusion
// texture.
//
// Parameters:
//   - tex: the texture reference
//
// Returns:
//   - MaterialBuilderOption: a function that applies the occlusion texture option to a material
func WithOcclusionTexture(tex *common.ImportedTexture) MaterialBuilderOption {
	return func(m *material) {
		m.occlusionTexture = tex
	}
}
