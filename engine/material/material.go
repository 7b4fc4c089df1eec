package material

import (
	"sync/atomic"

	"github.com/lumen3d/lumen/common"
)

// materialCount is an atomic counter used to assign a stable content identity
// to each material instance. The identity participates in shader variant keys
// and GPU resource cache keys.
var materialCount atomic.Uint64

// AlphaMode controls how a material's alpha channel affects rasterization.
type AlphaMode int

const (
	// AlphaOpaque ignores the alpha channel entirely. Opaque surfaces draw
	// first with depth writes enabled.
	AlphaOpaque AlphaMode = iota

	// AlphaMask discards fragments whose alpha falls below the cutoff.
	// Masked surfaces draw with the opaque set.
	AlphaMask

	// AlphaBlend composites the surface over the framebuffer using standard
	// alpha blending. Blended surfaces draw after all opaque geometry, sorted
	// back to front, with depth writes disabled.
	AlphaBlend
)

// FeatureMask is a bitmask describing which optional surface features a
// material uses. It is one axis of the shader variant key: two materials with
// the same mask compile to the same shader.
type FeatureMask uint32

const (
	// FeatureBaseColorTexture indicates an albedo texture is bound.
	FeatureBaseColorTexture FeatureMask = 1 << iota
	// FeatureNormalTexture indicates a tangent-space normal map is bound.
	FeatureNormalTexture
	// FeatureMetallicRoughnessTexture indicates a combined metallic-roughness texture is bound.
	FeatureMetallicRoughnessTexture
	// FeatureEmissiveTexture indicates an emissive texture is bound.
	FeatureEmissiveTexture
	// FeatureOcclusionTexture indicates an ambient occlusion texture is bound.
	FeatureOcclusionTexture
	// FeatureAlphaMask indicates fragments below the alpha cutoff are discarded.
	FeatureAlphaMask
)

// material is the implementation of the Material interface.
type material struct {
	id   uint64
	name string

	baseColor         [4]float32
	metallic          float32
	roughness         float32
	emissive          [3]float32
	normalScale       float32
	occlusionStrength float32
	alphaMode         AlphaMode
	alphaCutoff       float32
	doubleSided       bool

	baseColorTexture         *common.ImportedTexture
	normalTexture            *common.ImportedTexture
	metallicRoughnessTexture *common.ImportedTexture
	emissiveTexture          *common.ImportedTexture
	occlusionTexture         *common.ImportedTexture
}

// Material defines the interface for a physically based render material,
// encapsulating surface properties and texture references.
//
// Materials are immutable after construction: every property is fixed by the
// builder options, so a material's feature mask and content identity never
// change. Sharing a material across primitives shares its shader variant and
// its cached GPU resources.
type Material interface {
	// ID returns the material's content identity. Two materials share GPU
	// resources only if they are the same instance.
	//
	// Returns:
	//   - uint64: the content identity
	ID() uint64

	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the albedo RGBA factor of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Emissive retrieves the emissive RGB factor of the material.
	//
	// Returns:
	//   - [3]float32: the emissive color
	Emissive() [3]float32

	// NormalScale retrieves the scalar applied to the sampled normal map.
	//
	// Returns:
	//   - float32: the normal scale
	NormalScale() float32

	// OcclusionStrength retrieves the weight of the sampled occlusion texture.
	//
	// Returns:
	//   - float32: the occlusion strength
	OcclusionStrength() float32

	// Alpha retrieves the material's alpha mode and the cutoff used by
	// AlphaMask.
	//
	// Returns:
	//   - AlphaMode: the alpha mode
	//   - float32: the alpha cutoff (meaningful for AlphaMask only)
	Alpha() (AlphaMode, float32)

	// DoubleSided reports whether back faces are rasterized.
	//
	// Returns:
	//   - bool: true if back-face culling is disabled for this material
	DoubleSided() bool

	// BaseColorTexture retrieves the albedo texture reference, or nil if none is set.
	//
	// Returns:
	//   - *common.ImportedTexture: the albedo texture, or nil
	BaseColorTexture() *common.ImportedTexture

	// NormalTexture retrieves the normal map texture reference, or nil if none is set.
	//
	// Returns:
	//   - *common.ImportedTexture: the normal texture, or nil
	NormalTexture() *common.ImportedTexture

	// MetallicRoughnessTexture retrieves the combined metallic-roughness
	// texture reference, or nil if none is set.
	//
	// Returns:
	//   - *common.ImportedTexture: the metallic-roughness texture, or nil
	MetallicRoughnessTexture() *common.ImportedTexture

	// EmissiveTexture retrieves the emissive texture reference, or nil if none is set.
	//
	// Returns:
	//   - *common.ImportedTexture: the emissive texture, or nil
	EmissiveTexture() *common.ImportedTexture

	// OcclusionTexture retrieves the ambient occlusion texture reference, or nil if none is set.
	//
	// Returns:
	//   - *common.ImportedTexture: the occlusion texture, or nil
	OcclusionTexture() *common.ImportedTexture

	// Features returns the bitmask of optional surface features this material
	// uses, derived from its bound textures and alpha mode.
	//
	// Returns:
	//   - FeatureMask: the feature bitmask
	Features() FeatureMask
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		id:                materialCount.Add(1),
		baseColor:         [4]float32{1, 1, 1, 1},
		metallic:          0.0,
		roughness:         1.0,
		normalScale:       1.0,
		occlusionStrength: 1.0,
		alphaMode:         AlphaOpaque,
		alphaCutoff:       0.5,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) ID() uint64 {
	return m.id
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	return m.baseColor
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	return m.roughness
}

func (m *material) Emissive() [3]float32 {
	return m.emissive
}

func (m *material) NormalScale() float32 {
	return m.normalScale
}

func (m *material) OcclusionStrength() float32 {
	return m.occlusionStrength
}

func (m *material) Alpha() (AlphaMode, float32) {
	return m.alphaMode, m.alphaCutoff
}

func (m *material) DoubleSided() bool {
	return m.doubleSided
}

func (m *material) BaseColorTexture() *common.ImportedTexture {
	return m.baseColorTexture
}

func (m *material) NormalTexture() *common.ImportedTexture {
	return m.normalTexture
}

func (m *material) MetallicRoughnessTexture() *common.ImportedTexture {
	return m.metallicRoughnessTexture
}

func (m *material) EmissiveTexture() *common.ImportedTexture {
	return m.emissiveTexture
}

func (m *material) OcclusionTexture() *common.ImportedTexture {
	return m.occlusionTexture
}

func (m *material) Features() FeatureMask {
	var mask FeatureMask
	if m.baseColorTexture != nil {
		mask |= FeatureBaseColorTexture
	}
	if m.normalTexture != nil {
		mask |= FeatureNormalTexture
	}
	if m.metallicRoughnessTexture != nil {
		mask |= FeatureMetallicRoughnessTexture
	}
	if m.emissiveTexture != nil {
		mask |= FeatureEmissiveTexture
	}
	if m.occlusionTexture != nil {
		mask |= FeatureOcclusionTexture
	}
	if m.alphaMode == AlphaMask {
		mask |= FeatureAlphaMask
	}
	return mask
}
