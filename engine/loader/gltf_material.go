package loader

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/lumen3d/lumen/common"
	"github.com/lumen3d/lumen/engine/material"
)

// extractGLTFMaterials converts every material in the document into an
// engine material, resolving referenced textures into ImportedTextures.
// Embedded images (buffer views and data URIs) carry their bytes; external
// images carry a path resolved against the document's directory.
func extractGLTFMaterials(doc *gltf.Document, baseDir string) ([]material.Material, error) {
	materials := make([]material.Material, len(doc.Materials))
	for i, src := range doc.Materials {
		mat, err := extractGLTFMaterial(doc, src, baseDir)
		if err != nil {
			return nil, fmt.Errorf("material %d (%q): %w", i, src.Name, err)
		}
		materials[i] = mat
	}
	return materials, nil
}

func extractGLTFMaterial(doc *gltf.Document, src *gltf.Material, baseDir string) (material.Material, error) {
	options := []material.MaterialBuilderOption{
		material.WithName(src.Name),
	}

	if pbr := src.PBRMetallicRoughness; pbr != nil {
		base := pbr.BaseColorFactorOrDefault()
		options = append(options,
			material.WithBaseColor(float32(base[0]), float32(base[1]), float32(base[2]), float32(base[3])),
			material.WithMetallicRoughness(float32(pbr.MetallicFactorOrDefault()), float32(pbr.RoughnessFactorOrDefault())),
		)

		if pbr.BaseColorTexture != nil {
			tex, err := resolveGLTFTexture(doc, pbr.BaseColorTexture.Index, baseDir, "baseColor")
			if err != nil {
				return nil, fmt.Errorf("base color texture: %w", err)
			}
			options = append(options, material.WithBaseColorTexture(tex))
		}
		if pbr.MetallicRoughnessTexture != nil {
			tex, err := resolveGLTFTexture(doc, pbr.MetallicRoughnessTexture.Index, baseDir, "metallicRoughness")
			if err != nil {
				return nil, fmt.Errorf("metallic-roughness texture: %w", err)
			}
			options = append(options, material.WithMetallicRoughnessTexture(tex))
		}
	}

	emissive := src.EmissiveFactor
	options = append(options, material.WithEmissive(float32(emissive[0]), float32(emissive[1]), float32(emissive[2])))

	if src.NormalTexture != nil && src.NormalTexture.Index != nil {
		tex, err := resolveGLTFTexture(doc, *src.NormalTexture.Index, baseDir, "normal")
		if err != nil {
			return nil, fmt.Errorf("normal texture: %w", err)
		}
		options = append(options,
			material.WithNormalTexture(tex),
			material.WithNormalScale(float32(src.NormalTexture.ScaleOrDefault())),
		)
	}

	if src.OcclusionTexture != nil && src.OcclusionTexture.Index != nil {
		tex, err := resolveGLTFTexture(doc, *src.OcclusionTexture.Index, baseDir, "occlusion")
		if err != nil {
			return nil, fmt.Errorf("occlusion texture: %w", err)
		}
		options = append(options,
			material.WithOcclusionTexture(tex),
			material.WithOcclusionStrength(float32(src.OcclusionTexture.StrengthOrDefault())),
		)
	}

	if src.EmissiveTexture != nil {
		tex, err := resolveGLTFTexture(doc, src.EmissiveTexture.Index, baseDir, "emissive")
		if err != nil {
			return nil, fmt.Errorf("emissive texture: %w", err)
		}
		options = append(options, material.WithEmissiveTexture(tex))
	}

	switch src.AlphaMode {
	case gltf.AlphaMask:
		options = append(options, material.WithAlphaMode(material.AlphaMask, float32(src.AlphaCutoffOrDefault())))
	case gltf.AlphaBlend:
		options = append(options, material.WithAlphaMode(material.AlphaBlend, 0))
	}

	if src.DoubleSided {
		options = append(options, material.WithDoubleSided(true))
	}

	return material.NewMaterial(options...), nil
}

// resolveGLTFTexture resolves a texture index into an ImportedTexture with
// image bytes (embedded) or a file path (external), plus sampler parameters
// when the texture references a sampler.
func resolveGLTFTexture(doc *gltf.Document, textureIndex int, baseDir, role string) (*common.ImportedTexture, error) {
	if textureIndex < 0 || textureIndex >= len(doc.Textures) {
		return nil, fmt.Errorf("texture index %d out of range", textureIndex)
	}

	tex := doc.Textures[textureIndex]
	if tex.Source == nil {
		return nil, fmt.Errorf("texture %d has no image source", textureIndex)
	}

	imageIndex := *tex.Source
	if imageIndex < 0 || imageIndex >= len(doc.Images) {
		return nil, fmt.Errorf("image index %d out of range", imageIndex)
	}
	img := doc.Images[imageIndex]

	result := &common.ImportedTexture{
		Name:     img.Name,
		MimeType: img.MimeType,
	}
	if result.Name == "" {
		result.Name = role
	}

	if tex.Sampler != nil && *tex.Sampler >= 0 && *tex.Sampler < len(doc.Samplers) {
		result.SamplerData = gltfSamplerToStagingData(doc.Samplers[*tex.Sampler])
	}

	switch {
	case img.BufferView != nil:
		data, err := modeler.ReadBufferView(doc, doc.BufferViews[*img.BufferView])
		if err != nil {
			return nil, fmt.Errorf("failed to read image buffer view: %w", err)
		}
		result.Data = data

	case strings.HasPrefix(img.URI, "data:"):
		data, mimeType, err := gltfDecodeDataURI(img.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to decode image data URI: %w", err)
		}
		result.Data = data
		if result.MimeType == "" {
			result.MimeType = mimeType
		}

	case img.URI != "":
		result.Path = filepath.Join(baseDir, img.URI)

	default:
		return nil, fmt.Errorf("image %d has neither buffer view nor URI", imageIndex)
	}

	return result, nil
}

// gltfDecodeDataURI decodes a base64 data URI into raw bytes and extracts
// the MIME type. Format: data:[<mediatype>][;base64],<data>
func gltfDecodeDataURI(uri string) ([]byte, string, error) {
	commaIdx := strings.Index(uri, ",")
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("malformed data URI: no comma found")
	}

	header := uri[5:commaIdx]
	if !strings.Contains(header, "base64") {
		return nil, "", fmt.Errorf("unsupported data URI encoding: %s", header)
	}
	mimeType := strings.TrimSuffix(header, ";base64")

	data, err := base64.StdEncoding.DecodeString(uri[commaIdx+1:])
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode base64: %w", err)
	}

	return data, mimeType, nil
}

// gltfSamplerToStagingData converts a glTF sampler definition into sampler
// staging data. Unset filters fall back to the glTF defaults of linear
// filtering and repeat wrapping.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
func gltfSamplerToStagingData(s *gltf.Sampler) *common.SamplerStagingData {
	result := &common.SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}

	if s.MagFilter == gltf.MagNearest {
		result.MagFilter = wgpu.FilterModeNearest
	}

	switch s.MinFilter {
	case gltf.MinNearest, gltf.MinNearestMipMapNearest, gltf.MinNearestMipMapLinear:
		result.MinFilter = wgpu.FilterModeNearest
	}
	switch s.MinFilter {
	case gltf.MinNearestMipMapNearest, gltf.MinLinearMipMapNearest:
		result.MipmapFilter = wgpu.MipmapFilterModeNearest
	case gltf.MinNearest, gltf.MinLinear:
		// Non-mipmapped filters: nearest keeps sampling on the base level.
		result.MipmapFilter = wgpu.MipmapFilterModeNearest
	}

	result.AddressModeU = gltfWrapToAddressMode(s.WrapS)
	result.AddressModeV = gltfWrapToAddressMode(s.WrapT)

	return result
}

// gltfWrapToAddressMode converts a glTF wrap mode to a wgpu AddressMode.
func gltfWrapToAddressMode(wrap gltf.WrappingMode) wgpu.AddressMode {
	switch wrap {
	case gltf.WrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltf.WrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
