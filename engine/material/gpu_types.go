package material

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialUniform is the GPU-aligned representation of a material's scalar
// surface parameters. Texture channels bind separately; this struct carries
// only the factors. Size: 48 bytes (std140 / WGSL uniform aligned).
//
// Layout:
//
//	vec4<f32> base_color                            (16 bytes, offset  0)
//	vec3<f32> emissive + f32 normal_scale           (16 bytes, offset 16)
//	f32 metallic, roughness, occlusion, alpha_cutoff (16 bytes, offset 32)
type GPUMaterialUniform struct {
	BaseColor         [4]float32
	Emissive          [3]float32
	NormalScale       float32
	Metallic          float32
	Roughness         float32
	OcclusionStrength float32
	AlphaCutoff       float32
}

// Size returns the size of the GPUMaterialUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPUMaterialUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterialUniform struct into a byte buffer suitable
// for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload
func (g *GPUMaterialUniform) Marshal() []byte {
	buf := make([]byte, 48)
	for i := range 4 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.BaseColor[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(g.Emissive[i]))
	}
	binary.LittleEndian.PutUint32(buf[28:], math.Float32bits(g.NormalScale))
	binary.LittleEndian.PutUint32(buf[32:], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[36:], math.Float32bits(g.Roughness))
	binary.LittleEndian.PutUint32(buf[40:], math.Float32bits(g.OcclusionStrength))
	binary.LittleEndian.PutUint32(buf[44:], math.Float32bits(g.AlphaCutoff))
	return buf
}

// ToGPUMaterialUniform converts a Material into its GPU-aligned scalar
// representation.
//
// Parameters:
//   - m: the Material to convert
//
// Returns:
//   - GPUMaterialUniform: the GPU-aligned representation
func ToGPUMaterialUniform(m Material) GPUMaterialUniform {
	_, cutoff := m.Alpha()
	return GPUMaterialUniform{
		BaseColor:         m.BaseColor(),
		Emissive:          m.Emissive(),
		NormalScale:       m.NormalScale(),
		Metallic:          m.Metallic(),
		Roughness:         m.Roughness(),
		OcclusionStrength: m.OcclusionStrength(),
		AlphaCutoff:       cutoff,
	}
}
