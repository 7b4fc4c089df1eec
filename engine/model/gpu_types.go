package model

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUVertex is the GPU-aligned representation of a single mesh vertex. Every
// pipeline uses this fixed layout; primitives missing an attribute stream get
// defaults baked in at interleave time, and the shader variant decides which
// attributes actually feed the shading math.
// Size: 64 bytes (std430 aligned, no padding required).
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal for lighting (12 bytes)
	TexCoord [2]float32 // offset 24: UV texture coordinate (8 bytes)
	Color    [4]float32 // offset 32: per-vertex RGBA color (16 bytes)
	Tangent  [4]float32 // offset 48: tangent vector (xyz) + handedness (w) for normal mapping (16 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 64)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Normal[0]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Normal[1]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Normal[2]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.TexCoord[0]))
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.TexCoord[1]))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.Color[0]))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.Color[1]))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.Color[2]))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.Color[3]))
	binary.LittleEndian.PutUint32(buf[48:52], math.Float32bits(g.Tangent[0]))
	binary.LittleEndian.PutUint32(buf[52:56], math.Float32bits(g.Tangent[1]))
	binary.LittleEndian.PutUint32(buf[56:60], math.Float32bits(g.Tangent[2]))
	binary.LittleEndian.PutUint32(buf[60:64], math.Float32bits(g.Tangent[3]))
	return buf
}

// GPUModelUniform is the GPU-aligned per-draw uniform carrying the model's
// world transform and its normal matrix.
// Size: 128 bytes (two mat4x4<f32>).
type GPUModelUniform struct {
	Model  [16]float32 // offset  0: world transform
	Normal [16]float32 // offset 64: inverse-transpose of the world transform
}

// Size returns the size of the GPUModelUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (128)
func (g *GPUModelUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUModelUniform struct into a byte buffer suitable
// for GPU upload.
//
// Returns:
//   - []byte: 128-byte buffer ready for GPU upload
func (g *GPUModelUniform) Marshal() []byte {
	buf := make([]byte, 128)
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
	}
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Normal[i]))
	}
	return buf
}

// InterleaveVertices builds the interleaved GPU vertex buffer for a primitive.
// Missing attribute streams are substituted with defaults: a +Y normal, zero
// UVs, opaque white color, and a +X tangent.
//
// Parameters:
//   - p: the primitive to interleave
//
// Returns:
//   - []byte: the interleaved buffer, VertexCount × 64 bytes
func InterleaveVertices(p Primitive) []byte {
	positions := p.Positions()
	normals := p.Normals()
	tangents := p.Tangents()
	texCoords := p.TexCoords()
	colors := p.Colors()

	vertexSize := (&GPUVertex{}).Size()
	buf := make([]byte, 0, len(positions)*vertexSize)
	for i := range positions {
		v := GPUVertex{
			Position: positions[i],
			Normal:   [3]float32{0, 1, 0},
			Color:    [4]float32{1, 1, 1, 1},
			Tangent:  [4]float32{1, 0, 0, 1},
		}
		if i < len(normals) {
			v.Normal = normals[i]
		}
		if i < len(tangents) {
			v.Tangent = tangents[i]
		}
		if i < len(texCoords) {
			v.TexCoord = texCoords[i]
		}
		if i < len(colors) {
			v.Color = colors[i]
		}
		buf = append(buf, v.Marshal()...)
	}
	return buf
}

// sqrtF32 returns the square root of a float32.
func sqrtF32(v float32) float32 {
	return float32(math.Sqrt(float64(v)))
}
