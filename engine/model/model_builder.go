package model

import "github.com/lumen3d/lumen/engine/material"

// PrimitiveBuilderOption is a function that configures a Primitive instance during construction.
type PrimitiveBuilderOption func(*primitive)

// WithName is an option builder that sets the primitive's identifier.
//
// Parameters:
//   - name: the primitive name
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the name option to a primitive
func WithName(name string) PrimitiveBuilderOption {
	return func(p *primitive) {
		p.name = name
	}
}

// WithPositions is an option builder that sets the vertex position stream.
// Positions are mandatory for every primitive.
//
// Parameters:
//   - positions: the position stream
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the position option to a primitive
func WithPositions(positions [][3]float32) PrimitiveBuilderOption {
	return func(p *primitive) {
		p.positions = positions
		p.boundsCached = false
	}
}

// WithNormals is an option builder that sets the vertex normal stream.
//
// Parameters:
//   - normals: the normal stream (must match the position count)
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the normal option to a primitive
func WithNormals(normals [][3]float32) PrimitiveBuilderOption {
	return func(p *primitive) {
		p.normals = normals
	}
}

// WithTangents is an option builder that sets the vertex tangent stream
// (xyz + handedness w).
//
// Parameters:
//   - tangents: the tangent stream (must match the position count)
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the tangent option to a primitive
func WithTangents(tangents [][4]float32) PrimitiveBuilderOption {
	return func(p *primitive) {
		p.tangents = tangents
	}
}

// WithTexCoords is an option builder that sets the vertex UV stream.
//
// Parameters:
//   - texCoords: the UV stream (must match the position count)
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the UV option to a primitive
func WithTexCoords(texCoords [][2]float32) PrimitiveBuilderOption {
	return func(p *primitive) {
		p.texCoords = texCoords
	}
}

// WithColors is an option builder that sets the per-vertex RGBA color stream.
//
// Parameters:
//   - colors: the color stream (must match the position count)
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the color option to a primitive
func WithColors(colors [][4]float32) PrimitiveBuilderOption {
	return func(p *primitive) {
		p.colors = colors
	}
}

// WithIndices is an option builder that sets the index stream for indexed
// drawing.
//
// Parameters:
//   - indices: the index stream
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the index option to a primitive
func WithIndices(indices []uint32) PrimitiveBuilderOption {
	return func(p *primitive) {
		p.indices = indices
	}
}

// WithMaterial is an option builder that sets the primitive's material.
//
// Parameters:
//   - mat: the material
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the material option to a primitive
func WithMaterial(mat material.Material) PrimitiveBuilderOption {
	return func(p *primitive) {
		p.mat = mat
	}
}

// WithDrawMode is an option builder that sets the rasterization topology.
//
// Parameters:
//   - mode: the topology
//
// Returns:
//   - PrimitiveBuilderOption: a function that applies the draw mode option to a primitive
func WithDrawMode(mode DrawMode) PrimitiveBuilderOption {
	return func(p *primitive) {
		p.drawMode = mode
	}
}
