package model

import (
	"sync/atomic"

	"github.com/lumen3d/lumen/engine/material"
)

// primitiveCount and meshCount assign stable content identities. The identity
// keys GPU resource caching: uploading the same primitive twice yields the
// same GPU buffers.
var (
	primitiveCount atomic.Uint64
	meshCount      atomic.Uint64
)

// AttributeMask is a bitmask describing which optional vertex attributes a
// primitive carries. Positions are always present and have no bit. The mask is
// one axis of the shader variant key.
type AttributeMask uint32

const (
	// AttrNormal indicates per-vertex normals are present.
	AttrNormal AttributeMask = 1 << iota
	// AttrTangent indicates per-vertex tangents (xyz + handedness w) are present.
	AttrTangent
	// AttrTexCoord indicates per-vertex UV coordinates are present.
	AttrTexCoord
	// AttrColor indicates per-vertex RGBA colors are present.
	AttrColor
)

// DrawMode selects the rasterization topology for a primitive.
type DrawMode int

const (
	// DrawTriangles rasterizes independent triangles. This is the default.
	DrawTriangles DrawMode = iota
	// DrawTriangleStrip rasterizes a connected triangle strip.
	DrawTriangleStrip
	// DrawLines rasterizes independent line segments.
	DrawLines
	// DrawPoints rasterizes one point per vertex.
	DrawPoints
)

// primitive is the implementation of the Primitive interface.
type primitive struct {
	id   uint64
	name string

	positions [][3]float32
	normals   [][3]float32
	tangents  [][4]float32
	texCoords [][2]float32
	colors    [][4]float32
	indices   []uint32

	mat      material.Material
	drawMode DrawMode

	boundsMin    [3]float32
	boundsMax    [3]float32
	boundsCached bool
}

// Primitive is a single drawable unit: one vertex stream, an optional index
// stream, and exactly one material. Geometry is immutable after construction;
// the material reference may be swapped, which changes which shader variant
// the primitive selects on its next draw.
type Primitive interface {
	// ID returns the primitive's content identity. GPU geometry buffers are
	// cached under this identity.
	//
	// Returns:
	//   - uint64: the content identity
	ID() uint64

	// Name returns the primitive's identifier.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Positions returns the vertex positions. Every primitive has positions.
	//
	// Returns:
	//   - [][3]float32: the position stream
	Positions() [][3]float32

	// Normals returns the vertex normals, or nil if absent.
	//
	// Returns:
	//   - [][3]float32: the normal stream or nil
	Normals() [][3]float32

	// Tangents returns the vertex tangents (xyz + handedness w), or nil if absent.
	//
	// Returns:
	//   - [][4]float32: the tangent stream or nil
	Tangents() [][4]float32

	// TexCoords returns the vertex UV coordinates, or nil if absent.
	//
	// Returns:
	//   - [][2]float32: the UV stream or nil
	TexCoords() [][2]float32

	// Colors returns the per-vertex RGBA colors, or nil if absent.
	//
	// Returns:
	//   - [][4]float32: the color stream or nil
	Colors() [][4]float32

	// Indices returns the triangle indices, or nil for non-indexed drawing.
	//
	// Returns:
	//   - []uint32: the index stream or nil
	Indices() []uint32

	// Material returns the primitive's material.
	//
	// Returns:
	//   - material.Material: the material
	Material() material.Material

	// SetMaterial replaces the primitive's material. Takes effect on the next
	// frame; the previous material's GPU resources stay cached.
	//
	// Parameters:
	//   - mat: the new material
	SetMaterial(mat material.Material)

	// DrawMode returns the rasterization topology.
	//
	// Returns:
	//   - DrawMode: the topology
	DrawMode() DrawMode

	// Attributes returns the bitmask of optional vertex attributes present on
	// this primitive.
	//
	// Returns:
	//   - AttributeMask: the attribute bitmask
	Attributes() AttributeMask

	// VertexCount returns the number of vertices in the primitive.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// Bounds returns the axis-aligned bounding box of the positions in model
	// space. Computed on first call and cached.
	//
	// Returns:
	//   - [3]float32: the minimum corner
	//   - [3]float32: the maximum corner
	Bounds() ([3]float32, [3]float32)

	// BoundingSphere returns the center and radius of the sphere enclosing
	// the primitive's bounding box, used for frustum culling.
	//
	// Returns:
	//   - [3]float32: the sphere center in model space
	//   - float32: the sphere radius
	BoundingSphere() ([3]float32, float32)

	// VertexData returns the interleaved GPU vertex buffer contents. Missing
	// attributes are filled with defaults so the buffer always matches the
	// fixed GPUVertex layout.
	//
	// Returns:
	//   - []byte: the interleaved vertex data
	VertexData() []byte
}

var _ Primitive = &primitive{}

// NewPrimitive creates a primitive from the provided options. Positions are
// mandatory; the remaining attribute streams are optional but must match the
// position count when present.
//
// Parameters:
//   - options: functional options carrying the vertex streams and material
//
// Returns:
//   - Primitive: the newly created primitive
func NewPrimitive(options ...PrimitiveBuilderOption) Primitive {
	p := &primitive{
		id:       primitiveCount.Add(1),
		drawMode: DrawTriangles,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *primitive) ID() uint64 {
	return p.id
}

func (p *primitive) Name() string {
	return p.name
}

func (p *primitive) Positions() [][3]float32 {
	return p.positions
}

func (p *primitive) Normals() [][3]float32 {
	return p.normals
}

func (p *primitive) Tangents() [][4]float32 {
	return p.tangents
}

func (p *primitive) TexCoords() [][2]float32 {
	return p.texCoords
}

func (p *primitive) Colors() [][4]float32 {
	return p.colors
}

func (p *primitive) Indices() []uint32 {
	return p.indices
}

func (p *primitive) Material() material.Material {
	return p.mat
}

func (p *primitive) SetMaterial(mat material.Material) {
	p.mat = mat
}

func (p *primitive) DrawMode() DrawMode {
	return p.drawMode
}

func (p *primitive) Attributes() AttributeMask {
	var mask AttributeMask
	if p.normals != nil {
		mask |= AttrNormal
	}
	if p.tangents != nil {
		mask |= AttrTangent
	}
	if p.texCoords != nil {
		mask |= AttrTexCoord
	}
	if p.colors != nil {
		mask |= AttrColor
	}
	return mask
}

func (p *primitive) VertexCount() int {
	return len(p.positions)
}

func (p *primitive) Bounds() ([3]float32, [3]float32) {
	if !p.boundsCached {
		p.boundsMin, p.boundsMax = computeBounds(p.positions)
		p.boundsCached = true
	}
	return p.boundsMin, p.boundsMax
}

func (p *primitive) BoundingSphere() ([3]float32, float32) {
	min, max := p.Bounds()
	center := [3]float32{
		(min[0] + max[0]) * 0.5,
		(min[1] + max[1]) * 0.5,
		(min[2] + max[2]) * 0.5,
	}
	dx := max[0] - center[0]
	dy := max[1] - center[1]
	dz := max[2] - center[2]
	return center, sqrtF32(dx*dx + dy*dy + dz*dz)
}

func (p *primitive) VertexData() []byte {
	return InterleaveVertices(p)
}

// mesh is the implementation of the Mesh interface.
type mesh struct {
	id         uint64
	name       string
	primitives []Primitive
}

// Mesh is an ordered collection of primitives sharing a node transform.
// Primitive order is preserved through loading and drawing.
type Mesh interface {
	// ID returns the mesh's content identity.
	//
	// Returns:
	//   - uint64: the content identity
	ID() uint64

	// Name returns the mesh's identifier.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Primitives returns the mesh's primitives in draw order.
	//
	// Returns:
	//   - []Primitive: the primitive list
	Primitives() []Primitive
}

var _ Mesh = &mesh{}

// NewMesh creates a mesh from an ordered list of primitives.
//
// Parameters:
//   - name: the mesh identifier
//   - primitives: the primitives in draw order
//
// Returns:
//   - Mesh: the newly created mesh
func NewMesh(name string, primitives ...Primitive) Mesh {
	return &mesh{
		id:         meshCount.Add(1),
		name:       name,
		primitives: primitives,
	}
}

func (m *mesh) ID() uint64 {
	return m.id
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) Primitives() []Primitive {
	return m.primitives
}

// computeBounds returns the axis-aligned bounding box of a position stream.
// An empty stream yields a zero box.
func computeBounds(positions [][3]float32) ([3]float32, [3]float32) {
	if len(positions) == 0 {
		return [3]float32{}, [3]float32{}
	}
	min := positions[0]
	max := positions[0]
	for _, pos := range positions[1:] {
		for i := 0; i < 3; i++ {
			if pos[i] < min[i] {
				min[i] = pos[i]
			}
			if pos[i] > max[i] {
				max[i] = pos[i]
			}
		}
	}
	return min, max
}
