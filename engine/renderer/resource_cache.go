package renderer

import (
	"fmt"
	"log"

	"github.com/lumen3d/lumen/common"
	"github.com/lumen3d/lumen/engine/model"
	"github.com/lumen3d/lumen/engine/renderer/shader"
)

// CacheStats is a snapshot of resource cache occupancy and traffic.
type CacheStats struct {
	// Geometries is the number of cached geometry uploads.
	Geometries int

	// Textures is the number of cached texture uploads.
	Textures int

	// Programs is the number of cached render pipelines.
	Programs int

	// Hits counts acquire calls answered from the cache.
	Hits uint64

	// Misses counts acquire calls that uploaded or compiled.
	Misses uint64
}

// programKey identifies a pipeline by its normalized shader variant plus the
// fixed-function state baked into it.
type programKey struct {
	variant  shader.VariantKey
	blend    bool
	cull     CullMode
	topology model.DrawMode
	bias     int32
}

// ResourceCache deduplicates GPU uploads by content identity. A primitive or
// texture referenced from many scene nodes is uploaded once; repeat acquires
// return the existing handle. Failed uploads are never memoized, so a later
// acquire retries the allocation.
//
// The cache owns no per-resource free. ReleaseAll drops every entry and
// releases the backend's resources in one step; handles from before the
// release must not be reused.
type ResourceCache interface {
	// AcquireGeometry returns the GPU geometry for a primitive, uploading the
	// interleaved vertex data on first use.
	//
	// Parameters:
	//   - p: the primitive to upload
	//
	// Returns:
	//   - GeometryID: the geometry handle
	//   - error: ErrResourceAllocation if the upload failed
	AcquireGeometry(p model.Primitive) (GeometryID, error)

	// AcquireTexture returns the GPU texture for an imported texture,
	// decoding and uploading on first use. The same source texture acquired
	// with different srgb flags uploads separately.
	//
	// Parameters:
	//   - t: the imported texture
	//   - srgb: whether to upload in an sRGB format
	//
	// Returns:
	//   - TextureID: the texture handle
	//   - error: an error if decoding or the upload failed
	AcquireTexture(t *common.ImportedTexture, srgb bool) (TextureID, error)

	// AcquireProgram returns the pipeline for a shader variant key and
	// fixed-function config, compiling on first use. The key is normalized
	// before lookup, so equivalent draws share one pipeline.
	//
	// Parameters:
	//   - key: the shader variant key
	//   - cfg: the fixed-function pipeline state
	//
	// Returns:
	//   - ProgramID: the pipeline handle
	//   - error: a *shader.CompileError if the variant failed to compile, or
	//     an error if pipeline creation failed
	AcquireProgram(key shader.VariantKey, cfg ProgramConfig) (ProgramID, error)

	// Stats returns a snapshot of cache occupancy and hit/miss counts.
	//
	// Returns:
	//   - CacheStats: the snapshot
	Stats() CacheStats

	// ReleaseAll drops every cached entry and releases all backend resources.
	ReleaseAll()
}

type textureKey struct {
	tex  *common.ImportedTexture
	srgb bool
}

type resourceCacheImpl struct {
	backend  Backend
	selector shader.Selector

	geometries map[uint64]GeometryID
	textures   map[textureKey]TextureID
	programs   map[programKey]ProgramID

	hits   uint64
	misses uint64
}

var _ ResourceCache = &resourceCacheImpl{}

// NewResourceCache creates a ResourceCache over a backend and shader selector.
//
// Parameters:
//   - backend: the backend that owns the GPU resources
//   - selector: the shader variant selector used by AcquireProgram
//
// Returns:
//   - ResourceCache: the cache
func NewResourceCache(backend Backend, selector shader.Selector) ResourceCache {
	return &resourceCacheImpl{
		backend:    backend,
		selector:   selector,
		geometries: make(map[uint64]GeometryID),
		textures:   make(map[textureKey]TextureID),
		programs:   make(map[programKey]ProgramID),
	}
}

func (c *resourceCacheImpl) AcquireGeometry(p model.Primitive) (GeometryID, error) {
	if id, ok := c.geometries[p.ID()]; ok {
		c.hits++
		return id, nil
	}
	c.misses++

	upload := GeometryUpload{
		VertexData:  model.InterleaveVertices(p),
		VertexCount: uint32(p.VertexCount()),
		Label:       p.Name(),
	}
	if indices := p.Indices(); len(indices) > 0 {
		data := make([]byte, len(indices)*4)
		for i, idx := range indices {
			data[i*4] = byte(idx)
			data[i*4+1] = byte(idx >> 8)
			data[i*4+2] = byte(idx >> 16)
			data[i*4+3] = byte(idx >> 24)
		}
		upload.IndexData = data
		upload.IndexCount = uint32(len(indices))
	}

	id, err := c.backend.CreateGeometry(upload)
	if err != nil {
		return 0, fmt.Errorf("failed to upload geometry %q: %w", p.Name(), err)
	}
	c.geometries[p.ID()] = id
	return id, nil
}

func (c *resourceCacheImpl) AcquireTexture(t *common.ImportedTexture, srgb bool) (TextureID, error) {
	key := textureKey{tex: t, srgb: srgb}
	if id, ok := c.textures[key]; ok {
		c.hits++
		return id, nil
	}
	c.misses++

	pixels, width, height, err := t.Decode()
	if err != nil {
		return 0, fmt.Errorf("failed to decode texture %q: %w", t.Name, err)
	}
	id, err := c.backend.CreateTexture(TextureUpload{
		Pixels:  pixels,
		Width:   width,
		Height:  height,
		SRGB:    srgb,
		Sampler: t.SamplerData,
		Label:   t.Name,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload texture %q: %w", t.Name, err)
	}
	c.textures[key] = id
	return id, nil
}

func (c *resourceCacheImpl) AcquireProgram(key shader.VariantKey, cfg ProgramConfig) (ProgramID, error) {
	norm := key.Normalize()
	pk := programKey{variant: norm, blend: cfg.Blend, cull: cfg.Cull, topology: cfg.Topology, bias: cfg.DepthBias}
	if id, ok := c.programs[pk]; ok {
		c.hits++
		return id, nil
	}
	c.misses++

	variant, err := c.selector.Variant(norm)
	if err != nil {
		return 0, err
	}
	id, err := c.backend.CreateProgram(variant, cfg)
	if err != nil {
		return 0, fmt.Errorf("failed to create pipeline for variant [%s]: %w", norm.String(), err)
	}
	c.programs[pk] = id
	return id, nil
}

func (c *resourceCacheImpl) Stats() CacheStats {
	return CacheStats{
		Geometries: len(c.geometries),
		Textures:   len(c.textures),
		Programs:   len(c.programs),
		Hits:       c.hits,
		Misses:     c.misses,
	}
}

func (c *resourceCacheImpl) ReleaseAll() {
	log.Printf("resource cache: releasing %d geometries, %d textures, %d programs",
		len(c.geometries), len(c.textures), len(c.programs))
	c.geometries = make(map[uint64]GeometryID)
	c.textures = make(map[textureKey]TextureID)
	c.programs = make(map[programKey]ProgramID)
	c.backend.ReleaseAll()
}
