package renderer

import (
	"image"

	"github.com/lumen3d/lumen/common"
	"github.com/lumen3d/lumen/engine/model"
	"github.com/lumen3d/lumen/engine/renderer/shader"
)

// GeometryID is an opaque handle to uploaded vertex/index buffers.
type GeometryID uint64

// TextureID is an opaque handle to an uploaded texture and its sampler.
type TextureID uint64

// ProgramID is an opaque handle to a compiled render pipeline.
type ProgramID uint64

// TargetID is an opaque handle to an offscreen depth render target.
type TargetID uint64

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// Only specific power-of-two values are valid for GPU hardware. WebGPU guarantees support for
// 1 (off) and 4; higher values (8, 16) are adapter-dependent and may not be available.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8× multisample anti-aliasing. Adapter-dependent; not all hardware supports this.
	MSAA8x MSAASampleCount = 8
)

// CullMode selects which triangle faces the rasterizer discards.
type CullMode int

const (
	// CullBack discards back faces. Default for opaque geometry.
	CullBack CullMode = iota
	// CullFront discards front faces. Shadow passes use this to reduce acne.
	CullFront
	// CullNone rasterizes both faces. Used by double-sided materials.
	CullNone
)

// GeometryUpload carries the CPU-side data for a geometry allocation.
type GeometryUpload struct {
	// VertexData is the interleaved vertex buffer contents.
	VertexData []byte

	// IndexData is the uint32 index buffer contents, or nil for non-indexed draws.
	IndexData []byte

	// VertexCount is the number of vertices in VertexData.
	VertexCount uint32

	// IndexCount is the number of indices in IndexData; zero for non-indexed draws.
	IndexCount uint32

	// Label names the allocation for debugging.
	Label string
}

// TextureUpload carries decoded RGBA pixels and sampler settings for a
// texture allocation.
type TextureUpload struct {
	// Pixels is tightly packed RGBA data, 4 bytes per pixel.
	Pixels []byte

	// Width and Height are the texture dimensions in pixels.
	Width, Height uint32

	// SRGB selects an sRGB texture format. Base color and emissive channels
	// want this; data channels (normal, metallic-roughness, occlusion) do not.
	SRGB bool

	// Sampler overrides the default linear/repeat sampler when non-nil.
	Sampler *common.SamplerStagingData

	// Label names the allocation for debugging.
	Label string
}

// DepthTargetConfig describes an offscreen depth render target for shadow maps.
type DepthTargetConfig struct {
	// Resolution is the width and height in texels. Shadow maps are square.
	Resolution uint32

	// Layers is the number of array layers. The shadow atlas allocates one
	// layer per shadow slot.
	Layers uint32

	// Cube selects a cube texture with six faces per layer, used by point
	// light shadows.
	Cube bool

	// Label names the allocation for debugging.
	Label string
}

// ProgramConfig is the fixed-function state compiled into a render pipeline
// alongside its shader variant.
type ProgramConfig struct {
	// Blend enables standard alpha blending and disables depth writes.
	Blend bool

	// Cull selects the face culling mode.
	Cull CullMode

	// Topology is the primitive topology, from the primitive's draw mode.
	Topology model.DrawMode

	// DepthBias and DepthBiasSlope apply a rasterizer depth offset. Shadow
	// pipelines use this to reduce self-shadowing.
	DepthBias      int32
	DepthBiasSlope float32

	// Label names the pipeline for debugging.
	Label string
}

// PassUniforms carries the marshaled per-pass uniform payloads bound at
// group 0 for the duration of a pass.
type PassUniforms struct {
	// Camera is the marshaled GPUCameraUniform (forward pass) or
	// GPUShadowUniform (shadow pass).
	Camera []byte

	// Lights is the marshaled light storage buffer. Empty for shadow passes
	// and unlit modes.
	Lights []byte

	// ShadowSlots is the marshaled shadow slot array. Empty when no shadow
	// maps were rendered this frame.
	ShadowSlots []byte

	// ShadowMaps is the depth array target holding this frame's 2D shadow
	// maps, or zero.
	ShadowMaps TargetID

	// PointShadowMap is the cube depth target for the point light shadow, or
	// zero.
	PointShadowMap TargetID
}

// DrawCommand is one draw within the current pass. All referenced handles
// must have been issued by the same backend.
type DrawCommand struct {
	// Program is the pipeline to bind.
	Program ProgramID

	// Geometry is the vertex/index buffers to bind.
	Geometry GeometryID

	// ModelUniform is the marshaled GPUModelUniform for this draw.
	ModelUniform []byte

	// MaterialUniform is the marshaled GPUMaterialUniform for this draw.
	MaterialUniform []byte

	// Textures are the material texture bindings in feature order: base
	// color, normal, metallic-roughness, emissive, occlusion. Zero entries
	// are unbound.
	Textures [5]TextureID
}

// Backend is the GPU capability surface the render passes draw through.
// Implementations own device state and bind group plumbing; callers hold only
// opaque handles. All methods are single-goroutine: the frame model is
// strictly sequential.
//
// Resource handles live until ReleaseAll. There is no per-resource free; the
// resource cache above the backend deduplicates uploads by content identity,
// and teardown releases everything at once.
type Backend interface {
	// Name returns a short backend identifier for logs.
	//
	// Returns:
	//   - string: the backend name
	Name() string

	// CreateGeometry uploads vertex and index data.
	//
	// Parameters:
	//   - upload: the buffer contents and metadata
	//
	// Returns:
	//   - GeometryID: the handle to the uploaded geometry
	//   - error: ErrResourceAllocation if the buffers could not be created
	CreateGeometry(upload GeometryUpload) (GeometryID, error)

	// CreateTexture uploads RGBA pixels and creates the paired sampler.
	//
	// Parameters:
	//   - upload: the pixel data and sampler settings
	//
	// Returns:
	//   - TextureID: the handle to the uploaded texture
	//   - error: ErrResourceAllocation if the texture could not be created
	CreateTexture(upload TextureUpload) (TextureID, error)

	// CreateDepthTarget allocates an offscreen depth target for shadow
	// rendering.
	//
	// Parameters:
	//   - cfg: the target dimensions and layout
	//
	// Returns:
	//   - TargetID: the handle to the target
	//   - error: ErrResourceAllocation if the target could not be created
	CreateDepthTarget(cfg DepthTargetConfig) (TargetID, error)

	// CreateProgram compiles a render pipeline from a shader variant and
	// fixed-function state.
	//
	// Parameters:
	//   - variant: the compiled shader variant
	//   - cfg: the fixed-function pipeline state
	//
	// Returns:
	//   - ProgramID: the handle to the pipeline
	//   - error: an error if pipeline creation failed
	CreateProgram(variant shader.Variant, cfg ProgramConfig) (ProgramID, error)

	// BeginFrame starts a new frame's command recording.
	//
	// Returns:
	//   - error: an error if the swapchain texture could not be acquired
	BeginFrame() error

	// BeginShadowPass starts a depth-only pass into one layer (or cube face)
	// of a depth target.
	//
	// Parameters:
	//   - target: the depth target to render into
	//   - layer: the array layer or cube face index
	//   - uniforms: the pass uniforms (light view-projection in Camera)
	//
	// Returns:
	//   - error: an error if the pass could not begin
	BeginShadowPass(target TargetID, layer uint32, uniforms PassUniforms) error

	// BeginForwardPass starts the main color pass.
	//
	// Parameters:
	//   - clear: the RGBA clear color
	//   - uniforms: the pass uniforms (camera, lights, shadow bindings)
	//
	// Returns:
	//   - error: an error if the pass could not begin
	BeginForwardPass(clear [4]float32, uniforms PassUniforms) error

	// Draw encodes one draw in the current pass. Draws execute in submission
	// order; callers sort before submitting.
	//
	// Parameters:
	//   - cmd: the draw command
	//
	// Returns:
	//   - error: ErrUnknownHandle if a referenced handle was never issued
	Draw(cmd DrawCommand) error

	// EndPass finishes the current pass.
	//
	// Returns:
	//   - error: an error if no pass is open
	EndPass() error

	// EndFrame submits the frame's command buffers and presents.
	//
	// Returns:
	//   - error: an error if submission failed
	EndFrame() error

	// ReadPixels copies the most recently submitted frame's color output
	// back to the host. Only offscreen backends support this; surface-backed
	// backends return ErrReadbackUnsupported.
	//
	// Returns:
	//   - *image.RGBA: the frame contents, sRGB-encoded
	//   - error: ErrReadbackUnsupported, or an error if the copy failed
	ReadPixels() (*image.RGBA, error)

	// Resize reconfigures the output surface.
	//
	// Parameters:
	//   - width: the new surface width in pixels
	//   - height: the new surface height in pixels
	Resize(width, height uint32)

	// ReleaseAll destroys every resource the backend has issued. All
	// outstanding handles become invalid. This is the only teardown path.
	ReleaseAll()
}
