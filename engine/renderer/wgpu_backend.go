package renderer

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/lumen3d/lumen/common"
	"github.com/lumen3d/lumen/engine/light"
	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/model"
	"github.com/lumen3d/lumen/engine/renderer/shader"
)

// uniformAlign is the required alignment for dynamic uniform buffer offsets.
const uniformAlign = 256

// arenaSlots is the initial per-draw uniform arena capacity in draws.
const arenaSlots = 1024

// vertexBufferLayout matches the interleaved 64-byte layout produced by
// model.InterleaveVertices and the vertex inputs of every generated shader.
var vertexBufferLayout = wgpu.VertexBufferLayout{
	ArrayStride: 64,
	StepMode:    wgpu.VertexStepModeVertex,
	Attributes: []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
		{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3},
		{Format: wgpu.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 4},
	},
}

type wgpuGeometry struct {
	vertexBuffer *wgpu.Buffer
	indexBuffer  *wgpu.Buffer
	indexCount   uint32
	vertexCount  uint32
}

type wgpuTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
}

type wgpuTarget struct {
	texture *wgpu.Texture
	// sampleView covers all layers (2D array or cube) for fragment sampling.
	sampleView *wgpu.TextureView
	// layerViews are single-layer 2D views used as render attachments.
	layerViews []*wgpu.TextureView
}

type wgpuProgram struct {
	pipeline *wgpu.RenderPipeline
	// texMask selects which material texture pairs the pipeline's material
	// bind group layout contains.
	texMask uint8
	// hasMaterialGroup is false only for depth-only shadow pipelines.
	hasMaterialGroup bool
}

// group0Sig identifies the per-pass bind group layout shape.
type group0Sig struct {
	pass    shader.PassKind
	lit     bool
	shadows bool
	point   bool
}

// materialBindKey identifies a cached material bind group by its texture set.
type materialBindKey struct {
	mask     uint8
	textures [5]TextureID
}

// uniformArena is a growable uniform buffer sliced into aligned per-draw
// slots, bound with dynamic offsets.
type uniformArena struct {
	buffer   *wgpu.Buffer
	capacity uint64 // in slots
}

type wgpuBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTextureView      *wgpu.TextureView
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount

	// Offscreen mode renders into a private color texture instead of a
	// surface; ReadPixels copies it back to the host.
	offscreen        bool
	offscreenTexture *wgpu.Texture
	offscreenWidth   uint32
	offscreenHeight  uint32

	nextHandle uint64
	geometries map[GeometryID]*wgpuGeometry
	textures   map[TextureID]*wgpuTexture
	targets    map[TargetID]*wgpuTarget
	programs   map[ProgramID]*wgpuProgram

	group0Layouts   map[group0Sig]*wgpu.BindGroupLayout
	modelLayout     *wgpu.BindGroupLayout
	materialLayouts map[uint8]*wgpu.BindGroupLayout

	comparisonSampler *wgpu.Sampler

	modelArena         uniformArena
	materialArena      uniformArena
	modelBindGroup     *wgpu.BindGroup
	materialBindGroups map[materialBindKey]*wgpu.BindGroup

	// Pooled per-pass uniform buffers, one per pass per frame, reused across
	// frames. Uniform writes via the queue land before submission, so each
	// pass needs its own buffer.
	passBuffers     []*wgpu.Buffer
	passBufferIndex int
	lightsBuffer    *wgpu.Buffer
	shadowBuffer    *wgpu.Buffer

	// Frame state for batched rendering across multiple passes and draws.
	frameEncoder    *wgpu.CommandEncoder
	frameSurface    *wgpu.Texture
	frameView       *wgpu.TextureView
	pass            *wgpu.RenderPassEncoder
	frameBindGroups []*wgpu.BindGroup
	drawIndex       uint64
}

var _ Backend = &wgpuBackendImpl{}

// NewWGPUBackend creates the wgpu rendering backend over a window surface.
// Panics if no suitable adapter or device is available; there is no rendering
// without one.
//
// Parameters:
//   - surfaceDescriptor: the platform surface to present to
//   - options: optional functional options to configure the backend
//
// Returns:
//   - Backend: the backend
func NewWGPUBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUBackendOption) Backend {
	runtime.LockOSThread()
	b := &wgpuBackendImpl{
		mu:                 &sync.Mutex{},
		instance:           wgpu.CreateInstance(nil),
		presentMode:        wgpu.PresentModeFifo,
		sampleCount:        MSAA4x,
		geometries:         make(map[GeometryID]*wgpuGeometry),
		textures:           make(map[TextureID]*wgpuTexture),
		targets:            make(map[TargetID]*wgpuTarget),
		programs:           make(map[ProgramID]*wgpuProgram),
		group0Layouts:      make(map[group0Sig]*wgpu.BindGroupLayout),
		materialLayouts:    make(map[uint8]*wgpu.BindGroupLayout),
		materialBindGroups: make(map[materialBindKey]*wgpu.BindGroup),
	}
	cfg := wgpuBackendConfig{}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.presentMode != nil {
		b.presentMode = *cfg.presentMode
	}
	if cfg.sampleCount != nil {
		b.sampleCount = *cfg.sampleCount
	}

	b.surface = b.instance.CreateSurface(surfaceDescriptor)

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    b.surface,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	return b
}

// NewWGPUOffscreenBackend creates a wgpu backend that renders into a private
// color texture instead of a window surface. Frames are never presented;
// ReadPixels copies them back to the host as images. Panics if no suitable
// adapter or device is available.
//
// Parameters:
//   - width: the render target width in pixels
//   - height: the render target height in pixels
//   - options: optional functional options to configure the backend
//
// Returns:
//   - Backend: the backend
func NewWGPUOffscreenBackend(width, height uint32, options ...WGPUBackendOption) Backend {
	runtime.LockOSThread()
	b := &wgpuBackendImpl{
		mu:                 &sync.Mutex{},
		instance:           wgpu.CreateInstance(nil),
		sampleCount:        MSAA4x,
		offscreen:          true,
		geometries:         make(map[GeometryID]*wgpuGeometry),
		textures:           make(map[TextureID]*wgpuTexture),
		targets:            make(map[TargetID]*wgpuTarget),
		programs:           make(map[ProgramID]*wgpuProgram),
		group0Layouts:      make(map[group0Sig]*wgpu.BindGroupLayout),
		materialLayouts:    make(map[uint8]*wgpu.BindGroupLayout),
		materialBindGroups: make(map[materialBindKey]*wgpu.BindGroup),
	}
	cfg := wgpuBackendConfig{}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.sampleCount != nil {
		b.sampleCount = *cfg.sampleCount
	}

	a, err := b.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
	})
	if err != nil {
		panic(err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	b.device = d
	b.queue = d.GetQueue()

	b.Resize(width, height)
	return b
}

// wgpuBackendConfig collects the pre-creation options for NewWGPUBackend.
type wgpuBackendConfig struct {
	presentMode          *wgpu.PresentMode
	sampleCount          *MSAASampleCount
	forceFallbackAdapter bool
}

// WGPUBackendOption is a functional option applied during NewWGPUBackend.
type WGPUBackendOption func(*wgpuBackendConfig)

// WithWGPUPresentMode sets the surface present mode. The default is VSync.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - WGPUBackendOption: a function that applies the present mode option
func WithWGPUPresentMode(mode PresentMode) WGPUBackendOption {
	return func(cfg *wgpuBackendConfig) {
		m := wgpu.PresentModeFifo
		if mode == PresentModeUncapped {
			m = wgpu.PresentModeImmediate
		}
		cfg.presentMode = &m
	}
}

// WithWGPUMSAA sets the multisample anti-aliasing sample count for the main
// render pass. When not specified, the default is MSAA4x. Use MSAAOff to
// disable MSAA entirely; MSAA8x is adapter-dependent.
//
// Parameters:
//   - count: the MSAASampleCount to use
//
// Returns:
//   - WGPUBackendOption: a function that applies the MSAA option
func WithWGPUMSAA(count MSAASampleCount) WGPUBackendOption {
	return func(cfg *wgpuBackendConfig) {
		cfg.sampleCount = &count
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter
// instead of hardware GPU acceleration. This requires a software Vulkan ICD to
// be installed on the system (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter
//
// Returns:
//   - WGPUBackendOption: a function that applies the force software renderer option
func WithForceSoftwareRenderer(force bool) WGPUBackendOption {
	return func(cfg *wgpuBackendConfig) {
		cfg.forceFallbackAdapter = force
	}
}

func (b *wgpuBackendImpl) Name() string { return "wgpu" }

// Resize (re)configures the surface and rebuilds the MSAA and depth
// attachments at the new size. Must be called once before the first frame.
func (b *wgpuBackendImpl) Resize(width, height uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.offscreen {
		format := wgpu.TextureFormatRGBA8UnormSrgb
		b.surfaceFormat = &format

		if b.offscreenTexture != nil {
			b.offscreenTexture.Release()
		}
		tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "Offscreen Color Texture",
			Size: wgpu.Extent3D{
				Width:              width,
				Height:             height,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        format,
			Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
		})
		if err != nil {
			panic(err)
		}
		b.offscreenTexture = tex
		b.offscreenWidth = width
		b.offscreenHeight = height
	} else {
		capabilities := b.surface.GetCapabilities(b.adapter)
		b.surfaceFormat = &capabilities.Formats[0]

		b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
			Usage:       wgpu.TextureUsageRenderAttachment,
			Format:      *b.surfaceFormat,
			Width:       width,
			Height:      height,
			PresentMode: b.presentMode,
			AlphaMode:   capabilities.AlphaModes[0],
		})
	}

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if msaaEnabled {
		// The render pass draws into the MSAA texture; the resolved result is
		// written to the swapchain view as the ResolveTarget.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              width,
				Height:             height,
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	} else {
		b.msaaTextureView = nil
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard // Don't store MSAA data, just resolve
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          b.msaaTextureView, // nil when MSAA is off; set in BeginForwardPass
				ResolveTarget: nil,               // set per-frame when MSAA is on
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue:    wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuBackendImpl) CreateGeometry(upload GeometryUpload) (GeometryID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := &wgpuGeometry{
		vertexCount: upload.VertexCount,
		indexCount:  upload.IndexCount,
	}
	vbuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: upload.Label + " Vertex Buffer",
		Size:  uint64(len(upload.VertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: vertex buffer %q: %v", ErrResourceAllocation, upload.Label, err)
	}
	b.queue.WriteBuffer(vbuf, 0, upload.VertexData)
	g.vertexBuffer = vbuf

	if len(upload.IndexData) > 0 {
		ibuf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: upload.Label + " Index Buffer",
			Size:  uint64(len(upload.IndexData)),
			Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			vbuf.Release()
			return 0, fmt.Errorf("%w: index buffer %q: %v", ErrResourceAllocation, upload.Label, err)
		}
		b.queue.WriteBuffer(ibuf, 0, upload.IndexData)
		g.indexBuffer = ibuf
	}

	b.nextHandle++
	id := GeometryID(b.nextHandle)
	b.geometries[id] = g
	return id, nil
}

func (b *wgpuBackendImpl) CreateTexture(upload TextureUpload) (TextureID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	format := wgpu.TextureFormatRGBA8Unorm
	if upload.SRGB {
		format = wgpu.TextureFormatRGBA8UnormSrgb
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     upload.Label + " Texture",
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              upload.Width,
			Height:             upload.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        format,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: texture %q: %v", ErrResourceAllocation, upload.Label, err)
	}

	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		upload.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  upload.Width * 4,
			RowsPerImage: upload.Height,
		},
		&wgpu.Extent3D{
			Width:              upload.Width,
			Height:             upload.Height,
			DepthOrArrayLayers: 1,
		},
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("%w: texture view %q: %v", ErrResourceAllocation, upload.Label, err)
	}

	sampler, err := b.createSampler(upload.Label, upload.Sampler)
	if err != nil {
		view.Release()
		tex.Release()
		return 0, err
	}

	b.nextHandle++
	id := TextureID(b.nextHandle)
	b.textures[id] = &wgpuTexture{texture: tex, view: view, sampler: sampler}
	return id, nil
}

func (b *wgpuBackendImpl) createSampler(label string, staging *common.SamplerStagingData) (*wgpu.Sampler, error) {
	if staging == nil {
		staging = &common.SamplerStagingData{}
	}
	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label + " Sampler",
		AddressModeU:  common.Coalesce(staging.AddressModeU, wgpu.AddressModeRepeat),
		AddressModeV:  common.Coalesce(staging.AddressModeV, wgpu.AddressModeRepeat),
		AddressModeW:  common.Coalesce(staging.AddressModeW, wgpu.AddressModeRepeat),
		MagFilter:     common.Coalesce(staging.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(staging.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(staging.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   common.Coalesce(staging.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(staging.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(staging.MaxAnisotropy, 1),
		Compare:       staging.Compare,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: sampler %q: %v", ErrResourceAllocation, label, err)
	}
	return samp, nil
}

func (b *wgpuBackendImpl) CreateDepthTarget(cfg DepthTargetConfig) (TargetID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	layers := cfg.Layers
	if cfg.Cube {
		layers = 6
	}
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: cfg.Label,
		Size: wgpu.Extent3D{
			Width:              cfg.Resolution,
			Height:             cfg.Resolution,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth32Float,
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: depth target %q: %v", ErrResourceAllocation, cfg.Label, err)
	}

	sampleDim := wgpu.TextureViewDimension2DArray
	if cfg.Cube {
		sampleDim = wgpu.TextureViewDimensionCube
	}
	sampleView, err := tex.CreateView(&wgpu.TextureViewDescriptor{
		Label:           cfg.Label + " Sample View",
		Format:          wgpu.TextureFormatDepth32Float,
		Dimension:       sampleDim,
		BaseArrayLayer:  0,
		ArrayLayerCount: layers,
		MipLevelCount:   1,
		Aspect:          wgpu.TextureAspectAll,
	})
	if err != nil {
		tex.Release()
		return 0, fmt.Errorf("%w: depth target view %q: %v", ErrResourceAllocation, cfg.Label, err)
	}

	layerViews := make([]*wgpu.TextureView, layers)
	for i := uint32(0); i < layers; i++ {
		lv, err := tex.CreateView(&wgpu.TextureViewDescriptor{
			Label:           fmt.Sprintf("%s Layer %d", cfg.Label, i),
			Format:          wgpu.TextureFormatDepth32Float,
			Dimension:       wgpu.TextureViewDimension2D,
			BaseArrayLayer:  i,
			ArrayLayerCount: 1,
			MipLevelCount:   1,
			Aspect:          wgpu.TextureAspectAll,
		})
		if err != nil {
			tex.Release()
			return 0, fmt.Errorf("%w: depth target layer view %q: %v", ErrResourceAllocation, cfg.Label, err)
		}
		layerViews[i] = lv
	}

	b.nextHandle++
	id := TargetID(b.nextHandle)
	b.targets[id] = &wgpuTarget{texture: tex, sampleView: sampleView, layerViews: layerViews}
	return id, nil
}

// group0SigForKey derives the per-pass bind group signature a shader variant
// expects from its normalized key.
func group0SigForKey(key shader.VariantKey) group0Sig {
	if key.Pass == shader.PassShadow {
		return group0Sig{pass: shader.PassShadow}
	}
	return group0Sig{
		pass:    shader.PassForward,
		lit:     key.Mode == shader.ModeLit,
		shadows: key.ShadowCasters > 0,
		point:   key.PointShadows,
	}
}

func (b *wgpuBackendImpl) group0Layout(sig group0Sig) (*wgpu.BindGroupLayout, error) {
	if layout, ok := b.group0Layouts[sig]; ok {
		return layout, nil
	}

	var entries []wgpu.BindGroupLayoutEntry
	if sig.pass == shader.PassShadow {
		entries = []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: 64},
		}}
	} else {
		entries = []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: 80},
		}}
		if sig.lit {
			entries = append(entries, wgpu.BindGroupLayoutEntry{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
			})
		}
		if sig.shadows {
			entries = append(entries,
				wgpu.BindGroupLayoutEntry{
					Binding:    2,
					Visibility: wgpu.ShaderStageFragment,
					Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: light.MaxShadowCasters * 80},
				},
				wgpu.BindGroupLayoutEntry{
					Binding:    3,
					Visibility: wgpu.ShaderStageFragment,
					Texture:    wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeDepth, ViewDimension: wgpu.TextureViewDimension2DArray},
				},
				wgpu.BindGroupLayoutEntry{
					Binding:    4,
					Visibility: wgpu.ShaderStageFragment,
					Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison},
				},
			)
			if sig.point {
				entries = append(entries,
					wgpu.BindGroupLayoutEntry{
						Binding:    5,
						Visibility: wgpu.ShaderStageFragment,
						Texture:    wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeDepth, ViewDimension: wgpu.TextureViewDimensionCube},
					},
					wgpu.BindGroupLayoutEntry{
						Binding:    6,
						Visibility: wgpu.ShaderStageFragment,
						Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison},
					},
				)
			}
		}
	}

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Pass Bind Group Layout",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pass bind group layout: %w", err)
	}
	b.group0Layouts[sig] = layout
	return layout, nil
}

func (b *wgpuBackendImpl) modelBindGroupLayout() (*wgpu.BindGroupLayout, error) {
	if b.modelLayout != nil {
		return b.modelLayout, nil
	}
	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Model Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   128,
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model bind group layout: %w", err)
	}
	b.modelLayout = layout
	return layout, nil
}

// featureTexMask maps material feature bits to the five texture pair slots:
// base color, normal, metallic-roughness, emissive, occlusion.
func featureTexMask(key shader.VariantKey) uint8 {
	features := []material.FeatureMask{
		material.FeatureBaseColorTexture,
		material.FeatureNormalTexture,
		material.FeatureMetallicRoughnessTexture,
		material.FeatureEmissiveTexture,
		material.FeatureOcclusionTexture,
	}
	var mask uint8
	for i, f := range features {
		if key.Features&f != 0 {
			mask |= 1 << i
		}
	}
	return mask
}

func (b *wgpuBackendImpl) materialBindGroupLayout(mask uint8) (*wgpu.BindGroupLayout, error) {
	if layout, ok := b.materialLayouts[mask]; ok {
		return layout, nil
	}
	entries := []wgpu.BindGroupLayoutEntry{{
		Binding:    0,
		Visibility: wgpu.ShaderStageFragment,
		Buffer: wgpu.BufferBindingLayout{
			Type:             wgpu.BufferBindingTypeUniform,
			HasDynamicOffset: true,
			MinBindingSize:   48,
		},
	}}
	for slot := 0; slot < 5; slot++ {
		if mask&(1<<slot) == 0 {
			continue
		}
		entries = append(entries,
			wgpu.BindGroupLayoutEntry{
				Binding:    uint32(1 + slot*2),
				Visibility: wgpu.ShaderStageFragment,
				Texture:    wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat, ViewDimension: wgpu.TextureViewDimension2D},
			},
			wgpu.BindGroupLayoutEntry{
				Binding:    uint32(2 + slot*2),
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		)
	}
	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Material Bind Group Layout",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create material bind group layout: %w", err)
	}
	b.materialLayouts[mask] = layout
	return layout, nil
}

func topologyFor(mode model.DrawMode) wgpu.PrimitiveTopology {
	switch mode {
	case model.DrawTriangleStrip:
		return wgpu.PrimitiveTopologyTriangleStrip
	case model.DrawLines:
		return wgpu.PrimitiveTopologyLineList
	case model.DrawPoints:
		return wgpu.PrimitiveTopologyPointList
	default:
		return wgpu.PrimitiveTopologyTriangleList
	}
}

func cullModeFor(cull CullMode) wgpu.CullMode {
	switch cull {
	case CullFront:
		return wgpu.CullModeFront
	case CullNone:
		return wgpu.CullModeNone
	default:
		return wgpu.CullModeBack
	}
}

func (b *wgpuBackendImpl) CreateProgram(variant shader.Variant, cfg ProgramConfig) (ProgramID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := variant.Key()
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: key.String(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: variant.Source(),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create shader module for variant [%s]: %w", key.String(), err)
	}

	sig := group0SigForKey(key)
	g0, err := b.group0Layout(sig)
	if err != nil {
		return 0, err
	}
	g1, err := b.modelBindGroupLayout()
	if err != nil {
		return 0, err
	}
	groupLayouts := []*wgpu.BindGroupLayout{g0, g1}

	hasMaterialGroup := key.Pass == shader.PassForward || variant.HasFragment()
	texMask := uint8(0)
	if hasMaterialGroup {
		texMask = featureTexMask(key)
		g2, err := b.materialBindGroupLayout(texMask)
		if err != nil {
			return 0, err
		}
		groupLayouts = append(groupLayouts, g2)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            cfg.Label,
		BindGroupLayouts: groupLayouts,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create pipeline layout for variant [%s]: %w", key.String(), err)
	}

	descriptor := &wgpu.RenderPipelineDescriptor{
		Label:  cfg.Label + " " + key.String(),
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: shader.VertexEntryPoint,
			Buffers:    []wgpu.VertexBufferLayout{vertexBufferLayout},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topologyFor(cfg.Topology),
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullModeFor(cfg.Cull),
		},
	}

	if key.Pass == shader.PassShadow {
		descriptor.Multisample = wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF}
		descriptor.DepthStencil = &wgpu.DepthStencilState{
			Format:              wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled:   true,
			DepthCompare:        wgpu.CompareFunctionLess,
			DepthBias:           cfg.DepthBias,
			DepthBiasSlopeScale: cfg.DepthBiasSlope,
			StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
		if variant.HasFragment() {
			// Cutout casters run a fragment stage for alpha discard but still
			// write no color.
			descriptor.Fragment = &wgpu.FragmentState{
				Module:     module,
				EntryPoint: shader.FragmentEntryPoint,
				Targets:    nil,
			}
		}
	} else {
		colorTarget := wgpu.ColorTargetState{
			Format:    *b.surfaceFormat,
			WriteMask: wgpu.ColorWriteMaskAll,
		}
		if cfg.Blend {
			colorTarget.Blend = &wgpu.BlendState{
				Color: wgpu.BlendComponent{
					Operation: wgpu.BlendOperationAdd,
					SrcFactor: wgpu.BlendFactorSrcAlpha,
					DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				},
				Alpha: wgpu.BlendComponent{
					Operation: wgpu.BlendOperationAdd,
					SrcFactor: wgpu.BlendFactorOne,
					DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				},
			}
		}
		descriptor.Fragment = &wgpu.FragmentState{
			Module:     module,
			EntryPoint: shader.FragmentEntryPoint,
			Targets:    []wgpu.ColorTargetState{colorTarget},
		}
		descriptor.Multisample = wgpu.MultisampleState{Count: uint32(b.sampleCount), Mask: 0xFFFFFFFF}
		descriptor.DepthStencil = &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: !cfg.Blend,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		}
	}

	created, err := b.device.CreateRenderPipeline(descriptor)
	if err != nil {
		return 0, fmt.Errorf("failed to create render pipeline for variant [%s]: %w", key.String(), err)
	}

	b.nextHandle++
	id := ProgramID(b.nextHandle)
	b.programs[id] = &wgpuProgram{pipeline: created, texMask: texMask, hasMaterialGroup: hasMaterialGroup}
	return id, nil
}

// ensureArena makes sure an arena has room for at least slots entries,
// recreating the buffer (and invalidating dependent bind groups) when it
// grows.
func (b *wgpuBackendImpl) ensureArena(arena *uniformArena, label string, slots uint64) error {
	if arena.buffer != nil && arena.capacity >= slots {
		return nil
	}
	capacity := arena.capacity
	if capacity == 0 {
		capacity = arenaSlots
	}
	for capacity < slots {
		capacity *= 2
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  capacity * uniformAlign,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrResourceAllocation, label, err)
	}
	if arena.buffer != nil {
		arena.buffer.Release()
	}
	arena.buffer = buf
	arena.capacity = capacity

	// Bind groups referencing the old buffer are stale.
	if b.modelBindGroup != nil {
		b.modelBindGroup.Release()
		b.modelBindGroup = nil
	}
	for k, bg := range b.materialBindGroups {
		bg.Release()
		delete(b.materialBindGroups, k)
	}
	return nil
}

// acquirePassBuffer returns a pooled 256-byte uniform buffer for per-pass
// uniforms, growing the pool as needed.
func (b *wgpuBackendImpl) acquirePassBuffer() (*wgpu.Buffer, error) {
	if b.passBufferIndex < len(b.passBuffers) {
		buf := b.passBuffers[b.passBufferIndex]
		b.passBufferIndex++
		return buf, nil
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Pass Uniform Buffer",
		Size:  uniformAlign,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: pass uniform buffer: %v", ErrResourceAllocation, err)
	}
	b.passBuffers = append(b.passBuffers, buf)
	b.passBufferIndex++
	return buf, nil
}

func (b *wgpuBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Defensive: if a previous frame's surface texture is still held, avoid
	// attempting to acquire another one. This prevents wgpu-native validation
	// errors like "Surface image is already acquired" when frames overlap.
	if b.frameSurface != nil || b.frameEncoder != nil {
		return ErrFrameInProgress
	}
	if b.renderPassDescriptor == nil {
		return ErrNotInitialized
	}

	if b.offscreen {
		view, err := b.offscreenTexture.CreateView(nil)
		if err != nil {
			return err
		}
		encoder, err := b.device.CreateCommandEncoder(nil)
		if err != nil {
			view.Release()
			return err
		}
		b.frameEncoder = encoder
		b.frameView = view
		b.passBufferIndex = 0
		b.drawIndex = 0
		return nil
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.frameEncoder = encoder
	b.frameSurface = surfaceTexture
	b.frameView = view
	b.passBufferIndex = 0
	b.drawIndex = 0
	return nil
}

func (b *wgpuBackendImpl) BeginShadowPass(target TargetID, layer uint32, uniforms PassUniforms) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNotInitialized
	}
	t, ok := b.targets[target]
	if !ok || int(layer) >= len(t.layerViews) {
		return fmt.Errorf("shadow target %d layer %d: %w", target, layer, ErrUnknownHandle)
	}

	buf, err := b.acquirePassBuffer()
	if err != nil {
		return err
	}
	b.queue.WriteBuffer(buf, 0, uniforms.Camera)

	layout, err := b.group0Layout(group0Sig{pass: shader.PassShadow})
	if err != nil {
		return err
	}
	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Shadow Pass Bind Group",
		Layout: layout,
		Entries: []wgpu.BindGroupEntry{{
			Binding: 0,
			Buffer:  buf,
			Size:    wgpu.WholeSize,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to create shadow pass bind group: %w", err)
	}
	b.frameBindGroups = append(b.frameBindGroups, bindGroup)

	pass := b.frameEncoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		// No color attachments. Depth is stored: it is the shadow map.
		ColorAttachments: nil,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            t.layerViews[layer],
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	pass.SetBindGroup(0, bindGroup, nil)
	b.pass = pass
	return nil
}

func (b *wgpuBackendImpl) BeginForwardPass(clear [4]float32, uniforms PassUniforms) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNotInitialized
	}

	sig := group0Sig{
		pass:    shader.PassForward,
		lit:     uniforms.Lights != nil,
		shadows: uniforms.ShadowSlots != nil,
		point:   uniforms.PointShadowMap != 0,
	}
	layout, err := b.group0Layout(sig)
	if err != nil {
		return err
	}

	camBuf, err := b.acquirePassBuffer()
	if err != nil {
		return err
	}
	b.queue.WriteBuffer(camBuf, 0, uniforms.Camera)
	entries := []wgpu.BindGroupEntry{{
		Binding: 0,
		Buffer:  camBuf,
		Size:    wgpu.WholeSize,
	}}

	if sig.lit {
		if b.lightsBuffer == nil {
			size := uint64(16 + light.MaxGPULights*64)
			b.lightsBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: "Light Storage Buffer",
				Size:  size,
				Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return fmt.Errorf("%w: light storage buffer: %v", ErrResourceAllocation, err)
			}
		}
		b.queue.WriteBuffer(b.lightsBuffer, 0, uniforms.Lights)
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: 1,
			Buffer:  b.lightsBuffer,
			Size:    wgpu.WholeSize,
		})
	}
	if sig.shadows {
		if b.shadowBuffer == nil {
			b.shadowBuffer, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: "Shadow Slot Buffer",
				Size:  light.MaxShadowCasters * 80,
				Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return fmt.Errorf("%w: shadow slot buffer: %v", ErrResourceAllocation, err)
			}
		}
		b.queue.WriteBuffer(b.shadowBuffer, 0, uniforms.ShadowSlots)

		atlas, ok := b.targets[uniforms.ShadowMaps]
		if !ok {
			return fmt.Errorf("shadow atlas %d: %w", uniforms.ShadowMaps, ErrUnknownHandle)
		}
		if b.comparisonSampler == nil {
			b.comparisonSampler, err = b.device.CreateSampler(&wgpu.SamplerDescriptor{
				Label:         "Shadow Comparison Sampler",
				AddressModeU:  wgpu.AddressModeClampToEdge,
				AddressModeV:  wgpu.AddressModeClampToEdge,
				AddressModeW:  wgpu.AddressModeClampToEdge,
				MagFilter:     wgpu.FilterModeLinear,
				MinFilter:     wgpu.FilterModeLinear,
				MipmapFilter:  wgpu.MipmapFilterModeNearest,
				Compare:       wgpu.CompareFunctionLess,
				MaxAnisotropy: 1,
			})
			if err != nil {
				return fmt.Errorf("%w: comparison sampler: %v", ErrResourceAllocation, err)
			}
		}
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: 2, Buffer: b.shadowBuffer, Size: wgpu.WholeSize},
			wgpu.BindGroupEntry{Binding: 3, TextureView: atlas.sampleView},
			wgpu.BindGroupEntry{Binding: 4, Sampler: b.comparisonSampler},
		)
		if sig.point {
			cube, ok := b.targets[uniforms.PointShadowMap]
			if !ok {
				return fmt.Errorf("point shadow map %d: %w", uniforms.PointShadowMap, ErrUnknownHandle)
			}
			entries = append(entries,
				wgpu.BindGroupEntry{Binding: 5, TextureView: cube.sampleView},
				wgpu.BindGroupEntry{Binding: 6, Sampler: b.comparisonSampler},
			)
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Forward Pass Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("failed to create forward pass bind group: %w", err)
	}
	b.frameBindGroups = append(b.frameBindGroups, bindGroup)

	b.renderPassDescriptor.ColorAttachments[0].ClearValue = wgpu.Color{
		R: float64(clear[0]), G: float64(clear[1]), B: float64(clear[2]), A: float64(clear[3]),
	}
	// When MSAA is enabled, the MSAA texture is the color attachment View and
	// the swapchain view is the ResolveTarget. When MSAA is off, the swapchain
	// view is the color attachment View directly.
	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = b.frameView
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = b.frameView
	}

	pass := b.frameEncoder.BeginRenderPass(b.renderPassDescriptor)
	pass.SetBindGroup(0, bindGroup, nil)
	b.pass = pass
	return nil
}

func (b *wgpuBackendImpl) Draw(cmd DrawCommand) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return ErrNotInitialized
	}
	program, ok := b.programs[cmd.Program]
	if !ok {
		return fmt.Errorf("program %d: %w", cmd.Program, ErrUnknownHandle)
	}
	geometry, ok := b.geometries[cmd.Geometry]
	if !ok {
		return fmt.Errorf("geometry %d: %w", cmd.Geometry, ErrUnknownHandle)
	}

	slot := b.drawIndex
	b.drawIndex++
	if err := b.ensureArena(&b.modelArena, "Model Uniform Arena", slot+1); err != nil {
		return err
	}
	if err := b.ensureArena(&b.materialArena, "Material Uniform Arena", slot+1); err != nil {
		return err
	}
	offset := uint32(slot * uniformAlign)
	b.queue.WriteBuffer(b.modelArena.buffer, uint64(offset), cmd.ModelUniform)

	if b.modelBindGroup == nil {
		layout, err := b.modelBindGroupLayout()
		if err != nil {
			return err
		}
		b.modelBindGroup, err = b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "Model Bind Group",
			Layout: layout,
			Entries: []wgpu.BindGroupEntry{{
				Binding: 0,
				Buffer:  b.modelArena.buffer,
				Size:    128,
			}},
		})
		if err != nil {
			return fmt.Errorf("failed to create model bind group: %w", err)
		}
	}

	b.pass.SetPipeline(program.pipeline)
	b.pass.SetBindGroup(1, b.modelBindGroup, []uint32{offset})

	if program.hasMaterialGroup {
		if cmd.MaterialUniform == nil {
			return fmt.Errorf("draw with program %d requires a material uniform", cmd.Program)
		}
		b.queue.WriteBuffer(b.materialArena.buffer, uint64(offset), cmd.MaterialUniform)
		bg, err := b.materialBindGroup(program.texMask, cmd.Textures)
		if err != nil {
			return err
		}
		b.pass.SetBindGroup(2, bg, []uint32{offset})
	}

	b.pass.SetVertexBuffer(0, geometry.vertexBuffer, 0, wgpu.WholeSize)
	if geometry.indexBuffer != nil {
		b.pass.SetIndexBuffer(geometry.indexBuffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		b.pass.DrawIndexed(geometry.indexCount, 1, 0, 0, 0)
	} else {
		b.pass.Draw(geometry.vertexCount, 1, 0, 0)
	}
	return nil
}

// materialBindGroup returns a bind group for a texture set, cached across
// frames since material texture sets are stable.
func (b *wgpuBackendImpl) materialBindGroup(mask uint8, textures [5]TextureID) (*wgpu.BindGroup, error) {
	key := materialBindKey{mask: mask, textures: textures}
	if bg, ok := b.materialBindGroups[key]; ok {
		return bg, nil
	}

	layout, err := b.materialBindGroupLayout(mask)
	if err != nil {
		return nil, err
	}
	entries := []wgpu.BindGroupEntry{{
		Binding: 0,
		Buffer:  b.materialArena.buffer,
		Size:    48,
	}}
	for slot := 0; slot < 5; slot++ {
		if mask&(1<<slot) == 0 {
			continue
		}
		tex, ok := b.textures[textures[slot]]
		if !ok {
			return nil, fmt.Errorf("material texture %d: %w", textures[slot], ErrUnknownHandle)
		}
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: uint32(1 + slot*2), TextureView: tex.view},
			wgpu.BindGroupEntry{Binding: uint32(2 + slot*2), Sampler: tex.sampler},
		)
	}

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Material Bind Group",
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create material bind group: %w", err)
	}
	b.materialBindGroups[key] = bg
	return bg, nil
}

func (b *wgpuBackendImpl) EndPass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pass == nil {
		return ErrNotInitialized
	}
	b.pass.End()
	b.pass = nil
	return nil
}

func (b *wgpuBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameEncoder == nil {
		return ErrNotInitialized
	}

	commandBuffer, err := b.frameEncoder.Finish(nil)
	if err == nil {
		b.queue.Submit(commandBuffer)
		commandBuffer.Release()
		if !b.offscreen {
			b.surface.Present()
		}
	}

	b.frameEncoder.Release()
	b.frameEncoder = nil
	b.frameView.Release()
	b.frameView = nil
	if b.frameSurface != nil {
		b.frameSurface.Release()
		b.frameSurface = nil
	}

	for _, bg := range b.frameBindGroups {
		bg.Release()
	}
	b.frameBindGroups = b.frameBindGroups[:0]

	if err != nil {
		return fmt.Errorf("failed to finish frame command buffer: %w", err)
	}
	return nil
}

func (b *wgpuBackendImpl) ReadPixels() (*image.RGBA, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.offscreen {
		return nil, ErrReadbackUnsupported
	}
	if b.frameEncoder != nil {
		return nil, ErrFrameInProgress
	}
	if b.offscreenTexture == nil {
		return nil, ErrNotInitialized
	}

	width, height := b.offscreenWidth, b.offscreenHeight
	// Buffer copies require 256-byte row alignment.
	alignedRow := (width*4 + 255) &^ 255
	size := uint64(alignedRow) * uint64(height)

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: readback buffer: %v", ErrResourceAllocation, err)
	}
	defer buf.Release()

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	err = encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture: b.offscreenTexture,
			Aspect:  wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: buf,
			Layout: wgpu.TextureDataLayout{
				BytesPerRow:  alignedRow,
				RowsPerImage: height,
			},
		},
		&wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		encoder.Release()
		return nil, fmt.Errorf("failed to encode readback copy: %w", err)
	}
	commandBuffer, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, fmt.Errorf("failed to finish readback command buffer: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()

	var mapErr error
	mapped := false
	err = buf.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		mapped = true
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("readback map failed with status %v", status)
		}
	})
	if err != nil {
		return nil, err
	}
	for !mapped {
		b.device.Poll(true, nil)
	}
	if mapErr != nil {
		return nil, mapErr
	}
	defer buf.Unmap()

	data := buf.GetMappedRange(0, uint(size))
	img := image.NewRGBA(image.Rect(0, 0, int(width), int(height)))
	rowBytes := int(width) * 4
	for y := 0; y < int(height); y++ {
		copy(img.Pix[y*rowBytes:(y+1)*rowBytes], data[y*int(alignedRow):y*int(alignedRow)+rowBytes])
	}
	return img, nil
}

func (b *wgpuBackendImpl) ReleaseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, g := range b.geometries {
		g.vertexBuffer.Release()
		if g.indexBuffer != nil {
			g.indexBuffer.Release()
		}
		delete(b.geometries, id)
	}
	for id, t := range b.textures {
		t.view.Release()
		t.sampler.Release()
		t.texture.Release()
		delete(b.textures, id)
	}
	for id, t := range b.targets {
		for _, lv := range t.layerViews {
			lv.Release()
		}
		t.sampleView.Release()
		t.texture.Release()
		delete(b.targets, id)
	}
	for id, p := range b.programs {
		p.pipeline.Release()
		delete(b.programs, id)
	}
	for k, bg := range b.materialBindGroups {
		bg.Release()
		delete(b.materialBindGroups, k)
	}
	if b.modelBindGroup != nil {
		b.modelBindGroup.Release()
		b.modelBindGroup = nil
	}
	if b.modelArena.buffer != nil {
		b.modelArena.buffer.Release()
		b.modelArena = uniformArena{}
	}
	if b.materialArena.buffer != nil {
		b.materialArena.buffer.Release()
		b.materialArena = uniformArena{}
	}
	for _, buf := range b.passBuffers {
		buf.Release()
	}
	b.passBuffers = nil
	b.passBufferIndex = 0
	if b.lightsBuffer != nil {
		b.lightsBuffer.Release()
		b.lightsBuffer = nil
	}
	if b.shadowBuffer != nil {
		b.shadowBuffer.Release()
		b.shadowBuffer = nil
	}
	if b.offscreenTexture != nil {
		b.offscreenTexture.Release()
		b.offscreenTexture = nil
	}
	b.nextHandle = 0
}
