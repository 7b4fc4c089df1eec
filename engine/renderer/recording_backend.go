package renderer

import (
	"fmt"
	"image"

	"github.com/lumen3d/lumen/engine/renderer/shader"
)

// RecordedOp is one backend call captured by a RecordingBackend.
type RecordedOp struct {
	// Op is the call name, e.g. "BeginShadowPass" or "Draw".
	Op string

	// Target is the depth target for pass ops, zero otherwise.
	Target TargetID

	// Layer is the array layer or cube face for shadow pass ops.
	Layer uint32

	// Draw holds the command for "Draw" ops.
	Draw DrawCommand

	// Uniforms holds the pass uniforms for pass-begin ops.
	Uniforms PassUniforms

	// Clear holds the clear color for "BeginForwardPass" ops.
	Clear [4]float32
}

// RecordingBackend is an in-memory Backend that records every call instead of
// touching a GPU. Tests drive the render passes against it and assert on the
// recorded op sequence. Allocation failures can be injected per resource kind
// to exercise degradation paths.
type RecordingBackend struct {
	// Ops is the recorded call sequence, in submission order.
	Ops []RecordedOp

	// FailDepthTargets makes CreateDepthTarget return ErrResourceAllocation
	// after the given number of successful calls. Negative disables injection.
	FailDepthTargets int

	// FailTextures makes CreateTexture return ErrResourceAllocation after the
	// given number of successful calls. Negative disables injection.
	FailTextures int

	// FailGeometry makes CreateGeometry return ErrResourceAllocation after
	// the given number of successful calls. Negative disables injection.
	FailGeometry int

	nextHandle   uint64
	geometry     map[GeometryID]GeometryUpload
	textures     map[TextureID]TextureUpload
	targets      map[TargetID]DepthTargetConfig
	programs     map[ProgramID]shader.VariantKey
	frameOpen    bool
	passOpen     bool
	depthTargets int
	texUploads   int
	geomUploads  int
	released     int
	width        uint32
	height       uint32
	lastClear    [4]float32
}

var _ Backend = &RecordingBackend{}

// NewRecordingBackend creates a RecordingBackend with failure injection
// disabled.
//
// Returns:
//   - *RecordingBackend: the backend
func NewRecordingBackend() *RecordingBackend {
	return &RecordingBackend{
		FailDepthTargets: -1,
		FailTextures:     -1,
		FailGeometry:     -1,
		geometry:         make(map[GeometryID]GeometryUpload),
		textures:         make(map[TextureID]TextureUpload),
		targets:          make(map[TargetID]DepthTargetConfig),
		programs:         make(map[ProgramID]shader.VariantKey),
	}
}

// OpNames returns just the Op field of every recorded call, for compact
// sequence assertions.
func (b *RecordingBackend) OpNames() []string {
	names := make([]string, len(b.Ops))
	for i, op := range b.Ops {
		names[i] = op.Op
	}
	return names
}

// DrawsInPass returns the draw commands recorded between the i-th pass-begin
// op and its matching EndPass.
func (b *RecordingBackend) DrawsInPass(passIndex int) []DrawCommand {
	seen := -1
	var draws []DrawCommand
	for _, op := range b.Ops {
		switch op.Op {
		case "BeginShadowPass", "BeginForwardPass":
			seen++
		case "Draw":
			if seen == passIndex {
				draws = append(draws, op.Draw)
			}
		}
	}
	return draws
}

// GeometryFor returns the upload recorded for a geometry handle.
func (b *RecordingBackend) GeometryFor(id GeometryID) (GeometryUpload, bool) {
	g, ok := b.geometry[id]
	return g, ok
}

// TargetFor returns the config recorded for a depth target handle.
func (b *RecordingBackend) TargetFor(id TargetID) (DepthTargetConfig, bool) {
	t, ok := b.targets[id]
	return t, ok
}

// ProgramKeyFor returns the variant key recorded for a program handle.
func (b *RecordingBackend) ProgramKeyFor(id ProgramID) (shader.VariantKey, bool) {
	k, ok := b.programs[id]
	return k, ok
}

// Released reports how many times ReleaseAll has been called.
func (b *RecordingBackend) Released() int { return b.released }

func (b *RecordingBackend) Name() string { return "recording" }

func (b *RecordingBackend) CreateGeometry(upload GeometryUpload) (GeometryID, error) {
	if b.FailGeometry >= 0 && b.geomUploads >= b.FailGeometry {
		return 0, fmt.Errorf("geometry %q: %w", upload.Label, ErrResourceAllocation)
	}
	b.geomUploads++
	b.nextHandle++
	id := GeometryID(b.nextHandle)
	b.geometry[id] = upload
	return id, nil
}

func (b *RecordingBackend) CreateTexture(upload TextureUpload) (TextureID, error) {
	if b.FailTextures >= 0 && b.texUploads >= b.FailTextures {
		return 0, fmt.Errorf("texture %q: %w", upload.Label, ErrResourceAllocation)
	}
	b.texUploads++
	b.nextHandle++
	id := TextureID(b.nextHandle)
	b.textures[id] = upload
	return id, nil
}

func (b *RecordingBackend) CreateDepthTarget(cfg DepthTargetConfig) (TargetID, error) {
	if b.FailDepthTargets >= 0 && b.depthTargets >= b.FailDepthTargets {
		return 0, fmt.Errorf("depth target %q: %w", cfg.Label, ErrResourceAllocation)
	}
	b.depthTargets++
	b.nextHandle++
	id := TargetID(b.nextHandle)
	b.targets[id] = cfg
	return id, nil
}

func (b *RecordingBackend) CreateProgram(variant shader.Variant, cfg ProgramConfig) (ProgramID, error) {
	b.nextHandle++
	id := ProgramID(b.nextHandle)
	b.programs[id] = variant.Key()
	return id, nil
}

func (b *RecordingBackend) BeginFrame() error {
	if b.frameOpen {
		return ErrFrameInProgress
	}
	b.frameOpen = true
	b.Ops = append(b.Ops, RecordedOp{Op: "BeginFrame"})
	return nil
}

func (b *RecordingBackend) BeginShadowPass(target TargetID, layer uint32, uniforms PassUniforms) error {
	if !b.frameOpen {
		return fmt.Errorf("shadow pass outside frame: %w", ErrNotInitialized)
	}
	if b.passOpen {
		return fmt.Errorf("shadow pass while another pass is open")
	}
	if _, ok := b.targets[target]; !ok {
		return fmt.Errorf("shadow target %d: %w", target, ErrUnknownHandle)
	}
	b.passOpen = true
	b.Ops = append(b.Ops, RecordedOp{Op: "BeginShadowPass", Target: target, Layer: layer, Uniforms: uniforms})
	return nil
}

func (b *RecordingBackend) BeginForwardPass(clear [4]float32, uniforms PassUniforms) error {
	if !b.frameOpen {
		return fmt.Errorf("forward pass outside frame: %w", ErrNotInitialized)
	}
	if b.passOpen {
		return fmt.Errorf("forward pass while another pass is open")
	}
	b.passOpen = true
	b.lastClear = clear
	b.Ops = append(b.Ops, RecordedOp{Op: "BeginForwardPass", Clear: clear, Uniforms: uniforms})
	return nil
}

func (b *RecordingBackend) Draw(cmd DrawCommand) error {
	if !b.passOpen {
		return fmt.Errorf("draw outside pass")
	}
	if _, ok := b.programs[cmd.Program]; !ok {
		return fmt.Errorf("program %d: %w", cmd.Program, ErrUnknownHandle)
	}
	if _, ok := b.geometry[cmd.Geometry]; !ok {
		return fmt.Errorf("geometry %d: %w", cmd.Geometry, ErrUnknownHandle)
	}
	b.Ops = append(b.Ops, RecordedOp{Op: "Draw", Draw: cmd})
	return nil
}

func (b *RecordingBackend) EndPass() error {
	if !b.passOpen {
		return fmt.Errorf("end pass with no pass open")
	}
	b.passOpen = false
	b.Ops = append(b.Ops, RecordedOp{Op: "EndPass"})
	return nil
}

func (b *RecordingBackend) EndFrame() error {
	if !b.frameOpen {
		return fmt.Errorf("end frame with no frame open")
	}
	if b.passOpen {
		return fmt.Errorf("end frame with a pass still open")
	}
	b.frameOpen = false
	b.Ops = append(b.Ops, RecordedOp{Op: "EndFrame"})
	return nil
}

func (b *RecordingBackend) Resize(width, height uint32) {
	b.width = width
	b.height = height
	b.Ops = append(b.Ops, RecordedOp{Op: "Resize"})
}

// ReadPixels synthesizes an image filled with the last forward pass clear
// color at the last resized dimensions, so snapshot plumbing is testable
// without a GPU.
func (b *RecordingBackend) ReadPixels() (*image.RGBA, error) {
	if b.frameOpen {
		return nil, ErrFrameInProgress
	}
	w, h := b.width, b.height
	if w == 0 || h == 0 {
		w, h = 1, 1
	}
	b.Ops = append(b.Ops, RecordedOp{Op: "ReadPixels"})

	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	var px [4]uint8
	for i, c := range b.lastClear {
		if c < 0 {
			c = 0
		}
		if c > 1 {
			c = 1
		}
		px[i] = uint8(c*255 + 0.5)
	}
	for i := 0; i < len(img.Pix); i += 4 {
		copy(img.Pix[i:i+4], px[:])
	}
	return img, nil
}

func (b *RecordingBackend) ReleaseAll() {
	b.released++
	b.nextHandle = 0
	b.geometry = make(map[GeometryID]GeometryUpload)
	b.textures = make(map[TextureID]TextureUpload)
	b.targets = make(map[TargetID]DepthTargetConfig)
	b.programs = make(map[ProgramID]shader.VariantKey)
	b.depthTargets = 0
	b.texUploads = 0
	b.geomUploads = 0
	b.Ops = append(b.Ops, RecordedOp{Op: "ReleaseAll"})
}
