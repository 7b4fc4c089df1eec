package renderer

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/lumen3d/lumen/engine/camera"
	"github.com/lumen3d/lumen/engine/light"
	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/model"
	"github.com/lumen3d/lumen/engine/renderer/shader"
	"github.com/lumen3d/lumen/engine/scene"
)

// testScene returns a scene with an active camera at the origin looking down
// the negative Z axis.
func testScene(t *testing.T) scene.Scene {
	t.Helper()
	s := scene.NewScene("test")
	camNode := scene.NewNode(
		scene.WithName("camera"),
		scene.WithCamera(camera.NewCamera()),
	)
	if err := s.Add(camNode, nil); err != nil {
		t.Fatalf("adding camera node: %v", err)
	}
	if err := s.SetActiveCamera(camNode); err != nil {
		t.Fatalf("setting active camera: %v", err)
	}
	return s
}

// addMesh adds a small triangle mesh at the given depth in front of the
// camera. Blended meshes get an alpha-blend material.
func addMesh(t *testing.T, s scene.Scene, name string, z float32, blended bool) model.Primitive {
	t.Helper()
	opts := []material.MaterialBuilderOption{material.WithName(name)}
	if blended {
		opts = append(opts, material.WithAlphaMode(material.AlphaBlend, 0))
	}
	p := model.NewPrimitive(
		model.WithName(name),
		model.WithPositions([][3]float32{{-0.5, -0.5, 0}, {0.5, -0.5, 0}, {0, 0.5, 0}}),
		model.WithNormals([][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}),
		model.WithIndices([]uint32{0, 1, 2}),
		model.WithMaterial(material.NewMaterial(opts...)),
	)
	n := scene.NewNode(
		scene.WithName(name),
		scene.WithTranslation(0, 0, z),
		scene.WithMesh(model.NewMesh(name, p)),
	)
	if err := s.Add(n, nil); err != nil {
		t.Fatalf("adding mesh node %q: %v", name, err)
	}
	return p
}

func addLight(t *testing.T, s scene.Scene, name string, l light.Light) {
	t.Helper()
	n := scene.NewNode(scene.WithName(name), scene.WithLight(l))
	if err := s.Add(n, nil); err != nil {
		t.Fatalf("adding light node %q: %v", name, err)
	}
}

// drawLabels maps a pass's draw commands to the geometry labels they
// reference, preserving draw order.
func drawLabels(t *testing.T, backend *RecordingBackend, passIndex int) []string {
	t.Helper()
	var labels []string
	for _, cmd := range backend.DrawsInPass(passIndex) {
		upload, ok := backend.GeometryFor(cmd.Geometry)
		if !ok {
			t.Fatalf("draw references unknown geometry %d", cmd.Geometry)
		}
		labels = append(labels, upload.Label)
	}
	return labels
}

func TestRenderFrameWithoutCameraFails(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := scene.NewScene("empty")
	if err := r.RenderFrame(s); !errors.Is(err, ErrNoActiveCamera) {
		t.Fatalf("err = %v, want ErrNoActiveCamera", err)
	}
	if len(backend.Ops) != 0 {
		t.Errorf("backend touched before camera validation: %v", backend.OpNames())
	}
}

func TestNewRendererRejectsBadShadowResolution(t *testing.T) {
	for _, res := range []uint32{0, 100, 3000, 16384} {
		if _, err := NewRenderer(NewRecordingBackend(), 800, 600, WithShadowResolution(res)); err == nil {
			t.Errorf("resolution %d accepted", res)
		}
	}
	if _, err := NewRenderer(NewRecordingBackend(), 800, 600, WithShadowResolution(1024)); err != nil {
		t.Errorf("resolution 1024 rejected: %v", err)
	}
}

func TestRenderFramePassOrder(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := testScene(t)
	addMesh(t, s, "ground", -5, false)
	addMesh(t, s, "glass", -4, true)
	addLight(t, s, "sun", light.NewLight(light.LightTypeDirectional, light.WithCastsShadows(true)))

	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	names := backend.OpNames()
	if names[0] != "BeginFrame" || names[len(names)-1] != "EndFrame" {
		t.Fatalf("frame not bracketed: %v", names)
	}
	// One shadow pass for the directional light, then the forward pass.
	var passes []string
	for _, op := range names {
		if op == "BeginShadowPass" || op == "BeginForwardPass" {
			passes = append(passes, op)
		}
	}
	if len(passes) != 2 || passes[0] != "BeginShadowPass" || passes[1] != "BeginForwardPass" {
		t.Errorf("pass order = %v", passes)
	}

	// Blended items never cast shadows, so the shadow pass draws only the
	// opaque mesh.
	if labels := drawLabels(t, backend, 0); len(labels) != 1 || labels[0] != "ground" {
		t.Errorf("shadow pass draws = %v, want [ground]", labels)
	}
	if labels := drawLabels(t, backend, 1); len(labels) != 2 {
		t.Errorf("forward pass draws = %v, want both meshes", labels)
	}
}

func TestForwardPassSortsOpaqueFrontToBackBlendedBackToFront(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := testScene(t)
	addMesh(t, s, "opaque-far", -20, false)
	addMesh(t, s, "opaque-near", -2, false)
	addMesh(t, s, "opaque-mid", -8, false)
	addMesh(t, s, "blend-near", -3, true)
	addMesh(t, s, "blend-far", -15, true)

	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	labels := drawLabels(t, backend, 0)
	want := []string{"opaque-near", "opaque-mid", "opaque-far", "blend-far", "blend-near"}
	if len(labels) != len(want) {
		t.Fatalf("draw count = %d (%v), want %d", len(labels), labels, len(want))
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("draw %d = %q, want %q (full order %v)", i, labels[i], want[i], labels)
		}
	}
}

func TestForwardPassCullsOutsideFrustum(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := testScene(t)
	addMesh(t, s, "visible", -5, false)
	addMesh(t, s, "behind-camera", 5, false)

	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if labels := drawLabels(t, backend, 0); len(labels) != 1 || labels[0] != "visible" {
		t.Errorf("forward draws = %v, want [visible]", labels)
	}
}

func TestShadowSlotsCapAtFourInRegistrationOrder(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := testScene(t)
	addMesh(t, s, "ground", -5, false)
	for i := 0; i < 6; i++ {
		addLight(t, s, "sun", light.NewLight(light.LightTypeDirectional, light.WithCastsShadows(true)))
	}

	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	var layers []uint32
	var forward *RecordedOp
	for i, op := range backend.Ops {
		switch op.Op {
		case "BeginShadowPass":
			layers = append(layers, op.Layer)
		case "BeginForwardPass":
			forward = &backend.Ops[i]
		}
	}
	if len(layers) != light.MaxShadowCasters {
		t.Fatalf("shadow passes = %d, want %d", len(layers), light.MaxShadowCasters)
	}
	for i, layer := range layers {
		if layer != uint32(i) {
			t.Errorf("pass %d rendered layer %d, want registration order", i, layer)
		}
	}

	if forward == nil {
		t.Fatal("no forward pass recorded")
	}
	if got := len(forward.Uniforms.ShadowSlots); got != light.MaxShadowCasters*80 {
		t.Errorf("shadow slot buffer = %d bytes, want %d", got, light.MaxShadowCasters*80)
	}

	// The light buffer is a 16-byte header followed by 64-byte lights; the
	// shadow slot index sits at offset 56 of each light. The first four
	// lights get slots 0-3, the rest stay unshadowed.
	lightsBuf := forward.Uniforms.Lights
	for i := 0; i < 6; i++ {
		slot := binary.LittleEndian.Uint32(lightsBuf[16+i*64+56:])
		if i < light.MaxShadowCasters && slot != uint32(i) {
			t.Errorf("light %d slot = %d, want %d", i, slot, i)
		}
		if i >= light.MaxShadowCasters && slot != light.NoShadowSlot {
			t.Errorf("light %d slot = %d, want NoShadowSlot", i, slot)
		}
	}
}

func TestShadowAtlasFailureDegradesAndRetries(t *testing.T) {
	backend := NewRecordingBackend()
	backend.FailDepthTargets = 0
	r, err := NewRenderer(backend, 800, 600)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := testScene(t)
	addMesh(t, s, "ground", -5, false)
	addLight(t, s, "sun", light.NewLight(light.LightTypeDirectional, light.WithCastsShadows(true)))

	// Allocation fails: the frame still renders, just without shadows.
	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("degraded frame failed: %v", err)
	}
	for _, op := range backend.OpNames() {
		if op == "BeginShadowPass" {
			t.Fatal("shadow pass ran despite atlas allocation failure")
		}
	}
	var forward *RecordedOp
	for i, op := range backend.Ops {
		if op.Op == "BeginForwardPass" {
			forward = &backend.Ops[i]
		}
	}
	if forward == nil {
		t.Fatal("forward pass missing from degraded frame")
	}
	if forward.Uniforms.ShadowSlots != nil {
		t.Error("degraded frame still bound shadow slots")
	}

	// The failed handle was not memoized: the next frame retries and succeeds.
	backend.FailDepthTargets = -1
	backend.Ops = nil
	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("retry frame failed: %v", err)
	}
	found := false
	for _, op := range backend.OpNames() {
		if op == "BeginShadowPass" {
			found = true
		}
	}
	if !found {
		t.Error("atlas allocation was not retried on the next frame")
	}
}

func TestPointLightRendersSixCubeFaces(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := testScene(t)
	addMesh(t, s, "ground", -5, false)
	addLight(t, s, "lamp", light.NewLight(light.LightTypePoint,
		light.WithCastsShadows(true), light.WithRange(50)))
	// Only the first point light gets the cube map.
	addLight(t, s, "lamp2", light.NewLight(light.LightTypePoint,
		light.WithCastsShadows(true), light.WithRange(50)))

	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	var cubePasses []RecordedOp
	for _, op := range backend.Ops {
		if op.Op == "BeginShadowPass" {
			cubePasses = append(cubePasses, op)
		}
	}
	if len(cubePasses) != int(light.CubeFaceCount) {
		t.Fatalf("shadow passes = %d, want %d cube faces", len(cubePasses), light.CubeFaceCount)
	}
	cfg, ok := backend.TargetFor(cubePasses[0].Target)
	if !ok || !cfg.Cube {
		t.Errorf("shadow passes target %+v, want the cube map", cfg)
	}
	for face, op := range cubePasses {
		if op.Layer != uint32(face) {
			t.Errorf("face %d rendered into layer %d", face, op.Layer)
		}
	}
}

func TestPointShadowsDisabledSkipsCubeMap(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600, WithPointShadows(false))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := testScene(t)
	addMesh(t, s, "ground", -5, false)
	addLight(t, s, "lamp", light.NewLight(light.LightTypePoint,
		light.WithCastsShadows(true), light.WithRange(50)))

	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	for _, op := range backend.OpNames() {
		if op == "BeginShadowPass" {
			t.Fatal("point shadow rendered while disabled")
		}
	}
}

func TestUnlitModeSkipsShadowsAndLighting(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600, WithRenderMode(shader.ModeUnlit))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := testScene(t)
	addMesh(t, s, "ground", -5, false)
	addLight(t, s, "sun", light.NewLight(light.LightTypeDirectional, light.WithCastsShadows(true)))

	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	for i, op := range backend.Ops {
		if op.Op == "BeginShadowPass" {
			t.Fatal("unlit mode rendered a shadow pass")
		}
		if op.Op == "BeginForwardPass" && backend.Ops[i].Uniforms.Lights != nil {
			t.Error("unlit mode bound the light buffer")
		}
	}

	// Switching back to lit takes effect on the next frame.
	r.SetRenderMode(shader.ModeLit)
	backend.Ops = nil
	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("lit frame: %v", err)
	}
	found := false
	for _, op := range backend.OpNames() {
		if op == "BeginShadowPass" {
			found = true
		}
	}
	if !found {
		t.Error("lit mode rendered no shadow pass")
	}
}

func TestForwardVariantKeyCarriesShadowState(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := testScene(t)
	addMesh(t, s, "ground", -5, false)
	addLight(t, s, "sun", light.NewLight(light.LightTypeDirectional, light.WithCastsShadows(true)))
	addLight(t, s, "lamp", light.NewLight(light.LightTypePoint,
		light.WithCastsShadows(true), light.WithRange(50)))

	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	// 1 directional slot + 1 point slot, point cube bound.
	var forwardDraws []DrawCommand
	passes := 0
	for _, op := range backend.Ops {
		switch op.Op {
		case "BeginShadowPass":
		case "BeginForwardPass":
			passes = 1
		case "Draw":
			if passes == 1 {
				forwardDraws = append(forwardDraws, op.Draw)
			}
		}
	}
	if len(forwardDraws) == 0 {
		t.Fatal("no forward draws recorded")
	}
	key, ok := backend.ProgramKeyFor(forwardDraws[0].Program)
	if !ok {
		t.Fatal("forward draw references unknown program")
	}
	if key.ShadowCasters != 2 || !key.PointShadows {
		t.Errorf("forward variant key = %+v, want 2 shadow casters with point shadows", key)
	}
}

func TestRenderFrameIsNotReentrant(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	// Simulate a frame left open by poking the guard through a second
	// renderer call racing the first; the public contract is simply that the
	// error is ErrFrameInProgress. The recording backend enforces the same
	// invariant at its own layer.
	if err := backend.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	if err := backend.BeginFrame(); !errors.Is(err, ErrFrameInProgress) {
		t.Errorf("nested BeginFrame = %v, want ErrFrameInProgress", err)
	}
	_ = r
}

func TestShutdownReleasesEverything(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := testScene(t)
	addMesh(t, s, "ground", -5, false)
	addLight(t, s, "sun", light.NewLight(light.LightTypeDirectional, light.WithCastsShadows(true)))
	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	r.Shutdown()
	if backend.Released() != 1 {
		t.Errorf("backend released %d times, want 1", backend.Released())
	}
	if stats := r.Stats(); stats.Geometries != 0 || stats.Programs != 0 {
		t.Errorf("cache not empty after shutdown: %+v", stats)
	}
}

func TestSnapshotReadsBackTheRenderedFrame(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 8, 4)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	r.Resize(8, 4)

	s := scene.NewScene("snap", scene.WithBackgroundColor(1, 0, 0, 1))
	camNode := scene.NewNode(scene.WithCamera(camera.NewCamera()))
	if err := s.Add(camNode, nil); err != nil {
		t.Fatalf("adding camera node: %v", err)
	}
	if err := s.SetActiveCamera(camNode); err != nil {
		t.Fatalf("setting active camera: %v", err)
	}
	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	img, err := r.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Fatalf("snapshot bounds = %v, want 8x4", img.Bounds())
	}
	if got := img.RGBAAt(0, 0); got.R != 255 || got.G != 0 || got.B != 0 || got.A != 255 {
		t.Errorf("snapshot pixel = %v, want the clear color", got)
	}
}

func TestForwardPassBindsTheRenderedShadowMap(t *testing.T) {
	backend := NewRecordingBackend()
	r, err := NewRenderer(backend, 800, 600)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	s := testScene(t)
	addMesh(t, s, "tri", -5, false)
	addLight(t, s, "sun", light.NewLight(light.LightTypeDirectional, light.WithCastsShadows(true)))

	if err := r.RenderFrame(s); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	var shadows []RecordedOp
	var forward *RecordedOp
	for i, op := range backend.Ops {
		switch op.Op {
		case "BeginShadowPass":
			shadows = append(shadows, op)
		case "BeginForwardPass":
			forward = &backend.Ops[i]
		}
	}
	if len(shadows) != 1 {
		t.Fatalf("shadow passes = %d, want exactly 1", len(shadows))
	}
	if forward == nil {
		t.Fatal("no forward pass recorded")
	}
	if labels := drawLabels(t, backend, 1); len(labels) != 1 || labels[0] != "tri" {
		t.Fatalf("forward draws = %v, want exactly [tri]", labels)
	}

	// The forward pass samples the depth target the shadow pass rendered.
	if forward.Uniforms.ShadowMaps == 0 {
		t.Fatal("forward pass bound no shadow map")
	}
	if forward.Uniforms.ShadowMaps != shadows[0].Target {
		t.Errorf("forward pass bound target %d, shadow pass rendered %d",
			forward.Uniforms.ShadowMaps, shadows[0].Target)
	}
}
