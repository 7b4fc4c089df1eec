package renderer

import (
	"errors"
	"log"

	"github.com/lumen3d/lumen/common"
	"github.com/lumen3d/lumen/engine/camera"
	"github.com/lumen3d/lumen/engine/light"
	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/renderer/shader"
)

// forwardPassEngine renders the main color pass: opaque items front to back,
// then blended items back to front, all against the depth maps produced by
// the shadow passes.
type forwardPassEngine struct {
	backend Backend
	cache   ResourceCache
}

func newForwardPassEngine(backend Backend, cache ResourceCache) *forwardPassEngine {
	return &forwardPassEngine{backend: backend, cache: cache}
}

// Run encodes the forward pass. Per-item resource failures are logged and the
// item skipped; shader compile failures abort the frame.
func (e *forwardPassEngine) Run(f *frameState, sh shadowOutput, mode shader.RenderMode) error {
	camUniform := camera.GPUCameraUniform{ViewProj: f.viewProj, CameraPosition: f.cameraPos}
	uniforms := PassUniforms{Camera: camUniform.Marshal()}
	if mode == shader.ModeLit {
		uniforms.Lights = light.MarshalLightBuffer(f.lights, f.ambient)
		if len(sh.slots) > 0 {
			uniforms.ShadowSlots = light.MarshalShadowBuffer(sh.slots)
			uniforms.ShadowMaps = sh.atlas
			uniforms.PointShadowMap = sh.cube
		}
	}

	if err := e.backend.BeginForwardPass(f.background, uniforms); err != nil {
		return err
	}
	for i := range f.opaque {
		if err := e.drawItem(&f.opaque[i], sh, mode); err != nil {
			return err
		}
	}
	for i := range f.blended {
		if err := e.drawItem(&f.blended[i], sh, mode); err != nil {
			return err
		}
	}
	return e.backend.EndPass()
}

// drawItem encodes one forward draw. Missing or failed textures degrade the
// variant rather than failing the frame.
func (e *forwardPassEngine) drawItem(item *frameItem, sh shadowOutput, mode shader.RenderMode) error {
	key := shader.VariantKey{
		Pass:          shader.PassForward,
		Mode:          mode,
		Attributes:    item.primitive.Attributes(),
		Features:      item.mat.Features(),
		ShadowCasters: uint8(len(sh.slots)),
		PointShadows:  sh.pointMap,
	}

	var textures [5]TextureID
	bindings := []struct {
		feature material.FeatureMask
		tex     *common.ImportedTexture
		srgb    bool
		slot    int
	}{
		{material.FeatureBaseColorTexture, item.mat.BaseColorTexture(), true, 0},
		{material.FeatureNormalTexture, item.mat.NormalTexture(), false, 1},
		{material.FeatureMetallicRoughnessTexture, item.mat.MetallicRoughnessTexture(), false, 2},
		{material.FeatureEmissiveTexture, item.mat.EmissiveTexture(), true, 3},
		{material.FeatureOcclusionTexture, item.mat.OcclusionTexture(), false, 4},
	}
	for _, b := range bindings {
		if key.Features&b.feature == 0 || b.tex == nil {
			continue
		}
		id, err := e.cache.AcquireTexture(b.tex, b.srgb)
		if err != nil {
			log.Printf("forward: texture %q unavailable, shading without it: %v", b.tex.Name, err)
			key.Features &^= b.feature
			continue
		}
		textures[b.slot] = id
	}

	cull := CullBack
	if item.mat.DoubleSided() {
		cull = CullNone
	}
	program, err := e.cache.AcquireProgram(key, ProgramConfig{
		Blend:    item.blended,
		Cull:     cull,
		Topology: item.primitive.DrawMode(),
		Label:    "forward",
	})
	if err != nil {
		var compileErr *shader.CompileError
		if errors.As(err, &compileErr) {
			return err
		}
		log.Printf("forward: skipping %q, pipeline unavailable: %v", item.primitive.Name(), err)
		return nil
	}
	geometry, err := e.cache.AcquireGeometry(item.primitive)
	if err != nil {
		log.Printf("forward: skipping %q, geometry unavailable: %v", item.primitive.Name(), err)
		return nil
	}

	modelUniform := modelUniformFor(item)
	matUniform := material.ToGPUMaterialUniform(item.mat)
	return e.backend.Draw(DrawCommand{
		Program:         program,
		Geometry:        geometry,
		ModelUniform:    modelUniform.Marshal(),
		MaterialUniform: matUniform.Marshal(),
		Textures:        textures,
	})
}
