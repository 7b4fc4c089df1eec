package renderer

import (
	"errors"
	"log"
	"math"

	"github.com/lumen3d/lumen/common"
	"github.com/lumen3d/lumen/engine/light"
	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/renderer/shader"
)

// shadowNear is the near plane for all shadow projections.
const shadowNear = 0.1

// shadowOutput is what the shadow passes hand to the forward pass: the slot
// metadata for the shader and the depth targets to bind.
type shadowOutput struct {
	slots    []light.GPUShadowData
	atlas    TargetID
	cube     TargetID
	pointMap bool
}

// shadowPassEngine renders the per-light depth maps. It owns the shadow atlas
// (a depth array with one layer per slot) and the single point light cube
// map, both allocated lazily and reused across frames.
//
// Allocation failure never fails the frame: the engine logs, drops shadows
// for the frame, and retries the allocation on the next one.
type shadowPassEngine struct {
	backend    Backend
	cache      ResourceCache
	resolution uint32

	atlas TargetID
	cube  TargetID
}

func newShadowPassEngine(backend Backend, cache ResourceCache, resolution uint32) *shadowPassEngine {
	return &shadowPassEngine{backend: backend, cache: cache, resolution: resolution}
}

// invalidate drops the cached target handles. Called after ReleaseAll.
func (e *shadowPassEngine) invalidate() {
	e.atlas = 0
	e.cube = 0
}

// Run assigns shadow slots to the frame's candidate lights in registration
// order, renders a depth map per slot, and returns the slot metadata. Lights
// beyond the slot budget, and every light when the atlas cannot be allocated,
// keep NoShadowSlot and render unshadowed.
func (e *shadowPassEngine) Run(f *frameState) (shadowOutput, error) {
	var out shadowOutput
	if len(f.candidates) == 0 {
		return out, nil
	}

	if e.atlas == 0 {
		id, err := e.backend.CreateDepthTarget(DepthTargetConfig{
			Resolution: e.resolution,
			Layers:     light.MaxShadowCasters,
			Label:      "shadow atlas",
		})
		if err != nil {
			if errors.Is(err, ErrResourceAllocation) {
				log.Printf("shadow: atlas allocation failed, rendering unshadowed: %v", err)
				return out, nil
			}
			return out, err
		}
		e.atlas = id
	}
	out.atlas = e.atlas

	type assignment struct {
		cand  shadowCandidate
		slot  uint32
		point bool
	}
	var assigned []assignment
	pointTaken := false
	for _, cand := range f.candidates {
		if len(assigned) >= light.MaxShadowCasters {
			break
		}
		if cand.lightType == light.LightTypePoint {
			if pointTaken {
				continue
			}
			if e.cube == 0 {
				id, err := e.backend.CreateDepthTarget(DepthTargetConfig{
					Resolution: e.resolution,
					Layers:     1,
					Cube:       true,
					Label:      "point shadow cube",
				})
				if err != nil {
					if errors.Is(err, ErrResourceAllocation) {
						log.Printf("shadow: cube map allocation failed, point light renders unshadowed: %v", err)
						continue
					}
					return out, err
				}
				e.cube = id
			}
			pointTaken = true
		}
		assigned = append(assigned, assignment{cand: cand, slot: uint32(len(assigned)), point: cand.lightType == light.LightTypePoint})
	}

	texel := 1.0 / float32(e.resolution)
	for _, a := range assigned {
		f.lights[a.cand.lightIndex].ShadowSlot = a.slot

		slot := light.GPUShadowData{
			TexelSize: [2]float32{texel, texel},
		}
		switch a.cand.lightType {
		case light.LightTypeDirectional:
			far := f.boundsExtent * 4
			slot.LightVP = light.DirectionalShadowVP(a.cand.direction, f.boundsCenter, f.boundsExtent, shadowNear, far)
			slot.Bias = 0.0015
			slot.ComputeNormalBias(f.boundsExtent, 2.0, int(e.resolution))
			if err := e.renderSlot(f, a.slot, slot.LightVP); err != nil {
				return out, err
			}
		case light.LightTypeSpot:
			slot.LightVP = light.SpotShadowVP(a.cand.position, a.cand.direction, a.cand.outerCone, shadowNear, a.cand.rng)
			slot.Bias = 0.002
			slot.ComputeNormalBias(a.cand.rng*0.5, 2.0, int(e.resolution))
			if err := e.renderSlot(f, a.slot, slot.LightVP); err != nil {
				return out, err
			}
		case light.LightTypePoint:
			// The cube map carries the depth; the slot entry only marks the
			// light as shadowed.
			out.pointMap = true
			out.cube = e.cube
			if err := e.renderCube(f, a.cand); err != nil {
				return out, err
			}
		}
		out.slots = append(out.slots, slot)
	}

	return out, nil
}

// renderSlot renders one 2D shadow map layer from a light view-projection.
func (e *shadowPassEngine) renderSlot(f *frameState, layer uint32, vp [16]float32) error {
	uniform := light.GPUShadowUniform{LightVP: vp}
	if err := e.backend.BeginShadowPass(e.atlas, layer, PassUniforms{Camera: uniform.Marshal()}); err != nil {
		return err
	}
	frustum := common.ExtractFrustumFromMatrix(vp[:])
	for i := range f.casters {
		item := &f.casters[i]
		if item.blended {
			continue
		}
		if !frustum.IntersectsSphere(item.center, item.radius) {
			continue
		}
		if err := e.drawCaster(item); err != nil {
			var compile *shader.CompileError
			if errors.As(err, &compile) {
				return err
			}
			log.Printf("shadow: skipping caster %q: %v", item.primitive.Name(), err)
		}
	}
	return e.backend.EndPass()
}

// renderCube renders the six faces of the point light cube map.
func (e *shadowPassEngine) renderCube(f *frameState, cand shadowCandidate) error {
	vps := light.PointShadowVPs(cand.position, shadowNear, cand.rng)
	for face := uint32(0); face < light.CubeFaceCount; face++ {
		uniform := light.GPUShadowUniform{LightVP: vps[face]}
		if err := e.backend.BeginShadowPass(e.cube, face, PassUniforms{Camera: uniform.Marshal()}); err != nil {
			return err
		}
		for i := range f.casters {
			item := &f.casters[i]
			if item.blended {
				continue
			}
			if !sphereInRange(item.center, item.radius, cand.position, cand.rng) {
				continue
			}
			if err := e.drawCaster(item); err != nil {
				var compile *shader.CompileError
				if errors.As(err, &compile) {
					return err
				}
				log.Printf("shadow: skipping caster %q: %v", item.primitive.Name(), err)
			}
		}
		if err := e.backend.EndPass(); err != nil {
			return err
		}
	}
	return nil
}

// drawCaster encodes one depth-only draw for a shadow caster.
func (e *shadowPassEngine) drawCaster(item *frameItem) error {
	key := shader.VariantKey{
		Pass:       shader.PassShadow,
		Attributes: item.primitive.Attributes(),
		Features:   item.mat.Features(),
	}
	cull := CullFront
	if item.mat.DoubleSided() {
		cull = CullNone
	}
	program, err := e.cache.AcquireProgram(key, ProgramConfig{
		Cull:           cull,
		Topology:       item.primitive.DrawMode(),
		DepthBias:      2,
		DepthBiasSlope: 2.0,
		Label:          "shadow",
	})
	if err != nil {
		return err
	}
	geometry, err := e.cache.AcquireGeometry(item.primitive)
	if err != nil {
		return err
	}

	cmd := DrawCommand{
		Program:  program,
		Geometry: geometry,
	}
	modelUniform := modelUniformFor(item)
	cmd.ModelUniform = modelUniform.Marshal()

	// Cutout casters sample the base color texture to discard masked texels.
	mode, _ := item.mat.Alpha()
	if mode == material.AlphaMask {
		matUniform := material.ToGPUMaterialUniform(item.mat)
		cmd.MaterialUniform = matUniform.Marshal()
		if tex := item.mat.BaseColorTexture(); tex != nil {
			id, err := e.cache.AcquireTexture(tex, true)
			if err != nil {
				return err
			}
			cmd.Textures[0] = id
		}
	}

	return e.backend.Draw(cmd)
}

func sphereInRange(center [3]float32, radius float32, origin [3]float32, rng float32) bool {
	dx := float64(center[0] - origin[0])
	dy := float64(center[1] - origin[1])
	dz := float64(center[2] - origin[2])
	return float32(math.Sqrt(dx*dx+dy*dy+dz*dz))-radius <= rng
}
