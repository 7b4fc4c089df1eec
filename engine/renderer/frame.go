package renderer

import (
	"fmt"
	"math"
	"sort"

	"github.com/lumen3d/lumen/common"
	"github.com/lumen3d/lumen/engine/light"
	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/model"
	"github.com/lumen3d/lumen/engine/scene"
)

// frameItem is one primitive queued for drawing this frame, with its resolved
// world transform and sort key.
type frameItem struct {
	primitive model.Primitive
	mat       material.Material
	world     [16]float32
	normal    [16]float32
	center    [3]float32 // world-space bounding sphere center
	radius    float32
	depth     float32 // view-space distance along the camera forward axis
	blended   bool
}

// shadowCandidate is one shadow-eligible light awaiting slot assignment.
type shadowCandidate struct {
	lightIndex int // index into frameState.lights
	lightType  light.LightType
	position   [3]float32
	direction  [3]float32
	rng        float32
	outerCone  float32
}

// frameState is the CPU-side snapshot the pass engines consume. It is rebuilt
// from the scene every frame; nothing in it survives past EndFrame.
type frameState struct {
	view       [16]float32
	proj       [16]float32
	viewProj   [16]float32
	cameraPos  [3]float32
	background [4]float32
	ambient    [3]float32

	// opaque and blended are the camera-visible items. Opaque is sorted
	// front to back, blended back to front.
	opaque  []frameItem
	blended []frameItem

	// casters is every mesh item regardless of camera visibility; shadow
	// passes cull against their own frusta.
	casters []frameItem

	lights     []light.GPULight
	candidates []shadowCandidate

	// boundsCenter and boundsExtent frame the caster set for directional
	// shadow projection.
	boundsCenter [3]float32
	boundsExtent float32
}

// frameCollector walks the scene once per frame and produces a frameState.
// It reuses its transform resolver across frames so world matrices come from
// a single linear traversal.
type frameCollector struct {
	resolver scene.TransformResolver

	// fallback stands in for primitives with no material assigned.
	fallback material.Material
}

func newFrameCollector() *frameCollector {
	return &frameCollector{
		resolver: scene.NewTransformResolver(),
		fallback: material.NewMaterial(material.WithName("default")),
	}
}

// Collect resolves world transforms and gathers visible items, shadow
// casters, and lights in registration order.
//
// Parameters:
//   - s: the scene to collect from
//   - aspect: the output surface aspect ratio, applied to the active camera
//   - pointShadows: whether point lights are shadow-eligible this frame
//
// Returns:
//   - *frameState: the collected frame
//   - error: ErrNoActiveCamera if the scene has no active camera
func (c *frameCollector) Collect(s scene.Scene, aspect float32, pointShadows bool) (*frameState, error) {
	camNode := s.ActiveCamera()
	if camNode == nil {
		return nil, ErrNoActiveCamera
	}
	cam := camNode.Camera()
	if cam == nil {
		return nil, fmt.Errorf("active camera node %q has no camera: %w", camNode.Name(), ErrNoActiveCamera)
	}

	worlds := c.resolver.Resolve(s)

	f := &frameState{
		background: s.BackgroundColor(),
		ambient:    s.AmbientColor(),
	}

	camWorld := worlds[camNode.ID()]
	if !common.Invert4(f.view[:], camWorld[:]) {
		return nil, fmt.Errorf("camera node %q has a singular world transform", camNode.Name())
	}
	if aspect > 0 {
		cam.SetAspect(aspect)
	}
	f.proj = cam.ProjectionMatrix()
	common.Mul4(f.viewProj[:], f.proj[:], f.view[:])
	f.cameraPos = [3]float32{camWorld[12], camWorld[13], camWorld[14]}

	frustum := common.ExtractFrustumFromMatrix(f.viewProj[:])

	// Camera forward in world space is the negated third basis vector of the
	// camera's world matrix.
	fwd := [3]float32{-camWorld[8], -camWorld[9], -camWorld[10]}

	boundsMin := [3]float32{float32(math.Inf(1)), float32(math.Inf(1)), float32(math.Inf(1))}
	boundsMax := [3]float32{float32(math.Inf(-1)), float32(math.Inf(-1)), float32(math.Inf(-1))}

	for _, n := range s.MeshNodes() {
		mesh := n.Mesh()
		if mesh == nil {
			continue
		}
		world, ok := worlds[n.ID()]
		if !ok {
			continue
		}
		var normal [16]float32
		normalMatrix(normal[:], world[:])
		scale := maxAxisScale(world[:])

		for _, p := range mesh.Primitives() {
			if p.VertexCount() == 0 {
				continue
			}
			mat := p.Material()
			if mat == nil {
				mat = c.fallback
			}
			localCenter, localRadius := p.BoundingSphere()
			item := frameItem{
				primitive: p,
				mat:       mat,
				world:     world,
				normal:    normal,
				center:    common.TransformPoint(world[:], localCenter[0], localCenter[1], localCenter[2]),
				radius:    localRadius * scale,
			}
			alphaMode, _ := mat.Alpha()
			item.blended = alphaMode == material.AlphaBlend

			for i := 0; i < 3; i++ {
				if v := item.center[i] - item.radius; v < boundsMin[i] {
					boundsMin[i] = v
				}
				if v := item.center[i] + item.radius; v > boundsMax[i] {
					boundsMax[i] = v
				}
			}
			f.casters = append(f.casters, item)

			if !frustum.IntersectsSphere(item.center, item.radius) {
				continue
			}
			item.depth = (item.center[0]-f.cameraPos[0])*fwd[0] +
				(item.center[1]-f.cameraPos[1])*fwd[1] +
				(item.center[2]-f.cameraPos[2])*fwd[2]
			if item.blended {
				f.blended = append(f.blended, item)
			} else {
				f.opaque = append(f.opaque, item)
			}
		}
	}

	if len(f.casters) > 0 {
		for i := 0; i < 3; i++ {
			f.boundsCenter[i] = (boundsMin[i] + boundsMax[i]) * 0.5
			if e := (boundsMax[i] - boundsMin[i]) * 0.5; e > f.boundsExtent {
				f.boundsExtent = e
			}
		}
	}
	if f.boundsExtent < 1 {
		f.boundsExtent = 1
	}

	sort.Slice(f.opaque, func(i, j int) bool { return f.opaque[i].depth < f.opaque[j].depth })
	sort.Slice(f.blended, func(i, j int) bool { return f.blended[i].depth > f.blended[j].depth })

	for _, n := range s.LightNodes() {
		l := n.Light()
		if l == nil || !l.Enabled() {
			continue
		}
		if len(f.lights) >= light.MaxGPULights {
			break
		}
		world := worlds[n.ID()]
		lp := l.Position()
		position := common.TransformPoint(world[:], lp[0], lp[1], lp[2])
		direction := transformDirection(world[:], l.Direction())

		f.lights = append(f.lights, light.ToGPULight(l, position, direction))

		if !l.CastsShadows() {
			continue
		}
		if l.Type() == light.LightTypePoint && !pointShadows {
			continue
		}
		f.candidates = append(f.candidates, shadowCandidate{
			lightIndex: len(f.lights) - 1,
			lightType:  l.Type(),
			position:   position,
			direction:  direction,
			rng:        l.Range(),
			outerCone:  l.OuterCone(),
		})
	}

	return f, nil
}

// modelUniformFor builds the per-draw model uniform for an item.
func modelUniformFor(item *frameItem) model.GPUModelUniform {
	return model.GPUModelUniform{Model: item.world, Normal: item.normal}
}

// normalMatrix writes the inverse transpose of m's upper 3x3 into out as a
// mat4 with identity translation.
func normalMatrix(out, m []float32) {
	var inv [16]float32
	if !common.Invert4(inv[:], m) {
		copy(out, m)
		return
	}
	// Transpose of the inverse, upper 3x3 only.
	out[0], out[1], out[2], out[3] = inv[0], inv[4], inv[8], 0
	out[4], out[5], out[6], out[7] = inv[1], inv[5], inv[9], 0
	out[8], out[9], out[10], out[11] = inv[2], inv[6], inv[10], 0
	out[12], out[13], out[14], out[15] = 0, 0, 0, 1
}

// maxAxisScale returns the largest basis vector length of m's upper 3x3,
// used to scale bounding sphere radii conservatively.
func maxAxisScale(m []float32) float32 {
	max := float32(0)
	for c := 0; c < 3; c++ {
		l := float32(math.Sqrt(float64(m[c*4]*m[c*4] + m[c*4+1]*m[c*4+1] + m[c*4+2]*m[c*4+2])))
		if l > max {
			max = l
		}
	}
	if max == 0 {
		return 1
	}
	return max
}

// transformDirection rotates d by m's upper 3x3 and normalizes the result.
func transformDirection(m []float32, d [3]float32) [3]float32 {
	out := [3]float32{
		m[0]*d[0] + m[4]*d[1] + m[8]*d[2],
		m[1]*d[0] + m[5]*d[1] + m[9]*d[2],
		m[2]*d[0] + m[6]*d[1] + m[10]*d[2],
	}
	l := float32(math.Sqrt(float64(out[0]*out[0] + out[1]*out[1] + out[2]*out[2])))
	if l == 0 {
		return [3]float32{0, -1, 0}
	}
	return [3]float32{out[0] / l, out[1] / l, out[2] / l}
}
