package light

import (
	"math"

	"github.com/lumen3d/lumen/common"
)

// CubeFaceCount is the number of depth faces rendered for a point light's
// omnidirectional shadow map.
const CubeFaceCount = 6

// cubeFaceTargets holds the look direction and up vector for each cube face in
// WebGPU cube map face order: +X, -X, +Y, -Y, +Z, -Z.
var cubeFaceTargets = [CubeFaceCount][2][3]float32{
	{{1, 0, 0}, {0, -1, 0}},
	{{-1, 0, 0}, {0, -1, 0}},
	{{0, 1, 0}, {0, 0, 1}},
	{{0, -1, 0}, {0, 0, -1}},
	{{0, 0, 1}, {0, -1, 0}},
	{{0, 0, -1}, {0, -1, 0}},
}

// DirectionalShadowVP builds an orthographic view-projection matrix for a
// directional light's shadow pass. The frustum is centered on the provided
// world position (typically the camera position) and aligned to look along the
// light's direction.
//
// Parameters:
//   - lightDir: normalized direction the light points (from light toward scene)
//   - center: world-space center of the shadow frustum
//   - halfExtent: half-size of the orthographic frustum in world units
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - [16]float32: the column-major view-projection matrix
func DirectionalShadowVP(lightDir, center [3]float32, halfExtent, near, far float32) [16]float32 {
	// Position the "eye" behind the center, opposite the light direction,
	// so we look from behind the scene toward the lit area.
	eyeX := center[0] - lightDir[0]*far*0.5
	eyeY := center[1] - lightDir[1]*far*0.5
	eyeZ := center[2] - lightDir[2]*far*0.5

	// Choose a stable up vector that isn't parallel to the light direction.
	// If the light points nearly straight up or down, use X-axis as up.
	upX, upY, upZ := float32(0), float32(1), float32(0)
	if absF32(lightDir[1]) > 0.99 {
		upX, upY, upZ = 1, 0, 0
	}

	var view [16]float32
	common.LookAt(view[:],
		eyeX, eyeY, eyeZ,
		center[0], center[1], center[2],
		upX, upY, upZ,
	)

	var proj [16]float32
	common.Orthographic(proj[:], -halfExtent, halfExtent, -halfExtent, halfExtent, near, far)

	var vp [16]float32
	common.Mul4(vp[:], proj[:], view[:])
	return vp
}

// SpotShadowVP builds a perspective view-projection matrix covering a spot
// light's cone for its shadow pass. The field of view is twice the outer cone
// half-angle, widened slightly so the shadow map covers the cone's soft edge.
//
// Parameters:
//   - position: world-space position of the light
//   - direction: normalized direction of the cone axis
//   - outerConeCos: cosine of the outer cone half-angle
//   - near: near plane distance
//   - far: far plane distance (typically the light's range)
//
// Returns:
//   - [16]float32: the column-major view-projection matrix
func SpotShadowVP(position, direction [3]float32, outerConeCos, near, far float32) [16]float32 {
	upX, upY, upZ := float32(0), float32(1), float32(0)
	if absF32(direction[1]) > 0.99 {
		upX, upY, upZ = 1, 0, 0
	}

	var view [16]float32
	common.LookAt(view[:],
		position[0], position[1], position[2],
		position[0]+direction[0], position[1]+direction[1], position[2]+direction[2],
		upX, upY, upZ,
	)

	halfAngle := float32(math.Acos(float64(clampF32(outerConeCos, -1, 1))))
	fovY := 2.0 * halfAngle * 1.05
	var proj [16]float32
	common.Perspective(proj[:], fovY, 1.0, near, far)

	var vp [16]float32
	common.Mul4(vp[:], proj[:], view[:])
	return vp
}

// PointShadowVPs builds the six 90° perspective view-projection matrices for a
// point light's cube shadow map, in WebGPU cube face order (+X, -X, +Y, -Y,
// +Z, -Z).
//
// Parameters:
//   - position: world-space position of the light
//   - near: near plane distance
//   - far: far plane distance (typically the light's range)
//
// Returns:
//   - [CubeFaceCount][16]float32: one view-projection matrix per cube face
func PointShadowVPs(position [3]float32, near, far float32) [CubeFaceCount][16]float32 {
	var proj [16]float32
	common.Perspective(proj[:], float32(math.Pi/2), 1.0, near, far)

	var out [CubeFaceCount][16]float32
	for face := 0; face < CubeFaceCount; face++ {
		dir := cubeFaceTargets[face][0]
		up := cubeFaceTargets[face][1]

		var view [16]float32
		common.LookAt(view[:],
			position[0], position[1], position[2],
			position[0]+dir[0], position[1]+dir[1], position[2]+dir[2],
			up[0], up[1], up[2],
		)
		common.Mul4(out[face][:], proj[:], view[:])
	}
	return out
}

// absF32 returns the absolute value of a float32.
func absF32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// clampF32 clamps v to the [lo, hi] interval.
func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
