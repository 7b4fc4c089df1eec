package scene

import (
	"github.com/lumen3d/lumen/engine/camera"
	"github.com/lumen3d/lumen/engine/light"
	"github.com/lumen3d/lumen/engine/model"
)

// NodeBuilderOption is a function that configures a Node instance during construction.
type NodeBuilderOption func(*node)

// WithName is an option builder that sets the node's display name.
//
// Parameters:
//   - name: the display name
//
// Returns:
//   - NodeBuilderOption: a function that applies the name option to a node
func WithName(name string) NodeBuilderOption {
	return func(n *node) {
		n.name = name
	}
}

// WithTranslation is an option builder that sets the node's local translation.
//
// Parameters:
//   - x: the x translation component
//   - y: the y translation component
//   - z: the z translation component
//
// Returns:
//   - NodeBuilderOption: a function that applies the translation option to a node
func WithTranslation(x, y, z float32) NodeBuilderOption {
	return func(n *node) {
		n.translation = [3]float32{x, y, z}
		n.useMatrix = false
	}
}

// WithRotation is an option builder that sets the node's local rotation as a
// quaternion in (x, y, z, w) order.
//
// Parameters:
//   - x: the quaternion x component
//   - y: the quaternion y component
//   - z: the quaternion z component
//   - w: the quaternion w component
//
// Returns:
//   - NodeBuilderOption: a function that applies the rotation option to a node
func WithRotation(x, y, z, w float32) NodeBuilderOption {
	return func(n *node) {
		n.rotation = [4]float32{x, y, z, w}
		n.useMatrix = false
	}
}

// WithScale is an option builder that sets the node's local scale factors.
//
// Parameters:
//   - x: the x scale factor
//   - y: the y scale factor
//   - z: the z scale factor
//
// Returns:
//   - NodeBuilderOption: a function that applies the scale option to a node
func WithScale(x, y, z float32) NodeBuilderOption {
	return func(n *node) {
		n.scale = [3]float32{x, y, z}
		n.useMatrix = false
	}
}

// WithMatrix is an option builder that sets the node's local transform as an
// explicit column-major matrix, bypassing the translation/rotation/scale
// components.
//
// Parameters:
//   - m: the local transform (16 elements, column-major)
//
// Returns:
//   - NodeBuilderOption: a function that applies the matrix option to a node
func WithMatrix(m [16]float32) NodeBuilderOption {
	return func(n *node) {
		n.matrix = m
		n.useMatrix = true
	}
}

// WithMesh is an option builder that attaches a mesh to the node.
//
// Parameters:
//   - mesh: the mesh to attach
//
// Returns:
//   - NodeBuilderOption: a function that applies the mesh option to a node
func WithMesh(mesh model.Mesh) NodeBuilderOption {
	return func(n *node) {
		n.mesh = mesh
	}
}

// WithLight is an option builder that attaches a light to the node.
//
// Parameters:
//   - lgt: the light to attach
//
// Returns:
//   - NodeBuilderOption: a function that applies the light option to a node
func WithLight(lgt light.Light) NodeBuilderOption {
	return func(n *node) {
		n.lgt = lgt
	}
}

// WithCamera is an option builder that attaches a camera to the node.
//
// Parameters:
//   - cam: the camera to attach
//
// Returns:
//   - NodeBuilderOption: a function that applies the camera option to a node
func WithCamera(cam camera.Camera) NodeBuilderOption {
	return func(n *node) {
		n.cam = cam
	}
}
