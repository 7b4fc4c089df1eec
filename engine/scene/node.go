package scene

import (
	"sync/atomic"

	"github.com/lumen3d/lumen/common"
	"github.com/lumen3d/lumen/engine/camera"
	"github.com/lumen3d/lumen/engine/light"
	"github.com/lumen3d/lumen/engine/model"
)

// nodeCount is an atomic counter used to assign a stable identity to each node.
// Node IDs key the per-frame world-transform map and never repeat within a process.
var nodeCount atomic.Uint64

// node is the implementation of the Node interface.
type node struct {
	id   uint64
	name string

	// Local transform. TRS and matrix are mutually exclusive representations;
	// useMatrix records which one was written last (last-write-wins).
	translation [3]float32
	rotation    [4]float32 // quaternion (x, y, z, w)
	scale       [3]float32
	matrix      [16]float32
	useMatrix   bool

	// Attachments. At most one of each; a node may carry none.
	mesh model.Mesh
	lgt  light.Light
	cam  camera.Camera

	parent   *node
	children []*node

	// owner is the scene this node is a member of, or nil. Attachment edits
	// on a member node go through the owner so its registries stay current.
	owner *sceneImpl
}

// Node is a position in the scene hierarchy. It carries a local transform,
// an ordered list of children, and optional mesh, light, and camera attachments
// (at most one of each). Parent/child integrity is owned by the Scene; nodes
// built outside a scene can be freely linked via AddChild before insertion.
//
// Nodes are not safe for concurrent mutation; all structural and transform
// edits must happen on the thread that renders the owning scene, or be handed
// off through the engine's ingest queue.
type Node interface {
	// ID returns the node's process-unique identity. The world-transform
	// resolver and the GPU resource caches key their entries by this value.
	//
	// Returns:
	//   - uint64: the stable node identity
	ID() uint64

	// Name returns the node's optional human-readable name.
	//
	// Returns:
	//   - string: the name, or "" if unset
	Name() string

	// SetName sets the node's human-readable name.
	//
	// Parameters:
	//   - name: the new name
	SetName(name string)

	// Parent returns the node's parent, or nil for roots and detached nodes.
	//
	// Returns:
	//   - Node: the parent node or nil
	Parent() Node

	// Children returns the node's ordered child list.
	// The returned slice is a copy; mutating it does not affect the node.
	//
	// Returns:
	//   - []Node: the children in insertion order
	Children() []Node

	// Translation returns the local translation component.
	// Meaningful only while the node is in TRS representation.
	//
	// Returns:
	//   - [3]float32: translation as (x, y, z)
	Translation() [3]float32

	// Rotation returns the local rotation quaternion.
	// Meaningful only while the node is in TRS representation.
	//
	// Returns:
	//   - [4]float32: rotation as (x, y, z, w)
	Rotation() [4]float32

	// Scale returns the local scale component.
	// Meaningful only while the node is in TRS representation.
	//
	// Returns:
	//   - [3]float32: scale as (x, y, z)
	Scale() [3]float32

	// SetTranslation sets the local translation and switches the node to the
	// TRS representation, discarding any previously set explicit matrix.
	//
	// Parameters:
	//   - x, y, z: the translation components
	SetTranslation(x, y, z float32)

	// SetRotation sets the local rotation quaternion and switches the node to
	// the TRS representation, discarding any previously set explicit matrix.
	//
	// Parameters:
	//   - x, y, z, w: the quaternion components
	SetRotation(x, y, z, w float32)

	// SetScale sets the local scale and switches the node to the TRS
	// representation, discarding any previously set explicit matrix.
	//
	// Parameters:
	//   - x, y, z: the scale components
	SetScale(x, y, z float32)

	// SetMatrix sets the local transform as an explicit 4x4 column-major
	// matrix, switching the node away from the TRS representation.
	//
	// Parameters:
	//   - m: the matrix (16 elements, column-major)
	SetMatrix(m [16]float32)

	// LocalMatrix returns the node's local transform as a 4x4 column-major
	// matrix, composed from TRS or returned directly depending on which
	// representation was written last.
	//
	// Returns:
	//   - [16]float32: the local transform
	LocalMatrix() [16]float32

	// Mesh returns the attached mesh, or nil.
	//
	// Returns:
	//   - model.Mesh: the mesh attachment or nil
	Mesh() model.Mesh

	// SetMesh attaches a mesh to the node, replacing any previous mesh.
	// Pass nil to detach. A mesh may be attached to multiple nodes; the
	// resource cache deduplicates its GPU geometry by content identity.
	//
	// Parameters:
	//   - m: the mesh to attach or nil
	SetMesh(m model.Mesh)

	// Light returns the attached light, or nil.
	//
	// Returns:
	//   - light.Light: the light attachment or nil
	Light() light.Light

	// SetLight attaches a light to the node, replacing any previous light.
	// Pass nil to detach. On a scene member the light registers with the
	// scene at attach time, so lights gained after insertion still render;
	// replacing a light keeps the node's original registration position.
	//
	// Parameters:
	//   - l: the light to attach or nil
	SetLight(l light.Light)

	// Camera returns the attached camera, or nil.
	//
	// Returns:
	//   - camera.Camera: the camera attachment or nil
	Camera() camera.Camera

	// SetCamera attaches a camera to the node, replacing any previous camera.
	// Pass nil to detach.
	//
	// Parameters:
	//   - c: the camera to attach or nil
	SetCamera(c camera.Camera)

	// AddChild appends a detached node to this node's child list.
	// Intended for assembling subtrees before insertion into a scene; once a
	// node is in a scene, use Scene.Add so integrity checks apply.
	//
	// Parameters:
	//   - child: the node to append
	//
	// Returns:
	//   - error: ErrHasParent if child is already parented elsewhere, or
	//     ErrCycle if child is an ancestor of this node
	AddChild(child Node) error
}

var _ Node = &node{}

// NewNode creates a detached node with an identity local transform.
//
// Parameters:
//   - options: functional options to configure the node
//
// Returns:
//   - Node: the newly created node
func NewNode(options ...NodeBuilderOption) Node {
	n := &node{
		id:       nodeCount.Add(1),
		rotation: [4]float32{0, 0, 0, 1},
		scale:    [3]float32{1, 1, 1},
	}
	for _, option := range options {
		option(n)
	}
	return n
}

func (n *node) ID() uint64 {
	return n.id
}

func (n *node) Name() string {
	return n.name
}

func (n *node) SetName(name string) {
	n.name = name
}

func (n *node) Parent() Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *node) Children() []Node {
	out := make([]Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *node) Translation() [3]float32 {
	return n.translation
}

func (n *node) Rotation() [4]float32 {
	return n.rotation
}

func (n *node) Scale() [3]float32 {
	return n.scale
}

func (n *node) SetTranslation(x, y, z float32) {
	n.translation = [3]float32{x, y, z}
	n.useMatrix = false
}

func (n *node) SetRotation(x, y, z, w float32) {
	n.rotation = [4]float32{x, y, z, w}
	n.useMatrix = false
}

func (n *node) SetScale(x, y, z float32) {
	n.scale = [3]float32{x, y, z}
	n.useMatrix = false
}

func (n *node) SetMatrix(m [16]float32) {
	n.matrix = m
	n.useMatrix = true
}

func (n *node) LocalMatrix() [16]float32 {
	if n.useMatrix {
		return n.matrix
	}
	var out [16]float32
	common.ComposeTRS(out[:], n.translation, n.rotation, n.scale)
	return out
}

func (n *node) Mesh() model.Mesh {
	return n.mesh
}

func (n *node) SetMesh(m model.Mesh) {
	n.mesh = m
}

func (n *node) Light() light.Light {
	return n.lgt
}

func (n *node) SetLight(l light.Light) {
	if n.owner != nil {
		n.owner.lightChanged(n, l)
		return
	}
	n.lgt = l
}

func (n *node) Camera() camera.Camera {
	return n.cam
}

func (n *node) SetCamera(c camera.Camera) {
	n.cam = c
}

func (n *node) AddChild(child Node) error {
	c, ok := child.(*node)
	if !ok {
		return ErrForeignNode
	}
	if c.parent != nil {
		return ErrHasParent
	}
	for a := n; a != nil; a = a.parent {
		if a == c {
			return ErrCycle
		}
	}
	c.parent = n
	n.children = append(n.children, c)
	return nil
}

// detach removes n from its parent's child list, or does nothing for roots.
func (n *node) detach() {
	if n.parent == nil {
		return
	}
	siblings := n.parent.children
	for i, c := range siblings {
		if c == n {
			n.parent.children = append(siblings[:i], siblings[i+1:]...)
			break
		}
	}
	n.parent = nil
}
