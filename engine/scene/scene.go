package scene

import (
	"sync"

	"github.com/lumen3d/lumen/engine/light"
)

// sceneImpl is the implementation of the Scene interface.
type sceneImpl struct {
	mu *sync.RWMutex

	name string

	// roots is the explicit root set, in insertion order. Resolution and
	// traversal visit roots in this order.
	roots []*node

	// members is the set of all nodes reachable from the roots, keyed by node
	// identity. Membership is updated on Add/Remove, never by traversal.
	members map[uint64]*node

	// lightNodes holds the member nodes carrying a light attachment, in
	// registration order. Shadow passes run in this order.
	lightNodes []*node

	activeCamera *node

	backgroundColor [4]float32
	ambientColor    [3]float32
}

// Scene owns a forest of nodes, a background color, an ambient light term, and
// an optional active camera. It enforces referential integrity on every
// structural edit: one parent per node, no cycles, no double membership. All
// integrity errors are rejected before any mutation is applied.
//
// Structural mutation is synchronous and immediately observable. The scene is
// safe for concurrent reads, but mutation must not race a traversal; external
// threads hand content off through the engine's ingest queue instead of
// mutating directly.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Add inserts a node (and its entire subtree) into the scene. With a nil
	// parent the node becomes a root; otherwise it becomes the last child of
	// parent, which must already be a member.
	//
	// Parameters:
	//   - n: the node to insert
	//   - parent: the parent node, or nil to insert as a root
	//
	// Returns:
	//   - error: ErrHasParent, ErrAlreadyInScene, ErrNotInScene, or ErrCycle;
	//     nil on success. On error the scene is unchanged.
	Add(n, parent Node) error

	// Remove detaches a node and its descendants from the scene. The subtree
	// keeps its internal parent/child links and remains owned by n; the
	// descendants are not promoted into the root set.
	//
	// Parameters:
	//   - n: the node to remove (must be a member)
	//
	// Returns:
	//   - error: ErrNotInScene if n is not a member
	Remove(n Node) error

	// SetPose replaces a member node's local transform with an explicit matrix.
	//
	// Parameters:
	//   - n: the node to update (must be a member)
	//   - m: the new local transform (16 elements, column-major)
	//
	// Returns:
	//   - error: ErrNotInScene if n is not a member
	SetPose(n Node, m [16]float32) error

	// Contains reports whether n is a member of the scene.
	//
	// Parameters:
	//   - n: the node to test
	//
	// Returns:
	//   - bool: true if n is reachable from the scene's roots
	Contains(n Node) bool

	// Roots returns the root set in insertion order.
	//
	// Returns:
	//   - []Node: a copy of the root list
	Roots() []Node

	// Count returns the number of member nodes.
	//
	// Returns:
	//   - int: the membership count
	Count() int

	// MeshNodes returns every member node carrying a mesh attachment, in
	// deterministic pre-order traversal order (roots in insertion order,
	// children in child-list order).
	//
	// Returns:
	//   - []Node: the mesh-carrying nodes
	MeshNodes() []Node

	// LightNodes returns every member node carrying a light attachment, in
	// registration order. Shadow sub-passes execute in this order.
	//
	// Returns:
	//   - []Node: the light-carrying nodes
	LightNodes() []Node

	// ActiveCamera returns the node holding the active camera, or nil.
	//
	// Returns:
	//   - Node: the active camera node or nil
	ActiveCamera() Node

	// SetActiveCamera selects the scene's active camera. The node must be a
	// member and carry a camera attachment. Pass nil to clear the selection.
	// At most one camera is active at any time.
	//
	// Parameters:
	//   - n: the camera node, or nil
	//
	// Returns:
	//   - error: ErrNotInScene or ErrNotACamera
	SetActiveCamera(n Node) error

	// BackgroundColor returns the clear color used by the forward pass.
	//
	// Returns:
	//   - [4]float32: RGBA background color
	BackgroundColor() [4]float32

	// SetBackgroundColor sets the clear color used by the forward pass.
	//
	// Parameters:
	//   - color: RGBA background color
	SetBackgroundColor(color [4]float32)

	// AmbientColor returns the scene's ambient light color.
	//
	// Returns:
	//   - [3]float32: the ambient RGB color
	AmbientColor() [3]float32

	// SetAmbientColor sets the scene's ambient light color.
	//
	// Parameters:
	//   - color: the ambient RGB color
	SetAmbientColor(color [3]float32)
}

var _ Scene = &sceneImpl{}

// NewScene creates an empty scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &sceneImpl{
		mu:              &sync.RWMutex{},
		name:            name,
		members:         make(map[uint64]*node),
		backgroundColor: [4]float32{0, 0, 0, 1},
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *sceneImpl) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *sceneImpl) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *sceneImpl) Add(n, parent Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nn, ok := n.(*node)
	if !ok {
		return ErrForeignNode
	}
	if nn.parent != nil {
		return ErrHasParent
	}

	var pn *node
	if parent != nil {
		pn, ok = parent.(*node)
		if !ok {
			return ErrForeignNode
		}
		if _, member := s.members[pn.id]; !member {
			return ErrNotInScene
		}
		// Defensive cycle check: a detached subtree cannot normally contain a
		// member node, but a broken caller could have cross-linked children.
		for a := pn; a != nil; a = a.parent {
			if a == nn {
				return ErrCycle
			}
		}
	}

	// Collect the subtree and validate membership before touching any state,
	// so a rejected Add leaves the scene unchanged.
	subtree := collectSubtree(nn)
	for _, sn := range subtree {
		if _, member := s.members[sn.id]; member {
			return ErrAlreadyInScene
		}
	}

	if pn != nil {
		nn.parent = pn
		pn.children = append(pn.children, nn)
	} else {
		s.roots = append(s.roots, nn)
	}
	for _, sn := range subtree {
		s.members[sn.id] = sn
		sn.owner = s
		if sn.lgt != nil {
			s.lightNodes = append(s.lightNodes, sn)
		}
	}
	return nil
}

func (s *sceneImpl) Remove(n Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nn, ok := n.(*node)
	if !ok {
		return ErrForeignNode
	}
	if _, member := s.members[nn.id]; !member {
		return ErrNotInScene
	}

	if nn.parent == nil {
		for i, r := range s.roots {
			if r == nn {
				s.roots = append(s.roots[:i], s.roots[i+1:]...)
				break
			}
		}
	} else {
		nn.detach()
	}

	for _, sn := range collectSubtree(nn) {
		delete(s.members, sn.id)
		sn.owner = nil
		for i, ln := range s.lightNodes {
			if ln == sn {
				s.lightNodes = append(s.lightNodes[:i], s.lightNodes[i+1:]...)
				break
			}
		}
		if s.activeCamera == sn {
			s.activeCamera = nil
		}
	}
	return nil
}

// lightChanged keeps the light registry in step with attachment edits on a
// member node. Gaining a light registers the node at the end of the list;
// losing it unregisters; swapping one light for another keeps the node's
// registration position.
func (s *sceneImpl) lightChanged(nn *node, l light.Light) {
	s.mu.Lock()
	defer s.mu.Unlock()

	had := nn.lgt != nil
	nn.lgt = l
	switch {
	case l != nil && !had:
		s.lightNodes = append(s.lightNodes, nn)
	case l == nil && had:
		for i, ln := range s.lightNodes {
			if ln == nn {
				s.lightNodes = append(s.lightNodes[:i], s.lightNodes[i+1:]...)
				break
			}
		}
	}
}

func (s *sceneImpl) SetPose(n Node, m [16]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	nn, ok := n.(*node)
	if !ok {
		return ErrForeignNode
	}
	if _, member := s.members[nn.id]; !member {
		return ErrNotInScene
	}
	nn.SetMatrix(m)
	return nil
}

func (s *sceneImpl) Contains(n Node) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nn, ok := n.(*node)
	if !ok {
		return false
	}
	_, member := s.members[nn.id]
	return member
}

func (s *sceneImpl) Roots() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Node, len(s.roots))
	for i, r := range s.roots {
		out[i] = r
	}
	return out
}

func (s *sceneImpl) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

func (s *sceneImpl) MeshNodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Node
	for _, r := range s.roots {
		for _, sn := range collectSubtree(r) {
			if sn.mesh != nil {
				out = append(out, sn)
			}
		}
	}
	return out
}

func (s *sceneImpl) LightNodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Node, len(s.lightNodes))
	for i, ln := range s.lightNodes {
		out[i] = ln
	}
	return out
}

func (s *sceneImpl) ActiveCamera() Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeCamera == nil {
		return nil
	}
	return s.activeCamera
}

func (s *sceneImpl) SetActiveCamera(n Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n == nil {
		s.activeCamera = nil
		return nil
	}
	nn, ok := n.(*node)
	if !ok {
		return ErrForeignNode
	}
	if _, member := s.members[nn.id]; !member {
		return ErrNotInScene
	}
	if nn.cam == nil {
		return ErrNotACamera
	}
	s.activeCamera = nn
	return nil
}

func (s *sceneImpl) BackgroundColor() [4]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backgroundColor
}

func (s *sceneImpl) SetBackgroundColor(color [4]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backgroundColor = color
}

func (s *sceneImpl) AmbientColor() [3]float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambientColor
}

func (s *sceneImpl) SetAmbientColor(color [3]float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambientColor = color
}

// collectSubtree returns n and all of its descendants in pre-order.
func collectSubtree(n *node) []*node {
	out := []*node{n}
	for _, c := range n.children {
		out = append(out, collectSubtree(c)...)
	}
	return out
}
