package scene

import (
	"log"

	"github.com/lumen3d/lumen/common"
)

// transformResolverImpl is the implementation of the TransformResolver interface.
type transformResolverImpl struct {
	// world is reused across frames to avoid reallocating the result map on
	// every resolve.
	world map[uint64][16]float32
}

// TransformResolver computes world transforms for every node in a scene. A
// resolve is a single linear traversal: each node is visited exactly once, its
// parent strictly before it, and its world matrix is its parent's world matrix
// multiplied by its local matrix. Roots use their local matrix directly.
//
// The resolver holds no per-node dirty state: the whole forest is recomputed
// each frame, so the result always reflects the scene as it stands at the time
// of the call.
type TransformResolver interface {
	// Resolve traverses the scene and computes the world matrix of every
	// member node. The returned map is owned by the resolver and is
	// overwritten by the next call.
	//
	// Parameters:
	//   - s: the scene to resolve
	//
	// Returns:
	//   - map[uint64][16]float32: world matrices keyed by node ID
	Resolve(s Scene) map[uint64][16]float32
}

var _ TransformResolver = &transformResolverImpl{}

// NewTransformResolver creates a transform resolver.
//
// Returns:
//   - TransformResolver: the newly created resolver
func NewTransformResolver() TransformResolver {
	return &transformResolverImpl{
		world: make(map[uint64][16]float32),
	}
}

func (r *transformResolverImpl) Resolve(s Scene) map[uint64][16]float32 {
	clear(r.world)

	si, ok := s.(*sceneImpl)
	if !ok {
		return r.world
	}

	si.mu.RLock()
	defer si.mu.RUnlock()

	// The scene rejects cycles on every edit, so traversal terminates. The
	// visit budget guards against a corrupted graph turning a frame into an
	// infinite loop.
	budget := len(si.members) + len(si.roots)
	visited := 0

	type frame struct {
		n      *node
		parent [16]float32
	}
	var ident [16]float32
	common.Identity(ident[:])

	stack := make([]frame, 0, len(si.roots))
	for i := len(si.roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{n: si.roots[i], parent: ident})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		visited++
		if visited > budget {
			log.Printf("scene %q: transform resolve exceeded visit budget, graph is corrupted", si.name)
			break
		}

		local := f.n.LocalMatrix()
		var world [16]float32
		common.Mul4(world[:], f.parent[:], local[:])
		r.world[f.n.id] = world

		for i := len(f.n.children) - 1; i >= 0; i-- {
			stack = append(stack, frame{n: f.n.children[i], parent: world})
		}
	}
	return r.world
}
