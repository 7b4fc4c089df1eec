package loader

import (
	"fmt"

	"github.com/lumen3d/lumen/engine/camera"
	"github.com/lumen3d/lumen/engine/material"
	"github.com/lumen3d/lumen/engine/model"
	"github.com/lumen3d/lumen/engine/scene"
)

// Asset holds the CPU-side result of an import: meshes, materials, cameras,
// and the node hierarchy that arranges them. An Asset is inert data; call
// Instantiate to place its hierarchy into a scene. GPU resources are created
// lazily by the renderer's resource cache the first time a mesh is drawn.
type Asset struct {
	// Name identifies the asset, derived from the source file or scene name.
	Name string

	// Meshes are the imported meshes, indexed by AssetNode.Mesh.
	Meshes []model.Mesh

	// Materials are the imported materials. Primitives reference them
	// directly; the slice exists so callers can inspect or swap them.
	Materials []material.Material

	// Cameras are the imported cameras, indexed by AssetNode.Camera.
	Cameras []camera.Camera

	// Nodes is the flattened node hierarchy.
	Nodes []AssetNode

	// Roots indexes the top-level nodes of the asset's default scene.
	Roots []int
}

// AssetNode is one node of an imported hierarchy. Transforms are either a
// full matrix or a TRS triple, never both.
type AssetNode struct {
	Name string

	// Matrix is the local transform when the source stored one directly.
	// When nil, the Translation/Rotation/Scale fields apply instead.
	Matrix *[16]float32

	Translation [3]float32
	Rotation    [4]float32
	Scale       [3]float32

	// Mesh indexes Asset.Meshes, or -1 when the node carries no mesh.
	Mesh int

	// Camera indexes Asset.Cameras, or -1 when the node carries no camera.
	Camera int

	// Children indexes Asset.Nodes.
	Children []int
}

// Instantiate builds scene nodes for the asset's hierarchy and attaches them
// under the given parent (nil for scene roots). Each call creates fresh
// nodes, so the same asset can be instantiated multiple times into one scene.
//
// Parameters:
//   - s: the scene to attach to
//   - parent: the parent node, or nil to attach at the scene root
//
// Returns:
//   - []scene.Node: the created nodes corresponding to the asset's roots
//   - error: error if any node index is invalid or attachment fails
func (a *Asset) Instantiate(s scene.Scene, parent scene.Node) ([]scene.Node, error) {
	roots := make([]scene.Node, 0, len(a.Roots))
	for _, rootIdx := range a.Roots {
		n, err := a.instantiateNode(s, parent, rootIdx)
		if err != nil {
			return nil, err
		}
		roots = append(roots, n)
	}
	return roots, nil
}

func (a *Asset) instantiateNode(s scene.Scene, parent scene.Node, index int) (scene.Node, error) {
	if index < 0 || index >= len(a.Nodes) {
		return nil, fmt.Errorf("asset %q: node index %d out of range", a.Name, index)
	}
	src := &a.Nodes[index]

	options := []scene.NodeBuilderOption{scene.WithName(src.Name)}
	if src.Matrix != nil {
		options = append(options, scene.WithMatrix(*src.Matrix))
	} else {
		options = append(options,
			scene.WithTranslation(src.Translation[0], src.Translation[1], src.Translation[2]),
			scene.WithRotation(src.Rotation[0], src.Rotation[1], src.Rotation[2], src.Rotation[3]),
			scene.WithScale(src.Scale[0], src.Scale[1], src.Scale[2]),
		)
	}
	if src.Mesh >= 0 {
		if src.Mesh >= len(a.Meshes) {
			return nil, fmt.Errorf("asset %q: node %q references mesh %d out of range", a.Name, src.Name, src.Mesh)
		}
		options = append(options, scene.WithMesh(a.Meshes[src.Mesh]))
	}
	if src.Camera >= 0 {
		if src.Camera >= len(a.Cameras) {
			return nil, fmt.Errorf("asset %q: node %q references camera %d out of range", a.Name, src.Name, src.Camera)
		}
		options = append(options, scene.WithCamera(a.Cameras[src.Camera]))
	}

	n := scene.NewNode(options...)
	if err := s.Add(n, parent); err != nil {
		return nil, fmt.Errorf("asset %q: failed to attach node %q: %w", a.Name, src.Name, err)
	}

	for _, childIdx := range src.Children {
		if _, err := a.instantiateNode(s, n, childIdx); err != nil {
			return nil, err
		}
	}

	return n, nil
}
