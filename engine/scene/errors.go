package scene

import "errors"

// Graph-integrity errors. All are rejected before any mutation is applied, so
// a failed call leaves the scene exactly as it was.
var (
	// ErrHasParent is returned when attaching a node that already has a parent.
	ErrHasParent = errors.New("scene: node already has a parent")

	// ErrAlreadyInScene is returned when adding a node that is already a
	// member of the scene, directly or as part of an added subtree.
	ErrAlreadyInScene = errors.New("scene: node already present in scene")

	// ErrNotInScene is returned when an operation references a node that is
	// not a member of the scene.
	ErrNotInScene = errors.New("scene: node not present in scene")

	// ErrCycle is returned when an attach would make a node its own ancestor.
	ErrCycle = errors.New("scene: attach would create a cycle")

	// ErrNotACamera is returned when activating a node without a camera attachment.
	ErrNotACamera = errors.New("scene: node has no camera attachment")

	// ErrForeignNode is returned when a Node implementation not created by
	// NewNode is passed to a graph operation.
	ErrForeignNode = errors.New("scene: node was not created by this package")
)
