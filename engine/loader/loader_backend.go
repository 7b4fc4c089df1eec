package loader

import "io"

// loaderBackend defines the generic interface for importing assets from files
// or streams. Concrete implementations (e.g., gltfBackend) handle
// format-specific details.
type loaderBackend interface {
	// Load performs a full asset import from the given file path.
	// This extracts meshes, materials, cameras, and the node hierarchy.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *Asset: the imported asset data
	//   - error: error if loading fails
	Load(path string) (*Asset, error)

	// LoadReader imports an asset from a reader stream. Binary and text
	// formats are detected automatically where the format allows it.
	//
	// Parameters:
	//   - r: the reader providing asset data
	//
	// Returns:
	//   - *Asset: the imported asset data
	//   - error: error if loading fails
	LoadReader(r io.Reader) (*Asset, error)
}
