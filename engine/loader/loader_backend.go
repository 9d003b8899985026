package loader

import (
	"io"
)

// loaderBackend defines the generic interface for importing scene files or
// streams. Concrete implementations (e.g., gltfLoaderBackend) handle
// format-specific details.
type loaderBackend interface {
	// Load performs a full import from the given file path, extracting
	// meshes, materials, and flattened scene-graph instances.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *ImportedScene: the imported scene data
	//   - error: error if loading fails
	Load(path string) (*ImportedScene, error)

	// LoadReader imports a scene from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing scene data
	//   - isGLB: true if the reader provides GLB binary data, false for text-based formats
	//
	// Returns:
	//   - *ImportedScene: the imported scene data
	//   - error: error if loading fails
	LoadReader(r io.Reader, isGLB bool) (*ImportedScene, error)
}
