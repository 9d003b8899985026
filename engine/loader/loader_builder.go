package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithScene is an option builder that pre-populates the scene cache. Useful
// for procedurally built scenes that should resolve through the same cache as
// file imports.
//
// Parameters:
//   - key: the cache key for the scene
//   - scene: the scene to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the scene option to a loader
func WithScene(key string, scene *ImportedScene) LoaderBuilderOption {
	return func(l *loader) {
		l.sceneCache[key] = scene
	}
}
