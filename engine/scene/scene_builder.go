package scene

// HandlerBuilderOption is a functional option for configuring a Handler.
// Use the With* functions to create options.
type HandlerBuilderOption func(h *handler)

// WithMaxMaterials sets the capacity of the material slot pool. Slot 0 is
// reserved for the default material, so the usable capacity is one less.
// Values of 0 are ignored. Default is 256.
//
// Parameters:
//   - n: the maximum number of material slots
//
// Returns:
//   - HandlerBuilderOption: option function to apply
func WithMaxMaterials(n uint32) HandlerBuilderOption {
	return func(h *handler) {
		if n > 0 {
			h.maxMaterials = n
		}
	}
}

// WithMaxGeometryInstances sets the capacity of the geometry instance slot
// pool, bounding how many nodes the scene can hold records for. Values of 0
// are ignored. Default is 1024.
//
// Parameters:
//   - n: the maximum number of geometry instance slots
//
// Returns:
//   - HandlerBuilderOption: option function to apply
func WithMaxGeometryInstances(n uint32) HandlerBuilderOption {
	return func(h *handler) {
		if n > 0 {
			h.maxGeomInsts = n
		}
	}
}

// WithMaxInstances sets the capacity of the instance slot pool and the size
// of the per-instance data and light distribution buffers. Values of 0 are
// ignored. Default is 1024.
//
// Parameters:
//   - n: the maximum number of instances
//
// Returns:
//   - HandlerBuilderOption: option function to apply
func WithMaxInstances(n uint32) HandlerBuilderOption {
	return func(h *handler) {
		if n > 0 {
			h.maxInstances = n
		}
	}
}
