package gpu

// DeviceBuilderOption is a functional option applied to a device during construction via NewDevice.
type DeviceBuilderOption func(*device)

// WithLabel is an option builder that sets the device label used in logs and
// native debug captures.
//
// Parameters:
//   - label: the device identifier
//
// Returns:
//   - DeviceBuilderOption: a function that applies the label option to a device
func WithLabel(label string) DeviceBuilderOption {
	return func(d *device) {
		d.label = label
	}
}

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter
// instead of hardware GPU acceleration. This requires a software Vulkan ICD to
// be installed on the system (e.g. SwiftShader or lavapipe). Useful for
// running the full device path on machines without a GPU.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fallback adapter option to a device
func WithForceFallbackAdapter(force bool) DeviceBuilderOption {
	return func(d *device) {
		d.forceFallbackAdapter = force
	}
}

// WithBuildFault installs a hook consulted before every acceleration
// structure build. Returning a non-nil error fails that build without
// touching the device, which is how tests drive the failure paths of the
// scene layer (rollback on geometry build failure, handle retention on
// rebuild failure).
//
// Parameters:
//   - fault: called with the build label; return nil to allow the build
//
// Returns:
//   - DeviceBuilderOption: a function that applies the fault hook option to a device
func WithBuildFault(fault func(label string) error) DeviceBuilderOption {
	return func(d *device) {
		d.buildFault = fault
	}
}
