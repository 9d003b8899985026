package engine

import (
	"time"

	"github.com/Hurleyworks/Cook/engine/camera"
	"github.com/Hurleyworks/Cook/engine/gpu"
	"github.com/Hurleyworks/Cook/engine/scene"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the
// engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithTickRate sets the frame rate in frames per second.
// Values <= 0 will be treated as the default (60Hz).
//
// Parameters:
//   - fps: target frames per second (default 60)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60.0
		}
		e.frameTickRate = time.Second / time.Duration(fps)
	}
}

// WithBackend selects the device backend the engine creates. Defaults to the
// headless null backend. Ignored when WithDevice supplies a device.
//
// Parameters:
//   - backendType: the backend to create
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithBackend(backendType gpu.DeviceBackendType) EngineBuilderOption {
	return func(e *engine) {
		e.backendType = backendType
	}
}

// WithDevice sets a pre-configured device for the engine to use rather than
// allowing the engine to create one internally. Shutdown releases it with
// the rest of the engine.
//
// Parameters:
//   - d: a pre-configured Device instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithDevice(d gpu.Device) EngineBuilderOption {
	return func(e *engine) {
		e.device = d
	}
}

// WithCamera sets a pre-configured camera rather than allowing the engine to
// create a default one.
//
// Parameters:
//   - c: a pre-configured Camera instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCamera(c camera.Camera) EngineBuilderOption {
	return func(e *engine) {
		e.camera = c
	}
}

// WithSceneOptions forwards options to the scene handler the engine creates,
// e.g. scene.WithMaxInstances.
//
// Parameters:
//   - options: scene handler options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSceneOptions(options ...scene.HandlerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.sceneOptions = append(e.sceneOptions, options...)
	}
}

// WithMaxAccumulationFrames caps the progressive accumulation counter handed
// to the frame callback. Values of 0 are ignored. Default is 4096.
//
// Parameters:
//   - n: the accumulation cap
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithMaxAccumulationFrames(n uint32) EngineBuilderOption {
	return func(e *engine) {
		if n > 0 {
			e.maxAccum = n
		}
	}
}
