package camera

type CameraBuilderOption func(*cameraImpl)

// WithTarget sets the look-at/pivot point.
//
// Parameters:
//   - x, y, z: world-space coordinates
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's target
func WithTarget(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = [3]float32{x, y, z}
	}
}

// WithRadius sets the orbit radius, clamped to the minimum.
//
// Parameters:
//   - radius: distance from the target
//
// Returns:
//   - CameraBuilderOption: a function that sets the orbit radius
func WithRadius(radius float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.radius = max(radius, minRadius)
	}
}

// WithOrbit sets the initial orbit angles. Pitch is clamped short of the
// poles.
//
// Parameters:
//   - yaw: rotation around the target in radians
//   - pitch: elevation above the target plane in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the orbit angles
func WithOrbit(yaw, pitch float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.yaw = yaw
		c.pitch = clamp(pitch, -maxPitch, maxPitch)
	}
}

// WithUp sets the camera's up vector.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = [3]float32{x, y, z}
	}
}

// WithFov sets the camera's field of view in radians.
//
// Parameters:
//   - fov: field of view in radians
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's field of view
func WithFov(fov float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.fov = fov
	}
}

// WithAspect sets the camera's aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio to set
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's aspect ratio
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithClip sets the near and far clipping plane distances.
//
// Parameters:
//   - near: near plane distance (must be > 0)
//   - far: far plane distance (must be > near)
//
// Returns:
//   - CameraBuilderOption: a function that sets the clip planes
func WithClip(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}
