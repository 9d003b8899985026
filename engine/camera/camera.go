// Package camera models the viewer of a progressively accumulated render.
// The camera is an orbit rig: its position derives from a target point,
// an orbit radius, and yaw/pitch angles. Every mutation bumps a revision
// counter, which is how the engine knows to restart accumulation when the
// view changes.
package camera

import (
	"math"
	"sync"

	"github.com/Hurleyworks/Cook/common"
)

const (
	// maxPitch keeps the rig away from the poles, where the up vector and
	// the view direction become collinear.
	maxPitch = float32(math.Pi)/2 - 0.01

	// minRadius keeps the camera off the target itself.
	minRadius = float32(0.01)
)

// State is the per-frame camera snapshot handed to the frame callback. It
// carries what a ray generation launch needs.
type State struct {
	// Position is the camera's world-space position.
	Position [3]float32

	// View transforms world space to camera space, column-major.
	View [16]float32

	// Projection is the perspective projection, column-major.
	Projection [16]float32

	// ViewProjection is Projection * View.
	ViewProjection [16]float32

	// InverseViewProjection unprojects clip-space points back to world
	// space, for generating primary rays from pixel coordinates.
	InverseViewProjection [16]float32

	// Revision identifies the camera state this snapshot was taken from.
	Revision uint64
}

type cameraImpl struct {
	mu *sync.Mutex

	target [3]float32
	radius float32
	yaw    float32
	pitch  float32
	up     [3]float32

	fov    float32
	aspect float32
	near   float32
	far    float32

	revision uint64
	dirty    bool
	state    State
}

// Camera is an orbit camera for a progressive renderer. All methods are safe
// for concurrent use; mutations bump the revision so the engine can detect
// view changes between frames.
type Camera interface {
	// Position returns the camera's world-space position, derived from the
	// target, radius, and orbit angles.
	//
	// Returns:
	//   - x, y, z: world-space camera position
	Position() (x, y, z float32)

	// Target returns the look-at/pivot point.
	//
	// Returns:
	//   - x, y, z: world-space target position
	Target() (x, y, z float32)

	// Radius returns the orbit radius (distance from target).
	//
	// Returns:
	//   - float32: current distance from target
	Radius() float32

	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// Revision returns the mutation counter. It increases on every change
	// to the rig or the perspective settings.
	//
	// Returns:
	//   - uint64: the current revision
	Revision() uint64

	// State returns the matrix snapshot for the current revision. Matrices
	// are recomputed lazily, so repeated calls between mutations are cheap.
	//
	// Returns:
	//   - State: the camera snapshot
	State() State

	// Orbit rotates the camera around the target. Pitch is clamped short of
	// the poles.
	//
	// Parameters:
	//   - dYaw: yaw delta in radians, positive orbits right
	//   - dPitch: pitch delta in radians, positive orbits up
	Orbit(dYaw, dPitch float32)

	// Dolly scales the orbit radius. Factors below 1 move closer, above 1
	// move away. The radius never drops below the minimum.
	//
	// Parameters:
	//   - factor: multiplier applied to the radius
	Dolly(factor float32)

	// Pan shifts the target in the camera's screen plane. Deltas are scaled
	// by the radius so panning covers the same screen distance at any zoom.
	//
	// Parameters:
	//   - dx: rightward shift in radius units
	//   - dy: upward shift in radius units
	Pan(dx, dy float32)

	// SetTarget sets the look-at/pivot point.
	//
	// Parameters:
	//   - x, y, z: world-space coordinates
	SetTarget(x, y, z float32)

	// SetRadius sets the orbit radius, clamped to the minimum.
	//
	// Parameters:
	//   - radius: new distance from target
	SetRadius(radius float32)

	// SetUp sets the camera's up vector.
	//
	// Parameters:
	//   - x, y, z: up vector components
	SetUp(x, y, z float32)

	// SetFov sets the vertical field of view in radians.
	//
	// Parameters:
	//   - fov: field of view in radians
	SetFov(fov float32)

	// SetAspect sets the aspect ratio (width / height).
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetClip sets the near and far clipping plane distances.
	//
	// Parameters:
	//   - near: near plane distance (must be > 0)
	//   - far: far plane distance (must be > near)
	SetClip(near, far float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a camera with default perspective settings, orbiting the
// origin from five units out along +Z.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		radius: 5.0,
		up:     [3]float32{0, 1, 0},
		fov:    45.0 * (math.Pi / 180.0), // radians
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
		dirty:  true,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *cameraImpl) Position() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.position()
	return p[0], p[1], p[2]
}

func (c *cameraImpl) Target() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target[0], c.target[1], c.target[2]
}

func (c *cameraImpl) Radius() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.radius
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

func (c *cameraImpl) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty {
		c.rebuildState()
		c.dirty = false
	}
	return c.state
}

func (c *cameraImpl) Orbit(dYaw, dPitch float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.yaw += dYaw
	c.pitch = clamp(c.pitch+dPitch, -maxPitch, maxPitch)
	c.bump()
}

func (c *cameraImpl) Dolly(factor float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if factor <= 0 {
		return
	}
	c.radius = max(c.radius*factor, minRadius)
	c.bump()
}

func (c *cameraImpl) Pan(dx, dy float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	right, camUp := c.screenAxes()
	scale := c.radius
	for i := 0; i < 3; i++ {
		c.target[i] += (right[i]*dx + camUp[i]*dy) * scale
	}
	c.bump()
}

func (c *cameraImpl) SetTarget(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = [3]float32{x, y, z}
	c.bump()
}

func (c *cameraImpl) SetRadius(radius float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.radius = max(radius, minRadius)
	c.bump()
}

func (c *cameraImpl) SetUp(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = [3]float32{x, y, z}
	c.bump()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.bump()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.bump()
}

func (c *cameraImpl) SetClip(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.far = far
	c.bump()
}

// bump marks the cached state stale and advances the revision.
// Caller must hold the mutex.
func (c *cameraImpl) bump() {
	c.revision++
	c.dirty = true
}

// position derives the world-space camera position from the orbit rig.
// Caller must hold the mutex.
func (c *cameraImpl) position() [3]float32 {
	cp := float32(math.Cos(float64(c.pitch)))
	sp := float32(math.Sin(float64(c.pitch)))
	cy := float32(math.Cos(float64(c.yaw)))
	sy := float32(math.Sin(float64(c.yaw)))
	return [3]float32{
		c.target[0] + c.radius*cp*sy,
		c.target[1] + c.radius*sp,
		c.target[2] + c.radius*cp*cy,
	}
}

// screenAxes returns the camera's right and up directions in world space.
// Caller must hold the mutex.
func (c *cameraImpl) screenAxes() (right, up [3]float32) {
	pos := c.position()
	forward := [3]float32{
		c.target[0] - pos[0],
		c.target[1] - pos[1],
		c.target[2] - pos[2],
	}
	normalize(&forward)

	right = cross(forward, c.up)
	normalize(&right)
	up = cross(right, forward)
	return right, up
}

// rebuildState recomputes the matrix snapshot for the current revision.
// Caller must hold the mutex.
func (c *cameraImpl) rebuildState() {
	pos := c.position()

	var view, proj, viewProj, invViewProj [16]float32
	common.LookAt(view[:],
		pos[0], pos[1], pos[2],
		c.target[0], c.target[1], c.target[2],
		c.up[0], c.up[1], c.up[2],
	)
	common.Perspective(proj[:], c.fov, c.aspect, c.near, c.far)
	common.Mul4(viewProj[:], proj[:], view[:])
	if !common.Invert4(invViewProj[:], viewProj[:]) {
		common.Identity(invViewProj[:])
	}

	c.state = State{
		Position:              pos,
		View:                  view,
		Projection:            proj,
		ViewProjection:        viewProj,
		InverseViewProjection: invViewProj,
		Revision:              c.revision,
	}
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func normalize(v *[3]float32) {
	l := float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
	if l == 0 {
		return
	}
	v[0] /= l
	v[1] /= l
	v[2] /= l
}
