package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraBuilderOption is a functional option for configuring a Camera.
type CameraBuilderOption func(*cameraImpl)

// WithPosition sets the camera's eye position.
//
// Parameters:
//   - p: position in world space
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera position
func WithPosition(p mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.position = p
	}
}

// WithTarget sets the point the camera looks at.
//
// Parameters:
//   - t: look-at target in world space
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera target
func WithTarget(t mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.target = t
	}
}

// WithUp sets the camera's up vector.
//
// Parameters:
//   - up: the up vector
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(up mgl32.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = up
	}
}

// WithFov sets the camera's vertical field of view in radians.
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

// WithClipPlanes sets the near and far plane distances.
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}

// WithLens sets the aperture and focus distance used for depth of field.
//
// Parameters:
//   - lens: the thin-lens parameters
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera lens
func WithLens(lens Lens) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.lens = lens
	}
}

// WithController attaches a controller that owns the camera pose.
//
// Parameters:
//   - ctrl: the controller
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera controller
func WithController(ctrl CameraController) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.controller = ctrl
	}
}
