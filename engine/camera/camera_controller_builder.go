package camera

import "github.com/go-gl/mathgl/mgl32"

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*orbitController)

// WithRadius sets the initial distance from the target.
//
// Parameters:
//   - radius: distance from the orbit center
//
// Returns:
//   - CameraControllerOption: functional option to set the radius
func WithRadius(radius float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.radius = radius
	}
}

// WithAzimuth sets the initial horizontal angle in radians.
func WithAzimuth(azimuth float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle in radians.
func WithElevation(elevation float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.elevation = elevation
	}
}

// WithOrbitTarget sets the orbit center.
//
// Parameters:
//   - t: the point to orbit around
//
// Returns:
//   - CameraControllerOption: functional option to set the target position
func WithOrbitTarget(t mgl32.Vec3) CameraControllerOption {
	return func(cc *orbitController) {
		cc.target = t
	}
}

// WithRadiusBounds sets the minimum and maximum orbit radius.
func WithRadiusBounds(min, max float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.minRadius = min
		cc.maxRadius = max
	}
}

// WithOrbitSpeed sets the angle in radians covered by one OrbitLeft/Right/Up/Down step.
func WithOrbitSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.orbitSpeed = speed
	}
}

// WithMouseSensitivity sets the radians rotated per pixel of mouse movement.
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets the radius change per scroll step.
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.zoomSpeed = speed
	}
}

// WithPanSpeed sets the pan distance multiplier.
func WithPanSpeed(speed float32) CameraControllerOption {
	return func(cc *orbitController) {
		cc.panSpeed = speed
	}
}
