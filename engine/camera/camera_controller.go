package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// CameraController owns a camera pose and moves it in response to user input.
// The built-in implementation orbits around a target point, which is also used as the lens focus.
type CameraController interface {
	// Position retrieves the eye position derived from the orbit state.
	Position() mgl32.Vec3

	// Target retrieves the orbit center.
	Target() mgl32.Vec3

	// SetTarget moves the orbit center and keeps the current radius and angles.
	SetTarget(t mgl32.Vec3)

	// FocusDistance retrieves the distance from the eye to the target.
	FocusDistance() float32

	// Rotate orbits by a mouse delta in pixels, scaled by the mouse sensitivity.
	//
	// Parameters:
	//   - dx: horizontal delta, positive to the right
	//   - dy: vertical delta, positive downwards
	Rotate(dx, dy float32)

	// Zoom moves the eye towards the target by delta scroll steps.
	Zoom(delta float32)

	// Pan moves both eye and target along the camera's right and up axes.
	//
	// Parameters:
	//   - right: distance along the right axis
	//   - up: distance along the up axis
	Pan(right, up float32)

	// OrbitLeft rotates one orbit step to the left.
	OrbitLeft()

	// OrbitRight rotates one orbit step to the right.
	OrbitRight()

	// OrbitUp raises the elevation by one orbit step.
	OrbitUp()

	// OrbitDown lowers the elevation by one orbit step.
	OrbitDown()

	// Radius retrieves the distance from the target.
	Radius() float32

	// SetRadius sets the distance from the target, clamped to the radius bounds.
	SetRadius(radius float32)

	// Azimuth retrieves the horizontal angle around the Y axis in radians.
	Azimuth() float32

	// Elevation retrieves the vertical angle from the horizontal plane in radians.
	Elevation() float32
}

type orbitController struct {
	mu *sync.Mutex

	target mgl32.Vec3

	radius    float32
	azimuth   float32
	elevation float32

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed       float32
	mouseSensitivity float32
	zoomSpeed        float32
	panSpeed         float32
}

var _ CameraController = &orbitController{}

// NewOrbitController creates an orbit controller centered at the origin.
//
// Parameters:
//   - options: variadic list of CameraControllerOption functions
//
// Returns:
//   - CameraController: the configured controller
func NewOrbitController(options ...CameraControllerOption) CameraController {
	cc := &orbitController{
		mu:        &sync.Mutex{},
		radius:    10.0,
		elevation: math32.Pi / 6,

		minRadius:    0.5,
		maxRadius:    500.0,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,

		orbitSpeed:       0.03,
		mouseSensitivity: 0.005,
		zoomSpeed:        0.5,
		panSpeed:         1.0,
	}
	for _, option := range options {
		option(cc)
	}
	cc.clamp()
	return cc
}

// position must be called with cc.mu held.
func (cc *orbitController) position() mgl32.Vec3 {
	cosElev, sinElev := math32.Cos(cc.elevation), math32.Sin(cc.elevation)
	cosAzim, sinAzim := math32.Cos(cc.azimuth), math32.Sin(cc.azimuth)
	return cc.target.Add(mgl32.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
}

func (cc *orbitController) clamp() {
	cc.radius = mgl32.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = mgl32.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
}

func (cc *orbitController) Position() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position()
}

func (cc *orbitController) Target() mgl32.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *orbitController) SetTarget(t mgl32.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = t
}

func (cc *orbitController) FocusDistance() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *orbitController) Rotate(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth -= dx * cc.mouseSensitivity
	cc.elevation += dy * cc.mouseSensitivity
	cc.clamp()
}

func (cc *orbitController) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius -= delta * cc.zoomSpeed
	cc.clamp()
}

func (cc *orbitController) Pan(right, up float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	back := cc.position().Sub(cc.target).Normalize()
	rightAxis := mgl32.Vec3{0, 1, 0}.Cross(back)
	if rightAxis.Len() < 1e-6 {
		return
	}
	rightAxis = rightAxis.Normalize()
	upAxis := back.Cross(rightAxis)

	cc.target = cc.target.
		Add(rightAxis.Mul(right * cc.panSpeed)).
		Add(upAxis.Mul(up * cc.panSpeed))
}

func (cc *orbitController) OrbitLeft() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth -= cc.orbitSpeed
}

func (cc *orbitController) OrbitRight() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += cc.orbitSpeed
}

func (cc *orbitController) OrbitUp() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevation += cc.orbitSpeed
	cc.clamp()
}

func (cc *orbitController) OrbitDown() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.elevation -= cc.orbitSpeed
	cc.clamp()
}

func (cc *orbitController) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *orbitController) SetRadius(radius float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius = radius
	cc.clamp()
}

func (cc *orbitController) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *orbitController) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}
