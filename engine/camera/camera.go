package camera

import (
	"sync"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Lens describes the thin-lens model used for depth of field.
type Lens struct {
	// Aperture is the lens radius in world units. Zero gives a pinhole camera.
	Aperture float32
	// FocusDistance is the distance from the camera at which objects are in perfect focus.
	FocusDistance float32
}

// DefaultLens is the lens every new camera starts with.
var DefaultLens = Lens{Aperture: 0.01, FocusDistance: 10}

type cameraImpl struct {
	mu *sync.Mutex

	position mgl32.Vec3
	target   mgl32.Vec3
	up       mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32
	lens   Lens

	viewMatrix              mgl32.Mat4
	projectionMatrix        mgl32.Mat4
	inverseProjectionMatrix mgl32.Mat4
	worldMatrix             mgl32.Mat4
	version                 uint64

	controller CameraController
}

// Camera is a perspective camera with a thin-lens extension.
//
// The renderer calls UpdateMatrixWorld once per rendered frame; Version changes whenever that call
// produces a different camera, which the pipeline uses to restart sample accumulation.
type Camera interface {
	// Position retrieves the eye position in world space.
	//
	// Returns:
	//   - mgl32.Vec3: the camera position
	Position() mgl32.Vec3

	// Target retrieves the point the camera looks at.
	//
	// Returns:
	//   - mgl32.Vec3: the look-at target
	Target() mgl32.Vec3

	// Up retrieves the camera's up vector.
	//
	// Returns:
	//   - mgl32.Vec3: the up vector
	Up() mgl32.Vec3

	// Fov retrieves the vertical field of view in radians.
	//
	// Returns:
	//   - float32: the field of view
	Fov() float32

	// Aspect retrieves the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near retrieves the near plane distance.
	Near() float32

	// Far retrieves the far plane distance.
	Far() float32

	// Lens retrieves the thin-lens parameters.
	//
	// Returns:
	//   - Lens: aperture and focus distance
	Lens() Lens

	// ViewMatrix retrieves the world-to-camera matrix computed by the last UpdateMatrixWorld.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix retrieves the projection matrix computed by the last UpdateMatrixWorld.
	ProjectionMatrix() mgl32.Mat4

	// InverseProjectionMatrix retrieves the inverse of ProjectionMatrix.
	InverseProjectionMatrix() mgl32.Mat4

	// WorldMatrix retrieves the camera-to-world matrix computed by the last UpdateMatrixWorld.
	WorldMatrix() mgl32.Mat4

	// Version retrieves a counter that increases every time UpdateMatrixWorld observes a change.
	//
	// Returns:
	//   - uint64: the camera version
	Version() uint64

	// Controller retrieves the attached controller, or nil.
	Controller() CameraController

	// UpdateMatrixWorld pulls the pose from the controller, if any, and recomputes every matrix.
	UpdateMatrixWorld()

	// SetPosition moves the eye. Ignored while a controller is attached.
	SetPosition(p mgl32.Vec3)

	// SetTarget changes the look-at point. Ignored while a controller is attached.
	SetTarget(t mgl32.Vec3)

	// SetUp sets the camera's up vector.
	SetUp(up mgl32.Vec3)

	// SetFov sets the vertical field of view in radians.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio.
	SetAspect(aspect float32)

	// SetNear sets the near plane distance.
	SetNear(near float32)

	// SetFar sets the far plane distance.
	SetFar(far float32)

	// SetLens replaces the thin-lens parameters.
	SetLens(lens Lens)

	// SetController attaches a controller that owns the camera pose. Nil detaches.
	SetController(ctrl CameraController)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a perspective camera looking from (0,0,10) at the origin.
//
// Parameters:
//   - options: variadic list of CameraBuilderOption functions
//
// Returns:
//   - Camera: the configured camera with matrices already computed
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		position: mgl32.Vec3{0, 0, 10},
		up:       mgl32.Vec3{0, 1, 0},
		fov:      mgl32.DegToRad(50),
		aspect:   1.0,
		near:     0.1,
		far:      1000.0,
		lens:     DefaultLens,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() mgl32.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
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

func (c *cameraImpl) Lens() Lens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lens
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) WorldMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.worldMatrix
}

func (c *cameraImpl) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) UpdateMatrixWorld() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) SetPosition(p mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = p
}

func (c *cameraImpl) SetTarget(t mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.target = t
}

func (c *cameraImpl) SetUp(up mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
}

func (c *cameraImpl) SetLens(lens Lens) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lens = lens
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

// updateMatrices must be called with c.mu held.
func (c *cameraImpl) updateMatrices() {
	if c.controller != nil {
		c.position = c.controller.Position()
		c.target = c.controller.Target()
	}

	eye := c.position
	center := c.target
	if eye.ApproxEqual(center) {
		// LookAt is undefined for a zero-length view direction.
		center = eye.Sub(mgl32.Vec3{0, 0, 1})
	}

	view := mgl32.LookAtV(eye, center, c.up)
	proj := mgl32.Perspective(c.fov, math32.Max(c.aspect, 1e-6), c.near, c.far)
	world := view.Inv()

	changed := world != c.worldMatrix || proj != c.projectionMatrix
	c.viewMatrix = view
	c.projectionMatrix = proj
	c.inverseProjectionMatrix = proj.Inv()
	c.worldMatrix = world
	if changed {
		c.version++
	}
}
