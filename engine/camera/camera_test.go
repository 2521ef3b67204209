package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestNewCameraDefaults(t *testing.T) {
	c := NewCamera()
	if c.Lens() != DefaultLens {
		t.Errorf("Lens() = %+v, want %+v", c.Lens(), DefaultLens)
	}
	if c.Lens().Aperture != 0.01 {
		t.Errorf("default aperture = %v, want 0.01", c.Lens().Aperture)
	}
	if c.Version() == 0 {
		t.Error("NewCamera should compute matrices, leaving a non-zero version")
	}
}

func TestWorldMatrixPlacesCamera(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{1, 2, 3}), WithTarget(mgl32.Vec3{1, 2, 0}))
	origin := c.WorldMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	if !origin.ApproxEqualThreshold(mgl32.Vec3{1, 2, 3}, 1e-5) {
		t.Errorf("camera origin = %v, want (1,2,3)", origin)
	}
	forward := c.WorldMatrix().Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3()
	if !forward.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-5) {
		t.Errorf("forward = %v, want (0,0,-1)", forward)
	}
}

func TestVersionChangesOnlyOnMovement(t *testing.T) {
	c := NewCamera()
	v := c.Version()

	c.UpdateMatrixWorld()
	if c.Version() != v {
		t.Errorf("Version changed without movement: %d -> %d", v, c.Version())
	}

	c.SetPosition(mgl32.Vec3{0, 1, 10})
	if c.Version() != v {
		t.Error("Version must not change before UpdateMatrixWorld")
	}
	c.UpdateMatrixWorld()
	if c.Version() != v+1 {
		t.Errorf("Version = %d, want %d", c.Version(), v+1)
	}

	c.SetFov(1.0)
	c.UpdateMatrixWorld()
	if c.Version() != v+2 {
		t.Errorf("Version = %d after fov change, want %d", c.Version(), v+2)
	}
}

func TestDegenerateLookAt(t *testing.T) {
	c := NewCamera(WithPosition(mgl32.Vec3{1, 1, 1}), WithTarget(mgl32.Vec3{1, 1, 1}))
	for i, v := range c.WorldMatrix() {
		if math32.IsNaN(v) {
			t.Fatalf("WorldMatrix[%d] is NaN", i)
		}
	}
}

func TestControllerDrivesPose(t *testing.T) {
	ctrl := NewOrbitController(WithRadius(5), WithElevation(0), WithAzimuth(0), WithOrbitTarget(mgl32.Vec3{0, 1, 0}))
	c := NewCamera(WithController(ctrl))

	if got := c.Position(); !got.ApproxEqualThreshold(mgl32.Vec3{0, 1, 5}, 1e-5) {
		t.Errorf("Position = %v, want (0,1,5)", got)
	}
	if ctrl.FocusDistance() != 5 {
		t.Errorf("FocusDistance = %v, want 5", ctrl.FocusDistance())
	}

	v := c.Version()
	ctrl.OrbitRight()
	c.UpdateMatrixWorld()
	if c.Version() == v {
		t.Error("orbiting should bump the camera version")
	}
}

func TestOrbitControllerClamps(t *testing.T) {
	ctrl := NewOrbitController(WithRadiusBounds(1, 2))
	if ctrl.Radius() != 2 {
		t.Errorf("Radius = %v, want clamped 2", ctrl.Radius())
	}
	ctrl.Zoom(100)
	if ctrl.Radius() != 1 {
		t.Errorf("Radius = %v after zoom, want 1", ctrl.Radius())
	}
	for range 200 {
		ctrl.OrbitUp()
	}
	if ctrl.Elevation() >= math32.Pi/2 {
		t.Errorf("Elevation = %v, want below pi/2", ctrl.Elevation())
	}
}

func TestOrbitControllerPan(t *testing.T) {
	ctrl := NewOrbitController(WithElevation(0), WithAzimuth(0))
	ctrl.Pan(1, 0)
	if got := ctrl.Target(); !got.ApproxEqualThreshold(mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("Target after pan = %v, want (1,0,0)", got)
	}
}

func TestGPUCameraUniform(t *testing.T) {
	c := NewCamera(WithLens(Lens{Aperture: 0.5, FocusDistance: 3}))
	u := NewGPUCameraUniform(c)
	if u.Size() != 96 {
		t.Fatalf("Size() = %d, want 96", u.Size())
	}
	if len(u.Marshal()) != 96 {
		t.Errorf("len(Marshal()) = %d, want 96", len(u.Marshal()))
	}
	if u.Aperture != 0.5 || u.FocusDistance != 3 {
		t.Errorf("lens = %v/%v, want 0.5/3", u.Aperture, u.FocusDistance)
	}
}
