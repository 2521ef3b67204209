package light

import (
	"github.com/go-gl/mathgl/mgl32"
)

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypeDirectional is an infinitely distant light shining along Direction.
	LightTypeDirectional LightType = iota

	// LightTypePoint emits in all directions from Position.
	LightTypePoint

	// LightTypeSpot emits a cone from Position along Direction.
	LightTypeSpot

	// LightTypeAmbient adds uniform radiance to every surface.
	LightTypeAmbient

	// LightTypeEnvironment surrounds the scene with an image-based sky.
	LightTypeEnvironment
)

// String returns a short name for the light type, used in logs.
func (t LightType) String() string {
	switch t {
	case LightTypeDirectional:
		return "directional"
	case LightTypePoint:
		return "point"
	case LightTypeSpot:
		return "spot"
	case LightTypeAmbient:
		return "ambient"
	case LightTypeEnvironment:
		return "environment"
	}
	return "unknown"
}

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	lightType   LightType
	position    mgl32.Vec3
	direction   mgl32.Vec3
	color       [3]float32
	intensity   float32
	lightRange  float32
	innerCone   float32 // stored as cos(angle in radians)
	outerCone   float32 // stored as cos(angle in radians)
	softness    float32
	environment *EnvironmentMap
	enabled     bool
}

// Light describes a light source in the scene.
//
// Directional lights carry a softness extension: the angular radius of the light disc, which
// widens the penumbra of the shadows they cast. Environment lights carry an EnvironmentMap.
type Light interface {
	// Type retrieves the kind of light.
	//
	// Returns:
	//   - LightType: the light type
	Type() LightType

	// Position retrieves the world-space position (point and spot lights).
	Position() mgl32.Vec3

	// Direction retrieves the normalized direction the light travels (directional and spot lights).
	Direction() mgl32.Vec3

	// Color retrieves the RGB color of the light.
	Color() [3]float32

	// Intensity retrieves the scalar brightness multiplier.
	Intensity() float32

	// Range retrieves the attenuation cutoff distance (point and spot lights).
	Range() float32

	// InnerCone retrieves cos(inner half-angle) of a spot light.
	InnerCone() float32

	// OuterCone retrieves cos(outer half-angle) of a spot light.
	OuterCone() float32

	// Softness retrieves the angular radius of a directional light's disc. Zero gives hard shadows.
	//
	// Returns:
	//   - float32: softness in [0, 1]
	Softness() float32

	// Environment retrieves the environment map of an environment light, or nil.
	//
	// Returns:
	//   - *EnvironmentMap: the environment map
	Environment() *EnvironmentMap

	// Enabled reports whether the light contributes to the image.
	Enabled() bool

	// SetPosition moves the light.
	SetPosition(p mgl32.Vec3)

	// SetDirection changes the light direction. The vector is normalized.
	SetDirection(d mgl32.Vec3)

	// SetColor changes the light color.
	SetColor(r, g, b float32)

	// SetIntensity changes the brightness multiplier.
	SetIntensity(intensity float32)

	// SetRange changes the attenuation cutoff distance.
	SetRange(lightRange float32)

	// SetSpotCone sets the inner and outer cone angles in degrees.
	SetSpotCone(innerDeg, outerDeg float32)

	// SetSoftness changes the directional light softness, clamped to [0, 1].
	SetSoftness(softness float32)

	// SetEnabled toggles whether the light contributes to the image.
	SetEnabled(enabled bool)
}

var _ Light = &lightImpl{}

// NewLight creates a new light of the given type.
//
// Parameters:
//   - lightType: the kind of light
//   - opts: variadic list of LightBuilderOption functions
//
// Returns:
//   - Light: the configured light
func NewLight(lightType LightType, opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType:  lightType,
		direction:  mgl32.Vec3{0, -1, 0},
		color:      [3]float32{1, 1, 1},
		intensity:  1.0,
		lightRange: 10.0,
		innerCone:  cosDeg(25),
		outerCone:  cosDeg(35),
		enabled:    true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewSoftDirectionalLight creates a directional light whose shadows have a soft penumbra.
//
// Parameters:
//   - color: RGB color
//   - intensity: brightness multiplier
//   - softness: angular radius of the light disc in [0, 1]
//
// Returns:
//   - Light: the directional light
func NewSoftDirectionalLight(color [3]float32, intensity, softness float32, opts ...LightBuilderOption) Light {
	opts = append([]LightBuilderOption{WithColor(color[0], color[1], color[2]), WithIntensity(intensity), WithSoftness(softness)}, opts...)
	return NewLight(LightTypeDirectional, opts...)
}

// NewEnvironmentLight creates an image-based light that surrounds the scene.
//
// Parameters:
//   - env: the environment map
//
// Returns:
//   - Light: the environment light
func NewEnvironmentLight(env *EnvironmentMap, opts ...LightBuilderOption) Light {
	l := NewLight(LightTypeEnvironment, opts...).(*lightImpl)
	l.environment = env
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() mgl32.Vec3 {
	return l.position
}

func (l *lightImpl) Direction() mgl32.Vec3 {
	return l.direction
}

func (l *lightImpl) Color() [3]float32 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Range() float32 {
	return l.lightRange
}

func (l *lightImpl) InnerCone() float32 {
	return l.innerCone
}

func (l *lightImpl) OuterCone() float32 {
	return l.outerCone
}

func (l *lightImpl) Softness() float32 {
	return l.softness
}

func (l *lightImpl) Environment() *EnvironmentMap {
	return l.environment
}

func (l *lightImpl) Enabled() bool {
	return l.enabled
}

func (l *lightImpl) SetPosition(p mgl32.Vec3) {
	l.position = p
}

func (l *lightImpl) SetDirection(d mgl32.Vec3) {
	l.direction = normalize3(d)
}

func (l *lightImpl) SetColor(r, g, b float32) {
	l.color = [3]float32{r, g, b}
}

func (l *lightImpl) SetIntensity(intensity float32) {
	l.intensity = intensity
}

func (l *lightImpl) SetRange(lightRange float32) {
	l.lightRange = lightRange
}

func (l *lightImpl) SetSpotCone(innerDeg, outerDeg float32) {
	l.innerCone = cosDeg(innerDeg)
	l.outerCone = cosDeg(outerDeg)
}

func (l *lightImpl) SetSoftness(softness float32) {
	l.softness = mgl32.Clamp(softness, 0, 1)
}

func (l *lightImpl) SetEnabled(enabled bool) {
	l.enabled = enabled
}
