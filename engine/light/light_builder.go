package light

import (
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// LightBuilderOption is a function that configures a lightImpl during construction.
type LightBuilderOption func(*lightImpl)

// WithPosition sets the world-space position of the light.
//
// Parameters:
//   - x, y, z: position coordinates
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = mgl32.Vec3{x, y, z}
	}
}

// WithDirection sets the direction the light travels. The vector is normalized.
//
// Parameters:
//   - x, y, z: direction components
//
// Returns:
//   - LightBuilderOption: a function that applies the direction option to a lightImpl
func WithDirection(x, y, z float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.direction = normalize3(mgl32.Vec3{x, y, z})
	}
}

// WithColor sets the RGB color of the light.
//
// Parameters:
//   - r, g, b: color components
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(r, g, b float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.color = [3]float32{r, g, b}
	}
}

// WithIntensity sets the brightness multiplier.
//
// Parameters:
//   - intensity: scalar multiplier
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a lightImpl
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithRange sets the attenuation cutoff distance of point and spot lights.
func WithRange(lightRange float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.lightRange = lightRange
	}
}

// WithSpotCone sets the inner and outer cone angles of a spot light in degrees.
func WithSpotCone(innerDeg, outerDeg float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.innerCone = cosDeg(innerDeg)
		l.outerCone = cosDeg(outerDeg)
	}
}

// WithSoftness sets the angular radius of a directional light, clamped to [0, 1].
func WithSoftness(softness float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.softness = mgl32.Clamp(softness, 0, 1)
	}
}

// WithEnabled sets whether the light contributes to the image.
func WithEnabled(enabled bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.enabled = enabled
	}
}

func normalize3(v mgl32.Vec3) mgl32.Vec3 {
	return common.SafeNormalize(v)
}

// cosDeg converts an angle in degrees to the cosine of that angle.
func cosDeg(deg float32) float32 {
	return math32.Cos(mgl32.DegToRad(deg))
}
