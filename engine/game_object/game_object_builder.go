package game_object

import (
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a function that configures a gameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithName sets the object name.
//
// Parameters:
//   - name: the name
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithName(name string) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.name = name
	}
}

// WithEnabled sets whether the object is visible.
//
// Parameters:
//   - enabled: the initial visibility
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.enabled.Store(enabled)
	}
}

// WithPosition sets the local translation.
//
// Parameters:
//   - x, y, z: translation components
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithPosition(x, y, z float32) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.position = mgl32.Vec3{x, y, z}
	}
}

// WithRotation sets the local Euler rotation in radians.
//
// Parameters:
//   - rx, ry, rz: rotation around each axis
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithRotation(rx, ry, rz float32) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.rotation = mgl32.Vec3{rx, ry, rz}
	}
}

// WithScale sets the local scale.
//
// Parameters:
//   - sx, sy, sz: scale factors
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithScale(sx, sy, sz float32) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.scale = mgl32.Vec3{sx, sy, sz}
	}
}

// WithMesh sets the mesh payload.
//
// Parameters:
//   - geo: the geometry
//   - m: the material
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithMesh(geo *model.Geometry, m material.Material) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.geometry = geo
		g.material = m
	}
}

// WithLight attaches a light to the object.
//
// Parameters:
//   - l: the light
//
// Returns:
//   - GameObjectBuilderOption: option function to apply
func WithLight(l light.Light) GameObjectBuilderOption {
	return func(g *gameObject) {
		g.attachedLight = l
	}
}

// WithChildren attaches children to the object.
func WithChildren(children ...GameObject) GameObjectBuilderOption {
	return func(g *gameObject) {
		for _, child := range children {
			c, ok := child.(*gameObject)
			if !ok || c == nil || c == g {
				continue
			}
			c.parent = g
			g.children = append(g.children, c)
		}
	}
}
