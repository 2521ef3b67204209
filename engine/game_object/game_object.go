package game_object

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
)

var objectCount atomic.Uint64

// gameObject is the implementation of the GameObject interface.
type gameObject struct {
	mu      *sync.Mutex
	id      uint64
	name    string
	enabled atomic.Bool

	position mgl32.Vec3
	rotation mgl32.Vec3
	scale    mgl32.Vec3

	geometry      *model.Geometry
	material      material.Material
	attachedLight light.Light

	parent   *gameObject
	children []*gameObject

	worldMatrix mgl32.Mat4
}

// GameObject is a node of the scene graph. A node has a local transform, optional mesh payload
// (geometry plus material), an optional light and any number of children.
//
// World matrices are only refreshed by UpdateMatrixWorld, mirroring how a frame first settles the
// hierarchy and then reads it.
type GameObject interface {
	// ID retrieves the unique identifier assigned at construction.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Name retrieves the object name.
	Name() string

	// Enabled reports whether the object itself is visible.
	Enabled() bool

	// Visible reports whether the object and every ancestor are enabled.
	//
	// Returns:
	//   - bool: true if the object participates in rendering
	Visible() bool

	// Position retrieves the local translation.
	Position() mgl32.Vec3

	// Rotation retrieves the local Euler rotation in radians.
	Rotation() mgl32.Vec3

	// Scale retrieves the local scale.
	Scale() mgl32.Vec3

	// Geometry retrieves the mesh geometry, or nil for non-mesh nodes.
	Geometry() *model.Geometry

	// Material retrieves the mesh material, or nil for non-mesh nodes.
	Material() material.Material

	// Light retrieves the attached light, or nil.
	Light() light.Light

	// Parent retrieves the parent node, or nil for roots.
	Parent() GameObject

	// Children retrieves a copy of the child list.
	Children() []GameObject

	// LocalMatrix computes the local transform from position, rotation and scale.
	//
	// Returns:
	//   - mgl32.Mat4: the local model matrix
	LocalMatrix() mgl32.Mat4

	// WorldMatrix retrieves the world transform computed by the last UpdateMatrixWorld.
	//
	// Returns:
	//   - mgl32.Mat4: the world model matrix
	WorldMatrix() mgl32.Mat4

	// UpdateMatrixWorld recomputes the world matrix of this node and every descendant.
	UpdateMatrixWorld()

	// Traverse calls fn for this node and every descendant in depth-first pre-order.
	//
	// Parameters:
	//   - fn: the visitor
	Traverse(fn func(GameObject))

	// Add attaches child to this node, detaching it from its previous parent first.
	// Adding a node to itself or to one of its descendants is ignored.
	Add(child GameObject)

	// Remove detaches child if it is a direct child of this node.
	Remove(child GameObject)

	// SetName changes the object name.
	SetName(name string)

	// SetEnabled toggles visibility.
	SetEnabled(enabled bool)

	// SetPosition changes the local translation.
	SetPosition(p mgl32.Vec3)

	// SetRotation changes the local Euler rotation in radians.
	SetRotation(r mgl32.Vec3)

	// SetScale changes the local scale.
	SetScale(s mgl32.Vec3)

	// SetMesh sets the mesh payload.
	//
	// Parameters:
	//   - g: the geometry
	//   - m: the material
	SetMesh(g *model.Geometry, m material.Material)

	// SetLight attaches a light to this node. Point and spot lights follow the node's world position.
	SetLight(l light.Light)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new enabled node with identity transform.
//
// Parameters:
//   - options: variadic list of GameObjectBuilderOption functions
//
// Returns:
//   - GameObject: the new node
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:          &sync.Mutex{},
		id:          objectCount.Add(1),
		scale:       mgl32.Vec3{1, 1, 1},
		worldMatrix: mgl32.Ident4(),
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

// NewMesh is shorthand for a node carrying geometry and material.
func NewMesh(g *model.Geometry, m material.Material, options ...GameObjectBuilderOption) GameObject {
	return NewGameObject(append([]GameObjectBuilderOption{WithMesh(g, m)}, options...)...)
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Name() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.name
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Visible() bool {
	for n := g; n != nil; n = n.parentNode() {
		if !n.enabled.Load() {
			return false
		}
	}
	return true
}

func (g *gameObject) parentNode() *gameObject {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.parent
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

func (g *gameObject) Rotation() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rotation
}

func (g *gameObject) Scale() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale
}

func (g *gameObject) Geometry() *model.Geometry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.geometry
}

func (g *gameObject) Material() material.Material {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.material
}

func (g *gameObject) Light() light.Light {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attachedLight
}

func (g *gameObject) Parent() GameObject {
	p := g.parentNode()
	if p == nil {
		return nil
	}
	return p
}

func (g *gameObject) Children() []GameObject {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]GameObject, len(g.children))
	for i, c := range g.children {
		out[i] = c
	}
	return out
}

func (g *gameObject) LocalMatrix() mgl32.Mat4 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return common.BuildModelMatrix(g.position, g.rotation, g.scale)
}

func (g *gameObject) WorldMatrix() mgl32.Mat4 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.worldMatrix
}

func (g *gameObject) UpdateMatrixWorld() {
	parent := mgl32.Ident4()
	if p := g.parentNode(); p != nil {
		parent = p.WorldMatrix()
	}
	g.updateMatrixWorld(parent)
}

func (g *gameObject) updateMatrixWorld(parentWorld mgl32.Mat4) {
	g.mu.Lock()
	world := parentWorld.Mul4(common.BuildModelMatrix(g.position, g.rotation, g.scale))
	g.worldMatrix = world
	children := append([]*gameObject(nil), g.children...)
	l := g.attachedLight
	g.mu.Unlock()

	if l != nil && (l.Type() == light.LightTypePoint || l.Type() == light.LightTypeSpot) {
		l.SetPosition(mgl32.TransformCoordinate(mgl32.Vec3{}, world))
	}
	for _, c := range children {
		c.updateMatrixWorld(world)
	}
}

func (g *gameObject) Traverse(fn func(GameObject)) {
	fn(g)
	g.mu.Lock()
	children := append([]*gameObject(nil), g.children...)
	g.mu.Unlock()
	for _, c := range children {
		c.Traverse(fn)
	}
}

func (g *gameObject) Add(child GameObject) {
	c, ok := child.(*gameObject)
	if !ok || c == nil {
		return
	}
	for n := g; n != nil; n = n.parentNode() {
		if n == c {
			return
		}
	}
	if old := c.parentNode(); old != nil {
		old.Remove(c)
	}

	g.mu.Lock()
	g.children = append(g.children, c)
	g.mu.Unlock()

	c.mu.Lock()
	c.parent = g
	c.mu.Unlock()
}

func (g *gameObject) Remove(child GameObject) {
	c, ok := child.(*gameObject)
	if !ok || c == nil {
		return
	}

	g.mu.Lock()
	removed := false
	for i, existing := range g.children {
		if existing == c {
			g.children = append(g.children[:i], g.children[i+1:]...)
			removed = true
			break
		}
	}
	g.mu.Unlock()

	if removed {
		c.mu.Lock()
		c.parent = nil
		c.mu.Unlock()
	}
}

func (g *gameObject) SetName(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.name = name
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetPosition(p mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = p
}

func (g *gameObject) SetRotation(r mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rotation = r
}

func (g *gameObject) SetScale(s mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = s
}

func (g *gameObject) SetMesh(geo *model.Geometry, m material.Material) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.geometry = geo
	g.material = m
}

func (g *gameObject) SetLight(l light.Light) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attachedLight = l
}
