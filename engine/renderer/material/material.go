package material

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-rt/common"
)

// RayTracing holds the surface flags only the path tracer understands.
type RayTracing struct {
	// Solid marks a transparent surface as a closed volume, so rays refract on entry and exit
	// instead of treating it as a thin sheet.
	Solid bool
	// ShadowCatcher makes the surface invisible except for the shadows and reflections it receives.
	ShadowCatcher bool
}

// material is the implementation of the Material interface.
type material struct {
	mu                       *sync.Mutex
	name                     string
	baseColor                [4]float32
	emissive                 [3]float32
	metallic                 float32
	roughness                float32
	transparent              bool
	rayTracing               RayTracing
	diffuseTexture           *common.TextureSource
	normalTexture            *common.TextureSource
	metallicRoughnessTexture *common.TextureSource
}

// Material defines a physically based surface for the path tracer.
//
// Materials are compared by identity: two mesh instances that share the same Material value
// share one entry in the flattened material list, while two distinct materials with equal
// properties remain separate entries.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the albedo RGBA color of the material.
	//
	// Returns:
	//   - [4]float32: the base color as RGBA values
	BaseColor() [4]float32

	// Emissive retrieves the emitted radiance of the material.
	//
	// Returns:
	//   - [3]float32: the emissive color as RGB values
	Emissive() [3]float32

	// Metallic retrieves the metallic factor of the material.
	// A value of 0.0 represents a dielectric surface, 1.0 represents a fully metallic surface.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfectly smooth surface, 1.0 represents a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// Transparent reports whether light passes through the surface.
	//
	// Returns:
	//   - bool: true if the material is transparent
	Transparent() bool

	// RayTracing retrieves the path tracer specific flags.
	//
	// Returns:
	//   - RayTracing: the solid and shadow catcher flags
	RayTracing() RayTracing

	// DiffuseTexture retrieves the albedo texture source, or nil if none is set.
	//
	// Returns:
	//   - *common.TextureSource: the diffuse texture, or nil
	DiffuseTexture() *common.TextureSource

	// NormalTexture retrieves the normal map texture source, or nil if none is set.
	//
	// Returns:
	//   - *common.TextureSource: the normal texture, or nil
	NormalTexture() *common.TextureSource

	// MetallicRoughnessTexture retrieves the metallic-roughness texture source, or nil if none is set.
	//
	// Returns:
	//   - *common.TextureSource: the metallic-roughness texture, or nil
	MetallicRoughnessTexture() *common.TextureSource

	// SetBaseColor updates the albedo color. The renderer must be rebuilt for the change to reach the GPU.
	//
	// Parameters:
	//   - color: the new RGBA base color
	SetBaseColor(color [4]float32)

	// SetMetallic updates the metallic factor.
	//
	// Parameters:
	//   - metallic: the new metallic factor
	SetMetallic(metallic float32)

	// SetRoughness updates the roughness factor.
	//
	// Parameters:
	//   - roughness: the new roughness factor
	SetRoughness(roughness float32)

	// SetTransparent toggles transparency.
	//
	// Parameters:
	//   - transparent: whether light passes through the surface
	SetTransparent(transparent bool)

	// SetRayTracing replaces the path tracer flags.
	//
	// Parameters:
	//   - rt: the new flags
	SetRayTracing(rt RayTracing)
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
// Defaults to an opaque white dielectric with roughness 1.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		mu:        &sync.Mutex{},
		baseColor: [4]float32{1, 1, 1, 1},
		metallic:  0.0,
		roughness: 1.0,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() [4]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseColor
}

func (m *material) Emissive() [3]float32 {
	return m.emissive
}

func (m *material) Metallic() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metallic
}

func (m *material) Roughness() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roughness
}

func (m *material) Transparent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transparent
}

func (m *material) RayTracing() RayTracing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rayTracing
}

func (m *material) DiffuseTexture() *common.TextureSource {
	return m.diffuseTexture
}

func (m *material) NormalTexture() *common.TextureSource {
	return m.normalTexture
}

func (m *material) MetallicRoughnessTexture() *common.TextureSource {
	return m.metallicRoughnessTexture
}

func (m *material) SetBaseColor(color [4]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseColor = color
}

func (m *material) SetMetallic(metallic float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metallic = metallic
}

func (m *material) SetRoughness(roughness float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roughness = roughness
}

func (m *material) SetTransparent(transparent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transparent = transparent
}

func (m *material) SetRayTracing(rt RayTracing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rayTracing = rt
}
