package light

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// MaxGPULights is the maximum number of punctual lights marshaled into the GPU storage buffer.
// Lights past the budget are dropped in scene order.
const MaxGPULights = 64

// GPULightSource is the canonical WGSL definition of the Light and LightHeader structs.
// Matches GPULight (64 bytes) and GPULightHeader (32 bytes) exactly.
//
//go:embed assets/light.wgsl
var GPULightSource string

// GPULight is the GPU-aligned representation of a single punctual light source.
// Size: 64 bytes (std430 / WGSL aligned).
type GPULight struct {
	Position   [3]float32 // offset  0: world-space position (point/spot)
	LightType  uint32     // offset 12: 0 = directional, 1 = point, 2 = spot
	Color      [3]float32 // offset 16: RGB color
	Intensity  float32    // offset 28: scalar multiplier
	Direction  [3]float32 // offset 32: normalized direction (directional/spot)
	LightRange float32    // offset 44: attenuation cutoff distance
	InnerCone  float32    // offset 48: cos(inner half-angle) for spot
	OuterCone  float32    // offset 52: cos(outer half-angle) for spot
	Softness   float32    // offset 56: angular radius for directional
	_pad       uint32     // offset 60: padding to 64-byte alignment
}

// Size returns the size of the GPULight struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (64)
func (g *GPULight) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPULight struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 64-byte buffer ready for GPU upload
func (g *GPULight) Marshal() []byte {
	buf := make([]byte, 64)
	putVec3(buf[0:], g.Position)
	binary.LittleEndian.PutUint32(buf[12:16], g.LightType)
	putVec3(buf[16:], g.Color)
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Intensity))
	putVec3(buf[32:], g.Direction)
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.LightRange))
	binary.LittleEndian.PutUint32(buf[48:52], math.Float32bits(g.InnerCone))
	binary.LittleEndian.PutUint32(buf[52:56], math.Float32bits(g.OuterCone))
	binary.LittleEndian.PutUint32(buf[56:60], math.Float32bits(g.Softness))
	binary.LittleEndian.PutUint32(buf[60:64], 0) // padding
	return buf
}

// GPULightHeader is the header prepended to the light storage buffer.
// Size: 32 bytes.
type GPULightHeader struct {
	AmbientColor         [3]float32 // offset 0: summed ambient RGB
	LightCount           uint32     // offset 12: number of punctual lights following the header
	HasEnvironment       uint32     // offset 16: 1 when an environment map is bound
	EnvironmentIntensity float32    // offset 20: environment radiance multiplier
	_pad                 [2]uint32  // offset 24: padding to 32 bytes
}

// Size returns the size of the GPULightHeader struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (h *GPULightHeader) Size() int {
	return int(unsafe.Sizeof(*h))
}

// Marshal serializes the GPULightHeader struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (h *GPULightHeader) Marshal() []byte {
	buf := make([]byte, 32)
	putVec3(buf[0:], h.AmbientColor)
	binary.LittleEndian.PutUint32(buf[12:16], h.LightCount)
	binary.LittleEndian.PutUint32(buf[16:20], h.HasEnvironment)
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(h.EnvironmentIntensity))
	return buf
}

// ToGPULight converts a punctual Light into its GPU-aligned representation.
//
// Parameters:
//   - l: the Light to convert
//
// Returns:
//   - GPULight: the GPU-aligned representation
func ToGPULight(l Light) GPULight {
	return GPULight{
		Position:   l.Position(),
		LightType:  uint32(l.Type()),
		Color:      l.Color(),
		Intensity:  l.Intensity(),
		Direction:  l.Direction(),
		LightRange: l.Range(),
		InnerCone:  l.InnerCone(),
		OuterCone:  l.OuterCone(),
		Softness:   l.Softness(),
	}
}

// EnvironmentOf returns the first enabled environment light in lights, or nil.
func EnvironmentOf(lights []Light) Light {
	for _, l := range lights {
		if l.Enabled() && l.Type() == LightTypeEnvironment && l.Environment() != nil {
			return l
		}
	}
	return nil
}

// MarshalLightBuffer marshals the enabled lights into a byte buffer suitable for GPU upload.
// The buffer layout is:
//
//	[GPULightHeader (32 bytes)] [GPULight × count (64 bytes each)]
//
// Ambient lights are summed into the header. The first environment light sets the header's
// environment fields; others are ignored. Punctual lights past MaxGPULights are dropped.
//
// Parameters:
//   - lights: the scene lights
//
// Returns:
//   - []byte: the marshaled buffer ready for GPU upload
func MarshalLightBuffer(lights []Light) []byte {
	var header GPULightHeader
	var punctual []Light
	for _, l := range lights {
		if !l.Enabled() {
			continue
		}
		switch l.Type() {
		case LightTypeAmbient:
			c := l.Color()
			for i := range 3 {
				header.AmbientColor[i] += c[i] * l.Intensity()
			}
		case LightTypeEnvironment:
		default:
			if len(punctual) < MaxGPULights {
				punctual = append(punctual, l)
			}
		}
	}
	if env := EnvironmentOf(lights); env != nil {
		header.HasEnvironment = 1
		header.EnvironmentIntensity = env.Intensity()
	}
	header.LightCount = uint32(len(punctual))

	lightSize := (&GPULight{}).Size()
	buf := make([]byte, 0, header.Size()+len(punctual)*lightSize)
	buf = append(buf, header.Marshal()...)
	for _, l := range punctual {
		g := ToGPULight(l)
		buf = append(buf, g.Marshal()...)
	}
	return buf
}

func putVec3(buf []byte, v [3]float32) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(v[2]))
}
