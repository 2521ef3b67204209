package material

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMaterialSource is the canonical WGSL definition of the Material struct and its flag bits.
// Matches GPUMaterial layout exactly (48 bytes, std430 aligned).
//
//go:embed assets/material.wgsl
var GPUMaterialSource string

// Material flag bits packed into GPUMaterial.Flags.
const (
	FlagTransparent   uint32 = 1 << 0
	FlagSolid         uint32 = 1 << 1
	FlagShadowCatcher uint32 = 1 << 2
)

// GPUMaterial is one entry of the material storage buffer read by the trace kernel.
// Size: 48 bytes (three 16-byte rows, std430 aligned).
type GPUMaterial struct {
	BaseColor [4]float32 // offset 0: albedo RGBA (16 bytes)
	Emissive  [3]float32 // offset 16: emitted radiance (12 bytes)
	Roughness float32    // offset 28: roughness (4 bytes)
	Metallic  float32    // offset 32: metallic (4 bytes)
	Flags     uint32     // offset 36: FlagTransparent | FlagSolid | FlagShadowCatcher
	_         [2]uint32  // offset 40: padding to 48 bytes
}

// NewGPUMaterial packs a Material for upload.
//
// Parameters:
//   - m: the material to pack
//
// Returns:
//   - GPUMaterial: the GPU representation of m
func NewGPUMaterial(m Material) GPUMaterial {
	g := GPUMaterial{
		BaseColor: m.BaseColor(),
		Emissive:  m.Emissive(),
		Roughness: m.Roughness(),
		Metallic:  m.Metallic(),
	}
	rt := m.RayTracing()
	if m.Transparent() {
		g.Flags |= FlagTransparent
	}
	if rt.Solid {
		g.Flags |= FlagSolid
	}
	if rt.ShadowCatcher {
		g.Flags |= FlagShadowCatcher
	}
	return g
}

// Size returns the size of the GPUMaterial struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterial) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterial struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUMaterial) Marshal() []byte {
	buf := make([]byte, 48)
	for i, v := range g.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	for i, v := range g.Emissive {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[28:32], math.Float32bits(g.Roughness))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[36:40], g.Flags)
	return buf
}

// MarshalMaterials packs every material into one contiguous storage buffer payload.
//
// Parameters:
//   - materials: the materials in flattened order
//
// Returns:
//   - []byte: len(materials)*48 bytes, or one zeroed entry when materials is empty
func MarshalMaterials(materials []Material) []byte {
	if len(materials) == 0 {
		// Storage buffers cannot be zero sized.
		return make([]byte, 48)
	}
	buf := make([]byte, 0, 48*len(materials))
	for _, m := range materials {
		g := NewGPUMaterial(m)
		buf = append(buf, g.Marshal()...)
	}
	return buf
}
