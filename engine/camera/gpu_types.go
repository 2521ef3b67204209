package camera

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniformSource is the canonical WGSL definition of the CameraUniform struct.
// Matches GPUCameraUniform layout exactly (96 bytes, std430 aligned).
//
//go:embed assets/camera_uniform.wgsl
var GPUCameraUniformSource string

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer used to
// generate primary rays.
// Size: 96 bytes (std430 / WGSL aligned).
type GPUCameraUniform struct {
	World         [16]float32 // offset  0: camera-to-world matrix (mat4x4<f32>)
	Position      [3]float32  // offset 64: world-space eye position (vec3<f32>)
	Aperture      float32     // offset 76: lens radius
	Fov           float32     // offset 80: vertical field of view in radians
	Aspect        float32     // offset 84: width / height
	FocusDistance float32     // offset 88: distance of the focal plane
	_pad          float32     // offset 92: padding to 96 bytes
}

// NewGPUCameraUniform captures the camera state computed by the last UpdateMatrixWorld.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - GPUCameraUniform: the packed uniform
func NewGPUCameraUniform(c Camera) GPUCameraUniform {
	lens := c.Lens()
	return GPUCameraUniform{
		World:         c.WorldMatrix(),
		Position:      c.Position(),
		Aperture:      lens.Aperture,
		Fov:           c.Fov(),
		Aspect:        c.Aspect(),
		FocusDistance: lens.FocusDistance,
	}
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (96)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.World[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.Position[i]))
	}
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(g.Aperture))
	binary.LittleEndian.PutUint32(buf[80:], math.Float32bits(g.Fov))
	binary.LittleEndian.PutUint32(buf[84:], math.Float32bits(g.Aspect))
	binary.LittleEndian.PutUint32(buf[88:], math.Float32bits(g.FocusDistance))
	binary.LittleEndian.PutUint32(buf[92:], 0) // _pad
	return buf
}
