package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUVertexSource is the canonical WGSL definition of the Vertex struct read by the trace kernel.
// Matches GPUVertex layout exactly (48 bytes, std430 aligned).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUVertex is the GPU-aligned representation of a single world-space vertex of the flattened scene.
// Size: 48 bytes (three 16-byte rows, std430 aligned).
type GPUVertex struct {
	Position      [3]float32 // offset  0: world-space position (12 bytes)
	MaterialIndex int32      // offset 12: index into the material buffer
	Normal        [3]float32 // offset 16: world-space unit normal (12 bytes)
	MeshIndex     int32      // offset 28: 1-based mesh instance index
	TexCoord      [2]float32 // offset 32: UV texture coordinate (8 bytes)
	_pad          [2]float32 // offset 40: padding to 48 bytes
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// MarshalTo serializes the GPUVertex into buf, which must hold at least 48 bytes.
//
// Parameters:
//   - buf: destination buffer
func (g *GPUVertex) MarshalTo(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(g.MaterialIndex))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Normal[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Normal[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Normal[2]))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(g.MeshIndex))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.TexCoord[0]))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.TexCoord[1]))
	binary.LittleEndian.PutUint32(buf[40:44], 0)
	binary.LittleEndian.PutUint32(buf[44:48], 0)
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, 48)
	g.MarshalTo(buf)
	return buf
}
