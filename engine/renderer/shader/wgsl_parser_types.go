package shader

import "github.com/cogentcore/webgpu/wgpu"

// sampledTextureInfo is the view dimension and multisample flag of a WGSL sampled texture type.
type sampledTextureInfo struct {
	viewDimension wgpu.TextureViewDimension
	multisampled  bool
}

// wgslTypeLayout is the size and alignment of a WGSL type in a host-shareable address space.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField is one member of a WGSL struct.
type parsedField struct {
	name      string
	typeName  string
	isBuiltin bool
}

// parsedStruct is a WGSL struct block.
type parsedStruct struct {
	name   string
	fields []parsedField
}
