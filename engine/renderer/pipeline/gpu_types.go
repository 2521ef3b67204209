package pipeline

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
)

const (
	// AnnotationArgTraceParams is the pre-processor key of the TraceParams struct.
	AnnotationArgTraceParams shader.AnnotationArg = "trace_params"
	// AnnotationArgToneMapParams is the pre-processor key of the ToneMapParams struct.
	AnnotationArgToneMapParams shader.AnnotationArg = "tone_map_params"
)

// GPUTraceParamsSource is the canonical WGSL definition of the TraceParams struct.
// Matches GPUTraceParams layout exactly (32 bytes).
//
//go:embed assets/trace_params.wgsl
var GPUTraceParamsSource string

// GPUToneMapParamsSource is the canonical WGSL definition of the ToneMapParams struct and the
// TONE_MAPPING_* operator constants.
//
//go:embed assets/tone_map_params.wgsl
var GPUToneMapParamsSource string

// GPUTraceParams is the per-draw uniform of the sample pass.
// Size: 32 bytes.
type GPUTraceParams struct {
	FrameSize     [2]float32 // offset  0: backing size in pixels
	Jitter        [2]float32 // offset  8: sub-pixel offset of this sample
	SampleIndex   uint32     // offset 16: samples accumulated before this one
	Bounces       uint32     // offset 20: indirect bounces per path
	TriangleCount uint32     // offset 24: triangles in the index buffer
	FrameSeed     uint32     // offset 28: RNG seed, changes every draw
}

// Size returns the size of the GPUTraceParams struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (32)
func (p *GPUTraceParams) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the GPUTraceParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload
func (p *GPUTraceParams) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.FrameSize[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.FrameSize[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(p.Jitter[0]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(p.Jitter[1]))
	binary.LittleEndian.PutUint32(buf[16:20], p.SampleIndex)
	binary.LittleEndian.PutUint32(buf[20:24], p.Bounces)
	binary.LittleEndian.PutUint32(buf[24:28], p.TriangleCount)
	binary.LittleEndian.PutUint32(buf[28:32], p.FrameSeed)
	return buf
}

// GPUToneMapParams is the uniform of the output pass.
// Size: 16 bytes.
type GPUToneMapParams struct {
	Exposure   float32 // offset  0
	WhitePoint float32 // offset  4
	Mode       uint32  // offset  8: ToneMapping value
	EncodeSRGB uint32  // offset 12: 1 when the surface format is not an sRGB format
}

// NewGPUToneMapParams packs tone mapping parameters for a surface.
//
// Parameters:
//   - p: the tone mapping parameters
//   - encodeSRGB: whether the shader must apply the sRGB transfer function itself
//
// Returns:
//   - GPUToneMapParams: the packed uniform
func NewGPUToneMapParams(p ToneMappingParams, encodeSRGB bool) GPUToneMapParams {
	p = p.sanitized()
	g := GPUToneMapParams{
		Exposure:   p.Exposure,
		WhitePoint: p.WhitePoint,
		Mode:       uint32(p.Mode),
	}
	if encodeSRGB {
		g.EncodeSRGB = 1
	}
	return g
}

// Size returns the size of the GPUToneMapParams struct in bytes.
func (p *GPUToneMapParams) Size() int {
	return int(unsafe.Sizeof(*p))
}

// Marshal serializes the GPUToneMapParams struct into a byte buffer suitable for GPU upload.
func (p *GPUToneMapParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(p.Exposure))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(p.WhitePoint))
	binary.LittleEndian.PutUint32(buf[8:12], p.Mode)
	binary.LittleEndian.PutUint32(buf[12:16], p.EncodeSRGB)
	return buf
}

// shaderStructs registers the pipeline's uniform structs with the shader pre-processor.
func shaderStructs() shader.ShaderBuilderOption {
	return shader.WithPreProcessorOptions(
		shader.WithStruct(AnnotationArgTraceParams, GPUTraceParamsSource, "TraceParams"),
		shader.WithStruct(AnnotationArgToneMapParams, GPUToneMapParamsSource, "ToneMapParams"),
	)
}
