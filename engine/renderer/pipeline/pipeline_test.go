package pipeline

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/capability"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-rt/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

func TestFrameTimeTagging(t *testing.T) {
	if v, ok := ValidTime(5 * time.Millisecond).Value(); !ok || v != 5*time.Millisecond {
		t.Errorf("ValidTime.Value() = %v %v", v, ok)
	}
	if _, ok := InvalidTime().Value(); ok {
		t.Error("InvalidTime reported valid")
	}
	if InvalidTime().String() != "FrameTime(invalid)" {
		t.Errorf("String() = %q", InvalidTime().String())
	}
}

func TestFrameClock(t *testing.T) {
	var c frameClock
	steps := []struct {
		in      FrameTime
		elapsed time.Duration
		valid   bool
	}{
		{in: ValidTime(100 * time.Millisecond), valid: false},
		{in: ValidTime(116 * time.Millisecond), elapsed: 16 * time.Millisecond, valid: true},
		{in: InvalidTime(), valid: false},
		{in: ValidTime(900 * time.Millisecond), valid: false},
		{in: ValidTime(910 * time.Millisecond), elapsed: 10 * time.Millisecond, valid: true},
		{in: ValidTime(905 * time.Millisecond), valid: false},
	}
	for i, step := range steps {
		c.advance(step.in)
		elapsed, ok := c.frame()
		if ok != step.valid || (ok && elapsed != step.elapsed) {
			t.Errorf("step %d: frame() = %v %v, want %v %v", i, elapsed, ok, step.elapsed, step.valid)
		}
	}
}

func TestToneMappingParams(t *testing.T) {
	d := DefaultToneMappingParams()
	if d.Mode != ToneMappingLinear || d.Exposure != 1 || d.WhitePoint != 1 {
		t.Errorf("defaults = %+v", d)
	}

	got := ToneMappingParams{Mode: 42, Exposure: float32(math.NaN()), WhitePoint: -3}.sanitized()
	if got != d {
		t.Errorf("sanitized = %+v, want %+v", got, d)
	}
	if ToneMappingACESFilmic.String() != "aces-filmic" || ToneMapping(9).String() != "ToneMapping(9)" {
		t.Error("unexpected ToneMapping names")
	}
}

func TestGPUUniformLayouts(t *testing.T) {
	params := GPUTraceParams{
		FrameSize:     [2]float32{640, 480},
		Jitter:        [2]float32{0.25, -0.25},
		SampleIndex:   7,
		Bounces:       2,
		TriangleCount: 12,
		FrameSeed:     99,
	}
	if params.Size() != 32 {
		t.Fatalf("GPUTraceParams size = %d, want 32", params.Size())
	}
	buf := params.Marshal()
	if math.Float32frombits(binary.LittleEndian.Uint32(buf[4:])) != 480 {
		t.Error("frame height not at offset 4")
	}
	if binary.LittleEndian.Uint32(buf[16:]) != 7 || binary.LittleEndian.Uint32(buf[28:]) != 99 {
		t.Error("sample index or seed at the wrong offset")
	}

	tone := NewGPUToneMapParams(ToneMappingParams{Mode: ToneMappingReinhard, Exposure: 2, WhitePoint: 4}, true)
	if tone.Size() != 16 {
		t.Fatalf("GPUToneMapParams size = %d, want 16", tone.Size())
	}
	tb := tone.Marshal()
	if binary.LittleEndian.Uint32(tb[8:]) != uint32(ToneMappingReinhard) || binary.LittleEndian.Uint32(tb[12:]) != 1 {
		t.Errorf("tone map params = %v", tb)
	}
}

func TestShadersMatchUniformLayouts(t *testing.T) {
	trace, err := shader.NewShader("trace", traceShaderSource, shaderStructs())
	if err != nil {
		t.Fatalf("trace shader: %v", err)
	}
	if trace.GroupCount() != 3 {
		t.Errorf("trace GroupCount = %d, want 3", trace.GroupCount())
	}
	frame := trace.BindGroupLayoutDescriptor(traceGroupFrame).Entries
	if frame[0].Buffer.MinBindingSize != 96 || frame[1].Buffer.MinBindingSize != uint64((&GPUTraceParams{}).Size()) {
		t.Errorf("frame group sizes = %d %d", frame[0].Buffer.MinBindingSize, frame[1].Buffer.MinBindingSize)
	}
	for _, name := range []string{"vertices", "indices", "materials", "light_header", "lights"} {
		if _, ok := trace.BindingIndex(traceGroupScene, name); !ok {
			t.Errorf("trace shader has no %q binding", name)
		}
	}
	sceneEntries := trace.BindGroupLayoutDescriptor(traceGroupScene).Entries
	if sceneEntries[1].Buffer.MinBindingSize != 4 || sceneEntries[2].Buffer.MinBindingSize != 48 {
		t.Errorf("indices/materials min sizes = %d %d", sceneEntries[1].Buffer.MinBindingSize, sceneEntries[2].Buffer.MinBindingSize)
	}

	tone, err := shader.NewShader("tone", toneMapShaderSource, shaderStructs(), shader.WithVisibility(wgpu.ShaderStageFragment))
	if err != nil {
		t.Fatalf("tone map shader: %v", err)
	}
	entries := tone.BindGroupLayoutDescriptor(0).Entries
	if len(entries) != 2 || entries[0].Buffer.MinBindingSize != 16 {
		t.Fatalf("tone map group = %+v", entries)
	}
	if entries[1].Texture.SampleType != wgpu.TextureSampleTypeFloat {
		t.Errorf("accumulation sample type = %v", entries[1].Texture.SampleType)
	}
}

func TestPackScene(t *testing.T) {
	mat := material.NewMaterial(material.WithName("red"))
	flat := &scene.FlattenedScene{
		Positions:         []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:           []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		UVs:               make([]mgl32.Vec2, 3),
		MaterialMeshIndex: []scene.MaterialMeshIndex{{Material: 0, Mesh: 1}, {Material: 0, Mesh: 1}, {Material: 0, Mesh: 1}},
		Indices:           []uint32{0, 1, 2},
		Materials:         []material.Material{mat},
	}
	lights := []light.Light{
		light.NewLight(light.LightTypePoint, light.WithPosition(0, 2, 0)),
		light.NewLight(light.LightTypeAmbient, light.WithIntensity(0.5)),
	}

	p, err := packScene(flat, lights)
	if err != nil {
		t.Fatalf("packScene: %v", err)
	}
	if len(p.vertices) != 3*48 || len(p.indices) != 12 || len(p.materials) != 48 {
		t.Errorf("buffer sizes = %d %d %d", len(p.vertices), len(p.indices), len(p.materials))
	}
	if len(p.lightHeader) != 32 || len(p.lights) != 64 {
		t.Errorf("light buffer sizes = %d %d", len(p.lightHeader), len(p.lights))
	}
	if p.triangleCount != 1 || p.environment != nil {
		t.Errorf("triangleCount = %d, environment = %v", p.triangleCount, p.environment)
	}
}

func TestPackEmptySceneKeepsBindingsNonEmpty(t *testing.T) {
	p, err := packScene(nil, nil)
	if err != nil {
		t.Fatalf("packScene: %v", err)
	}
	for name, buf := range map[string][]byte{
		"vertices": p.vertices, "indices": p.indices, "materials": p.materials,
		"lightHeader": p.lightHeader, "lights": p.lights,
	} {
		if len(buf) == 0 {
			t.Errorf("%s buffer is empty", name)
		}
	}
}

func TestPackSceneRejectsBrokenScene(t *testing.T) {
	flat := &scene.FlattenedScene{
		Positions:         []mgl32.Vec3{{0, 0, 0}},
		Normals:           []mgl32.Vec3{{0, 0, 1}},
		UVs:               make([]mgl32.Vec2, 1),
		MaterialMeshIndex: []scene.MaterialMeshIndex{{Material: 0, Mesh: 1}},
		Indices:           []uint32{0, 0, 3},
		Materials:         []material.Material{material.NewMaterial()},
	}
	if _, err := packScene(flat, nil); err == nil {
		t.Error("expected an error for an out of range index")
	}
}

func TestNewWGPUPipelineRequiresWebGPUContext(t *testing.T) {
	ctx := capability.QuerierFunc(func(string) bool { return true })
	_, err := NewWGPUBuilder()(BuildParams{Context: ctx, Scene: &scene.FlattenedScene{}})

	var cfgErr *common.ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Component != "Pipeline" {
		t.Fatalf("err = %v, want a Pipeline ConfigurationError", err)
	}
}

func TestIsSRGB(t *testing.T) {
	if !isSRGB(wgpu.TextureFormatBGRA8UnormSrgb) || isSRGB(wgpu.TextureFormatBGRA8Unorm) {
		t.Error("isSRGB misclassified surface formats")
	}
}

func TestCarryRegion(t *testing.T) {
	tests := []struct {
		name                   string
		oldW, oldH, newW, newH int
		want                   wgpu.Extent3D
		resized                bool
	}{
		{name: "unchanged", oldW: 800, oldH: 600, newW: 800, newH: 600},
		{name: "grow", oldW: 800, oldH: 600, newW: 1024, newH: 768, want: wgpu.Extent3D{Width: 800, Height: 600, DepthOrArrayLayers: 1}, resized: true},
		{name: "shrink", oldW: 800, oldH: 600, newW: 400, newH: 300, want: wgpu.Extent3D{Width: 400, Height: 300, DepthOrArrayLayers: 1}, resized: true},
		{name: "mixed", oldW: 800, oldH: 600, newW: 1000, newH: 200, want: wgpu.Extent3D{Width: 800, Height: 200, DepthOrArrayLayers: 1}, resized: true},
	}
	for _, tt := range tests {
		got, resized := carryRegion(tt.oldW, tt.oldH, tt.newW, tt.newH)
		if resized != tt.resized || got != tt.want {
			t.Errorf("%s: carryRegion = %+v %v, want %+v %v", tt.name, got, resized, tt.want, tt.resized)
		}
	}
}

func TestSetSizeUnchangedKeepsSamples(t *testing.T) {
	// An unchanged size returns before touching the GPU context.
	p := &wgpuPipeline{mu: &sync.Mutex{}, width: 800, height: 600, samples: 12}

	p.SetSize(800, 600)
	if got := p.TotalSamplesRendered(); got != 12 {
		t.Errorf("TotalSamplesRendered() = %d after a same-size SetSize, want 12", got)
	}
	if p.clearPending {
		t.Error("same-size SetSize scheduled a clear")
	}

	p.width, p.height = 1, 1
	p.SetSize(0, -3)
	if got := p.TotalSamplesRendered(); got != 12 {
		t.Errorf("TotalSamplesRendered() = %d after clamping to 1x1, want 12", got)
	}
}
