package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

const testSource = `//@oxy:include light
//@oxy:group 0 0 storage_uniform camera camera
//@oxy:group 1 0 storage_read vertices array<vertex>
//@oxy:group 1 1 storage_uniform light_header light_header
//@oxy:group 1 2 storage_read lights array<light>
@group(2) @binding(0) var env_texture: texture_2d<f32>;
@group(2) @binding(1) var env_sampler: sampler;

/* @vertex fn commented_out() {} */
@vertex
fn vs_main(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(camera.aperture);
}
`

func TestPreProcessorInjectsSharedSourceOnce(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process(testSource)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got := strings.Count(out, "struct LightHeader"); got != 1 {
		t.Errorf("LightHeader injected %d times, want 1", got)
	}
	if got := strings.Count(out, "struct CameraUniform"); got != 1 {
		t.Errorf("CameraUniform injected %d times, want 1", got)
	}
	if !strings.Contains(out, "@group(1) @binding(2) var<storage, read> lights: array<Light>;") {
		t.Errorf("missing generated lights declaration:\n%s", out)
	}
	if strings.Contains(out, "@oxy:") {
		t.Error("annotations left in output")
	}

	decls := pp.Declarations()
	if len(decls) != 4 {
		t.Fatalf("declarations = %d, want 4", len(decls))
	}
	if decls[1].VarName() != "vertices" || *decls[1].Group != 1 || *decls[1].Binding != 0 {
		t.Errorf("unexpected declaration %+v", decls[1])
	}
	if key, isArray := decls[1].StructKey(); key != AnnotationArgVertex || !isArray {
		t.Errorf("StructKey = %q %v, want vertex array", key, isArray)
	}
}

func TestPreProcessorErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{name: "unknown struct", source: "//@oxy:include shadow_data"},
		{name: "unknown type", source: "//@oxy:frobnicate camera"},
		{name: "empty", source: "//@oxy:"},
		{name: "group arity", source: "//@oxy:group 0 0 storage_uniform camera"},
		{name: "bad group number", source: "//@oxy:group x 0 storage_uniform camera camera"},
		{name: "bad address space", source: "//@oxy:group 0 0 private camera camera"},
		{name: "unknown array element", source: "//@oxy:group 0 0 storage_read xs array<bone_info>"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewPreProcessor().Process(tc.source); err == nil {
				t.Errorf("expected error for %q", tc.source)
			}
		})
	}
}

func TestPreProcessorIgnoresPrefixOutsideComments(t *testing.T) {
	src := `let s = "@oxy:include camera";`
	out, err := NewPreProcessor().Process(src)
	if err != nil || out != src {
		t.Errorf("got %q, %v; want the line unchanged", out, err)
	}
}

func TestWithStructRegistersExtraKey(t *testing.T) {
	pp := NewPreProcessor(WithStruct("params", "struct Params {\n    samples: u32,\n};", "Params"))
	out, err := pp.Process("//@oxy:group 0 1 storage_uniform params params")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !strings.Contains(out, "var<uniform> params: Params;") || !strings.Contains(out, "struct Params") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestNewShaderParsesLayouts(t *testing.T) {
	s, err := NewShader("test", testSource)
	if err != nil {
		t.Fatalf("NewShader: %v", err)
	}
	if s.VertexEntryPoint() != "vs_main" || s.FragmentEntryPoint() != "fs_main" {
		t.Errorf("entry points = %q %q", s.VertexEntryPoint(), s.FragmentEntryPoint())
	}
	if s.GroupCount() != 3 {
		t.Errorf("GroupCount = %d, want 3", s.GroupCount())
	}
	if s.Module() == nil || s.Module().WGSLDescriptor.Code != s.Source() {
		t.Error("module descriptor does not carry the expanded source")
	}

	camera := s.BindGroupLayoutDescriptor(0).Entries[0]
	if camera.Buffer.Type != wgpu.BufferBindingTypeUniform || camera.Buffer.MinBindingSize != 96 {
		t.Errorf("camera entry = %+v, want 96-byte uniform", camera.Buffer)
	}
	if camera.Visibility != wgpu.ShaderStageVertex|wgpu.ShaderStageFragment {
		t.Errorf("visibility = %v", camera.Visibility)
	}

	scene := s.BindGroupLayoutDescriptor(1).Entries
	wantSizes := []uint64{48, 32, 64}
	for i, e := range scene {
		if e.Binding != uint32(i) {
			t.Errorf("entry %d has binding %d", i, e.Binding)
		}
		if e.Buffer.MinBindingSize != wantSizes[i] {
			t.Errorf("binding %d MinBindingSize = %d, want %d", i, e.Buffer.MinBindingSize, wantSizes[i])
		}
	}
	if scene[0].Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage {
		t.Errorf("vertices binding type = %v, want read-only storage", scene[0].Buffer.Type)
	}

	env := s.BindGroupLayoutDescriptor(2).Entries
	if env[0].Texture.SampleType != wgpu.TextureSampleTypeFloat || env[0].Texture.ViewDimension != wgpu.TextureViewDimension2D {
		t.Errorf("texture entry = %+v", env[0].Texture)
	}
	if env[1].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Errorf("sampler entry = %+v", env[1].Sampler)
	}

	if b, ok := s.BindingIndex(1, "lights"); !ok || b != 2 {
		t.Errorf("BindingIndex(lights) = %d %v, want 2", b, ok)
	}
	if _, ok := s.BindingIndex(4, "lights"); ok {
		t.Error("BindingIndex found a variable in an undeclared group")
	}
}

func TestNewShaderRequiresBothStages(t *testing.T) {
	_, err := NewShader("vs-only", "@vertex fn main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }")
	if err == nil {
		t.Error("expected error for a shader without a fragment stage")
	}
}

func TestStructLayouts(t *testing.T) {
	structs := parseStructBlocks(stripComments(`
struct Inner { a: vec3<f32>, b: f32, };
struct Outer {
    inner: Inner, // 16 bytes
    m: mat4x4<f32>,
    xs: array<vec2<f32>, 3>,
    flag: u32,
};
struct Tail { count: u32, items: array<Inner>, };
`))
	sizes := computeStructSizes(structs)

	tests := []struct {
		name string
		size uint64
	}{
		{name: "Inner", size: 16},
		{name: "Outer", size: 112},
		{name: "Tail", size: 16},
	}
	for _, tc := range tests {
		if got := sizes[tc.name].size; got != tc.size {
			t.Errorf("%s size = %d, want %d", tc.name, got, tc.size)
		}
	}

	if l, ok := resolveTypeLayout("array<Inner>", sizes); !ok || l.size != 16 {
		t.Errorf("runtime array layout = %+v %v, want one 16-byte element", l, ok)
	}
	if _, ok := resolveTypeLayout("Unknown", sizes); ok {
		t.Error("unknown type resolved")
	}
}

func TestStripComments(t *testing.T) {
	got := stripComments("a /* x /* nested */ y */ b // tail\nc")
	if strings.Contains(got, "x") || strings.Contains(got, "tail") || !strings.Contains(got, "a") || !strings.Contains(got, "c") {
		t.Errorf("stripComments = %q", got)
	}
}
