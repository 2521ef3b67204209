package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// shader is the implementation of the Shader interface.
type shader struct {
	key                        string
	source                     string
	visibility                 wgpu.ShaderStage
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexEntryPoint           string
	fragmentEntryPoint         string
	declarations               []Annotation
	module                     *wgpu.ShaderModuleDescriptor

	ppOptions []PreProcessorOption
}

// Shader is a pre-processed WGSL module holding a vertex and a fragment entry point, together
// with the bind group layouts parsed from its resource declarations.
type Shader interface {
	// Key returns the label of the shader.
	Key() string

	// Source returns the expanded WGSL source.
	Source() string

	// Module returns the shader module descriptor built from the expanded source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor passed to Device.CreateShaderModule
	Module() *wgpu.ShaderModuleDescriptor

	// VertexEntryPoint returns the name of the @vertex function.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the name of the @fragment function.
	FragmentEntryPoint() string

	// BindGroupLayoutDescriptor returns the layout of one group, or an empty descriptor.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout descriptor
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors returns every parsed layout keyed by group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// GroupCount returns one past the highest declared group index.
	GroupCount() int

	// BindingIndex looks up the binding index of a variable within a group.
	//
	// Parameters:
	//   - group: the @group index
	//   - varName: the declared variable name
	//
	// Returns:
	//   - int: the binding index, or -1
	//   - bool: whether the variable was found
	BindingIndex(group int, varName string) (int, bool)

	// Declarations returns the @oxy:group annotations expanded into this shader.
	Declarations() []Annotation
}

var _ Shader = &shader{}

// ShaderBuilderOption is a functional option for configuring a Shader.
type ShaderBuilderOption func(s *shader)

// WithVisibility overrides the stages every binding is visible to.
// Defaults to vertex and fragment.
//
// Parameters:
//   - stage: the visibility flags
//
// Returns:
//   - ShaderBuilderOption: option function to apply
func WithVisibility(stage wgpu.ShaderStage) ShaderBuilderOption {
	return func(s *shader) {
		s.visibility = stage
	}
}

// WithPreProcessorOptions passes extra struct registrations to the pre-processor.
//
// Parameters:
//   - options: the pre-processor options
//
// Returns:
//   - ShaderBuilderOption: option function to apply
func WithPreProcessorOptions(options ...PreProcessorOption) ShaderBuilderOption {
	return func(s *shader) {
		s.ppOptions = append(s.ppOptions, options...)
	}
}

// NewShader pre-processes source and parses its entry points and bind group layouts.
//
// Parameters:
//   - key: the shader label
//   - source: WGSL source, usually embedded, that may contain @oxy: annotations
//   - options: functional options
//
// Returns:
//   - Shader: the parsed shader
//   - error: if pre-processing fails or an entry point is missing
func NewShader(key, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:        key,
		visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
	}
	for _, option := range options {
		option(s)
	}

	pp := NewPreProcessor(s.ppOptions...)
	expanded, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("failed to pre-process shader %q: %w", key, err)
	}
	s.source = expanded
	s.declarations = pp.Declarations()

	s.vertexEntryPoint = parseEntryPoint(expanded, wgpu.ShaderStageVertex)
	s.fragmentEntryPoint = parseEntryPoint(expanded, wgpu.ShaderStageFragment)
	if s.vertexEntryPoint == "" || s.fragmentEntryPoint == "" {
		return nil, fmt.Errorf("shader %q must declare a @vertex and a @fragment entry point", key)
	}

	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(expanded, s.visibility)
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: expanded,
		},
	}
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntryPoint
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntryPoint
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) GroupCount() int {
	count := 0
	for g := range s.bindGroupLayoutDescriptors {
		count = max(count, g+1)
	}
	return count
}

func (s *shader) BindingIndex(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
