package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/model"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer/material"
)

// registryEntry pairs the WGSL source injected by @oxy:include with the type name emitted by @oxy:group.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	structRegistry map[AnnotationArg]registryEntry
	declarations   []Annotation
}

// PreProcessor expands @oxy: annotations in WGSL source and records the binding declarations it generated.
type PreProcessor interface {
	// Process expands every annotation in source. A struct source is injected at most once even
	// when several keys share it or the same key is included or declared repeatedly. A struct
	// referenced only by an @oxy:group line is injected ahead of its first declaration.
	//
	// Parameters:
	//   - source: raw WGSL containing annotations
	//
	// Returns:
	//   - string: the expanded WGSL
	//   - error: if an annotation is malformed or names an unregistered struct
	Process(source string) (string, error)

	// Declarations returns the group annotations found by the last Process call, in source order.
	//
	// Returns:
	//   - []Annotation: the binding declarations
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// PreProcessorOption configures a PreProcessor.
type PreProcessorOption func(p *preProcessor)

// WithStruct registers an additional struct key.
//
// Parameters:
//   - key: the key used in annotations
//   - source: the WGSL struct definition
//   - typeName: the WGSL type name declared by source
//
// Returns:
//   - PreProcessorOption: option function to apply
func WithStruct(key AnnotationArg, source, typeName string) PreProcessorOption {
	return func(p *preProcessor) {
		p.structRegistry[key] = registryEntry{Source: source, Type: typeName}
	}
}

// NewPreProcessor creates a PreProcessor that knows the engine's GPU structs.
//
// Parameters:
//   - options: extra struct registrations
//
// Returns:
//   - PreProcessor: the pre-processor
func NewPreProcessor(options ...PreProcessorOption) PreProcessor {
	p := &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgCamera:      {Source: camera.GPUCameraUniformSource, Type: "CameraUniform"},
			AnnotationArgVertex:      {Source: model.GPUVertexSource, Type: "Vertex"},
			AnnotationArgMaterial:    {Source: material.GPUMaterialSource, Type: "Material"},
			AnnotationArgLight:       {Source: light.GPULightSource, Type: "Light"},
			AnnotationArgLightHeader: {Source: light.GPULightSource, Type: "LightHeader"},
		},
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = nil
	injected := make(map[string]bool)

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	inject := func(entry registryEntry) {
		if injected[entry.Source] {
			return
		}
		injected[entry.Source] = true
		out = append(out, strings.TrimRight(entry.Source, "\n"))
	}

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		key, isArray := a.StructKey()
		entry, ok := p.structRegistry[key]
		if !ok {
			return "", fmt.Errorf("line %d: unknown struct key %q", a.Line, key)
		}

		switch a.Type {
		case AnnotationTypeInclude:
			inject(entry)
		case AnnotationTypeBindingGroup:
			inject(entry)
			wgslType := entry.Type
			if isArray {
				wgslType = fmt.Sprintf("array<%s>", entry.Type)
			}
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;",
				*a.Group, *a.Binding, addressSpaces[a.Args[0]], a.VarName(), wgslType))
			p.declarations = append(p.declarations, *a)
		}
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
