// annotations.go defines the @oxy: comment annotations understood by the WGSL pre-processor.
// An annotation is a single line comment that is replaced by generated WGSL: either the source of a
// registered GPU struct or a @group/@binding declaration whose type comes from the struct registry.
package shader

import (
	"fmt"
	"strconv"
	"strings"
)

// annotationPrefix marks an annotation inside a WGSL line comment.
const annotationPrefix = "@oxy:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects the WGSL source of a registered struct.
	//
	// Syntax: //@oxy:include <struct_key>
	AnnotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a @group/@binding variable declaration for a registered
	// struct, or a runtime-sized array of one, and records the declaration.
	//
	// Syntax: //@oxy:group <group> <binding> <address_space> <var_name> <struct_key|array<struct_key>>
	AnnotationTypeBindingGroup AnnotationType = "group"
)

// AnnotationArg is an argument of an annotation: a struct key, an address space or a variable name.
type AnnotationArg string

// Struct keys registered by default. Each maps to the embedded WGSL of a GPU type.
const (
	// AnnotationArgCamera is the CameraUniform struct from engine/camera.
	AnnotationArgCamera AnnotationArg = "camera"

	// AnnotationArgVertex is the flattened Vertex struct from engine/model.
	AnnotationArgVertex AnnotationArg = "vertex"

	// AnnotationArgMaterial is the Material struct from engine/renderer/material.
	AnnotationArgMaterial AnnotationArg = "material"

	// AnnotationArgLight is the Light struct from engine/light.
	AnnotationArgLight AnnotationArg = "light"

	// AnnotationArgLightHeader is the LightHeader struct from engine/light. It shares its source
	// file with AnnotationArgLight.
	AnnotationArgLightHeader AnnotationArg = "light_header"
)

// Address spaces accepted by @oxy:group.
const (
	annotationArgStorageTypeUniform   AnnotationArg = "storage_uniform"
	annotationArgStorageTypeRead      AnnotationArg = "storage_read"
	annotationArgStorageTypeReadWrite AnnotationArg = "storage_read_write"
)

// addressSpaces maps address space arguments to WGSL var<> syntax.
var addressSpaces = map[AnnotationArg]string{
	annotationArgStorageTypeUniform:   "var<uniform>",
	annotationArgStorageTypeRead:      "var<storage, read>",
	annotationArgStorageTypeReadWrite: "var<storage, read_write>",
}

// Annotation is one parsed @oxy: annotation.
type Annotation struct {
	// Type is the annotation kind.
	Type AnnotationType

	// Args holds the arguments:
	//   - include: [0] = struct key
	//   - group:   [0] = address space, [1] = variable name, [2] = struct key or array<struct key>
	Args []AnnotationArg

	// Line is the 1-based source line of the annotation.
	Line int

	// Group and Binding are set for group annotations only.
	Group   *int
	Binding *int
}

// VarName returns the declared variable name of a group annotation, or "".
func (a Annotation) VarName() string {
	if a.Type != AnnotationTypeBindingGroup || len(a.Args) < 2 {
		return ""
	}
	return string(a.Args[1])
}

// StructKey returns the struct key a group or include annotation refers to, with any array<>
// wrapper removed.
//
// Returns:
//   - AnnotationArg: the struct key
//   - bool: true when the declaration is a runtime-sized array
func (a Annotation) StructKey() (AnnotationArg, bool) {
	if len(a.Args) == 0 {
		return "", false
	}
	arg := a.Args[len(a.Args)-1]
	if inner, ok := strings.CutPrefix(string(arg), "array<"); ok {
		return AnnotationArg(strings.TrimSuffix(inner, ">")), true
	}
	return arg, false
}

// parseAnnotation parses one WGSL line. Lines without the annotation prefix return nil and no error.
// Struct keys are not checked here; the pre-processor resolves them against its registry.
//
// Parameters:
//   - line: the raw source line
//   - lineNum: the 1-based line number for error messages
//
// Returns:
//   - *Annotation: the parsed annotation, or nil
//   - error: if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}

	switch AnnotationType(args[0]) {
	case AnnotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @oxy:include takes exactly one struct key", lineNum)
		}
		return &Annotation{
			Type: AnnotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case AnnotationTypeBindingGroup:
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @oxy:group takes group, binding, address space, variable name and type", lineNum)
		}
		group, err := strconv.Atoi(args[1])
		if err != nil || group < 0 {
			return nil, fmt.Errorf("line %d: invalid group number %q", lineNum, args[1])
		}
		binding, err := strconv.Atoi(args[2])
		if err != nil || binding < 0 {
			return nil, fmt.Errorf("line %d: invalid binding number %q", lineNum, args[2])
		}
		if _, ok := addressSpaces[AnnotationArg(args[3])]; !ok {
			return nil, fmt.Errorf("line %d: unknown address space %q", lineNum, args[3])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &group,
			Binding: &binding,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @oxy annotation type %q", lineNum, args[0])
	}
}
