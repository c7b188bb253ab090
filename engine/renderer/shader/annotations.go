// annotations.go defines the annotation types, argument constants, and parser for the
// multiview WGSL pre-processor. Annotations are single-line WGSL comments prefixed
// with @mv: that drive struct injection, bind group declaration, and the view index
// site. The parsed results are stored as Annotation values and consumed by the
// PreProcessor and the renderer to wire the view uniform without manual plumbing.
package shader

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
const annotationPrefix = "@mv:"

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects the WGSL source of a registered struct definition
	// at the annotation site. It is consumed entirely during pre-processing.
	//
	// Syntax: //@mv:include <struct_type>
	//
	// Example: //@mv:include view_transforms
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypeBindingGroup generates a WGSL @group/@binding variable declaration
	// and appends an Annotation to the PreProcessor's declarations list.
	//
	// Syntax: //@mv:group <group> <binding> <address_space> <var_name> <type>
	//
	// Example: //@mv:group 0 0 uniform transforms view_transforms
	AnnotationTypeBindingGroup AnnotationType = "group"

	// AnnotationTypeViewIndex marks the entry point parameter slot that receives the
	// view index. Depending on the ViewMode it expands to a @builtin(view_index)
	// parameter or to nothing, with a module scope constant taking its place.
	//
	// Syntax: //@mv:view_index
	AnnotationTypeViewIndex AnnotationType = "view_index"
)

// Annotation represents a single parsed @mv: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:    [0] = struct type key (e.g. "view_transforms")
	//   - group:      [0] = address space, [1] = var name, [2] = WGSL type key
	//   - view_index: no arguments
	Args []AnnotationArg

	// Line is the 1-based line number in the unprocessed WGSL source where this annotation
	// was found. Used for error reporting.
	Line int

	// Group is the @group index for group annotations. Nil otherwise.
	Group *int

	// Binding is the @binding index for group annotations. Nil otherwise.
	Binding *int
}

// AnnotationArg is a typed string constant used as an argument in annotations.
type AnnotationArg string

const (
	// AnnotationArgViewTransforms identifies the ViewTransforms struct holding one
	// matrix per view.
	// Source: engine/view/assets/view_transforms.wgsl
	AnnotationArgViewTransforms AnnotationArg = "view_transforms"
)

const (
	// annotationArgAddressUniform maps to var<uniform> in WGSL.
	annotationArgAddressUniform AnnotationArg = "uniform"

	// annotationArgAddressRead maps to var<storage, read> in WGSL.
	annotationArgAddressRead AnnotationArg = "storage_read"
)

// validStructTypes lists all AnnotationArg values accepted as struct type arguments
// in @mv:include and @mv:group annotations.
var validStructTypes = []AnnotationArg{
	AnnotationArgViewTransforms,
}

// validAddressSpaces lists all AnnotationArg values accepted as address space
// arguments in @mv:group annotations.
var validAddressSpaces = []AnnotationArg{
	annotationArgAddressUniform,
	annotationArgAddressRead,
}

// parseAnnotation attempts to parse a single line of WGSL source as an @mv: annotation.
// Returns nil with no error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
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
		return nil, fmt.Errorf("line %d: empty @mv annotation", lineNum)
	}

	switch args[0] {
	case string(annotationTypeInclude):
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @mv include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @mv include annotation", lineNum, args[1])
		}
		return &Annotation{
			Type: annotationTypeInclude,
			Args: []AnnotationArg{AnnotationArg(args[1])},
			Line: lineNum,
		}, nil
	case string(AnnotationTypeBindingGroup):
		if len(args) != 6 {
			return nil, fmt.Errorf("line %d: @mv group annotation requires exactly five arguments (group, binding, address space, var name, struct type)", lineNum)
		}
		groupInt, err := strconv.Atoi(args[1])
		if err != nil || groupInt < 0 {
			return nil, fmt.Errorf("line %d: invalid group number %q in @mv group annotation", lineNum, args[1])
		}
		bindingInt, err := strconv.Atoi(args[2])
		if err != nil || bindingInt < 0 {
			return nil, fmt.Errorf("line %d: invalid binding number %q in @mv group annotation", lineNum, args[2])
		}
		if !slices.Contains(validAddressSpaces, AnnotationArg(args[3])) {
			return nil, fmt.Errorf("line %d: unknown address space %q in @mv group annotation", lineNum, args[3])
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[5])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @mv group annotation", lineNum, args[5])
		}
		return &Annotation{
			Type:    AnnotationTypeBindingGroup,
			Args:    []AnnotationArg{AnnotationArg(args[3]), AnnotationArg(args[4]), AnnotationArg(args[5])},
			Line:    lineNum,
			Group:   &groupInt,
			Binding: &bindingInt,
		}, nil
	case string(AnnotationTypeViewIndex):
		if len(args) != 1 {
			return nil, fmt.Errorf("line %d: @mv view_index annotation takes no arguments", lineNum)
		}
		return &Annotation{
			Type: AnnotationTypeViewIndex,
			Line: lineNum,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @mv annotation type %q", lineNum, args[0])
	}
}
