// pre_processor.go implements the multiview WGSL pre-processor. It scans shader
// source code for @mv: annotations, replaces them with generated WGSL declarations
// or injected struct source, and collects a declarations list that the renderer uses
// to wire the view uniform to its bind group.
//
// The same annotated source yields two variants. ViewModeBuiltin keeps the view index
// as a @builtin(view_index) parameter for backends with native multiview.
// ViewModeLayer(n) removes the parameter and pins view_index to the constant n, for
// backends that draw each view as its own pass.
package shader

import (
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
)

// ViewMode selects how the @mv:view_index site is expanded.
type ViewMode struct {
	layered bool
	layer   uint32
}

// ViewModeBuiltin expands the view index site to a @builtin(view_index) parameter.
var ViewModeBuiltin = ViewMode{}

// ViewModeLayer returns a ViewMode that drops the view index parameter and declares
// a module scope constant view_index equal to layer.
//
// Parameters:
//   - layer: the view index the variant renders
//
// Returns:
//   - ViewMode: the layered view mode
func ViewModeLayer(layer uint32) ViewMode {
	return ViewMode{layered: true, layer: layer}
}

// Layer reports the fixed view index of a layered mode.
//
// Returns:
//   - uint32: the fixed view index, 0 for ViewModeBuiltin
//   - bool: true if the mode is layered
func (m ViewMode) Layer() (uint32, bool) {
	return m.layer, m.layered
}

func (m ViewMode) String() string {
	if m.layered {
		return fmt.Sprintf("layer(%d)", m.layer)
	}
	return "builtin"
}

// registryEntry pairs a WGSL struct source string (embedded from a .wgsl asset file)
// with the resolved WGSL type name used in generated @group/@binding declarations.
type registryEntry struct {
	Source string
	Type   string
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// structRegistry maps struct type argument keys to their embedded WGSL source and type name.
	structRegistry map[AnnotationArg]registryEntry

	// addressSpaceRegistry maps address space argument keys to WGSL var<> syntax strings.
	addressSpaceRegistry map[AnnotationArg]string

	// declarations accumulates group and view_index annotations during a Process call.
	declarations []Annotation
}

// PreProcessor processes raw WGSL shader source code containing @mv: annotations,
// replacing them with generated declarations or injected struct sources while
// collecting a declarations list for downstream resource wiring.
type PreProcessor interface {
	// Process pre-processes WGSL source for the given view mode. @mv:include annotations
	// are replaced with embedded struct source text. @mv:group annotations are replaced
	// with generated @group/@binding declarations. The @mv:view_index annotation is
	// expanded per the mode. At most one view index site is allowed.
	//
	// Parameters:
	//   - source: the raw WGSL shader source code containing annotations to be processed
	//   - mode: how the view index site is expanded
	//
	// Returns:
	//   - string: the processed WGSL shader source code
	//   - error: an error if any annotation is malformed or references an unknown type
	Process(source string, mode ViewMode) (string, error)

	// Declarations returns the group and view_index annotations collected during the
	// most recent call to Process, in source order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with all registered struct types and
// address space mappings pre-populated.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgViewTransforms: {Source: view.UniformDataSource, Type: "ViewTransforms"},
		},
		addressSpaceRegistry: map[AnnotationArg]string{
			annotationArgAddressUniform: "var<uniform>",
			annotationArgAddressRead:    "var<storage, read>",
		},
	}
}

func (p *preProcessor) Process(source string, mode ViewMode) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines)+1)
	viewIndexLine := 0

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @mv:include argument %q", i+1, a.Args[0])
			}
			out = append(out, strings.TrimRight(entry.Source, "\n"))
		case AnnotationTypeBindingGroup:
			addrSpace := p.addressSpaceRegistry[a.Args[0]]
			entry := p.structRegistry[a.Args[2]]
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) %s %s: %s;", *a.Group, *a.Binding, addrSpace, a.Args[1], entry.Type))
			p.declarations = append(p.declarations, *a)
		case AnnotationTypeViewIndex:
			if viewIndexLine != 0 {
				return "", fmt.Errorf("line %d: duplicate @mv:view_index, first declared on line %d", i+1, viewIndexLine)
			}
			viewIndexLine = i + 1
			if !mode.layered {
				indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
				out = append(out, indent+"@builtin(view_index) view_index: u32,")
			}
			p.declarations = append(p.declarations, *a)
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", i+1, a.Type)
		}
	}

	if mode.layered && viewIndexLine != 0 {
		out = append([]string{fmt.Sprintf("const view_index: u32 = %du;", mode.layer), ""}, out...)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
