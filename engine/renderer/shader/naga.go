package shader

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
)

// ErrBindingLayoutMismatch is returned when a shader does not match the binding and
// interface layout the multiview pipeline expects.
var ErrBindingLayoutMismatch = errors.New("shader: binding layout mismatch")

// builtinNames maps the naga builtins the multiview pipeline cares about to their WGSL names.
var builtinNames = map[ir.BuiltinValue]string{
	ir.BuiltinPosition:      "position",
	ir.BuiltinVertexIndex:   "vertex_index",
	ir.BuiltinInstanceIndex: "instance_index",
	ir.BuiltinFrontFacing:   "front_facing",
	ir.BuiltinFragDepth:     "frag_depth",
	ir.BuiltinSampleIndex:   "sample_index",
	ir.BuiltinSampleMask:    "sample_mask",
	ir.BuiltinViewIndex:     "view_index",
}

// EntryPointReflection describes one entry point of a validated module.
type EntryPointReflection struct {
	Name  string
	Stage ShaderType

	// BuiltinInputs and BuiltinOutputs list builtin names in declaration order.
	BuiltinInputs  []string
	BuiltinOutputs []string

	// Locations lists the @location indices of the entry point's outputs.
	Locations []uint32

	// Globals lists the names of module scope variables the entry point references directly.
	Globals []string
}

// BindingReflection describes one resource binding of a validated module.
type BindingReflection struct {
	Name    string
	Group   uint32
	Binding uint32
	Uniform bool
	Size    uint32
}

// Reflection is the interface and resource layout naga reports for a WGSL module.
type Reflection struct {
	EntryPoints []EntryPointReflection
	Bindings    []BindingReflection

	module *ir.Module
}

// EntryPoint returns the first entry point of the given stage.
//
// Parameters:
//   - stage: ShaderTypeVertex or ShaderTypeFragment
//
// Returns:
//   - EntryPointReflection: the entry point
//   - bool: false if the module has no entry point for the stage
func (r *Reflection) EntryPoint(stage ShaderType) (EntryPointReflection, bool) {
	for _, ep := range r.EntryPoints {
		if ep.Stage == stage {
			return ep, true
		}
	}
	return EntryPointReflection{}, false
}

// Binding returns the binding declared at group and binding.
//
// Parameters:
//   - group: the bind group index
//   - binding: the binding index within the group
//
// Returns:
//   - BindingReflection: the binding
//   - bool: false if nothing is bound there
func (r *Reflection) Binding(group, binding uint32) (BindingReflection, bool) {
	for _, b := range r.Bindings {
		if b.Group == group && b.Binding == binding {
			return b, true
		}
	}
	return BindingReflection{}, false
}

// Validate parses, lowers, and validates WGSL source with naga and reflects its entry
// points and resource bindings.
//
// Parameters:
//   - source: pre-processed WGSL source
//
// Returns:
//   - *Reflection: the reflected module
//   - error: the first parse, lowering, or validation error
func Validate(source string) (*Reflection, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("shader: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("shader: lowering: %w", err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("shader: validation: %w", err)
	}
	if len(verrs) > 0 {
		return nil, fmt.Errorf("shader: validation failed: %w", &verrs[0])
	}
	return reflect(module), nil
}

func reflect(module *ir.Module) *Reflection {
	r := &Reflection{module: module}
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		r.Bindings = append(r.Bindings, BindingReflection{
			Name:    gv.Name,
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Uniform: gv.Space == ir.SpaceUniform,
			Size:    ir.TypeSize(module, gv.Type),
		})
	}

	for _, ep := range module.EntryPoints {
		stage, ok := stageFromIR(ep.Stage)
		if !ok {
			continue
		}
		epr := EntryPointReflection{Name: ep.Name, Stage: stage}
		for _, arg := range ep.Function.Arguments {
			collectBindings(module, arg.Binding, arg.Type, &epr.BuiltinInputs, nil)
		}
		if res := ep.Function.Result; res != nil {
			collectBindings(module, res.Binding, res.Type, &epr.BuiltinOutputs, &epr.Locations)
		}
		for _, expr := range ep.Function.Expressions {
			gvExpr, ok := expr.Kind.(ir.ExprGlobalVariable)
			if !ok || int(gvExpr.Variable) >= len(module.GlobalVariables) {
				continue
			}
			name := module.GlobalVariables[gvExpr.Variable].Name
			if !slices.Contains(epr.Globals, name) {
				epr.Globals = append(epr.Globals, name)
			}
		}
		r.EntryPoints = append(r.EntryPoints, epr)
	}
	return r
}

// collectBindings appends the builtin names and locations of a binding, descending into
// struct members when the value itself carries no binding.
func collectBindings(module *ir.Module, binding *ir.Binding, typ ir.TypeHandle, builtins *[]string, locations *[]uint32) {
	if binding == nil {
		if int(typ) >= len(module.Types) {
			return
		}
		if st, ok := module.Types[typ].Inner.(ir.StructType); ok {
			for _, m := range st.Members {
				collectBindings(module, m.Binding, m.Type, builtins, locations)
			}
		}
		return
	}
	switch b := (*binding).(type) {
	case ir.BuiltinBinding:
		name, ok := builtinNames[b.Builtin]
		if !ok {
			name = fmt.Sprintf("builtin(%d)", b.Builtin)
		}
		*builtins = append(*builtins, name)
	case ir.LocationBinding:
		if locations != nil {
			*locations = append(*locations, b.Location)
		}
	}
}

func stageFromIR(stage ir.ShaderStage) (ShaderType, bool) {
	switch stage {
	case ir.StageVertex:
		return ShaderTypeVertex, true
	case ir.StageFragment:
		return ShaderTypeFragment, true
	default:
		return 0, false
	}
}

// CheckBindingContract verifies a reflected module against the multiview pipeline layout:
// exactly one uniform binding at group 0 binding 0 holding view.ViewCount column-major
// 4x4 matrices, referenced by the vertex entry point; a vertex entry point taking
// vertex_index and producing position; and a fragment entry point writing location 0.
// For ViewModeBuiltin the vertex entry point must take view_index, for a layered mode
// it must not.
//
// Parameters:
//   - r: the reflection returned by Validate
//   - mode: the view mode the source was processed with
//
// Returns:
//   - error: nil, or an error wrapping ErrBindingLayoutMismatch
func CheckBindingContract(r *Reflection, mode ViewMode) error {
	if len(r.Bindings) != 1 {
		return fmt.Errorf("%w: want exactly one binding, found %d", ErrBindingLayoutMismatch, len(r.Bindings))
	}
	u, ok := r.Binding(0, 0)
	if !ok {
		b := r.Bindings[0]
		return fmt.Errorf("%w: %s is bound at group %d binding %d, want group 0 binding 0", ErrBindingLayoutMismatch, b.Name, b.Group, b.Binding)
	}
	if !u.Uniform {
		return fmt.Errorf("%w: %s is not in the uniform address space", ErrBindingLayoutMismatch, u.Name)
	}
	var uniform view.UniformData
	if int(u.Size) != uniform.Size() {
		return fmt.Errorf("%w: %s is %d bytes, want %d", ErrBindingLayoutMismatch, u.Name, u.Size, uniform.Size())
	}

	vs, ok := r.EntryPoint(ShaderTypeVertex)
	if !ok {
		return fmt.Errorf("%w: no vertex entry point", ErrBindingLayoutMismatch)
	}
	if !slices.Contains(vs.Globals, u.Name) {
		return fmt.Errorf("%w: vertex entry point %s does not read %s", ErrBindingLayoutMismatch, vs.Name, u.Name)
	}
	if !slices.Contains(vs.BuiltinInputs, "vertex_index") {
		return fmt.Errorf("%w: vertex entry point %s does not take vertex_index", ErrBindingLayoutMismatch, vs.Name)
	}
	_, layered := mode.Layer()
	if hasView := slices.Contains(vs.BuiltinInputs, "view_index"); hasView == layered {
		return fmt.Errorf("%w: vertex entry point %s view_index input is %t in %s mode", ErrBindingLayoutMismatch, vs.Name, hasView, mode)
	}
	if !slices.Contains(vs.BuiltinOutputs, "position") {
		return fmt.Errorf("%w: vertex entry point %s does not write position", ErrBindingLayoutMismatch, vs.Name)
	}

	fs, ok := r.EntryPoint(ShaderTypeFragment)
	if !ok {
		return fmt.Errorf("%w: no fragment entry point", ErrBindingLayoutMismatch)
	}
	if !slices.Contains(fs.Locations, 0) {
		return fmt.Errorf("%w: fragment entry point %s does not write location 0", ErrBindingLayoutMismatch, fs.Name)
	}
	return nil
}

// CompileSPIRV validates WGSL source and generates a SPIR-V 1.3 binary. Modules reading
// view_index declare the MultiView capability.
//
// Parameters:
//   - source: pre-processed WGSL source
//
// Returns:
//   - []byte: the SPIR-V binary
//   - error: a validation or generation error
func CompileSPIRV(source string) ([]byte, error) {
	r, err := Validate(source)
	if err != nil {
		return nil, err
	}
	out, err := naga.GenerateSPIRV(r.module, spirv.Options{Version: spirv.Version1_3})
	if err != nil {
		return nil, fmt.Errorf("shader: %w", err)
	}
	return out, nil
}

// CompileGLSL validates WGSL source and translates one entry point to GLSL 4.50. A vertex
// entry point reading view_index requires GL_EXT_multiview.
//
// Parameters:
//   - source: pre-processed WGSL source
//   - entryPoint: the entry point to translate
//
// Returns:
//   - string: the GLSL source
//   - []string: the GLSL extensions the output requires
//   - error: a validation or translation error
func CompileGLSL(source, entryPoint string) (string, []string, error) {
	r, err := Validate(source)
	if err != nil {
		return "", nil, err
	}
	opts := glsl.DefaultOptions()
	opts.LangVersion = glsl.Version450
	opts.EntryPoint = entryPoint
	out, info, err := glsl.Compile(r.module, opts)
	if err != nil {
		return "", nil, fmt.Errorf("shader: glsl %s: %w", entryPoint, err)
	}
	return out, glslExtensions(out, info.UsedExtensions), nil
}

var glslExtensionRegex = regexp.MustCompile(`(?m)^\s*#extension\s+(\w+)\s*:`)

// glslExtensions lists the extensions declared by #extension lines in generated GLSL,
// followed by any reported extensions not already declared.
func glslExtensions(out string, reported []string) []string {
	exts := []string{}
	for _, m := range glslExtensionRegex.FindAllStringSubmatch(out, -1) {
		if !slices.Contains(exts, m[1]) {
			exts = append(exts, m[1])
		}
	}
	for _, e := range reported {
		if !slices.Contains(exts, e) {
			exts = append(exts, e)
		}
	}
	return exts
}
