package shader

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// MultiviewSource is the annotated WGSL source of the multiview triangle: a vertex stage
// that generates the triangle from the vertex index and transforms it by the matrix of
// the current view, and a fragment stage that writes opaque red.
//
//go:embed assets/multiview.wgsl
var MultiviewSource string

// ShaderType identifies which stage of a render pipeline a shader feeds.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used in pair with a vertex shader.
	ShaderTypeFragment
)

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// shader is the implementation of the Shader interface.
type shader struct {
	mu *sync.Mutex

	key                        string
	rawSource                  string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
	declarations               []Annotation

	pp PreProcessor
}

// Shader defines the interface for a loaded and parsed multiview WGSL shader stage. The
// canonical source is processed in ViewModeBuiltin. Layered variants for backends without
// native multiview are produced on demand through Variant.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source in ViewModeBuiltin.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// ShaderType returns the pipeline stage this shader feeds.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// EntryPoint returns the entry point name for this shader's stage.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// BindGroupLayoutDescriptor retrieves the bind group layout descriptor for a group index.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// BindGroupFromVarName retrieves the binding index for a given group and variable name.
	//
	// Parameters:
	//   - group: the bind group index
	//   - varName: the variable name within the group
	//
	// Returns:
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable name was found
	BindGroupFromVarName(group int, varName string) (int, bool)

	// Module returns the shader module descriptor for the ViewModeBuiltin source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// Variant pre-processes the raw source for the given view mode.
	//
	// Parameters:
	//   - mode: the view mode to expand the view index site with
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: a pre-processing error
	Variant(mode ViewMode) (string, error)

	// VariantModule builds a shader module descriptor for the given view mode. The label
	// carries the key and the mode.
	//
	// Parameters:
	//   - mode: the view mode to expand the view index site with
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor for the variant
	//   - error: a pre-processing error
	VariantModule(mode ViewMode) (*wgpu.ShaderModuleDescriptor, error)

	// Declarations returns the group and view_index annotations found in the source.
	//
	// Returns:
	//   - []Annotation: the declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader creates a new Shader from annotated WGSL source. The source is pre-processed
// in ViewModeBuiltin and its entry point and bind group layouts are parsed.
// Panics if the source cannot be pre-processed, has no entry point for the shader type,
// or declares a binding whose layout cannot be resolved.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the pipeline stage the shader feeds
//   - source: the annotated WGSL source
//
// Returns:
//   - Shader: a new Shader instance
func NewShader(key string, shaderType ShaderType, source string) Shader {
	if source == "" {
		panic(fmt.Sprintf("shader: %s must have a non-empty source", key))
	}
	s := &shader{
		mu:         &sync.Mutex{},
		key:        key,
		rawSource:  source,
		shaderType: shaderType,
		pp:         NewPreProcessor(),
	}
	s.parseSource()
	return s
}

// NewShaderFromPath creates a new Shader by reading annotated WGSL source from a file.
// Panics if the file cannot be read, or under the same conditions as NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the pipeline stage the shader feeds
//   - path: the file path to read WGSL source from
//
// Returns:
//   - Shader: a new Shader instance
func NewShaderFromPath(key string, shaderType ShaderType, path string) Shader {
	data, err := os.ReadFile(path)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to read source file %q: %v", path, err))
	}
	return NewShader(key, shaderType, string(data))
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) BindGroupFromVarName(group int, varName string) (int, bool) {
	for binding, name := range s.bindingVarNames[group] {
		if name == varName {
			return binding, true
		}
	}
	return -1, false
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) Variant(mode ViewMode) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out, err := s.pp.Process(s.rawSource, mode)
	if err != nil {
		return "", fmt.Errorf("shader %s: %s variant: %w", s.key, mode, err)
	}
	return out, nil
}

func (s *shader) VariantModule(mode ViewMode) (*wgpu.ShaderModuleDescriptor, error) {
	src, err := s.Variant(mode)
	if err != nil {
		return nil, err
	}
	return &wgpu.ShaderModuleDescriptor{
		Label: fmt.Sprintf("%s/%s", s.key, mode),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: src,
		},
	}, nil
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}

// parseSource pre-processes the raw source in ViewModeBuiltin, builds the shader module
// descriptor, and extracts the entry point and bind group layouts for the shader's stage.
func (s *shader) parseSource() {
	var err error
	s.source, err = s.pp.Process(s.rawSource, ViewModeBuiltin)
	if err != nil {
		panic(fmt.Sprintf("shader: failed to pre-process %s: %v", s.key, err))
	}
	s.declarations = append([]Annotation(nil), s.pp.Declarations()...)
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}

	s.entryPoint = parseEntryPoint(s.source, s.shaderType)
	if s.entryPoint == "" {
		panic(fmt.Sprintf("shader: %s has no %s entry point", s.key, s.shaderType))
	}

	var visibility wgpu.ShaderStage
	switch s.shaderType {
	case ShaderTypeVertex:
		visibility = wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		visibility = wgpu.ShaderStageFragment
	default:
		visibility = wgpu.ShaderStageNone
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames, err = parseBindGroupLayouts(s.source, visibility)
	if err != nil {
		panic(fmt.Sprintf("shader: %s: %v", s.key, err))
	}
}
