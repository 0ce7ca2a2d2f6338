package shader

// Stage identifies a programmable pipeline stage.
type Stage int

const (
	// StageCompute is the @compute stage.
	StageCompute Stage = iota

	// StageVertex is the @vertex stage.
	StageVertex

	// StageFragment is the @fragment stage.
	StageFragment
)

func (s Stage) String() string {
	switch s {
	case StageCompute:
		return "compute"
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return "unknown"
	}
}

// shader is the implementation of the Shader interface.
type shader struct {
	key           string
	source        string
	entryPoints   map[Stage]string
	workgroupSize [3]uint32
}

// Shader is a named WGSL program. The renderer treats the source as opaque text; only the entry
// point names and the compute workgroup size are read from it.
type Shader interface {
	// Key retrieves the logical name of the program, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's key
	Key() string

	// Source retrieves the WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// EntryPoint returns the first entry point declared for the given stage.
	//
	// Parameters:
	//   - stage: the pipeline stage to look up
	//
	// Returns:
	//   - string: the entry point name, or an empty string if the stage is not declared
	EntryPoint(stage Stage) string

	// WorkgroupSize returns the @workgroup_size of the compute entry point. Omitted dimensions are 1.
	// Returns [0, 0, 0] when the program has no compute entry point.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32
}

var _ Shader = &shader{}

// New creates a Shader from WGSL source.
//
// Parameters:
//   - key: the logical name of the program
//   - source: the WGSL source text
//
// Returns:
//   - Shader: the parsed shader
func New(key, source string) Shader {
	s := &shader{
		key:         key,
		source:      source,
		entryPoints: parseEntryPoints(source),
	}
	if _, ok := s.entryPoints[StageCompute]; ok {
		s.workgroupSize = parseWorkgroupSize(source)
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint(stage Stage) string {
	return s.entryPoints[stage]
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workgroupSize
}
