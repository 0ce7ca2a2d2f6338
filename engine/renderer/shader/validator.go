package shader

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/gogpu/naga"
)

// Validator checks WGSL source before a device module is created from it.
type Validator interface {
	// Validate compiles the source and reports any diagnostics.
	//
	// Parameters:
	//   - key: the program name, carried into the returned error
	//   - source: the WGSL source
	//
	// Returns:
	//   - error: a *common.ShaderCompileError if the source does not compile
	Validate(key, source string) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(key, source string) error

func (f ValidatorFunc) Validate(key, source string) error {
	return f(key, source)
}

// NagaValidator validates WGSL with the naga front end.
type NagaValidator struct{}

var _ Validator = NagaValidator{}

func (NagaValidator) Validate(key, source string) error {
	if _, err := naga.Compile(source); err != nil {
		return &common.ShaderCompileError{Shader: key, Diagnostics: Diagnostics(err), Err: err}
	}
	return nil
}

// Diagnostics splits a compiler error into one trimmed message per non-empty line.
//
// Parameters:
//   - err: the compiler error
//
// Returns:
//   - []string: the diagnostic messages, or nil for a nil error
func Diagnostics(err error) []string {
	if err == nil {
		return nil
	}
	var out []string
	for _, line := range strings.Split(err.Error(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
