package common

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports a missing device feature or limit, or an invalid tunable, detected at startup.
type ConfigurationError struct {
	// Setting names the feature, limit, or option that is unsatisfied.
	Setting string
	// Reason describes what was expected.
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ResourceCreationError reports that a GPU object could not be created under Key. The key stays unbound.
type ResourceCreationError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ResourceCreationError) Error() string {
	msg := fmt.Sprintf("failed to create resource %q: %s", e.Key, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResourceCreationError) Unwrap() error { return e.Err }

// ShaderCompileError reports that the shader program Shader failed to compile or link.
// Diagnostics holds the compiler output, one message per entry.
type ShaderCompileError struct {
	Shader      string
	Diagnostics []string
	Err         error
}

func (e *ShaderCompileError) Error() string {
	if len(e.Diagnostics) == 0 {
		return fmt.Sprintf("shader %q failed to compile", e.Shader)
	}
	return fmt.Sprintf("shader %q failed to compile: %s", e.Shader, strings.Join(e.Diagnostics, "; "))
}

func (e *ShaderCompileError) Unwrap() error { return e.Err }

// PassExecutionError reports that a draw or dispatch step of Pass failed at submission time.
type PassExecutionError struct {
	Pass string
	Err  error
}

func (e *PassExecutionError) Error() string {
	return fmt.Sprintf("%s pass failed: %v", e.Pass, e.Err)
}

func (e *PassExecutionError) Unwrap() error { return e.Err }

// ValidationError reports malformed primitive input, such as an inverted bounding box.
type ValidationError struct {
	PrimitiveID uint64
	Reason      string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid primitive %d: %s", e.PrimitiveID, e.Reason)
}

// IsConfigurationError reports whether err wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsShaderCompileError reports whether err wraps a ShaderCompileError.
func IsShaderCompileError(err error) bool {
	var target *ShaderCompileError
	return errors.As(err, &target)
}

// IsResourceCreationError reports whether err wraps a ResourceCreationError.
func IsResourceCreationError(err error) bool {
	var target *ResourceCreationError
	return errors.As(err, &target)
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
