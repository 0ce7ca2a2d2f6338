package resource

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/shader"
)

// ManagerBuilderOption is a functional option used to configure a Manager during construction.
type ManagerBuilderOption func(*manager)

// WithValidator sets the validator run on shader source before a module is created.
// A nil validator skips validation and relies on the device compiler alone.
//
// Parameters:
//   - v: the validator
//
// Returns:
//   - ManagerBuilderOption: the option
func WithValidator(v shader.Validator) ManagerBuilderOption {
	return func(m *manager) {
		m.validator = v
	}
}

// WithLogger sets the logger used for creation and destruction messages.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ManagerBuilderOption: the option
func WithLogger(logger log.Logger) ManagerBuilderOption {
	return func(m *manager) {
		m.logger = logger
	}
}
