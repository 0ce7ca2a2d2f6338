package pipeline

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
)

// ManagerBuilderOption is a functional option used to configure a Manager during construction.
type ManagerBuilderOption func(*manager)

// WithLogger sets the logger used to report compiled and failed pipelines.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - ManagerBuilderOption: a function that sets the logger
func WithLogger(logger log.Logger) ManagerBuilderOption {
	return func(m *manager) {
		m.logger = logger
	}
}
