package renderer

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/shader"
)

// ContextBuilderOption is a functional option applied to a Context during construction via NewContext.
type ContextBuilderOption func(*Context)

// WithLibrary sets the shader library instead of loading the built-in programs.
//
// Parameters:
//   - lib: the shader library
//
// Returns:
//   - ContextBuilderOption: a function that applies the library option to a context
func WithLibrary(lib *shader.Library) ContextBuilderOption {
	return func(c *Context) {
		c.Library = lib
	}
}

// WithTile sets the compute tile edge used for the capability check.
//
// Parameters:
//   - tile: the workgroup edge length
//
// Returns:
//   - ContextBuilderOption: a function that applies the tile option to a context
func WithTile(tile uint32) ContextBuilderOption {
	return func(c *Context) {
		c.tile = tile
	}
}

// WithValidator sets the shader validator. A nil validator leaves compilation to the device.
func WithValidator(v shader.Validator) ContextBuilderOption {
	return func(c *Context) {
		c.validator = v
	}
}

// WithLogger overrides the logger shared by the context and its managers.
func WithLogger(logger log.Logger) ContextBuilderOption {
	return func(c *Context) {
		c.logger = logger
	}
}
