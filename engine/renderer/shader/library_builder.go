package shader

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
)

// LibraryBuilderOption configures a Library during NewLibrary.
type LibraryBuilderOption func(*Library) error

// WithSource registers or overrides a program with inline source.
//
// Parameters:
//   - key: the program name
//   - source: the WGSL source
//
// Returns:
//   - LibraryBuilderOption: the option
func WithSource(key, source string) LibraryBuilderOption {
	return func(l *Library) error {
		l.sources[key] = source
		return nil
	}
}

// WithSourceFile registers or overrides a program with source read from disk.
//
// Parameters:
//   - key: the program name
//   - filePath: the path of the .wgsl file
//
// Returns:
//   - LibraryBuilderOption: the option
func WithSourceFile(key, filePath string) LibraryBuilderOption {
	return func(l *Library) error {
		return l.LoadFile(key, filePath)
	}
}

// WithLibraryLogger sets the logger used for revision messages.
func WithLibraryLogger(logger log.Logger) LibraryBuilderOption {
	return func(l *Library) error {
		l.logger = logger
		return nil
	}
}
