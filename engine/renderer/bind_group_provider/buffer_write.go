package bind_group_provider

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Apply writes Data into the buffer bound at Binding.
//
// Parameters:
//   - resources: the resource manager holding the buffer
//
// Returns:
//   - error: an error if no buffer is bound at Binding or the write failed
func (w BufferWrite) Apply(resources resource.Manager) error {
	key := w.Provider.Buffer(w.Binding)
	if key == "" {
		return fmt.Errorf("%s: no buffer at binding %d", w.Provider.Label(), w.Binding)
	}
	return resources.WriteBuffer(key, w.Offset, w.Data)
}
