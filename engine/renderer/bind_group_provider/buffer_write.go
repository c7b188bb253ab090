package bind_group_provider

import "errors"

var errNilProvider = errors.New("buffer write has no provider")

// BufferWrite describes a single buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Stage applies the write to the provider's host copy.
//
// Returns:
//   - error: an error if the provider is nil or the write does not fit the binding
func (w BufferWrite) Stage() error {
	if w.Provider == nil {
		return errNilProvider
	}
	return w.Provider.Write(w.Binding, w.Offset, w.Data)
}

// Check reports whether Stage would succeed without applying the write.
//
// Returns:
//   - error: an error if the provider is nil or the write does not fit the binding
func (w BufferWrite) Check() error {
	if w.Provider == nil {
		return errNilProvider
	}
	return w.Provider.CheckWrite(w.Binding, w.Offset, len(w.Data))
}
