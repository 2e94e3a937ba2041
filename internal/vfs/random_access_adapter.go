package vfs

import (
	"fmt"
)

// RandomAccessAdapter exposes a StreamFile as a File by seeking before every
// Read and Write. It owns the StreamFile and closes it on Close.
//
// Errors from the StreamFile are returned unchanged. In particular a Read at
// or past the end of the stream reports ErrEndOfFile.
//
// Seek followed by the transfer is two calls against one cursor. Any other
// call on the same adapter in between corrupts the offset, so callers must
// serialise all use of an adapter.
type RandomAccessAdapter struct {
	base StreamFile
}

// NewRandomAccessAdapter takes ownership of base. The caller must not use
// base directly afterwards.
func NewRandomAccessAdapter(base StreamFile) *RandomAccessAdapter {
	return &RandomAccessAdapter{base: base}
}

// Base returns the owned StreamFile, for inspection only.
func (a *RandomAccessAdapter) Base() StreamFile {
	return a.base
}

// String implements fmt.Stringer.
func (a *RandomAccessAdapter) String() string {
	return fmt.Sprintf("RandomAccessAdapter{%s}", a.base)
}

// Read implements File.
func (a *RandomAccessAdapter) Read(offset uint64, p []byte) (int, error) {
	if err := a.base.Seek(offset); err != nil {
		return 0, err
	}
	return a.base.Read(p)
}

// Write implements File.
func (a *RandomAccessAdapter) Write(offset uint64, p []byte) (int, error) {
	if err := a.base.Seek(offset); err != nil {
		return 0, err
	}
	return a.base.Write(p)
}

// GetSize implements File.
func (a *RandomAccessAdapter) GetSize() (uint64, error) {
	return a.base.GetSize()
}

// SetSize implements File.
func (a *RandomAccessAdapter) SetSize(size uint64) error {
	return a.base.SetSize(size)
}

// Close implements File.
func (a *RandomAccessAdapter) Close() error {
	return a.base.Close()
}

// Flush implements File.
func (a *RandomAccessAdapter) Flush() error {
	return a.base.Flush()
}
