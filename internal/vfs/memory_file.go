package vfs

import "fmt"

// MemoryFile is a File backed by an owned byte slice.
type MemoryFile struct {
	data []byte
}

// NewMemoryFile creates a MemoryFile that takes ownership of data.
func NewMemoryFile(data []byte) *MemoryFile {
	return &MemoryFile{data: data}
}

// Data returns the backing buffer. It is invalidated by SetSize.
func (f *MemoryFile) Data() []byte {
	return f.data
}

// String implements fmt.Stringer.
func (f *MemoryFile) String() string {
	return fmt.Sprintf("MemoryFile{size=%d}", len(f.data))
}

// Read implements File.
func (f *MemoryFile) Read(offset uint64, p []byte) (int, error) {
	if offset >= uint64(len(f.data)) {
		// Attempt to read past EOF
		return 0, nil
	}
	return copy(p, f.data[offset:]), nil
}

// Write implements File. Writes never grow the buffer.
func (f *MemoryFile) Write(offset uint64, p []byte) (int, error) {
	if offset >= uint64(len(f.data)) {
		// Attempt to write past EOF
		return 0, nil
	}
	return copy(f.data[offset:], p), nil
}

// GetSize implements File.
func (f *MemoryFile) GetSize() (uint64, error) {
	return uint64(len(f.data)), nil
}

// SetSize implements File.
func (f *MemoryFile) SetSize(size uint64) error {
	current := uint64(len(f.data))
	switch {
	case size < current:
		f.data = f.data[:size]
	case size > current:
		if size <= uint64(cap(f.data)) {
			// Reslicing exposes stale bytes from an earlier truncate.
			tail := f.data[current:size]
			clear(tail)
			f.data = f.data[:size]
			return nil
		}
		grown := make([]byte, size)
		copy(grown, f.data)
		f.data = grown
	}
	return nil
}

// Close implements File.
func (f *MemoryFile) Close() error {
	return nil
}

// Flush implements File.
func (f *MemoryFile) Flush() error {
	return nil
}
