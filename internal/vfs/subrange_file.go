package vfs

import (
	"fmt"
	"math"
)

// UnboundedSize makes a SubrangeFile extend to the end of its base.
const UnboundedSize uint64 = math.MaxUint64

// SubrangeFile exposes the window [offset, offset+size) of a shared base File
// as a zero-based File of fixed extent.
type SubrangeFile struct {
	base       *Shared
	fileOffset uint64
	fileSize   uint64
}

// NewSubrangeFile creates a window over base. The window owns the base
// reference and releases it on Close; pass base.Clone() to keep your own.
func NewSubrangeFile(base *Shared, offset, size uint64) *SubrangeFile {
	return &SubrangeFile{
		base:       base,
		fileOffset: offset,
		fileSize:   size,
	}
}

// String implements fmt.Stringer.
func (f *SubrangeFile) String() string {
	size := fmt.Sprint(f.fileSize)
	if f.fileSize == UnboundedSize {
		size = "unbounded"
	}
	return fmt.Sprintf("SubrangeFile{offset=%d, size=%s, base_file=%s}", f.fileOffset, size, f.base.File())
}

// clamp limits p to the part of the window starting at offset.
func (f *SubrangeFile) clamp(offset uint64, p []byte) []byte {
	if remaining := f.fileSize - offset; uint64(len(p)) > remaining {
		return p[:remaining]
	}
	return p
}

// baseOffset translates a window offset, saturating instead of wrapping.
func (f *SubrangeFile) baseOffset(offset uint64) uint64 {
	if offset > math.MaxUint64-f.fileOffset {
		return math.MaxUint64
	}
	return offset + f.fileOffset
}

// Read implements File. The base may clamp further against its own size.
func (f *SubrangeFile) Read(offset uint64, p []byte) (int, error) {
	if offset >= f.fileSize {
		// Attempt to read past EOF
		return 0, nil
	}
	return f.base.File().Read(f.baseOffset(offset), f.clamp(offset, p))
}

// Write implements File.
func (f *SubrangeFile) Write(offset uint64, p []byte) (int, error) {
	if offset >= f.fileSize {
		// Attempt to write past EOF
		return 0, nil
	}
	return f.base.File().Write(f.baseOffset(offset), f.clamp(offset, p))
}

// GetSize implements File. The window is truncated to what exists in the base.
func (f *SubrangeFile) GetSize() (uint64, error) {
	baseSize, err := f.base.File().GetSize()
	if err != nil {
		return 0, err
	}
	if f.fileOffset >= baseSize {
		return 0, nil
	}
	return min(f.fileSize, baseSize-f.fileOffset), nil
}

// SetSize implements File. Windows have a fixed extent.
func (f *SubrangeFile) SetSize(uint64) error {
	return ErrUnsupportedOperation
}

// Close implements File by releasing this window's base reference.
func (f *SubrangeFile) Close() error {
	return f.base.Close()
}

// Flush implements File.
func (f *SubrangeFile) Flush() error {
	return f.base.File().Flush()
}
