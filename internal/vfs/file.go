package vfs

import "fmt"

// File is an offset-addressed resource.
//
// Read and Write transfer at most len(p) bytes at offset. A range extending
// past the current size is clamped, so both may return 0 with a nil error.
// Files backed by a StreamFile through RandomAccessAdapter instead report
// ErrEndOfFile from a Read at or past the end.
type File interface {
	fmt.Stringer

	// Read reads up to len(p) bytes at offset and returns the count read.
	Read(offset uint64, p []byte) (int, error)

	// Write writes up to len(p) bytes at offset and returns the count written.
	Write(offset uint64, p []byte) (int, error)

	// GetSize returns the size of the file in bytes.
	GetSize() (uint64, error)

	// SetSize truncates the file if size is smaller than the current size,
	// or extends it with zeros if larger.
	SetSize(size uint64) error

	// Close releases the resource.
	Close() error

	// Flush commits pending writes.
	Flush() error
}

// StreamFile is a cursor-addressed resource.
//
// Read and Write advance the cursor by the amount transferred. Read returns
// ErrEndOfFile when the cursor is already at the end, so sequential readers
// can stop without tracking the size.
type StreamFile interface {
	fmt.Stringer

	// Read reads up to len(p) bytes at the cursor.
	Read(p []byte) (int, error)

	// Write writes up to len(p) bytes at the cursor.
	Write(p []byte) (int, error)

	// Seek moves the cursor to offset bytes from the beginning of the file.
	Seek(offset uint64) error

	// Tell returns the cursor position.
	Tell() (uint64, error)

	GetSize() (uint64, error)
	SetSize(size uint64) error
	Close() error
	Flush() error
}

// ReadOnlyFile stubs the mutating half of File. Embed it in read-only
// backings so they only implement Read, GetSize, Close and String.
type ReadOnlyFile struct{}

// Write always fails with ErrUnsupportedOperation.
func (ReadOnlyFile) Write(uint64, []byte) (int, error) {
	return 0, ErrUnsupportedOperation
}

// SetSize always fails with ErrUnsupportedOperation.
func (ReadOnlyFile) SetSize(uint64) error {
	return ErrUnsupportedOperation
}

// Flush has nothing to commit.
func (ReadOnlyFile) Flush() error {
	return nil
}

// ReadOnlyStreamFile is the StreamFile counterpart of ReadOnlyFile.
type ReadOnlyStreamFile struct{}

// Write always fails with ErrUnsupportedOperation.
func (ReadOnlyStreamFile) Write([]byte) (int, error) {
	return 0, ErrUnsupportedOperation
}

// SetSize always fails with ErrUnsupportedOperation.
func (ReadOnlyStreamFile) SetSize(uint64) error {
	return ErrUnsupportedOperation
}

// Flush has nothing to commit.
func (ReadOnlyStreamFile) Flush() error {
	return nil
}
