package billyfs

import (
	"errors"
	"fmt"
	"io"

	"vfskit/internal/vfs"

	"github.com/go-git/go-billy/v5"
)

// StreamFile is a vfs.StreamFile over a billy.File.
type StreamFile struct {
	file billy.File
	name string
	mode vfs.OpenMode
}

// NewStreamFile wraps an open billy file. name is used for logging only.
func NewStreamFile(name string, file billy.File, mode vfs.OpenMode) *StreamFile {
	return &StreamFile{
		file: file,
		name: name,
		mode: mode,
	}
}

// String implements fmt.Stringer.
func (f *StreamFile) String() string {
	return fmt.Sprintf("billyfs.StreamFile{name=%s, mode=%s}", f.name, f.mode)
}

// Read implements vfs.StreamFile.
func (f *StreamFile) Read(p []byte) (int, error) {
	if !f.mode.CanRead() {
		return 0, vfs.ErrInvalidOpenMode
	}

	n, err := io.ReadFull(f.file, p)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		return 0, vfs.ErrEndOfFile
	case errors.Is(err, io.ErrUnexpectedEOF):
		return n, nil
	default:
		logger.Error("Failed to read from %s: %v", f.name, err)
		return n, vfs.ErrUnknown
	}
}

// Write implements vfs.StreamFile.
func (f *StreamFile) Write(p []byte) (int, error) {
	if !f.mode.CanWrite() {
		return 0, vfs.ErrInvalidOpenMode
	}

	// memfs ignores O_APPEND once the handle has been seeked.
	if f.mode.Has(vfs.OpenAppend) {
		if _, err := f.file.Seek(0, io.SeekEnd); err != nil {
			logger.Error("Failed to seek %s to end: %v", f.name, err)
			return 0, vfs.ErrUnknown
		}
	}

	n, err := f.file.Write(p)
	if err != nil {
		logger.Error("Failed to write to %s: %v", f.name, err)
		return n, vfs.ErrUnknown
	}
	return n, nil
}

// Seek implements vfs.StreamFile.
func (f *StreamFile) Seek(offset uint64) error {
	if offset > maxOffset {
		return vfs.ErrUnknown
	}
	if _, err := f.file.Seek(int64(offset), io.SeekStart); err != nil {
		logger.Error("Failed to seek %s to %d: %v", f.name, offset, err)
		return vfs.ErrUnknown
	}
	return nil
}

// Tell implements vfs.StreamFile.
func (f *StreamFile) Tell() (uint64, error) {
	pos, err := f.file.Seek(0, io.SeekCurrent)
	if err != nil || pos < 0 {
		logger.Error("Failed to query position of %s: %v", f.name, err)
		return 0, vfs.ErrUnknown
	}
	return uint64(pos), nil
}

// GetSize implements vfs.StreamFile. The size is taken from the handle, so
// it follows the file across renames; the position is left unchanged.
func (f *StreamFile) GetSize() (uint64, error) {
	pos, err := f.file.Seek(0, io.SeekCurrent)
	if err != nil {
		logger.Error("Failed to query position of %s: %v", f.name, err)
		return 0, vfs.ErrUnknown
	}
	end, err := f.file.Seek(0, io.SeekEnd)
	if err != nil || end < 0 {
		logger.Error("Failed to seek %s to end: %v", f.name, err)
		return 0, vfs.ErrUnknown
	}
	if _, err := f.file.Seek(pos, io.SeekStart); err != nil {
		logger.Error("Failed to restore position of %s: %v", f.name, err)
		return 0, vfs.ErrUnknown
	}
	return uint64(end), nil
}

// SetSize implements vfs.StreamFile.
func (f *StreamFile) SetSize(size uint64) error {
	if !f.mode.CanWrite() {
		return vfs.ErrInvalidOpenMode
	}
	if size > maxOffset {
		return vfs.ErrUnknown
	}
	if err := f.file.Truncate(int64(size)); err != nil {
		logger.Error("Failed to resize %s to %d: %v", f.name, size, err)
		return vfs.ErrUnknown
	}
	return nil
}

// Close implements vfs.StreamFile.
func (f *StreamFile) Close() error {
	if err := f.file.Close(); err != nil {
		logger.Error("Failed to close %s: %v", f.name, err)
		return vfs.ErrUnknown
	}
	return nil
}

// Flush implements vfs.StreamFile. Files without a Sync method have nothing
// to commit.
func (f *StreamFile) Flush() error {
	if !f.mode.CanWrite() {
		return nil
	}
	if syncer, ok := f.file.(interface{ Sync() error }); ok {
		if err := syncer.Sync(); err != nil {
			logger.Error("Failed to flush %s: %v", f.name, err)
			return vfs.ErrUnknown
		}
	}
	return nil
}

var _ vfs.StreamFile = (*StreamFile)(nil)
