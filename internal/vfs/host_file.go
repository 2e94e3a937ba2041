package vfs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"vfskit/internal/logging"
)

var (
	hostLogger = logging.GetLogger().WithPrefix("hostfile")
)

// HostFile is a StreamFile over an OS file handle.
type HostFile struct {
	file *os.File
	mode OpenMode
	path string // For logging purposes
}

// OpenHostFile opens path on the host with the semantics of mode.
func OpenHostFile(path string, mode OpenMode) (*HostFile, error) {
	flags, err := mode.HostFlags()
	if err != nil {
		hostLogger.Warn("Rejected open mode %q for %q", mode.String(), path)
		return nil, err
	}

	file, err := openHostFile(path, flags, mode)
	if err != nil {
		return nil, ErrUnknown
	}
	return file, nil
}

// openHostFile opens path and returns the unclassified OS error on failure,
// for callers that report more than ErrUnknown.
func openHostFile(path string, flags int, mode OpenMode) (*HostFile, error) {
	hostLogger.Debug("Opening host file %q with mode %q", path, mode.String())
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		hostLogger.Error("Failed to open host file %q: %v", path, err)
		return nil, err
	}
	return NewHostFile(file, mode), nil
}

// NewHostFile wraps an already-open handle. mode governs which of Read and
// Write are permitted and must match how file was opened.
func NewHostFile(file *os.File, mode OpenMode) *HostFile {
	return &HostFile{
		file: file,
		mode: mode,
		path: file.Name(),
	}
}

// String implements fmt.Stringer.
func (f *HostFile) String() string {
	return fmt.Sprintf("HostFile{path=%s, mode=%s}", f.path, f.mode)
}

// Mode returns the mode the file was opened with.
func (f *HostFile) Mode() OpenMode {
	return f.mode
}

// Read implements StreamFile.
func (f *HostFile) Read(p []byte) (int, error) {
	if !f.mode.CanRead() {
		return 0, ErrInvalidOpenMode
	}

	hostLogger.Trace("Reading %d bytes from %q", len(p), f.path)
	n, err := io.ReadFull(f.file, p)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		// Nothing at all was available at the cursor.
		return 0, ErrEndOfFile
	case errors.Is(err, io.ErrUnexpectedEOF):
		return n, nil
	default:
		hostLogger.Error("Failed to read from %q: %v", f.path, err)
		return n, ErrUnknown
	}
}

// Write implements StreamFile.
func (f *HostFile) Write(p []byte) (int, error) {
	if !f.mode.CanWrite() {
		return 0, ErrInvalidOpenMode
	}

	hostLogger.Trace("Writing %d bytes to %q", len(p), f.path)
	n, err := f.file.Write(p)
	if err != nil {
		hostLogger.Error("Failed to write to %q: %v", f.path, err)
		return n, ErrUnknown
	}
	return n, nil
}

// Seek implements StreamFile.
func (f *HostFile) Seek(offset uint64) error {
	pos, err := safeUint64ToInt64(offset)
	if err != nil {
		return err
	}
	if _, err := f.file.Seek(pos, io.SeekStart); err != nil {
		hostLogger.Error("Failed to seek %q to %d: %v", f.path, offset, err)
		return ErrUnknown
	}
	return nil
}

// Tell implements StreamFile.
func (f *HostFile) Tell() (uint64, error) {
	pos, err := f.file.Seek(0, io.SeekCurrent)
	if err != nil {
		hostLogger.Error("Failed to query position of %q: %v", f.path, err)
		return 0, ErrUnknown
	}
	return safeInt64ToUint64(pos), nil
}

// GetSize implements StreamFile.
func (f *HostFile) GetSize() (uint64, error) {
	info, err := f.file.Stat()
	if err != nil {
		hostLogger.Error("Failed to stat %q: %v", f.path, err)
		return 0, ErrUnknown
	}
	return safeInt64ToUint64(info.Size()), nil
}

// SetSize implements StreamFile.
func (f *HostFile) SetSize(size uint64) error {
	if !f.mode.CanWrite() {
		return ErrInvalidOpenMode
	}
	n, err := safeUint64ToInt64(size)
	if err != nil {
		return err
	}
	if err := f.file.Truncate(n); err != nil {
		hostLogger.Error("Failed to resize %q to %d: %v", f.path, size, err)
		return ErrUnknown
	}
	return nil
}

// Close implements StreamFile. No other method may be called afterwards.
func (f *HostFile) Close() error {
	hostLogger.Debug("Closing host file %q", f.path)
	if err := f.file.Close(); err != nil {
		hostLogger.Error("Failed to close %q: %v", f.path, err)
		return ErrUnknown
	}
	return nil
}

// Flush implements StreamFile.
func (f *HostFile) Flush() error {
	if !f.mode.CanWrite() {
		// Nothing can be pending on a read-only handle.
		return nil
	}
	if err := f.file.Sync(); err != nil {
		hostLogger.Error("Failed to flush %q: %v", f.path, err)
		return ErrUnknown
	}
	return nil
}
