package vfs

import "fmt"

// EntryFlags describes a directory entry.
type EntryFlags uint32

// Directory entry flags.
const (
	EntryDirectory EntryFlags = 1 << 0
	EntryHidden    EntryFlags = 1 << 1
	EntryArchive   EntryFlags = 1 << 2
	EntryReadOnly  EntryFlags = 1 << 3
)

// DirectoryEntry is one element produced by a DirectoryIterator.
type DirectoryEntry[P any] struct {
	// Name is the path fragment of the entry within its directory.
	Name P
	// Size is the file size; zero for directories.
	Size  uint64
	Flags EntryFlags
}

// IsDir reports whether the entry is a directory.
func (e DirectoryEntry[P]) IsDir() bool {
	return e.Flags&EntryDirectory != 0
}

// DirectoryIterator yields the entries of one directory, forward only.
type DirectoryIterator[P any] interface {
	fmt.Stringer

	// GetEntry returns the next entry, or false once the directory is exhausted.
	GetEntry() (DirectoryEntry[P], bool)
}

// Filesystem exposes tree operations over paths of type P.
type Filesystem[P any] interface {
	fmt.Stringer

	// OpenFile opens the file at path using mode.
	OpenFile(path P, mode OpenMode) (File, error)

	// DeleteFile deletes the file at path.
	DeleteFile(path P) error

	// RenameFile moves the file at src to dst.
	RenameFile(src, dst P) error

	// CreateFile creates a file of size bytes, filled with zeros.
	CreateFile(path P, size uint64) error

	// OpenDirectory returns an iterator over the entries of the directory at path.
	OpenDirectory(path P) (DirectoryIterator[P], error)

	// CreateDirectory creates the directory at path.
	CreateDirectory(path P) error

	// RenameDirectory moves the directory at src to dst.
	RenameDirectory(src, dst P) error

	// DeleteDirectory deletes the empty directory at path.
	DeleteDirectory(path P) error

	// DeleteDirectoryRecursively deletes the directory at path and anything under it.
	DeleteDirectoryRecursively(path P) error

	// GetFreeBytes returns the number of bytes available for new data.
	GetFreeBytes() uint64
}

// ReadOnlyFilesystem stubs every mutating Filesystem operation with
// ErrUnsupportedOperation. Embed it in read-only filesystems.
type ReadOnlyFilesystem[P any] struct{}

// DeleteFile implements Filesystem.
func (ReadOnlyFilesystem[P]) DeleteFile(P) error { return ErrUnsupportedOperation }

// RenameFile implements Filesystem.
func (ReadOnlyFilesystem[P]) RenameFile(P, P) error { return ErrUnsupportedOperation }

// CreateFile implements Filesystem.
func (ReadOnlyFilesystem[P]) CreateFile(P, uint64) error { return ErrUnsupportedOperation }

// CreateDirectory implements Filesystem.
func (ReadOnlyFilesystem[P]) CreateDirectory(P) error { return ErrUnsupportedOperation }

// RenameDirectory implements Filesystem.
func (ReadOnlyFilesystem[P]) RenameDirectory(P, P) error { return ErrUnsupportedOperation }

// DeleteDirectory implements Filesystem.
func (ReadOnlyFilesystem[P]) DeleteDirectory(P) error { return ErrUnsupportedOperation }

// DeleteDirectoryRecursively implements Filesystem.
func (ReadOnlyFilesystem[P]) DeleteDirectoryRecursively(P) error { return ErrUnsupportedOperation }

// SliceIterator is a DirectoryIterator over a snapshot of entries.
type SliceIterator[P any] struct {
	name    string
	entries []DirectoryEntry[P]
	next    int
}

// NewSliceIterator creates an iterator yielding entries in order. name is
// used for debugging output only.
func NewSliceIterator[P any](name string, entries []DirectoryEntry[P]) *SliceIterator[P] {
	return &SliceIterator[P]{name: name, entries: entries}
}

// GetEntry implements DirectoryIterator.
func (it *SliceIterator[P]) GetEntry() (DirectoryEntry[P], bool) {
	if it.next >= len(it.entries) {
		var zero DirectoryEntry[P]
		return zero, false
	}
	entry := it.entries[it.next]
	it.next++
	return entry, true
}

// String implements fmt.Stringer.
func (it *SliceIterator[P]) String() string {
	return fmt.Sprintf("SliceIterator{dir=%s, entries=%d, next=%d}", it.name, len(it.entries), it.next)
}
