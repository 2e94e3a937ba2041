// Package billyfs serves vfs filesystems from go-billy trees, in memory
// (memfs) or chrooted on the host (osfs).
package billyfs

import (
	"fmt"
	"math"
	"os"
	"path"
	"strings"

	"vfskit/internal/logging"
	"vfskit/internal/vfs"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

const maxOffset = math.MaxInt64

// DefaultFreeBytes is reported by GetFreeBytes unless WithFreeBytes is given.
const DefaultFreeBytes uint64 = 1 << 30

var (
	logger = logging.GetLogger().WithPrefix("billyfs")
)

// Option configures a Filesystem.
type Option func(*Filesystem)

// WithFreeBytes sets the capacity reported by GetFreeBytes.
func WithFreeBytes(n uint64) Option {
	return func(f *Filesystem) {
		f.freeBytes = n
	}
}

// Filesystem implements vfs.Filesystem over a billy.Filesystem.
type Filesystem struct {
	bfs       billy.Filesystem
	freeBytes uint64
}

// New creates a Filesystem serving bfs.
func New(bfs billy.Filesystem, opts ...Option) *Filesystem {
	f := &Filesystem{
		bfs:       bfs,
		freeBytes: DefaultFreeBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Unwrap returns the underlying billy filesystem.
func (f *Filesystem) Unwrap() billy.Filesystem {
	return f.bfs
}

// String implements fmt.Stringer.
func (f *Filesystem) String() string {
	return fmt.Sprintf("billyfs.Filesystem{root=%s}", f.bfs.Root())
}

// normalize turns a text Path into a clean absolute slash path.
func normalize(op string, p vfs.Path) (string, error) {
	s, ok := p.AsString()
	if !ok || strings.ContainsRune(s, 0) {
		return "", &vfs.PathError{Op: op, Path: p.String(), Err: vfs.ErrInvalidPath}
	}
	return path.Clean("/" + s), nil
}

func pathError(op string, p vfs.Path, err error) error {
	if kind, ok := vfs.KindOf(err); ok {
		return &vfs.PathError{Op: op, Path: p.String(), Err: kind}
	}
	kind := vfs.FromOSError(err)
	if kind == vfs.ErrUnknown {
		logger.Error("%s %s failed: %v", op, p, err)
	}
	return &vfs.PathError{Op: op, Path: p.String(), Err: kind}
}

// isDir reports whether name exists and is a directory. The root always
// exists, even before memfs has materialised it.
func (f *Filesystem) isDir(name string) (bool, error) {
	info, err := f.bfs.Lstat(name)
	if err != nil {
		if name == "/" && os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// expect fails with ErrPathNotFound unless name exists with the wanted kind.
func (f *Filesystem) expect(op string, p vfs.Path, name string, wantDir bool) error {
	dir, err := f.isDir(name)
	if err != nil {
		return pathError(op, p, err)
	}
	if dir != wantDir {
		return &vfs.PathError{Op: op, Path: p.String(), Err: vfs.ErrPathNotFound}
	}
	return nil
}

func (f *Filesystem) ensureAbsent(op string, p vfs.Path, name string) error {
	if name == "/" {
		return &vfs.PathError{Op: op, Path: p.String(), Err: vfs.ErrAlreadyExists}
	}
	_, err := f.bfs.Lstat(name)
	if err == nil {
		return &vfs.PathError{Op: op, Path: p.String(), Err: vfs.ErrAlreadyExists}
	}
	if !os.IsNotExist(err) {
		return pathError(op, p, err)
	}
	return nil
}

// ensureParent fails with ErrPathNotFound unless the parent of name is a
// directory; billy creates missing parents silently otherwise.
func (f *Filesystem) ensureParent(op string, p vfs.Path, name string) error {
	return f.expect(op, p, path.Dir(name), true)
}

// OpenFile implements vfs.Filesystem.
func (f *Filesystem) OpenFile(p vfs.Path, mode vfs.OpenMode) (vfs.File, error) {
	name, err := normalize(vfs.OpOpen, p)
	if err != nil {
		return nil, err
	}
	flags, err := mode.HostFlags()
	if err != nil {
		return nil, &vfs.PathError{Op: vfs.OpOpen, Path: p.String(), Err: err}
	}

	dir, err := f.isDir(name)
	switch {
	case err == nil && dir:
		return nil, &vfs.PathError{Op: vfs.OpOpen, Path: p.String(), Err: vfs.ErrPathNotFound}
	case err != nil && !os.IsNotExist(err):
		return nil, pathError(vfs.OpOpen, p, err)
	case err != nil && flags&os.O_CREATE == 0:
		return nil, &vfs.PathError{Op: vfs.OpOpen, Path: p.String(), Err: vfs.ErrPathNotFound}
	case err != nil:
		if err := f.ensureParent(vfs.OpOpen, p, name); err != nil {
			return nil, err
		}
	}

	logger.Debug("Opening %s with mode %q", name, mode.String())
	file, err := f.bfs.OpenFile(name, flags, 0o644)
	if err != nil {
		return nil, pathError(vfs.OpOpen, p, err)
	}
	return vfs.NewRandomAccessAdapter(NewStreamFile(name, file, mode)), nil
}

// DeleteFile implements vfs.Filesystem.
func (f *Filesystem) DeleteFile(p vfs.Path) error {
	name, err := normalize(vfs.OpDelete, p)
	if err != nil {
		return err
	}
	if err := f.expect(vfs.OpDelete, p, name, false); err != nil {
		return err
	}

	logger.Debug("Deleting file %s", name)
	if err := f.bfs.Remove(name); err != nil {
		return pathError(vfs.OpDelete, p, err)
	}
	return nil
}

// RenameFile implements vfs.Filesystem.
func (f *Filesystem) RenameFile(src, dst vfs.Path) error {
	return f.rename(vfs.OpRename, src, dst, false)
}

// RenameDirectory implements vfs.Filesystem.
func (f *Filesystem) RenameDirectory(src, dst vfs.Path) error {
	return f.rename(vfs.OpRenameDir, src, dst, true)
}

func (f *Filesystem) rename(op string, src, dst vfs.Path, dir bool) error {
	from, err := normalize(op, src)
	if err != nil {
		return err
	}
	to, err := normalize(op, dst)
	if err != nil {
		return err
	}
	if from == "/" {
		return &vfs.PathError{Op: op, Path: src.String(), Err: vfs.ErrInvalidPath}
	}
	if err := f.expect(op, src, from, dir); err != nil {
		return err
	}
	if err := f.ensureAbsent(op, dst, to); err != nil {
		return err
	}
	if err := f.ensureParent(op, dst, to); err != nil {
		return err
	}
	if dir && strings.HasPrefix(to, from+"/") {
		return &vfs.PathError{Op: op, Path: dst.String(), Err: vfs.ErrInvalidPath}
	}

	logger.Debug("Renaming %s -> %s", from, to)
	if err := f.bfs.Rename(from, to); err != nil {
		return pathError(op, src, err)
	}
	return nil
}

// CreateFile implements vfs.Filesystem.
func (f *Filesystem) CreateFile(p vfs.Path, size uint64) error {
	name, err := normalize(vfs.OpCreate, p)
	if err != nil {
		return err
	}
	if size > maxOffset {
		return &vfs.PathError{Op: vfs.OpCreate, Path: p.String(), Err: vfs.ErrUnknown}
	}
	if err := f.ensureAbsent(vfs.OpCreate, p, name); err != nil {
		return err
	}
	if err := f.ensureParent(vfs.OpCreate, p, name); err != nil {
		return err
	}

	logger.Debug("Creating file %s (%d bytes)", name, size)
	file, err := f.bfs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return pathError(vfs.OpCreate, p, err)
	}
	defer file.Close()

	if err := file.Truncate(int64(size)); err != nil {
		if rmErr := f.bfs.Remove(name); rmErr != nil {
			logger.Warn("Failed to remove unsized file %s: %v", name, rmErr)
		}
		return pathError(vfs.OpCreate, p, err)
	}
	return nil
}

// OpenDirectory implements vfs.Filesystem.
func (f *Filesystem) OpenDirectory(p vfs.Path) (vfs.DirectoryIterator[vfs.Path], error) {
	name, err := normalize(vfs.OpOpenDir, p)
	if err != nil {
		return nil, err
	}
	if err := f.expect(vfs.OpOpenDir, p, name, true); err != nil {
		return nil, err
	}

	infos, err := f.bfs.ReadDir(name)
	if err != nil {
		if name == "/" && os.IsNotExist(err) {
			return vfs.NewSliceIterator[vfs.Path](name, nil), nil
		}
		return nil, pathError(vfs.OpOpenDir, p, err)
	}

	entries := make([]vfs.DirectoryEntry[vfs.Path], 0, len(infos))
	for _, info := range infos {
		entry := vfs.DirectoryEntry[vfs.Path]{Name: vfs.NewPath(info.Name())}
		if info.IsDir() {
			entry.Flags |= vfs.EntryDirectory
		} else {
			entry.Flags |= vfs.EntryArchive
			if info.Size() > 0 {
				entry.Size = uint64(info.Size())
			}
		}
		if strings.HasPrefix(info.Name(), ".") {
			entry.Flags |= vfs.EntryHidden
		}
		if info.Mode().Perm()&0o200 == 0 {
			entry.Flags |= vfs.EntryReadOnly
		}
		entries = append(entries, entry)
	}

	logger.Trace("Directory %s contains %d entries", name, len(entries))
	return vfs.NewSliceIterator(name, entries), nil
}

// CreateDirectory implements vfs.Filesystem.
func (f *Filesystem) CreateDirectory(p vfs.Path) error {
	name, err := normalize(vfs.OpMkdir, p)
	if err != nil {
		return err
	}
	if err := f.ensureAbsent(vfs.OpMkdir, p, name); err != nil {
		return err
	}
	if err := f.ensureParent(vfs.OpMkdir, p, name); err != nil {
		return err
	}

	logger.Debug("Creating directory %s", name)
	if err := f.bfs.MkdirAll(name, 0o755); err != nil {
		return pathError(vfs.OpMkdir, p, err)
	}
	return nil
}

// DeleteDirectory implements vfs.Filesystem.
func (f *Filesystem) DeleteDirectory(p vfs.Path) error {
	name, err := normalize(vfs.OpRmdir, p)
	if err != nil {
		return err
	}
	if name == "/" {
		return &vfs.PathError{Op: vfs.OpRmdir, Path: p.String(), Err: vfs.ErrInvalidPath}
	}
	if err := f.expect(vfs.OpRmdir, p, name, true); err != nil {
		return err
	}

	// memfs does not report ENOTEMPTY, so check first.
	children, err := f.bfs.ReadDir(name)
	if err != nil {
		return pathError(vfs.OpRmdir, p, err)
	}
	if len(children) > 0 {
		return &vfs.PathError{Op: vfs.OpRmdir, Path: p.String(), Err: vfs.ErrDirectoryNotEmpty}
	}

	logger.Debug("Deleting directory %s", name)
	if err := f.bfs.Remove(name); err != nil {
		return pathError(vfs.OpRmdir, p, err)
	}
	return nil
}

// DeleteDirectoryRecursively implements vfs.Filesystem.
func (f *Filesystem) DeleteDirectoryRecursively(p vfs.Path) error {
	name, err := normalize(vfs.OpRmdirRecursive, p)
	if err != nil {
		return err
	}
	if name == "/" {
		return &vfs.PathError{Op: vfs.OpRmdirRecursive, Path: p.String(), Err: vfs.ErrInvalidPath}
	}
	if err := f.expect(vfs.OpRmdirRecursive, p, name, true); err != nil {
		return err
	}

	logger.Info("Deleting directory tree %s", name)
	if err := util.RemoveAll(f.bfs, name); err != nil {
		return pathError(vfs.OpRmdirRecursive, p, err)
	}
	return nil
}

// GetFreeBytes implements vfs.Filesystem.
func (f *Filesystem) GetFreeBytes() uint64 {
	return f.freeBytes
}

var _ vfs.Filesystem[vfs.Path] = (*Filesystem)(nil)
