package vfs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vfskit/internal/logging"

	securejoin "github.com/cyphar/filepath-securejoin"
	"golang.org/x/sys/unix"
)

var (
	hostFSLogger = logging.GetLogger().WithPrefix("hostfs")
)

// HostFilesystem is a Filesystem over a directory of the host. Paths are
// resolved relative to the root and cannot escape it, through ".." or
// through symlinks.
type HostFilesystem struct {
	root string
}

// NewHostFilesystem creates a filesystem rooted at root, which must be an
// existing directory.
func NewHostFilesystem(root string) (*HostFilesystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat root %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}

	hostFSLogger.Info("Created host filesystem at %s", abs)
	return &HostFilesystem{root: abs}, nil
}

// Root returns the absolute host directory backing the filesystem.
func (h *HostFilesystem) Root() string {
	return h.root
}

// String implements fmt.Stringer.
func (h *HostFilesystem) String() string {
	return fmt.Sprintf("HostFilesystem{root=%s}", h.root)
}

// resolve maps a text path onto the host, relative to the root.
func (h *HostFilesystem) resolve(op string, path Path) (string, error) {
	s, ok := path.AsString()
	if !ok {
		hostFSLogger.Debug("Rejecting non-text path %s for %s", path, op)
		return "", &PathError{Op: op, Path: path.String(), Err: ErrInvalidPath}
	}
	if strings.ContainsRune(s, 0) {
		return "", &PathError{Op: op, Path: path.String(), Err: ErrInvalidPath}
	}

	// Symlinks are evaluated as if the root were "/", so neither ".." nor a
	// link target can leave it.
	full, err := securejoin.SecureJoin(h.root, filepath.FromSlash(s))
	if err != nil {
		hostFSLogger.Warn("Failed to resolve %s under %q: %v", path, h.root, err)
		return "", newPathError(op, path, err)
	}
	hostFSLogger.Trace("Resolved %s -> %q", path, full)
	return full, nil
}

// statKind checks that full exists and is (or is not) a directory.
func statKind(op string, path Path, full string, wantDir bool) error {
	info, err := os.Lstat(full)
	if err != nil {
		return newPathError(op, path, err)
	}
	if info.IsDir() != wantDir {
		return &PathError{Op: op, Path: path.String(), Err: ErrPathNotFound}
	}
	return nil
}

// ensureAbsent fails with ErrAlreadyExists when full exists.
func ensureAbsent(op string, path Path, full string) error {
	if _, err := os.Lstat(full); err == nil {
		return &PathError{Op: op, Path: path.String(), Err: ErrAlreadyExists}
	} else if !os.IsNotExist(err) {
		return newPathError(op, path, err)
	}
	return nil
}

// OpenFile implements Filesystem. The file is a HostFile behind a
// RandomAccessAdapter.
func (h *HostFilesystem) OpenFile(path Path, mode OpenMode) (File, error) {
	full, err := h.resolve(OpOpen, path)
	if err != nil {
		return nil, err
	}
	flags, err := mode.HostFlags()
	if err != nil {
		return nil, &PathError{Op: OpOpen, Path: path.String(), Err: err}
	}
	if err := statKind(OpOpen, path, full, true); err == nil {
		// Directories cannot be opened as files.
		return nil, &PathError{Op: OpOpen, Path: path.String(), Err: ErrPathNotFound}
	}

	file, err := openHostFile(full, flags, mode)
	if err != nil {
		return nil, newPathError(OpOpen, path, err)
	}
	return NewRandomAccessAdapter(file), nil
}

// DeleteFile implements Filesystem.
func (h *HostFilesystem) DeleteFile(path Path) error {
	full, err := h.resolve(OpDelete, path)
	if err != nil {
		return err
	}
	if err := statKind(OpDelete, path, full, false); err != nil {
		return err
	}

	hostFSLogger.Debug("Deleting file %q", full)
	if err := os.Remove(full); err != nil {
		return newPathError(OpDelete, path, err)
	}
	return nil
}

// RenameFile implements Filesystem. The destination must not exist.
func (h *HostFilesystem) RenameFile(src, dst Path) error {
	return h.rename(OpRename, src, dst, false)
}

// RenameDirectory implements Filesystem. The destination must not exist.
func (h *HostFilesystem) RenameDirectory(src, dst Path) error {
	return h.rename(OpRenameDir, src, dst, true)
}

func (h *HostFilesystem) rename(op string, src, dst Path, dir bool) error {
	srcFull, err := h.resolve(op, src)
	if err != nil {
		return err
	}
	dstFull, err := h.resolve(op, dst)
	if err != nil {
		return err
	}
	if err := statKind(op, src, srcFull, dir); err != nil {
		return err
	}
	if err := ensureAbsent(op, dst, dstFull); err != nil {
		return err
	}

	hostFSLogger.Debug("Renaming %q -> %q", srcFull, dstFull)
	if err := os.Rename(srcFull, dstFull); err != nil {
		return newPathError(op, src, err)
	}
	return nil
}

// CreateFile implements Filesystem.
func (h *HostFilesystem) CreateFile(path Path, size uint64) error {
	full, err := h.resolve(OpCreate, path)
	if err != nil {
		return err
	}
	n, err := safeUint64ToInt64(size)
	if err != nil {
		return &PathError{Op: OpCreate, Path: path.String(), Err: err}
	}

	hostFSLogger.Debug("Creating file %q (%d bytes)", full, size)
	file, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return newPathError(OpCreate, path, err)
	}
	defer file.Close()

	if err := file.Truncate(n); err != nil {
		hostFSLogger.Error("Failed to size new file %q: %v", full, err)
		if rmErr := os.Remove(full); rmErr != nil {
			hostFSLogger.Warn("Failed to remove unsized file %q: %v", full, rmErr)
		}
		return newPathError(OpCreate, path, err)
	}
	return nil
}

// OpenDirectory implements Filesystem. Hidden is set for dot-names and
// Archive for everything that is not a directory.
func (h *HostFilesystem) OpenDirectory(path Path) (DirectoryIterator[Path], error) {
	full, err := h.resolve(OpOpenDir, path)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(full)
	if err != nil {
		return nil, newPathError(OpOpenDir, path, err)
	}

	entries := make([]DirectoryEntry[Path], 0, len(dirEntries))
	for _, de := range dirEntries {
		entry := DirectoryEntry[Path]{Name: NewPath(de.Name())}
		if de.IsDir() {
			entry.Flags |= EntryDirectory
		} else {
			entry.Flags |= EntryArchive
			if info, err := de.Info(); err == nil {
				entry.Size = safeInt64ToUint64(info.Size())
			} else {
				hostFSLogger.Warn("Failed to stat %q: %v", de.Name(), err)
			}
		}
		if strings.HasPrefix(de.Name(), ".") {
			entry.Flags |= EntryHidden
		}
		hostFSLogger.Trace("File %s: size=%d dir=%v", de.Name(), entry.Size, de.IsDir())
		entries = append(entries, entry)
	}

	hostFSLogger.Debug("Directory %q contains %d entries", full, len(entries))
	return NewSliceIterator(full, entries), nil
}

// CreateDirectory implements Filesystem.
func (h *HostFilesystem) CreateDirectory(path Path) error {
	full, err := h.resolve(OpMkdir, path)
	if err != nil {
		return err
	}

	hostFSLogger.Debug("Creating directory %q", full)
	if err := os.Mkdir(full, 0o755); err != nil {
		return newPathError(OpMkdir, path, err)
	}
	return nil
}

// DeleteDirectory implements Filesystem. The directory must be empty.
func (h *HostFilesystem) DeleteDirectory(path Path) error {
	full, err := h.resolve(OpRmdir, path)
	if err != nil {
		return err
	}
	if full == h.root {
		return &PathError{Op: OpRmdir, Path: path.String(), Err: ErrInvalidPath}
	}
	if err := statKind(OpRmdir, path, full, true); err != nil {
		return err
	}

	hostFSLogger.Debug("Deleting directory %q", full)
	if err := os.Remove(full); err != nil {
		return newPathError(OpRmdir, path, err)
	}
	return nil
}

// DeleteDirectoryRecursively implements Filesystem.
func (h *HostFilesystem) DeleteDirectoryRecursively(path Path) error {
	full, err := h.resolve(OpRmdirRecursive, path)
	if err != nil {
		return err
	}
	if full == h.root {
		return &PathError{Op: OpRmdirRecursive, Path: path.String(), Err: ErrInvalidPath}
	}
	if err := statKind(OpRmdirRecursive, path, full, true); err != nil {
		return err
	}

	hostFSLogger.Info("Deleting directory tree %q", full)
	if err := os.RemoveAll(full); err != nil {
		return newPathError(OpRmdirRecursive, path, err)
	}
	return nil
}

// GetFreeBytes implements Filesystem using the free space of the host
// filesystem holding the root. Failures are logged and reported as zero.
func (h *HostFilesystem) GetFreeBytes() uint64 {
	var st unix.Statfs_t
	if err := unix.Statfs(h.root, &st); err != nil {
		hostFSLogger.Error("Failed to statfs %q: %v", h.root, err)
		return 0
	}
	return uint64(st.Bavail) * uint64(st.Bsize) //nolint:gosec // Bsize is positive
}

var _ Filesystem[Path] = (*HostFilesystem)(nil)
