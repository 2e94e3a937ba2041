package mount

import (
	"context"
	"errors"
	"os"
	"path"
	"syscall"

	"vfskit/internal/logging"
	"vfskit/internal/vfs"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir represents a directory of the backend.
type Dir struct {
	fs   *FS
	path string
}

func (d *Dir) child(name string) string {
	return path.Join(d.path, name)
}

// Attr implements the Node interface, returning directory attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	dirLogger.Trace("Getting attributes for directory: %q", d.path)
	a.Mode = os.ModeDir | 0o755
	a.Uid = d.fs.uid
	a.Gid = d.fs.gid
	return nil
}

// Lookup implements the NodeStringLookuper interface, finding a child node.
func (d *Dir) Lookup(_ context.Context, name string) (fusefs.Node, error) {
	dirLogger.Debug("Looking up %q in directory %q", name, d.path)
	childPath := d.child(name)

	d.fs.mu.RLock()
	entry, err := d.fs.entry(childPath)
	d.fs.mu.RUnlock()
	if err != nil {
		dirLogger.Debug("Path not found: %q", childPath)
		return nil, ToFuseError(err)
	}

	if entry.IsDir() {
		dirLogger.Debug("Found directory: %q", childPath)
		return &Dir{fs: d.fs, path: childPath}, nil
	}
	dirLogger.Debug("Found file: %q", childPath)
	return newFile(d.fs, childPath), nil
}

// ReadDirAll implements the HandleReadDirAller interface, listing directory contents.
func (d *Dir) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	dirLogger.Debug("Reading directory contents: %q", d.path)

	d.fs.mu.RLock()
	defer d.fs.mu.RUnlock()

	it, err := d.fs.fsys.OpenDirectory(vfs.NewPath(d.path))
	if err != nil {
		dirLogger.Warn("Failed to open directory %q: %v", d.path, err)
		return nil, ToFuseError(err)
	}

	// Add standard entries
	entries := []fuse.Dirent{
		{Name: ".", Type: fuse.DT_Dir},
		{Name: "..", Type: fuse.DT_Dir},
	}
	for e, ok := it.GetEntry(); ok; e, ok = it.GetEntry() {
		name, ok := e.Name.AsString()
		if !ok {
			dirLogger.Warn("Skipping entry with non-text name %s in %q", e.Name, d.path)
			continue
		}
		dirent := fuse.Dirent{Name: name, Type: fuse.DT_File}
		if e.IsDir() {
			dirent.Type = fuse.DT_Dir
		}
		dirLogger.Trace("Found entry: %q (dir=%v)", name, e.IsDir())
		entries = append(entries, dirent)
	}

	dirLogger.Debug("Directory %q contains %d entries", d.path, len(entries))
	return entries, nil
}

// Mkdir implements the NodeMkdirer interface, creating a new directory.
func (d *Dir) Mkdir(_ context.Context, req *fuse.MkdirRequest) (fusefs.Node, error) {
	dirLogger.Info("Creating new directory %q in %q", req.Name, d.path)
	newPath := d.child(req.Name)

	d.fs.mu.Lock()
	err := d.fs.fsys.CreateDirectory(vfs.NewPath(newPath))
	d.fs.mu.Unlock()

	if err != nil {
		dirLogger.Error("Failed to create directory %q: %v", newPath, err)
		return nil, ToFuseError(err)
	}

	dirLogger.Info("Successfully created directory: %s", newPath)
	return &Dir{fs: d.fs, path: newPath}, nil
}

// Create implements the NodeCreater interface, creating and opening a file.
func (d *Dir) Create(_ context.Context, req *fuse.CreateRequest, resp *fuse.CreateResponse) (fusefs.Node, fusefs.Handle, error) {
	dirLogger.Info("Creating file %q in %q with flags %v", req.Name, d.path, req.Flags)
	newPath := d.child(req.Name)

	d.fs.mu.Lock()
	err := d.fs.fsys.CreateFile(vfs.NewPath(newPath), 0)
	d.fs.mu.Unlock()

	if err != nil {
		if !errors.Is(err, vfs.ErrAlreadyExists) || req.Flags&fuse.OpenExclusive != 0 {
			dirLogger.Error("Failed to create file %q: %v", newPath, err)
			return nil, nil, ToFuseError(err)
		}
		dirLogger.Debug("File %q already exists, opening it", newPath)
	}

	file := newFile(d.fs, newPath)
	handle, err := file.open(req.Flags)
	if err != nil {
		return nil, nil, err
	}
	resp.Flags |= fuse.OpenDirectIO
	return file, handle, nil
}

// Remove implements the NodeRemover interface, removing a file or directory.
func (d *Dir) Remove(_ context.Context, req *fuse.RemoveRequest) error {
	dirLogger.Info("Removing %q from directory %q (isDir=%v)", req.Name, d.path, req.Dir)
	childPath := vfs.NewPath(d.child(req.Name))

	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	var err error
	if req.Dir {
		err = d.fs.fsys.DeleteDirectory(childPath)
	} else {
		err = d.fs.fsys.DeleteFile(childPath)
	}
	if err != nil {
		dirLogger.Warn("Failed to remove %s: %v", childPath, err)
		return ToFuseError(err)
	}

	dirLogger.Info("Successfully removed %s", childPath)
	return nil
}

// Rename implements the NodeRenamer interface, renaming/moving a file or directory.
// An existing destination is not replaced.
func (d *Dir) Rename(_ context.Context, req *fuse.RenameRequest, newDir fusefs.Node) error {
	dirLogger.Info("Renaming %q to %q", req.OldName, req.NewName)

	target, ok := newDir.(*Dir)
	if !ok {
		dirLogger.Error("Target is not a valid directory type")
		return syscall.EINVAL
	}

	oldPath := d.child(req.OldName)
	newPath := target.child(req.NewName)
	dirLogger.Debug("Rename operation: %q -> %q", oldPath, newPath)

	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	entry, err := d.fs.entry(oldPath)
	if err != nil {
		dirLogger.Warn("Source path not found: %q", oldPath)
		return ToFuseError(err)
	}

	if entry.IsDir() {
		err = d.fs.fsys.RenameDirectory(vfs.NewPath(oldPath), vfs.NewPath(newPath))
	} else {
		err = d.fs.fsys.RenameFile(vfs.NewPath(oldPath), vfs.NewPath(newPath))
	}
	if err != nil {
		dirLogger.Warn("Failed to rename %q: %v", oldPath, err)
		return ToFuseError(err)
	}

	dirLogger.Info("Successfully completed rename operation")
	return nil
}
