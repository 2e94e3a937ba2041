package mount

import (
	"context"
	"errors"
	"sync"

	"vfskit/internal/logging"
	"vfskit/internal/vfs"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// File represents a file of the backend.
type File struct {
	fs      *FS
	path    string
	mu      sync.Mutex
	handles map[*FileHandle]struct{} // Open handles, flushed by Fsync
}

func newFile(fs *FS, path string) *File {
	return &File{
		fs:      fs,
		path:    path,
		handles: make(map[*FileHandle]struct{}),
	}
}

// openMode maps FUSE open flags onto a vfs.OpenMode.
func openMode(flags fuse.OpenFlags) vfs.OpenMode {
	var mode vfs.OpenMode
	switch {
	case flags.IsReadOnly():
		mode = vfs.OpenRead
	case flags.IsWriteOnly():
		mode = vfs.OpenWrite
	default:
		mode = vfs.OpenRead | vfs.OpenWrite
	}

	switch {
	case flags&fuse.OpenAppend != 0 && mode.CanWrite():
		mode = mode&^vfs.OpenWrite | vfs.OpenAppend
	case flags&fuse.OpenTruncate != 0 && mode.CanWrite():
		mode |= vfs.OpenTruncate
	}
	return mode
}

// Attr implements the Node interface, returning the file's attributes.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	fileLogger.Trace("Getting attributes for file: %q", f.path)

	f.fs.mu.RLock()
	entry, err := f.fs.entry(f.path)
	f.fs.mu.RUnlock()
	if err != nil {
		fileLogger.Warn("Failed to stat %q: %v", f.path, err)
		return ToFuseError(err)
	}

	a.Mode = 0o644
	if entry.Flags&vfs.EntryReadOnly != 0 {
		a.Mode = 0o444
	}
	a.Size = entry.Size
	a.Uid = f.fs.uid
	a.Gid = f.fs.gid
	a.BlockSize = blockSize
	a.Blocks = (entry.Size + 511) / 512

	fileLogger.Trace("File attributes: mode=%v, size=%d", a.Mode, a.Size)
	return nil
}

// Open implements the NodeOpener interface, opening the backend file.
func (f *File) Open(_ context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	handle, err := f.open(req.Flags)
	if err != nil {
		return nil, err
	}

	// Sizes come from the backend, not the page cache
	resp.Flags |= fuse.OpenDirectIO
	return handle, nil
}

func (f *File) open(flags fuse.OpenFlags) (*FileHandle, error) {
	mode := openMode(flags)
	fileLogger.Debug("Opening file %q with flags %v (mode %q)", f.path, flags, mode.String())

	f.fs.mu.RLock()
	file, err := f.fs.fsys.OpenFile(vfs.NewPath(f.path), mode)
	f.fs.mu.RUnlock()
	if err != nil {
		fileLogger.Warn("Failed to open file %q: %v", f.path, err)
		return nil, ToFuseError(err)
	}

	handle := &FileHandle{file: file, node: f, path: f.path}
	f.mu.Lock()
	f.handles[handle] = struct{}{}
	f.mu.Unlock()

	fileLogger.Debug("Successfully opened file %q", f.path)
	return handle, nil
}

// Setattr implements the NodeSetattrer interface. Only size changes are
// applied; other attributes are reported unchanged.
func (f *File) Setattr(ctx context.Context, req *fuse.SetattrRequest, resp *fuse.SetattrResponse) error {
	if req.Valid.Size() {
		fileLogger.Debug("%s %q: size=%d", opSetattr, f.path, req.Size)

		f.fs.mu.RLock()
		file, err := f.fs.fsys.OpenFile(vfs.NewPath(f.path), vfs.OpenRead|vfs.OpenWrite)
		f.fs.mu.RUnlock()
		if err != nil {
			return ToFuseError(err)
		}
		err = file.SetSize(req.Size)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			fileLogger.Error("Failed to resize %q: %v", f.path, err)
			return ToFuseError(err)
		}
	}

	return f.Attr(ctx, &resp.Attr)
}

// Fsync implements the NodeFsyncer interface by flushing every open handle.
func (f *File) Fsync(_ context.Context, _ *fuse.FsyncRequest) error {
	f.mu.Lock()
	handles := make([]*FileHandle, 0, len(f.handles))
	for h := range f.handles {
		handles = append(handles, h)
	}
	f.mu.Unlock()

	for _, h := range handles {
		if err := h.flush(); err != nil {
			return err
		}
	}
	return nil
}

func (f *File) release(h *FileHandle) {
	f.mu.Lock()
	delete(f.handles, h)
	f.mu.Unlock()
}

// FileHandle represents an open file handle. Calls on one handle are
// serialised, since the kernel issues them concurrently and a vfs.File may
// keep a cursor.
type FileHandle struct {
	file   vfs.File
	node   *File
	path   string // For logging purposes
	mu     sync.Mutex
	closed bool // Set by Release; guarded by mu
}

// Read implements the HandleReader interface, reading data from the file.
func (fh *FileHandle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fileLogger.Trace("Reading %d bytes from file %q at offset %d", req.Size, fh.path, req.Offset)

	buf := make([]byte, req.Size)
	n, err := fh.file.Read(safeInt64ToUint64(req.Offset), buf)
	if errors.Is(err, vfs.ErrEndOfFile) {
		n, err = 0, nil
	}
	if err != nil {
		fileLogger.Error("Failed to read from file: %v", err)
		return ToFuseError(err)
	}

	resp.Data = buf[:n]
	fileLogger.Trace("Successfully read %d bytes", n)
	return nil
}

// Write implements the HandleWriter interface. A write the file clamps at its
// current size grows the file and writes the remainder.
func (fh *FileHandle) Write(_ context.Context, req *fuse.WriteRequest, resp *fuse.WriteResponse) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	offset := safeInt64ToUint64(req.Offset)
	fileLogger.Trace("Writing %d bytes to file %q at offset %d", len(req.Data), fh.path, offset)

	n, err := fh.file.Write(offset, req.Data)
	if err == nil && n < len(req.Data) {
		fileLogger.Trace("Growing %q to %d bytes", fh.path, offset+uint64(len(req.Data)))
		if err = fh.file.SetSize(offset + uint64(len(req.Data))); err == nil {
			var m int
			m, err = fh.file.Write(offset+uint64(n), req.Data[n:])
			n += m
		}
	}
	if err != nil {
		fileLogger.Error("Failed to write to file: %v", err)
		return ToFuseError(err)
	}

	resp.Size = n
	return nil
}

// Flush implements the HandleFlusher interface.
func (fh *FileHandle) Flush(_ context.Context, _ *fuse.FlushRequest) error {
	return fh.flush()
}

func (fh *FileHandle) flush() error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	// Fsync may reach a handle released after its snapshot.
	if fh.closed {
		return nil
	}
	if err := fh.file.Flush(); err != nil {
		fileLogger.Error("Failed to flush %q: %v", fh.path, err)
		return ToFuseError(err)
	}
	return nil
}

// Release implements the HandleReleaser interface, closing the file handle.
func (fh *FileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	fh.node.release(fh)

	fh.mu.Lock()
	defer fh.mu.Unlock()

	if fh.closed {
		return nil
	}
	fh.closed = true
	fileLogger.Debug("Closing file %q", fh.path)
	return ToFuseError(fh.file.Close())
}
