// Package mount exposes a vfs.Filesystem through FUSE.
package mount

import (
	"context"
	"fmt"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	"vfskit/internal/logging"
	"vfskit/internal/vfs"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	fsLogger = logging.GetLogger().WithPrefix("mount")
)

const blockSize = 4096

// FS is the FUSE filesystem serving a vfs.Filesystem. Tree operations are
// serialised by mu; open files are serialised per handle.
type FS struct {
	fsys vfs.Filesystem[vfs.Path] // Backend serving every node
	name string                   // FUSE fsname/subtype
	conn *fuse.Conn               // FUSE connection
	uid  uint32                   // User ID for filesystem operations
	gid  uint32                   // Group ID for filesystem operations
	mu   sync.RWMutex             // Protects tree operations on the backend
}

// Option configures an FS.
type Option func(*FS)

// WithOwner sets the owner reported for every node.
func WithOwner(uid, gid uint32) Option {
	return func(m *FS) {
		m.uid = uid
		m.gid = gid
	}
}

// WithName sets the fsname and subtype shown in the mount table.
func WithName(name string) Option {
	return func(m *FS) {
		m.name = name
	}
}

// New creates an FS serving fsys. The owner defaults to the current process,
// overridden by PUID/PGID from the environment and then by WithOwner.
func New(fsys vfs.Filesystem[vfs.Path], opts ...Option) *FS {
	fsLogger.Info("Creating FUSE filesystem for %s", fsys)

	// Get UID/GID from environment if set
	uid := safeIntToUint32(os.Getuid())
	gid := safeIntToUint32(os.Getgid())

	if puidStr := os.Getenv("PUID"); puidStr != "" {
		if puid, err := strconv.ParseUint(puidStr, 10, 32); err == nil {
			uid = uint32(puid)
			fsLogger.Debug("Using PUID from environment: %d", uid)
		}
	}
	if pgidStr := os.Getenv("PGID"); pgidStr != "" {
		if pgid, err := strconv.ParseUint(pgidStr, 10, 32); err == nil {
			gid = uint32(pgid)
			fsLogger.Debug("Using PGID from environment: %d", gid)
		}
	}

	m := &FS{
		fsys: fsys,
		name: "vfskit",
		uid:  uid,
		gid:  gid,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (m *FS) Root() (fusefs.Node, error) {
	fsLogger.Trace("Getting root directory node")
	return &Dir{fs: m, path: "/"}, nil
}

// Statfs implements fusefs.FSStatfser from the backend's free space.
func (m *FS) Statfs(_ context.Context, _ *fuse.StatfsRequest, resp *fuse.StatfsResponse) error {
	free := m.fsys.GetFreeBytes() / blockSize
	resp.Bsize = blockSize
	resp.Frsize = blockSize
	resp.Blocks = free
	resp.Bfree = free
	resp.Bavail = free
	resp.Namelen = 255
	return nil
}

// entry finds the directory entry for p by listing its parent. The root is
// always a directory.
func (m *FS) entry(p string) (vfs.DirectoryEntry[vfs.Path], error) {
	if p == "/" {
		return vfs.DirectoryEntry[vfs.Path]{Name: vfs.NewPath("/"), Flags: vfs.EntryDirectory}, nil
	}

	it, err := m.fsys.OpenDirectory(vfs.NewPath(path.Dir(p)))
	if err != nil {
		return vfs.DirectoryEntry[vfs.Path]{}, err
	}
	name := path.Base(p)
	for e, ok := it.GetEntry(); ok; e, ok = it.GetEntry() {
		if s, _ := e.Name.AsString(); s == name {
			return e, nil
		}
	}
	return vfs.DirectoryEntry[vfs.Path]{}, &vfs.PathError{Op: opLookup, Path: p, Err: vfs.ErrPathNotFound}
}

// WaitForMount polls until mountpoint is a directory or 3 seconds pass.
func WaitForMount(mountpoint string) error {
	for i := 0; i < 30; i++ {
		info, err := os.Stat(mountpoint)
		if err == nil && info.IsDir() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("mount point not available after 3 seconds")
}

// Mount attaches the filesystem at mountPoint. Requests are handled once
// Serve is running.
func (m *FS) Mount(mountPoint string) error {
	fsLogger.Info("Mounting %s", m.fsys)
	fsLogger.Debug("Mount point: %s", mountPoint)
	fsLogger.Debug("UID: %d, GID: %d", m.uid, m.gid)

	mountOpts := []fuse.MountOption{
		fuse.FSName(m.name),
		fuse.Subtype(m.name),
		fuse.DefaultPermissions(),
		fuse.AsyncRead(),
		fuse.AllowNonEmptyMount(),
	}
	if os.Getuid() == 0 {
		mountOpts = append(mountOpts, fuse.AllowOther())
	}

	fsLogger.Debug("Mounting with options: %+v", mountOpts)

	c, err := fuse.Mount(mountPoint, mountOpts...)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}
	m.conn = c
	return nil
}

// Serve handles FUSE requests until the filesystem is unmounted.
func (m *FS) Serve() error {
	if m.conn == nil {
		return fmt.Errorf("filesystem is not mounted")
	}
	if err := fusefs.Serve(m.conn, m); err != nil {
		fsLogger.Error("FUSE server error: %v", err)
		return fmt.Errorf("serve failed: %w", err)
	}
	return nil
}

// Unmount cleanly unmounts the filesystem and closes the connection.
func (m *FS) Unmount(mountPoint string) error {
	fsLogger.Info("Unmounting filesystem from: %s", mountPoint)
	if m.conn == nil {
		return nil
	}

	err := fuse.Unmount(mountPoint)
	if err != nil {
		fsLogger.Error("Unmount failed: %v", err)
		return err
	}
	if err := m.conn.Close(); err != nil {
		fsLogger.Warn("Failed to close FUSE connection: %v", err)
	}
	m.conn = nil
	fsLogger.Info("Unmount completed successfully")
	return nil
}
