package objstore

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"vfskit/internal/logging"
	"vfskit/internal/vfs"

	"github.com/minio/minio-go/v7"
)

var (
	logger = logging.GetLogger().WithPrefix("objstore")
)

// Filesystem is a read-only vfs.Filesystem over the objects of a bucket.
// Key separators are treated as directories.
type Filesystem struct {
	vfs.ReadOnlyFilesystem[vfs.Path]

	client  *minio.Client
	bucket  string
	prefix  string
	timeout time.Duration
}

// New creates a Filesystem from cfg. No request is made until first use.
func New(cfg Config) (*Filesystem, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid object store config: %w", err)
	}
	client, err := cfg.newClient()
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	logger.Info("Serving bucket %s (prefix %q) from %s", cfg.Bucket, cfg.Prefix, client.EndpointURL())
	return &Filesystem{
		client:  client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		timeout: timeout,
	}, nil
}

// String implements fmt.Stringer.
func (f *Filesystem) String() string {
	return fmt.Sprintf("objstore.Filesystem{bucket=%s, prefix=%s}", f.bucket, f.prefix)
}

func (f *Filesystem) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), f.timeout)
}

// objectKey maps a text Path onto an object key under the prefix.
func (f *Filesystem) objectKey(op string, p vfs.Path) (string, error) {
	s, ok := p.AsString()
	if !ok {
		return "", &vfs.PathError{Op: op, Path: p.String(), Err: vfs.ErrInvalidPath}
	}
	rel := strings.TrimPrefix(path.Clean("/"+s), "/")
	if f.prefix == "" {
		return rel, nil
	}
	if rel == "" {
		return f.prefix, nil
	}
	return f.prefix + "/" + rel, nil
}

// listPrefix returns the key prefix that lists the children of key.
func listPrefix(key string) string {
	if key == "" {
		return ""
	}
	return key + "/"
}

// entryName extracts the child name of an object listed under prefix.
func entryName(prefix, key string) (string, bool) {
	name := strings.TrimSuffix(strings.TrimPrefix(key, prefix), "/")
	return name, name != "" && !strings.Contains(name, "/")
}

// classify maps minio errors onto vfs kinds.
func classify(err error) vfs.Error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound", "NoSuchBucket":
		return vfs.ErrPathNotFound
	case "AccessDenied":
		return vfs.ErrUnsupportedOperation
	default:
		return vfs.ErrUnknown
	}
}

// OpenFile implements vfs.Filesystem. Only OpenRead is accepted.
func (f *Filesystem) OpenFile(p vfs.Path, mode vfs.OpenMode) (vfs.File, error) {
	if mode != vfs.OpenRead {
		return nil, &vfs.PathError{Op: vfs.OpOpen, Path: p.String(), Err: vfs.ErrInvalidOpenMode}
	}
	key, err := f.objectKey(vfs.OpOpen, p)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, &vfs.PathError{Op: vfs.OpOpen, Path: p.String(), Err: vfs.ErrPathNotFound}
	}

	ctx, cancel := f.requestContext()
	defer cancel()

	info, err := f.client.StatObject(ctx, f.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		kind := classify(err)
		if kind == vfs.ErrUnknown {
			logger.Error("Failed to stat %s/%s: %v", f.bucket, key, err)
		}
		return nil, &vfs.PathError{Op: vfs.OpOpen, Path: p.String(), Err: kind}
	}

	logger.Debug("Opened object %s/%s (%d bytes)", f.bucket, key, info.Size)
	return newObjectFile(f, key, info.Size), nil
}

// OpenDirectory implements vfs.Filesystem. Common prefixes become directory
// entries; a path with no objects under it does not exist.
func (f *Filesystem) OpenDirectory(p vfs.Path) (vfs.DirectoryIterator[vfs.Path], error) {
	key, err := f.objectKey(vfs.OpOpenDir, p)
	if err != nil {
		return nil, err
	}
	prefix := listPrefix(key)

	ctx, cancel := f.requestContext()
	defer cancel()

	var entries []vfs.DirectoryEntry[vfs.Path]
	for obj := range f.client.ListObjects(ctx, f.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			kind := classify(obj.Err)
			if kind == vfs.ErrUnknown {
				logger.Error("Failed to list %s/%s: %v", f.bucket, prefix, obj.Err)
			}
			return nil, &vfs.PathError{Op: vfs.OpOpenDir, Path: p.String(), Err: kind}
		}

		name, ok := entryName(prefix, obj.Key)
		if !ok {
			continue
		}
		entry := vfs.DirectoryEntry[vfs.Path]{Name: vfs.NewPath(name), Flags: vfs.EntryReadOnly}
		if strings.HasSuffix(obj.Key, "/") {
			entry.Flags |= vfs.EntryDirectory
		} else {
			entry.Flags |= vfs.EntryArchive
			if obj.Size > 0 {
				entry.Size = uint64(obj.Size)
			}
		}
		if strings.HasPrefix(name, ".") {
			entry.Flags |= vfs.EntryHidden
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 && key != f.prefix {
		return nil, &vfs.PathError{Op: vfs.OpOpenDir, Path: p.String(), Err: vfs.ErrPathNotFound}
	}

	logger.Trace("Listed %d entries under %s/%s", len(entries), f.bucket, prefix)
	return vfs.NewSliceIterator(f.bucket+"/"+prefix, entries), nil
}

// GetFreeBytes implements vfs.Filesystem. Nothing can be written.
func (f *Filesystem) GetFreeBytes() uint64 {
	return 0
}

var _ vfs.Filesystem[vfs.Path] = (*Filesystem)(nil)
