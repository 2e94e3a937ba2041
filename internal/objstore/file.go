package objstore

import (
	"errors"
	"fmt"
	"io"

	"vfskit/internal/vfs"

	"github.com/minio/minio-go/v7"
)

// ObjectFile is a read-only vfs.File serving ranged reads of one object.
// The size is fixed when the object is opened.
type ObjectFile struct {
	vfs.ReadOnlyFile

	fs   *Filesystem
	key  string
	size int64
}

func newObjectFile(fs *Filesystem, key string, size int64) *ObjectFile {
	return &ObjectFile{fs: fs, key: key, size: size}
}

// String implements fmt.Stringer.
func (o *ObjectFile) String() string {
	return fmt.Sprintf("ObjectFile{bucket=%s, key=%s, size=%d}", o.fs.bucket, o.key, o.size)
}

// Read implements vfs.File with one ranged GET, clamped to the object size.
func (o *ObjectFile) Read(offset uint64, p []byte) (int, error) {
	if len(p) == 0 || o.size <= 0 || offset >= uint64(o.size) {
		// Attempt to read past EOF
		return 0, nil
	}
	off := int64(offset)
	end := off + min(int64(len(p)), o.size-off) - 1

	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, vfs.ErrUnknown
	}

	ctx, cancel := o.fs.requestContext()
	defer cancel()

	obj, err := o.fs.client.GetObject(ctx, o.fs.bucket, o.key, opts)
	if err != nil {
		logger.Error("Failed to get %s [%d-%d]: %v", o.key, off, end, err)
		return 0, vfs.ErrUnknown
	}
	defer obj.Close()

	n, err := io.ReadFull(obj, p[:end-off+1])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		logger.Error("Failed to read %s [%d-%d]: %v", o.key, off, end, err)
		return n, vfs.ErrUnknown
	}
	return n, nil
}

// GetSize implements vfs.File.
func (o *ObjectFile) GetSize() (uint64, error) {
	if o.size < 0 {
		return 0, nil
	}
	return uint64(o.size), nil
}

// Close implements vfs.File. Nothing is held between reads.
func (o *ObjectFile) Close() error {
	return nil
}

var _ vfs.File = (*ObjectFile)(nil)
