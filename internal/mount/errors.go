package mount

import (
	"errors"
	"os"
	"syscall"

	"vfskit/internal/logging"
	"vfskit/internal/vfs"
)

var (
	errLogger = logging.GetLogger().WithPrefix("error")
)

// ToFuseError converts a vfs error to appropriate FUSE error code.
// This is used to translate backend errors into the correct
// syscall errors that FUSE expects.
func ToFuseError(err error) error {
	if err == nil {
		return nil
	}

	if kind, ok := vfs.KindOf(err); ok {
		errLogger.Trace("Converting vfs error to FUSE error: %v", err)

		switch kind {
		case vfs.ErrPathNotFound:
			return syscall.ENOENT
		case vfs.ErrAlreadyExists:
			return syscall.EEXIST
		case vfs.ErrDirectoryNotEmpty:
			return syscall.ENOTEMPTY
		case vfs.ErrInvalidPath:
			return syscall.EINVAL
		case vfs.ErrUnsupportedOperation:
			return syscall.ENOTSUP
		case vfs.ErrInvalidOpenMode:
			return syscall.EBADF
		default:
			errLogger.Debug("Unmapped vfs error, returning EIO: %v", err)
			return syscall.EIO
		}
	}

	// For other errors, convert common error types
	errLogger.Trace("Converting standard error to FUSE error: %v", err)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return syscall.ENOENT
	case errors.Is(err, os.ErrPermission):
		return syscall.EACCES
	default:
		errLogger.Debug("Unknown error type, returning EIO: %v", err)
		return syscall.EIO
	}
}

// Operation names for logging and error reporting
const (
	opLookup  = "lookup"  // Looking up a path
	opSetattr = "setattr" // Setting file attributes
)
