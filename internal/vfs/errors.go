// Package vfs provides the virtual file contracts and their backing stores.
//
// This file contains the error kinds and error handling utilities.
package vfs

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

// Error is the closed set of failure kinds reported by the vfs layer.
// Being a small integer, converting an Error to the error interface does not
// allocate.
type Error uint8

const (
	// ErrUnknown is an opaque failure of the backing store.
	ErrUnknown Error = iota

	// ErrUnsupportedOperation means the operation is invalid for this variant
	// (writing to a fixed-size window, resizing a read-only store).
	ErrUnsupportedOperation

	// ErrInvalidOpenMode means the operation is valid for the resource type but
	// not allowed by the mode it was opened with.
	ErrInvalidOpenMode

	// ErrEndOfFile means a StreamFile read started at or after the end.
	ErrEndOfFile

	// ErrPathNotFound indicates a path doesn't exist
	ErrPathNotFound

	// ErrAlreadyExists indicates path already exists
	ErrAlreadyExists

	// ErrDirectoryNotEmpty indicates attempt to remove non-empty directory
	ErrDirectoryNotEmpty

	// ErrInvalidPath indicates a path that cannot be resolved by a filesystem
	ErrInvalidPath
)

var errorNames = [...]string{
	ErrUnknown:              "unknown error",
	ErrUnsupportedOperation: "unsupported operation",
	ErrInvalidOpenMode:      "invalid open mode",
	ErrEndOfFile:            "end of file",
	ErrPathNotFound:         "path not found",
	ErrAlreadyExists:        "path already exists",
	ErrDirectoryNotEmpty:    "directory not empty",
	ErrInvalidPath:          "invalid path",
}

// Error implements the error interface.
func (e Error) Error() string {
	if int(e) < len(errorNames) {
		return errorNames[e]
	}
	return fmt.Sprintf("vfs error %d", uint8(e))
}

// KindOf returns the Error kind carried by err, looking through wrapping.
func KindOf(err error) (Error, bool) {
	var kind Error
	if errors.As(err, &kind) {
		return kind, true
	}
	return ErrUnknown, false
}

// PathError wraps a filesystem error kind with the operation and the affected
// path to provide more detailed error information.
type PathError struct {
	Op   string // Operation that failed (e.g., "open", "rename")
	Path string // Affected path, as rendered by Path.String
	Err  error  // Underlying error kind
}

// Error implements the error interface, providing a formatted error message
func (e *PathError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("operation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("operation %s on %s failed: %v", e.Op, e.Path, e.Err)
}

// Unwrap implements error unwrapping for the errors.Is/As functions
func (e *PathError) Unwrap() error {
	return e.Err
}

// newPathError creates a PathError for op on path. Errors that already carry
// a kind keep it; anything else is classified with FromOSError.
func newPathError(op string, path fmt.Stringer, err error) *PathError {
	kind, ok := KindOf(err)
	if !ok {
		kind = FromOSError(err)
	}
	return &PathError{Op: op, Path: path.String(), Err: kind}
}

// FromOSError classifies a host error into an Error kind.
func FromOSError(err error) Error {
	if kind, ok := KindOf(err); ok {
		return kind
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrPathNotFound
	case errors.Is(err, syscall.ENOTEMPTY):
		// Must precede ErrExist, which ENOTEMPTY also matches.
		return ErrDirectoryNotEmpty
	case errors.Is(err, fs.ErrExist):
		return ErrAlreadyExists
	case errors.Is(err, fs.ErrInvalid), errors.Is(err, syscall.EINVAL):
		return ErrInvalidPath
	default:
		return ErrUnknown
	}
}

// Common operation names for consistent logging and error reporting
const (
	OpOpen           = "open"            // Opening a file
	OpCreate         = "create"          // Creating a new file
	OpDelete         = "delete"          // Deleting a file
	OpRename         = "rename"          // Renaming a file
	OpOpenDir        = "opendir"         // Opening a directory iterator
	OpMkdir          = "mkdir"           // Creating a directory
	OpRenameDir      = "renamedir"       // Renaming a directory
	OpRmdir          = "rmdir"           // Deleting an empty directory
	OpRmdirRecursive = "rmdir-recursive" // Deleting a directory tree
	OpParseLowPath   = "parse"           // Decoding a wire path
)
