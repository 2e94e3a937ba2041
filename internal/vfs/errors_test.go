package vfs

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	assert.Equal(t, "end of file", ErrEndOfFile.Error())
	assert.Equal(t, "vfs error 200", Error(200).Error())

	wrapped := fmt.Errorf("reading save: %w", &PathError{Op: OpOpen, Path: "[string: /a]", Err: ErrPathNotFound})
	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrPathNotFound, kind)
	assert.ErrorIs(t, wrapped, ErrPathNotFound)
	assert.Equal(t, "reading save: operation open on [string: /a] failed: path not found", wrapped.Error())

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestFromOSError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Error
	}{
		{name: "not exist", err: &os.PathError{Op: "open", Err: syscall.ENOENT}, expected: ErrPathNotFound},
		{name: "exist", err: &os.PathError{Op: "mkdir", Err: syscall.EEXIST}, expected: ErrAlreadyExists},
		{name: "not empty", err: &os.PathError{Op: "rmdir", Err: syscall.ENOTEMPTY}, expected: ErrDirectoryNotEmpty},
		{name: "invalid", err: syscall.EINVAL, expected: ErrInvalidPath},
		{name: "already classified", err: ErrEndOfFile, expected: ErrEndOfFile},
		{name: "other", err: syscall.EIO, expected: ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FromOSError(tt.err))
		})
	}
}
