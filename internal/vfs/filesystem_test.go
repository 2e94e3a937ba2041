package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceIterator(t *testing.T) {
	it := NewSliceIterator("/saves", []DirectoryEntry[string]{
		{Name: "a", Size: 1, Flags: EntryArchive},
		{Name: "b", Flags: EntryDirectory},
	})

	entry, ok := it.GetEntry()
	assert.True(t, ok)
	assert.Equal(t, "a", entry.Name)
	assert.False(t, entry.IsDir())

	entry, ok = it.GetEntry()
	assert.True(t, ok)
	assert.True(t, entry.IsDir())

	_, ok = it.GetEntry()
	assert.False(t, ok)
	_, ok = it.GetEntry()
	assert.False(t, ok)

	assert.Equal(t, "SliceIterator{dir=/saves, entries=2, next=2}", it.String())
}

func TestReadOnlyFilesystem(t *testing.T) {
	var ro ReadOnlyFilesystem[Path]
	p := NewPath("/x")

	assert.ErrorIs(t, ro.DeleteFile(p), ErrUnsupportedOperation)
	assert.ErrorIs(t, ro.RenameFile(p, p), ErrUnsupportedOperation)
	assert.ErrorIs(t, ro.CreateFile(p, 1), ErrUnsupportedOperation)
	assert.ErrorIs(t, ro.CreateDirectory(p), ErrUnsupportedOperation)
	assert.ErrorIs(t, ro.RenameDirectory(p, p), ErrUnsupportedOperation)
	assert.ErrorIs(t, ro.DeleteDirectory(p), ErrUnsupportedOperation)
	assert.ErrorIs(t, ro.DeleteDirectoryRecursively(p), ErrUnsupportedOperation)
}

func TestReadOnlyFile(t *testing.T) {
	var ro ReadOnlyFile
	_, err := ro.Write(0, []byte{1})
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
	assert.ErrorIs(t, ro.SetSize(0), ErrUnsupportedOperation)
	assert.NoError(t, ro.Flush())
}
