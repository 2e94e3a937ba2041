package vfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHostFS(t *testing.T) (*HostFilesystem, string) {
	t.Helper()
	root := t.TempDir()
	fsys, err := NewHostFilesystem(root)
	require.NoError(t, err)
	return fsys, root
}

func collectEntries(t *testing.T, it DirectoryIterator[Path]) map[string]DirectoryEntry[Path] {
	t.Helper()
	entries := make(map[string]DirectoryEntry[Path])
	for {
		entry, ok := it.GetEntry()
		if !ok {
			return entries
		}
		name, ok := entry.Name.AsString()
		require.True(t, ok)
		entries[name] = entry
	}
}

func TestNewHostFilesystemRejectsFile(t *testing.T) {
	path := writeHostFile(t, "x")
	_, err := NewHostFilesystem(path)
	assert.Error(t, err)

	_, err = NewHostFilesystem(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestHostFilesystemFiles(t *testing.T) {
	fsys, root := setupHostFS(t)

	require.NoError(t, fsys.CreateFile(NewPath("/save.bin"), 4))
	err := fsys.CreateFile(NewPath("/save.bin"), 4)
	assert.ErrorIs(t, err, ErrAlreadyExists)

	f, err := fsys.OpenFile(NewPath("/save.bin"), OpenRead|OpenWrite)
	require.NoError(t, err)
	_, err = f.Write(1, []byte{7, 8})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	content, err := os.ReadFile(filepath.Join(root, "save.bin"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 7, 8, 0}, content)

	_, err = fsys.OpenFile(NewPath("/missing.bin"), OpenRead)
	assert.ErrorIs(t, err, ErrPathNotFound)

	_, err = fsys.OpenFile(NewPath("/save.bin"), OpenCreate)
	assert.ErrorIs(t, err, ErrInvalidOpenMode)

	require.NoError(t, fsys.RenameFile(NewPath("/save.bin"), NewPath("/renamed.bin")))
	assert.NoFileExists(t, filepath.Join(root, "save.bin"))
	assert.FileExists(t, filepath.Join(root, "renamed.bin"))

	require.NoError(t, fsys.CreateFile(NewPath("/other.bin"), 0))
	err = fsys.RenameFile(NewPath("/other.bin"), NewPath("/renamed.bin"))
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, fsys.DeleteFile(NewPath("/renamed.bin")))
	err = fsys.DeleteFile(NewPath("/renamed.bin"))
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestHostFilesystemDirectories(t *testing.T) {
	fsys, root := setupHostFS(t)

	require.NoError(t, fsys.CreateDirectory(NewPath("/data")))
	assert.ErrorIs(t, fsys.CreateDirectory(NewPath("/data")), ErrAlreadyExists)
	require.NoError(t, fsys.CreateFile(NewPath("/data/a.bin"), 3))
	require.NoError(t, fsys.CreateFile(NewPath("/data/.hidden"), 0))
	require.NoError(t, fsys.CreateDirectory(NewPath("/data/sub")))

	it, err := fsys.OpenDirectory(NewU16Path([]uint16{'/', 'd', 'a', 't', 'a'}))
	require.NoError(t, err)
	entries := collectEntries(t, it)
	require.Len(t, entries, 3)

	assert.Equal(t, uint64(3), entries["a.bin"].Size)
	assert.Equal(t, EntryArchive, entries["a.bin"].Flags)
	assert.Equal(t, EntryArchive|EntryHidden, entries[".hidden"].Flags)
	assert.True(t, entries["sub"].IsDir())

	// Opening a directory as a file or deleting it as a file fails.
	_, err = fsys.OpenFile(NewPath("/data"), OpenRead)
	assert.ErrorIs(t, err, ErrPathNotFound)
	assert.ErrorIs(t, fsys.DeleteFile(NewPath("/data")), ErrPathNotFound)

	assert.ErrorIs(t, fsys.DeleteDirectory(NewPath("/data")), ErrDirectoryNotEmpty)
	require.NoError(t, fsys.DeleteDirectory(NewPath("/data/sub")))

	require.NoError(t, fsys.RenameDirectory(NewPath("/data"), NewPath("/moved")))
	assert.DirExists(t, filepath.Join(root, "moved"))

	require.NoError(t, fsys.DeleteDirectoryRecursively(NewPath("/moved")))
	assert.NoDirExists(t, filepath.Join(root, "moved"))

	_, err = fsys.OpenDirectory(NewPath("/moved"))
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestHostFilesystemPathResolution(t *testing.T) {
	fsys, root := setupHostFS(t)
	outside := filepath.Dir(root)

	// ".." cannot climb above the root.
	require.NoError(t, fsys.CreateFile(NewPath("../../escape.bin"), 0))
	assert.FileExists(t, filepath.Join(root, "escape.bin"))
	assert.NoFileExists(t, filepath.Join(outside, "escape.bin"))

	_, err := fsys.OpenFile(NewBinaryPath([]byte{1}), OpenRead)
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = fsys.OpenDirectory(Path{})
	assert.ErrorIs(t, err, ErrInvalidPath)

	assert.ErrorIs(t, fsys.DeleteDirectory(NewPath("/")), ErrInvalidPath)
	assert.ErrorIs(t, fsys.DeleteDirectoryRecursively(NewPath("/..")), ErrInvalidPath)
}

func TestHostFilesystemSymlinksStayInsideRoot(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "root")
	outside := filepath.Join(base, "outside")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.Mkdir(outside, 0o755))
	secret := filepath.Join(outside, "secret")
	require.NoError(t, os.WriteFile(secret, []byte("keep out"), 0o644))

	require.NoError(t, os.Symlink(outside, filepath.Join(root, "abs")))
	require.NoError(t, os.Symlink("../outside", filepath.Join(root, "rel")))
	require.NoError(t, os.Symlink(secret, filepath.Join(root, "direct")))

	fsys, err := NewHostFilesystem(root)
	require.NoError(t, err)

	for _, p := range []string{"/abs/secret", "/rel/secret", "/direct"} {
		t.Run(p, func(t *testing.T) {
			_, err := fsys.OpenFile(NewPath(p), OpenRead)
			assert.ErrorIs(t, err, ErrPathNotFound)

			assert.Error(t, fsys.DeleteFile(NewPath(p)))
			assert.FileExists(t, secret)
		})
	}

	assert.Error(t, fsys.DeleteDirectoryRecursively(NewPath("/abs")))
	assert.FileExists(t, secret)

	// A link that stays inside the root still works.
	require.NoError(t, fsys.CreateFile(NewPath("/inner.bin"), 2))
	require.NoError(t, os.Symlink("inner.bin", filepath.Join(root, "alias")))
	f, err := fsys.OpenFile(NewPath("/alias"), OpenRead)
	require.NoError(t, err)
	size, err := f.GetSize()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), size)
	require.NoError(t, f.Close())
}

func TestHostFilesystemFreeBytes(t *testing.T) {
	fsys, root := setupHostFS(t)
	assert.Positive(t, fsys.GetFreeBytes())
	resolved, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, resolved, fsys.Root())
	assert.Contains(t, fsys.String(), resolved)
}
