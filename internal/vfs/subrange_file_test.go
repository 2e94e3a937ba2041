package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closeCounter records how often the wrapped File is closed.
type closeCounter struct {
	*MemoryFile
	closes int
}

func (c *closeCounter) Close() error {
	c.closes++
	return nil
}

func newWindow(data []byte, offset, size uint64) *SubrangeFile {
	return NewSubrangeFile(Share(NewMemoryFile(data)), offset, size)
}

func TestSubrangeFileRead(t *testing.T) {
	base := []byte{0, 1, 2, 3, 4, 5, 6}

	tests := []struct {
		name     string
		offset   uint64
		size     uint64
		readAt   uint64
		bufLen   int
		expected []byte
	}{
		{
			name:     "whole window",
			offset:   2,
			size:     3,
			readAt:   0,
			bufLen:   8,
			expected: []byte{2, 3, 4},
		},
		{
			name:     "inside window",
			offset:   2,
			size:     3,
			readAt:   1,
			bufLen:   1,
			expected: []byte{3},
		},
		{
			name:     "at window end",
			offset:   2,
			size:     3,
			readAt:   3,
			bufLen:   4,
			expected: []byte{},
		},
		{
			name:     "window past base end",
			offset:   5,
			size:     5,
			readAt:   0,
			bufLen:   8,
			expected: []byte{5, 6},
		},
		{
			name:     "unbounded",
			offset:   4,
			size:     UnboundedSize,
			readAt:   1,
			bufLen:   8,
			expected: []byte{5, 6},
		},
		{
			name:     "unbounded far offset",
			offset:   4,
			size:     UnboundedSize,
			readAt:   1 << 62,
			bufLen:   8,
			expected: []byte{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWindow(append([]byte(nil), base...), tt.offset, tt.size)
			buf := make([]byte, tt.bufLen)

			n, err := f.Read(tt.readAt, buf)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, buf[:n])
		})
	}
}

func TestSubrangeFileReadLeavesTailUntouched(t *testing.T) {
	tests := []struct {
		name     string
		readAt   uint64
		read     int
		expected []byte
	}{
		{name: "inside", readAt: 1, read: 3, expected: []byte{2, 3, 4}},
		{name: "clamped at window end", readAt: 4, read: 1, expected: []byte{5, 9, 9}},
		{name: "past window", readAt: 6, read: 0, expected: []byte{9, 9, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWindow([]byte{0, 1, 2, 3, 4, 5, 6}, 1, 5)
			buf := sentinel(3)

			n, err := f.Read(tt.readAt, buf)
			require.NoError(t, err)
			assert.Equal(t, tt.read, n)
			assert.Equal(t, tt.expected, buf)
		})
	}
}

func TestSubrangeFileWrite(t *testing.T) {
	t.Run("clamped to window", func(t *testing.T) {
		mem := NewMemoryFile([]byte{0, 1, 2, 3, 4, 5, 6})
		f := NewSubrangeFile(Share(mem), 2, 3)

		n, err := f.Write(1, []byte{9, 9, 9, 9})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []byte{0, 1, 2, 9, 9, 5, 6}, mem.Data())
	})

	t.Run("window past base end", func(t *testing.T) {
		mem := NewMemoryFile([]byte{0, 1, 2, 3, 4, 5, 6})
		f := NewSubrangeFile(Share(mem), 5, 5)

		n, err := f.Write(0, sentinel(5))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []byte{0, 1, 2, 3, 4, 9, 9}, mem.Data())
	})

	t.Run("past window end", func(t *testing.T) {
		mem := NewMemoryFile([]byte{0, 1, 2, 3})
		f := NewSubrangeFile(Share(mem), 1, 2)

		n, err := f.Write(2, []byte{9})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Equal(t, []byte{0, 1, 2, 3}, mem.Data())
	})
}

func TestSubrangeFileGetSize(t *testing.T) {
	tests := []struct {
		name     string
		offset   uint64
		size     uint64
		expected uint64
	}{
		{name: "inside base", offset: 2, size: 3, expected: 3},
		{name: "truncated by base", offset: 5, size: 5, expected: 2},
		{name: "offset at base end", offset: 7, size: 5, expected: 0},
		{name: "offset past base end", offset: 100, size: 5, expected: 0},
		{name: "unbounded", offset: 3, size: UnboundedSize, expected: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newWindow(make([]byte, 7), tt.offset, tt.size)

			size, err := f.GetSize()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, size)
		})
	}
}

func TestSubrangeFileSetSize(t *testing.T) {
	f := newWindow(make([]byte, 7), 1, 2)
	assert.ErrorIs(t, f.SetSize(1), ErrUnsupportedOperation)
}

func TestSubrangeFileString(t *testing.T) {
	assert.Equal(t,
		"SubrangeFile{offset=1, size=2, base_file=MemoryFile{size=3}}",
		newWindow(make([]byte, 3), 1, 2).String())
	assert.Equal(t,
		"SubrangeFile{offset=0, size=unbounded, base_file=MemoryFile{size=3}}",
		newWindow(make([]byte, 3), 0, UnboundedSize).String())
}

func TestSubrangeFileSharedBase(t *testing.T) {
	counter := &closeCounter{MemoryFile: NewMemoryFile([]byte{0, 1, 2, 3})}
	shared := Share(counter)

	first := NewSubrangeFile(shared.Clone(), 0, 2)
	second := NewSubrangeFile(shared.Clone(), 2, 2)
	assert.Equal(t, int64(3), shared.Refs())

	// Writes through one window are visible through the other.
	_, err := first.Write(1, []byte{9})
	require.NoError(t, err)
	buf := make([]byte, 4)
	n, err := NewSubrangeFile(shared.Clone(), 0, UnboundedSize).Read(0, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 9, 2, 3}, buf[:n])

	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
	require.NoError(t, shared.Close())
	assert.Zero(t, counter.closes, "a reference is still held")

	assert.NoError(t, first.Flush())
}

func TestSubrangeFileClosesLastReference(t *testing.T) {
	counter := &closeCounter{MemoryFile: NewMemoryFile([]byte{0, 1})}
	f := NewSubrangeFile(Share(counter), 0, 1)

	require.NoError(t, f.Close())
	assert.Equal(t, 1, counter.closes)

	// A second Close on the same window does not release again.
	require.NoError(t, f.Close())
	assert.Equal(t, 1, counter.closes)
}
