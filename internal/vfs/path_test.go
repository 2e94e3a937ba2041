package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathConversions(t *testing.T) {
	tests := []struct {
		name     string
		path     Path
		kind     PathKind
		text     string
		textOK   bool
		rendered string
	}{
		{
			name:     "empty",
			path:     Path{},
			kind:     PathEmpty,
			rendered: "[blank]",
		},
		{
			name:     "utf8",
			path:     NewPath("/save/äb"),
			kind:     PathUTF8,
			text:     "/save/äb",
			textOK:   true,
			rendered: "[string: /save/äb]",
		},
		{
			name:     "utf16",
			path:     NewU16Path([]uint16{'/', 'x', 0x00e9}),
			kind:     PathUTF16,
			text:     "/xé",
			textOK:   true,
			rendered: "[u16string: /xé]",
		},
		{
			name:     "utf16 surrogate pair",
			path:     NewU16Path([]uint16{0xd83d, 0xde00}),
			kind:     PathUTF16,
			text:     "😀",
			textOK:   true,
			rendered: "[u16string: 😀]",
		},
		{
			name:     "binary",
			path:     NewBinaryPath([]byte{0x00, 0xab, 0x10}),
			kind:     PathBinary,
			rendered: "[binary: 00ab10]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.path.Kind())
			assert.Equal(t, tt.rendered, tt.path.String())

			s, ok := tt.path.AsString()
			assert.Equal(t, tt.textOK, ok)
			assert.Equal(t, tt.text, s)

			units, ok := tt.path.AsU16String()
			assert.Equal(t, tt.textOK, ok)
			if ok {
				assert.Equal(t, tt.text, mustString(t, NewU16Path(units)))
			}
		})
	}
}

func mustString(t *testing.T, p Path) string {
	t.Helper()
	s, ok := p.AsString()
	require.True(t, ok)
	return s
}

func TestPathBytes(t *testing.T) {
	raw, ok := NewBinaryPath([]byte{1, 2}).Bytes()
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2}, raw)

	_, ok = NewPath("x").Bytes()
	assert.False(t, ok)
}

func TestParseLowPath(t *testing.T) {
	tests := []struct {
		name     string
		typ      LowPathType
		data     []byte
		expected string
		wantErr  bool
	}{
		{
			name:     "empty",
			typ:      LowPathEmpty,
			data:     []byte("ignored"),
			expected: "[blank]",
		},
		{
			name:     "binary",
			typ:      LowPathBinary,
			data:     []byte{0xde, 0xad},
			expected: "[binary: dead]",
		},
		{
			name:     "char trims at nul",
			typ:      LowPathChar,
			data:     []byte("/sys/a\x00garbage"),
			expected: "[string: /sys/a]",
		},
		{
			name:     "char without nul",
			typ:      LowPathChar,
			data:     []byte("/b"),
			expected: "[string: /b]",
		},
		{
			name:     "wchar little endian",
			typ:      LowPathWChar,
			data:     []byte{'/', 0, 'a', 0, 0xe9, 0, 0, 0, 'z', 0},
			expected: "[u16string: /aé]",
		},
		{
			name:     "wchar odd trailing byte",
			typ:      LowPathWChar,
			data:     []byte{'/', 0, 'q'},
			expected: "[u16string: /]",
		},
		{
			name:    "invalid",
			typ:     LowPathInvalid,
			wantErr: true,
		},
		{
			name:    "unknown type",
			typ:     9,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseLowPath(tt.typ, tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p.String())
		})
	}
}

func TestParseLowPathCopiesBinary(t *testing.T) {
	data := []byte{1, 2}
	p, err := ParseLowPath(LowPathBinary, data)
	require.NoError(t, err)

	data[0] = 9
	raw, _ := p.Bytes()
	assert.Equal(t, []byte{1, 2}, raw)
}
