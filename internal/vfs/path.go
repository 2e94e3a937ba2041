package vfs

import (
	"bytes"
	"encoding/hex"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"
)

// PathKind identifies the active variant of a Path.
type PathKind uint8

const (
	// PathEmpty is the zero Path.
	PathEmpty PathKind = iota
	// PathUTF8 holds UTF-8 text.
	PathUTF8
	// PathUTF16 holds UTF-16 code units.
	PathUTF16
	// PathBinary holds an opaque byte sequence.
	PathBinary
)

// Path is a filesystem path held as one of: nothing, UTF-8 text, UTF-16 text
// or raw bytes. The zero value is the empty path.
type Path struct {
	kind  PathKind
	text  string
	units []uint16
	raw   []byte
}

// NewPath creates a UTF-8 path.
func NewPath(s string) Path {
	return Path{kind: PathUTF8, text: s}
}

// NewU16Path creates a UTF-16 path. The slice is owned by the Path afterwards.
func NewU16Path(units []uint16) Path {
	return Path{kind: PathUTF16, units: units}
}

// NewBinaryPath creates a raw byte path. The slice is owned by the Path afterwards.
func NewBinaryPath(data []byte) Path {
	return Path{kind: PathBinary, raw: data}
}

// Kind returns the active variant.
func (p Path) Kind() PathKind {
	return p.kind
}

// AsString returns a UTF-8 encoding of UTF-8 or UTF-16 paths. Empty and
// binary paths report false.
func (p Path) AsString() (string, bool) {
	switch p.kind {
	case PathUTF8:
		return p.text, true
	case PathUTF16:
		return string(utf16.Decode(p.units)), true
	default:
		return "", false
	}
}

// AsU16String returns a UTF-16 encoding of UTF-8 or UTF-16 paths. Empty and
// binary paths report false.
func (p Path) AsU16String() ([]uint16, bool) {
	switch p.kind {
	case PathUTF8:
		return utf16.Encode([]rune(p.text)), true
	case PathUTF16:
		return p.units, true
	default:
		return nil, false
	}
}

// Bytes returns the raw bytes of a binary path.
func (p Path) Bytes() ([]byte, bool) {
	if p.kind != PathBinary {
		return nil, false
	}
	return p.raw, true
}

// String renders the path with its variant tag, for debugging.
func (p Path) String() string {
	switch p.kind {
	case PathUTF8:
		return "[string: " + p.text + "]"
	case PathUTF16:
		s, _ := p.AsString()
		return "[u16string: " + s + "]"
	case PathBinary:
		return "[binary: " + hex.EncodeToString(p.raw) + "]"
	default:
		return "[blank]"
	}
}

// LowPathType is the path descriptor type used on the emulated OS wire.
type LowPathType uint32

// Wire path descriptor types.
const (
	LowPathInvalid LowPathType = 0
	LowPathEmpty   LowPathType = 1
	LowPathBinary  LowPathType = 2
	LowPathChar    LowPathType = 3
	LowPathWChar   LowPathType = 4
)

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// ParseLowPath decodes a wire path descriptor into a Path. Text payloads are
// NUL-terminated; WChar payloads are UTF-16LE.
func ParseLowPath(typ LowPathType, data []byte) (Path, error) {
	switch typ {
	case LowPathEmpty:
		return Path{}, nil
	case LowPathBinary:
		raw := make([]byte, len(data))
		copy(raw, data)
		return NewBinaryPath(raw), nil
	case LowPathChar:
		if i := bytes.IndexByte(data, 0); i >= 0 {
			data = data[:i]
		}
		return NewPath(string(data)), nil
	case LowPathWChar:
		decoded, err := utf16LE.NewDecoder().Bytes(trimWideNUL(data))
		if err != nil {
			return Path{}, &PathError{Op: OpParseLowPath, Path: hex.EncodeToString(data), Err: ErrInvalidPath}
		}
		return NewU16Path(utf16.Encode([]rune(string(decoded)))), nil
	default:
		return Path{}, &PathError{Op: OpParseLowPath, Err: ErrInvalidPath}
	}
}

// trimWideNUL cuts data at the first aligned 16-bit NUL and drops a trailing odd byte.
func trimWideNUL(data []byte) []byte {
	n := len(data) &^ 1
	for i := 0; i < n; i += 2 {
		if data[i] == 0 && data[i+1] == 0 {
			return data[:i]
		}
	}
	return data[:n]
}
