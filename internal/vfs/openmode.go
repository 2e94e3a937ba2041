package vfs

import (
	"os"
	"strings"
)

// OpenMode is the bitmask of access requested when opening a file.
type OpenMode uint32

// Open mode flags. Write and Append are not meant to be combined.
const (
	OpenRead     OpenMode = 1 << 0
	OpenWrite    OpenMode = 1 << 1
	OpenAppend   OpenMode = 1 << 2
	OpenCreate   OpenMode = 1 << 3
	OpenTruncate OpenMode = 1 << 4
)

// Has reports whether every bit of flag is set in m.
func (m OpenMode) Has(flag OpenMode) bool {
	return m&flag == flag
}

// CanRead reports whether reads are permitted.
func (m OpenMode) CanRead() bool {
	return m.Has(OpenRead)
}

// CanWrite reports whether writes are permitted, through Write or Append.
func (m OpenMode) CanWrite() bool {
	return m&(OpenWrite|OpenAppend) != 0
}

// HostFlags maps the mode onto os.OpenFile flags. Only the combinations
// below are recognised; anything else is ErrInvalidOpenMode.
//
//	r    -> existing, read-only
//	w/rw -> existing, read+write
//	wc   -> create/truncate, write-only
//	rwc  -> create/truncate, read+write
//	a    -> create if needed, append-only
//	ra   -> create if needed, read+append
func (m OpenMode) HostFlags() (int, error) {
	switch m {
	case OpenRead:
		return os.O_RDONLY, nil
	case OpenWrite, OpenRead | OpenWrite:
		return os.O_RDWR, nil
	case OpenWrite | OpenTruncate:
		return os.O_WRONLY | os.O_CREATE | os.O_TRUNC, nil
	case OpenRead | OpenWrite | OpenTruncate:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	case OpenAppend:
		return os.O_WRONLY | os.O_CREATE | os.O_APPEND, nil
	case OpenRead | OpenAppend:
		return os.O_RDWR | os.O_CREATE | os.O_APPEND, nil
	default:
		return 0, ErrInvalidOpenMode
	}
}

// String renders the mode as r, w, c (truncate) and a, in that order.
func (m OpenMode) String() string {
	var sb strings.Builder
	if m.Has(OpenRead) {
		sb.WriteByte('r')
	}
	if m.Has(OpenWrite) {
		sb.WriteByte('w')
	}
	if m.Has(OpenTruncate) {
		sb.WriteByte('c')
	}
	if m.Has(OpenAppend) {
		sb.WriteByte('a')
	}
	return sb.String()
}
