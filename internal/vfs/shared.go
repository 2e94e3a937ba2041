package vfs

import (
	"fmt"
	"sync/atomic"
)

// Shared is one counted reference to a File that several holders use at
// once. Each holder gets its own *Shared from Clone and releases it with
// Close; the File itself is closed when the last reference is released.
//
// The count is the only synchronised state. Concurrent writers through
// different references race on the File and must be serialised by callers.
type Shared struct {
	file     File
	refs     *atomic.Int64
	released atomic.Bool
}

// Share starts reference counting f with a single reference.
func Share(f File) *Shared {
	refs := new(atomic.Int64)
	refs.Store(1)
	return &Shared{file: f, refs: refs}
}

// Clone returns a new reference to the same File.
func (s *Shared) Clone() *Shared {
	s.refs.Add(1)
	return &Shared{file: s.file, refs: s.refs}
}

// File returns the referenced File.
func (s *Shared) File() File {
	return s.file
}

// Refs returns the number of live references.
func (s *Shared) Refs() int64 {
	return s.refs.Load()
}

// Close releases this reference. Closing the last reference closes the File
// and returns its error; releasing a reference twice is a no-op.
func (s *Shared) Close() error {
	if !s.released.CompareAndSwap(false, true) {
		return nil
	}
	if s.refs.Add(-1) == 0 {
		return s.file.Close()
	}
	return nil
}

// String implements fmt.Stringer.
func (s *Shared) String() string {
	return fmt.Sprintf("Shared{refs=%d, file=%s}", s.refs.Load(), s.file)
}
