package vfs

import "math"

func safeInt64ToUint64(n int64) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}

// safeUint64ToInt64 rejects offsets the host cannot address.
func safeUint64ToInt64(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, ErrUnknown
	}
	return int64(n), nil
}
