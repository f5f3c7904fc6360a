// Package safeconv provides integer conversions that never wrap silently.
package safeconv

import (
	"errors"
	"fmt"
)

// MaxInt is the maximum value for int type (platform-dependent).
const MaxInt = int(^uint(0) >> 1)

// ErrOverflow reports a value that does not fit the target type.
var ErrOverflow = errors.New("integer overflow")

// MustIntToUint64 converts int to uint64, panics if negative.
// Use only when negative values are logically impossible (sizes, counts).
func MustIntToUint64(v int) uint64 {
	if v < 0 {
		panic("safeconv: negative int to uint64 conversion")
	}

	return uint64(v)
}

// Uint64ToInt converts uint64 to int, failing with ErrOverflow when v
// exceeds MaxInt.
func Uint64ToInt(v uint64) (int, error) {
	if v > uint64(MaxInt) {
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrOverflow, v, MaxInt)
	}

	return int(v), nil
}
