//go:build !linux

package affinity

import "errors"

// Set is a no-op stub on platforms without SCHED_SETAFFINITY.
func Set(cpu int) error {
	return errors.New("affinity: CPU pinning not supported on this platform")
}

// Supported reports whether CPU pinning is available on this platform.
func Supported() bool { return false }
