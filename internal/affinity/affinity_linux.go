//go:build linux

// Package affinity pins the calling OS thread to a specific CPU, the way the
// teacher's queue runner pins its io_uring loop thread before submitting any
// work.
package affinity

import "golang.org/x/sys/unix"

// Set pins the calling goroutine's OS thread to cpu. The caller must have
// already called runtime.LockOSThread.
func Set(cpu int) error {
	var mask unix.CPUSet
	mask.Set(cpu)
	return unix.SchedSetaffinity(0, &mask)
}

// Supported reports whether CPU pinning is available on this platform.
func Supported() bool { return true }
