//go:build !linux && !windows
// +build !linux,!windows

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

func setAffinityPlatform(cpuID int) error {
	return ErrNotSupported
}

func clearAffinityPlatform(numCPU int) error {
	return ErrNotSupported
}

// CurrentCPUs is unavailable on this platform.
func CurrentCPUs() ([]int, error) {
	return nil, ErrNotSupported
}
