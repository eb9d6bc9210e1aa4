// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for pinning event loop threads to CPUs. Platform-specific
// implementations live in build-tagged files. Callers must hold the OS thread
// (runtime.LockOSThread) for the pin to stick to their goroutine.

package affinity

import (
	"errors"
	"runtime"
)

// ErrNotSupported is returned on platforms without thread affinity control.
var ErrNotSupported = errors.New("affinity: not supported on this platform")

// ErrInvalidCPU is returned for negative CPU ids.
var ErrInvalidCPU = errors.New("affinity: invalid cpu id")

// SetAffinity pins the current OS thread to the given logical CPU.
func SetAffinity(cpuID int) error {
	if cpuID < 0 {
		return ErrInvalidCPU
	}
	return setAffinityPlatform(cpuID)
}

// ClearAffinity allows the current OS thread to run on every CPU again.
func ClearAffinity() error {
	return clearAffinityPlatform(runtime.NumCPU())
}

// CPUFor maps a loop index onto the available CPUs.
func CPUFor(index int) int {
	n := runtime.NumCPU()
	if index < 0 {
		index = -index
	}
	return index % n
}
