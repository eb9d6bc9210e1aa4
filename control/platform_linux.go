//go:build linux
// +build linux

// control/platform_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific debug probes.

package control

import (
	"runtime"

	"github.com/momentics/hioload-ctx/affinity"
)

// RegisterPlatformProbes adds CPU topology probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
	dp.RegisterProbe("platform.affinity", func() any {
		cpus, err := affinity.CurrentCPUs()
		if err != nil {
			return err.Error()
		}
		return cpus
	})
}
