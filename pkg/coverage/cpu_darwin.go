//go:build darwin

package coverage

import (
	"runtime"
	"syscall"
)

// detectOptimalWorkers prefers Apple Silicon performance cores
func detectOptimalWorkers() int {
	if n := sysctlCount("hw.perflevel0.physicalcpu"); n > 0 {
		return n
	}
	if n := sysctlCount("hw.physicalcpu"); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// sysctlCount reads a small little-endian integer sysctl
func sysctlCount(name string) int {
	// syscall.Sysctl returns raw bytes, not a string
	result, err := syscall.Sysctl(name)
	if err != nil || len(result) == 0 {
		return 0
	}
	count := int(result[0])
	if len(result) > 1 {
		count |= int(result[1]) << 8
	}
	return count
}
