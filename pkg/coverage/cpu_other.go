//go:build !darwin && !linux

package coverage

import "runtime"

// detectOptimalWorkers falls back to all logical CPUs
func detectOptimalWorkers() int {
	return runtime.NumCPU()
}
