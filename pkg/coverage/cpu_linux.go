//go:build linux

package coverage

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// detectOptimalWorkers counts performance cores on hybrid CPUs and falls
// back to all logical CPUs.
func detectOptimalWorkers() int {
	if n := detectPerfCores("/proc/cpuinfo"); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// detectPerfCores groups logical CPUs by core id and treats cores clocked
// within 10% of the average as performance cores. Zero means the CPU does
// not look hybrid.
func detectPerfCores(cpuinfo string) int {
	file, err := os.Open(cpuinfo)
	if err != nil {
		return 0
	}
	defer file.Close()

	coreFreq := make(map[int]float64)
	coreID := -1

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch key {
		case "processor":
			coreID = -1
		case "core id":
			if id, err := strconv.Atoi(value); err == nil {
				coreID = id
			}
		case "cpu MHz":
			freq, err := strconv.ParseFloat(value, 64)
			if err != nil || coreID < 0 {
				continue
			}
			if prev, seen := coreFreq[coreID]; !seen || freq > prev {
				coreFreq[coreID] = freq
			}
		}
	}

	if len(coreFreq) <= 2 {
		return 0
	}

	var sum float64
	for _, f := range coreFreq {
		sum += f
	}
	avg := sum / float64(len(coreFreq))

	perf := 0
	for _, f := range coreFreq {
		if f >= avg*0.9 {
			perf++
		}
	}
	if perf > 0 && perf < len(coreFreq) {
		return perf
	}
	return 0
}
