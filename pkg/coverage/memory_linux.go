//go:build linux

package coverage

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// detectSystemMemory reads /proc/meminfo and falls back to sysinfo(2)
// when it is unavailable, e.g. inside restricted containers.
func detectSystemMemory() (total int64, available int64) {
	total, available = readMeminfo("/proc/meminfo")
	if total > 0 {
		return total, available
	}

	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0
	}
	unit := int64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return int64(info.Totalram) * unit, int64(info.Freeram+info.Bufferram) * unit
}

// readMeminfo returns MemTotal and MemAvailable in bytes. Kernels without
// MemAvailable get MemFree + Buffers + Cached.
func readMeminfo(path string) (total int64, available int64) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer file.Close()

	values := make(map[string]int64)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		// /proc/meminfo reports in KB
		values[strings.TrimSuffix(fields[0], ":")] = value * 1024
	}

	total = values["MemTotal"]
	available, ok := values["MemAvailable"]
	if !ok {
		available = values["MemFree"] + values["Buffers"] + values["Cached"]
	}
	return total, available
}
