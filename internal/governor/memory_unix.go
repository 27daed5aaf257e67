//go:build darwin || linux

package governor

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sys/unix"
)

// statmPath is where Linux reports the current process's page counts.
var statmPath = "/proc/self/statm"

// ProcessSampler samples the resident set size of the gateway process.
// On Linux it reads the current RSS from /proc; elsewhere, or if /proc is
// unavailable, it falls back to the peak RSS reported by getrusage.
type ProcessSampler struct{}

// ResidentMB returns the resident memory in megabytes.
func (ProcessSampler) ResidentMB() (uint64, error) {
	if runtime.GOOS == "linux" {
		if mb, err := statmResidentMB(statmPath); err == nil {
			return mb, nil
		}
	}
	return rusageResidentMB()
}

func statmResidentMB(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	fields := bytes.Fields(data)
	if len(fields) < 2 {
		return 0, fmt.Errorf("unexpected statm format: %q", data)
	}
	pages, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse statm resident pages: %w", err)
	}
	return pages * uint64(unix.Getpagesize()) / (1024 * 1024), nil
}

func rusageResidentMB() (uint64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, fmt.Errorf("getrusage: %w", err)
	}
	maxrss := uint64(ru.Maxrss)
	// Linux reports kilobytes, Darwin bytes.
	if runtime.GOOS == "darwin" {
		return maxrss / (1024 * 1024), nil
	}
	return maxrss / 1024, nil
}
