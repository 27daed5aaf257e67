//go:build !darwin && !linux

package governor

import "runtime"

// ProcessSampler approximates resident memory with the Go runtime's view
// of memory obtained from the OS.
type ProcessSampler struct{}

// ResidentMB returns the memory obtained from the OS in megabytes.
func (ProcessSampler) ResidentMB() (uint64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.Sys / (1024 * 1024), nil
}
