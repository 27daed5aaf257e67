//go:build !darwin && !linux

package executor

import (
	"os/exec"
	"time"
)

// setupProcessGroup falls back to killing only the direct child.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = 2 * time.Second
}
