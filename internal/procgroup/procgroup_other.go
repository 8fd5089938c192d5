//go:build !unix

// Package procgroup runs child processes in their own process group so that
// killing them also reaches anything they spawned.
package procgroup

import (
	"errors"
	"os"
	"os/exec"
)

// Configure is a no-op; only the direct child is killed on this platform.
func Configure(cmd *exec.Cmd) {}

func Kill(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
