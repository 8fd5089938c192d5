package iwevent

import (
	"fmt"
	"os/exec"
)

// lookupExecutable resolves name through PATH.
func lookupExecutable(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExecutableNotFound, name, err)
	}
	return path, nil
}
