//go:build windows

package runner

import "os/exec"

func configure(*exec.Cmd) {}

// Windows has no SIGTERM, so terminate kills directly.
func terminate(cmd *exec.Cmd) {
	_ = cmd.Process.Kill()
}

func kill(cmd *exec.Cmd) {
	_ = cmd.Process.Kill()
}
