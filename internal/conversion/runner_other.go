//go:build !unix

package conversion

import "os/exec"

// Without process groups the default cancel (kill the child) applies.
func configureProcessGroup(cmd *exec.Cmd) {}
