//go:build !unix

package logseq

import "os/exec"

func configureProcess(cmd *exec.Cmd) {}
