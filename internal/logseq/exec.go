// Package logseq runs queries against a Logseq DB graph through the logseq
// CLI and the jet EDN converter, and decodes the results into records.
//
// The pipeline for a query is:
//
//	logseq query <text> -g <graph>   (native EDN on stdout)
//	jet --to json                     (EDN on stdin, JSON on stdout)
//	Decode                            (first matching result shape wins)
//	resolve.Resolver                  (inline [[uuid]] markers -> titles)
//
// Every step spawns a fresh process. Nothing is shared between concurrent
// queries besides the read-only Config.
package logseq

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// DefaultSearchPath replaces PATH for child processes. GUI launchers and
// service managers often start with a minimal PATH that lacks Homebrew.
const DefaultSearchPath = "/opt/homebrew/bin:/usr/local/bin:/usr/bin:/bin"

// Result is the captured outcome of one process invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes an external program to completion.
//
// Run returns an error only when the process could not be started or the
// context ended; a non-zero exit is reported through Result.ExitCode.
// When stdin is nil the child's standard input is the null device.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader) (Result, error)
}

// ExecRunner is the os/exec implementation of Runner.
type ExecRunner struct {
	// Dir is the working directory. Defaults to the user's home directory,
	// since the CLI's own install directory is often not readable.
	Dir string

	// SearchPath overrides PATH in the child environment.
	// Defaults to DefaultSearchPath.
	SearchPath string

	// Logger receives debug output for every invocation.
	Logger *zap.Logger
}

// NewExecRunner returns an ExecRunner with default directory and PATH.
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = ""
	}
	return &ExecRunner{
		Dir:        dir,
		SearchPath: DefaultSearchPath,
		Logger:     logger,
	}
}

// Run implements Runner.
//
// There is no timeout. Cancelling ctx kills the child (and its process
// group where supported) and any partial output is discarded.
func (r *ExecRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) (Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Env = childEnv(os.Environ(), r.SearchPath)
	cmd.Stdin = stdin
	configureProcess(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("exec",
		zap.String("cmd", name),
		zap.Strings("args", args),
		zap.String("dir", cmd.Dir),
	)

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, fmt.Errorf("%s: %w", name, ctxErr)
	}

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, newError(ErrProcessLaunch, "exec", fmt.Sprintf("%s: %v", name, err), err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	logger.Debug("exec finished",
		zap.String("cmd", name),
		zap.Int("exit_code", result.ExitCode),
		zap.Int("stdout_bytes", stdout.Len()),
		zap.Int("stderr_bytes", stderr.Len()),
	)

	return result, nil
}

// childEnv copies env with PATH replaced by searchPath.
func childEnv(env []string, searchPath string) []string {
	if searchPath == "" {
		return env
	}
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			continue
		}
		out = append(out, kv)
	}
	return append(out, "PATH="+searchPath)
}
