// Package execute is the process-execution primitive for the harness.
// Every external invocation - the code generator, fixture setup actions,
// generated-artifact runs, schema validation - goes through Run so that
// timeouts, working directories, and exit handling behave the same way
// everywhere. The working directory is always explicit on the Command;
// nothing in this package (or the rest of the harness) mutates the process
// working directory.
package execute

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single external command.
const DefaultTimeout = 5 * time.Minute

// Command describes one external invocation.
type Command struct {
	// Bin is the executable to run.
	Bin string

	// Args are the command-line arguments.
	Args []string

	// Dir is the working directory for the command. Required: commands in
	// this harness always run relative to an explicit root (a sandbox or a
	// fixture template), never the process working directory.
	Dir string

	// Env entries (KEY=VALUE) appended to the inherited environment.
	Env []string

	// Stdin, when non-nil, is fed to the command's standard input.
	Stdin []byte

	// Timeout for the command; DefaultTimeout when zero.
	Timeout time.Duration

	// Tolerate makes a non-zero exit a reported Result instead of an error.
	// Infrastructure failures (binary missing, timeout) are still errors.
	Tolerate bool
}

// String renders the command line for diagnostics.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Bin
	}
	return c.Bin + " " + strings.Join(c.Args, " ")
}

// Result captures one completed invocation.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
	Duration time.Duration
}

// Run executes cmd and waits for completion. A non-zero exit is an error
// carrying the rendered command line and a stderr tail, unless cmd.Tolerate
// is set.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Bin == "" {
		return nil, fmt.Errorf("empty command")
	}
	if cmd.Dir == "" {
		return nil, fmt.Errorf("command %q has no working directory", cmd.String())
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, cmd.Bin, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	if cmd.Stdin != nil {
		c.Stdin = bytes.NewReader(cmd.Stdin)
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	switch ctxErr := ctx.Err(); {
	case errors.Is(ctxErr, context.DeadlineExceeded):
		return res, fmt.Errorf("command timed out (%s): %s", timeout, cmd.String())
	case ctxErr != nil:
		// Parent cancellation, typically the pool aborting after a sibling's
		// hard failure; not this command's fault.
		return res, fmt.Errorf("command canceled: %s: %w", cmd.String(), ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return res, nil
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		if cmd.Tolerate {
			return res, nil
		}
		return res, fmt.Errorf("command failed (exit %d): %s: %s",
			res.ExitCode, cmd.String(), stderrTail(res.Stderr))
	default:
		return res, fmt.Errorf("command could not run: %s: %w", cmd.String(), err)
	}
}

// stderrTail keeps diagnostics bounded when a tool dumps large output.
func stderrTail(b []byte) string {
	const max = 2048
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
