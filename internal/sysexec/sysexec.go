// Package sysexec runs the external storage tools (sgdisk, cryptsetup,
// lvm, zpool, mount...) that disklayer drives.
package sysexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/sirupsen/logrus"

	"github.com/sigreer/disklayer/internal/failure"
)

// Runner executes an external command and returns its stdout.
// A nonzero exit status is an error.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// RunInput feeds input on stdin. Used for passphrases so they never
	// appear in argument lists or logs.
	RunInput(ctx context.Context, input []byte, name string, args ...string) ([]byte, error)
}

// Exec runs commands on the host
type Exec struct {
	Log logrus.FieldLogger
	// DryRun logs commands without running them; they report empty output.
	// Queries in readOnly still run.
	DryRun bool
}

// readOnly are the commands that only inspect state
var readOnly = []string{
	"lsblk",
	"zpool list",
	"zpool status",
	"lvs",
	"dmsetup info",
	"cryptsetup status",
}

// IsReadOnly reports whether the command line only inspects state
func IsReadOnly(name string, args ...string) bool {
	line := strings.Join(append([]string{name}, args...), " ")
	for _, prefix := range readOnly {
		if line == prefix || strings.HasPrefix(line, prefix+" ") {
			return true
		}
	}
	return false
}

// NewExec creates a host runner
func NewExec(log logrus.FieldLogger, dryRun bool) *Exec {
	return &Exec{Log: log, DryRun: dryRun}
}

// Run executes name with args
func (e *Exec) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return e.run(ctx, nil, name, args)
}

// RunInput executes name with args, writing input to its stdin
func (e *Exec) RunInput(ctx context.Context, input []byte, name string, args ...string) ([]byte, error) {
	return e.run(ctx, input, name, args)
}

func (e *Exec) run(ctx context.Context, input []byte, name string, args []string) ([]byte, error) {
	line := CommandLine(name, args...)
	e.Log.WithField("stdin", input != nil).Debugf("running: %s", line)
	if e.DryRun && !IsReadOnly(name, args...) {
		return nil, nil
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if input != nil {
		cmd.Stdin = bytes.NewReader(input)
	}

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = strings.TrimSpace(stdout.String())
			}
			return stdout.Bytes(), failure.Commandf(name, "exit status %d: %s", exitErr.ExitCode(), msg)
		}
		return nil, failure.New(failure.Command, name, err)
	}
	return stdout.Bytes(), nil
}

// CommandLine renders a command for logs
func CommandLine(name string, args ...string) string {
	return shellquote.Join(append([]string{name}, args...)...)
}
