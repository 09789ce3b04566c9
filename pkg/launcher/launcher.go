/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package launcher runs a command without the privileges of the calling process.
package launcher

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/go-logr/logr"

	utilsys "github.com/sergelogvinov/cpu-throttle/pkg/utils/sys"
)

const (
	// ExitAbnormal is returned when the child did not exit normally,
	// was killed by a signal, or could not be waited for.
	ExitAbnormal = 125
	// ExitCannotExecute is returned when the child could not be started,
	// including a failure to drop privileges.
	ExitCannotExecute = 126
	// ExitNotFound is returned when the command was not found.
	ExitNotFound = 127
)

// Launcher starts commands with the identity of the invoking user.
type Launcher struct {
	logger     logr.Logger
	credential *syscall.Credential

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithCredential sets the identity of the child, nil keeps the identity of the caller.
func WithCredential(credential *syscall.Credential) Option {
	return func(l *Launcher) {
		l.credential = credential
	}
}

// WithStdio sets the standard streams of the child.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(l *Launcher) {
		l.stdin = stdin
		l.stdout = stdout
		l.stderr = stderr
	}
}

// New returns a launcher dropping privileges to the real uid and gid.
func New(logger logr.Logger, opts ...Option) *Launcher {
	l := &Launcher{
		logger:     logger,
		credential: utilsys.RealCredential(),
		stdin:      os.Stdin,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run executes the command and waits until it exits, there is no timeout.
// It returns the exit status of the command, or one of the Exit constants.
//
// Cancelling ctx stops the wait and returns ExitAbnormal, the child keeps running.
func (l *Launcher) Run(ctx context.Context, name string, args []string) int {
	if err := ctx.Err(); err != nil {
		l.logger.Info("Interrupted, command not started", "command", name)

		return ExitAbnormal
	}

	cmd := exec.Command(name, args...) //nolint:gosec
	cmd.Stdin = l.stdin
	cmd.Stdout = l.stdout
	cmd.Stderr = l.stderr

	if l.credential != nil {
		// The child switches gid, then uid, before exec. Any failure aborts the exec.
		cmd.SysProcAttr = &syscall.SysProcAttr{Credential: l.credential}
	}

	if err := cmd.Start(); err != nil {
		l.logger.Error(err, "Failed to start command", "command", name)

		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return ExitNotFound
		}

		return ExitCannotExecute
	}

	l.logger.V(1).Info("Command started", "command", name, "pid", cmd.Process.Pid)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		return l.outcome(cmd, err)
	case <-ctx.Done():
		l.logger.Info("Interrupted, stopped waiting for command", "command", name, "pid", cmd.Process.Pid)

		return ExitAbnormal
	}
}

func (l *Launcher) outcome(cmd *exec.Cmd, err error) int {
	state := cmd.ProcessState

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		l.logger.Error(err, "Failed to wait for command", "command", cmd.Path)

		return ExitAbnormal
	}

	if state == nil || !state.Exited() {
		l.logger.Info("Child process did not exit normally", "command", cmd.Path, "status", state.String())

		return ExitAbnormal
	}

	return state.ExitCode()
}
