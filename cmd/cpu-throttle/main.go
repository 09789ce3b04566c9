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

// Package main implements cpu-throttle, a setuid launcher that caps the maximum
// CPU frequency while a command runs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

var (
	command = "cpu-throttle"
	version = "v0.0.0"
	commit  = "none"
)

const (
	// ExitFailure is returned for usage errors and failures before or while clamping.
	ExitFailure = 1
)

func main() {
	if exitCode := run(context.Background(), newThrottleCmd(), os.Args[1:]); exitCode != 0 {
		os.Exit(exitCode)
	}
}

func run(ctx context.Context, c *throttleCmd, args []string) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := c.build()
	cmd.SetArgs(args)

	if c.stderr != nil {
		cmd.SetErr(c.stderr)
	}

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		if errors.Is(err, ErrUsage) {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n\n", err)
			fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		}

		return ExitFailure
	}

	return c.exitCode
}
